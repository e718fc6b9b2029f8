// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/normalize"
)

// DefaultTwitterBaseURL is the Twitter API v2 root.
const DefaultTwitterBaseURL = "https://api.twitter.com/2"

// twitterMaxResults is the API ceiling per search call.
const twitterMaxResults = 100

// TwitterSource searches recent tweets using a per-account OAuth2
// access token. Tokens are issued by the web app's OAuth flow; the
// pipeline only consumes them, so a static token source suffices and
// rate limits are naturally distributed across accounts.
type TwitterSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewTwitterSource creates a Twitter adapter for one account's token.
func NewTwitterSource(ctx context.Context, accessToken, baseURL string) *TwitterSource {
	if baseURL == "" {
		baseURL = DefaultTwitterBaseURL
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = 10 * time.Second

	return &TwitterSource{httpClient: client, baseURL: baseURL}
}

func (s *TwitterSource) Platform() models.Platform { return models.PlatformTwitter }

// searchResponse mirrors the /tweets/search/recent payload.
type searchResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		AuthorID  string `json:"author_id"`
		CreatedAt string `json:"created_at"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
		} `json:"users"`
	} `json:"includes"`
}

// Fetch searches recent tweets for the query.
func (s *TwitterSource) Fetch(ctx context.Context, query string, maxItems int) ([]normalize.RawItem, error) {
	if maxItems > twitterMaxResults {
		maxItems = twitterMaxResults
	}
	if maxItems < 10 {
		maxItems = 10 // API minimum for max_results
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("max_results", strconv.Itoa(maxItems))
	params.Set("tweet.fields", "created_at,author_id,lang")
	params.Set("expansions", "author_id")
	params.Set("user.fields", "username,name")

	searchURL := fmt.Sprintf("%s/tweets/search/recent?%s", s.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build tweet search request: %w", err)
	}
	req.Header.Set("User-Agent", "LoopCloser/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search tweets: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return nil, fmt.Errorf("twitter rate limit hit for query %q", query)
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("twitter token invalid or expired")
	default:
		return nil, fmt.Errorf("tweet search returned HTTP %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode tweet search response: %w", err)
	}

	usernames := make(map[string]string, len(result.Includes.Users))
	for _, u := range result.Includes.Users {
		usernames[u.ID] = u.Username
	}

	items := make([]normalize.RawItem, 0, len(result.Data))
	for _, t := range result.Data {
		handle := "@unknown"
		author := "i"
		if name, ok := usernames[t.AuthorID]; ok {
			handle = "@" + name
			author = name
		}
		items = append(items, normalize.RawItem{
			ID:         t.ID,
			TweetText:  t.Text,
			AuthorID:   t.AuthorID,
			UserHandle: handle,
			URL:        fmt.Sprintf("https://twitter.com/%s/status/%s", author, t.ID),
		})
	}
	return items, nil
}
