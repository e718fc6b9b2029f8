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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/normalize"
)

// DefaultApifyBaseURL is the Apify v2 API root.
const DefaultApifyBaseURL = "https://api.apify.com/v2"

const (
	redditActor    = "trudax~reddit-scraper-lite"
	instagramActor = "apify~instagram-scraper"
	facebookActor  = "apify~facebook-posts-scraper"

	runPollInterval = 5 * time.Second
	runMaxWait      = 5 * time.Minute
)

// ApifyClient runs Apify actors and fetches their dataset output.
type ApifyClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewApifyClient creates a client for the Apify API.
func NewApifyClient(httpClient *http.Client, baseURL, token string) *ApifyClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = DefaultApifyBaseURL
	}
	return &ApifyClient{httpClient: httpClient, baseURL: baseURL, token: token}
}

// RunAndCollect starts an actor, waits for it to finish, and returns
// the items from its default dataset.
func (c *ApifyClient) RunAndCollect(ctx context.Context, actorID string, input any) ([]normalize.RawItem, error) {
	if c.token == "" {
		return nil, fmt.Errorf("apify token not configured")
	}

	runID, err := c.startRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}

	datasetID, err := c.waitForRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	return c.datasetItems(ctx, datasetID)
}

func (c *ApifyClient) startRun(ctx context.Context, actorID string, input any) (string, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshal actor input: %w", err)
	}

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", c.baseURL, actorID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build actor run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("start actor %s: %w", actorID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("actor %s returned HTTP %d: %s", actorID, resp.StatusCode, string(raw))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode actor run response: %w", err)
	}

	slog.Debug("apify actor started", "actor", actorID, "run_id", result.Data.ID)
	return result.Data.ID, nil
}

func (c *ApifyClient) waitForRun(ctx context.Context, runID string) (string, error) {
	deadline := time.Now().Add(runMaxWait)
	url := fmt.Sprintf("%s/actor-runs/%s?token=%s", c.baseURL, runID, c.token)

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return "", fmt.Errorf("build run status request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch run status: %w", err)
		}

		var result struct {
			Data struct {
				Status           string `json:"status"`
				DefaultDatasetID string `json:"defaultDatasetId"`
			} `json:"data"`
		}
		err = json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decode run status: %w", err)
		}

		switch result.Data.Status {
		case "SUCCEEDED":
			return result.Data.DefaultDatasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("actor run %s ended with status %s", runID, result.Data.Status)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("actor run %s did not finish within %s", runID, runMaxWait)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(runPollInterval):
		}
	}
}

func (c *ApifyClient) datasetItems(ctx context.Context, datasetID string) ([]normalize.RawItem, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", c.baseURL, datasetID, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build dataset request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset fetch returned HTTP %d", resp.StatusCode)
	}

	var items []normalize.RawItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode dataset items: %w", err)
	}
	return items, nil
}

// RedditSource searches Reddit via the reddit-scraper-lite actor.
// Queries of the form "subreddit:<name>" browse a subreddit instead of
// keyword-searching.
type RedditSource struct {
	client *ApifyClient
}

// NewRedditSource creates a Reddit adapter over the Apify client.
func NewRedditSource(client *ApifyClient) *RedditSource {
	return &RedditSource{client: client}
}

func (s *RedditSource) Platform() models.Platform { return models.PlatformReddit }

func (s *RedditSource) Fetch(ctx context.Context, query string, maxItems int) ([]normalize.RawItem, error) {
	input := map[string]any{
		"searches": []string{query},
		"maxItems": maxItems,
		"sort":     "new",
	}
	return s.client.RunAndCollect(ctx, redditActor, input)
}

// InstagramSource searches Instagram hashtags via the instagram-scraper
// actor.
type InstagramSource struct {
	client *ApifyClient
}

// NewInstagramSource creates an Instagram adapter over the Apify client.
func NewInstagramSource(client *ApifyClient) *InstagramSource {
	return &InstagramSource{client: client}
}

func (s *InstagramSource) Platform() models.Platform { return models.PlatformInstagram }

func (s *InstagramSource) Fetch(ctx context.Context, query string, maxItems int) ([]normalize.RawItem, error) {
	// Hashtag search: bare terms become #terms
	term := query
	if !strings.HasPrefix(term, "#") {
		term = "#" + strings.ReplaceAll(term, " ", "")
	}

	input := map[string]any{
		"search":      term,
		"searchType":  "hashtag",
		"resultsType": "posts",
		"searchLimit": maxItems,
	}
	return s.client.RunAndCollect(ctx, instagramActor, input)
}

// FacebookSource fetches posts from a public page via the
// facebook-posts-scraper actor. The query is treated as a page name.
type FacebookSource struct {
	client *ApifyClient
}

// NewFacebookSource creates a Facebook adapter over the Apify client.
func NewFacebookSource(client *ApifyClient) *FacebookSource {
	return &FacebookSource{client: client}
}

func (s *FacebookSource) Platform() models.Platform { return models.PlatformFacebook }

func (s *FacebookSource) Fetch(ctx context.Context, query string, maxItems int) ([]normalize.RawItem, error) {
	input := map[string]any{
		"startUrls":    []map[string]string{{"url": "https://www.facebook.com/" + query}},
		"resultsLimit": maxItems,
	}
	return s.client.RunAndCollect(ctx, facebookActor, input)
}
