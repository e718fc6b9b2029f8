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

// Package normalize converts heterogeneous source records into the
// canonical Post shape. Each platform names its fields differently
// (title+body, caption, text/postText); the normalizer maps them and
// synthesizes a globally unique, source-prefixed post ID.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
)

// RawItem is the superset of fields the source adapters surface. Each
// platform fills a different subset.
type RawItem struct {
	// Common
	ID  string `json:"id"`
	URL string `json:"url"`

	// Reddit
	Title    string `json:"title"`
	Body     string `json:"body"`
	SelfText string `json:"selftext"`
	Author   string `json:"author"`

	// Instagram
	Caption       string `json:"caption"`
	OwnerUsername string `json:"ownerUsername"`

	// Facebook
	Text     string `json:"text"`
	PostText string `json:"postText"`
	PostID   string `json:"postId"`
	UserName string `json:"userName"`

	// Twitter
	TweetText  string `json:"tweet_text"`
	AuthorID   string `json:"author_id"`
	UserHandle string `json:"user_handle"`
}

// idPrefix returns the short tag prepended to native IDs so posts from
// different platforms can never collide, even on numeric IDs.
func idPrefix(p models.Platform) string {
	switch p {
	case models.PlatformReddit:
		return "rd_"
	case models.PlatformInstagram:
		return "ig_"
	case models.PlatformFacebook:
		return "fb_"
	case models.PlatformTwitter:
		return "twitter_"
	default:
		return "mock_"
	}
}

// Normalize maps a raw source record to a canonical Post. It returns
// nil (filtered, not an error) when the item has no usable content and
// the platform's policy disallows empty content: Instagram captions are
// required, Facebook posts without text are noise. Reddit tolerates
// empty bodies (the title alone is meaningful) and Twitter items always
// carry text.
func Normalize(item RawItem, platform models.Platform) *models.Post {
	post := &models.Post{
		Platform:  platform,
		URL:       item.URL,
		Timestamp: float64(time.Now().Unix()),
	}

	switch platform {
	case models.PlatformReddit:
		body := item.Body
		if body == "" {
			body = item.SelfText
		}
		post.Content = strings.TrimSpace(item.Title + "\n\n" + body)
		post.UserHandle = "u/" + orUnknown(item.Author)
		post.ID = idPrefix(platform) + orZero(item.ID)

	case models.PlatformInstagram:
		if item.Caption == "" {
			return nil
		}
		post.Content = item.Caption
		post.UserHandle = "@" + orUnknown(item.OwnerUsername)
		post.ID = idPrefix(platform) + orZero(item.ID)

	case models.PlatformFacebook:
		text := item.Text
		if text == "" {
			text = item.PostText
		}
		if text == "" {
			return nil
		}
		post.Content = text
		// Facebook surfaces display names, not @handles
		post.UserHandle = orUnknown(item.UserName)
		post.ID = idPrefix(platform) + orZero(item.PostID)

	case models.PlatformTwitter:
		post.Content = item.TweetText
		if post.Content == "" {
			post.Content = item.Text
		}
		handle := item.UserHandle
		if handle == "" {
			handle = "@" + orUnknown(item.AuthorID)
		}
		post.UserHandle = handle
		post.ID = idPrefix(platform) + orZero(item.ID)

	default:
		post.Content = item.Text
		post.UserHandle = orUnknown(item.UserHandle)
		post.ID = idPrefix(platform) + orZero(item.ID)
	}

	return post
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func orZero(s string) string {
	if s == "" {
		return "000"
	}
	return s
}

// Fields splits a comma-separated config value into trimmed, non-empty
// entries, keeping at most max of them (API usage cap). max <= 0 means
// no cap.
func Fields(csv string, max int) []string {
	var out []string
	for _, f := range strings.Split(csv, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out
}

// Query builds a search query, quoting the product name in front of the
// keyword when one is configured (strict source filtering).
func Query(productName, keyword string) string {
	productName = strings.TrimSpace(productName)
	if productName == "" {
		return keyword
	}
	return fmt.Sprintf("%q %s", productName, keyword)
}
