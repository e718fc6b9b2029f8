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

	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/normalize"
)

// MockSource returns a fixed set of posts covering the classifier's
// main cases (bug report, praise, sarcasm, feature request, question).
// Used by the one-shot runner's --mock flag and by tests; no network.
type MockSource struct{}

// NewMockSource creates the deterministic mock adapter.
func NewMockSource() *MockSource { return &MockSource{} }

func (s *MockSource) Platform() models.Platform { return models.PlatformMock }

// Fetch ignores the query and returns the fixture posts.
func (s *MockSource) Fetch(_ context.Context, _ string, maxItems int) ([]normalize.RawItem, error) {
	items := []normalize.RawItem{
		{
			ID:         "001",
			UserHandle: "@frustrated_user",
			Text:       "Your app crashes every time I try to login. This is the third time this week!",
			URL:        "https://twitter.com/status/mock_001",
		},
		{
			ID:         "002",
			UserHandle: "u/happy_customer",
			Text:       "Just discovered this tool and I'm loving it! The dark mode is amazing 🔥",
			URL:        "https://reddit.com/r/saas/mock_002",
		},
		{
			ID:         "003",
			UserHandle: "@sarcastic_dev",
			Text:       "Oh great, another 'update' that broke everything. Quality work as always 👏",
			URL:        "https://twitter.com/status/mock_003",
		},
		{
			ID:         "004",
			UserHandle: "@feature_requester",
			Text:       "Would be great if you could add CSV export. That would make my life so much easier!",
			URL:        "https://twitter.com/status/mock_004",
		},
		{
			ID:         "005",
			UserHandle: "u/confused_newbie",
			Text:       "How do I reset my password? Can't find the option anywhere in the settings.",
			URL:        "https://reddit.com/r/support/mock_005",
		},
	}
	if maxItems > 0 && maxItems < len(items) {
		items = items[:maxItems]
	}
	return items, nil
}
