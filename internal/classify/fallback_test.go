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

package classify

import (
	"strings"
	"testing"

	"github.com/loopcloser/ingestion/internal/models"
)

func TestFallback_UrgentBugReport(t *testing.T) {
	cls := Fallback("Your app crashes every time I try to login. Fix this ASAP!")

	if cls.Sentiment != models.SentimentNegative {
		t.Errorf("sentiment = %q, want negative", cls.Sentiment)
	}
	if cls.Intent != models.IntentComplaint {
		t.Errorf("intent = %q, want complaint", cls.Intent)
	}
	if cls.TicketType != models.TicketBug {
		t.Errorf("ticket_type = %q, want BUG", cls.TicketType)
	}
	if cls.Urgency != models.UrgencyHigh {
		t.Errorf("urgency = %q, want high", cls.Urgency)
	}
	if cls.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", cls.Confidence)
	}
}

func TestFallback_Deterministic(t *testing.T) {
	content := "Would be nice if you could add CSV export"
	first := Fallback(content)
	for i := 0; i < 5; i++ {
		if got := Fallback(content); got != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, got, first)
		}
	}
}

func TestFallback_Cases(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		sentiment  string
		intent     string
		ticketType string
		urgency    string
	}{
		{
			name:       "praise",
			content:    "I love this tool, it is awesome and amazing",
			sentiment:  models.SentimentPositive,
			intent:     models.IntentGeneral,
			ticketType: models.TicketQuestion,
			urgency:    models.UrgencyLow,
		},
		{
			name:       "question wins over bug wording",
			content:    "Why does the app crash on startup?",
			sentiment:  models.SentimentNegative,
			intent:     models.IntentQuestion,
			ticketType: models.TicketQuestion,
			urgency:    models.UrgencyMedium,
		},
		{
			name:       "feature request",
			content:    "Suggestion: please support dark mode, would be nice",
			sentiment:  models.SentimentNeutral,
			intent:     models.IntentFeatureRequest,
			ticketType: models.TicketFeature,
			urgency:    models.UrgencyLow,
		},
		{
			name:       "neutral tie",
			content:    "just installed it yesterday",
			sentiment:  models.SentimentNeutral,
			intent:     models.IntentGeneral,
			ticketType: models.TicketQuestion,
			urgency:    models.UrgencyLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := Fallback(tt.content)
			if cls.Sentiment != tt.sentiment {
				t.Errorf("sentiment = %q, want %q", cls.Sentiment, tt.sentiment)
			}
			if cls.Intent != tt.intent {
				t.Errorf("intent = %q, want %q", cls.Intent, tt.intent)
			}
			if cls.TicketType != tt.ticketType {
				t.Errorf("ticket_type = %q, want %q", cls.TicketType, tt.ticketType)
			}
			if cls.Urgency != tt.urgency {
				t.Errorf("urgency = %q, want %q", cls.Urgency, tt.urgency)
			}
			if cls.Sarcasm {
				t.Error("fallback should never flag sarcasm")
			}
		})
	}
}

func TestFallback_TruncatesLongSummary(t *testing.T) {
	content := strings.Repeat("x", 150)
	cls := Fallback(content)

	if len(cls.Summary) != 103 {
		t.Errorf("summary length = %d, want 103", len(cls.Summary))
	}
	if !strings.HasSuffix(cls.Summary, "...") {
		t.Errorf("summary %q should end with ellipsis", cls.Summary)
	}
}

func TestTicketTypeFor(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"the export keeps failing with an error", models.TicketBug},
		{"please add a feature for bulk delete", models.TicketFeature},
		{"how do I reset my password", models.TicketQuestion},
		{"", models.TicketQuestion},
	}
	for _, tt := range tests {
		if got := TicketTypeFor(tt.text); got != tt.want {
			t.Errorf("TicketTypeFor(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestCleanJSON(t *testing.T) {
	raw := "```json\n{\"sentiment\": \"neutral\"}\n```"
	if got := cleanJSON(raw); got != `{"sentiment": "neutral"}` {
		t.Errorf("cleanJSON = %q", got)
	}

	plain := `{"a": 1}`
	if got := cleanJSON(plain); got != plain {
		t.Errorf("cleanJSON altered plain JSON: %q", got)
	}
}
