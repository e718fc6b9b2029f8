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

	"github.com/loopcloser/ingestion/internal/models"
)

// fallbackConfidence signals "heuristic, not model".
const fallbackConfidence = 0.5

var (
	negativeWords = []string{"broken", "bug", "error", "fail", "hate", "terrible", "worst", "bad", "problem", "issue", "crash"}
	positiveWords = []string{"love", "great", "awesome", "amazing", "thank", "perfect", "best", "excellent"}

	questionMarkers = []string{"?", "how", "what", "why", "where", "when", "can you"}
	featureMarkers  = []string{"feature", "add", "would be nice", "suggestion", "could you"}
	bugMarkers      = []string{"bug", "broken", "error", "crash", "fail"}
	urgencyMarkers  = []string{"urgent", "asap", "immediately", "critical", "emergency"}
)

// Fallback is the deterministic keyword-scoring heuristic used when the
// model is unavailable. Majority word count picks the sentiment (tie is
// neutral); marker presence picks intent and urgency. It cannot judge
// product relevance, so posts are never marked IRRELEVANT here.
func Fallback(content string) models.Classification {
	lower := strings.ToLower(content)

	negCount := countAny(lower, negativeWords)
	posCount := countAny(lower, positiveWords)

	sentiment := models.SentimentNeutral
	if negCount > posCount {
		sentiment = models.SentimentNegative
	} else if posCount > negCount {
		sentiment = models.SentimentPositive
	}

	var intent, ticketType string
	switch {
	case containsAny(lower, questionMarkers):
		intent, ticketType = models.IntentQuestion, models.TicketQuestion
	case containsAny(lower, featureMarkers):
		intent, ticketType = models.IntentFeatureRequest, models.TicketFeature
	case containsAny(lower, bugMarkers):
		intent, ticketType = models.IntentComplaint, models.TicketBug
	default:
		intent, ticketType = models.IntentGeneral, models.TicketQuestion
	}

	urgency := models.UrgencyLow
	if containsAny(lower, urgencyMarkers) {
		urgency = models.UrgencyHigh
	} else if sentiment == models.SentimentNegative {
		urgency = models.UrgencyMedium
	}

	summary := content
	if len(summary) > 100 {
		summary = summary[:100] + "..."
	}

	return models.Classification{
		Sentiment:         sentiment,
		Sarcasm:           false,
		Intent:            intent,
		Urgency:           urgency,
		TicketType:        ticketType,
		Summary:           summary,
		SuggestedResponse: "Thank you for reaching out! We've received your message and will get back to you shortly.",
		Confidence:        fallbackConfidence,
	}
}

// TicketTypeFor derives a ticket type from free text using the same
// marker lists as the fallback. Used by the matcher when a summary
// arrives without a classified ticket type.
func TicketTypeFor(text string) string {
	lower := strings.ToLower(text)
	if containsAny(lower, bugMarkers) {
		return models.TicketBug
	}
	if containsAny(lower, featureMarkers) {
		return models.TicketFeature
	}
	return models.TicketQuestion
}

func countAny(s string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(s, w) {
			n++
		}
	}
	return n
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
