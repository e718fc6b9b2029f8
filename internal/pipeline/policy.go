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

package pipeline

import "github.com/loopcloser/ingestion/internal/models"

// SkipReason decides whether a classified post is ticket-worthy. It
// returns a non-empty reason when the post must be archived but never
// reach the matcher. Both pipeline variants consult this single
// function so the skip rules cannot drift between them.
func SkipReason(cls models.Classification) string {
	if cls.Sentiment == models.SentimentPositive && cls.Intent == models.IntentPraise {
		return "positive praise"
	}
	if cls.TicketType == models.TicketIrrelevant {
		return "irrelevant to product"
	}
	return ""
}
