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

// Package models defines the data structures shared across the ingestion
// and ticketing pipeline.
package models

import "time"

// Platform identifies the social network a post was surfaced from.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformReddit    Platform = "reddit"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformMock      Platform = "mock"
)

// Sentiment values produced by the classifier.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Intent values produced by the classifier.
const (
	IntentComplaint      = "complaint"
	IntentQuestion       = "question"
	IntentPraise         = "praise"
	IntentFeatureRequest = "feature_request"
	IntentGeneral        = "general"
)

// Urgency values produced by the classifier.
const (
	UrgencyHigh   = "high"
	UrgencyMedium = "medium"
	UrgencyLow    = "low"
)

// Ticket types. TicketIrrelevant marks posts that are off-topic for the
// account's configured product; they never become tickets.
const (
	TicketBug        = "BUG"
	TicketFeature    = "FEATURE"
	TicketQuestion   = "QUESTION"
	TicketIrrelevant = "IRRELEVANT"
)

// Ticket statuses.
const (
	StatusOpen = "OPEN"
	StatusDone = "DONE"
)

// Plan tiers.
const (
	PlanFree  = "Free"
	PlanPro   = "Pro"
	PlanTeams = "Teams"
)

// Post is one normalized social-media item. The ID is source-prefixed
// (rd_, ig_, fb_, twitter_) and stable across runs for the same
// underlying item — it is the idempotency key for the processed filter.
type Post struct {
	ID         string   `json:"id"`
	Platform   Platform `json:"platform"`
	UserHandle string   `json:"user_handle"`
	Content    string   `json:"content"`
	URL        string   `json:"url,omitempty"`
	Timestamp  float64  `json:"timestamp"`
}

// Classification is the structured analysis of a single post. Produced
// once per post, never mutated.
type Classification struct {
	Sentiment         string  `json:"sentiment"`
	Sarcasm           bool    `json:"sarcasm"`
	Intent            string  `json:"intent"`
	Urgency           string  `json:"urgency"`
	TicketType        string  `json:"ticket_type"`
	Summary           string  `json:"summary"`
	SuggestedResponse string  `json:"suggested_response"`
	Confidence        float64 `json:"confidence"`
}

// AnalyzedPost is a post together with its classification and the ticket
// it was routed to (empty for skipped posts). This is what the processed
// index archives.
type AnalyzedPost struct {
	Post
	Analysis    Classification `json:"analysis"`
	TicketID    string         `json:"ticket_id,omitempty"`
	ForAccount  string         `json:"for_account,omitempty"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// Ticket is a durable unit of tracked user feedback. Tickets are never
// deleted; status moves OPEN → DONE and `notified` flips false → true
// exactly once, after the resolution reply has been dispatched.
type Ticket struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id,omitempty"`
	Summary     string    `json:"summary"`
	Status      string    `json:"status"`
	Type        string    `json:"type"`
	Urgency     string    `json:"urgency"`
	LinkedUsers []string  `json:"linked_users"`
	CreatedAt   time.Time `json:"created_at"`
	Notified    bool      `json:"notified"`
	Owner       string    `json:"owner,omitempty"`
}

// QuotaState tracks per-platform daily consumption for one account.
// Counters reset when LastReset is not the current local date.
type QuotaState struct {
	SearchesToday int    `json:"searches_today"`
	PostsToday    int    `json:"posts_today"`
	SearchesLimit int    `json:"searches_limit"`
	PostsLimit    int    `json:"posts_limit"`
	LastReset     string `json:"last_reset"` // YYYY-MM-DD
}

// MonitorConfig holds the per-account social-listening configuration.
// Comma-separated fields mirror how the settings UI stores them.
type MonitorConfig struct {
	Keywords        string `json:"keywords"`
	Subreddits      string `json:"subreddits"`
	TwitterKeywords string `json:"twitter_keywords"`
	ProductName     string `json:"product_name"`
	BrandVoice      string `json:"brand_voice"`
}

// TwitterOAuth holds the per-account Twitter token issued by the web
// app's OAuth flow. The pipeline only reads the access token.
type TwitterOAuth struct {
	AccessToken string `json:"access_token"`
}

// Account is a tenant: its plan, connections, listening config, and
// quota state. The pipeline reads config fields and writes quota fields.
type Account struct {
	Email              string        `json:"email"`
	Name               string        `json:"name,omitempty"`
	Plan               string        `json:"plan"`
	JoinedAt           float64       `json:"joined_at,omitempty"`
	ConnectedPlatforms []string      `json:"connected_platforms"`
	Config             MonitorConfig `json:"config"`
	TwitterOAuth       *TwitterOAuth `json:"twitter_oauth,omitempty"`
	TwitterQuota       QuotaState    `json:"twitter_quota"`
}

// Connected reports whether the account has linked the given platform.
func (a *Account) Connected(platform Platform) bool {
	for _, p := range a.ConnectedPlatforms {
		if p == string(platform) {
			return true
		}
	}
	return false
}

// Transaction statuses.
const (
	TxPending   = "PENDING"
	TxCompleted = "COMPLETED"
	TxFailed    = "FAILED"
)

// Transaction is a payment order awaiting settlement. A COMPLETED
// transaction upgrades the account's plan.
type Transaction struct {
	TrackingID        string    `json:"tracking_id"`
	MerchantReference string    `json:"merchant_reference"`
	Email             string    `json:"email"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}
