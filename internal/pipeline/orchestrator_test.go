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

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/loopcloser/ingestion/internal/classify"
	"github.com/loopcloser/ingestion/internal/match"
	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/sources"
)

// --- In-memory stores ---

type memTickets struct {
	tickets []models.Ticket
}

func (m *memTickets) Create(_ context.Context, t models.Ticket) error {
	m.tickets = append(m.tickets, t)
	return nil
}

func (m *memTickets) Get(_ context.Context, id string) (*models.Ticket, error) {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			return &m.tickets[i], nil
		}
	}
	return nil, nil
}

func (m *memTickets) ListByOwner(_ context.Context, owner string) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range m.tickets {
		if owner == "" || t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTickets) LinkUser(_ context.Context, id, handle string) error {
	for i := range m.tickets {
		if m.tickets[i].ID != id {
			continue
		}
		for _, u := range m.tickets[i].LinkedUsers {
			if u == handle {
				return nil
			}
		}
		m.tickets[i].LinkedUsers = append(m.tickets[i].LinkedUsers, handle)
	}
	return nil
}

func (m *memTickets) MarkDone(_ context.Context, id string) error {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			m.tickets[i].Status = models.StatusDone
		}
	}
	return nil
}

func (m *memTickets) MarkNotified(_ context.Context, id string) error {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			m.tickets[i].Notified = true
		}
	}
	return nil
}

func (m *memTickets) ListResolvedUnnotified(_ context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range m.tickets {
		if t.Status == models.StatusDone && !t.Notified {
			out = append(out, t)
		}
	}
	return out, nil
}

type memAccounts struct {
	accounts []models.Account
	saved    map[string]models.QuotaState
}

func newMemAccounts(accts ...models.Account) *memAccounts {
	return &memAccounts{accounts: accts, saved: make(map[string]models.QuotaState)}
}

func (m *memAccounts) List(_ context.Context) ([]models.Account, error) {
	out := make([]models.Account, len(m.accounts))
	copy(out, m.accounts)
	return out, nil
}

func (m *memAccounts) Get(_ context.Context, email string) (*models.Account, error) {
	for i := range m.accounts {
		if m.accounts[i].Email == email {
			return &m.accounts[i], nil
		}
	}
	return nil, nil
}

func (m *memAccounts) Upsert(_ context.Context, a models.Account) error {
	for i := range m.accounts {
		if m.accounts[i].Email == a.Email {
			m.accounts[i] = a
			return nil
		}
	}
	m.accounts = append(m.accounts, a)
	return nil
}

func (m *memAccounts) SaveQuota(_ context.Context, email string, q models.QuotaState) error {
	m.saved[email] = q
	return nil
}

func (m *memAccounts) SetPlan(_ context.Context, email, plan string) error {
	for i := range m.accounts {
		if m.accounts[i].Email == email {
			m.accounts[i].Plan = plan
		}
	}
	return nil
}

type memIndex struct {
	posts   []models.AnalyzedPost
	ids     map[string]bool
	lastRun time.Time
}

func newMemIndex() *memIndex {
	return &memIndex{ids: make(map[string]bool)}
}

func (m *memIndex) Contains(_ context.Context, id string) (bool, error) {
	return m.ids[id], nil
}

func (m *memIndex) Record(_ context.Context, posts []models.AnalyzedPost) error {
	for _, p := range posts {
		if m.ids[p.ID] {
			continue
		}
		m.posts = append(m.posts, p)
		m.ids[p.ID] = true
	}
	m.lastRun = time.Now()
	return nil
}

func (m *memIndex) LastRun(_ context.Context) (time.Time, error) {
	return m.lastRun, nil
}

// stubClassifier marks "loving" posts as praise and falls back to the
// keyword heuristic for everything else. No network.
type stubClassifier struct {
	calls int
}

func (s *stubClassifier) Classify(_ context.Context, post models.Post, _ classify.AccountContext) models.Classification {
	s.calls++
	if strings.Contains(post.Content, "loving") {
		return models.Classification{
			Sentiment:  models.SentimentPositive,
			Intent:     models.IntentPraise,
			Urgency:    models.UrgencyLow,
			TicketType: models.TicketQuestion,
			Summary:    post.Content,
			Confidence: 0.9,
		}
	}
	return classify.Fallback(post.Content)
}

func newTestOrchestrator(accts *memAccounts, index *memIndex, tickets *memTickets, twitterURL string) (*Orchestrator, *stubClassifier) {
	cls := &stubClassifier{}
	orch := New(Config{
		MaxItemsPerSource: 5,
		TwitterBaseURL:    twitterURL,
	}, accts, index, nil, cls, match.New(tickets), nil)
	return orch, cls
}

func TestRunQuery_MockSource(t *testing.T) {
	tickets := &memTickets{}
	index := newMemIndex()
	orch, _ := newTestOrchestrator(newMemAccounts(), index, tickets, "")

	analyzed, err := orch.RunQuery(context.Background(), sources.NewMockSource(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(analyzed) != 5 {
		t.Fatalf("analyzed %d posts, want 5", len(analyzed))
	}

	// The praise post is archived but never ticketed.
	for _, ap := range analyzed {
		if strings.Contains(ap.Content, "loving") {
			if ap.TicketID != "" {
				t.Errorf("praise post got ticket %s", ap.TicketID)
			}
		} else if ap.TicketID == "" {
			t.Errorf("post %s not routed to a ticket", ap.ID)
		}
	}

	if len(tickets.tickets) != 4 {
		t.Errorf("created %d tickets, want 4", len(tickets.tickets))
	}
}

func TestRunQuery_Idempotent(t *testing.T) {
	tickets := &memTickets{}
	index := newMemIndex()
	orch, cls := newTestOrchestrator(newMemAccounts(), index, tickets, "")

	ctx := context.Background()
	if _, err := orch.RunQuery(ctx, sources.NewMockSource(), "", 0); err != nil {
		t.Fatal(err)
	}
	ticketsAfterFirst := len(tickets.tickets)
	callsAfterFirst := cls.calls

	// Identical source output, unchanged index: nothing new happens.
	analyzed, err := orch.RunQuery(ctx, sources.NewMockSource(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(analyzed) != 0 {
		t.Errorf("re-run analyzed %d posts, want 0", len(analyzed))
	}
	if len(tickets.tickets) != ticketsAfterFirst {
		t.Errorf("re-run created tickets: %d -> %d", ticketsAfterFirst, len(tickets.tickets))
	}
	if cls.calls != callsAfterFirst {
		t.Errorf("re-run called the classifier %d times", cls.calls-callsAfterFirst)
	}
	if len(index.posts) != 5 {
		t.Errorf("index holds %d posts, want 5", len(index.posts))
	}
}

// tweetSearchServer fakes the recent-search endpoint with a fixed
// two-tweet result.
func tweetSearchServer(t *testing.T, requests *int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/tweets/search/recent") {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		*requests++

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "101", "text": "the app is broken, error on every login", "author_id": "u1"},
				{"id": "102", "text": "is there a way to add a second workspace?", "author_id": "u2"},
			},
			"includes": map[string]any{
				"users": []map[string]any{
					{"id": "u1", "username": "angry_dev"},
					{"id": "u2", "username": "curious_pm"},
				},
			},
		})
	}))
}

func TestRun_ProAccountConsumesQuota(t *testing.T) {
	var requests int
	server := tweetSearchServer(t, &requests)
	defer server.Close()

	accts := newMemAccounts(models.Account{
		Email:              "pro@example.com",
		Plan:               models.PlanPro,
		ConnectedPlatforms: []string{"twitter"},
		TwitterOAuth:       &models.TwitterOAuth{AccessToken: "tok"},
		Config:             models.MonitorConfig{TwitterKeywords: "myapp crash"},
	})
	tickets := &memTickets{}
	index := newMemIndex()
	orch, _ := newTestOrchestrator(accts, index, tickets, server.URL)

	if err := orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if requests != 1 {
		t.Errorf("made %d search requests, want 1", requests)
	}

	saved, ok := accts.saved["pro@example.com"]
	if !ok {
		t.Fatal("quota was never persisted")
	}
	if saved.SearchesToday != 1 {
		t.Errorf("searches_today = %d, want 1", saved.SearchesToday)
	}
	if saved.PostsToday != 2 {
		t.Errorf("posts_today = %d, want 2", saved.PostsToday)
	}
	if saved.LastReset != time.Now().Format("2006-01-02") {
		t.Errorf("last_reset = %q", saved.LastReset)
	}

	if len(index.posts) != 2 {
		t.Errorf("archived %d posts, want 2", len(index.posts))
	}
	for _, ap := range index.posts {
		if ap.ForAccount != "pro@example.com" {
			t.Errorf("post %s attributed to %q", ap.ID, ap.ForAccount)
		}
		if !strings.HasPrefix(ap.ID, "twitter_") {
			t.Errorf("post id %q missing platform prefix", ap.ID)
		}
	}

	// Both tweets are ticket-worthy under the fallback heuristic.
	if len(tickets.tickets) != 2 {
		t.Errorf("created %d tickets, want 2", len(tickets.tickets))
	}
	for _, tk := range tickets.tickets {
		if tk.Owner != "pro@example.com" {
			t.Errorf("ticket %s owned by %q", tk.ID, tk.Owner)
		}
	}
}

func TestRun_FreeAccountNeverFetches(t *testing.T) {
	var requests int
	server := tweetSearchServer(t, &requests)
	defer server.Close()

	accts := newMemAccounts(models.Account{
		Email:              "free@example.com",
		Plan:               models.PlanFree,
		ConnectedPlatforms: []string{"twitter"},
		TwitterOAuth:       &models.TwitterOAuth{AccessToken: "tok"},
		Config:             models.MonitorConfig{TwitterKeywords: "myapp"},
	})
	tickets := &memTickets{}
	index := newMemIndex()
	orch, cls := newTestOrchestrator(accts, index, tickets, server.URL)

	if err := orch.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if requests != 0 {
		t.Errorf("free account triggered %d searches", requests)
	}
	if cls.calls != 0 {
		t.Errorf("free account triggered %d classifications", cls.calls)
	}
	if len(tickets.tickets) != 0 {
		t.Errorf("free account created tickets: %v", tickets.tickets)
	}
}

func TestSkipReason(t *testing.T) {
	praise := models.Classification{Sentiment: models.SentimentPositive, Intent: models.IntentPraise}
	if SkipReason(praise) == "" {
		t.Error("positive praise should be skipped")
	}

	irrelevant := models.Classification{Sentiment: models.SentimentNeutral, TicketType: models.TicketIrrelevant}
	if SkipReason(irrelevant) == "" {
		t.Error("IRRELEVANT should be skipped")
	}

	// Negative praise (sarcasm) is still ticket-worthy.
	sarcastic := models.Classification{Sentiment: models.SentimentNegative, Intent: models.IntentPraise, TicketType: models.TicketBug}
	if reason := SkipReason(sarcastic); reason != "" {
		t.Errorf("sarcastic praise skipped: %q", reason)
	}

	complaint := models.Classification{Sentiment: models.SentimentNegative, Intent: models.IntentComplaint, TicketType: models.TicketBug}
	if reason := SkipReason(complaint); reason != "" {
		t.Errorf("complaint skipped: %q", reason)
	}
}
