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

// Package match decides, for each classified post, whether it belongs
// to an existing open ticket or should spawn a new one. Matching is
// scoped to the owning account: the scan never crosses owners.
package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loopcloser/ingestion/internal/classify"
	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/ticket"
)

// Threshold is the minimum summary similarity for linking a post to an
// existing ticket.
const Threshold = 0.6

// Candidate is one classified post's ticket-routing input.
type Candidate struct {
	Summary    string
	UserHandle string
	Owner      string // empty = ownerless/legacy mode, matches all tickets
	SourceID   string // originating platform post id, for reply threading
	TicketType string // from the classification; re-derived when absent
	Urgency    string
}

// Matcher links posts to tickets via summary similarity.
type Matcher struct {
	store ticket.Store
}

// New creates a matcher over the given ticket store.
func New(store ticket.Store) *Matcher {
	return &Matcher{store: store}
}

// MatchOrCreate scans the owner's open tickets for the best summary
// match. Above the threshold it links the candidate's handle to that
// ticket; otherwise it creates a new OPEN ticket. Ties keep the first
// best ticket in scan order (creation order), which is deterministic
// for a fixed store state. Returns the ticket id the post was routed to.
func (m *Matcher) MatchOrCreate(ctx context.Context, c Candidate) (string, error) {
	tickets, err := m.store.ListByOwner(ctx, c.Owner)
	if err != nil {
		return "", fmt.Errorf("list tickets for %q: %w", c.Owner, err)
	}

	var best *models.Ticket
	highest := 0.0
	for i := range tickets {
		if tickets[i].Status != models.StatusOpen {
			continue
		}
		ratio := Ratio(tickets[i].Summary, c.Summary)
		if ratio > Threshold && ratio > highest {
			highest = ratio
			best = &tickets[i]
		}
	}

	if best != nil {
		if err := m.store.LinkUser(ctx, best.ID, c.UserHandle); err != nil {
			return "", fmt.Errorf("link %s to %s: %w", c.UserHandle, best.ID, err)
		}
		slog.Info("linked post to existing ticket",
			"ticket_id", best.ID,
			"handle", c.UserHandle,
			"ratio", fmt.Sprintf("%.2f", highest),
		)
		return best.ID, nil
	}

	return m.create(ctx, c)
}

func (m *Matcher) create(ctx context.Context, c Candidate) (string, error) {
	ticketType := c.TicketType
	switch ticketType {
	case models.TicketBug, models.TicketFeature, models.TicketQuestion:
		// Classification already decided; keep it.
	default:
		ticketType = classify.TicketTypeFor(c.Summary)
	}

	urgency := c.Urgency
	if urgency == "" {
		urgency = models.UrgencyLow
	}

	t := models.Ticket{
		ID:          NewTicketID(),
		SourceID:    c.SourceID,
		Summary:     c.Summary,
		Status:      models.StatusOpen,
		Type:        ticketType,
		Urgency:     urgency,
		LinkedUsers: []string{c.UserHandle},
		CreatedAt:   time.Now().UTC(),
		Notified:    false,
		Owner:       c.Owner,
	}

	if err := m.store.Create(ctx, t); err != nil {
		return "", fmt.Errorf("create ticket: %w", err)
	}

	slog.Info("created ticket",
		"ticket_id", t.ID,
		"type", t.Type,
		"owner", t.Owner,
		"handle", c.UserHandle,
	)
	return t.ID, nil
}

// NewTicketID returns a fresh collision-free ticket identifier. UUIDs
// replace the old count-plus-jitter scheme, which could collide when
// runs raced.
func NewTicketID() string {
	return "TICKET-" + strings.ToUpper(uuid.NewString()[:8])
}
