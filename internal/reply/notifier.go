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

package reply

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/ticket"
)

// TaskPublisher queues a reply task for the posting worker.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Notifier closes the loop: when a ticket moves to DONE it tells every
// linked user their issue is resolved, then marks the ticket notified
// so the update goes out at most once.
type Notifier struct {
	store ticket.Store
	pub   TaskPublisher
}

// NewNotifier creates a resolution notifier.
func NewNotifier(store ticket.Store, pub TaskPublisher) *Notifier {
	return &Notifier{store: store, pub: pub}
}

// NotifyResolved queues a reply for each linked user of every resolved,
// not-yet-notified ticket. The ticket is marked notified only after all
// its replies queued; a partial failure retries the whole ticket next
// run, and the posting worker tolerates the duplicate.
func (n *Notifier) NotifyResolved(ctx context.Context) (int, error) {
	tickets, err := n.store.ListResolvedUnnotified(ctx)
	if err != nil {
		return 0, fmt.Errorf("list resolved tickets: %w", err)
	}

	notified := 0
	for i := range tickets {
		t := &tickets[i]
		if err := n.notifyOne(ctx, t); err != nil {
			slog.Error("resolution notify failed", "ticket_id", t.ID, "error", err)
			continue
		}
		notified++
	}
	return notified, nil
}

func (n *Notifier) notifyOne(ctx context.Context, t *models.Ticket) error {
	msg := fmt.Sprintf("Good news! The issue you reported (%s) has been resolved. Thanks for your patience.", t.Summary)

	for _, user := range t.LinkedUsers {
		task := &Task{UserHandle: user, TicketID: t.ID, Message: msg}
		if err := n.pub.Publish(ctx, task); err != nil {
			return fmt.Errorf("queue reply for %s: %w", user, err)
		}
	}

	if err := n.store.MarkNotified(ctx, t.ID); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}

	slog.Info("resolution replies queued", "ticket_id", t.ID, "users", len(t.LinkedUsers))
	return nil
}
