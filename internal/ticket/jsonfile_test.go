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

package ticket

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
)

func newTicket(id, owner string) models.Ticket {
	return models.Ticket{
		ID:          id,
		Summary:     "summary for " + id,
		Status:      models.StatusOpen,
		Type:        models.TicketBug,
		Urgency:     models.UrgencyLow,
		LinkedUsers: []string{"@reporter"},
		CreatedAt:   time.Now().UTC(),
		Owner:       owner,
	}
}

func TestJSONStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets_db.json")
	ctx := context.Background()

	store, err := NewJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Create(ctx, newTicket("TICKET-AAAA1111", "u1@example.com")); err != nil {
		t.Fatal(err)
	}
	if err := store.LinkUser(ctx, "TICKET-AAAA1111", "@second"); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkDone(ctx, "TICKET-AAAA1111"); err != nil {
		t.Fatal(err)
	}

	// Reopen from disk: state must survive the round trip.
	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}

	got, err := reopened.Get(ctx, "TICKET-AAAA1111")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("ticket lost on reload")
	}
	if got.Status != models.StatusDone {
		t.Errorf("status = %q, want DONE", got.Status)
	}
	if len(got.LinkedUsers) != 2 || got.LinkedUsers[1] != "@second" {
		t.Errorf("linked_users = %v", got.LinkedUsers)
	}
}

func TestJSONStore_GetMissingReturnsNil(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "tickets_db.json"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(context.Background(), "TICKET-NOPE")
	if err != nil {
		t.Fatalf("missing ticket should not error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestJSONStore_ListByOwner(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "tickets_db.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.Create(ctx, newTicket("TICKET-00000001", "u1@example.com"))
	store.Create(ctx, newTicket("TICKET-00000002", "u2@example.com"))
	store.Create(ctx, newTicket("TICKET-00000003", "u1@example.com"))

	mine, err := store.ListByOwner(ctx, "u1@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 2 {
		t.Fatalf("got %d tickets, want 2", len(mine))
	}
	// Creation order is preserved.
	if mine[0].ID != "TICKET-00000001" || mine[1].ID != "TICKET-00000003" {
		t.Errorf("order = %s, %s", mine[0].ID, mine[1].ID)
	}

	all, _ := store.ListByOwner(ctx, "")
	if len(all) != 3 {
		t.Errorf("empty owner should list all, got %d", len(all))
	}
}

func TestJSONStore_LinkUserIdempotent(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "tickets_db.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.Create(ctx, newTicket("TICKET-AAAA0000", "u1@example.com"))
	for i := 0; i < 3; i++ {
		if err := store.LinkUser(ctx, "TICKET-AAAA0000", "@reporter"); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := store.Get(ctx, "TICKET-AAAA0000")
	if len(got.LinkedUsers) != 1 {
		t.Errorf("linked_users = %v, want single entry", got.LinkedUsers)
	}
}

func TestJSONStore_DuplicateCreateFails(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "tickets_db.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Create(ctx, newTicket("TICKET-DUP00000", "u1")); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, newTicket("TICKET-DUP00000", "u1")); err == nil {
		t.Error("duplicate create should fail")
	}
}

func TestJSONStore_ResolvedUnnotified(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "tickets_db.json"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	store.Create(ctx, newTicket("TICKET-00000001", "u1"))
	store.Create(ctx, newTicket("TICKET-00000002", "u1"))
	store.Create(ctx, newTicket("TICKET-00000003", "u1"))

	store.MarkDone(ctx, "TICKET-00000001")
	store.MarkDone(ctx, "TICKET-00000002")
	store.MarkNotified(ctx, "TICKET-00000002")

	pending, err := store.ListResolvedUnnotified(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != "TICKET-00000001" {
		t.Errorf("pending = %+v, want only TICKET-00000001", pending)
	}
}
