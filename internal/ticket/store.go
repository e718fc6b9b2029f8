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

// Package ticket provides durable storage for support tickets with two
// interchangeable backends: Postgres and a flat JSON document file. The
// matcher and orchestrator depend only on the Store interface.
package ticket

import (
	"context"

	"github.com/loopcloser/ingestion/internal/models"
)

// Store is the persistence contract for tickets, scoped by owner.
// Implementations must make Create and LinkUser safe for the pipeline's
// single-writer-per-owner model; LinkUser is idempotent (linking an
// already-linked handle is a no-op, not an error).
type Store interface {
	// Create persists a new ticket.
	Create(ctx context.Context, t models.Ticket) error

	// Get returns a ticket by ID, or nil if it does not exist.
	Get(ctx context.Context, id string) (*models.Ticket, error)

	// ListByOwner returns all tickets for an owner in creation order.
	// An empty owner returns every ticket (ownerless/legacy mode).
	ListByOwner(ctx context.Context, owner string) ([]models.Ticket, error)

	// LinkUser appends a handle to a ticket's linked users if absent.
	LinkUser(ctx context.Context, id, handle string) error

	// MarkDone transitions a ticket OPEN → DONE.
	MarkDone(ctx context.Context, id string) error

	// MarkNotified flips the one-way notified flag.
	MarkNotified(ctx context.Context, id string) error

	// ListResolvedUnnotified returns DONE tickets whose resolution has
	// not yet been communicated back to the originating users.
	ListResolvedUnnotified(ctx context.Context) ([]models.Ticket, error)
}
