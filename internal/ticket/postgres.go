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
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopcloser/ingestion/internal/models"
)

// PostgresStore persists tickets in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a ticket store backed by the given pool.
// It ensures the tickets table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ticket schema: %w", err)
	}
	slog.Info("ticket store initialised", "backend", "postgres")
	return s, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tickets (
			id           TEXT PRIMARY KEY,
			source_id    TEXT DEFAULT '',
			summary      TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'OPEN',
			type         TEXT NOT NULL,
			urgency      TEXT NOT NULL DEFAULT 'low',
			linked_users TEXT[] NOT NULL DEFAULT '{}',
			created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			notified     BOOLEAN NOT NULL DEFAULT FALSE,
			owner        TEXT DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner);
		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
	`)
	return err
}

// Create persists a new ticket.
func (s *PostgresStore) Create(ctx context.Context, t models.Ticket) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO tickets
			(id, source_id, summary, status, type, urgency, linked_users, created_at, notified, owner)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, t.ID, t.SourceID, t.Summary, t.Status, t.Type, t.Urgency, t.LinkedUsers, t.CreatedAt, t.Notified, t.Owner)
	return err
}

// Get returns a ticket by ID, or nil if it does not exist.
func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Ticket, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_id, summary, status, type, urgency, linked_users, created_at, notified, owner
		FROM tickets
		WHERE id = $1
	`, id)
	return scanTicket(row)
}

// ListByOwner returns all tickets for an owner in creation order.
// An empty owner returns every ticket.
func (s *PostgresStore) ListByOwner(ctx context.Context, owner string) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, summary, status, type, urgency, linked_users, created_at, notified, owner
		FROM tickets
		WHERE ($1 = '' OR owner = $1)
		ORDER BY created_at
	`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// LinkUser appends a handle to linked_users only when it is absent.
func (s *PostgresStore) LinkUser(ctx context.Context, id, handle string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tickets
		SET linked_users = array_append(linked_users, $2)
		WHERE id = $1 AND NOT ($2 = ANY(linked_users))
	`, id, handle)
	return err
}

// MarkDone transitions a ticket to DONE.
func (s *PostgresStore) MarkDone(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tickets SET status = 'DONE' WHERE id = $1
	`, id)
	return err
}

// MarkNotified flips the notified flag.
func (s *PostgresStore) MarkNotified(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE tickets SET notified = TRUE WHERE id = $1
	`, id)
	return err
}

// ListResolvedUnnotified returns DONE tickets awaiting notification.
func (s *PostgresStore) ListResolvedUnnotified(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source_id, summary, status, type, urgency, linked_users, created_at, notified, owner
		FROM tickets
		WHERE status = 'DONE' AND notified = FALSE
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTickets(rows)
}

// scanTicket scans a single row into a Ticket.
func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.SourceID, &t.Summary, &t.Status, &t.Type,
		&t.Urgency, &t.LinkedUsers, &t.CreatedAt, &t.Notified, &t.Owner,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// collectTickets scans multiple rows into a slice of Tickets.
func collectTickets(rows pgx.Rows) ([]models.Ticket, error) {
	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := rows.Scan(
			&t.ID, &t.SourceID, &t.Summary, &t.Status, &t.Type,
			&t.Urgency, &t.LinkedUsers, &t.CreatedAt, &t.Notified, &t.Owner,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
