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

package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopcloser/ingestion/internal/models"
)

// PostgresStore persists transactions in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a transaction store backed by the given
// pool. It ensures the transactions table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure transaction schema: %w", err)
	}
	slog.Info("transaction store initialised", "backend", "postgres")
	return s, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			tracking_id        TEXT PRIMARY KEY,
			merchant_reference TEXT NOT NULL,
			email              TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT 'PENDING',
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_email ON transactions(email);
	`)
	return err
}

// CreatePending inserts a new PENDING transaction.
func (s *PostgresStore) CreatePending(ctx context.Context, tx *models.Transaction) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (tracking_id, merchant_reference, email, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, tx.TrackingID, tx.MerchantReference, tx.Email, tx.Status, tx.CreatedAt)
	return err
}

// Get returns a transaction by tracking ID, or nil if unknown.
func (s *PostgresStore) Get(ctx context.Context, trackingID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.pool.QueryRow(ctx, `
		SELECT tracking_id, merchant_reference, email, status, created_at
		FROM transactions
		WHERE tracking_id = $1
	`, trackingID).Scan(&tx.TrackingID, &tx.MerchantReference, &tx.Email, &tx.Status, &tx.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// SetStatus updates the transaction status.
func (s *PostgresStore) SetStatus(ctx context.Context, trackingID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE transactions SET status = $2 WHERE tracking_id = $1
	`, trackingID, status)
	return err
}
