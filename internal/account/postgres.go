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

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopcloser/ingestion/internal/models"
)

// PostgresStore persists accounts in Postgres. Config, OAuth, and quota
// sub-objects live in JSONB columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates an account store backed by the given pool.
// It ensures the accounts table exists on creation.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure account schema: %w", err)
	}
	slog.Info("account store initialised", "backend", "postgres")
	return s, nil
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			email               TEXT PRIMARY KEY,
			name                TEXT DEFAULT '',
			plan                TEXT NOT NULL DEFAULT 'Free',
			joined_at           DOUBLE PRECISION DEFAULT 0,
			config              JSONB NOT NULL DEFAULT '{}',
			connected_platforms TEXT[] NOT NULL DEFAULT '{}',
			twitter_oauth       JSONB,
			twitter_quota       JSONB NOT NULL DEFAULT '{}'
		);
	`)
	return err
}

// List returns all accounts ordered by email.
func (s *PostgresStore) List(ctx context.Context) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT email, name, plan, joined_at, config, connected_platforms, twitter_oauth, twitter_quota
		FROM accounts
		ORDER BY email
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(
			&a.Email, &a.Name, &a.Plan, &a.JoinedAt,
			&a.Config, &a.ConnectedPlatforms, &a.TwitterOAuth, &a.TwitterQuota,
		); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Get returns an account, or nil if it does not exist.
func (s *PostgresStore) Get(ctx context.Context, email string) (*models.Account, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT email, name, plan, joined_at, config, connected_platforms, twitter_oauth, twitter_quota
		FROM accounts
		WHERE email = $1
	`, email)

	var a models.Account
	err := row.Scan(
		&a.Email, &a.Name, &a.Plan, &a.JoinedAt,
		&a.Config, &a.ConnectedPlatforms, &a.TwitterOAuth, &a.TwitterQuota,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Upsert creates or replaces an account record keyed on email.
func (s *PostgresStore) Upsert(ctx context.Context, a models.Account) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts
			(email, name, plan, joined_at, config, connected_platforms, twitter_oauth, twitter_quota)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO UPDATE SET
			name                = EXCLUDED.name,
			plan                = EXCLUDED.plan,
			config              = EXCLUDED.config,
			connected_platforms = EXCLUDED.connected_platforms,
			twitter_oauth       = EXCLUDED.twitter_oauth,
			twitter_quota       = EXCLUDED.twitter_quota
	`, a.Email, a.Name, a.Plan, a.JoinedAt, a.Config, a.ConnectedPlatforms, a.TwitterOAuth, a.TwitterQuota)
	return err
}

// SaveQuota writes back updated quota counters for an account.
func (s *PostgresStore) SaveQuota(ctx context.Context, email string, q models.QuotaState) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET twitter_quota = $1 WHERE email = $2
	`, q, email)
	return err
}

// SetPlan changes an account's plan tier.
func (s *PostgresStore) SetPlan(ctx context.Context, email, plan string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE accounts SET plan = $1 WHERE email = $2
	`, plan, email)
	return err
}
