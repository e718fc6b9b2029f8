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

package processed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopcloser/ingestion/internal/models"
)

// PostgresIndex archives analyzed posts in Postgres.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresIndex creates the index, ensuring its tables exist.
func NewPostgresIndex(ctx context.Context, pool *pgxpool.Pool) (*PostgresIndex, error) {
	idx := &PostgresIndex{pool: pool}
	if err := idx.ensureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure processed schema: %w", err)
	}
	slog.Info("processed index initialised", "backend", "postgres")
	return idx, nil
}

var _ Index = (*PostgresIndex)(nil)

func (idx *PostgresIndex) ensureSchema(ctx context.Context) error {
	_, err := idx.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS processed_posts (
			id           TEXT PRIMARY KEY,
			platform     TEXT NOT NULL,
			user_handle  TEXT NOT NULL,
			content      TEXT NOT NULL,
			url          TEXT DEFAULT '',
			for_account  TEXT DEFAULT '',
			analysis     JSONB NOT NULL,
			ticket_id    TEXT DEFAULT '',
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_processed_account ON processed_posts(for_account);
		CREATE TABLE IF NOT EXISTS pipeline_runs (
			id       BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (id),
			last_run TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

// Contains reports whether the post ID was already analyzed.
func (idx *PostgresIndex) Contains(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := idx.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_posts WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("processed lookup: %w", err)
	}
	return exists, nil
}

// Record appends newly analyzed posts and advances the run timestamp.
func (idx *PostgresIndex) Record(ctx context.Context, posts []models.AnalyzedPost) error {
	for _, p := range posts {
		_, err := idx.pool.Exec(ctx, `
			INSERT INTO processed_posts
				(id, platform, user_handle, content, url, for_account, analysis, ticket_id, processed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Platform, p.UserHandle, p.Content, p.URL, p.ForAccount, p.Analysis, p.TicketID, p.ProcessedAt)
		if err != nil {
			return fmt.Errorf("record processed post %s: %w", p.ID, err)
		}
	}

	_, err := idx.pool.Exec(ctx, `
		INSERT INTO pipeline_runs (id, last_run) VALUES (TRUE, NOW())
		ON CONFLICT (id) DO UPDATE SET last_run = NOW()
	`)
	if err != nil {
		return fmt.Errorf("record run timestamp: %w", err)
	}
	return nil
}

// LastRun returns the completion time of the most recent run.
func (idx *PostgresIndex) LastRun(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := idx.pool.QueryRow(ctx, `SELECT last_run FROM pipeline_runs WHERE id`).Scan(&t)
	if err != nil {
		// No completed run yet.
		return time.Time{}, nil
	}
	return t, nil
}
