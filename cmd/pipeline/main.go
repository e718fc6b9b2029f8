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

// Loop Closer — One-Shot Pipeline Command
//
// Standalone CLI tool that runs a single ownerless query through the
// ingestion pipeline, plus ticket and billing admin operations.
//
// Usage:
//
//	go run ./cmd/pipeline/ --query "app crash" [--source reddit] [--max 5]
//	go run ./cmd/pipeline/ --mock
//	go run ./cmd/pipeline/ mark-done TICKET-1A2B3C4D
//	go run ./cmd/pipeline/ mark-notified TICKET-1A2B3C4D
//	go run ./cmd/pipeline/ resolved
//	go run ./cmd/pipeline/ upgrade user@example.com
//	go run ./cmd/pipeline/ settle <tracking-id> COMPLETED
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loopcloser/ingestion/internal/account"
	"github.com/loopcloser/ingestion/internal/billing"
	"github.com/loopcloser/ingestion/internal/classify"
	"github.com/loopcloser/ingestion/internal/config"
	"github.com/loopcloser/ingestion/internal/match"
	"github.com/loopcloser/ingestion/internal/pipeline"
	"github.com/loopcloser/ingestion/internal/processed"
	"github.com/loopcloser/ingestion/internal/sources"
	"github.com/loopcloser/ingestion/internal/ticket"
)

// stores bundles the persistence backends the subcommands share.
type stores struct {
	tickets  ticket.Store
	accounts account.Store
	index    processed.Index
	txs      billing.Store
	pool     *pgxpool.Pool
}

func (s *stores) close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	queryFlag := flag.String("query", "", "Search query for a one-shot run")
	sourceFlag := flag.String("source", "reddit", "Source platform: reddit, instagram, facebook, mock")
	mockFlag := flag.Bool("mock", false, "Use the deterministic mock source")
	maxFlag := flag.Int("max", 0, "Max items to fetch (0 = configured default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer st.close()

	// Positional args select an admin operation; otherwise run a query.
	if args := flag.Args(); len(args) > 0 {
		if err := runAdmin(ctx, st, args); err != nil {
			slog.Error("admin operation failed", "op", args[0], "error", err)
			os.Exit(1)
		}
		return
	}

	if *queryFlag == "" && !*mockFlag {
		fmt.Fprintf(os.Stderr, "Error: --query or --mock is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := runQuery(ctx, cfg, st, *queryFlag, *sourceFlag, *mockFlag, *maxFlag); err != nil {
		slog.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}
}

// openStores connects the Postgres backends, or the JSON-file backends
// when no database is configured.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	st := &stores{}

	if cfg.DatabaseURL == "" {
		var err error
		if st.tickets, err = ticket.NewJSONStore(cfg.TicketsFile); err != nil {
			return nil, err
		}
		if st.accounts, err = account.NewJSONStore(cfg.AccountsFile); err != nil {
			return nil, err
		}
		if st.index, err = processed.NewJSONIndex(cfg.ProcessedFile); err != nil {
			return nil, err
		}
		if st.txs, err = billing.NewJSONStore(cfg.TxFile); err != nil {
			return nil, err
		}
		return st, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create Postgres pool: %w", err)
	}
	st.pool = pool

	if st.tickets, err = ticket.NewPostgresStore(ctx, pool); err != nil {
		return nil, err
	}
	if st.accounts, err = account.NewPostgresStore(ctx, pool); err != nil {
		return nil, err
	}
	if st.index, err = processed.NewPostgresIndex(ctx, pool); err != nil {
		return nil, err
	}
	if st.txs, err = billing.NewPostgresStore(ctx, pool); err != nil {
		return nil, err
	}
	return st, nil
}

// runQuery drives a single ownerless query through the orchestrator.
func runQuery(ctx context.Context, cfg *config.Config, st *stores, query, source string, mock bool, maxItems int) error {
	classifier, err := classify.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return err
	}

	var src sources.Source
	switch {
	case mock:
		src = sources.NewMockSource()
	case source == "reddit" || source == "instagram" || source == "facebook":
		if cfg.ApifyToken == "" {
			return fmt.Errorf("APIFY_API_TOKEN is required for the %s source", source)
		}
		apify := sources.NewApifyClient(nil, "", cfg.ApifyToken)
		switch source {
		case "reddit":
			src = sources.NewRedditSource(apify)
		case "instagram":
			src = sources.NewInstagramSource(apify)
		case "facebook":
			src = sources.NewFacebookSource(apify)
		}
	default:
		return fmt.Errorf("unknown source %q", source)
	}

	orch := pipeline.New(pipeline.Config{
		MaxItemsPerSource: cfg.MaxItemsPerSrc,
		MaxKeywords:       cfg.MaxKeywords,
		MaxSubreddits:     cfg.MaxSubreddits,
		ClassifyDelay:     cfg.ClassifyDelay,
	}, st.accounts, st.index, nil, classifier, match.New(st.tickets), nil)

	analyzed, err := orch.RunQuery(ctx, src, query, maxItems)
	if err != nil {
		return err
	}

	ticketed := 0
	for _, ap := range analyzed {
		if ap.TicketID != "" {
			ticketed++
		}
	}
	slog.Info("one-shot run complete",
		"source", src.Platform(),
		"analyzed", len(analyzed),
		"ticketed", ticketed,
	)
	return nil
}

// runAdmin dispatches ticket and billing admin operations.
func runAdmin(ctx context.Context, st *stores, args []string) error {
	switch args[0] {
	case "mark-done":
		if len(args) != 2 {
			return fmt.Errorf("usage: mark-done <ticket-id>")
		}
		if err := st.tickets.MarkDone(ctx, args[1]); err != nil {
			return err
		}
		slog.Info("ticket resolved", "ticket_id", args[1])
		return nil

	case "mark-notified":
		if len(args) != 2 {
			return fmt.Errorf("usage: mark-notified <ticket-id>")
		}
		if err := st.tickets.MarkNotified(ctx, args[1]); err != nil {
			return err
		}
		slog.Info("ticket marked notified", "ticket_id", args[1])
		return nil

	case "resolved":
		tickets, err := st.tickets.ListResolvedUnnotified(ctx)
		if err != nil {
			return err
		}
		for _, t := range tickets {
			slog.Info("awaiting notification",
				"ticket_id", t.ID,
				"summary", t.Summary,
				"users", t.LinkedUsers,
			)
		}
		slog.Info("resolved tickets listed", "count", len(tickets))
		return nil

	case "upgrade":
		if len(args) != 2 {
			return fmt.Errorf("usage: upgrade <email>")
		}
		mgr := billing.NewManager(st.txs, st.accounts)
		tx, err := mgr.OpenUpgrade(ctx, args[1])
		if err != nil {
			return err
		}
		slog.Info("pending upgrade created",
			"tracking_id", tx.TrackingID,
			"email", tx.Email,
		)
		return nil

	case "settle":
		if len(args) != 3 {
			return fmt.Errorf("usage: settle <tracking-id> <status>")
		}
		mgr := billing.NewManager(st.txs, st.accounts)
		return mgr.Settle(ctx, args[1], args[2])

	default:
		return fmt.Errorf("unknown operation %q", args[0])
	}
}
