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

// Loop Closer — Scheduler Service
//
// Entry point for the long-running ingestion service. It:
//  1. Loads configuration from config.yaml
//  2. Connects to PostgreSQL (or falls back to JSON-file stores) and Redis
//  3. Runs the per-account pipeline on a fixed interval
//  4. Queues resolution replies for freshly resolved tickets
//  5. Serves a health endpoint
//  6. Handles graceful shutdown on SIGTERM/SIGINT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/loopcloser/ingestion/internal/account"
	"github.com/loopcloser/ingestion/internal/classify"
	"github.com/loopcloser/ingestion/internal/config"
	"github.com/loopcloser/ingestion/internal/match"
	"github.com/loopcloser/ingestion/internal/pipeline"
	"github.com/loopcloser/ingestion/internal/processed"
	"github.com/loopcloser/ingestion/internal/reply"
	"github.com/loopcloser/ingestion/internal/sources"
	"github.com/loopcloser/ingestion/internal/ticket"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting Loop Closer scheduler")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"run_interval", cfg.RunInterval,
		"classify_delay", cfg.ClassifyDelay,
		"backend", storageBackend(cfg),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Storage Backends ---
	var pgPool *pgxpool.Pool
	var tickets ticket.Store
	var accounts account.Store
	var index processed.Index

	if cfg.DatabaseURL != "" {
		pgPool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to create Postgres pool", "error", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if err := pgPool.Ping(ctx); err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		slog.Info("connected to PostgreSQL")

		if tickets, err = ticket.NewPostgresStore(ctx, pgPool); err != nil {
			slog.Error("failed to initialise ticket store", "error", err)
			os.Exit(1)
		}
		if accounts, err = account.NewPostgresStore(ctx, pgPool); err != nil {
			slog.Error("failed to initialise account store", "error", err)
			os.Exit(1)
		}
		if index, err = processed.NewPostgresIndex(ctx, pgPool); err != nil {
			slog.Error("failed to initialise processed index", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("DATABASE_URL not set, using JSON-file stores")

		if tickets, err = ticket.NewJSONStore(cfg.TicketsFile); err != nil {
			slog.Error("failed to open ticket store", "error", err)
			os.Exit(1)
		}
		if accounts, err = account.NewJSONStore(cfg.AccountsFile); err != nil {
			slog.Error("failed to open account store", "error", err)
			os.Exit(1)
		}
		if index, err = processed.NewJSONIndex(cfg.ProcessedFile); err != nil {
			slog.Error("failed to open processed index", "error", err)
			os.Exit(1)
		}
	}

	// --- Connect to Redis ---
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	rdb := redis.NewClient(opt)

	publisher := reply.NewPublisher(rdb, cfg.ReplyQueue)
	if err := publisher.Ping(ctx); err != nil {
		slog.Error("failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("connected to Redis")

	filter := processed.NewFilter(rdb)

	// --- Classifier ---
	classifier, err := classify.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		slog.Error("failed to initialise classifier", "error", err)
		os.Exit(1)
	}

	// --- Sources ---
	var apify *sources.ApifyClient
	if cfg.ApifyToken != "" {
		apify = sources.NewApifyClient(nil, "", cfg.ApifyToken)
	} else {
		slog.Warn("APIFY_API_TOKEN not set, Reddit/Instagram/Facebook sources disabled")
	}

	// --- Orchestrator ---
	orch := pipeline.New(pipeline.Config{
		MaxItemsPerSource: cfg.MaxItemsPerSrc,
		MaxKeywords:       cfg.MaxKeywords,
		MaxSubreddits:     cfg.MaxSubreddits,
		ClassifyDelay:     cfg.ClassifyDelay,
	}, accounts, index, filter, classifier, match.New(tickets), apify)

	notifier := reply.NewNotifier(tickets, publisher)

	// --- Run Loop ---
	go runLoop(ctx, cfg, orch, notifier)

	// --- Health Check Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := publisher.Ping(r.Context()); err != nil {
			http.Error(w, "redis unhealthy", http.StatusServiceUnavailable)
			return
		}
		if pgPool != nil {
			if err := pgPool.Ping(r.Context()); err != nil {
				http.Error(w, "postgres unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	mux.HandleFunc("/last-run", func(w http.ResponseWriter, r *http.Request) {
		last, err := index.LastRun(r.Context())
		if err != nil {
			http.Error(w, "index unavailable", http.StatusServiceUnavailable)
			return
		}
		if last.IsZero() {
			w.Write([]byte(`{"last_run": null}`))
			return
		}
		fmt.Fprintf(w, `{"last_run": %q}`, last.Format(time.RFC3339))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel() // Stop the run loop between accounts

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}

		rdb.Close()
		if pgPool != nil {
			pgPool.Close()
		}
	}()

	slog.Info("scheduler listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("scheduler stopped")
}

// runLoop executes the pipeline immediately, then on every interval
// tick. A failed run retries after the shorter backoff instead of
// waiting out the full interval.
func runLoop(ctx context.Context, cfg *config.Config, orch *pipeline.Orchestrator, notifier *reply.Notifier) {
	wait := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}

		if err := orch.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("pipeline run failed", "error", err, "retry_in", cfg.RetryBackoff)
			wait = cfg.RetryBackoff
			continue
		}

		if n, err := notifier.NotifyResolved(ctx); err != nil {
			slog.Error("resolution notify sweep failed", "error", err)
		} else if n > 0 {
			slog.Info("resolution sweep complete", "tickets_notified", n)
		}

		wait = cfg.RunInterval
	}
}

func storageBackend(cfg *config.Config) string {
	if cfg.DatabaseURL != "" {
		return "postgres"
	}
	return "jsonfile"
}
