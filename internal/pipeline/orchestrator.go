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

// Package pipeline drives ingestion runs: per account, pull sources
// within quota, normalize, filter already-processed IDs, classify under
// a rate limit, apply the skip policy, route survivors through the
// matcher, and persist the results. Accounts are processed strictly
// sequentially; a failure in one account never aborts the rest.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/loopcloser/ingestion/internal/account"
	"github.com/loopcloser/ingestion/internal/classify"
	"github.com/loopcloser/ingestion/internal/match"
	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/normalize"
	"github.com/loopcloser/ingestion/internal/processed"
	"github.com/loopcloser/ingestion/internal/quota"
	"github.com/loopcloser/ingestion/internal/sources"
)

// Classifier is the classification oracle the orchestrator consumes.
type Classifier interface {
	Classify(ctx context.Context, post models.Post, acct classify.AccountContext) models.Classification
}

// Config holds the per-run knobs.
type Config struct {
	MaxItemsPerSource int           // item cap per source query
	MaxKeywords       int           // bounded prefix of the keyword list
	MaxSubreddits     int           // bounded prefix of the subreddit list
	ClassifyDelay     time.Duration // minimum gap between classifier calls
	TwitterBaseURL    string        // empty = production API
}

// Orchestrator wires the stores, sources, and classifier into one run
// loop.
type Orchestrator struct {
	cfg        Config
	accounts   account.Store
	index      processed.Index
	filter     *processed.Filter // optional Redis fast path
	classifier Classifier
	matcher    *match.Matcher
	apify      *sources.ApifyClient // nil disables Apify-backed platforms
	limiter    *rate.Limiter
}

// New creates an orchestrator. filter and apify may be nil.
func New(cfg Config, accounts account.Store, index processed.Index, filter *processed.Filter,
	classifier Classifier, matcher *match.Matcher, apify *sources.ApifyClient) *Orchestrator {

	if cfg.MaxItemsPerSource <= 0 {
		cfg.MaxItemsPerSource = 5
	}
	if cfg.MaxKeywords <= 0 {
		cfg.MaxKeywords = 3
	}
	if cfg.MaxSubreddits <= 0 {
		cfg.MaxSubreddits = 2
	}

	limit := rate.Inf
	if cfg.ClassifyDelay > 0 {
		limit = rate.Every(cfg.ClassifyDelay)
	}

	return &Orchestrator{
		cfg:        cfg,
		accounts:   accounts,
		index:      index,
		filter:     filter,
		classifier: classifier,
		matcher:    matcher,
		apify:      apify,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Run processes every account once. Per-account failures are logged and
// counted, never propagated; only a cancelled context or an account
// listing failure aborts the run.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := time.Now()

	accts, err := o.accounts.List(ctx)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}

	var analyzed, failures int
	for i := range accts {
		n, err := o.runAccount(ctx, &accts[i])
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("account processing failed",
				"email", accts[i].Email,
				"error", err,
			)
			failures++
			continue
		}
		analyzed += n
	}

	slog.Info("pipeline run complete",
		"accounts", len(accts),
		"posts_analyzed", analyzed,
		"failures", failures,
		"took", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

// runAccount does one account's unit of work. Quota counters are
// persisted even when no new posts surfaced, since fetching alone
// consumes budget.
func (o *Orchestrator) runAccount(ctx context.Context, acct *models.Account) (int, error) {
	quota.ResetIfNewDay(acct, time.Now())

	slog.Info("processing account", "email", acct.Email, "plan", acct.Plan)

	posts := o.fetchTwitter(ctx, acct)
	posts = append(posts, o.fetchApify(ctx, acct)...)

	fresh, err := o.freshOnly(ctx, posts)
	if err != nil {
		return 0, err
	}
	slog.Info("posts fetched",
		"email", acct.Email,
		"total", len(posts),
		"new", len(fresh),
	)

	acctCtx := classify.AccountContext{
		ProductName: acct.Config.ProductName,
		BrandVoice:  acct.Config.BrandVoice,
	}
	analyzed, analyzeErr := o.analyze(ctx, fresh, acctCtx, acct.Email)

	if err := o.archive(ctx, analyzed); err != nil {
		return 0, err
	}
	if err := o.accounts.SaveQuota(ctx, acct.Email, acct.TwitterQuota); err != nil {
		return 0, fmt.Errorf("save quota: %w", err)
	}
	if analyzeErr != nil {
		return len(analyzed), analyzeErr
	}
	return len(analyzed), nil
}

// fetchTwitter searches Twitter per configured keyword, consuming one
// search plus the fetched item count from the daily budget per query.
// Every quota gate failure is an expected skip, not an error.
func (o *Orchestrator) fetchTwitter(ctx context.Context, acct *models.Account) []models.Post {
	ok, reason := quota.CanConsume(acct, quota.Searches)
	if !ok {
		slog.Info("skipping Twitter", "email", acct.Email, "reason", reason)
		return nil
	}

	keywords := normalize.Fields(acct.Config.TwitterKeywords, o.cfg.MaxKeywords)
	if len(keywords) == 0 {
		slog.Info("no Twitter keywords configured", "email", acct.Email)
		return nil
	}

	src := sources.NewTwitterSource(ctx, acct.TwitterOAuth.AccessToken, o.cfg.TwitterBaseURL)

	var posts []models.Post
	for _, kw := range keywords {
		if ok, reason := quota.CanConsume(acct, quota.Searches); !ok {
			slog.Info("Twitter quota gate closed", "email", acct.Email, "reason", reason)
			break
		}
		remaining := quota.Remaining(acct.TwitterQuota, quota.Posts)
		if remaining == 0 {
			slog.Info("Twitter post budget exhausted", "email", acct.Email)
			break
		}

		maxItems := o.cfg.MaxItemsPerSource
		if remaining < maxItems {
			maxItems = remaining
		}

		items, err := src.Fetch(ctx, normalize.Query(acct.Config.ProductName, kw), maxItems)
		if err != nil {
			slog.Warn("Twitter search failed", "email", acct.Email, "keyword", kw, "error", err)
			continue
		}

		quota.Consume(acct, quota.Searches, 1)
		quota.Consume(acct, quota.Posts, len(items))
		posts = append(posts, o.collect(items, models.PlatformTwitter)...)
	}
	return posts
}

// fetchApify pulls the Apify-backed platforms. Reddit runs on config
// alone (no OAuth requirement); Instagram and Facebook require the
// platform connection.
func (o *Orchestrator) fetchApify(ctx context.Context, acct *models.Account) []models.Post {
	if o.apify == nil {
		return nil
	}

	var posts []models.Post

	keywords := normalize.Fields(acct.Config.Keywords, o.cfg.MaxKeywords)
	subreddits := normalize.Fields(acct.Config.Subreddits, o.cfg.MaxSubreddits)

	if len(keywords) > 0 || len(subreddits) > 0 || acct.Connected(models.PlatformReddit) {
		reddit := sources.NewRedditSource(o.apify)
		for _, kw := range keywords {
			query := normalize.Query(acct.Config.ProductName, kw)
			items, err := reddit.Fetch(ctx, query, o.cfg.MaxItemsPerSource)
			if err != nil {
				slog.Warn("Reddit search failed", "email", acct.Email, "query", query, "error", err)
				continue
			}
			posts = append(posts, o.collect(items, models.PlatformReddit)...)
		}
		for _, sub := range subreddits {
			// Subreddit browsing stays broad; the classifier filters
			// relevance.
			name := strings.TrimPrefix(sub, "r/")
			items, err := reddit.Fetch(ctx, "subreddit:"+name, o.cfg.MaxItemsPerSource)
			if err != nil {
				slog.Warn("subreddit fetch failed", "email", acct.Email, "subreddit", name, "error", err)
				continue
			}
			posts = append(posts, o.collect(items, models.PlatformReddit)...)
		}
	}

	hashtagQuery := acct.Config.ProductName
	if hashtagQuery == "" && len(keywords) > 0 {
		hashtagQuery = keywords[0]
	}

	if acct.Connected(models.PlatformInstagram) && hashtagQuery != "" {
		items, err := sources.NewInstagramSource(o.apify).Fetch(ctx, hashtagQuery, o.cfg.MaxItemsPerSource)
		if err != nil {
			slog.Warn("Instagram fetch failed", "email", acct.Email, "error", err)
		} else {
			posts = append(posts, o.collect(items, models.PlatformInstagram)...)
		}
	}

	if acct.Connected(models.PlatformFacebook) && acct.Config.ProductName != "" {
		items, err := sources.NewFacebookSource(o.apify).Fetch(ctx, acct.Config.ProductName, o.cfg.MaxItemsPerSource)
		if err != nil {
			slog.Warn("Facebook fetch failed", "email", acct.Email, "error", err)
		} else {
			posts = append(posts, o.collect(items, models.PlatformFacebook)...)
		}
	}

	return posts
}

// collect normalizes raw items, dropping the ones the platform policy
// filters out.
func (o *Orchestrator) collect(items []normalize.RawItem, platform models.Platform) []models.Post {
	var posts []models.Post
	for _, it := range items {
		if p := normalize.Normalize(it, platform); p != nil {
			posts = append(posts, *p)
		}
	}
	return posts
}

// freshOnly drops posts already analyzed. The Redis filter is consulted
// first; a miss falls through to the durable index, which is the source
// of truth.
func (o *Orchestrator) freshOnly(ctx context.Context, posts []models.Post) ([]models.Post, error) {
	var out []models.Post
	batch := make(map[string]bool, len(posts))

	for _, p := range posts {
		if batch[p.ID] {
			continue
		}
		batch[p.ID] = true

		if o.filter != nil && o.filter.Seen(ctx, p.ID) {
			continue
		}
		seen, err := o.index.Contains(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("check processed index: %w", err)
		}
		if seen {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// analyze classifies posts sequentially under the rate limit and routes
// ticket-worthy ones through the matcher. On error it returns the posts
// analyzed so far so the caller can archive partial progress.
func (o *Orchestrator) analyze(ctx context.Context, posts []models.Post,
	acctCtx classify.AccountContext, owner string) ([]models.AnalyzedPost, error) {

	var out []models.AnalyzedPost
	for _, p := range posts {
		if err := o.limiter.Wait(ctx); err != nil {
			return out, err
		}

		cls := o.classifier.Classify(ctx, p, acctCtx)

		ap := models.AnalyzedPost{
			Post:        p,
			Analysis:    cls,
			ForAccount:  owner,
			ProcessedAt: time.Now().UTC(),
		}

		if reason := SkipReason(cls); reason != "" {
			slog.Info("post skipped", "post_id", p.ID, "reason", reason)
			out = append(out, ap)
			continue
		}

		ticketID, err := o.matcher.MatchOrCreate(ctx, match.Candidate{
			Summary:    cls.Summary,
			UserHandle: p.UserHandle,
			Owner:      owner,
			SourceID:   p.ID,
			TicketType: cls.TicketType,
			Urgency:    cls.Urgency,
		})
		if err != nil {
			return out, fmt.Errorf("route post %s: %w", p.ID, err)
		}
		ap.TicketID = ticketID
		out = append(out, ap)
	}
	return out, nil
}

// archive appends analyzed posts to the durable index, then primes the
// fast path. Filter errors are logged only; the index already holds the
// truth.
func (o *Orchestrator) archive(ctx context.Context, analyzed []models.AnalyzedPost) error {
	if len(analyzed) == 0 {
		return nil
	}
	if err := o.index.Record(ctx, analyzed); err != nil {
		return fmt.Errorf("record analyzed posts: %w", err)
	}

	if o.filter != nil {
		ids := make([]string, len(analyzed))
		for i, ap := range analyzed {
			ids[i] = ap.ID
		}
		if err := o.filter.MarkSeen(ctx, ids); err != nil {
			slog.Warn("seen-filter update failed", "error", err)
		}
	}
	return nil
}

// RunQuery runs one ownerless query through a single source: the
// one-shot variant. It shares the freshness filter, rate limit, skip
// policy, and matcher with account runs.
func (o *Orchestrator) RunQuery(ctx context.Context, src sources.Source, query string, maxItems int) ([]models.AnalyzedPost, error) {
	if maxItems <= 0 {
		maxItems = o.cfg.MaxItemsPerSource
	}

	items, err := src.Fetch(ctx, query, maxItems)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.Platform(), err)
	}

	fresh, err := o.freshOnly(ctx, o.collect(items, src.Platform()))
	if err != nil {
		return nil, err
	}
	if len(fresh) == 0 {
		slog.Info("no new posts", "query", query)
		return nil, nil
	}

	analyzed, analyzeErr := o.analyze(ctx, fresh, classify.AccountContext{}, "")
	if err := o.archive(ctx, analyzed); err != nil {
		return analyzed, err
	}
	return analyzed, analyzeErr
}
