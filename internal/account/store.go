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

// Package account stores tenant accounts: identity, plan, listening
// config, and quota state. The pipeline reads config fields and writes
// quota fields; the same dual backends as the ticket store apply.
package account

import (
	"context"

	"github.com/loopcloser/ingestion/internal/models"
)

// Store is the persistence contract for accounts, keyed by email.
type Store interface {
	// List returns all accounts in a stable order.
	List(ctx context.Context) ([]models.Account, error)

	// Get returns an account, or nil if it does not exist.
	Get(ctx context.Context, email string) (*models.Account, error)

	// Upsert creates or replaces an account record.
	Upsert(ctx context.Context, a models.Account) error

	// SaveQuota writes back updated quota counters for an account.
	SaveQuota(ctx context.Context, email string, q models.QuotaState) error

	// SetPlan changes an account's plan tier.
	SetPlan(ctx context.Context, email, plan string) error
}
