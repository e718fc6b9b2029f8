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

// Package billing tracks payment transactions and applies plan
// upgrades. The payment provider dialogue happens elsewhere; this
// package owns the local transaction records and the account state
// change when a payment settles.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/loopcloser/ingestion/internal/account"
	"github.com/loopcloser/ingestion/internal/models"
)

// Store persists payment transactions.
type Store interface {
	// CreatePending records a new transaction in PENDING state.
	CreatePending(ctx context.Context, tx *models.Transaction) error

	// Get returns a transaction by tracking ID, or nil if unknown.
	Get(ctx context.Context, trackingID string) (*models.Transaction, error)

	// SetStatus updates the transaction status.
	SetStatus(ctx context.Context, trackingID, status string) error
}

// Manager orchestrates the upgrade flow: open a pending transaction,
// then settle it once the provider reports an outcome.
type Manager struct {
	txs      Store
	accounts account.Store
}

// NewManager creates a billing manager.
func NewManager(txs Store, accounts account.Store) *Manager {
	return &Manager{txs: txs, accounts: accounts}
}

// OpenUpgrade records a pending transaction for the account and
// returns its tracking ID. The caller hands the ID to the payment
// provider as the order reference.
func (m *Manager) OpenUpgrade(ctx context.Context, email string) (*models.Transaction, error) {
	acct, err := m.accounts.Get(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("look up account: %w", err)
	}
	if acct == nil {
		return nil, fmt.Errorf("unknown account %s", email)
	}

	tx := &models.Transaction{
		TrackingID:        uuid.New().String(),
		MerchantReference: uuid.New().String(),
		Email:             email,
		Status:            models.TxPending,
		CreatedAt:         time.Now().UTC(),
	}
	if err := m.txs.CreatePending(ctx, tx); err != nil {
		return nil, fmt.Errorf("record pending transaction: %w", err)
	}

	slog.Info("upgrade transaction opened", "tracking_id", tx.TrackingID, "email", email)
	return tx, nil
}

// Settle applies the provider's verdict. A COMPLETED settlement
// upgrades the account to Pro; any other status is recorded as FAILED.
// Settling an already settled transaction is a no-op.
func (m *Manager) Settle(ctx context.Context, trackingID, providerStatus string) error {
	tx, err := m.txs.Get(ctx, trackingID)
	if err != nil {
		return fmt.Errorf("look up transaction: %w", err)
	}
	if tx == nil {
		return fmt.Errorf("unknown transaction %s", trackingID)
	}
	if tx.Status != models.TxPending {
		return nil
	}

	status := models.TxFailed
	if providerStatus == models.TxCompleted {
		status = models.TxCompleted
	}
	if err := m.txs.SetStatus(ctx, trackingID, status); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if status != models.TxCompleted {
		slog.Warn("payment failed", "tracking_id", trackingID, "provider_status", providerStatus)
		return nil
	}

	if err := m.accounts.SetPlan(ctx, tx.Email, models.PlanPro); err != nil {
		return fmt.Errorf("upgrade plan: %w", err)
	}

	slog.Info("account upgraded", "email", tx.Email, "plan", models.PlanPro, "tracking_id", trackingID)
	return nil
}
