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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loopcloser/ingestion/internal/models"
)

// JSONStore persists transactions in a flat JSON document file. It
// keeps transactions in their own file rather than the accounts
// document so the two stores never race on a shared write.
type JSONStore struct {
	path string

	mu   sync.RWMutex
	data jsonData
}

type jsonData struct {
	Transactions []models.Transaction `json:"transactions"`
}

// NewJSONStore creates a file-backed transaction store, loading any
// existing document.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transaction store dir: %w", err)
		}
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load transaction store: %w", err)
	}
	return s, nil
}

var _ Store = (*JSONStore)(nil)

func (s *JSONStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, &s.data)
}

func (s *JSONStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

func (s *JSONStore) find(trackingID string) *models.Transaction {
	for i := range s.data.Transactions {
		if s.data.Transactions[i].TrackingID == trackingID {
			return &s.data.Transactions[i]
		}
	}
	return nil
}

// CreatePending appends a new PENDING transaction.
func (s *JSONStore) CreatePending(_ context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(tx.TrackingID) != nil {
		return fmt.Errorf("transaction %s already exists", tx.TrackingID)
	}
	s.data.Transactions = append(s.data.Transactions, *tx)
	return s.save()
}

// Get returns a transaction, or nil if it does not exist.
func (s *JSONStore) Get(_ context.Context, trackingID string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx := s.find(trackingID); tx != nil {
		copied := *tx
		return &copied, nil
	}
	return nil, nil
}

// SetStatus updates the transaction status.
func (s *JSONStore) SetStatus(_ context.Context, trackingID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.find(trackingID)
	if tx == nil {
		return fmt.Errorf("transaction %s not found", trackingID)
	}
	tx.Status = status
	return s.save()
}
