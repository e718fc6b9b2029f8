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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loopcloser/ingestion/internal/models"
)

// JSONStore persists accounts in a flat JSON document file.
type JSONStore struct {
	path string

	mu   sync.RWMutex
	data jsonData
}

type jsonData struct {
	Users []models.Account `json:"users"`
}

// NewJSONStore creates a file-backed account store, loading any
// existing document.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create account store dir: %w", err)
		}
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load account store: %w", err)
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

func (s *JSONStore) find(email string) *models.Account {
	for i := range s.data.Users {
		if s.data.Users[i].Email == email {
			return &s.data.Users[i]
		}
	}
	return nil
}

// List returns all accounts in document order.
func (s *JSONStore) List(_ context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Account, len(s.data.Users))
	copy(out, s.data.Users)
	return out, nil
}

// Get returns an account, or nil if it does not exist.
func (s *JSONStore) Get(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a := s.find(email); a != nil {
		copied := *a
		return &copied, nil
	}
	return nil, nil
}

// Upsert creates or replaces an account record.
func (s *JSONStore) Upsert(_ context.Context, a models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.find(a.Email); existing != nil {
		*existing = a
	} else {
		s.data.Users = append(s.data.Users, a)
	}
	return s.save()
}

// SaveQuota writes back updated quota counters for an account.
func (s *JSONStore) SaveQuota(_ context.Context, email string, q models.QuotaState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(email)
	if a == nil {
		return fmt.Errorf("account %s not found", email)
	}
	a.TwitterQuota = q
	return s.save()
}

// SetPlan changes an account's plan tier.
func (s *JSONStore) SetPlan(_ context.Context, email, plan string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(email)
	if a == nil {
		return fmt.Errorf("account %s not found", email)
	}
	a.Plan = plan
	return s.save()
}
