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

package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/loopcloser/ingestion/internal/models"
)

// JSONStore persists tickets in a flat JSON document file. Intended for
// single-process deployments and tests; the Postgres backend is the
// production store.
type JSONStore struct {
	path string

	mu   sync.RWMutex
	data jsonData
}

type jsonData struct {
	Tickets []models.Ticket `json:"tickets"`
}

// NewJSONStore creates a file-backed ticket store, loading any existing
// document.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ticket store dir: %w", err)
		}
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load ticket store: %w", err)
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

// save writes the document; callers hold the write lock.
func (s *JSONStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o644)
}

func (s *JSONStore) find(id string) *models.Ticket {
	for i := range s.data.Tickets {
		if s.data.Tickets[i].ID == id {
			return &s.data.Tickets[i]
		}
	}
	return nil
}

// Create persists a new ticket.
func (s *JSONStore) Create(_ context.Context, t models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.find(t.ID) != nil {
		return fmt.Errorf("ticket %s already exists", t.ID)
	}
	s.data.Tickets = append(s.data.Tickets, t)
	return s.save()
}

// Get returns a ticket by ID, or nil if it does not exist.
func (s *JSONStore) Get(_ context.Context, id string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t := s.find(id); t != nil {
		copied := *t
		return &copied, nil
	}
	return nil, nil
}

// ListByOwner returns all tickets for an owner in creation order.
// An empty owner returns every ticket.
func (s *JSONStore) ListByOwner(_ context.Context, owner string) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Ticket
	for _, t := range s.data.Tickets {
		if owner == "" || t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

// LinkUser appends a handle to linked_users only when it is absent.
func (s *JSONStore) LinkUser(_ context.Context, id, handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return fmt.Errorf("ticket %s not found", id)
	}
	for _, u := range t.LinkedUsers {
		if u == handle {
			return nil
		}
	}
	t.LinkedUsers = append(t.LinkedUsers, handle)
	return s.save()
}

// MarkDone transitions a ticket to DONE.
func (s *JSONStore) MarkDone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return fmt.Errorf("ticket %s not found", id)
	}
	t.Status = models.StatusDone
	return s.save()
}

// MarkNotified flips the notified flag.
func (s *JSONStore) MarkNotified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(id)
	if t == nil {
		return fmt.Errorf("ticket %s not found", id)
	}
	t.Notified = true
	return s.save()
}

// ListResolvedUnnotified returns DONE tickets awaiting notification.
func (s *JSONStore) ListResolvedUnnotified(_ context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Ticket
	for _, t := range s.data.Tickets {
		if t.Status == models.StatusDone && !t.Notified {
			out = append(out, t)
		}
	}
	return out, nil
}
