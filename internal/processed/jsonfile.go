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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
)

// JSONIndex archives analyzed posts in a flat JSON document file,
// matching the analyzed_posts.json layout of file-backed deployments.
type JSONIndex struct {
	path string

	mu   sync.RWMutex
	data indexData
	ids  map[string]bool
}

type indexData struct {
	Posts   []models.AnalyzedPost `json:"posts"`
	LastRun *time.Time            `json:"last_run"`
}

// NewJSONIndex creates a file-backed index, loading any existing
// document.
func NewJSONIndex(path string) (*JSONIndex, error) {
	idx := &JSONIndex{path: path, ids: make(map[string]bool)}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create processed index dir: %w", err)
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("load processed index: %w", err)
	}
	if err := json.Unmarshal(raw, &idx.data); err != nil {
		return nil, fmt.Errorf("parse processed index: %w", err)
	}
	for _, p := range idx.data.Posts {
		idx.ids[p.ID] = true
	}
	return idx, nil
}

var _ Index = (*JSONIndex)(nil)

// Contains reports whether the post ID was already analyzed.
func (idx *JSONIndex) Contains(_ context.Context, id string) (bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.ids[id], nil
}

// Record appends newly analyzed posts and advances the run timestamp.
func (idx *JSONIndex) Record(_ context.Context, posts []models.AnalyzedPost) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, p := range posts {
		if idx.ids[p.ID] {
			continue
		}
		idx.data.Posts = append(idx.data.Posts, p)
		idx.ids[p.ID] = true
	}

	now := time.Now().UTC()
	idx.data.LastRun = &now

	raw, err := json.MarshalIndent(idx.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(idx.path, raw, 0o644)
}

// LastRun returns the completion time of the most recent run.
func (idx *JSONIndex) LastRun(_ context.Context) (time.Time, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.data.LastRun == nil {
		return time.Time{}, nil
	}
	return *idx.data.LastRun, nil
}
