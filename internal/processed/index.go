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

// Package processed tracks which post IDs have already been analyzed,
// so re-ingesting the same source item is a no-op. The durable index is
// the source of truth; a Redis filter provides a fast path in front of
// it.
package processed

import (
	"context"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
)

// Index is the durable, append-only record of analyzed posts.
type Index interface {
	// Contains reports whether the post ID was already analyzed.
	Contains(ctx context.Context, id string) (bool, error)

	// Record appends newly analyzed posts and advances the run
	// timestamp. Recording an already-present ID is a no-op.
	Record(ctx context.Context, posts []models.AnalyzedPost) error

	// LastRun returns the completion time of the most recent run, or
	// the zero time when no run has completed.
	LastRun(ctx context.Context) (time.Time, error)
}
