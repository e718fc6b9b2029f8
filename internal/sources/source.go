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

// Package sources provides the platform adapters that surface raw
// social-media items: Apify actors (Reddit, Instagram, Facebook), the
// Twitter search API, and a deterministic mock source. Adapter failures
// are reported as errors; the orchestrator treats any failure as "zero
// items from this source" and continues.
package sources

import (
	"context"

	"github.com/loopcloser/ingestion/internal/models"
	"github.com/loopcloser/ingestion/internal/normalize"
)

// Source fetches raw items for a search query.
type Source interface {
	// Platform identifies which network this adapter queries.
	Platform() models.Platform

	// Fetch returns at most maxItems raw items matching the query.
	Fetch(ctx context.Context, query string, maxItems int) ([]normalize.RawItem, error)
}
