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
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// filterTTL is how long the fast path remembers a seen post ID.
	// Misses fall through to the durable index, so expiry only costs a
	// lookup.
	filterTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces filter keys in Redis.
	keyPrefix = "lc:seen:"
)

// Filter is a Redis-backed fast path in front of the durable Index.
// It is an accelerator only: a flushed Redis never causes re-analysis
// because callers consult the Index on a filter miss.
type Filter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFilter creates a seen-ID filter backed by Redis.
func NewFilter(rdb *redis.Client) *Filter {
	return &Filter{rdb: rdb, ttl: filterTTL}
}

// Seen reports whether the post ID is in the fast path. Errors degrade
// to "not seen" so Redis trouble never blocks the pipeline.
func (f *Filter) Seen(ctx context.Context, id string) bool {
	n, err := f.rdb.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// MarkSeen records post IDs in the fast path after they have been
// durably archived.
func (f *Filter) MarkSeen(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := f.rdb.Pipeline()
	for _, id := range ids {
		pipe.Set(ctx, keyPrefix+id, 1, f.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Ping checks the Redis connection.
func (f *Filter) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return f.rdb.Ping(ctx).Err()
}
