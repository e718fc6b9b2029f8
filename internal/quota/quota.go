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

// Package quota tracks per-account, per-platform daily consumption
// budgets. Limits are a pure function of the plan tier; counters reset
// on the first check of a new local day, before any consumption.
package quota

import (
	"fmt"
	"time"

	"github.com/loopcloser/ingestion/internal/models"
)

// Resource identifies a budgeted unit of work.
type Resource string

const (
	// Searches counts search API calls (one per keyword query).
	Searches Resource = "searches"
	// Posts counts items fetched across all searches (volume budget).
	Posts Resource = "posts"
)

// Limits holds the daily budgets granted by a plan tier.
type Limits struct {
	Searches int
	Posts    int
}

// planLimits is the tier table. Unknown plans get the Free tier.
var planLimits = map[string]Limits{
	models.PlanFree:  {Searches: 0, Posts: 0},
	models.PlanPro:   {Searches: 10, Posts: 100},
	models.PlanTeams: {Searches: 20, Posts: 200},
}

// PlanLimits returns the daily limits for a plan tier.
func PlanLimits(plan string) Limits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[models.PlanFree]
}

// ResetIfNewDay zeroes the account's daily counters when the stored
// reset date is not today, applying the current plan limits. A quota
// that has never been initialised (no limits applied yet) is also
// reset. Running it twice on the same day is a no-op.
func ResetIfNewDay(a *models.Account, now time.Time) {
	today := now.Format("2006-01-02")
	q := &a.TwitterQuota
	limits := PlanLimits(a.Plan)

	uninitialised := q.PostsLimit == 0 && q.SearchesLimit == 0 && limits.Searches > 0
	if q.LastReset == today && !uninitialised {
		return
	}

	*q = models.QuotaState{
		SearchesToday: 0,
		PostsToday:    0,
		SearchesLimit: limits.Searches,
		PostsLimit:    limits.Posts,
		LastReset:     today,
	}
}

// CanConsume reports whether the account may consume one unit of the
// given resource right now. The reason distinguishes non-retryable
// configuration gates (plan tier, connection, credential) from ordinary
// quota exhaustion; all of them are expected skips, never errors.
func CanConsume(a *models.Account, r Resource) (bool, string) {
	if PlanLimits(a.Plan).Searches == 0 {
		return false, "social monitoring requires Pro plan"
	}

	if !a.Connected(models.PlatformTwitter) {
		return false, "Twitter not connected"
	}

	if a.TwitterOAuth == nil || a.TwitterOAuth.AccessToken == "" {
		return false, "no Twitter OAuth token found"
	}

	q := a.TwitterQuota
	switch r {
	case Searches:
		if q.SearchesToday >= q.SearchesLimit {
			return false, fmt.Sprintf("daily limit reached (%d searches/day)", q.SearchesLimit)
		}
	case Posts:
		if q.PostsToday >= q.PostsLimit {
			return false, fmt.Sprintf("daily limit reached (%d posts/day)", q.PostsLimit)
		}
	}

	return true, "OK"
}

// Remaining returns how many units of the resource are left today.
func Remaining(q models.QuotaState, r Resource) int {
	var left int
	switch r {
	case Searches:
		left = q.SearchesLimit - q.SearchesToday
	case Posts:
		left = q.PostsLimit - q.PostsToday
	}
	if left < 0 {
		return 0
	}
	return left
}

// Consume records n units against the account's counters. Callers
// record consumption only after the unit of work actually completed.
func Consume(a *models.Account, r Resource, n int) {
	switch r {
	case Searches:
		a.TwitterQuota.SearchesToday += n
	case Posts:
		a.TwitterQuota.PostsToday += n
	}
}
