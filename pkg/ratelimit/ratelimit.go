// Copyright 2025 Kadir Pekel
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


// Package ratelimit limits how many requests a client may make per
// fixed time window.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit allows Requests per Window for each identifier.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// Enabled reports whether the limit restricts anything.
func (l Limit) Enabled() bool {
	return l.Requests > 0 && l.Window > 0
}

// Result describes the state of one identifier after a request.
type Result struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time

	// RetryAfter is set when the request was rejected.
	RetryAfter time.Duration
}

// Store keeps per-identifier counters.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Increment adds one to the counter of identifier and returns the new
	// count and the end of its window. An expired window restarts at 1.
	Increment(ctx context.Context, identifier string, window time.Duration) (int64, time.Time, error)

	// DeleteExpired removes counters whose window ended before the given time.
	DeleteExpired(ctx context.Context, before time.Time) error
}

// Limiter enforces a Limit over a Store.
type Limiter struct {
	limit Limit
	store Store
	now   func() time.Time
}

// New creates a Limiter. A nil store uses an in-memory store.
func New(limit Limit, store Store) (*Limiter, error) {
	if !limit.Enabled() {
		return nil, fmt.Errorf("invalid limit: %d requests per %s", limit.Requests, limit.Window)
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Limiter{limit: limit, store: store, now: time.Now}, nil
}

// Allow counts one request for identifier. Rejected requests are counted
// too, so a client hammering the endpoint stays limited until the window
// ends.
func (l *Limiter) Allow(ctx context.Context, identifier string) (*Result, error) {
	if identifier == "" {
		return nil, fmt.Errorf("identifier cannot be empty")
	}

	count, windowEnd, err := l.store.Increment(ctx, identifier, l.limit.Window)
	if err != nil {
		return nil, fmt.Errorf("failed to record request: %w", err)
	}

	res := &Result{
		Allowed:   count <= l.limit.Requests,
		Limit:     l.limit.Requests,
		Remaining: max(l.limit.Requests-count, 0),
		ResetAt:   windowEnd,
	}
	if !res.Allowed {
		res.RetryAfter = max(windowEnd.Sub(l.now()), time.Second)
	}
	return res, nil
}

// Cleanup removes expired counters every interval until ctx is done.
func (l *Limiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = l.store.DeleteExpired(ctx, l.now())
		}
	}
}
