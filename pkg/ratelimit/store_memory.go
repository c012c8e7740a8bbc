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


package ratelimit

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	count     int64
	windowEnd time.Time
}

// MemoryStore is an in-memory Store for single-instance deployments.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*counter
	now  func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*counter), now: time.Now}
}

func (s *MemoryStore) Increment(ctx context.Context, identifier string, window time.Duration) (int64, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.data[identifier]
	if !ok || !c.windowEnd.After(now) {
		c = &counter{windowEnd: now.Add(window)}
		s.data[identifier] = c
	}
	c.count++
	return c.count, c.windowEnd, nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, before time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.data {
		if c.windowEnd.Before(before) {
			delete(s.data, id)
		}
	}
	return nil
}

// Len returns the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
