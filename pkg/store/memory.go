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

package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*ArticleRecord
	byID    map[string]*ArticleRecord
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*ArticleRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec *ArticleRecord) error {
	prepare(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	if _, exists := s.byID[cp.ID]; !exists {
		s.records = append(s.records, &cp)
	} else {
		for i, r := range s.records {
			if r.ID == cp.ID {
				s.records[i] = &cp
			}
		}
	}
	s.byID[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*ArticleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*ArticleRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*ArticleRecord, 0, min(limit, len(s.records)))
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *s.records[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func prepare(rec *ArticleRecord) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
}
