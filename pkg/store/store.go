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

// Package store persists generated articles.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no article has the requested id.
var ErrNotFound = errors.New("article not found")

// DefaultListLimit is used when List is called with a non-positive limit.
const DefaultListLimit = 20

// ArticleRecord is a generated article together with the request that
// produced it.
type ArticleRecord struct {
	ID    string `json:"id"`
	Query string `json:"query"`
	Title string `json:"title"`

	// Article is the JSON-encoded article.
	Article json.RawMessage `json:"article"`

	Model      string    `json:"model"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store saves and retrieves ArticleRecords.
type Store interface {
	// Save stores rec, assigning ID and CreatedAt when they are empty.
	Save(ctx context.Context, rec *ArticleRecord) error

	// Get returns the record with id or ErrNotFound.
	Get(ctx context.Context, id string) (*ArticleRecord, error)

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]*ArticleRecord, error)

	Close() error
}
