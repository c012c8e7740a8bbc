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

package agent

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// ErrStateKeyNotExist is returned by State.Get for unknown keys.
var ErrStateKeyNotExist = errors.New("state key does not exist")

// State is a mutable key-value store shared by the agents of an invocation.
type State interface {
	Get(key string) (any, error)
	Set(key string, value any) error
	Delete(key string) error
	All() iter.Seq2[string, any]
}

type memoryState struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewState creates an in-memory State seeded with initial.
func NewState(initial map[string]any) State {
	values := make(map[string]any, len(initial))
	maps.Copy(values, initial)
	return &memoryState{values: values}
}

func (s *memoryState) Get(key string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStateKeyNotExist, key)
	}
	return v, nil
}

func (s *memoryState) Set(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memoryState) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// All iterates a snapshot in key order.
func (s *memoryState) All() iter.Seq2[string, any] {
	s.mu.RLock()
	snapshot := maps.Clone(s.values)
	s.mu.RUnlock()

	return func(yield func(string, any) bool) {
		for _, k := range slices.Sorted(maps.Keys(snapshot)) {
			if !yield(k, snapshot[k]) {
				return
			}
		}
	}
}

// StateValue reads key from s and decodes it into T. Values stored as
// generic JSON maps are decoded using the json struct tags of T.
func StateValue[T any](s State, key string) (T, error) {
	var out T

	raw, err := s.Get(key)
	if err != nil {
		return out, err
	}
	if v, ok := raw.(T); ok {
		return v, nil
	}
	if v, ok := raw.(*T); ok && v != nil {
		return *v, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return out, fmt.Errorf("failed to decode state key %q: %w", key, err)
	}
	return out, nil
}
