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

// Package chunking splits scraped page content into bounded pieces.
package chunking

import (
	"fmt"
	"unicode/utf8"

	"github.com/kadirpekel/newsmind/pkg/utils"
)

const (
	StrategyRecursive = "recursive"
	StrategyToken     = "token"
)

// Chunker splits text into chunks.
type Chunker interface {
	Split(text string) []string

	Config() ChunkerConfig
}

// ChunkerConfig contains chunking configuration.
type ChunkerConfig struct {
	// Strategy is "recursive" (size measured in characters) or "token"
	// (size measured in model tokens).
	Strategy string `yaml:"strategy"`
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`

	// Model selects the tokenizer for the token strategy.
	Model string `yaml:"model"`
}

// DefaultChunkerConfig returns 2000-character chunks with a 200-character overlap.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		Strategy: StrategyRecursive,
		Size:     2000,
		Overlap:  200,
	}
}

// SetDefaults fills zero values.
func (c *ChunkerConfig) SetDefaults() {
	d := DefaultChunkerConfig()
	if c.Strategy == "" {
		c.Strategy = d.Strategy
	}
	// Overlap is only defaulted together with Size; an explicit size with
	// zero overlap means no overlap.
	if c.Size == 0 {
		c.Size = d.Size
		if c.Overlap == 0 {
			c.Overlap = d.Overlap
		}
	}
}

// Validate checks if the configuration is valid.
func (c *ChunkerConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.Size)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("chunk overlap cannot be negative, got %d", c.Overlap)
	}
	if c.Overlap >= c.Size {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)", c.Overlap, c.Size)
	}
	switch c.Strategy {
	case StrategyRecursive, StrategyToken:
	default:
		return fmt.Errorf("invalid chunking strategy: %s (must be 'recursive' or 'token')", c.Strategy)
	}
	return nil
}

// NewChunker creates a chunker based on the strategy.
func NewChunker(config ChunkerConfig) (Chunker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Strategy {
	case StrategyToken:
		counter, err := utils.NewTokenCounter(config.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create token counter: %w", err)
		}
		return NewRecursiveSplitter(config, counter.Count), nil
	default:
		return NewRecursiveSplitter(config, utf8.RuneCountInString), nil
	}
}
