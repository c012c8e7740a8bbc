// Package utils provides small helpers shared across packages.
package utils

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens with the tokenizer of a given model.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.Mutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter returns a counter for model, falling back to cl100k_base
// for models tiktoken does not know.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()

	if exists {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.encoding == nil {
		return EstimateTokens(text)
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.encoding.Encode(text, nil, nil))
}

// Truncate returns the longest prefix of texts whose combined token count
// does not exceed maxTokens. A non-positive maxTokens disables the cap.
func (tc *TokenCounter) Truncate(texts []string, maxTokens int) []string {
	if maxTokens <= 0 {
		return texts
	}
	total := 0
	for i, t := range texts {
		total += tc.Count(t)
		if total > maxTokens {
			return texts[:i]
		}
	}
	return texts
}

// EstimateTokens is a rough four-characters-per-token estimate.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
