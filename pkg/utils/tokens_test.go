package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func newCounter(t *testing.T, model string) *TokenCounter {
	t.Helper()
	counter, err := NewTokenCounter(model)
	if err != nil {
		t.Skipf("tokenizer unavailable: %v", err)
	}
	return counter
}

func TestNewTokenCounter(t *testing.T) {
	for _, model := range []string{"gpt-4", "gpt-4o", "gemini-2.0-flash"} {
		t.Run(model, func(t *testing.T) {
			counter := newCounter(t, model)
			if counter.model != model {
				t.Errorf("model = %q, want %q", counter.model, model)
			}
			if n := counter.Count("rates held steady"); n <= 0 {
				t.Errorf("Count() = %d, want positive", n)
			}
		})
	}
}

func TestTokenCounter_Count(t *testing.T) {
	counter := newCounter(t, "gpt-4")

	if got := counter.Count(""); got != 0 {
		t.Errorf("Count(\"\") = %d, want 0", got)
	}
	if got := counter.Count("hello world"); got <= 0 || got > 5 {
		t.Errorf("Count(\"hello world\") = %d, want a small positive number", got)
	}
}

func TestTokenCounter_Truncate(t *testing.T) {
	counter := newCounter(t, "gpt-4")
	texts := []string{"hello world", "hello world", "hello world"}

	per := counter.Count("hello world")
	got := counter.Truncate(texts, per*2)
	if len(got) != 2 {
		t.Errorf("Truncate() kept %d texts, want 2", len(got))
	}
	if len(counter.Truncate(texts, 0)) != 3 {
		t.Error("Truncate() with no cap should keep everything")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens("abcdefgh"); got != 2 {
		t.Errorf("EstimateTokens() = %d, want 2", got)
	}
	var nilCounter *TokenCounter
	if got := nilCounter.Count("abcd"); got != 1 {
		t.Errorf("nil counter Count() = %d, want 1", got)
	}
}

func TestEnsureDataDir(t *testing.T) {
	base := t.TempDir()
	dir, err := EnsureDataDir(base)
	if err != nil {
		t.Fatalf("EnsureDataDir() error = %v", err)
	}
	if dir != filepath.Join(base, DataDirName) {
		t.Errorf("dir = %q", dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("expected directory at %s", dir)
	}
}
