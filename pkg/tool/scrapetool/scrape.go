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

// Package scrapetool provides the scrape_web tool: fetch a list of pages,
// convert them to text and split the combined content into chunks.
package scrapetool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kadirpekel/newsmind/pkg/chunking"
	"github.com/kadirpekel/newsmind/pkg/tool"
	"github.com/kadirpekel/newsmind/pkg/tool/functiontool"
	"github.com/kadirpekel/newsmind/pkg/utils"
)

const ToolName = "scrape_web"

// ScrapeArgs defines the parameters of scrape_web.
type ScrapeArgs struct {
	Links []string `json:"links" jsonschema:"required,description=URLs of the pages to scrape"`
}

// Config configures the scraper.
type Config struct {
	Fetcher  FetcherConfig
	Chunking chunking.ChunkerConfig

	// Concurrency bounds parallel fetches. Default: 4
	Concurrency int

	// MaxTokens caps the total tokens of the returned chunks; 0 disables it.
	MaxTokens int

	// TokenModel selects the tokenizer used for MaxTokens.
	TokenModel string
}

// Result is the outcome of a scrape.
type Result struct {
	Chunks  []string
	Sources []string
	Failed  map[string]string
}

// Scraper fetches pages and splits their combined content.
type Scraper struct {
	fetcher     *Fetcher
	chunker     chunking.Chunker
	concurrency int
	maxTokens   int
	counter     *utils.TokenCounter
}

// NewScraper creates a Scraper.
func NewScraper(cfg Config) (*Scraper, error) {
	cfg.Chunking.SetDefaults()
	chunker, err := chunking.NewChunker(cfg.Chunking)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	s := &Scraper{
		fetcher:     NewFetcher(cfg.Fetcher),
		chunker:     chunker,
		concurrency: cfg.Concurrency,
		maxTokens:   cfg.MaxTokens,
	}

	if cfg.MaxTokens > 0 {
		counter, err := utils.NewTokenCounter(cfg.TokenModel)
		if err != nil {
			slog.Warn("Token counter unavailable, using estimates", "error", err)
		}
		s.counter = counter
	}

	return s, nil
}

// Scrape fetches every link concurrently and returns the chunked content in
// link order. Links that fail are reported in Result.Failed; if every link
// fails an error is returned.
func (s *Scraper) Scrape(ctx context.Context, links []string) (*Result, error) {
	links = dedupe(links)
	if len(links) == 0 {
		return nil, fmt.Errorf("at least one link is required")
	}

	pages := make([]*Page, len(links))
	errs := make([]error, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, link := range links {
		g.Go(func() error {
			page, err := s.fetcher.Fetch(gctx, link)
			if err != nil {
				errs[i] = err
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{Failed: make(map[string]string)}
	var content strings.Builder
	for i, link := range links {
		if errs[i] != nil {
			slog.Warn("Failed to scrape link", "url", link, "error", errs[i])
			result.Failed[link] = errs[i].Error()
			continue
		}
		if pages[i].Content == "" {
			result.Failed[link] = "no readable content"
			continue
		}
		content.WriteString(pages[i].Content)
		content.WriteString("\n\n")
		result.Sources = append(result.Sources, link)
	}

	if len(result.Sources) == 0 {
		return nil, fmt.Errorf("failed to scrape any of %d links: %s", len(links), firstFailure(links, result.Failed))
	}

	result.Chunks = s.chunker.Split(content.String())
	if s.maxTokens > 0 {
		kept := s.counter.Truncate(result.Chunks, s.maxTokens)
		if len(kept) < len(result.Chunks) {
			slog.Info("Truncated scraped content", "chunks", len(result.Chunks), "kept", len(kept), "max_tokens", s.maxTokens)
		}
		result.Chunks = kept
	}

	slog.Debug("Scrape completed", "links", len(links), "sources", len(result.Sources), "chunks", len(result.Chunks))

	return result, nil
}

// New creates the scrape_web tool.
func New(cfg Config) (tool.CallableTool, error) {
	s, err := NewScraper(cfg)
	if err != nil {
		return nil, err
	}
	return s.Tool()
}

// Tool exposes the scraper as the scrape_web tool.
func (s *Scraper) Tool() (tool.CallableTool, error) {
	return functiontool.NewWithValidation(
		functiontool.Config{
			Name:        ToolName,
			Description: "Scrape the given web pages and return their combined readable content split into chunks.",
		},
		func(ctx tool.Context, args ScrapeArgs) (map[string]any, error) {
			res, err := s.Scrape(ctx, args.Links)
			if err != nil {
				return nil, err
			}
			out := map[string]any{
				"chunks":  res.Chunks,
				"sources": res.Sources,
			}
			if len(res.Failed) > 0 {
				out["failed"] = res.Failed
			}
			return out, nil
		},
		func(args ScrapeArgs) error {
			if len(dedupe(args.Links)) == 0 {
				return fmt.Errorf("at least one link is required")
			}
			return nil
		},
	)
}

func dedupe(links []string) []string {
	seen := make(map[string]bool, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		l = strings.TrimSpace(l)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}

func firstFailure(links []string, failed map[string]string) string {
	for _, l := range links {
		if msg, ok := failed[l]; ok {
			return l + ": " + msg
		}
	}
	return "unknown error"
}
