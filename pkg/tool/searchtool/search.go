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

// Package searchtool provides the search_web tool backed by the Serper
// news search API.
package searchtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kadirpekel/newsmind/pkg/httpclient"
	"github.com/kadirpekel/newsmind/pkg/tool"
	"github.com/kadirpekel/newsmind/pkg/tool/functiontool"
)

const (
	// ToolName is the name the research agent calls.
	ToolName = "search_web"

	DefaultEndpoint = "https://google.serper.dev/news"
)

// SearchArgs defines the parameters of search_web.
type SearchArgs struct {
	Query string `json:"query" jsonschema:"required,description=News search query"`
}

// Config configures the news searcher.
type Config struct {
	APIKey string

	// Endpoint defaults to DefaultEndpoint.
	Endpoint string

	// MaxLinks caps the number of links returned. Default: 1
	MaxLinks int

	Timeout    time.Duration
	MaxRetries int

	// HTTPClient overrides the underlying client, mostly for tests.
	HTTPClient *http.Client
}

// Searcher queries the Serper news endpoint.
type Searcher struct {
	apiKey   string
	endpoint string
	maxLinks int
	hc       *httpclient.Client
}

// NewSearcher creates a Searcher.
func NewSearcher(cfg Config) (*Searcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("serper API key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	return &Searcher{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		maxLinks: cfg.MaxLinks,
		hc: httpclient.New(
			httpclient.WithName("serper"),
			httpclient.WithHTTPClient(base),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(time.Second),
		),
	}, nil
}

type newsResponse struct {
	News []newsItem `json:"news"`
}

type newsItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
	Date    string `json:"date"`
	Source  string `json:"source"`
}

// Search returns up to MaxLinks news article links for query, in the order
// the search API ranked them. Results without a link are skipped.
func (s *Searcher) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}

	payload, err := json.Marshal(map[string]string{"q": query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.hc.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("news search failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("news search error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var data newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	links := make([]string, 0, s.maxLinks)
	for _, item := range data.News {
		if item.Link == "" {
			continue
		}
		links = append(links, item.Link)
		if len(links) == s.maxLinks {
			break
		}
	}

	slog.Debug("News search completed", "query", query, "results", len(data.News), "links", len(links))

	return links, nil
}

// New creates the search_web tool.
func New(cfg Config) (tool.CallableTool, error) {
	searcher, err := NewSearcher(cfg)
	if err != nil {
		return nil, err
	}
	return searcher.Tool()
}

// Tool exposes the searcher as the search_web tool.
func (s *Searcher) Tool() (tool.CallableTool, error) {
	return functiontool.NewWithValidation(
		functiontool.Config{
			Name:        ToolName,
			Description: "Search the web for recent news articles about a query. Returns a list of source URLs.",
		},
		func(ctx tool.Context, args SearchArgs) (map[string]any, error) {
			links, err := s.Search(ctx, args.Query)
			if err != nil {
				return nil, err
			}
			return map[string]any{"news_links": links}, nil
		},
		func(args SearchArgs) error {
			if strings.TrimSpace(args.Query) == "" {
				return fmt.Errorf("query is required")
			}
			return nil
		},
	)
}
