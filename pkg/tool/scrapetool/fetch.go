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

package scrapetool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kadirpekel/newsmind/pkg/httpclient"
)

// FetcherConfig configures page fetching.
type FetcherConfig struct {
	Timeout         time.Duration
	MaxRetries      int
	MaxResponseSize int64
	MaxRedirects    int
	UserAgent       string

	// AllowedDomains and DeniedDomains accept exact hosts or "*.example.com".
	AllowedDomains []string
	DeniedDomains  []string

	HTTPClient *http.Client
}

func (c *FetcherConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 2
	}
	if c.MaxResponseSize <= 0 {
		c.MaxResponseSize = 10 << 20
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 10
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; NewsMind/1.0)"
	}
}

// Page is the readable content of a fetched URL.
type Page struct {
	URL     string
	Content string
}

// Fetcher downloads a single page and converts it to text. It never
// follows links found in the page.
type Fetcher struct {
	cfg FetcherConfig
	hc  *httpclient.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	cfg.setDefaults()

	// Copy so the redirect policy never leaks into the caller's client.
	base := &http.Client{Timeout: cfg.Timeout}
	if cfg.HTTPClient != nil {
		c := *cfg.HTTPClient
		base = &c
	}
	maxRedirects := cfg.MaxRedirects
	base.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}

	return &Fetcher{
		cfg: cfg,
		hc: httpclient.New(
			httpclient.WithName("scrape"),
			httpclient.WithHTTPClient(base),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(500*time.Millisecond),
		),
	}
}

// Fetch downloads rawURL and returns its content as markdown (HTML),
// plain text (PDF) or the raw body for other text types.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid URL: %q", rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %q", parsed.Scheme)
	}
	if err := f.validateDomain(parsed.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.hc.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > f.cfg.MaxResponseSize {
		return nil, fmt.Errorf("response too large: exceeds %d bytes", f.cfg.MaxResponseSize)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))

	var content string
	switch {
	case isPDF(contentType, body):
		content, err = PDFToText(body)
	case contentType == "" || strings.Contains(contentType, "html"):
		content, err = HTMLToMarkdown(bytes.NewReader(body))
	case strings.HasPrefix(contentType, "text/"):
		content = strings.TrimSpace(string(body))
	default:
		err = fmt.Errorf("unsupported content type %q", contentType)
	}
	if err != nil {
		return nil, err
	}

	return &Page{URL: parsed.String(), Content: content}, nil
}

func (f *Fetcher) validateDomain(host string) error {
	for _, denied := range f.cfg.DeniedDomains {
		if matchesDomain(host, denied) {
			return fmt.Errorf("domain not allowed: %s (matches deny rule: %s)", host, denied)
		}
	}

	if len(f.cfg.AllowedDomains) == 0 {
		return nil
	}
	for _, allowed := range f.cfg.AllowedDomains {
		if matchesDomain(host, allowed) {
			return nil
		}
	}
	return fmt.Errorf("domain not allowed: %s (not in allowed list)", host)
}

func matchesDomain(host, pattern string) bool {
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}

	if host == pattern {
		return true
	}

	if strings.HasPrefix(pattern, "*.") {
		return strings.HasSuffix(host, pattern[1:])
	}

	return false
}
