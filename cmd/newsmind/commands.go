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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/kadirpekel/newsmind"
	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/config"
	"github.com/kadirpekel/newsmind/pkg/newsroom"
	"github.com/kadirpekel/newsmind/pkg/ratelimit"
	"github.com/kadirpekel/newsmind/pkg/server"
)

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Host  string `help:"Host to bind (overrides HOST)."`
	Port  int    `help:"Port to listen on (overrides PORT)."`
	Watch bool   `help:"Reload the pipeline file when it changes." env:"PIPELINE_WATCH"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	cfg.Pipeline.Watch = cfg.Pipeline.Watch || c.Watch

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Pipeline.Watch {
		if cfg.Pipeline.File == "" {
			slog.Warn("Pipeline watch requested without a pipeline file")
		} else if err := a.service.WatchPipelineFile(ctx, cfg.Pipeline.File); err != nil {
			return err
		}
	}

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		limiter, err = ratelimit.New(ratelimit.Limit{Requests: int64(cfg.RateLimit.Requests), Window: cfg.RateLimit.Window}, nil)
		if err != nil {
			return err
		}
		go limiter.Cleanup(ctx, cfg.RateLimit.Window)
	}

	srv, err := server.New(server.Config{
		Address:     cfg.Server.Address(),
		RateLimiter: limiter,
		Generator:   a.service,
		Articles:    a.service.Articles(),
		Tracer:      a.tracer,
		Metrics:     a.metrics,
		MetricsPath: cfg.Observability.Metrics.Endpoint,
		Version:     newsmind.GetVersion().Version,
	})
	if err != nil {
		return err
	}

	base := "http://" + cfg.Server.Address()
	fmt.Printf("\nNewsMind server ready (%s)\n", cfg.Server.Environment)
	fmt.Printf("   Generate:    POST %s/generate-article\n", base)
	fmt.Printf("   Articles:    %s/articles\n", base)
	fmt.Printf("   Health:      %s/health\n", base)
	if a.metrics != nil {
		fmt.Printf("   Metrics:     %s%s\n", base, cfg.Observability.Metrics.Endpoint)
	}
	if cfg.Observability.Tracing.Enabled {
		fmt.Printf("   Tracing:     %s (%s)\n", cfg.Observability.Tracing.Exporter, cfg.Observability.Tracing.Endpoint)
	}
	fmt.Printf("   Model:       %s/%s\n", cfg.Model.Provider, cfg.Model.Name)
	fmt.Printf("   Chain:       %s\n", chainNames(a.service.Pipeline().RootAgent()))
	fmt.Printf("   Storage:     %s\n", cfg.Storage.Driver)
	if limiter != nil {
		fmt.Printf("   Rate limit:  %d per %s\n", cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	return srv.Start(ctx)
}

// GenerateCmd runs the pipeline once.
type GenerateCmd struct {
	Query  []string `arg:"" help:"News query."`
	Format string   `short:"f" help:"Output format: json, text." default:"json" enum:"json,text"`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}
	// One-shot runs do not serve metrics.
	cfg.Observability.Metrics.Enabled = false

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	article, err := a.service.Generate(ctx, strings.Join(c.Query, " "))
	if err != nil {
		return err
	}

	if c.Format == "text" {
		printArticle(os.Stdout, article, outputWidth())
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(article)
}

func printArticle(w io.Writer, a *newsroom.ArticleOutput, width int) {
	fmt.Fprintln(w, a.Title)
	fmt.Fprintln(w, strings.Repeat("=", min(runewidth.StringWidth(a.Title), width)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, wrapText(a.Summary, width))
	fmt.Fprintln(w)
	if len(a.Keywords) > 0 {
		fmt.Fprintln(w, wrapText("Keywords: "+strings.Join(a.Keywords, ", "), width))
		fmt.Fprintln(w)
	}
	for _, para := range strings.Split(strings.TrimSpace(a.Article), "\n") {
		fmt.Fprintln(w, wrapText(para, width))
	}
	if len(a.Sources) > 0 {
		fmt.Fprintln(w, "\nSources:")
		for _, s := range a.Sources {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// wrapText breaks s into lines of at most width display columns.
// Words wider than width get a line of their own.
func wrapText(s string, width int) string {
	var b strings.Builder
	line := 0
	for _, word := range strings.Fields(s) {
		ww := runewidth.StringWidth(word)
		if line > 0 && line+1+ww > width {
			b.WriteString("\n")
			line = 0
		}
		if line > 0 {
			b.WriteString(" ")
			line++
		}
		b.WriteString(word)
		line += ww
	}
	return b.String()
}

// outputWidth is the terminal width of stdout, capped for readability.
func outputWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return min(width, 100)
}

// chainNames lists the roles run by root, in order.
func chainNames(root agent.Agent) string {
	subs := root.SubAgents()
	names := make([]string, 0, len(subs))
	for _, sub := range subs {
		names = append(names, sub.Name())
	}
	return strings.Join(names, " -> ")
}

// ValidateCmd checks the environment and the pipeline file.
type ValidateCmd struct {
	Format string `short:"f" help:"Output format: compact, json." default:"compact" enum:"compact,json"`
}

type validationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	Pipeline string   `json:"pipeline,omitempty"`
}

func (c *ValidateCmd) Run(cli *CLI) error {
	result := validationResult{Valid: true}
	fail := func(err error) {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
	}

	cfg, err := loadConfig(cli)
	if err != nil {
		fail(err)
	} else {
		result.Provider = cfg.Model.Provider
		result.Model = cfg.Model.Name
		if err := cfg.Validate(); err != nil {
			fail(err)
		}
		if cfg.Pipeline.File != "" {
			result.Pipeline = cfg.Pipeline.File
			if err := validatePipelineFile(cfg.Pipeline.File); err != nil {
				fail(err)
			}
		}
	}

	if c.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Printf("Configuration is valid (%s/%s)\n", result.Provider, result.Model)
	} else {
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "error: %s\n", e)
		}
	}

	if !result.Valid {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

// validatePipelineFile parses the file and checks its agent ids without
// creating any model clients.
func validatePipelineFile(path string) error {
	pf, err := config.LoadPipelineFile(path)
	if err != nil {
		return err
	}
	known := make(map[string]bool)
	for _, r := range newsroom.Roles() {
		known[r.ID] = true
	}
	for id := range pf.Agents {
		if !known[id] {
			return fmt.Errorf("%s: unknown agent %q", path, id)
		}
	}
	return nil
}
