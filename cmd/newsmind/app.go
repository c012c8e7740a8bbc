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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kadirpekel/newsmind"
	"github.com/kadirpekel/newsmind/pkg/chunking"
	"github.com/kadirpekel/newsmind/pkg/config"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/model/gemini"
	"github.com/kadirpekel/newsmind/pkg/model/ollama"
	"github.com/kadirpekel/newsmind/pkg/model/openai"
	"github.com/kadirpekel/newsmind/pkg/newsroom"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/store"
	"github.com/kadirpekel/newsmind/pkg/tool"
	"github.com/kadirpekel/newsmind/pkg/tool/scrapetool"
	"github.com/kadirpekel/newsmind/pkg/tool/searchtool"
)

// loadConfig reads the environment and applies CLI overrides.
func loadConfig(cli *CLI) (*config.Config, error) {
	cfg, err := config.FromEnv(os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if cli.Pipeline != "" {
		cfg.Pipeline.File = cli.Pipeline
	}
	cfg.SetDefaults()
	return cfg, nil
}

// app holds everything a command needs to run the pipeline.
type app struct {
	cfg     *config.Config
	service *newsroom.Service
	store   store.Store
	tracer  *observability.Tracer
	metrics *observability.Metrics
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	cfg.Observability.Tracing.ServiceVersion = newsmind.GetVersion().Version
	tracer, err := observability.NewTracer(ctx, &cfg.Observability.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracer = tracer

	metrics, err := observability.NewMetrics(&cfg.Observability.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	a.metrics = metrics

	st, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.store = st

	tools, err := buildTools(cfg)
	if err != nil {
		return nil, err
	}

	var overrides *config.PipelineFile
	if cfg.Pipeline.File != "" {
		overrides, err = config.LoadPipelineFile(cfg.Pipeline.File)
		if err != nil {
			return nil, err
		}
	}

	newModel := modelFactory(ctx, cfg.Model)
	service, err := newsroom.NewService(newsroom.ServiceConfig{
		Build: func(pf *config.PipelineFile) (*newsroom.Pipeline, error) {
			return newsroom.NewPipeline(newsroom.PipelineConfig{
				Team: newsroom.TeamConfig{
					ModelName: cfg.Model.Name,
					NewModel:  newModel,
					Tools:     tools,
					Overrides: pf,
					Tracer:    tracer,
					Metrics:   metrics,
				},
				MaxTurns: cfg.Model.MaxTurns,
			})
		},
		Overrides: overrides,
		Store:     st,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	a.service = service

	ok = true
	return a, nil
}

// Close flushes telemetry and closes the store.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	errs = append(errs, a.tracer.Shutdown(ctx), a.metrics.Shutdown(ctx))
	if err := errors.Join(errs...); err != nil {
		slog.Warn("Shutdown incomplete", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	if cfg.Driver == config.StorageMemory {
		return store.NewMemoryStore(), nil
	}
	st, err := store.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s article store: %w", cfg.Driver, err)
	}
	return st, nil
}

func buildTools(cfg *config.Config) ([]tool.CallableTool, error) {
	search, err := searchtool.New(searchtool.Config{
		APIKey:   cfg.Search.SerperAPIKey,
		MaxLinks: cfg.Search.MaxLinks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", searchtool.ToolName, err)
	}

	scrape, err := scrapetool.New(scrapetool.Config{
		Chunking: chunking.ChunkerConfig{
			Strategy: cfg.Scrape.ChunkStrategy,
			Size:     cfg.Scrape.ChunkSize,
			Overlap:  cfg.Scrape.Overlap(),
			Model:    cfg.Model.Name,
		},
		MaxTokens:  cfg.Scrape.MaxTokens,
		TokenModel: cfg.Model.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", scrapetool.ToolName, err)
	}

	return []tool.CallableTool{search, scrape}, nil
}

func modelFactory(ctx context.Context, cfg config.ModelConfig) newsroom.ModelFactory {
	provider := model.ParseProvider(cfg.Provider)
	return func(name string) (model.LLM, error) {
		switch provider {
		case model.ProviderGemini:
			return gemini.New(ctx, gemini.Config{APIKey: cfg.GeminiAPIKey, Model: name})
		case model.ProviderOpenAI:
			client, err := openai.New(openai.Config{APIKey: cfg.OpenAIAPIKey, BaseURL: cfg.OpenAIBaseURL, Model: name})
			if err != nil {
				return nil, err
			}
			return client, nil
		case model.ProviderOllama:
			client, err := ollama.New(ollama.Config{BaseURL: cfg.OllamaBaseURL, Model: name, NumCtx: cfg.OllamaNumCtx})
			if err != nil {
				return nil, err
			}
			return client, nil
		default:
			return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
		}
	}
}
