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

package newsroom

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kadirpekel/newsmind/pkg/config"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/store"
)

// Generator produces an article for a query.
type Generator interface {
	Generate(ctx context.Context, query string) (*ArticleOutput, error)
}

// BuildFunc creates a pipeline from a pipeline file; nil means defaults.
type BuildFunc func(*config.PipelineFile) (*Pipeline, error)

// Service generates articles, stores them and lets the pipeline be
// replaced while requests are in flight.
type Service struct {
	pipeline atomic.Pointer[Pipeline]
	build    BuildFunc
	store    store.Store
	metrics  *observability.Metrics
}

var _ Generator = (*Service)(nil)

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Build BuildFunc

	// Overrides is the initial pipeline file, if any.
	Overrides *config.PipelineFile

	// Store defaults to an in-memory store.
	Store store.Store

	Metrics *observability.Metrics
}

// NewService builds the initial pipeline.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Build == nil {
		return nil, fmt.Errorf("pipeline builder is required")
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}

	p, err := cfg.Build(cfg.Overrides)
	if err != nil {
		return nil, err
	}

	s := &Service{build: cfg.Build, store: cfg.Store, metrics: cfg.Metrics}
	s.pipeline.Store(p)
	return s, nil
}

// Generate runs the current pipeline and stores the article. A storage
// failure is logged and does not fail the request.
func (s *Service) Generate(ctx context.Context, query string) (*ArticleOutput, error) {
	p := s.pipeline.Load()
	res, err := p.Run(ctx, query)
	s.metrics.RecordArticle(ctx, err)
	if err != nil {
		return nil, err
	}

	if _, err := s.save(ctx, p.ModelName(), query, res); err != nil {
		slog.Warn("Failed to store article", "invocation", res.InvocationID, "error", err)
	}
	return res.Article, nil
}

func (s *Service) save(ctx context.Context, modelName, query string, res *Result) (*store.ArticleRecord, error) {
	data, err := json.Marshal(res.Article)
	if err != nil {
		return nil, err
	}
	rec := &store.ArticleRecord{
		Query:      query,
		Title:      res.Article.Title,
		Article:    data,
		Model:      modelName,
		DurationMS: res.Duration.Milliseconds(),
	}
	if err := s.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	slog.Debug("Article stored", "id", rec.ID, "title", rec.Title)
	return rec, nil
}

// Reload rebuilds the pipeline from pf and swaps it in. Runs already in
// progress finish on the previous pipeline. On error the current pipeline
// stays in place.
func (s *Service) Reload(pf *config.PipelineFile) error {
	p, err := s.build(pf)
	if err != nil {
		return err
	}
	s.pipeline.Store(p)
	return nil
}

// WatchPipelineFile reloads the pipeline whenever path changes, until ctx
// is done.
func (s *Service) WatchPipelineFile(ctx context.Context, path string) error {
	changes, err := config.WatchFile(ctx, path)
	if err != nil {
		return err
	}

	go func() {
		for range changes {
			pf, err := config.LoadPipelineFile(path)
			if err != nil {
				slog.Error("Failed to load pipeline file", "path", path, "error", err)
				continue
			}
			if err := s.Reload(pf); err != nil {
				slog.Error("Failed to rebuild pipeline, keeping the current one", "path", path, "error", err)
				continue
			}
			slog.Info("Pipeline reloaded", "path", path)
		}
	}()
	return nil
}

// Pipeline returns the current pipeline.
func (s *Service) Pipeline() *Pipeline {
	return s.pipeline.Load()
}

// Articles returns the article store.
func (s *Service) Articles() store.Store {
	return s.store
}
