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

// Package newsroom turns a news query into a structured article using a
// chain of five LLM agents: research, scraping, summarization, titling and
// formatting. Each agent hands its typed output to the next one through
// the invocation state.
package newsroom

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/runner"
)

// ErrEmptyQuery is returned for a query that is empty or only whitespace.
var ErrEmptyQuery = errors.New("query cannot be empty")

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	Team TeamConfig

	// MaxTurns bounds the model calls of one run across all roles.
	// Default: 80
	MaxTurns int
}

// Pipeline runs the agent chain for a query.
type Pipeline struct {
	runner    *runner.Runner
	modelName string
}

// Result is a generated article with run details.
type Result struct {
	Article      *ArticleOutput
	InvocationID string
	Turns        int
	Duration     time.Duration
}

// NewPipeline builds the agent team and its runner.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	team, err := NewTeam(cfg.Team)
	if err != nil {
		return nil, err
	}

	r, err := runner.New(runner.Config{
		AppName:  PipelineName,
		Agent:    team,
		MaxTurns: cfg.MaxTurns,
		Tracer:   cfg.Team.Tracer,
		Metrics:  cfg.Team.Metrics,
	})
	if err != nil {
		return nil, err
	}

	modelName := cfg.Team.ModelName
	if o := cfg.Team.Overrides; o != nil && o.Model != "" {
		modelName = o.Model
	}
	return &Pipeline{runner: r, modelName: modelName}, nil
}

// Generate runs the chain and returns the formatted article.
func (p *Pipeline) Generate(ctx context.Context, query string) (*ArticleOutput, error) {
	res, err := p.Run(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Article, nil
}

// Run is Generate with run details.
func (p *Pipeline) Run(ctx context.Context, query string) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	msg := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: query})
	res, err := p.runner.RunToCompletion(ctx, msg)
	if err != nil {
		return nil, err
	}

	article, err := agent.StateValue[ArticleOutput](res.State, StateKeyArticle)
	if err != nil {
		return nil, fmt.Errorf("pipeline produced no article: %w", err)
	}

	return &Result{
		Article:      &article,
		InvocationID: res.InvocationID,
		Turns:        res.Turns,
		Duration:     res.Duration,
	}, nil
}

// ModelName is the default model of the pipeline.
func (p *Pipeline) ModelName() string {
	return p.modelName
}

// RootAgent returns the orchestrator agent.
func (p *Pipeline) RootAgent() agent.Agent {
	return p.runner.RootAgent()
}
