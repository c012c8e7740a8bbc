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

// Package runner executes an agent tree for a single user message.
//
// The Runner creates the invocation (id, shared state, turn budget), opens
// the root trace span and streams the events of the root agent.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/observability"
)

// DefaultMaxTurns is the model-turn budget of one invocation.
const DefaultMaxTurns = 80

// ErrMaxTurnsExceeded is returned when an invocation exhausts its turn budget.
var ErrMaxTurnsExceeded = agent.ErrMaxTurnsExceeded

// Config contains the configuration for creating a Runner.
type Config struct {
	// AppName names the root trace span.
	AppName string

	// Agent is the root agent for execution.
	Agent agent.Agent

	// MaxTurns bounds model calls across the whole agent tree.
	// Default: 80
	MaxTurns int

	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

// Runner executes the root agent.
type Runner struct {
	appName  string
	agent    agent.Agent
	maxTurns int
	tracer   *observability.Tracer
	metrics  *observability.Metrics
}

// New creates a Runner.
func New(cfg Config) (*Runner, error) {
	if cfg.Agent == nil {
		return nil, fmt.Errorf("root agent is required")
	}
	if cfg.AppName == "" {
		cfg.AppName = cfg.Agent.Name()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}

	return &Runner{
		appName:  cfg.AppName,
		agent:    cfg.Agent,
		maxTurns: cfg.MaxTurns,
		tracer:   cfg.Tracer,
		metrics:  cfg.Metrics,
	}, nil
}

// Result is the outcome of a completed invocation.
type Result struct {
	InvocationID string

	// Final is the last final-response event of the run.
	Final *agent.Event

	// State holds every output written during the run.
	State agent.State

	// Turns is the number of model turns used.
	Turns int

	Duration time.Duration
}

// RunToCompletion executes the root agent and waits for it to finish.
func (r *Runner) RunToCompletion(ctx context.Context, content *a2a.Message) (*Result, error) {
	result, err := r.run(ctx, content)
	if err != nil {
		return nil, err
	}
	if result.Final == nil {
		return nil, fmt.Errorf("agent %q finished without a final response", r.agent.Name())
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, content *a2a.Message) (*Result, error) {
	invocationID := uuid.NewString()
	start := time.Now()

	ctx, span := r.tracer.StartPipelineRun(ctx, r.appName, invocationID, textOf(content))
	defer span.End()

	state := agent.NewState(nil)
	turns := agent.NewTurnBudget(r.maxTurns)
	invCtx := agent.NewInvocationContext(ctx, agent.InvocationContextParams{
		Agent:        r.agent,
		InvocationID: invocationID,
		UserContent:  content,
		State:        state,
		Turns:        turns,
	})

	slog.Info("Invocation started", "app", r.appName, "invocation", invocationID, "max_turns", r.maxTurns)

	result := &Result{InvocationID: invocationID, State: state}
	var runErr error
	for event, err := range r.agent.Run(invCtx) {
		if err != nil {
			runErr = err
			break
		}
		if event != nil && event.IsFinalResponse() {
			result.Final = event
			slog.Debug("Agent finished", "invocation", invocationID, "agent", event.Author)
		}
	}

	result.Turns = turns.Used()
	result.Duration = time.Since(start)

	r.tracer.RecordError(span, runErr)
	r.metrics.RecordAgentRun(ctx, r.appName, result.Duration, runErr)

	if runErr != nil {
		slog.Error("Invocation failed", "invocation", invocationID, "turns", result.Turns, "error", runErr)
		return nil, runErr
	}
	slog.Info("Invocation completed",
		"invocation", invocationID,
		"turns", result.Turns,
		"duration", result.Duration.Round(time.Millisecond))

	return result, nil
}

// RootAgent returns the root agent.
func (r *Runner) RootAgent() agent.Agent {
	return r.agent
}

func textOf(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			return tp.Text
		}
	}
	return ""
}
