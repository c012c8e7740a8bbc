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

// Package agent defines the agent abstraction the article pipeline is built
// from.
//
// An Agent yields Events while it runs. Agents that produce a typed result
// write it into the invocation State so the next agent in a chain can read
// it.
package agent

import (
	"fmt"
	"iter"
)

// Agent is the interface all agents implement.
type Agent interface {
	// Name returns the unique name of the agent.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// SubAgents returns child agents, if any.
	SubAgents() []Agent

	// Run executes the agent and yields events until it finishes.
	// A non-nil error ends the run.
	Run(ctx InvocationContext) iter.Seq2[*Event, error]
}

// Config defines the configuration for a custom agent.
type Config struct {
	// Name must be non-empty.
	Name string

	Description string

	SubAgents []Agent

	// Run is the agent logic.
	Run func(ctx InvocationContext) iter.Seq2[*Event, error]
}

// New creates an agent from a Config.
func New(cfg Config) (Agent, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	if cfg.Run == nil {
		return nil, fmt.Errorf("agent %q: run function is required", cfg.Name)
	}

	seen := make(map[string]bool, len(cfg.SubAgents))
	for _, sub := range cfg.SubAgents {
		if sub == nil {
			return nil, fmt.Errorf("agent %q: nil sub-agent", cfg.Name)
		}
		if seen[sub.Name()] {
			return nil, fmt.Errorf("agent %q: duplicate sub-agent %q", cfg.Name, sub.Name())
		}
		seen[sub.Name()] = true
	}

	return &baseAgent{
		name:        cfg.Name,
		description: cfg.Description,
		subAgents:   cfg.SubAgents,
		run:         cfg.Run,
	}, nil
}

type baseAgent struct {
	name        string
	description string
	subAgents   []Agent
	run         func(ctx InvocationContext) iter.Seq2[*Event, error]
}

func (a *baseAgent) Name() string        { return a.name }
func (a *baseAgent) Description() string { return a.description }
func (a *baseAgent) SubAgents() []Agent  { return a.subAgents }

func (a *baseAgent) Run(ctx InvocationContext) iter.Seq2[*Event, error] {
	return a.run(ctx)
}
