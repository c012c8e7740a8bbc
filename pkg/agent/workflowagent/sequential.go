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

// Package workflowagent provides agents that orchestrate other agents
// without calling a model themselves.
package workflowagent

import (
	"iter"

	"github.com/kadirpekel/newsmind/pkg/agent"
)

// SequentialConfig defines the configuration for a sequential agent.
type SequentialConfig struct {
	Name string

	Description string

	// SubAgents are the agents to run, in order.
	SubAgents []agent.Agent
}

// NewSequential creates an agent that runs its sub-agents once, in the
// order they are listed. Every sub-agent sees the state written by the ones
// before it. The first error ends the run.
//
//	research, _ := llmagent.New(llmagent.Config{Name: "research", ...})
//	write, _ := llmagent.New(llmagent.Config{Name: "write", ...})
//
//	chain, _ := workflowagent.NewSequential(workflowagent.SequentialConfig{
//	    Name:      "chain",
//	    SubAgents: []agent.Agent{research, write},
//	})
func NewSequential(cfg SequentialConfig) (agent.Agent, error) {
	return agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		SubAgents:   cfg.SubAgents,
		Run:         runSequential,
	})
}

func runSequential(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		for _, sub := range ctx.Agent().SubAgents() {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			subCtx := agent.SubContext(ctx, sub)
			for event, err := range sub.Run(subCtx) {
				if !yield(event, err) {
					return
				}
				if err != nil {
					return
				}
			}
		}
	}
}
