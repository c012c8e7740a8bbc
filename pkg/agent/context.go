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

package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/a2aproject/a2a-go/a2a"
)

// ErrMaxTurnsExceeded is returned when an invocation uses more model turns
// than its budget allows.
var ErrMaxTurnsExceeded = errors.New("max turns exceeded")

// InvocationContext carries everything an agent needs during one run.
//
// Sub-agents of a workflow get their own InvocationContext that shares the
// parent's state and turn budget.
type InvocationContext interface {
	context.Context

	// Agent returns the agent being executed.
	Agent() Agent

	// InvocationID identifies the whole run.
	InvocationID() string

	// Branch is the path of agent names from the root, joined by "/".
	Branch() string

	// UserContent is the message that started the invocation.
	UserContent() *a2a.Message

	// State is shared by every agent of the invocation.
	State() State

	// Turns is the model-turn budget of the invocation.
	Turns() *TurnBudget
}

// InvocationContextParams holds the values of a new InvocationContext.
type InvocationContextParams struct {
	Agent        Agent
	InvocationID string
	Branch       string
	UserContent  *a2a.Message
	State        State
	Turns        *TurnBudget
}

type invocationContext struct {
	context.Context
	params InvocationContextParams
}

// NewInvocationContext creates an InvocationContext. A nil State or Turns
// gets a fresh, unlimited default.
func NewInvocationContext(ctx context.Context, params InvocationContextParams) InvocationContext {
	if params.State == nil {
		params.State = NewState(nil)
	}
	if params.Turns == nil {
		params.Turns = NewTurnBudget(0)
	}
	if params.Branch == "" && params.Agent != nil {
		params.Branch = params.Agent.Name()
	}
	return &invocationContext{Context: ctx, params: params}
}

// SubContext derives the context a workflow hands to one of its sub-agents.
func SubContext(parent InvocationContext, sub Agent) InvocationContext {
	return NewInvocationContext(parent, InvocationContextParams{
		Agent:        sub,
		InvocationID: parent.InvocationID(),
		Branch:       parent.Branch() + "/" + sub.Name(),
		UserContent:  parent.UserContent(),
		State:        parent.State(),
		Turns:        parent.Turns(),
	})
}

func (c *invocationContext) Agent() Agent              { return c.params.Agent }
func (c *invocationContext) InvocationID() string      { return c.params.InvocationID }
func (c *invocationContext) Branch() string            { return c.params.Branch }
func (c *invocationContext) UserContent() *a2a.Message { return c.params.UserContent }
func (c *invocationContext) State() State              { return c.params.State }
func (c *invocationContext) Turns() *TurnBudget        { return c.params.Turns }

// TurnBudget counts model turns across every agent of an invocation.
// It is safe for concurrent use.
type TurnBudget struct {
	max  int64
	used atomic.Int64
}

// NewTurnBudget creates a budget of max turns; max <= 0 means unlimited.
func NewTurnBudget(max int) *TurnBudget {
	return &TurnBudget{max: int64(max)}
}

// Consume takes one turn from the budget.
func (b *TurnBudget) Consume() error {
	n := b.used.Add(1)
	if b.max > 0 && n > b.max {
		return fmt.Errorf("%w (%d)", ErrMaxTurnsExceeded, b.max)
	}
	return nil
}

// Used returns the number of turns consumed so far.
func (b *TurnBudget) Used() int {
	return int(b.used.Load())
}

// Max returns the budget; 0 means unlimited.
func (b *TurnBudget) Max() int {
	return int(b.max)
}
