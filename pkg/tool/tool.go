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

// Package tool defines the interfaces agents use to expose functions to a model.
package tool

import (
	"context"
)

// Tool is the minimal description of something a model can call.
type Tool interface {
	Name() string

	Description() string
}

// CallableTool is a Tool that executes synchronously.
type CallableTool interface {
	Tool

	// Call runs the tool with decoded JSON arguments.
	Call(ctx Context, args map[string]any) (map[string]any, error)

	// Schema returns the JSON schema of the arguments object.
	Schema() map[string]any
}

// Context is handed to tools while they run.
type Context interface {
	context.Context

	// FunctionCallID is the provider id of the call being served.
	FunctionCallID() string

	// AgentName is the agent that requested the call.
	AgentName() string
}

type callContext struct {
	context.Context
	callID    string
	agentName string
}

func (c *callContext) FunctionCallID() string { return c.callID }
func (c *callContext) AgentName() string      { return c.agentName }

// NewContext wraps ctx for a single tool invocation.
func NewContext(ctx context.Context, agentName, callID string) Context {
	return &callContext{Context: ctx, callID: callID, agentName: agentName}
}

// Definition is the provider-neutral declaration of a tool.
type Definition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToDefinition converts a Tool into its Definition.
func ToDefinition(t Tool) Definition {
	def := Definition{
		Name:        t.Name(),
		Description: t.Description(),
	}
	if ct, ok := t.(CallableTool); ok {
		def.Parameters = ct.Schema()
	}
	return def
}

// ToolCall is a call requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult is the outcome of a ToolCall fed back to the model.
type ToolResult struct {
	ToolCallID string
	ToolName   string
	Content    string
	Error      string
}
