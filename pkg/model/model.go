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

// Package model defines the LLM interface used by the agents.
//
// Conversations are expressed as a2a messages. Tool calls and tool results
// travel as a2a.DataPart values tagged with a "type" key:
//
//	{"type": "tool_use", "id": ..., "name": ..., "arguments": {...}}
//	{"type": "tool_result", "tool_call_id": ..., "tool_name": ..., "content": "..."}
package model

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/tool"
)

// LLM is the interface for language models.
type LLM interface {
	// Name returns the model identifier.
	Name() string

	// Provider returns the provider type.
	Provider() Provider

	// GenerateContent produces a single complete response for the request.
	GenerateContent(ctx context.Context, req *Request) (*Response, error)
}

// Provider identifies the LLM provider.
type Provider string

const (
	ProviderOpenAI  Provider = "openai"
	ProviderGemini  Provider = "gemini"
	ProviderOllama  Provider = "ollama"
	ProviderUnknown Provider = "unknown"
)

// ParseProvider maps a configuration string to a Provider.
func ParseProvider(s string) Provider {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai":
		return ProviderOpenAI
	case "gemini", "google":
		return ProviderGemini
	case "ollama":
		return ProviderOllama
	default:
		return ProviderUnknown
	}
}

// Request contains the input for an LLM call.
type Request struct {
	// Messages is the conversation history.
	Messages []*a2a.Message

	// Tools available for the model to call.
	Tools []tool.Definition

	// Config contains generation configuration.
	Config *GenerateConfig

	// SystemInstruction is prepended to the conversation.
	SystemInstruction string
}

// GenerateConfig contains configuration for generation.
type GenerateConfig struct {
	Temperature *float64
	MaxTokens   *int

	// ResponseSchema constrains the final answer to a JSON schema.
	ResponseSchema map[string]any

	// ResponseSchemaName identifies the schema for providers that require it.
	// Default: "response"
	ResponseSchemaName string

	// ResponseSchemaStrict enables strict schema validation.
	// Default: true (nil means true)
	ResponseSchemaStrict *bool
}

// Clone returns a copy that can be modified without touching c.
// The schema map is shared; it is treated as immutable.
func (c *GenerateConfig) Clone() *GenerateConfig {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Temperature != nil {
		t := *c.Temperature
		clone.Temperature = &t
	}
	if c.MaxTokens != nil {
		m := *c.MaxTokens
		clone.MaxTokens = &m
	}
	if c.ResponseSchemaStrict != nil {
		s := *c.ResponseSchemaStrict
		clone.ResponseSchemaStrict = &s
	}
	return &clone
}

// Response contains the result of an LLM call.
type Response struct {
	// Content is the generated content (text and tool_use parts).
	Content *Content

	// ToolCalls requested by the model.
	ToolCalls []tool.ToolCall

	Usage *Usage

	FinishReason FinishReason
}

// Content represents the content of a response.
type Content struct {
	Parts []a2a.Part
	Role  a2a.MessageRole
}

// Usage contains token usage statistics.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// FinishReason indicates why generation stopped.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonLength    FinishReason = "length"
	FinishReasonToolCalls FinishReason = "tool_calls"
	FinishReasonContent   FinishReason = "content_filter"
	FinishReasonError     FinishReason = "error"
)

// TextContent extracts text from a response.
func (r *Response) TextContent() string {
	if r == nil || r.Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range r.Content.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			text.WriteString(tp.Text)
		}
	}
	return text.String()
}

// HasToolCalls returns whether the response contains tool calls.
func (r *Response) HasToolCalls() bool {
	return r != nil && len(r.ToolCalls) > 0
}

// ToMessage converts a Response to an a2a.Message.
func (r *Response) ToMessage() *a2a.Message {
	if r == nil || r.Content == nil {
		return nil
	}
	return a2a.NewMessage(r.Content.Role, r.Content.Parts...)
}

// ToolUsePart encodes a tool call as a message part.
func ToolUsePart(tc tool.ToolCall) a2a.Part {
	return a2a.DataPart{Data: map[string]any{
		"type":      "tool_use",
		"id":        tc.ID,
		"name":      tc.Name,
		"arguments": tc.Args,
	}}
}

// ToolResultPart encodes a tool result as a message part.
func ToolResultPart(tr tool.ToolResult) a2a.Part {
	data := map[string]any{
		"type":         "tool_result",
		"tool_call_id": tr.ToolCallID,
		"tool_name":    tr.ToolName,
		"content":      tr.Content,
	}
	if tr.Error != "" {
		data["is_error"] = true
	}
	return a2a.DataPart{Data: data}
}

// ToolCalls returns the tool_use parts of msg.
func ToolCalls(msg *a2a.Message) []tool.ToolCall {
	var calls []tool.ToolCall
	for _, part := range msg.Parts {
		dp, ok := part.(a2a.DataPart)
		if !ok || dp.Data["type"] != "tool_use" {
			continue
		}
		tc := tool.ToolCall{ID: getString(dp.Data, "id"), Name: getString(dp.Data, "name")}
		if args, ok := dp.Data["arguments"].(map[string]any); ok {
			tc.Args = args
		}
		calls = append(calls, tc)
	}
	return calls
}

// ToolResults returns the tool_result parts of msg.
func ToolResults(msg *a2a.Message) []tool.ToolResult {
	var results []tool.ToolResult
	for _, part := range msg.Parts {
		dp, ok := part.(a2a.DataPart)
		if !ok || dp.Data["type"] != "tool_result" {
			continue
		}
		results = append(results, tool.ToolResult{
			ToolCallID: getString(dp.Data, "tool_call_id"),
			ToolName:   getString(dp.Data, "tool_name"),
			Content:    getString(dp.Data, "content"),
		})
	}
	return results
}

// MessageText concatenates the text parts of msg.
func MessageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range msg.Parts {
		if tp, ok := part.(a2a.TextPart); ok {
			text.WriteString(tp.Text)
		}
	}
	return text.String()
}

// SchemaInstruction appends a JSON answer format to instruction. It is
// used by providers that cannot combine native structured output with
// function calling.
func SchemaInstruction(instruction string, schema map[string]any) string {
	data, err := json.Marshal(schema)
	if err != nil {
		return instruction
	}
	return strings.TrimSpace(instruction + "\n\nWhen you give your final answer, reply with a single JSON object matching this schema and nothing else:\n" + string(data))
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
