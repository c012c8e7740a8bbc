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

package llmagent

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

// flow holds the conversation of a single agent run.
type flow struct {
	agent    *llmAgent
	messages []*a2a.Message
}

func newFlow(a *llmAgent) *flow {
	return &flow{agent: a}
}

func (f *flow) run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		input, err := f.agent.buildInput(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		f.messages = append(f.messages, input)

		for iteration := 1; ; iteration++ {
			if f.agent.maxIterations > 0 && iteration > f.agent.maxIterations {
				yield(nil, fmt.Errorf("no final answer after %d model calls", f.agent.maxIterations))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if err := ctx.Turns().Consume(); err != nil {
				yield(nil, err)
				return
			}

			resp, err := f.callLLM(ctx)
			if err != nil {
				yield(nil, err)
				return
			}

			msg := resp.ToMessage()
			if msg == nil {
				msg = a2a.NewMessage(a2a.MessageRoleAgent)
			}
			f.messages = append(f.messages, msg)

			if !resp.HasToolCalls() {
				event, err := f.finalEvent(ctx, resp, msg)
				if err != nil {
					yield(nil, err)
					return
				}
				yield(event, nil)
				return
			}

			if !yield(f.newEvent(ctx, msg), nil) {
				return
			}

			results := f.handleToolCalls(ctx, resp.ToolCalls)
			f.messages = append(f.messages, results)
			if !yield(f.newEvent(ctx, results), nil) {
				return
			}
		}
	}
}

func (f *flow) callLLM(ctx agent.InvocationContext) (*model.Response, error) {
	a := f.agent
	req := &model.Request{
		Messages:          f.messages,
		Tools:             a.toolDefs,
		Config:            a.generateConfig,
		SystemInstruction: a.instruction,
	}

	var maxTokens int
	var temperature float64
	if a.generateConfig.MaxTokens != nil {
		maxTokens = *a.generateConfig.MaxTokens
	}
	if a.generateConfig.Temperature != nil {
		temperature = *a.generateConfig.Temperature
	}

	start := time.Now()
	spanCtx, span := a.tracer.StartLLMCall(ctx, a.model.Name(), maxTokens, temperature)
	defer span.End()

	resp, err := a.model.GenerateContent(spanCtx, req)

	var in, out int
	if resp != nil && resp.Usage != nil {
		in, out = resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	}
	a.metrics.RecordLLMCall(ctx, a.model.Name(), time.Since(start), in, out, err)

	if err != nil {
		a.tracer.RecordError(span, err)
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("model returned no response")
	}
	a.tracer.AddLLMUsage(span, in, out, string(resp.FinishReason))

	slog.Debug("Model responded",
		"agent", a.Name(),
		"tool_calls", len(resp.ToolCalls),
		"input_tokens", in,
		"output_tokens", out,
		"finish_reason", resp.FinishReason)

	return resp, nil
}

// handleToolCalls runs every requested call in order. Failures are
// reported to the model as error results so it can recover.
func (f *flow) handleToolCalls(ctx agent.InvocationContext, calls []tool.ToolCall) *a2a.Message {
	parts := make([]a2a.Part, 0, len(calls))
	for _, tc := range calls {
		result := f.callTool(ctx, tc)
		parts = append(parts, model.ToolResultPart(result))
	}
	return a2a.NewMessage(a2a.MessageRoleUser, parts...)
}

func (f *flow) callTool(ctx agent.InvocationContext, tc tool.ToolCall) tool.ToolResult {
	a := f.agent
	result := tool.ToolResult{ToolCallID: tc.ID, ToolName: tc.Name}

	t, ok := a.tools[tc.Name]
	if !ok {
		result.Error = fmt.Sprintf("tool %q not found", tc.Name)
		result.Content = "Error: " + result.Error
		slog.Warn("Model requested unknown tool", "agent", a.Name(), "tool", tc.Name)
		return result
	}

	start := time.Now()
	spanCtx, span := a.tracer.StartToolExecution(ctx, tc.Name, tc.ID)
	defer span.End()

	slog.Info("Calling tool", "agent", a.Name(), "tool", tc.Name, "call_id", tc.ID)
	out, err := t.Call(tool.NewContext(spanCtx, a.Name(), tc.ID), tc.Args)
	a.metrics.RecordToolExecution(ctx, tc.Name, time.Since(start), err)

	if err != nil {
		a.tracer.RecordError(span, err)
		slog.Warn("Tool failed", "agent", a.Name(), "tool", tc.Name, "error", err)
		result.Error = err.Error()
		result.Content = "Error: " + err.Error()
		return result
	}

	data, err := json.Marshal(out)
	if err != nil {
		result.Error = fmt.Sprintf("failed to encode result: %v", err)
		result.Content = "Error: " + result.Error
		return result
	}
	result.Content = string(data)
	return result
}

func (f *flow) finalEvent(ctx agent.InvocationContext, resp *model.Response, msg *a2a.Message) (*agent.Event, error) {
	output, err := f.agent.decodeOutput(resp.TextContent())
	if err != nil {
		return nil, err
	}

	event := f.newEvent(ctx, msg)
	if f.agent.outputKey != "" {
		if err := ctx.State().Set(f.agent.outputKey, output); err != nil {
			return nil, fmt.Errorf("failed to store output: %w", err)
		}
		event.Actions.StateDelta[f.agent.outputKey] = output
	}
	return event, nil
}

func (f *flow) newEvent(ctx agent.InvocationContext, msg *a2a.Message) *agent.Event {
	event := agent.NewEvent(ctx.InvocationID())
	event.Author = f.agent.Name()
	event.Branch = ctx.Branch()
	event.Message = msg
	return event
}
