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

// Package llmagent provides an agent driven by a language model.
//
// The agent sends its instruction, the user query and the output of the
// previous agent to the model, executes the tool calls the model asks for
// and feeds the results back until the model answers without tools. With
// an OutputSchema the answer is decoded as JSON and stored in the
// invocation state under OutputKey.
//
//	researcher, err := llmagent.New(llmagent.Config{
//	    Name:         "Research Analyst",
//	    Model:        llm,
//	    Instruction:  "Find recent news about the query.",
//	    Tools:        []tool.CallableTool{search},
//	    OutputSchema: schema.ForOutput[SourceOutput](),
//	    OutputKey:    "sources",
//	})
package llmagent

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/observability"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

// Config contains the configuration for an LLM agent.
type Config struct {
	// Name must be unique within the agent tree.
	Name string

	Description string

	// Model is the LLM to use for generation.
	Model model.LLM

	// Instruction is sent as the system instruction.
	Instruction string

	// GenerateConfig contains LLM generation settings.
	GenerateConfig *model.GenerateConfig

	// Tools available to the agent.
	Tools []tool.CallableTool

	// InputKey names a state key whose value is appended to the user
	// message as JSON. Used to hand the previous agent's output over.
	InputKey string

	// OutputKey saves the final answer to state under this key.
	OutputKey string

	// OutputSchema forces a JSON answer matching the schema.
	OutputSchema map[string]any

	// OutputSchemaName names the schema for providers that need one.
	// Default: derived from Name
	OutputSchemaName string

	// MaxIterations bounds model calls within one run of this agent.
	// 0 leaves the bound to the invocation's turn budget.
	MaxIterations int

	Tracer  *observability.Tracer
	Metrics *observability.Metrics
}

type llmAgent struct {
	agent.Agent

	model          model.LLM
	instruction    string
	generateConfig *model.GenerateConfig
	tools          map[string]tool.CallableTool
	toolDefs       []tool.Definition
	inputKey       string
	outputKey      string
	outputSchema   map[string]any
	maxIterations  int
	tracer         *observability.Tracer
	metrics        *observability.Metrics
}

// New creates an LLM agent.
func New(cfg Config) (agent.Agent, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("agent %q: model is required", cfg.Name)
	}

	a := &llmAgent{
		model:         cfg.Model,
		instruction:   cfg.Instruction,
		tools:         make(map[string]tool.CallableTool, len(cfg.Tools)),
		inputKey:      cfg.InputKey,
		outputKey:     cfg.OutputKey,
		outputSchema:  cfg.OutputSchema,
		maxIterations: cfg.MaxIterations,
		tracer:        cfg.Tracer,
		metrics:       cfg.Metrics,
	}

	for _, t := range cfg.Tools {
		if t == nil {
			return nil, fmt.Errorf("agent %q: nil tool", cfg.Name)
		}
		if _, dup := a.tools[t.Name()]; dup {
			return nil, fmt.Errorf("agent %q: duplicate tool %q", cfg.Name, t.Name())
		}
		a.tools[t.Name()] = t
		a.toolDefs = append(a.toolDefs, tool.ToDefinition(t))
	}

	genCfg := cfg.GenerateConfig.Clone()
	if genCfg == nil {
		genCfg = &model.GenerateConfig{}
	}
	if cfg.OutputSchema != nil {
		genCfg.ResponseSchema = cfg.OutputSchema
		genCfg.ResponseSchemaName = cfg.OutputSchemaName
		if genCfg.ResponseSchemaName == "" {
			genCfg.ResponseSchemaName = schemaName(cfg.Name)
		}
	}
	a.generateConfig = genCfg

	base, err := agent.New(agent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Run:         a.run,
	})
	if err != nil {
		return nil, err
	}
	a.Agent = base

	return a, nil
}

func (a *llmAgent) run(ctx agent.InvocationContext) iter.Seq2[*agent.Event, error] {
	return func(yield func(*agent.Event, error) bool) {
		start := time.Now()
		spanCtx, span := a.tracer.StartAgentRun(ctx, a.Name(), ctx.InvocationID())
		defer span.End()

		runCtx := agent.NewInvocationContext(spanCtx, agent.InvocationContextParams{
			Agent:        ctx.Agent(),
			InvocationID: ctx.InvocationID(),
			Branch:       ctx.Branch(),
			UserContent:  ctx.UserContent(),
			State:        ctx.State(),
			Turns:        ctx.Turns(),
		})

		slog.Info("Agent started", "agent", a.Name(), "invocation", ctx.InvocationID())

		var runErr error
		for event, err := range newFlow(a).run(runCtx) {
			if err != nil {
				runErr = fmt.Errorf("agent %q: %w", a.Name(), err)
				yield(nil, runErr)
				break
			}
			if !yield(event, nil) {
				break
			}
		}

		a.tracer.RecordError(span, runErr)
		a.metrics.RecordAgentRun(ctx, a.Name(), time.Since(start), runErr)
		if runErr == nil {
			slog.Info("Agent finished", "agent", a.Name(), "duration", time.Since(start).Round(time.Millisecond))
		}
	}
}

// buildInput creates the first user message of the run: the user query
// followed by the previous agent's output, if any.
func (a *llmAgent) buildInput(ctx agent.InvocationContext) (*a2a.Message, error) {
	parts := []a2a.Part{a2a.TextPart{Text: model.MessageText(ctx.UserContent())}}

	if a.inputKey != "" {
		value, err := ctx.State().Get(a.inputKey)
		if err != nil {
			return nil, fmt.Errorf("missing input from previous step: %w", err)
		}
		var text string
		if s, ok := value.(string); ok {
			text = s
		} else {
			data, err := json.MarshalIndent(value, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to encode input %q: %w", a.inputKey, err)
			}
			text = string(data)
		}
		parts = append(parts, a2a.TextPart{Text: "\n\nOutput of the previous step:\n" + text})
	}

	return a2a.NewMessage(a2a.MessageRoleUser, parts...), nil
}

var fencePattern = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// decodeOutput parses the final answer. Without a schema the text itself
// is the output.
func (a *llmAgent) decodeOutput(text string) (any, error) {
	if a.outputSchema == nil {
		return text, nil
	}

	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON output: %w", err)
	}

	for _, field := range requiredFields(a.outputSchema) {
		if _, ok := out[field]; !ok {
			return nil, fmt.Errorf("model output is missing required field %q", field)
		}
	}
	return out, nil
}

func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		fields := make([]string, 0, len(req))
		for _, f := range req {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	}
	return nil
}

var nonSchemaChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func schemaName(agentName string) string {
	name := strings.Trim(nonSchemaChars.ReplaceAllString(strings.ToLower(agentName), "_"), "_")
	if name == "" {
		return "response"
	}
	return name + "_output"
}
