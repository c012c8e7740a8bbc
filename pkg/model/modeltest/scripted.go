// Package modeltest provides a scripted model.LLM for deterministic tests.
package modeltest

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

// Step produces one scripted response.
type Step func(req *model.Request) (*model.Response, error)

// ScriptedLLM replays its steps in order, one per GenerateContent call.
type ScriptedLLM struct {
	name string

	mu       sync.Mutex
	steps    []Step
	requests []*model.Request
}

var _ model.LLM = (*ScriptedLLM)(nil)

// New creates a ScriptedLLM.
func New(name string, steps ...Step) *ScriptedLLM {
	return &ScriptedLLM{name: name, steps: steps}
}

func (s *ScriptedLLM) Name() string             { return s.name }
func (s *ScriptedLLM) Provider() model.Provider { return model.ProviderUnknown }

// GenerateContent returns the next scripted response.
func (s *ScriptedLLM) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	snapshot := *req
	snapshot.Messages = slices.Clone(req.Messages)
	s.requests = append(s.requests, &snapshot)
	if len(s.steps) == 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("no scripted response left (call %d)", len(s.requests))
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	s.mu.Unlock()

	return step(req)
}

// Requests returns every request received so far.
func (s *ScriptedLLM) Requests() []*model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.requests)
}

// Remaining returns the number of unused steps.
func (s *ScriptedLLM) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

// Text answers with plain text.
func Text(text string) Step {
	return func(*model.Request) (*model.Response, error) {
		return TextResponse(text), nil
	}
}

// JSON answers with v encoded as JSON text.
func JSON(v any) Step {
	return func(*model.Request) (*model.Response, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return TextResponse(string(data)), nil
	}
}

// ToolCall asks for a single tool call.
func ToolCall(id, name string, args map[string]any) Step {
	return func(*model.Request) (*model.Response, error) {
		tc := tool.ToolCall{ID: id, Name: name, Args: args}
		return &model.Response{
			Content: &model.Content{
				Role:  a2a.MessageRoleAgent,
				Parts: []a2a.Part{model.ToolUsePart(tc)},
			},
			ToolCalls:    []tool.ToolCall{tc},
			Usage:        &model.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			FinishReason: model.FinishReasonToolCalls,
		}, nil
	}
}

// Fail returns err.
func Fail(err error) Step {
	return func(*model.Request) (*model.Response, error) {
		return nil, err
	}
}

// TextResponse builds a final text response.
func TextResponse(text string) *model.Response {
	return &model.Response{
		Content: &model.Content{
			Role:  a2a.MessageRoleAgent,
			Parts: []a2a.Part{a2a.TextPart{Text: text}},
		},
		Usage:        &model.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30},
		FinishReason: model.FinishReasonStop,
	}
}
