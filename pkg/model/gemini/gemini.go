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

// Package gemini implements model.LLM for Google Gemini models using the
// official google.golang.org/genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

const defaultModel = "gemini-2.0-flash"

// Config contains configuration for the Gemini model.
type Config struct {
	// APIKey is the Google AI API key.
	APIKey string

	// Model name.
	// Default: "gemini-2.0-flash"
	Model string

	MaxTokens int

	Temperature *float64
}

type geminiModel struct {
	client *genai.Client
	name   string
	config Config
}

var _ model.LLM = (*geminiModel)(nil)

// New creates a Gemini model.
func New(ctx context.Context, cfg Config) (model.LLM, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiModel{client: client, name: cfg.Model, config: cfg}, nil
}

func (m *geminiModel) Name() string {
	return m.name
}

func (m *geminiModel) Provider() model.Provider {
	return model.ProviderGemini
}

func (m *geminiModel) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if c := messageToContent(msg); c != nil {
			contents = append(contents, c)
		}
	}

	genResp, err := m.client.Models.GenerateContent(ctx, m.name, contents, m.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}

	return parseResponse(genResp)
}

// buildConfig maps the request settings onto a genai config. Gemini does
// not accept a response schema together with function declarations, so
// when both are present the schema is moved into the system instruction.
func (m *geminiModel) buildConfig(req *model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	instruction := req.SystemInstruction

	if m.config.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*m.config.Temperature))
	}
	if m.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(m.config.MaxTokens)
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			config.Temperature = genai.Ptr(float32(*cfg.Temperature))
		}
		if cfg.MaxTokens != nil {
			config.MaxOutputTokens = int32(*cfg.MaxTokens)
		}
		if cfg.ResponseSchema != nil {
			if len(req.Tools) == 0 {
				config.ResponseMIMEType = "application/json"
				config.ResponseSchema = toGenaiSchema(cfg.ResponseSchema)
			} else {
				instruction = model.SchemaInstruction(instruction, cfg.ResponseSchema)
			}
		}
	}

	if instruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGenaiSchema(t.Parameters),
			})
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	return config
}

func messageToContent(msg *a2a.Message) *genai.Content {
	if msg == nil {
		return nil
	}

	var parts []*genai.Part
	for _, p := range msg.Parts {
		switch part := p.(type) {
		case a2a.TextPart:
			if part.Text != "" {
				parts = append(parts, &genai.Part{Text: part.Text})
			}
		case a2a.DataPart:
			switch part.Data["type"] {
			case "tool_use":
				name, _ := part.Data["name"].(string)
				id, _ := part.Data["id"].(string)
				args, _ := part.Data["arguments"].(map[string]any)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: id, Name: name, Args: args},
				})
			case "tool_result":
				name, _ := part.Data["tool_name"].(string)
				id, _ := part.Data["tool_call_id"].(string)
				content, _ := part.Data["content"].(string)
				parts = append(parts, &genai.Part{
					FunctionResponse: &genai.FunctionResponse{
						ID:       id,
						Name:     name,
						Response: map[string]any{"result": content},
					},
				})
			}
		}
	}

	if len(parts) == 0 {
		return nil
	}

	role := genai.RoleUser
	if msg.Role == a2a.MessageRoleAgent {
		role = genai.RoleModel
	}
	return &genai.Content{Parts: parts, Role: role}
}

// toGenaiSchema converts a JSON schema to the Gemini subset. Keywords
// Gemini does not support, such as additionalProperties, are dropped.
func toGenaiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	s := &genai.Schema{}
	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	switch required := schema["required"].(type) {
	case []string:
		s.Required = append(s.Required, required...)
	case []any:
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGenaiSchema(items)
	}
	if enum, ok := schema["enum"].([]any); ok {
		for _, e := range enum {
			if es, ok := e.(string); ok {
				s.Enum = append(s.Enum, es)
			}
		}
	}
	return s
}

func parseResponse(genResp *genai.GenerateContentResponse) (*model.Response, error) {
	if genResp == nil || len(genResp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	candidate := genResp.Candidates[0]
	resp := &model.Response{FinishReason: mapFinishReason(candidate.FinishReason)}

	if candidate.Content != nil {
		var parts []a2a.Part
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				parts = append(parts, a2a.TextPart{Text: part.Text})
			}
			if part.FunctionCall != nil {
				tc := tool.ToolCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: part.FunctionCall.Args,
				}
				if tc.ID == "" {
					tc.ID = "call_" + uuid.NewString()
				}
				resp.ToolCalls = append(resp.ToolCalls, tc)
				parts = append(parts, model.ToolUsePart(tc))
			}
		}
		resp.Content = &model.Content{Parts: parts, Role: a2a.MessageRoleAgent}
	}

	if len(resp.ToolCalls) > 0 {
		resp.FinishReason = model.FinishReasonToolCalls
	}

	if genResp.UsageMetadata != nil {
		resp.Usage = &model.Usage{
			PromptTokens:     int(genResp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(genResp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(genResp.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}

func mapFinishReason(reason genai.FinishReason) model.FinishReason {
	switch reason {
	case genai.FinishReasonMaxTokens:
		return model.FinishReasonLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		return model.FinishReasonContent
	default:
		return model.FinishReasonStop
	}
}
