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

// Package openai implements model.LLM on top of the OpenAI Responses API
// (POST /v1/responses).
//
// Tool calls map to function_call / function_call_output items and a
// response schema maps to a strict json_schema text format.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"

	"github.com/kadirpekel/newsmind/pkg/httpclient"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultModel      = "gpt-4"
	defaultMaxTokens  = 4096
	defaultTimeout    = 120 * time.Second
	defaultMaxRetries = 5
)

// Config configures the OpenAI client.
type Config struct {
	// APIKey is required.
	APIKey string

	// BaseURL overrides the API root.
	// Default: "https://api.openai.com/v1"
	BaseURL string

	// Model name.
	// Default: "gpt-4"
	Model string

	// MaxTokens caps output tokens per response.
	// Default: 4096
	MaxTokens int

	Temperature *float64

	// Timeout per HTTP request.
	// Default: 120s
	Timeout time.Duration

	// MaxRetries for 429 and 5xx responses.
	// Default: 5
	MaxRetries int

	// HTTPClient replaces the underlying transport client.
	HTTPClient *http.Client
}

// Client is an OpenAI Responses API client.
type Client struct {
	httpClient  *httpclient.Client
	apiKey      string
	baseURL     string
	modelName   string
	maxTokens   int
	temperature *float64
}

var _ model.LLM = (*Client)(nil)

// New creates a new OpenAI client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpclient.New(
			httpclient.WithName("openai"),
			httpclient.WithHTTPClient(base),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		modelName:   cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name returns the model identifier.
func (c *Client) Name() string {
	return c.modelName
}

// Provider returns the provider type.
func (c *Client) Provider() model.Provider {
	return model.ProviderOpenAI
}

// GenerateContent sends one Responses API request.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			if bodyBytes, _ := io.ReadAll(resp.Body); len(bodyBytes) > 0 {
				return nil, fmt.Errorf("request failed: %w - response: %s", err, apiErrorMessage(bodyBytes))
			}
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, apiErrorMessage(bodyBytes))
	}

	var apiResp responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return c.parseResponse(&apiResp)
}

func (c *Client) buildRequest(req *model.Request) *responsesRequest {
	apiReq := &responsesRequest{
		Model:        c.modelName,
		Instructions: req.SystemInstruction,
		Input:        convertMessages(req.Messages),
	}

	maxTokens := c.maxTokens
	temperature := c.temperature
	if cfg := req.Config; cfg != nil {
		if cfg.MaxTokens != nil {
			maxTokens = *cfg.MaxTokens
		}
		if cfg.Temperature != nil {
			temperature = cfg.Temperature
		}
	}
	if maxTokens > 0 {
		apiReq.MaxOutputTokens = &maxTokens
	}
	apiReq.Temperature = temperature

	if len(req.Tools) > 0 {
		apiReq.Tools = convertTools(req.Tools)
		apiReq.ToolChoice = "auto"
	}

	if req.Config != nil && req.Config.ResponseSchema != nil {
		name := req.Config.ResponseSchemaName
		if name == "" {
			name = "response"
		}
		strict := true
		if req.Config.ResponseSchemaStrict != nil {
			strict = *req.Config.ResponseSchemaStrict
		}
		apiReq.Text = &textFormat{
			Format: &jsonSchemaFormat{
				Type:   "json_schema",
				Name:   name,
				Strict: strict,
				Schema: req.Config.ResponseSchema,
			},
		}
	}

	return apiReq
}

// convertMessages flattens a2a messages into Responses API input items.
func convertMessages(messages []*a2a.Message) []inputItem {
	var items []inputItem

	for _, msg := range messages {
		if msg == nil {
			continue
		}

		if results := model.ToolResults(msg); len(results) > 0 {
			for _, tr := range results {
				output := tr.Content
				items = append(items, inputItem{
					Type:   "function_call_output",
					CallID: tr.ToolCallID,
					Output: &output,
				})
			}
			continue
		}

		role := "user"
		textType := "input_text"
		if msg.Role == a2a.MessageRoleAgent {
			role = "assistant"
			textType = "output_text"
		}

		if text := model.MessageText(msg); text != "" {
			items = append(items, inputItem{
				Type:    "message",
				Role:    role,
				Content: []map[string]any{{"type": textType, "text": text}},
			})
		}

		if msg.Role == a2a.MessageRoleAgent {
			for _, tc := range model.ToolCalls(msg) {
				argsJSON, _ := json.Marshal(tc.Args)
				if tc.Args == nil {
					argsJSON = []byte("{}")
				}
				items = append(items, inputItem{
					Type:      "function_call",
					CallID:    tc.ID,
					Name:      tc.Name,
					Arguments: string(argsJSON),
				})
			}
		}
	}

	return items
}

func convertTools(tools []tool.Definition) []apiTool {
	result := make([]apiTool, len(tools))
	for i, t := range tools {
		result[i] = apiTool{
			Type:        "function",
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		}
	}
	return result
}

func (c *Client) parseResponse(resp *responsesResponse) (*model.Response, error) {
	if resp.Error != nil {
		return nil, fmt.Errorf("API error: %s", resp.Error.Message)
	}

	if resp.Status != "completed" {
		msg := fmt.Sprintf("response incomplete: status=%s", resp.Status)
		if resp.IncompleteDetails != nil {
			msg += fmt.Sprintf(", reason=%s", resp.IncompleteDetails.Reason)
		}
		return nil, fmt.Errorf("%s", msg)
	}

	if len(resp.Output) == 0 {
		return nil, fmt.Errorf("no output items in response")
	}

	result := &model.Response{
		Usage: &model.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		FinishReason: model.FinishReasonStop,
	}

	var parts []a2a.Part
	for _, item := range resp.Output {
		switch item.Type {
		case "message":
			if text := outputText(item); text != "" {
				parts = append(parts, a2a.TextPart{Text: text})
			}
		case "function_call":
			tc, err := parseFunctionCall(item)
			if err != nil {
				slog.Warn("Failed to parse function call", "error", err)
				continue
			}
			result.ToolCalls = append(result.ToolCalls, tc)
			parts = append(parts, model.ToolUsePart(tc))
			result.FinishReason = model.FinishReasonToolCalls
		}
	}

	if len(parts) > 0 {
		result.Content = &model.Content{
			Parts: parts,
			Role:  a2a.MessageRoleAgent,
		}
	}

	return result, nil
}

func outputText(item outputItem) string {
	var text strings.Builder
	for _, part := range item.Content {
		switch part.Type {
		case "output_text":
			text.WriteString(part.Text)
		case "refusal":
			text.WriteString(part.Refusal)
		}
	}
	return text.String()
}

func parseFunctionCall(item outputItem) (tool.ToolCall, error) {
	if item.Name == "" {
		return tool.ToolCall{}, fmt.Errorf("function_call name is empty")
	}

	args := make(map[string]any)
	if item.Arguments != "" {
		if err := json.Unmarshal([]byte(item.Arguments), &args); err != nil {
			return tool.ToolCall{}, fmt.Errorf("failed to parse function arguments: %w", err)
		}
	}

	callID := item.CallID
	if callID == "" {
		callID = item.ID
	}

	return tool.ToolCall{ID: callID, Name: item.Name, Args: args}, nil
}

// apiErrorMessage prefers the "error.message" field of an error body.
func apiErrorMessage(body []byte) string {
	var wrapper struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	return strings.TrimSpace(string(body))
}
