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


// Package ollama implements model.LLM against a local Ollama server
// (POST /api/chat, non-streaming).
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/google/uuid"

	"github.com/kadirpekel/newsmind/pkg/httpclient"
	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

const (
	defaultBaseURL   = "http://localhost:11434"
	defaultModel     = "llama3.2"
	defaultTimeout   = 300 * time.Second
	defaultKeepAlive = "5m"
)

// Config configures the Ollama client.
type Config struct {
	// BaseURL is the Ollama server URL.
	// Default: "http://localhost:11434"
	BaseURL string

	// Model name.
	// Default: "llama3.2"
	Model string

	Temperature *float64

	// NumCtx sets the context window size. Scraped content is long, so
	// the server default is often too small.
	NumCtx int

	// KeepAlive controls how long the model stays loaded.
	// Default: "5m"
	KeepAlive string

	// Timeout per HTTP request. The first request loads the model.
	// Default: 300s
	Timeout time.Duration

	// MaxRetries for 429 and 5xx responses.
	// Default: 3
	MaxRetries int

	HTTPClient *http.Client
}

// Client is an Ollama chat client.
type Client struct {
	httpClient  *httpclient.Client
	baseURL     string
	modelName   string
	temperature *float64
	numCtx      int
	keepAlive   string
}

var _ model.LLM = (*Client)(nil)

// New creates a new Ollama client. No API key is needed.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = defaultKeepAlive
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpclient.New(
			httpclient.WithName("ollama"),
			httpclient.WithHTTPClient(base),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(2*time.Second),
		),
		baseURL:     baseURL,
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		numCtx:      cfg.NumCtx,
		keepAlive:   cfg.KeepAlive,
	}, nil
}

func (c *Client) Name() string {
	return c.modelName
}

func (c *Client) Provider() model.Provider {
	return model.ProviderOllama
}

// GenerateContent sends one chat request and waits for the full reply.
func (c *Client) GenerateContent(ctx context.Context, req *model.Request) (*model.Response, error) {
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, errorMessage(bodyBytes))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return parseResponse(&apiResp), nil
}

// buildRequest maps a model.Request onto /api/chat. Ollama's "format"
// field forces JSON on every turn, so with tools present the schema is
// carried in the system prompt instead.
func (c *Client) buildRequest(req *model.Request) *chatRequest {
	apiReq := &chatRequest{
		Model:     c.modelName,
		KeepAlive: c.keepAlive,
	}

	options := make(map[string]any)
	temperature := c.temperature
	if c.numCtx > 0 {
		options["num_ctx"] = c.numCtx
	}

	instruction := req.SystemInstruction
	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			temperature = cfg.Temperature
		}
		if cfg.MaxTokens != nil {
			options["num_predict"] = *cfg.MaxTokens
		}
		if cfg.ResponseSchema != nil {
			if len(req.Tools) == 0 {
				apiReq.Format = cfg.ResponseSchema
			} else {
				instruction = model.SchemaInstruction(instruction, cfg.ResponseSchema)
			}
		}
	}
	if temperature != nil {
		options["temperature"] = *temperature
	}
	if len(options) > 0 {
		apiReq.Options = options
	}

	if instruction != "" {
		apiReq.Messages = append(apiReq.Messages, chatMessage{Role: "system", Content: instruction})
	}
	apiReq.Messages = append(apiReq.Messages, convertMessages(req.Messages)...)

	for _, t := range req.Tools {
		apiReq.Tools = append(apiReq.Tools, apiTool{
			Type: "function",
			Function: functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return apiReq
}

// convertMessages maps a2a messages to chat messages. Every tool result
// becomes its own "tool" message.
func convertMessages(messages []*a2a.Message) []chatMessage {
	var out []chatMessage
	for _, msg := range messages {
		if msg == nil {
			continue
		}

		if results := model.ToolResults(msg); len(results) > 0 {
			for _, tr := range results {
				out = append(out, chatMessage{Role: "tool", Content: tr.Content, ToolName: tr.ToolName})
			}
			continue
		}

		cm := chatMessage{Role: "user", Content: model.MessageText(msg)}
		if msg.Role == a2a.MessageRoleAgent {
			cm.Role = "assistant"
			for _, tc := range model.ToolCalls(msg) {
				args := tc.Args
				if args == nil {
					args = map[string]any{}
				}
				cm.ToolCalls = append(cm.ToolCalls, toolCall{Function: functionCall{Name: tc.Name, Arguments: args}})
			}
		}
		if cm.Content == "" && len(cm.ToolCalls) == 0 {
			continue
		}
		out = append(out, cm)
	}
	return out
}

// parseResponse converts a chat reply. Ollama does not assign call ids,
// so each call gets a generated one.
func parseResponse(resp *chatResponse) *model.Response {
	result := &model.Response{FinishReason: model.FinishReasonStop}
	if resp.DoneReason == "length" {
		result.FinishReason = model.FinishReasonLength
	}

	var parts []a2a.Part
	if resp.Message != nil {
		if resp.Message.Content != "" {
			parts = append(parts, a2a.TextPart{Text: resp.Message.Content})
		}
		for _, tc := range resp.Message.ToolCalls {
			if tc.Function.Name == "" {
				continue
			}
			call := tool.ToolCall{
				ID:   "call_" + uuid.NewString(),
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			}
			result.ToolCalls = append(result.ToolCalls, call)
			parts = append(parts, model.ToolUsePart(call))
			result.FinishReason = model.FinishReasonToolCalls
		}
	}

	if len(parts) > 0 {
		result.Content = &model.Content{Parts: parts, Role: a2a.MessageRoleAgent}
	}

	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		result.Usage = &model.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		}
	}

	return result
}

func errorMessage(body []byte) string {
	var wrapper struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error != "" {
		return wrapper.Error
	}
	return strings.TrimSpace(string(body))
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Tools     []apiTool      `json:"tools,omitempty"`
	Format    any            `json:"format,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
	ToolName  string     `json:"tool_name,omitempty"`
}

type toolCall struct {
	Function functionCall `json:"function"`
}

type functionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type apiTool struct {
	Type     string      `json:"type"`
	Function functionDef `json:"function"`
}

type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type chatResponse struct {
	Model           string       `json:"model"`
	Message         *chatMessage `json:"message,omitempty"`
	Done            bool         `json:"done"`
	DoneReason      string       `json:"done_reason,omitempty"`
	PromptEvalCount int          `json:"prompt_eval_count,omitempty"`
	EvalCount       int          `json:"eval_count,omitempty"`
}
