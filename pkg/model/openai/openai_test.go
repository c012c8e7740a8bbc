package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Model: "gpt-4o", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	c, err := New(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", c.Name())
	assert.Equal(t, model.ProviderOpenAI, c.Provider())
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultMaxTokens, c.maxTokens)
}

func TestGenerateContent_FunctionCall(t *testing.T) {
	var got responsesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "resp_1",
			"status": "completed",
			"output": [
				{"type": "function_call", "call_id": "call_1", "name": "search_web", "arguments": "{\"query\":\"rates\"}"}
			],
			"usage": {"input_tokens": 12, "output_tokens": 7, "total_tokens": 19}
		}`))
	})

	req := &model.Request{
		SystemInstruction: "You are a research analyst.",
		Messages:          []*a2a.Message{a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "interest rates"})},
		Tools: []tool.Definition{{
			Name:        "search_web",
			Description: "Search news",
			Parameters:  map[string]any{"type": "object"},
		}},
		Config: &model.GenerateConfig{
			ResponseSchema:     map[string]any{"type": "object"},
			ResponseSchemaName: "source_output",
		},
	}

	resp, err := c.GenerateContent(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "You are a research analyst.", got.Instructions)
	assert.Equal(t, "auto", got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "function", got.Tools[0].Type)
	require.NotNil(t, got.Text)
	assert.Equal(t, "json_schema", got.Text.Format.Type)
	assert.Equal(t, "source_output", got.Text.Format.Name)
	assert.True(t, got.Text.Format.Strict)
	require.Len(t, got.Input, 1)
	assert.Equal(t, "input_text", got.Input[0].Content[0]["type"])

	require.True(t, resp.HasToolCalls())
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"query": "rates"}, resp.ToolCalls[0].Args)
	assert.Equal(t, model.FinishReasonToolCalls, resp.FinishReason)
	assert.Equal(t, 12, resp.Usage.PromptTokens)

	// The tool_use part survives the round trip through the conversation.
	assert.Len(t, model.ToolCalls(resp.ToMessage()), 1)
}

func TestGenerateContent_TextAfterToolResult(t *testing.T) {
	var got responsesRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"status": "completed",
			"output": [
				{"type": "message", "role": "assistant", "content": [{"type": "output_text", "text": "{\"news_links\":[\"https://a.example\"]}"}]}
			],
			"usage": {"input_tokens": 30, "output_tokens": 10, "total_tokens": 40}
		}`))
	})

	call := tool.ToolCall{ID: "call_1", Name: "search_web", Args: map[string]any{"query": "rates"}}
	messages := []*a2a.Message{
		a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "interest rates"}),
		a2a.NewMessage(a2a.MessageRoleAgent, model.ToolUsePart(call)),
		a2a.NewMessage(a2a.MessageRoleUser, model.ToolResultPart(tool.ToolResult{ToolCallID: "call_1", ToolName: "search_web", Content: `{"news_links":["https://a.example"]}`})),
	}

	resp, err := c.GenerateContent(context.Background(), &model.Request{Messages: messages})
	require.NoError(t, err)
	assert.Equal(t, `{"news_links":["https://a.example"]}`, resp.TextContent())
	assert.False(t, resp.HasToolCalls())

	require.Len(t, got.Input, 3)
	assert.Equal(t, "message", got.Input[0].Type)
	assert.Equal(t, "function_call", got.Input[1].Type)
	assert.Equal(t, `{"query":"rates"}`, got.Input[1].Arguments)
	assert.Equal(t, "function_call_output", got.Input[2].Type)
	assert.Equal(t, "call_1", got.Input[2].CallID)
	require.NotNil(t, got.Input[2].Output)
	assert.Nil(t, got.Text)
	assert.Empty(t, got.Tools)
}

func TestGenerateContent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, "API error (status 401): Incorrect API key provided"},
		{"incomplete", http.StatusOK, `{"status":"incomplete","incomplete_details":{"reason":"max_output_tokens"},"output":[]}`, "reason=max_output_tokens"},
		{"empty output", http.StatusOK, `{"status":"completed","output":[]}`, "no output items"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.GenerateContent(context.Background(), &model.Request{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
