package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/newsmind/pkg/model"
	"github.com/kadirpekel/newsmind/pkg/tool"
)

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{BaseURL: "http://ollama:11434/"})
	require.NoError(t, err)
	assert.Equal(t, "llama3.2", c.Name())
	assert.Equal(t, model.ProviderOllama, c.Provider())
	assert.Equal(t, "http://ollama:11434", c.baseURL)
	assert.Equal(t, defaultKeepAlive, c.keepAlive)
}

func TestGenerateContent_ToolCall(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"model": "llama3.2",
			"message": {"role": "assistant", "content": "", "tool_calls": [
				{"function": {"name": "search_web", "arguments": {"query": "rates"}}}
			]},
			"done": true,
			"prompt_eval_count": 20,
			"eval_count": 5
		}`))
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, HTTPClient: srv.Client(), NumCtx: 8192})
	require.NoError(t, err)

	resp, err := c.GenerateContent(context.Background(), &model.Request{
		SystemInstruction: "Find sources.",
		Messages:          []*a2a.Message{a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "interest rates"})},
		Tools:             []tool.Definition{{Name: "search_web", Parameters: map[string]any{"type": "object"}}},
		Config:            &model.GenerateConfig{ResponseSchema: map[string]any{"type": "object"}},
	})
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Contains(t, got.Messages[0].Content, "single JSON object")
	assert.Nil(t, got.Format)
	assert.False(t, got.Stream)
	assert.EqualValues(t, 8192, got.Options["num_ctx"])
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "search_web", got.Tools[0].Function.Name)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "search_web", resp.ToolCalls[0].Name)
	assert.True(t, strings.HasPrefix(resp.ToolCalls[0].ID, "call_"))
	assert.Equal(t, model.FinishReasonToolCalls, resp.FinishReason)
	assert.Equal(t, 25, resp.Usage.TotalTokens)
}

func TestBuildRequest_SchemaWithoutTools(t *testing.T) {
	c, _ := New(Config{})
	temp := 0.2
	req := c.buildRequest(&model.Request{
		Config: &model.GenerateConfig{Temperature: &temp, ResponseSchema: map[string]any{"type": "object"}},
	})
	assert.Equal(t, map[string]any{"type": "object"}, req.Format)
	assert.Equal(t, 0.2, req.Options["temperature"])
	assert.Empty(t, req.Messages)
}

func TestConvertMessages(t *testing.T) {
	call := tool.ToolCall{ID: "call_1", Name: "scrape_web", Args: map[string]any{"links": []any{"https://a.example"}}}
	msgs := convertMessages([]*a2a.Message{
		a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "go"}),
		a2a.NewMessage(a2a.MessageRoleAgent, model.ToolUsePart(call)),
		a2a.NewMessage(a2a.MessageRoleUser,
			model.ToolResultPart(tool.ToolResult{ToolCallID: "call_1", ToolName: "scrape_web", Content: `{"chunks":[]}`})),
		a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: ""}),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "scrape_web", msgs[1].ToolCalls[0].Function.Name)
	assert.Equal(t, "tool", msgs[2].Role)
	assert.Equal(t, "scrape_web", msgs[2].ToolName)
}

func TestGenerateContent_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Model: "nope", HTTPClient: srv.Client()})
	_, err := c.GenerateContent(context.Background(), &model.Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `model "nope" not found`)
}
