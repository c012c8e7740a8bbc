package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/newsmind/pkg/agent"
	"github.com/kadirpekel/newsmind/pkg/agent/llmagent"
	"github.com/kadirpekel/newsmind/pkg/agent/workflowagent"
	"github.com/kadirpekel/newsmind/pkg/model/modeltest"
	"github.com/kadirpekel/newsmind/pkg/tool"
	"github.com/kadirpekel/newsmind/pkg/tool/functiontool"
)

type echoArgs struct {
	Text string `json:"text"`
}

func echoTool(t *testing.T) tool.CallableTool {
	t.Helper()
	et, err := functiontool.New(functiontool.Config{Name: "echo", Description: "Echo text"},
		func(ctx tool.Context, args echoArgs) (map[string]any, error) {
			return map[string]any{"text": args.Text}, nil
		})
	require.NoError(t, err)
	return et
}

func chain(t *testing.T, steps ...modeltest.Step) (agent.Agent, *modeltest.ScriptedLLM) {
	t.Helper()
	llm := modeltest.New("fake", steps...)

	first, err := llmagent.New(llmagent.Config{Name: "first", Model: llm, Tools: []tool.CallableTool{echoTool(t)}, OutputKey: "first"})
	require.NoError(t, err)
	second, err := llmagent.New(llmagent.Config{Name: "second", Model: llm, InputKey: "first", OutputKey: "second"})
	require.NoError(t, err)

	root, err := workflowagent.NewSequential(workflowagent.SequentialConfig{
		Name:      "root",
		SubAgents: []agent.Agent{first, second},
	})
	require.NoError(t, err)
	return root, llm
}

func userMessage(text string) *a2a.Message {
	return a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: text})
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	root, _ := chain(t)
	r, err := New(Config{Agent: root})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTurns, r.maxTurns)
	assert.Equal(t, "root", r.appName)
	assert.Equal(t, root, r.RootAgent())
}

func TestRunToCompletion(t *testing.T) {
	root, llm := chain(t,
		modeltest.ToolCall("c1", "echo", map[string]any{"text": "hi"}),
		modeltest.Text("first done"),
		modeltest.Text("second done"),
	)
	r, err := New(Config{Agent: root})
	require.NoError(t, err)

	res, err := r.RunToCompletion(context.Background(), userMessage("query"))
	require.NoError(t, err)

	assert.NotEmpty(t, res.InvocationID)
	assert.Equal(t, 3, res.Turns)
	assert.Equal(t, "second", res.Final.Author)
	assert.Equal(t, "second done", res.Final.TextContent())

	v, err := res.State.Get("first")
	require.NoError(t, err)
	assert.Equal(t, "first done", v)
	assert.Equal(t, 0, llm.Remaining())
}

func TestRunToCompletion_MaxTurns(t *testing.T) {
	root, _ := chain(t,
		modeltest.ToolCall("c1", "echo", map[string]any{"text": "a"}),
		modeltest.ToolCall("c2", "echo", map[string]any{"text": "b"}),
		modeltest.Text("first done"),
		modeltest.Text("second done"),
	)
	r, err := New(Config{Agent: root, MaxTurns: 2})
	require.NoError(t, err)

	_, err = r.RunToCompletion(context.Background(), userMessage("query"))
	assert.ErrorIs(t, err, ErrMaxTurnsExceeded)
}

func TestRunToCompletion_Error(t *testing.T) {
	boom := errors.New("provider down")
	root, _ := chain(t, modeltest.Text("first done"), modeltest.Fail(boom))
	r, err := New(Config{Agent: root})
	require.NoError(t, err)

	_, err = r.RunToCompletion(context.Background(), userMessage("query"))
	assert.ErrorIs(t, err, boom)
}
