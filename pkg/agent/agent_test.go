package agent

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopRun(ctx InvocationContext) iter.Seq2[*Event, error] {
	return func(yield func(*Event, error) bool) {}
}

func TestNew_Validation(t *testing.T) {
	leaf, err := New(Config{Name: "leaf", Run: noopRun})
	require.NoError(t, err)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Name: "a", Run: noopRun}, false},
		{"missing name", Config{Run: noopRun}, true},
		{"missing run", Config{Name: "a"}, true},
		{"duplicate sub-agent", Config{Name: "a", Run: noopRun, SubAgents: []Agent{leaf, leaf}}, true},
		{"nil sub-agent", Config{Name: "a", Run: noopRun, SubAgents: []Agent{nil}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTurnBudget(t *testing.T) {
	b := NewTurnBudget(2)
	require.NoError(t, b.Consume())
	require.NoError(t, b.Consume())

	err := b.Consume()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMaxTurnsExceeded))
	assert.Equal(t, 3, b.Used())

	unlimited := NewTurnBudget(0)
	for range 100 {
		require.NoError(t, unlimited.Consume())
	}
}

func TestTurnBudget_Concurrent(t *testing.T) {
	b := NewTurnBudget(50)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failures := 0
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Consume() != nil {
				mu.Lock()
				failures++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, failures)
}

func TestSubContext_SharesStateAndBudget(t *testing.T) {
	root, _ := New(Config{Name: "root", Run: noopRun})
	child, _ := New(Config{Name: "child", Run: noopRun})

	user := a2a.NewMessage(a2a.MessageRoleUser, a2a.TextPart{Text: "hello"})
	ctx := NewInvocationContext(context.Background(), InvocationContextParams{
		Agent:        root,
		InvocationID: "inv-1",
		UserContent:  user,
		Turns:        NewTurnBudget(1),
	})
	sub := SubContext(ctx, child)

	assert.Equal(t, "root/child", sub.Branch())
	assert.Equal(t, "inv-1", sub.InvocationID())
	assert.Equal(t, user, sub.UserContent())

	require.NoError(t, sub.State().Set("k", "v"))
	v, err := ctx.State().Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, sub.Turns().Consume())
	assert.ErrorIs(t, ctx.Turns().Consume(), ErrMaxTurnsExceeded)
}

func TestState(t *testing.T) {
	s := NewState(map[string]any{"b": 2, "a": 1})

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrStateKeyNotExist)

	var keys []string
	for k := range s.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"a", "b"}, keys)

	require.NoError(t, s.Delete("a"))
	_, err = s.Get("a")
	assert.Error(t, err)
}

type linkList struct {
	NewsLinks []string `json:"news_links"`
}

func TestStateValue(t *testing.T) {
	s := NewState(map[string]any{
		"generic": map[string]any{"news_links": []any{"https://a.example", "https://b.example"}},
		"typed":   linkList{NewsLinks: []string{"https://c.example"}},
		"bad":     "not an object",
	})

	got, err := StateValue[linkList](s, "generic")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, got.NewsLinks)

	got, err = StateValue[linkList](s, "typed")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://c.example"}, got.NewsLinks)

	_, err = StateValue[linkList](s, "bad")
	assert.Error(t, err)

	_, err = StateValue[linkList](s, "missing")
	assert.ErrorIs(t, err, ErrStateKeyNotExist)
}

func TestEvent_IsFinalResponse(t *testing.T) {
	e := NewEvent("inv")
	e.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.TextPart{Text: "done"})
	assert.True(t, e.IsFinalResponse())
	assert.Equal(t, "done", e.TextContent())

	e.Message = a2a.NewMessage(a2a.MessageRoleAgent, a2a.DataPart{Data: map[string]any{"type": "tool_use", "name": "x"}})
	assert.False(t, e.IsFinalResponse())
	assert.True(t, e.HasToolCalls())

	e.Message = a2a.NewMessage(a2a.MessageRoleUser, a2a.DataPart{Data: map[string]any{"type": "tool_result"}})
	assert.False(t, e.IsFinalResponse())
}
