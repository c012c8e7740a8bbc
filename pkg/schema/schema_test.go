package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"required,description=Search query"`
	Limit int    `json:"limit,omitempty" jsonschema:"description=Max results"`
}

type summary struct {
	Summary string   `json:"summary"`
	Sources []string `json:"sources"`
}

func TestForArgs(t *testing.T) {
	s, err := ForArgs[searchArgs]()
	require.NoError(t, err)

	assert.Equal(t, "object", s["type"])
	assert.NotContains(t, s, "$schema")

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")

	required, ok := s["required"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"query"}, required)
}

func TestForOutput(t *testing.T) {
	s, err := ForOutput[summary]()
	require.NoError(t, err)

	assert.Equal(t, false, s["additionalProperties"])
	assert.ElementsMatch(t, []any{"summary", "sources"}, s["required"])

	props := s["properties"].(map[string]any)
	sources := props["sources"].(map[string]any)
	assert.Equal(t, "array", sources["type"])
}
