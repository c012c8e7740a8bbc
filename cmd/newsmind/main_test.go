package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/newsmind/pkg/config"
	"github.com/kadirpekel/newsmind/pkg/model"
)

func TestValidatePipelineFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("agents:\n  research_analyst:\n    model: gpt-4o\n"), 0o600))
	assert.NoError(t, validatePipelineFile(good))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("agents:\n  editor:\n    model: gpt-4o\n"), 0o600))
	err := validatePipelineFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown agent "editor"`)
}

func TestModelFactory(t *testing.T) {
	newModel := modelFactory(context.Background(), config.ModelConfig{Provider: "openai", OpenAIAPIKey: "sk-test"})
	llm, err := newModel("gpt-4o")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", llm.Name())
	assert.Equal(t, model.ProviderOpenAI, llm.Provider())

	newModel = modelFactory(context.Background(), config.ModelConfig{Provider: "ollama"})
	llm, err = newModel("qwen2.5")
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOllama, llm.Provider())

	newModel = modelFactory(context.Background(), config.ModelConfig{Provider: "mistral"})
	_, err = newModel("large")
	assert.Error(t, err)
}

func TestNewApp_RequiresKeys(t *testing.T) {
	cfg := &config.Config{}
	cfg.SetDefaults()
	_, err := newApp(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
}

func TestNewApp(t *testing.T) {
	cfg := &config.Config{
		Model:  config.ModelConfig{OpenAIAPIKey: "sk-test"},
		Search: config.SearchConfig{SerperAPIKey: "serper-test"},
	}
	cfg.SetDefaults()
	cfg.Observability.Metrics.Enabled = true

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.metrics)
	assert.Nil(t, a.tracer)
	assert.Equal(t, "gpt-4", a.service.Pipeline().ModelName())
	assert.Len(t, a.service.Pipeline().RootAgent().SubAgents(), 5)
	assert.Equal(t,
		"Research Analyst -> Source Scrapper -> Article Summarizer -> Article Title and Keywords Generator -> News Article Formatter",
		chainNames(a.service.Pipeline().RootAgent()))
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, "one two\nthree", wrapText("one two three", 8))
	assert.Equal(t, "supercalifragilistic\nx", wrapText("supercalifragilistic x", 5))
	// Wide runes count as two columns.
	assert.Equal(t, "日本\n語", wrapText("日本 語", 5))
	assert.Equal(t, "", wrapText("   ", 10))
}

func TestRun_ReturnsCommandError(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SERPER_API_KEY", "")

	logFile := filepath.Join(t.TempDir(), "newsmind.log")
	cli := CLI{}
	parser, err := kong.New(&cli, kong.Name("newsmind"))
	require.NoError(t, err)
	ctx, err := parser.Parse([]string{"--log-file", logFile, "validate", "--format", "json"})
	require.NoError(t, err)

	err = run(ctx, &cli)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration is invalid")
	assert.FileExists(t, logFile)
}
