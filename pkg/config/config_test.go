package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func mapLookup(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"SERPER_API_KEY": "serper-test",
	}))
	require.NoError(t, err)
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "localhost:8000", cfg.Server.Address())
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, "gpt-4", cfg.Model.Name)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 80, cfg.Model.MaxTurns)
	assert.Equal(t, 1, cfg.Search.MaxLinks)
	assert.Equal(t, 2000, cfg.Scrape.ChunkSize)
	assert.Equal(t, 200, cfg.Scrape.Overlap())
	assert.Equal(t, "recursive", cfg.Scrape.ChunkStrategy)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Endpoint)
	assert.Zero(t, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"HOST":            "0.0.0.0",
		"PORT":            "9090",
		"ENVIRONMENT":     "production",
		"MODEL_NAME":      "gpt-4o",
		"MAX_TURNS":       "20",
		"STORAGE_DRIVER":  "SQLite",
		"STORAGE_DSN":     "articles.db",
		"METRICS_ENABLED": "false",

		"RATE_LIMIT_REQUESTS": "10",
		"RATE_LIMIT_WINDOW":   "1h",

		"TRACING_SAMPLING_RATE":      "0.25",
		"OTEL_EXPORTER_OTLP_HEADERS": "api-key=secret",
	}))
	require.NoError(t, err)
	cfg.SetDefaults()

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Address())
	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, "gpt-4o", cfg.Model.Name)
	assert.Equal(t, 20, cfg.Model.MaxTurns)
	assert.Equal(t, StorageSQLite, cfg.Storage.Driver)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 0.25, cfg.Observability.Tracing.SamplingRate)
	assert.Equal(t, map[string]string{"api-key": "secret"}, cfg.Observability.Tracing.Headers)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	_, err := FromEnv(mapLookup(map[string]string{"PORT": "eighty"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")

	_, err = FromEnv(mapLookup(map[string]string{"TRACING_ENABLED": "maybe"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRACING_ENABLED")

	_, err = FromEnv(mapLookup(map[string]string{"RATE_LIMIT_WINDOW": "soon"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a duration")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{
			Model:  ModelConfig{OpenAIAPIKey: "sk"},
			Search: SearchConfig{SerperAPIKey: "serper"},
		}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing openai key", mutate: func(c *Config) { c.Model.OpenAIAPIKey = "" }, wantErr: "OPENAI_API_KEY is required"},
		{name: "missing serper key", mutate: func(c *Config) { c.Search.SerperAPIKey = "" }, wantErr: "SERPER_API_KEY is required"},
		{name: "gemini without key", mutate: func(c *Config) { c.Model.Provider = "gemini" }, wantErr: "GEMINI_API_KEY is required"},
		{name: "gemini with key", mutate: func(c *Config) { c.Model.Provider = "gemini"; c.Model.GeminiAPIKey = "g" }},
		{name: "ollama needs no key", mutate: func(c *Config) { c.Model.Provider = "ollama"; c.Model.OpenAIAPIKey = "" }},
		{name: "unknown provider", mutate: func(c *Config) { c.Model.Provider = "mistral" }, wantErr: "unsupported model provider"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "invalid port"},
		{name: "overlap too large", mutate: func(c *Config) { c.Scrape.ChunkOverlap = intPtr(2000) }, wantErr: "chunk overlap"},
		{name: "zero overlap", mutate: func(c *Config) { c.Scrape.ChunkOverlap = intPtr(0) }},
		{name: "unknown chunk strategy", mutate: func(c *Config) { c.Scrape.ChunkStrategy = "sentence" }, wantErr: "chunk strategy"},
		{name: "sql without dsn", mutate: func(c *Config) { c.Storage.Driver = StoragePostgres }, wantErr: "STORAGE_DSN is required"},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.Requests = -1 }, wantErr: "rate limit"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }, wantErr: "unsupported storage driver"},
		{name: "bad exporter", mutate: func(c *Config) {
			c.Observability.Tracing.Enabled = true
			c.Observability.Tracing.Exporter = "zipkin"
		}, wantErr: "observability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func intPtr(n int) *int { return &n }

func TestFromEnv_ExplicitZeroOverlap(t *testing.T) {
	cfg, err := FromEnv(mapLookup(map[string]string{
		"SCRAPE_CHUNK_OVERLAP":  "0",
		"SCRAPE_CHUNK_STRATEGY": "Token",
	}))
	require.NoError(t, err)
	cfg.SetDefaults()

	require.NotNil(t, cfg.Scrape.ChunkOverlap)
	assert.Equal(t, 0, cfg.Scrape.Overlap())
	assert.Equal(t, 2000, cfg.Scrape.ChunkSize)
	assert.Equal(t, "token", cfg.Scrape.ChunkStrategy)
}

func TestLoadEnvFiles_EnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("OPENAI_API_KEY=from-file\nSERPER_API_KEY=serper-file\nMODEL_NAME=gpt-4o-mini\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("SERPER_API_KEY", "")
	t.Setenv("MODEL_NAME", "")
	os.Unsetenv("SERPER_API_KEY")
	os.Unsetenv("MODEL_NAME")

	require.NoError(t, LoadEnvFiles())
	cfg, err := FromEnv(os.LookupEnv)
	require.NoError(t, err)
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "from-env", cfg.Model.OpenAIAPIKey)
	assert.Equal(t, "serper-file", cfg.Search.SerperAPIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.Model.Name)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("NEWSMIND_TEST_MODEL", "gpt-4o")
	t.Setenv("NEWSMIND_TEST_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"${NEWSMIND_TEST_MODEL}", "gpt-4o"},
		{"$NEWSMIND_TEST_MODEL", "gpt-4o"},
		{"${NEWSMIND_TEST_MISSING:-fallback}", "fallback"},
		{"${NEWSMIND_TEST_EMPTY:-fallback}", "fallback"},
		{"${NEWSMIND_TEST_MODEL:-fallback}-mini", "gpt-4o-mini"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in), tt.in)
	}
}

func TestParsePipeline(t *testing.T) {
	t.Setenv("NEWSMIND_TEST_MODEL", "gpt-4o-mini")

	pf, err := ParsePipeline([]byte(`
model: gpt-4o
temperature: 0.2
agents:
  research_analyst:
    model: ${NEWSMIND_TEST_MODEL}
    max_iterations: 4
  news_article_formatter:
    instruction: |
      Write in a neutral tone.
`))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", pf.Model)
	require.NotNil(t, pf.Temperature)
	assert.InDelta(t, 0.2, *pf.Temperature, 1e-9)
	assert.Equal(t, "gpt-4o-mini", pf.Agents["research_analyst"].Model)
	assert.Equal(t, 4, pf.Agents["research_analyst"].MaxIterations)
	assert.Equal(t, "Write in a neutral tone.\n", pf.Agents["news_article_formatter"].Instruction)
}

func TestParsePipeline_Errors(t *testing.T) {
	_, err := ParsePipeline([]byte("agents: ["))
	assert.Error(t, err)

	_, err = ParsePipeline([]byte("modle: gpt-4o\n"))
	assert.Error(t, err)

	_, err = ParsePipeline([]byte("agents:\n  research_analyst:\n    max_iterations: -1\n"))
	assert.Error(t, err)

	pf, err := ParsePipeline(nil)
	require.NoError(t, err)
	assert.Empty(t, pf.Agents)
}

func TestWatchFile(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := WatchFile(ctx, path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o\n"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("model: gpt-4o-mini\n"), 0o600))

	select {
	case _, ok := <-ch:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			_, ok = <-ch
		}
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
