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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kadirpekel/newsmind/pkg/observability"
)

// LoadEnvFiles loads .env.local and .env when present. Variables already
// set in the environment are never overwritten.
func LoadEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// FromEnv builds a Config from lookup without applying defaults.
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	e := envReader{lookup: lookup}
	cfg := &Config{}

	cfg.Server.Host = e.str("HOST")
	cfg.Server.Port = e.int("PORT")
	cfg.Server.Environment = e.str("ENVIRONMENT")

	cfg.Model.Provider = e.str("MODEL_PROVIDER")
	cfg.Model.Name = e.str("MODEL_NAME")
	cfg.Model.OpenAIAPIKey = e.str("OPENAI_API_KEY")
	cfg.Model.OpenAIBaseURL = e.str("OPENAI_BASE_URL")
	cfg.Model.GeminiAPIKey = e.str("GEMINI_API_KEY")
	cfg.Model.OllamaBaseURL = e.str("OLLAMA_BASE_URL")
	cfg.Model.OllamaNumCtx = e.int("OLLAMA_NUM_CTX")
	cfg.Model.MaxTurns = e.int("MAX_TURNS")

	cfg.Search.SerperAPIKey = e.str("SERPER_API_KEY")
	cfg.Search.MaxLinks = e.int("SEARCH_MAX_LINKS")

	cfg.Scrape.ChunkSize = e.int("SCRAPE_CHUNK_SIZE")
	cfg.Scrape.ChunkOverlap = e.optInt("SCRAPE_CHUNK_OVERLAP")
	cfg.Scrape.ChunkStrategy = strings.ToLower(e.str("SCRAPE_CHUNK_STRATEGY"))
	cfg.Scrape.MaxTokens = e.int("SCRAPE_MAX_TOKENS")

	cfg.Storage.Driver = strings.ToLower(e.str("STORAGE_DRIVER"))
	cfg.Storage.DSN = e.str("STORAGE_DSN")

	cfg.Logger.Level = e.str("LOG_LEVEL")
	cfg.Logger.Format = e.str("LOG_FORMAT")
	cfg.Logger.File = e.str("LOG_FILE")

	cfg.Pipeline.File = e.str("PIPELINE_FILE")
	cfg.Pipeline.Watch = e.bool("PIPELINE_WATCH", false)

	cfg.RateLimit.Requests = e.int("RATE_LIMIT_REQUESTS")
	cfg.RateLimit.Window = e.duration("RATE_LIMIT_WINDOW")

	cfg.Observability.Tracing.Enabled = e.bool("TRACING_ENABLED", false)
	cfg.Observability.Tracing.Exporter = e.str("TRACING_EXPORTER")
	cfg.Observability.Tracing.Endpoint = e.str("OTLP_ENDPOINT")
	cfg.Observability.Tracing.Secure = e.bool("OTLP_SECURE", false)
	cfg.Observability.Tracing.SamplingRate = e.float("TRACING_SAMPLING_RATE")
	headers, err := observability.ParseHeaders(e.str("OTEL_EXPORTER_OTLP_HEADERS"))
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid value for OTEL_EXPORTER_OTLP_HEADERS: %w", err)
	}
	cfg.Observability.Tracing.Headers = headers
	cfg.Observability.Metrics.Enabled = e.bool("METRICS_ENABLED", true)

	if e.err != nil {
		return nil, e.err
	}
	return cfg, nil
}

// envReader records the first parse error so FromEnv can read every
// variable before reporting.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) str(key string) string {
	v, _ := e.lookup(key)
	return strings.TrimSpace(v)
}

func (e *envReader) int(key string) int {
	v := e.str(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid value for %s: %q is not an integer", key, v)
	}
	return n
}

// optInt is int for settings where an explicit zero differs from unset.
func (e *envReader) optInt(key string) *int {
	if e.str(key) == "" {
		return nil
	}
	n := e.int(key)
	return &n
}

func (e *envReader) bool(key string, def bool) bool {
	v := e.str(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		if e.err == nil {
			e.err = fmt.Errorf("invalid value for %s: %q is not a boolean", key, v)
		}
		return def
	}
	return b
}

func (e *envReader) duration(key string) time.Duration {
	v := e.str(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid value for %s: %q is not a duration", key, v)
	}
	return d
}

func (e *envReader) float(key string) float64 {
	v := e.str(key)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && e.err == nil {
		e.err = fmt.Errorf("invalid value for %s: %q is not a number", key, v)
	}
	return f
}
