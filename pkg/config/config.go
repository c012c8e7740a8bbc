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

// Package config loads NewsMind settings from the environment and the
// optional pipeline file.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kadirpekel/newsmind/pkg/chunking"
	"github.com/kadirpekel/newsmind/pkg/observability"
)

const (
	DefaultHost        = "localhost"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultModelName   = "gpt-4"
	DefaultMaxTurns    = 80

	DefaultSearchMaxLinks = 1
	DefaultChunkSize      = 2000
	DefaultChunkOverlap   = 200

	DefaultRateLimitWindow = time.Minute
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMySQL    = "mysql"
)

// Config is the complete runtime configuration.
type Config struct {
	Server   ServerConfig
	Model    ModelConfig
	Search   SearchConfig
	Scrape   ScrapeConfig
	Storage  StorageConfig
	Logger   LoggerConfig
	Pipeline PipelineConfig

	RateLimit RateLimitConfig

	Observability observability.Config
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string
	Port int

	// Environment is informational ("development", "production", ...).
	Environment string
}

// Address returns host:port.
func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// IsProduction reports whether the server runs in production.
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// ModelConfig selects the LLM provider.
type ModelConfig struct {
	// Provider is "openai" (default), "gemini" or "ollama".
	Provider string

	// Name is the model identifier.
	// Default: "gpt-4"
	Name string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string

	// OllamaBaseURL points at a local Ollama server; no key is needed.
	OllamaBaseURL string
	OllamaNumCtx  int

	// MaxTurns bounds the model calls of a single pipeline run.
	// Default: 80
	MaxTurns int
}

// SearchConfig configures the search_web tool.
type SearchConfig struct {
	SerperAPIKey string

	// MaxLinks is the number of news links returned per search.
	// Default: 1
	MaxLinks int
}

// ScrapeConfig configures the scrape_web tool.
type ScrapeConfig struct {
	// ChunkStrategy measures chunks in characters ("recursive") or model
	// tokens ("token").
	// Default: recursive
	ChunkStrategy string

	ChunkSize int

	// ChunkOverlap is nil when unset; an explicit 0 disables overlap.
	// Default: 200
	ChunkOverlap *int

	// MaxTokens caps the returned chunks; 0 disables the cap.
	MaxTokens int
}

// Overlap returns the chunk overlap, or DefaultChunkOverlap when unset.
func (c ScrapeConfig) Overlap() int {
	if c.ChunkOverlap == nil {
		return DefaultChunkOverlap
	}
	return *c.ChunkOverlap
}

// StorageConfig configures the article store.
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres, mysql.
	// Default: memory
	Driver string

	// DSN is the data source name, or the database file for sqlite.
	DSN string
}

// LoggerConfig configures logging.
type LoggerConfig struct {
	Level  string
	Format string

	// File redirects logs to a file; empty means stderr.
	File string
}

// PipelineConfig points at the optional pipeline file.
type PipelineConfig struct {
	File  string
	Watch bool
}

// RateLimitConfig bounds article requests per client IP.
type RateLimitConfig struct {
	// Requests per Window; 0 disables limiting.
	Requests int

	// Default: 1m
	Window time.Duration
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.Environment == "" {
		c.Server.Environment = DefaultEnvironment
	}

	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.Name == "" {
		c.Model.Name = DefaultModelName
	}
	if c.Model.MaxTurns == 0 {
		c.Model.MaxTurns = DefaultMaxTurns
	}

	if c.Search.MaxLinks == 0 {
		c.Search.MaxLinks = DefaultSearchMaxLinks
	}

	if c.Scrape.ChunkSize == 0 {
		c.Scrape.ChunkSize = DefaultChunkSize
	}
	if c.Scrape.ChunkOverlap == nil {
		overlap := DefaultChunkOverlap
		c.Scrape.ChunkOverlap = &overlap
	}
	if c.Scrape.ChunkStrategy == "" {
		c.Scrape.ChunkStrategy = chunking.StrategyRecursive
	}

	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = DefaultRateLimitWindow
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageMemory
	}

	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "simple"
	}

	c.Observability.SetDefaults()
}

// Validate checks the configuration, including the required API keys.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Model.Provider) {
	case "openai":
		if c.Model.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "gemini", "google":
		if c.Model.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "ollama":
	default:
		return fmt.Errorf("unsupported model provider %q (valid: openai, gemini, ollama)", c.Model.Provider)
	}

	if c.Search.SerperAPIKey == "" {
		return fmt.Errorf("SERPER_API_KEY is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Model.MaxTurns < 0 {
		return fmt.Errorf("max turns must not be negative, got %d", c.Model.MaxTurns)
	}
	if c.Search.MaxLinks < 0 {
		return fmt.Errorf("search max links must not be negative, got %d", c.Search.MaxLinks)
	}
	if overlap := c.Scrape.Overlap(); overlap < 0 || overlap >= c.Scrape.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be between 0 and chunk size (%d)", overlap, c.Scrape.ChunkSize)
	}
	switch c.Scrape.ChunkStrategy {
	case chunking.StrategyRecursive, chunking.StrategyToken:
	default:
		return fmt.Errorf("unsupported chunk strategy %q (valid: recursive, token)", c.Scrape.ChunkStrategy)
	}

	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite, StoragePostgres, StorageMySQL:
		if c.Storage.DSN == "" {
			return fmt.Errorf("STORAGE_DSN is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q (valid: memory, sqlite, postgres, mysql)", c.Storage.Driver)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}
