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


package observability

import (
	"fmt"
	"strings"
	"time"
)

// Config groups tracing and metrics settings.
type Config struct {
	Tracing TracingConfig
	Metrics MetricsConfig
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate checks both sections.
func (c *Config) Validate() error {
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// TracingConfig configures span export. Spans cover the pipeline run,
// every agent, every model call and every tool call.
type TracingConfig struct {
	Enabled bool

	// Exporter is "stdout" (default) or "otlp".
	Exporter string

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string

	// Secure enables TLS towards the collector.
	Secure bool

	// Headers are sent with every export, e.g. collector auth.
	Headers map[string]string

	// SamplingRate is the fraction of pipeline runs traced.
	// Default: 1.0
	SamplingRate float64

	// Default: "newsmind"
	ServiceName    string
	ServiceVersion string

	// ExportTimeout bounds each export.
	// Default: 10s
	ExportTimeout time.Duration
}

func (c *TracingConfig) SetDefaults() {
	if c.Exporter == "" {
		c.Exporter = ExporterStdout
	}
	if c.Endpoint == "" {
		c.Endpoint = DefaultOTLPEndpoint
	}
	if c.SamplingRate == 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.ExportTimeout == 0 {
		c.ExportTimeout = 10 * time.Second
	}
}

// Validate ignores disabled tracing.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("sampling rate must be between 0 and 1, got %g", c.SamplingRate)
	}
	switch c.Exporter {
	case ExporterStdout:
	case ExporterOTLP:
		if c.Endpoint == "" {
			return fmt.Errorf("endpoint is required for the otlp exporter")
		}
	default:
		return fmt.Errorf("invalid exporter %q (valid: otlp, stdout)", c.Exporter)
	}
	return nil
}

// ParseHeaders reads "key=value,key2=value2" as used by
// OTEL_EXPORTER_OTLP_HEADERS.
func ParseHeaders(s string) (map[string]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q, expected key=value", strings.TrimSpace(pair))
		}
		headers[k] = strings.TrimSpace(v)
	}
	return headers, nil
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool

	// Endpoint is the HTTP path of the scrape endpoint.
	// Default: "/metrics"
	Endpoint string

	// Namespace prefixes every metric name.
	// Default: "newsmind"
	Namespace string
}

func (c *MetricsConfig) SetDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultMetricsPath
	}
	if c.Namespace == "" {
		c.Namespace = DefaultServiceName
	}
}

func (c *MetricsConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Endpoint, "/") {
		return fmt.Errorf("endpoint must start with '/', got %q", c.Endpoint)
	}
	return nil
}
