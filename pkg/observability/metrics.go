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
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Metrics records pipeline and HTTP metrics through an OpenTelemetry meter
// backed by a dedicated Prometheus registry.
type Metrics struct {
	registry *prom.Registry
	provider *sdkmetric.MeterProvider

	agentDuration metric.Float64Histogram
	agentRuns     metric.Int64Counter
	agentErrors   metric.Int64Counter

	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter

	toolDuration metric.Float64Histogram
	toolCalls    metric.Int64Counter
	toolErrors   metric.Int64Counter

	httpRequests     metric.Int64Counter
	httpDuration     metric.Float64Histogram
	httpResponseSize metric.Int64Histogram

	articles metric.Int64Counter
}

// NewMetrics creates the metric instruments. It returns nil when metrics
// are disabled.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	registry := prom.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(
		prometheus.WithRegisterer(registry),
		prometheus.WithoutScopeInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(cfg.Namespace)
	ns := cfg.Namespace

	m := &Metrics{registry: registry, provider: provider}
	b := &instrumentBuilder{meter: meter, ns: ns}

	m.agentDuration = b.histogram("agent_run_duration_seconds", "Agent run duration in seconds")
	m.agentRuns = b.counter("agent_runs_total", "Total agent runs")
	m.agentErrors = b.counter("agent_errors_total", "Total failed agent runs")

	m.llmDuration = b.histogram("llm_request_duration_seconds", "LLM request duration in seconds")
	m.llmInputTokens = b.counter("llm_tokens_input_total", "Total input tokens sent to the LLM")
	m.llmOutputTokens = b.counter("llm_tokens_output_total", "Total output tokens returned by the LLM")
	m.llmErrors = b.counter("llm_errors_total", "Total LLM errors")

	m.toolDuration = b.histogram("tool_execution_duration_seconds", "Tool execution duration in seconds")
	m.toolCalls = b.counter("tool_calls_total", "Total tool calls")
	m.toolErrors = b.counter("tool_errors_total", "Total tool errors")

	m.httpRequests = b.counter("http_requests_total", "Total HTTP requests")
	m.httpDuration = b.histogram("http_request_duration_seconds", "HTTP request duration in seconds")
	m.httpResponseSize = b.intHistogram("http_response_size_bytes", "HTTP response size in bytes")

	m.articles = b.counter("articles_generated_total", "Total article generation attempts by outcome")

	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

// instrumentBuilder keeps the first creation error so instrument setup
// reads as a flat list.
type instrumentBuilder struct {
	meter metric.Meter
	ns    string
	err   error
}

func (b *instrumentBuilder) name(n string) string {
	if b.ns == "" {
		return n
	}
	return b.ns + "_" + n
}

func (b *instrumentBuilder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(b.name(name), metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
	return c
}

func (b *instrumentBuilder) histogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(b.name(name), metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
	return h
}

func (b *instrumentBuilder) intHistogram(name, desc string) metric.Int64Histogram {
	h, err := b.meter.Int64Histogram(b.name(name), metric.WithDescription(desc))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("failed to create %s: %w", name, err)
	}
	return h
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordAgentRun records one agent of the chain finishing.
func (m *Metrics) RecordAgentRun(ctx context.Context, agent string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("agent", agent))
	m.agentDuration.Record(ctx, duration.Seconds(), attrs)
	m.agentRuns.Add(ctx, 1, attrs)
	if err != nil {
		m.agentErrors.Add(ctx, 1, attrs)
	}
}

// RecordLLMCall records one model request.
func (m *Metrics) RecordLLMCall(ctx context.Context, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("model", model))
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	if inputTokens > 0 {
		m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	}
	if outputTokens > 0 {
		m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	}
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}

// RecordToolExecution records one tool call.
func (m *Metrics) RecordToolExecution(ctx context.Context, tool string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
	m.toolCalls.Add(ctx, 1, attrs)
	if err != nil {
		m.toolErrors.Add(ctx, 1, attrs)
	}
}

// RecordHTTPRequest records one served HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration, responseSize int64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
	m.httpResponseSize.Record(ctx, responseSize, attrs)
}

// RecordArticle records the outcome of an article generation.
func (m *Metrics) RecordArticle(ctx context.Context, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.articles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	if err := m.provider.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
