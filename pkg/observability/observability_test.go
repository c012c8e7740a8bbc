package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

func TestTracingConfig_Defaults(t *testing.T) {
	cfg := TracingConfig{Enabled: true}
	cfg.SetDefaults()

	assert.Equal(t, ExporterStdout, cfg.Exporter)
	assert.Equal(t, DefaultOTLPEndpoint, cfg.Endpoint)
	assert.Equal(t, DefaultServiceName, cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SamplingRate)
	assert.False(t, cfg.Secure)
	assert.Equal(t, 10*time.Second, cfg.ExportTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"bad sampling", Config{Tracing: TracingConfig{Enabled: true, Exporter: "otlp", Endpoint: "x", SamplingRate: 2}}, true},
		{"bad exporter", Config{Tracing: TracingConfig{Enabled: true, Exporter: "zipkin", SamplingRate: 1}}, true},
		{"bad metrics path", Config{Metrics: MetricsConfig{Enabled: true, Endpoint: "metrics"}}, true},
		{"valid", Config{Metrics: MetricsConfig{Enabled: true, Endpoint: "/metrics"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNilTracerAndMetrics(t *testing.T) {
	ctx := context.Background()

	tracer, err := NewTracer(ctx, &TracingConfig{})
	require.NoError(t, err)
	assert.Nil(t, tracer)

	metrics, err := NewMetrics(&MetricsConfig{})
	require.NoError(t, err)
	assert.Nil(t, metrics)

	_, span := tracer.StartAgentRun(ctx, "agent", "inv-1")
	tracer.AddLLMUsage(span, 1, 2, "stop")
	tracer.RecordError(span, errors.New("boom"))
	span.End()

	metrics.RecordAgentRun(ctx, "agent", time.Millisecond, nil)
	metrics.RecordLLMCall(ctx, "gpt-4", time.Millisecond, 10, 5, nil)
	metrics.RecordToolExecution(ctx, "search_web", time.Millisecond, nil)
	metrics.RecordArticle(ctx, nil)
	assert.NoError(t, tracer.Shutdown(ctx))
	assert.NoError(t, metrics.Shutdown(ctx))
}

func TestTracer_RecordsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()

	tracer, err := NewTracer(ctx, &TracingConfig{Enabled: true}, WithSpanExporter(exporter))
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, root := tracer.StartPipelineRun(ctx, "pipeline", "inv-1", "rates")
	_, llm := tracer.StartLLMCall(ctx, "gpt-4", 100, 0.2)
	tracer.AddLLMUsage(llm, 10, 20, "stop")
	llm.End()
	root.End()

	require.NoError(t, tracer.provider.ForceFlush(ctx))
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, SpanLLMCall, spans[0].Name)
	assert.Equal(t, SpanPipelineRun, spans[1].Name)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].Parent.TraceID())

	svc, ok := spans[1].Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, DefaultServiceName, svc.AsString())

	require.NoError(t, tracer.Shutdown(context.Background()))
}

func TestMetrics_Exposition(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true})
	require.NoError(t, err)
	defer metrics.Shutdown(ctx)

	metrics.RecordToolExecution(ctx, "search_web", 10*time.Millisecond, nil)
	metrics.RecordLLMCall(ctx, "gpt-4", 20*time.Millisecond, 100, 40, errors.New("rate limited"))
	metrics.RecordArticle(ctx, nil)

	srv := httptest.NewServer(metrics.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(body), "newsmind_tool_calls_total")
	assert.Contains(t, string(body), "newsmind_llm_errors_total")
	assert.Contains(t, string(body), "newsmind_articles_generated_total")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	ctx := context.Background()
	metrics, err := NewMetrics(&MetricsConfig{Enabled: true})
	require.NoError(t, err)
	defer metrics.Shutdown(ctx)

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(nil, metrics))
	r.Get("/articles/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `route="/articles/{id}"`)
	assert.Contains(t, rec.Body.String(), `status="404"`)
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders("authorization=Bearer abc, x-team = news")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"authorization": "Bearer abc", "x-team": "news"}, h)

	h, err = ParseHeaders("  ")
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = ParseHeaders("novalue")
	assert.Error(t, err)
}
