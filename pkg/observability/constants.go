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

// Package observability provides OpenTelemetry tracing and Prometheus
// metrics for the article pipeline and its HTTP server.
//
// Both Tracer and Metrics are nil-safe: a nil value records nothing, so
// callers never need to check whether observability is enabled.
package observability

const (
	DefaultServiceName  = "newsmind"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"

	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Span names.
const (
	SpanPipelineRun   = "newsmind.pipeline.run"
	SpanAgentRun      = "newsmind.agent.run"
	SpanLLMCall       = "gen_ai.chat"
	SpanToolExecution = "gen_ai.execute_tool"
	SpanHTTPRequest   = "http.request"
)

// GenAI semantic convention attributes.
const (
	AttrGenAISystem               = "gen_ai.system"
	AttrGenAIOperationName        = "gen_ai.operation.name"
	AttrGenAIRequestModel         = "gen_ai.request.model"
	AttrGenAIRequestTemperature   = "gen_ai.request.temperature"
	AttrGenAIRequestMaxTokens     = "gen_ai.request.max_tokens"
	AttrGenAIResponseFinishReason = "gen_ai.response.finish_reason"
	AttrGenAIUsageInputTokens     = "gen_ai.usage.input_tokens"
	AttrGenAIUsageOutputTokens    = "gen_ai.usage.output_tokens"
	AttrGenAIToolName             = "gen_ai.tool.name"
	AttrGenAIToolCallID           = "gen_ai.tool.call.id"

	OpChat     = "chat"
	OpToolCall = "execute_tool"
)

// Pipeline attributes.
const (
	AttrAgentName    = "newsmind.agent.name"
	AttrInvocationID = "newsmind.invocation.id"
	AttrQuery        = "newsmind.query"
	AttrArticleID    = "newsmind.article.id"
)

// HTTP attributes.
const (
	AttrHTTPMethod       = "http.method"
	AttrHTTPRoute        = "http.route"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrHTTPRequestID    = "http.request_id"
	AttrErrorType        = "error.type"
)
