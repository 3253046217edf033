// Package instrumentation provides OpenTelemetry instrumentation for the
// tickmcp server.
//
// # Metrics
//
// JSON-RPC:
//   - rpc_requests_total: Counter of handled requests by method and outcome
//   - rpc_request_duration_seconds: Histogram of request handling durations
//
// TickTick API:
//   - ticktick_api_operations_total: Counter of upstream calls by operation and status
//   - ticktick_api_operation_duration_seconds: Histogram of upstream call durations
//   - ticktick_cache_lookups_total: Counter of client cache lookups by list and result
//
// OAuth:
//   - oauth_auth_total: Counter of authorization attempts by result
//
// MCP Tools:
//   - mcp_tool_invocations_total: Counter of tool invocations by tool and status
//   - mcp_tool_duration_seconds: Histogram of tool execution durations
//
// # Tracing
//
// Spans are created for each JSON-RPC request (rpc.<method>), each tool
// invocation (tool.<name>) and each upstream call (ticktick.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: tickmcp)
//
// Standard output carries the JSON-RPC stream, so the stdout exporters write
// to standard error.
package instrumentation
