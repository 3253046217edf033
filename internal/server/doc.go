// Package server holds the process-wide state of the MCP server and its
// optional operational HTTP endpoints.
//
// # Key Components
//
// ServerContext owns the TickTick client. The client is created lazily on the
// first tool or resource call that needs it and then reused for the lifetime
// of the process, so its cache is shared by every request.
//
// MetricsServer exposes /metrics (Prometheus) and the HealthChecker endpoints
// (/healthz, /readyz, /healthz/detailed) on a local address. It is only
// started when metrics are enabled; the MCP protocol itself never leaves
// stdio.
package server
