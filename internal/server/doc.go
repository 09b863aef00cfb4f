// Package server provides the MCP server context and the HTTP listeners of
// "gmailcli serve".
//
// # Key Components
//
// ServerContext caches one Gmail client per account, created lazily through
// a ClientFactory, and carries the metrics recorder, the audit logger and
// the per-call limits shared by all tools.
//
// HTTPServer exposes the MCP server over the streamable HTTP transport on a
// loopback address. It carries no authentication of its own, so it refuses
// to bind to anything but a loopback interface.
//
// MetricsServer serves the Prometheus registry of the instrumentation
// provider on a dedicated address, next to the health endpoints.
package server
