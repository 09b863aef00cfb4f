// Package instrumentation provides OpenTelemetry metrics and tracing for
// gmailcli commands, Gmail API calls and MCP tools.
//
// # Metrics
//
// Google API Metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//   - google_api_retries_total: Counter of retried attempts by service and operation
//
// OAuth Metrics:
//   - oauth_auth_total: Counter of interactive logins by result
//   - oauth_token_refresh_total: Counter of token refresh attempts by result
//
// Command and Tool Metrics:
//   - command_invocations_total / command_duration_seconds: CLI commands by command and status
//   - mcp_tool_invocations_total / mcp_tool_duration_seconds: MCP tools by tool and status
//
// A CLI process is short lived, so the prometheus exporter registers on a
// private registry that is written to a node-exporter textfile on Shutdown
// when Config.MetricsTextfile is set.
//
// # Tracing
//
// Spans are created for CLI commands (command.<name>), MCP tool invocations
// (tool.<name>) and Google API calls (google.<service>.<operation>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout, none (default: prometheus)
//   - METRICS_TEXTFILE: textfile path for the prometheus exporter
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: gmailcli)
//
// The stdout exporters write to stderr so they never mix with command output.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordGoogleAPIOperation(ctx, "gmail", "messages.list", "success", time.Since(start))
package instrumentation
