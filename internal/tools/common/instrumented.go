package common

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/gmailcli/internal/instrumentation"
	"github.com/teemow/gmailcli/internal/logging"
	"github.com/teemow/gmailcli/internal/server"
)

// ToolHandler is the signature of an MCP tool handler.
type ToolHandler = mcpserver.ToolHandlerFunc

type invocationKey struct{}

// InvocationFromContext returns the audit record of the running tool call,
// or nil outside an instrumented handler.
func InvocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	ti, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return ti
}

// InstrumentedToolHandler wraps a tool handler with a span, metrics, audit
// logging and a debug line on the server logger. A result flagged IsError counts as a failed invocation.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", "messages.list", sc, handler))
func InstrumentedToolHandler(toolName, operation string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		account := GetAccountFromArgs(sc, request.GetArguments())

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrOperation, operation),
		)

		invocation := instrumentation.NewToolInvocation(toolName).
			WithAccount(account).
			WithOperation(operation).
			WithSpanContext(ctx)
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request)

		failure := err
		if failure == nil && result != nil && result.IsError {
			failure = resultError(result)
		}
		invocation.Complete(failure)
		instrumentation.EndSpan(span, failure)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), account, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		logging.WithAccount(logging.WithTool(sc.Logger(), toolName), account).Debug("tool call finished",
			logging.Operation(operation),
			logging.Status(invocation.Status()),
			slog.Duration(logging.KeyDuration, invocation.Duration),
			logging.Err(failure))

		return result, err
	}
}

type toolError string

func (e toolError) Error() string { return string(e) }

// resultError turns the text of an error result into an error value.
func resultError(result *mcp.CallToolResult) error {
	for _, c := range result.Content {
		if text, ok := mcp.AsTextContent(c); ok {
			return toolError(text.Text)
		}
	}
	return toolError("tool returned an error")
}
