// Package logging provides structured logging utilities for gmailcli.
//
// Logs always go to stderr; stdout is reserved for the JSON results of
// commands and for the MCP stdio transport.
//
// # Usage Patterns
//
// Create the process logger and derive loggers with standard attributes:
//
//	logger := logging.New(os.Stderr, slog.LevelInfo, logging.FormatText)
//	logger = logging.WithCommand(logger, "send")
//	logger.Info("message sent", logging.MessageID(id), logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("draft created", logging.UserHash(to), logging.Domain(to))
//
// # Security Considerations
//
//   - Recipient addresses are hashed or reduced to their domain
//   - Tokens are never logged directly
package logging
