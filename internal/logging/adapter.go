package logging

import (
	"log"
	"log/slog"
)

// NewStdLogger adapts logger to the standard library's *log.Logger for
// libraries that only accept one, such as the MCP stdio transport. Every
// line is emitted at level.
func NewStdLogger(logger *slog.Logger, level slog.Level) *log.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return slog.NewLogLogger(logger.Handler(), level)
}
