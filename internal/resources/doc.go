// Package resources provides MCP resources describing the mailbox of the
// server's default account. Resources are read-only data sources that MCP
// clients can fetch without calling a tool.
package resources
