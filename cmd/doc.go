// Package cmd implements the command-line interface for gmailcli.
//
// Every Gmail command prints its result as JSON on stdout and logs to
// stderr. Commands share the persistent flags of the root command
// (--account, --config, --credentials, --token-dir, --log-level,
// --log-format, --full-scope), which override the configuration file and
// GMAILCLI_* environment variables.
//
// Command groups:
//   - messages: read, get, archive, trash, untrash, delete, mark-read,
//     mark-unread, star, unstar, modify-labels
//   - composing: draft, send, list-drafts, delete-draft
//   - labels: list-labels, create-label, delete-label
//   - threads: get-thread, archive-thread, trash-thread
//   - batches: batch-archive, batch-trash, batch-mark-read
//   - attachments: list-attachments, download-attachment
//   - filters: list-filters, get-filter, create-filter, delete-filter
//   - auth login, auth status, auth logout
//   - serve: run the MCP server, generate-docs: document its tools
//   - version
package cmd
