// Package gmail_tools provides MCP (Model Context Protocol) tools for interacting with Gmail.
//
// Read tools, always registered:
//   - gmail_read_messages: List messages matching a search query
//   - gmail_get_message: Get one message with its plain-text body
//   - gmail_get_thread: Get all messages of a thread
//   - gmail_list_labels: List labels and their IDs
//   - gmail_list_filters: List the account's filters
//   - gmail_list_attachments: List the attachments of a message
//   - gmail_get_attachment: Retrieve attachment content (base64 or text)
//
// Write tools, registered unless the server runs read-only:
//   - gmail_create_draft: Create a draft, optionally as a threaded reply
//   - gmail_send_email: Send a message, with optional file attachments
//   - gmail_archive_messages: Remove messages from the inbox
//   - gmail_trash_messages: Move messages to the trash
//
// Outbound messages are built and encoded before any request is made, so a
// missing recipient, subject or attachment file fails the call without
// touching the mailbox. Every handler runs through
// common.InstrumentedToolHandler and is traced, counted and audit logged.
package gmail_tools
