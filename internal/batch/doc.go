// Package batch runs one operation over many message IDs and aggregates the
// outcome.
//
// This package includes helpers for:
//   - Parsing parameters that accept both single values and arrays
//   - Running per-ID operations with bounded concurrency
//   - Reporting partial failures in a consistent structure
package batch
