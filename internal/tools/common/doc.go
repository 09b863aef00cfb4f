// Package common provides the helpers shared by the MCP tool packages:
// argument parsing, account selection and the instrumentation wrapper every
// tool handler runs through.
package common
