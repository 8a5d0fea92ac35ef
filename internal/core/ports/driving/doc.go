// Package driving provides interfaces consumed by front ends
// (primary/inbound ports): the CLI and the MCP server.
package driving
