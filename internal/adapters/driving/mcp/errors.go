// Package mcp provides an MCP (Model Context Protocol) server adapter for Quarry.
// It enables AI assistants to query the local passage corpus.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
