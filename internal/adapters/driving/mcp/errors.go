// Package mcp provides an MCP (Model Context Protocol) server adapter
// for stagechat. It lets AI assistants ask questions against the
// indexed corpus and trigger stage refreshes.
package mcp

import "errors"

// ErrMissingChatService is returned when the chat service is not provided.
var ErrMissingChatService = errors.New("mcp: chat service is required")
