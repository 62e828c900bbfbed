package mcp

import (
	"github.com/parchment-labs/stagechat/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces the MCP server exposes.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Chat answers questions against the corpus.
	Chat driving.ChatService

	// Indexer refreshes the index from the stage.
	Indexer driving.Indexer

	// Catalog lists the stage contents.
	Catalog driving.Catalog
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Chat == nil {
		return ErrMissingChatService
	}
	// Indexer and Catalog are optional; their tools are simply absent.
	return nil
}
