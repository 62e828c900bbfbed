package mcp

import (
	"context"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question  string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"conversation session to continue; omit to start a new one"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string           `json:"answer"`
	Citations    []CitationOutput `json:"citations,omitempty"`
	SessionID    string           `json:"session_id"`
	UsedFallback bool             `json:"used_fallback"`
}

// CitationOutput references a cited document region.
type CitationOutput struct {
	DocumentID string `json:"document_id"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
}

// RefreshInput is the input schema for the refresh tool.
type RefreshInput struct{}

// RefreshOutput is the output schema for the refresh tool.
type RefreshOutput struct {
	Added    int             `json:"added"`
	Modified int             `json:"modified"`
	Removed  int             `json:"removed"`
	Failed   []FailureOutput `json:"failed,omitempty"`
}

// FailureOutput records one document that failed to index.
type FailureOutput struct {
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct{}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes one stage object.
type DocumentOutput struct {
	ID           string `json:"id"`
	LastModified string `json:"last_modified"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Ask a question answered from the indexed documents, with citations",
	}, s.handleAsk)

	if s.ports.Indexer != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "refresh",
			Description: "Re-synchronise the index with the document stage",
		}, s.handleRefresh)
	}

	if s.ports.Catalog != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_documents",
			Description: "List the documents currently in the stage",
		}, s.handleListDocuments)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := s.ports.Chat.Ask(ctx, sessionID, input.Question)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:       answer.Text,
		SessionID:    sessionID,
		UsedFallback: answer.UsedFallback,
	}
	for _, c := range answer.Citations {
		output.Citations = append(output.Citations, CitationOutput{
			DocumentID: c.DocumentID,
			Start:      c.Start,
			End:        c.End,
		})
	}

	return nil, output, nil
}

// handleRefresh handles the refresh tool invocation.
func (s *Server) handleRefresh(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ RefreshInput,
) (*mcp.CallToolResult, RefreshOutput, error) {
	result, err := s.ports.Indexer.Refresh(ctx)
	if err != nil {
		return nil, RefreshOutput{}, err
	}

	output := RefreshOutput{
		Added:    result.Added,
		Modified: result.Modified,
		Removed:  result.Removed,
	}
	for _, f := range result.Failed {
		output.Failed = append(output.Failed, FailureOutput{
			DocumentID: f.DocumentID,
			Reason:     f.Reason,
		})
	}

	return nil, output, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	objects, err := s.ports.Catalog.ListDocuments(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Count: len(objects)}
	for _, obj := range objects {
		output.Documents = append(output.Documents, DocumentOutput{
			ID:           obj.ID,
			LastModified: obj.LastModified.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	return nil, output, nil
}
