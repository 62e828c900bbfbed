package driven

import "github.com/parchment-labs/stagechat/internal/core/domain"

// Extractor converts raw stage object bytes into plain text.
// Extraction is a pure function of its inputs.
type Extractor interface {
	// Kind returns the document kind this extractor handles.
	Kind() domain.DocumentKind

	// Extract converts raw bytes to plain text. Per-document failures
	// wrap domain.ErrExtractionFailed.
	Extract(data []byte, name string) (string, error)
}

// ExtractorRegistry dispatches extraction by document kind.
type ExtractorRegistry interface {
	// Extract picks the extractor for the object's kind and runs it.
	// Unknown kinds return domain.ErrUnsupportedType.
	Extract(data []byte, name string) (string, error)
}
