package domain

import (
	"path"
	"strings"
	"time"
)

// DocumentKind tags a stage object with its extraction capability.
// Dispatch happens on the tag, not on runtime content inspection.
type DocumentKind string

// Supported document kinds.
const (
	KindPlainText DocumentKind = "plaintext"
	KindMarkdown  DocumentKind = "markdown"
	KindHTML      DocumentKind = "html"
	KindPDF       DocumentKind = "pdf"
	KindDOCX      DocumentKind = "docx"
	KindOther     DocumentKind = "other"
)

// KindForPath classifies a stage path by its file extension.
// Unknown extensions map to KindOther.
func KindForPath(p string) DocumentKind {
	switch strings.ToLower(path.Ext(p)) {
	case ".txt", ".text", ".csv", ".log", ".json", ".yaml", ".yml", ".toml":
		return KindPlainText
	case ".md", ".markdown":
		return KindMarkdown
	case ".html", ".htm":
		return KindHTML
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	default:
		return KindOther
	}
}

// Document is a stage object with its extracted plain text.
// The catalog owns the lifecycle: a document is created when first
// observed, re-materialized when its hash changes and removed when it
// disappears from a listing. Index entries reference it by ID only.
type Document struct {
	// ID is the stage path of the source object.
	ID string

	// Hash is the content hash at extraction time.
	Hash string

	// LastModified is the stage timestamp at extraction time.
	LastModified time.Time

	// Content is the extracted plain text.
	Content string

	// IndexedAt is when the document was last processed by a refresh.
	IndexedAt time.Time
}
