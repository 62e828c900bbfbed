package domain

import "fmt"

// Passage is a bounded, possibly overlapping slice of a document's
// text. It is the unit of retrieval. Offsets are rune positions within
// the extracted document content.
type Passage struct {
	// ID identifies the passage. Derived deterministically from the
	// document and offsets so re-indexing an unchanged document yields
	// identical IDs.
	ID string

	// DocumentID is the owning document's stage path.
	DocumentID string

	// Start is the inclusive rune offset within the document content.
	Start int

	// End is the exclusive rune offset within the document content.
	End int

	// Content is the passage text.
	Content string

	// Embedding is the passage's dense vector representation.
	Embedding []float32
}

// PassageID builds the deterministic ID for a passage.
func PassageID(documentID string, start, end int) string {
	return fmt.Sprintf("%s:%d-%d", documentID, start, end)
}

// Overlaps reports whether two passages of the same document have
// intersecting offset ranges. Passages of different documents never
// overlap.
func (p Passage) Overlaps(other Passage) bool {
	if p.DocumentID != other.DocumentID {
		return false
	}
	return p.Start < other.End && other.Start < p.End
}

// Citation references a passage by document identity and offset range.
type Citation struct {
	// DocumentID is the cited document's stage path.
	DocumentID string `json:"document_id"`

	// Start is the inclusive rune offset of the cited passage.
	Start int `json:"start"`

	// End is the exclusive rune offset of the cited passage.
	End int `json:"end"`
}

// ScoredPassage pairs a passage with its retrieval similarity score.
type ScoredPassage struct {
	Passage Passage

	// Score is the similarity between the query vector and the passage
	// vector under the configured metric.
	Score float64
}

// ContextBlock is the token-bounded set of passages assembled for the
// answer generator.
type ContextBlock struct {
	// Passages are the packed passages, highest score first.
	Passages []ScoredPassage

	// Truncated is true when at least one relevant candidate was dropped
	// because it would have exceeded the token budget.
	Truncated bool

	// NoDocuments is true when the index holds no passages at all. The
	// generator must answer that no matching documents exist rather than
	// fabricate content.
	NoDocuments bool
}
