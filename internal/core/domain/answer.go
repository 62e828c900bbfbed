package domain

// Answer is the result of asking a question against the corpus.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"answer"`

	// Citations reference the passages the answer drew on, in the order
	// they were first cited.
	Citations []Citation `json:"citations"`

	// UsedFallback is true when retrieval produced no usable context and
	// the answer states that no matching documents were found.
	UsedFallback bool `json:"used_fallback"`
}

// RefreshFailure records one document that failed during a refresh.
type RefreshFailure struct {
	// DocumentID is the stage path of the failed document.
	DocumentID string `json:"document_id"`

	// Reason is the failure description.
	Reason string `json:"reason"`
}

// RefreshResult summarises one Indexer refresh pass. Counts cover
// documents that were fully committed; failed documents appear only in
// Failed.
type RefreshResult struct {
	Added    int              `json:"added"`
	Modified int              `json:"modified"`
	Removed  int              `json:"removed"`
	Failed   []RefreshFailure `json:"failed,omitempty"`
}
