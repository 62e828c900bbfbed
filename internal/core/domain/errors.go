package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a document kind with no extraction strategy.
	ErrUnsupportedType = errors.New("unsupported type")

	// Backend Errors.

	// ErrBackendUnavailable indicates a storage, embedding or completion
	// backend call failed. Transient; the caller decides whether to retry.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrExtractionFailed indicates a specific document could not be
	// converted to plain text. The document is skipped; the rest of the
	// refresh continues.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrIndexInconsistent indicates an index invariant check failed, such
	// as persisted passages whose owning document hash no longer matches
	// the catalog. Self-healing by exclusion and purge, never fatal.
	ErrIndexInconsistent = errors.New("index inconsistent")

	// Generation Errors.

	// ErrGenerationRejected indicates the completion backend returned a
	// refusal or safety block. Surfaced verbatim, never retried here.
	ErrGenerationRejected = errors.New("generation rejected")

	// ErrSessionBusy indicates another question is already in flight for
	// the same session. Turns for one session are strictly serialized.
	ErrSessionBusy = errors.New("session busy")
)
