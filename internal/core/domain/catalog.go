package domain

import "time"

// StageObject is a single object observed in the remote stage listing.
type StageObject struct {
	// ID is the object's stage path, unique within the stage.
	ID string

	// Hash is the content hash reported by (or computed from) the stage.
	Hash string

	// LastModified is the object's last modification timestamp.
	LastModified time.Time
}

// CatalogSnapshot records the stage contents observed by a refresh.
// The Indexer persists it and diffs the next listing against it.
type CatalogSnapshot struct {
	// TakenAt is when the listing was observed.
	TakenAt time.Time

	// Objects maps stage path to the object observed at TakenAt.
	Objects map[string]StageObject
}

// CatalogDiff partitions a stage listing relative to a snapshot into
// three disjoint sets.
type CatalogDiff struct {
	// Added are objects present now but absent from the snapshot.
	Added []StageObject

	// Modified are objects whose hash or timestamp changed.
	Modified []StageObject

	// Removed are snapshot objects absent from the current listing.
	Removed []StageObject
}

// Empty reports whether the diff contains no changes.
func (d CatalogDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Removed) == 0
}
