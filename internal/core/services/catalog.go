package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
	"github.com/parchment-labs/stagechat/internal/core/ports/driving"
	"github.com/parchment-labs/stagechat/internal/logger"
)

// Ensure CatalogService implements the interface.
var _ driving.Catalog = (*CatalogService)(nil)

// CatalogService lists the stage and computes snapshot diffs.
// It never mutates any state; recording snapshots is the Indexer's job.
type CatalogService struct {
	stage driven.StageStore
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(stage driven.StageStore) *CatalogService {
	return &CatalogService{stage: stage}
}

// ListDocuments returns the objects currently in the stage, sorted by
// stage path.
func (s *CatalogService) ListDocuments(ctx context.Context) ([]domain.StageObject, error) {
	objects, err := s.stage.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing stage: %w", err)
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID < objects[j].ID
	})
	logger.Debug("Stage listing: %d objects", len(objects))
	return objects, nil
}

// Snapshot captures a listing as a snapshot taken at now.
func Snapshot(objects []domain.StageObject, now time.Time) domain.CatalogSnapshot {
	snap := domain.CatalogSnapshot{
		TakenAt: now,
		Objects: make(map[string]domain.StageObject, len(objects)),
	}
	for _, obj := range objects {
		snap.Objects[obj.ID] = obj
	}
	return snap
}

// DiffSnapshot partitions the current listing against a previous
// snapshot. A nil previous snapshot reports everything as added. An
// object counts as modified when its hash changed, or when no hash is
// available and its timestamp changed. The three sets are disjoint and
// sorted by stage path.
func DiffSnapshot(prev *domain.CatalogSnapshot, current []domain.StageObject) domain.CatalogDiff {
	var diff domain.CatalogDiff

	seen := make(map[string]bool, len(current))
	for _, obj := range current {
		seen[obj.ID] = true

		if prev == nil {
			diff.Added = append(diff.Added, obj)
			continue
		}
		old, ok := prev.Objects[obj.ID]
		if !ok {
			diff.Added = append(diff.Added, obj)
			continue
		}
		if changed(old, obj) {
			diff.Modified = append(diff.Modified, obj)
		}
	}

	if prev != nil {
		for id, obj := range prev.Objects {
			if !seen[id] {
				diff.Removed = append(diff.Removed, obj)
			}
		}
	}

	sortObjects(diff.Added)
	sortObjects(diff.Modified)
	sortObjects(diff.Removed)
	return diff
}

// changed reports whether an object's content differs from its
// snapshot record. Hashes are authoritative when both sides have one.
func changed(old, current domain.StageObject) bool {
	if old.Hash != "" && current.Hash != "" {
		return old.Hash != current.Hash
	}
	return !old.LastModified.Equal(current.LastModified)
}

func sortObjects(objects []domain.StageObject) {
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].ID < objects[j].ID
	})
}
