// Package memory provides an in-memory stage for tests.
package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure Stage implements the interface.
var _ driven.StageStore = (*Stage)(nil)

type object struct {
	data     []byte
	hash     string
	modified time.Time
}

// Stage is an in-memory stage.
type Stage struct {
	mu      sync.RWMutex
	objects map[string]object

	// ListErr, when set, is returned by List. Simulates an unreachable
	// backend in tests.
	ListErr error
}

// NewStage creates an empty in-memory stage.
func NewStage() *Stage {
	return &Stage{objects: make(map[string]object)}
}

// Put adds or replaces an object.
func (s *Stage) Put(id string, data []byte, modified time.Time) {
	sum := sha256.Sum256(data)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[id] = object{
		data:     append([]byte(nil), data...),
		hash:     hex.EncodeToString(sum[:]),
		modified: modified,
	}
}

// Remove deletes an object.
func (s *Stage) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, id)
}

// List returns the objects currently present, sorted by ID.
func (s *Stage) List(_ context.Context) ([]domain.StageObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.ListErr != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, s.ListErr)
	}

	objects := make([]domain.StageObject, 0, len(s.objects))
	for id, obj := range s.objects {
		objects = append(objects, domain.StageObject{
			ID:           id,
			Hash:         obj.hash,
			LastModified: obj.modified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].ID < objects[j].ID })
	return objects, nil
}

// Read returns the raw bytes of one object.
func (s *Stage) Read(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return append([]byte(nil), obj.data...), nil
}

// Close releases resources.
func (s *Stage) Close() error {
	return nil
}
