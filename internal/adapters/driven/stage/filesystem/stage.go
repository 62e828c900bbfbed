// Package filesystem provides a stage backed by a local directory.
// Every regular file under the root is a stage object; its path
// relative to the root is the object ID and its content hash is
// computed on listing.
package filesystem

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure Stage implements the interface.
var _ driven.StageStore = (*Stage)(nil)

// Stage is a filesystem-backed stage.
type Stage struct {
	root string
}

// New creates a stage rooted at dir.
func New(dir string) (*Stage, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: stat stage root: %w", domain.ErrBackendUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: stage root %s is not a directory", domain.ErrInvalidInput, dir)
	}
	return &Stage{root: dir}, nil
}

// Root returns the stage root directory. Used by the sync watcher.
func (s *Stage) Root() string {
	return s.root
}

// List walks the root and returns every regular file as a stage object.
func (s *Stage) List(ctx context.Context) ([]domain.StageObject, error) {
	var objects []domain.StageObject

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if strings.HasPrefix(d.Name(), ".") && path != s.root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		hash, err := hashFile(path)
		if err != nil {
			return err
		}

		objects = append(objects, domain.StageObject{
			ID:           filepath.ToSlash(rel),
			Hash:         hash,
			LastModified: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list stage: %w", domain.ErrBackendUnavailable, err)
	}

	return objects, nil
}

// Read returns the raw bytes of one object.
func (s *Stage) Read(_ context.Context, id string) ([]byte, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, fmt.Errorf("%w: object id %q escapes the stage", domain.ErrInvalidInput, id)
	}

	data, err := os.ReadFile(filepath.Join(s.root, clean))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrBackendUnavailable, id, err)
	}
	return data, nil
}

// Close releases resources.
func (s *Stage) Close() error {
	return nil
}

func hashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
