// Package extractors converts raw stage object bytes into plain text.
// Each extractor handles one document kind; the registry dispatches on
// the capability tag derived from the object's stage path.
package extractors

import (
	"fmt"

	"github.com/parchment-labs/stagechat/internal/core/domain"
	"github.com/parchment-labs/stagechat/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry dispatches extraction by document kind.
type Registry struct {
	byKind map[domain.DocumentKind]driven.Extractor
}

// NewRegistry creates a registry with the given extractors.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byKind: make(map[domain.DocumentKind]driven.Extractor)}
	for _, e := range extractors {
		r.byKind[e.Kind()] = e
	}
	return r
}

// Default returns a registry covering all supported document kinds.
func Default() *Registry {
	return NewRegistry(
		&PlainText{},
		&Markdown{},
		&HTML{},
		&PDF{},
		&DOCX{},
	)
}

// Extract picks the extractor for the object's kind and runs it.
func (r *Registry) Extract(data []byte, name string) (string, error) {
	kind := domain.KindForPath(name)
	e, ok := r.byKind[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, name, kind)
	}

	text, err := e.Extract(data, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, name, err)
	}
	return text, nil
}
