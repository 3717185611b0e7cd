package printing

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/pdfkit/internal/domain/shared"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
)

// ErrUnknownDocumentKind is returned for kinds without a registered builder
var ErrUnknownDocumentKind = shared.NewDomainError("UNKNOWN_DOCUMENT_KIND", "No document builder registered for this kind")

// DocumentBuilder assembles the pages of one document kind
type DocumentBuilder interface {
	// Kind returns the document kind this builder handles
	Kind() string
	// Description is shown when listing kinds
	Description() string
	// Build creates the document for the record identified by id
	Build(ctx context.Context, composer *Composer, id string) (*infra.Document, error)
}

// BuilderRegistry manages DocumentBuilder implementations for different document kinds.
type BuilderRegistry struct {
	mu       sync.RWMutex
	builders map[string]DocumentBuilder
}

// NewBuilderRegistry creates a registry holding builders
func NewBuilderRegistry(builders ...DocumentBuilder) *BuilderRegistry {
	r := &BuilderRegistry{
		builders: make(map[string]DocumentBuilder),
	}
	for _, b := range builders {
		r.Register(b)
	}
	return r
}

// Register adds a builder to the registry.
// If a builder for the same kind already exists, it will be replaced.
func (r *BuilderRegistry) Register(builder DocumentBuilder) {
	if builder == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[builder.Kind()] = builder
}

// Builder returns the builder for kind
func (r *BuilderRegistry) Builder(kind string) (DocumentBuilder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builder, ok := r.builders[kind]
	return builder, ok
}

// HasKind checks if a builder is registered for kind
func (r *BuilderRegistry) HasKind(kind string) bool {
	_, ok := r.Builder(kind)
	return ok
}

// Build creates a document using the builder registered for kind
func (r *BuilderRegistry) Build(ctx context.Context, composer *Composer, kind, id string) (*infra.Document, error) {
	builder, ok := r.Builder(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocumentKind, kind)
	}
	return builder.Build(ctx, composer, id)
}

// Builders returns all registered builders sorted by kind
func (r *BuilderRegistry) Builders() []DocumentBuilder {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builders := make([]DocumentBuilder, 0, len(r.builders))
	for _, b := range r.builders {
		builders = append(builders, b)
	}
	sort.Slice(builders, func(i, j int) bool { return builders[i].Kind() < builders[j].Kind() })
	return builders
}
