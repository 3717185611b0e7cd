package printing

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/domain/shared"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
	"github.com/erp/pdfkit/internal/infrastructure/telemetry"
)

// ErrMirrorDisabled is returned for download links when no mirror is configured
var ErrMirrorDisabled = shared.NewDomainError("MIRROR_DISABLED", "Artifact mirroring is not configured")

// PDFService handles document rendering and the stored artifact lifecycle
type PDFService struct {
	registry *BuilderRegistry
	composer *Composer
	store    infra.ArtifactStorage
	index    ArtifactIndex
	mirror   ArtifactMirror
	linkTTL  time.Duration
	metrics  *telemetry.RenderMetrics
	logger   *zap.Logger
}

// ServiceOption configures a PDFService
type ServiceOption func(*PDFService)

// WithMirror copies every saved artifact to remote object storage
func WithMirror(mirror ArtifactMirror) ServiceOption {
	return func(s *PDFService) {
		s.mirror = mirror
	}
}

// WithLinkTTL sets the lifetime of presigned download links
func WithLinkTTL(ttl time.Duration) ServiceOption {
	return func(s *PDFService) {
		s.linkTTL = ttl
	}
}

// WithMetrics records render counts, sizes and durations
func WithMetrics(metrics *telemetry.RenderMetrics) ServiceOption {
	return func(s *PDFService) {
		s.metrics = metrics
	}
}

// NewPDFService creates a new PDFService
func NewPDFService(
	registry *BuilderRegistry,
	composer *Composer,
	store infra.ArtifactStorage,
	index ArtifactIndex,
	logger *zap.Logger,
	opts ...ServiceOption,
) *PDFService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if index == nil {
		index = NewMemoryIndex()
	}
	s := &PDFService{
		registry: registry,
		composer: composer,
		store:    store,
		index:    index,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Rendering
// =============================================================================

// Build creates the document of kind for the record id. The document knows the
// stored file of a previous save, if any.
func (s *PDFService) Build(ctx context.Context, kind, id string) (*infra.Document, error) {
	doc, err := s.registry.Build(ctx, s.composer, kind, id)
	if err != nil {
		return nil, err
	}
	previous, ok, err := s.index.Lookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if ok && doc.FileName() == "" {
		doc.SetFileName(previous)
	}
	return doc, nil
}

// Stream renders the document and writes it to w for a print or download
// action. It returns the file name offered to the client.
func (s *PDFService) Stream(ctx context.Context, kind, id string, action domain.OutputAction, w io.Writer) (name string, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pdf", "stream",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, kind),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
		telemetry.WithAttribute(telemetry.SpanAttrAction, action.String()),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	if !action.IsStream() {
		return "", shared.NewDomainError("INVALID_INPUT", "Output action must be print or download")
	}

	doc, err := s.Build(ctx, kind, id)
	if err != nil {
		return "", err
	}

	artifact, err := doc.Render(ctx)
	if err != nil {
		s.metrics.RecordFailure(ctx, kind, action.String())
		return "", fmt.Errorf("failed to render %s %s: %w", kind, id, err)
	}
	s.metrics.RecordRender(ctx, kind, action.String(), artifact.PageCount, int64(len(artifact.Data)), artifact.RenderDuration)

	// Emit reuses the cached artifact
	name, err = doc.Emit(ctx, action, w, "")
	if err != nil {
		return "", fmt.Errorf("failed to emit %s %s: %w", kind, id, err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrFileName, name)

	s.logger.Info("PDF streamed",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("action", action.String()),
		zap.String("file", name))
	return name, nil
}

// Save renders the document into the output directory, replacing the file of
// a previous save together with its preview
func (s *PDFService) Save(ctx context.Context, kind, id string) (resp *SaveResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pdf", "save",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, kind),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	doc, err := s.Build(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	artifact, err := doc.Render(ctx)
	if err != nil {
		s.metrics.RecordFailure(ctx, kind, domain.OutputActionSave.String())
		return nil, fmt.Errorf("failed to render %s %s: %w", kind, id, err)
	}
	s.metrics.RecordRender(ctx, kind, domain.OutputActionSave.String(), artifact.PageCount, int64(len(artifact.Data)), artifact.RenderDuration)

	previous := doc.FileName()
	result, err := s.store.RenderToDir(ctx, kind, previous, artifact.Data)
	if err != nil {
		return nil, err
	}
	if err := s.index.Record(ctx, kind, id, result.Ref.FileName); err != nil {
		return nil, err
	}
	doc.SetFileName(result.Ref.FileName)

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFileName, result.Ref.FileName,
		telemetry.SpanAttrPageCount, artifact.PageCount,
		telemetry.SpanAttrSize, result.Size,
	)
	if previous != "" {
		telemetry.AddEvent(span, "previous_replaced", telemetry.SpanAttrFileName, previous)
	}

	mirrored := s.mirrorSave(ctx, kind, previous, result.Ref.FileName, artifact.Data)

	s.logger.Info("PDF saved",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("file", result.Ref.FileName),
		zap.String("replaced", previous),
		zap.Int("pages", artifact.PageCount),
		zap.Bool("mirrored", mirrored))

	return &SaveResponse{
		Kind:      kind,
		ID:        id,
		FileName:  result.Ref.FileName,
		Path:      result.Path,
		Size:      result.Size,
		PageCount: artifact.PageCount,
		Replaced:  previous,
		Mirrored:  mirrored,
		SavedAt:   time.Now(),
	}, nil
}

// mirrorSave uploads the new artifact and drops the replaced one. The local
// file stays authoritative, so mirror failures are only logged.
func (s *PDFService) mirrorSave(ctx context.Context, kind, previous, fileName string, data []byte) bool {
	if s.mirror == nil {
		return false
	}
	if previous != "" && previous != fileName {
		if err := s.mirror.DeleteObject(ctx, MirrorKey(kind, previous)); err != nil {
			s.logger.Warn("Failed to remove replaced mirror object",
				zap.String("key", MirrorKey(kind, previous)), zap.Error(err))
		}
	}
	if err := s.mirror.Upload(ctx, MirrorKey(kind, fileName), data, "application/pdf"); err != nil {
		s.logger.Warn("Failed to mirror artifact",
			zap.String("key", MirrorKey(kind, fileName)), zap.Error(err))
		return false
	}
	return true
}

// =============================================================================
// Stored artifacts
// =============================================================================

// Open opens the stored file of a saved document
func (s *PDFService) Open(ctx context.Context, kind, id string) (io.ReadCloser, error) {
	ref, err := s.storedRef(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return s.store.Open(ctx, ref)
}

// PreviewPath returns the preview image of a saved document, creating it on
// first use. It returns "" if previews are disabled or the file is gone.
func (s *PDFService) PreviewPath(ctx context.Context, kind, id string) (path string, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pdf", "preview",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, kind),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	ref, err := s.storedRef(ctx, kind, id)
	if err != nil {
		return "", err
	}
	return s.store.CreateAndGetPreviewPath(ctx, ref)
}

// OpenPreview opens the preview image of a saved document, creating it on
// first use
func (s *PDFService) OpenPreview(ctx context.Context, kind, id string) (io.ReadCloser, error) {
	ref, err := s.storedRef(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	path, err := s.store.CreateAndGetPreviewPath(ctx, ref)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("No preview available for %s %s", kind, id))
	}
	return s.store.OpenPreview(ctx, ref)
}

// DownloadURL returns a presigned link to the mirrored copy of a saved document
func (s *PDFService) DownloadURL(ctx context.Context, kind, id string) (*DownloadURLResponse, error) {
	if s.mirror == nil {
		return nil, ErrMirrorDisabled
	}
	ref, err := s.storedRef(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	url, expiresAt, err := s.mirror.GenerateDownloadURL(ctx, MirrorKey(ref.Kind, ref.FileName), s.linkTTL)
	if err != nil {
		return nil, err
	}
	return &DownloadURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

// Delete removes the stored file and preview of a saved document
func (s *PDFService) Delete(ctx context.Context, kind, id string) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "pdf", "delete",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentKind, kind),
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id),
	)
	defer span.End()
	defer func() { telemetry.RecordError(span, err) }()

	ref, err := s.storedRef(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFileAndPreview(ctx, ref); err != nil {
		return err
	}
	if err := s.index.Forget(ctx, kind, id); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.DeleteObject(ctx, MirrorKey(kind, ref.FileName)); err != nil {
			s.logger.Warn("Failed to remove mirror object",
				zap.String("key", MirrorKey(kind, ref.FileName)), zap.Error(err))
		}
	}

	s.logger.Info("PDF deleted",
		zap.String("kind", kind),
		zap.String("id", id),
		zap.String("file", ref.FileName))
	return nil
}

// Cleanup removes stored files older than age and forgets them
func (s *PDFService) Cleanup(ctx context.Context, age time.Duration) (*CleanupResponse, error) {
	deleted, err := s.store.CleanupOlderThan(ctx, age)
	if err != nil {
		return nil, err
	}

	entries, err := s.index.Entries(ctx)
	if err != nil {
		return nil, err
	}
	forgotten := 0
	for _, entry := range entries {
		ref := infra.ArtifactRef{Kind: entry.Kind, FileName: entry.FileName}
		exists, err := s.store.HasExisting(ctx, ref)
		if err != nil || exists {
			continue
		}
		if err := s.index.Forget(ctx, entry.Kind, entry.ID); err != nil {
			return nil, err
		}
		forgotten++
	}

	if deleted > 0 || forgotten > 0 {
		s.logger.Info("PDF retention sweep",
			zap.Int("deleted", deleted),
			zap.Int("forgotten", forgotten),
			zap.Duration("age", age))
	}
	return &CleanupResponse{Deleted: deleted, Forgotten: forgotten}, nil
}

func (s *PDFService) storedRef(ctx context.Context, kind, id string) (infra.ArtifactRef, error) {
	if !s.registry.HasKind(kind) {
		return infra.ArtifactRef{}, fmt.Errorf("%w: %s", ErrUnknownDocumentKind, kind)
	}
	name, ok, err := s.index.Lookup(ctx, kind, id)
	if err != nil {
		return infra.ArtifactRef{}, err
	}
	if !ok {
		return infra.ArtifactRef{}, shared.NewDomainError("NOT_FOUND",
			fmt.Sprintf("No stored file for %s %s", kind, id))
	}
	return infra.ArtifactRef{Kind: kind, FileName: name}, nil
}

// =============================================================================
// Reference data
// =============================================================================

// Kinds returns the registered document kinds
func (s *PDFService) Kinds() []DocumentKindResponse {
	builders := s.registry.Builders()
	kinds := make([]DocumentKindResponse, len(builders))
	for i, b := range builders {
		kinds[i] = DocumentKindResponse{Kind: b.Kind(), Description: b.Description()}
	}
	return kinds
}

// PaperSizes returns all supported paper sizes
func (s *PDFService) PaperSizes() []PaperSizeResponse {
	sizes := domain.AllPaperSizes()
	result := make([]PaperSizeResponse, len(sizes))
	for i, size := range sizes {
		width, height := size.Dimensions()
		result[i] = PaperSizeResponse{
			Code:   string(size),
			Width:  width,
			Height: height,
		}
	}
	return result
}
