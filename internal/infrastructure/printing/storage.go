package printing

import (
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// PreviewExtension is the extension of preview images
const PreviewExtension = ".jpg"

const previewQuality = 85

// ArtifactStorage defines the lifecycle of generated files and their previews
type ArtifactStorage interface {
	// RenderToDir replaces the previous artifact of a kind with data
	RenderToDir(ctx context.Context, kind, previous string, data []byte) (*StoreResult, error)
	// Open opens a stored artifact
	Open(ctx context.Context, ref ArtifactRef) (io.ReadCloser, error)
	// HasExisting reports whether the artifact exists
	HasExisting(ctx context.Context, ref ArtifactRef) (bool, error)
	// DeleteFileAndPreview removes an artifact and its preview
	DeleteFileAndPreview(ctx context.Context, ref ArtifactRef) error
	// CreateAndGetPreviewPath returns the preview path, creating the image on first use
	CreateAndGetPreviewPath(ctx context.Context, ref ArtifactRef) (string, error)
	// OpenPreview opens the preview image, creating it on first use
	OpenPreview(ctx context.Context, ref ArtifactRef) (io.ReadCloser, error)
	// CleanupOlderThan removes artifacts older than age
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// ArtifactRef names a stored artifact
type ArtifactRef struct {
	Kind     string
	FileName string
}

// StoreResult contains the result of storing an artifact
type StoreResult struct {
	Ref ArtifactRef
	// Path is the full path of the stored file
	Path string
	// Size is the file size in bytes
	Size int64
}

// ArtifactStoreConfig contains configuration for the artifact store
type ArtifactStoreConfig struct {
	// BaseDir is the root of per-kind artifact directories
	// Default: var/pdf
	BaseDir string
	// PreviewDir is the root of per-kind preview directories; empty disables previews
	PreviewDir string
	// PreviewDPI is the preview resolution; 0 uses the rasterizer default
	PreviewDPI float64
	// Fs is the file system; defaults to the OS file system
	Fs afero.Fs
	// Rasterizer renders previews; defaults to FitzRasterizer
	Rasterizer Rasterizer
	// Logger for operations
	Logger *zap.Logger
}

// ArtifactStore lays out artifacts as <base>/<kind>/<name>.pdf and previews as
// <previewBase>/<kind>/<name>.jpg
type ArtifactStore struct {
	config *ArtifactStoreConfig
	fs     afero.Fs
	logger *zap.Logger
}

// NewArtifactStore creates a new artifact store
func NewArtifactStore(config *ArtifactStoreConfig) (*ArtifactStore, error) {
	if config == nil {
		config = &ArtifactStoreConfig{}
	}

	if config.BaseDir == "" {
		config.BaseDir = filepath.Join("var", "pdf")
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Rasterizer == nil {
		config.Rasterizer = NewFitzRasterizer()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := config.Fs.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create storage directory: %s", config.BaseDir), err)
	}

	return &ArtifactStore{
		config: config,
		fs:     config.Fs,
		logger: logger,
	}, nil
}

// Dir returns the artifact directory of kind
func (s *ArtifactStore) Dir(kind string) string {
	return filepath.Join(s.config.BaseDir, kind)
}

// HasPreviewPath reports whether previews are enabled
func (s *ArtifactStore) HasPreviewPath() bool {
	return s.config.PreviewDir != ""
}

// PreviewDir returns the preview directory of kind, or "" if previews are disabled
func (s *ArtifactStore) PreviewDir(kind string) string {
	if !s.HasPreviewPath() {
		return ""
	}
	return filepath.Join(s.config.PreviewDir, kind)
}

// UniqueFileName returns a file name with ext that does not exist in the
// artifact directory of kind
func (s *ArtifactStore) UniqueFileName(kind, ext string) (string, error) {
	for {
		name := uuid.NewString() + ext
		exists, err := afero.Exists(s.fs, filepath.Join(s.Dir(kind), name))
		if err != nil {
			return "", NewRenderError(ErrCodeStorageFailed, "failed to check file name", err)
		}
		if !exists {
			return name, nil
		}
	}
}

// FileAbsolutePath returns the full path of ref
func (s *ArtifactStore) FileAbsolutePath(ref ArtifactRef) (string, error) {
	if err := s.validateRef(ref); err != nil {
		return "", err
	}
	return filepath.Join(s.Dir(ref.Kind), ref.FileName), nil
}

// PreviewAbsolutePath returns the full preview path of ref, or "" if previews
// are disabled
func (s *ArtifactStore) PreviewAbsolutePath(ref ArtifactRef) (string, error) {
	if err := s.validateRef(ref); err != nil {
		return "", err
	}
	if !s.HasPreviewPath() {
		return "", nil
	}
	base := strings.TrimSuffix(ref.FileName, filepath.Ext(ref.FileName))
	return filepath.Join(s.PreviewDir(ref.Kind), base+PreviewExtension), nil
}

// HasExisting reports whether ref names an existing artifact
func (s *ArtifactStore) HasExisting(ctx context.Context, ref ArtifactRef) (bool, error) {
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if ref.FileName == "" {
		return false, nil
	}

	path, err := s.FileAbsolutePath(ref)
	if err != nil {
		return false, err
	}
	exists, err := afero.Exists(s.fs, path)
	if err != nil {
		return false, NewRenderError(ErrCodeStorageFailed, "failed to stat PDF file", err)
	}
	return exists, nil
}

// RenderToDir deletes the previous artifact of kind and its preview, then
// writes data under a new unique name
func (s *ArtifactStore) RenderToDir(ctx context.Context, kind, previous string, data []byte) (*StoreResult, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, NewRenderError(ErrCodeStorageFailed, "PDF data is empty", nil)
	}
	if !IsPDF(data) {
		return nil, NewRenderError(ErrCodeStorageFailed, "data is not a PDF document", nil)
	}
	if err := validateName(kind); err != nil {
		return nil, err
	}

	if previous != "" {
		if err := s.DeleteFileAndPreview(ctx, ArtifactRef{Kind: kind, FileName: previous}); err != nil {
			return nil, err
		}
	}

	dir := s.Dir(kind)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create directory", err)
	}

	name, err := s.UniqueFileName(kind, FileExtension)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write PDF file", err)
	}

	s.logger.Info("PDF stored",
		zap.String("path", path),
		zap.Int("size", len(data)),
		zap.String("replaced", previous))

	return &StoreResult{
		Ref:  ArtifactRef{Kind: kind, FileName: name},
		Path: path,
		Size: int64(len(data)),
	}, nil
}

// Open opens a stored artifact
func (s *ArtifactStore) Open(ctx context.Context, ref ArtifactRef) (io.ReadCloser, error) {
	path, err := s.FileAbsolutePath(ref)
	if err != nil {
		return nil, err
	}
	return s.open(ctx, path, "PDF")
}

// OpenPreview opens the preview of ref, creating it on first use
func (s *ArtifactStore) OpenPreview(ctx context.Context, ref ArtifactRef) (io.ReadCloser, error) {
	path, err := s.CreateAndGetPreviewPath(ctx, ref)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, NewRenderError(ErrCodeStorageFailed, "preview not available",
			fmt.Errorf("%w: %s", fs.ErrNotExist, ref.FileName))
	}
	return s.open(ctx, path, "preview")
}

func (s *ArtifactStore) open(ctx context.Context, path, what string) (io.ReadCloser, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	file, err := s.fs.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewRenderError(ErrCodeStorageFailed, what+" not found", err)
		}
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to open "+what+" file", err)
	}
	return file, nil
}

// Delete removes an artifact. A missing file is not an error.
func (s *ArtifactStore) Delete(ctx context.Context, ref ArtifactRef) error {
	path, err := s.FileAbsolutePath(ref)
	if err != nil {
		return err
	}
	return s.remove(ctx, path)
}

// DeletePreview removes the preview of an artifact. A missing file is not an error.
func (s *ArtifactStore) DeletePreview(ctx context.Context, ref ArtifactRef) error {
	path, err := s.PreviewAbsolutePath(ref)
	if err != nil || path == "" {
		return err
	}
	return s.remove(ctx, path)
}

// DeleteFileAndPreview removes an artifact and its preview
func (s *ArtifactStore) DeleteFileAndPreview(ctx context.Context, ref ArtifactRef) error {
	if err := s.Delete(ctx, ref); err != nil {
		return err
	}
	return s.DeletePreview(ctx, ref)
}

func (s *ArtifactStore) remove(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if err := s.fs.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // Already deleted, not an error
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete file", err)
	}

	s.logger.Info("File deleted", zap.String("path", path))
	return nil
}

// CreateAndGetPreviewPath returns the preview path of ref, rasterizing the
// first page if no preview exists yet. A cached preview is returned even when
// the artifact is gone. It returns "" if previews are disabled or neither
// exists.
func (s *ArtifactStore) CreateAndGetPreviewPath(ctx context.Context, ref ArtifactRef) (string, error) {
	if !s.HasPreviewPath() {
		return "", nil
	}

	previewPath, err := s.PreviewAbsolutePath(ref)
	if err != nil {
		return "", err
	}
	if ok, _ := afero.Exists(s.fs, previewPath); ok {
		return previewPath, nil
	}

	exists, err := s.HasExisting(ctx, ref)
	if err != nil || !exists {
		return "", err
	}

	if err := s.fs.MkdirAll(s.PreviewDir(ref.Kind), 0o777); err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to create preview directory", err)
	}

	pdfPath, _ := s.FileAbsolutePath(ref)
	data, err := afero.ReadFile(s.fs, pdfPath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to read PDF file", err)
	}
	if !IsPDF(data) {
		return "", NewRenderError(ErrCodePreviewFailed, "stored file is not a PDF document", nil)
	}

	img, err := s.config.Rasterizer.Rasterize(data, 0, s.config.PreviewDPI)
	if err != nil {
		return "", err
	}

	// Write under a temporary name so concurrent readers never see a partial image
	tmpPath := previewPath + "." + uuid.NewString() + ".tmp"
	file, err := s.fs.Create(tmpPath)
	if err != nil {
		return "", NewRenderError(ErrCodeStorageFailed, "failed to create preview file", err)
	}
	if err := jpeg.Encode(file, img, &jpeg.Options{Quality: previewQuality}); err != nil {
		file.Close()
		_ = s.fs.Remove(tmpPath)
		return "", NewRenderError(ErrCodePreviewFailed, "failed to encode preview", err)
	}
	if err := file.Close(); err != nil {
		_ = s.fs.Remove(tmpPath)
		return "", NewRenderError(ErrCodeStorageFailed, "failed to write preview file", err)
	}
	if err := s.fs.Rename(tmpPath, previewPath); err != nil {
		_ = s.fs.Remove(tmpPath)
		return "", NewRenderError(ErrCodeStorageFailed, "failed to move preview file", err)
	}

	s.logger.Info("Preview created",
		zap.String("path", previewPath),
		zap.String("source", pdfPath))

	return previewPath, nil
}

// CleanupOlderThan removes artifacts older than age together with their previews
func (s *ArtifactStore) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deletedCount := 0

	err := afero.Walk(s.fs, s.config.BaseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() || filepath.Ext(path) != FileExtension {
			return nil
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}

		ref := ArtifactRef{
			Kind:     filepath.Base(filepath.Dir(path)),
			FileName: info.Name(),
		}
		if err := s.fs.Remove(path); err == nil {
			deletedCount++
			_ = s.DeletePreview(ctx, ref)
			s.logger.Debug("deleted old PDF", zap.String("path", path))
		}
		return nil
	})

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("cleanup interrupted",
			zap.Int("deleted", deletedCount),
			zap.Error(err))
		return deletedCount, err
	}
	if err != nil {
		return deletedCount, NewRenderError(ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	s.logger.Info("cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

func (s *ArtifactStore) validateRef(ref ArtifactRef) error {
	if err := validateName(ref.Kind); err != nil {
		return err
	}
	if err := validateName(ref.FileName); err != nil {
		s.logger.Warn("blocked potentially malicious path",
			zap.String("kind", ref.Kind),
			zap.String("file", ref.FileName))
		return err
	}
	return nil
}

// validateName accepts a single path element only
func validateName(name string) error {
	if name == "" || name == "." || containsDotDot(name) ||
		strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		return NewRenderError(ErrCodeStorageFailed, fmt.Sprintf("invalid path element %q", name), nil)
	}
	return nil
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
		return nil
	}
}

// Ensure ArtifactStore implements ArtifactStorage
var _ ArtifactStorage = (*ArtifactStore)(nil)
