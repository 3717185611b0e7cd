package printing

import (
	"errors"
	"time"
)

// Artifact is the composed output of a render pass
type Artifact struct {
	// Data is the raw PDF file content
	Data []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// RenderDuration is how long the render pass took
	RenderDuration time.Duration
}

// RenderError represents an error during PDF composition or storage
type RenderError struct {
	Code    string
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

// Error codes for rendering failures
const (
	ErrCodeRenderFailed     = "RENDER_FAILED"
	ErrCodeInvalidTemplate  = "INVALID_TEMPLATE"
	ErrCodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	ErrCodeFontNotFound     = "FONT_NOT_FOUND"
	ErrCodeStorageFailed    = "STORAGE_FAILED"
	ErrCodePreviewFailed    = "PREVIEW_FAILED"
)

// NewRenderError creates a new RenderError
func NewRenderError(code, message string, cause error) *RenderError {
	return &RenderError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Sentinel errors
var (
	ErrFontNotFound     = errors.New("font file not found")
	ErrTemplateNotFound = errors.New("template not found")
)

// ErrorCode extracts the RenderError code from err, or "" if there is none
func ErrorCode(err error) string {
	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return renderErr.Code
	}
	return ""
}
