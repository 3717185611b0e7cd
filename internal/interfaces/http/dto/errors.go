package dto

import "net/http"

// Error codes returned in API responses. All codes carry the ERR_ prefix.
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	// Request errors
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"

	// Resource errors
	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	// Document errors
	ErrCodeUnknownDocumentKind = "ERR_UNKNOWN_DOCUMENT_KIND"
	ErrCodeNoLayoutProgress    = "ERR_NO_LAYOUT_PROGRESS"
	ErrCodeRenderFailed        = "ERR_RENDER_FAILED"
	ErrCodeTemplate            = "ERR_TEMPLATE"
	ErrCodeFontNotFound        = "ERR_FONT_NOT_FOUND"
	ErrCodeStorageFailed       = "ERR_STORAGE_FAILED"
	ErrCodePreviewFailed       = "ERR_PREVIEW_FAILED"
	ErrCodeMirrorDisabled      = "ERR_MIRROR_DISABLED"

	// Throttling
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidState: http.StatusUnprocessableEntity,

	ErrCodeUnknownDocumentKind: http.StatusNotFound,
	ErrCodeNoLayoutProgress:    http.StatusUnprocessableEntity,
	ErrCodeRenderFailed:        http.StatusInternalServerError,
	ErrCodeTemplate:            http.StatusInternalServerError,
	ErrCodeFontNotFound:        http.StatusInternalServerError,
	ErrCodeStorageFailed:       http.StatusInternalServerError,
	ErrCodePreviewFailed:       http.StatusInternalServerError,
	ErrCodeMirrorDisabled:      http.StatusNotImplemented,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps the codes used by domain and render errors to
// their API codes
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
	"UNKNOWN_DOCUMENT_KIND": ErrCodeUnknownDocumentKind,
	"NO_LAYOUT_PROGRESS":    ErrCodeNoLayoutProgress,
	"INVALID_ITEM_HEIGHT":   ErrCodeInvalidInput,
	"MIRROR_DISABLED":       ErrCodeMirrorDisabled,
	"RENDER_FAILED":         ErrCodeRenderFailed,
	"INVALID_TEMPLATE":      ErrCodeTemplate,
	"TEMPLATE_NOT_FOUND":    ErrCodeTemplate,
	"FONT_NOT_FOUND":        ErrCodeFontNotFound,
	"STORAGE_FAILED":        ErrCodeStorageFailed,
	"PREVIEW_FAILED":        ErrCodePreviewFailed,
}

// NormalizeErrorCode converts a legacy code to its ERR_ form.
// Codes without a mapping pass through unchanged.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
