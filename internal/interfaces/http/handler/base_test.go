package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/domain/shared"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
	"github.com/erp/pdfkit/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set(requestIDKey, "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(RequestIDHeader, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set(requestIDKey, "ctx-id")
				c.Request.Header.Set(RequestIDHeader, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerResponses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Success(c, map[string]string{"kind": "invoice"})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeResponse(t, w).Success)
	})

	t.Run("created", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Created(c, map[string]string{"file_name": "a.pdf"})

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("no content", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.NoContent(c)
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("error methods", func(t *testing.T) {
		tests := []struct {
			name   string
			call   func(*gin.Context)
			status int
			code   string
		}{
			{"bad request", func(c *gin.Context) { h.BadRequest(c, "bad") }, http.StatusBadRequest, dto.ErrCodeBadRequest},
			{"not found", func(c *gin.Context) { h.NotFound(c, "missing") }, http.StatusNotFound, dto.ErrCodeNotFound},
			{"internal", func(c *gin.Context) { h.InternalError(c, "boom") }, http.StatusInternalServerError, dto.ErrCodeInternal},
			{"by code", func(c *gin.Context) { h.ErrorWithCode(c, "MIRROR_DISABLED", "off") }, http.StatusNotImplemented, dto.ErrCodeMirrorDisabled},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := httptest.NewRecorder()
				c, _ := gin.CreateTestContext(w)
				c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
				c.Set(requestIDKey, "req-42")
				tt.call(c)

				assert.Equal(t, tt.status, w.Code)
				resp := decodeResponse(t, w)
				require.NotNil(t, resp.Error)
				assert.Equal(t, tt.code, resp.Error.Code)
				assert.Equal(t, "req-42", resp.Error.RequestID)
			})
		}
	})
}

func TestBaseHandlerHandleError(t *testing.T) {
	layoutFailure := infra.NewRenderError(infra.ErrCodeRenderFailed, "failed to render page 2",
		fmt.Errorf("body: %w", domain.ErrNoLayoutProgress))

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "not found",
			err:            shared.NewDomainError("NOT_FOUND", "No stored file for invoice 1001"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeNotFound,
			expectedMsg:    "No stored file for invoice 1001",
		},
		{
			name:           "wrapped unknown kind",
			err:            fmt.Errorf("%w: quote", apppdf.ErrUnknownDocumentKind),
			expectedStatus: http.StatusNotFound,
			expectedCode:   dto.ErrCodeUnknownDocumentKind,
		},
		{
			name:           "invalid input",
			err:            shared.ErrInvalidInput,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   dto.ErrCodeInvalidInput,
		},
		{
			name:           "mirror disabled",
			err:            apppdf.ErrMirrorDisabled,
			expectedStatus: http.StatusNotImplemented,
			expectedCode:   dto.ErrCodeMirrorDisabled,
		},
		{
			name:           "layout failure inside render error",
			err:            fmt.Errorf("failed to render invoice 1002: %w", layoutFailure),
			expectedStatus: http.StatusUnprocessableEntity,
			expectedCode:   dto.ErrCodeNoLayoutProgress,
		},
		{
			name:           "storage failure hides its cause",
			err:            infra.NewRenderError(infra.ErrCodeStorageFailed, "failed to write PDF file", errors.New("/var/pdf/invoice: permission denied")),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeStorageFailed,
			expectedMsg:    "failed to write PDF file",
		},
		{
			name:           "template missing",
			err:            infra.NewRenderError(infra.ErrCodeTemplateNotFound, "template not found: footer", nil),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeTemplate,
		},
		{
			name:           "plain error",
			err:            errors.New("disk on fire"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   dto.ErrCodeInternal,
			expectedMsg:    "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.expectedCode, resp.Error.Code)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, resp.Error.Message)
			}
			assert.Len(t, c.Errors, 1)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)

		h.HandleError(c, nil)

		assert.Empty(t, w.Body.String())
	})
}

func jsonUnmarshal(w *httptest.ResponseRecorder, v any) error {
	return json.Unmarshal(w.Body.Bytes(), v)
}
