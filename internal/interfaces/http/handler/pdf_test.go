package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/domain/shared"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
	"github.com/erp/pdfkit/internal/interfaces/http/dto"
	"github.com/erp/pdfkit/internal/interfaces/http/router"
)

// MockPDFService is a mock implementation of PDFService
type MockPDFService struct {
	mock.Mock
}

func (m *MockPDFService) Stream(ctx context.Context, kind, id string, action domain.OutputAction, w io.Writer) (string, error) {
	args := m.Called(ctx, kind, id, action, w)
	return args.String(0), args.Error(1)
}

func (m *MockPDFService) Save(ctx context.Context, kind, id string) (*apppdf.SaveResponse, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppdf.SaveResponse), args.Error(1)
}

func (m *MockPDFService) Open(ctx context.Context, kind, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockPDFService) OpenPreview(ctx context.Context, kind, id string) (io.ReadCloser, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockPDFService) DownloadURL(ctx context.Context, kind, id string) (*apppdf.DownloadURLResponse, error) {
	args := m.Called(ctx, kind, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppdf.DownloadURLResponse), args.Error(1)
}

func (m *MockPDFService) Delete(ctx context.Context, kind, id string) error {
	args := m.Called(ctx, kind, id)
	return args.Error(0)
}

func (m *MockPDFService) Cleanup(ctx context.Context, age time.Duration) (*apppdf.CleanupResponse, error) {
	args := m.Called(ctx, age)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apppdf.CleanupResponse), args.Error(1)
}

func (m *MockPDFService) Kinds() []apppdf.DocumentKindResponse {
	args := m.Called()
	return args.Get(0).([]apppdf.DocumentKindResponse)
}

func (m *MockPDFService) PaperSizes() []apppdf.PaperSizeResponse {
	args := m.Called()
	return args.Get(0).([]apppdf.PaperSizeResponse)
}

func setupPDFTestRouter(svc *MockPDFService, renderMiddleware ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	r := router.NewRouter(engine)
	r.Register(PDFRoutes(NewPDFHandler(svc), renderMiddleware...))
	r.Setup()
	return engine
}

func performRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// streamPDF mimics Document.Emit on an HTTP response
func streamPDF(action domain.OutputAction, name string, data []byte) func(mock.Arguments) {
	return func(args mock.Arguments) {
		w := args.Get(4).(io.Writer)
		if rw, ok := w.(http.ResponseWriter); ok {
			rw.Header().Set("Content-Type", "application/pdf")
			rw.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", action.Disposition(), name))
		}
		_, _ = w.Write(data)
	}
}

type statReader struct {
	*strings.Reader
	closed bool
}

func (r *statReader) Close() error {
	r.closed = true
	return nil
}

func TestPDFHandler_ReferenceData(t *testing.T) {
	svc := new(MockPDFService)
	svc.On("Kinds").Return([]apppdf.DocumentKindResponse{{Kind: "invoice", Description: "Customer invoice"}})
	svc.On("PaperSizes").Return([]apppdf.PaperSizeResponse{{Code: "A4", Width: 210, Height: 297}})
	engine := setupPDFTestRouter(svc)

	w := performRequest(engine, http.MethodGet, "/api/v1/pdf/kinds", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"invoice"`)

	w = performRequest(engine, http.MethodGet, "/api/v1/pdf/paper-sizes", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"A4"`)

	svc.AssertExpectations(t)
}

func TestPDFHandler_Stream(t *testing.T) {
	pdf := []byte("%PDF-1.4 test")

	tests := []struct {
		name        string
		path        string
		action      domain.OutputAction
		disposition string
	}{
		{"print is inline", "/api/v1/pdf/invoice/1001", domain.OutputActionPrint, "inline"},
		{"download is an attachment", "/api/v1/pdf/invoice/1001/download", domain.OutputActionDownload, "attachment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPDFService)
			svc.On("Stream", mock.Anything, "invoice", "1001", tt.action, mock.Anything).
				Run(streamPDF(tt.action, "invoice_1001.pdf", pdf)).
				Return("invoice_1001.pdf", nil)
			engine := setupPDFTestRouter(svc)

			w := performRequest(engine, http.MethodGet, tt.path, "")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.disposition+`; filename="invoice_1001.pdf"`, w.Header().Get("Content-Disposition"))
			assert.Equal(t, pdf, w.Body.Bytes())
			svc.AssertExpectations(t)
		})
	}

	t.Run("render failure returns JSON", func(t *testing.T) {
		svc := new(MockPDFService)
		layoutErr := infra.NewRenderError(infra.ErrCodeRenderFailed, "failed to render page 1",
			fmt.Errorf("lines: %w", domain.ErrNoLayoutProgress))
		svc.On("Stream", mock.Anything, "invoice", "1001", domain.OutputActionPrint, mock.Anything).
			Return("", fmt.Errorf("failed to render invoice 1001: %w", layoutErr))
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
		assert.Contains(t, w.Body.String(), dto.ErrCodeNoLayoutProgress)
	})

	t.Run("unknown kind", func(t *testing.T) {
		svc := new(MockPDFService)
		svc.On("Stream", mock.Anything, "quote", "7", domain.OutputActionDownload, mock.Anything).
			Return("", fmt.Errorf("%w: quote", apppdf.ErrUnknownDocumentKind))
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodGet, "/api/v1/pdf/quote/7/download", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeUnknownDocumentKind)
	})

	t.Run("oversized id is rejected before rendering", func(t *testing.T) {
		svc := new(MockPDFService)
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/"+strings.Repeat("9", 129), "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
		svc.AssertNotCalled(t, "Stream", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPDFHandler_RenderMiddleware(t *testing.T) {
	svc := new(MockPDFService)
	svc.On("Kinds").Return([]apppdf.DocumentKindResponse{})
	blocked := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(dto.ErrCodeRateLimited, "slow down"))
	}
	engine := setupPDFTestRouter(svc, blocked)

	w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = performRequest(engine, http.MethodPost, "/api/v1/pdf/invoice/1001/save", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	w = performRequest(engine, http.MethodGet, "/api/v1/pdf/kinds", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPDFHandler_Save(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockPDFService)
		svc.On("Save", mock.Anything, "invoice", "1001").Return(&apppdf.SaveResponse{
			Kind:      "invoice",
			ID:        "1001",
			FileName:  "0f8c2d4e.pdf",
			PageCount: 2,
			Replaced:  "a1b2c3d4.pdf",
		}, nil)
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodPost, "/api/v1/pdf/invoice/1001/save", "")

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"file_name":"0f8c2d4e.pdf"`)
		assert.Contains(t, w.Body.String(), `"replaced":"a1b2c3d4.pdf"`)
		svc.AssertExpectations(t)
	})

	t.Run("storage failure hides its cause", func(t *testing.T) {
		svc := new(MockPDFService)
		svc.On("Save", mock.Anything, "invoice", "1001").Return(nil,
			infra.NewRenderError(infra.ErrCodeStorageFailed, "failed to write PDF file", errors.New("/srv/pdf: read-only file system")))
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodPost, "/api/v1/pdf/invoice/1001/save", "")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeStorageFailed)
		assert.NotContains(t, w.Body.String(), "/srv/pdf")
	})
}

func TestPDFHandler_GetFile(t *testing.T) {
	t.Run("streams stored file", func(t *testing.T) {
		file := &statReader{Reader: strings.NewReader("%PDF-1.4 stored")}
		svc := new(MockPDFService)
		svc.On("Open", mock.Anything, "invoice", "1001").Return(file, nil)
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001/file", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `inline; filename="invoice-1001.pdf"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "%PDF-1.4 stored", w.Body.String())
		assert.True(t, file.closed)
	})

	t.Run("not saved yet", func(t *testing.T) {
		svc := new(MockPDFService)
		svc.On("Open", mock.Anything, "invoice", "1001").
			Return(nil, shared.NewDomainError("NOT_FOUND", "No stored file for invoice 1001"))
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001/file", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "No stored file for invoice 1001")
	})
}

func TestPDFHandler_GetPreview(t *testing.T) {
	image := &statReader{Reader: strings.NewReader("\xff\xd8\xff jpeg")}
	svc := new(MockPDFService)
	svc.On("OpenPreview", mock.Anything, "invoice", "1001").Return(image, nil)
	svc.On("OpenPreview", mock.Anything, "invoice", "1002").
		Return(nil, infra.NewRenderError(infra.ErrCodePreviewFailed, "failed to rasterize page", nil))
	engine := setupPDFTestRouter(svc)

	w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001/preview", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.True(t, image.closed)

	w = performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1002/preview", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodePreviewFailed)
}

func TestPDFHandler_GetDownloadURL(t *testing.T) {
	expires := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	svc := new(MockPDFService)
	svc.On("DownloadURL", mock.Anything, "invoice", "1001").
		Return(&apppdf.DownloadURLResponse{URL: "https://s3.example.com/pdf/invoice/x.pdf?sig", ExpiresAt: expires}, nil)
	svc.On("DownloadURL", mock.Anything, "invoice", "1002").Return(nil, apppdf.ErrMirrorDisabled)
	engine := setupPDFTestRouter(svc)

	w := performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1001/link", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://s3.example.com/pdf/invoice/x.pdf?sig")

	w = performRequest(engine, http.MethodGet, "/api/v1/pdf/invoice/1002/link", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Contains(t, w.Body.String(), dto.ErrCodeMirrorDisabled)
}

func TestPDFHandler_Delete(t *testing.T) {
	svc := new(MockPDFService)
	svc.On("Delete", mock.Anything, "invoice", "1001").Return(nil)
	svc.On("Delete", mock.Anything, "invoice", "1002").
		Return(shared.NewDomainError("NOT_FOUND", "No stored file for invoice 1002"))
	engine := setupPDFTestRouter(svc)

	w := performRequest(engine, http.MethodDelete, "/api/v1/pdf/invoice/1001", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = performRequest(engine, http.MethodDelete, "/api/v1/pdf/invoice/1002", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	svc.AssertExpectations(t)
}

func TestPDFHandler_Cleanup(t *testing.T) {
	t.Run("converts hours", func(t *testing.T) {
		svc := new(MockPDFService)
		svc.On("Cleanup", mock.Anything, 48*time.Hour).Return(&apppdf.CleanupResponse{Deleted: 3, Forgotten: 2}, nil)
		engine := setupPDFTestRouter(svc)

		w := performRequest(engine, http.MethodPost, "/api/v1/pdf/cleanup", `{"older_than_hours":48}`)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.Response
		require.NoError(t, jsonUnmarshal(w, &resp))
		assert.True(t, resp.Success)
		assert.Contains(t, w.Body.String(), `"deleted":3`)
		svc.AssertExpectations(t)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"missing", `{}`},
			{"zero", `{"older_than_hours":0}`},
			{"too large", `{"older_than_hours":9000}`},
			{"malformed", `{"older_than_hours":`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := new(MockPDFService)
				engine := setupPDFTestRouter(svc)

				w := performRequest(engine, http.MethodPost, "/api/v1/pdf/cleanup", tt.body)

				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), dto.ErrCodeValidation)
				svc.AssertNotCalled(t, "Cleanup", mock.Anything, mock.Anything)
			})
		}
	})
}
