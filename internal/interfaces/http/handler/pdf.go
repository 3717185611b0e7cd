package handler

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apppdf "github.com/erp/pdfkit/internal/application/printing"
	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/interfaces/http/dto"
	"github.com/erp/pdfkit/internal/interfaces/http/middleware"
)

// PDFService is the part of the application service the handler needs
type PDFService interface {
	Stream(ctx context.Context, kind, id string, action domain.OutputAction, w io.Writer) (string, error)
	Save(ctx context.Context, kind, id string) (*apppdf.SaveResponse, error)
	Open(ctx context.Context, kind, id string) (io.ReadCloser, error)
	OpenPreview(ctx context.Context, kind, id string) (io.ReadCloser, error)
	DownloadURL(ctx context.Context, kind, id string) (*apppdf.DownloadURLResponse, error)
	Delete(ctx context.Context, kind, id string) error
	Cleanup(ctx context.Context, age time.Duration) (*apppdf.CleanupResponse, error)
	Kinds() []apppdf.DocumentKindResponse
	PaperSizes() []apppdf.PaperSizeResponse
}

var _ PDFService = (*apppdf.PDFService)(nil)

// PDFHandler handles PDF rendering and stored artifact endpoints
type PDFHandler struct {
	BaseHandler
	service PDFService
}

// NewPDFHandler creates a new PDFHandler
func NewPDFHandler(service PDFService) *PDFHandler {
	return &PDFHandler{service: service}
}

// =============================================================================
// Reference data
// =============================================================================

// GetKinds godoc
//
//	@ID				getPDFKinds
//
//	@Summary		List document kinds
//	@Description	List the document kinds that can be rendered
//	@Tags			pdf
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=[]apppdf.DocumentKindResponse}
//	@Router			/pdf/kinds [get]
func (h *PDFHandler) GetKinds(c *gin.Context) {
	h.Success(c, h.service.Kinds())
}

// GetPaperSizes godoc
//
//	@ID				getPDFPaperSizes
//
//	@Summary		List paper sizes
//	@Description	List the supported paper sizes in millimetres
//	@Tags			pdf
//	@Produce		json
//	@Success		200	{object}	dto.Response{data=[]apppdf.PaperSizeResponse}
//	@Router			/pdf/paper-sizes [get]
func (h *PDFHandler) GetPaperSizes(c *gin.Context) {
	h.Success(c, h.service.PaperSizes())
}

// =============================================================================
// Rendering
// =============================================================================

// Print godoc
//
//	@ID				printPDFDocument
//
//	@Summary		Render a document for the browser viewer
//	@Description	Render the document and stream it inline
//	@Tags			pdf
//	@Produce		application/pdf
//	@Param			kind	path		string	true	"Document kind"	example(invoice)
//	@Param			id		path		string	true	"Document ID"	example(1001)
//	@Success		200		{file}		binary
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Failure		429		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/{kind}/{id} [get]
func (h *PDFHandler) Print(c *gin.Context) {
	h.stream(c, domain.OutputActionPrint)
}

// Download godoc
//
//	@ID				downloadPDFDocument
//
//	@Summary		Render a document as an attachment
//	@Description	Render the document and stream it as a download
//	@Tags			pdf
//	@Produce		application/pdf
//	@Param			kind	path		string	true	"Document kind"
//	@Param			id		path		string	true	"Document ID"
//	@Success		200		{file}		binary
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Failure		429		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/{kind}/{id}/download [get]
func (h *PDFHandler) Download(c *gin.Context) {
	h.stream(c, domain.OutputActionDownload)
}

// stream renders before anything is written, so failures still get a JSON body
func (h *PDFHandler) stream(c *gin.Context, action domain.OutputAction) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	if _, err := h.service.Stream(c.Request.Context(), req.Kind, req.ID, action, c.Writer); err != nil {
		h.HandleError(c, err)
	}
}

// Save godoc
//
//	@ID				savePDFDocument
//
//	@Summary		Render a document to the output directory
//	@Description	Render the document and store it, replacing the file of an earlier save
//	@Tags			pdf
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			id		path		string	true	"Document ID"
//	@Success		201		{object}	dto.Response{data=apppdf.SaveResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Failure		422		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/{kind}/{id}/save [post]
func (h *PDFHandler) Save(c *gin.Context) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	result, err := h.service.Save(c.Request.Context(), req.Kind, req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// =============================================================================
// Stored artifacts
// =============================================================================

// GetFile godoc
//
//	@ID				getPDFFile
//
//	@Summary		Get a saved PDF
//	@Description	Stream the stored file of a previously saved document
//	@Tags			pdf
//	@Produce		application/pdf
//	@Param			kind	path		string	true	"Document kind"
//	@Param			id		path		string	true	"Document ID"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/{kind}/{id}/file [get]
func (h *PDFHandler) GetFile(c *gin.Context) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	file, err := h.service.Open(c.Request.Context(), req.Kind, req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	// Stored names are opaque, so offer one derived from the document
	filename := fmt.Sprintf("%s-%s.pdf", req.Kind, req.ID)
	c.DataFromReader(http.StatusOK, readerSize(file), "application/pdf", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("%s; filename=%q", domain.OutputActionPrint.Disposition(), filename),
		"Cache-Control":       "private, max-age=0, must-revalidate",
	})
}

// GetPreview godoc
//
//	@ID				getPDFPreview
//
//	@Summary		Get the preview image of a saved PDF
//	@Description	Return a JPEG of the first page, creating it on first use
//	@Tags			pdf
//	@Produce		image/jpeg
//	@Param			kind	path		string	true	"Document kind"
//	@Param			id		path		string	true	"Document ID"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/{kind}/{id}/preview [get]
func (h *PDFHandler) GetPreview(c *gin.Context) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	image, err := h.service.OpenPreview(c.Request.Context(), req.Kind, req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer image.Close()

	c.DataFromReader(http.StatusOK, readerSize(image), "image/jpeg", image, map[string]string{
		"Cache-Control": "private, max-age=0, must-revalidate",
	})
}

// GetDownloadURL godoc
//
//	@ID				getPDFDownloadURL
//
//	@Summary		Get a download link for a saved PDF
//	@Description	Return a presigned link to the mirrored copy of a saved document
//	@Tags			pdf
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			id		path		string	true	"Document ID"
//	@Success		200		{object}	dto.Response{data=apppdf.DownloadURLResponse}
//	@Failure		404		{object}	dto.Response
//	@Failure		501		{object}	dto.Response
//	@Router			/pdf/{kind}/{id}/link [get]
func (h *PDFHandler) GetDownloadURL(c *gin.Context) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	link, err := h.service.DownloadURL(c.Request.Context(), req.Kind, req.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, link)
}

// Delete godoc
//
//	@ID				deletePDFDocument
//
//	@Summary		Delete a saved PDF
//	@Description	Remove the stored file and preview of a saved document
//	@Tags			pdf
//	@Param			kind	path	string	true	"Document kind"
//	@Param			id		path	string	true	"Document ID"
//	@Success		204
//	@Failure		404	{object}	dto.Response
//	@Failure		500	{object}	dto.Response
//	@Router			/pdf/{kind}/{id} [delete]
func (h *PDFHandler) Delete(c *gin.Context) {
	req, ok := h.bindDocument(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), req.Kind, req.ID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Cleanup godoc
//
//	@ID				cleanupPDFFiles
//
//	@Summary		Remove old saved PDFs
//	@Description	Delete stored files older than the given number of hours
//	@Tags			pdf
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CleanupRequest	true	"Retention window"
//	@Success		200		{object}	dto.Response{data=apppdf.CleanupResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		500		{object}	dto.Response
//	@Router			/pdf/cleanup [post]
func (h *PDFHandler) Cleanup(c *gin.Context) {
	var req dto.CleanupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	result, err := h.service.Cleanup(c.Request.Context(), time.Duration(req.OlderThanHours)*time.Hour)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *PDFHandler) bindDocument(c *gin.Context) (dto.DocumentRequest, bool) {
	var req dto.DocumentRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return req, false
	}
	return req, true
}

// readerSize returns the size of a stored file, or -1 when unknown
func readerSize(r io.Reader) int64 {
	if f, ok := r.(interface{ Stat() (fs.FileInfo, error) }); ok {
		if info, err := f.Stat(); err == nil {
			return info.Size()
		}
	}
	return -1
}
