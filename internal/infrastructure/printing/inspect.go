package printing

import (
	"bytes"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const pdfMIME = "application/pdf"

// CountPages parses a finished PDF and returns its page count
func CountPages(data []byte) (int, error) {
	if !IsPDF(data) {
		return 0, NewRenderError(ErrCodeRenderFailed, "data is not a PDF document", nil)
	}
	n, err := api.PageCount(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return 0, NewRenderError(ErrCodeRenderFailed, "failed to count PDF pages", err)
	}
	return n, nil
}

// IsPDF sniffs data for the PDF signature
func IsPDF(data []byte) bool {
	return mimetype.Detect(data).Is(pdfMIME)
}
