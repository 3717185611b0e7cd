package printing

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer turns one page of a PDF into an image
type Rasterizer interface {
	// Rasterize renders the 0-based page of data. dpi <= 0 uses the library default.
	Rasterize(data []byte, page int, dpi float64) (image.Image, error)
}

// FitzRasterizer rasterizes pages with MuPDF through go-fitz
type FitzRasterizer struct{}

// NewFitzRasterizer creates a MuPDF rasterizer
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

func (r *FitzRasterizer) Rasterize(data []byte, page int, dpi float64) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, NewRenderError(ErrCodePreviewFailed, "failed to open PDF for preview", err)
	}
	defer doc.Close()

	if page < 0 || page >= doc.NumPage() {
		return nil, NewRenderError(ErrCodePreviewFailed,
			fmt.Sprintf("page %d out of range, document has %d pages", page, doc.NumPage()), nil)
	}

	var img image.Image
	if dpi > 0 {
		img, err = doc.ImageDPI(page, dpi)
	} else {
		img, err = doc.Image(page)
	}
	if err != nil {
		return nil, NewRenderError(ErrCodePreviewFailed, "failed to rasterize page", err)
	}
	return img, nil
}

var _ Rasterizer = (*FitzRasterizer)(nil)
