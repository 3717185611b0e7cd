package printing

import (
	"io"
	"math"

	"github.com/go-pdf/fpdf"

	domain "github.com/erp/pdfkit/internal/domain/printing"
)

// DefaultFontSize is the body font size in points
const DefaultFontSize = 12.0

// HTML cells are written with a line height of this factor times the font size
const lineSpacing = 1.25

// pointsToMM converts a font size in points to millimeters
const pointsToMM = 25.4 / 72.0

// Metadata is written into the PDF information dictionary
type Metadata struct {
	Title   string
	Subject string
	Creator string
	Author  string
}

// Cell is a rectangular block of markup placed at absolute page coordinates
type Cell struct {
	X, Y, W, H float64
	HTML       string
	Border     bool
	// FontSize in points, 0 keeps the canvas default
	FontSize float64
}

// Canvas is the drawing surface a render pass writes to.
// Coordinates are in millimeters from the top left corner of the page.
type Canvas interface {
	SetMetadata(meta Metadata)
	AddPage()
	// PageNo returns the 1-based number of the page being drawn
	PageNo() int
	// PageTotalAlias returns the placeholder replaced by the final page count
	PageTotalAlias() string
	WriteHTMLCell(cell Cell)
	Line(x1, y1, x2, y2 float64)
	Rect(x, y, w, h float64)
	SetDrawColor(r, g, b int)
	Image(path string, x, y, w, h float64)
	// Output writes the finished document
	Output(w io.Writer) error
}

// CanvasFactory creates the canvas for one render pass
type CanvasFactory func(geometry domain.Geometry, fonts *FontSet) (Canvas, error)

// FpdfCanvas implements Canvas with go-pdf/fpdf
type FpdfCanvas struct {
	pdf      *fpdf.Fpdf
	geometry domain.Geometry
	family   string
}

// NewFpdfCanvas creates a canvas sized to geometry with the given fonts registered.
// The first font family becomes the default; without fonts Helvetica is used.
func NewFpdfCanvas(geometry domain.Geometry, fonts *FontSet) (Canvas, error) {
	orientation := "P"
	size := fpdf.SizeType{Wd: geometry.PageWidth, Ht: geometry.PageHeight}
	if geometry.PageWidth > geometry.PageHeight {
		orientation = "L"
		size = fpdf.SizeType{Wd: geometry.PageHeight, Ht: geometry.PageWidth}
	}

	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "mm",
		Size:           size,
	})
	pdf.SetMargins(geometry.Margin, geometry.Margin, geometry.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")

	family := "Helvetica"
	if fonts != nil {
		for i, font := range fonts.Fonts() {
			pdf.AddUTF8FontFromBytes(font.Family, font.Style, font.Data)
			if i == 0 {
				family = font.Family
			}
		}
	}
	pdf.SetFont(family, "", DefaultFontSize)

	if err := pdf.Error(); err != nil {
		return nil, NewRenderError(ErrCodeRenderFailed, "failed to initialize PDF writer", err)
	}

	return &FpdfCanvas{
		pdf:      pdf,
		geometry: geometry,
		family:   family,
	}, nil
}

func (c *FpdfCanvas) SetMetadata(meta Metadata) {
	c.pdf.SetTitle(meta.Title, true)
	c.pdf.SetSubject(meta.Subject, true)
	c.pdf.SetCreator(meta.Creator, true)
	c.pdf.SetAuthor(meta.Author, true)
}

func (c *FpdfCanvas) AddPage() {
	c.pdf.AddPage()
}

func (c *FpdfCanvas) PageNo() int {
	return c.pdf.PageNo()
}

func (c *FpdfCanvas) PageTotalAlias() string {
	return "{nb}"
}

// WriteHTMLCell writes markup inside the cell by narrowing the page margins to
// the cell bounds. The basic HTML writer supports b, i, u, br, center, right
// and a tags.
func (c *FpdfCanvas) WriteHTMLCell(cell Cell) {
	if cell.Border {
		c.pdf.Rect(cell.X, cell.Y, cell.W, cell.H, "D")
	}

	left, top, right, _ := c.pdf.GetMargins()
	defer c.pdf.SetMargins(left, top, right)

	c.pdf.SetLeftMargin(cell.X)
	c.pdf.SetRightMargin(math.Max(0, c.geometry.PageWidth-cell.X-cell.W))
	c.pdf.SetXY(cell.X, cell.Y)

	size := cell.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	c.pdf.SetFont(c.family, "", size)

	html := c.pdf.HTMLBasicNew()
	html.Write(size*pointsToMM*lineSpacing, cell.HTML)
}

func (c *FpdfCanvas) Line(x1, y1, x2, y2 float64) {
	c.pdf.Line(x1, y1, x2, y2)
}

func (c *FpdfCanvas) Rect(x, y, w, h float64) {
	c.pdf.Rect(x, y, w, h, "D")
}

func (c *FpdfCanvas) SetDrawColor(r, g, b int) {
	c.pdf.SetDrawColor(r, g, b)
}

func (c *FpdfCanvas) Image(path string, x, y, w, h float64) {
	c.pdf.ImageOptions(path, x, y, w, h, false, fpdf.ImageOptions{ReadDpi: true}, 0, "")
}

func (c *FpdfCanvas) Output(w io.Writer) error {
	if err := c.pdf.Output(w); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}
	return nil
}
