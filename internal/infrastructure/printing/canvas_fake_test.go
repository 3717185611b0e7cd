package printing

import (
	"io"

	domain "github.com/erp/pdfkit/internal/domain/printing"
)

// fakePDF is enough of a PDF header for content sniffing
const fakePDF = "%PDF-1.4\n% recorded\n"

type drawnLine struct {
	Page           int
	X1, Y1, X2, Y2 float64
}

type drawnImage struct {
	Page       int
	Path       string
	X, Y, W, H float64
}

type recordedCell struct {
	Cell
	Page int
}

// recordingCanvas records drawing calls instead of producing a PDF
type recordingCanvas struct {
	meta   Metadata
	page   int
	cells  []recordedCell
	lines  []drawnLine
	rects  [][4]float64
	images []drawnImage
	colors [][3]int
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{}
}

// factory returns a CanvasFactory that always hands out c
func (c *recordingCanvas) factory() CanvasFactory {
	return func(domain.Geometry, *FontSet) (Canvas, error) {
		return c, nil
	}
}

func (c *recordingCanvas) SetMetadata(meta Metadata) { c.meta = meta }
func (c *recordingCanvas) AddPage()                  { c.page++ }
func (c *recordingCanvas) PageNo() int               { return c.page }
func (c *recordingCanvas) PageTotalAlias() string    { return "{nb}" }

func (c *recordingCanvas) WriteHTMLCell(cell Cell) {
	c.cells = append(c.cells, recordedCell{Cell: cell, Page: c.page})
}

func (c *recordingCanvas) Line(x1, y1, x2, y2 float64) {
	c.lines = append(c.lines, drawnLine{Page: c.page, X1: x1, Y1: y1, X2: x2, Y2: y2})
}

func (c *recordingCanvas) Rect(x, y, w, h float64) {
	c.rects = append(c.rects, [4]float64{x, y, w, h})
}

func (c *recordingCanvas) SetDrawColor(r, g, b int) {
	c.colors = append(c.colors, [3]int{r, g, b})
}

func (c *recordingCanvas) Image(path string, x, y, w, h float64) {
	c.images = append(c.images, drawnImage{Page: c.page, Path: path, X: x, Y: y, W: w, H: h})
}

func (c *recordingCanvas) Output(w io.Writer) error {
	_, err := io.WriteString(w, fakePDF)
	return err
}

// newTestDocument creates a document drawing on a recording canvas
func newTestDocument(t interface{ Fatalf(string, ...any) }, opts ...DocumentOption) (*Document, *recordingCanvas) {
	canvas := newRecordingCanvas()
	base := []DocumentOption{
		WithCanvasFactory(canvas.factory()),
		WithPageCounter(nil),
	}
	doc, err := NewDocument("test", append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc, canvas
}
