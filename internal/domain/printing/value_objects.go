package printing

import "github.com/erp/pdfkit/internal/domain/shared"

// Default geometry in millimeters
const (
	DefaultMargin       = 15.0
	DefaultFooterHeight = 35.0
)

// Geometry holds the document-wide page dimensions in millimeters.
// Inner width and the margin multiples are derived on access so they always
// agree with the margin and page width.
type Geometry struct {
	Margin       float64 `json:"margin"`
	PageWidth    float64 `json:"page_width"`
	PageHeight   float64 `json:"page_height"`
	FooterHeight float64 `json:"footer_height"`
}

// NewGeometry creates a validated Geometry value object
func NewGeometry(margin, pageWidth, pageHeight, footerHeight float64) (Geometry, error) {
	if margin < 0 || footerHeight < 0 {
		return Geometry{}, shared.NewDomainError("INVALID_GEOMETRY", "Margin and footer height cannot be negative")
	}
	if pageWidth <= 0 || pageHeight <= 0 {
		return Geometry{}, shared.NewDomainError("INVALID_GEOMETRY", "Page dimensions must be positive")
	}
	if margin*2 >= pageWidth {
		return Geometry{}, shared.NewDomainError("INVALID_GEOMETRY", "Margins leave no inner width")
	}
	if footerHeight >= pageHeight {
		return Geometry{}, shared.NewDomainError("INVALID_GEOMETRY", "Footer height cannot exceed page height")
	}
	return Geometry{
		Margin:       margin,
		PageWidth:    pageWidth,
		PageHeight:   pageHeight,
		FooterHeight: footerHeight,
	}, nil
}

// DefaultGeometry returns A4 portrait with a 15mm margin and 35mm footer
func DefaultGeometry() Geometry {
	return Geometry{
		Margin:       DefaultMargin,
		PageWidth:    210,
		PageHeight:   297,
		FooterHeight: DefaultFooterHeight,
	}
}

// GeometryFor builds a Geometry from a paper size and orientation
func GeometryFor(size PaperSize, orientation Orientation, margin, footerHeight float64) (Geometry, error) {
	if !size.IsValid() {
		return Geometry{}, shared.NewDomainError("INVALID_PAPER_SIZE", "Invalid paper size: "+size.String())
	}
	width, height := size.Dimensions()
	if orientation == OrientationLandscape {
		width, height = height, width
	}
	return NewGeometry(margin, width, height, footerHeight)
}

// InnerWidth is the content width between the side margins
func (g Geometry) InnerWidth() float64 {
	return g.PageWidth - g.MarginDouble()
}

// MarginDouble is twice the margin
func (g Geometry) MarginDouble() float64 {
	return g.Margin * 2
}

// MarginFooter is the inset used by footers
func (g Geometry) MarginFooter() float64 {
	return g.Margin / 2
}

// BodyEndY returns the lowest usable y for body content once the footer and
// extraReserved are taken off the bottom of the page.
func (g Geometry) BodyEndY(extraReserved float64) float64 {
	return g.PageHeight - g.FooterHeight - extraReserved
}
