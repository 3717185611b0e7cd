package printing

import (
	"testing"

	"github.com/erp/pdfkit/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name        string
		margin      float64
		width       float64
		height      float64
		footer      float64
		expectError bool
	}{
		{"a4 defaults", 15, 210, 297, 35, false},
		{"no margin", 0, 210, 297, 0, false},
		{"negative margin", -1, 210, 297, 35, true},
		{"negative footer", 15, 210, 297, -1, true},
		{"zero width", 15, 0, 297, 35, true},
		{"zero height", 15, 210, 0, 35, true},
		{"margins swallow width", 105, 210, 297, 35, true},
		{"footer swallows height", 15, 210, 297, 297, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGeometry(tt.margin, tt.width, tt.height, tt.footer)
			if tt.expectError {
				require.Error(t, err)
				var domainErr *shared.DomainError
				require.ErrorAs(t, err, &domainErr)
				assert.Equal(t, "INVALID_GEOMETRY", domainErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.margin, g.Margin)
			assert.Equal(t, tt.width, g.PageWidth)
		})
	}
}

func TestGeometry_Derived(t *testing.T) {
	g := DefaultGeometry()

	assert.Equal(t, 180.0, g.InnerWidth())
	assert.Equal(t, 30.0, g.MarginDouble())
	assert.Equal(t, 7.5, g.MarginFooter())
	assert.Equal(t, 262.0, g.BodyEndY(0))
	assert.Equal(t, 232.0, g.BodyEndY(30))

	g.Margin = 20
	assert.Equal(t, 170.0, g.InnerWidth())
	assert.Equal(t, 40.0, g.MarginDouble())
}

func TestGeometryFor(t *testing.T) {
	t.Run("portrait a5", func(t *testing.T) {
		g, err := GeometryFor(PaperSizeA5, OrientationPortrait, 10, 20)
		require.NoError(t, err)
		assert.Equal(t, 148.0, g.PageWidth)
		assert.Equal(t, 210.0, g.PageHeight)
	})

	t.Run("landscape swaps dimensions", func(t *testing.T) {
		g, err := GeometryFor(PaperSizeA4, OrientationLandscape, 15, 35)
		require.NoError(t, err)
		assert.Equal(t, 297.0, g.PageWidth)
		assert.Equal(t, 210.0, g.PageHeight)
	})

	t.Run("invalid size", func(t *testing.T) {
		_, err := GeometryFor(PaperSize("B7"), OrientationPortrait, 15, 35)
		assert.Error(t, err)
	})
}
