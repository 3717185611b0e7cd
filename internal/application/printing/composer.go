package printing

import (
	"go.uber.org/zap"

	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/infrastructure/i18n"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
)

// ComposerConfig holds the collaborators shared by every document
type ComposerConfig struct {
	Geometry     domain.Geometry
	ProjectDir   string
	DebugBorders bool
	// Creator is written into the information dictionary of every document
	Creator string

	Fonts      *infra.FontSet
	Engine     *infra.TemplateEngine
	Translator *i18n.Translator
	// CanvasFactory and PageCounter override the fpdf canvas and pdfcpu counter
	CanvasFactory infra.CanvasFactory
	PageCounter   infra.PageCounter

	Logger *zap.Logger
}

// Composer creates documents wired to the shared collaborators
type Composer struct {
	config *ComposerConfig
	logger *zap.Logger
}

// NewComposer creates a composer. Missing collaborators get defaults.
func NewComposer(config *ComposerConfig) *Composer {
	if config == nil {
		config = &ComposerConfig{}
	}
	if config.Geometry == (domain.Geometry{}) {
		config.Geometry = domain.DefaultGeometry()
	}
	if config.Fonts == nil {
		config.Fonts = infra.NewFontSet()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Engine == nil {
		config.Engine = infra.NewTemplateEngine(infra.WithTemplateLogger(logger))
	}

	return &Composer{
		config: config,
		logger: logger,
	}
}

// Geometry returns the page geometry documents start from
func (c *Composer) Geometry() domain.Geometry {
	return c.config.Geometry
}

// Translator returns the shared translator
func (c *Composer) Translator() *i18n.Translator {
	return c.config.Translator
}

// NewDocument creates an empty document of kind. opts are applied after the
// shared configuration and may override it.
func (c *Composer) NewDocument(kind string, meta infra.Metadata, opts ...infra.DocumentOption) (*infra.Document, error) {
	if meta.Creator == "" {
		meta.Creator = c.config.Creator
	}

	base := []infra.DocumentOption{
		infra.WithGeometry(c.config.Geometry),
		infra.WithMetadata(meta),
		infra.WithProjectDir(c.config.ProjectDir),
		infra.WithDebugBorders(c.config.DebugBorders),
		infra.WithFonts(c.config.Fonts),
		infra.WithTemplateEngine(c.config.Engine),
		infra.WithTranslator(c.config.Translator.Fork()),
		infra.WithCanvasFactory(c.config.CanvasFactory),
		infra.WithLogger(c.logger),
	}
	if c.config.PageCounter != nil {
		base = append(base, infra.WithPageCounter(c.config.PageCounter))
	}

	return infra.NewDocument(kind, append(base, opts...)...)
}
