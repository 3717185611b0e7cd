package printing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/infrastructure/i18n"
)

// FileExtension is appended to download and saved file names
const FileExtension = ".pdf"

// PageFactory creates a page variant registered under a kind
type PageFactory func() Page

// PageCounter returns the number of pages of a finished PDF
type PageCounter func(data []byte) (int, error)

// Document is a multi-page PDF under composition.
// A Document is rendered once: later Render calls return the cached artifact.
type Document struct {
	kind         string
	meta         Metadata
	fileName     string
	downloadName string
	geometry     domain.Geometry
	debugBorders bool
	projectDir   string

	pages     []Page
	current   Page
	pageKinds map[string]PageFactory

	fonts      *FontSet
	engine     *TemplateEngine
	translator *i18n.Translator
	newCanvas  CanvasFactory
	countPages PageCounter
	logger     *zap.Logger

	artifact *Artifact
}

// DocumentOption configures a Document
type DocumentOption func(*Document) error

// WithGeometry sets the page geometry
func WithGeometry(g domain.Geometry) DocumentOption {
	return func(d *Document) error {
		d.geometry = g
		return nil
	}
}

// WithMetadata sets the information dictionary
func WithMetadata(meta Metadata) DocumentOption {
	return func(d *Document) error {
		d.meta = meta
		return nil
	}
}

// WithFileName sets the stored artifact name of a previous render, if any
func WithFileName(name string) DocumentOption {
	return func(d *Document) error {
		d.fileName = name
		return nil
	}
}

// WithDownloadName sets the name offered to browsers, without extension
func WithDownloadName(name string) DocumentOption {
	return func(d *Document) error {
		d.downloadName = name
		return nil
	}
}

// WithDebugBorders draws the border of every cell
func WithDebugBorders(enabled bool) DocumentOption {
	return func(d *Document) error {
		d.debugBorders = enabled
		return nil
	}
}

// WithProjectDir sets the directory exposed to templates as projectDir
func WithProjectDir(dir string) DocumentOption {
	return func(d *Document) error {
		d.projectDir = dir
		return nil
	}
}

// WithFonts starts from an already loaded font set
func WithFonts(fonts *FontSet) DocumentOption {
	return func(d *Document) error {
		if fonts != nil {
			d.fonts = fonts.Clone()
		}
		return nil
	}
}

// WithFont registers a single font file. A missing file fails construction.
func WithFont(path string) DocumentOption {
	return func(d *Document) error {
		return d.fonts.UseFont(path)
	}
}

// WithFontsDir registers every font file in dir. A missing dir fails construction.
func WithFontsDir(dir string) DocumentOption {
	return func(d *Document) error {
		return d.fonts.UseFontsDir(dir)
	}
}

// WithTemplateEngine sets the template engine
func WithTemplateEngine(engine *TemplateEngine) DocumentOption {
	return func(d *Document) error {
		if engine != nil {
			d.engine = engine
		}
		return nil
	}
}

// WithTranslator sets the translator
func WithTranslator(translator *i18n.Translator) DocumentOption {
	return func(d *Document) error {
		d.translator = translator
		return nil
	}
}

// WithCanvasFactory replaces the fpdf canvas
func WithCanvasFactory(factory CanvasFactory) DocumentOption {
	return func(d *Document) error {
		if factory != nil {
			d.newCanvas = factory
		}
		return nil
	}
}

// WithPageCounter verifies the page count of the finished artifact.
// A nil counter trusts the canvas.
func WithPageCounter(counter PageCounter) DocumentOption {
	return func(d *Document) error {
		d.countPages = counter
		return nil
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) DocumentOption {
	return func(d *Document) error {
		if logger != nil {
			d.logger = logger
		}
		return nil
	}
}

// NewDocument creates an empty document of the given kind.
// The kind names the artifact directory and the translation domain.
func NewDocument(kind string, opts ...DocumentOption) (*Document, error) {
	d := &Document{
		kind:       kind,
		geometry:   domain.DefaultGeometry(),
		pageKinds:  make(map[string]PageFactory),
		fonts:      NewFontSet(),
		newCanvas:  NewFpdfCanvas,
		countPages: CountPages,
		logger:     zap.NewNop(),
	}

	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	if d.engine == nil {
		d.engine = NewTemplateEngine(WithTemplateLogger(d.logger))
	}
	d.logger = d.logger.With(zap.String("document_kind", kind))

	return d, nil
}

// Kind returns the document kind
func (d *Document) Kind() string {
	return d.kind
}

// Geometry returns the page geometry
func (d *Document) Geometry() domain.Geometry {
	return d.geometry
}

// Metadata returns the information dictionary
func (d *Document) Metadata() Metadata {
	return d.meta
}

// Title returns the document title
func (d *Document) Title() string {
	return d.meta.Title
}

// DebugBorders reports whether every cell draws its border
func (d *Document) DebugBorders() bool {
	return d.debugBorders
}

// ProjectDir returns the directory exposed to templates
func (d *Document) ProjectDir() string {
	return d.projectDir
}

// Fonts returns the declared fonts
func (d *Document) Fonts() *FontSet {
	return d.fonts
}

// FileName returns the stored artifact name of a previous render, or ""
func (d *Document) FileName() string {
	return d.fileName
}

// SetFileName records the stored artifact name
func (d *Document) SetFileName(name string) {
	d.fileName = name
}

// DownloadFileName returns the name offered to browsers, without extension
func (d *Document) DownloadFileName() string {
	if d.downloadName != "" {
		return d.downloadName
	}
	if d.fileName != "" {
		return strings.TrimSuffix(d.fileName, filepath.Ext(d.fileName))
	}
	return d.kind
}

// TranslationDomain returns the catalog domain used while rendering
func (d *Document) TranslationDomain() string {
	return "pdf." + d.kind
}

// Locale returns the locale used for text casing
func (d *Document) Locale() language.Tag {
	if d.translator == nil {
		return language.English
	}
	return localeOrDefault(d.translator.Locale())
}

// RegisterPageKind makes a page variant available to AddPage
func (d *Document) RegisterPageKind(kind string, factory PageFactory) {
	d.pageKinds[kind] = factory
}

// AddPage creates the page variant registered under kind and appends it.
// It returns nil if kind is unknown.
func (d *Document) AddPage(kind string) Page {
	factory, ok := d.pageKinds[kind]
	if !ok {
		d.logger.Warn("Unknown page kind", zap.String("page_kind", kind))
		return nil
	}
	return d.Append(factory())
}

// Append binds p to the document and adds it after the existing pages
func (d *Document) Append(p Page) Page {
	if p == nil {
		return nil
	}
	p.Base().bind(d)
	d.pages = append(d.pages, p)
	return p
}

// Pages returns the pages in render order
func (d *Document) Pages() []Page {
	return d.pages
}

// CurrentPage returns the page being rendered, or nil outside a render pass
func (d *Document) CurrentPage() Page {
	return d.current
}

// Rendered reports whether the artifact is cached
func (d *Document) Rendered() bool {
	return d.artifact != nil
}

// Render composes every page into a PDF. The artifact is cached, so only the
// first successful call draws. A failed pass restores page cursors and may be
// retried.
func (d *Document) Render(ctx context.Context) (*Artifact, error) {
	if d.artifact != nil {
		return d.artifact, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	if d.translator != nil {
		d.translator.SetDomain(i18n.DomainTypePDF, d.TranslationDomain())
		defer d.translator.RevertDomain(i18n.DomainTypePDF)
	}

	c, err := d.newCanvas(d.geometry, d.fonts)
	if err != nil {
		return nil, err
	}
	c.SetMetadata(d.meta)

	cursors := make([]float64, len(d.pages))
	for i, p := range d.pages {
		cursors[i] = p.Base().Y
	}

	for i, p := range d.pages {
		if err := d.renderPage(c, p); err != nil {
			d.reset(cursors)
			return nil, NewRenderError(ErrCodeRenderFailed, fmt.Sprintf("failed to render page %d", i+1), err)
		}
	}
	d.current = nil

	var buf bytes.Buffer
	if err := c.Output(&buf); err != nil {
		return nil, err
	}

	pageCount := c.PageNo()
	if d.countPages != nil {
		n, err := d.countPages(buf.Bytes())
		if err != nil {
			d.logger.Warn("Failed to verify page count", zap.Error(err))
		} else {
			pageCount = n
		}
	}

	d.artifact = &Artifact{
		Data:           buf.Bytes(),
		PageCount:      pageCount,
		RenderDuration: time.Since(start),
	}

	d.logger.Info("Document rendered",
		zap.Int("pages", pageCount),
		zap.Int("size", len(d.artifact.Data)),
		zap.Duration("duration", d.artifact.RenderDuration),
	)

	return d.artifact, nil
}

// renderPage runs the three render phases of p on a new canvas page, then
// does the same for every continuation page p schedules
func (d *Document) renderPage(c Canvas, p Page) error {
	for p != nil {
		d.current = p
		c.AddPage()

		if err := p.RenderHeader(c); err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if err := p.RenderBody(c); err != nil {
			return fmt.Errorf("body: %w", err)
		}
		if err := p.RenderFooter(c); err != nil {
			return fmt.Errorf("footer: %w", err)
		}
		p = p.Base().takeNext()
	}
	return nil
}

// reset restores page cursors after a failed pass so Render can run again
func (d *Document) reset(cursors []float64) {
	for i, p := range d.pages {
		base := p.Base()
		base.Y = cursors[i]
		base.next = nil
	}
	d.current = nil
}

// Emit renders the document and delivers it according to action.
// Stream actions write to w, with response headers when w is an
// http.ResponseWriter. OutputActionSave writes to path.
// It returns the file name the document was delivered under.
func (d *Document) Emit(ctx context.Context, action domain.OutputAction, w io.Writer, path string) (string, error) {
	if !action.IsValid() {
		return "", fmt.Errorf("invalid output action %q", action)
	}

	artifact, err := d.Render(ctx)
	if err != nil {
		return "", err
	}

	if action == domain.OutputActionSave {
		if err := d.SaveAs(ctx, path); err != nil {
			return "", err
		}
		return filepath.Base(path), nil
	}

	name := d.DownloadFileName() + FileExtension
	if rw, ok := w.(http.ResponseWriter); ok {
		header := rw.Header()
		header.Set("Content-Type", "application/pdf")
		header.Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", action.Disposition(), name))
		header.Set("Content-Length", strconv.Itoa(len(artifact.Data)))
		header.Set("Cache-Control", "private, max-age=0, must-revalidate")
	}

	if _, err := w.Write(artifact.Data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to write PDF", err)
	}
	return name, nil
}

// SaveAs renders the document and writes it to path
func (d *Document) SaveAs(ctx context.Context, path string) error {
	if path == "" {
		return NewRenderError(ErrCodeStorageFailed, "save path is empty", nil)
	}

	artifact, err := d.Render(ctx)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, artifact.Data, 0o644); err != nil {
		return NewRenderError(ErrCodeStorageFailed, "failed to save PDF", err)
	}

	d.logger.Info("Document saved", zap.String("path", path))
	return nil
}

// Trans translates id in the document domain
func (d *Document) Trans(id string, args map[string]any) string {
	return d.translator.Trans(id, args)
}

// RenderTemplate renders the named template. Every template sees document,
// page, projectDir and content in addition to vars.
func (d *Document) RenderTemplate(name string, vars map[string]any) (string, error) {
	data := map[string]any{
		"document":   d,
		"page":       d.current,
		"projectDir": d.projectDir,
	}
	maps.Copy(data, vars)
	if data["content"] == nil {
		data["content"] = ""
	}

	return d.engine.Render(name, data, template.FuncMap{
		"trans": func(id string, args ...map[string]any) string {
			merged := map[string]any{}
			for _, a := range args {
				maps.Copy(merged, a)
			}
			return d.Trans(id, merged)
		},
	})
}
