package printing

import (
	"context"
	"image"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domain "github.com/erp/pdfkit/internal/domain/printing"
	"github.com/erp/pdfkit/internal/infrastructure/i18n"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
)

const fakePDF = "%PDF-1.4\n% test\n"

// cellCanvas keeps the HTML cells of every page
type cellCanvas struct {
	page  int
	cells map[int][]string
}

func (c *cellCanvas) SetMetadata(infra.Metadata)         {}
func (c *cellCanvas) AddPage()                           { c.page++ }
func (c *cellCanvas) PageNo() int                        { return c.page }
func (c *cellCanvas) PageTotalAlias() string             { return "{nb}" }
func (c *cellCanvas) Line(_, _, _, _ float64)            {}
func (c *cellCanvas) Rect(_, _, _, _ float64)            {}
func (c *cellCanvas) SetDrawColor(_, _, _ int)           {}
func (c *cellCanvas) Image(_ string, _, _, _, _ float64) {}

func (c *cellCanvas) WriteHTMLCell(cell infra.Cell) {
	c.cells[c.page] = append(c.cells[c.page], cell.HTML)
}

func (c *cellCanvas) Output(w io.Writer) error {
	_, err := io.WriteString(w, fakePDF)
	return err
}

// pageText joins the cells of page
func (c *cellCanvas) pageText(page int) string {
	return strings.Join(c.cells[page], "\n")
}

// canvasLog hands out a fresh cellCanvas per render
type canvasLog struct {
	mu       sync.Mutex
	canvases []*cellCanvas
}

func (l *canvasLog) factory(domain.Geometry, *infra.FontSet) (infra.Canvas, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := &cellCanvas{cells: make(map[int][]string)}
	l.canvases = append(l.canvases, c)
	return c, nil
}

func (l *canvasLog) last() *cellCanvas {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canvases[len(l.canvases)-1]
}

func (l *canvasLog) renders() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.canvases)
}

// pageCount trusts the last canvas instead of parsing the fake output
func (l *canvasLog) pageCount([]byte) (int, error) {
	return l.last().PageNo(), nil
}

func newTestComposer(t *testing.T, locale string) (*Composer, *canvasLog) {
	t.Helper()

	translator, err := i18n.New(Translations(), locale)
	require.NoError(t, err)

	log := &canvasLog{}
	composer := NewComposer(&ComposerConfig{
		Creator:       "pdfkit tests",
		Engine:        infra.NewTemplateEngine(infra.WithTemplateFS(Templates()), infra.WithCurrencySymbol("$")),
		Translator:    translator,
		CanvasFactory: log.factory,
		PageCounter:   log.pageCount,
		Logger:        zaptest.NewLogger(t),
	})
	return composer, log
}

type fakeRasterizer struct {
	calls int
}

func (f *fakeRasterizer) Rasterize(_ []byte, _ int, _ float64) (image.Image, error) {
	f.calls++
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

type testEnv struct {
	service    *PDFService
	store      *infra.ArtifactStore
	index      *MemoryIndex
	fs         afero.Fs
	canvases   *canvasLog
	rasterizer *fakeRasterizer
}

func newTestEnv(t *testing.T, opts ...ServiceOption) *testEnv {
	t.Helper()

	composer, log := newTestComposer(t, "en")
	fs := afero.NewMemMapFs()
	rasterizer := &fakeRasterizer{}
	store, err := infra.NewArtifactStore(&infra.ArtifactStoreConfig{
		BaseDir:    "/var/pdf",
		PreviewDir: "/var/preview",
		Fs:         fs,
		Rasterizer: rasterizer,
		Logger:     zaptest.NewLogger(t),
	})
	require.NoError(t, err)

	index := NewMemoryIndex()
	registry := NewBuilderRegistry(NewInvoiceBuilder(NewMemoryInvoiceSource(DemoInvoices()...)))

	return &testEnv{
		service:    NewPDFService(registry, composer, store, index, zaptest.NewLogger(t), opts...),
		store:      store,
		index:      index,
		fs:         fs,
		canvases:   log,
		rasterizer: rasterizer,
	}
}

// MockInvoiceSource is a mock implementation of InvoiceSource
type MockInvoiceSource struct {
	mock.Mock
}

func (m *MockInvoiceSource) FindInvoice(ctx context.Context, id string) (*Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invoice), args.Error(1)
}

// MockArtifactMirror is a mock implementation of ArtifactMirror
type MockArtifactMirror struct {
	mock.Mock
}

func (m *MockArtifactMirror) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

func (m *MockArtifactMirror) DeleteObject(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockArtifactMirror) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, key, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
