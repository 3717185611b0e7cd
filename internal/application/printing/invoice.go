package printing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/pdfkit/internal/domain/shared"
	infra "github.com/erp/pdfkit/internal/infrastructure/printing"
)

// InvoiceKind is the document kind of invoices
const InvoiceKind = "invoice"

// Invoice list geometry in millimeters
const (
	invoiceHeadingHeight = 20.0
	invoiceColumnsHeight = 8.0
	invoiceRowHeight     = 8.0
	invoiceTotalHeight   = 16.0
	invoiceFooterHeight  = 6.0
)

// InvoiceLine is one billed line
type InvoiceLine struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Amount returns quantity times unit price
func (l InvoiceLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice)
}

// Invoice is the record an invoice document is built from
type Invoice struct {
	ID       string
	Number   string
	Customer string
	IssuedAt time.Time
	Lines    []InvoiceLine
}

// Total returns the sum of line amounts
func (i *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range i.Lines {
		total = total.Add(line.Amount())
	}
	return total
}

// InvoiceSource loads invoices by id
type InvoiceSource interface {
	FindInvoice(ctx context.Context, id string) (*Invoice, error)
}

// MemoryInvoiceSource serves invoices held in memory
type MemoryInvoiceSource struct {
	mu       sync.RWMutex
	invoices map[string]*Invoice
}

// NewMemoryInvoiceSource creates a source holding invoices
func NewMemoryInvoiceSource(invoices ...*Invoice) *MemoryInvoiceSource {
	s := &MemoryInvoiceSource{invoices: make(map[string]*Invoice)}
	for _, inv := range invoices {
		s.Add(inv)
	}
	return s
}

// Add stores or replaces an invoice
func (s *MemoryInvoiceSource) Add(inv *Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = inv
}

func (s *MemoryInvoiceSource) FindInvoice(ctx context.Context, id string) (*Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, fmt.Errorf("invoice %s: %w", id, shared.ErrNotFound)
	}
	return inv, nil
}

// InvoiceBuilder builds invoice documents
type InvoiceBuilder struct {
	source InvoiceSource
}

// NewInvoiceBuilder creates an invoice builder reading from source
func NewInvoiceBuilder(source InvoiceSource) *InvoiceBuilder {
	return &InvoiceBuilder{source: source}
}

func (b *InvoiceBuilder) Kind() string {
	return InvoiceKind
}

func (b *InvoiceBuilder) Description() string {
	return "Customer invoice with paginated lines and totals"
}

func (b *InvoiceBuilder) Build(ctx context.Context, composer *Composer, id string) (*infra.Document, error) {
	inv, err := b.source.FindInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := composer.NewDocument(InvoiceKind, infra.Metadata{
		Title:   "Invoice " + inv.Number,
		Subject: inv.Customer,
		Author:  inv.Customer,
	}, infra.WithDownloadName("invoice-"+inv.Number))
	if err != nil {
		return nil, err
	}

	doc.Append(NewInvoiceLines(inv, composer.Geometry().Margin))
	return doc, nil
}

// NewInvoiceLines creates the line list of an invoice starting at y
func NewInvoiceLines(inv *Invoice, y float64) *infra.ItemList[InvoiceLine] {
	return infra.NewItemList(inv.Lines, &invoiceLines{invoice: inv},
		infra.WithItemHeight[InvoiceLine](invoiceRowHeight),
		infra.WithTotalHeight[InvoiceLine](invoiceTotalHeight),
		infra.WithStartY[InvoiceLine](y),
	)
}

// invoiceColumn is a share of the inner page width
type invoiceColumn struct {
	label string
	share float64
	align string
}

var invoiceColumns = []invoiceColumn{
	{label: "lines.description", share: 0.5},
	{label: "lines.quantity", share: 0.1, align: "right"},
	{label: "lines.unit_price", share: 0.2, align: "right"},
	{label: "lines.amount", share: 0.2, align: "right"},
}

// invoiceLines implements the list hooks of invoices
type invoiceLines struct {
	invoice *Invoice
}

func (h *invoiceLines) RenderListHeader(c infra.Canvas, l *infra.ItemList[InvoiceLine]) error {
	if !l.IsContinuation() {
		if _, err := l.RenderTemplateFull(c, "pdf/invoice/heading.html", map[string]any{
			"invoice": h.invoice,
		}, invoiceHeadingHeight); err != nil {
			return err
		}
	}

	labels := make([]string, len(invoiceColumns))
	for i, col := range invoiceColumns {
		labels[i] = l.Trans(col.label, nil)
	}
	y, err := h.renderRow(c, l, labels, l.Y, invoiceColumnsHeight, "bold")
	if err != nil {
		return err
	}
	l.Y = y
	return nil
}

func (h *invoiceLines) RenderItem(c infra.Canvas, l *infra.ItemList[InvoiceLine], line InvoiceLine, y float64) error {
	_, err := h.renderRow(c, l, []string{
		line.Description,
		line.Quantity.String(),
		line.UnitPrice.StringFixed(2),
		line.Amount().StringFixed(2),
	}, y, l.ItemHeight, "")
	return err
}

func (h *invoiceLines) RenderTotalBlock(c infra.Canvas, l *infra.ItemList[InvoiceLine]) error {
	l.RenderSeparator(c, 2, 2)
	_, err := l.RenderTemplateFull(c, "pdf/invoice/totals.html", map[string]any{
		"total": h.invoice.Total(),
		"count": len(h.invoice.Lines),
	}, invoiceTotalHeight-4)
	return err
}

func (h *invoiceLines) RenderPageFooter(c infra.Canvas, l *infra.ItemList[InvoiceLine]) error {
	g := l.Document().Geometry()
	_, err := l.RenderSpan(c, infra.Span{
		Content:   l.Trans("page_number", l.PageNumberArgs(c)),
		TextAlign: "right",
		FontSize:  9,
	}, g.InnerWidth(), invoiceFooterHeight, infra.AtY(g.PageHeight-g.MarginFooter()-invoiceFooterHeight))
	return err
}

// renderRow writes one span per column at y and returns the y below the row
func (h *invoiceLines) renderRow(c infra.Canvas, l *infra.ItemList[InvoiceLine], values []string, y, height float64, weight string) (float64, error) {
	g := l.Document().Geometry()
	x := g.Margin
	for i, col := range invoiceColumns {
		w := g.InnerWidth() * col.share
		if _, err := l.RenderSpan(c, infra.Span{
			Content:    values[i],
			FontWeight: weight,
			TextAlign:  col.align,
		}, w, height, infra.At(x, y)); err != nil {
			return y, err
		}
		x += w
	}
	return y + height, nil
}

// DemoInvoices returns sample invoices of increasing length
func DemoInvoices() []*Invoice {
	issued := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	short := &Invoice{ID: "1001", Number: "INV-1001", Customer: "Northwind Traders", IssuedAt: issued}
	for i, name := range []string{"Consulting", "Hosting", "Support"} {
		short.Lines = append(short.Lines, InvoiceLine{
			Description: name,
			Quantity:    decimal.NewFromInt(int64(i + 1)),
			UnitPrice:   decimal.RequireFromString("120.50"),
		})
	}

	long := &Invoice{ID: "1002", Number: "INV-1002", Customer: "Contoso Ltd", IssuedAt: issued.AddDate(0, 0, 7)}
	for i := range 60 {
		long.Lines = append(long.Lines, InvoiceLine{
			Description: fmt.Sprintf("Item %02d", i+1),
			Quantity:    decimal.NewFromInt(int64(i%5 + 1)),
			UnitPrice:   decimal.NewFromFloat(9.99).Add(decimal.NewFromInt(int64(i))),
		})
	}

	empty := &Invoice{ID: "1003", Number: "INV-1003", Customer: "Fabrikam", IssuedAt: issued.AddDate(0, 1, 0)}

	return []*Invoice{short, long, empty}
}

var (
	_ DocumentBuilder                   = (*InvoiceBuilder)(nil)
	_ infra.ListHooks[InvoiceLine]      = (*invoiceLines)(nil)
	_ infra.ListPageFooter[InvoiceLine] = (*invoiceLines)(nil)
)
