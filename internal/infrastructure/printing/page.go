package printing

import (
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Title rows are this tall
const titleHeight = 7.0

// Separator lines use this grey level
const separatorGrey = 200

const nbsp = "\u00a0"

// Page is one logical page of a document. Implementations embed BasePage and
// provide RenderBody; the header and footer default to BasePage's.
type Page interface {
	RenderHeader(c Canvas) error
	RenderBody(c Canvas) error
	RenderFooter(c Canvas) error
	// Base returns the embedded cursor and style state
	Base() *BasePage
}

// BasePage holds the cursor and style defaults shared by all pages
type BasePage struct {
	// Y is the vertical cursor where the next block starts
	Y float64

	FontSize      float64
	FontWeight    string
	TextAlign     string
	LetterSpacing int
	Capitalize    bool

	// BackgroundImage is drawn over the whole page before the header, if the file exists
	BackgroundImage string

	// FixedBodyEndY overrides the computed body end when positive
	FixedBodyEndY float64

	doc *Document
	// next is rendered right after this page's footer
	next Page
}

// NewBasePage returns a page state with the default style
func NewBasePage() BasePage {
	return BasePage{FontSize: DefaultFontSize}
}

// Base implements Page
func (p *BasePage) Base() *BasePage {
	return p
}

// Document returns the document the page is bound to
func (p *BasePage) Document() *Document {
	return p.doc
}

func (p *BasePage) bind(doc *Document) {
	p.doc = doc
	if p.FontSize == 0 {
		p.FontSize = DefaultFontSize
	}
}

// ContinueWith schedules p to render on the next canvas page, after this
// page's footer. p is not added to the document page sequence.
func (p *BasePage) ContinueWith(next Page) {
	next.Base().bind(p.doc)
	p.next = next
}

// takeNext returns and clears the scheduled continuation page
func (p *BasePage) takeNext() Page {
	next := p.next
	p.next = nil
	return next
}

// RenderHeader draws the background image if one is configured
func (p *BasePage) RenderHeader(c Canvas) error {
	if p.BackgroundImage == "" {
		return nil
	}
	if _, err := os.Stat(p.BackgroundImage); err != nil {
		return nil
	}
	g := p.doc.Geometry()
	c.Image(p.BackgroundImage, 0, 0, g.PageWidth, g.PageHeight)
	return nil
}

// RenderFooter draws nothing
func (p *BasePage) RenderFooter(Canvas) error {
	return nil
}

// BodyEndY returns the lowest y body content may reach, keeping extra units free
// above the footer
func (p *BasePage) BodyEndY(extra float64) float64 {
	if p.FixedBodyEndY > 0 {
		return p.FixedBodyEndY
	}
	return p.doc.Geometry().BodyEndY(extra)
}

// BlockOption positions or decorates a block
type BlockOption func(*blockOptions)

type blockOptions struct {
	x, y     float64
	hasX     bool
	hasY     bool
	border   bool
	fontSize float64
}

// AtX places the block at x instead of the document margin
func AtX(x float64) BlockOption {
	return func(o *blockOptions) {
		o.x = x
		o.hasX = true
	}
}

// AtY places the block at y instead of the cursor
func AtY(y float64) BlockOption {
	return func(o *blockOptions) {
		o.y = y
		o.hasY = true
	}
}

// At places the block at x, y
func At(x, y float64) BlockOption {
	return func(o *blockOptions) {
		AtX(x)(o)
		AtY(y)(o)
	}
}

// WithBorder draws the cell border
func WithBorder() BlockOption {
	return func(o *blockOptions) {
		o.border = true
	}
}

func (p *BasePage) resolve(opts []BlockOption) blockOptions {
	o := blockOptions{
		x:        p.doc.Geometry().Margin,
		y:        p.Y,
		fontSize: p.FontSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// RenderBlock writes html in a w by h cell and moves the cursor below it.
// It returns the new cursor.
func (p *BasePage) RenderBlock(c Canvas, html string, w, h float64, opts ...BlockOption) float64 {
	o := p.resolve(opts)
	c.WriteHTMLCell(Cell{
		X:        o.x,
		Y:        o.y,
		W:        w,
		H:        h,
		HTML:     html,
		Border:   o.border || p.doc.DebugBorders(),
		FontSize: o.fontSize,
	})
	p.Y = o.y + h
	return p.Y
}

// RenderTemplate renders the named template into a block
func (p *BasePage) RenderTemplate(c Canvas, name string, vars map[string]any, w, h float64, opts ...BlockOption) (float64, error) {
	html, err := p.doc.RenderTemplate(name, vars)
	if err != nil {
		return p.Y, err
	}
	return p.RenderBlock(c, html, w, h, opts...), nil
}

// RenderTemplateFull renders the named template across the inner page width
func (p *BasePage) RenderTemplateFull(c Canvas, name string, vars map[string]any, h float64, opts ...BlockOption) (float64, error) {
	g := p.doc.Geometry()
	opts = append([]BlockOption{AtX(g.Margin)}, opts...)
	return p.RenderTemplate(c, name, vars, g.InnerWidth(), h, opts...)
}

// Span is a run of text rendered with the span partial. Zero-valued style
// fields inherit the page defaults.
type Span struct {
	Content    string
	FontSize   float64
	FontWeight string
	TextAlign  string
	Class      string

	// LetterSpacing inserts this many non-breaking spaces between characters
	LetterSpacing *int
	Capitalize    *bool

	// Start and Length select a substring in runes when Length > 0
	Start  int
	Length int

	// NBSP replaces spaces with non-breaking spaces
	NBSP bool

	// Border draws a rectangle inset by one unit around the span
	Border bool
}

// RenderSpan formats span and writes it as a block
func (p *BasePage) RenderSpan(c Canvas, span Span, w, h float64, opts ...BlockOption) (float64, error) {
	o := p.resolve(opts)

	fontSize := span.FontSize
	if fontSize == 0 {
		fontSize = p.FontSize
	}
	weight := span.FontWeight
	if weight == "" {
		weight = p.FontWeight
	}
	align := span.TextAlign
	if align == "" {
		align = p.TextAlign
	}
	spacing := p.LetterSpacing
	if span.LetterSpacing != nil {
		spacing = *span.LetterSpacing
	}
	capitalize := p.Capitalize
	if span.Capitalize != nil {
		capitalize = *span.Capitalize
	}

	content := span.Content
	if span.Length > 0 {
		content = substring(content, span.Start, span.Length)
	}
	if capitalize {
		content = cases.Upper(p.doc.Locale()).String(content)
	}
	if span.NBSP {
		content = strings.ReplaceAll(content, " ", nbsp)
	}
	if spacing > 0 {
		content = spaceLetters(content, spacing)
	}

	class := strings.Join(strings.Fields(strings.Join([]string{span.Class, weight, align}, " ")), " ")

	html, err := p.doc.RenderTemplate(SpanTemplate, map[string]any{
		"content": content,
		"class":   class,
		"weight":  weight,
		"align":   align,
	})
	if err != nil {
		return p.Y, err
	}

	if span.Border {
		c.Rect(o.x, o.y, w, h)
		o.x++
		o.y++
		w -= 2
		h -= 2
	}

	c.WriteHTMLCell(Cell{
		X:        o.x,
		Y:        o.y,
		W:        w,
		H:        h,
		HTML:     html,
		Border:   o.border || p.doc.DebugBorders(),
		FontSize: fontSize,
	})
	p.Y = o.y + h
	return p.Y, nil
}

// RenderTitle writes the translated title across the inner width. num prefixes
// the title when positive.
func (p *BasePage) RenderTitle(c Canvas, title string, num int, args map[string]any, opts ...BlockOption) (float64, error) {
	g := p.doc.Geometry()
	opts = append([]BlockOption{AtX(g.Margin)}, opts...)
	return p.RenderTemplate(c, PageTitleTemplate, map[string]any{
		"page_title": p.Trans(title, args),
		"num":        num,
	}, g.InnerWidth(), titleHeight, opts...)
}

// RenderSeparator draws a grey line across the inner width, before units below
// the cursor, and moves the cursor after units further. It returns the total
// height consumed.
func (p *BasePage) RenderSeparator(c Canvas, before, after float64) float64 {
	g := p.doc.Geometry()
	y := p.Y + before

	c.SetDrawColor(separatorGrey, separatorGrey, separatorGrey)
	c.Line(g.Margin, y, g.PageWidth-g.Margin, y)
	c.SetDrawColor(0, 0, 0)

	p.Y = y + after
	return before + after
}

// Trans translates id in the document domain
func (p *BasePage) Trans(id string, args map[string]any) string {
	return p.doc.Trans(id, args)
}

// PageNumberArgs returns the translation arguments for page numbering
func (p *BasePage) PageNumberArgs(c Canvas) map[string]any {
	return map[string]any{
		":pageNum":   c.PageNo(),
		":pageTotal": c.PageTotalAlias(),
	}
}

func substring(s string, start, length int) string {
	runes := []rune(s)
	if start < 0 {
		start = max(0, len(runes)+start)
	}
	if start >= len(runes) {
		return ""
	}
	end := min(len(runes), start+length)
	return string(runes[start:end])
}

func spaceLetters(s string, spacing int) string {
	sep := strings.Repeat(nbsp, spacing)
	parts := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, sep)
}

// localeOrDefault guards against documents without a translator
func localeOrDefault(tag language.Tag) language.Tag {
	if tag == language.Und {
		return language.English
	}
	return tag
}
