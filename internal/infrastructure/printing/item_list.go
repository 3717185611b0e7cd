package printing

import (
	"fmt"
	"slices"

	domain "github.com/erp/pdfkit/internal/domain/printing"
)

// Default list geometry in millimeters
const (
	DefaultItemHeight  = 20.0
	DefaultTotalHeight = 30.0
)

// ListHooks draws the parts of a list page
type ListHooks[T any] interface {
	// RenderListHeader runs on every page that still has items
	RenderListHeader(c Canvas, list *ItemList[T]) error
	// RenderItem draws one row at y
	RenderItem(c Canvas, list *ItemList[T], item T, y float64) error
	// RenderTotalBlock runs once, on the last page of the list
	RenderTotalBlock(c Canvas, list *ItemList[T]) error
}

// ListPageHeader lets hooks replace the page header of every list page
type ListPageHeader[T any] interface {
	RenderPageHeader(c Canvas, list *ItemList[T]) error
}

// ListPageFooter lets hooks draw the page footer of every list page
type ListPageFooter[T any] interface {
	RenderPageFooter(c Canvas, list *ItemList[T]) error
}

// ListFactory creates the continuation page that takes over items
type ListFactory[T any] func(items []T) *ItemList[T]

// ItemList is a page that renders fixed-height rows and continues on new
// pages until every item and the totals block are placed.
type ItemList[T any] struct {
	BasePage

	Items       []T
	ItemHeight  float64
	TotalHeight float64
	// StartY is the cursor every page of the list starts from
	StartY float64
	Hooks  ListHooks[T]

	factory ListFactory[T]
	// Index of this page within the list, 0 for the first page
	sequence int
}

// ItemListOption configures an ItemList
type ItemListOption[T any] func(*ItemList[T])

// WithItemHeight sets the row height
func WithItemHeight[T any](h float64) ItemListOption[T] {
	return func(l *ItemList[T]) {
		l.ItemHeight = h
	}
}

// WithTotalHeight sets the space reserved for the totals block
func WithTotalHeight[T any](h float64) ItemListOption[T] {
	return func(l *ItemList[T]) {
		l.TotalHeight = h
	}
}

// WithStartY sets the cursor each list page starts from
func WithStartY[T any](y float64) ItemListOption[T] {
	return func(l *ItemList[T]) {
		l.StartY = y
		l.Y = y
	}
}

// WithBodyEndY fixes the lowest y rows may reach
func WithBodyEndY[T any](y float64) ItemListOption[T] {
	return func(l *ItemList[T]) {
		l.FixedBodyEndY = y
	}
}

// WithFactory sets how continuation pages are created
func WithFactory[T any](f ListFactory[T]) ItemListOption[T] {
	return func(l *ItemList[T]) {
		l.factory = f
	}
}

// NewItemList creates the first page of a list
func NewItemList[T any](items []T, hooks ListHooks[T], opts ...ItemListOption[T]) *ItemList[T] {
	l := &ItemList[T]{
		BasePage:    NewBasePage(),
		Items:       items,
		ItemHeight:  DefaultItemHeight,
		TotalHeight: DefaultTotalHeight,
		Hooks:       hooks,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Sequence returns the index of this page within the list
func (l *ItemList[T]) Sequence() int {
	return l.sequence
}

// IsContinuation reports whether the page continues a previous list page
func (l *ItemList[T]) IsContinuation() bool {
	return l.sequence > 0
}

// RenderHeader draws the background, or the hook header if hooks provide one
func (l *ItemList[T]) RenderHeader(c Canvas) error {
	if h, ok := l.Hooks.(ListPageHeader[T]); ok {
		return h.RenderPageHeader(c, l)
	}
	return l.BasePage.RenderHeader(c)
}

// RenderFooter draws the hook footer if hooks provide one
func (l *ItemList[T]) RenderFooter(c Canvas) error {
	if f, ok := l.Hooks.(ListPageFooter[T]); ok {
		return f.RenderPageFooter(c, l)
	}
	return l.BasePage.RenderFooter(c)
}

// RenderBody places as many rows as fit, then either renders the remainder on
// a continuation page or renders the totals block. A continuation page that can
// neither place a row nor the totals fails with ErrNoLayoutProgress.
func (l *ItemList[T]) RenderBody(c Canvas) error {
	if l.ItemHeight <= 0 {
		return domain.ErrInvalidItemHeight
	}

	if len(l.Items) > 0 {
		if err := l.Hooks.RenderListHeader(c, l); err != nil {
			return fmt.Errorf("list header: %w", err)
		}
	}

	plan := domain.PlanListPage(len(l.Items), l.Y, l.BodyEndY(0), l.BodyEndY(l.TotalHeight), l.ItemHeight)
	if l.IsContinuation() && !plan.MakesProgress() {
		return fmt.Errorf("list page %d at y=%.2f: %w", l.sequence+1, l.Y, domain.ErrNoLayoutProgress)
	}

	y := l.Y
	for i, item := range l.Items[:plan.Take] {
		if err := l.Hooks.RenderItem(c, l, item, y); err != nil {
			return fmt.Errorf("list item %d: %w", i, err)
		}
		y += l.ItemHeight
	}
	l.Y = plan.NextY

	switch plan.Outcome {
	case domain.OutcomeContinue:
		return l.continueWith(slices.Clone(l.Items[plan.Take:]))
	case domain.OutcomeTotalsOnNewPage:
		return l.continueWith(nil)
	default:
		if err := l.Hooks.RenderTotalBlock(c, l); err != nil {
			return fmt.Errorf("list totals: %w", err)
		}
		return nil
	}
}

// continueWith schedules a continuation page. The document renders it once
// this page's footer is drawn.
func (l *ItemList[T]) continueWith(items []T) error {
	l.ContinueWith(l.spawn(items))
	return nil
}

func (l *ItemList[T]) spawn(items []T) *ItemList[T] {
	var next *ItemList[T]
	if l.factory != nil {
		next = l.factory(items)
	} else {
		next = NewItemList(items, l.Hooks)
		next.ItemHeight = l.ItemHeight
		next.TotalHeight = l.TotalHeight
		next.StartY = l.StartY
		next.Y = l.StartY
		next.FixedBodyEndY = l.FixedBodyEndY
		next.BackgroundImage = l.BackgroundImage
		next.FontSize = l.FontSize
		next.FontWeight = l.FontWeight
		next.TextAlign = l.TextAlign
		next.LetterSpacing = l.LetterSpacing
		next.Capitalize = l.Capitalize
	}
	if next.Hooks == nil {
		next.Hooks = l.Hooks
	}
	next.factory = l.factory
	next.sequence = l.sequence + 1
	return next
}
