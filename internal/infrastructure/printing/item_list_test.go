package printing

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/erp/pdfkit/internal/domain/printing"
)

// listGeometry leaves exactly 200 units of body above the footer
func listGeometry(t *testing.T) domain.Geometry {
	t.Helper()
	g, err := domain.NewGeometry(15, 210, 235, 35)
	require.NoError(t, err)
	require.Equal(t, 200.0, g.BodyEndY(0))
	return g
}

type placedItem struct {
	Page int
	Item int
	Y    float64
}

type recordingHooks struct {
	headerHeight float64
	failItem     int

	headers []int
	items   []placedItem
	totals  []int
	totalsY []float64
	current []bool
}

func newRecordingHooks(headerHeight float64) *recordingHooks {
	return &recordingHooks{headerHeight: headerHeight, failItem: -1}
}

func (h *recordingHooks) RenderListHeader(c Canvas, list *ItemList[int]) error {
	h.headers = append(h.headers, c.PageNo())
	list.Y += h.headerHeight
	return nil
}

func (h *recordingHooks) RenderItem(c Canvas, list *ItemList[int], item int, y float64) error {
	if item == h.failItem {
		return errors.New("boom")
	}
	h.items = append(h.items, placedItem{Page: c.PageNo(), Item: item, Y: y})
	h.current = append(h.current, list.Document().CurrentPage() == Page(list))
	return nil
}

func (h *recordingHooks) RenderTotalBlock(c Canvas, list *ItemList[int]) error {
	h.totals = append(h.totals, c.PageNo())
	h.totalsY = append(h.totalsY, list.Y)
	return nil
}

// itemsPerPage returns how many items landed on each page 1..pages
func (h *recordingHooks) itemsPerPage(pages int) []int {
	counts := make([]int, pages)
	for _, p := range h.items {
		counts[p.Page-1]++
	}
	return counts
}

func sequence(n int) []int {
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	return items
}

func renderList(t *testing.T, list *ItemList[int]) (*recordingCanvas, error) {
	t.Helper()
	doc, canvas := newTestDocument(t, WithGeometry(listGeometry(t)))
	doc.Append(list)
	_, err := doc.Render(context.Background())
	return canvas, err
}

func TestItemList_TwentyFiveItemScenario(t *testing.T) {
	hooks := newRecordingHooks(0)
	list := NewItemList(sequence(25), hooks)

	canvas, err := renderList(t, list)
	require.NoError(t, err)

	assert.Equal(t, 3, canvas.page)
	assert.Equal(t, []int{10, 10, 5}, hooks.itemsPerPage(3))
	assert.Equal(t, []int{1, 2, 3}, hooks.headers)
	assert.Equal(t, []int{3}, hooks.totals)
	assert.Equal(t, []float64{100}, hooks.totalsY)
}

func TestItemList_RowPositions(t *testing.T) {
	hooks := newRecordingHooks(15)
	list := NewItemList(sequence(12), hooks, WithStartY[int](10))

	_, err := renderList(t, list)
	require.NoError(t, err)

	// 175 units below the header fit 8 rows
	require.Len(t, hooks.items, 12)
	for i, p := range hooks.items[:8] {
		assert.Equal(t, 1, p.Page)
		assert.Equal(t, 25+float64(i)*20, p.Y)
	}
	for i, p := range hooks.items[8:] {
		assert.Equal(t, 2, p.Page)
		assert.Equal(t, 25+float64(i)*20, p.Y)
	}
}

func TestItemList_TotalsOnEmptyContinuationPage(t *testing.T) {
	hooks := newRecordingHooks(0)
	list := NewItemList(sequence(10), hooks)

	canvas, err := renderList(t, list)
	require.NoError(t, err)

	assert.Equal(t, 2, canvas.page)
	assert.Equal(t, []int{10, 0}, hooks.itemsPerPage(2))
	assert.Equal(t, []int{1}, hooks.headers, "pages without items have no list header")
	assert.Equal(t, []int{2}, hooks.totals)
	assert.Equal(t, []float64{0}, hooks.totalsY)
}

func TestItemList_EmptyInput(t *testing.T) {
	hooks := newRecordingHooks(15)
	list := NewItemList(nil, hooks)

	canvas, err := renderList(t, list)
	require.NoError(t, err)

	assert.Equal(t, 1, canvas.page)
	assert.Empty(t, hooks.headers)
	assert.Empty(t, hooks.items)
	assert.Equal(t, []int{1}, hooks.totals)
}

func TestItemList_Properties(t *testing.T) {
	for _, headerHeight := range []float64{0, 15, 35} {
		for n := 0; n <= 45; n++ {
			t.Run(fmt.Sprintf("header %.0f items %d", headerHeight, n), func(t *testing.T) {
				hooks := newRecordingHooks(headerHeight)
				list := NewItemList(sequence(n), hooks)

				canvas, err := renderList(t, list)
				require.NoError(t, err)

				// Every item rendered exactly once, in order
				require.Len(t, hooks.items, n)
				for i, p := range hooks.items {
					assert.Equal(t, i, p.Item)
				}

				// No page holds more rows than fit below its header
				capacity := domain.Capacity(headerHeight, 200, DefaultItemHeight)
				for page, count := range hooks.itemsPerPage(canvas.page) {
					assert.LessOrEqual(t, count, capacity, "page %d", page+1)
				}

				// Totals exactly once, on the last page
				assert.Equal(t, []int{canvas.page}, hooks.totals)

				// Same layout as the pure simulation
				sim, err := domain.SimulateList(n, domain.ListParams{
					ItemHeight:   DefaultItemHeight,
					TotalHeight:  DefaultTotalHeight,
					HeaderHeight: headerHeight,
					BodyEndY:     200,
				})
				require.NoError(t, err)
				assert.Equal(t, sim.PageItems, hooks.itemsPerPage(canvas.page))
				assert.Equal(t, sim.TotalsPage+1, canvas.page)
			})
		}
	}
}

func TestItemList_Deterministic(t *testing.T) {
	first := newRecordingHooks(15)
	_, err := renderList(t, NewItemList(sequence(33), first))
	require.NoError(t, err)

	second := newRecordingHooks(15)
	_, err = renderList(t, NewItemList(sequence(33), second))
	require.NoError(t, err)

	assert.Equal(t, first.items, second.items)
	assert.Equal(t, first.totals, second.totals)
}

func TestItemList_NoLayoutProgress(t *testing.T) {
	t.Run("header leaves no room for rows", func(t *testing.T) {
		hooks := newRecordingHooks(190)
		_, err := renderList(t, NewItemList(sequence(3), hooks))

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoLayoutProgress))
		assert.Equal(t, ErrCodeRenderFailed, ErrorCode(err))
		assert.Equal(t, []int{1, 2}, hooks.headers, "first page may place nothing, the second must")
	})

	t.Run("totals taller than the body", func(t *testing.T) {
		hooks := newRecordingHooks(0)
		_, err := renderList(t, NewItemList(nil, hooks, WithTotalHeight[int](250)))

		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrNoLayoutProgress))
		assert.Empty(t, hooks.totals)
	})
}

func TestItemList_InvalidItemHeight(t *testing.T) {
	hooks := newRecordingHooks(0)
	_, err := renderList(t, NewItemList(sequence(3), hooks, WithItemHeight[int](0)))

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidItemHeight))
}

func TestItemList_ItemErrorStopsRender(t *testing.T) {
	hooks := newRecordingHooks(0)
	hooks.failItem = 12

	_, err := renderList(t, NewItemList(sequence(20), hooks))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, hooks.items, 12)
	assert.Empty(t, hooks.totals)
}

func TestItemList_ContinuationPages(t *testing.T) {
	var created []*ItemList[int]
	hooks := newRecordingHooks(0)

	var factory ListFactory[int]
	factory = func(items []int) *ItemList[int] {
		l := NewItemList(items, hooks, WithItemHeight[int](40))
		created = append(created, l)
		return l
	}

	first := NewItemList(sequence(12), hooks, WithFactory(factory))
	doc, canvas := newTestDocument(t, WithGeometry(listGeometry(t)))
	doc.Append(first)

	_, err := doc.Render(context.Background())
	require.NoError(t, err)

	// 10 rows of 20, then continuation rows of 40: 2 remaining fit on page 2
	require.Len(t, created, 1)
	assert.Equal(t, 2, canvas.page)
	assert.Equal(t, 1, created[0].Sequence())
	assert.True(t, created[0].IsContinuation())
	assert.False(t, first.IsContinuation())
	assert.Equal(t, []int{10, 11}, created[0].Items)
	assert.Len(t, doc.Pages(), 1, "continuation pages stay out of the page sequence")

	for _, current := range hooks.current {
		assert.True(t, current, "current page follows continuation pages")
	}
}

func TestItemList_ContinuationKeepsRemainderIsolated(t *testing.T) {
	items := sequence(15)
	hooks := newRecordingHooks(0)

	_, err := renderList(t, NewItemList(items, hooks))
	require.NoError(t, err)

	assert.Equal(t, sequence(15), items, "input slice is not modified")
}

type footerHooks struct {
	*recordingHooks
	footers       []int
	footerCurrent []bool
	footerSeq     []int
	heads         []int
}

func (h *footerHooks) RenderPageFooter(c Canvas, list *ItemList[int]) error {
	h.footers = append(h.footers, c.PageNo())
	h.footerCurrent = append(h.footerCurrent, list.Document().CurrentPage() == Page(list))
	h.footerSeq = append(h.footerSeq, list.Sequence())
	return nil
}

func (h *footerHooks) RenderPageHeader(c Canvas, _ *ItemList[int]) error {
	h.heads = append(h.heads, c.PageNo())
	return nil
}

func TestItemList_PageHooksOnEveryPage(t *testing.T) {
	hooks := &footerHooks{recordingHooks: newRecordingHooks(0)}

	list := NewItemList[int](sequence(25), hooks)
	_, err := renderList(t, list)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, hooks.footers)
	assert.Equal(t, []int{1, 2, 3}, hooks.heads)
	assert.Equal(t, []int{0, 1, 2}, hooks.footerSeq, "each footer belongs to its own page")
	assert.Equal(t, []bool{true, true, true}, hooks.footerCurrent)
}

func TestItemList_TotalsPageFooter(t *testing.T) {
	hooks := &footerHooks{recordingHooks: newRecordingHooks(0)}

	// 9 rows end at y=180, leaving no room for 30 units of totals
	_, err := renderList(t, NewItemList[int](sequence(9), hooks))
	require.NoError(t, err)

	assert.Equal(t, []int{2}, hooks.totals)
	assert.Equal(t, []int{1, 2}, hooks.footers)
	assert.Equal(t, []int{0, 1}, hooks.footerSeq)
}

// flakyTotals fails the totals block a fixed number of times
type flakyTotals struct {
	*recordingHooks
	failures int
}

func (h *flakyTotals) RenderTotalBlock(c Canvas, list *ItemList[int]) error {
	if h.failures > 0 {
		h.failures--
		return errors.New("totals unavailable")
	}
	return h.recordingHooks.RenderTotalBlock(c, list)
}

func TestItemList_RenderRetryAfterFailure(t *testing.T) {
	hooks := &flakyTotals{recordingHooks: newRecordingHooks(15), failures: 1}
	list := NewItemList[int](sequence(5), hooks)

	doc, canvas := newTestDocument(t, WithGeometry(listGeometry(t)))
	doc.Append(list)

	_, err := doc.Render(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "totals unavailable")
	assert.Equal(t, 0.0, list.Y, "cursor restored after a failed pass")
	assert.Nil(t, doc.CurrentPage())

	hooks.items = nil
	canvas.page = 0
	_, err = doc.Render(context.Background())
	require.NoError(t, err)

	require.Len(t, hooks.items, 5)
	assert.Equal(t, 15.0, hooks.items[0].Y)
	assert.Equal(t, 1, canvas.page)
	assert.Equal(t, []int{1}, hooks.totals)
}
