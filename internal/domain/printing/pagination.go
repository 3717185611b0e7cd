package printing

import (
	"math"

	"github.com/erp/pdfkit/internal/domain/shared"
)

// ErrNoLayoutProgress is returned when a continuation page can neither place an
// item nor host the totals block. Rendering another page would repeat the same
// layout forever.
var ErrNoLayoutProgress = shared.NewDomainError("NO_LAYOUT_PROGRESS",
	"List continuation page cannot place any item or the totals block")

// ErrInvalidItemHeight is returned for lists whose rows have no height
var ErrInvalidItemHeight = shared.NewDomainError("INVALID_ITEM_HEIGHT", "List item height must be positive")

// ListOutcome is the decision taken once a list page has placed its items
type ListOutcome int

const (
	// OutcomeContinue means items remain and a continuation page takes them
	OutcomeContinue ListOutcome = iota
	// OutcomeTotalsOnNewPage means all items are placed but the totals block
	// does not fit below them; an empty continuation page hosts it
	OutcomeTotalsOnNewPage
	// OutcomeTotalsHere means the totals block renders on this page
	OutcomeTotalsHere
)

// String returns the string representation of ListOutcome
func (o ListOutcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeTotalsOnNewPage:
		return "totals_on_new_page"
	case OutcomeTotalsHere:
		return "totals_here"
	default:
		return "unknown"
	}
}

// ListPagePlan is the layout of one list page
type ListPagePlan struct {
	// Take is how many items from the front of the sequence this page renders
	Take int
	// NextY is the cursor after the last placed row
	NextY float64
	// Outcome is what happens after the rows
	Outcome ListOutcome
}

// layoutEpsilon absorbs float error in row arithmetic, far below any visible unit
const layoutEpsilon = 1e-9

// Capacity returns how many whole rows of itemHeight fit between y and bodyEndY
func Capacity(y, bodyEndY, itemHeight float64) int {
	if itemHeight <= 0 || bodyEndY <= y {
		return 0
	}
	return int(math.Floor((bodyEndY-y)/itemHeight + layoutEpsilon))
}

// PlanListPage lays out itemCount rows starting at y. Rows never split: an
// item either fits entirely above bodyEndY or moves to the remainder.
// bodyEndWithTotals is the lowest y that still leaves room for the totals.
func PlanListPage(itemCount int, y, bodyEndY, bodyEndWithTotals, itemHeight float64) ListPagePlan {
	take := min(Capacity(y, bodyEndY, itemHeight), itemCount)
	plan := ListPagePlan{
		Take:  take,
		NextY: y + float64(take)*itemHeight,
	}

	switch {
	case take < itemCount:
		plan.Outcome = OutcomeContinue
	case plan.NextY > bodyEndWithTotals+layoutEpsilon:
		plan.Outcome = OutcomeTotalsOnNewPage
	default:
		plan.Outcome = OutcomeTotalsHere
	}
	return plan
}

// MakesProgress reports whether a continuation page with this plan moves the
// list forward. The first page of a list is allowed to place nothing.
func (p ListPagePlan) MakesProgress() bool {
	return p.Take > 0 || p.Outcome == OutcomeTotalsHere
}

// ListParams describes a list layout with fixed geometry on every page
type ListParams struct {
	// ItemHeight is the fixed row height
	ItemHeight float64
	// TotalHeight is the space the totals block needs below the last row
	TotalHeight float64
	// StartY is the cursor when the list body starts on a page
	StartY float64
	// HeaderHeight is the height of the list header, drawn only on pages
	// that still have items
	HeaderHeight float64
	// BodyEndY is the lowest usable y for rows
	BodyEndY float64
}

// Validate checks the parameters
func (p ListParams) Validate() error {
	if p.ItemHeight <= 0 {
		return ErrInvalidItemHeight
	}
	if p.TotalHeight < 0 || p.HeaderHeight < 0 {
		return shared.NewDomainError("INVALID_LIST_PARAMS", "List heights cannot be negative")
	}
	return nil
}

// ListSimulation is the outcome of laying out a whole list
type ListSimulation struct {
	// PageItems holds the item count placed on each page, in page order
	PageItems []int
	// TotalsPage is the index of the page that hosts the totals block
	TotalsPage int
}

// Pages returns the number of pages the list occupies
func (s ListSimulation) Pages() int {
	return len(s.PageItems)
}

// SimulateList lays out itemCount rows across as many pages as needed without
// drawing anything. It applies the same decisions as a rendered list.
func SimulateList(itemCount int, params ListParams) (ListSimulation, error) {
	if err := params.Validate(); err != nil {
		return ListSimulation{}, err
	}
	if itemCount < 0 {
		return ListSimulation{}, shared.NewDomainError("INVALID_LIST_PARAMS", "Item count cannot be negative")
	}

	var sim ListSimulation
	remaining := itemCount
	for page := 0; ; page++ {
		y := params.StartY
		if remaining > 0 {
			y += params.HeaderHeight
		}

		plan := PlanListPage(remaining, y, params.BodyEndY, params.BodyEndY-params.TotalHeight, params.ItemHeight)
		if page > 0 && !plan.MakesProgress() {
			return sim, ErrNoLayoutProgress
		}

		sim.PageItems = append(sim.PageItems, plan.Take)
		remaining -= plan.Take

		if plan.Outcome == OutcomeTotalsHere {
			sim.TotalsPage = page
			return sim, nil
		}
	}
}
