// Package layout computes deterministic grid placement for dashboard widgets.
package layout

// Columns is the fixed grid width.
const Columns = 12

// Widget is a placement input: a displayable widget and its column span.
// Widgets without a cached artifact must never reach this package.
type Widget struct {
	TenantID string
	Span     int
}

// Placement is the grid slot assigned to one widget.
type Placement struct {
	TenantID string
	Column   int
	Row      int
	Span     int
}

// Compute packs widgets into rows with first-fit in input order: a widget
// goes into the current row when its span fits the remaining columns,
// otherwise it starts a new row. The output is fully determined by the input
// order and spans; no repacking, no optimization.
func Compute(widgets []Widget) []Placement {
	placements := make([]Placement, 0, len(widgets))
	row, col := 0, 0

	for _, w := range widgets {
		span := clampSpan(w.Span)
		if col+span > Columns {
			row++
			col = 0
		}
		placements = append(placements, Placement{
			TenantID: w.TenantID,
			Column:   col,
			Row:      row,
			Span:     span,
		})
		col += span
	}
	return placements
}

func clampSpan(span int) int {
	if span < 1 {
		return 1
	}
	if span > Columns {
		return Columns
	}
	return span
}
