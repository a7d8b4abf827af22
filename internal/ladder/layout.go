package ladder

import "math"

// Layout kinds.
const (
	KindRow    = "row"
	KindGrid   = "grid"
	KindGroups = "groups"
)

// Layout describes how a board of a given size is arranged.
type Layout struct {
	Kind         string `json:"kind"`
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
	ColumnGroups []int  `json:"column_groups,omitempty"`
}

var fixedLayouts = map[int]Layout{
	5:  {Kind: KindRow, Rows: 1, Cols: 5},
	10: {Kind: KindGrid, Rows: 2, Cols: 5},
	15: {Kind: KindGrid, Rows: 3, Cols: 5},
	20: {Kind: KindGrid, Rows: 4, Cols: 5},
	40: {Kind: KindGroups, Rows: 4, Cols: 10, ColumnGroups: []int{5, 5}},
	80: {Kind: KindGroups, Rows: 8, Cols: 10, ColumnGroups: []int{5, 5}},
}

// LayoutForCardCount returns the fixed layout for a known board size, or a
// five-column grid for anything else.
func LayoutForCardCount(n int) Layout {
	if l, ok := fixedLayouts[n]; ok {
		if l.ColumnGroups != nil {
			l.ColumnGroups = append([]int(nil), l.ColumnGroups...)
		}
		return l
	}
	rows := int(math.Round(float64(n) / 5))
	if rows < 1 {
		rows = 1
	}
	return Layout{Kind: KindGrid, Rows: rows, Cols: 5}
}
