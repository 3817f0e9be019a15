package extract

import (
	"sort"
	"strconv"
	"strings"
)

// PageGrid is the sparse (row, column) → cell text matrix for one page.
// Indices are 1-based and not guaranteed contiguous.
type PageGrid struct {
	rows map[int32]map[int32]string
}

func NewPageGrid() *PageGrid {
	return &PageGrid{rows: make(map[int32]map[int32]string)}
}

// Set records a cell. Later writes to the same coordinate win.
func (g *PageGrid) Set(row, col int32, text string) {
	cols, ok := g.rows[row]
	if !ok {
		cols = make(map[int32]string)
		g.rows[row] = cols
	}
	cols[col] = text
}

// Materialize converts the sparse grid into dense rows: row indices sorted
// ascending, every row padded to the maximum column index seen anywhere in
// the grid, missing cells as empty strings.
func (g *PageGrid) Materialize() [][]string {
	if len(g.rows) == 0 {
		return nil
	}
	rowIdx := make([]int32, 0, len(g.rows))
	var maxCol int32
	for r, cols := range g.rows {
		rowIdx = append(rowIdx, r)
		for c := range cols {
			if c > maxCol {
				maxCol = c
			}
		}
	}
	sort.Slice(rowIdx, func(i, j int) bool { return rowIdx[i] < rowIdx[j] })

	rows := make([][]string, 0, len(rowIdx))
	for _, r := range rowIdx {
		row := make([]string, maxCol)
		for c := int32(1); c <= maxCol; c++ {
			row[c-1] = g.rows[r][c]
		}
		rows = append(rows, row)
	}
	return rows
}

// TableGrid is the per-page sparse cell matrix for one document.
type TableGrid map[int32]*PageGrid

func (t TableGrid) page(n int32) *PageGrid {
	g, ok := t[n]
	if !ok {
		g = NewPageGrid()
		t[n] = g
	}
	return g
}

// Pages returns page numbers in ascending order.
func (t TableGrid) Pages() []int32 {
	pages := make([]int32, 0, len(t))
	for p := range t {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i] < pages[j] })
	return pages
}

// TotalRows returns the joined text of every materialized row that mentions
// "total", the table-aggregate candidates for the total resolver.
func (t TableGrid) TotalRows() []string {
	var rows []string
	for _, page := range t.Pages() {
		for _, row := range t[page].Materialize() {
			joined := strings.Join(row, " ")
			if strings.Contains(strings.ToLower(joined), "total") {
				rows = append(rows, joined)
			}
		}
	}
	return rows
}

// LineItem carries the fields meaningfully extracted from one matched table
// row. Absent fields are omitted from the JSON artifact.
type LineItem struct {
	Description string   `json:"Description,omitempty"`
	Quantity    *float64 `json:"Quantity,omitempty"`
	UnitPrice   *Amount  `json:"UnitPrice,omitempty"`
	Amount      *Amount  `json:"Amount,omitempty"`
}

// LineItems reconstructs semantic line items from every page's table: find
// the header row, map columns to fields, then convert each data row. Pages
// are processed in ascending order; rows keep document order.
func (t TableGrid) LineItems(rs *Ruleset) []LineItem {
	var items []LineItem
	for _, page := range t.Pages() {
		rows := t[page].Materialize()
		// Header plus at least one data row.
		if len(rows) < 2 {
			continue
		}
		headerIdx, fields, ok := rs.findHeaderRow(rows)
		if !ok {
			continue
		}
		for _, row := range rows[headerIdx+1:] {
			if item, ok := rs.lineItemFromRow(row, fields); ok {
				items = append(items, item)
			}
		}
	}
	return items
}

type headerCandidate struct {
	idx     int
	fields  []Field
	matches int
}

// findHeaderRow examines the first four rows for one with at least two
// header-matched cells; the row with the most matches wins, earliest row on
// ties. If none qualifies, the first three rows are re-scanned for loose
// keyword hints and accepted with a single match.
func (rs *Ruleset) findHeaderRow(rows [][]string) (int, []Field, bool) {
	var candidates []headerCandidate
	limit := min(4, len(rows))
	for i := 0; i < limit; i++ {
		fields, matches := rs.matchRowHeaders(rows[i])
		if matches >= 2 {
			candidates = append(candidates, headerCandidate{i, fields, matches})
		}
	}

	if len(candidates) == 0 {
		limit = min(3, len(rows))
		for i := 0; i < limit; i++ {
			joined := strings.ToLower(strings.Join(rows[i], " "))
			if !containsAny(joined, rs.headerHints) {
				continue
			}
			fields, matches := rs.matchRowHeaders(rows[i])
			if matches >= 1 {
				candidates = append(candidates, headerCandidate{i, fields, matches})
			}
		}
	}
	if len(candidates) == 0 {
		return 0, nil, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.matches > best.matches {
			best = c
		}
	}
	return best.idx, best.fields, true
}

func (rs *Ruleset) matchRowHeaders(row []string) ([]Field, int) {
	fields := make([]Field, len(row))
	matches := 0
	for i, cell := range row {
		fields[i] = rs.MatchHeader(cell)
		if fields[i] != FieldNone {
			matches++
		}
	}
	return fields, matches
}

// lineItemFromRow converts one data row using the header's per-column field
// assignment. Returns false for blank rows, summary rows, rows whose
// description carries a summary indicator, and rows without meaningful data.
func (rs *Ruleset) lineItemFromRow(row []string, fields []Field) (LineItem, bool) {
	blank := true
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			blank = false
			break
		}
	}
	if blank || rs.IsSummaryRow(row) {
		return LineItem{}, false
	}

	var item LineItem
	meaningful := false
	for i, cell := range row {
		if i >= len(fields) || fields[i] == FieldNone {
			continue
		}
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		switch fields[i] {
		case FieldDescription:
			// A description that reads like a total/subtotal label disqualifies
			// the whole row, numeric-looking cells included.
			if rs.containsSummaryIndicator(strings.ToLower(cell)) {
				return LineItem{}, false
			}
			item.Description = cell
			meaningful = true
		case FieldQuantity:
			if amt := ParseAmount(cell); amt.IsNumeric() {
				item.Quantity = amt.Value
				meaningful = true
			} else if v, err := strconv.ParseFloat(cell, 64); err == nil {
				item.Quantity = &v
				meaningful = true
			}
		case FieldUnitPrice:
			amt := ParseAmount(cell)
			item.UnitPrice = &amt
			if amt.IsNumeric() {
				meaningful = true
			}
		case FieldAmount:
			amt := ParseAmount(cell)
			item.Amount = &amt
			if amt.IsNumeric() {
				meaningful = true
			}
		}
	}
	return item, meaningful
}
