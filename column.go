package datagrid

import (
	"math"
	"strings"
	"sync/atomic"

	"github.com/mattn/go-runewidth"
)

// ColumnID identifies a column. IDs are unique across every store in the
// process and increase monotonically in registration order.
type ColumnID uint64

var columnIDSeed atomic.Uint64

func nextColumnID() ColumnID { return ColumnID(columnIDSeed.Add(1)) }

// ColumnType selects the built-in behaviour of a column.
type ColumnType uint8

const (
	ColumnDefault ColumnType = iota
	ColumnSelection
	ColumnIndex
	ColumnExpand
)

// Fixed pins a column to one edge of the grid.
type Fixed uint8

const (
	FixedNone Fixed = iota
	FixedLeft
	FixedRight
)

func (f Fixed) String() string {
	switch f {
	case FixedLeft:
		return "left"
	case FixedRight:
		return "right"
	}
	return "none"
}

// Order is a column's sort direction.
type Order uint8

const (
	OrderNone Order = iota
	Ascending
	Descending
)

func (o Order) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	}
	return "none"
}

// ParseOrder accepts "ascending"/"asc", "descending"/"desc" and ""/"none".
func ParseOrder(s string) (Order, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ascending", "asc":
		return Ascending, true
	case "descending", "desc":
		return Descending, true
	case "", "none":
		return OrderNone, true
	}
	return OrderNone, false
}

// next cycles none → ascending → descending → none, the header click order.
func (o Order) next() Order {
	switch o {
	case OrderNone:
		return Ascending
	case Ascending:
		return Descending
	}
	return OrderNone
}

// FilterOption is one choice offered by a column's filter panel.
type FilterOption struct {
	Text  string
	Value any
}

// ColumnDecl is a column declaration as supplied by the application.
// Width and MinWidth accept ints, floats or numeric strings ("120", "120px").
type ColumnDecl struct {
	Type     ColumnType
	Property string
	Label    string
	Width    any
	MinWidth any

	Fixed      Fixed
	FixedIndex int
	Hidden     bool

	Sortable   bool
	SortMethod func(a, b any) int

	FilterMethod  func(value any, row Row) bool
	Filters       []FilterOption
	SingleFilter  bool
	FilteredValue []any

	Aggregate      AggregateKind
	AggregateLabel *string

	DisableResize bool
	Selectable    func(row Row, index int) bool
	Formatter     func(row Row, col *Column, value any) string
}

// Column is the canonical column record. Application code reads it; only
// the store writes it.
type Column struct {
	ID       ColumnID
	Type     ColumnType
	Property string
	Label    string

	Width     int // 0 = flex
	MinWidth  int
	RealWidth int

	Fixed      Fixed
	FixedIndex int
	Visible    bool

	Sortable   bool
	SortMethod func(a, b any) int
	Order      Order

	Filterable     bool
	FilterMethod   func(value any, row Row) bool
	Filters        []FilterOption
	FilterMultiple bool
	FilteredValue  []any

	Aggregate      AggregateKind
	AggregateLabel *string

	Resizable  bool
	Selectable func(row Row, index int) bool
	Formatter  func(row Row, col *Column, value any) string

	Parent   *Column
	Children []*Column
}

const (
	builtinColumnWidth = 53
	defaultMinWidth    = 80
)

// NewColumn normalizes a declaration into a Column with a fresh ID, using
// the default 80px minimum width.
func NewColumn(decl ColumnDecl) *Column {
	c, _ := newColumn(decl, defaultMinWidth)
	return c
}

// newColumn reports malformed=true when a width or minWidth could not be
// parsed and a fallback was substituted.
func newColumn(decl ColumnDecl, minDefault int) (*Column, bool) {
	c := &Column{
		ID:             nextColumnID(),
		Type:           decl.Type,
		Property:       decl.Property,
		Label:          decl.Label,
		Fixed:          decl.Fixed,
		FixedIndex:     -1,
		Visible:        !decl.Hidden,
		Sortable:       decl.Sortable,
		SortMethod:     decl.SortMethod,
		FilterMethod:   decl.FilterMethod,
		Filters:        decl.Filters,
		Filterable:     len(decl.Filters) > 0 || decl.FilterMethod != nil,
		FilterMultiple: !decl.SingleFilter,
		FilteredValue:  append([]any(nil), decl.FilteredValue...),
		Aggregate:      decl.Aggregate,
		AggregateLabel: decl.AggregateLabel,
		Resizable:      !decl.DisableResize,
		Selectable:     decl.Selectable,
		Formatter:      decl.Formatter,
	}
	if decl.Fixed != FixedNone {
		c.FixedIndex = decl.FixedIndex
	}

	width, minWidth, malformed := resolveWidths(decl.Width, decl.MinWidth, minDefault)
	c.Width, c.MinWidth = width, minWidth

	switch decl.Type {
	case ColumnSelection:
		c.Property = "selectionColumn"
		c.Sortable, c.Resizable = false, false
	case ColumnIndex:
		c.Property = "indexColumn"
		c.Sortable = false
		if c.Label == "" {
			c.Label = "#"
		}
	case ColumnExpand:
		c.Property = "expandColumn"
		c.Sortable, c.Resizable = false, false
	}
	if decl.Type != ColumnDefault {
		// built-in columns are 53 wide unless the declaration says otherwise
		if decl.Width == nil || c.Width == 0 {
			c.Width = builtinColumnWidth
		}
		if decl.MinWidth == nil || c.MinWidth > c.Width {
			c.MinWidth = c.Width
		}
	}

	c.RealWidth = max(c.Width, c.MinWidth)
	return c, malformed
}

// resolveWidths parses declared widths. An unparsable width makes the column
// flex; an unparsable or missing minWidth becomes minDefault. minWidth never
// exceeds an explicit width.
func resolveWidths(w, minW any, minDefault int) (width, minWidth int, malformed bool) {
	if w != nil {
		if n, ok := parseWidth(w); ok {
			width = n
		} else {
			malformed = true
		}
	}
	minWidth = minDefault
	if minW != nil {
		if n, ok := parseWidth(minW); ok {
			minWidth = n
		} else {
			malformed = true
		}
	}
	if width > 0 && minWidth > width {
		minWidth = width
	}
	return width, minWidth, malformed
}

// parseWidth reads a positive pixel count. Strings are parsed up to the
// first non-digit, so "120px" is 120.
func parseWidth(v any) (int, bool) {
	if f, ok := toFloat64(v); ok {
		if math.IsNaN(f) || f < 1 {
			return 0, false
		}
		return int(f), true
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		n = n*10 + int(s[digits]-'0')
		digits++
	}
	if digits == 0 || n < 1 {
		return 0, false
	}
	return n, true
}

// CellValue returns the display value of the column for row, applying the
// column's Formatter when one is set.
func (c *Column) CellValue(row Row) any {
	v, _ := Value(row, c.Property)
	if c.Formatter != nil {
		return c.Formatter(row, c, v)
	}
	return v
}

// LabelWidth is the display width of the label in terminal cells.
func (c *Column) LabelWidth() int {
	return runewidth.StringWidth(c.Label)
}

// IsLeaf reports whether the column renders cells (it has no children).
func (c *Column) IsLeaf() bool { return len(c.Children) == 0 }

// Leaves flattens column groups into their visible leaf columns, preserving
// declaration order.
func Leaves(columns []*Column) []*Column {
	var out []*Column
	var walk func(cs []*Column)
	walk = func(cs []*Column) {
		for _, c := range cs {
			if !c.Visible {
				continue
			}
			if c.IsLeaf() {
				out = append(out, c)
				continue
			}
			walk(c.Children)
		}
	}
	walk(columns)
	return out
}

// HeaderCell is one cell of a grouped header.
type HeaderCell struct {
	Column  *Column
	Level   int
	ColSpan int
	RowSpan int
}

// HeaderRows lays grouped columns out as header rows. Group cells span their
// leaves horizontally, leaf cells span down to the last header row.
func HeaderRows(columns []*Column) [][]HeaderCell {
	depth := 0
	var measure func(c *Column, level int) int
	measure = func(c *Column, level int) int {
		if level > depth {
			depth = level
		}
		if c.IsLeaf() {
			return 1
		}
		span := 0
		for _, child := range c.Children {
			if child.Visible {
				span += measure(child, level+1)
			}
		}
		return span
	}
	spans := make(map[ColumnID]int)
	var collect func(cs []*Column, level int)
	collect = func(cs []*Column, level int) {
		for _, c := range cs {
			if !c.Visible {
				continue
			}
			spans[c.ID] = measure(c, level)
			collect(c.Children, level+1)
		}
	}
	collect(columns, 1)

	rows := make([][]HeaderCell, depth)
	var place func(cs []*Column, level int)
	place = func(cs []*Column, level int) {
		for _, c := range cs {
			if !c.Visible {
				continue
			}
			cell := HeaderCell{Column: c, Level: level, ColSpan: spans[c.ID], RowSpan: 1}
			if c.IsLeaf() {
				cell.RowSpan = depth - level + 1
			}
			rows[level-1] = append(rows[level-1], cell)
			place(c.Children, level+1)
		}
	}
	place(columns, 1)
	return rows
}
