package datagrid

import (
	"go.uber.org/zap"
)

// Grid ties a Store, a Layout and one Window together and keeps the three
// bands (fixed left, main, fixed right) aligned. Every band is a projection
// of the same window and scroll state, so they cannot drift apart.
//
// A Grid is driven from a single goroutine: the presentation layer forwards
// measurements, scroll and wheel events and user commands, then reads the
// bands back to render.
type Grid struct {
	cfg    Config
	log    *zap.Logger
	store  *Store
	layout *Layout
	window *Window
	events emitter

	redraw  *throttle
	resize  *throttle
	pending *Measurements

	scrollTop  int
	scrollLeft int
	atLeft     bool
	atRight    bool
}

// Measurements are the sizes the presentation layer reports on mount and
// on every container resize. Zero header, footer or row heights keep the
// current value.
type Measurements struct {
	Width        int
	Height       int
	HeaderHeight int
	FooterHeight int
	RowHeight    int
}

// NewGrid builds a grid from cfg. Store options are applied after the ones
// derived from cfg, so they win.
func NewGrid(cfg Config, opts ...StoreOption) *Grid {
	base := []StoreOption{
		WithDefaultExpandAll(cfg.DefaultExpandAll),
		WithAggregateLabels(cfg.AggregateLabels),
		WithMinColumnWidth(cfg.MinColumnWidth),
	}
	s := NewStore(append(base, opts...)...)

	l := NewLayout(s)
	l.Fit = cfg.Fit
	l.ShowHeader = cfg.ShowHeader
	l.ShowFooter = cfg.ShowFooter
	l.HeaderHeight = cfg.HeaderHeight
	l.FooterHeight = cfg.FooterHeight
	l.GutterWidth = cfg.GutterWidth

	w := NewWindow()
	if cfg.RowHeight > 0 {
		w.RowHeight = cfg.RowHeight
	}
	w.Overscan = cfg.Overscan
	w.ExtraRows = cfg.ExtraRows
	w.Remain = cfg.ExtraRows
	w.Lazy = cfg.Lazy

	g := &Grid{
		cfg:    cfg,
		log:    s.log,
		store:  s,
		layout: l,
		window: w,
		redraw: newThrottle(cfg.Throttle.Duration),
		resize: newThrottle(cfg.Throttle.Duration),
		atLeft: true,
	}
	s.Subscribe(g.events.emit)
	return g
}

func (g *Grid) Store() *Store   { return g.store }
func (g *Grid) Layout() *Layout { return g.layout }
func (g *Grid) Window() *Window { return g.window }
func (g *Grid) Config() Config  { return g.cfg }

// Subscribe receives store notifications as well as layout, redraw and
// scroll edge events.
func (g *Grid) Subscribe(fn func(Event)) func() { return g.events.Subscribe(fn) }

// Commit forwards m to the store and brings layout, window and aggregates
// up to date with what it invalidated.
func (g *Grid) Commit(m Mutation) Dirty {
	d := g.store.Commit(m)
	g.apply(d)
	return d
}

func (g *Grid) apply(d Dirty) {
	if d == 0 {
		return
	}
	if d.Has(DirtyWindowReset) {
		g.window.ResetZone(len(g.store.Data()))
		g.scrollTop = 0
	}
	if d&(DirtyColumns|DirtyLayout) != 0 {
		g.relayout()
	}
	if d.Has(DirtyWindow) || d.Has(DirtyWindowReset) {
		g.window.UpdateZone(g.scrollTop)
	}
	if d.Has(DirtyAggregates) && g.layout.ShowFooter {
		g.store.ComputeAggregates()
	}
	g.requestRedraw()
}

// relayout recomputes widths and heights, resizes the window for the new
// viewport and keeps the scroll offsets inside the new extent.
func (g *Grid) relayout() {
	g.layout.Update()
	g.layout.UpdateHeight()
	g.layout.UpdateScrollY(g.window.Extent())
	g.window.Resize(g.viewportRows())
	g.scrollTop = min(g.scrollTop, g.maxScrollTop())
	g.scrollLeft = min(g.scrollLeft, g.maxScrollLeft())
	g.window.UpdateZone(g.scrollTop)

	if ce := g.log.Check(zap.DebugLevel, "layout"); ce != nil {
		ce.Write(
			zap.Int("bodyWidth", g.layout.BodyWidth),
			zap.Int("fixedWidth", g.layout.FixedWidth),
			zap.Int("rightFixedWidth", g.layout.RightFixedWidth),
			zap.Bool("scrollX", g.layout.ScrollX),
			zap.Bool("scrollY", g.layout.ScrollY),
			zap.Int("keeps", g.window.Keeps),
		)
	}
	g.events.emit(Event{Kind: EventLayoutChanged, Value: g.layout})
}

// viewportRows is the pixel height the rows are scrolled within.
func (g *Grid) viewportRows() int {
	if h := g.layout.ScrollableHeight(); h > 0 {
		return h
	}
	return g.layout.ViewportHeight
}

func (g *Grid) maxScrollTop() int {
	h := g.viewportRows()
	if h <= 0 {
		return max(0, g.window.Extent())
	}
	return max(0, g.window.Extent()-h)
}

func (g *Grid) maxScrollLeft() int {
	client := g.layout.ContainerWidth
	if g.layout.ScrollY {
		client -= g.layout.GutterWidth
	}
	return max(0, g.layout.BodyWidth-client)
}

// Measure records fresh container measurements and runs a full layout.
func (g *Grid) Measure(m Measurements) {
	g.layout.ContainerWidth = m.Width
	g.layout.ContainerHeight = m.Height
	if m.HeaderHeight > 0 {
		g.layout.HeaderHeight = m.HeaderHeight
	}
	if m.FooterHeight > 0 {
		g.layout.FooterHeight = m.FooterHeight
	}
	if m.RowHeight > 0 {
		g.window.RowHeight = m.RowHeight
	}
	g.DoLayout()
}

// Resize is the throttled resize entry point. A resize that is held back is
// applied by Flush or by the next resize that gets through.
func (g *Grid) Resize(width, height int) {
	m := Measurements{Width: width, Height: height}
	if !g.resize.allow() {
		g.pending = &m
		return
	}
	g.pending = nil
	g.Measure(m)
}

// DoLayout forces a full relayout: partitions, widths, heights, window and
// aggregates.
func (g *Grid) DoLayout() {
	g.store.Commit(UpdateColumns{})
	g.relayout()
	if g.layout.ShowFooter {
		g.store.ComputeAggregates()
	}
	g.requestRedraw()
}

// SetHeight declares the table height (see Layout.SetHeight) and relayouts.
func (g *Grid) SetHeight(v any) error {
	if err := g.layout.SetHeight(v); err != nil {
		return err
	}
	g.DoLayout()
	return nil
}

// Scroll moves the main band to (top, left), clamped to the scroll extent.
// The window follows the vertical offset and the fixed bands mirror it; the
// header and footer of the main band mirror the horizontal offset. Edge
// events fire when the offset arrives at an edge.
func (g *Grid) Scroll(top, left int) {
	top = min(max(0, top), g.maxScrollTop())
	maxLeft := g.maxScrollLeft()
	left = min(max(0, left), maxLeft)
	g.scrollTop, g.scrollLeft = top, left

	edges := g.window.UpdateZone(top)
	if edges.AtTop {
		g.events.emit(Event{Kind: EventReachedTop, Value: top})
	}
	if edges.AtBottom {
		g.events.emit(Event{Kind: EventReachedBottom, Value: top})
	}

	atLeft, atRight := left == 0, left == maxLeft && maxLeft > 0
	if atLeft && !g.atLeft {
		g.events.emit(Event{Kind: EventReachedLeft, Value: left})
	}
	if atRight && !g.atRight {
		g.events.emit(Event{Kind: EventReachedRight, Value: left})
	}
	g.atLeft, g.atRight = atLeft, atRight
	g.requestRedraw()
}

const (
	wheelRows  = 3
	wheelPixel = 80
)

// Wheel scrolls by wheel notches: deltaY notches of three rows, positive
// down, and deltaX notches of 80px, positive right. Each axis only moves
// when that scrollbar is present.
func (g *Grid) Wheel(deltaY, deltaX int) {
	top, left := g.scrollTop, g.scrollLeft
	if deltaY != 0 && g.canScrollY() {
		top += deltaY * wheelRows * g.window.RowHeight
	}
	if deltaX != 0 && g.layout.ScrollX {
		left += deltaX * wheelPixel
	}
	if top == g.scrollTop && left == g.scrollLeft {
		return
	}
	g.Scroll(top, left)
}

func (g *Grid) canScrollY() bool {
	return g.layout.ScrollY || (g.layout.Height == nil && g.maxScrollTop() > 0)
}

func (g *Grid) ScrollTop() int  { return g.scrollTop }
func (g *Grid) ScrollLeft() int { return g.scrollLeft }

// requestRedraw emits EventRedraw at most once per throttle interval.
func (g *Grid) requestRedraw() {
	if g.redraw.allow() {
		g.events.emit(Event{Kind: EventRedraw})
	}
}

// Flush delivers a held back resize and redraw.
func (g *Grid) Flush() {
	if g.resize.flush() && g.pending != nil {
		m := *g.pending
		g.pending = nil
		g.Measure(m)
	}
	if g.redraw.flush() {
		g.events.emit(Event{Kind: EventRedraw})
	}
}

// ----------------------------------------------------------------------------
// imperative commands
// ----------------------------------------------------------------------------

// SetData replaces the rows. Passing the same pointer again keeps the
// selection of the rows that survive.
func (g *Grid) SetData(rows *[]Row) { g.Commit(SetData{Data: rows}) }

func (g *Grid) SetCurrentRow(row Row) { g.Commit(SetCurrentRow{Row: row}) }

func (g *Grid) SetHoverRow(row Row) { g.Commit(SetHoverRow{Row: row}) }

// ToggleRowSelection toggles row, or sets it when selected is given.
func (g *Grid) ToggleRowSelection(row Row, selected ...bool) {
	m := ToggleRowSelection{Row: row}
	if len(selected) > 0 {
		m.Selected = &selected[0]
	}
	g.Commit(m)
}

func (g *Grid) ClearSelection()     { g.Commit(ClearSelection{}) }
func (g *Grid) ToggleAllSelection() { g.Commit(ToggleAllSelection{}) }

// ToggleRowExpanded toggles row's detail panel, or sets it when expanded is
// given.
func (g *Grid) ToggleRowExpanded(row Row, expanded ...bool) {
	m := ToggleRowExpanded{Row: row}
	if len(expanded) > 0 {
		m.Expanded = &expanded[0]
	}
	g.Commit(m)
}

// SortBy makes the column bound to prop the only sort key. OrderNone
// clears sorting. It reports false when no column has that property.
func (g *Grid) SortBy(prop string, order Order) bool {
	col := g.columnByProperty(prop)
	if col == nil {
		return false
	}
	g.Commit(SetSortingColumns{Keys: []SortKey{{Column: col, Order: order}}})
	return true
}

// RegisterColumn normalizes decl into a column, inserts it and relayouts.
func (g *Grid) RegisterColumn(decl ColumnDecl, opts ...RegisterOption) *Column {
	m := g.store.NewInsert(decl, opts...)
	g.Commit(m)
	return m.Column
}

// UnregisterColumn removes col. Dropping a filtered column rederives the
// data, so the window is reset along with the layout.
func (g *Grid) UnregisterColumn(col *Column) {
	g.Commit(RemoveColumn{Column: col})
}

// FilterBy sets the accepted values of col's filter; no values clears it.
func (g *Grid) FilterBy(col *Column, values ...any) {
	g.Commit(FilterChange{Column: col, Values: values})
}

// Mount applies declared filter values silently and the configured default
// sort, then lays out. It is called once the presentation layer has
// registered its columns.
func (g *Grid) Mount() {
	for _, c := range g.allColumns() {
		if len(c.FilteredValue) > 0 {
			g.Commit(FilterChange{Column: c, Values: c.FilteredValue, Silent: true})
		}
	}
	var keys []SortKey
	for _, s := range g.cfg.DefaultSort {
		col := g.columnByProperty(s.Prop)
		order, ok := ParseOrder(s.Order)
		if col == nil || !ok || order == OrderNone {
			g.log.Debug("default sort ignored", zap.String("prop", s.Prop), zap.String("order", s.Order))
			continue
		}
		keys = append(keys, SortKey{Column: col, Order: order})
	}
	if len(keys) > 0 {
		g.Commit(SetSortingColumns{Keys: keys})
	}
	g.DoLayout()
}

func (g *Grid) allColumns() []*Column {
	var out []*Column
	var walk func(cols []*Column)
	walk = func(cols []*Column) {
		for _, c := range cols {
			out = append(out, c)
			walk(c.Children)
		}
	}
	walk(g.store.AllColumns())
	return out
}

func (g *Grid) columnByProperty(prop string) *Column {
	for _, c := range g.allColumns() {
		if c.Property == prop && c.IsLeaf() {
			return c
		}
	}
	return nil
}

// CurrentRowIndex is the current row's index within the materialized rows,
// or -1 when there is none or it is outside the window.
func (g *Grid) CurrentRowIndex() int { return g.windowIndex(g.store.CurrentRow()) }

// HoverRowIndex is CurrentRowIndex for the hover row.
func (g *Grid) HoverRowIndex() int { return g.windowIndex(g.store.HoverRow()) }

func (g *Grid) windowIndex(row Row) int {
	if row == nil {
		return -1
	}
	i := g.store.RowIndex(row)
	if i < 0 || !g.window.Contains(i) {
		return -1
	}
	return i - g.window.Start
}

// ----------------------------------------------------------------------------
// bands
// ----------------------------------------------------------------------------

// BandKind names one of the three bands.
type BandKind uint8

const (
	BandMain BandKind = iota
	BandFixedLeft
	BandFixedRight
)

func (k BandKind) String() string {
	switch k {
	case BandFixedLeft:
		return "fixed-left"
	case BandFixedRight:
		return "fixed-right"
	}
	return "main"
}

// Band is a read-only snapshot of one band. Every band lists all render
// columns, so cell indices line up across bands; CellHidden tells which
// cells belong to another band.
type Band struct {
	Kind    BandKind
	Visible bool

	Columns    []*Column
	leftCount  int
	rightCount int

	Width      int
	BodyHeight int

	Rows         []Row
	Start        int
	End          int
	MarginTop    int
	MarginBottom int

	ScrollTop  int
	ScrollLeft int
}

// CellHidden reports whether the cell of column index i is rendered by
// another band and must be hidden in this one.
func (b Band) CellHidden(i int) bool {
	switch b.Kind {
	case BandFixedLeft:
		return i >= b.leftCount
	case BandFixedRight:
		return i < len(b.Columns)-b.rightCount
	}
	return i < b.leftCount || i >= len(b.Columns)-b.rightCount
}

// Own returns the columns this band renders.
func (b Band) Own() []*Column {
	var out []*Column
	for i, c := range b.Columns {
		if !b.CellHidden(i) {
			out = append(out, c)
		}
	}
	return out
}

func (g *Grid) band(kind BandKind) Band {
	b := Band{
		Kind:         kind,
		Columns:      g.store.Columns(),
		leftCount:    len(g.store.FixedColumns()),
		rightCount:   len(g.store.RightFixedColumns()),
		Rows:         g.window.Slice(g.store.Data()),
		Start:        g.window.Start,
		End:          g.window.End,
		MarginTop:    g.window.MarginTop(),
		MarginBottom: g.window.MarginBottom(),
		ScrollTop:    g.scrollTop,
	}
	switch kind {
	case BandFixedLeft:
		b.Visible = b.leftCount > 0
		b.Width = g.layout.FixedWidth
		b.BodyHeight = g.layout.FixedBodyHeight
	case BandFixedRight:
		b.Visible = b.rightCount > 0
		b.Width = g.layout.RightFixedWidth
		b.BodyHeight = g.layout.FixedBodyHeight
	default:
		b.Visible = true
		b.Width = g.layout.BodyWidth
		b.BodyHeight = g.layout.BodyHeight
		b.ScrollLeft = g.scrollLeft
	}
	return b
}

func (g *Grid) Main() Band       { return g.band(BandMain) }
func (g *Grid) FixedLeft() Band  { return g.band(BandFixedLeft) }
func (g *Grid) FixedRight() Band { return g.band(BandFixedRight) }
