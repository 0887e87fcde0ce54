package datagrid

// WindowMode is the state of a Window.
type WindowMode uint8

const (
	// WindowDisabled materializes every row with no spacers.
	WindowDisabled WindowMode = iota
	// WindowWindowed materializes Keeps rows between two spacers.
	WindowWindowed
)

func (m WindowMode) String() string {
	if m == WindowWindowed {
		return "windowed"
	}
	return "disabled"
}

const (
	DefaultRowHeight = 40
	DefaultOverscan  = 6
	DefaultExtraRows = 11
)

// ZoneEdges reports edges the window moved onto during one UpdateZone.
// Each flag is set once per arrival, not on every offset at the edge.
type ZoneEdges struct {
	AtTop    bool
	AtBottom bool
}

// Window is the row virtualizer. It turns a pixel scroll offset into the
// contiguous range [Start, End) of derived rows to materialize and the two
// spacer heights around them, such that
//
//	MarginTop() + (End-Start)*RowHeight + MarginBottom() == Total*RowHeight
//
// for every offset. One Window drives all three bands of a grid.
type Window struct {
	Start int
	End   int
	Total int

	Keeps  int // rows materialized while windowed
	Remain int // rows the viewport wants: viewport/RowHeight + ExtraRows

	RowHeight int
	Overscan  int
	ExtraRows int

	// Lazy enables windowing; when false every row is materialized.
	Lazy bool

	viewport int
	offset   int
	atTop    bool
	atBottom bool
}

// NewWindow returns a lazy window with the default row height, overscan and
// extra rows.
func NewWindow() *Window {
	return &Window{
		RowHeight: DefaultRowHeight,
		Overscan:  DefaultOverscan,
		ExtraRows: DefaultExtraRows,
		Remain:    DefaultExtraRows,
		Lazy:      true,
		atTop:     true,
	}
}

// Mode reports whether the window is slicing rows.
func (w *Window) Mode() WindowMode {
	if !w.Lazy || w.Total <= w.Keeps {
		return WindowDisabled
	}
	return WindowWindowed
}

// Resize recomputes Remain for a new viewport height and re-zones at the
// current offset. A non-positive RowHeight leaves the window untouched.
func (w *Window) Resize(viewportHeight int) *Window {
	if w.RowHeight <= 0 {
		return w
	}
	w.viewport = max(0, viewportHeight)
	w.Remain = w.viewport/w.RowHeight + w.ExtraRows
	w.Keeps = min(w.Total, w.Remain)
	w.UpdateZone(w.offset)
	return w
}

// SetRowHeight changes the measured row height and re-derives Remain.
func (w *Window) SetRowHeight(px int) *Window {
	if px <= 0 || px == w.RowHeight {
		return w
	}
	w.RowHeight = px
	return w.Resize(w.viewport)
}

// SetKeeps sizes the window explicitly, bypassing the viewport measurement.
func (w *Window) SetKeeps(n int) *Window {
	w.Remain = max(0, n)
	w.Keeps = min(w.Total, w.Remain)
	w.UpdateZone(w.offset)
	return w
}

// ResetZone restarts the window at row 0 for a derived dataset of total
// rows. It is called whenever the derived length changes.
func (w *Window) ResetZone(total int) *Window {
	w.Total = max(0, total)
	w.Start = 0
	if w.Total <= w.Remain {
		w.Keeps = w.Total
		w.End = w.Total
	} else {
		w.Keeps = w.Remain
		w.End = w.Remain
	}
	if w.Mode() == WindowDisabled {
		w.End = w.Total
	}
	w.offset = 0
	w.atTop, w.atBottom = true, false
	return w
}

// UpdateZone moves the window to a pixel scroll offset.
func (w *Window) UpdateZone(offset int) ZoneEdges {
	w.offset = max(0, offset)
	if w.Mode() == WindowDisabled {
		w.Start, w.End = 0, w.Total
	} else {
		overs := 0
		if w.RowHeight > 0 {
			overs = max(0, w.offset/w.RowHeight-w.Overscan)
		}
		w.Start, w.End = overs, overs+w.Keeps
		if w.End >= w.Total {
			w.End = w.Total
			w.Start = w.Total - w.Keeps
		}
	}
	return w.edges()
}

func (w *Window) edges() ZoneEdges {
	top := w.offset == 0
	var bottom bool
	if w.Mode() == WindowWindowed {
		bottom = w.End == w.Total
	} else {
		bottom = w.Total > 0 && w.offset+w.viewport >= w.Total*w.RowHeight
	}
	e := ZoneEdges{AtTop: top && !w.atTop, AtBottom: bottom && !w.atBottom}
	w.atTop, w.atBottom = top, bottom
	return e
}

// Offset is the pixel offset of the last UpdateZone.
func (w *Window) Offset() int { return w.offset }

// Len is the number of materialized rows.
func (w *Window) Len() int { return w.End - w.Start }

func (w *Window) MarginTop() int {
	if w.Mode() == WindowDisabled {
		return 0
	}
	return max(0, w.RowHeight*w.Start)
}

func (w *Window) MarginBottom() int {
	if w.Mode() == WindowDisabled {
		return 0
	}
	return max(0, w.RowHeight*(w.Total-w.Keeps-w.Start))
}

// Extent is the full scrollable height of the rows.
func (w *Window) Extent() int { return w.Total * w.RowHeight }

// Contains reports whether the derived row at index is materialized.
func (w *Window) Contains(index int) bool { return index >= w.Start && index < w.End }

// Slice returns the materialized part of rows, which must be the derived
// data the window was zoned for.
func (w *Window) Slice(rows []Row) []Row {
	start, end := min(w.Start, len(rows)), min(w.End, len(rows))
	return rows[start:end]
}
