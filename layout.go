package datagrid

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	DefaultHeaderHeight = 44
	DefaultGutterWidth  = 17
)

// Layout computes column widths and band heights from a store's columns and
// the measured container. It never reads the DOM or terminal itself; the
// owner feeds it measurements and calls Update and UpdateHeight.
type Layout struct {
	store *Store

	Fit         bool
	ShowHeader  bool
	ShowFooter  bool
	GutterWidth int

	// measured
	ContainerWidth  int
	ContainerHeight int
	HeaderHeight    int
	FooterHeight    int

	// Height is the declared table height; nil means auto height.
	Height *float64

	// derived
	ScrollX         bool
	ScrollY         bool
	BodyWidth       int
	FixedWidth      int
	RightFixedWidth int
	ViewportHeight  int
	BodyHeight      int
	FixedBodyHeight int
}

// NewLayout returns a fitting layout with a visible header.
func NewLayout(s *Store) *Layout {
	return &Layout{
		store:        s,
		Fit:          true,
		ShowHeader:   true,
		GutterWidth:  DefaultGutterWidth,
		HeaderHeight: DefaultHeaderHeight,
	}
}

// Update distributes widths. Columns with an explicit width keep it; flex
// columns start at their minimum. When Fit is set and the minimum widths
// plus the scrollbar gutter fit in the container, the slack is shared out
// in proportion to each flex column's minimum width, floored, and the first
// flex column takes the rounding remainder so the columns exactly fill the
// body. Otherwise the body scrolls horizontally. Update is idempotent.
func (l *Layout) Update() {
	columns := l.store.Columns()
	bodyWidth := l.ContainerWidth

	var flex []*Column
	bodyMin, flexMin := 0, 0
	for _, c := range columns {
		if c.Width == 0 {
			flex = append(flex, c)
			flexMin += c.MinWidth
			bodyMin += c.MinWidth
		} else {
			bodyMin += c.Width
		}
	}

	l.ScrollX = bodyMin > bodyWidth
	l.BodyWidth = bodyMin
	for _, c := range flex {
		c.RealWidth = c.MinWidth
	}

	if len(flex) > 0 && l.Fit {
		if bodyMin <= bodyWidth-l.GutterWidth {
			l.ScrollX = false
			totalFlex := bodyWidth - l.GutterWidth - bodyMin
			perPixel := 0.0
			if flexMin > 0 {
				perPixel = float64(totalFlex) / float64(flexMin)
			}
			others := 0
			for _, c := range flex[1:] {
				extra := int(math.Floor(float64(c.MinWidth) * perPixel))
				others += extra
				c.RealWidth = c.MinWidth + extra
			}
			flex[0].RealWidth = flex[0].MinWidth + totalFlex - others
		} else {
			l.ScrollX = true
		}
		l.BodyWidth = max(bodyMin, bodyWidth)
	}

	l.FixedWidth = sumRealWidth(l.store.FixedColumns())
	l.RightFixedWidth = sumRealWidth(l.store.RightFixedColumns())
}

func sumRealWidth(cols []*Column) int {
	w := 0
	for _, c := range cols {
		w += c.RealWidth
	}
	return w
}

// SetHeight declares the table height. Numbers and numeric strings set it,
// nil or "" clear it back to auto height; anything else is ErrInvalidHeight
// and leaves the height unchanged.
func (l *Layout) SetHeight(v any) error {
	h, auto, err := parseHeight(v)
	if err != nil {
		return err
	}
	if auto {
		l.Height = nil
	} else {
		l.Height = &h
	}
	l.UpdateHeight()
	return nil
}

func parseHeight(v any) (h float64, auto bool, err error) {
	switch v := v.(type) {
	case nil:
		return 0, true, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, true, nil
		}
		f, perr := strconv.ParseFloat(s, 64)
		if perr != nil {
			return 0, false, errors.Wrapf(ErrInvalidHeight, "%q", v)
		}
		h = f
	default:
		f, ok := toFloat64(v)
		if !ok {
			return 0, false, errors.Wrapf(ErrInvalidHeight, "%T", v)
		}
		h = f
	}
	if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
		return 0, false, errors.Wrapf(ErrInvalidHeight, "%v", v)
	}
	return h, false, nil
}

// UpdateHeight derives the body, fixed body and viewport heights from the
// declared height, or the measured container height in auto mode. The header is deducted only when shown, the footer only
// when shown; under horizontal scroll the gutter is taken from the fixed
// bodies and, unless a footer is shown, from the viewport.
func (l *Layout) UpdateHeight() {
	height := l.ContainerHeight
	if l.Height != nil {
		// a declared height sizes the container
		height = int(*l.Height)
	}
	body := height
	if l.ShowHeader {
		body -= l.HeaderHeight
	}
	if l.ShowFooter {
		body -= l.FooterHeight
	}
	if l.Height != nil {
		l.BodyHeight = body
	} else {
		l.BodyHeight = 0
	}
	l.FixedBodyHeight = body
	if l.ScrollX {
		l.FixedBodyHeight -= l.GutterWidth
	}

	l.ViewportHeight = height
	if l.ScrollX && !l.ShowFooter {
		l.ViewportHeight -= l.GutterWidth
	}
}

// UpdateScrollY sets the vertical scrollbar flag for rows that are
// contentHeight tall. Without a declared height the table grows with its
// content and never scrolls vertically.
func (l *Layout) UpdateScrollY(contentHeight int) {
	if l.Height == nil {
		l.ScrollY = false
		return
	}
	l.ScrollY = contentHeight > l.BodyHeight
}

// BodyContentWidth is the row width inside the body, which loses the gutter
// to the vertical scrollbar.
func (l *Layout) BodyContentWidth() int {
	if l.ScrollY {
		return max(0, l.BodyWidth-l.GutterWidth)
	}
	return l.BodyWidth
}

// ScrollableHeight is the height the rows scroll within: the declared body
// height, or the viewport without a declared height.
func (l *Layout) ScrollableHeight() int {
	if l.Height != nil {
		return l.BodyHeight
	}
	return l.FixedBodyHeight
}
