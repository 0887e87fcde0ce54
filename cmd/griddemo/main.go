// griddemo: a terminal data grid with fixed bands, virtual scrolling,
// selection, sorting, fuzzy filtering and a footer aggregate.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"
	"golang.org/x/term"
	_ "modernc.org/sqlite"

	"github.com/kungfusheep/datagrid"
)

type order struct {
	ID       int     `grid:"id"`
	Customer string  `grid:"customer"`
	City     string  `grid:"city"`
	Dept     string  `grid:"dept"`
	Status   string  `grid:"status"`
	Amount   float64 `grid:"amount"`
}

var (
	customers = []string{"Acme", "Globex", "Initech", "Umbrella", "Hooli", "Stark", "Wayne", "Tyrell", "Cyberdyne", "Soylent"}
	cities    = []string{"London", "Paris", "Tokyo", "Sydney", "Berlin", "Toronto", "Lisbon", "Oslo"}
	depts     = []string{"Sales", "Support", "R&D", "Ops"}
	statuses  = []string{"open", "paid", "shipped", "void"}
)

func generate(n int) []datagrid.Row {
	rows := make([]datagrid.Row, n)
	for i := range rows {
		rows[i] = &order{
			ID:       i + 1,
			Customer: customers[rand.IntN(len(customers))],
			City:     cities[rand.IntN(len(cities))],
			Dept:     depts[rand.IntN(len(depts))],
			Status:   statuses[rand.IntN(len(statuses))],
			Amount:   float64(rand.IntN(1_000_000)) / 100,
		}
	}
	return rows
}

// load runs query against a SQLite database and returns one map per row.
func load(path, query string) ([]datagrid.Row, []string, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	res, err := db.Query(query)
	if err != nil {
		return nil, nil, err
	}
	defer res.Close()

	cols, err := res.Columns()
	if err != nil {
		return nil, nil, err
	}
	var rows []datagrid.Row
	for res.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				vals[i] = string(b)
			}
			row[c] = vals[i]
		}
		rows = append(rows, row)
	}
	return rows, cols, res.Err()
}

// demoConfig sizes everything in terminal cells: one line per row and no
// scrollbar gutter.
func demoConfig() datagrid.Config {
	cfg := datagrid.DefaultConfig()
	cfg.ShowFooter = true
	cfg.HeaderHeight = 1
	cfg.FooterHeight = 1
	cfg.RowHeight = 1
	cfg.GutterWidth = 0
	cfg.MinColumnWidth = 10
	cfg.HighlightCurrentRow = true
	return cfg
}

type flushMsg struct{}

type model struct {
	grid   *datagrid.Grid
	rows   []datagrid.Row
	search *datagrid.Column
	focus  int // index into sortable columns

	width, height int
	filtering     bool
	query         string
	status        string

	header, footer, current, selected, faint lipgloss.Style
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) flushLater() tea.Cmd {
	d := m.grid.Config().Throttle.Duration
	if d <= 0 {
		d = 16 * time.Millisecond
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return flushMsg{} })
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.grid.Resize(m.width, m.bodyHeight())
		return m, m.flushLater()

	case flushMsg:
		m.grid.Flush()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m, m.updateFilter(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down":
			m.moveCurrent(1)
		case "k", "up":
			m.moveCurrent(-1)
		case "pgdown", "ctrl+f":
			m.moveCurrent(m.pageRows())
		case "pgup", "ctrl+b":
			m.moveCurrent(-m.pageRows())
		case "h", "left":
			m.grid.Scroll(m.grid.ScrollTop(), m.grid.ScrollLeft()-8)
		case "l", "right":
			m.grid.Scroll(m.grid.ScrollTop(), m.grid.ScrollLeft()+8)
		case " ":
			if row := m.grid.Store().CurrentRow(); row != nil {
				m.grid.ToggleRowSelection(row)
			}
		case "a":
			m.grid.ToggleAllSelection()
		case "e":
			if row := m.grid.Store().CurrentRow(); row != nil {
				m.grid.ToggleRowExpanded(row)
			}
		case "tab":
			if n := len(m.sortable()); n > 0 {
				m.focus = (m.focus + 1) % n
			}
		case "s":
			if cols := m.sortable(); len(cols) > 0 {
				m.grid.Commit(datagrid.ToggleSort{Column: cols[m.focus%len(cols)]})
			}
		case "/":
			m.filtering = true
		case "esc":
			m.grid.ClearSelection()
		}
	case tea.MouseMsg:
		switch msg.Button {
		case tea.MouseButtonWheelDown:
			m.grid.Wheel(1, 0)
		case tea.MouseButtonWheelUp:
			m.grid.Wheel(-1, 0)
		case tea.MouseButtonWheelRight:
			m.grid.Scroll(m.grid.ScrollTop(), m.grid.ScrollLeft()+8)
		case tea.MouseButtonWheelLeft:
			m.grid.Scroll(m.grid.ScrollTop(), m.grid.ScrollLeft()-8)
		}
	}
	return m, nil
}

func (m *model) updateFilter(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.filtering = false
		return nil
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.query = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.query += " "
	case tea.KeyRunes:
		m.query += string(msg.Runes)
	default:
		return nil
	}
	if m.search == nil {
		return nil
	}
	if strings.TrimSpace(m.query) == "" {
		m.grid.FilterBy(m.search)
	} else {
		m.grid.FilterBy(m.search, m.query)
	}
	return nil
}

func (m *model) sortable() []*datagrid.Column {
	var out []*datagrid.Column
	for _, c := range m.grid.Store().Columns() {
		if c.Sortable {
			out = append(out, c)
		}
	}
	return out
}

// bodyHeight is the grid's share of the terminal: one title line and one
// status line are ours.
func (m *model) bodyHeight() int { return max(0, m.height-2) }

func (m *model) pageRows() int {
	rh := max(1, m.grid.Window().RowHeight)
	return max(1, m.grid.Layout().ScrollableHeight()/rh)
}

// moveCurrent moves the current row by delta and scrolls it into view.
func (m *model) moveCurrent(delta int) {
	s := m.grid.Store()
	data := s.Data()
	if len(data) == 0 {
		return
	}
	i := s.RowIndex(s.CurrentRow())
	if i < 0 {
		i = 0
	} else {
		i = min(max(0, i+delta), len(data)-1)
	}
	m.grid.SetCurrentRow(data[i])

	rh := m.grid.Window().RowHeight
	top := m.grid.ScrollTop()
	page := m.pageRows() * rh
	switch {
	case i*rh < top:
		top = i * rh
	case (i+1)*rh > top+page:
		top = (i+1)*rh - page
	}
	m.grid.Scroll(top, m.grid.ScrollLeft())
}

func (m *model) View() string {
	if m.width == 0 {
		return ""
	}
	g := m.grid
	s := g.Store()
	lay := g.Layout()
	mid, left, right := g.Main(), g.FixedLeft(), g.FixedRight()

	var b strings.Builder
	b.WriteString(m.header.Render(fmt.Sprintf("orders  %d/%d rows  %d selected", len(s.Data()), len(s.RawData()), len(s.Selection()))))
	b.WriteByte('\n')

	line := func(cell func(c *datagrid.Column) string) string {
		return m.compose(mid, left, right, cell)
	}

	if lay.ShowHeader {
		b.WriteString(m.header.Render(line(func(c *datagrid.Column) string {
			label := c.Label
			switch c.Order {
			case datagrid.Ascending:
				label += " ↑"
			case datagrid.Descending:
				label += " ↓"
			}
			return label
		})))
		b.WriteByte('\n')
	}

	// the window materializes overscan rows too; a terminal cannot clip
	// them, so only the rows inside the viewport are drawn
	cur := g.CurrentRowIndex()
	first := g.ScrollTop() / max(1, g.Window().RowHeight)
	for i, row := range mid.Rows {
		index := mid.Start + i
		if index < first || index >= first+m.pageRows() {
			continue
		}
		text := line(func(c *datagrid.Column) string { return m.cell(c, row, index) })
		switch {
		case i == cur && g.Config().HighlightCurrentRow:
			text = m.current.Render(text)
		case s.IsSelected(row):
			text = m.selected.Render(text)
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}

	if lay.ShowFooter {
		aggs := make(map[datagrid.ColumnID]string)
		for _, r := range s.Aggregates() {
			aggs[r.Column.ID] = r.Label
		}
		b.WriteString(m.footer.Render(line(func(c *datagrid.Column) string { return aggs[c.ID] })))
		b.WriteByte('\n')
	}

	status := m.status
	if m.filtering {
		status = "/" + m.query
	} else if cols := m.sortable(); len(cols) > 0 {
		status = fmt.Sprintf("sort: %s  %s", cols[m.focus%len(cols)].Label, status)
	}
	b.WriteString(m.faint.Render(status))
	return b.String()
}

func (m *model) cell(c *datagrid.Column, row datagrid.Row, index int) string {
	s := m.grid.Store()
	switch c.Type {
	case datagrid.ColumnSelection:
		if s.IsSelected(row) {
			return "[x]"
		}
		return "[ ]"
	case datagrid.ColumnIndex:
		return fmt.Sprint(index + 1)
	case datagrid.ColumnExpand:
		if s.IsExpanded(row) {
			return "▾"
		}
		return "▸"
	}
	v := c.CellValue(row)
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// compose renders one line: the main band scrolled horizontally with the
// fixed bands laid over its edges.
func (m *model) compose(mid, left, right datagrid.Band, cell func(*datagrid.Column) string) string {
	render := func(b datagrid.Band) string {
		var sb strings.Builder
		for i, c := range b.Columns {
			text := ""
			if !b.CellHidden(i) {
				text = cell(c)
			}
			sb.WriteString(fit(" "+text, c.RealWidth))
		}
		return sb.String()
	}

	view := cut(render(mid), mid.ScrollLeft, m.width)
	out := view
	if left.Visible {
		out = fit(cut(render(left), 0, left.Width), left.Width) + cut(view, left.Width, m.width-left.Width)
	}
	if right.Visible {
		keep := max(0, m.width-right.Width)
		rb := render(right)
		out = fit(cut(out, 0, keep), keep) + cut(rb, runewidth.StringWidth(rb)-right.Width, right.Width)
	}
	return fit(out, m.width)
}

// fit pads or truncates s to exactly w cells.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(s, w, ""), w)
}

// cut returns w cells of s starting at cell from.
func cut(s string, from, w int) string {
	if w <= 0 {
		return ""
	}
	var sb strings.Builder
	pos, width := 0, 0
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if pos >= from {
			if width+rw > w {
				break
			}
			sb.WriteRune(r)
			width += rw
		}
		pos += rw
	}
	return sb.String()
}

func main() {
	var (
		n       = flag.Int("rows", 10000, "rows to generate")
		dbPath  = flag.String("db", "", "SQLite database to load instead of generated rows")
		query   = flag.String("query", "", "query to run against -db")
		search  = flag.String("search", "", "comma separated properties the / filter matches (sqlite only)")
		sum     = flag.String("sum", "", "property to sum in the footer (sqlite only)")
		cfgPath = flag.String("config", "", "TOML config file")
		logFile = flag.String("log", "", "log file")
	)
	flag.Parse()

	cfg := demoConfig()
	if *cfgPath != "" {
		var err error
		if cfg, err = datagrid.LoadConfig(*cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}
	logger := zap.NewNop()
	if cfg.Log.File != "" {
		var err error
		if logger, err = datagrid.NewLogger(cfg.Log); err != nil {
			log.Fatal(err)
		}
	}
	defer logger.Sync()

	g := datagrid.NewGrid(cfg, datagrid.WithLogger(logger))
	s := g.Store()
	m := &model{
		grid:     g,
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		footer:   lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		current:  lipgloss.NewStyle().Reverse(true),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		faint:    lipgloss.NewStyle().Faint(true),
	}

	g.RegisterColumn(datagrid.ColumnDecl{Type: datagrid.ColumnSelection, Width: 4})
	g.RegisterColumn(datagrid.ColumnDecl{Type: datagrid.ColumnIndex, Width: 7, Fixed: datagrid.FixedLeft})

	if *dbPath != "" {
		rows, cols, err := load(*dbPath, *query)
		if err != nil {
			log.Fatal(err)
		}
		m.rows = rows
		props := strings.Split(*search, ",")
		if *search == "" {
			props = cols
		}
		for i, c := range cols {
			decl := datagrid.ColumnDecl{Property: c, Label: c, Sortable: true}
			if i == 0 {
				decl.Fixed = datagrid.FixedLeft
				decl.FixedIndex = 1
			}
			if c == *sum {
				decl.Aggregate = datagrid.AggregateSum
				decl.Formatter = datagrid.Number(2)
				decl.Fixed = datagrid.FixedRight
			}
			g.RegisterColumn(decl)
		}
		m.search = g.RegisterColumn(datagrid.ColumnDecl{
			Label: "match", Hidden: true, FilterMethod: datagrid.FuzzyFilter(props...),
		})
	} else {
		m.rows = generate(*n)
		g.RegisterColumn(datagrid.ColumnDecl{Property: "id", Label: "ID", Width: 8, Sortable: true, Fixed: datagrid.FixedLeft, FixedIndex: 1})
		g.RegisterColumn(datagrid.ColumnDecl{Property: "customer", Label: "Customer", Sortable: true, MinWidth: 14})
		g.RegisterColumn(datagrid.ColumnDecl{Property: "city", Label: "City", Sortable: true})
		g.RegisterColumn(datagrid.ColumnDecl{Property: "dept", Label: "Dept", Sortable: true, Aggregate: datagrid.AggregateCount})
		g.RegisterColumn(datagrid.ColumnDecl{Property: "status", Label: "Status", Sortable: true, Width: 10})
		g.RegisterColumn(datagrid.ColumnDecl{
			Property: "amount", Label: "Amount", Width: 18, Sortable: true,
			Fixed: datagrid.FixedRight, Aggregate: datagrid.AggregateSum,
			Formatter: datagrid.Currency("$", 2),
		})
		m.search = g.RegisterColumn(datagrid.ColumnDecl{
			Label: "match", Hidden: true,
			FilterMethod: datagrid.FuzzyFilter("customer", "city", "dept", "status"),
		})
	}

	g.Subscribe(func(ev datagrid.Event) {
		switch ev.Kind {
		case datagrid.EventReachedTop, datagrid.EventReachedBottom, datagrid.EventReachedLeft, datagrid.EventReachedRight:
			m.status = ev.Kind.String()
		case datagrid.EventSortChanged, datagrid.EventFilterChanged:
			m.status = ""
		}
	})

	g.SetData(&m.rows)
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width, m.height = w, h
		g.Measure(datagrid.Measurements{Width: w, Height: m.bodyHeight()})
	}
	g.Mount()
	if data := s.Data(); len(data) > 0 {
		g.SetCurrentRow(data[0])
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
}
