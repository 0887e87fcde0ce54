package datagrid

import (
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Store owns the grid state. Commit is the only way to change it; every other
// method reads. A Store is not safe for concurrent use.
type Store struct {
	id      uuid.UUID
	log     *zap.Logger
	events  emitter
	journal *Journal

	registry       *rowRegistry
	minColumnWidth int
	labels         AggregateLabels
	expandAll      bool

	source       *[]Row
	rawData      []Row
	filteredData []Row
	data         []Row
	derived      *roaring.Bitmap // ordinals of data

	columns           []*Column // top level, declaration order
	renderColumns     []*Column
	fixedColumns      []*Column
	rightFixedColumns []*Column
	byID              map[ColumnID]*Column

	sortingColumns []*Column
	filters        map[ColumnID][]any
	selectable     func(row Row, index int) bool

	selection     *rowSet
	expandRows    *rowSet
	isAllSelected bool
	currentRow    Row
	hoverRow      Row
	aggregates    []AggregateResult
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithRowKey replaces DefaultRowKey, e.g. to identify rows by a primary key
// field so reloaded copies of a row keep their selection.
func WithRowKey(k RowKey) StoreOption {
	return func(s *Store) {
		if k != nil {
			s.registry.key = k
		}
	}
}

// WithDefaultExpandAll expands every derived row on each SetData.
func WithDefaultExpandAll(on bool) StoreOption {
	return func(s *Store) { s.expandAll = on }
}

// WithJournal records every committed mutation into j.
func WithJournal(j *Journal) StoreOption {
	return func(s *Store) { s.journal = j }
}

// WithAggregateLabels sets the footer captions.
func WithAggregateLabels(l AggregateLabels) StoreOption {
	return func(s *Store) { s.labels = l }
}

// WithMinColumnWidth sets the fallback minimum width for columns that
// declare none or declare an unparsable one.
func WithMinColumnWidth(px int) StoreOption {
	return func(s *Store) {
		if px > 0 {
			s.minColumnWidth = px
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		id:             uuid.New(),
		log:            zap.NewNop(),
		registry:       newRowRegistry(DefaultRowKey),
		minColumnWidth: defaultMinWidth,
		labels:         DefaultAggregateLabels(),
		derived:        roaring.New(),
		byID:           make(map[ColumnID]*Column),
		filters:        make(map[ColumnID][]any),
	}
	s.selection = newRowSet(s.registry)
	s.expandRows = newRowSet(s.registry)
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("grid", s.id.String()))
	return s
}

// ID identifies the store instance in logs and journals.
func (s *Store) ID() uuid.UUID { return s.id }

// Subscribe registers a change listener and returns its unsubscribe func.
func (s *Store) Subscribe(fn func(Event)) func() { return s.events.Subscribe(fn) }

// Commit applies one mutation and reports which projections it invalidated.
// A mutation the store does not know is a programming error and panics with
// ErrUnknownMutation.
func (s *Store) Commit(m Mutation) Dirty {
	var d Dirty
	rec := m
	switch m := m.(type) {
	case SetData:
		d = s.setData(m)
	case ChangeSortCondition:
		d = s.changeSortCondition()
	case FilterChange:
		d = s.filterChange(m)
	case InsertColumn:
		d = s.insertColumn(m)
	case RemoveColumn:
		d = s.removeColumn(m)
	case SetCurrentRow:
		d = s.setCurrentRow(m.Row)
	case SetHoverRow:
		s.hoverRow = m.Row
		d = DirtyRows
	case RowSelectedChanged:
		d = s.rowSelectedChanged(m.Row)
	case ToggleAllSelection:
		d = s.toggleAllSelection()
	case ToggleRowExpanded:
		d = s.toggleRowExpanded(m)
	case ToggleRowSelection:
		d = s.toggleRowSelection(m)
	case ClearSelection:
		s.clearSelection()
		d = DirtyRows
	case SetSortingColumns:
		d = s.setSortingColumns(m.Keys)
		rec = SetSortingColumns{Keys: slices.Clone(m.Keys)}
	case ToggleSort:
		d = s.toggleSort(m)
		if m.Order == nil && m.Column != nil {
			// columns are shared with replays, so record the order reached
			// rather than the toggle
			o := m.Column.Order
			rec = ToggleSort{Column: m.Column, Order: &o}
		}
	case ClearFilter:
		d = s.clearFilter(m.Columns)
	case PinColumns:
		d = s.pinColumns(m)
	case UpdateColumns:
		s.updateColumns()
		s.events.emit(Event{Kind: EventColumnsChanged, Value: s.Columns()})
		d = DirtyColumns | DirtyLayout | DirtyAggregates
	default:
		panic(errors.Wrapf(ErrUnknownMutation, "%T", m))
	}

	if s.journal != nil {
		s.journal.record(rec)
	}
	if ce := s.log.Check(zap.DebugLevel, "commit"); ce != nil {
		ce.Write(
			zap.Stringer("mutation", m.Kind()),
			zap.Int("rows", len(s.rawData)),
			zap.Int("derived", len(s.data)),
			zap.Int("selected", s.selection.len()),
		)
	}
	return d
}

// ----------------------------------------------------------------------------
// data
// ----------------------------------------------------------------------------

func (s *Store) setData(m SetData) Dirty {
	var rows []Row
	if m.Data != nil {
		rows = *m.Data
	}
	instanceChanged := m.Data != s.source
	s.source = m.Data
	s.rawData = rows

	gone := s.registry.reset(rows)
	s.recompute()
	s.reconcileCurrentRow()
	if s.hoverRow != nil && !s.inData(s.hoverRow) {
		s.hoverRow = nil
	}

	if instanceChanged {
		s.clearSelection()
	} else if s.selection.prune(gone) > 0 {
		s.events.emit(Event{Kind: EventSelectionChanged, Value: s.Selection()})
	}
	s.updateAllSelected()

	if s.expandAll {
		s.expandRows.fill(s.data)
	} else {
		s.expandRows.prune(gone)
	}

	s.events.emit(Event{Kind: EventDataChanged, Value: s.data})
	return DirtyWindowReset | DirtyLayout | DirtyAggregates | DirtyRows
}

// recompute derives filteredData and data from rawData.
func (s *Store) recompute() {
	s.filteredData = filterData(s.rawData, s.filters, s.ColumnByID)
	s.data = sortData(s.filteredData, s.sortingColumns)

	s.derived = roaring.New()
	for _, row := range s.data {
		if ord, ok := s.registry.lookup(row); ok {
			s.derived.Add(ord)
		}
	}
}

func (s *Store) inData(row Row) bool {
	ord, ok := s.registry.lookup(row)
	return ok && s.derived.Contains(ord)
}

// reconcileCurrentRow clears a current row that is no longer derived.
func (s *Store) reconcileCurrentRow() {
	old := s.currentRow
	if old == nil || s.inData(old) {
		return
	}
	s.currentRow = nil
	s.events.emit(Event{Kind: EventCurrentRowChanged, Value: nil, Old: old})
}

// ----------------------------------------------------------------------------
// sort and filter
// ----------------------------------------------------------------------------

func (s *Store) changeSortCondition() Dirty {
	s.data = sortData(s.filteredData, s.sortingColumns)
	s.updateAllSelected()
	s.events.emit(Event{Kind: EventSortChanged, Value: s.SortingColumns()})
	return DirtyWindow | DirtyRows
}

func (s *Store) setSortingColumns(keys []SortKey) Dirty {
	prev := s.sortingColumns
	s.sortingColumns = make([]*Column, 0, len(keys))
	for _, k := range keys {
		c := k.Column
		if c == nil || s.byID[c.ID] != c || k.Order == OrderNone || slices.Contains(s.sortingColumns, c) {
			continue
		}
		c.Order = k.Order
		s.sortingColumns = append(s.sortingColumns, c)
	}
	for _, c := range prev {
		if !slices.Contains(s.sortingColumns, c) {
			c.Order = OrderNone
		}
	}
	return s.changeSortCondition()
}

func (s *Store) toggleSort(m ToggleSort) Dirty {
	col := m.Column
	if col == nil || !col.Sortable || s.byID[col.ID] != col {
		return 0
	}
	if m.Order != nil {
		col.Order = *m.Order
	} else {
		col.Order = col.Order.next()
	}
	idx := slices.Index(s.sortingColumns, col)
	switch {
	case idx < 0 && col.Order != OrderNone:
		s.sortingColumns = append(s.sortingColumns, col)
	case idx >= 0 && col.Order == OrderNone:
		s.sortingColumns = slices.Delete(s.sortingColumns, idx, idx+1)
	}
	return s.changeSortCondition()
}

func (s *Store) filterChange(m FilterChange) Dirty {
	if m.Column == nil {
		return 0
	}
	values := uniqueValues(m.Values)
	m.Column.FilteredValue = values
	if len(values) == 0 {
		delete(s.filters, m.Column.ID)
	} else {
		s.filters[m.Column.ID] = values
	}
	return s.refilter(m.Silent)
}

func (s *Store) clearFilter(cols []*Column) Dirty {
	if len(cols) == 0 {
		for id := range s.filters {
			if c := s.byID[id]; c != nil {
				c.FilteredValue = nil
			}
		}
		clear(s.filters)
	}
	for _, c := range cols {
		if c == nil {
			continue
		}
		c.FilteredValue = nil
		delete(s.filters, c.ID)
	}
	return s.refilter(false)
}

func (s *Store) refilter(silent bool) Dirty {
	s.recompute()
	s.reconcileCurrentRow()
	s.updateAllSelected()
	if !silent {
		s.events.emit(Event{Kind: EventFilterChanged, Value: s.Filters()})
	}
	return DirtyWindowReset | DirtyLayout | DirtyAggregates | DirtyRows
}

// uniqueValues normalizes filter values to a set, keeping first occurrence
// order.
func uniqueValues(values []any) []any {
	out := make([]any, 0, len(values))
	for _, v := range values {
		dup := false
		for _, seen := range out {
			if equalValues(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// ----------------------------------------------------------------------------
// columns
// ----------------------------------------------------------------------------

// RegisterOption positions a column being registered.
type RegisterOption func(*InsertColumn)

// At inserts the column at index instead of appending it.
func At(index int) RegisterOption {
	return func(m *InsertColumn) { m.Index = &index }
}

// Under makes the column a child of parent. A child without its own fixed
// state inherits the parent's.
func Under(parent *Column) RegisterOption {
	return func(m *InsertColumn) { m.Parent = parent }
}

// NewInsert normalizes decl into a column and returns the mutation that
// inserts it, positioned by opts.
func (s *Store) NewInsert(decl ColumnDecl, opts ...RegisterOption) InsertColumn {
	col, malformed := newColumn(decl, s.minColumnWidth)
	if malformed {
		s.log.Debug("malformed column width, using fallback",
			zap.Uint64("column", uint64(col.ID)),
			zap.Any("width", decl.Width),
			zap.Any("minWidth", decl.MinWidth),
		)
	}
	m := InsertColumn{Column: col}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// RegisterColumn normalizes decl into a column and inserts it. Behind a
// Grid use Grid.RegisterColumn so the layout sees the change.
func (s *Store) RegisterColumn(decl ColumnDecl, opts ...RegisterOption) *Column {
	m := s.NewInsert(decl, opts...)
	s.Commit(m)
	return m.Column
}

// UnregisterColumn removes a column registered with RegisterColumn.
func (s *Store) UnregisterColumn(col *Column) Dirty {
	return s.Commit(RemoveColumn{Column: col})
}

func (s *Store) insertColumn(m InsertColumn) Dirty {
	col := m.Column
	if col == nil {
		return 0
	}
	target := &s.columns
	if p := m.Parent; p != nil {
		col.Parent = p
		if col.Fixed == FixedNone {
			col.Fixed, col.FixedIndex = p.Fixed, p.FixedIndex
		}
		target = &p.Children
	}
	if m.Index != nil && *m.Index >= 0 && *m.Index <= len(*target) {
		*target = slices.Insert(*target, *m.Index, col)
	} else {
		*target = append(*target, col)
	}
	s.index(col)
	if col.Type == ColumnSelection {
		s.selectable = col.Selectable
	}

	s.updateColumns()
	s.updateAllSelected()
	s.events.emit(Event{Kind: EventColumnsChanged, Value: s.Columns()})
	return DirtyColumns | DirtyLayout | DirtyWindow | DirtyAggregates
}

func (s *Store) index(col *Column) {
	s.byID[col.ID] = col
	for _, child := range col.Children {
		s.index(child)
	}
}

func (s *Store) removeColumn(m RemoveColumn) Dirty {
	col := m.Column
	if col == nil || s.byID[col.ID] != col {
		return 0
	}
	if p := col.Parent; p != nil {
		if i := slices.Index(p.Children, col); i >= 0 {
			p.Children = slices.Delete(p.Children, i, i+1)
		}
	} else if i := slices.Index(s.columns, col); i >= 0 {
		s.columns = slices.Delete(s.columns, i, i+1)
	}

	var d Dirty = DirtyColumns | DirtyLayout | DirtyWindow | DirtyAggregates
	refilter, resort := false, false
	var drop func(c *Column)
	drop = func(c *Column) {
		delete(s.byID, c.ID)
		if _, ok := s.filters[c.ID]; ok {
			delete(s.filters, c.ID)
			refilter = true
		}
		if i := slices.Index(s.sortingColumns, c); i >= 0 {
			s.sortingColumns = slices.Delete(s.sortingColumns, i, i+1)
			c.Order = OrderNone
			resort = true
		}
		if c.Type == ColumnSelection {
			s.selectable = nil
		}
		for _, child := range c.Children {
			drop(child)
		}
	}
	drop(col)

	s.updateColumns()
	switch {
	case refilter:
		d |= s.refilter(false)
	case resort:
		d |= s.changeSortCondition()
	default:
		s.updateAllSelected()
	}
	s.events.emit(Event{Kind: EventColumnsChanged, Value: s.Columns()})
	return d
}

func (s *Store) pinColumns(m PinColumns) Dirty {
	if len(m.Columns) == 0 {
		if m.Fixed == FixedNone {
			return 0
		}
		for _, c := range s.byID {
			if c.Fixed == m.Fixed {
				c.Fixed, c.FixedIndex = FixedNone, -1
			}
		}
	}
	var pin func(c *Column, idx int)
	pin = func(c *Column, idx int) {
		c.Fixed, c.FixedIndex = m.Fixed, idx
		if m.Fixed == FixedNone {
			c.FixedIndex = -1
		}
		for _, child := range c.Children {
			pin(child, idx)
		}
	}
	for i, c := range m.Columns {
		if c != nil {
			pin(c, i)
		}
	}
	s.updateColumns()
	s.events.emit(Event{Kind: EventColumnsChanged, Value: s.Columns()})
	return DirtyColumns | DirtyLayout | DirtyAggregates
}

// updateColumns partitions the visible leaf columns into the left band, the
// unfixed middle and the right band. Left is ordered by FixedIndex ascending,
// right by FixedIndex descending, ties keep declaration order. Selection
// columns are never pinned by declaration; a leading selection column is
// pulled into the left band whenever that band is non-empty so checkboxes
// stay beside their rows.
func (s *Store) updateColumns() {
	leaves := Leaves(s.columns)
	var left, right, middle []*Column
	for _, c := range leaves {
		if c.Type == ColumnSelection {
			c.Fixed = FixedNone
		}
		switch c.Fixed {
		case FixedLeft:
			left = append(left, c)
		case FixedRight:
			right = append(right, c)
		}
	}
	slices.SortStableFunc(left, func(a, b *Column) int { return cmpOrdered(a.FixedIndex, b.FixedIndex) })
	slices.SortStableFunc(right, func(a, b *Column) int { return cmpOrdered(b.FixedIndex, a.FixedIndex) })

	if len(left) > 0 && len(leaves) > 0 && leaves[0].Type == ColumnSelection {
		leaves[0].Fixed = FixedLeft
		left = append([]*Column{leaves[0]}, left...)
	}
	for _, c := range leaves {
		if c.Fixed == FixedNone {
			middle = append(middle, c)
		}
	}

	s.fixedColumns = left
	s.rightFixedColumns = right
	s.renderColumns = slices.Concat(left, middle, right)
}

// ----------------------------------------------------------------------------
// rows: current, selection, expand
// ----------------------------------------------------------------------------

func (s *Store) setCurrentRow(row Row) Dirty {
	if row != nil && !s.inData(row) {
		s.log.Debug("current row is not in the derived data, clearing")
		row = nil
	}
	old := s.currentRow
	s.currentRow = row
	if !s.registry.same(old, row) {
		s.events.emit(Event{Kind: EventCurrentRowChanged, Value: row, Old: old})
	}
	return DirtyRows
}

func (s *Store) rowSelectedChanged(row Row) Dirty {
	if s.selection.toggle(row) {
		sel := s.Selection()
		s.events.emit(Event{Kind: EventSelectionChanged, Value: sel})
		s.events.emit(Event{Kind: EventSelect, Value: sel, Row: row})
	}
	s.updateAllSelected()
	return DirtyRows
}

func (s *Store) toggleRowSelection(m ToggleRowSelection) Dirty {
	var changed bool
	if m.Selected == nil {
		changed = s.selection.toggle(m.Row)
	} else {
		changed = s.selection.set(m.Row, *m.Selected)
	}
	if changed {
		s.events.emit(Event{Kind: EventSelectionChanged, Value: s.Selection()})
	}
	s.updateAllSelected()
	return DirtyRows
}

func (s *Store) toggleAllSelection() Dirty {
	target := !s.isAllSelected
	changed := false
	for i, row := range s.data {
		if s.selectable != nil && !s.selectable(row, i) {
			continue
		}
		if s.selection.set(row, target) {
			changed = true
		}
	}
	sel := s.Selection()
	if changed {
		s.events.emit(Event{Kind: EventSelectionChanged, Value: sel})
	}
	s.events.emit(Event{Kind: EventSelectAll, Value: sel})
	s.updateAllSelected()
	return DirtyRows
}

func (s *Store) clearSelection() {
	s.isAllSelected = false
	if s.selection.clear() > 0 {
		s.events.emit(Event{Kind: EventSelectionChanged, Value: []Row{}})
	}
}

// updateAllSelected is true iff every selectable derived row is selected and
// at least one is.
func (s *Store) updateAllSelected() {
	all, count := true, 0
	for i, row := range s.data {
		if s.selectable != nil && !s.selectable(row, i) {
			continue
		}
		if !s.selection.contains(row) {
			all = false
			break
		}
		count++
	}
	s.isAllSelected = all && count > 0
}

func (s *Store) toggleRowExpanded(m ToggleRowExpanded) Dirty {
	var changed bool
	if m.Expanded == nil {
		changed = s.expandRows.toggle(m.Row)
	} else {
		changed = s.expandRows.set(m.Row, *m.Expanded)
	}
	if !changed {
		return 0
	}
	s.events.emit(Event{Kind: EventExpandChanged, Value: s.expandRows.contains(m.Row), Row: m.Row})
	return DirtyRows | DirtyLayout
}

// ----------------------------------------------------------------------------
// aggregates
// ----------------------------------------------------------------------------

// ComputeAggregates reduces the derived data for every render column and
// caches the results for Aggregates.
func (s *Store) ComputeAggregates() []AggregateResult {
	s.aggregates = computeAggregates(s.renderColumns, s.data, s.labels)
	for _, r := range s.aggregates {
		if r.Kind != AggregateNone && r.Samples < r.Count {
			s.log.Debug("aggregate skipped non-numeric values",
				zap.Uint64("column", uint64(r.Column.ID)),
				zap.Int("skipped", r.Count-r.Samples),
			)
		}
	}
	return s.aggregates
}

// Aggregates returns the results of the last ComputeAggregates.
func (s *Store) Aggregates() []AggregateResult { return s.aggregates }

// ----------------------------------------------------------------------------
// read accessors; returned slices must not be modified
// ----------------------------------------------------------------------------

// Data is the derived dataset: raw data, filtered, then sorted.
func (s *Store) Data() []Row { return s.data }

// RawData is the dataset as last supplied.
func (s *Store) RawData() []Row { return s.rawData }

// FilteredData is the raw data after filters, before sorting.
func (s *Store) FilteredData() []Row { return s.filteredData }

// Columns is the render order: left band, unfixed, right band.
func (s *Store) Columns() []*Column { return s.renderColumns }

// AllColumns is the top-level declaration order, hidden columns included.
func (s *Store) AllColumns() []*Column { return s.columns }

func (s *Store) FixedColumns() []*Column      { return s.fixedColumns }
func (s *Store) RightFixedColumns() []*Column { return s.rightFixedColumns }

// ColumnByID finds any registered column, hidden and child columns included.
func (s *Store) ColumnByID(id ColumnID) *Column { return s.byID[id] }

// SortingColumns returns a copy of the sort keys, primary first.
func (s *Store) SortingColumns() []*Column { return slices.Clone(s.sortingColumns) }

// Filters returns a copy of the active filters.
func (s *Store) Filters() map[ColumnID][]any {
	out := make(map[ColumnID][]any, len(s.filters))
	for id, v := range s.filters {
		out[id] = slices.Clone(v)
	}
	return out
}

// Selection lists the selected rows in the order they first entered the
// dataset.
func (s *Store) Selection() []Row { return s.selection.rows() }

func (s *Store) IsSelected(row Row) bool { return s.selection.contains(row) }
func (s *Store) IsAllSelected() bool     { return s.isAllSelected }
func (s *Store) CurrentRow() Row         { return s.currentRow }
func (s *Store) HoverRow() Row           { return s.hoverRow }
func (s *Store) ExpandRows() []Row       { return s.expandRows.rows() }
func (s *Store) IsExpanded(row Row) bool { return s.expandRows.contains(row) }

// IsSelectable reports whether the selection column allows row at index.
func (s *Store) IsSelectable(row Row, index int) bool {
	return s.selectable == nil || s.selectable(row, index)
}

// RowIndex is row's position in the derived data, or -1.
func (s *Store) RowIndex(row Row) int {
	if !s.inData(row) {
		return -1
	}
	for i, r := range s.data {
		if s.registry.same(r, row) {
			return i
		}
	}
	return -1
}
