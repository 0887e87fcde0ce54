package datagrid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) on(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) count(k EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

func (r *recorder) last(k EventKind) (Event, bool) {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == k {
			return r.events[i], true
		}
	}
	return Event{}, false
}

func (r *recorder) reset() { r.events = nil }

func rowsOf(maps ...map[string]any) []Row {
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = m
	}
	return out
}

func newRecordedStore(opts ...StoreOption) (*Store, *recorder) {
	s := NewStore(opts...)
	rec := &recorder{}
	s.Subscribe(rec.on)
	return s, rec
}

func TestSetDataSelectionPruning(t *testing.T) {
	s, rec := newRecordedStore()
	r1, r2, r3 := map[string]any{"id": 1}, map[string]any{"id": 2}, map[string]any{"id": 3}

	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})
	s.Commit(ToggleRowSelection{Row: r1})
	s.Commit(ToggleRowSelection{Row: r2})
	require.Len(t, s.Selection(), 2)

	rec.reset()
	data = rowsOf(r1, r3)
	d := s.Commit(SetData{Data: &data})

	assert.Equal(t, []Row{r1}, s.Selection())
	assert.Equal(t, 1, rec.count(EventSelectionChanged), "selection-changed fires exactly once")
	assert.Equal(t, 1, rec.count(EventDataChanged))
	assert.True(t, d.Has(DirtyWindowReset|DirtyLayout|DirtyAggregates))

	t.Run("no change no notification", func(t *testing.T) {
		rec.reset()
		data = rowsOf(r1, r3, r2)
		s.Commit(SetData{Data: &data})
		assert.Zero(t, rec.count(EventSelectionChanged))
		assert.Equal(t, []Row{r1}, s.Selection())
	})

	t.Run("new collection clears", func(t *testing.T) {
		rec.reset()
		other := rowsOf(r1, r3)
		s.Commit(SetData{Data: &other})
		assert.Empty(t, s.Selection())
		assert.Equal(t, 1, rec.count(EventSelectionChanged))
	})

	t.Run("new collection with empty selection is silent", func(t *testing.T) {
		rec.reset()
		other := rowsOf(r1)
		s.Commit(SetData{Data: &other})
		assert.Zero(t, rec.count(EventSelectionChanged))
	})
}

func TestSetDataCurrentAndHover(t *testing.T) {
	s, rec := newRecordedStore()
	r1, r2 := map[string]any{"id": 1}, map[string]any{"id": 2}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})
	s.Commit(SetCurrentRow{Row: r2})
	s.Commit(SetHoverRow{Row: r2})

	rec.reset()
	data = rowsOf(r1)
	s.Commit(SetData{Data: &data})

	assert.Nil(t, s.CurrentRow())
	assert.Nil(t, s.HoverRow())
	ev, ok := rec.last(EventCurrentRowChanged)
	require.True(t, ok)
	assert.Nil(t, ev.Value)
	assert.Equal(t, r2, ev.Old)
}

func TestSetCurrentRow(t *testing.T) {
	s, rec := newRecordedStore()
	r1, r2 := map[string]any{"id": 1}, map[string]any{"id": 2}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})

	s.Commit(SetCurrentRow{Row: r1})
	s.Commit(SetCurrentRow{Row: r1})
	s.Commit(SetCurrentRow{Row: r2})
	assert.Equal(t, 2, rec.count(EventCurrentRowChanged), "re-setting the same row is silent")

	ev, _ := rec.last(EventCurrentRowChanged)
	assert.Equal(t, r2, ev.Value)
	assert.Equal(t, r1, ev.Old)

	t.Run("rows outside the data clear it", func(t *testing.T) {
		s.Commit(SetCurrentRow{Row: map[string]any{"id": 1}})
		assert.Nil(t, s.CurrentRow())
	})
}

func TestRowSelectedChanged(t *testing.T) {
	s, rec := newRecordedStore()
	r1, r2 := map[string]any{"id": 1}, map[string]any{"id": 2}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})

	s.Commit(RowSelectedChanged{Row: r1})
	assert.True(t, s.IsSelected(r1))
	assert.False(t, s.IsAllSelected())
	assert.Equal(t, 1, rec.count(EventSelectionChanged))
	ev, ok := rec.last(EventSelect)
	require.True(t, ok)
	assert.Equal(t, r1, ev.Row)

	s.Commit(RowSelectedChanged{Row: r2})
	assert.True(t, s.IsAllSelected())

	s.Commit(RowSelectedChanged{Row: r1})
	assert.False(t, s.IsSelected(r1))
	assert.False(t, s.IsAllSelected())
	assert.Equal(t, 3, rec.count(EventSelect))

	t.Run("unknown row changes nothing", func(t *testing.T) {
		rec.reset()
		s.Commit(RowSelectedChanged{Row: map[string]any{"id": 9}})
		assert.Zero(t, rec.count(EventSelectionChanged))
		assert.Zero(t, rec.count(EventSelect))
	})
}

func TestToggleRowSelectionExplicit(t *testing.T) {
	s, rec := newRecordedStore()
	r1 := map[string]any{"id": 1}
	data := rowsOf(r1)
	s.Commit(SetData{Data: &data})

	yes, no := true, false
	s.Commit(ToggleRowSelection{Row: r1, Selected: &yes})
	s.Commit(ToggleRowSelection{Row: r1, Selected: &yes})
	assert.True(t, s.IsSelected(r1))
	assert.Equal(t, 1, rec.count(EventSelectionChanged))

	s.Commit(ToggleRowSelection{Row: r1, Selected: &no})
	assert.False(t, s.IsSelected(r1))
	assert.Equal(t, 2, rec.count(EventSelectionChanged))

	s.Commit(ClearSelection{})
	assert.Equal(t, 2, rec.count(EventSelectionChanged), "clearing an empty selection is silent")
}

func TestToggleAllSelection(t *testing.T) {
	s, rec := newRecordedStore()
	s.RegisterColumn(ColumnDecl{
		Type: ColumnSelection,
		Selectable: func(row Row, _ int) bool {
			v, _ := Value(row, "locked")
			return v != true
		},
	})
	r1 := map[string]any{"id": 1}
	r2 := map[string]any{"id": 2, "locked": true}
	r3 := map[string]any{"id": 3}
	data := rowsOf(r1, r2, r3)
	s.Commit(SetData{Data: &data})

	s.Commit(ToggleAllSelection{})
	assert.ElementsMatch(t, []Row{r1, r3}, s.Selection())
	assert.True(t, s.IsAllSelected(), "locked rows do not count")
	assert.Equal(t, 1, rec.count(EventSelectionChanged), "one notification for the batch")
	assert.Equal(t, 1, rec.count(EventSelectAll))

	s.Commit(ToggleAllSelection{})
	assert.Empty(t, s.Selection())
	assert.False(t, s.IsAllSelected())
	assert.Equal(t, 2, rec.count(EventSelectionChanged))

	t.Run("empty data is never all selected", func(t *testing.T) {
		var empty []Row
		s.Commit(SetData{Data: &empty})
		s.Commit(ToggleAllSelection{})
		assert.False(t, s.IsAllSelected())
	})
}

func TestToggleRowExpanded(t *testing.T) {
	s, rec := newRecordedStore()
	r1 := map[string]any{"id": 1}
	data := rowsOf(r1)
	s.Commit(SetData{Data: &data})

	s.Commit(ToggleRowExpanded{Row: r1})
	assert.True(t, s.IsExpanded(r1))
	ev, ok := rec.last(EventExpandChanged)
	require.True(t, ok)
	assert.Equal(t, true, ev.Value)
	assert.Equal(t, r1, ev.Row)

	no := false
	s.Commit(ToggleRowExpanded{Row: r1, Expanded: &no})
	d := s.Commit(ToggleRowExpanded{Row: r1, Expanded: &no})
	assert.Zero(t, d, "setting the current state changes nothing")
	assert.False(t, s.IsExpanded(r1))
	assert.Equal(t, 2, rec.count(EventExpandChanged))
	ev, _ = rec.last(EventExpandChanged)
	assert.Equal(t, false, ev.Value)

	t.Run("rows outside the data are refused", func(t *testing.T) {
		stranger := map[string]any{"id": 9}
		d := s.Commit(ToggleRowExpanded{Row: stranger})
		assert.Zero(t, d)
		assert.False(t, s.IsExpanded(stranger))
		assert.Equal(t, 2, rec.count(EventExpandChanged))
	})
}

func TestDefaultExpandAll(t *testing.T) {
	s := NewStore(WithDefaultExpandAll(true))
	r1, r2 := map[string]any{"id": 1}, map[string]any{"id": 2}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})
	assert.Equal(t, []Row{r1, r2}, s.ExpandRows())
}

func TestExpandedRowsArePruned(t *testing.T) {
	s := NewStore()
	r1, r2 := map[string]any{"id": 1}, map[string]any{"id": 2}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})
	s.Commit(ToggleRowExpanded{Row: r1})
	s.Commit(ToggleRowExpanded{Row: r2})

	data = rowsOf(r2)
	s.Commit(SetData{Data: &data})
	assert.Equal(t, []Row{r2}, s.ExpandRows())
}

func TestFilterChange(t *testing.T) {
	s, rec := newRecordedStore()
	colA := s.RegisterColumn(ColumnDecl{Property: "a"})
	colB := s.RegisterColumn(ColumnDecl{Property: "b"})

	in := map[string]any{"a": 1, "b": "x"}
	out1 := map[string]any{"a": 1, "b": "y"}
	out2 := map[string]any{"a": 3, "b": "x"}
	in2 := map[string]any{"a": 2, "b": "x"}
	data := rowsOf(in, out1, out2, in2)
	s.Commit(SetData{Data: &data})
	s.Commit(SetCurrentRow{Row: out1})

	d := s.Commit(FilterChange{Column: colA, Values: []any{1, 2, 2}})
	assert.True(t, d.Has(DirtyWindowReset))
	s.Commit(FilterChange{Column: colB, Values: []any{"x"}})

	assert.Equal(t, []Row{in, in2}, s.Data())
	assert.Equal(t, []any{1, 2}, s.Filters()[colA.ID], "values are a set")
	assert.Equal(t, []any{1, 2}, colA.FilteredValue)
	assert.Equal(t, 2, rec.count(EventFilterChanged))
	assert.Nil(t, s.CurrentRow(), "filtered out current row is cleared")

	t.Run("silent", func(t *testing.T) {
		rec.reset()
		s.Commit(FilterChange{Column: colB, Values: []any{"y"}, Silent: true})
		assert.Zero(t, rec.count(EventFilterChanged))
		assert.Equal(t, []Row{out1}, s.Data())
	})

	t.Run("empty values remove the filter", func(t *testing.T) {
		s.Commit(FilterChange{Column: colB})
		assert.Equal(t, []Row{in, out1, in2}, s.Data())
		_, ok := s.Filters()[colB.ID]
		assert.False(t, ok)
	})

	t.Run("clear all", func(t *testing.T) {
		s.Commit(ClearFilter{})
		assert.Len(t, s.Data(), 4)
		assert.Empty(t, s.Filters())
		assert.Nil(t, colA.FilteredValue)
	})

	t.Run("hidden columns still filter", func(t *testing.T) {
		hidden := s.RegisterColumn(ColumnDecl{Property: "b", Hidden: true})
		s.Commit(FilterChange{Column: hidden, Values: []any{"y"}})
		assert.Equal(t, []Row{out1}, s.Data())
		assert.NotContains(t, s.Columns(), hidden)
	})

	t.Run("removing the column drops its filter", func(t *testing.T) {
		for _, c := range s.AllColumns() {
			if !c.Visible {
				s.UnregisterColumn(c)
			}
		}
		assert.Len(t, s.Data(), 4)
	})
}

func TestSortMutations(t *testing.T) {
	s, rec := newRecordedStore()
	a := s.RegisterColumn(ColumnDecl{Property: "a", Sortable: true})
	fixed := s.RegisterColumn(ColumnDecl{Property: "a"})

	r3, r1, r2 := map[string]any{"a": 3}, map[string]any{"a": 1}, map[string]any{"a": 2}
	data := rowsOf(r3, r1, r2)
	s.Commit(SetData{Data: &data})

	s.Commit(ToggleSort{Column: a})
	assert.Equal(t, Ascending, a.Order)
	assert.Equal(t, []Row{r1, r2, r3}, s.Data())

	s.Commit(ToggleSort{Column: a})
	assert.Equal(t, Descending, a.Order)
	assert.Equal(t, []Row{r3, r2, r1}, s.Data())

	s.Commit(ToggleSort{Column: a})
	assert.Equal(t, OrderNone, a.Order)
	assert.Empty(t, s.SortingColumns())
	assert.Equal(t, []Row{r3, r1, r2}, s.Data())
	assert.Equal(t, 3, rec.count(EventSortChanged))

	t.Run("explicit order", func(t *testing.T) {
		desc := Descending
		s.Commit(ToggleSort{Column: a, Order: &desc})
		assert.Equal(t, []Row{r3, r2, r1}, s.Data())
	})

	t.Run("unsortable columns are ignored", func(t *testing.T) {
		d := s.Commit(ToggleSort{Column: fixed})
		assert.Zero(t, d)
		assert.Equal(t, OrderNone, fixed.Order)
	})

	t.Run("set sorting columns", func(t *testing.T) {
		s.Commit(SetSortingColumns{Keys: []SortKey{{Column: a, Order: Ascending}}})
		assert.Equal(t, Ascending, a.Order)
		assert.Equal(t, []Row{r1, r2, r3}, s.Data())
		assert.Equal(t, []Row{r3, r1, r2}, s.FilteredData(), "sorting leaves the filtered order alone")
	})

	t.Run("change sort condition re-sorts", func(t *testing.T) {
		a.Order = Descending
		d := s.Commit(ChangeSortCondition{})
		assert.True(t, d.Has(DirtyWindow))
		assert.Equal(t, []Row{r3, r2, r1}, s.Data())
	})
}

func TestSetSortingColumnsOwnsOrders(t *testing.T) {
	s := NewStore()
	a := s.RegisterColumn(ColumnDecl{Property: "a", Sortable: true})
	b := s.RegisterColumn(ColumnDecl{Property: "b", Sortable: true})

	r1, r2 := map[string]any{"a": 1, "b": 2}, map[string]any{"a": 2, "b": 1}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})

	s.Commit(ToggleSort{Column: a})
	require.Equal(t, Ascending, a.Order)

	s.Commit(SetSortingColumns{Keys: []SortKey{{Column: b, Order: Descending}}})
	assert.Equal(t, OrderNone, a.Order, "a dropped key loses its order")
	assert.Equal(t, Descending, b.Order)
	assert.Equal(t, []*Column{b}, s.SortingColumns())
	assert.Equal(t, []Row{r1, r2}, s.Data())

	s.Commit(ToggleSort{Column: a})
	assert.Equal(t, Ascending, a.Order, "the next header click starts the cycle over")
	assert.Equal(t, []*Column{b, a}, s.SortingColumns())

	t.Run("none keys and duplicates are skipped", func(t *testing.T) {
		s.Commit(SetSortingColumns{Keys: []SortKey{
			{Column: a, Order: OrderNone},
			{Column: b, Order: Ascending},
			{Column: b, Order: Descending},
		}})
		assert.Equal(t, []*Column{b}, s.SortingColumns())
		assert.Equal(t, OrderNone, a.Order)
		assert.Equal(t, Ascending, b.Order)
	})

	t.Run("empty keys clear sorting", func(t *testing.T) {
		s.Commit(SetSortingColumns{})
		assert.Empty(t, s.SortingColumns())
		assert.Equal(t, OrderNone, b.Order)
		assert.Equal(t, []Row{r1, r2}, s.Data())
	})
}

func TestFixedColumnOrdering(t *testing.T) {
	s := NewStore()
	plain := s.RegisterColumn(ColumnDecl{Property: "plain"})
	one := s.RegisterColumn(ColumnDecl{Property: "one", Fixed: FixedLeft, FixedIndex: 1})
	zero := s.RegisterColumn(ColumnDecl{Property: "zero", Fixed: FixedLeft, FixedIndex: 0})
	r0 := s.RegisterColumn(ColumnDecl{Property: "r0", Fixed: FixedRight, FixedIndex: 0})
	r1 := s.RegisterColumn(ColumnDecl{Property: "r1", Fixed: FixedRight, FixedIndex: 1})

	assert.Equal(t, []*Column{zero, one, plain, r1, r0}, s.Columns())
	assert.Equal(t, []*Column{zero, one}, s.FixedColumns())
	assert.Equal(t, []*Column{r1, r0}, s.RightFixedColumns())
	assert.Equal(t, []*Column{plain, one, zero, r0, r1}, s.AllColumns())
}

func TestSelectionColumnFollowsLeftBand(t *testing.T) {
	t.Run("forced fixed when another column is fixed left", func(t *testing.T) {
		s := NewStore()
		sel := s.RegisterColumn(ColumnDecl{Type: ColumnSelection})
		name := s.RegisterColumn(ColumnDecl{Property: "name"})
		id := s.RegisterColumn(ColumnDecl{Property: "id", Fixed: FixedLeft})

		assert.Equal(t, FixedLeft, sel.Fixed)
		assert.Equal(t, []*Column{sel, id}, s.FixedColumns())
		assert.Equal(t, []*Column{sel, id, name}, s.Columns())
	})

	t.Run("never fixed by declaration", func(t *testing.T) {
		s := NewStore()
		name := s.RegisterColumn(ColumnDecl{Property: "name"})
		sel := s.RegisterColumn(ColumnDecl{Type: ColumnSelection, Fixed: FixedRight})

		assert.Equal(t, FixedNone, sel.Fixed)
		assert.Empty(t, s.RightFixedColumns())
		assert.Equal(t, []*Column{name, sel}, s.Columns())
	})

	t.Run("unfixed when the left band empties", func(t *testing.T) {
		s := NewStore()
		sel := s.RegisterColumn(ColumnDecl{Type: ColumnSelection})
		id := s.RegisterColumn(ColumnDecl{Property: "id", Fixed: FixedLeft})
		s.Commit(PinColumns{Fixed: FixedLeft})

		assert.Equal(t, FixedNone, id.Fixed)
		assert.Equal(t, FixedNone, sel.Fixed)
		assert.Empty(t, s.FixedColumns())
	})
}

func TestInsertColumnPositions(t *testing.T) {
	s, rec := newRecordedStore()
	a := s.RegisterColumn(ColumnDecl{Property: "a"})
	b := s.RegisterColumn(ColumnDecl{Property: "b"})
	c := s.RegisterColumn(ColumnDecl{Property: "c"}, At(1))
	far := s.RegisterColumn(ColumnDecl{Property: "far"}, At(99))
	assert.Equal(t, []*Column{a, c, b, far}, s.AllColumns())
	assert.Equal(t, 4, rec.count(EventColumnsChanged))

	t.Run("children", func(t *testing.T) {
		group := s.RegisterColumn(ColumnDecl{Label: "group", Fixed: FixedRight})
		x := s.RegisterColumn(ColumnDecl{Property: "x"}, Under(group))
		y := s.RegisterColumn(ColumnDecl{Property: "y"}, Under(group))

		assert.Equal(t, FixedRight, x.Fixed, "children inherit the parent's fixed state")
		assert.Equal(t, []*Column{x, y}, s.RightFixedColumns())
		assert.Same(t, group, x.Parent)
		assert.Same(t, x, s.ColumnByID(x.ID))
		assert.NotContains(t, s.Columns(), group)
	})

	t.Run("remove", func(t *testing.T) {
		s.UnregisterColumn(c)
		assert.Nil(t, s.ColumnByID(c.ID))
		assert.NotContains(t, s.AllColumns(), c)
	})
}

func TestPinColumns(t *testing.T) {
	s := NewStore()
	a := s.RegisterColumn(ColumnDecl{Property: "a"})
	b := s.RegisterColumn(ColumnDecl{Property: "b"})
	c := s.RegisterColumn(ColumnDecl{Property: "c"})

	s.Commit(PinColumns{Columns: []*Column{c, a}, Fixed: FixedLeft})
	assert.Equal(t, []*Column{c, a}, s.FixedColumns())
	assert.Equal(t, []*Column{c, a, b}, s.Columns())

	s.Commit(PinColumns{Columns: []*Column{a}, Fixed: FixedNone})
	assert.Equal(t, []*Column{c}, s.FixedColumns())
	assert.Equal(t, -1, a.FixedIndex)
}

func TestUpdateColumnsAfterVisibilityChange(t *testing.T) {
	s := NewStore()
	a := s.RegisterColumn(ColumnDecl{Property: "a"})
	b := s.RegisterColumn(ColumnDecl{Property: "b"})

	b.Visible = false
	d := s.Commit(UpdateColumns{})
	assert.True(t, d.Has(DirtyLayout))
	assert.Equal(t, []*Column{a}, s.Columns())
}

func TestCommitUnknownMutationPanics(t *testing.T) {
	s := NewStore()
	assert.PanicsWithError(t, "<nil>: datagrid: unknown mutation", func() {
		s.Commit(nil)
	})
}

func TestRowIndex(t *testing.T) {
	s := NewStore()
	col := s.RegisterColumn(ColumnDecl{Property: "a", Sortable: true})
	r1, r2 := map[string]any{"a": 2}, map[string]any{"a": 1}
	data := rowsOf(r1, r2)
	s.Commit(SetData{Data: &data})
	asc := Ascending
	s.Commit(ToggleSort{Column: col, Order: &asc})

	assert.Equal(t, 0, s.RowIndex(r2))
	assert.Equal(t, 1, s.RowIndex(r1))
	assert.Equal(t, -1, s.RowIndex(map[string]any{"a": 1}))
	assert.Equal(t, -1, s.RowIndex(nil))
}

func TestWithRowKey(t *testing.T) {
	byID := func(row Row) any {
		v, _ := Value(row, "id")
		return v
	}
	s := NewStore(WithRowKey(byID))
	data := rowsOf(map[string]any{"id": 1}, map[string]any{"id": 2})
	s.Commit(SetData{Data: &data})
	s.Commit(ToggleRowSelection{Row: data[0]})

	// reloaded copies keep their selection under a key-based identity
	data = rowsOf(map[string]any{"id": 1}, map[string]any{"id": 3})
	s.Commit(SetData{Data: &data})
	assert.True(t, s.IsSelected(map[string]any{"id": 1}))
	assert.Len(t, s.Selection(), 1)
}

func TestStoreAggregates(t *testing.T) {
	s := NewStore(WithAggregateLabels(AggregateLabels{Sum: "Total"}))
	s.RegisterColumn(ColumnDecl{Property: "name"})
	amount := s.RegisterColumn(ColumnDecl{Property: "amount", Aggregate: AggregateSum})
	data := rowsOf(
		map[string]any{"name": "a", "amount": 1.25},
		map[string]any{"name": "b", "amount": "2.5"},
		map[string]any{"name": "c", "amount": "n/a"},
	)
	s.Commit(SetData{Data: &data})

	res := s.ComputeAggregates()
	require.Len(t, res, 2)
	assert.Equal(t, AggregateNone, res[0].Kind)
	assert.Same(t, amount, res[1].Column)
	assert.Equal(t, "Total: 3.75", res[1].Label)
	assert.Equal(t, res, s.Aggregates())
}
