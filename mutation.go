package datagrid

import (
	"strings"

	"github.com/pkg/errors"
)

// Mutation is one state transition of the store. The set of mutations is
// closed: only the types in this file implement it, and Store.Commit handles
// each of them.
type Mutation interface {
	Kind() MutationKind
	mutation()
}

// MutationKind names a mutation, for logs, journals and string dispatch.
type MutationKind uint8

const (
	KindSetData MutationKind = iota + 1
	KindChangeSortCondition
	KindFilterChange
	KindInsertColumn
	KindRemoveColumn
	KindSetCurrentRow
	KindSetHoverRow
	KindRowSelectedChanged
	KindToggleAllSelection
	KindToggleRowExpanded
	KindToggleRowSelection
	KindClearSelection
	KindSetSortingColumns
	KindToggleSort
	KindClearFilter
	KindPinColumns
	KindUpdateColumns
)

var mutationNames = map[MutationKind]string{
	KindSetData:             "setData",
	KindChangeSortCondition: "changeSortCondition",
	KindFilterChange:        "filterChange",
	KindInsertColumn:        "insertColumn",
	KindRemoveColumn:        "removeColumn",
	KindSetCurrentRow:       "setCurrentRow",
	KindSetHoverRow:         "setHoverRow",
	KindRowSelectedChanged:  "rowSelectedChanged",
	KindToggleAllSelection:  "toggleAllSelection",
	KindToggleRowExpanded:   "toggleRowExpanded",
	KindToggleRowSelection:  "toggleRowSelection",
	KindClearSelection:      "clearSelection",
	KindSetSortingColumns:   "setSortingColumns",
	KindToggleSort:          "toggleSort",
	KindClearFilter:         "clearFilter",
	KindPinColumns:          "pinColumns",
	KindUpdateColumns:       "updateColumns",
}

func (k MutationKind) String() string {
	if s, ok := mutationNames[k]; ok {
		return s
	}
	return "unknown"
}

// ParseMutationKind resolves a mutation name. Unknown names return
// ErrUnknownMutation.
func ParseMutationKind(name string) (MutationKind, error) {
	for k, s := range mutationNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, errors.Wrapf(ErrUnknownMutation, "%q", name)
}

// Dirty tells the owner of a store which derived projections a commit
// invalidated. The store never recomputes geometry itself.
type Dirty uint8

const (
	DirtyColumns     Dirty = 1 << iota // column list or partitions changed
	DirtyLayout                        // widths or heights must be recomputed
	DirtyWindowReset                   // derived length changed, window restarts at 0
	DirtyWindow                        // window must be re-zoned at the current offset
	DirtyAggregates                    // footer aggregates are stale
	DirtyRows                          // row decorations (current, hover, selection, expand) changed
)

// Has reports whether all bits of d2 are set.
func (d Dirty) Has(d2 Dirty) bool { return d&d2 == d2 }

// SetData replaces the raw dataset. Data is the collection itself: passing
// the same pointer again means "same collection, new contents" and prunes the
// selection; a different pointer clears it.
type SetData struct{ Data *[]Row }

// ChangeSortCondition re-sorts the filtered data with the current sorting
// columns.
type ChangeSortCondition struct{}

// FilterChange sets the accepted values of one column's filter. A nil or
// empty Values removes the filter.
type FilterChange struct {
	Column *Column
	Values []any
	Silent bool
}

// InsertColumn splices Column into the collection at Index, or appends it
// when Index is nil. With Parent set the column becomes one of Parent's
// children instead.
type InsertColumn struct {
	Column *Column
	Index  *int
	Parent *Column
}

// RemoveColumn takes a column out of the collection.
type RemoveColumn struct{ Column *Column }

// SetCurrentRow makes Row the current row. nil clears it.
type SetCurrentRow struct{ Row Row }

// SetHoverRow records the row under the pointer. nil clears it.
type SetHoverRow struct{ Row Row }

// RowSelectedChanged toggles one row's selection membership.
type RowSelectedChanged struct{ Row Row }

// ToggleAllSelection selects every selectable row, or deselects them all when
// they are already all selected.
type ToggleAllSelection struct{}

// ToggleRowExpanded toggles a row's detail panel, or sets it explicitly when
// Expanded is non-nil.
type ToggleRowExpanded struct {
	Row      Row
	Expanded *bool
}

// ToggleRowSelection toggles a row's selection, or sets it explicitly when
// Selected is non-nil.
type ToggleRowSelection struct {
	Row      Row
	Selected *bool
}

// ClearSelection empties the selection.
type ClearSelection struct{}

// SortKey is one sort key: a column and the direction it sorts in.
type SortKey struct {
	Column *Column
	Order  Order
}

// SetSortingColumns replaces the sort keys; Keys[0] is the primary key.
// Each key's order is written to its column, and columns that drop out of
// the keys are reset to OrderNone. A key with OrderNone is skipped.
type SetSortingColumns struct{ Keys []SortKey }

// ToggleSort is a header click: it sets Column's order to Order, or cycles it
// when Order is nil, and adds or drops the column from the sort keys.
type ToggleSort struct {
	Column *Column
	Order  *Order
}

// ClearFilter removes the filters of Columns, or every filter when Columns is
// empty.
type ClearFilter struct{ Columns []*Column }

// PinColumns pins Columns to the Fixed edge in the given order. An empty
// Columns unpins every column currently on that edge.
type PinColumns struct {
	Columns []*Column
	Fixed   Fixed
}

// UpdateColumns recomputes the fixed/unfixed partitions after the caller has
// changed column flags such as Visible.
type UpdateColumns struct{}

func (SetData) Kind() MutationKind             { return KindSetData }
func (ChangeSortCondition) Kind() MutationKind { return KindChangeSortCondition }
func (FilterChange) Kind() MutationKind        { return KindFilterChange }
func (InsertColumn) Kind() MutationKind        { return KindInsertColumn }
func (RemoveColumn) Kind() MutationKind        { return KindRemoveColumn }
func (SetCurrentRow) Kind() MutationKind       { return KindSetCurrentRow }
func (SetHoverRow) Kind() MutationKind         { return KindSetHoverRow }
func (RowSelectedChanged) Kind() MutationKind  { return KindRowSelectedChanged }
func (ToggleAllSelection) Kind() MutationKind  { return KindToggleAllSelection }
func (ToggleRowExpanded) Kind() MutationKind   { return KindToggleRowExpanded }
func (ToggleRowSelection) Kind() MutationKind  { return KindToggleRowSelection }
func (ClearSelection) Kind() MutationKind      { return KindClearSelection }
func (SetSortingColumns) Kind() MutationKind   { return KindSetSortingColumns }
func (ToggleSort) Kind() MutationKind          { return KindToggleSort }
func (ClearFilter) Kind() MutationKind         { return KindClearFilter }
func (PinColumns) Kind() MutationKind          { return KindPinColumns }
func (UpdateColumns) Kind() MutationKind       { return KindUpdateColumns }

func (SetData) mutation()             {}
func (ChangeSortCondition) mutation() {}
func (FilterChange) mutation()        {}
func (InsertColumn) mutation()        {}
func (RemoveColumn) mutation()        {}
func (SetCurrentRow) mutation()       {}
func (SetHoverRow) mutation()         {}
func (RowSelectedChanged) mutation()  {}
func (ToggleAllSelection) mutation()  {}
func (ToggleRowExpanded) mutation()   {}
func (ToggleRowSelection) mutation()  {}
func (ClearSelection) mutation()      {}
func (SetSortingColumns) mutation()   {}
func (ToggleSort) mutation()          {}
func (ClearFilter) mutation()         {}
func (PinColumns) mutation()          {}
func (UpdateColumns) mutation()       {}
