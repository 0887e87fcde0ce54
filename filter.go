package datagrid

import "slices"

// filterData keeps the rows that pass every non-empty column filter. A row
// passes one column's filter when it matches at least one accepted value,
// through the column's FilterMethod if it has one and strict equality on the
// column property otherwise. Filters whose column is gone are ignored.
func filterData(data []Row, filters map[ColumnID][]any, columnByID func(ColumnID) *Column) []Row {
	type active struct {
		col    *Column
		values []any
	}
	var checks []active
	for id, values := range filters {
		if len(values) == 0 {
			continue
		}
		if col := columnByID(id); col != nil {
			checks = append(checks, active{col, values})
		}
	}
	if len(checks) == 0 {
		return data
	}
	// evaluate in column order so FilterMethod calls are deterministic
	slices.SortFunc(checks, func(a, b active) int { return cmpOrdered(int(a.col.ID), int(b.col.ID)) })

	out := make([]Row, 0, len(data))
	for _, row := range data {
		keep := true
		for _, c := range checks {
			if !matchesAny(c.col, c.values, row) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

func matchesAny(col *Column, values []any, row Row) bool {
	if col.FilterMethod != nil {
		for _, v := range values {
			if col.FilterMethod(v, row) {
				return true
			}
		}
		return false
	}
	cell, ok := Value(row, col.Property)
	if !ok {
		return false
	}
	for _, v := range values {
		if equalValues(cell, v) {
			return true
		}
	}
	return false
}
