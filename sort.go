package datagrid

import "slices"

// sortData orders data by the sorting columns, first column primary. With no
// sorting columns the input slice itself is returned so callers can detect
// "nothing changed" by identity. The sort is stable: rows that tie on every
// key keep their filtered order.
func sortData(data []Row, sorting []*Column) []Row {
	if len(sorting) == 0 {
		return data
	}
	out := slices.Clone(data)
	slices.SortStableFunc(out, func(a, b Row) int {
		return compareRows(a, b, sorting)
	})
	return out
}

// compareRows cascades through the sort keys. A key on which either row is
// undefined counts as a tie and falls through to the next key.
func compareRows(a, b Row, keys []*Column) int {
	for _, col := range keys {
		va, okA := Value(a, col.Property)
		vb, okB := Value(b, col.Property)
		if !okA || !okB {
			continue
		}
		var c int
		if col.SortMethod != nil {
			c = col.SortMethod(va, vb)
		} else {
			c = compareValues(va, vb)
		}
		if c == 0 {
			continue
		}
		if col.Order == Descending {
			return -c
		}
		return c
	}
	return 0
}
