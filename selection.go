package datagrid

import "github.com/RoaringBitmap/roaring"

// rowRegistry gives every row of the raw dataset a stable ordinal so row sets
// can be kept as bitmaps. A row keeps its ordinal for as long as it stays in
// the dataset; rows that leave lose it.
type rowRegistry struct {
	key     RowKey
	ordinal map[any]uint32
	rows    map[uint32]Row
	present *roaring.Bitmap
	next    uint32
}

func newRowRegistry(key RowKey) *rowRegistry {
	return &rowRegistry{
		key:     key,
		ordinal: make(map[any]uint32),
		rows:    make(map[uint32]Row),
		present: roaring.New(),
	}
}

// reset re-registers the dataset and returns the ordinals that left it.
func (r *rowRegistry) reset(data []Row) *roaring.Bitmap {
	ordinal := make(map[any]uint32, len(data))
	rows := make(map[uint32]Row, len(data))
	present := roaring.New()
	for _, row := range data {
		k := r.key(row)
		if _, seen := ordinal[k]; seen {
			continue
		}
		ord, ok := r.ordinal[k]
		if !ok {
			ord = r.next
			r.next++
		}
		ordinal[k] = ord
		rows[ord] = row
		present.Add(ord)
	}
	gone := roaring.AndNot(r.present, present)
	r.ordinal, r.rows, r.present = ordinal, rows, present
	return gone
}

func (r *rowRegistry) lookup(row Row) (uint32, bool) {
	if row == nil {
		return 0, false
	}
	ord, ok := r.ordinal[r.key(row)]
	return ord, ok
}

func (r *rowRegistry) same(a, b Row) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return r.key(a) == r.key(b)
}

// rowSet is a set of registered rows.
type rowSet struct {
	reg  *rowRegistry
	bits *roaring.Bitmap
}

func newRowSet(reg *rowRegistry) *rowSet {
	return &rowSet{reg: reg, bits: roaring.New()}
}

func (s *rowSet) contains(row Row) bool {
	ord, ok := s.reg.lookup(row)
	return ok && s.bits.Contains(ord)
}

// add reports whether membership changed. Rows outside the dataset are
// never added.
func (s *rowSet) add(row Row) bool {
	ord, ok := s.reg.lookup(row)
	if !ok {
		return false
	}
	return s.bits.CheckedAdd(ord)
}

func (s *rowSet) remove(row Row) bool {
	ord, ok := s.reg.lookup(row)
	if !ok {
		return false
	}
	return s.bits.CheckedRemove(ord)
}

// set adds or removes row and reports whether membership changed.
func (s *rowSet) set(row Row, member bool) bool {
	if member {
		return s.add(row)
	}
	return s.remove(row)
}

func (s *rowSet) toggle(row Row) bool {
	if s.contains(row) {
		return s.remove(row)
	}
	return s.add(row)
}

// prune drops the given ordinals and returns how many were members.
func (s *rowSet) prune(gone *roaring.Bitmap) int {
	n := int(s.bits.AndCardinality(gone))
	if n > 0 {
		s.bits.AndNot(gone)
	}
	return n
}

func (s *rowSet) clear() int {
	n := int(s.bits.GetCardinality())
	s.bits.Clear()
	return n
}

func (s *rowSet) len() int { return int(s.bits.GetCardinality()) }

// rows lists the members in registration order.
func (s *rowSet) rows() []Row {
	out := make([]Row, 0, s.bits.GetCardinality())
	it := s.bits.Iterator()
	for it.HasNext() {
		if row, ok := s.reg.rows[it.Next()]; ok {
			out = append(out, row)
		}
	}
	return out
}

// fill replaces the membership with exactly the given rows.
func (s *rowSet) fill(rows []Row) {
	s.bits.Clear()
	for _, row := range rows {
		s.add(row)
	}
}
