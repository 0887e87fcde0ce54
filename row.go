package datagrid

import (
	"fmt"
	"reflect"
	"strings"
)

// Row is an opaque application record. The engine only reads property paths
// from it and compares rows by identity (see RowKey).
type Row = any

// RowKey maps a row to a comparable identity used by the selection, expand,
// current and hover sets.
type RowKey func(Row) any

// pointerKey identifies reference-like rows by address, so two maps with the
// same contents are still two rows.
type pointerKey struct {
	t reflect.Type
	p uintptr
}

// DefaultRowKey returns the identity of a row: its address for pointers, maps,
// slices, funcs and chans, the value itself when comparable, and its Go-syntax
// rendering as a last resort.
func DefaultRowKey(row Row) any {
	if row == nil {
		return nil
	}
	v := reflect.ValueOf(row)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return pointerKey{t: v.Type(), p: v.Pointer()}
	}
	if v.Type().Comparable() {
		return row
	}
	return fmt.Sprintf("%#v", row)
}

// Value reads a dot-separated property path from a row. Maps are indexed by
// string key, structs by exported field name or `grid:"name"` tag. ok is
// false when any segment is missing, which the engine treats as undefined.
func Value(row Row, path string) (any, bool) {
	if row == nil || path == "" {
		return nil, false
	}
	// fast path for the overwhelmingly common flat map row
	if m, isMap := row.(map[string]any); isMap && strings.IndexByte(path, '.') < 0 {
		v, ok := m[path]
		return v, ok
	}

	cur := reflect.ValueOf(row)
	for _, seg := range strings.Split(path, ".") {
		cur = derefValue(cur)
		if !cur.IsValid() {
			return nil, false
		}
		switch cur.Kind() {
		case reflect.Map:
			if cur.Type().Key().Kind() != reflect.String {
				return nil, false
			}
			next := cur.MapIndex(reflect.ValueOf(seg).Convert(cur.Type().Key()))
			if !next.IsValid() {
				return nil, false
			}
			cur = next
		case reflect.Struct:
			idx := fieldIndex(cur.Type(), seg)
			if idx < 0 {
				return nil, false
			}
			cur = cur.Field(idx)
		default:
			return nil, false
		}
	}

	cur = derefValue(cur)
	if !cur.IsValid() || !cur.CanInterface() {
		return nil, false
	}
	return cur.Interface(), true
}

// derefValue follows pointers and interfaces until it reaches a concrete
// value. nil pointers yield the zero Value.
func derefValue(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func fieldIndex(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, _, _ := strings.Cut(f.Tag.Get("grid"), ","); tag == name {
			return i
		}
	}
	if f, ok := t.FieldByName(name); ok && len(f.Index) == 1 && f.IsExported() {
		return f.Index[0]
	}
	return -1
}
