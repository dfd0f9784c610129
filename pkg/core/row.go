package core

import "strings"

// Row is one record as produced by an engine: column name -> value.
// Eager-loaded relations appear as nested Row (to-one) or []Row (to-many).
type Row = map[string]any

// Lookup walks a dot-separated path through nested rows. A to-many
// segment resolves to its first element. The second result is false as
// soon as a segment is missing.
func Lookup(row Row, path string) (any, bool) {
	var cur any = row
	for _, part := range strings.Split(path, ".") {
		m, ok := asRow(cur)
		if !ok {
			return nil, false
		}
		v, ok := m[part]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func asRow(v any) (Row, bool) {
	switch t := v.(type) {
	case Row:
		return t, true
	case []Row:
		if len(t) == 0 {
			return nil, false
		}
		return t[0], true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		return asRow(t[0])
	default:
		return nil, false
	}
}
