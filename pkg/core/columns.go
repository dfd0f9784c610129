package core

import "slices"

// Columns is an ordered registry of columns keyed by Column.Key.
// The zero value is ready to use.
type Columns struct {
	order []string
	byKey map[string]*Column
}

// NewColumns creates a registry holding cols in order.
func NewColumns(cols ...*Column) *Columns {
	r := &Columns{}
	for _, c := range cols {
		r.Add(c)
	}
	return r
}

// Add inserts c. A column with the same key is replaced in place.
func (r *Columns) Add(c *Column) {
	if r.byKey == nil {
		r.byKey = make(map[string]*Column)
	}
	if _, ok := r.byKey[c.Key]; !ok {
		r.order = append(r.order, c.Key)
	}
	r.byKey[c.Key] = c
}

// Get returns the column for key, or nil.
func (r *Columns) Get(key string) *Column {
	return r.byKey[key]
}

// Has reports whether key is registered.
func (r *Columns) Has(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// Remove deletes key if present.
func (r *Columns) Remove(key string) {
	if _, ok := r.byKey[key]; !ok {
		return
	}
	delete(r.byKey, key)
	for i, k := range r.order {
		if k == key {
			r.order = slices.Delete(r.order, i, i+1)
			break
		}
	}
}

// All returns every column in insertion order.
func (r *Columns) All() []*Column {
	return r.filter(func(*Column) bool { return true })
}

// Searchable returns the searchable columns in order.
func (r *Columns) Searchable() []*Column {
	return r.filter(func(c *Column) bool { return c.Searchable })
}

// Orderable returns the orderable columns in order.
func (r *Columns) Orderable() []*Column {
	return r.filter(func(c *Column) bool { return c.Orderable })
}

// Visible returns the visible columns in order.
func (r *Columns) Visible() []*Column {
	return r.filter(func(c *Column) bool { return c.Visible })
}

// Exportable returns the exportable columns in order.
func (r *Columns) Exportable() []*Column {
	return r.filter(func(c *Column) bool { return c.Exportable })
}

// KeyLabelMap returns key -> label for every column.
func (r *Columns) KeyLabelMap() map[string]string {
	m := make(map[string]string, len(r.order))
	for _, k := range r.order {
		m[k] = r.byKey[k].Label
	}
	return m
}

// Len returns the number of columns.
func (r *Columns) Len() int {
	return len(r.order)
}

func (r *Columns) filter(keep func(*Column) bool) []*Column {
	out := make([]*Column, 0, len(r.order))
	for _, k := range r.order {
		if c := r.byKey[k]; keep(c) {
			out = append(out, c)
		}
	}
	return out
}
