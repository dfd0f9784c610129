package core

import "slices"

// Whitelist holds the column keys and relation paths a table accepts in
// requests. Membership is exact string equality.
type Whitelist struct {
	columns   map[string]struct{}
	relations map[string]struct{}
}

// NewWhitelist builds a whitelist from cols: every key and every relation
// path is admitted.
func NewWhitelist(cols ...*Column) *Whitelist {
	w := &Whitelist{
		columns:   make(map[string]struct{}),
		relations: make(map[string]struct{}),
	}
	for _, c := range cols {
		w.AddColumn(c)
	}
	return w
}

// AddColumn admits c's key and relation path.
func (w *Whitelist) AddColumn(c *Column) {
	w.columns[c.Key] = struct{}{}
	if c.Relation != "" {
		w.relations[c.Relation] = struct{}{}
	}
}

// AddRelation admits a relation path.
func (w *Whitelist) AddRelation(path string) {
	w.relations[path] = struct{}{}
}

// HasColumn reports whether key is admitted.
func (w *Whitelist) HasColumn(key string) bool {
	_, ok := w.columns[key]
	return ok
}

// HasRelation reports whether path is admitted.
func (w *Whitelist) HasRelation(path string) bool {
	_, ok := w.relations[path]
	return ok
}

// Columns returns the admitted column keys, sorted.
func (w *Whitelist) Columns() []string {
	return sortedKeys(w.columns)
}

// Relations returns the admitted relation paths, sorted.
func (w *Whitelist) Relations() []string {
	return sortedKeys(w.relations)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
