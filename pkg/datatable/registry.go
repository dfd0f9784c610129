package datatable

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry holds table definitions by name.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*Table)}
}

// Register adds t, replacing any table with the same name.
func (r *Registry) Register(t *Table) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[t.Name()] = t
}

// Replace swaps the whole set of tables at once.
func (r *Registry) Replace(tables ...*Table) {
	next := make(map[string]*Table, len(tables))
	for _, t := range tables {
		next[t.Name()] = t
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = next
}

// Get returns the table called name.
func (r *Registry) Get(name string) (*Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	if !ok {
		return nil, &UnknownTableError{Name: name, Available: slices.Sorted(maps.Keys(r.tables))}
	}
	return t, nil
}

// Names returns the registered table names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tables))
}

// UnknownTableError is returned for a table that is not registered.
type UnknownTableError struct {
	Name      string
	Available []string
}

func (e *UnknownTableError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown table %q: no tables are defined", e.Name)
	}
	return fmt.Sprintf("unknown table %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}
