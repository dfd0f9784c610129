// Package datatable binds columns, filters and a data source into a table
// definition and runs client requests against it.
//
// A Table is defined once, typically at startup, and is safe to share
// between requests: every Run and Export asks the source for a fresh
// engine and never mutates the definition.
package datatable

import (
	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Options holds the request-handling settings of a table.
type Options struct {
	PageLength    int  // rows per page when the request does not say
	MaxPageLength int  // upper bound for any requested page length
	GlobalSearch  bool // whether the search box is honoured
	Escape        bool // HTML-escape non-raw string output
	ChunkSize     int  // keys per batched relation lookup, 0 for the engine default
}

// DefaultOptions returns the settings used by New.
func DefaultOptions() Options {
	return Options{
		PageLength:    10,
		MaxPageLength: 100,
		GlobalSearch:  true,
		Escape:        true,
	}
}

// Widget holds client-side presentation flags. They do not affect the
// server pipeline and are only echoed through ClientConfig.
type Widget struct {
	Responsive    bool   `json:"responsive"`
	PersistKey    string `json:"persist_key,omitempty"`
	VirtualScroll bool   `json:"virtual_scroll"`
	Realtime      bool   `json:"realtime"`
}

// Table is a table definition.
type Table struct {
	name       string
	source     core.Source
	columns    *core.Columns
	filters    []*core.Filter
	filterKeys map[string]*core.Filter
	whitelist  *core.Whitelist
	with       []string
	opts       Options
	exportable bool
	widget     Widget
}

// New creates an empty table definition with DefaultOptions.
func New(name string) *Table {
	return &Table{
		name:       name,
		columns:    core.NewColumns(),
		filterKeys: make(map[string]*core.Filter),
		whitelist:  core.NewWhitelist(),
		opts:       DefaultOptions(),
		widget:     Widget{Responsive: true},
	}
}

// Source attaches the data source.
func (t *Table) Source(src core.Source) *Table {
	t.source = src
	return t
}

// AddColumns registers columns and admits them to the whitelist.
func (t *Table) AddColumns(cols ...*core.Column) *Table {
	for _, c := range cols {
		t.columns.Add(c)
		t.whitelist.AddColumn(c)
	}
	return t
}

// AddFilters registers filters. A filter with an existing key replaces it.
func (t *Table) AddFilters(filters ...*core.Filter) *Table {
	for _, f := range filters {
		if _, ok := t.filterKeys[f.Key]; ok {
			for i, existing := range t.filters {
				if existing.Key == f.Key {
					t.filters[i] = f
				}
			}
		} else {
			t.filters = append(t.filters, f)
		}
		t.filterKeys[f.Key] = f
	}
	return t
}

// With eager-loads relation paths and admits them to the whitelist.
func (t *Table) With(paths ...string) *Table {
	for _, p := range paths {
		t.with = append(t.with, p)
		t.whitelist.AddRelation(p)
	}
	return t
}

// Configure replaces the request-handling options. The page length is
// clamped to the maximum.
func (t *Table) Configure(opts Options) *Table {
	if opts.MaxPageLength <= 0 {
		opts.MaxPageLength = DefaultOptions().MaxPageLength
	}
	if opts.PageLength <= 0 {
		opts.PageLength = DefaultOptions().PageLength
	}
	t.opts = opts
	return t.PageLength(opts.PageLength)
}

// PageLength sets the default page length, clamped to [1, MaxPageLength].
func (t *Table) PageLength(n int) *Table {
	t.opts.PageLength = min(max(n, 1), t.opts.MaxPageLength)
	return t
}

// Searchable sets the searchable flag on every registered column.
func (t *Table) Searchable(on bool) *Table {
	for _, c := range t.columns.All() {
		c.Searchable = on
	}
	return t
}

// Orderable sets the orderable flag on every registered column.
func (t *Table) Orderable(on bool) *Table {
	for _, c := range t.columns.All() {
		c.Orderable = on
	}
	return t
}

// Exportable enables or disables exports.
func (t *Table) Exportable(on bool) *Table {
	t.exportable = on
	return t
}

// Responsive toggles the client's responsive layout.
func (t *Table) Responsive(on bool) *Table {
	t.widget.Responsive = on
	return t
}

// PersistState makes the client persist column state under key.
func (t *Table) PersistState(key string) *Table {
	t.widget.PersistKey = key
	return t
}

// VirtualScroll toggles client-side virtual scrolling.
func (t *Table) VirtualScroll(on bool) *Table {
	t.widget.VirtualScroll = on
	return t
}

// Realtime toggles client-side polling for fresh data.
func (t *Table) Realtime(on bool) *Table {
	t.widget.Realtime = on
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Columns returns the column registry.
func (t *Table) Columns() *core.Columns { return t.columns }

// Filters returns the filters in declaration order.
func (t *Table) Filters() []*core.Filter { return t.filters }

// Whitelist returns the request whitelist.
func (t *Table) Whitelist() *core.Whitelist { return t.whitelist }

// Options returns the request-handling options.
func (t *Table) Options() Options { return t.opts }

// IsExportable reports whether exports are enabled.
func (t *Table) IsExportable() bool { return t.exportable }

// ClientConfig describes the table for the client widget.
type ClientConfig struct {
	Name          string           `json:"name"`
	Columns       []map[string]any `json:"columns"`
	Filters       []map[string]any `json:"filters"`
	PageLength    int              `json:"page_length"`
	MaxPageLength int              `json:"max_page_length"`
	Searchable    bool             `json:"searchable"`
	Exportable    bool             `json:"exportable"`
	Widget
}

// ClientConfig returns the client widget description of the table.
func (t *Table) ClientConfig() ClientConfig {
	cfg := ClientConfig{
		Name:          t.name,
		Columns:       make([]map[string]any, 0, t.columns.Len()),
		Filters:       make([]map[string]any, 0, len(t.filters)),
		PageLength:    t.opts.PageLength,
		MaxPageLength: t.opts.MaxPageLength,
		Searchable:    t.opts.GlobalSearch && len(t.columns.Searchable()) > 0,
		Exportable:    t.exportable,
		Widget:        t.widget,
	}
	for _, c := range t.columns.All() {
		cfg.Columns = append(cfg.Columns, c.Definition())
	}
	for _, f := range t.filters {
		cfg.Filters = append(cfg.Filters, f.Definition())
	}
	return cfg
}

// newEngine asks the source for an engine scoped to cols.
func (t *Table) newEngine(cols *core.Columns) (core.Engine, error) {
	if t.source == nil {
		return nil, core.ErrNoDataSource
	}
	e, err := t.source.NewEngine(cols)
	if err != nil {
		return nil, err
	}
	if p, ok := e.(core.Preloader); ok && len(t.with) > 0 {
		p.Preload(t.with...)
	}
	if c, ok := e.(core.Chunker); ok && t.opts.ChunkSize > 0 {
		c.SetChunkSize(t.opts.ChunkSize)
	}
	return e, nil
}
