package core

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RenderFunc transforms a column value. It receives the extracted value
// and the full source row.
type RenderFunc func(value any, row Row) any

// Column describes one output field of a table.
//
// Columns are built once when a table is defined and must not be mutated
// while requests are being served.
type Column struct {
	Key            string
	Label          string
	Field          string // attribute read from the (related) row; defaults to Key
	Searchable     bool
	Orderable      bool
	Relation       string // dot-separated relation path, e.g. "author.profile"
	Render         RenderFunc
	ClientRenderer string // name of a renderer implemented by the client widget
	Raw            bool
	Default        any
	Format         RenderFunc
	Visible        bool
	Exportable     bool
	Attributes     map[string]any
}

// ColumnOption configures a Column.
type ColumnOption func(*Column)

// NewColumn creates a column. An empty label is derived from the key.
func NewColumn(key, label string, opts ...ColumnOption) *Column {
	if label == "" {
		label = LabelFromKey(key)
	}
	c := &Column{
		Key:        key,
		Label:      label,
		Visible:    true,
		Exportable: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Searchable includes the column in global search.
func Searchable() ColumnOption { return func(c *Column) { c.Searchable = true } }

// Orderable allows the client to sort by the column.
func Orderable() ColumnOption { return func(c *Column) { c.Orderable = true } }

// Relation reads the column through a relation path.
func Relation(path string) ColumnOption { return func(c *Column) { c.Relation = path } }

// Field sets the attribute name read from the row when it differs from the key.
func Field(name string) ColumnOption { return func(c *Column) { c.Field = name } }

// Render sets a server-side render transform and clears any client renderer.
func Render(fn RenderFunc) ColumnOption {
	return func(c *Column) {
		c.Render = fn
		c.ClientRenderer = ""
	}
}

// ClientRender names a client-side renderer and clears any server render.
func ClientRender(name string) ColumnOption {
	return func(c *Column) {
		c.ClientRenderer = name
		c.Render = nil
	}
}

// Raw disables output escaping for the column.
func Raw() ColumnOption { return func(c *Column) { c.Raw = true } }

// Default sets the value used when the column's value cannot be resolved.
func Default(v any) ColumnOption { return func(c *Column) { c.Default = v } }

// Format sets a transform applied after Render.
func Format(fn RenderFunc) ColumnOption { return func(c *Column) { c.Format = fn } }

// Hidden hides the column in the client widget.
func Hidden() ColumnOption { return func(c *Column) { c.Visible = false } }

// NoExport leaves the column out of exports.
func NoExport() ColumnOption { return func(c *Column) { c.Exportable = false } }

// Attr sets a free-form attribute passed through to the client widget.
func Attr(key string, value any) ColumnOption {
	return func(c *Column) {
		if c.Attributes == nil {
			c.Attributes = make(map[string]any)
		}
		c.Attributes[key] = value
	}
}

// FieldName returns the attribute read from the row.
func (c *Column) FieldName() string {
	if c.Field != "" {
		return c.Field
	}
	return c.Key
}

// Path returns the full dot path of the column's value within a row.
func (c *Column) Path() string {
	if c.Relation == "" {
		return c.FieldName()
	}
	return c.Relation + "." + c.FieldName()
}

// Definition returns the client-facing description of the column.
func (c *Column) Definition() map[string]any {
	def := map[string]any{
		"key":        c.Key,
		"label":      c.Label,
		"searchable": c.Searchable,
		"orderable":  c.Orderable,
		"visible":    c.Visible,
		"exportable": c.Exportable,
		"raw":        c.Raw,
	}
	if c.Relation != "" {
		def["relationship"] = c.Relation
	}
	if c.ClientRenderer != "" {
		def["renderer"] = c.ClientRenderer
	}
	if len(c.Attributes) > 0 {
		def["attributes"] = c.Attributes
	}
	return def
}

// LabelFromKey turns "created_at" into "Created At".
func LabelFromKey(key string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(key))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
