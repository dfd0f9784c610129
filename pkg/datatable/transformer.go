package datatable

import (
	"html"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Transformer maps engine rows to client output.
type Transformer struct {
	cols       []*core.Column
	escape     bool
	skipRender bool
}

// NewTransformer returns a transformer over cols. With escape set, string
// values of non-raw columns are HTML-escaped.
func NewTransformer(cols []*core.Column, escape bool) *Transformer {
	return &Transformer{cols: cols, escape: escape}
}

// newExportTransformer extracts and formats values for encoders. Render
// transforms and escaping are presentation concerns and are skipped.
func newExportTransformer(cols []*core.Column) *Transformer {
	return &Transformer{cols: cols, skipRender: true}
}

// Transform maps every row. The result is never nil.
func (t *Transformer) Transform(rows []core.Row) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, t.Row(row))
	}
	return out
}

// Row maps one row to column key -> output value.
func (t *Transformer) Row(row core.Row) map[string]any {
	out := make(map[string]any, len(t.cols))
	for _, col := range t.cols {
		v := Extract(row, col)
		if col.Render != nil && !t.skipRender {
			v = col.Render(v, row)
		}
		if col.Format != nil {
			v = col.Format(v, row)
		}
		if s, ok := v.(string); ok && t.escape && !col.Raw {
			v = html.EscapeString(s)
		}
		out[col.Key] = v
	}
	return out
}

// Extract reads col's raw value from row. Relation columns walk their
// path and fall back to the column default as soon as a hop is missing.
func Extract(row core.Row, col *core.Column) any {
	if col.Relation == "" {
		if v, ok := row[col.FieldName()]; ok && v != nil {
			return v
		}
		return col.Default
	}
	if v, ok := core.Lookup(row, col.Path()); ok {
		return v
	}
	return col.Default
}
