// Package collection implements the table engine over an in-memory set of
// rows.
package collection

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Engine filters, searches, sorts and pages a slice of rows.
type Engine struct {
	cols     *core.Columns
	pristine []core.Row
	working  []core.Row
	sortBy   []*sortKey
	counts   core.Counts
}

type sortKey struct {
	col  *core.Column
	desc bool
}

// New creates an engine over rows. The slice is not modified.
func New(rows []core.Row, cols *core.Columns) *Engine {
	if cols == nil {
		cols = core.NewColumns()
	}
	return &Engine{
		cols:     cols,
		pristine: rows,
		working:  slices.Clone(rows),
	}
}

// NewSource returns a source serving a fixed set of rows.
func NewSource(rows []core.Row) core.Source {
	return core.SourceFunc(func(cols *core.Columns) (core.Engine, error) {
		return New(rows, cols), nil
	})
}

// LoaderSource returns a source that loads its rows for every engine.
func LoaderSource(load func() ([]core.Row, error)) core.Source {
	return core.SourceFunc(func(cols *core.Columns) (core.Engine, error) {
		rows, err := load()
		if err != nil {
			return nil, err
		}
		return New(rows, cols), nil
	})
}

// ApplyFilters keeps the rows that pass every filter.
func (e *Engine) ApplyFilters(filters []core.ActiveFilter) {
	for _, f := range filters {
		match := e.matcher(f)
		if match == nil {
			continue
		}
		e.keep(match)
	}
}

func (e *Engine) matcher(f core.ActiveFilter) func(core.Row) bool {
	if f.Rows != nil {
		return func(row core.Row) bool { return f.Rows(row, f.Value) }
	}

	col := e.cols.Get(f.Key)
	get := func(row core.Row) any { return e.value(row, f.Key, col) }

	switch f.Type {
	case core.FilterText:
		needle := core.ToString(f.Value)
		return func(row core.Row) bool {
			return core.ContainsFold(core.ToString(get(row)), needle)
		}
	case core.FilterSelect:
		return func(row core.Row) bool { return looseEqual(get(row), f.Value) }
	case core.FilterDateRange:
		from, to, ok := core.DateRange(f.Value)
		if !ok {
			return nil
		}
		return func(row core.Row) bool {
			v := get(row)
			return compareDates(v, from) >= 0 && compareDates(v, to) <= 0
		}
	case core.FilterNumericRange:
		lo, hi := core.NumericRange(f.Value)
		if lo == nil && hi == nil {
			return nil
		}
		return func(row core.Row) bool {
			n, ok := core.ToFloat(get(row))
			if !ok {
				return false
			}
			return (lo == nil || n >= *lo) && (hi == nil || n <= *hi)
		}
	default:
		return nil
	}
}

// ApplyGlobalSearch keeps the rows where any searchable column contains text.
func (e *Engine) ApplyGlobalSearch(text string) {
	searchable := e.cols.Searchable()
	if len(searchable) == 0 || text == "" {
		return
	}
	e.keep(func(row core.Row) bool {
		for _, col := range searchable {
			if core.ContainsFold(core.ToString(e.value(row, col.Key, col)), text) {
				return true
			}
		}
		return false
	})
}

// ApplyOrdering appends sort keys and re-sorts the working set. Earlier
// keys take precedence over later ones.
func (e *Engine) ApplyOrdering(orders []core.Order) {
	added := false
	for _, o := range orders {
		col := e.cols.Get(o.Column)
		if col == nil || !col.Orderable {
			continue
		}
		e.sortBy = append(e.sortBy, &sortKey{col: col, desc: o.Dir == core.Desc})
		added = true
	}
	if !added {
		return
	}
	slices.SortStableFunc(e.working, func(a, b core.Row) int {
		for _, k := range e.sortBy {
			c := compareValues(e.value(a, k.col.Key, k.col), e.value(b, k.col.Key, k.col))
			if c == 0 {
				continue
			}
			if k.desc {
				return -c
			}
			return c
		}
		return 0
	})
}

// Paginate returns up to limit rows starting at offset.
func (e *Engine) Paginate(ctx context.Context, offset, limit int) (*core.Page, error) {
	total, err := e.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	filtered, err := e.FilteredCount(ctx)
	if err != nil {
		return nil, err
	}

	offset = max(offset, 0)
	start := min(offset, len(e.working))
	end := len(e.working)
	if limit >= 0 {
		end = min(start+limit, end)
	}

	return &core.Page{
		Rows:     slices.Clone(e.working[start:end]),
		Total:    total,
		Filtered: filtered,
	}, nil
}

// All returns every row in the working set.
func (e *Engine) All(_ context.Context) ([]core.Row, error) {
	return slices.Clone(e.working), nil
}

// TotalCount returns the number of rows before filtering.
func (e *Engine) TotalCount(ctx context.Context) (int64, error) {
	return e.counts.Total(ctx, func(context.Context) (int64, error) {
		return int64(len(e.pristine)), nil
	})
}

// FilteredCount returns the number of rows after filters and search.
func (e *Engine) FilteredCount(ctx context.Context) (int64, error) {
	return e.counts.Filtered(ctx, func(context.Context) (int64, error) {
		return int64(len(e.working)), nil
	})
}

func (e *Engine) keep(match func(core.Row) bool) {
	e.working = slices.DeleteFunc(e.working, func(row core.Row) bool { return !match(row) })
	e.counts.Invalidate()
}

// value resolves the value a filter, search or sort key sees for row.
// Unresolvable relation paths yield the column default.
func (e *Engine) value(row core.Row, key string, col *core.Column) any {
	if col == nil {
		return row[key]
	}
	if col.Relation == "" {
		if v, ok := row[col.FieldName()]; ok {
			return v
		}
		return col.Default
	}
	if v, ok := core.Lookup(row, col.Path()); ok {
		return v
	}
	return col.Default
}

func looseEqual(a, b any) bool {
	if fa, ok := core.ToFloat(a); ok {
		if fb, ok := core.ToFloat(b); ok {
			return fa == fb
		}
	}
	if ba, ok := a.(bool); ok {
		return ba == truthy(b)
	}
	if bb, ok := b.(bool); ok {
		return bb == truthy(a)
	}
	return core.ToString(a) == core.ToString(b)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "0" && !strings.EqualFold(t, "false")
	case nil:
		return false
	default:
		f, ok := core.ToFloat(v)
		return ok && f != 0
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

func parseTime(v any) (time.Time, bool) {
	if t, ok := v.(time.Time); ok {
		return t, true
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareDates orders v against a bound, by time when both parse and by
// string otherwise.
func compareDates(v any, bound string) int {
	if tv, ok := parseTime(v); ok {
		if tb, ok := parseTime(bound); ok {
			return tv.Compare(tb)
		}
	}
	return strings.Compare(core.ToString(v), bound)
}

// compareValues orders two sort values. Nil sorts first.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if fa, ok := core.ToFloat(a); ok {
		if fb, ok := core.ToFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(core.ToString(a), core.ToString(b))
}
