// Package sqlquery implements the table engine over a flat SQL table or
// subquery. Relation-qualified columns are not supported and are ignored.
package sqlquery

import (
	"context"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// Engine drives one SELECT statement through the table pipeline.
type Engine struct {
	db       sqlq.Querier
	dialect  *sqlq.Dialect
	cols     *core.Columns
	pristine *sqlq.Select
	working  *sqlq.Select
	counts   core.Counts
}

// New creates an engine over base. base is cloned; the caller's statement
// is never modified.
func New(db sqlq.Querier, d *sqlq.Dialect, base *sqlq.Select, cols *core.Columns) *Engine {
	if cols == nil {
		cols = core.NewColumns()
	}
	return &Engine{
		db:       db,
		dialect:  d,
		cols:     cols,
		pristine: base.Clone(),
		working:  base.Clone(),
	}
}

// NewSource returns a source over a table.
func NewSource(db sqlq.Querier, d *sqlq.Dialect, table string) core.Source {
	return core.SourceFunc(func(cols *core.Columns) (core.Engine, error) {
		return New(db, d, sqlq.From(table), cols), nil
	})
}

// NewQuerySource returns a source over a raw SELECT, aliased as "q".
func NewQuerySource(db sqlq.Querier, d *sqlq.Dialect, query string, args ...any) core.Source {
	return core.SourceFunc(func(cols *core.Columns) (core.Engine, error) {
		return New(db, d, sqlq.FromQuery(query, "q", args...), cols), nil
	})
}

// ApplyFilters adds one condition per applicable filter.
func (e *Engine) ApplyFilters(filters []core.ActiveFilter) {
	for _, f := range filters {
		if f.Query != nil {
			f.Query(e.working, f.Value)
			e.counts.Invalidate()
			continue
		}
		field, ok := e.field(f.Key)
		if !ok {
			continue
		}
		if cond := Predicate(sqlq.Col(e.working.Source(), field), f.Type, f.Value); cond != nil {
			e.working.Where(cond)
			e.counts.Invalidate()
		}
	}
}

// ApplyGlobalSearch ORs a substring match across the searchable columns.
func (e *Engine) ApplyGlobalSearch(text string) {
	if text == "" {
		return
	}
	var conds []sqlq.Expr
	for _, col := range e.cols.Searchable() {
		if col.Relation != "" {
			continue
		}
		conds = append(conds, sqlq.ContainsFold(sqlq.Col(e.working.Source(), col.FieldName()), text))
	}
	if len(conds) == 0 {
		return
	}
	e.working.Where(sqlq.Or(conds...))
	e.counts.Invalidate()
}

// ApplyOrdering appends ORDER BY terms for orderable columns.
func (e *Engine) ApplyOrdering(orders []core.Order) {
	for _, o := range orders {
		col := e.cols.Get(o.Column)
		if col == nil || !col.Orderable || col.Relation != "" {
			continue
		}
		e.working.OrderBy(sqlq.Col(e.working.Source(), col.FieldName()), o.Dir == core.Desc)
	}
}

// Paginate counts, then fetches one window of rows.
func (e *Engine) Paginate(ctx context.Context, offset, limit int) (*core.Page, error) {
	total, err := e.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	filtered, err := e.FilteredCount(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := sqlq.Query(ctx, e.db, e.dialect, e.working.Clone().Limit(limit).Offset(max(offset, 0)))
	if err != nil {
		return nil, err
	}
	return &core.Page{Rows: rows, Total: total, Filtered: filtered}, nil
}

// All fetches every matching row.
func (e *Engine) All(ctx context.Context) ([]core.Row, error) {
	return sqlq.Query(ctx, e.db, e.dialect, e.working)
}

// TotalCount counts the unfiltered statement.
func (e *Engine) TotalCount(ctx context.Context) (int64, error) {
	return e.counts.Total(ctx, func(ctx context.Context) (int64, error) {
		return sqlq.Count(ctx, e.db, e.dialect, e.pristine)
	})
}

// FilteredCount counts the working statement.
func (e *Engine) FilteredCount(ctx context.Context) (int64, error) {
	return e.counts.Filtered(ctx, func(ctx context.Context) (int64, error) {
		return sqlq.Count(ctx, e.db, e.dialect, e.working)
	})
}

// Statement returns a copy of the working statement.
func (e *Engine) Statement() *sqlq.Select {
	return e.working.Clone()
}

func (e *Engine) field(key string) (string, bool) {
	col := e.cols.Get(key)
	if col == nil {
		return key, true
	}
	if col.Relation != "" {
		return "", false
	}
	return col.FieldName(), true
}
