// Package relational implements the table engine over a relational model:
// a base table plus belongs-to, has-one and has-many relations that
// columns can read, filter, search and sort through.
package relational

import (
	"context"
	"fmt"
	"slices"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/engines/sqlquery"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// DefaultChunkSize is the number of keys per eager-load query.
const DefaultChunkSize = 1000

// Engine drives a SELECT over model.Table through the table pipeline.
type Engine struct {
	db       sqlq.Querier
	dialect  *sqlq.Dialect
	model    *Model
	cols     *core.Columns
	with     []string
	chunk    int
	pristine *sqlq.Select
	working  *sqlq.Select
	counts   core.Counts
	aliases  int
}

// New creates an engine. with lists relation paths to eager-load in
// addition to those the columns read through.
func New(db sqlq.Querier, d *sqlq.Dialect, model *Model, cols *core.Columns, with ...string) *Engine {
	if cols == nil {
		cols = core.NewColumns()
	}
	base := sqlq.From(model.Table).Columns(sqlq.Star(model.Table))
	return &Engine{
		db:       db,
		dialect:  d,
		model:    model,
		cols:     cols,
		with:     slices.Clone(with),
		pristine: base.Clone(),
		working:  base,
	}
}

// NewSource returns a source over model.
func NewSource(db sqlq.Querier, d *sqlq.Dialect, model *Model, with ...string) core.Source {
	return core.SourceFunc(func(cols *core.Columns) (core.Engine, error) {
		if err := model.Validate(); err != nil {
			return nil, fmt.Errorf("invalid model: %w", err)
		}
		return New(db, d, model, cols, with...), nil
	})
}

// Preload adds relation paths to eager-load.
func (e *Engine) Preload(paths ...string) {
	e.with = append(e.with, paths...)
}

// SetChunkSize bounds how many parent keys one eager-load query binds.
// n <= 0 restores DefaultChunkSize.
func (e *Engine) SetChunkSize(n int) {
	e.chunk = n
}

func (e *Engine) chunkSize() int {
	if e.chunk <= 0 {
		return DefaultChunkSize
	}
	return e.chunk
}

// ApplyFilters adds one condition per applicable filter. Filters on
// relation columns become correlated EXISTS subqueries.
func (e *Engine) ApplyFilters(filters []core.ActiveFilter) {
	for _, f := range filters {
		if f.Query != nil {
			f.Query(e.working, f.Value)
			e.counts.Invalidate()
			continue
		}

		col := e.cols.Get(f.Key)
		field := f.Key
		if col != nil {
			field = col.FieldName()
		}
		if sqlquery.Predicate(sqlq.Col("", field), f.Type, f.Value) == nil {
			continue
		}

		var cond sqlq.Expr
		if col == nil || col.Relation == "" {
			cond = sqlquery.Predicate(sqlq.Col(e.model.Table, field), f.Type, f.Value)
		} else {
			steps, err := e.model.resolve(col.Relation)
			if err != nil {
				continue
			}
			cond = e.existsThrough(steps, e.model.Table, func(alias string) sqlq.Expr {
				return sqlquery.Predicate(sqlq.Col(alias, field), f.Type, f.Value)
			})
		}
		e.working.Where(cond)
		e.counts.Invalidate()
	}
}

// ApplyGlobalSearch ORs a substring match across the searchable columns,
// reaching through relations with EXISTS.
func (e *Engine) ApplyGlobalSearch(text string) {
	if text == "" {
		return
	}
	var conds []sqlq.Expr
	for _, col := range e.cols.Searchable() {
		field := col.FieldName()
		if col.Relation == "" {
			conds = append(conds, sqlq.ContainsFold(sqlq.Col(e.model.Table, field), text))
			continue
		}
		steps, err := e.model.resolve(col.Relation)
		if err != nil {
			continue
		}
		conds = append(conds, e.existsThrough(steps, e.model.Table, func(alias string) sqlq.Expr {
			return sqlq.ContainsFold(sqlq.Col(alias, field), text)
		}))
	}
	if len(conds) == 0 {
		return
	}
	e.working.Where(sqlq.Or(conds...))
	e.counts.Invalidate()
}

// ApplyOrdering appends ORDER BY terms. A single belongs-to hop is joined
// as {related}_for_{relation}; anything else sorts by a correlated scalar
// subquery limited to one row, which is arbitrary when several match.
func (e *Engine) ApplyOrdering(orders []core.Order) {
	for _, o := range orders {
		col := e.cols.Get(o.Column)
		if col == nil || !col.Orderable {
			continue
		}
		desc := o.Dir == core.Desc
		field := col.FieldName()

		if col.Relation == "" {
			e.working.OrderBy(sqlq.Col(e.model.Table, field), desc)
			continue
		}

		steps, err := e.model.resolve(col.Relation)
		if err != nil {
			continue
		}

		if len(steps) == 1 && steps[0].rel.Kind == BelongsTo {
			st := steps[0]
			alias := st.rel.Model.Table + "_for_" + st.name
			if !e.working.HasJoin(alias) {
				e.working.LeftJoin(st.rel.Model.Table, alias, e.link(st, e.model.Table, alias))
			}
			e.working.OrderBy(sqlq.Col(alias, field), desc)
			continue
		}

		e.working.OrderBy(e.scalarThrough(steps, field), desc)
	}
}

// Paginate counts, fetches one window and eager-loads its relations.
func (e *Engine) Paginate(ctx context.Context, offset, limit int) (*core.Page, error) {
	total, err := e.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	filtered, err := e.FilteredCount(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := e.fetch(ctx, e.working.Clone().Limit(limit).Offset(max(offset, 0)))
	if err != nil {
		return nil, err
	}
	return &core.Page{Rows: rows, Total: total, Filtered: filtered}, nil
}

// All fetches every matching row with its relations.
func (e *Engine) All(ctx context.Context) ([]core.Row, error) {
	return e.fetch(ctx, e.working)
}

// TotalCount counts the base table.
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

func (e *Engine) fetch(ctx context.Context, s *sqlq.Select) ([]core.Row, error) {
	rows, err := sqlq.Query(ctx, e.db, e.dialect, s)
	if err != nil {
		return nil, err
	}
	if err := e.eagerLoad(ctx, e.model, rows, e.loadPaths()); err != nil {
		return nil, err
	}
	return rows, nil
}

func (e *Engine) alias(name string) string {
	e.aliases++
	return fmt.Sprintf("%s_%d", name, e.aliases)
}

// link joins the related side of st (as alias) to its parent (as parentAlias).
func (e *Engine) link(st step, parentAlias, alias string) sqlq.Expr {
	return sqlq.Eq(
		sqlq.Col(alias, st.rel.relatedColumn()),
		sqlq.Col(parentAlias, st.rel.parentColumn(st.parent)),
	)
}

// existsThrough nests one EXISTS per hop and applies leaf at the last one.
func (e *Engine) existsThrough(steps []step, parentAlias string, leaf func(alias string) sqlq.Expr) sqlq.Expr {
	st := steps[0]
	alias := e.alias(st.name)
	sub := sqlq.FromAs(st.rel.Model.Table, alias).
		Columns(sqlq.Raw("1")).
		Where(e.link(st, parentAlias, alias))
	if len(steps) == 1 {
		sub.Where(leaf(alias))
	} else {
		sub.Where(e.existsThrough(steps[1:], alias, leaf))
	}
	return sqlq.Exists(sub)
}

// scalarThrough selects field from the end of the path, correlated with
// the base row.
func (e *Engine) scalarThrough(steps []step, field string) *sqlq.Select {
	aliases := make([]string, len(steps))
	for i, st := range steps {
		aliases[i] = e.alias(st.name)
	}
	last := len(steps) - 1
	sub := sqlq.FromAs(steps[0].rel.Model.Table, aliases[0])
	for i := 1; i < len(steps); i++ {
		sub.Join(steps[i].rel.Model.Table, aliases[i], e.link(steps[i], aliases[i-1], aliases[i]))
	}
	return sub.
		Columns(sqlq.Col(aliases[last], field)).
		Where(e.link(steps[0], e.model.Table, aliases[0])).
		Limit(1)
}
