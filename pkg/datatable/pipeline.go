package datatable

import (
	"context"
	"slices"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Response is the payload returned to the client widget.
type Response struct {
	Draw            int              `json:"draw"`
	RecordsTotal    int64            `json:"recordsTotal"`
	RecordsFiltered int64            `json:"recordsFiltered"`
	Data            []map[string]any `json:"data"`
}

// query is a request after clamping, order resolution and validation.
type query struct {
	draw    int
	start   int
	length  int
	search  string
	orders  []core.Order
	filters []core.ActiveFilter
}

// Run executes one request: filters, then search, then ordering, then
// pagination and transformation. Validation failures are returned before
// an engine is created.
func (t *Table) Run(ctx context.Context, req Request) (*Response, error) {
	if t.source == nil {
		return nil, core.ErrNoDataSource
	}
	q, err := t.prepare(req)
	if err != nil {
		return nil, err
	}

	engine, err := t.newEngine(t.columns)
	if err != nil {
		return nil, err
	}
	t.apply(engine, q)

	page, err := engine.Paginate(ctx, q.start, q.length)
	if err != nil {
		return nil, err
	}

	return &Response{
		Draw:            q.draw,
		RecordsTotal:    page.Total,
		RecordsFiltered: page.Filtered,
		Data:            NewTransformer(t.columns.All(), t.opts.Escape).Transform(page.Rows),
	}, nil
}

// prepare clamps the window, resolves order indexes, collects the applied
// filters and validates everything against the whitelist.
func (t *Table) prepare(req Request) (*query, error) {
	q := &query{
		draw:   1,
		start:  max(req.Start, 0),
		length: req.Length,
		search: req.Search,
	}
	// The draw token is echoed as sent; only a missing or negative one
	// falls back to 1.
	if req.Draw != nil && *req.Draw >= 0 {
		q.draw = *req.Draw
	}
	if q.length <= 0 {
		q.length = t.opts.PageLength
	}
	q.length = min(q.length, t.opts.MaxPageLength)

	all := t.columns.All()
	for _, o := range req.Order {
		if o.Column < 0 || o.Column >= len(all) {
			continue
		}
		col := all[o.Column]
		if !col.Orderable {
			continue
		}
		q.orders = append(q.orders, core.Order{Column: col.Key, Dir: core.ParseDirection(o.Dir)})
	}

	for _, f := range t.filters {
		v, ok := req.Filters[f.Key]
		if !ok || core.IsBlank(v) {
			continue
		}
		q.filters = append(q.filters, core.ActiveFilter{
			Key:   f.Key,
			Type:  f.Type,
			Value: v,
			Query: f.Query,
			Rows:  f.Rows,
		})
	}

	if err := t.validate(req, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (t *Table) validate(req Request, q *query) error {
	keys := make([]string, 0, len(req.Filters))
	for k := range req.Filters {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := t.filterKeys[k]; !ok && !core.IsBlank(req.Filters[k]) {
			return &core.ValidationError{Kind: core.InvalidFilter, Key: k}
		}
	}

	for _, f := range q.filters {
		if col := t.columns.Get(f.Key); col != nil && col.Relation != "" && !t.whitelist.HasRelation(col.Relation) {
			return &core.ValidationError{Kind: core.InvalidRelation, Key: col.Relation}
		}
	}

	for _, o := range q.orders {
		if !t.whitelist.HasColumn(o.Column) {
			return &core.ValidationError{Kind: core.InvalidColumn, Key: o.Column}
		}
		if col := t.columns.Get(o.Column); col.Relation != "" && !t.whitelist.HasRelation(col.Relation) {
			return &core.ValidationError{Kind: core.InvalidRelation, Key: col.Relation}
		}
	}
	return nil
}

// apply runs filters, search and ordering in that order.
func (t *Table) apply(engine core.Engine, q *query) {
	if len(q.filters) > 0 {
		engine.ApplyFilters(q.filters)
	}
	if q.search != "" && t.opts.GlobalSearch {
		engine.ApplyGlobalSearch(q.search)
	}
	if len(q.orders) > 0 {
		engine.ApplyOrdering(q.orders)
	}
}
