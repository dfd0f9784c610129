package core

import (
	"context"
	"strings"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection maps "asc" (any case) to Asc and anything else to Desc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), string(Asc)) {
		return Asc
	}
	return Desc
}

// Order is one sort key, resolved to a column key.
type Order struct {
	Column string    `json:"column"`
	Dir    Direction `json:"dir"`
}

// ActiveFilter is a filter with a value the client actually set.
type ActiveFilter struct {
	Key   string
	Type  FilterType
	Value any
	Query QueryPredicate
	Rows  RowPredicate
}

// Page is one window of rows plus the counts describing it.
type Page struct {
	Rows     []Row
	Total    int64
	Filtered int64
}

// Engine applies the table pipeline to one data source.
//
// An Engine is created for a single request or export and discarded
// afterwards. Apply calls mutate its working state in place; the total
// count always refers to the unfiltered source. Unknown keys and
// malformed filter values are ignored rather than reported.
type Engine interface {
	ApplyFilters(filters []ActiveFilter)
	ApplyGlobalSearch(text string)
	ApplyOrdering(orders []Order)
	Paginate(ctx context.Context, offset, limit int) (*Page, error)
	All(ctx context.Context) ([]Row, error)
	TotalCount(ctx context.Context) (int64, error)
	FilteredCount(ctx context.Context) (int64, error)
}

// Source creates engines. It is attached to a table definition once and
// asked for a fresh engine, scoped to cols, on every request.
type Source interface {
	NewEngine(cols *Columns) (Engine, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(cols *Columns) (Engine, error)

// NewEngine calls f(cols).
func (f SourceFunc) NewEngine(cols *Columns) (Engine, error) {
	return f(cols)
}

// Counts memoises the total and filtered counts of one engine instance.
type Counts struct {
	total       int64
	filtered    int64
	hasTotal    bool
	hasFiltered bool
}

// Total returns the memoised total, computing it on first use.
func (c *Counts) Total(ctx context.Context, compute func(context.Context) (int64, error)) (int64, error) {
	if c.hasTotal {
		return c.total, nil
	}
	n, err := compute(ctx)
	if err != nil {
		return 0, err
	}
	c.total, c.hasTotal = n, true
	return n, nil
}

// Filtered returns the memoised filtered count, computing it on first use.
func (c *Counts) Filtered(ctx context.Context, compute func(context.Context) (int64, error)) (int64, error) {
	if c.hasFiltered {
		return c.filtered, nil
	}
	n, err := compute(ctx)
	if err != nil {
		return 0, err
	}
	c.filtered, c.hasFiltered = n, true
	return n, nil
}

// Invalidate forgets the filtered count after the working state changed.
func (c *Counts) Invalidate() {
	c.hasFiltered = false
}

// Preloader is implemented by engines that can eager-load relation paths
// beyond those their columns read through.
type Preloader interface {
	Preload(paths ...string)
}

// Chunker is implemented by engines that batch secondary lookups, such as
// relation loading, into bounded chunks.
type Chunker interface {
	SetChunkSize(n int)
}
