package collection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

func people() []core.Row {
	return []core.Row{
		{"id": 1, "name": "John Doe", "age": 30, "city": "Oslo", "joined": "2024-01-10", "profile": core.Row{"bio": "Gopher"}},
		{"id": 2, "name": "Jane Smith", "age": 25, "city": "Bergen", "joined": "2024-02-15"},
		{"id": 3, "name": "Bob Johnson", "age": 30, "city": "Oslo", "joined": "2024-03-20", "profile": core.Row{"bio": "Writer"}},
	}
}

func peopleColumns() *core.Columns {
	return core.NewColumns(
		core.NewColumn("name", "Name", core.Searchable(), core.Orderable()),
		core.NewColumn("age", "Age", core.Orderable()),
		core.NewColumn("city", "City", core.Searchable()),
		core.NewColumn("bio", "Bio", core.Relation("profile"), core.Searchable(), core.Orderable(), core.Default("n/a")),
	)
}

func names(rows []core.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["name"].(string))
	}
	return out
}

func TestEngine_TextFilterMatchesSubstringIgnoringCase(t *testing.T) {
	ctx := context.Background()
	e := New(people(), peopleColumns())

	e.ApplyFilters([]core.ActiveFilter{{Key: "name", Type: core.FilterText, Value: "john"}})

	page, err := e.Paginate(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"John Doe", "Bob Johnson"}, names(page.Rows))
	assert.Equal(t, int64(2), page.Filtered)
	assert.Equal(t, int64(3), page.Total)
}

func TestEngine_FilterTypes(t *testing.T) {
	tests := []struct {
		name   string
		filter core.ActiveFilter
		want   []string
	}{
		{
			name:   "select uses loose equality",
			filter: core.ActiveFilter{Key: "age", Type: core.FilterSelect, Value: "30"},
			want:   []string{"John Doe", "Bob Johnson"},
		},
		{
			name:   "date range inclusive",
			filter: core.ActiveFilter{Key: "joined", Type: core.FilterDateRange, Value: map[string]any{"from": "2024-01-10", "to": "2024-02-15"}},
			want:   []string{"John Doe", "Jane Smith"},
		},
		{
			name:   "date range missing bound is skipped",
			filter: core.ActiveFilter{Key: "joined", Type: core.FilterDateRange, Value: map[string]any{"from": "2024-03-01"}},
			want:   []string{"John Doe", "Jane Smith", "Bob Johnson"},
		},
		{
			name:   "numeric range max only",
			filter: core.ActiveFilter{Key: "age", Type: core.FilterNumericRange, Value: map[string]any{"max": "26"}},
			want:   []string{"Jane Smith"},
		},
		{
			name:   "numeric range given scalar is a no-op",
			filter: core.ActiveFilter{Key: "age", Type: core.FilterNumericRange, Value: "26"},
			want:   []string{"John Doe", "Jane Smith", "Bob Johnson"},
		},
		{
			name:   "relation filter falls back to default",
			filter: core.ActiveFilter{Key: "bio", Type: core.FilterText, Value: "n/a"},
			want:   []string{"Jane Smith"},
		},
		{
			name: "row predicate replaces default behaviour",
			filter: core.ActiveFilter{Key: "city", Type: core.FilterText, Value: "ignored", Rows: func(row core.Row, _ any) bool {
				return row["city"] == "Bergen"
			}},
			want: []string{"Jane Smith"},
		},
		{
			name:   "unknown filter type is ignored",
			filter: core.ActiveFilter{Key: "city", Type: core.FilterType("regex"), Value: ".*"},
			want:   []string{"John Doe", "Jane Smith", "Bob Johnson"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(people(), peopleColumns())
			e.ApplyFilters([]core.ActiveFilter{tt.filter})
			rows, err := e.All(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestEngine_NumericRangeOneSidedBound(t *testing.T) {
	rows := []core.Row{{"n": 5}, {"n": 10}, {"n": 15}}
	e := New(rows, core.NewColumns(core.NewColumn("n", "N")))

	e.ApplyFilters([]core.ActiveFilter{{Key: "n", Type: core.FilterNumericRange, Value: map[string]any{"min": 10}}})

	got, err := e.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []core.Row{{"n": 10}, {"n": 15}}, got)
}

func TestEngine_GlobalSearch(t *testing.T) {
	t.Run("matches any searchable column including relations", func(t *testing.T) {
		e := New(people(), peopleColumns())
		e.ApplyGlobalSearch("WRITER")
		rows, err := e.All(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Bob Johnson"}, names(rows))
	})

	t.Run("no searchable columns is a no-op", func(t *testing.T) {
		e := New(people(), core.NewColumns(core.NewColumn("name", "Name")))
		e.ApplyGlobalSearch("zzz")
		rows, err := e.All(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})
}

func TestEngine_Ordering(t *testing.T) {
	tests := []struct {
		name   string
		orders []core.Order
		want   []string
	}{
		{"single desc", []core.Order{{Column: "name", Dir: core.Desc}}, []string{"John Doe", "Jane Smith", "Bob Johnson"}},
		{"later keys break ties", []core.Order{{Column: "age", Dir: core.Desc}, {Column: "name", Dir: core.Asc}}, []string{"Bob Johnson", "John Doe", "Jane Smith"}},
		{"non orderable column skipped", []core.Order{{Column: "city", Dir: core.Asc}}, []string{"John Doe", "Jane Smith", "Bob Johnson"}},
		{"unknown column skipped", []core.Order{{Column: "nope", Dir: core.Asc}}, []string{"John Doe", "Jane Smith", "Bob Johnson"}},
		{"relation uses default for missing rows", []core.Order{{Column: "bio", Dir: core.Asc}}, []string{"John Doe", "Bob Johnson", "Jane Smith"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(people(), peopleColumns())
			e.ApplyOrdering(tt.orders)
			rows, err := e.All(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(rows))
		})
	}
}

func TestEngine_CountInvariants(t *testing.T) {
	ctx := context.Background()
	e := New(people(), peopleColumns())

	e.ApplyFilters([]core.ActiveFilter{{Key: "city", Type: core.FilterSelect, Value: "Oslo"}})
	e.ApplyGlobalSearch("john")
	e.ApplyFilters([]core.ActiveFilter{{Key: "age", Type: core.FilterNumericRange, Value: map[string]any{"min": 1}}})

	total, err := e.TotalCount(ctx)
	require.NoError(t, err)
	filtered, err := e.FilteredCount(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), filtered)
	assert.LessOrEqual(t, filtered, total)
}

func TestEngine_PaginationIsIdempotentAcrossInstances(t *testing.T) {
	ctx := context.Background()
	run := func() *core.Page {
		e := New(people(), peopleColumns())
		e.ApplyOrdering([]core.Order{{Column: "name", Dir: core.Asc}})
		page, err := e.Paginate(ctx, 0, 2)
		require.NoError(t, err)
		return page
	}

	first, second := run(), run()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"Bob Johnson", "Jane Smith"}, names(first.Rows))
}

func TestEngine_PaginateWindow(t *testing.T) {
	ctx := context.Background()
	e := New(people(), peopleColumns())

	page, err := e.Paginate(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Johnson"}, names(page.Rows))
	assert.Equal(t, int64(3), page.Filtered)

	page, err = e.Paginate(ctx, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Rows)
}

func TestEngine_DoesNotMutateSource(t *testing.T) {
	rows := people()
	e := New(rows, peopleColumns())
	e.ApplyFilters([]core.ActiveFilter{{Key: "name", Type: core.FilterText, Value: "jane"}})
	e.ApplyOrdering([]core.Order{{Column: "name", Dir: core.Desc}})

	assert.Equal(t, []string{"John Doe", "Jane Smith", "Bob Johnson"}, names(rows))
}

func TestFromStructs(t *testing.T) {
	type product struct {
		SKU   string  `mapstructure:"sku"`
		Price float64 `mapstructure:"price"`
	}

	rows, err := FromStructs([]product{{SKU: "A-1", Price: 9.5}, {SKU: "B-2", Price: 12}})
	require.NoError(t, err)
	assert.Equal(t, []core.Row{
		{"sku": "A-1", "price": 9.5},
		{"sku": "B-2", "price": float64(12)},
	}, rows)
}
