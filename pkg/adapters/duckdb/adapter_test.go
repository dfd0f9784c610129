package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/pkg/adapter"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/engines/sqlquery"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		verify    func(t *testing.T, path string)
	}{
		{
			name:      "in-memory",
			setupPath: func(_ *testing.T) string { return ":memory:" },
		},
		{
			name: "file-based",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			require.NoError(t, adp.Connect(ctx, adapter.Config{Path: dbPath}))
			defer func() { _ = adp.Close() }()

			assert.True(t, adp.IsConnected())
			assert.Equal(t, sqlq.DuckDB, adp.Dialect())
			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	_, err := adp.ListTables(ctx)
	assert.Error(t, err)
	_, err = adp.GetTableMetadata(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, adp.LoadCSV(ctx, "x", "x.csv"))
}

func TestAdapter_InvalidParams(t *testing.T) {
	adp := New(nil)
	err := adp.Connect(context.Background(), adapter.Config{Params: map[string]any{"extensions": 42}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duckdb params")
}

func TestAdapter_LoadCSVAndQuery(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "people.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,name,age\n1,John Doe,30\n2,Jane Smith,25\n3,Bob Johnson,41\n"), 0o600))

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Path:   ":memory:",
		Params: map[string]any{"settings": map[string]any{"threads": "1"}},
	}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.LoadCSV(ctx, "people", csvPath))

	tables, err := adp.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"people"}, tables)

	meta, err := adp.GetTableMetadata(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.RowCount)
	assert.Len(t, meta.Columns, 3)

	cols := core.NewColumns(
		core.NewColumn("name", "Name", core.Searchable(), core.Orderable()),
		core.NewColumn("age", "Age", core.Orderable()),
	)
	e, err := sqlquery.NewSource(adp.Conn(), adp.Dialect(), "people").NewEngine(cols)
	require.NoError(t, err)
	e.ApplyGlobalSearch("john")
	e.ApplyOrdering([]core.Order{{Column: "age", Dir: core.Desc}})

	page, err := e.Paginate(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, page.Rows, 2)
	assert.Equal(t, "Bob Johnson", page.Rows[0]["name"])
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, int64(2), page.Filtered)
}

func TestAdapter_FileViews(t *testing.T) {
	ctx := context.Background()
	csvPath := filepath.Join(t.TempDir(), "cities.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("city\nOslo\nBergen\n"), 0o600))

	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, adapter.Config{
		Params: map[string]any{"files": map[string]any{"cities": csvPath}},
	}))
	defer func() { _ = adp.Close() }()

	n, err := sqlq.Count(ctx, adp.Conn(), adp.Dialect(), sqlq.From("cities"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
