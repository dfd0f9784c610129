package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/pkg/adapter"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

func connect(t *testing.T, cfg adapter.Config) *Adapter {
	t.Helper()
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), cfg))
	t.Cleanup(func() { _ = adp.Close() })
	return adp
}

func TestAdapter_Connect(t *testing.T) {
	t.Run("in-memory by default", func(t *testing.T) {
		adp := connect(t, adapter.Config{})
		assert.True(t, adp.IsConnected())
		assert.Equal(t, sqlq.SQLite, adp.Dialect())
	})

	t.Run("file-based", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.db")
		adp := connect(t, adapter.Config{Path: path})
		require.NoError(t, adp.Exec(context.Background(), "CREATE TABLE t (id INTEGER)"))
		_, err := os.Stat(path)
		assert.NoError(t, err)
	})
}

func TestAdapter_LoadCSVAndMetadata(t *testing.T) {
	ctx := context.Background()
	csvPath := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("id,customer,total\n1,Ann,10.5\n2,\"Bob, Jr\",20\n"), 0o600))

	adp := connect(t, adapter.Config{})
	require.NoError(t, adp.LoadCSV(ctx, "orders", csvPath))
	// Loading twice replaces the table.
	require.NoError(t, adp.LoadCSV(ctx, "orders", csvPath))

	tables, err := adp.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, tables)

	meta, err := adp.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), meta.RowCount)
	assert.Equal(t, []adapter.Column{
		{Name: "id", Type: "TEXT", Nullable: true, Position: 1},
		{Name: "customer", Type: "TEXT", Nullable: true, Position: 2},
		{Name: "total", Type: "TEXT", Nullable: true, Position: 3},
	}, meta.Columns)

	rows, err := sqlq.Query(ctx, adp.Conn(), adp.Dialect(), sqlq.From("orders").Where(sqlq.Eq(sqlq.Col("orders", "id"), sqlq.Val("2"))))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob, Jr", rows[0]["customer"])
}

func TestAdapter_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("not connected", func(t *testing.T) {
		adp := New(nil)
		_, err := adp.ListTables(ctx)
		assert.ErrorContains(t, err, "not established")
		_, err = adp.GetTableMetadata(ctx, "x")
		assert.ErrorContains(t, err, "not established")
		assert.ErrorContains(t, adp.LoadCSV(ctx, "x", "x.csv"), "not established")
	})

	t.Run("missing table", func(t *testing.T) {
		adp := connect(t, adapter.Config{})
		_, err := adp.GetTableMetadata(ctx, "nope")
		assert.ErrorContains(t, err, "table nope not found")
	})

	t.Run("missing csv", func(t *testing.T) {
		adp := connect(t, adapter.Config{})
		err := adp.LoadCSV(ctx, "x", filepath.Join(t.TempDir(), "missing.csv"))
		assert.ErrorContains(t, err, "failed to open CSV file")
	})

	t.Run("ragged csv rolls back", func(t *testing.T) {
		csvPath := filepath.Join(t.TempDir(), "bad.csv")
		require.NoError(t, os.WriteFile(csvPath, []byte("a,b\n1,2\n3\n"), 0o600))
		adp := connect(t, adapter.Config{})
		err := adp.LoadCSV(ctx, "bad", csvPath)
		assert.ErrorContains(t, err, "failed to read CSV record")

		tables, err := adp.ListTables(ctx)
		require.NoError(t, err)
		assert.Empty(t, tables)
	})
}

func TestAdapter_Registered(t *testing.T) {
	factory, ok := adapter.Get("sqlite")
	require.True(t, ok)
	_, ok = factory(nil).(*Adapter)
	assert.True(t, ok)
}
