package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		table, schema, name string
	}{
		{"users", "main", "users"},
		{"sales.orders", "sales", "orders"},
	}
	for _, tt := range tests {
		schema, name := ParseQualifiedName(tt.table, "main")
		assert.Equal(t, tt.schema, schema)
		assert.Equal(t, tt.name, name)
	}
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	var b BaseSQLAdapter

	assert.False(t, b.IsConnected())
	assert.Nil(t, b.Conn())
	assert.NoError(t, b.Close())
	assert.Error(t, b.Exec(ctx, "SELECT 1"))
	_, err := b.ListTablesCommon(ctx, sqlq.Postgres, "public")
	assert.Error(t, err)
	_, err = b.GetTableMetadataCommon(ctx, "users", sqlq.Postgres, "public")
	assert.Error(t, err)
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+column_name.*FROM information_schema.columns\s+WHERE table_schema = \$1 AND table_name = \$2`).
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
			AddRow("id", "integer", "NO", 1).
			AddRow("email", "text", "YES", 2))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM \(SELECT \* FROM "public"."users"\) AS "count_q"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	b := BaseSQLAdapter{DB: db}
	meta, err := b.GetTableMetadataCommon(context.Background(), "users", sqlq.Postgres, "public")
	require.NoError(t, err)

	assert.Equal(t, "public", meta.Schema)
	assert.Equal(t, "users", meta.Name)
	assert.Equal(t, int64(42), meta.RowCount)
	assert.Equal(t, []Column{
		{Name: "id", Type: "integer", Nullable: false, Position: 1},
		{Name: "email", Type: "text", Nullable: true, Position: 2},
	}, meta.Columns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_MissingTable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`information_schema.columns`).
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	b := BaseSQLAdapter{DB: db}
	_, err = b.GetTableMetadataCommon(context.Background(), "ghost", sqlq.DuckDB, "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table ghost not found")
}

func TestBaseSQLAdapter_ListTablesCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT table_name FROM information_schema.tables\s+WHERE table_schema = \?`).
		WithArgs("main").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders").AddRow("users"))

	b := BaseSQLAdapter{DB: db}
	tables, err := b.ListTablesCommon(context.Background(), sqlq.DuckDB, "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"orders", "users"}, tables)
	assert.NoError(t, mock.ExpectationsWereMet())
}
