// Package adapter defines the database connections that back SQL table
// sources.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init(); import them with a blank identifier.
package adapter

import (
	"context"
	"database/sql"

	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// Config describes one database target.
type Config struct {
	Type     string            `koanf:"type"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// Column describes one column of a database table.
type Column struct {
	Name     string
	Type     string
	Nullable bool
	Position int
}

// Metadata describes a database table.
type Metadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// Adapter is an open database connection plus the knowledge needed to
// build queries for it.
type Adapter interface {
	// Connect establishes a connection to the database using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the database connection and releases resources.
	Close() error

	// Conn returns the connection pool used by table engines.
	Conn() *sql.DB

	// Dialect returns the quoting and placeholder rules of the database.
	Dialect() *sqlq.Dialect

	// ListTables returns the user tables of the default schema.
	ListTables(ctx context.Context) ([]string, error)

	// GetTableMetadata retrieves metadata for a specified table.
	GetTableMetadata(ctx context.Context, table string) (*Metadata, error)

	// LoadCSV loads a CSV file into a table, replacing it.
	LoadCSV(ctx context.Context, tableName string, filePath string) error
}
