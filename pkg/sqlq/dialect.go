package sqlq

import (
	"strconv"
	"strings"
)

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// Dialect captures the rendering differences between SQL engines.
type Dialect struct {
	Name        string
	Placeholder PlaceholderStyle
	Quote       string // opening identifier quote
	QuoteEnd    string // closing identifier quote
	Escape      string // replacement for QuoteEnd inside an identifier
}

// Built-in dialects.
var (
	SQLite   = &Dialect{Name: "sqlite", Placeholder: PlaceholderQuestion, Quote: `"`, QuoteEnd: `"`, Escape: `""`}
	DuckDB   = &Dialect{Name: "duckdb", Placeholder: PlaceholderQuestion, Quote: `"`, QuoteEnd: `"`, Escape: `""`}
	Postgres = &Dialect{Name: "postgres", Placeholder: PlaceholderDollar, Quote: `"`, QuoteEnd: `"`, Escape: `""`}
)

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default:
		return "?"
	}
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, d.QuoteEnd, d.Escape)
	return d.Quote + escaped + d.QuoteEnd
}

// DialectFor returns the built-in dialect with the given name, or nil.
func DialectFor(name string) *Dialect {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite
	case "duckdb":
		return DuckDB
	case "postgres", "postgresql", "pgx":
		return Postgres
	default:
		return nil
	}
}
