package duckdb

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs", "json")
	Extensions []string `mapstructure:"extensions"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`

	// Files registered as views at connect time, keyed by view name.
	// Values are anything DuckDB can scan: CSV, Parquet or JSON paths.
	Files map[string]string `mapstructure:"files"`
}
