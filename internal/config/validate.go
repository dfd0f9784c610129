package config

import (
	"errors"
	"fmt"
	"strings"
)

var validFilterTypes = map[string]bool{
	"text": true, "select": true, "date-range": true, "numeric-range": true,
}

// Validate checks the configuration for errors a table cannot be built
// from. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Datatable.MaxPageLength < 1 {
		errs = append(errs, fmt.Errorf("datatable.max_page_length must be positive"))
	}
	if c.Export.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("export.chunk_size must not be negative"))
	}
	switch c.Export.Disk {
	case "local", "minio":
	default:
		errs = append(errs, fmt.Errorf("export.disk must be local or minio, got %q", c.Export.Disk))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	for name, t := range c.Targets {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("target %s: %w", name, err))
		}
	}

	for _, name := range c.TableNames() {
		if err := c.validateTable(c.Tables[name]); err != nil {
			errs = append(errs, fmt.Errorf("table %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateTable(t TableConfig) error {
	sources := 0
	for _, set := range []bool{t.Table != "", t.Query != "", t.Model != nil, t.File != ""} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return fmt.Errorf("one of table, query, model or file is required")
	case sources > 1:
		return fmt.Errorf("table, query, model and file are mutually exclusive")
	}

	if t.File == "" {
		if t.Target == "" {
			return fmt.Errorf("target is required for database tables")
		}
		if _, ok := c.Targets[t.Target]; !ok {
			return fmt.Errorf("unknown target %q", t.Target)
		}
	}

	if len(t.Columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, col := range t.Columns {
		if col.Key == "" {
			return fmt.Errorf("column %d has no key", i)
		}
		if seen[col.Key] {
			return fmt.Errorf("duplicate column %q", col.Key)
		}
		seen[col.Key] = true
	}
	for i, f := range t.Filters {
		if f.Key == "" {
			return fmt.Errorf("filter %d has no key", i)
		}
		if !validFilterTypes[f.Type] {
			return fmt.Errorf("filter %s: unknown type %q", f.Key, f.Type)
		}
	}
	return nil
}
