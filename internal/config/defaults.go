package config

// Default configuration values.
const (
	ConfigFileName    = "leaptable.yaml"
	ConfigFileNameAlt = "leaptable.yml"
	DefaultStateFile  = ".leaptable/state.db"
	DefaultExportDir  = ".leaptable/exports"
	DefaultAddr       = ":8080"
)

// defaults is the lowest koanf layer.
func defaults() map[string]any {
	return map[string]any{
		"state_path":                    DefaultStateFile,
		"log.level":                     "info",
		"log.format":                    "text",
		"server.addr":                   DefaultAddr,
		"server.read_header_timeout":    "10s",
		"server.shutdown_timeout":       "5s",
		"server.watch":                  true,
		"server.metrics":                true,
		"datatable.page_length":         10,
		"datatable.max_page_length":     100,
		"datatable.global_search":       true,
		"datatable.xss_protection":      true,
		"ui.responsive_breakpoint":      768,
		"ui.virtual_scroll_threshold":   1000,
		"ui.debounce_delay":             300,
		"export.disk":                   "local",
		"export.dir":                    DefaultExportDir,
		"export.queue":                  true,
		"export.workers":                2,
		"export.threshold":              1000,
		"export.chunk_size":             1000,
		"export.url_expiration":         "60m",
		"export.sweep_interval":         "10m",
	}
}

// DefaultSchemaForType returns the schema tables live in when a target
// does not name one.
func DefaultSchemaForType(dbType string) string {
	switch dbType {
	case "postgres":
		return "public"
	default:
		return "main"
	}
}

// applyTargetDefaults fills type-specific target defaults.
func applyTargetDefaults(t *TargetConfig) {
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "postgres" && t.Port == 0 {
		t.Port = 5432
	}
}
