// Package config defines the leaptable.yaml schema and loads it with
// koanf from defaults, the config file, LEAPTABLE_ environment variables
// and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/adapter"
)

// Config holds all configuration options.
type Config struct {
	StatePath string                  `koanf:"state_path"`
	Log       LogConfig               `koanf:"log"`
	Server    ServerConfig            `koanf:"server"`
	Datatable DatatableConfig         `koanf:"datatable"`
	UI        UIConfig                `koanf:"ui"`
	Export    ExportConfig            `koanf:"export"`
	Targets   map[string]TargetConfig `koanf:"targets"`
	Tables    map[string]TableConfig  `koanf:"tables"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text or json
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	Watch             bool          `koanf:"watch"`
	Metrics           bool          `koanf:"metrics"`
}

// DatatableConfig holds defaults applied to every table definition.
type DatatableConfig struct {
	PageLength    int  `koanf:"page_length"`
	MaxPageLength int  `koanf:"max_page_length"`
	GlobalSearch  bool `koanf:"global_search"`
	XSSProtection bool `koanf:"xss_protection"`
}

// UIConfig is passed through to the client widget.
type UIConfig struct {
	ResponsiveBreakpoint   int `koanf:"responsive_breakpoint" json:"responsive_breakpoint"`
	VirtualScrollThreshold int `koanf:"virtual_scroll_threshold" json:"virtual_scroll_threshold"`
	DebounceDelay          int `koanf:"debounce_delay" json:"debounce_delay"`
}

// ExportConfig controls export encoding, storage and deferral.
type ExportConfig struct {
	Disk          string        `koanf:"disk"` // local or minio
	Dir           string        `koanf:"dir"`
	Minio         MinioConfig   `koanf:"minio"`
	Queue         bool          `koanf:"queue"`
	Workers       int           `koanf:"workers"`
	Threshold     int           `koanf:"threshold"`
	ChunkSize     int           `koanf:"chunk_size"`
	URLExpiration time.Duration `koanf:"url_expiration"`
	SigningKey    string        `koanf:"signing_key"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// MinioConfig configures S3-compatible export storage.
type MinioConfig struct {
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
	Bucket          string `koanf:"bucket"`
	UseSSL          bool   `koanf:"use_ssl"`
}

// TargetConfig holds a named database connection.
type TargetConfig struct {
	Type     string            `koanf:"type"` // duckdb, postgres, sqlite
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`

	// Params holds adapter-specific configuration (e.g., DuckDB extensions, settings)
	Params map[string]any `koanf:"params"`
}

// AdapterConfig converts the target into the adapter's connection config.
func (t TargetConfig) AdapterConfig() adapter.Config {
	opts := make(map[string]string, len(t.Options)+1)
	for k, v := range t.Options {
		opts[k] = v
	}
	if t.Schema != "" {
		opts["schema"] = t.Schema
	}
	return adapter.Config{
		Type:     strings.ToLower(t.Type),
		Path:     t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Options:  opts,
		Params:   t.Params,
	}
}

// Validate checks that the target names a registered adapter.
func (t TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// TableConfig declares one table. Exactly one of Table, Query, Model or
// File selects the data source.
type TableConfig struct {
	Target string       `koanf:"target"`
	Table  string       `koanf:"table"`
	Query  string       `koanf:"query"`
	Args   []any        `koanf:"args"`
	Model  *ModelConfig `koanf:"model"`
	File   string       `koanf:"file"`
	With   []string     `koanf:"with"`

	Columns []ColumnConfig `koanf:"columns"`
	Filters []FilterConfig `koanf:"filters"`

	PageLength    int    `koanf:"page_length"`
	Searchable    *bool  `koanf:"searchable"`
	Orderable     *bool  `koanf:"orderable"`
	Exportable    bool   `koanf:"exportable"`
	Responsive    *bool  `koanf:"responsive"`
	PersistState  string `koanf:"persist_state"`
	VirtualScroll bool   `koanf:"virtual_scroll"`
	Realtime      bool   `koanf:"realtime"`
}

// ModelConfig describes a relational model.
type ModelConfig struct {
	Table      string                    `koanf:"table"`
	PrimaryKey string                    `koanf:"primary_key"`
	Relations  map[string]RelationConfig `koanf:"relations"`
}

// RelationConfig describes one relation of a model. Nested relations
// hang off Model.
type RelationConfig struct {
	Kind       string      `koanf:"kind"` // belongs_to, has_one, has_many
	ForeignKey string      `koanf:"foreign_key"`
	OwnerKey   string      `koanf:"owner_key"`
	Model      ModelConfig `koanf:"model"`
}

// ColumnConfig declares one column.
type ColumnConfig struct {
	Key        string         `koanf:"key"`
	Label      string         `koanf:"label"`
	Field      string         `koanf:"field"`
	Relation   string         `koanf:"relation"`
	Searchable bool           `koanf:"searchable"`
	Orderable  bool           `koanf:"orderable"`
	Raw        bool           `koanf:"raw"`
	Hidden     bool           `koanf:"hidden"`
	NoExport   bool           `koanf:"no_export"`
	Default    any            `koanf:"default"`
	Format     string         `koanf:"format"`   // named formatter, e.g. "upper" or "number:2"
	Renderer   string         `koanf:"renderer"` // client-side renderer name
	Attributes map[string]any `koanf:"attributes"`
}

// FilterConfig declares one filter.
type FilterConfig struct {
	Key     string         `koanf:"key"`
	Type    string         `koanf:"type"` // text, select, date-range, numeric-range
	Label   string         `koanf:"label"`
	Default any            `koanf:"default"`
	Choices []ChoiceConfig `koanf:"choices"`
}

// ChoiceConfig is one option of a select filter.
type ChoiceConfig struct {
	Value any    `koanf:"value"`
	Label string `koanf:"label"`
}
