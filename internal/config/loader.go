package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagKeys maps command-line flags onto config keys where the names differ.
var flagKeys = map[string]string{
	"state":     "state_path",
	"addr":      "server.addr",
	"log-level": "log.level",
	"log-json":  "log.format",
}

// FindConfigFile returns the config file to use.
// Priority: explicit path > leaptable.yaml > leaptable.yml, searching
// upward from startDir.
func FindConfigFile(explicit, startDir string) string {
	if explicit != "" {
		return explicit
	}
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load reads configuration from defaults, the config file, environment
// variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	used := FindConfigFile(cfgFile, cwd)
	projectRoot := cwd
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
		if abs, err := filepath.Abs(used); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// LEAPTABLE_SERVER__ADDR -> server.addr, LEAPTABLE_STATE_PATH -> state_path
	if err := k.Load(env.Provider("LEAPTABLE_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "LEAPTABLE_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			if f.Name == "log-json" {
				if f.Value.String() == "true" {
					return key, "json"
				}
				return key, "text"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot
	cfg.resolve()

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// resolve expands ${VAR} references, applies target defaults and makes
// file paths absolute against the project root.
func (c *Config) resolve() {
	c.StatePath = resolvePathRelativeTo(c.StatePath, c.ProjectRoot)
	c.Export.Dir = resolvePathRelativeTo(c.Export.Dir, c.ProjectRoot)
	c.Export.SigningKey = expandEnvVars(c.Export.SigningKey)
	c.Export.Minio.AccessKeyID = expandEnvVars(c.Export.Minio.AccessKeyID)
	c.Export.Minio.SecretAccessKey = expandEnvVars(c.Export.Minio.SecretAccessKey)

	for name, t := range c.Targets {
		t.Type = strings.ToLower(t.Type)
		t.Host = expandEnvVars(t.Host)
		t.User = expandEnvVars(t.User)
		t.Password = expandEnvVars(t.Password)
		t.Database = expandEnvVars(t.Database)
		if t.Type != "postgres" && t.Database != ":memory:" {
			t.Database = resolvePathRelativeTo(t.Database, c.ProjectRoot)
		}
		applyTargetDefaults(&t)
		c.Targets[name] = t
	}

	for name, tbl := range c.Tables {
		tbl.File = resolvePathRelativeTo(tbl.File, c.ProjectRoot)
		c.Tables[name] = tbl
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// TableNames returns the declared table names in sorted order.
func (c *Config) TableNames() []string {
	names := make([]string, 0, len(c.Tables))
	for name := range c.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TargetNames returns the declared target names in sorted order.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
