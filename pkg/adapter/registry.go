package adapter

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected adapter for one target.
type Factory func(*slog.Logger) Adapter

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a target type available to table sources. Type names are
// matched case-insensitively, so "DuckDB" in leaptable.yaml finds "duckdb".
// Registering the same type twice panics.
func Register(typ string, factory Factory) {
	key := strings.ToLower(typ)
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("adapter: Register factory is nil for " + key)
	}
	if _, dup := registry[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	registry[key] = factory
}

// Get returns the factory for a target type.
func Get(typ string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToLower(typ)]
	return f, ok
}

// NewAdapter builds the adapter behind a target. Connect is left to the
// caller so connections can be opened lazily on first table request.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("adapter type not specified")
	}

	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{
			Type:      cfg.Type,
			Available: ListAdapters(),
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return factory(logger), nil
}

// ListAdapters returns the registered target types in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}

func IsRegistered(typ string) bool {
	_, ok := Get(typ)
	return ok
}

// UnknownAdapterError reports a target whose type no adapter serves.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); set targets.<name>.type in leaptable.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
