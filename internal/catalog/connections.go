package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/pkg/adapter"
)

// Connections opens target databases on first use and keeps them open
// until Close.
type Connections struct {
	mu      sync.Mutex
	targets map[string]config.TargetConfig
	open    map[string]adapter.Adapter
	logger  *slog.Logger
}

// NewConnections creates a connection set for targets.
func NewConnections(targets map[string]config.TargetConfig, logger *slog.Logger) *Connections {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Connections{
		targets: targets,
		open:    make(map[string]adapter.Adapter),
		logger:  logger,
	}
}

// Get returns the connected adapter for the named target.
func (c *Connections) Get(ctx context.Context, name string) (adapter.Adapter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if a, ok := c.open[name]; ok {
		return a, nil
	}
	target, ok := c.targets[name]
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}

	cfg := target.AdapterConfig()
	a, err := adapter.NewAdapter(cfg, c.logger.With(slog.String("target", name)))
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to target %s: %w", name, err)
	}

	c.logger.Debug("connected target", slog.String("target", name), slog.String("type", cfg.Type))
	c.open[name] = a
	return a, nil
}

// Update swaps the target definitions. Connections whose definition
// changed or disappeared are closed and reopened on next use.
func (c *Connections) Update(targets map[string]config.TargetConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, a := range c.open {
		next, ok := targets[name]
		if ok && sameTarget(c.targets[name], next) {
			continue
		}
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close target %s: %w", name, err))
		}
		delete(c.open, name)
	}
	c.targets = targets
	return errors.Join(errs...)
}

// Close closes every open connection.
func (c *Connections) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.open))
	for name := range c.open {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := c.open[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close target %s: %w", name, err))
		}
	}
	c.open = make(map[string]adapter.Adapter)
	return errors.Join(errs...)
}

func sameTarget(a, b config.TargetConfig) bool {
	return fmt.Sprintf("%#v", a.AdapterConfig()) == fmt.Sprintf("%#v", b.AdapterConfig())
}
