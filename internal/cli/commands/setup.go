package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/internal/catalog"
	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// Session is what the root command hands to subcommands through the
// command context.
type Session struct {
	Config     *config.Config
	ConfigFile string // empty when running on defaults only
	Logger     *slog.Logger

	// Reload re-reads configuration with the same file and flags.
	Reload func() (*config.Config, error)
}

type sessionKey struct{}

// WithSession stores s on ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// GetSession retrieves the session from the command context.
func GetSession(ctx context.Context) (*Session, error) {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s.Config != nil {
		return s, nil
	}
	return nil, fmt.Errorf("no configuration loaded")
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if s, ok := ctx.Value(sessionKey{}).(*Session); ok && s.Logger != nil {
		return s.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the process logger from the log section. verbose
// forces debug level.
func NewLogger(w io.Writer, cfg config.LogConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// CommandContext holds common dependencies for table commands.
type CommandContext struct {
	Session *Session
	Conns   *catalog.Connections
	Tables  *datatable.Registry
}

// NewCommandContext loads the table catalog. The returned cleanup closes
// the database connections and must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	s, err := GetSession(cmd.Context())
	if err != nil {
		return nil, nil, err
	}

	conns := catalog.NewConnections(s.Config.Targets, s.Logger)
	tables, err := catalog.Load(cmd.Context(), s.Config, conns)
	if err != nil {
		_ = conns.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := conns.Close(); err != nil {
			s.Logger.Warn("failed to close connections", slog.String("error", err.Error()))
		}
	}
	return &CommandContext{Session: s, Conns: conns, Tables: tables}, cleanup, nil
}
