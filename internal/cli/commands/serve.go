package commands

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/internal/catalog"
	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/internal/export"
	"github.com/leapstack-labs/leaptable/internal/server"
	"github.com/leapstack-labs/leaptable/internal/state"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured tables over HTTP",
		Long: `Start the table server.

Routes:
  GET|POST /tables/{table}                 data requests
  GET      /tables/{table}/config          client widget configuration
  GET|POST /tables/{table}/export/{format} exports (202 when deferred)
  GET      /exports/download?token=...     signed download of a deferred export
  GET      /events                         reload notifications (SSE)
  GET      /metrics                        Prometheus metrics

The config file is watched and tables are rebuilt when it changes; a
broken edit keeps the previous tables.`,
		Example: `  leaptable serve
  leaptable serve --addr :9000 --log-json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := GetSession(cmd.Context())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, cleanup, err := BuildServer(ctx, s)
			if err != nil {
				return err
			}
			defer cleanup()

			return srv.Serve(ctx)
		},
	}
	return cmd
}

// BuildServer wires the catalog, the export pipeline and the HTTP server
// from the session's configuration. cleanup releases connections, the
// worker pool and the job store.
func BuildServer(ctx context.Context, s *Session) (*server.Server, func(), error) {
	cfg := s.Config
	logger := s.Logger

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	conns := catalog.NewConnections(cfg.Targets, logger)
	closers = append(closers, func() { _ = conns.Close() })

	tables, err := catalog.Load(ctx, cfg, conns)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("tables loaded", slog.Any("tables", tables.Names()))

	exporter := datatable.NewExporter(datatable.WithThreshold(int64(cfg.Export.Threshold)))
	export.RegisterDefaults(exporter)

	srvCfg := server.Config{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		Tables:            tables,
		Exporter:          exporter,
		UI:                cfg.UI,
		Metrics:           cfg.Server.Metrics,
		Logger:            logger,
	}

	if cfg.Export.Queue {
		d, closeQueue, err := newDispatcher(cfg, exporter, tables, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeQueue)
		exporter.SetDispatcher(d)
		srvCfg.Downloads = d
		srvCfg.Sweeper = d
		srvCfg.SweepInterval = cfg.Export.SweepInterval
	}

	if cfg.Server.Watch && s.ConfigFile != "" && s.Reload != nil {
		srvCfg.WatchFile = s.ConfigFile
		srvCfg.Reload = func(ctx context.Context) error {
			next, err := s.Reload()
			if err != nil {
				return err
			}
			if err := conns.Update(next.Targets); err != nil {
				return err
			}
			built, err := catalog.Build(ctx, next, conns)
			if err != nil {
				return err
			}
			tables.Replace(built...)
			return nil
		}
	}

	return server.New(srvCfg), cleanup, nil
}

// newDispatcher opens the job store and export storage, starts the
// background worker pool and picks up jobs a previous run left pending.
func newDispatcher(cfg *config.Config, exporter *datatable.Exporter, tables *datatable.Registry, logger *slog.Logger) (*export.Dispatcher, func(), error) {
	if err := os.MkdirAll(filepath.Dir(cfg.StatePath), 0750); err != nil {
		return nil, nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	store := state.NewSQLiteStore(logger)
	if err := store.Open(cfg.StatePath); err != nil {
		return nil, nil, err
	}

	storage, err := newStorage(cfg.Export)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	key := cfg.Export.SigningKey
	if key == "" {
		// Links signed with a per-process key die with the process.
		key = rand.Text()
		logger.Warn("export.signing_key is not set; download links will not survive a restart")
	}
	signer, err := export.NewSigner([]byte(key), cfg.Export.URLExpiration)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	d, err := export.NewDispatcher(exporter, tables, store, storage, signer, export.DispatcherConfig{
		Workers: cfg.Export.Workers,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	d.Resume()

	return d, func() {
		d.Close()
		_ = store.Close()
	}, nil
}

func newStorage(cfg config.ExportConfig) (export.Storage, error) {
	switch cfg.Disk {
	case "minio":
		return export.NewMinioStorage(export.MinioConfig{
			Endpoint:        cfg.Minio.Endpoint,
			AccessKeyID:     cfg.Minio.AccessKeyID,
			SecretAccessKey: cfg.Minio.SecretAccessKey,
			Bucket:          cfg.Minio.Bucket,
			UseSSL:          cfg.Minio.UseSSL,
		})
	case "local", "":
		return export.NewLocalStorage(cfg.Dir)
	default:
		return nil, errors.New("export.disk must be local or minio")
	}
}
