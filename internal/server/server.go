// Package server exposes table definitions over HTTP: data requests,
// client configuration, exports and signed downloads.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/internal/export"
	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// Downloads resolves signed download tokens.
type Downloads interface {
	Open(ctx context.Context, token string) (*export.Object, string, error)
}

// Sweeper removes expired export artifacts.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Config holds configuration for the server.
type Config struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration

	Tables    *datatable.Registry
	Exporter  *datatable.Exporter
	Downloads Downloads // nil disables the download route's lookups
	UI        config.UIConfig
	Metrics   bool

	Sweeper       Sweeper
	SweepInterval time.Duration

	// WatchFile is reloaded through Reload when it changes.
	WatchFile string
	Reload    func(ctx context.Context) error

	Logger *slog.Logger
}

// Server is the table HTTP server.
type Server struct {
	cfg       Config
	tables    *datatable.Registry
	exporter  *datatable.Exporter
	downloads Downloads
	ui        config.UIConfig
	notifier  *Notifier
	logger    *slog.Logger
	router    chi.Router
}

// New creates a server and sets up its routes.
func New(cfg Config) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 10 * time.Second
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Exporter == nil {
		cfg.Exporter = datatable.NewExporter()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		cfg:       cfg,
		tables:    cfg.Tables,
		exporter:  cfg.Exporter,
		downloads: cfg.Downloads,
		ui:        cfg.UI,
		notifier:  NewNotifier(),
		logger:    logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Notifier returns the server's notifier for reload events.
func (s *Server) Notifier() *Notifier {
	return s.notifier
}

func (s *Server) routes() chi.Router {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
		s.instrument,
	)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/events", s.handleEvents)

	r.Route("/tables/{table}", func(r chi.Router) {
		r.Get("/", s.handleData)
		r.Post("/", s.handleData)
		r.Get("/config", s.handleConfig)
		r.Get("/export/{format}", s.handleExport)
		r.Post("/export/{format}", s.handleExport)
	})
	r.Get("/exports/download", s.handleDownload)

	if s.cfg.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// instrument records request counts and latency by route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.RequestTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until the context is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting table server", slog.String("addr", ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.router,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	if s.cfg.WatchFile != "" && s.cfg.Reload != nil {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}
	if s.cfg.Sweeper != nil && s.cfg.SweepInterval > 0 {
		eg.Go(func() error {
			s.sweepLoop(egctx)
			return nil
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down table server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.cfg.Sweeper.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("export sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}

// watchConfig reloads tables when the config file changes. The parent
// directory is watched so editors that replace the file are noticed.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.cfg.WatchFile)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch config file", slog.String("error", err.Error()))
		return nil
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				s.reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// reload rebuilds the tables. A failed reload keeps the previous set.
func (s *Server) reload(ctx context.Context) {
	if err := s.cfg.Reload(ctx); err != nil {
		s.logger.Error("config reload failed, keeping previous tables", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("tables reloaded", slog.Any("tables", s.tables.Names()))
	s.notifier.Broadcast("reload")
}
