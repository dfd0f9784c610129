package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/internal/export"
	"github.com/leapstack-labs/leaptable/internal/metrics"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// readRequest decodes a data or export request from the query string,
// a JSON body or a form body.
func readRequest(w http.ResponseWriter, r *http.Request) (datatable.Request, error) {
	if r.Method == http.MethodGet {
		return datatable.ParseValues(r.URL.Query()), nil
	}

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		req, err := datatable.ParseJSON(body)
		if err != nil {
			return datatable.Request{}, &badRequestError{err}
		}
		return req, nil
	}

	r.Body = body
	if err := r.ParseForm(); err != nil {
		return datatable.Request{}, &badRequestError{fmt.Errorf("failed to parse form: %w", err)}
	}
	return datatable.ParseValues(r.Form), nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.tables.Names()})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	resp, err := s.runTable(r.Context(), name, w, r)
	if err != nil {
		metrics.TableRequests.WithLabelValues(name, outcome(err)).Inc()
		s.writeError(w, r, err)
		return
	}
	metrics.TableRequests.WithLabelValues(name, "ok").Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) runTable(ctx context.Context, name string, w http.ResponseWriter, r *http.Request) (*datatable.Response, error) {
	t, err := s.tables.Get(name)
	if err != nil {
		return nil, err
	}
	req, err := readRequest(w, r)
	if err != nil {
		return nil, err
	}
	return t.Run(ctx, req)
}

func outcome(err error) string {
	switch statusFor(err) {
	case http.StatusBadRequest:
		return "invalid"
	case http.StatusNotFound:
		return "unknown"
	default:
		return "error"
	}
}

type configResponse struct {
	datatable.ClientConfig
	UI            config.UIConfig `json:"ui"`
	ExportFormats []string        `json:"export_formats"`
	DataURL       string          `json:"data_url"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	t, err := s.tables.Get(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := configResponse{
		ClientConfig:  t.ClientConfig(),
		UI:            s.ui,
		ExportFormats: []string{},
		DataURL:       "/tables/" + name,
	}
	if t.IsExportable() {
		resp.ExportFormats = s.exporter.Formats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	format := strings.ToLower(chi.URLParam(r, "format"))

	t, err := s.tables.Get(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	req, err := readRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.exporter.Export(r.Context(), t, format, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if res.Deferred != nil {
		metrics.ExportsTotal.WithLabelValues(format, "deferred").Inc()
		writeJSON(w, http.StatusAccepted, res.Deferred)
		return
	}

	metrics.ExportsTotal.WithLabelValues(format, "sync").Inc()
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	w.WriteHeader(http.StatusOK)
	if err := res.Encode(w); err != nil {
		// Headers are gone; all that is left is to log it.
		s.logger.Error("export encoding failed",
			slog.String("table", name),
			slog.String("format", format),
			slog.String("error", err.Error()))
	}
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.downloads == nil {
		s.writeError(w, r, export.ErrNotFound)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		s.writeError(w, r, export.ErrNotFound)
		return
	}

	obj, filename, err := s.downloads.Open(r.Context(), token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = obj.Reader.Close() }()

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	if !obj.ModTime.IsZero() {
		w.Header().Set("Last-Modified", obj.ModTime.UTC().Format(http.TimeFormat))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Reader); err != nil {
		s.logger.Warn("download interrupted", slog.String("file", filename), slog.String("error", err.Error()))
	}
}

// handleEvents streams reload notifications to realtime widgets.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: {}\n\n", event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
