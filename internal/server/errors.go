package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/leapstack-labs/leaptable/internal/export"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// downloadMissing is the client message for an absent or expired export.
const downloadMissing = "Export file not found or has expired."

// badRequestError marks a request body that could not be decoded.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Key   string `json:"key,omitempty"`
}

// statusFor maps pipeline errors onto HTTP statuses.
func statusFor(err error) int {
	var (
		ve  *core.ValidationError
		ufe *core.UnsupportedFormatError
		ute *datatable.UnknownTableError
		bre *badRequestError
	)
	switch {
	case errors.As(err, &bre), errors.As(err, &ve), errors.As(err, &ufe):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrExportDisabled):
		return http.StatusForbidden
	case errors.As(err, &ute), errors.Is(err, export.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, export.ErrNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ve *core.ValidationError
	if errors.As(err, &ve) {
		body.Kind = string(ve.Kind)
		body.Key = ve.Key
	}
	switch {
	case errors.Is(err, export.ErrNotFound):
		body.Error = downloadMissing
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		if !errors.Is(err, core.ErrNoDataSource) {
			body.Error = "internal server error"
		}
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
