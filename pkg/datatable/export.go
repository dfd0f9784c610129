package datatable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// DefaultExportThreshold is the filtered row count above which an export
// is deferred when a dispatcher is configured.
const DefaultExportThreshold = 1000

// Encoder turns rows into the bytes of one export format.
type Encoder interface {
	ContentType() string
	Extension() string
	Encode(w io.Writer, cols []*core.Column, records []map[string]any) error
}

// ExportJob is a by-value snapshot of an export request. It carries
// everything needed to reproduce the filtered view after the originating
// request is gone.
type ExportJob struct {
	ID          string         `json:"id"`
	Table       string         `json:"table"`
	Format      string         `json:"format"`
	Search      string         `json:"search"`
	Filters     map[string]any `json:"filters,omitempty"`
	Order       []OrderEntry   `json:"order,omitempty"`
	RequestedAt time.Time      `json:"requested_at"`
}

// Request rebuilds the request the job was captured from.
func (j ExportJob) Request() Request {
	return Request{
		Search:  j.Search,
		Order:   slices.Clone(j.Order),
		Filters: cloneValues(j.Filters),
	}
}

// Deferred is returned instead of a file when an export was queued.
type Deferred struct {
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// Dispatcher hands an export job to a background worker.
type Dispatcher interface {
	Dispatch(ctx context.Context, job ExportJob) (*Deferred, error)
}

// ExportResult is the outcome of Export. Exactly one of Deferred and the
// encodable record set is populated.
type ExportResult struct {
	Filename    string
	ContentType string
	Deferred    *Deferred
	Rows        int

	encoder Encoder
	cols    []*core.Column
	records []map[string]any
}

// Encode writes the export file to w.
func (r *ExportResult) Encode(w io.Writer) error {
	if r.Deferred != nil {
		return errors.New("export was deferred")
	}
	return r.encoder.Encode(w, r.cols, r.records)
}

// Exporter decides between synchronous and deferred exports and owns the
// encoder registry.
type Exporter struct {
	encoders   map[string]Encoder
	threshold  int64
	dispatcher Dispatcher
	now        func() time.Time
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithThreshold sets the deferral threshold. n <= 0 keeps the default.
func WithThreshold(n int64) ExporterOption {
	return func(e *Exporter) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithDispatcher enables deferred exports.
func WithDispatcher(d Dispatcher) ExporterOption {
	return func(e *Exporter) { e.dispatcher = d }
}

// WithClock overrides the time source used for job timestamps and
// filenames.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates an exporter without encoders.
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		encoders:  make(map[string]Encoder),
		threshold: DefaultExportThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDispatcher enables deferred exports after construction. Background
// dispatchers usually need the exporter themselves, so they are attached
// last.
func (e *Exporter) SetDispatcher(d Dispatcher) {
	e.dispatcher = d
}

// RegisterEncoder makes format available. Formats are case-insensitive.
func (e *Exporter) RegisterEncoder(format string, enc Encoder) {
	e.encoders[strings.ToLower(format)] = enc
}

// Formats returns the registered formats, sorted.
func (e *Exporter) Formats() []string {
	return slices.Sorted(maps.Keys(e.encoders))
}

// Encoder returns the encoder for format.
func (e *Exporter) Encoder(format string) (Encoder, error) {
	enc, ok := e.encoders[strings.ToLower(format)]
	if !ok {
		return nil, &core.UnsupportedFormatError{Format: format, Available: e.Formats()}
	}
	return enc, nil
}

// Export prepares an export of t's current filtered view. Large views are
// dispatched when a dispatcher is configured; everything else is
// materialised for Encode.
func (e *Exporter) Export(ctx context.Context, t *Table, format string, req Request) (*ExportResult, error) {
	if !t.exportable {
		return nil, core.ErrExportDisabled
	}
	enc, err := e.Encoder(format)
	if err != nil {
		return nil, err
	}
	if t.source == nil {
		return nil, core.ErrNoDataSource
	}
	q, err := t.prepare(req)
	if err != nil {
		return nil, err
	}

	// Filters, search and ordering resolve against every column, including
	// ones left out of the file.
	engine, err := t.newEngine(t.columns)
	if err != nil {
		return nil, err
	}
	t.apply(engine, q)

	now := e.now()
	if e.dispatcher != nil {
		n, err := engine.FilteredCount(ctx)
		if err != nil {
			return nil, err
		}
		if n > e.threshold {
			job := ExportJob{
				Table:       t.name,
				Format:      strings.ToLower(format),
				Search:      req.Search,
				Filters:     cloneValues(req.Filters),
				Order:       slices.Clone(req.Order),
				RequestedAt: now,
			}
			deferred, err := e.dispatcher.Dispatch(ctx, job)
			if err != nil {
				return nil, fmt.Errorf("failed to dispatch export: %w", err)
			}
			return &ExportResult{
				Filename: deferred.Filename,
				Deferred: deferred,
				Rows:     int(n),
			}, nil
		}
	}

	rows, err := engine.All(ctx)
	if err != nil {
		return nil, err
	}
	cols := t.columns.Exportable()
	records := newExportTransformer(cols).Transform(rows)
	return &ExportResult{
		Filename:    ExportFilename(t.name, now, enc.Extension()),
		ContentType: enc.ContentType(),
		Rows:        len(records),
		encoder:     enc,
		cols:        cols,
		records:     records,
	}, nil
}

// RunJob reproduces a dispatched job synchronously and writes the file to
// w. It is what background workers call.
func (e *Exporter) RunJob(ctx context.Context, t *Table, job ExportJob, w io.Writer) (int, error) {
	inline := *e
	inline.dispatcher = nil
	inline.now = func() time.Time { return job.RequestedAt }

	res, err := inline.Export(ctx, t, job.Format, job.Request())
	if err != nil {
		return 0, err
	}
	if err := res.Encode(w); err != nil {
		return 0, fmt.Errorf("failed to encode %s export: %w", job.Format, err)
	}
	return res.Rows, nil
}

// ExportFilename names a synchronous export, e.g. "users-20240131-150405.csv".
func ExportFilename(table string, at time.Time, ext string) string {
	return fmt.Sprintf("%s-%s.%s", table, at.Format("20060102-150405"), ext)
}

// cloneValues deep-copies filter values so a snapshot never aliases the
// caller's maps or slices.
func cloneValues(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return cloneValues(x)
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(x)
	default:
		return v
	}
}
