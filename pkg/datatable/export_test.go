package datatable

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/engines/collection"
	"github.com/leapstack-labs/leaptable/pkg/engines/relational"
	"github.com/leapstack-labs/leaptable/pkg/sqlq"
)

// lineEncoder writes one "key=value" line per record.
type lineEncoder struct{}

func (lineEncoder) ContentType() string { return "text/plain" }
func (lineEncoder) Extension() string   { return "txt" }

func (lineEncoder) Encode(w io.Writer, cols []*core.Column, records []map[string]any) error {
	for _, r := range records {
		parts := make([]string, 0, len(cols))
		for _, c := range cols {
			parts = append(parts, fmt.Sprintf("%s=%v", c.Key, r[c.Key]))
		}
		if _, err := fmt.Fprintln(w, strings.Join(parts, ";")); err != nil {
			return err
		}
	}
	return nil
}

type recordingDispatcher struct {
	jobs []ExportJob
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job ExportJob) (*Deferred, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.jobs = append(d.jobs, job)
	return &Deferred{
		Message:     "Export queued successfully",
		DownloadURL: "/exports/download?token=t",
		Filename:    "exports/export-1.txt",
	}, nil
}

var fixedNow = time.Date(2024, 1, 31, 15, 4, 5, 0, time.UTC)

func exportTable() *Table {
	rows := []core.Row{
		{"name": "<b>Ann</b>", "age": 30, "secret": "s1"},
		{"name": "Bob", "age": 20, "secret": "s2"},
		{"name": "Cid", "age": 40, "secret": "s3"},
	}
	return New("people").
		Source(collection.NewSource(rows)).
		AddColumns(
			core.NewColumn("name", "Name", core.Searchable(), core.Orderable(), core.Render(func(v any, _ core.Row) any {
				return "rendered"
			})),
			core.NewColumn("age", "Age", core.Orderable(), core.Format(func(v any, _ core.Row) any {
				return fmt.Sprintf("%v y", v)
			})),
			core.NewColumn("secret", "Secret", core.NoExport()),
		).
		AddFilters(core.NumericRangeFilter("age", "Age")).
		Exportable(true)
}

func newTestExporter(opts ...ExporterOption) *Exporter {
	e := NewExporter(append([]ExporterOption{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	e.RegisterEncoder("txt", lineEncoder{})
	return e
}

func TestExport_Sync(t *testing.T) {
	e := newTestExporter()
	res, err := e.Export(context.Background(), exportTable(), "TXT", Request{
		Order:   []OrderEntry{{Column: 1, Dir: "desc"}},
		Filters: map[string]any{"age": map[string]any{"min": 25}},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Deferred)
	assert.Equal(t, "people-20240131-150405.txt", res.Filename)
	assert.Equal(t, "text/plain", res.ContentType)
	assert.Equal(t, 2, res.Rows)

	var buf bytes.Buffer
	require.NoError(t, res.Encode(&buf))
	assert.Equal(t, "name=Cid;age=40 y\nname=<b>Ann</b>;age=30 y\n", buf.String())
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		table  func() *Table
		format string
		req    Request
		check  func(t *testing.T, err error)
	}{
		{
			name:   "disabled",
			table:  func() *Table { return exportTable().Exportable(false) },
			format: "txt",
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, core.ErrExportDisabled) },
		},
		{
			name:   "unsupported format",
			table:  exportTable,
			format: "docx",
			check: func(t *testing.T, err error) {
				var ufe *core.UnsupportedFormatError
				require.ErrorAs(t, err, &ufe)
				assert.Equal(t, []string{"txt"}, ufe.Available)
			},
		},
		{
			name:   "no source",
			table:  func() *Table { return New("x").Exportable(true) },
			format: "txt",
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, core.ErrNoDataSource) },
		},
		{
			name:   "invalid filter",
			table:  exportTable,
			format: "txt",
			req:    Request{Filters: map[string]any{"secret": "s1"}},
			check:  func(t *testing.T, err error) { assert.True(t, core.IsValidation(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestExporter().Export(context.Background(), tt.table(), tt.format, tt.req)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestExport_UnsupportedFormatBeforeEngine(t *testing.T) {
	src := &spySource{engine: &spyEngine{}}
	tb := exportTable().Source(src)

	_, err := newTestExporter().Export(context.Background(), tb, "pdf", Request{})
	require.Error(t, err)
	assert.Zero(t, src.engines)
}

func TestExport_DeferredSnapshotsRequest(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestExporter(WithDispatcher(d), WithThreshold(1))

	req := Request{
		Search:  "b",
		Order:   []OrderEntry{{Column: 0, Dir: "asc"}},
		Filters: map[string]any{"age": map[string]any{"min": 10}},
	}
	res, err := e.Export(context.Background(), exportTable(), "txt", req)
	require.NoError(t, err)
	require.NotNil(t, res.Deferred)
	assert.Equal(t, "Export queued successfully", res.Deferred.Message)
	assert.Error(t, res.Encode(io.Discard))

	require.Len(t, d.jobs, 1)
	job := d.jobs[0]
	assert.Equal(t, "people", job.Table)
	assert.Equal(t, "txt", job.Format)
	assert.Equal(t, "b", job.Search)
	assert.Equal(t, fixedNow, job.RequestedAt)

	req.Filters["age"].(map[string]any)["min"] = 99
	req.Order[0].Dir = "desc"
	assert.Equal(t, map[string]any{"age": map[string]any{"min": 10}}, job.Filters)
	assert.Equal(t, "asc", job.Order[0].Dir)
}

func TestExport_BelowThresholdStaysSync(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestExporter(WithDispatcher(d), WithThreshold(3))

	res, err := e.Export(context.Background(), exportTable(), "txt", Request{})
	require.NoError(t, err)
	assert.Nil(t, res.Deferred)
	assert.Equal(t, 3, res.Rows)
	assert.Empty(t, d.jobs)
}

func TestExport_DispatchFailure(t *testing.T) {
	d := &recordingDispatcher{err: errors.New("queue full")}
	e := newTestExporter(WithDispatcher(d), WithThreshold(1))

	_, err := e.Export(context.Background(), exportTable(), "txt", Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue full")
}

func TestExporter_RunJob(t *testing.T) {
	d := &recordingDispatcher{}
	e := newTestExporter(WithDispatcher(d), WithThreshold(1))

	job := ExportJob{
		ID:          "j1",
		Table:       "people",
		Format:      "txt",
		Order:       []OrderEntry{{Column: 1, Dir: "asc"}},
		RequestedAt: fixedNow,
	}
	var buf bytes.Buffer
	n, err := e.RunJob(context.Background(), exportTable(), job, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Empty(t, d.jobs, "a running job is never re-dispatched")
	assert.Equal(t, "name=Bob;age=20 y\nname=<b>Ann</b>;age=30 y\nname=Cid;age=40 y\n", buf.String())
}

func TestExporter_Formats(t *testing.T) {
	e := NewExporter()
	assert.Empty(t, e.Formats())
	e.RegisterEncoder("PDF", lineEncoder{})
	e.RegisterEncoder("csv", lineEncoder{})
	assert.Equal(t, []string{"csv", "pdf"}, e.Formats())

	_, err := e.Encoder("Pdf")
	assert.NoError(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register(New("users"))
	r.Register(New("orders"))

	assert.Equal(t, []string{"orders", "users"}, r.Names())

	got, err := r.Get("users")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Name())

	_, err = r.Get("nope")
	var ute *UnknownTableError
	require.ErrorAs(t, err, &ute)
	assert.Contains(t, err.Error(), "available: orders, users")

	r.Replace(New("only"))
	assert.Equal(t, []string{"only"}, r.Names())
}

func TestTable_ClientConfig(t *testing.T) {
	tb := exportTable().
		AddFilters(core.SelectFilter("status", "Status", []core.Choice{{Value: "a", Label: "Active"}})).
		PageLength(500).
		PersistState("people-v1").
		VirtualScroll(true)

	cfg := tb.ClientConfig()
	assert.Equal(t, "people", cfg.Name)
	assert.Equal(t, 100, cfg.PageLength)
	assert.True(t, cfg.Searchable)
	assert.True(t, cfg.Exportable)
	assert.True(t, cfg.Responsive)
	assert.Equal(t, "people-v1", cfg.PersistKey)
	require.Len(t, cfg.Columns, 3)
	assert.Equal(t, "name", cfg.Columns[0]["key"])
	require.Len(t, cfg.Filters, 2)
	assert.Equal(t, "status", cfg.Filters[1]["key"])
}

func TestTable_Builders(t *testing.T) {
	tb := New("t").
		AddColumns(core.NewColumn("a", ""), core.NewColumn("b", "B")).
		AddFilters(core.TextFilter("a", "A"), core.TextFilter("a", "Again")).
		With("author.profile").
		Searchable(true).
		Orderable(true)

	assert.Equal(t, "A", tb.Columns().Get("a").Label)
	assert.Len(t, tb.Columns().Searchable(), 2)
	assert.Len(t, tb.Columns().Orderable(), 2)
	require.Len(t, tb.Filters(), 1)
	assert.Equal(t, "Again", tb.Filters()[0].Label)
	assert.True(t, tb.Whitelist().HasRelation("author.profile"))
	assert.Equal(t, 10, tb.Options().PageLength)
	assert.Equal(t, 1, tb.PageLength(0).Options().PageLength)
}

func TestExport_FiltersThroughNonExportedRelation(t *testing.T) {
	rows := []core.Row{
		{"title": "Intro", "author": core.Row{"name": "Zed"}},
		{"title": "Notes", "author": core.Row{"name": "Amy"}},
		{"title": "Orphan", "author": nil},
	}
	tb := New("posts").
		Source(collection.NewSource(rows)).
		AddColumns(
			core.NewColumn("title", "Title", core.Searchable()),
			core.NewColumn("author", "Author", core.Relation("author"), core.Field("name"), core.Searchable(), core.NoExport()),
		).
		AddFilters(core.TextFilter("author", "Author")).
		Exportable(true)

	tests := []struct {
		name string
		req  Request
		want string
	}{
		{
			name: "filter",
			req:  Request{Filters: map[string]any{"author": "zed"}},
			want: "title=Intro\n",
		},
		{
			name: "search",
			req:  Request{Search: "amy"},
			want: "title=Notes\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newTestExporter().Export(context.Background(), tb, "txt", tt.req)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, res.Encode(&buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestExport_RelationalFilterOnNonExportedColumn(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT);
		CREATE TABLE posts (id INTEGER PRIMARY KEY, author_id INTEGER, title TEXT);
		INSERT INTO authors VALUES (1, 'Zed'), (2, 'Amy');
		INSERT INTO posts VALUES (1, 1, 'Intro'), (2, 2, 'Notes');
	`)
	require.NoError(t, err)

	posts := &relational.Model{
		Table: "posts",
		Relations: map[string]*relational.Relation{
			"author": {Kind: relational.BelongsTo, Model: &relational.Model{Table: "authors"}, ForeignKey: "author_id"},
		},
	}
	tb := New("posts").
		Source(relational.NewSource(db, sqlq.SQLite, posts)).
		AddColumns(
			core.NewColumn("title", "Title"),
			core.NewColumn("author", "Author", core.Relation("author"), core.Field("name"), core.NoExport()),
		).
		AddFilters(core.TextFilter("author", "Author")).
		Exportable(true)
	req := Request{Filters: map[string]any{"author": "zed"}}

	page, err := tb.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	res, err := newTestExporter().Export(context.Background(), tb, "txt", req)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, res.Encode(&buf))
	assert.Equal(t, "title=Intro\n", buf.String())
}
