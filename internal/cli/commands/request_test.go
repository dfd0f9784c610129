package commands

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaptable/internal/config"
	"github.com/leapstack-labs/leaptable/pkg/core"
	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

func intPtr(n int) *int { return &n }

func TestRequestOptions_Request(t *testing.T) {
	tbl := datatable.New("people").AddColumns(
		core.NewColumn("name", "Name"),
		core.NewColumn("age", "Age"),
	)

	tests := []struct {
		name    string
		opts    RequestOptions
		want    datatable.Request
		wantErr string
	}{
		{
			name: "defaults",
			want: datatable.Request{Draw: intPtr(1)},
		},
		{
			name: "everything",
			opts: RequestOptions{
				Search:  "jo",
				Filters: []string{"status=active", "age.min=18", "age.max=65"},
				Order:   []string{"age:desc", "name"},
				Start:   20,
				Length:  10,
			},
			want: datatable.Request{
				Draw:   intPtr(1),
				Start:  20,
				Length: 10,
				Search: "jo",
				Order:  []datatable.OrderEntry{{Column: 1, Dir: "desc"}, {Column: 0, Dir: "asc"}},
				Filters: map[string]any{
					"status": "active",
					"age":    map[string]any{"min": "18", "max": "65"},
				},
			},
		},
		{
			name:    "filter without value",
			opts:    RequestOptions{Filters: []string{"status"}},
			wantErr: "expected key=value",
		},
		{
			name:    "unknown order column",
			opts:    RequestOptions{Order: []string{"email:asc"}},
			wantErr: `unknown column "email"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Request(tbl)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPageSummary(t *testing.T) {
	tests := []struct {
		name  string
		resp  datatable.Response
		start int
		want  string
	}{
		{"empty", datatable.Response{}, 0, "Showing 0 to 0 of 0 entries"},
		{"first page", datatable.Response{RecordsTotal: 57, RecordsFiltered: 57, Data: make([]map[string]any, 10)}, 0, "Showing 1 to 10 of 57 entries"},
		{"filtered", datatable.Response{RecordsTotal: 57, RecordsFiltered: 12, Data: make([]map[string]any, 2)}, 10, "Showing 11 to 12 of 12 entries (filtered from 57 total entries)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pageSummary(&tt.resp, tt.start))
		})
	}
}

func TestEffectiveFormat(t *testing.T) {
	var buf bytes.Buffer

	got, err := effectiveFormat(&buf, FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, FormatMarkdown, got, "a buffer is not a terminal")

	got, err = effectiveFormat(&buf, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, got)

	_, err = effectiveFormat(&buf, "yaml")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		verbose   bool
		wantDebug bool
		wantJSON  bool
	}{
		{"info text", config.LogConfig{Level: "info", Format: "text"}, false, false, false},
		{"debug json", config.LogConfig{Level: "debug", Format: "json"}, false, true, true},
		{"verbose overrides level", config.LogConfig{Level: "error"}, true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, tt.cfg, tt.verbose)

			logger.Debug("probe", slog.String("k", "v"))
			if !tt.wantDebug {
				assert.Empty(t, buf.String())
				return
			}
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"probe"`)
			} else {
				assert.Contains(t, buf.String(), "msg=probe")
			}
		})
	}
}
