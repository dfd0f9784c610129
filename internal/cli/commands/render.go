package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/leapstack-labs/leaptable/pkg/core"
)

// Output modes for table rendering.
const (
	FormatAuto     = "auto"
	FormatTable    = "table"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// effectiveFormat resolves "auto": boxed tables on a terminal, markdown
// when piped.
func effectiveFormat(w io.Writer, format string) (string, error) {
	switch format {
	case "", FormatAuto:
		if isTerminal(w) {
			return FormatTable, nil
		}
		return FormatMarkdown, nil
	case FormatTable, FormatMarkdown, FormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected auto, table, markdown or json)", format)
	}
}

// renderRows writes records under the given columns.
func renderRows(w io.Writer, format string, cols []*core.Column, records []map[string]any) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c.Label
	}
	t.AppendHeader(header)

	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			row[i] = core.ToString(rec[c.Key])
		}
		t.AppendRow(row)
	}

	if format == FormatMarkdown {
		t.RenderMarkdown()
	} else {
		t.Render()
	}
	return nil
}
