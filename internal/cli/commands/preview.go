package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/pkg/datatable"
)

// PreviewOptions holds options for the preview command.
type PreviewOptions struct {
	RequestOptions
	Format string
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand() *cobra.Command {
	opts := &PreviewOptions{}

	cmd := &cobra.Command{
		Use:   "preview <table>",
		Short: "Run a table request and print the page",
		Long: `Run one request against a configured table and print the resulting page,
exactly as the HTTP endpoint would compute it.

Output adapts to environment:
  - Terminal: boxed table
  - Piped/Scripted: Markdown table

Use --output to override: auto, table, markdown, json`,
		Example: `  # First page of a table
  leaptable preview users

  # Search, filter and order
  leaptable preview users --search jo --filter status=active --order created_at:desc

  # Numeric range filter, second page of 25
  leaptable preview orders -f total.min=100 --start 25 --length 25

  # Raw response as JSON
  leaptable preview users --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, args[0], opts)
		},
	}

	opts.addFlags(cmd, true)
	cmd.Flags().StringVarP(&opts.Format, "output", "o", FormatAuto, "Output format (auto|table|markdown|json)")

	return cmd
}

func runPreview(cmd *cobra.Command, name string, opts *PreviewOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	t, err := cmdCtx.Tables.Get(name)
	if err != nil {
		return err
	}
	req, err := opts.Request(t)
	if err != nil {
		return err
	}
	format, err := effectiveFormat(cmd.OutOrStdout(), opts.Format)
	if err != nil {
		return err
	}

	resp, err := t.Run(cmd.Context(), req)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format == FormatJSON {
		return renderJSON(w, resp)
	}
	if err := renderRows(w, format, t.Columns().Visible(), resp.Data); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, pageSummary(resp, req.Start))
	return nil
}

func renderJSON(w io.Writer, resp *datatable.Response) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// pageSummary is the usual "Showing 1 to 10 of 57 entries" line.
func pageSummary(resp *datatable.Response, start int) string {
	from, to := 0, 0
	if len(resp.Data) > 0 {
		from = start + 1
		to = start + len(resp.Data)
	}
	s := fmt.Sprintf("Showing %d to %d of %d entries", from, to, resp.RecordsFiltered)
	if resp.RecordsFiltered != resp.RecordsTotal {
		s += fmt.Sprintf(" (filtered from %d total entries)", resp.RecordsTotal)
	}
	return s
}
