package commands

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/internal/catalog"
)

// TableInfo describes one configured table.
type TableInfo struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	Columns    int    `json:"columns"`
	Filters    int    `json:"filters"`
	Exportable bool   `json:"exportable"`
}

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "tables",
		Aliases: []string{"ls"},
		Short:   "List configured tables",
		Long: `List the tables defined in leaptable.yaml with their data source.

No database connections are opened.`,
		Example: `  leaptable tables
  leaptable tables --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := GetSession(cmd.Context())
			if err != nil {
				return err
			}

			infos := make([]TableInfo, 0, len(s.Config.Tables))
			for _, name := range s.Config.TableNames() {
				tc := s.Config.Tables[name]
				infos = append(infos, TableInfo{
					Name:       name,
					Source:     catalog.Describe(tc),
					Columns:    len(tc.Columns),
					Filters:    len(tc.Filters),
					Exportable: tc.Exportable,
				})
			}

			w := cmd.OutOrStdout()
			mode, err := effectiveFormat(w, format)
			if err != nil {
				return err
			}
			if mode == FormatJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(infos)
			}
			if len(infos) == 0 {
				_, _ = fmt.Fprintln(w, "No tables configured.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Source", "Columns", "Filters", "Export"})
			for _, info := range infos {
				export := "no"
				if info.Exportable {
					export = "yes"
				}
				t.AppendRow(table.Row{info.Name, info.Source, strconv.Itoa(info.Columns), strconv.Itoa(info.Filters), export})
			}
			if mode == FormatMarkdown {
				t.RenderMarkdown()
			} else {
				t.Render()
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", FormatAuto, "Output format (auto|table|markdown|json)")
	return cmd
}
