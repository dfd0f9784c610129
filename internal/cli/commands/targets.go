package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/internal/catalog"
)

// TargetInfo describes one configured database target.
type TargetInfo struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Tables []string `json:"tables"`
	Error  string   `json:"error,omitempty"`
}

// NewTargetsCommand creates the targets command.
func NewTargetsCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "targets",
		Short: "List database targets and the tables they contain",
		Long: `Connect to every target in leaptable.yaml and list its database tables.

A target that cannot be reached is reported with its error instead of
failing the command.`,
		Example: `  leaptable targets
  leaptable targets --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := GetSession(cmd.Context())
			if err != nil {
				return err
			}

			conns := catalog.NewConnections(s.Config.Targets, s.Logger)
			defer func() { _ = conns.Close() }()

			infos := make([]TargetInfo, 0, len(s.Config.Targets))
			for _, name := range s.Config.TargetNames() {
				info := TargetInfo{Name: name, Type: s.Config.Targets[name].AdapterConfig().Type}
				conn, err := conns.Get(cmd.Context(), name)
				if err == nil {
					info.Tables, err = conn.ListTables(cmd.Context())
				}
				if err != nil {
					info.Error = err.Error()
				}
				if info.Tables == nil {
					info.Tables = []string{}
				}
				infos = append(infos, info)
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
				_, _ = fmt.Fprintln(w, "No targets configured.")
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(w)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Tables"})
			for _, info := range infos {
				tables := strings.Join(info.Tables, ", ")
				if info.Error != "" {
					tables = "error: " + info.Error
				}
				t.AppendRow(table.Row{info.Name, info.Type, tables})
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
