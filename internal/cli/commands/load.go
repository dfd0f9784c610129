package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaptable/internal/catalog"
)

// NewLoadCommand creates the load command.
func NewLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <target> <table> <file.csv>",
		Short: "Load a CSV file into a target database",
		Long: `Load a CSV file into a table of a configured target.

The table is dropped and recreated from the CSV header, so existing rows
are replaced. Table definitions are not loaded, which makes this usable
for seeding a database before tables are declared on it.`,
		Example: `  leaptable load shop products data/products.csv`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := GetSession(cmd.Context())
			if err != nil {
				return err
			}
			target, table, file := args[0], args[1], args[2]

			conns := catalog.NewConnections(s.Config.Targets, s.Logger)
			defer func() {
				if err := conns.Close(); err != nil {
					s.Logger.Warn("failed to close connections", slog.String("error", err.Error()))
				}
			}()

			conn, err := conns.Get(cmd.Context(), target)
			if err != nil {
				return err
			}
			if err := conn.LoadCSV(cmd.Context(), table, file); err != nil {
				return fmt.Errorf("failed to load %s: %w", file, err)
			}
			meta, err := conn.GetTableMetadata(cmd.Context(), table)
			if err != nil {
				return err
			}

			s.Logger.Debug("csv loaded", slog.String("target", target), slog.String("table", table))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d rows into %s.%s (%d columns)\n",
				meta.RowCount, target, table, len(meta.Columns))
			return nil
		},
	}
	return cmd
}
