package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/tabular"
)

var (
	expTable  string
	expOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <table-file>",
	Short: "Export a table of a table file to XLSX, CSV or TSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if expOutput == "" {
			return fmt.Errorf("--output is required")
		}
		if !store.KnownTable(expTable) {
			return fmt.Errorf("unknown table: %s (known: %s)", expTable, strings.Join(store.KnownTables(), ", "))
		}
		s, err := openTable(args[0])
		if err != nil {
			return err
		}
		defer s.Close()
		ok, err := s.HasTable(expTable)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("table %s not found in %s; run summarize first", expTable, args[0])
		}
		cols, rows, err := s.Dump(expTable)
		if err != nil {
			return err
		}
		if err := tabular.Export(expOutput, expTable, cols, rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported %d rows of %s to %s\n", len(rows), expTable, expOutput)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&expTable, "table", "t", store.TableSortedSummary, "table to export")
	exportCmd.Flags().StringVarP(&expOutput, "output", "o", "", "output path (.xlsx, .csv or .tsv)")
}
