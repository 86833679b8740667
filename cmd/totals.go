package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/tabular"
)

var totSheetName string

var totalsCmd = &cobra.Command{
	Use:   "totals <table-file> <totals-file>",
	Short: "Replace the per-file total read counts stored in a table file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		totals, err := tabular.ReadTotals(args[1], totSheetName)
		if err != nil {
			return err
		}
		s, err := store.Open(args[0])
		if err != nil {
			return err
		}
		defer s.Close()

		tx, err := s.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()
		if err := tx.ReplaceFileTotals(totals); err != nil {
			return err
		}
		if err := tx.Flush(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Stored totals for %d files\n", len(totals))
		return warnMissingTotals(cmd, s, totals)
	},
}

// warnMissingTotals flags imported files the totals do not cover; summarize
// would fail on them.
func warnMissingTotals(cmd *cobra.Command, s *store.Store, totals map[string]int64) error {
	files, err := s.ImportedFiles()
	if err != nil {
		return err
	}
	for _, name := range files {
		if _, ok := totals[name]; !ok {
			fmt.Fprintf(cmd.OutOrStdout(), "⚠ No total for imported file %s\n", name)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(totalsCmd)
	totalsCmd.Flags().StringVar(&totSheetName, "sheet-name", "", "XLSX: sheet name to read")
}
