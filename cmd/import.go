package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/tabular"
)

var (
	impBinSize   int64
	impSheetName string
	impCellType  string
	impFileName  string
	impReplace   bool
)

var importCmd = &cobra.Command{
	Use:   "import <table-file> <counts-file...>",
	Short: "Load per-bin read counts from CSV/TSV/XLSX into a table file",
	Long: `Load per-bin read counts into the bin_counts table of a table file, creating
the file if needed. Each counts file needs a header with chromosome, bin_number
and count columns; cell_type, file_name, start and stop are optional and are
filled from --cell-type, the counts file name and --bin-size when absent.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tablePath, inputs := args[0], args[1:]
		if impFileName != "" && len(inputs) > 1 {
			return fmt.Errorf("--file-name only applies to a single counts file")
		}
		binSize := impBinSize
		if !cmd.Flags().Changed("bin-size") {
			binSize = settings().DefaultBinSize
		}

		s, err := store.Open(tablePath)
		if err != nil {
			return err
		}
		defer s.Close()
		existing, err := s.ImportedFiles()
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		for _, name := range existing {
			seen[name] = true
		}

		out := cmd.OutOrStdout()
		for _, in := range inputs {
			rows, err := tabular.ReadBinCounts(in, tabular.ImportOptions{
				BinSize:  binSize,
				Sheet:    impSheetName,
				CellType: impCellType,
				FileName: impFileName,
			})
			if err != nil {
				return err
			}
			files := map[string]bool{}
			for _, r := range rows {
				files[r.FileName] = true
			}

			tx, err := s.Begin()
			if err != nil {
				return err
			}
			for name := range files {
				if !seen[name] {
					continue
				}
				if !impReplace {
					tx.Rollback()
					return fmt.Errorf("file %s is already imported (use --replace to reload it)", name)
				}
				n, err := tx.DeleteBinCounts(name)
				if err != nil {
					tx.Rollback()
					return err
				}
				log.WithField("file_name", name).WithField("rows", n).Debug("replaced previous rows")
			}
			if err := tx.InsertBinCounts(rows); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Flush(); err != nil {
				return err
			}
			for name := range files {
				seen[name] = true
			}
			log.WithField("rows", len(rows)).WithField("source", in).Info("imported counts")
			fmt.Fprintf(out, "✓ Imported %d rows from %s\n", len(rows), filepath.Base(in))
		}
		fmt.Fprintf(out, "✓ Table file: %s\n", tablePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().Int64Var(&impBinSize, "bin-size", 0, "bin width in base pairs when counts have no start/stop (default from config)")
	importCmd.Flags().StringVar(&impSheetName, "sheet-name", "", "XLSX: sheet name to read")
	importCmd.Flags().StringVar(&impCellType, "cell-type", "", "cell type for counts files without a cell_type column")
	importCmd.Flags().StringVar(&impFileName, "file-name", "", "file name for a counts file without a file_name column")
	importCmd.Flags().BoolVar(&impReplace, "replace", false, "replace rows of files that were already imported")
}
