package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/pipeline"
	"github.com/KaramelBytes/binliquidator-cli/internal/plot"
	"github.com/KaramelBytes/binliquidator-cli/internal/report"
	"github.com/KaramelBytes/binliquidator-cli/internal/tabular"
	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

var (
	sumTotalsPath string
	sumSheetName  string
	sumOutputDir  string
	sumSkipPlots  bool
	sumHigh       float64
	sumLow        float64
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <table-file>",
	Short: "Normalize counts, rank percentiles and build the bin summary",
	Long: `Regenerate normalized_counts, summary and sorted_summary from bin_counts.
Counts are normalized by bin width and file depth, ranked into percentiles per
cell type and line, averaged per cell type and tallied per bin against the
high and low percentile thresholds. Plots and report.md go to the output
directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tablePath := args[0]
		c := settings()
		f := cmd.Flags()

		opt := pipeline.Options{
			OutputDir:  c.OutputDir,
			SkipPlots:  c.SkipPlots,
			Thresholds: pipeline.Thresholds{High: c.HighPercentile, Low: c.LowPercentile},
			Plot:       plot.Options{Width: c.PlotWidth, Height: c.PlotHeight},
			Logger:     log,
		}
		if f.Changed("output-dir") {
			opt.OutputDir = sumOutputDir
		}
		if opt.OutputDir == "" {
			opt.OutputDir = utils.DefaultOutputDir(tablePath)
		}
		if f.Changed("skip-plots") {
			opt.SkipPlots = sumSkipPlots
		}
		if f.Changed("high") {
			opt.Thresholds.High = sumHigh
		}
		if f.Changed("low") {
			opt.Thresholds.Low = sumLow
		}
		if opt.Thresholds.Low > opt.Thresholds.High {
			return fmt.Errorf("low percentile %g is above high percentile %g", opt.Thresholds.Low, opt.Thresholds.High)
		}
		if sumTotalsPath != "" {
			totals, err := tabular.ReadTotals(sumTotalsPath, sumSheetName)
			if err != nil {
				return err
			}
			opt.Totals = totals
		}

		s, err := openTable(tablePath)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := pipeline.Run(cmd.Context(), s, opt)
		if err != nil {
			return err
		}

		rep, err := report.Build(s, res, settings().TopN)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(opt.OutputDir); err != nil {
			return err
		}
		reportPath := filepath.Join(opt.OutputDir, report.FileName)
		if err := utils.SafeWriteFile(reportPath, []byte(rep.Markdown())); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Normalized %d rows across %d cell types\n", res.NormalizedRows, len(res.CellTypes))
		fmt.Fprintf(out, "✓ Summarized %d bins on %d chromosomes\n", res.SummaryRows, len(res.Chromosomes))
		if len(res.PlotFiles) > 0 {
			fmt.Fprintf(out, "✓ Wrote %d plots to %s\n", len(res.PlotFiles), opt.OutputDir)
		}
		fmt.Fprintf(out, "✓ Wrote report to %s\n", reportPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
	summarizeCmd.Flags().StringVar(&sumTotalsPath, "totals", "", "CSV/TSV/XLSX of file_name,total_count (default: totals stored in the table file)")
	summarizeCmd.Flags().StringVar(&sumSheetName, "sheet-name", "", "XLSX: sheet name of the totals file")
	summarizeCmd.Flags().StringVarP(&sumOutputDir, "output-dir", "o", "", "directory for plots and report.md")
	summarizeCmd.Flags().BoolVar(&sumSkipPlots, "skip-plots", false, "do not render HTML plots")
	summarizeCmd.Flags().Float64Var(&sumHigh, "high", 95, "high percentile threshold")
	summarizeCmd.Flags().Float64Var(&sumLow, "low", 5, "low percentile threshold")
}
