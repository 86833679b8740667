package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/store"
	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

var runsJSON bool

var runsCmd = &cobra.Command{
	Use:   "runs <table-file>",
	Short: "List pipeline runs recorded in a table file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openTable(args[0])
		if err != nil {
			return err
		}
		defer s.Close()
		runs, err := s.Runs()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsJSON {
			if runs == nil {
				runs = []store.Run{}
			}
			b, err := utils.PrettyJSON(runs)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, r := range runs {
			fmt.Fprintf(out, "- %s  %s  %s  cell types %d, chromosomes %d, normalized %d, summary %d\n",
				r.RunID, r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
				r.CellTypes, r.Chromosomes, r.NormalizedRows, r.SummaryRows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print runs as JSON")
}
