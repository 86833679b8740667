package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/binliquidator-cli/internal/report"
	"github.com/KaramelBytes/binliquidator-cli/internal/utils"
)

var (
	topN    int
	topJSON bool
)

var topCmd = &cobra.Command{
	Use:   "top <table-file>",
	Short: "Show the bins with the highest average cell type percentile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := topN
		if !cmd.Flags().Changed("limit") {
			n = settings().TopN
		}
		if n <= 0 {
			return fmt.Errorf("-n must be positive")
		}
		s, err := openTable(args[0])
		if err != nil {
			return err
		}
		defer s.Close()
		rep, err := report.Build(s, nil, n)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if topJSON {
			b, err := utils.PrettyJSON(rep.Top)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprint(out, rep.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().IntVarP(&topN, "limit", "n", 20, "number of bins to show (default from config)")
	topCmd.Flags().BoolVar(&topJSON, "json", false, "print the bins as JSON")
}
