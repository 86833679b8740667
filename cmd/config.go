package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/binliquidator-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set binliquidator configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		outputDir := c.OutputDir
		if outputDir == "" {
			outputDir = "(next to the table file)"
		}
		fmt.Fprintf(out, "output_dir: %s\n", outputDir)
		fmt.Fprintf(out, "high_percentile: %g\n", c.HighPercentile)
		fmt.Fprintf(out, "low_percentile: %g\n", c.LowPercentile)
		fmt.Fprintf(out, "skip_plots: %t\n", c.SkipPlots)
		fmt.Fprintf(out, "top_n: %d\n", c.TopN)
		fmt.Fprintf(out, "log_level: %s\n", c.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", c.LogFormat)
		fmt.Fprintf(out, "plot_width: %d\n", c.PlotWidth)
		fmt.Fprintf(out, "plot_height: %d\n", c.PlotHeight)
		fmt.Fprintf(out, "default_bin_size: %d\n", c.DefaultBinSize)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c := *settings()
		switch key {
		case "output_dir":
			c.OutputDir = val
		case "high_percentile", "low_percentile":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for %s: %v", key, val)
			}
			if key == "high_percentile" {
				c.HighPercentile = f
			} else {
				c.LowPercentile = f
			}
		case "skip_plots":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for skip_plots: %v", val)
			}
			c.SkipPlots = b
		case "top_n", "plot_width", "plot_height":
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			switch key {
			case "top_n":
				c.TopN = i
			case "plot_width":
				c.PlotWidth = i
			default:
				c.PlotHeight = i
			}
		case "log_level":
			c.LogLevel = strings.ToLower(val)
		case "log_format":
			c.LogFormat = strings.ToLower(val)
		case "default_bin_size":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil || i <= 0 {
				return fmt.Errorf("invalid positive int for default_bin_size: %v", val)
			}
			c.DefaultBinSize = i
		default:
			return fmt.Errorf("unknown key: %s (known: %s)", key, strings.Join(cfgpkg.Keys, ", "))
		}
		if err := c.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&c, cfgFile); err != nil {
			return err
		}
		cfg = &c
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
