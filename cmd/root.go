package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/binliquidator-cli/internal/config"
	"github.com/KaramelBytes/binliquidator-cli/internal/store"
)

var (
	// Global flags
	cfgFile string
	debug   bool

	// Loaded configuration
	cfg *cfgpkg.Global

	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "binliquidator",
	Short: "Normalize genomic bin counts and summarize them by percentile",
	Long: `binliquidator normalizes per-file genomic bin counts stored in a table file,
ranks them into percentiles per cell type and line, and summarizes which bins
stand out across cell types. Results are kept in the table file and rendered
as HTML plots and a Markdown report.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.binliquidator/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c
	configureLogger(cfg, debug)
}

func configureLogger(c *cfgpkg.Global, debug bool) {
	log.SetOutput(os.Stderr)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	if debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
}

// settings returns the loaded configuration, or the defaults when loading
// was skipped.
func settings() *cfgpkg.Global {
	if cfg == nil {
		return cfgpkg.Defaults()
	}
	return cfg
}

// openTable opens an existing table file.
func openTable(path string) (*store.Store, error) {
	s, err := store.OpenExisting(path)
	if err != nil {
		return nil, err
	}
	log.WithField("table_file", path).Debug("opened table file")
	return s, nil
}
