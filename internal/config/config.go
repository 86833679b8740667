package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// OutputDir receives plots and report.md; empty means "<table>_out".
	OutputDir      string  `mapstructure:"output_dir" yaml:"output_dir"`
	HighPercentile float64 `mapstructure:"high_percentile" yaml:"high_percentile"`
	LowPercentile  float64 `mapstructure:"low_percentile" yaml:"low_percentile"`
	SkipPlots      bool    `mapstructure:"skip_plots" yaml:"skip_plots"`
	TopN           int     `mapstructure:"top_n" yaml:"top_n"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Plot canvas size in pixels
	PlotWidth  int `mapstructure:"plot_width" yaml:"plot_width"`
	PlotHeight int `mapstructure:"plot_height" yaml:"plot_height"`

	// Bin size used by import when a counts file has no start/stop columns
	DefaultBinSize int64 `mapstructure:"default_bin_size" yaml:"default_bin_size"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"output_dir", "high_percentile", "low_percentile", "skip_plots", "top_n",
	"log_level", "log_format", "plot_width", "plot_height", "default_bin_size",
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		HighPercentile: 95,
		LowPercentile:  5,
		TopN:           20,
		LogLevel:       "info",
		LogFormat:      "text",
		PlotWidth:      1100,
		PlotHeight:     450,
		DefaultBinSize: 100000,
	}
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".binliquidator"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.binliquidator/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. A .env file in the working
// directory is loaded into the environment first; existing variables win.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("BINLIQ")
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("high_percentile", d.HighPercentile)
	v.SetDefault("low_percentile", d.LowPercentile)
	v.SetDefault("skip_plots", d.SkipPlots)
	v.SetDefault("top_n", d.TopN)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("plot_width", d.PlotWidth)
	v.SetDefault("plot_height", d.PlotHeight)
	v.SetDefault("default_bin_size", d.DefaultBinSize)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges.
func (c *Global) Validate() error {
	if c.HighPercentile < 0 || c.HighPercentile > 100 {
		return fmt.Errorf("high_percentile must be within 0..100, got %g", c.HighPercentile)
	}
	if c.LowPercentile < 0 || c.LowPercentile > 100 {
		return fmt.Errorf("low_percentile must be within 0..100, got %g", c.LowPercentile)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format: %s (use text or json)", c.LogFormat)
	}
	if c.DefaultBinSize < 0 {
		return fmt.Errorf("default_bin_size must not be negative")
	}
	return nil
}
