package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/scenario"
)

// Global configuration structure.
type Global struct {
	// Delimiter is "", ",", ";" or "tab"; empty sniffs by file extension.
	Delimiter     string  `mapstructure:"delimiter" yaml:"delimiter"`
	Decimals      int     `mapstructure:"decimals" yaml:"decimals"`
	ChartFormat   string  `mapstructure:"chart_format" yaml:"chart_format"`
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in"`
	OutputDir     string  `mapstructure:"output_dir" yaml:"output_dir"`
	HistogramBins int     `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	// MarkdownStyle is the glamour style used by --pretty.
	MarkdownStyle string `mapstructure:"markdown_style" yaml:"markdown_style"`

	Scenario   scenario.Parameters  `mapstructure:"scenario" yaml:"scenario"`
	Indicators []scenario.Indicator `mapstructure:"indicators" yaml:"indicators,omitempty"`
}

// Keys lists the scalar keys accepted by Set, in display order.
var Keys = []string{
	"delimiter", "decimals", "chart_format", "chart_width_in", "chart_height_in",
	"output_dir", "histogram_bins", "markdown_style",
	"scenario.baseline_offset", "scenario.sensitivity", "scenario.severity",
	"scenario.noise_scale", "scenario.seed",
}

// Default returns the built-in configuration.
func Default() *Global {
	return &Global{
		Decimals:      3,
		ChartFormat:   "png",
		ChartWidthIn:  chart.DefaultSize.Width,
		ChartHeightIn: chart.DefaultSize.Height,
		OutputDir:     "trendloom-out",
		HistogramBins: chart.DefaultBins,
		MarkdownStyle: "dark",
		Scenario:      scenario.DefaultParameters(),
	}
}

// DelimiterRune maps a delimiter name to the rune the loader expects.
func DelimiterRune(s string) (rune, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", "tab", `\t`:
		return '\t', nil
	}
	return 0, fmt.Errorf("unsupported delimiter %q (use ',', ';' or tab)", s)
}

// ChartSize returns the configured figure size.
func (c *Global) ChartSize() chart.Size {
	return chart.Size{Width: c.ChartWidthIn, Height: c.ChartHeightIn}
}

// IndicatorSpecs returns the configured indicators, or the defaults when none are set.
func (c *Global) IndicatorSpecs() []scenario.Indicator {
	if len(c.Indicators) == 0 {
		return scenario.DefaultIndicators()
	}
	return c.Indicators
}

// Get returns the value of a scalar key as text.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "delimiter":
		return c.Delimiter, nil
	case "decimals":
		return strconv.Itoa(c.Decimals), nil
	case "chart_format":
		return c.ChartFormat, nil
	case "chart_width_in":
		return strconv.FormatFloat(c.ChartWidthIn, 'g', -1, 64), nil
	case "chart_height_in":
		return strconv.FormatFloat(c.ChartHeightIn, 'g', -1, 64), nil
	case "output_dir":
		return c.OutputDir, nil
	case "histogram_bins":
		return strconv.Itoa(c.HistogramBins), nil
	case "markdown_style":
		return c.MarkdownStyle, nil
	case "scenario.baseline_offset":
		return strconv.FormatFloat(c.Scenario.BaselineOffset, 'g', -1, 64), nil
	case "scenario.sensitivity":
		return strconv.FormatFloat(c.Scenario.Sensitivity, 'g', -1, 64), nil
	case "scenario.severity":
		return strconv.FormatFloat(c.Scenario.Severity, 'g', -1, 64), nil
	case "scenario.noise_scale":
		return strconv.FormatFloat(c.Scenario.NoiseScale, 'g', -1, 64), nil
	case "scenario.seed":
		return strconv.FormatUint(c.Scenario.Seed, 10), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val and assigns it to a scalar key.
func (c *Global) Set(key, val string) error {
	float := func(name string, dst *float64, min float64) error {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < min {
			return fmt.Errorf("invalid float for %s: %v", name, val)
		}
		*dst = f
		return nil
	}
	switch key {
	case "delimiter":
		if _, err := DelimiterRune(val); err != nil {
			return err
		}
		c.Delimiter = val
	case "decimals":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 || i > 10 {
			return fmt.Errorf("invalid int for decimals: %v", val)
		}
		c.Decimals = i
	case "chart_format":
		f := chart.FormatFromPath("x." + val)
		if f == "" {
			return fmt.Errorf("invalid chart_format: %s (use %s)", val, strings.Join(chart.Formats, ", "))
		}
		c.ChartFormat = f
	case "chart_width_in":
		return float(key, &c.ChartWidthIn, 1)
	case "chart_height_in":
		return float(key, &c.ChartHeightIn, 1)
	case "output_dir":
		c.OutputDir = val
	case "histogram_bins":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid int for histogram_bins: %v", val)
		}
		c.HistogramBins = i
	case "markdown_style":
		c.MarkdownStyle = val
	case "scenario.baseline_offset":
		return float(key, &c.Scenario.BaselineOffset, -1e300)
	case "scenario.sensitivity":
		return float(key, &c.Scenario.Sensitivity, -1e300)
	case "scenario.severity":
		return float(key, &c.Scenario.Severity, 0)
	case "scenario.noise_scale":
		return float(key, &c.Scenario.NoiseScale, 0)
	case "scenario.seed":
		u, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid uint for scenario.seed: %v", val)
		}
		c.Scenario.Seed = u
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".trendloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.trendloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
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
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TRENDLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	d := Default()
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("decimals", d.Decimals)
	v.SetDefault("chart_format", d.ChartFormat)
	v.SetDefault("chart_width_in", d.ChartWidthIn)
	v.SetDefault("chart_height_in", d.ChartHeightIn)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("histogram_bins", d.HistogramBins)
	v.SetDefault("markdown_style", d.MarkdownStyle)
	v.SetDefault("scenario.baseline_offset", d.Scenario.BaselineOffset)
	v.SetDefault("scenario.sensitivity", d.Scenario.Sensitivity)
	v.SetDefault("scenario.severity", d.Scenario.Severity)
	v.SetDefault("scenario.noise_scale", d.Scenario.NoiseScale)
	v.SetDefault("scenario.seed", d.Scenario.Seed)

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Scenario.Validate(); err != nil {
		return nil, fmt.Errorf("config scenario: %w", err)
	}
	for _, ind := range c.Indicators {
		if err := ind.Validate(); err != nil {
			return nil, fmt.Errorf("config indicators: %w", err)
		}
	}
	return &c, nil
}
