package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/KaramelBytes/trendloom/internal/config"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/table"
)

var (
	// Global flags
	cfgFile string
	debug   bool
	pretty  bool
	// Output flags (override config if set)
	flagDecimals  int
	flagOutputDir string

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger is built per invocation; library packages receive it explicitly.
	logger = zap.NewNop()
	// cache is shared by every command of one process.
	cache *table.Cache
)

var rootCmd = &cobra.Command{
	Use:   "trendloom",
	Short: "Trendloom CLI: trends, correlations and scenario projections from tabular data",
	Long: `Trendloom loads a CSV/TSV/XLSX table, derives change rates, correlations and
linear fits, projects a synthetic temperature scenario with impact indicators,
and renders charts plus a Markdown dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(debug)
		if err != nil {
			return err
		}
		logger = l
		if cache == nil {
			cache = table.NewCache(logger)
		}
		loadConfig(cmd)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent global flags available to all subcommands
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.trendloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "render Markdown output for the terminal")
	rootCmd.PersistentFlags().IntVar(&flagDecimals, "decimals", 0, "decimals for printed values (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, "output-dir", "", "directory for charts and reports (overrides config)")
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return l, nil
}

func loadConfig(cmd *cobra.Command) {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Default()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := cmd.Root().PersistentFlags()
	if f.Changed("decimals") && flagDecimals >= 0 {
		cfg.Decimals = flagDecimals
	}
	if f.Changed("output-dir") && flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	logger.Debug("config loaded", zap.String("file", cfgFile), zap.Int("decimals", cfg.Decimals), zap.String("output_dir", cfg.OutputDir))
}

// printMarkdown writes md as-is, or rendered by glamour with --pretty.
func printMarkdown(cmd *cobra.Command, md string) error {
	if pretty {
		out, err := report.Pretty(md, cfg.MarkdownStyle, 100)
		if err != nil {
			return err
		}
		md = out
	}
	fmt.Fprintln(cmd.OutOrStdout(), md)
	return nil
}

// warn prints the user-facing form of err, if any.
// degrade prints recoverable errors as warnings and returns the rest.
func degrade(cmd *cobra.Command, err error) error {
	if !report.Recoverable(err) {
		return err
	}
	warn(cmd, err)
	return nil
}

func warn(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", report.Warning(err))
	}
}
