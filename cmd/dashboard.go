package cmd

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/trendloom/internal/dashboard"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/utils"
)

var (
	dbLoad    loadFlags
	dbSelect  selectFlags
	dbTitle   string
	dbNoFiles bool
	dbPrint   bool
	dbQuiet   bool
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard <files...>",
	Short: "Build the Markdown dashboard with charts for one or more tables",
	Long: `Dashboard runs the whole pipeline for each file: column overview, change
summary, scenario projection with its correlation to the baseline, impact
indicators and charts. Each file gets its own directory under the output dir.
A file that cannot be loaded is reported and skipped; any other problem is
shown as a warning inside the dashboard.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files := expandInputs(args)
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		opt, err := dbLoad.options()
		if err != nil {
			return err
		}
		if err := cfg.Scenario.Validate(); err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		runner := dashboard.New(cache, logger)

		total, failed := len(files), 0
		used := map[string]int{}
		for i, path := range files {
			if !dbQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			req := dashboard.Request{
				Source:     path,
				Load:       opt,
				Selection:  dbSelect.selection(),
				Scenario:   cfg.Scenario,
				Indicators: cfg.IndicatorSpecs(),
				Format:     cfg.ChartFormat,
				Size:       cfg.ChartSize(),
				Bins:       cfg.HistogramBins,
				Decimals:   cfg.Decimals,
				Title:      dbTitle,
			}
			if !dbNoFiles {
				req.OutDir = outputDirFor(path, total, used)
			}
			res, err := runner.Run(cmd.Context(), req)
			if res == nil {
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ No dashboard for %s: %s\n", path, report.Warning(err))
				continue
			}
			if err != nil {
				return err
			}
			if !dbQuiet {
				for _, w := range res.Document.Warnings() {
					fmt.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
				}
			}
			if res.ReportPath != "" && !dbQuiet {
				fmt.Fprintf(out, "✓ Wrote dashboard to %s (%d charts)\n", res.ReportPath, len(res.Figures))
			}
			if dbPrint || res.ReportPath == "" {
				if err := printMarkdown(cmd, res.Document.Markdown()); err != nil {
					return err
				}
			}
		}
		if failed == total {
			return fmt.Errorf("no dashboard could be built (%d of %d inputs failed to load)", failed, total)
		}
		return nil
	},
}

// expandInputs resolves globs and drops duplicates. Unmatched arguments stay as
// literal paths.
func expandInputs(args []string) []string {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			// keep the literal path so a missing file is reported, not silently dropped
			matches = []string{arg}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files
}

// outputDirFor gives each input its own directory when more than one is processed.
// Inputs sharing a file name get numbered directories.
func outputDirFor(path string, total int, used map[string]int) string {
	if total == 1 {
		return cfg.OutputDir
	}
	base := filepath.Base(path)
	stem := utils.Slug(strings.TrimSuffix(base, filepath.Ext(base)))
	used[stem]++
	if n := used[stem]; n > 1 {
		stem = fmt.Sprintf("%s__%d", stem, n)
	}
	return filepath.Join(cfg.OutputDir, stem)
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dbLoad.register(dashboardCmd)
	dbSelect.register(dashboardCmd)
	dashboardCmd.Flags().StringVar(&dbTitle, "title", "", "dashboard title (default: derived from the file name)")
	dashboardCmd.Flags().BoolVar(&dbNoFiles, "no-files", false, "do not write charts or the report; print the Markdown instead")
	dashboardCmd.Flags().BoolVar(&dbPrint, "print", false, "also print the Markdown report")
	dashboardCmd.Flags().BoolVar(&dbQuiet, "quiet", false, "suppress progress and non-essential output")
}
