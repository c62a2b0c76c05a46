package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/trendloom/internal/analysis"
	"github.com/KaramelBytes/trendloom/internal/chart"
	"github.com/KaramelBytes/trendloom/internal/report"
	"github.com/KaramelBytes/trendloom/internal/scenario"
	"github.com/KaramelBytes/trendloom/internal/series"
	"github.com/KaramelBytes/trendloom/internal/utils"
)

var (
	prjLoad       loadFlags
	prjSelect     selectFlags
	prjOffset     float64
	prjSens       float64
	prjSeverity   float64
	prjNoise      float64
	prjSeed       uint64
	prjIndicators bool
	prjForecast   []float64
	prjJSON       string
	prjChart      string
)

var projectCmd = &cobra.Command{
	Use:   "project <file>",
	Short: "Project a synthetic temperature scenario from a baseline series",
	Long: `Project derives Average_Temperature from a baseline series:

  offset + (baseline - baseline[0]) * sensitivity * severity + N(0, noise)

The noise is seeded, so the same seed always yields the same projection.
With --indicators the climate and ecosystem indicators are evaluated on it,
and --forecast prints noise-free values for future baseline levels.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := scenarioParams(cmd)
		if err := p.Validate(); err != nil {
			return err
		}
		t, err := prjLoad.load(args[0])
		if err != nil {
			return err
		}
		base, _, err := t.Select(prjSelect.selection())
		if err != nil {
			return degrade(cmd, err)
		}
		projected, err := scenario.Project(base, p)
		if err != nil {
			return degrade(cmd, err)
		}
		logger.Debug("projected", zap.String("baseline", base.Name), zap.Int("points", projected.Len()), zap.Uint64("seed", p.Seed))
		out := cmd.OutOrStdout()

		tb := &report.Table{Headers: []string{"Index", base.Name, projected.Name}}
		for i, ix := range projected.Index {
			tb.Rows = append(tb.Rows, []string{series.FormatIndex(ix), report.Number(base.Values[i], cfg.Decimals), report.Number(projected.Values[i], 2)})
		}
		fmt.Fprintln(out, report.TerminalTable(tb))
		if reg, err := analysis.Correlate(base, projected); err != nil {
			warn(cmd, err)
		} else {
			fmt.Fprintln(out, report.Terminal(report.FormatRegression(reg)))
		}

		all := []series.Series{base, projected}
		specs := cfg.IndicatorSpecs()
		if prjIndicators {
			inds, err := scenario.Indicators(projected, p, specs)
			if err != nil {
				return degrade(cmd, err)
			}
			fmt.Fprintln(out, report.TerminalTable(indicatorTable(inds, specs)))
			all = append(all, inds...)
		}

		if len(prjForecast) > 0 {
			ft := &report.Table{Headers: []string{base.Name, projected.Name, "Anomaly"}}
			if prjIndicators {
				for _, ind := range specs {
					ft.Headers = append(ft.Headers, ind.Name)
				}
			}
			for _, driver := range prjForecast {
				v, err := scenario.Forecast(base, p, driver)
				if err != nil {
					return degrade(cmd, err)
				}
				anomaly := v - p.BaselineOffset
				row := []string{report.Number(driver, cfg.Decimals), report.Number(v, 2), report.Signed(anomaly, 2)}
				if prjIndicators {
					for _, ind := range specs {
						row = append(row, report.Number(ind.Evaluate(anomaly), 2))
					}
				}
				ft.Rows = append(ft.Rows, row)
			}
			fmt.Fprintln(out, "Forecast (noise-free):")
			fmt.Fprintln(out, report.TerminalTable(ft))
		}

		if prjJSON != "" {
			b, err := utils.PrettyJSON(all)
			if err != nil {
				return err
			}
			if err := utils.SafeWriteFile(prjJSON, b); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Wrote %d series to %s\n", len(all), prjJSON)
		}
		if prjChart != "" {
			return writeFigure(cmd, chart.DualAxis(base.Name+" and "+projected.Name, "year", base, projected), prjChart)
		}
		return nil
	},
}

// scenarioParams applies changed flags on top of the configured scenario.
func scenarioParams(cmd *cobra.Command) scenario.Parameters {
	p := cfg.Scenario
	f := cmd.Flags()
	if f.Changed("offset") {
		p.BaselineOffset = prjOffset
	}
	if f.Changed("sensitivity") {
		p.Sensitivity = prjSens
	}
	if f.Changed("severity") {
		p.Severity = prjSeverity
	}
	if f.Changed("noise") {
		p.NoiseScale = prjNoise
	}
	if f.Changed("seed") {
		p.Seed = prjSeed
	}
	return p
}

func indicatorTable(inds []series.Series, specs []scenario.Indicator) *report.Table {
	tb := &report.Table{Headers: []string{"Indicator", "Group", "Unit", "First", "Last", "Mean"}}
	for i, s := range inds {
		st := analysis.Describe(s.Values)
		tb.Rows = append(tb.Rows, []string{
			s.Name, specs[i].Group, specs[i].Unit,
			report.Number(s.Values[0], 2),
			report.Number(s.Values[s.Len()-1], 2),
			report.Number(st.Mean, 2),
		})
	}
	return tb
}

func init() {
	rootCmd.AddCommand(projectCmd)
	prjLoad.register(projectCmd)
	prjSelect.register(projectCmd)
	def := scenario.DefaultParameters()
	projectCmd.Flags().Float64Var(&prjOffset, "offset", def.BaselineOffset, "baseline temperature offset (overrides config)")
	projectCmd.Flags().Float64Var(&prjSens, "sensitivity", def.Sensitivity, "temperature change per unit of baseline change (overrides config)")
	projectCmd.Flags().Float64Var(&prjSeverity, "severity", def.Severity, "impact severity multiplier (overrides config)")
	projectCmd.Flags().Float64Var(&prjNoise, "noise", def.NoiseScale, "standard deviation of the noise, 0 disables it (overrides config)")
	projectCmd.Flags().Uint64Var(&prjSeed, "seed", def.Seed, "random seed (overrides config)")
	projectCmd.Flags().BoolVar(&prjIndicators, "indicators", false, "evaluate the climate and ecosystem indicators")
	projectCmd.Flags().Float64SliceVar(&prjForecast, "forecast", nil, "baseline values to forecast (repeatable)")
	projectCmd.Flags().StringVar(&prjJSON, "json", "", "write baseline, projection and indicators as JSON to this path")
	projectCmd.Flags().StringVar(&prjChart, "chart", "", "write the dual-axis chart to this path")
}
