package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/trendloom/internal/config"
	"github.com/KaramelBytes/trendloom/internal/report"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set Trendloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		if len(cfg.Indicators) == 0 {
			fmt.Fprintln(out, "indicators: (built-in defaults)")
		}
		for _, ind := range cfg.IndicatorSpecs() {
			fmt.Fprintf(out, "  - %s [%s] base=%g coefficient=%g exponent=%g noise=%g%s\n",
				ind.Name, ind.Group, ind.Base, ind.Coefficient, ind.Exponent, ind.NoiseScale, bounds(ind.Floor, ind.Ceiling))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfg.Scenario.Validate(); err != nil {
			return fmt.Errorf("%s", report.Warning(err))
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func bounds(floor, ceiling *float64) string {
	switch {
	case floor != nil && ceiling != nil:
		return fmt.Sprintf(" in [%g, %g]", *floor, *ceiling)
	case floor != nil:
		return fmt.Sprintf(" >= %g", *floor)
	case ceiling != nil:
		return fmt.Sprintf(" <= %g", *ceiling)
	}
	return ""
}
