package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/trendloom/internal/scenario"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Decimals)
	assert.Equal(t, "png", c.ChartFormat)
	assert.Equal(t, "trendloom-out", c.OutputDir)
	assert.Equal(t, 30, c.HistogramBins)
	assert.Equal(t, scenario.DefaultParameters(), c.Scenario)
	assert.Len(t, c.IndicatorSpecs(), len(scenario.DefaultIndicators()))
	assert.InDelta(t, 8.0, c.ChartSize().Width, 1e-9)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Set("delimiter", ";"))
	require.NoError(t, c.Set("scenario.seed", "7"))
	require.NoError(t, c.Set("scenario.noise_scale", "0"))
	c.Indicators = []scenario.Indicator{{Name: "Heat days", Unit: "days", Group: scenario.GroupClimate, Base: 10, Coefficient: 2, Exponent: 1}}
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ";", got.Delimiter)
	assert.Equal(t, uint64(7), got.Scenario.Seed)
	assert.Zero(t, got.Scenario.NoiseScale)
	require.Len(t, got.IndicatorSpecs(), 1)
	assert.Equal(t, "Heat days", got.IndicatorSpecs()[0].Name)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("decimals: 1\nscenario:\n  sensitivity: 0.3\n"), 0o644))
	t.Setenv("TRENDLOOM_DECIMALS", "5")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Decimals)
	assert.InDelta(t, 0.3, c.Scenario.Sensitivity, 1e-12)
}

func TestLoadRejectsInvalidScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenario:\n  noise_scale: -1\n"), 0o644))
	_, err := Load(path)
	var ip *scenario.InvalidParameterError
	require.ErrorAs(t, err, &ip)
	assert.Equal(t, "noise_scale", ip.Name)
}

func TestSetAndGet(t *testing.T) {
	c := &Global{}
	for _, k := range Keys {
		_, err := c.Get(k)
		assert.NoError(t, err, k)
	}
	require.NoError(t, c.Set("chart_format", "SVG"))
	v, _ := c.Get("chart_format")
	assert.Equal(t, "svg", v)

	bad := map[string]string{
		"delimiter":         "|",
		"decimals":          "-1",
		"chart_format":      "gif",
		"chart_width_in":    "0.5",
		"histogram_bins":    "0",
		"scenario.seed":     "-3",
		"scenario.severity": "-1",
		"nope":              "1",
	}
	for k, val := range bad {
		assert.Error(t, c.Set(k, val), k)
	}
}

func TestDelimiterRune(t *testing.T) {
	for in, want := range map[string]rune{"": 0, ",": ',', "semicolon": ';', "tab": '\t', `\t`: '\t'} {
		got, err := DelimiterRune(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
