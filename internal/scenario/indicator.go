package scenario

import (
	"fmt"
	"math"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/KaramelBytes/trendloom/internal/series"
)

// Indicator is a second-order response to the projected anomaly:
//
//	value = base + coefficient * anomaly^exponent + noise, clamped to [floor, ceiling]
type Indicator struct {
	Name        string   `mapstructure:"name" yaml:"name" json:"name"`
	Unit        string   `mapstructure:"unit" yaml:"unit,omitempty" json:"unit,omitempty"`
	Group       string   `mapstructure:"group" yaml:"group,omitempty" json:"group,omitempty"`
	Base        float64  `mapstructure:"base" yaml:"base" json:"base"`
	Coefficient float64  `mapstructure:"coefficient" yaml:"coefficient" json:"coefficient"`
	Exponent    float64  `mapstructure:"exponent" yaml:"exponent" json:"exponent"`
	NoiseScale  float64  `mapstructure:"noise_scale" yaml:"noise_scale" json:"noise_scale"`
	Floor       *float64 `mapstructure:"floor" yaml:"floor,omitempty" json:"floor,omitempty"`
	Ceiling     *float64 `mapstructure:"ceiling" yaml:"ceiling,omitempty" json:"ceiling,omitempty"`
}

// Indicator groups used by the dashboard.
const (
	GroupClimate   = "climate"
	GroupEcosystem = "ecosystem"
)

func bound(v float64) *float64 { return &v }

// DefaultIndicators returns the climate and ecosystem indicators of the reference scenario.
func DefaultIndicators() []Indicator {
	return []Indicator{
		{Name: "Extreme_Weather_Events", Unit: "events/yr", Group: GroupClimate, Base: 12, Coefficient: 15, Exponent: 2, NoiseScale: 2, Floor: bound(12)},
		{Name: "Sea_Level_Rise", Unit: "mm/yr", Group: GroupClimate, Base: 1.5, Coefficient: 0.8, Exponent: 1, NoiseScale: 0.1, Floor: bound(0)},
		{Name: "Glacier_Loss", Unit: "%", Group: GroupClimate, Base: 0.5, Coefficient: 1.2, Exponent: 1, NoiseScale: 0.15, Floor: bound(0)},
		{Name: "Biodiversity_Loss", Unit: "%", Group: GroupEcosystem, Base: 2.0, Coefficient: 3.5, Exponent: 1, NoiseScale: 0.3, Floor: bound(0)},
		{Name: "Coral_Bleaching", Unit: "%", Group: GroupEcosystem, Base: 5, Coefficient: 25, Exponent: 1.5, NoiseScale: 2, Floor: bound(0), Ceiling: bound(100)},
		{Name: "Forest_Fire_Area", Unit: "kha", Group: GroupEcosystem, Base: 500, Coefficient: 800, Exponent: 1, NoiseScale: 100, Floor: bound(500)},
		{Name: "Species_Migration", Unit: "km", Group: GroupEcosystem, Base: 50, Coefficient: 120, Exponent: 1, NoiseScale: 15, Floor: bound(0)},
	}
}

// Validate checks the indicator's numbers and bounds.
func (ind Indicator) Validate() error {
	if strings.TrimSpace(ind.Name) == "" {
		return &InvalidParameterError{Name: "indicator.name", Value: math.NaN(), Reason: "must not be empty"}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"base", ind.Base},
		{"coefficient", ind.Coefficient},
		{"exponent", ind.Exponent},
		{"noise_scale", ind.NoiseScale},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InvalidParameterError{Name: ind.Name + "." + f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	if ind.NoiseScale < 0 {
		return &InvalidParameterError{Name: ind.Name + ".noise_scale", Value: ind.NoiseScale, Reason: "must not be negative"}
	}
	if ind.Floor != nil && ind.Ceiling != nil && *ind.Floor > *ind.Ceiling {
		return &InvalidParameterError{
			Name:   ind.Name + ".floor",
			Value:  *ind.Floor,
			Reason: fmt.Sprintf("exceeds ceiling %g", *ind.Ceiling),
		}
	}
	return nil
}

// Evaluate is the noise-free indicator value for an anomaly.
func (ind Indicator) Evaluate(anomaly float64) float64 {
	return ind.clamp(ind.Base + ind.Coefficient*response(anomaly, ind.Exponent))
}

func (ind Indicator) clamp(v float64) float64 {
	if ind.Floor != nil && v < *ind.Floor {
		v = *ind.Floor
	}
	if ind.Ceiling != nil && v > *ind.Ceiling {
		v = *ind.Ceiling
	}
	return v
}

// response raises anomaly to exponent. A negative anomaly under a fractional
// exponent has no real power and contributes nothing.
func response(anomaly, exponent float64) float64 {
	switch {
	case exponent == 1:
		return anomaly
	case anomaly < 0 && exponent != math.Trunc(exponent):
		return 0
	default:
		return math.Pow(anomaly, exponent)
	}
}

// Indicators evaluates every indicator against the projected series. Each indicator
// draws its noise from its own stream keyed by (p.Seed, name), so adding or
// reordering indicators does not change the others.
func Indicators(projected series.Series, p Parameters, specs []Indicator) ([]series.Series, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if projected.Empty() {
		return nil, series.ErrInsufficientData
	}
	seen := map[string]struct{}{}
	for _, ind := range specs {
		if err := ind.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[ind.Name]; dup {
			return nil, &InvalidParameterError{Name: ind.Name, Value: math.NaN(), Reason: "duplicate indicator name"}
		}
		seen[ind.Name] = struct{}{}
	}

	out := make([]series.Series, 0, len(specs))
	for _, ind := range specs {
		rng := newNormal(p.Seed, xxh3.HashString(ind.Name))
		s := series.Series{
			Name:   ind.Name,
			Index:  append([]float64(nil), projected.Index...),
			Values: make([]float64, projected.Len()),
		}
		for i, v := range projected.Values {
			anomaly := v - p.BaselineOffset
			s.Values[i] = ind.clamp(ind.Base + ind.Coefficient*response(anomaly, ind.Exponent) + rng.draw(ind.NoiseScale))
		}
		out = append(out, s)
	}
	return out, nil
}
