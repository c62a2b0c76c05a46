// Package scenario derives deterministic synthetic series from an observed
// baseline: a projected temperature path and the indicators that respond to it.
package scenario

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/KaramelBytes/trendloom/internal/series"
)

// ProjectedName is the name given to the series returned by Project.
const ProjectedName = "Average_Temperature"

// pcgStream is the fixed second word of every PCG state; only the seed varies.
const pcgStream = 0x9e3779b97f4a7c15

// Parameters configures a projection.
type Parameters struct {
	// BaselineOffset is the projected value at the first baseline point.
	BaselineOffset float64 `mapstructure:"baseline_offset" yaml:"baseline_offset"`
	// Sensitivity converts a change in the baseline into a change in the projection.
	Sensitivity float64 `mapstructure:"sensitivity" yaml:"sensitivity"`
	// Severity scales Sensitivity, for "what if it were worse" runs. 0 means 1.
	Severity   float64 `mapstructure:"severity" yaml:"severity"`
	NoiseScale float64 `mapstructure:"noise_scale" yaml:"noise_scale"`
	Seed       uint64  `mapstructure:"seed" yaml:"seed"`
}

// DefaultParameters mirror the reference scenario: 14°C at the start, 0.15°C per Mt.
func DefaultParameters() Parameters {
	return Parameters{
		BaselineOffset: 14.0,
		Sensitivity:    0.15,
		Severity:       1.0,
		NoiseScale:     0.1,
		Seed:           42,
	}
}

// InvalidParameterError reports a parameter outside its domain.
type InvalidParameterError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%g: %s", e.Name, e.Value, e.Reason)
}

// Validate checks every field is finite and the noise scale is not negative.
func (p Parameters) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"baseline_offset", p.BaselineOffset},
		{"sensitivity", p.Sensitivity},
		{"severity", p.Severity},
		{"noise_scale", p.NoiseScale},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return &InvalidParameterError{Name: f.name, Value: f.v, Reason: "must be finite"}
		}
	}
	if p.NoiseScale < 0 {
		return &InvalidParameterError{Name: "noise_scale", Value: p.NoiseScale, Reason: "must not be negative"}
	}
	if p.Severity < 0 {
		return &InvalidParameterError{Name: "severity", Value: p.Severity, Reason: "must not be negative"}
	}
	return nil
}

func (p Parameters) gain() float64 {
	if p.Severity == 0 {
		return p.Sensitivity
	}
	return p.Sensitivity * p.Severity
}

// Project maps a baseline onto the scenario:
//
//	derived[i] = offset + (baseline[i] - baseline[0]) * sensitivity * severity + noise[i]
//
// with noise drawn from N(0, noiseScale) by a generator seeded only by p.Seed, so
// equal inputs give bit-identical output across calls and processes. Missing
// baseline values are dropped and points are taken in index order.
func Project(baseline series.Series, p Parameters) (series.Series, error) {
	if err := p.Validate(); err != nil {
		return series.Series{}, err
	}
	b := baseline.DropMissing().Sorted()
	if b.Empty() {
		return series.Series{}, series.ErrInsufficientData
	}
	rng := newNormal(p.Seed, 0)
	out := series.Series{
		Name:   ProjectedName,
		Index:  append([]float64(nil), b.Index...),
		Values: make([]float64, b.Len()),
	}
	first := b.Values[0]
	for i, v := range b.Values {
		out.Values[i] = p.BaselineOffset + (v-first)*p.gain() + rng.draw(p.NoiseScale)
	}
	return out, nil
}

// Forecast is the noise-free projection for a driver value that may lie outside
// the observed baseline, such as a planned emissions level.
func Forecast(baseline series.Series, p Parameters, driver float64) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	b := baseline.DropMissing().Sorted()
	if b.Empty() {
		return 0, series.ErrInsufficientData
	}
	if math.IsNaN(driver) || math.IsInf(driver, 0) {
		return 0, &InvalidParameterError{Name: "driver", Value: driver, Reason: "must be finite"}
	}
	return p.BaselineOffset + (driver-b.Values[0])*p.gain(), nil
}

type normal struct {
	r *rand.Rand
}

func newNormal(seed, stream uint64) normal {
	return normal{r: rand.New(rand.NewPCG(seed, pcgStream^stream))}
}

// draw returns one N(0, scale) sample. A zero scale still advances the stream.
func (n normal) draw(scale float64) float64 {
	return n.r.NormFloat64() * scale
}
