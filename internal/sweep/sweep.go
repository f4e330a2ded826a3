// Package sweep runs a parameter set repeatedly while one parameter walks
// a linear or logarithmic grid.
package sweep

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"rectifier-sim/internal/rectifier"
)

type Scale int

const (
	Linear Scale = iota
	Log
)

func (s Scale) String() string {
	if s == Log {
		return "log"
	}
	return "linear"
}

func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linear", "lin":
		return Linear, nil
	case "log", "logarithmic":
		return Log, nil
	default:
		return Linear, fmt.Errorf("unknown sweep scale %q", s)
	}
}

// Spec describes one sweep.
type Spec struct {
	Parameter string  `json:"parameter"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Steps     int     `json:"steps"`
	Scale     Scale   `json:"-"`
}

// Point is the outcome of one grid value.
type Point struct {
	Value    float64           `json:"value"`
	Derived  rectifier.Derived `json:"derived"`
	Metrics  rectifier.Metrics `json:"metrics"`
	Warnings []string          `json:"warnings,omitempty"`
}

type setter func(p *rectifier.Parameters, v float64)

func setInt(field func(p *rectifier.Parameters) *int) setter {
	return func(p *rectifier.Parameters, v float64) {
		*field(p) = int(math.Round(v))
	}
}

func setFloat(field func(p *rectifier.Parameters) *float64) setter {
	return func(p *rectifier.Parameters, v float64) {
		*field(p) = v
	}
}

// setMicro takes the value in micro units, as the µF controls do.
func setMicro(field func(p *rectifier.Parameters) *float64) setter {
	return func(p *rectifier.Parameters, v float64) {
		*field(p) = v * 1e-6
	}
}

// Values are in SI units (farads for filter_capacitance) except for the
// _uf key, which takes microfarads.
var setters = map[string]setter{
	"source_rms_voltage":       setFloat(func(p *rectifier.Parameters) *float64 { return &p.SourceRMSVoltage }),
	"frequency":                setFloat(func(p *rectifier.Parameters) *float64 { return &p.Frequency }),
	"primary_turns":            setInt(func(p *rectifier.Parameters) *int { return &p.PrimaryTurns }),
	"secondary_turns":          setInt(func(p *rectifier.Parameters) *int { return &p.SecondaryTurns }),
	"winding_resistance":       setFloat(func(p *rectifier.Parameters) *float64 { return &p.WindingResistancePer100Turns }),
	"diode_forward_voltage":    setFloat(func(p *rectifier.Parameters) *float64 { return &p.DiodeForwardVoltage }),
	"diode_dynamic_resistance": setFloat(func(p *rectifier.Parameters) *float64 { return &p.DiodeDynamicResistance }),
	"load_resistance":          setFloat(func(p *rectifier.Parameters) *float64 { return &p.LoadResistance }),
	"filter_capacitance":       setFloat(func(p *rectifier.Parameters) *float64 { return &p.FilterCapacitance }),
	"filter_capacitance_uf":    setMicro(func(p *rectifier.Parameters) *float64 { return &p.FilterCapacitance }),
	"cycles":                   setInt(func(p *rectifier.Parameters) *int { return &p.Cycles }),
	"samples_per_cycle":        setInt(func(p *rectifier.Parameters) *int { return &p.SamplesPerCycle }),
}

// Parameters lists the names a sweep can vary.
func Parameters() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the grid itself; the parameter values are validated by
// every run.
func (s Spec) Validate() error {
	if _, ok := setters[s.Parameter]; !ok {
		return fmt.Errorf("sweep: unknown parameter %q (one of %s)", s.Parameter, strings.Join(Parameters(), ", "))
	}
	if s.Steps < 1 {
		return fmt.Errorf("sweep: steps must be >= 1 (got %d)", s.Steps)
	}
	if s.Max < s.Min {
		return fmt.Errorf("sweep %s: max < min", s.Parameter)
	}
	if s.Scale == Log && (s.Min <= 0 || s.Max <= 0) {
		return fmt.Errorf("sweep %s: log scale requires min>0 and max>0 (got min=%g max=%g)", s.Parameter, s.Min, s.Max)
	}
	return nil
}

// Values returns the grid, endpoints included.
func (s Spec) Values() []float64 {
	if s.Steps == 1 {
		return []float64{s.Min}
	}
	values := make([]float64, s.Steps)
	for i := range values {
		u := float64(i) / float64(s.Steps-1)
		switch s.Scale {
		case Log:
			lnMin, lnMax := math.Log(s.Min), math.Log(s.Max)
			values[i] = math.Exp(lnMin + u*(lnMax-lnMin))
		default:
			values[i] = s.Min + u*(s.Max-s.Min)
		}
	}
	values[len(values)-1] = s.Max
	return values
}

// Run executes one independent simulation per grid value. A cancelled
// context stops the sweep and returns the points computed so far.
func Run(ctx context.Context, base rectifier.Parameters, spec Spec) ([]Point, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	set := setters[spec.Parameter]

	values := spec.Values()
	points := make([]Point, 0, len(values))
	for _, v := range values {
		select {
		case <-ctx.Done():
			return points, ctx.Err()
		default:
		}

		p := base
		set(&p, v)
		res, err := rectifier.Run(p)
		if err != nil {
			return points, fmt.Errorf("sweep %s=%g: %w", spec.Parameter, v, err)
		}
		points = append(points, Point{
			Value:    v,
			Derived:  res.Derived,
			Metrics:  res.Metrics,
			Warnings: res.Warnings,
		})
	}
	return points, nil
}
