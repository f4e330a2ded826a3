package rectifier

import "math"

// MaxSamples bounds the time grid of a single run.
const MaxSamples = 2_000_000

// Parameters is the full, immutable input of one simulation run.
type Parameters struct {
	SourceRMSVoltage float64 `json:"source_rms_voltage_v"`
	Frequency        float64 `json:"frequency_hz"`

	PrimaryTurns   int `json:"primary_turns"`
	SecondaryTurns int `json:"secondary_turns"`
	// Copper resistance of the secondary, in milliohms per 100 turns.
	WindingResistancePer100Turns float64 `json:"winding_resistance_mohm_per_100_turns"`

	Mode                   Mode    `json:"mode"`
	DiodeForwardVoltage    float64 `json:"diode_forward_voltage_v"`
	DiodeDynamicResistance float64 `json:"diode_dynamic_resistance_ohm"`

	LoadResistance    float64 `json:"load_resistance_ohm"`
	FilterCapacitance float64 `json:"filter_capacitance_f"`

	Cycles          int `json:"cycles"`
	SamplesPerCycle int `json:"samples_per_cycle"`
}

// DefaultParameters mirrors the initial position of the classroom controls.
func DefaultParameters() Parameters {
	return Parameters{
		SourceRMSVoltage:             230,
		Frequency:                    50,
		PrimaryTurns:                 1000,
		SecondaryTurns:               200,
		WindingResistancePer100Turns: 120,
		Mode:                         HalfWave,
		DiodeForwardVoltage:          0.7,
		DiodeDynamicResistance:       0.05,
		LoadResistance:               200,
		FilterCapacitance:            470e-6,
		Cycles:                       8,
		SamplesPerCycle:              2000,
	}
}

// Samples returns the length of every time series of the run.
func (p Parameters) Samples() int {
	return p.Cycles * p.SamplesPerCycle
}

// Validate checks the parameter set before any computation starts.
func (p Parameters) Validate() error {
	positive := []struct {
		field string
		value float64
	}{
		{"source_rms_voltage", p.SourceRMSVoltage},
		{"frequency", p.Frequency},
		{"load_resistance", p.LoadResistance},
	}
	for _, c := range positive {
		if !finite(c.value) || c.value <= 0 {
			return &ParameterError{Field: c.field, Value: c.value, Reason: "must be a finite value > 0"}
		}
	}

	nonNegative := []struct {
		field string
		value float64
	}{
		{"winding_resistance", p.WindingResistancePer100Turns},
		{"diode_forward_voltage", p.DiodeForwardVoltage},
		{"diode_dynamic_resistance", p.DiodeDynamicResistance},
		{"filter_capacitance", p.FilterCapacitance},
	}
	for _, c := range nonNegative {
		if !finite(c.value) || c.value < 0 {
			return &ParameterError{Field: c.field, Value: c.value, Reason: "must be a finite value >= 0"}
		}
	}

	counts := []struct {
		field string
		value int
	}{
		{"primary_turns", p.PrimaryTurns},
		{"secondary_turns", p.SecondaryTurns},
		{"cycles", p.Cycles},
		{"samples_per_cycle", p.SamplesPerCycle},
	}
	for _, c := range counts {
		if c.value < 1 {
			return &ParameterError{Field: c.field, Value: float64(c.value), Reason: "must be >= 1"}
		}
	}

	if !p.Mode.valid() {
		return &ParameterError{Field: "mode", Value: float64(p.Mode), Reason: "must be half-wave or bridge"}
	}

	// Checked by division so a huge product cannot overflow.
	if p.Cycles > MaxSamples/p.SamplesPerCycle {
		return &ParameterError{
			Field:  "samples",
			Value:  float64(p.Cycles) * float64(p.SamplesPerCycle),
			Reason: "cycles x samples_per_cycle exceeds the simulation limit",
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
