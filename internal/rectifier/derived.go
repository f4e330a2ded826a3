package rectifier

import "math"

// Derived holds the quantities computed once from a parameter set.
type Derived struct {
	AngularFrequency float64 `json:"angular_frequency_rad_s"`
	Period           float64 `json:"period_s"`
	TimeStep         float64 `json:"time_step_s"`
	Samples          int     `json:"samples"`

	SecondaryRMSVoltage        float64 `json:"secondary_rms_voltage_v"`
	SecondaryPeakVoltage       float64 `json:"secondary_peak_voltage_v"`
	SecondaryWindingResistance float64 `json:"secondary_winding_resistance_ohm"`

	DiodesInPath               int     `json:"diodes_in_path"`
	EffectiveForwardVoltage    float64 `json:"effective_forward_voltage_v"`
	EffectiveDynamicResistance float64 `json:"effective_dynamic_resistance_ohm"`
	SeriesResistance           float64 `json:"series_resistance_ohm"`

	// TimeConstant is the fastest decay the explicit step has to follow:
	// C·(R‖Rs) while the diodes conduct, R·C without a series path, and 0
	// when there is no capacitor to integrate.
	TimeConstant float64 `json:"time_constant_s"`
}

// Derive is a pure function of p.
func Derive(p Parameters) Derived {
	pol := p.Mode.policy()

	primary := math.Max(float64(p.PrimaryTurns), 1)
	secondary := float64(p.SecondaryTurns)

	d := Derived{
		AngularFrequency: 2 * math.Pi * p.Frequency,
		Period:           1 / p.Frequency,
		Samples:          p.Samples(),
	}
	d.TimeStep = d.Period / float64(p.SamplesPerCycle)

	d.SecondaryRMSVoltage = p.SourceRMSVoltage * secondary / primary
	d.SecondaryPeakVoltage = math.Sqrt2 * d.SecondaryRMSVoltage
	d.SecondaryWindingResistance = (p.WindingResistancePer100Turns / 1000) * (secondary / 100)

	d.DiodesInPath = pol.diodesInPath
	d.EffectiveForwardVoltage = float64(pol.diodesInPath) * p.DiodeForwardVoltage
	d.EffectiveDynamicResistance = float64(pol.diodesInPath) * p.DiodeDynamicResistance
	d.SeriesResistance = d.SecondaryWindingResistance + d.EffectiveDynamicResistance

	if p.FilterCapacitance > 0 {
		r := p.LoadResistance
		if d.SeriesResistance > 0 {
			r = p.LoadResistance * d.SeriesResistance / (p.LoadResistance + d.SeriesResistance)
		}
		d.TimeConstant = r * p.FilterCapacitance
	}
	return d
}

// Stable reports whether the explicit Euler step stays inside its
// stability region for the fastest time constant of the circuit.
func (d Derived) Stable() bool {
	if d.TimeConstant == 0 {
		return true
	}
	return d.TimeStep <= 2*d.TimeConstant
}
