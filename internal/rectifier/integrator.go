package rectifier

import "math"

// Waveforms are the time series of one run. All slices share the Time grid
// and have the same length.
type Waveforms struct {
	Time             []float64 `json:"time_s"`
	SecondaryVoltage []float64 `json:"secondary_voltage_v"`
	RectifiedSource  []float64 `json:"rectified_source_v"`
	CapacitorVoltage []float64 `json:"capacitor_voltage_v"`
	DiodeCurrent     []float64 `json:"diode_current_a"`
	SecondaryCurrent []float64 `json:"secondary_current_a"`
}

// Len returns the number of samples.
func (w *Waveforms) Len() int {
	return len(w.Time)
}

// stepper advances the filter node by one sample. The diode path is an
// ideal switch in series with SeriesResistance, re-evaluated every step
// against the previous capacitor voltage.
type stepper struct {
	forwardVoltage   float64
	seriesResistance float64
	loadResistance   float64
	capacitance      float64
	dt               float64
}

func newStepper(p Parameters, d Derived) stepper {
	return stepper{
		forwardVoltage:   d.EffectiveForwardVoltage,
		seriesResistance: d.SeriesResistance,
		loadResistance:   p.LoadResistance,
		capacitance:      p.FilterCapacitance,
		dt:               d.TimeStep,
	}
}

// advance returns the new capacitor voltage and the diode current for a
// rectified source voltage vSrc, starting from vPrev.
func (s stepper) advance(vSrc, vPrev float64) (v, i float64) {
	vTh := vSrc - s.forwardVoltage
	conducting := vTh > vPrev && s.seriesResistance > 0
	if conducting {
		i = math.Max(0, (vTh-vPrev)/s.seriesResistance)
	}

	if s.capacitance > 0 {
		// Forward Euler on C·dv/dt = i − v/R. The node cannot go negative:
		// the diodes block any reverse current.
		dv := s.dt * (i - vPrev/s.loadResistance) / s.capacitance
		return math.Max(0, vPrev+dv), i
	}

	// Without a capacitor the output is the resistive divider, or nothing.
	if conducting {
		return vTh * s.loadResistance / (s.loadResistance + s.seriesResistance), i
	}
	return 0, i
}

// Simulate integrates the rectifier and its RC load over the whole grid.
// Index 0 is the cold start: no charge, no current.
func Simulate(p Parameters, d Derived) *Waveforms {
	n := d.Samples
	pol := p.Mode.policy()
	step := newStepper(p, d)

	w := &Waveforms{
		Time:             make([]float64, n),
		SecondaryVoltage: make([]float64, n),
		RectifiedSource:  make([]float64, n),
		CapacitorVoltage: make([]float64, n),
		DiodeCurrent:     make([]float64, n),
		SecondaryCurrent: make([]float64, n),
	}

	for k := 0; k < n; k++ {
		t := float64(k) * d.TimeStep
		v := d.SecondaryPeakVoltage * math.Sin(d.AngularFrequency*t)
		w.Time[k] = t
		w.SecondaryVoltage[k] = v
		w.RectifiedSource[k] = pol.rectify(v)
	}

	for k := 1; k < n; k++ {
		v, i := step.advance(w.RectifiedSource[k], w.CapacitorVoltage[k-1])
		w.CapacitorVoltage[k] = v
		w.DiodeCurrent[k] = i
		w.SecondaryCurrent[k] = pol.secondaryCurrent(w.SecondaryVoltage[k], i)
	}
	return w
}
