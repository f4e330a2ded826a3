package rectifier

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// EfficiencyEpsilon is the input power below which efficiency is left
// undetermined.
const EfficiencyEpsilon = 1e-12

// Metrics are the scalar results of one run.
type Metrics struct {
	InputPower       float64 `json:"input_power_avg_w"`
	LoadPower        float64 `json:"load_power_avg_w"`
	Efficiency       float64 `json:"efficiency"`
	DCVoltage        float64 `json:"dc_voltage_v"`
	RipplePeakToPeak float64 `json:"ripple_peak_to_peak_v"`
	DiodeCurrentRMS  float64 `json:"diode_current_rms_a"`
}

// EfficiencyKnown reports whether Efficiency holds a value.
func (m Metrics) EfficiencyKnown() bool {
	return !math.IsNaN(m.Efficiency)
}

// MarshalJSON encodes an undetermined efficiency as null.
func (m Metrics) MarshalJSON() ([]byte, error) {
	type plain Metrics
	out := struct {
		plain
		Efficiency *float64 `json:"efficiency"`
	}{plain: plain(m)}
	if m.EfficiencyKnown() {
		out.Efficiency = &m.Efficiency
	}
	return json.Marshal(out)
}

func (m *Metrics) UnmarshalJSON(data []byte) error {
	type plain Metrics
	in := struct {
		*plain
		Efficiency *float64 `json:"efficiency"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.Efficiency = math.NaN()
	if in.Efficiency != nil {
		m.Efficiency = *in.Efficiency
	}
	return nil
}

// Measure reduces the waveforms of a run to its summary metrics.
func Measure(p Parameters, d Derived, w *Waveforms) Metrics {
	m := Metrics{
		InputPower: timeAverage(w.Time, InputPower(w)),
		LoadPower:  timeAverage(w.Time, LoadPower(w, p.LoadResistance)),
		DCVoltage:  timeAverage(w.Time, w.CapacitorVoltage),
		Efficiency: math.NaN(),
	}
	if m.InputPower > EfficiencyEpsilon {
		m.Efficiency = m.LoadPower / m.InputPower
	}

	squared := make([]float64, w.Len())
	for k, i := range w.DiodeCurrent {
		squared[k] = i * i
	}
	m.DiodeCurrentRMS = math.Sqrt(timeAverage(w.Time, squared))

	m.RipplePeakToPeak = Ripple(w.CapacitorVoltage, w.Len()/2)
	return m
}

// Ripple is the peak-to-peak excursion of v from index start onwards.
// Starting at half the grid keeps the charge-up transient out of it.
func Ripple(v []float64, start int) float64 {
	if start < 0 {
		start = 0
	}
	if start >= len(v) {
		return 0
	}
	tail := v[start:]
	return floats.Max(tail) - floats.Min(tail)
}

// InputPower is the instantaneous power delivered by the secondary.
func InputPower(w *Waveforms) []float64 {
	p := make([]float64, w.Len())
	for k := range p {
		p[k] = w.SecondaryVoltage[k] * w.SecondaryCurrent[k]
	}
	return p
}

// LoadPower is the instantaneous power dissipated in the load.
func LoadPower(w *Waveforms, loadResistance float64) []float64 {
	p := make([]float64, w.Len())
	for k, v := range w.CapacitorVoltage {
		p[k] = v * v / loadResistance
	}
	return p
}

// AfterDiode is the ideal post-diode, pre-filter voltage.
func AfterDiode(d Derived, w *Waveforms) []float64 {
	out := make([]float64, w.Len())
	for k, v := range w.RectifiedSource {
		out[k] = math.Max(v-d.EffectiveForwardVoltage, 0)
	}
	return out
}

// timeAverage integrates y over t with the trapezoidal rule and divides by
// the elapsed time. A window of zero duration averages to 0.
func timeAverage(t, y []float64) float64 {
	n := len(t)
	if n < 2 || t[n-1] <= 0 {
		return 0
	}
	return integrate.Trapezoidal(t, y) / t[n-1]
}
