package rectifier

import "fmt"

// Result is the immutable snapshot of one run.
type Result struct {
	Parameters Parameters `json:"parameters"`
	Derived    Derived    `json:"derived"`
	Metrics    Metrics    `json:"metrics"`
	Waveforms  *Waveforms `json:"-"`
	// AfterDiode, InputPower and LoadPower are diagnostic series for
	// plotting; the integrator never reads them.
	AfterDiode []float64 `json:"-"`
	InputPower []float64 `json:"-"`
	LoadPower  []float64 `json:"-"`
	Warnings   []string  `json:"warnings,omitempty"`
}

// Run validates p and computes a complete, independent simulation.
func Run(p Parameters) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d := Derive(p)
	w := Simulate(p, d)

	res := &Result{
		Parameters: p,
		Derived:    d,
		Metrics:    Measure(p, d, w),
		Waveforms:  w,
		AfterDiode: AfterDiode(d, w),
		InputPower: InputPower(w),
		LoadPower:  LoadPower(w, p.LoadResistance),
	}

	if !d.Stable() {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"time step %.3g s exceeds twice the circuit time constant %.3g s: explicit integration may oscillate, raise samples_per_cycle",
			d.TimeStep, d.TimeConstant))
	}
	if p.Cycles < 4 {
		res.Warnings = append(res.Warnings, "fewer than 4 cycles simulated: ripple may still include the charge-up transient")
	}
	return res, nil
}
