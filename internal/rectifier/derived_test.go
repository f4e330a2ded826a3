package rectifier

import (
	"math"
	"testing"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestDerive(t *testing.T) {
	tests := []struct {
		mode       Mode
		diodes     int
		vf, series float64
	}{
		{HalfWave, 1, 0.7, 0.24 + 0.05},
		{Bridge, 2, 1.4, 0.24 + 0.10},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			p := DefaultParameters()
			p.Mode = tt.mode
			d := Derive(p)

			if !near(d.AngularFrequency, 2*math.Pi*50, 1e-9) {
				t.Errorf("angular frequency = %v", d.AngularFrequency)
			}
			if !near(d.SecondaryRMSVoltage, 46, 1e-9) {
				t.Errorf("secondary RMS = %v, want 46", d.SecondaryRMSVoltage)
			}
			if !near(d.SecondaryPeakVoltage, 46*math.Sqrt2, 1e-9) {
				t.Errorf("secondary peak = %v", d.SecondaryPeakVoltage)
			}
			if !near(d.SecondaryWindingResistance, 0.24, 1e-12) {
				t.Errorf("winding resistance = %v, want 0.24", d.SecondaryWindingResistance)
			}
			if d.DiodesInPath != tt.diodes {
				t.Errorf("diodes in path = %d, want %d", d.DiodesInPath, tt.diodes)
			}
			if !near(d.EffectiveForwardVoltage, tt.vf, 1e-12) {
				t.Errorf("forward voltage = %v, want %v", d.EffectiveForwardVoltage, tt.vf)
			}
			if !near(d.SeriesResistance, tt.series, 1e-12) {
				t.Errorf("series resistance = %v, want %v", d.SeriesResistance, tt.series)
			}
			if !near(d.TimeStep, 1e-5, 1e-15) {
				t.Errorf("time step = %v, want 1e-5", d.TimeStep)
			}
			if d.Samples != 16000 {
				t.Errorf("samples = %d, want 16000", d.Samples)
			}
		})
	}
}

func TestDeriveIsIdempotent(t *testing.T) {
	p := DefaultParameters()
	p.Mode = Bridge
	if a, b := Derive(p), Derive(p); a != b {
		t.Errorf("two derivations differ:\n%+v\n%+v", a, b)
	}
}

func TestDeriveFloorsPrimaryTurns(t *testing.T) {
	p := DefaultParameters()
	p.PrimaryTurns = 0
	d := Derive(p)
	if math.IsInf(d.SecondaryRMSVoltage, 0) || !near(d.SecondaryRMSVoltage, 230*200, 1e-6) {
		t.Errorf("secondary RMS = %v, want primary turns floored at 1", d.SecondaryRMSVoltage)
	}
}

func TestDeriveStability(t *testing.T) {
	p := DefaultParameters()
	if d := Derive(p); !d.Stable() {
		t.Errorf("default circuit reported unstable: dt=%g tau=%g", d.TimeStep, d.TimeConstant)
	}

	p.FilterCapacitance = 1e-6
	if d := Derive(p); d.Stable() {
		t.Errorf("1µF behind 0.29Ω reported stable: dt=%g tau=%g", d.TimeStep, d.TimeConstant)
	}

	p.FilterCapacitance = 0
	if d := Derive(p); !d.Stable() || d.TimeConstant != 0 {
		t.Errorf("unfiltered circuit: stable=%v tau=%g", d.Stable(), d.TimeConstant)
	}
}
