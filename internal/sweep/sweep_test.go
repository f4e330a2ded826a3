package sweep

import (
	"context"
	"errors"
	"math"
	"testing"

	"rectifier-sim/internal/rectifier"
)

func smallBase() rectifier.Parameters {
	p := rectifier.DefaultParameters()
	p.Cycles = 4
	p.SamplesPerCycle = 1000
	return p
}

func TestValues(t *testing.T) {
	lin := Spec{Parameter: "load_resistance", Min: 100, Max: 500, Steps: 5}.Values()
	for i, want := range []float64{100, 200, 300, 400, 500} {
		if math.Abs(lin[i]-want) > 1e-9 {
			t.Errorf("linear[%d] = %g, want %g", i, lin[i], want)
		}
	}

	log := Spec{Parameter: "load_resistance", Min: 10, Max: 1000, Steps: 3, Scale: Log}.Values()
	for i, want := range []float64{10, 100, 1000} {
		if math.Abs(log[i]-want) > 1e-9 {
			t.Errorf("log[%d] = %g, want %g", i, log[i], want)
		}
	}

	single := Spec{Parameter: "frequency", Min: 60, Max: 60, Steps: 1}.Values()
	if len(single) != 1 || single[0] != 60 {
		t.Errorf("single step grid = %v", single)
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		ok   bool
	}{
		{"valid", Spec{Parameter: "frequency", Min: 10, Max: 200, Steps: 4}, true},
		{"unknown parameter", Spec{Parameter: "inductance", Min: 1, Max: 2, Steps: 2}, false},
		{"no steps", Spec{Parameter: "frequency", Min: 1, Max: 2}, false},
		{"inverted range", Spec{Parameter: "frequency", Min: 2, Max: 1, Steps: 2}, false},
		{"log through zero", Spec{Parameter: "filter_capacitance", Min: 0, Max: 1e-3, Steps: 2, Scale: Log}, false},
	}
	for _, tt := range tests {
		err := tt.spec.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: err = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestRunCapacitanceReducesRipple(t *testing.T) {
	spec := Spec{Parameter: "filter_capacitance", Min: 100e-6, Max: 2200e-6, Steps: 4, Scale: Log}
	points, err := Run(context.Background(), smallBase(), spec)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(points) != 4 {
		t.Fatalf("got %d points, want 4", len(points))
	}
	for i := 1; i < len(points); i++ {
		if points[i].Metrics.RipplePeakToPeak > points[i-1].Metrics.RipplePeakToPeak {
			t.Errorf("ripple grew from %g to %g when C went %g -> %g",
				points[i-1].Metrics.RipplePeakToPeak, points[i].Metrics.RipplePeakToPeak,
				points[i-1].Value, points[i].Value)
		}
	}
}

func TestCapacitanceMicrofaradKey(t *testing.T) {
	farads, err := Run(context.Background(), smallBase(), Spec{Parameter: "filter_capacitance", Min: 470e-6, Max: 470e-6, Steps: 1})
	if err != nil {
		t.Fatalf("sweep in F: %v", err)
	}
	micro, err := Run(context.Background(), smallBase(), Spec{Parameter: "filter_capacitance_uf", Min: 470, Max: 470, Steps: 1})
	if err != nil {
		t.Fatalf("sweep in µF: %v", err)
	}
	if micro[0].Value != 470 {
		t.Errorf("point value = %g, want 470 (µF)", micro[0].Value)
	}
	if micro[0].Metrics != farads[0].Metrics {
		t.Errorf("470 µF metrics %+v differ from 470e-6 F metrics %+v", micro[0].Metrics, farads[0].Metrics)
	}
}

func TestRunRoundsIntegerParameters(t *testing.T) {
	spec := Spec{Parameter: "secondary_turns", Min: 100, Max: 101, Steps: 3}
	points, err := Run(context.Background(), smallBase(), spec)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// 100.5 rounds to 101: 101 turns → 23.23 V RMS.
	if got := points[1].Derived.SecondaryRMSVoltage; math.Abs(got-230*101.0/1000) > 1e-9 {
		t.Errorf("secondary RMS = %g, want rounded turns", got)
	}
}

func TestRunStopsOnInvalidPoint(t *testing.T) {
	spec := Spec{Parameter: "load_resistance", Min: 0, Max: 100, Steps: 2}
	points, err := Run(context.Background(), smallBase(), spec)
	if !errors.Is(err, rectifier.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points before the invalid one, want 0", len(points))
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := Spec{Parameter: "frequency", Min: 50, Max: 60, Steps: 3}
	points, err := Run(ctx, smallBase(), spec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points after cancellation", len(points))
	}
}
