package rectifier

import (
	"errors"
	"strings"
	"testing"
)

func TestRunRejectsBeforeComputing(t *testing.T) {
	p := DefaultParameters()
	p.LoadResistance = -10

	res, err := Run(p)
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if res != nil {
		t.Error("expected no result for a rejected parameter set")
	}
}

func TestRunIsDeterministic(t *testing.T) {
	p := DefaultParameters()
	a := mustRun(t, p)
	b := mustRun(t, p)

	if a.Metrics != b.Metrics {
		t.Errorf("metrics differ between runs:\n%+v\n%+v", a.Metrics, b.Metrics)
	}
	if a.Derived != b.Derived {
		t.Errorf("derived quantities differ between runs")
	}
}

func TestRunDiagnosticSeries(t *testing.T) {
	res := mustRun(t, DefaultParameters())
	n := res.Derived.Samples
	for name, s := range map[string][]float64{
		"after diode": res.AfterDiode,
		"input power": res.InputPower,
		"load power":  res.LoadPower,
	} {
		if len(s) != n {
			t.Errorf("%s length %d, want %d", name, len(s), n)
		}
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings for the default circuit: %v", res.Warnings)
	}
}

func TestRunWarnings(t *testing.T) {
	p := DefaultParameters()
	p.FilterCapacitance = 1e-6
	p.Cycles = 2

	res := mustRun(t, p)
	joined := strings.Join(res.Warnings, "\n")
	if !strings.Contains(joined, "time constant") {
		t.Errorf("missing stability warning: %v", res.Warnings)
	}
	if !strings.Contains(joined, "fewer than 4 cycles") {
		t.Errorf("missing transient warning: %v", res.Warnings)
	}
}
