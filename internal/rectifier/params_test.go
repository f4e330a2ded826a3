package rectifier

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := DefaultParameters().Validate(); err != nil {
		t.Fatalf("default parameters rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Parameters)
		field  string
	}{
		{"zero frequency", func(p *Parameters) { p.Frequency = 0 }, "frequency"},
		{"negative frequency", func(p *Parameters) { p.Frequency = -50 }, "frequency"},
		{"NaN frequency", func(p *Parameters) { p.Frequency = math.NaN() }, "frequency"},
		{"zero source voltage", func(p *Parameters) { p.SourceRMSVoltage = 0 }, "source_rms_voltage"},
		{"zero load", func(p *Parameters) { p.LoadResistance = 0 }, "load_resistance"},
		{"infinite load", func(p *Parameters) { p.LoadResistance = math.Inf(1) }, "load_resistance"},
		{"no primary turns", func(p *Parameters) { p.PrimaryTurns = 0 }, "primary_turns"},
		{"no secondary turns", func(p *Parameters) { p.SecondaryTurns = 0 }, "secondary_turns"},
		{"negative winding", func(p *Parameters) { p.WindingResistancePer100Turns = -1 }, "winding_resistance"},
		{"negative diode drop", func(p *Parameters) { p.DiodeForwardVoltage = -0.1 }, "diode_forward_voltage"},
		{"negative diode resistance", func(p *Parameters) { p.DiodeDynamicResistance = -0.1 }, "diode_dynamic_resistance"},
		{"negative capacitance", func(p *Parameters) { p.FilterCapacitance = -1e-6 }, "filter_capacitance"},
		{"no cycles", func(p *Parameters) { p.Cycles = 0 }, "cycles"},
		{"no samples", func(p *Parameters) { p.SamplesPerCycle = 0 }, "samples_per_cycle"},
		{"unknown mode", func(p *Parameters) { p.Mode = Mode(7) }, "mode"},
		{"grid too large", func(p *Parameters) { p.Cycles = 1000; p.SamplesPerCycle = 10000 }, "samples"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)

			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
			var perr *ParameterError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParameterError, got %T", err)
			}
			if perr.Field != tt.field {
				t.Errorf("field = %q, want %q", perr.Field, tt.field)
			}
		})
	}
}

func TestValidateAcceptsDegenerateButValid(t *testing.T) {
	p := DefaultParameters()
	p.FilterCapacitance = 0
	p.WindingResistancePer100Turns = 0
	p.DiodeDynamicResistance = 0
	p.DiodeForwardVoltage = 0
	p.Cycles = 1
	p.SamplesPerCycle = 1
	if err := p.Validate(); err != nil {
		t.Fatalf("degenerate parameter set rejected: %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"half-wave", HalfWave},
		{"Half", HalfWave},
		{" halfwave ", HalfWave},
		{"bridge", Bridge},
		{"FULL-WAVE", Bridge},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if err != nil {
			t.Errorf("ParseMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseMode("center-tap"); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestParametersJSONMode(t *testing.T) {
	p := DefaultParameters()
	p.Mode = Bridge

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if fields["mode"] != "bridge" {
		t.Errorf("mode encoded as %v, want \"bridge\"", fields["mode"])
	}

	var back Parameters
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != p {
		t.Errorf("decoded %+v, want %+v", back, p)
	}
}
