package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"rectifier-sim/internal/rectifier"

	"github.com/spf13/viper"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 8046 || !cfg.API.Enabled {
		t.Errorf("api defaults = %+v", cfg.API)
	}
	if cfg.MQTT.Enabled {
		t.Error("mqtt should be disabled by default")
	}

	p, err := cfg.Circuit.Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	def := rectifier.DefaultParameters()
	if math.Abs(p.FilterCapacitance-def.FilterCapacitance) > 1e-12 {
		t.Errorf("capacitance = %g, want %g", p.FilterCapacitance, def.FilterCapacitance)
	}
	p.FilterCapacitance = def.FilterCapacitance
	if p != def {
		t.Errorf("circuit defaults = %+v, want %+v", p, def)
	}
}

func TestLoadFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `circuit:
  mode: bridge
  load_resistance: 1000
  filter_capacitance_uf: 2200
api:
  port: 9000
instrument:
  enabled: true
  timeout: 3s
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("api port = %d, want 9000", cfg.API.Port)
	}
	if !cfg.Instrument.Enabled || cfg.Instrument.Timeout.Seconds() != 3 {
		t.Errorf("instrument = %+v", cfg.Instrument)
	}

	p, err := cfg.Circuit.Parameters()
	if err != nil {
		t.Fatalf("parameters: %v", err)
	}
	if p.Mode != rectifier.Bridge || p.LoadResistance != 1000 {
		t.Errorf("circuit overrides not applied: %+v", p)
	}
	if math.Abs(p.FilterCapacitance-2200e-6) > 1e-12 {
		t.Errorf("capacitance = %g, want 2.2mF", p.FilterCapacitance)
	}
	// Untouched keys keep their defaults.
	if p.Frequency != 50 || p.SamplesPerCycle != 2000 {
		t.Errorf("defaults lost: %+v", p)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing explicit config file")
	}
}

func TestCircuitBadMode(t *testing.T) {
	c := CircuitFromParameters(rectifier.DefaultParameters())
	c.Mode = "three-phase"
	if _, err := c.Parameters(); err == nil {
		t.Error("expected an error for an unknown mode")
	}
}

func TestSaveCircuit(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	p := rectifier.DefaultParameters()
	p.Mode = rectifier.Bridge
	p.Frequency = 60
	if err := SaveCircuit(path, CircuitFromParameters(p)); err != nil {
		t.Fatalf("save: %v", err)
	}

	viper.Reset()
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Circuit.Mode != "bridge" || cfg.Circuit.Frequency != 60 {
		t.Errorf("saved circuit not reloaded: %+v", cfg.Circuit)
	}
	if cfg.API.Port != 9100 {
		t.Errorf("unrelated key lost: port %d", cfg.API.Port)
	}
}
