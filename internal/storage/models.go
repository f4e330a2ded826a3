package storage

import (
	"time"

	"gorm.io/gorm"
)

// RunRecord is the archived summary of one simulation run. Waveforms are
// never stored.
type RunRecord struct {
	gorm.Model
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	Source    string    `json:"source"`

	// Parameters
	Mode                   string  `gorm:"index" json:"mode"`
	SourceRMSVoltage       float64 `json:"source_rms_voltage_v"`
	Frequency              float64 `json:"frequency_hz"`
	PrimaryTurns           int     `json:"primary_turns"`
	SecondaryTurns         int     `json:"secondary_turns"`
	WindingResistance      float64 `json:"winding_resistance_mohm_per_100_turns"`
	DiodeForwardVoltage    float64 `json:"diode_forward_voltage_v"`
	DiodeDynamicResistance float64 `json:"diode_dynamic_resistance_ohm"`
	LoadResistance         float64 `json:"load_resistance_ohm"`
	FilterCapacitance      float64 `json:"filter_capacitance_f"`
	Cycles                 int     `json:"cycles"`
	SamplesPerCycle        int     `json:"samples_per_cycle"`

	// Derived
	SecondaryRMSVoltage        float64 `json:"secondary_rms_voltage_v"`
	SecondaryWindingResistance float64 `json:"secondary_winding_resistance_ohm"`
	SeriesResistance           float64 `json:"series_resistance_ohm"`

	// Metrics
	InputPower       float64  `json:"input_power_avg_w"`
	LoadPower        float64  `json:"load_power_avg_w"`
	Efficiency       *float64 `json:"efficiency"`
	DCVoltage        float64  `json:"dc_voltage_v"`
	RipplePeakToPeak float64  `json:"ripple_peak_to_peak_v"`
	DiodeCurrentRMS  float64  `json:"diode_current_rms_a"`

	Warnings int `json:"warnings"`
}

type ModeStats struct {
	Mode         string  `json:"mode"`
	Runs         int64   `json:"runs"`
	AvgDCVoltage float64 `json:"avg_dc_voltage_v"`
	AvgRipple    float64 `json:"avg_ripple_v"`
	MinRipple    float64 `json:"min_ripple_v"`
}
