// Package export turns simulation results into tables, workbooks and
// charts for the presentation layer.
package export

import "rectifier-sim/internal/rectifier"

// Column is one named time series with its unit.
type Column struct {
	Key    string
	Label  string
	Unit   string
	Values []float64
}

// Header is the table heading of c, e.g. "v_out [V]".
func (c Column) Header() string {
	if c.Unit == "" {
		return c.Label
	}
	return c.Label + " [" + c.Unit + "]"
}

// Columns lists every series of res in table order, time first.
func Columns(res *rectifier.Result) []Column {
	w := res.Waveforms
	return []Column{
		{"time", "t", "s", w.Time},
		{"secondary_voltage", "v_sec", "V", w.SecondaryVoltage},
		{"rectified_source", "v_rect", "V", w.RectifiedSource},
		{"after_diode", "v_after_diode", "V", res.AfterDiode},
		{"capacitor_voltage", "v_out", "V", w.CapacitorVoltage},
		{"diode_current", "i_diode", "A", w.DiodeCurrent},
		{"secondary_current", "i_sec", "A", w.SecondaryCurrent},
		{"input_power", "p_in", "W", res.InputPower},
		{"load_power", "p_load", "W", res.LoadPower},
	}
}

// Stride returns the sample step that keeps at most maxPoints samples.
func Stride(n, maxPoints int) int {
	if maxPoints <= 0 || n <= maxPoints {
		return 1
	}
	return (n + maxPoints - 1) / maxPoints
}

// Downsample keeps every stride-th sample of each column.
func Downsample(cols []Column, maxPoints int) []Column {
	if len(cols) == 0 {
		return cols
	}
	stride := Stride(len(cols[0].Values), maxPoints)
	if stride == 1 {
		return cols
	}

	out := make([]Column, len(cols))
	for i, c := range cols {
		values := make([]float64, 0, len(c.Values)/stride+1)
		for k := 0; k < len(c.Values); k += stride {
			values = append(values, c.Values[k])
		}
		c.Values = values
		out[i] = c
	}
	return out
}

// Lookup returns the columns with the given keys, in that order.
func Lookup(cols []Column, keys ...string) []Column {
	out := make([]Column, 0, len(keys))
	for _, key := range keys {
		for _, c := range cols {
			if c.Key == key {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Panel is one of the three stacked subplots.
type Panel struct {
	Title string
	YAxis string
	Keys  []string
}

var Panels = []Panel{
	{"Voltages", "Voltage (V)", []string{"secondary_voltage", "after_diode", "capacitor_voltage"}},
	{"Currents", "Current (A)", []string{"diode_current", "secondary_current"}},
	{"Powers", "Power (W)", []string{"input_power", "load_power"}},
}

// Row is one line of a summary table.
type Row struct {
	Name  string
	Unit  string
	Value any
}

// Summary lists parameters, derived quantities and metrics of res.
func Summary(res *rectifier.Result) []Row {
	p, d, m := res.Parameters, res.Derived, res.Metrics

	var efficiency any = "undetermined"
	if m.EfficiencyKnown() {
		efficiency = m.Efficiency
	}

	return []Row{
		{"mode", "", p.Mode.String()},
		{"source_rms_voltage", "V", p.SourceRMSVoltage},
		{"frequency", "Hz", p.Frequency},
		{"primary_turns", "", p.PrimaryTurns},
		{"secondary_turns", "", p.SecondaryTurns},
		{"winding_resistance", "mΩ/100 turns", p.WindingResistancePer100Turns},
		{"diode_forward_voltage", "V", p.DiodeForwardVoltage},
		{"diode_dynamic_resistance", "Ω", p.DiodeDynamicResistance},
		{"load_resistance", "Ω", p.LoadResistance},
		{"filter_capacitance", "µF", p.FilterCapacitance * 1e6},
		{"cycles", "", p.Cycles},
		{"samples_per_cycle", "", p.SamplesPerCycle},
		{"secondary_rms_voltage", "V", d.SecondaryRMSVoltage},
		{"secondary_peak_voltage", "V", d.SecondaryPeakVoltage},
		{"secondary_winding_resistance", "Ω", d.SecondaryWindingResistance},
		{"series_resistance", "Ω", d.SeriesResistance},
		{"time_step", "s", d.TimeStep},
		{"input_power_avg", "W", m.InputPower},
		{"load_power_avg", "W", m.LoadPower},
		{"efficiency", "", efficiency},
		{"dc_voltage", "V", m.DCVoltage},
		{"ripple_peak_to_peak", "V", m.RipplePeakToPeak},
		{"diode_current_rms", "A", m.DiodeCurrentRMS},
	}
}
