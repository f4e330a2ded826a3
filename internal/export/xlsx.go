package export

import (
	"fmt"
	"io"

	"rectifier-sim/internal/rectifier"
	"rectifier-sim/internal/sweep"

	"github.com/xuri/excelize/v2"
)

// maxSheetRows leaves one row of the xlsx limit for the header.
const maxSheetRows = 1048575

// NewWorkbook builds a workbook with a Summary sheet and a Waveforms
// sheet holding at most maxPoints samples per series.
func NewWorkbook(res *rectifier.Result, maxPoints int) (*excelize.File, error) {
	if maxPoints <= 0 || maxPoints > maxSheetRows {
		maxPoints = maxSheetRows
	}

	f := excelize.NewFile()

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	f.SetCellValue(summary, "A1", "Name")
	f.SetCellValue(summary, "B1", "Value")
	f.SetCellValue(summary, "C1", "Unit")
	row := 2
	for _, r := range Summary(res) {
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), r.Name)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), r.Value)
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), r.Unit)
		row++
	}
	for _, w := range res.Warnings {
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), "warning")
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), w)
		row++
	}
	f.SetColWidth(summary, "A", "A", 30)

	if err := writeWaveforms(f, "Waveforms", Downsample(Columns(res), maxPoints)); err != nil {
		return nil, err
	}
	return f, nil
}

func writeWaveforms(f *excelize.File, sheet string, cols []Column) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.Header()
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	values := make([]interface{}, len(cols))
	for k := range cols[0].Values {
		for i, c := range cols {
			values[i] = c.Values[k]
		}
		cell, _ := excelize.CoordinatesToCellName(1, k+2)
		if err := sw.SetRow(cell, values); err != nil {
			return err
		}
	}
	return sw.Flush()
}

// SaveXLSX writes the workbook of res to filename.
func SaveXLSX(filename string, res *rectifier.Result, maxPoints int) error {
	f, err := NewWorkbook(res, maxPoints)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(filename)
}

// WriteXLSX streams the workbook of res to w.
func WriteXLSX(w io.Writer, res *rectifier.Result, maxPoints int) error {
	f, err := NewWorkbook(res, maxPoints)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

var sweepHeader = []string{
	"No", "", "input_power_avg [W]", "load_power_avg [W]", "efficiency",
	"dc_voltage [V]", "ripple_peak_to_peak [V]", "diode_current_rms [A]",
	"secondary_rms_voltage [V]", "time_constant [s]", "warnings",
}

// NewSweepWorkbook builds a workbook with the sweep settings and one row
// per point.
func NewSweepWorkbook(base rectifier.Parameters, spec sweep.Spec, points []sweep.Point) (*excelize.File, error) {
	f := excelize.NewFile()

	summary := "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return nil, err
	}
	f.SetCellValue(summary, "A1", "parameter")
	f.SetCellValue(summary, "B1", spec.Parameter)
	f.SetCellValue(summary, "A2", "min")
	f.SetCellValue(summary, "B2", spec.Min)
	f.SetCellValue(summary, "A3", "max")
	f.SetCellValue(summary, "B3", spec.Max)
	f.SetCellValue(summary, "A4", "steps")
	f.SetCellValue(summary, "B4", spec.Steps)
	f.SetCellValue(summary, "A5", "scale")
	f.SetCellValue(summary, "B5", spec.Scale.String())
	f.SetCellValue(summary, "A6", "mode")
	f.SetCellValue(summary, "B6", base.Mode.String())

	sheet := "Sweep"
	if _, err := f.NewSheet(sheet); err != nil {
		return nil, err
	}
	for i, h := range sweepHeader {
		if h == "" {
			h = spec.Parameter
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, pt := range points {
		row := i + 2
		var efficiency interface{} = ""
		if pt.Metrics.EfficiencyKnown() {
			efficiency = pt.Metrics.Efficiency
		}
		values := []interface{}{
			i + 1, pt.Value,
			pt.Metrics.InputPower, pt.Metrics.LoadPower, efficiency,
			pt.Metrics.DCVoltage, pt.Metrics.RipplePeakToPeak, pt.Metrics.DiodeCurrentRMS,
			pt.Derived.SecondaryRMSVoltage, pt.Derived.TimeConstant, len(pt.Warnings),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f, nil
}

// SaveSweepXLSX writes the sweep workbook to filename.
func SaveSweepXLSX(filename string, base rectifier.Parameters, spec sweep.Spec, points []sweep.Point) error {
	f, err := NewSweepWorkbook(base, spec, points)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(filename)
}
