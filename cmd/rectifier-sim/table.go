package main

import (
	"fmt"
	"strconv"
	"strings"

	"rectifier-sim/internal/export"
	"rectifier-sim/internal/rectifier"
	"rectifier-sim/internal/runner"
	"rectifier-sim/internal/storage"
	"rectifier-sim/internal/sweep"
)

// printTable prints a boxed table; the first column is left aligned and
// the others right aligned.
func printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}

	printLine := func() {
		fmt.Print("+")
		for _, w := range widths {
			fmt.Print(strings.Repeat("-", w+2) + "+")
		}
		fmt.Println()
	}

	printLine()
	fmt.Print("|")
	for i, h := range headers {
		fmt.Printf(" %-*s |", widths[i], h)
	}
	fmt.Println()
	printLine()

	for _, row := range rows {
		fmt.Print("|")
		for j, cell := range row {
			if j == 0 {
				fmt.Printf(" %-*s |", widths[j], cell)
			} else {
				fmt.Printf(" %*s |", widths[j], cell)
			}
		}
		fmt.Println()
	}
	printLine()
}

func formatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'g', 6, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

func printResult(res *rectifier.Result) {
	rows := make([][]string, 0, 32)
	for _, r := range export.Summary(res) {
		rows = append(rows, []string{r.Name, formatValue(r.Value), r.Unit})
	}
	printTable([]string{"Quantity", "Value", "Unit"}, rows)

	for _, w := range res.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
}

func printSweep(spec sweep.Spec, points []sweep.Point) {
	headers := []string{"No", spec.Parameter, "Vdc [V]", "Ripple [V]", "Pload [W]", "Efficiency", "Id rms [A]", "Warnings"}
	rows := make([][]string, len(points))
	for i, pt := range points {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			formatValue(pt.Value),
			fmt.Sprintf("%.3f", pt.Metrics.DCVoltage),
			fmt.Sprintf("%.4f", pt.Metrics.RipplePeakToPeak),
			fmt.Sprintf("%.3f", pt.Metrics.LoadPower),
			runner.FormatEfficiency(pt.Metrics),
			fmt.Sprintf("%.3f", pt.Metrics.DiodeCurrentRMS),
			strconv.Itoa(len(pt.Warnings)),
		}
	}
	printTable(headers, rows)
}

func printRuns(runs []storage.RunRecord) {
	headers := []string{"ID", "Time", "Source", "Mode", "C [µF]", "R [Ω]", "Vdc [V]", "Ripple [V]", "Efficiency"}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		efficiency := "undetermined"
		if r.Efficiency != nil {
			efficiency = fmt.Sprintf("%.1f%%", *r.Efficiency*100)
		}
		rows[i] = []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Source,
			r.Mode,
			formatValue(r.FilterCapacitance * 1e6),
			formatValue(r.LoadResistance),
			fmt.Sprintf("%.3f", r.DCVoltage),
			fmt.Sprintf("%.4f", r.RipplePeakToPeak),
			efficiency,
		}
	}
	printTable(headers, rows)
}

func printModeStats(stats []storage.ModeStats) {
	headers := []string{"Mode", "Runs", "Avg Vdc [V]", "Avg ripple [V]", "Min ripple [V]"}
	rows := make([][]string, len(stats))
	for i, s := range stats {
		rows[i] = []string{
			s.Mode,
			strconv.FormatInt(s.Runs, 10),
			fmt.Sprintf("%.3f", s.AvgDCVoltage),
			fmt.Sprintf("%.4f", s.AvgRipple),
			fmt.Sprintf("%.4f", s.MinRipple),
		}
	}
	printTable(headers, rows)
}
