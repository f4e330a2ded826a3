package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"rectifier-sim/internal/rectifier"
)

// WriteTSV writes the waveforms of res as a tab-separated table.
func WriteTSV(out io.Writer, res *rectifier.Result, maxPoints int) error {
	cols := Downsample(Columns(res), maxPoints)

	w := csv.NewWriter(out)
	w.Comma = '\t'

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header()
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(cols))
	for k := range cols[0].Values {
		for i, c := range cols {
			row[i] = strconv.FormatFloat(c.Values[k], 'g', 8, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
