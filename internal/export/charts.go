package export

import (
	"io"
	"strconv"

	"rectifier-sim/internal/rectifier"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Page builds an interactive page with one line chart per panel.
func Page(res *rectifier.Result, maxPoints int) *components.Page {
	cols := Downsample(Columns(res), maxPoints)

	labels := make([]string, len(cols[0].Values))
	for k, t := range Lookup(cols, "time")[0].Values {
		labels[k] = strconv.FormatFloat(t*1e3, 'f', 3, 64)
	}

	page := components.NewPage()
	for _, panel := range Panels {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithInitializationOpts(opts.Initialization{
				Theme: types.ThemeWesteros,
			}),
			charts.WithTitleOpts(opts.Title{
				Title:    panel.Title,
				Subtitle: res.Parameters.Mode.String(),
			}),
			charts.WithTooltipOpts(opts.Tooltip{
				Show:    opts.Bool(true),
				Trigger: "axis",
			}),
			charts.WithLegendOpts(opts.Legend{
				Type:   "scroll",
				Orient: "vertical",
				Right:  "10",
				Top:    "20",
				Bottom: "20",
			}),
			charts.WithXAxisOpts(opts.XAxis{
				Name:        "t (ms)",
				SplitNumber: 20,
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Name:  panel.YAxis,
				Scale: opts.Bool(true),
			}),
			charts.WithDataZoomOpts(opts.DataZoom{
				Type:       "inside",
				Start:      50,
				End:        100,
				XAxisIndex: []int{0},
			}),
			charts.WithAnimation(false),
		)
		line.SetXAxis(labels)

		for _, c := range Lookup(cols, panel.Keys...) {
			items := make([]opts.LineData, len(c.Values))
			for k, v := range c.Values {
				items[k] = opts.LineData{Value: v}
			}
			line.AddSeries(c.Label, items,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
			)
		}
		page.AddCharts(line)
	}
	return page
}

// WriteHTML renders the chart page of res.
func WriteHTML(w io.Writer, res *rectifier.Result, maxPoints int) error {
	return Page(res, maxPoints).Render(w)
}
