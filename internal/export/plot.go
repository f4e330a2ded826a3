package export

import (
	"fmt"
	"io"
	"os"

	"rectifier-sim/internal/rectifier"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// PlotSize is the PNG size in centimetres.
type PlotSize struct {
	Width  float64
	Height float64
}

var DefaultPlotSize = PlotSize{Width: 24, Height: 20}

func (s PlotSize) lengths() (vg.Length, vg.Length) {
	if s.Width <= 0 || s.Height <= 0 {
		s = DefaultPlotSize
	}
	return vg.Length(s.Width) * vg.Centimeter, vg.Length(s.Height) * vg.Centimeter
}

// Plots builds one plot per panel, sharing the time axis.
func Plots(res *rectifier.Result, maxPoints int) ([]*plot.Plot, error) {
	cols := Downsample(Columns(res), maxPoints)
	time := Lookup(cols, "time")[0]

	plots := make([]*plot.Plot, 0, len(Panels))
	for i, panel := range Panels {
		p := plot.New()
		p.Title.Text = panel.Title
		p.Y.Label.Text = panel.YAxis
		if i == len(Panels)-1 {
			p.X.Label.Text = "Time (s)"
		}
		p.Legend.Top = true
		p.Add(plotter.NewGrid())

		for j, c := range Lookup(cols, panel.Keys...) {
			pts := make(plotter.XYs, len(c.Values))
			for k, v := range c.Values {
				pts[k].X = time.Values[k]
				pts[k].Y = v
			}
			line, err := plotter.NewLine(pts)
			if err != nil {
				return nil, fmt.Errorf("plot %s: %w", c.Key, err)
			}
			line.Color = plotutil.Color(j)
			p.Add(line)
			p.Legend.Add(c.Label, line)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// WritePNG renders the three stacked panels of res as a PNG image.
func WritePNG(w io.Writer, res *rectifier.Result, maxPoints int, size PlotSize) error {
	plots, err := Plots(res, maxPoints)
	if err != nil {
		return err
	}

	width, height := size.lengths()
	img := vgimg.New(width, height)
	dc := draw.New(img)

	tiles := draw.Tiles{
		Rows:      len(plots),
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      3 * vg.Millimeter,
		PadTop:    2 * vg.Millimeter,
		PadBottom: 2 * vg.Millimeter,
		PadLeft:   2 * vg.Millimeter,
		PadRight:  2 * vg.Millimeter,
	}

	grid := make([][]*plot.Plot, len(plots))
	for i, p := range plots {
		grid[i] = []*plot.Plot{p}
	}
	canvases := plot.Align(grid, tiles, dc)
	for i := range grid {
		grid[i][0].Draw(canvases[i][0])
	}

	png := vgimg.PngCanvas{Canvas: img}
	_, err = png.WriteTo(w)
	return err
}

// SavePNG writes the PNG of res to filename.
func SavePNG(filename string, res *rectifier.Result, maxPoints int, size PlotSize) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WritePNG(f, res, maxPoints, size); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
