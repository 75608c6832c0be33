// Package report charts per-frame orientation so calibration problems
// (a constant yaw offset, a flipped roll) stand out before images are baked.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Faultbox/panobake/pkg/orient"
)

var ErrNoData = errors.New("no frames to chart")

// Point is the orientation of one frame.
type Point struct {
	Frame  string
	Angles orient.Angles
}

var axisColors = []color.RGBA{
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}, // yaw
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, // pitch
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}, // roll
}

// Plot builds a line chart of yaw, pitch and roll against frame order.
func Plot(title string, points []Point) (*plot.Plot, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Angle (°)"
	p.Y.Min, p.Y.Max = -180, 180
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		get  func(orient.Angles) float64
	}{
		{"yaw", func(a orient.Angles) float64 { return a.Yaw }},
		{"pitch", func(a orient.Angles) float64 { return a.Pitch }},
		{"roll", func(a orient.Angles) float64 { return a.Roll }},
	}

	for i, s := range series {
		pts := make(plotter.XYs, len(points))
		for j, pt := range points {
			pts[j] = plotter.XY{X: float64(j), Y: s.get(pt.Angles)}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s series: %w", s.name, err)
		}
		line.Color = axisColors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(s.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if len(points) <= 40 {
		ticks := make([]plot.Tick, len(points))
		for j, pt := range points {
			ticks[j] = plot.Tick{Value: float64(j), Label: pt.Frame}
		}
		p.X.Tick.Marker = plot.ConstantTicks(ticks)
	}
	return p, nil
}

// Save charts points and writes the image to path. The format follows the
// extension (png, svg, pdf, ...).
func Save(path, title string, points []Point) error {
	p, err := Plot(title, points)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
