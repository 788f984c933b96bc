package simulation

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// SavePlot draws the depth and occlusion statistics of steps over time into an image file. The
// format follows the file extension.
func SavePlot(steps []StepStats, path string) error {
	if len(steps) == 0 {
		return errors.New("no steps to plot")
	}
	mean := make(plotter.XYs, 0, len(steps))
	median := make(plotter.XYs, 0, len(steps))
	occ := make(plotter.XYs, 0, len(steps))
	for _, st := range steps {
		mean = append(mean, plotter.XY{X: st.Time, Y: st.DepthMean})
		median = append(median, plotter.XY{X: st.Time, Y: st.DepthMedian})
		occ = append(occ, plotter.XY{X: st.Time, Y: st.OcclusionMean})
	}

	p := plot.New()
	p.Title.Text = "simulated depth"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "depth / occlusion probability"
	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{
		{"depth mean", mean},
		{"depth median", median},
		{"occlusion", occ},
	} {
		line, err := plotter.NewLine(series.xys)
		if err != nil {
			return errors.Wrapf(err, "plotting %s", series.name)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "saving plot to %q", path)
	}
	return nil
}
