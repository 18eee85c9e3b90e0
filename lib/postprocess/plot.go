package postprocess

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// errorBars returns sqrt(C_bb) for every bin b. Negative variances give 0.
func errorBars(c interface{ At(i, j int) float64 }, n int) plotter.XYs {
	pts := make(plotter.XYs, n)
	for b := range pts {
		pts[b] = plotter.XY{ X: float64(b), Y: math.Sqrt(math.Max(c.At(b, b), 0)) }
	}
	return pts
}

// PlotErrors saves a plot of the standard deviation of every bin to fname.
// The file type is taken from fname's extension. Jackknife reductions also
// show the standard deviations of the data.
func (r *Reduction) PlotErrors(fname string) error {
	n := r.Covariance.SymmetricDim()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("alpha = %.4f, N_eff = %.3g", r.Alpha, r.NEff)
	p.X.Label.Text = "bin"
	p.Y.Label.Text = "sigma"

	theory, err := plotter.NewLine(errorBars(r.Covariance, n))
	if err != nil { return err }
	theory.Width = vg.Points(1)
	p.Add(theory)
	p.Legend.Add("theory", theory)

	if r.DataCovariance != nil {
		data, err := plotter.NewLine(errorBars(r.DataCovariance, n))
		if err != nil { return err }
		data.Width = vg.Points(1)
		data.Color = color.RGBA{ R: 200, A: 255 }
		p.Add(data)
		p.Legend.Add("jackknife data", data)
	}

	return p.Save(8*vg.Inch, 5*vg.Inch, fname)
}
