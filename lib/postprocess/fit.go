package postprocess

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/phil-mansfield/covint/lib/catio"
	"github.com/phil-mansfield/covint/lib/jackknife"
)

// LoadJackknifeXi reads the per-region correlation function estimates of the
// data. The first two lines hold the r and mu bin edges and are skipped; each
// following line holds ξ in every bin for one jackknife region.
func LoadJackknifeXi(fname string) ([][]float64, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }
	rows, err := rd.Rows()
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	if len(rows) < 3 {
		return nil, fmt.Errorf("%s has %d lines, but needs two header "+
			"lines and at least one region", fname, len(rows))
	}
	return rows[2:], nil
}

// DataCovariance returns the jackknife covariance of the data in the bins
// listed by keep. xiJack[A] holds the estimate of region A, which has the
// weights of filled region A in jk. Regions with non-finite estimates are
// dropped and the weights of the remaining regions are renormalized. It also
// returns the number of regions used.
func DataCovariance(
	xiJack [][]float64, jk *jackknife.Weights, keep []int,
) (*mat.SymDense, int, error) {
	if len(xiJack) != jk.NRegions {
		return nil, 0, fmt.Errorf("%d jackknife estimates were given for %d "+
			"regions", len(xiJack), jk.NRegions)
	}

	good := []int{ }
	for A, row := range xiJack {
		if len(row) != jk.NBins {
			return nil, 0, fmt.Errorf("jackknife estimate %d has %d bins, "+
				"expected %d", A, len(row), jk.NBins)
		}
		finite := true
		for _, x := range row {
			if math.IsNaN(x) || math.IsInf(x, 0) { finite = false }
		}
		if finite { good = append(good, A) }
	}
	if len(good) < 2 {
		return nil, 0, fmt.Errorf("only %d jackknife regions have finite "+
			"estimates", len(good))
	}

	nb := len(keep)
	// dev[b][g] = w_{A,b} (ξ_{A,b} - <ξ_b>), w[b][g] = w_{A,b}, A = good[g].
	dev, w := make([][]float64, nb), make([][]float64, nb)
	for i, b := range keep {
		x := make([]float64, len(good))
		w[i] = make([]float64, len(good))
		for g, A := range good {
			x[g], w[i][g] = xiJack[A][b], jk.At(A, b)
		}
		norm := 0.0
		for _, wg := range w[i] { norm += wg }
		if norm == 0 {
			return nil, 0, fmt.Errorf("bin %d has zero total jackknife "+
				"weight", b)
		}
		for g := range w[i] { w[i][g] /= norm }

		mean := stat.Mean(x, w[i])
		dev[i] = make([]float64, len(good))
		for g := range x { dev[i][g] = w[i][g] * (x[g] - mean) }
	}

	cov := mat.NewSymDense(nb, nil)
	for i := 0; i < nb; i++ {
		for j := i; j < nb; j++ {
			num, denom := 0.0, 0.0
			for g := range good {
				num += dev[i][g] * dev[j][g]
				denom += w[i][g] * w[j][g]
			}
			cov.SetSym(i, j, num/(1 - denom))
		}
	}
	return cov, len(good), nil
}

// negLogL1 returns tr(Ψ S) - log det Ψ, where Ψ is the bias-corrected
// precision matrix at alpha and S is the data covariance. Precision matrices
// with negative determinants give +Inf.
func negLogL1(
	full *Matrices, samples []*Matrices, data *mat.SymDense, alpha float64,
) float64 {
	psi, _, err := Precision(full, samples, alpha)
	if err != nil { return math.Inf(+1) }
	logDet, sign := mat.LogDet(psi)
	if sign <= 0 { return math.Inf(+1) }

	prod := &mat.Dense{ }
	prod.Mul(psi, data)
	return mat.Trace(prod) - logDet
}

// FitAlpha returns the shot-noise rescaling parameter which maximizes the
// likelihood of the data covariance given the jackknife integrals. The
// search starts at alpha = 1.
func FitAlpha(
	full *Matrices, samples []*Matrices, data *mat.SymDense,
) (float64, error) {
	if n, nd := full.C4.SymmetricDim(), data.SymmetricDim(); n != nd {
		return 0, fmt.Errorf("the integrals have %d bins, but the data "+
			"covariance has %d", n, nd)
	}

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return negLogL1(full, samples, data, x[0])
		},
	}
	res, err := optimize.Minimize(p, []float64{ 1 }, nil, &optimize.NelderMead{ })
	if err != nil { return 0, err }
	if math.IsInf(res.F, +1) {
		return 0, fmt.Errorf("no rescaling parameter gives a valid precision " +
			"matrix")
	}
	return res.X[0], nil
}

// ReduceJackknife fits alpha to the data covariance using the jackknife
// integrals and then reduces the full integrals with it.
func ReduceJackknife(
	jackFull *Matrices, jackSamples []*Matrices,
	full *Matrices, samples []*Matrices, data *mat.SymDense,
) (*Reduction, error) {
	alpha, err := FitAlpha(jackFull, jackSamples, data)
	if err != nil { return nil, err }

	r, err := Reduce(full, samples, alpha)
	if err != nil { return nil, err }
	r.DataCovariance = data
	return r, nil
}
