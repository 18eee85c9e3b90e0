/*package postprocess turns the integrals written by a run into a covariance
matrix estimate. It combines C2, C3, and C4 with a shot-noise rescaling
parameter, removes the leading bias of the inverted matrix using the
per-loop subsamples, and estimates the effective number of samples. For
jackknife runs the rescaling parameter can be fit to the jackknife covariance
of the data.*/
package postprocess

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/phil-mansfield/covint/lib/catio"
	"github.com/phil-mansfield/covint/lib/checkpoint"
	"github.com/phil-mansfield/covint/lib/fields"
)

// Mask selects the bins which are kept when matrices are loaded. Bins are
// ordered by radial bin and then by mu bin or multipole.
type Mask struct {
	NBin, MBin int
	// SkipR drops the first SkipR radial bins and SkipM drops the last SkipM
	// mu bins or multipoles of every radial bin.
	SkipR, SkipM int
}

// Keep returns the flat indices of the bins which are kept.
func (m Mask) Keep() []int {
	keep := []int{ }
	for ir := m.SkipR; ir < m.NBin; ir++ {
		for im := 0; im < m.MBin - m.SkipM; im++ {
			keep = append(keep, ir*m.MBin + im)
		}
	}
	return keep
}

// Matrices are the symmetrized C2, C3, and C4 matrices of one save.
type Matrices struct {
	C2, C3, C4 *mat.SymDense
}

// Load reads the matrices saved under name by the integral with fields f.
// dir is the directory the matrices were written to.
func Load(
	dir, label string, f fields.Fields, name string, mask Mask,
) (*Matrices, error) {
	c2, c3, c4 := checkpoint.MatrixNames(label, f, name)
	keep := mask.Keep()
	if len(keep) == 0 {
		return nil, fmt.Errorf("the bin mask %+v removes every bin", mask)
	}
	m := &Matrices{ }
	var err error
	for _, x := range []struct{
		out   **mat.SymDense
		fname string
	} {
		{ &m.C2, c2 }, { &m.C3, c3 }, { &m.C4, c4 },
	} {
		*x.out, err = loadSymmetric(filepath.Join(dir, x.fname), keep)
		if err != nil { return nil, err }
	}
	return m, nil
}

// LoadSubsamples loads the per-loop saves "0" through "n-1".
func LoadSubsamples(
	dir, label string, f fields.Fields, n int, mask Mask,
) ([]*Matrices, error) {
	out := make([]*Matrices, n)
	for i := range out {
		var err error
		out[i], err = Load(dir, label, f, fmt.Sprint(i), mask)
		if err != nil { return nil, err }
	}
	return out, nil
}

// CountSubsamples returns the number of consecutive per-loop saves in dir.
func CountSubsamples(dir, label string, f fields.Fields) int {
	n := 0
	for {
		_, _, c4 := checkpoint.MatrixNames(label, f, fmt.Sprint(n))
		if _, err := os.Stat(filepath.Join(dir, c4)); err != nil { return n }
		n++
	}
}

// loadSymmetric reads a square matrix, keeps the rows and columns listed in
// keep, and returns its symmetric part.
func loadSymmetric(fname string, keep []int) (*mat.SymDense, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }
	rows, err := rd.Rows()
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }

	n := len(rows)
	for i := range rows {
		if len(rows[i]) != n {
			return nil, fmt.Errorf("%s is not a square matrix: line %d has "+
				"%d columns, but there are %d lines", fname, i+1,
				len(rows[i]), n)
		}
	}
	for _, k := range keep {
		if k >= n {
			return nil, fmt.Errorf("%s has %d bins, but bin %d was "+
				"requested", fname, n, k)
		}
	}

	s := mat.NewSymDense(len(keep), nil)
	for i, ki := range keep {
		for j := i; j < len(keep); j++ {
			kj := keep[j]
			s.SetSym(i, j, 0.5*(rows[ki][kj] + rows[kj][ki]))
		}
	}
	return s, nil
}

// Covariance returns C4 + alpha C3 + alpha² C2.
func (m *Matrices) Covariance(alpha float64) *mat.SymDense {
	n := m.C4.SymmetricDim()
	c := mat.NewSymDense(n, nil)
	c.CopySym(m.C4)
	c.AddSym(c, scaled(alpha, m.C3))
	c.AddSym(c, scaled(alpha*alpha, m.C2))
	return c
}

func scaled(f float64, a *mat.SymDense) *mat.SymDense {
	s := mat.NewSymDense(a.SymmetricDim(), nil)
	s.ScaleSym(f, a)
	return s
}

// minEigenvalue returns the smallest eigenvalue of a.
func minEigenvalue(a mat.Symmetric) (float64, error) {
	var eig mat.EigenSym
	if !eig.Factorize(a, false) {
		return 0, fmt.Errorf("eigendecomposition failed")
	}
	vals := eig.Values(nil)
	lo := math.Inf(+1)
	for _, v := range vals { lo = math.Min(lo, v) }
	return lo, nil
}

// EigenTest checks whether C4 has converged: its smallest eigenvalue may
// not be more negative than the smallest eigenvalue of C2 is positive.
func (m *Matrices) EigenTest() (minC4, minC2 float64, ok bool, err error) {
	if minC4, err = minEigenvalue(m.C4); err != nil { return }
	if minC2, err = minEigenvalue(m.C2); err != nil { return }
	return minC4, minC2, minC4 >= -minC2, nil
}

// inverse inverts a, tolerating ill-conditioned matrices.
func inverse(a mat.Matrix) (*mat.Dense, error) {
	inv := &mat.Dense{ }
	err := inv.Inverse(a)
	if c, ok := err.(mat.Condition); ok && !math.IsInf(float64(c), +1) {
		return inv, nil
	} else if err != nil {
		return nil, err
	}
	return inv, nil
}

// Precision returns the bias-corrected precision matrix (I - D) C⁻¹ and the
// D matrix, estimated from the leave-one-out covariances of the subsamples.
func Precision(
	full *Matrices, samples []*Matrices, alpha float64,
) (prec, D *mat.Dense, err error) {
	n := len(samples)
	if n < 2 {
		return nil, nil, fmt.Errorf("at least two subsamples are needed, "+
			"got %d", n)
	}

	nb := full.C4.SymmetricDim()
	partial := make([]*mat.SymDense, n)
	sum := mat.NewSymDense(nb, nil)
	for i := range samples {
		partial[i] = samples[i].Covariance(alpha)
		if partial[i].SymmetricDim() != nb {
			return nil, nil, fmt.Errorf("subsample %d has %d bins, but the "+
				"full matrices have %d", i, partial[i].SymmetricDim(), nb)
		}
		sum.AddSym(sum, partial[i])
	}

	tmp := mat.NewDense(nb, nb, nil)
	excl, term := mat.NewDense(nb, nb, nil), mat.NewDense(nb, nb, nil)
	for i := range partial {
		excl.Sub(sum, partial[i])
		excl.Scale(1/float64(n - 1), excl)
		inv, err := inverse(excl)
		if err != nil { return nil, nil, err }
		term.Mul(inv, partial[i])
		tmp.Add(tmp, term)
	}

	eye := identity(nb)
	D = mat.NewDense(nb, nb, nil)
	D.Scale(1/float64(n), tmp)
	D.Sub(D, eye)
	D.Scale(float64(n - 1)/float64(n), D)

	inv, err := inverse(full.Covariance(alpha))
	if err != nil { return nil, nil, err }
	prec = mat.NewDense(nb, nb, nil)
	term.Sub(eye, D)
	prec.Mul(term, inv)
	return prec, D, nil
}

func identity(n int) *mat.Dense {
	eye := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ { eye.Set(i, i, 1) }
	return eye
}

// NEff returns the effective number of samples implied by D. It is zero if
// det(D) is negative and infinite if D is singular.
func NEff(D mat.Matrix) float64 {
	n, _ := D.Dims()
	logDet, sign := mat.LogDet(D)
	switch {
	case sign < 0: return 0
	case sign == 0 || math.IsInf(logDet, -1): return math.Inf(+1)
	}
	return float64(n + 1)/math.Exp(logDet/float64(n)) + 1
}

// Reduction is a finished covariance estimate.
type Reduction struct {
	Alpha      float64
	Covariance *mat.SymDense
	Precision  *mat.Dense
	D          *mat.Dense
	NEff       float64
	// Converged is false if C4 failed the eigenvalue test.
	Converged      bool
	MinC4, MinC2   float64
	// DataCovariance is only set when Alpha was fit to jackknife data.
	DataCovariance *mat.SymDense
}

// Reduce combines the matrices of a run with the rescaling parameter alpha.
// It fails if the covariance is not positive definite.
func Reduce(full *Matrices, samples []*Matrices, alpha float64) (*Reduction, error) {
	r := &Reduction{ Alpha: alpha, Covariance: full.Covariance(alpha) }

	var err error
	r.MinC4, r.MinC2, r.Converged, err = full.EigenTest()
	if err != nil { return nil, err }

	lo, err := minEigenvalue(r.Covariance)
	if err != nil { return nil, err }
	if lo <= 0 {
		return nil, fmt.Errorf("the full covariance is not positive " +
			"definite (min eigenvalue %.3g): the integrals have not " +
			"converged", lo)
	}

	r.Precision, r.D, err = Precision(full, samples, alpha)
	if err != nil { return nil, err }
	r.NEff = NEff(r.D)
	return r, nil
}

func dense(a mat.Matrix) []float64 {
	n, m := a.Dims()
	out := make([]float64, 0, n*m)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ { out = append(out, a.At(i, j)) }
	}
	return out
}

// Write writes the matrices of r to dir as text files whose names end in
// suffix, along with a summary file holding Alpha and NEff.
func (r *Reduction) Write(dir, suffix string) error {
	if err := os.MkdirAll(dir, 0755); err != nil { return err }
	outputs := []struct{
		name string
		m    mat.Matrix
	} {
		{ "full_theory_covariance", r.Covariance },
		{ "full_theory_precision", r.Precision },
		{ "full_theory_D_matrix", r.D },
	}
	if r.DataCovariance != nil {
		outputs = append(outputs, struct{
			name string
			m    mat.Matrix
		} { "jackknife_data_covariance", r.DataCovariance })
	}

	for _, out := range outputs {
		n, m := out.m.Dims()
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.txt", out.name, suffix))
		if err := checkpoint.WriteMatrix(path, dense(out.m), n, m); err != nil {
			return err
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("summary_%s.txt", suffix))
	summary := fmt.Sprintf("[Reduction]\nAlpha = %.10g\nNEff = %.10g\n"+
		"Converged = %t\n", r.Alpha, r.NEff, r.Converged)
	return os.WriteFile(path, []byte(summary), 0644)
}
