/*package integrals contains the accumulators for the C2, C3, and C4 covariance
integrals and the per-sample updates which fill them.

An Integrals value holds running sums over flat bins. C3 and C4 hold B x B
row-major matrices. C2 is diagonal for the binned variant, where a pair lands
in a single bin, so only its B diagonal entries are kept. The multipole
variants spread each pair over several bins and keep C2 as a full B x B
matrix (FullC2). The binned variant also
estimates RR pair counts from the two random partitions, and jackknife runs
accumulate a second, jackknife-weighted copy of every matrix.

Accumulators are not thread safe: each worker owns one and they are combined
with Sum under the caller's lock.*/
package integrals

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Integrals is a set of accumulated covariance integrals.
type Integrals struct {
	B             int
	// FullC2 is true if C2 is a B x B matrix rather than its diagonal.
	FullC2        bool
	C2, C3, C4    []float64
	RR1, RR2      []float64 // nil unless the variant is binned
	C2j, C3j, C4j []float64 // nil unless jackknife weights are used
	// Cnt2, Cnt3, and Cnt4 count the (pair, bin) entries which contributed
	// to each integral.
	Cnt2, Cnt3, Cnt4 uint64
}

// New creates an empty accumulator with b flat bins. fullC2 stores all of
// C2 instead of its diagonal.
func New(b int, fullC2, rr, jackknife bool) *Integrals {
	n2 := b
	if fullC2 { n2 = b*b }
	acc := &Integrals{
		B: b, FullC2: fullC2, C2: make([]float64, n2),
		C3: make([]float64, b*b), C4: make([]float64, b*b),
	}
	if rr {
		acc.RR1, acc.RR2 = make([]float64, b), make([]float64, b)
	}
	if jackknife {
		acc.C2j = make([]float64, n2)
		acc.C3j, acc.C4j = make([]float64, b*b), make([]float64, b*b)
	}
	return acc
}

// Jackknife returns true if the accumulator holds jackknife integrals.
func (acc *Integrals) Jackknife() bool { return acc.C2j != nil }

// arrays returns every array in a fixed order. Arrays which aren't used are
// nil.
func (acc *Integrals) arrays() [][]float64 {
	return [][]float64{
		acc.C2, acc.C3, acc.C4, acc.RR1, acc.RR2, acc.C2j, acc.C3j, acc.C4j,
	}
}

// Sum adds every entry and counter of other to acc. The two accumulators
// must have been created with the same arguments.
func (acc *Integrals) Sum(other *Integrals) {
	dst, src := acc.arrays(), other.arrays()
	for i := range dst {
		floats.Add(dst[i], src[i])
	}
	acc.Cnt2 += other.Cnt2
	acc.Cnt3 += other.Cnt3
	acc.Cnt4 += other.Cnt4
}

// Reset zeroes all entries and counters.
func (acc *Integrals) Reset() {
	for _, x := range acc.arrays() { clear(x) }
	acc.Cnt2, acc.Cnt3, acc.Cnt4 = 0, 0, 0
}

// Copy returns a deep copy of acc.
func (acc *Integrals) Copy() *Integrals {
	out := New(acc.B, acc.FullC2, acc.RR1 != nil, acc.C2j != nil)
	out.Sum(acc)
	return out
}

// Normalize converts sums into integrals. norm holds the normalization of
// the four point sets and pairs, triples, and quads are the number of
// particle pairs, triples, and quads which were sampled. Every entry is also
// divided by powerNorm, which is 1 except for the power variant.
func (acc *Integrals) Normalize(
	norm [4]float64, pairs, triples, quads, powerNorm float64,
) {
	n2 := norm[0] * norm[1] * pairs * powerNorm
	n3 := norm[0] * norm[1] * norm[2] * triples * powerNorm
	n4 := norm[0] * norm[1] * norm[2] * norm[3] * quads * powerNorm

	for _, x := range [][]float64{ acc.C2, acc.RR1, acc.RR2, acc.C2j } {
		floats.Scale(1/n2, x)
	}
	floats.Scale(1/n3, acc.C3)
	floats.Scale(1/n3, acc.C3j)
	floats.Scale(1/n4, acc.C4)
	floats.Scale(1/n4, acc.C4j)
}

// Frobenius holds the relative Frobenius differences of each integral.
// Jackknife entries are zero for non-jackknife accumulators.
type Frobenius struct {
	C2, C3, C4, C2j, C3j, C4j float64
}

// Converged returns true if C4 (and C4j, for jackknife runs) changed by less
// than tol.
func (f Frobenius) Converged(tol float64, jackknife bool) bool {
	if jackknife { return f.C4 < tol && f.C4j < tol }
	return f.C4 < tol
}

// FrobeniusDifference compares the mean of the n loops summed into acc with
// the mean after local is added as loop n+1. It returns the Frobenius norm of
// the change relative to the Frobenius norm of the current mean. The
// difference is infinite when n is zero or the current mean is zero.
func (acc *Integrals) FrobeniusDifference(local *Integrals, n int) Frobenius {
	if n <= 0 {
		inf := math.Inf(+1)
		return Frobenius{ inf, inf, inf, inf, inf, inf }
	}

	f := Frobenius{
		C2: acc.c2Difference(acc.C2, local.C2, n),
		C3: flatDifference(acc.C3, local.C3, n),
		C4: flatDifference(acc.C4, local.C4, n),
	}
	if acc.Jackknife() {
		f.C2j = acc.c2Difference(acc.C2j, local.C2j, n)
		f.C3j = flatDifference(acc.C3j, local.C3j, n)
		f.C4j = flatDifference(acc.C4j, local.C4j, n)
	}
	return f
}

// means returns sum/n and (sum + local)/(n + 1).
func means(sum, local []float64, n int) (curr, next []float64) {
	curr = floats.ScaleTo(make([]float64, len(sum)), 1/float64(n), sum)
	next = floats.AddTo(make([]float64, len(sum)), sum, local)
	floats.Scale(1/float64(n + 1), next)
	return curr, next
}

func relative(diff, norm float64) float64 {
	if norm == 0 { return math.Inf(+1) }
	return diff / norm
}

// c2Difference compares C2 as a B x B matrix, whether it is stored in full
// or as its diagonal.
func (acc *Integrals) c2Difference(sum, local []float64, n int) float64 {
	curr, next := means(sum, local, n)
	b := acc.B
	var c, m mat.Matrix
	if acc.FullC2 {
		c, m = mat.NewDense(b, b, curr), mat.NewDense(b, b, next)
	} else {
		c, m = mat.NewDiagDense(b, curr), mat.NewDiagDense(b, next)
	}
	d := mat.NewDense(b, b, nil)
	d.Sub(c, m)
	return relative(mat.Norm(d, 2), mat.Norm(c, 2))
}

func flatDifference(sum, local []float64, n int) float64 {
	curr, next := means(sum, local, n)
	return relative(floats.Distance(curr, next, 2), floats.Norm(curr, 2))
}

// Counts records how many samples were drawn at each level of an integral.
type Counts struct {
	// Pairs, Triples, and Quads are the number of particle pairs, triples,
	// and quads sampled, including those which fell outside the binning.
	Pairs, Triples, Quads uint64
	// Attempted and Used are the number of second, third, and fourth cells
	// drawn and the number which yielded a usable particle.
	Attempted, Used [3]uint64
}

// Add adds the counts in c2 to c.
func (c *Counts) Add(c2 Counts) {
	c.Pairs += c2.Pairs
	c.Triples += c2.Triples
	c.Quads += c2.Quads
	for i := range c.Attempted {
		c.Attempted[i] += c2.Attempted[i]
		c.Used[i] += c2.Used[i]
	}
}
