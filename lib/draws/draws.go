/*package draws contains the importance sampling distributions that covint uses
to pick the cells of the second, third, and fourth particles relative to an
anchor cell. A Distribution is built once and is read-only afterwards, so one
instance can be shared by every worker; each draw consumes randomness from the
caller's own stream.*/
package draws

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/covint/lib/xi"
)

const (
	// isotropicFraction is the share of the isotropic 1/r² shape mixed into
	// correlation-shaped distributions. It keeps every offset reachable even
	// where ξ(r) crosses zero.
	isotropicFraction = 0.1
	// sameCellR2 is the squared offset (in cell widths) used to weight the
	// anchor cell itself.
	sameCellR2 = 0.25
)

// Source is a stream of uniform random numbers in [0, 1).
type Source interface {
	Uniform() float64
}

// Distribution is a discrete distribution over integer cell offsets.
type Distribution struct {
	offsets [][3]int
	prob    []float64
	cdf     []float64
}

// Offsets returns the cell offsets used by a distribution reaching out to
// separations of rMax with cells of width cellSize: every offset whose cell
// could hold a particle within rMax of a particle in the anchor cell.
func Offsets(rMax, cellSize float64) [][3]int {
	n := int(math.Ceil(rMax / cellSize))
	reach := float64(n) + math.Sqrt(3)
	out := [][3]int{}
	for x := -n; x <= n; x++ {
		for y := -n; y <= n; y++ {
			for z := -n; z <= n; z++ {
				r := math.Sqrt(float64(x*x + y*y + z*z))
				if r <= reach { out = append(out, [3]int{ x, y, z }) }
			}
		}
	}
	return out
}

func r2(off [3]int) float64 {
	r2 := float64(off[0]*off[0] + off[1]*off[1] + off[2]*off[2])
	return math.Max(r2, sameCellR2)
}

// NewIsotropic creates a distribution with P(δ) ∝ 1/|δ|².
func NewIsotropic(rMax, cellSize float64) (*Distribution, error) {
	off := Offsets(rMax, cellSize)
	w := make([]float64, len(off))
	for i := range off { w[i] = 1 / r2(off[i]) }
	return newDistribution(off, w)
}

// NewCorrelated creates a distribution with P(δ) ∝ |ξ(|δ|)|/|δ|², mixed with
// a small isotropic component.
func NewCorrelated(
	cf *xi.CorrelationFunction, rMax, cellSize float64,
) (*Distribution, error) {
	off := Offsets(rMax, cellSize)
	iso, corr := make([]float64, len(off)), make([]float64, len(off))
	for i := range off {
		rr := r2(off[i])
		iso[i] = 1 / rr
		corr[i] = math.Abs(cf.Monopole(math.Sqrt(rr)*cellSize)) / rr
	}

	isoSum, corrSum := floats.Sum(iso), floats.Sum(corr)
	if !(corrSum > 0) || math.IsInf(corrSum, 0) {
		return newDistribution(off, iso)
	}

	w := make([]float64, len(off))
	for i := range w {
		w[i] = isotropicFraction*iso[i]/isoSum +
			(1-isotropicFraction)*corr[i]/corrSum
	}
	return newDistribution(off, w)
}

func newDistribution(off [][3]int, w []float64) (*Distribution, error) {
	if len(off) == 0 {
		return nil, fmt.Errorf("a sampling distribution needs at least one offset")
	}

	total := floats.Sum(w)
	if !(total > 0) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("sampling weights sum to %g", total)
	}

	d := &Distribution{ offsets: off, prob: make([]float64, len(w)) }
	floats.ScaleTo(d.prob, 1/total, w)
	for i, p := range d.prob {
		if !(p > 0) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("offset %v has sampling probability %g",
				off[i], p)
		}
	}

	d.cdf = floats.CumSum(make([]float64, len(w)), d.prob)
	d.cdf[len(d.cdf)-1] = 1
	return d, nil
}

// Draw draws a random offset and returns it with the probability of drawing
// it. The probability is always positive and finite; integral contributions
// are weighted by its inverse.
func (d *Distribution) Draw(src Source) (offset [3]int, p float64) {
	u := src.Uniform()
	i := sort.SearchFloat64s(d.cdf, u)
	// SearchFloat64s finds the first cdf >= u, but an offset owns the interval
	// [cdf[i-1], cdf[i]).
	if i < len(d.cdf) && d.cdf[i] == u { i++ }
	if i >= len(d.cdf) { i = len(d.cdf) - 1 }
	return d.offsets[i], d.prob[i]
}

// Len returns the number of offsets the distribution can return.
func (d *Distribution) Len() int { return len(d.offsets) }

// Prob returns the probability of offset i, in the order returned by Offsets.
func (d *Distribution) Prob(i int) float64 { return d.prob[i] }
