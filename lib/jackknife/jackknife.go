/*package jackknife holds the per-region weights used by jackknife covariance
estimates and the products of those weights that the jackknife integrals need
for every sample.

Weight tables are stored only for filled regions, i.e. regions that contain at
least one particle. Particles store the index of their filled region, not the
region's original ID.*/
package jackknife

import (
	"fmt"

	"github.com/phil-mansfield/covint/lib/catio"
)

// Weights are the jackknife weights w_{A,b} of region A in bin b.
type Weights struct {
	NRegions, NBins int
	// W[A*NBins + b] is the weight of filled region A in bin b.
	W []float64
	// IDs[A] is the original ID of filled region A.
	IDs []int
	// Product[a*NBins + b] is Σ_A w_{A,a} w_{A,b}.
	Product []float64

	index map[int]int
}

// New creates a set of weights. w[A] holds the weights of the region with ID
// ids[A] and must have nBins entries.
func New(ids []int, w [][]float64, nBins int) (*Weights, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no jackknife regions were given")
	} else if len(ids) != len(w) {
		return nil, fmt.Errorf("%d region IDs were given for %d weight rows",
			len(ids), len(w))
	}

	jk := &Weights{
		NRegions: len(ids), NBins: nBins,
		W: make([]float64, len(ids)*nBins), IDs: ids,
		index: map[int]int{},
	}
	for A := range w {
		if len(w[A]) != nBins {
			return nil, fmt.Errorf("region %d has %d weights, but there are %d "+
				"bins", ids[A], len(w[A]), nBins)
		} else if _, ok := jk.index[ids[A]]; ok {
			return nil, fmt.Errorf("region %d is listed twice", ids[A])
		}
		jk.index[ids[A]] = A
		copy(jk.W[A*nBins: (A+1)*nBins], w[A])
	}

	jk.Product = jk.ProductWith(jk)
	return jk, nil
}

// Load reads a weight table. Each line holds a region ID followed by the
// weights of that region in each bin.
func Load(fname string, nBins int) (*Weights, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }
	rows, err := rd.Rows()
	if err != nil { return nil, err }

	ids, w := make([]int, len(rows)), make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != nBins+1 {
			return nil, fmt.Errorf("line %d of %s has %d columns, expected %d",
				i+1, fname, len(row), nBins+1)
		}
		ids[i], w[i] = int(row[0]), row[1:]
	}

	jk, err := New(ids, w, nBins)
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	return jk, nil
}

// Region returns the filled-region index of the region with the given ID.
func (jk *Weights) Region(id int) (int, bool) {
	A, ok := jk.index[id]
	return A, ok
}

// At returns w_{A,b}.
func (jk *Weights) At(A, b int) float64 { return jk.W[A*jk.NBins + b] }

// ProductWith returns the matrix Σ_A w_{A,a} v_{A,b} in row-major order.
func (jk *Weights) ProductWith(v *Weights) []float64 {
	nb := jk.NBins
	out := make([]float64, nb*nb)
	for A := 0; A < jk.NRegions; A++ {
		wa := jk.W[A*nb: (A+1)*nb]
		wb := v.W[A*nb: (A+1)*nb]
		for a := range wa {
			row := out[a*nb: (a+1)*nb]
			for b := range wb {
				row[b] += wa[a] * wb[b]
			}
		}
	}
	return out
}
