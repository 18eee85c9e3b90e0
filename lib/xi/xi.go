/*package xi holds the tabulated correlation functions and survey correction
functions that covint's integrals are weighted by. Both are read-only after
they are loaded and are safe to share between workers.*/
package xi

import (
	"fmt"
	"math"
	"sort"

	"github.com/phil-mansfield/covint/lib/catio"
)

// CorrelationFunction is a correlation function ξ(r, μ) tabulated on a grid of
// separations and line-of-sight angle cosines.
type CorrelationFunction struct {
	R, Mu []float64
	XI    [][]float64 // XI[ir][imu]
}

// New creates a CorrelationFunction from a table. r and mu must be strictly
// increasing and xi must have len(r) rows of len(mu) values.
func New(r, mu []float64, xi [][]float64) (*CorrelationFunction, error) {
	if len(r) == 0 || len(mu) == 0 {
		return nil, fmt.Errorf("correlation function table is empty")
	}
	if !increasing(r) || !increasing(mu) {
		return nil, fmt.Errorf("r and mu nodes must be strictly increasing")
	}
	if len(xi) != len(r) {
		return nil, fmt.Errorf("xi has %d rows, but there are %d r nodes",
			len(xi), len(r))
	}
	for i := range xi {
		if len(xi[i]) != len(mu) {
			return nil, fmt.Errorf("xi row %d has %d values, but there are "+
				"%d mu nodes", i, len(xi[i]), len(mu))
		}
	}
	return &CorrelationFunction{ R: r, Mu: mu, XI: xi }, nil
}

// FromFunc tabulates f on the given nodes.
func FromFunc(r, mu []float64, f func(r, mu float64) float64) *CorrelationFunction {
	xi := make([][]float64, len(r))
	for i := range r {
		xi[i] = make([]float64, len(mu))
		for j := range mu { xi[i][j] = f(r[i], mu[j]) }
	}
	return &CorrelationFunction{ R: r, Mu: mu, XI: xi }
}

// Load reads a correlation function table. The first line holds the r nodes,
// the second line the mu nodes, and each following line holds ξ at one r node
// for every mu node.
func Load(fname string) (*CorrelationFunction, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }
	rows, err := rd.Rows()
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	if len(rows) < 3 {
		return nil, fmt.Errorf("%s has %d lines, but a correlation function "+
			"table needs at least 3", fname, len(rows))
	}

	cf, err := New(rows[0], rows[1], rows[2:])
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	return cf, nil
}

func increasing(x []float64) bool {
	for i := 1; i < len(x); i++ {
		if !(x[i] > x[i-1]) { return false }
	}
	return true
}

// Xi returns the bilinearly interpolated correlation function. |mu| is used.
// Below the first r node the first row is used, and above the last r node
// the correlation function is zero.
func (cf *CorrelationFunction) Xi(r, mu float64) float64 {
	nr := len(cf.R)
	if r > cf.R[nr-1] { return 0 }

	ir, fr := locate(cf.R, r)
	im, fm := locate(cf.Mu, math.Abs(mu))

	lo := cf.XI[ir][im]*(1-fm) + cf.XI[ir][min(im+1, len(cf.Mu)-1)]*fm
	if ir+1 >= nr { return lo }
	hi := cf.XI[ir+1][im]*(1-fm) + cf.XI[ir+1][min(im+1, len(cf.Mu)-1)]*fm
	return lo*(1-fr) + hi*fr
}

// Monopole returns the average of ξ(r, μ) over the tabulated mu nodes.
func (cf *CorrelationFunction) Monopole(r float64) float64 {
	sum := 0.0
	for _, mu := range cf.Mu { sum += cf.Xi(r, mu) }
	return sum / float64(len(cf.Mu))
}

// locate returns the index of the node at or below x and the fractional
// distance to the next node, clamped to the table.
func locate(nodes []float64, x float64) (int, float64) {
	n := len(nodes)
	if x <= nodes[0] || n == 1 { return 0, 0 }
	if x >= nodes[n-1] { return n - 1, 0 }

	i := sort.SearchFloat64s(nodes, x)
	if nodes[i] == x { return i, 0 }
	i--
	return i, (x - nodes[i]) / (nodes[i+1] - nodes[i])
}
