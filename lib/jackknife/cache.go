package jackknife

import (
	"fmt"
)

// Cache holds the weights of the three point pairs used by the jackknife
// integrals and the products between them. Pairs are named by the points
// they join: 12 is the (i, j) pair, 23 is (j, k), and 34 is (k, l).
type Cache struct {
	JK12, JK23, JK34 *Weights
	// PW12x12, PW12x23, and PW12x34 are Σ_A w^{12}_{A,a} w^{xy}_{A,b}.
	PW12x12, PW12x23, PW12x34 []float64
}

// NewCache builds the product weights for an integral with fields i1 to i4.
// A product is only recomputed when it can't be read from the 12 table:
// PW12x34 is shared when the (3, 4) pair matches the (1, 2) pair in either
// order, and PW12x23 is shared when i1 == i3.
func NewCache(jk12, jk23, jk34 *Weights, i1, i2, i3, i4 int) (*Cache, error) {
	for _, jk := range []*Weights{ jk23, jk34 } {
		if jk.NRegions != jk12.NRegions || jk.NBins != jk12.NBins {
			return nil, fmt.Errorf("jackknife tables have shapes %d x %d and "+
				"%d x %d", jk12.NRegions, jk12.NBins, jk.NRegions, jk.NBins)
		}
	}

	c := &Cache{ JK12: jk12, JK23: jk23, JK34: jk34, PW12x12: jk12.Product }

	if (i1 == i3 && i2 == i4) || (i1 == i4 && i2 == i3) {
		c.PW12x34 = jk12.Product
	} else {
		c.PW12x34 = jk12.ProductWith(jk34)
	}

	if i1 == i3 {
		c.PW12x23 = jk12.Product
	} else {
		c.PW12x23 = jk12.ProductWith(jk23)
	}

	return c, nil
}

// Factor returns the jackknife weight of a pair of pairs. The first pair,
// (i, j), lies in bin a of table wx and the second pair, (k, l), in bin b of
// table wy. pw is the product of the two tables. Ji through Jl are the
// filled-region indices of the four particles.
//
// The factor is Σ_A q^{ij}_A q^{kl}_A - Σ_A q^{ij}_A w^{y}_{A,b}
// - Σ_A w^{x}_{A,a} q^{kl}_A + pw[a, b], with q^{ij}_A = (δ(Ji,A) + δ(Jj,A))/2.
func Factor(
	wx, wy *Weights, pw []float64, Ji, Jj, Jk, Jl, a, b int,
) float64 {
	qq := 0.0
	if Ji == Jk { qq++ }
	if Ji == Jl { qq++ }
	if Jj == Jk { qq++ }
	if Jj == Jl { qq++ }
	qq /= 4

	qw := (wy.At(Ji, b) + wy.At(Jj, b)) / 2
	wq := (wx.At(Jk, a) + wx.At(Jl, a)) / 2

	return qq - qw - wq + pw[a*wx.NBins + b]
}
