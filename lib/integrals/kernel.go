package integrals

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/covint/lib/grid"
	"github.com/phil-mansfield/covint/lib/jackknife"
	"github.com/phil-mansfield/covint/lib/xi"
)

// Model is the read-only description of one integral: how each pair is
// binned and which correlation functions and jackknife weights apply. The
// points are numbered as in the integrals: (1, 2) is the (i, j) pair, and so
// on.
type Model struct {
	P12, P23, P34    Projector
	Xi12, Xi13, Xi24 *xi.CorrelationFunction
	// JK is nil unless jackknife integrals are accumulated.
	JK *jackknife.Cache
	// Periodic grids measure μ against the z axis. Otherwise the line of
	// sight is the direction to the pair's midpoint.
	Periodic bool
}

// Check returns an error if the model is inconsistent.
func (m *Model) Check() error {
	b := m.P12.Bins()
	if m.P23.Bins() != b || m.P34.Bins() != b {
		return fmt.Errorf("projectors have %d, %d, and %d bins", b,
			m.P23.Bins(), m.P34.Bins())
	}
	if m.JK != nil {
		if m.P12.Variant() != Binned {
			return fmt.Errorf("jackknife integrals need the %s variant, not %s",
				Binned, m.P12.Variant())
		} else if m.JK.JK12.NBins != b {
			return fmt.Errorf("jackknife weights have %d bins, but the "+
				"integrals have %d", m.JK.JK12.NBins, b)
		}
	}
	return nil
}

// NewIntegrals returns an empty accumulator shaped for this model.
func (m *Model) NewIntegrals() *Integrals {
	binned := m.P12.Variant() == Binned
	return New(m.P12.Bins(), !binned, binned, m.JK != nil)
}

// Kernel performs the per-sample updates for one worker. It holds the
// primary particle list and everything cached about the pairs it forms,
// sized once from the largest cell it will see.
type Kernel struct {
	*Model
	p12, p23, p34 Projector
	width         int

	// Prim and PrimIDs are the particles of the current primary cell and
	// their IDs.
	Prim    []grid.Particle
	PrimIDs []int

	// Per primary particle: the number of bins touched by the (i, j) pair,
	// their indices and weights, w_i w_j, ξ_13(i, k), and w_i w_j w_k.
	n            []int
	idx          []int
	f            []float64
	wij, xik, wijk []float64

	// Bins of the (j, k) or (k, l) pair.
	idx2 []int
	f2   []float64
}

// Kernel allocates a Kernel for cells with up to maxNP particles.
func (m *Model) Kernel(maxNP int) *Kernel {
	w := m.P12.Width()
	return &Kernel{
		Model: m,
		p12: m.P12.Clone(), p23: m.P23.Clone(), p34: m.P34.Clone(),
		width: w,
		Prim: make([]grid.Particle, 0, maxNP),
		PrimIDs: make([]int, 0, maxNP),
		n: make([]int, maxNP),
		idx: make([]int, maxNP*w), f: make([]float64, maxNP*w),
		wij: make([]float64, maxNP), xik: make([]float64, maxNP),
		wijk: make([]float64, maxNP),
		idx2: make([]int, w), f2: make([]float64, w),
	}
}

// LoadPrimary copies the particles of cell id into Prim. idBase is added to
// every particle's index so that IDs from different grids never collide. It
// returns the number of particles.
func (k *Kernel) LoadPrimary(g *grid.Grid, id, idBase int) int {
	k.PrimIDs = g.ListParticles(id, k.PrimIDs)
	k.Prim = k.Prim[:len(k.PrimIDs)]
	for i, pid := range k.PrimIDs {
		k.Prim[i] = g.P[pid]
		k.PrimIDs[i] += idBase
	}
	return len(k.Prim)
}

// separation returns the length of the separation between a and b and the
// absolute cosine of its angle with the line of sight.
func (m *Model) separation(a, b r3.Vec) (r, mu float64) {
	d := r3.Sub(a, b)
	r = r3.Norm(d)
	if r == 0 { return 0, 0 }
	if m.Periodic { return r, math.Abs(d.Z) / r }

	los := r3.Add(a, b)
	n := r3.Norm(los)
	if n == 0 { return r, 0 }
	return r, math.Abs(r3.Dot(d, los)) / (r * n)
}

// Second adds the contributions of the pairs between the primary particles
// and particle j to C2. p2 is the probability of the draw which produced j,
// and p21 and p22 are the same probability within each random partition.
// The pair bins and weights are cached for Third and Fourth.
func (k *Kernel) Second(
	acc *Integrals, pj grid.Particle, jID int, p2, p21, p22 float64,
) {
	w, B := k.width, acc.B
	for i := range k.Prim {
		k.n[i] = 0
		if k.PrimIDs[i] == jID { continue }

		pi := &k.Prim[i]
		r, mu := k.separation(pi.Pos, pj.Pos)
		idx, f := k.idx[i*w: (i+1)*w], k.f[i*w: (i+1)*w]
		n := k.p12.Project(r, mu, idx, f)
		k.n[i] = n
		if n == 0 { continue }

		wij := pi.W * pj.W
		k.wij[i] = wij
		c := wij * wij * (1 + k.Xi12.Xi(r, mu)) / p2

		for ea, a := range idx[:n] {
			if acc.RR1 != nil {
				if pj.Class == 1 {
					acc.RR1[a] += wij * f[ea] / p21
				} else {
					acc.RR2[a] += wij * f[ea] / p22
				}
			}

			// A pair feeds the (a, b) entry of C2 for every two bins it
			// touches. Diagonal storage only sees a == b.
			ca := c * f[ea]
			for eb, b := range idx[:n] {
				var j int
				switch {
				case acc.FullC2: j = a*B + b
				case a == b: j = a
				default: continue
				}

				acc.C2[j] += ca * f[eb]
				if k.JK != nil {
					acc.C2j[j] += ca * f[eb] * jackknife.Factor(
						k.JK.JK12, k.JK.JK12, k.JK.PW12x12,
						pi.JK, pj.JK, pi.JK, pj.JK, a, b,
					)
				}
			}
		}
		if acc.FullC2 {
			acc.Cnt2 += uint64(n * n)
		} else {
			acc.Cnt2 += uint64(n)
		}
	}
}

// Third adds the contributions of the triples formed with particle k to C3.
// It must follow a call to Second for the same particle j. ξ_13 and the
// triple weights are cached for Fourth.
func (k *Kernel) Third(
	acc *Integrals, pj, pk grid.Particle, kID int, p3 float64,
) {
	w, B := k.width, acc.B
	r, mu := k.separation(pj.Pos, pk.Pos)
	nb := k.p23.Project(r, mu, k.idx2, k.f2)

	for i := range k.Prim {
		k.wijk[i] = 0
		if k.n[i] == 0 || k.PrimIDs[i] == kID { continue }

		pi := &k.Prim[i]
		rik, muik := k.separation(pi.Pos, pk.Pos)
		k.xik[i] = k.Xi13.Xi(rik, muik)
		k.wijk[i] = k.wij[i] * pk.W
		if nb == 0 { continue }

		c := k.wijk[i] * pj.W * k.xik[i] / p3
		idx, f := k.idx[i*w: i*w + k.n[i]], k.f[i*w: i*w + k.n[i]]
		for ea, a := range idx {
			ca := c * f[ea]
			row := acc.C3[a*B: (a+1)*B]
			for eb, b := range k.idx2[:nb] {
				row[b] += ca * k.f2[eb]
				if k.JK != nil {
					acc.C3j[a*B + b] += ca * k.f2[eb] * jackknife.Factor(
						k.JK.JK12, k.JK.JK23, k.JK.PW12x23,
						pi.JK, pj.JK, pj.JK, pk.JK, a, b,
					)
				}
			}
		}
		acc.Cnt3 += uint64(k.n[i] * nb)
	}
}

// Fourth adds the contributions of the quads formed with particle l to C4.
// It must follow a call to Third for the same particles j and k.
func (k *Kernel) Fourth(
	acc *Integrals, pj, pk, pl grid.Particle, lID int, p4 float64,
) {
	w, B := k.width, acc.B
	r, mu := k.separation(pk.Pos, pl.Pos)
	nb := k.p34.Project(r, mu, k.idx2, k.f2)
	if nb == 0 { return }

	rjl, mujl := k.separation(pj.Pos, pl.Pos)
	xjl := k.Xi24.Xi(rjl, mujl)

	for i := range k.Prim {
		if k.wijk[i] == 0 || k.PrimIDs[i] == lID { continue }

		pi := &k.Prim[i]
		c := k.wijk[i] * pl.W * k.xik[i] * xjl / p4
		idx, f := k.idx[i*w: i*w + k.n[i]], k.f[i*w: i*w + k.n[i]]
		for ea, a := range idx {
			ca := c * f[ea]
			row := acc.C4[a*B: (a+1)*B]
			for eb, b := range k.idx2[:nb] {
				row[b] += ca * k.f2[eb]
				if k.JK != nil {
					acc.C4j[a*B + b] += ca * k.f2[eb] * jackknife.Factor(
						k.JK.JK12, k.JK.JK34, k.JK.PW12x34,
						pi.JK, pj.JK, pk.JK, pl.JK, a, b,
					)
				}
			}
		}
		acc.Cnt4 += uint64(k.n[i] * nb)
	}
}
