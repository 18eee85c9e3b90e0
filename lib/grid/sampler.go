package grid

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Source is a stream of random integers.
type Source interface {
	// Intn returns a random integer in [0, n).
	Intn(n int) int
}

// Drawn is a particle drawn at random from a cell along with the occupancy of
// that cell.
type Drawn struct {
	P  Particle // position already shifted for periodic wrapping
	ID int      // index into Grid.P
	// NP, NP1, and NP2 are the number of particles in the cell and in each of
	// its random partitions.
	NP, NP1, NP2 int
}

// ListParticles appends the indices of the particles in cell id to ids[:0] and
// returns the result. The indices are in storage order. Empty cells give an
// empty list.
func (g *Grid) ListParticles(id int, ids []int) []int {
	ids = ids[:0]
	c := g.C[id]
	for i := c.Start; i < c.Start+c.NP; i++ {
		ids = append(ids, i)
	}
	return ids
}

// DrawParticle draws a particle uniformly at random from the cell at coord.
// It returns ErrCellMiss if coord is outside the grid or the cell is empty,
// in which case src is not advanced.
func (g *Grid) DrawParticle(coord [3]int, src Source) (Drawn, error) {
	id, shift, err := g.CellFor(coord)
	if err != nil { return Drawn{}, err }

	c := g.C[id]
	if c.NP == 0 { return Drawn{}, ErrCellMiss }

	pid := c.Start + src.Intn(c.NP)
	p := g.P[pid]
	if g.Periodic { p.Pos = r3.Add(p.Pos, shift) }

	return Drawn{ P: p, ID: pid, NP: c.NP, NP1: c.NP1, NP2: c.NP2 }, nil
}
