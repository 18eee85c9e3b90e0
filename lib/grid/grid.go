/*package grid contains covint's spatial index: particles are sorted into cubic
cells so that each cell owns a contiguous range of the particle array. The grid
is built once before estimation and is read-only afterwards, so it can be
shared between workers without locking.*/
package grid

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrCellMiss is returned when a requested cell lies outside the grid or
// contains no particles. It is an expected outcome of sampling, not a failure.
var ErrCellMiss = errors.New("grid: cell is outside the grid or empty")

// Particle is a single tracer. Particles are immutable once loaded.
type Particle struct {
	Pos r3.Vec
	W   float64 // statistical weight
	// JK is the index of the particle's (filled) jackknife region. It is only
	// read in jackknife mode.
	JK int
	// Class is the random partition the particle belongs to, 1 or 2.
	Class int
}

// Cell is a contiguous range [Start, Start+NP) of Grid.P. NP1 and NP2 count
// the particles in each random partition.
type Cell struct {
	Coord               [3]int
	Start, NP, NP1, NP2 int
}

// Grid is an ordered collection of cells which partition a particle array
// exactly once.
type Grid struct {
	P []Particle
	C []Cell

	NSide    [3]int
	CellSize float64
	Origin   r3.Vec
	Periodic bool

	// Filled lists the IDs of all non-empty cells in increasing order.
	Filled []int
	// MaxNP is the largest number of particles in any one cell.
	MaxNP        int
	NP, NP1, NP2 int
	// Norm is a caller-supplied normalization constant for this point set.
	Norm float64
}

// Options control how a Grid is built.
type Options struct {
	// CellSize is the requested cell width. In periodic mode it is shrunk
	// slightly so that an integer number of cells span the box.
	CellSize float64
	Periodic bool
	// BoxSize is the width of the periodic box, which starts at the origin.
	// Ignored for non-periodic grids, which are fit to their Bounds.
	BoxSize float64
	// Norm is copied into Grid.Norm. Zero means 1.
	Norm float64
	// Bounds is used in place of the particles' bounding box by non-periodic
	// grids when it is set. Grids which are sampled together must share
	// their bounds so that cell offsets mean the same thing in each.
	Bounds r3.Box
}

// New sorts a copy of particles into cells. Particles with Class 0 are
// assigned to partitions 1 and 2 alternately.
func New(particles []Particle, opt Options) (*Grid, error) {
	if len(particles) == 0 {
		return nil, fmt.Errorf("cannot build a grid with zero particles")
	} else if !(opt.CellSize > 0) {
		return nil, fmt.Errorf("CellSize must be positive, got %g", opt.CellSize)
	}

	g := &Grid{ Periodic: opt.Periodic, Norm: opt.Norm }
	if g.Norm == 0 { g.Norm = 1 }

	if opt.Periodic {
		if !(opt.BoxSize > 0) {
			return nil, fmt.Errorf("periodic grids need a positive BoxSize, "+
				"got %g", opt.BoxSize)
		}
		n := int(math.Ceil(opt.BoxSize / opt.CellSize))
		g.NSide = [3]int{ n, n, n }
		g.CellSize = opt.BoxSize / float64(n)
	} else {
		box := opt.Bounds
		if box == (r3.Box{}) { box = Bounds(particles) }
		g.Origin = box.Min
		g.CellSize = opt.CellSize
		size := box.Size()
		width := [3]float64{ size.X, size.Y, size.Z }
		for dim := range g.NSide {
			g.NSide[dim] = int(width[dim]/opt.CellSize) + 1
		}
	}

	nCells := g.NSide[0] * g.NSide[1] * g.NSide[2]
	if nCells <= 0 || nCells > 1<<30 {
		return nil, fmt.Errorf("a %d x %d x %d grid is too large; increase "+
			"CellSize", g.NSide[0], g.NSide[1], g.NSide[2])
	}

	// Counting sort by cell ID, keeping the input order within each cell.
	ids := make([]int, len(particles))
	counts := make([]int, nCells)
	for i := range particles {
		ids[i] = g.CellID(g.clamp(g.CellOf(g.wrap(particles[i].Pos))))
		counts[ids[i]]++
	}

	g.C = make([]Cell, nCells)
	start := 0
	for id := range g.C {
		g.C[id] = Cell{ Coord: g.Coord(id), Start: start }
		start += counts[id]
	}

	g.P = make([]Particle, len(particles))
	for i, p := range particles {
		p.Pos = g.wrap(p.Pos)
		if p.Class == 0 { p.Class = 1 + i%2 }

		c := &g.C[ids[i]]
		g.P[c.Start+c.NP] = p
		c.NP++
		if p.Class == 1 {
			c.NP1++
		} else {
			c.NP2++
		}
	}

	for id := range g.C {
		c := &g.C[id]
		if c.NP > 0 { g.Filled = append(g.Filled, id) }
		if c.NP > g.MaxNP { g.MaxNP = c.NP }
		g.NP += c.NP
		g.NP1 += c.NP1
		g.NP2 += c.NP2
	}

	return g, nil
}

// Bounds returns the bounding box of one or more sets of particles. At least
// one particle must be given.
func Bounds(sets ...[]Particle) r3.Box {
	// r3.Box.Union treats zero-volume boxes as empty, so it can't be used to
	// grow a box from single points.
	var lo, hi r3.Vec
	first := true
	for _, particles := range sets {
		for _, p := range particles {
			if first {
				lo, hi, first = p.Pos, p.Pos, false
				continue
			}
			lo.X, hi.X = math.Min(lo.X, p.Pos.X), math.Max(hi.X, p.Pos.X)
			lo.Y, hi.Y = math.Min(lo.Y, p.Pos.Y), math.Max(hi.Y, p.Pos.Y)
			lo.Z, hi.Z = math.Min(lo.Z, p.Pos.Z), math.Max(hi.Z, p.Pos.Z)
		}
	}
	return r3.Box{ Min: lo, Max: hi }
}

// wrap moves a position into the periodic box. It does nothing for
// non-periodic grids.
func (g *Grid) wrap(x r3.Vec) r3.Vec {
	if !g.Periodic { return x }
	L := g.CellSize * float64(g.NSide[0])
	x.X -= L * math.Floor(x.X/L)
	x.Y -= L * math.Floor(x.Y/L)
	x.Z -= L * math.Floor(x.Z/L)
	return x
}

// clamp forces a coordinate into the grid. Floating point rounding can place
// particles on the far edge of the box one cell too high.
func (g *Grid) clamp(coord [3]int) [3]int {
	for dim := range coord {
		if coord[dim] < 0 {
			coord[dim] = 0
		} else if coord[dim] >= g.NSide[dim] {
			coord[dim] = g.NSide[dim] - 1
		}
	}
	return coord
}

// CellOf returns the (possibly out-of-grid) coordinate of the cell containing
// the position x.
func (g *Grid) CellOf(x r3.Vec) [3]int {
	d := r3.Scale(1/g.CellSize, r3.Sub(x, g.Origin))
	return [3]int{
		int(math.Floor(d.X)), int(math.Floor(d.Y)), int(math.Floor(d.Z)),
	}
}

// CellID converts an in-grid cell coordinate to a 1D cell ID.
func (g *Grid) CellID(coord [3]int) int {
	return (coord[0]*g.NSide[1]+coord[1])*g.NSide[2] + coord[2]
}

// Coord converts a 1D cell ID to a cell coordinate.
func (g *Grid) Coord(id int) [3]int {
	z := id % g.NSide[2]
	y := (id / g.NSide[2]) % g.NSide[1]
	x := id / (g.NSide[1] * g.NSide[2])
	return [3]int{ x, y, z }
}

// CellSep returns the separation vector spanned by a cell offset.
func (g *Grid) CellSep(delta [3]int) r3.Vec {
	return r3.Scale(g.CellSize, r3.Vec{
		X: float64(delta[0]), Y: float64(delta[1]), Z: float64(delta[2]),
	})
}

// CellFor returns the ID of the cell at coord. For periodic grids, coord is
// wrapped into the box and shift is the vector that must be added to the
// positions of that cell's particles to place them at coord. Coordinates
// outside a non-periodic grid return ErrCellMiss.
func (g *Grid) CellFor(coord [3]int) (id int, shift r3.Vec, err error) {
	if !g.Periodic {
		for dim := range coord {
			if coord[dim] < 0 || coord[dim] >= g.NSide[dim] {
				return -1, r3.Vec{}, ErrCellMiss
			}
		}
		return g.CellID(coord), r3.Vec{}, nil
	}

	wrapped, delta := coord, [3]int{}
	for dim := range coord {
		n := g.NSide[dim]
		wrapped[dim] = ((coord[dim] % n) + n) % n
		delta[dim] = coord[dim] - wrapped[dim]
	}
	return g.CellID(wrapped), g.CellSep(delta), nil
}
