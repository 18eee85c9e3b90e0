package grid

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func randomParticles(n int, L float64, seed int64) []Particle {
	r := rand.New(rand.NewSource(seed))
	p := make([]Particle, n)
	for i := range p {
		p[i] = Particle{
			Pos: r3.Vec{ X: r.Float64() * L, Y: r.Float64() * L, Z: r.Float64() * L },
			W:   0.5 + r.Float64(),
		}
	}
	return p
}

func TestNewPartitionsParticles(t *testing.T) {
	for _, periodic := range []bool{ false, true } {
		p := randomParticles(2000, 100, 1)
		g, err := New(p, Options{ CellSize: 13, Periodic: periodic, BoxSize: 100 })
		require.NoError(t, err)

		require.Equal(t, len(p), g.NP)
		require.Equal(t, g.NP, g.NP1+g.NP2)

		// Cells tile the particle array in order with no gaps.
		next, maxNP := 0, 0
		for id, c := range g.C {
			require.Equal(t, next, c.Start, "cell %d", id)
			require.Equal(t, c.NP, c.NP1+c.NP2, "cell %d", id)
			require.Equal(t, g.Coord(id), c.Coord)
			require.Equal(t, id, g.CellID(c.Coord))
			next += c.NP
			if c.NP > maxNP { maxNP = c.NP }

			for i := c.Start; i < c.Start+c.NP; i++ {
				require.Equal(t, c.Coord, g.clamp(g.CellOf(g.P[i].Pos)),
					"particle %d in cell %d", i, id)
			}
		}
		require.Equal(t, len(p), next)
		require.Equal(t, maxNP, g.MaxNP)

		for i := 1; i < len(g.Filled); i++ {
			require.Less(t, g.Filled[i-1], g.Filled[i])
			require.Positive(t, g.C[g.Filled[i]].NP)
		}
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, Options{ CellSize: 1 })
	require.Error(t, err)
	_, err = New(randomParticles(3, 1, 2), Options{ CellSize: 0 })
	require.Error(t, err)
	_, err = New(randomParticles(3, 1, 2), Options{ CellSize: 1, Periodic: true })
	require.Error(t, err)
}

func TestListParticles(t *testing.T) {
	g, err := New(randomParticles(500, 50, 3), Options{ CellSize: 7 })
	require.NoError(t, err)

	buf := make([]int, 0, g.MaxNP)
	for id, c := range g.C {
		buf = g.ListParticles(id, buf)
		require.Len(t, buf, c.NP)
		for j, pid := range buf {
			require.Equal(t, c.Start+j, pid)
		}
	}
}

func TestDrawParticleStaysInCell(t *testing.T) {
	for _, periodic := range []bool{ false, true } {
		g, err := New(randomParticles(3000, 60, 4),
			Options{ CellSize: 10, Periodic: periodic, BoxSize: 60 })
		require.NoError(t, err)
		src := rand.New(rand.NewSource(5))

		misses := 0
		for x := -3; x < g.NSide[0]+3; x++ {
			for y := -3; y < g.NSide[1]+3; y++ {
				for z := -3; z < g.NSide[2]+3; z++ {
					coord := [3]int{ x, y, z }
					d, err := g.DrawParticle(coord, src)
					if err != nil {
						require.True(t, errors.Is(err, ErrCellMiss))
						misses++
						continue
					}
					require.Equal(t, coord, g.CellOf(d.P.Pos))

					id, _, _ := g.CellFor(coord)
					c := g.C[id]
					require.Equal(t, c.NP, d.NP)
					require.GreaterOrEqual(t, d.ID, c.Start)
					require.Less(t, d.ID, c.Start+c.NP)
				}
			}
		}

		if periodic {
			require.Zero(t, misses)
		} else {
			require.Positive(t, misses)
		}
	}
}

func TestDrawParticleEmptyCell(t *testing.T) {
	p := []Particle{
		{ Pos: r3.Vec{ X: 0.5, Y: 0.5, Z: 0.5 }, W: 1 },
		{ Pos: r3.Vec{ X: 2.5, Y: 0.5, Z: 0.5 }, W: 1 },
	}
	g, err := New(p, Options{ CellSize: 1 })
	require.NoError(t, err)
	require.Equal(t, [3]int{ 3, 1, 1 }, g.NSide)
	require.Len(t, g.Filled, 2)

	src := rand.New(rand.NewSource(6))
	_, err = g.DrawParticle([3]int{ 1, 0, 0 }, src)
	require.ErrorIs(t, err, ErrCellMiss)
	require.Empty(t, g.ListParticles(g.CellID([3]int{ 1, 0, 0 }), nil))

	d, err := g.DrawParticle([3]int{ 2, 0, 0 }, src)
	require.NoError(t, err)
	require.Equal(t, 1, d.ID)
}

func TestCellForPeriodicShift(t *testing.T) {
	g, err := New(randomParticles(10, 40, 7),
		Options{ CellSize: 10, Periodic: true, BoxSize: 40 })
	require.NoError(t, err)

	id, shift, err := g.CellFor([3]int{ -1, 4, 2 })
	require.NoError(t, err)
	require.Equal(t, g.CellID([3]int{ 3, 0, 2 }), id)
	require.Equal(t, r3.Vec{ X: -40, Y: 40, Z: 0 }, shift)
}

func TestSharedBounds(t *testing.T) {
	a := []Particle{ { Pos: r3.Vec{ X: 10, Y: 10, Z: 10 }, W: 1 } }
	b := []Particle{
		{ Pos: r3.Vec{ X: 0, Y: 5, Z: 0 }, W: 1 },
		{ Pos: r3.Vec{ X: 30, Y: 5, Z: 20 }, W: 1 },
	}

	box := Bounds(a, b)
	require.Equal(t, r3.Vec{ X: 0, Y: 5, Z: 0 }, box.Min)
	require.Equal(t, r3.Vec{ X: 30, Y: 10, Z: 20 }, box.Max)

	ga, err := New(a, Options{ CellSize: 10, Bounds: box })
	require.NoError(t, err)
	gb, err := New(b, Options{ CellSize: 10, Bounds: box })
	require.NoError(t, err)

	require.Equal(t, ga.NSide, gb.NSide)
	require.Equal(t, ga.Origin, gb.Origin)
	require.Equal(t, [3]int{ 1, 0, 1 }, ga.C[ga.Filled[0]].Coord)
}
