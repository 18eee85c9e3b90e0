package lib

/* This file contains functions for loading particle catalogues. */

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/phil-mansfield/covint/lib/catio"
	"github.com/phil-mansfield/covint/lib/grid"
	"github.com/phil-mansfield/covint/lib/jackknife"
)

// LoadParticles reads a catalogue whose columns are x, y, z, weight, and,
// if jk is non-nil, jackknife region ID. Region IDs are converted to the
// index of the region in jk.
func LoadParticles(fname string, jk *jackknife.Weights) ([]grid.Particle, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }

	need := 4
	if jk != nil { need = 5 }
	if rd.Columns() < need {
		return nil, fmt.Errorf("%s has %d columns, but %d are needed",
			fname, rd.Columns(), need)
	}

	cols, err := rd.ReadFloat64s([]int{ 0, 1, 2, 3 })
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	x, y, z, w := cols[0], cols[1], cols[2], cols[3]

	ps := make([]grid.Particle, len(x))
	for i := range ps {
		ps[i] = grid.Particle{ Pos: r3.Vec{ X: x[i], Y: y[i], Z: z[i] }, W: w[i] }
	}
	if jk == nil { return ps, nil }

	ids, err := rd.ReadInts([]int{ 4 })
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	for i, id := range ids[0] {
		A, ok := jk.Region(id)
		if !ok {
			return nil, fmt.Errorf("particle %d of %s is in jackknife "+
				"region %d, which has no weights", i, fname, id)
		}
		ps[i].JK = A
	}
	return ps, nil
}
