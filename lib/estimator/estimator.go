/*package estimator runs covint's Monte Carlo integration. For every particle
in every filled cell of the first grid it draws second, third, and fourth
cells from importance sampling distributions, picks a random particle from
each, and adds the weighted contributions of the resulting pairs, triples,
and quads to a worker-local accumulator.

Workers take whole loops over the grid from a shared counter. After each loop
a worker takes the run's lock, updates the convergence diagnostics, merges its
accumulator into the global one, and checkpoints its loop. Nothing else is
shared between workers while they sample.*/
package estimator

import (
	"fmt"
	"log"

	"github.com/phil-mansfield/covint/lib/checkpoint"
	"github.com/phil-mansfield/covint/lib/draws"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/grid"
	"github.com/phil-mansfield/covint/lib/integrals"
	"github.com/phil-mansfield/covint/lib/jackknife"
	"github.com/phil-mansfield/covint/lib/rng"
	"github.com/phil-mansfield/covint/lib/xi"
)

const (
	// ConvergenceTolerance is the relative Frobenius change in C4 below
	// which a checkpoint counts as converged.
	ConvergenceTolerance = 0.01
	// ConvergenceCheckpoints is the number of converged checkpoints after
	// which the remaining loops are skipped.
	ConvergenceCheckpoints = 10
)

// Sampler draws cell offsets for importance sampling. *draws.Distribution
// is the Sampler used outside of tests.
type Sampler interface {
	// Draw returns a random cell offset and the probability of drawing it.
	Draw(src draws.Source) (offset [3]int, p float64)
}

// Config holds the parameters of a run.
type Config struct {
	// N2, N3, and N4 are the number of second, third, and fourth cells drawn
	// for each cell of the level above.
	N2, N3, N4 int
	// MaxLoops is the number of loops over the first grid.
	MaxLoops int
	// Threads is the number of workers.
	Threads int
	// Seed seeds every worker's random stream. Zero means a random seed.
	Seed uint64
	// ConvergenceReset zeroes the convergence counter after any checkpoint
	// which isn't converged. Otherwise the counter never decreases.
	ConvergenceReset bool
	// PowerNorm divides every integral of the power variant.
	PowerNorm float64
	// Iterations is the number of integrals in the full calculation. It is
	// only used in log messages.
	Iterations int
	// NewWriter creates the writer for the integral with the given fields.
	NewWriter func(f fields.Fields) (checkpoint.Writer, error)
	// Log receives progress messages. nil means log.Default().
	Log *log.Logger
}

// Tables holds the read-only inputs of every integral. Pair-dependent
// tables are indexed by fields.Pair.
type Tables struct {
	// Grids[i] holds the particles of field i+1. Grids[1] may be nil for
	// single-tracer runs.
	Grids [2]*grid.Grid
	Xi    [3]*xi.CorrelationFunction
	// Iso is the 1/r² distribution used to draw second cells. Draws holds
	// the ξ-shaped distributions used for third and fourth cells.
	Iso   Sampler
	Draws [3]Sampler
	// Survey may contain nils, meaning Φ = 1.
	Survey [3]*xi.SurveyCorrection
	// Jackknife turns on the jackknife integrals. JK must then hold the
	// weights of every pair an integral uses.
	Jackknife bool
	JK        [3]*jackknife.Weights

	Variant  string
	Binning  integrals.Binning
	Periodic bool
}

// Estimator computes covariance integrals.
type Estimator struct {
	Config
	Tables
}

// Result is the outcome of a run.
type Result struct {
	// Integrals are the merged integrals, normalized by the total number of
	// sampled pairs, triples, and quads.
	Integrals *integrals.Integrals
	Counts    integrals.Counts
	// Loops is the number of loops which sampled before convergence.
	Loops int
	// Convergence is the final value of the convergence counter.
	Convergence int
	Converged   bool
}

// New checks a configuration and creates an Estimator.
func New(cfg Config, tab Tables) (*Estimator, error) {
	switch {
	case cfg.N2 <= 0 || cfg.N3 <= 0 || cfg.N4 <= 0:
		return nil, fmt.Errorf("N2, N3, and N4 must be positive, got %d, "+
			"%d, and %d", cfg.N2, cfg.N3, cfg.N4)
	case cfg.MaxLoops <= 0:
		return nil, fmt.Errorf("MaxLoops must be positive, got %d",
			cfg.MaxLoops)
	case cfg.Threads <= 0:
		return nil, fmt.Errorf("Threads must be positive, got %d", cfg.Threads)
	case cfg.NewWriter == nil:
		return nil, fmt.Errorf("no checkpoint writer was given")
	case tab.Grids[0] == nil:
		return nil, fmt.Errorf("no particles were given for the first field")
	case tab.Iso == nil:
		return nil, fmt.Errorf("no isotropic sampling distribution was given")
	}

	if g1, g2 := tab.Grids[0], tab.Grids[1]; g2 != nil {
		if g1.NSide != g2.NSide || g1.CellSize != g2.CellSize ||
			g1.Origin != g2.Origin || g1.Periodic != g2.Periodic {
			return nil, fmt.Errorf("the grids of the two fields have " +
				"different geometries")
		}
	}

	if cfg.Seed == 0 { cfg.Seed = rng.Seed() }
	if cfg.PowerNorm == 0 { cfg.PowerNorm = 1 }
	if cfg.Iterations == 0 { cfg.Iterations = 1 }
	if cfg.Log == nil { cfg.Log = log.Default() }

	return &Estimator{ cfg, tab }, nil
}

// grid returns the grid of a field.
func (e *Estimator) grid(field int) (*grid.Grid, error) {
	g := e.Grids[field - 1]
	if g == nil {
		return nil, fmt.Errorf("no particles were given for field %d", field)
	}
	return g, nil
}

// model assembles the projectors, correlation functions, and jackknife
// weights of the integral with fields f.
func (e *Estimator) model(f fields.Fields) (*integrals.Model, error) {
	p12, p13, p23, p24, p34 := f.Pairs()

	m := &integrals.Model{
		Xi12: e.Xi[p12], Xi13: e.Xi[p13], Xi24: e.Xi[p24],
		Periodic: e.Periodic,
	}
	for _, pair := range []int{ p12, p13, p24 } {
		if e.Xi[pair] == nil {
			return nil, fmt.Errorf("no correlation function was given for "+
				"fields %s", fields.PairTag(pair))
		}
	}

	var err error
	for _, proj := range []struct{
		p    *integrals.Projector
		pair int
	} {
		{ &m.P12, p12 }, { &m.P23, p23 }, { &m.P34, p34 },
	} {
		*proj.p, err = integrals.NewProjector(e.Variant, e.Binning,
			e.Survey[proj.pair])
		if err != nil { return nil, err }
	}

	if e.Jackknife {
		for _, pair := range []int{ p12, p23, p34 } {
			if e.JK[pair] == nil {
				return nil, fmt.Errorf("no jackknife weights were given for "+
					"fields %s", fields.PairTag(pair))
			}
		}
		m.JK, err = jackknife.NewCache(e.JK[p12], e.JK[p23], e.JK[p34],
			f.I1, f.I2, f.I3, f.I4)
		if err != nil { return nil, err }
	}

	return m, m.Check()
}
