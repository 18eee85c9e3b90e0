package estimator

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/phil-mansfield/covint/lib/checkpoint"
	c_error "github.com/phil-mansfield/covint/lib/error"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/grid"
	"github.com/phil-mansfield/covint/lib/integrals"
	"github.com/phil-mansfield/covint/lib/rng"
)

// idBase separates the particle IDs of the two fields, so that particles
// from different grids are never mistaken for each other.
var idBase = [2]int{ 0, 1 << 40 }

// run is the state shared by the workers of one integral.
type run struct {
	*Estimator
	f          fields.Fields
	iter       int
	g          [4]*grid.Grid
	model      *integrals.Model
	rd13, rd24 Sampler
	writer     checkpoint.Writer

	next    atomic.Int64 // next loop to start
	workers atomic.Int64

	// Everything below is guarded by mu.
	mu          sync.Mutex
	global      *integrals.Integrals
	counts      integrals.Counts
	merged      int
	loops       int
	convergence int
	announced   bool
	start       time.Time
}

// Run computes the integral with fields f. iter is the 1-indexed number of
// the integral within the full calculation. Every loop is checkpointed
// through the writer as it finishes, and the merged integrals are saved as
// "full" at the end.
func (e *Estimator) Run(f fields.Fields, iter int) (*Result, error) {
	if err := f.Check(); err != nil { return nil, err }

	r := &run{ Estimator: e, f: f, iter: iter }
	var err error
	for i, field := range []int{ f.I1, f.I2, f.I3, f.I4 } {
		if r.g[i], err = e.grid(field); err != nil { return nil, err }
	}
	if r.model, err = e.model(f); err != nil { return nil, err }

	r.rd13, r.rd24 = e.Draws[fields.Pair(f.I1, f.I3)],
		e.Draws[fields.Pair(f.I2, f.I4)]
	if r.rd13 == nil || r.rd24 == nil {
		return nil, fmt.Errorf("no correlated sampling distribution was " +
			"given for fields %s", f)
	}

	if r.writer, err = e.NewWriter(f); err != nil { return nil, err }
	r.global = r.model.NewIntegrals()

	g1 := r.g[0]
	e.Log.Printf("# 1st grid filled cells: %d", len(g1.Filled))
	e.Log.Printf("# All 1st grid points in use: %d", g1.NP)
	e.Log.Printf("# Max points in one cell in grid 1: %d", g1.MaxNP)
	e.Log.Printf("# Starting integral computation %d of %d on %d threads.",
		iter, e.Iterations, e.Threads)

	r.start = time.Now()
	wg := &sync.WaitGroup{ }
	for thread := 0; thread < e.Threads; thread++ {
		wg.Add(1)
		go func(thread int) {
			defer wg.Done()
			r.work(thread)
		}(thread)
	}
	wg.Wait()

	return r.finish()
}

// work is the body of a single worker. Its scratch space and accumulator
// are allocated once and live until it runs out of loops.
func (r *run) work(thread int) {
	if n := r.workers.Add(1); n > int64(r.Threads) {
		c_error.Internal("%d workers were started, but Threads = %d.",
			n, r.Threads)
	}

	src := rng.New(r.Seed, thread)
	k := r.model.Kernel(r.g[0].MaxNP)
	local := r.model.NewIntegrals()

	for {
		loop := int(r.next.Add(1)) - 1
		if loop >= r.MaxLoops { return }
		if r.stopped() { continue }

		counts := r.loop(thread, loop, k, local, src)
		r.checkpoint(loop, local, counts)
	}
}

// stopped returns true once the integrals have converged. It logs the first
// time it does so.
func (r *run) stopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.convergence < ConvergenceCheckpoints { return false }
	if !r.announced {
		r.Log.Printf("%.0f percent convergence achieved in C4 %d times, "+
			"exiting.", 100*ConvergenceTolerance, ConvergenceCheckpoints)
		r.announced = true
	}
	return true
}

func addOffset(a, b [3]int) [3]int {
	return [3]int{ a[0] + b[0], a[1] + b[1], a[2] + b[2] }
}

// loop makes one pass over every filled cell of the first grid, adding to
// acc. It returns the number of samples drawn.
func (r *run) loop(
	thread, loop int, k *integrals.Kernel, acc *integrals.Integrals,
	src *rng.Stream,
) integrals.Counts {
	c := integrals.Counts{ }
	g1, g2, g3, g4 := r.g[0], r.g[1], r.g[2], r.g[3]
	base2, base3, base4 := idBase[r.f.I2-1], idBase[r.f.I3-1], idBase[r.f.I4-1]
	runs := (r.MaxLoops + r.Threads - 1) / r.Threads

	percent := 0.0
	for n1, id := range g1.Filled {
		if float64(n1)/float64(len(g1.Filled))*100 >= percent {
			r.Log.Printf("Integral %d of %d, run %d of %d on thread %d: "+
				"Using cell %d of %d - %.0f percent complete", r.iter,
				r.Iterations, 1 + loop/r.Threads, runs, thread, n1+1,
				len(g1.Filled), percent)
			percent += 5
		}

		pln := k.LoadPrimary(g1, id, idBase[r.f.I1-1])
		if pln == 0 { continue }
		prim := g1.C[id].Coord

		n := uint64(pln)
		c.Pairs += n * uint64(r.N2)
		c.Triples += n * uint64(r.N2*r.N3)
		c.Quads += n * uint64(r.N2*r.N3*r.N4)

		for n2 := 0; n2 < r.N2; n2++ {
			c.Attempted[0]++
			delta2, p2 := r.Iso.Draw(src)
			sec := addOffset(prim, delta2)
			dj, err := g2.DrawParticle(sec, src)
			if err != nil { continue }
			c.Used[0]++

			p21 := p2 / (float64(g1.NP1) * float64(dj.NP1))
			p22 := p2 / (float64(g1.NP2) * float64(dj.NP2))
			p2 /= float64(g1.NP) * float64(dj.NP)
			jID := dj.ID + base2
			k.Second(acc, dj.P, jID, p2, p21, p22)

			for n3 := 0; n3 < r.N3; n3++ {
				c.Attempted[1]++
				delta3, q3 := r.rd13.Draw(src)
				dk, err := g3.DrawParticle(addOffset(prim, delta3), src)
				if err != nil { continue }
				kID := dk.ID + base3
				if kID == jID { continue }
				c.Used[1]++

				p3 := q3 * p2 / float64(dk.NP)
				k.Third(acc, dj.P, dk.P, kID, p3)

				for n4 := 0; n4 < r.N4; n4++ {
					c.Attempted[2]++
					delta4, q4 := r.rd24.Draw(src)
					dl, err := g4.DrawParticle(addOffset(sec, delta4), src)
					if err != nil { continue }
					lID := dl.ID + base4
					if lID == jID || lID == kID { continue }
					c.Used[2]++

					p4 := q4 * p3 / float64(dl.NP)
					k.Fourth(acc, dj.P, dk.P, dl.P, lID, p4)
				}
			}
		}
	}

	return c
}

// updateConvergence returns the convergence counter after a checkpoint.
func updateConvergence(counter int, converged, reset bool) int {
	if converged { return counter + 1 }
	if reset { return 0 }
	return counter
}

// norms returns the normalizations of the four grids.
func (r *run) norms() [4]float64 {
	return [4]float64{ r.g[0].Norm, r.g[1].Norm, r.g[2].Norm, r.g[3].Norm }
}

// checkpoint merges a finished loop into the global integrals, saves it,
// and resets local.
func (r *run) checkpoint(
	loop int, local *integrals.Integrals, c integrals.Counts,
) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counts.Add(c)
	r.loops++

	if (loop+1) % r.Threads == 0 {
		elapsed := time.Since(r.start)
		done, total := (loop+1)/r.Threads, r.MaxLoops/r.Threads
		left := time.Duration(0)
		if total > done { left = elapsed / time.Duration(done) * time.Duration(total - done) }
		r.Log.Printf("Finished integral loop %d of %d after %s. Estimated "+
			"time left: %s", loop+1, r.MaxLoops, elapsed.Round(time.Second),
			left.Round(time.Second))

		frob := r.global.FrobeniusDifference(local, r.merged)
		r.convergence = updateConvergence(r.convergence,
			frob.Converged(ConvergenceTolerance, local.Jackknife()),
			r.ConvergenceReset)

		if r.merged != 0 {
			r.Log.Printf("Frobenius percent difference after loop %d is "+
				"%.3f (C2), %.3f (C3), %.3f (C4)", loop,
				100*frob.C2, 100*frob.C3, 100*frob.C4)
			if local.Jackknife() {
				r.Log.Printf("Frobenius jackknife percent difference after "+
					"loop %d is %.3f (C2j), %.3f (C3j), %.3f (C4j)", loop,
					100*frob.C2j, 100*frob.C3j, 100*frob.C4j)
			}
		}
	}

	r.global.Sum(local)
	r.merged++

	local.Normalize(r.norms(), float64(c.Pairs), float64(c.Triples),
		float64(c.Quads), r.powerNorm())
	if err := r.writer.Save(strconv.Itoa(loop), local, false); err != nil {
		c_error.External("Could not save loop %d: %s", loop, err.Error())
	}
	local.Reset()
}

func (r *run) powerNorm() float64 {
	if r.Variant == integrals.Power { return r.PowerNorm }
	return 1
}

// finish normalizes the merged integrals, saves them, and reports on the
// run.
func (r *run) finish() (*Result, error) {
	elapsed := time.Since(r.start)
	c := r.counts

	r.global.Normalize(r.norms(), float64(c.Pairs), float64(c.Triples),
		float64(c.Quads), r.powerNorm())

	secs := elapsed.Seconds()
	r.Log.Printf("INTEGRAL %d OF %d COMPLETE", r.iter, r.Iterations)
	r.Log.Printf("Total process time for %.2e sets of cells and %.2e quads "+
		"of particles: %s", float64(c.Used[2]), float64(c.Quads),
		elapsed.Round(time.Second))
	r.Log.Printf("We tried %.2e pairs, %.2e triples and %.2e quads of cells.",
		float64(c.Attempted[0]), float64(c.Attempted[1]),
		float64(c.Attempted[2]))
	r.Log.Printf("Of these, we accepted %.2e pairs, %.2e triples and %.2e "+
		"quads of cells.", float64(c.Used[0]), float64(c.Used[1]),
		float64(c.Used[2]))
	r.Log.Printf("We sampled %.2e pairs, %.2e triples and %.2e quads of "+
		"particles.", float64(c.Pairs), float64(c.Triples), float64(c.Quads))
	r.Log.Printf("Of these, we have integral contributions from %.2e pairs, "+
		"%.2e triples and %.2e quads of particles.", float64(r.global.Cnt2),
		float64(r.global.Cnt3), float64(r.global.Cnt4))
	r.Log.Printf("Cell acceptance ratios are %.3f for pairs, %.3f for "+
		"triples and %.3f for quads.", ratio(c.Used[0], c.Attempted[0]),
		ratio(c.Used[1], c.Attempted[1]), ratio(c.Used[2], c.Attempted[2]))
	r.Log.Printf("Acceptance ratios are %.3f for pairs, %.3f for triples and "+
		"%.3f for quads.", r.acceptance(r.global.Cnt2, c.Pairs),
		r.acceptance(r.global.Cnt3, c.Triples),
		r.acceptance(r.global.Cnt4, c.Quads))
	r.Log.Printf("Average of %.2f pairs accepted per primary particle.",
		float64(r.global.Cnt2)/float64(r.g[0].NP))
	if secs > 0 {
		r.Log.Printf("Trial speed: %.2e quads per core per second",
			float64(c.Quads)/(secs*float64(r.Threads)))
		r.Log.Printf("Acceptance speed: %.2e quads per core per second",
			float64(r.global.Cnt4)/(secs*float64(r.Threads)))
	}

	if err := r.writer.Save("full", r.global, true); err != nil {
		return nil, err
	}
	if err := r.writer.SaveCounts(c); err != nil { return nil, err }

	return &Result{
		Integrals: r.global, Counts: c, Loops: r.loops,
		Convergence: r.convergence,
		Converged: r.convergence >= ConvergenceCheckpoints,
	}, nil
}

// acceptance returns the fraction of sampled particle sets which
// contributed. The multipole variants count every pair of multipoles a
// sample feeds, so their counts are divided by MBin².
func (r *run) acceptance(cnt, sampled uint64) float64 {
	a := ratio(cnt, sampled)
	if r.Variant != integrals.Binned {
		a /= float64(r.Binning.MBin * r.Binning.MBin)
	}
	return a
}

func ratio(a, b uint64) float64 {
	if b == 0 { return 0 }
	return float64(a) / float64(b)
}
