package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/phil-mansfield/covint/lib"
	"github.com/phil-mansfield/covint/lib/catio"
	"github.com/phil-mansfield/covint/lib/checkpoint"
	"github.com/phil-mansfield/covint/lib/draws"
	c_error "github.com/phil-mansfield/covint/lib/error"
	"github.com/phil-mansfield/covint/lib/estimator"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/grid"
	"github.com/phil-mansfield/covint/lib/integrals"
	"github.com/phil-mansfield/covint/lib/jackknife"
	"github.com/phil-mansfield/covint/lib/postprocess"
	"github.com/phil-mansfield/covint/lib/xi"
)

func main() {
	// Parse arguments.
	mode, configFile, cmdArgs, err := lib.ParseCommandLine(os.Args[1:])
	c_error.Check(err, "parsing the command line")
	rawArgs, err := lib.ParseConfigFile(configFile)
	c_error.Check(err, "parsing the config file")
	rawArgs.Overwrite(cmdArgs)

	// Do processing that doesn't need external validation.
	args, err := rawArgs.Process(mode)
	c_error.Check(err, "processing the config variables")

	// Run the chosen mode.
	switch args.Mode {
	case lib.HelpMode:
		lib.PrintHelp(os.Stdout)
	case lib.CheckMode:
		Check(args)
	case lib.RunMode:
		Run(args)
	case lib.ReduceMode:
		Reduce(args)
	case lib.ConvertMode:
		Convert(args)
	}
}

// Check runs covint's "check" mode which tests for errors in the configuration
// arguments.
func Check(args *lib.Args) {
	ok := lib.Check(args)
	if ok {
		fmt.Println("No errors detected.")
	}
}

// Run runs covint's "run" mode, which computes every requested integral and
// writes it to OutDir.
func Run(args *lib.Args) {
	lib.Check(args)

	var err error
	args.Threads, err = lib.SetThreads(args.Threads)
	c_error.Check(err, "setting the number of threads")

	tab := LoadTables(args)
	runID := uuid.New()
	log.Printf("Starting run %s", runID)

	cfg := estimator.Config{
		N2: args.N2, N3: args.N3, N4: args.N4,
		MaxLoops: args.MaxLoops, Threads: args.Threads, Seed: args.Seed,
		ConvergenceReset: args.ConvergenceReset, PowerNorm: args.PowerNorm,
		Iterations: len(args.Integrals),
		NewWriter: func(f fields.Fields) (checkpoint.Writer, error) {
			return checkpoint.NewDirWriter(args.OutDir, f, args.Binning.NBin,
				args.Binning.MBin, args.Variant, runID)
		},
	}
	est, err := estimator.New(cfg, *tab)
	c_error.Check(err, "setting up the estimator")

	for i, f := range args.Integrals {
		res, err := est.Run(f, i+1)
		c_error.Check(err, fmt.Sprintf("computing the integral for fields %s", f))
		if !res.Converged {
			log.Printf("Integral for fields %s did not reach convergence "+
				"after %d loops.", f, res.Loops)
		}
	}
}

// LoadTables reads every input file and builds the grids and sampling
// distributions.
func LoadTables(args *lib.Args) *estimator.Tables {
	tab := &estimator.Tables{
		Variant: args.Variant, Binning: args.Binning, Periodic: args.Periodic,
	}
	pairs, used := lib.UsedPairs(args.Integrals)
	nBins := args.Binning.NBin * args.Binning.MBin

	var err error
	for pair := range pairs {
		if !pairs[pair] { continue }
		tag := fields.PairTag(pair)

		tab.Xi[pair], err = xi.Load(args.Correlation[pair])
		c_error.Check(err, "reading correlation function " + tag)

		if args.Survey[pair] != "" {
			tab.Survey[pair], err = xi.LoadSurvey(args.Survey[pair])
			c_error.Check(err, "reading survey correction " + tag)
		}
	}

	if args.Jackknife {
		tab.Jackknife = true
		jkPairs := lib.JackknifePairs(args.Integrals)
		for pair := range jkPairs {
			if !jkPairs[pair] { continue }
			tab.JK[pair], err = jackknife.Load(args.JackknifeWeights[pair], nBins)
			c_error.Check(err, "reading jackknife weights " +
				fields.PairTag(pair))
		}
	}

	particles := [2][]grid.Particle{ }
	for i := range particles {
		if !used[i] { continue }
		particles[i], err = lib.LoadParticles(args.Particles[i],
			tab.JK[fields.Pair(i+1, i+1)])
		c_error.Check(err, fmt.Sprintf("reading the particles of field %d", i+1))
		log.Printf("Read %d particles from %s", len(particles[i]),
			args.Particles[i])
	}

	bounds := grid.Bounds(particles[0], particles[1])
	for i := range particles {
		if !used[i] { continue }
		tab.Grids[i], err = grid.New(particles[i], grid.Options{
			CellSize: args.CellSize, Periodic: args.Periodic,
			BoxSize: args.BoxSize, Norm: args.Norm[i], Bounds: bounds,
		})
		c_error.Check(err, fmt.Sprintf("building the grid of field %d", i+1))
	}

	cellSize := tab.Grids[0].CellSize
	iso, err := draws.NewIsotropic(args.Binning.RMax, cellSize)
	c_error.Check(err, "building the isotropic sampling distribution")
	tab.Iso = iso
	for pair := range pairs {
		if !pairs[pair] { continue }
		d, err := draws.NewCorrelated(tab.Xi[pair], args.Binning.RMax, cellSize)
		c_error.Check(err, "building sampling distribution " +
			fields.PairTag(pair))
		tab.Draws[pair] = d
	}

	return tab
}

// Reduce runs covint's "reduce" mode, which combines the integrals written
// by "run" into covariance and precision matrices.
func Reduce(args *lib.Args) {
	lib.Check(args)

	label := checkpoint.Label(args.Variant, args.Binning.NBin, args.Binning.MBin)
	mask := postprocess.Mask{
		NBin: args.Binning.NBin, MBin: args.Binning.MBin,
		SkipR: args.SkipR, SkipM: args.SkipM,
	}
	dir := filepath.Join(args.OutDir, checkpoint.AllDir)
	if args.Variant == integrals.Power {
		dir = filepath.Join(args.OutDir, checkpoint.PowerDir)
	}
	jackDir := filepath.Join(args.OutDir, checkpoint.JackDir)

	for _, f := range args.Integrals {
		n := args.Subsamples
		if n == 0 { n = postprocess.CountSubsamples(dir, label, f) }
		log.Printf("Reducing fields %s with %d subsamples", f, n)

		full, err := postprocess.Load(dir, label, f, "full", mask)
		c_error.Check(err, "loading the full integrals")
		samples, err := postprocess.LoadSubsamples(dir, label, f, n, mask)
		c_error.Check(err, "loading the integral subsamples")

		var r *postprocess.Reduction
		if args.Jackknife {
			r, err = reduceJackknife(args, jackDir, label, f, n, mask,
				full, samples)
		} else {
			r, err = postprocess.Reduce(full, samples, args.Alpha)
		}
		c_error.Check(err, "reducing the integrals")

		if !r.Converged {
			log.Printf("Warning: the 4-point covariance matrix has not "+
				"converged according to the eigenvalue test. Min eigenvalue "+
				"of C4 = %.2e, min eigenvalue of C2 = %.2e", r.MinC4, r.MinC2)
		}
		log.Printf("Shot-noise rescaling: %.6f, N_eff: %.4e", r.Alpha, r.NEff)

		out, suffix := filepath.Join(args.OutDir, "Reduced"), label + "_" + f.Tag4()
		c_error.Check(r.Write(out, suffix), "writing the reduced matrices")
		c_error.Check(r.PlotErrors(filepath.Join(out, "sigma_" + suffix + ".png")),
			"plotting the reduced matrices")
	}
}

func reduceJackknife(
	args *lib.Args, jackDir, label string, f fields.Fields, n int,
	mask postprocess.Mask, full *postprocess.Matrices,
	samples []*postprocess.Matrices,
) (*postprocess.Reduction, error) {
	jackFull, err := postprocess.Load(jackDir, label, f, "full", mask)
	if err != nil { return nil, err }
	jackSamples, err := postprocess.LoadSubsamples(jackDir, label, f, n, mask)
	if err != nil { return nil, err }

	nBins := args.Binning.NBin * args.Binning.MBin
	jk, err := jackknife.Load(args.JackknifeWeights[fields.Pair11], nBins)
	if err != nil { return nil, err }
	xiJack, err := postprocess.LoadJackknifeXi(args.JackknifeXi)
	if err != nil { return nil, err }

	data, used, err := postprocess.DataCovariance(xiJack, jk, mask.Keep())
	if err != nil { return nil, err }
	log.Printf("Using %d out of %d jackknife regions", used, jk.NRegions)

	return postprocess.ReduceJackknife(jackFull, jackSamples, full, samples, data)
}

// Convert runs covint's "convert" mode, which converts a catalogue from
// (ra, dec, z) to comoving (x, y, z).
func Convert(args *lib.Args) {
	lib.Check(args)

	c := args.Cosmology
	log.Printf("Using Omega_m = %g, Omega_k = %g, w = %g",
		c.OmegaM, c.OmegaK, c.W)

	rd, err := catio.TextFile(args.ConvertInput)
	c_error.Check(err, "opening the input catalogue")
	rows, err := rd.Rows()
	c_error.Check(err, "reading the input catalogue")
	c_error.Check(c.Convert(rows), "converting the input catalogue")

	cols := rd.Columns()
	flat := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			c_error.External("Line %d of %s has %d columns, but the first "+
				"line has %d.", i+1, args.ConvertInput, len(row), cols)
		}
		flat = append(flat, row...)
	}
	c_error.Check(checkpoint.WriteMatrix(args.ConvertOutput, flat, len(rows), cols),
		"writing the output catalogue")
	log.Printf("Wrote %d particles to %s", len(rows), args.ConvertOutput)
}
