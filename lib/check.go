package lib

/* check.go contains the core functions of covint's "check" mode. */

import (
	"fmt"
	"log"
	"os"
	"runtime"

	c_error "github.com/phil-mansfield/covint/lib/error"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/integrals"
)

// Check runs the covint "check" command on the provided Args. This function
// will either crash upon encountering errors or will print warnings,
// depending on what CheckStrictness is set to in args. If Check completes,
// it returns true if all tests passed and false otherwise.
func Check(args *Args) bool {
	problems := Problems(args)
	for _, p := range problems {
		if args.CheckStrictness == CrashOnError {
			c_error.External("%s", p)
			return false
		}
		log.Printf("Warning: %s", p)
	}
	return len(problems) == 0
}

// Problems returns a description of everything wrong with args for the mode
// it will be run in, including missing input files.
func Problems(args *Args) []string {
	switch args.Mode {
	case RunMode, CheckMode: return runProblems(args)
	case ReduceMode: return reduceProblems(args)
	case ConvertMode: return convertProblems(args)
	}
	return nil
}

type problemList []string

func (p *problemList) add(format string, a ...interface{}) {
	*p = append(*p, fmt.Sprintf(format, a...))
}

func (p *problemList) file(name, fname string) {
	if fname == "" {
		p.add("%s was not set", name)
	} else if _, err := os.Stat(fname); err != nil {
		p.add("%s = '%s' cannot be read: %s", name, fname, err.Error())
	}
}

func (p *problemList) optionalFile(name, fname string) {
	if fname != "" { p.file(name, fname) }
}

// UsedPairs returns which field pairs and fields are needed by the
// requested integrals.
func UsedPairs(integs []fields.Fields) (pairs [3]bool, fieldUsed [2]bool) {
	for _, f := range integs {
		p12, p13, p23, p24, p34 := f.Pairs()
		for _, p := range []int{ p12, p13, p23, p24, p34 } { pairs[p] = true }
		for _, i := range []int{ f.I1, f.I2, f.I3, f.I4 } {
			fieldUsed[i-1] = true
		}
	}
	return pairs, fieldUsed
}

// JackknifePairs returns the pairs whose jackknife weights a jackknife run
// of integs needs: every pair the integrals use, plus the diagonal pair of
// every field, whose weights assign that field's particles to regions.
func JackknifePairs(integs []fields.Fields) [3]bool {
	pairs, used := UsedPairs(integs)
	for i := range used {
		if used[i] { pairs[fields.Pair(i+1, i+1)] = true }
	}
	return pairs
}

func runProblems(args *Args) []string {
	p := &problemList{ }
	b := args.Binning

	switch args.Variant {
	case integrals.Binned, integrals.Legendre:
	case integrals.Power:
		if !(b.KMax > b.KMin) || b.KMin < 0 {
			p.add("need 0 <= KMin < KMax, got KMin = %g and KMax = %g",
				b.KMin, b.KMax)
		}
	default:
		p.add("Variant must be '%s', '%s', or '%s', got '%s'",
			integrals.Binned, integrals.Legendre, integrals.Power, args.Variant)
	}
	if b.NBin <= 0 || b.MBin <= 0 {
		p.add("NBin and MBin must be positive, got %d and %d", b.NBin, b.MBin)
	}
	if !(b.RMax > b.RMin) || b.RMin < 0 {
		p.add("need 0 <= RMin < RMax, got RMin = %g and RMax = %g",
			b.RMin, b.RMax)
	}
	if args.N2 <= 0 || args.N3 <= 0 || args.N4 <= 0 {
		p.add("N2, N3, and N4 must be positive, got %d, %d, and %d",
			args.N2, args.N3, args.N4)
	}
	if args.MaxLoops <= 0 {
		p.add("MaxLoops must be positive, got %d", args.MaxLoops)
	}
	if args.Threads > runtime.NumCPU() {
		p.add("%d threads requested, but your system only has %d cores",
			args.Threads, runtime.NumCPU())
	}
	if !(args.CellSize > 0) {
		p.add("CellSize must be positive, got %g", args.CellSize)
	}
	if args.Periodic && !(args.BoxSize > 0) {
		p.add("Periodic is set, so BoxSize must be positive, got %g",
			args.BoxSize)
	}
	if args.Jackknife && args.Variant != integrals.Binned {
		p.add("Jackknife integrals need Variant = %s, got %s",
			integrals.Binned, args.Variant)
	}
	if args.OutDir == "" { p.add("OutDir was not set") }

	pairs, used := UsedPairs(args.Integrals)
	for i := range used {
		if used[i] {
			p.file(fmt.Sprintf("Particles%d", i+1), args.Particles[i])
		}
	}
	for pair := range pairs {
		if !pairs[pair] { continue }
		tag := fields.PairTag(pair)
		p.file("Correlation" + tag, args.Correlation[pair])
		p.optionalFile("Survey" + tag, args.Survey[pair])
	}
	if args.Jackknife {
		jkPairs := JackknifePairs(args.Integrals)
		for pair := range jkPairs {
			if !jkPairs[pair] { continue }
			p.file("Jackknife" + fields.PairTag(pair), args.JackknifeWeights[pair])
		}
	}

	return *p
}

func reduceProblems(args *Args) []string {
	p := &problemList{ }
	if args.OutDir == "" { p.add("OutDir was not set") }
	if !(args.Alpha > 0) && !args.Jackknife {
		p.add("Alpha must be positive, got %g", args.Alpha)
	}
	if args.Subsamples < 0 || args.Subsamples == 1 {
		p.add("Subsamples must be 0 (count them) or at least 2, got %d",
			args.Subsamples)
	}
	if args.SkipR < 0 || args.SkipM < 0 {
		p.add("SkipR and SkipM must be non-negative, got %d and %d",
			args.SkipR, args.SkipM)
	}
	if args.Jackknife {
		p.file("JackknifeXi", args.JackknifeXi)
		p.file("Jackknife11", args.JackknifeWeights[fields.Pair11])
	}
	return *p
}

func convertProblems(args *Args) []string {
	p := &problemList{ }
	p.file("Input", args.ConvertInput)
	if args.ConvertOutput == "" { p.add("Output was not set") }
	if err := args.Cosmology.Check(); err != nil { p.add("%s", err.Error()) }
	return *p
}
