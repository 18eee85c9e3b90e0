package lib

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/covint/lib/cosmo"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/format"
	"github.com/phil-mansfield/covint/lib/integrals"
)

// RawArgs stores the unprocessed values which the user assigned to each config
// variable. Each struct is one section of the config file.
type RawArgs struct {
	Estimator struct {
		NBin, MBin       int
		RMin, RMax       float64
		KMin, KMax       float64
		N2, N3, N4       int
		MaxLoops         int
		Threads          int
		Seed             int64
		Variant          string
		Jackknife        bool
		Periodic         bool
		BoxSize          float64
		CellSize         float64
		ConvergenceReset bool
		PowerNorm        float64
		Norm1, Norm2     float64
		MultiTracers     bool
		Iterations       string
		CheckStrictness  string
	}

	Files struct {
		Particles1, Particles2                    string
		Correlation11, Correlation22, Correlation12 string
		Jackknife11, Jackknife22, Jackknife12     string
		Survey11, Survey22, Survey12              string
		JackknifeXi                               string
		OutDir                                    string
	}

	Reduce struct {
		Alpha        float64
		SkipR, SkipM int
		Subsamples   int
	}

	Convert struct {
		Input, Output      string
		OmegaM, OmegaK, W  float64
	}
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	Mode            Mode
	CheckStrictness CheckStrictness

	Variant  string
	Binning  integrals.Binning
	N2, N3, N4   int
	MaxLoops     int
	Threads      int
	Seed         uint64
	Jackknife    bool
	Periodic     bool
	BoxSize      float64
	CellSize     float64
	ConvergenceReset bool
	PowerNorm    float64
	Norm         [2]float64
	MultiTracers bool
	// Integrals lists the field combinations which will be computed.
	Integrals []fields.Fields

	// Particles, Correlation, Jackknife, and Survey hold file names. The
	// last three are indexed by fields.Pair.
	Particles   [2]string
	Correlation [3]string
	JackknifeWeights [3]string
	Survey      [3]string
	JackknifeXi string
	OutDir      string

	Alpha        float64
	SkipR, SkipM int
	Subsamples   int

	ConvertInput, ConvertOutput string
	Cosmology                   cosmo.Cosmology
}

// DefaultRawArgs returns the values used for variables which aren't set in
// the config file.
func DefaultRawArgs() *RawArgs {
	raw := &RawArgs{ }
	e := &raw.Estimator
	e.NBin, e.MBin = 25, 1
	e.RMin, e.RMax = 0, 200
	e.N2, e.N3, e.N4 = 20, 15, 10
	e.MaxLoops = 10
	e.Threads = -1
	e.Variant = integrals.Binned
	e.PowerNorm = 1
	e.Iterations = "1"
	e.CheckStrictness = "crash"

	raw.Files.OutDir = "."
	raw.Reduce.Alpha = 1

	c := cosmo.Default()
	raw.Convert.OmegaM, raw.Convert.OmegaK, raw.Convert.W = c.OmegaM, c.OmegaK, c.W
	return raw
}

// ParseCommandLine parses the command line arguments and returns the mode covint
// is being run in, the name of the config file, and any arguments which were
// set. Expects that the arguments are presented in the order:
// $ covint <mode> <config file> [--<Arg1> <Value1>] [--<Arg2> <Value2>]
// The config file may be omitted in help mode. argv does not include the name
// of the program.
func ParseCommandLine(argv []string) (mode, configFile string, args *RawArgs, err error) {
	args = &RawArgs{ }
	if len(argv) == 0 {
		return "", "", nil, fmt.Errorf("no mode was given. Run " +
			"'covint help' for usage information")
	}
	mode = argv[0]
	argv = argv[1:]
	if len(argv) > 0 && !strings.HasPrefix(argv[0], "--") {
		configFile, argv = argv[0], argv[1:]
	}

	if len(argv) % 2 != 0 {
		return "", "", nil, fmt.Errorf("the command line arguments %q do "+
			"not come in --<Name> <Value> pairs", argv)
	}

	// Flags are rewritten as a config file so that they're parsed with
	// exactly the same rules.
	sb := &strings.Builder{ }
	for i := 0; i < len(argv); i += 2 {
		name := strings.TrimPrefix(argv[i], "--")
		if name == argv[i] {
			return "", "", nil, fmt.Errorf("expected a --<Name> flag, got "+
				"'%s'", argv[i])
		}
		section, ok := sectionOf(name)
		if !ok {
			return "", "", nil, fmt.Errorf("there is no config variable "+
				"named '%s'", name)
		}
		fmt.Fprintf(sb, "[%s]\n%s = %q\n", section, name, argv[i+1])
	}
	if err := gcfg.ReadStringInto(args, sb.String()); err != nil {
		return "", "", nil, err
	}

	return mode, configFile, args, nil
}

// sectionOf returns the name of the config section containing variable name.
func sectionOf(name string) (string, bool) {
	t := reflect.TypeOf(RawArgs{ })
	for i := 0; i < t.NumField(); i++ {
		sec := t.Field(i)
		for j := 0; j < sec.Type.NumField(); j++ {
			if strings.EqualFold(sec.Type.Field(j).Name, name) {
				return sec.Name, true
			}
		}
	}
	return "", false
}

// ParseConfigFile parses arguments from a config file. Variables which
// aren't in the file keep their defaults.
func ParseConfigFile(fileName string) (*RawArgs, error) {
	args := DefaultRawArgs()
	if fileName == "" { return args, nil }
	if err := gcfg.ReadFileInto(args, fileName); err != nil {
		return nil, err
	}
	return args, nil
}

// Overwrite arguments in arg1 which have been set to non-default values in
// arg2.
func (arg1 *RawArgs) Overwrite(arg2 *RawArgs) {
	v1, v2 := reflect.ValueOf(arg1).Elem(), reflect.ValueOf(arg2).Elem()
	for i := 0; i < v1.NumField(); i++ {
		s1, s2 := v1.Field(i), v2.Field(i)
		for j := 0; j < s1.NumField(); j++ {
			if !s2.Field(j).IsZero() { s1.Field(j).Set(s2.Field(j)) }
		}
	}
}

// Process converts the raw user input to a format which is more useful for
// internal functions. Very simple validation will be done here, but nothing
// which requires interacting with external files.
func (raw *RawArgs) Process(mode string) (*Args, error) {
	m, err := ParseMode(mode)
	if err != nil { return nil, err }
	strict, err := ParseCheckStrictness(raw.Estimator.CheckStrictness)
	if err != nil { return nil, err }

	e, f := &raw.Estimator, &raw.Files
	args := &Args{
		Mode: m, CheckStrictness: strict,
		Variant: strings.ToLower(e.Variant),
		Binning: integrals.Binning{
			NBin: e.NBin, MBin: e.MBin, RMin: e.RMin, RMax: e.RMax,
			KMin: e.KMin, KMax: e.KMax,
		},
		N2: e.N2, N3: e.N3, N4: e.N4, MaxLoops: e.MaxLoops,
		Threads: e.Threads, Seed: uint64(e.Seed),
		Jackknife: e.Jackknife, Periodic: e.Periodic,
		BoxSize: e.BoxSize, CellSize: e.CellSize,
		ConvergenceReset: e.ConvergenceReset, PowerNorm: e.PowerNorm,
		Norm: [2]float64{ e.Norm1, e.Norm2 }, MultiTracers: e.MultiTracers,

		Particles: [2]string{ f.Particles1, f.Particles2 },
		JackknifeXi: f.JackknifeXi, OutDir: f.OutDir,

		Alpha: raw.Reduce.Alpha, SkipR: raw.Reduce.SkipR,
		SkipM: raw.Reduce.SkipM, Subsamples: raw.Reduce.Subsamples,

		ConvertInput: raw.Convert.Input, ConvertOutput: raw.Convert.Output,
		Cosmology: cosmo.Cosmology{
			OmegaM: raw.Convert.OmegaM, OmegaK: raw.Convert.OmegaK,
			W: raw.Convert.W,
		},
	}
	args.Correlation[fields.Pair11] = f.Correlation11
	args.Correlation[fields.Pair22] = f.Correlation22
	args.Correlation[fields.Pair12] = f.Correlation12
	args.JackknifeWeights[fields.Pair11] = f.Jackknife11
	args.JackknifeWeights[fields.Pair22] = f.Jackknife22
	args.JackknifeWeights[fields.Pair12] = f.Jackknife12
	args.Survey[fields.Pair11] = f.Survey11
	args.Survey[fields.Pair22] = f.Survey22
	args.Survey[fields.Pair12] = f.Survey12

	if args.Threads <= 0 { args.Threads = runtime.NumCPU() }
	if e.Seed < 0 {
		return nil, fmt.Errorf("Seed must be non-negative, got %d", e.Seed)
	}

	iters, err := format.ExpandSequenceFormat(e.Iterations)
	if err != nil { return nil, fmt.Errorf("Iterations: %w", err) }
	if args.Integrals, err = fields.Select(e.MultiTracers, iters); err != nil {
		return nil, fmt.Errorf("Iterations: %w", err)
	}

	return args, nil
}
