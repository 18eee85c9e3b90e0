package lib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	c_error "github.com/phil-mansfield/covint/lib/error"
	"github.com/phil-mansfield/covint/lib/fields"
)

func touch(t *testing.T, dir, name string) string {
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte("1 2 3 4\n"), 0644))
	return fname
}

func validRunArgs(t *testing.T) *Args {
	dir := t.TempDir()
	raw := DefaultRawArgs()
	raw.Estimator.CellSize = 10
	raw.Estimator.Threads = 1
	raw.Files.Particles1 = touch(t, dir, "p1.txt")
	raw.Files.Correlation11 = touch(t, dir, "xi11.txt")
	raw.Files.OutDir = dir
	args, err := raw.Process("run")
	require.NoError(t, err)
	return args
}

func TestProblems(t *testing.T) {
	require.Empty(t, Problems(validRunArgs(t)))

	tests := []struct{
		change func(a *Args)
		match  string
	} {
		{ func(a *Args) { a.Binning.NBin = 0 }, "NBin" },
		{ func(a *Args) { a.Binning.RMin = 300 }, "RMin" },
		{ func(a *Args) { a.N4 = 0 }, "N4" },
		{ func(a *Args) { a.MaxLoops = 0 }, "MaxLoops" },
		{ func(a *Args) { a.CellSize = 0 }, "CellSize" },
		{ func(a *Args) { a.Variant = "fourier" }, "Variant" },
		{ func(a *Args) { a.Variant, a.Binning.KMax = "power", 0 }, "KMax" },
		{ func(a *Args) { a.Periodic = true }, "BoxSize" },
		{ func(a *Args) { a.Jackknife = true }, "Jackknife11" },
		{ func(a *Args) {
			a.Jackknife, a.Variant = true, "legendre"
		}, "Variant" },
		{ func(a *Args) { a.Correlation[fields.Pair11] = "" }, "Correlation11" },
		{ func(a *Args) { a.Survey[fields.Pair11] = "missing.txt" }, "Survey11" },
		{ func(a *Args) {
			a.Integrals = []fields.Fields{ fields.Combinations[1] }
		}, "Particles2" },
	}

	for i := range tests {
		args := validRunArgs(t)
		tests[i].change(args)
		problems := strings.Join(Problems(args), "\n")
		if !strings.Contains(problems, tests[i].match) {
			t.Errorf("%d) Expected a problem mentioning %s, got '%s'",
				i, tests[i].match, problems)
		}
	}
}

func TestJackknifePairs(t *testing.T) {
	tests := []struct{
		integs []fields.Fields
		exp    [3]bool
	} {
		{ []fields.Fields{ fields.Single }, [3]bool{ true, false, false } },
		{ fields.Combinations[6:], [3]bool{ false, true, false } },
		// 1211 never pairs field 2 with itself, but its particles still
		// need regions.
		{ fields.Combinations[1:2], [3]bool{ true, true, true } },
		{ fields.Combinations[5:6], [3]bool{ true, true, true } },
		{ fields.Combinations, [3]bool{ true, true, true } },
	}

	for i := range tests {
		pairs := JackknifePairs(tests[i].integs)
		if pairs != tests[i].exp {
			t.Errorf("%d) Expected %v, got %v", i, tests[i].exp, pairs)
		}
	}

	args := validRunArgs(t)
	args.Jackknife = true
	args.Integrals = fields.Combinations[1:2]
	problems := strings.Join(Problems(args), "\n")
	for _, tag := range []string{ "Jackknife11", "Jackknife22", "Jackknife12" } {
		require.Contains(t, problems, tag)
	}
}

func TestReduceAndConvertProblems(t *testing.T) {
	args := validRunArgs(t)
	args.Mode = ReduceMode
	require.Empty(t, Problems(args))
	args.Subsamples = 1
	require.Len(t, Problems(args), 1)

	args = validRunArgs(t)
	args.Mode = ConvertMode
	require.Len(t, Problems(args), 2)
	args.ConvertInput = args.Particles[0]
	args.ConvertOutput = "xyz.txt"
	require.Empty(t, Problems(args))
}

func TestCheck(t *testing.T) {
	defer func(exit func(int)) { c_error.Exit = exit }(c_error.Exit)
	exited := 0
	c_error.Exit = func(int) { exited++ }

	args := validRunArgs(t)
	require.True(t, Check(args))
	require.Equal(t, 0, exited)

	args.N2 = -1
	args.CheckStrictness = WarnOnError
	require.False(t, Check(args))
	require.Equal(t, 0, exited)

	args.CheckStrictness = CrashOnError
	require.False(t, Check(args))
	require.Equal(t, 1, exited)
}
