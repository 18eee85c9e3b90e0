package xi

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestXiInterpolation(t *testing.T) {
	cf, err := New(
		[]float64{ 10, 20, 40 },
		[]float64{ 0, 1 },
		[][]float64{ { 1, 3 }, { 2, 4 }, { 0, 0 } },
	)
	require.NoError(t, err)

	tests := []struct {
		r, mu, xi float64
	}{
		{ 10, 0, 1 },
		{ 10, 1, 3 },
		{ 10, -1, 3 },
		{ 15, 0.5, 2.5 },
		{ 5, 0, 1 },     // below the table
		{ 30, 0, 1 },    // halfway to zero
		{ 40, 0.3, 0 },
		{ 41, 0, 0 },    // above the table
		{ 20, 2, 4 },    // mu clamped
	}

	for i, test := range tests {
		require.InDelta(t, test.xi, cf.Xi(test.r, test.mu), 1e-12,
			"%d) xi(%g, %g)", i, test.r, test.mu)
	}
	require.InDelta(t, 3.0, cf.Monopole(20), 1e-12)
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, []float64{ 0 }, nil)
	require.Error(t, err)
	_, err = New([]float64{ 2, 1 }, []float64{ 0 }, [][]float64{ { 1 }, { 1 } })
	require.Error(t, err)
	_, err = New([]float64{ 1, 2 }, []float64{ 0 }, [][]float64{ { 1 } })
	require.Error(t, err)
	_, err = New([]float64{ 1 }, []float64{ 0, 1 }, [][]float64{ { 1 } })
	require.Error(t, err)
}

func TestSingleNodeTable(t *testing.T) {
	cf := FromFunc([]float64{ 100 }, []float64{ 0 },
		func(r, mu float64) float64 { return 0.25 })
	require.Equal(t, 0.25, cf.Xi(3, 0.9))
	require.Equal(t, 0.0, cf.Xi(101, 0))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	fname := filepath.Join(dir, "xi.txt")
	text := "# r nodes, mu nodes, then xi\n10 20\n0 0.5 1\n1 2 3\n4 5 6\n"
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))

	cf, err := Load(fname)
	require.NoError(t, err)
	require.InDelta(t, 4.5, cf.Xi(20, 0.25), 1e-12)

	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("10 20\n0 1\n1 2\n"), 0644))
	_, err = Load(bad)
	require.Error(t, err)
}

func TestSurveyCorrection(t *testing.T) {
	require.Equal(t, 1.0, Unit().Phi(50, 0.3))

	sc := &SurveyCorrection{ RCoeffs: []float64{ 1, 0.5 }, MuCoeffs: []float64{ 2, 1 } }
	// (1 + 0.5*2) * (2 + 0.25) = 4.5
	require.InDelta(t, 4.5, sc.Phi(2, 0.5), 1e-12)

	fname := filepath.Join(t.TempDir(), "survey.txt")
	require.NoError(t, os.WriteFile(fname, []byte("1 0.5\n2 1\n"), 0644))
	loaded, err := LoadSurvey(fname)
	require.NoError(t, err)
	require.Equal(t, sc, loaded)
}
