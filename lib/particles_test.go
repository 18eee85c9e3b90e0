package lib

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/covint/lib/jackknife"
)

func TestLoadParticles(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "particles.txt")
	text := "# x y z w jk\n1 2 3 0.5 17\n4 5 6 1.5 3.0\n"
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))

	ps, err := LoadParticles(fname, nil)
	require.NoError(t, err)
	require.Len(t, ps, 2)
	require.Equal(t, 5.0, ps[1].Pos.Y)
	require.Equal(t, 0.5, ps[0].W)
	require.Equal(t, 0, ps[0].JK)

	jk, err := jackknife.New([]int{ 3, 17 }, [][]float64{ { 1 }, { 1 } }, 1)
	require.NoError(t, err)
	ps, err = LoadParticles(fname, jk)
	require.NoError(t, err)
	require.Equal(t, 1, ps[0].JK)
	require.Equal(t, 0, ps[1].JK)

	jk, err = jackknife.New([]int{ 3 }, [][]float64{ { 1 } }, 1)
	require.NoError(t, err)
	_, err = LoadParticles(fname, jk)
	require.Error(t, err)

	short := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(short, []byte("1 2 3 4\n"), 0644))
	_, err = LoadParticles(short, jk)
	require.Error(t, err)
}
