package jackknife

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/covint/lib/eq"
)

func twoRegions(t *testing.T, a, b []float64) *Weights {
	jk, err := New([]int{ 4, 9 }, [][]float64{ a, b }, len(a))
	require.NoError(t, err)
	return jk
}

func TestProduct(t *testing.T) {
	jk := twoRegions(t, []float64{ 0.5, 0.25 }, []float64{ 0.5, 0.75 })

	exp := []float64{
		0.5*0.5 + 0.5*0.5, 0.5*0.25 + 0.5*0.75,
		0.25*0.5 + 0.75*0.5, 0.25*0.25 + 0.75*0.75,
	}
	if !eq.Float64sEps(jk.Product, exp, 1e-12) {
		t.Errorf("Expected product weights %.4g, got %.4g.", exp, jk.Product)
	}

	A, ok := jk.Region(9)
	require.True(t, ok)
	require.Equal(t, 1, A)
	_, ok = jk.Region(5)
	require.False(t, ok)
	require.Equal(t, 0.75, jk.At(1, 1))
}

func TestNewErrors(t *testing.T) {
	_, err := New(nil, nil, 2)
	require.Error(t, err)
	_, err = New([]int{ 1 }, [][]float64{ { 1, 2, 3 } }, 2)
	require.Error(t, err)
	_, err = New([]int{ 1, 1 }, [][]float64{ { 1, 2 }, { 1, 2 } }, 2)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "jk.txt")
	text := "# region w0 w1\n3 0.25 0.5\n7 0.75 0.5\n"
	require.NoError(t, os.WriteFile(fname, []byte(text), 0644))

	jk, err := Load(fname, 2)
	require.NoError(t, err)
	require.Equal(t, []int{ 3, 7 }, jk.IDs)
	require.Equal(t, []float64{ 0.25, 0.5, 0.75, 0.5 }, jk.W)

	_, err = Load(fname, 3)
	require.Error(t, err)
}

func TestCacheReuse(t *testing.T) {
	jk11 := twoRegions(t, []float64{ 0.5, 0.25 }, []float64{ 0.5, 0.75 })
	jk22 := twoRegions(t, []float64{ 0.1, 0.2 }, []float64{ 0.9, 0.8 })
	jk12 := twoRegions(t, []float64{ 0.3, 0.4 }, []float64{ 0.7, 0.6 })

	c, err := NewCache(jk11, jk11, jk11, 1, 1, 1, 1)
	require.NoError(t, err)
	require.Same(t, &jk11.Product[0], &c.PW12x34[0])
	require.Same(t, &jk11.Product[0], &c.PW12x23[0])

	// (1,2),(2,1): the 34 pair is the 12 pair reversed, but i1 != i3.
	c, err = NewCache(jk12, jk22, jk12, 1, 2, 2, 1)
	require.NoError(t, err)
	require.Same(t, &jk12.Product[0], &c.PW12x34[0])
	require.Equal(t, jk12.ProductWith(jk22), c.PW12x23)

	c, err = NewCache(jk11, jk12, jk22, 1, 1, 2, 2)
	require.NoError(t, err)
	require.Equal(t, jk11.ProductWith(jk22), c.PW12x34)
	require.Equal(t, jk11.ProductWith(jk12), c.PW12x23)

	bad, err := New([]int{ 1 }, [][]float64{ { 1, 1 } }, 2)
	require.NoError(t, err)
	_, err = NewCache(jk11, bad, jk11, 1, 1, 1, 1)
	require.Error(t, err)
}

func TestFactor(t *testing.T) {
	jk := twoRegions(t, []float64{ 0.5, 0.25 }, []float64{ 0.5, 0.75 })

	// All four particles in region 0, both pairs in bin 0:
	// 1 - 0.5 - 0.5 + 0.5.
	f := Factor(jk, jk, jk.Product, 0, 0, 0, 0, 0, 0)
	require.InDelta(t, 0.5, f, 1e-12)

	// Pairs in disjoint regions, bins 0 and 1:
	// 0 - (0.25+0.25)/2 - (0.5+0.5)/2 + 0.5.
	f = Factor(jk, jk, jk.Product, 0, 0, 1, 1, 0, 1)
	require.InDelta(t, -0.25, f, 1e-12)
}
