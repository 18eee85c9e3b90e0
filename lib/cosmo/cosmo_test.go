package cosmo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComovingDistance(t *testing.T) {
	eds := Cosmology{ OmegaM: 1, W: -1 }
	tests := []struct{
		z, exp float64
	} {
		{ 0, 0 },
		{ 3, HubbleDistance },
		{ 8, HubbleDistance * 2 * (1 - 1.0/3) },
	}

	for i := range tests {
		d := eds.ComovingDistance(tests[i].z)
		if math.Abs(d - tests[i].exp) > 1e-6*HubbleDistance {
			t.Errorf("%d) Expected %g, got %g", i, tests[i].exp, d)
		}
	}
}

func TestCoordinateDistance(t *testing.T) {
	// In an empty open universe χ = ln(1 + z), so D = sinh(χ).
	open := Cosmology{ OmegaM: 0, OmegaK: 1, W: -1 }
	require.InDelta(t, 0.75*HubbleDistance, open.CoordinateDistance(1), 1e-6)

	flat := Default()
	require.Equal(t, flat.ComovingDistance(0.5), flat.CoordinateDistance(0.5))

	closed := Cosmology{ OmegaM: 1.2, OmegaK: -0.2, W: -1 }
	require.Less(t, closed.CoordinateDistance(1), closed.ComovingDistance(1))
}

func TestPosition(t *testing.T) {
	c := Default()
	d := c.CoordinateDistance(0.5)

	x := c.Position(0, 90, 0.5)
	require.InDelta(t, 0, x.X, 1e-9)
	require.InDelta(t, d, x.Z, 1e-9)

	x = c.Position(90, 0, 0.5)
	require.InDelta(t, 0, x.X, 1e-9)
	require.InDelta(t, d, x.Y, 1e-9)
	require.InDelta(t, 0, x.Z, 1e-9)
}

func TestConvert(t *testing.T) {
	c := Default()
	rows := [][]float64{ { 90, 0, 0.5, 2.5 } }
	require.NoError(t, c.Convert(rows))
	require.InDelta(t, c.CoordinateDistance(0.5), rows[0][1], 1e-9)
	require.Equal(t, 2.5, rows[0][3])

	require.Error(t, c.Convert([][]float64{ { 1, 2 } }))
}

func TestCheck(t *testing.T) {
	require.NoError(t, Default().Check())
	require.Error(t, Cosmology{ OmegaM: -1, W: -1 }.Check())
	require.Error(t, Cosmology{ OmegaM: 0.3, OmegaK: -5, W: -1 }.Check())
}
