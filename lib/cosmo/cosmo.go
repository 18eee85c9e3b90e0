/*package cosmo converts survey coordinates (right ascension, declination,
redshift) into comoving Cartesian positions in Mpc/h for a wCDM cosmology.
Radiation is neglected.*/
package cosmo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/spatial/r3"
)

// HubbleDistance is c/H0 in Mpc/h.
const HubbleDistance = 2997.92458

// quadPoints is the number of Gauss-Legendre nodes used for distance
// integrals. The integrand is smooth, so this is far more than enough.
const quadPoints = 64

// Cosmology is a flat or curved wCDM cosmology.
type Cosmology struct {
	OmegaM, OmegaK float64
	// W is the dark energy equation of state parameter.
	W float64
}

// Default returns Ωm = 0.31, Ωk = 0, w = -1.
func Default() Cosmology {
	return Cosmology{ OmegaM: 0.31, OmegaK: 0, W: -1 }
}

// OmegaDE returns the dark energy density parameter.
func (c Cosmology) OmegaDE() float64 { return 1 - c.OmegaM - c.OmegaK }

// E returns H(z)/H0.
func (c Cosmology) E(z float64) float64 {
	a := 1 + z
	return math.Sqrt(c.OmegaM*a*a*a + c.OmegaK*a*a +
		c.OmegaDE()*math.Pow(a, 3*(1 + c.W)))
}

// ComovingDistance returns the line-of-sight comoving distance to redshift z
// in Mpc/h.
func (c Cosmology) ComovingDistance(z float64) float64 {
	if z == 0 { return 0 }
	chi := quad.Fixed(func(x float64) float64 { return 1 / c.E(x) },
		0, z, quadPoints, quad.Legendre{ }, 0)
	return HubbleDistance * chi
}

// CoordinateDistance returns the transverse comoving distance to redshift z
// in Mpc/h. It equals ComovingDistance in a flat cosmology.
func (c Cosmology) CoordinateDistance(z float64) float64 {
	chi := c.ComovingDistance(z) / HubbleDistance
	k := math.Sqrt(math.Abs(c.OmegaK))
	switch {
	case c.OmegaK > 0: chi = math.Sinh(k*chi) / k
	case c.OmegaK < 0: chi = math.Sin(k*chi) / k
	}
	return HubbleDistance * chi
}

// Position returns the comoving position of an object at right ascension ra
// and declination dec (both in degrees) and redshift z.
func (c Cosmology) Position(ra, dec, z float64) r3.Vec {
	d := c.CoordinateDistance(z)
	phi, theta := ra*math.Pi/180, (90 - dec)*math.Pi/180
	return r3.Vec{
		X: d * math.Sin(theta) * math.Cos(phi),
		Y: d * math.Sin(theta) * math.Sin(phi),
		Z: d * math.Cos(theta),
	}
}

// Check returns an error if the cosmology is unphysical.
func (c Cosmology) Check() error {
	if c.OmegaM < 0 {
		return fmt.Errorf("OmegaM must be non-negative, got %g", c.OmegaM)
	}
	for _, z := range []float64{ 0, 1, 10 } {
		if e := c.E(z); !(e > 0) {
			return fmt.Errorf("H(z) is not positive at z = %g for %+v", z, c)
		}
	}
	return nil
}

// Convert replaces the first three columns of every row, (ra, dec, z), with
// comoving (x, y, z). Other columns are left alone.
func (c Cosmology) Convert(rows [][]float64) error {
	for i, row := range rows {
		if len(row) < 3 {
			return fmt.Errorf("row %d has %d columns, but at least 3 are "+
				"needed", i, len(row))
		}
		x := c.Position(row[0], row[1], row[2])
		row[0], row[1], row[2] = x.X, x.Y, x.Z
	}
	return nil
}
