package integrals

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/covint/lib/xi"
)

// Variant names accepted by NewProjector.
const (
	Binned   = "binned"
	Legendre = "legendre"
	Power    = "power"
)

// Projector maps a pair separation onto the flat bins of an accumulator. It is
// the part of an integral that changes between variants.
type Projector interface {
	// Variant returns the name of the variant.
	Variant() string
	// Bins returns the number of flat bins, B.
	Bins() int
	// Width returns the largest number of bins a single pair can touch.
	Width() int
	// Project writes the bins touched by a pair with separation r and
	// line-of-sight cosine mu to idx and their weights to f, and returns how
	// many were written. Pairs outside the binning return 0. idx and f must
	// have at least Width() elements.
	Project(r, mu float64, idx []int, f []float64) int
	// Clone returns a copy with its own scratch space. Projectors are not
	// safe for concurrent use, so each worker clones its own.
	Clone() Projector
}

// Binning describes the bins shared by all variants.
type Binning struct {
	NBin, MBin int
	RMin, RMax float64
	// KMin and KMax bound the k bins of the power variant.
	KMin, KMax float64
}

// NewProjector creates the projector for the named variant. survey is ignored
// by the binned variant and may be nil for the others, meaning Φ = 1.
func NewProjector(
	variant string, b Binning, survey *xi.SurveyCorrection,
) (Projector, error) {
	if b.NBin <= 0 || b.MBin <= 0 {
		return nil, fmt.Errorf("bin counts must be positive, got NBin = %d "+
			"and MBin = %d", b.NBin, b.MBin)
	} else if !(b.RMax > b.RMin) || b.RMin < 0 {
		return nil, fmt.Errorf("need 0 <= RMin < RMax, got RMin = %g and "+
			"RMax = %g", b.RMin, b.RMax)
	}
	if survey == nil { survey = xi.Unit() }

	switch variant {
	case Binned:
		return &binnedProjector{ b }, nil
	case Legendre:
		return &legendreProjector{ b, survey, make([]float64, b.MBin) }, nil
	case Power:
		if !(b.KMax > b.KMin) || b.KMin < 0 {
			return nil, fmt.Errorf("need 0 <= KMin < KMax, got KMin = %g "+
				"and KMax = %g", b.KMin, b.KMax)
		}
		return &powerProjector{
			b, survey, make([]float64, b.MBin), make([]float64, 2*b.MBin),
		}, nil
	}
	return nil, fmt.Errorf("unrecognized variant '%s'", variant)
}

// radialBin returns the radial bin of r or -1 if r is outside [RMin, RMax).
func (b Binning) radialBin(r float64) int {
	if r < b.RMin || r >= b.RMax { return -1 }
	i := int((r - b.RMin) / (b.RMax - b.RMin) * float64(b.NBin))
	if i >= b.NBin { i = b.NBin - 1 }
	return i
}

type binnedProjector struct {
	Binning
}

func (p *binnedProjector) Variant() string { return Binned }
func (p *binnedProjector) Bins() int { return p.NBin * p.MBin }
func (p *binnedProjector) Width() int { return 1 }
func (p *binnedProjector) Clone() Projector { return p }

func (p *binnedProjector) Project(
	r, mu float64, idx []int, f []float64,
) int {
	ir := p.radialBin(r)
	if ir < 0 { return 0 }
	im := int(math.Abs(mu) * float64(p.MBin))
	if im >= p.MBin { im = p.MBin - 1 }

	idx[0], f[0] = ir*p.MBin + im, 1
	return 1
}

// legendreProjector projects pairs onto the even multipoles ℓ = 0, 2, ...,
// 2(MBin-1) of each radial bin.
type legendreProjector struct {
	Binning
	survey *xi.SurveyCorrection
	poly   []float64
}

func (p *legendreProjector) Variant() string { return Legendre }
func (p *legendreProjector) Bins() int { return p.NBin * p.MBin }
func (p *legendreProjector) Width() int { return p.MBin }

func (p *legendreProjector) Clone() Projector {
	return &legendreProjector{ p.Binning, p.survey, make([]float64, p.MBin) }
}

func (p *legendreProjector) Project(
	r, mu float64, idx []int, f []float64,
) int {
	ir := p.radialBin(r)
	if ir < 0 { return 0 }

	phi := p.survey.Phi(r, mu)
	evenLegendre(mu, p.poly)
	for i, L := range p.poly {
		ell := float64(2*i)
		idx[i], f[i] = ir*p.MBin + i, (2*ell + 1)*L/phi
	}
	return p.MBin
}

// powerProjector projects pairs onto the even multipoles of NBin bins in k,
// evaluated at the bin centers.
type powerProjector struct {
	Binning
	survey *xi.SurveyCorrection
	poly, bessel []float64
}

func (p *powerProjector) Variant() string { return Power }
func (p *powerProjector) Bins() int { return p.NBin * p.MBin }
func (p *powerProjector) Width() int { return p.NBin * p.MBin }

func (p *powerProjector) Clone() Projector {
	return &powerProjector{
		p.Binning, p.survey, make([]float64, p.MBin), make([]float64, 2*p.MBin),
	}
}

func (p *powerProjector) Project(
	r, mu float64, idx []int, f []float64,
) int {
	if r < p.RMin || r >= p.RMax { return 0 }

	phi := p.survey.Phi(r, mu)
	evenLegendre(mu, p.poly)
	dk := (p.KMax - p.KMin) / float64(p.NBin)

	n := 0
	for ik := 0; ik < p.NBin; ik++ {
		k := p.KMin + (float64(ik) + 0.5)*dk
		sphericalBessel(k*r, p.bessel)
		for i, L := range p.poly {
			ell := 2*i
			idx[n] = ik*p.MBin + i
			f[n] = float64(2*ell + 1)*L*p.bessel[ell]/phi
			n++
		}
	}
	return n
}

// evenLegendre writes L_0(x), L_2(x), ... to out.
func evenLegendre(x float64, out []float64) {
	prev, curr := 1.0, x
	out[0] = 1
	for ell := 1; ell < 2*len(out) - 2; ell++ {
		// (ℓ+1) L_{ℓ+1} = (2ℓ+1) x L_ℓ - ℓ L_{ℓ-1}
		next := (float64(2*ell + 1)*x*curr - float64(ell)*prev) / float64(ell + 1)
		prev, curr = curr, next
		if (ell+1) % 2 == 0 { out[(ell+1)/2] = curr }
	}
}

// sphericalBessel writes j_0(x), ..., j_{len(out)-1}(x) to out.
func sphericalBessel(x float64, out []float64) {
	if x == 0 {
		for ell := range out { out[ell] = 0 }
		out[0] = 1
		return
	}

	// Upward recurrence loses precision once ℓ exceeds x, so switch to the
	// power series there.
	sin, cos := math.Sincos(x)
	for ell := range out {
		switch {
		case float64(ell) > x:
			out[ell] = besselSeries(ell, x)
		case ell == 0:
			out[ell] = sin / x
		case ell == 1:
			out[ell] = sin/(x*x) - cos/x
		default:
			out[ell] = float64(2*ell - 1)/x*out[ell-1] - out[ell-2]
		}
	}
}

// besselSeries evaluates j_ℓ(x) = x^ℓ/(2ℓ+1)!! Σ_m (-x²/2)^m /
// (m! (2ℓ+3)(2ℓ+5)...(2ℓ+2m+1)).
func besselSeries(ell int, x float64) float64 {
	lead := 1.0
	for i := 1; i <= ell; i++ {
		lead *= x / float64(2*i + 1)
	}

	sum, term := 1.0, 1.0
	for m := 1; m < 100; m++ {
		term *= -x*x/2 / (float64(m)*float64(2*ell + 2*m + 1))
		sum += term
		if math.Abs(term) < 1e-17*math.Abs(sum) { break }
	}
	return lead * sum
}
