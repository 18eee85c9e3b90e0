package xi

import (
	"fmt"

	"github.com/phil-mansfield/covint/lib/catio"
)

// SurveyCorrection is the ratio Φ(r, μ) between the true pair counts of a
// survey and those of an unmasked periodic box, modelled as a polynomial in r
// times a polynomial in μ²:
//
//   Φ(r, μ) = (Σ_i RCoeffs[i] r^i) (Σ_j MuCoeffs[j] μ^(2j))
//
// Empty coefficient lists stand for 1.
type SurveyCorrection struct {
	RCoeffs, MuCoeffs []float64
}

// Unit returns a survey correction which is identically 1, i.e. a periodic
// box.
func Unit() *SurveyCorrection { return &SurveyCorrection{} }

// LoadSurvey reads a survey correction file. The first line holds the r
// coefficients and the optional second line the μ² coefficients.
func LoadSurvey(fname string) (*SurveyCorrection, error) {
	rd, err := catio.TextFile(fname)
	if err != nil { return nil, err }
	rows, err := rd.Rows()
	if err != nil { return nil, fmt.Errorf("%s: %w", fname, err) }
	if len(rows) == 0 || len(rows) > 2 {
		return nil, fmt.Errorf("%s should have one or two lines of "+
			"coefficients, but has %d", fname, len(rows))
	}

	sc := &SurveyCorrection{ RCoeffs: rows[0] }
	if len(rows) == 2 { sc.MuCoeffs = rows[1] }
	return sc, nil
}

// Phi evaluates the correction at separation r and cosine mu.
func (sc *SurveyCorrection) Phi(r, mu float64) float64 {
	return horner(sc.RCoeffs, r) * horner(sc.MuCoeffs, mu*mu)
}

func horner(c []float64, x float64) float64 {
	if len(c) == 0 { return 1 }
	sum := 0.0
	for i := len(c) - 1; i >= 0; i-- { sum = sum*x + c[i] }
	return sum
}
