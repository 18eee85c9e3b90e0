/*package fields describes which of the two tracer fields each of the four
points in a covariance integral is drawn from, and how those choices select
the grids, correlation functions, and weight tables used by an integral.*/
package fields

import (
	"fmt"
)

// Fields gives the tracer field, 1 or 2, of each of the four points of an
// integral.
type Fields struct {
	I1, I2, I3, I4 int
}

// Pair indices returned by Pair. Tables which depend on a pair of fields
// (correlation functions, jackknife weights, survey corrections, sampling
// distributions) are stored in this order.
const (
	Pair11 = iota
	Pair22
	Pair12
)

var pairTags = []string{ "11", "22", "12" }

// Combinations are the seven integrals needed for a two-tracer covariance
// matrix, in the order they are run.
var Combinations = []Fields{
	{ 1, 1, 1, 1 }, { 1, 2, 1, 1 }, { 1, 2, 2, 1 }, { 1, 2, 1, 2 },
	{ 1, 1, 2, 2 }, { 2, 1, 2, 2 }, { 2, 2, 2, 2 },
}

// Single is the only integral needed for a single tracer.
var Single = Fields{ 1, 1, 1, 1 }

// Pair returns the pair index of two fields: Pair11 if both are 1, Pair22 if
// both are 2, and Pair12 otherwise.
func Pair(a, b int) int {
	switch {
	case a == 1 && b == 1: return Pair11
	case a == 2 && b == 2: return Pair22
	default: return Pair12
	}
}

// PairTag returns the two-character name of a pair index.
func PairTag(pair int) string { return pairTags[pair] }

// Check returns an error if any field index is not 1 or 2.
func (f Fields) Check() error {
	for _, i := range []int{ f.I1, f.I2, f.I3, f.I4 } {
		if i != 1 && i != 2 {
			return fmt.Errorf("field indices must be 1 or 2, got %v", f)
		}
	}
	return nil
}

// Pairs returns the pair indices of the (1,2), (1,3), (2,3), (2,4), and (3,4)
// points, which are all the pairs an integral reads tables for.
func (f Fields) Pairs() (p12, p13, p23, p24, p34 int) {
	return Pair(f.I1, f.I2), Pair(f.I1, f.I3), Pair(f.I2, f.I3),
		Pair(f.I2, f.I4), Pair(f.I3, f.I4)
}

// Tag12 names the first pair of points in output file names, e.g. "12".
func (f Fields) Tag12() string { return fmt.Sprintf("%d%d", f.I1, f.I2) }

// Tag34 names the second pair of points in output file names.
func (f Fields) Tag34() string { return fmt.Sprintf("%d%d", f.I3, f.I4) }

// Tag3 names the points of a three-point integral, e.g. "2,11".
func (f Fields) Tag3() string { return fmt.Sprintf("%d,%d%d", f.I2, f.I1, f.I3) }

// Tag4 names the points of a four-point integral, e.g. "12,11".
func (f Fields) Tag4() string {
	return fmt.Sprintf("%d%d,%d%d", f.I1, f.I2, f.I3, f.I4)
}

func (f Fields) String() string {
	return fmt.Sprintf("%d%d%d%d", f.I1, f.I2, f.I3, f.I4)
}

// Select returns the integrals picked out by a list of 1-indexed iteration
// numbers. With a single tracer the only valid iteration is 1.
func Select(multiTracers bool, iters []int) ([]Fields, error) {
	all := []Fields{ Single }
	if multiTracers { all = Combinations }

	out := make([]Fields, len(iters))
	for i, it := range iters {
		if it < 1 || it > len(all) {
			return nil, fmt.Errorf("iteration %d is not in the range [1, %d]",
				it, len(all))
		}
		out[i] = all[it-1]
	}
	return out, nil
}
