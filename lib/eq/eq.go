/*package eq is a simple package for telling whether two arrays are equal to
one another, either exactly or to within a tolerance.*/
package eq

import (
	"math"
)

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

// Float64s returns true if two []float64 arrays are the same and false
// otherwise.
func Float64s(x, y []float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] != y[i] { return false }
	}
	return true
}

// Float64sEps returns true if the two []float64 arrays are within eps of one
// another and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] + eps < y[i] || x[i] - eps > y[i] {
			return false
		}
	}
	return true
}

// Float64sRel returns true if every element of x is within a fraction eps of
// the corresponding element of y. Elements where both values are exactly zero
// always match.
func Float64sRel(x, y []float64, eps float64) bool {
	if len(x) != len(y) { return false }
	for i := range x {
		if x[i] == y[i] { continue }
		scale := math.Max(math.Abs(x[i]), math.Abs(y[i]))
		if math.Abs(x[i] - y[i]) > eps*scale { return false }
	}
	return true
}
