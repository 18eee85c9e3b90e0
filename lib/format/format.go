/*package format handles covint's miniature language for selecting which
integrals in a run get computed, e.g.:

   Iterations = 1..7
   Iterations = 1..7 - 3
   Iterations = 1 + 4..5

A sequence format is a series of tokens separated by "+" or "-". Each token is
either a single natural number or two numbers separated by "..", which stands
for the inclusive range between them. "+" adds numbers to the sequence and "-"
removes them. A leading "+" may be dropped. Spaces around operators are
ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded sequence with more than BigNumber elements is assumed to
	// be a typo.
	BigNumber = 1 << 16
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	tok := tokenize(format)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The sequence format is empty.")
	}

	if tok[0] != "+" && tok[0] != "-" {
		tok = append([]string{"+"}, tok...)
	}
	if len(tok)%2 != 0 {
		return nil, fmt.Errorf("The sequence format '%s' ends in a trailing '%s'.",
			format, tok[len(tok)-1])
	}

	set := map[int]bool{}
	for i := 0; i < len(tok); i += 2 {
		op, arg := tok[i], tok[i+1]
		if op != "+" && op != "-" {
			return nil, fmt.Errorf("Element %d of '%s', '%s', should be a "+
				"'+' or '-', but isn't.", i+1, format, op)
		}

		lo, hi, err := parseRange(arg)
		if err != nil {
			return nil, fmt.Errorf("Element %d of '%s', '%s', cannot be "+
				"parsed because %s", i+2, format, arg, err.Error())
		}
		if hi-lo+1 > BigNumber {
			return nil, fmt.Errorf("The range '%s' has %d elements, which is "+
				"almost certainly a bug.", arg, hi-lo+1)
		}

		for n := lo; n <= hi; n++ {
			if op == "+" {
				if set[n] {
					return nil, fmt.Errorf("The number %d is added more "+
						"than once.", n)
				}
				set[n] = true
			} else {
				if !set[n] {
					return nil, fmt.Errorf("The number %d is removed "+
						"without having been added.", n)
				}
				delete(set, n)
			}
		}
	}

	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

func tokenize(format string) []string {
	format = strings.ReplaceAll(format, "+", " + ")
	format = strings.ReplaceAll(format, "-", " - ")
	return strings.Fields(format)
}

// parseRange parses a single token. The returned error is phrased to follow
// the word "because".
func parseRange(tok string) (lo, hi int, err error) {
	bounds := strings.Split(tok, "..")
	switch len(bounds) {
	case 1:
		n, err := strconv.Atoi(bounds[0])
		if err != nil {
			return 0, 0, fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return n, n, nil
	case 2:
		lo, err1 := strconv.Atoi(bounds[0])
		if err1 != nil {
			return 0, 0, fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		hi, err2 := strconv.Atoi(bounds[1])
		if err2 != nil {
			return 0, 0, fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if hi < lo {
			return 0, 0, fmt.Errorf("lower bound %d is larger than upper "+
				"bound %d.", lo, hi)
		}
		return lo, hi, nil
	}
	return 0, 0, fmt.Errorf("it has more than one '..'.")
}
