package format

import (
	"testing"

	"github.com/phil-mansfield/covint/lib/eq"
)

func TestExpandSequenceFormat(t *testing.T) {
	tests := []struct {
		format string
		out    []int
		valid  bool
	}{
		{"1", []int{1}, true},
		{"1..7", []int{1, 2, 3, 4, 5, 6, 7}, true},
		{"1..7 - 3", []int{1, 2, 4, 5, 6, 7}, true},
		{"  1 +4..5 ", []int{1, 4, 5}, true},
		{"+ 2 + 1", []int{1, 2}, true},
		{"1..7 - 2..6 + 4", []int{1, 4, 7}, true},
		{"", nil, false},
		{"1 +", nil, false},
		{"1 + 1", nil, false},
		{"1 - 2", nil, false},
		{"7..1", nil, false},
		{"1..2..3", nil, false},
		{"x", nil, false},
		{"1 2", nil, false},
	}

	for i := range tests {
		out, err := ExpandSequenceFormat(tests[i].format)
		if tests[i].valid && err != nil {
			t.Errorf("%d) Expected '%s' to be valid, got error: %s",
				i, tests[i].format, err.Error())
		} else if !tests[i].valid && err == nil {
			t.Errorf("%d) Expected '%s' to be invalid, got %v.",
				i, tests[i].format, out)
		} else if tests[i].valid && !eq.Ints(out, tests[i].out) {
			t.Errorf("%d) Expected '%s' to expand to %v, got %v.",
				i, tests[i].format, tests[i].out, out)
		}
	}
}
