package catio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/phil-mansfield/covint/lib/eq"
)

const table = `# x y w jk
1.0 2.0 0.5 3
  # an indented comment
4e1 5 1.5 2.0   # trailing comment

7 8 9 0
`

func TestTextReadFloat64s(t *testing.T) {
	rd, err := Text([]byte(table))
	if err != nil { t.Fatal(err) }

	if rd.Lines() != 3 || rd.Columns() != 4 {
		t.Fatalf("Expected a 3x4 table, got %dx%d.", rd.Lines(), rd.Columns())
	}

	cols, err := rd.ReadFloat64s([]int{0, 2})
	if err != nil { t.Fatal(err) }
	if !eq.Float64s(cols[0], []float64{1, 40, 7}) {
		t.Errorf("Expected column 0 = [1 40 7], got %v.", cols[0])
	}
	if !eq.Float64s(cols[1], []float64{0.5, 1.5, 9}) {
		t.Errorf("Expected column 2 = [0.5 1.5 9], got %v.", cols[1])
	}

	ints, err := rd.ReadInts([]int{3})
	if err != nil { t.Fatal(err) }
	if !eq.Ints(ints[0], []int{3, 2, 0}) {
		t.Errorf("Expected column 3 = [3 2 0], got %v.", ints[0])
	}

	if _, err := rd.ReadFloat64s([]int{4}); err == nil {
		t.Errorf("Expected an error for an out-of-range column.")
	}
	if _, err := rd.ReadInts([]int{2}); err == nil {
		t.Errorf("Expected an error reading 0.5 as an integer.")
	}
}

func TestCommaSeparated(t *testing.T) {
	config := TextConfig{ Separator: ',', Comment: '#', SkipLines: 1 }
	rd, err := Text([]byte("x,y\n1, 2\n3 ,4\n"), config)
	if err != nil { t.Fatal(err) }

	cols, err := rd.ReadFloat64s([]int{1})
	if err != nil { t.Fatal(err) }
	if !eq.Float64s(cols[0], []float64{2, 4}) {
		t.Errorf("Expected [2 4], got %v.", cols[0])
	}
}

func TestTextFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "table.txt")
	if err := os.WriteFile(fname, []byte(table), 0644); err != nil {
		t.Fatal(err)
	}

	rd, err := TextFile(fname)
	if err != nil { t.Fatal(err) }
	if rd.Lines() != 3 {
		t.Errorf("Expected 3 lines, got %d.", rd.Lines())
	}

	if _, err := TextFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Errorf("Expected an error opening a missing file.")
	}
}

func TestRows(t *testing.T) {
	rd, err := Text([]byte("1 2 3\n# skip\n4 5\n"))
	if err != nil { t.Fatal(err) }

	rows, err := rd.Rows()
	if err != nil { t.Fatal(err) }
	if len(rows) != 2 || !eq.Float64s(rows[0], []float64{1, 2, 3}) ||
		!eq.Float64s(rows[1], []float64{4, 5}) {
		t.Errorf("Expected [[1 2 3] [4 5]], got %v.", rows)
	}

	rd, _ = Text([]byte("1 x\n"))
	if _, err := rd.Rows(); err == nil {
		t.Errorf("Expected an error for a non-numeric row.")
	}
}
