/*package catio reads the plain-text tables that covint takes as input:
particle catalogues, correlation function tables, jackknife weights and the
matrices written by earlier runs.*/
package catio

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// TextConfig contains the information needed to split a text table into
// columns.
type TextConfig struct {
	Separator byte // Character separating fields. 0 means any whitespace.
	Comment   byte // Character used to start comments.
	SkipLines int  // Number of lines to skip at the start of the file.
}

// DefaultConfig reads whitespace-separated tables with '#' comments.
var DefaultConfig = TextConfig{
	Separator: 0,
	Comment:   '#',
	SkipLines: 0,
}

// Reader gives access to the columns of a text table.
type Reader interface {
	// ReadFloat64s reads the requested columns. out[i][j] is the value of
	// columns[i] on the j-th data line.
	ReadFloat64s(columns []int) ([][]float64, error)
	// ReadInts reads the requested columns as integers.
	ReadInts(columns []int) ([][]int, error)
	// Rows reads every data line as floats. Lines may have different
	// lengths.
	Rows() ([][]float64, error)
	// Columns returns the number of columns on the first data line.
	Columns() int
	// Lines returns the number of data lines.
	Lines() int
}

// TextFile creates a Reader for a text table on disk.
func TextFile(fname string, config ...TextConfig) (Reader, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, err }
	defer f.Close()

	rd, err := newTextReader(f, config...)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", fname, err)
	}
	return rd, nil
}

// Text creates a Reader for a block of text.
func Text(text []byte, config ...TextConfig) (Reader, error) {
	return newTextReader(bytes.NewReader(text), config...)
}

// Stream creates a Reader for an arbitrary stream, e.g. stdin.
func Stream(r io.Reader, config ...TextConfig) (Reader, error) {
	return newTextReader(r, config...)
}
