package catio

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
)

const maxLineSize = 1 << 20

type textReader struct {
	config TextConfig
	fields [][][]byte
	lineNo []int
}

// newTextReader tokenizes every data line of rd up front. Tables passed to
// covint are small compared to the particle arrays, so this is fine.
func newTextReader(rd io.Reader, config ...TextConfig) (*textReader, error) {
	t := &textReader{ config: DefaultConfig }
	if len(config) > 0 { t.config = config[0] }

	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, 1<<16), maxLineSize)

	n := 0
	for scanner.Scan() {
		n++
		if n <= t.config.SkipLines { continue }

		line := scanner.Bytes()
		if t.config.Comment != 0 {
			if i := bytes.IndexByte(line, t.config.Comment); i >= 0 {
				line = line[:i]
			}
		}

		tok := t.split(line)
		if len(tok) == 0 { continue }

		// The scanner reuses its buffer.
		for i := range tok { tok[i] = append([]byte{}, tok[i]...) }
		t.fields = append(t.fields, tok)
		t.lineNo = append(t.lineNo, n)
	}

	if err := scanner.Err(); err != nil { return nil, err }
	return t, nil
}

func (t *textReader) split(line []byte) [][]byte {
	if t.config.Separator == 0 { return bytes.Fields(line) }

	raw := bytes.Split(line, []byte{ t.config.Separator })
	tok := make([][]byte, 0, len(raw))
	for _, r := range raw {
		r = bytes.TrimSpace(r)
		if len(r) > 0 { tok = append(tok, r) }
	}
	return tok
}

func (t *textReader) Columns() int {
	if len(t.fields) == 0 { return 0 }
	return len(t.fields[0])
}

func (t *textReader) Lines() int { return len(t.fields) }

func (t *textReader) ReadFloat64s(columns []int) ([][]float64, error) {
	out := make([][]float64, len(columns))
	for i := range out { out[i] = make([]float64, len(t.fields)) }

	for j, tok := range t.fields {
		for i, c := range columns {
			if c < 0 || c >= len(tok) {
				return nil, fmt.Errorf("line %d has %d columns, but column "+
					"%d was requested", t.lineNo[j], len(tok), c)
			}
			x, err := strconv.ParseFloat(string(tok[c]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: '%s' is not a "+
					"number", t.lineNo[j], c, tok[c])
			}
			out[i][j] = x
		}
	}

	return out, nil
}

func (t *textReader) ReadInts(columns []int) ([][]int, error) {
	out := make([][]int, len(columns))
	for i := range out { out[i] = make([]int, len(t.fields)) }

	for j, tok := range t.fields {
		for i, c := range columns {
			if c < 0 || c >= len(tok) {
				return nil, fmt.Errorf("line %d has %d columns, but column "+
					"%d was requested", t.lineNo[j], len(tok), c)
			}
			x, err := strconv.Atoi(string(tok[c]))
			if err != nil {
				// Catalogues written by other codes often store integer
				// columns as floats, e.g. "3.0".
				f, ferr := strconv.ParseFloat(string(tok[c]), 64)
				if ferr != nil || f != float64(int(f)) {
					return nil, fmt.Errorf("line %d, column %d: '%s' is not "+
						"an integer", t.lineNo[j], c, tok[c])
				}
				x = int(f)
			}
			out[i][j] = x
		}
	}

	return out, nil
}

func (t *textReader) Rows() ([][]float64, error) {
	out := make([][]float64, len(t.fields))
	for j, tok := range t.fields {
		out[j] = make([]float64, len(tok))
		for i := range tok {
			x, err := strconv.ParseFloat(string(tok[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %d: '%s' is not a "+
					"number", t.lineNo[j], i, tok[i])
			}
			out[j][i] = x
		}
	}
	return out, nil
}
