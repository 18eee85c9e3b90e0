package checkpoint

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/integrals"
)

// Directories written to under the output directory.
const (
	AllDir   = "CovMatricesAll"
	JackDir  = "CovMatricesJack"
	PowerDir = "PowerCovMatrices"
)

// Writer persists integrals. name identifies the save, e.g. a loop number or
// "full", and final marks the last save of a run.
type Writer interface {
	Save(name string, acc *integrals.Integrals, final bool) error
	SaveCounts(c integrals.Counts) error
}

// DirWriter writes integrals to an output directory.
type DirWriter struct {
	OutDir     string
	Fields     fields.Fields
	NBin, MBin int
	Variant    string
	RunID      uuid.UUID
}

// NewDirWriter creates a DirWriter and the directories it writes to.
func NewDirWriter(
	outDir string, f fields.Fields, nBin, mBin int, variant string,
	runID uuid.UUID,
) (*DirWriter, error) {
	w := &DirWriter{ outDir, f, nBin, mBin, variant, runID }
	for _, dir := range []string{ w.dir(false), w.dir(true) } {
		if err := os.MkdirAll(dir, 0755); err != nil { return nil, err }
	}
	return w, nil
}

func (w *DirWriter) dir(jackknife bool) string {
	switch {
	case jackknife: return filepath.Join(w.OutDir, JackDir)
	case w.Variant == integrals.Power: return filepath.Join(w.OutDir, PowerDir)
	default: return filepath.Join(w.OutDir, AllDir)
	}
}

// Label returns the part of the file names that describes the binning. The
// multipole variants are labelled by their highest multipole.
func Label(variant string, nBin, mBin int) string {
	if variant == integrals.Binned {
		return fmt.Sprintf("n%d_m%d", nBin, mBin)
	}
	return fmt.Sprintf("n%d_l%d", nBin, 2*(mBin - 1))
}

// MatrixNames returns the names of the C2, C3, and C4 text files written for
// a save.
func MatrixNames(label string, f fields.Fields, name string) (c2, c3, c4 string) {
	return fmt.Sprintf("c2_%s_%s_%s.txt", label, f.Tag12(), name),
		fmt.Sprintf("c3_%s_%s_%s.txt", label, f.Tag3(), name),
		fmt.Sprintf("c4_%s_%s_%s.txt", label, f.Tag4(), name)
}

// SnapshotName returns the name of the snapshot file written for a save.
func SnapshotName(label string, f fields.Fields, name string) string {
	return fmt.Sprintf("snapshot_%s_%s_%s.ckpt.zst", label, f.Tag4(), name)
}

// Save writes the C2, C3, and C4 matrices and a snapshot of acc. C2 is
// always written as a square matrix, padding a diagonal C2 with zeros.
// Jackknife matrices go to their own directory. RR counts are only written
// for the final save.
func (w *DirWriter) Save(name string, acc *integrals.Integrals, final bool) error {
	label := Label(w.Variant, w.NBin, w.MBin)
	c2, c3, c4 := MatrixNames(label, w.Fields, name)

	type output struct {
		dir, fname string
		x          []float64
		diag       bool
	}
	outputs := []output{
		{ w.dir(false), c2, acc.C2, !acc.FullC2 },
		{ w.dir(false), c3, acc.C3, false },
		{ w.dir(false), c4, acc.C4, false },
	}
	if acc.Jackknife() {
		outputs = append(outputs,
			output{ w.dir(true), c2, acc.C2j, !acc.FullC2 },
			output{ w.dir(true), c3, acc.C3j, false },
			output{ w.dir(true), c4, acc.C4j, false },
		)
	}
	if final && acc.RR1 != nil {
		tag := w.Fields.Tag12()
		outputs = append(outputs,
			output{ w.dir(false), fmt.Sprintf("RR1_%s_%s_%s.txt",
				label, tag, name), acc.RR1, false },
			output{ w.dir(false), fmt.Sprintf("RR2_%s_%s_%s.txt",
				label, tag, name), acc.RR2, false },
		)
	}

	for _, out := range outputs {
		path := filepath.Join(out.dir, out.fname)
		var err error
		if out.diag {
			err = writeDiagonal(path, out.x)
		} else if len(out.x) == acc.B {
			err = WriteMatrix(path, out.x, len(out.x), 1)
		} else {
			err = WriteMatrix(path, out.x, acc.B, acc.B)
		}
		if err != nil { return err }
	}

	hd := FixedWidthHeader{
		RunID: w.RunID,
		Fields: [4]int64{ int64(w.Fields.I1), int64(w.Fields.I2),
			int64(w.Fields.I3), int64(w.Fields.I4) },
		NBin: int64(w.NBin), MBin: int64(w.MBin),
	}
	if final { hd.Flags |= Final }
	snap := filepath.Join(w.dir(false), SnapshotName(label, w.Fields, name))
	return writeSnapshot(snap, hd, w.Variant, acc, binary.LittleEndian)
}

// SaveCounts writes the number of particle pairs, triples, and quads
// sampled, followed by the attempted and used cell counts at each level.
func (w *DirWriter) SaveCounts(c integrals.Counts) error {
	label := Label(w.Variant, w.NBin, w.MBin)
	path := filepath.Join(w.dir(false), fmt.Sprintf("total_counts_%s_%s.txt",
		label, w.Fields.Tag4()))

	f, err := os.Create(path)
	if err != nil { return err }
	defer f.Close()

	bw := bufio.NewWriter(f)
	fmt.Fprintf(bw, "%d\n%d\n%d\n", c.Pairs, c.Triples, c.Quads)
	for i := range c.Attempted {
		fmt.Fprintf(bw, "%d %d\n", c.Attempted[i], c.Used[i])
	}
	if err := bw.Flush(); err != nil { return err }
	return f.Close()
}

// WriteMatrix writes the row-major rows x cols matrix x as text.
func WriteMatrix(path string, x []float64, rows, cols int) error {
	f, err := os.Create(path)
	if err != nil { return err }
	defer f.Close()

	bw := bufio.NewWriter(f)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if j > 0 { bw.WriteByte(' ') }
			fmt.Fprintf(bw, "%.10e", x[i*cols + j])
		}
		bw.WriteByte('\n')
	}
	if err := bw.Flush(); err != nil { return err }
	return f.Close()
}

// writeDiagonal writes x as the diagonal of a square matrix.
func writeDiagonal(path string, x []float64) error {
	n := len(x)
	m := make([]float64, n*n)
	for i := range x { m[i*n + i] = x[i] }
	return WriteMatrix(path, m, n, n)
}
