package checkpoint

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/covint/lib/catio"
	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/integrals"
)

func filled(b int, full, rr, jk bool) *integrals.Integrals {
	acc := integrals.New(b, full, rr, jk)
	for k, x := range arrays(acc) {
		for i := range x { x[i] = float64(k*100 + i) + 0.25 }
	}
	acc.Cnt2, acc.Cnt3, acc.Cnt4 = 10, 20, 30
	return acc
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	acc := filled(3, false, true, true)
	hd := FixedWidthHeader{
		RunID: uuid.New(), Fields: [4]int64{ 1, 2, 2, 1 }, NBin: 3, MBin: 1,
		Flags: Final,
	}

	for _, order := range []binary.ByteOrder{
		binary.LittleEndian, binary.BigEndian,
	} {
		fname := filepath.Join(dir, "snap.ckpt.zst")
		require.NoError(t, writeSnapshot(fname, hd, integrals.Binned, acc, order))

		s, err := ReadSnapshot(fname)
		require.NoError(t, err)
		require.Equal(t, hd.RunID, s.RunID)
		require.Equal(t, fields.Fields{I1: 1, I2: 2, I3: 2, I4: 1}, s.FieldSet())
		require.Equal(t, integrals.Binned, s.Variant)
		require.Equal(t, Final|HasRR|HasJackknife, s.Flags)
		require.Equal(t, acc, s.Acc)
	}
}

func TestReadSnapshotErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ckpt.zst")
	require.NoError(t, os.WriteFile(bad, []byte("not a snapshot at all"), 0644))
	_, err := ReadSnapshot(bad)
	require.Error(t, err)

	future := filepath.Join(dir, "future.ckpt.zst")
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], MagicNumber)
	binary.LittleEndian.PutUint32(b[4:8], Version + 1)
	require.NoError(t, os.WriteFile(future, b, 0644))
	_, err = ReadSnapshot(future)
	require.Error(t, err)

	_, err = ReadSnapshot(filepath.Join(dir, "missing.ckpt.zst"))
	require.Error(t, err)
}

func readRows(t *testing.T, path string) [][]float64 {
	rd, err := catio.TextFile(path)
	require.NoError(t, err)
	rows, err := rd.Rows()
	require.NoError(t, err)
	return rows
}

func TestDirWriter(t *testing.T) {
	out := t.TempDir()
	f := fields.Fields{I1: 1, I2: 2, I3: 1, I4: 1}
	w, err := NewDirWriter(out, f, 2, 1, integrals.Binned, uuid.New())
	require.NoError(t, err)

	acc := filled(2, false, true, true)
	require.NoError(t, w.Save("0", acc, false))
	require.NoError(t, w.Save("full", acc, true))
	require.NoError(t, w.SaveCounts(integrals.Counts{
		Pairs: 4, Triples: 5, Quads: 6,
		Attempted: [3]uint64{ 7, 8, 9 }, Used: [3]uint64{ 1, 2, 3 },
	}))

	all := filepath.Join(out, AllDir)
	require.Equal(t, [][]float64{ { 0.25, 0 }, { 0, 1.25 } },
		readRows(t, filepath.Join(all, "c2_n2_m1_12_0.txt")))
	require.Equal(t, [][]float64{ { 100.25, 101.25 }, { 102.25, 103.25 } },
		readRows(t, filepath.Join(all, "c3_n2_m1_2,11_full.txt")))
	require.Equal(t, [][]float64{ { 200.25, 201.25 }, { 202.25, 203.25 } },
		readRows(t, filepath.Join(all, "c4_n2_m1_12,11_full.txt")))
	require.Equal(t, [][]float64{ { 300.25 }, { 301.25 } },
		readRows(t, filepath.Join(all, "RR1_n2_m1_12_full.txt")))
	require.Equal(t, [][]float64{ { 700.25, 701.25 }, { 702.25, 703.25 } },
		readRows(t, filepath.Join(out, JackDir, "c4_n2_m1_12,11_0.txt")))
	require.Equal(t, [][]float64{ { 4 }, { 5 }, { 6 }, { 7, 1 }, { 8, 2 }, { 9, 3 } },
		readRows(t, filepath.Join(all, "total_counts_n2_m1_12,11.txt")))

	_, err = os.Stat(filepath.Join(all, "RR1_n2_m1_12_0.txt"))
	require.True(t, os.IsNotExist(err))

	s, err := ReadSnapshot(filepath.Join(all, SnapshotName("n2_m1", f, "0")))
	require.NoError(t, err)
	require.Equal(t, acc, s.Acc)
	require.Zero(t, s.Flags & Final)
}

func TestLabel(t *testing.T) {
	require.Equal(t, "n25_m10", Label(integrals.Binned, 25, 10))
	require.Equal(t, "n25_l4", Label(integrals.Legendre, 25, 3))

	w, err := NewDirWriter(t.TempDir(), fields.Single, 2, 2, integrals.Power,
		uuid.New())
	require.NoError(t, err)
	require.Equal(t, PowerDir, filepath.Base(w.dir(false)))
}

func TestFullC2(t *testing.T) {
	out := t.TempDir()
	w, err := NewDirWriter(out, fields.Single, 1, 2, integrals.Legendre,
		uuid.New())
	require.NoError(t, err)

	acc := filled(2, true, false, false)
	require.Len(t, acc.C2, 4)
	require.NoError(t, w.Save("full", acc, true))

	all := filepath.Join(out, AllDir)
	require.Equal(t, [][]float64{ { 0.25, 1.25 }, { 2.25, 3.25 } },
		readRows(t, filepath.Join(all, "c2_n1_l2_11_full.txt")))

	s, err := ReadSnapshot(filepath.Join(all,
		SnapshotName("n1_l2", fields.Single, "full")))
	require.NoError(t, err)
	require.Equal(t, Final|HasFullC2, s.Flags)
	require.Equal(t, acc, s.Acc)
}
