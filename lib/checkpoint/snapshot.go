/*package checkpoint writes covint's integrals to disk as they are computed and
reads them back.

Every save writes the integrals twice: once as plain-text matrices, in the
layout that covariance post-processing expects, and once as a compressed
binary snapshot which stores the raw accumulator exactly.

A snapshot consists of:
    uint32  MagicNumber
    uint32  Version
    FixedWidthHeader
    uint32  length of the variant name, followed by the name
    int64   length of the compressed block, followed by the block

The block is zstd-compressed and holds every array of the accumulator as
float64 values in the order C2, C3, C4, RR1, RR2, C2j, C3j, C4j, skipping
arrays which the header marks as absent. C2 and C2j hold B values, or B x B
values if the header has the HasFullC2 flag.*/
package checkpoint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/DataDog/zstd"
	"github.com/google/uuid"

	"github.com/phil-mansfield/covint/lib/fields"
	"github.com/phil-mansfield/covint/lib/integrals"
)

const (
	// MagicNumber is an arbitrary number at the start of all snapshots which
	// identifies when something else is read by accident.
	MagicNumber = 0xc0a1c0de
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0xdec0a1c0
	Version = 1

	zstdLevel = 3
)

// Flags stored in FixedWidthHeader.Flags.
const (
	HasRR uint32 = 1 << iota
	HasJackknife
	Final
	HasFullC2
)

// FixedWidthHeader is the fixed-size part of a snapshot header.
type FixedWidthHeader struct {
	// RunID identifies the run which wrote the snapshot. All snapshots from
	// one run share it.
	RunID uuid.UUID
	// Fields are the tracer fields of the four points.
	Fields [4]int64
	// NBin and MBin are the bin counts and B is the number of flat bins.
	NBin, MBin, B int64
	Flags uint32
	// Cnt holds the accumulator's Cnt2, Cnt3, and Cnt4.
	Cnt [3]uint64
}

// Snapshot is a decoded snapshot file.
type Snapshot struct {
	FixedWidthHeader
	Variant string
	Acc     *integrals.Integrals
}

// FieldSet returns the fields of the snapshot.
func (s *Snapshot) FieldSet() fields.Fields {
	return fields.Fields{
		I1: int(s.Fields[0]), I2: int(s.Fields[1]),
		I3: int(s.Fields[2]), I4: int(s.Fields[3]),
	}
}

// writeSnapshot writes acc to a snapshot file.
func writeSnapshot(
	fname string, hd FixedWidthHeader, variant string,
	acc *integrals.Integrals, order binary.ByteOrder,
) error {
	hd.B = int64(acc.B)
	hd.Cnt = [3]uint64{ acc.Cnt2, acc.Cnt3, acc.Cnt4 }
	if acc.RR1 != nil { hd.Flags |= HasRR }
	if acc.Jackknife() { hd.Flags |= HasJackknife }
	if acc.FullC2 { hd.Flags |= HasFullC2 }

	raw := &bytes.Buffer{ }
	for _, x := range arrays(acc) {
		if x == nil { continue }
		if err := binary.Write(raw, order, x); err != nil { return err }
	}
	block, err := zstd.CompressLevel(nil, raw.Bytes(), zstdLevel)
	if err != nil { return err }

	f, err := os.Create(fname)
	if err != nil { return err }
	defer f.Close()

	for _, x := range []interface{}{
		uint32(MagicNumber), uint32(Version), &hd, uint32(len(variant)),
	} {
		if err := binary.Write(f, order, x); err != nil { return err }
	}
	if _, err := f.Write([]byte(variant)); err != nil { return err }
	if err := binary.Write(f, order, int64(len(block))); err != nil {
		return err
	}
	if _, err := f.Write(block); err != nil { return err }

	return f.Close()
}

// ReadSnapshot reads a snapshot file.
func ReadSnapshot(fname string) (*Snapshot, error) {
	f, err := os.Open(fname)
	if err != nil { return nil, err }
	defer f.Close()

	order, err := checkFile(fname, f)
	if err != nil { return nil, err }

	s := &Snapshot{ }
	if err := binary.Read(f, order, &s.FixedWidthHeader); err != nil {
		return nil, fmt.Errorf("could not read header of %s: %w", fname, err)
	}

	var nVariant uint32
	if err := binary.Read(f, order, &nVariant); err != nil { return nil, err }
	b := make([]byte, nVariant)
	if _, err := io.ReadFull(f, b); err != nil { return nil, err }
	s.Variant = string(b)

	var nBlock int64
	if err := binary.Read(f, order, &nBlock); err != nil { return nil, err }
	block := make([]byte, nBlock)
	if _, err := io.ReadFull(f, block); err != nil { return nil, err }
	raw, err := zstd.Decompress(nil, block)
	if err != nil {
		return nil, fmt.Errorf("could not decompress %s: %w", fname, err)
	}

	s.Acc = integrals.New(int(s.B), s.Flags&HasFullC2 != 0,
		s.Flags&HasRR != 0, s.Flags&HasJackknife != 0)
	s.Acc.Cnt2, s.Acc.Cnt3, s.Acc.Cnt4 = s.Cnt[0], s.Cnt[1], s.Cnt[2]

	rd := bytes.NewReader(raw)
	for _, x := range arrays(s.Acc) {
		if x == nil { continue }
		if err := binary.Read(rd, order, x); err != nil {
			return nil, fmt.Errorf("%s is truncated: %w", fname, err)
		}
	}
	if rd.Len() != 0 {
		return nil, fmt.Errorf("%s has %d unread bytes", fname, rd.Len())
	}

	return s, nil
}

func arrays(acc *integrals.Integrals) [][]float64 {
	return [][]float64{
		acc.C2, acc.C3, acc.C4, acc.RR1, acc.RR2, acc.C2j, acc.C3j, acc.C4j,
	}
}

// checkFile reads the magic number and version of a snapshot and returns
// the byte order it was written in.
func checkFile(fname string, f io.Reader) (binary.ByteOrder, error) {
	var magicNumber, version uint32

	order := binary.ByteOrder(binary.LittleEndian)
	if err := binary.Read(f, order, &magicNumber); err != nil { return nil, err }

	switch magicNumber {
	case MagicNumber:
	case ReverseMagicNumber: order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%s is not a covint snapshot. All snapshots "+
			"begin with either the 32-bit integer %x or %x. This file "+
			"begins with %x.", fname, MagicNumber, ReverseMagicNumber,
			magicNumber)
	}

	if err := binary.Read(f, order, &version); err != nil { return nil, err }
	if version > Version {
		return nil, fmt.Errorf("%s was written by snapshot version %d, but "+
			"this version of covint only reads versions up to %d", fname,
			version, Version)
	}

	return order, nil
}
