/*package rng provides the random number streams used by covint's workers. Each
worker owns one Stream, seeded from a single process-wide seed and the worker
index, so that a run is reproducible for a fixed seed and worker count.*/
package rng

import (
	"crypto/rand"
	"encoding/binary"

	"gonum.org/v1/gonum/mathext/prng"
)

// Stream is a 32-bit Mersenne Twister generator. It is not thread safe.
type Stream struct {
	src *prng.MT19937
}

// New creates a Stream for the given worker. The generator is initialized
// from the key (seed, worker), which keeps all 64 bits of the seed, so that
// no two (seed, worker) combinations share a stream.
func New(seed uint64, worker int) *Stream {
	src := prng.NewMT19937()
	src.SeedFromKeys([]uint32{
		uint32(seed), uint32(seed >> 32), uint32(worker),
	})
	return &Stream{ src }
}

// Uniform returns a random number in the range [0, 1).
func (s *Stream) Uniform() float64 {
	return float64(s.src.Uint32()) / (1 << 32)
}

// Intn returns a random integer in the range [0, n). n must be positive.
func (s *Stream) Intn(n int) int {
	i := int(s.Uniform() * float64(n))
	if i >= n { i = n - 1 }
	return i
}

// Seed returns a non-zero process-wide seed drawn from the operating system's
// entropy source.
func Seed() uint64 {
	b := [8]byte{}
	for {
		if _, err := rand.Read(b[:]); err != nil {
			panic(err.Error())
		}
		s := binary.LittleEndian.Uint64(b[:])
		if s != 0 { return s }
	}
}
