// Package vectorizer maps text to fixed-length numeric vectors. The same
// Vectorizer encodes chunks at ingestion time and queries at chat time.
package vectorizer

import (
	"context"
	"encoding/binary"
	"hash/fnv"
)

// Dimensions is the vector length used across the system.
const Dimensions = 1536

// Vectorizer turns text into a vector of Dimensions() components.
// Implementations must be deterministic for identical input and must accept
// the empty string.
type Vectorizer interface {
	Vectorize(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// HashVectorizer is a deterministic placeholder embedding. Component i is
// derived from a hash of the text mixed with i, scaled into [0, 1).
type HashVectorizer struct {
	dims int
}

var _ Vectorizer = (*HashVectorizer)(nil)

// NewHashVectorizer returns a HashVectorizer of the given size, or of
// Dimensions when dims is not positive.
func NewHashVectorizer(dims int) *HashVectorizer {
	if dims <= 0 {
		dims = Dimensions
	}
	return &HashVectorizer{dims: dims}
}

func (h *HashVectorizer) Dimensions() int { return h.dims }

// Vectorize never fails; the error return satisfies Vectorizer.
func (h *HashVectorizer) Vectorize(_ context.Context, text string) ([]float32, error) {
	return h.Vector(text), nil
}

// Vector computes the vector without a context.
func (h *HashVectorizer) Vector(text string) []float32 {
	seed := fnv.New64a()
	seed.Write([]byte(text))
	base := seed.Sum64()

	var idx [8]byte
	vec := make([]float32, h.dims)
	for i := range vec {
		binary.LittleEndian.PutUint64(idx[:], uint64(i))
		d := fnv.New64a()
		d.Write(idx[:])
		x := mix64(base ^ d.Sum64())
		// Top 24 bits fit the float32 mantissa exactly, so the value stays below 1.
		vec[i] = float32(x>>40) / (1 << 24)
	}
	return vec
}

// mix64 is the splitmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
