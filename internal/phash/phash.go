package phash

import (
	"fmt"
	"image"
	"math/bits"
	"strconv"

	"github.com/corona10/goimagehash"
)

// Bits is the hash length.
const Bits = 64

// Hash is a 64-bit DCT perceptual hash.
type Hash uint64

// FromImage computes the perceptual hash of img.
func FromImage(img image.Image) (Hash, error) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return 0, fmt.Errorf("perceptual hash: %w", err)
	}
	return Hash(h.GetHash()), nil
}

// Parse reads a hash written by String.
func Parse(s string) (Hash, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("parse hash %q: %w", s, err)
	}
	return Hash(v), nil
}

// Distance returns the Hamming distance between a and b.
func Distance(a, b Hash) int {
	return bits.OnesCount64(uint64(a ^ b))
}

// String returns the hash as 16 hex digits.
func (h Hash) String() string {
	return fmt.Sprintf("%016x", uint64(h))
}

// Match is the result of a nearest-neighbour lookup.
type Match struct {
	Index    int
	Distance int
}

// Index answers nearest-hash queries over a fixed set of page hashes.
type Index struct {
	hashes      []Hash
	maxDistance int
}

// NewIndex builds an index. Matches farther than maxDistance are rejected.
func NewIndex(hashes []Hash, maxDistance int) *Index {
	return &Index{hashes: append([]Hash(nil), hashes...), maxDistance: maxDistance}
}

// Len returns the number of indexed hashes.
func (x *Index) Len() int {
	return len(x.hashes)
}

// MaxDistance returns the acceptance threshold.
func (x *Index) MaxDistance() int {
	return x.maxDistance
}

// Nearest returns the index with the smallest distance to h. Ties go to the
// lowest index. ok is false when the index is empty or the best distance
// exceeds the threshold.
func (x *Index) Nearest(h Hash) (Match, bool) {
	best := Match{Index: -1, Distance: Bits + 1}
	for i, candidate := range x.hashes {
		if d := Distance(h, candidate); d < best.Distance {
			best = Match{Index: i, Distance: d}
		}
	}
	if best.Index < 0 || best.Distance > x.maxDistance {
		return Match{Index: -1, Distance: best.Distance}, false
	}
	return best, true
}
