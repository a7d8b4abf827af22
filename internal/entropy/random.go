// Package entropy supplies fresh game seeds from crypto/rand. It is the only
// place in the module that uses an unseeded source; everything downstream of
// a seed is deterministic.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
)

var adjectives = []string{
	"amber", "brisk", "dappled", "dusky", "feral", "gilded", "hollow", "mossy",
	"quiet", "russet", "silver", "sodden", "tangled", "thorny", "wild", "woven",
}

var nouns = []string{
	"acorn", "bramble", "burrow", "clover", "fern", "glade", "hazel", "lichen",
	"marsh", "nettle", "reed", "root", "sedge", "thicket", "warren", "willow",
}

// NewSeed returns a readable random seed such as "mossy-fern-4821".
// A failing system source degrades to a fixed-looking but valid seed.
func NewSeed() string {
	s, err := NewSeedFrom(rand.Reader)
	if err != nil {
		return "brood-0000"
	}
	return s
}

// NewSeedFrom builds a seed from r. Tests pass a deterministic reader.
func NewSeedFrom(r io.Reader) (string, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return "", fmt.Errorf("read entropy: %w", err)
	}
	n := binary.LittleEndian.Uint64(buf[:])
	adj := adjectives[n%uint64(len(adjectives))]
	n /= uint64(len(adjectives))
	noun := nouns[n%uint64(len(nouns))]
	n /= uint64(len(nouns))
	return fmt.Sprintf("%s-%s-%04d", adj, noun, n%10000), nil
}

// NewPickSeed returns a non-negative int64 seed for casual generators.
func NewPickSeed() int64 {
	n, err := NewPickSeedFrom(rand.Reader)
	if err != nil {
		return 1
	}
	return n
}

// NewPickSeedFrom reads a non-negative int64 seed from r.
func NewPickSeedFrom(r io.Reader) (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("read entropy: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1), nil
}
