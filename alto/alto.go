// Package alto builds the bit-interleaved (ALTO-style) linear index that
// HaCOO hashes on: a bijection between an N-dimensional coordinate and a
// single 64-bit packed word, where each mode's bits occupy predetermined,
// pairwise-disjoint positions.
package alto

import (
	"errors"
	"fmt"
	"math/bits"
	"sort"

	"github.com/pngwen/hacoo-go/bitops"
)

// PackOrder selects which end of the word bit 0 of the dilation walk
// starts from.
type PackOrder int

const (
	LSBFirst PackOrder = iota
	MSBFirst
)

// ModeOrder selects how modes are ordered within each dilation level.
type ModeOrder int

const (
	ShortFirst ModeOrder = iota
	LongFirst
	Natural
)

// ErrWidthOverflow is returned when a tensor's total packed width would
// exceed 64 bits.
var ErrWidthOverflow = errors.New("alto: total packed width exceeds 64 bits")

// ErrTooManyModes is returned when no mode would fit any bits at all
// (a degenerate N=0 tensor, or dims producing zero total width).
var ErrTooManyModes = errors.New("alto: no mode bits to pack")

// modeBits pairs a mode index with its required bit width, mirroring
// original_source/alto.cpp's struct MPair.
type modeBits struct {
	mode int
	bits int
}

// bitsNeeded returns b_k = ceil(log2(max(2, dim))), the minimum number of
// bits needed to represent every coordinate in [0, dim) for dim>1, with a
// floor of 1 bit per spec.md §3's mask invariant.
func bitsNeeded(dim uint32) int {
	d := dim
	if d < 2 {
		d = 2
	}
	// ceil(log2(d)) = bit length of (d-1), with a minimum of 1.
	n := bits.Len32(d - 1)
	if n < 1 {
		n = 1
	}
	return n
}

// BuildMasks computes one 64-bit mode mask per dimension via the
// dilation-and-shifting algorithm of spec.md §4.2, grounded on
// original_source/alto.cpp's alto_setup. It returns the per-mode masks,
// the union of all masks (alto_mask), and an error if the total width
// would overflow a 64-bit word.
func BuildMasks(dims []uint32, po PackOrder, mo ModeOrder) (masks []uint64, altoMask uint64, err error) {
	nmode := len(dims)
	if nmode == 0 {
		return nil, 0, ErrTooManyModes
	}

	working := make([]modeBits, nmode)
	totalBits := 0
	maxBits := 0
	for n, d := range dims {
		b := bitsNeeded(d)
		working[n] = modeBits{mode: n, bits: b}
		totalBits += b
		if b > maxBits {
			maxBits = b
		}
	}

	if totalBits > 64 {
		return nil, 0, fmt.Errorf("%w: got %d bits for %d modes", ErrWidthOverflow, totalBits, nmode)
	}

	switch mo {
	case ShortFirst:
		sort.SliceStable(working, func(i, j int) bool { return working[i].bits < working[j].bits })
	case LongFirst:
		sort.SliceStable(working, func(i, j int) bool { return working[i].bits > working[j].bits })
	case Natural:
		// identity order, nothing to do
	}

	shift := 0
	inc := 1
	if po == MSBFirst {
		shift = totalBits - 1
		inc = -1
	}

	out := make([]uint64, nmode)
	level := 0
	for {
		wrote := false
		for _, mb := range working {
			if level < mb.bits {
				out[mb.mode] |= uint64(1) << uint(shift)
				shift += inc
				wrote = true
			}
		}
		level++
		if !wrote {
			break
		}
	}

	if level != maxBits+1 {
		return nil, 0, fmt.Errorf("alto: dilation terminated at level %d, want %d", level, maxBits+1)
	}
	wantShift := totalBits
	if po == MSBFirst {
		wantShift = -1
	}
	if shift != wantShift {
		return nil, 0, fmt.Errorf("alto: dilation ended at shift %d, want %d", shift, wantShift)
	}

	for _, m := range out {
		altoMask |= m
	}

	return out, altoMask, nil
}

// Pack encodes a coordinate into a single packed word using the given
// per-mode masks: pack(coord) = OR_k deposit(coord[k], masks[k]).
func Pack(coord []uint32, masks []uint64) uint64 {
	var word uint64
	for k, m := range masks {
		word |= bitops.Deposit(uint64(coord[k]), m)
	}
	return word
}

// Unpack decodes a packed word back into a coordinate: coord[k] =
// extract(packed, masks[k]). dst must have length len(masks); if dst is
// nil a new slice is allocated.
func Unpack(packed uint64, masks []uint64, dst []uint32) []uint32 {
	if dst == nil {
		dst = make([]uint32, len(masks))
	}
	for k, m := range masks {
		dst[k] = uint32(bitops.Extract(packed, m))
	}
	return dst
}
