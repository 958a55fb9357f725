// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bitops provides the bit deposit/extract primitives the ALTO
// packer builds its coordinate<->word bijection on top of.
//
// Deposit scatters the low popcount(mask) bits of src into the bit
// positions set in mask, in ascending position order. Extract is its
// inverse: it gathers the bits of src at the positions set in mask into
// the low popcount(mask) bits of the result.
//
// No hardware PDEP/PEXT instruction is used; math/bits does not expose
// one, so this is the portable software fallback. For any v below
// 2^PopCount(mask), Extract(Deposit(v, mask), mask) == v.
package bitops

import "math/bits"

// Deposit scatters the low PopCount(mask) bits of src into the bit
// positions named by mask, in ascending position order.
func Deposit(src, mask uint64) uint64 {
	var result uint64
	for m := mask; m != 0; {
		bit := m & -m // lowest set bit of remaining mask
		if src&1 != 0 {
			result |= bit
		}
		src >>= 1
		m &^= bit
	}
	return result
}

// Extract gathers the bits of src at the positions named by mask into the
// low PopCount(mask) bits of the result, in ascending position order.
func Extract(src, mask uint64) uint64 {
	var result uint64
	var pos uint
	for m := mask; m != 0; {
		bit := m & -m
		if src&bit != 0 {
			result |= 1 << pos
		}
		pos++
		m &^= bit
	}
	return result
}

// PopCount returns the number of set bits in v.
func PopCount(v uint64) int {
	return bits.OnesCount64(v)
}
