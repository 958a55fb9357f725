// Package hacoo implements the hash-bucketed sparse tensor storage engine:
// an open-hash table over ALTO-packed linear indices with contiguous
// bucket vectors, incremental insertion, and adaptive rehash-on-load.
//
// Grounded on original_source/hacoo.cpp (hacoo_set/hacoo_get/hacoo_rehash/
// hacoo_compute_params/hacoo_bucket_index), ported from its Morton-coded
// bucket key to the ALTO-packed key spec.md mandates (§9 open question
// 3), and from its linked bucket chain to the contiguous bucket.Vector
// spec.md §4.3/§9 specifies as the correct target.
package hacoo

import (
	"errors"
	"fmt"
	"math"

	"github.com/pngwen/hacoo-go/alto"
	"github.com/pngwen/hacoo-go/bucket"
)

const (
	// minBuckets is the power-of-two floor nbuckets never shrinks below,
	// matching original_source/hacoo.cpp's MIN_BUCKETS.
	minBuckets = 128
	// defaultLoadPct is the default load factor percentage, matching
	// original_source/hacoo.cpp's LOAD.
	defaultLoadPct = 70
)

// ErrDimMismatch is returned when a coordinate's length does not match
// the tensor's number of modes.
var ErrDimMismatch = errors.New("hacoo: coordinate length mismatch")

// ErrAllocFailed models the transactional-rehash allocation-failure path
// of spec.md §4.4/§7. Go's allocator does not return recoverable OOM
// errors, so this is raised only when growth would exceed MaxBuckets (an
// optional guard useful for tests and resource-constrained callers); by
// default MaxBuckets is 0 (unbounded) and this error is never produced.
var ErrAllocFailed = errors.New("hacoo: allocation failed")

// entry is a single nonzero: its ALTO-packed linear index and value.
type entry struct {
	packed uint64
	value  float64
}

// Packed is an ALTO-packed linear index: a bijective encoding of a
// coordinate into a single machine word (package alto).
type Packed = uint64

// Tensor is a hash-indexed sparse tensor over ALTO-packed coordinates.
// Mode masks and dims are fixed at construction (New) and never mutated
// afterward, per spec.md §3's Lifecycle invariant.
type Tensor struct {
	dims     []uint32
	masks    []uint64
	altoMask uint64

	buckets    []bucket.Vector[entry]
	nbuckets   int
	nnz        int
	loadPct    int
	sx, sy, sz uint

	packOrder alto.PackOrder
	modeOrder alto.ModeOrder

	// MaxBuckets caps rehash growth; 0 means unbounded. Exposed only to
	// exercise the transactional-failure path deterministically in tests.
	MaxBuckets int
}

// Option configures a Tensor at construction time.
type Option func(*Tensor)

// WithLoadPct overrides the default load-factor percentage (70) at which
// a completed Set triggers a rehash.
func WithLoadPct(pct int) Option {
	return func(t *Tensor) { t.loadPct = pct }
}

// WithInitialBuckets overrides the default minimum bucket count (128).
// The value is rounded up to the next power of two.
func WithInitialBuckets(n int) Option {
	return func(t *Tensor) { t.nbuckets = nextPow2(max(n, 1)) }
}

// WithPackOrder/WithModeOrder select the ALTO dilation parameters; the
// defaults (LSBFirst, ShortFirst) match spec.md's scenario S1.
func WithPackOrder(po alto.PackOrder) Option { return func(t *Tensor) { t.packOrder = po } }
func WithModeOrder(mo alto.ModeOrder) Option { return func(t *Tensor) { t.modeOrder = mo } }

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// New allocates a Tensor over the given per-mode dimension sizes. ALTO
// mode masks are computed once here and never change afterward.
func New(dims []uint32, opts ...Option) (*Tensor, error) {
	t := &Tensor{
		dims:       append([]uint32(nil), dims...),
		nbuckets:   minBuckets,
		loadPct:    defaultLoadPct,
		packOrder:  alto.LSBFirst,
		modeOrder:  alto.ShortFirst,
		MaxBuckets: 0,
	}
	for _, opt := range opts {
		opt(t)
	}

	masks, altoMask, err := alto.BuildMasks(dims, t.packOrder, t.modeOrder)
	if err != nil {
		return nil, fmt.Errorf("hacoo: new: %w", err)
	}
	t.masks = masks
	t.altoMask = altoMask
	t.buckets = newBucketSlice(t.nbuckets)
	t.computeHashParams()

	return t, nil
}

func newBucketSlice(n int) []bucket.Vector[entry] {
	b := make([]bucket.Vector[entry], n)
	for i := range b {
		b[i] = bucket.New[entry]()
	}
	return b
}

// computeHashParams derives (sx, sy, sz) from nbuckets, per spec.md
// §4.4's hash formula, matching original_source/hacoo.cpp's
// hacoo_compute_params.
func (t *Tensor) computeHashParams() {
	bitsF := math.Ceil(math.Log2(float64(t.nbuckets)))
	sxi := int(math.Ceil(bitsF/8)) - 1
	syi := 4*sxi - 1
	if syi < 1 {
		syi = 1
	}
	szi := int(math.Ceil(bitsF / 2))

	t.sx, t.sy, t.sz = uint(sxi), uint(syi), uint(szi)
}

func (t *Tensor) hash(packed uint64) int {
	h := packed
	h = h + (h << t.sx)
	h = h ^ (h >> t.sy)
	h = h + (h << t.sz)
	return int(h % uint64(t.nbuckets))
}

// NumModes returns the number of modes (dimensions) of the tensor.
func (t *Tensor) NumModes() int { return len(t.dims) }

// Dims returns the per-mode dimension sizes.
func (t *Tensor) Dims() []uint32 { return t.dims }

// NNZ returns the current number of stored nonzeros.
func (t *Tensor) NNZ() int { return t.nnz }

// NumBuckets returns the current bucket count.
func (t *Tensor) NumBuckets() int { return t.nbuckets }

// Masks returns the per-mode ALTO masks (read-only; never mutated after
// New).
func (t *Tensor) Masks() []uint64 { return t.masks }

func (t *Tensor) checkCoord(coord []uint32) error {
	if len(coord) != len(t.dims) {
		return fmt.Errorf("%w: got %d indices, want %d", ErrDimMismatch, len(coord), len(t.dims))
	}
	return nil
}

// Set stores value at coord, overwriting any existing entry, and
// triggers a rehash if the post-insert load ratio exceeds loadPct.
func (t *Tensor) Set(coord []uint32, value float64) error {
	if err := t.checkCoord(coord); err != nil {
		return err
	}
	packed := alto.Pack(coord, t.masks)
	return t.setPacked(packed, value)
}

func (t *Tensor) setPacked(packed uint64, value float64) error {
	slot := t.hash(packed)
	vec := &t.buckets[slot]

	for i := 0; i < vec.Len(); i++ {
		e := vec.At(i)
		if e.packed == packed {
			e.value = value
			return nil
		}
	}

	vec.Append(entry{packed: packed, value: value})
	t.nnz++

	if t.nbuckets > 0 && (t.nnz*100) > t.loadPct*t.nbuckets {
		if err := t.rehash(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the value stored at coord, or 0.0 if unset.
func (t *Tensor) Get(coord []uint32) (float64, error) {
	if err := t.checkCoord(coord); err != nil {
		return 0, err
	}
	packed := alto.Pack(coord, t.masks)
	slot := t.hash(packed)
	vec := &t.buckets[slot]
	for i := 0; i < vec.Len(); i++ {
		if e := vec.At(i); e.packed == packed {
			return e.value, nil
		}
	}
	return 0.0, nil
}

// GetPacked looks up a value directly by its already-packed linear
// index, bypassing coordinate packing, for callers that already hold a
// packed index (for example one passed to an Iterate callback).
func (t *Tensor) GetPacked(packed uint64) float64 {
	slot := t.hash(packed)
	vec := &t.buckets[slot]
	for i := 0; i < vec.Len(); i++ {
		if e := vec.At(i); e.packed == packed {
			return e.value
		}
	}
	return 0.0
}

// Iterate visits every (packed index, value) pair exactly once, in
// unspecified order (slot-then-append order within a single caller, per
// spec.md §5). f returning false stops iteration early.
func (t *Tensor) Iterate(f func(packed uint64, value float64) bool) {
	for b := range t.buckets {
		vec := &t.buckets[b]
		for i := 0; i < vec.Len(); i++ {
			e := vec.At(i)
			if !f(e.packed, e.value) {
				return
			}
		}
	}
}

// Buckets exposes read-only access to the bucket slots for callers that
// need static, contiguous-chunk partitioning (the MTTKRP parallel
// design of spec.md §4.5 partitions by bucket slot, not by nonzero).
func (t *Tensor) Buckets() []bucket.Vector[entry] { return t.buckets }

// EntryAt returns the packed index and value of the i-th entry within
// bucket slot.
func EntryAt(vec *bucket.Vector[entry], i int) (packed uint64, value float64) {
	e := vec.At(i)
	return e.packed, e.value
}

// rehash doubles the bucket count and reinserts every entry under newly
// computed hash parameters. It is transactional per spec.md §4.4/§9: the
// new bucket slice is fully built before any field on the receiver is
// mutated, so a failure (modeled via MaxBuckets) leaves t untouched.
func (t *Tensor) rehash() error {
	newCount := t.nbuckets * 2
	if t.MaxBuckets > 0 && newCount > t.MaxBuckets {
		return fmt.Errorf("%w: rehash would grow to %d buckets, max is %d", ErrAllocFailed, newCount, t.MaxBuckets)
	}

	shadow := &Tensor{
		dims:       t.dims,
		masks:      t.masks,
		altoMask:   t.altoMask,
		nbuckets:   newCount,
		loadPct:    t.loadPct,
		MaxBuckets: t.MaxBuckets,
	}
	shadow.computeHashParams()
	shadow.buckets = newBucketSlice(shadow.nbuckets)

	nnz := 0
	for b := range t.buckets {
		vec := &t.buckets[b]
		for i := 0; i < vec.Len(); i++ {
			e := vec.At(i)
			slot := shadow.hash(e.packed)
			shadow.buckets[slot].Append(*e)
			nnz++
		}
	}
	shadow.nnz = nnz

	if shadow.nnz != t.nnz {
		return fmt.Errorf("hacoo: rehash copied %d entries, want %d", shadow.nnz, t.nnz)
	}

	// Swap in the new state atomically; the old buckets slice becomes
	// garbage once unreferenced (no manual free needed in Go).
	t.buckets = shadow.buckets
	t.nbuckets = shadow.nbuckets
	t.nnz = shadow.nnz
	t.sx, t.sy, t.sz = shadow.sx, shadow.sy, shadow.sz

	return nil
}

// Frobenius returns the Frobenius norm of the tensor's nonzero values:
// sqrt(sum of v^2), matching original_source/hacoo.cpp's frobenius_norm.
func (t *Tensor) Frobenius() float64 {
	var sum float64
	t.Iterate(func(_ uint64, v float64) bool {
		sum += v * v
		return true
	})
	return math.Sqrt(sum)
}
