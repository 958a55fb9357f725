// Package mttkrp implements the Matricized Tensor Times Khatri-Rao
// Product: the dominant arithmetic kernel of CPD-ALS. It contracts a
// HaCOO tensor against every factor matrix but one, producing the
// unfolded-mode result that feeds the next ALS solve.
//
// Grounded on original_source/mttkrp.c's mttkrp (index decode via
// hacoo_extract_index, per-nonzero scaling into the output rows),
// restructured into the per-nonzero rank-vector form spec.md §4.5
// specifies, and on the teacher's hwy/contrib/matmul/matmul_parallel.go
// for the parallel partitioning shape: contiguous bucket-slot chunks
// handed to a persistent workerpool.Pool, thread-local output
// privatization, and a second row-partitioned pass to merge.
package mttkrp

import (
	"errors"
	"fmt"

	"github.com/pngwen/hacoo-go/alto"
	"github.com/pngwen/hacoo-go/hacoo"
	"github.com/pngwen/hacoo-go/matrix"
	"github.com/pngwen/hacoo-go/workerpool"
)

// ErrDimMismatch is returned when the factor matrices do not match the
// tensor's dimensions or do not share a common rank.
var ErrDimMismatch = errors.New("mttkrp: dimension mismatch")

// ErrModeRange is returned when the target mode is outside [0, NumModes).
var ErrModeRange = errors.New("mttkrp: mode out of range")

// validate checks the MTTKRP precondition of spec.md §4.5: d_k matches
// U[k].rows for every k, and every U[k] shares the same rank R.
func validate(t *hacoo.Tensor, factors []*matrix.Matrix, mode int) (dn, numModes, rank int, err error) {
	numModes = t.NumModes()
	if mode < 0 || mode >= numModes {
		return 0, 0, 0, fmt.Errorf("%w: mode %d, have %d modes", ErrModeRange, mode, numModes)
	}
	if len(factors) != numModes {
		return 0, 0, 0, fmt.Errorf("%w: got %d factor matrices, want %d", ErrDimMismatch, len(factors), numModes)
	}

	rank = factors[0].Cols
	dims := t.Dims()
	for k, f := range factors {
		if f.Cols != rank {
			return 0, 0, 0, fmt.Errorf("%w: factor %d has %d columns, want %d", ErrDimMismatch, k, f.Cols, rank)
		}
		if f.Rows != int(dims[k]) {
			return 0, 0, 0, fmt.Errorf("%w: factor %d has %d rows, want %d", ErrDimMismatch, k, f.Rows, dims[k])
		}
	}
	return int(dims[mode]), numModes, rank, nil
}

// accumulateNonzero folds one (coord, value) pair into dst, adding
// v * product_{k != mode} U[k][coord[k], f] into dst.Row(coord[mode])
// for every rank column f. This is the length-R buffer fusion spec.md
// §4.5 step 2 describes, computed directly into the destination row
// rather than a separate scratch slice.
func accumulateNonzero(dst *matrix.Matrix, factors []*matrix.Matrix, mode, numModes int, coord []uint32, v float64) {
	row := dst.Row(int(coord[mode]))
	for f := range row {
		prod := v
		for k := 0; k < numModes; k++ {
			if k == mode {
				continue
			}
			prod *= factors[k].At(int(coord[k]), f)
		}
		row[f] += prod
	}
}

// ComputeSerial is the reference single-threaded implementation. It
// visits bucket slots in order 0..NumBuckets-1 and nonzeros within a
// slot in append order, giving a fixed, reproducible visitation order
// that the parallel path's T=1 case must match bit-for-bit (spec.md
// §4.5 "Serial variant").
func ComputeSerial(t *hacoo.Tensor, factors []*matrix.Matrix, mode int) (*matrix.Matrix, error) {
	dn, numModes, rank, err := validate(t, factors, mode)
	if err != nil {
		return nil, err
	}

	result := matrix.New(dn, rank)
	if dn == 0 {
		return result, nil
	}

	masks := t.Masks()
	coord := make([]uint32, numModes)
	buckets := t.Buckets()
	for b := range buckets {
		vec := &buckets[b]
		for i := 0; i < vec.Len(); i++ {
			packed, v := hacoo.EntryAt(vec, i)
			alto.Unpack(packed, masks, coord)
			accumulateNonzero(result, factors, mode, numModes, coord, v)
		}
	}
	return result, nil
}

// Compute is the parallel MTTKRP of spec.md §4.5: the tensor's bucket
// slots are split into contiguous chunks of size ceil(nbuckets/T), each
// chunk accumulated into its own thread-local (d_n x R) matrix, and the
// T partials are then summed into the final result, partitioned along
// the d_n row dimension so no two goroutines ever write the same output
// row. pool.ComputeThenMerge runs exactly this compute-round/merge-round
// shape.
//
// pool may be nil, in which case Compute falls back to ComputeSerial.
func Compute(pool *workerpool.Pool, t *hacoo.Tensor, factors []*matrix.Matrix, mode int) (*matrix.Matrix, error) {
	dn, numModes, rank, err := validate(t, factors, mode)
	if err != nil {
		return nil, err
	}

	if pool == nil || dn == 0 {
		return ComputeSerial(t, factors, mode)
	}

	buckets := t.Buckets()
	nbuckets := len(buckets)
	if nbuckets == 0 {
		return matrix.New(dn, rank), nil
	}

	numChunks := min(pool.NumWorkers(), nbuckets)
	if numChunks < 1 {
		numChunks = 1
	}
	chunkSize := (nbuckets + numChunks - 1) / numChunks

	masks := t.Masks()
	partials := make([]*matrix.Matrix, numChunks)
	for i := range partials {
		partials[i] = matrix.New(dn, rank)
	}

	result := matrix.New(dn, rank)
	pool.ComputeThenMerge(numChunks, func(wStart, wEnd int) {
		coord := make([]uint32, numModes)
		for w := wStart; w < wEnd; w++ {
			start := w * chunkSize
			end := min(start+chunkSize, nbuckets)
			partial := partials[w]
			for b := start; b < end; b++ {
				vec := &buckets[b]
				for i := 0; i < vec.Len(); i++ {
					packed, v := hacoo.EntryAt(vec, i)
					alto.Unpack(packed, masks, coord)
					accumulateNonzero(partial, factors, mode, numModes, coord, v)
				}
			}
		}
	}, dn, func(rStart, rEnd int) {
		for row := rStart; row < rEnd; row++ {
			rrow := result.Row(row)
			for _, p := range partials {
				prow := p.Row(row)
				for f := range rrow {
					rrow[f] += prow[f]
				}
			}
		}
	})

	return result, nil
}
