// Package mttkrpbench provides the timed-run and expected-output
// comparison support behind the mttkrp CLI's bench and verify modes,
// mirroring original_source/hacoo_mttkrp.cpp's CUnit suite
// (CUnit_mttkrp_bench, CUnit_verify_mttkrp) in Go's testing/benchmark
// idiom: ordinary functions returning results and errors instead of a
// C-style global-state test fixture.
package mttkrpbench

import (
	"fmt"
	"math"
	"time"

	"github.com/pngwen/hacoo-go/hacoo"
	"github.com/pngwen/hacoo-go/matrix"
	"github.com/pngwen/hacoo-go/mttkrp"
	"github.com/pngwen/hacoo-go/workerpool"
)

// GenerateRandomFactors builds one random d_k x rank factor matrix per
// mode of t, matching original_source/hacoo_mttkrp.cpp's
// suite_bench_init factor generation.
func GenerateRandomFactors(t *hacoo.Tensor, rank int) []*matrix.Matrix {
	dims := t.Dims()
	out := make([]*matrix.Matrix, len(dims))
	for i, d := range dims {
		out[i] = matrix.NewRandom(int(d), rank, 0, 1)
	}
	return out
}

// ModeTiming is the per-mode result of a benchmark run: a list of
// per-iteration durations with the first entry treated as a warm-up.
type ModeTiming struct {
	Mode      int
	Durations []time.Duration
}

// AvgExcludingWarmup returns the mean duration of every iteration after
// the first, matching the C benchmark's "excluding warm-up" average.
func (m ModeTiming) AvgExcludingWarmup() time.Duration {
	if len(m.Durations) < 2 {
		return 0
	}
	var total time.Duration
	for _, d := range m.Durations[1:] {
		total += d
	}
	return total / time.Duration(len(m.Durations)-1)
}

// BenchMode times iterations runs of MTTKRP for a single mode, using
// the parallel kernel when pool is non-nil and parallel is true, the
// serial kernel otherwise.
func BenchMode(pool *workerpool.Pool, t *hacoo.Tensor, factors []*matrix.Matrix, mode int, iterations int, parallel bool) (ModeTiming, error) {
	timing := ModeTiming{Mode: mode, Durations: make([]time.Duration, 0, iterations)}
	for it := 0; it < iterations; it++ {
		start := time.Now()
		var err error
		if parallel {
			_, err = mttkrp.Compute(pool, t, factors, mode)
		} else {
			_, err = mttkrp.ComputeSerial(t, factors, mode)
		}
		elapsed := time.Since(start)
		if err != nil {
			return timing, fmt.Errorf("mttkrpbench: mode %d iteration %d: %w", mode, it, err)
		}
		timing.Durations = append(timing.Durations, elapsed)
	}
	return timing, nil
}

// BenchAllModes runs BenchMode for every mode of t in turn.
func BenchAllModes(pool *workerpool.Pool, t *hacoo.Tensor, factors []*matrix.Matrix, iterations int, parallel bool) ([]ModeTiming, error) {
	out := make([]ModeTiming, t.NumModes())
	for mode := 0; mode < t.NumModes(); mode++ {
		timing, err := BenchMode(pool, t, factors, mode, iterations, parallel)
		if err != nil {
			return nil, err
		}
		out[mode] = timing
	}
	return out, nil
}

// EqualMatrices reports whether a and b have the same shape and every
// entry differs by no more than eps, the ε-tolerance comparison spec.md
// §8 requires between the parallel and serial MTTKRP paths.
func EqualMatrices(a, b *matrix.Matrix, eps float64) bool {
	if a.Rows != b.Rows || a.Cols != b.Cols {
		return false
	}
	for i := 0; i < a.Rows; i++ {
		for j := 0; j < a.Cols; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > eps {
				return false
			}
		}
	}
	return true
}

// VerifyAll computes MTTKRP for every mode and compares each result
// against the corresponding entry of expected, matching
// original_source/hacoo_mttkrp.cpp's verify_mttkrp. It returns one bool
// per mode (true if that mode's result matched within eps).
func VerifyAll(pool *workerpool.Pool, t *hacoo.Tensor, factors, expected []*matrix.Matrix, parallel bool, eps float64) ([]bool, error) {
	if len(expected) != t.NumModes() {
		return nil, fmt.Errorf("mttkrpbench: got %d expected matrices, want %d", len(expected), t.NumModes())
	}

	results := make([]bool, t.NumModes())
	for mode := 0; mode < t.NumModes(); mode++ {
		var computed *matrix.Matrix
		var err error
		if parallel {
			computed, err = mttkrp.Compute(pool, t, factors, mode)
		} else {
			computed, err = mttkrp.ComputeSerial(t, factors, mode)
		}
		if err != nil {
			return nil, fmt.Errorf("mttkrpbench: verify mode %d: %w", mode, err)
		}
		results[mode] = EqualMatrices(expected[mode], computed, eps)
	}
	return results, nil
}
