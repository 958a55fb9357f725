// Package cpd computes the Canonical Polyadic Decomposition of a HaCOO
// tensor via Alternating Least Squares: repeated MTTKRP, Gram-Hadamard
// products, a Gauss-Jordan solve, and column normalization per mode
// until a fixed iteration bound.
//
// Grounded on original_source/cpd.c's cpd/gram_product/normalize_column/
// scale_factor_mode, restructured as Go methods returning errors instead
// of C out-parameters and a global DEBUGGING printf.
package cpd

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/pngwen/hacoo-go/hacoo"
	"github.com/pngwen/hacoo-go/matrix"
	"github.com/pngwen/hacoo-go/mttkrp"
	"github.com/pngwen/hacoo-go/workerpool"
)

// Result holds the outcome of a CPD-ALS run: one factor matrix per
// mode, a length-Rank lambda vector of column scales, and the rank and
// mode count it was solved for.
type Result struct {
	NumModes int
	Rank     int
	Factors  []*matrix.Matrix
	Lambda   []float64
}

// Option configures a Run call.
type Option func(*config)

type config struct {
	gramRidge float64
}

// WithGramRidge adds a small diagonal ridge to the Gram-Hadamard matrix
// before inversion, per spec.md §4.7's optional conditioning note.
// Disabled by default, matching original_source/cpd.c's commented-out
// add_diagonal(gram, GRAMREG) call.
func WithGramRidge(ridge float64) Option {
	return func(c *config) { c.gramRidge = ridge }
}

func newResult(t *hacoo.Tensor, rank int) *Result {
	dims := t.Dims()
	r := &Result{
		NumModes: t.NumModes(),
		Rank:     rank,
		Factors:  make([]*matrix.Matrix, t.NumModes()),
		Lambda:   make([]float64, rank),
	}
	for i := range r.Lambda {
		r.Lambda[i] = 1.0
	}
	for k, d := range dims {
		r.Factors[k] = matrix.NewRandom(int(d), rank, 0, 1)
	}
	return r
}

// gramHadamard computes dst = Hadamard_{k != mode} (factors[k]^T * factors[k]),
// starting from a matrix of ones, matching original_source/cpd.c's
// gram_product.
func gramHadamard(dst, scratch *matrix.Matrix, factors []*matrix.Matrix, mode int) error {
	dst.Fill(1)
	for k, f := range factors {
		if k == mode {
			continue
		}
		if err := scratch.MulTransposeLeft(f, f); err != nil {
			return err
		}
		if err := dst.Hadamard(scratch); err != nil {
			return err
		}
	}
	return nil
}

func addDiagonal(m *matrix.Matrix, value float64) {
	for i := 0; i < m.Rows && i < m.Cols; i++ {
		m.Set(i, i, m.At(i, i)+value)
	}
}

// normalizeColumn divides column col of m by its norm (L2 on iteration
// 0, max-norm on every later iteration, per spec.md §4.7/§9) and
// returns that norm, matching original_source/cpd.c's normalize_column.
// The max-norm is floored at 1: a column whose entries all have
// magnitude below 1 is divided by 1, i.e. left as is.
func normalizeColumn(m *matrix.Matrix, col, iter int) float64 {
	var norm float64
	if iter == 0 {
		for i := 0; i < m.Rows; i++ {
			v := m.At(i, col)
			norm += v * v
		}
		norm = math.Sqrt(norm)
	} else {
		norm = 1.0
		for i := 0; i < m.Rows; i++ {
			if v := math.Abs(m.At(i, col)); v > norm {
				norm = v
			}
		}
	}
	for i := 0; i < m.Rows; i++ {
		m.Set(i, col, m.At(i, col)/norm)
	}
	return norm
}

func scaleFactorMode(result *Result, mode, iter int) {
	for j := 0; j < result.Rank; j++ {
		result.Lambda[j] = normalizeColumn(result.Factors[mode], j, iter)
	}
}

// Run solves the CPD-ALS loop of spec.md §4.7: each mode's factor is
// updated in turn via MTTKRP, Gram-Hadamard, Gauss-Jordan solve, and
// column normalization, for maxIter iterations. A singular Gram matrix
// is not fatal (spec.md §7): that mode's factor is left unchanged for
// the iteration and a warning is printed to stderr, matching the
// teacher CLI's plain-fmt diagnostic style.
func Run(pool *workerpool.Pool, t *hacoo.Tensor, rank, maxIter int, opts ...Option) (*Result, error) {
	cfg := config{gramRidge: 0}
	for _, opt := range opts {
		opt(&cfg)
	}

	result := newResult(t, rank)
	gram := matrix.New(rank, rank)
	scratch := matrix.New(rank, rank)
	grami := matrix.New(rank, rank)

	for iter := 0; iter < maxIter; iter++ {
		for mode := 0; mode < t.NumModes(); mode++ {
			k, err := mttkrp.Compute(pool, t, result.Factors, mode)
			if err != nil {
				return nil, fmt.Errorf("cpd: mttkrp mode %d: %w", mode, err)
			}

			if err := gramHadamard(gram, scratch, result.Factors, mode); err != nil {
				return nil, fmt.Errorf("cpd: gram product mode %d: %w", mode, err)
			}
			if cfg.gramRidge != 0 {
				addDiagonal(gram, cfg.gramRidge)
			}

			if err := gram.Inverse(grami); err != nil {
				if errors.Is(err, matrix.ErrSingular) {
					fmt.Fprintf(os.Stderr, "cpd: iter %d mode %d: singular Gram matrix, factor left unchanged\n", iter, mode)
					continue
				}
				return nil, fmt.Errorf("cpd: invert gram mode %d: %w", mode, err)
			}

			if err := result.Factors[mode].Mul(k, grami); err != nil {
				return nil, fmt.Errorf("cpd: solve mode %d: %w", mode, err)
			}
			scaleFactorMode(result, mode, iter)
		}
	}

	return result, nil
}
