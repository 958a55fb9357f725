package workerpool

import (
	"runtime"
	"testing"
)

func TestNew(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.NumWorkers() != 4 {
		t.Errorf("NumWorkers() = %d, want 4", pool.NumWorkers())
	}
}

func TestNewDefault(t *testing.T) {
	pool := New(0)
	defer pool.Close()

	if pool.NumWorkers() != runtime.GOMAXPROCS(0) {
		t.Errorf("NumWorkers() = %d, want %d", pool.NumWorkers(), runtime.GOMAXPROCS(0))
	}
}

func TestParallelFor(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	n := 100
	results := make([]int, n)

	pool.ParallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i * 2
		}
	})

	for i := 0; i < n; i++ {
		if results[i] != i*2 {
			t.Errorf("results[%d] = %d, want %d", i, results[i], i*2)
		}
	}
}

func TestParallelForSmallN(t *testing.T) {
	pool := New(8)
	defer pool.Close()

	results := make([]int, 3)
	pool.ParallelFor(3, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i + 1
		}
	})
	for i, v := range results {
		if v != i+1 {
			t.Errorf("results[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestComputeThenMerge(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	nChunks := 4
	mergeN := 10
	partials := make([][]int, nChunks)
	for i := range partials {
		partials[i] = make([]int, mergeN)
	}
	result := make([]int, mergeN)

	pool.ComputeThenMerge(nChunks, func(start, end int) {
		for c := start; c < end; c++ {
			for row := 0; row < mergeN; row++ {
				partials[c][row] = c + row
			}
		}
	}, mergeN, func(start, end int) {
		for row := start; row < end; row++ {
			for _, p := range partials {
				result[row] += p[row]
			}
		}
	})

	for row := 0; row < mergeN; row++ {
		want := 0
		for c := 0; c < nChunks; c++ {
			want += c + row
		}
		if result[row] != want {
			t.Errorf("result[%d] = %d, want %d", row, result[row], want)
		}
	}
}

func TestComputeThenMergeClosedPool(t *testing.T) {
	pool := New(4)
	pool.Close()

	result := make([]int, 5)
	pool.ComputeThenMerge(3, func(start, end int) {}, 5, func(start, end int) {
		for i := start; i < end; i++ {
			result[i] = i
		}
	})
	for i, v := range result {
		if v != i {
			t.Errorf("result[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestParallelForAfterClose(t *testing.T) {
	pool := New(4)
	pool.Close()

	results := make([]int, 10)
	pool.ParallelFor(10, func(start, end int) {
		for i := start; i < end; i++ {
			results[i] = i
		}
	})
	for i, v := range results {
		if v != i {
			t.Errorf("results[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestCloseIdempotent(t *testing.T) {
	pool := New(2)
	pool.Close()
	pool.Close() // must not panic
}
