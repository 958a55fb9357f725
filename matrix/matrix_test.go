package matrix

import (
	"errors"
	"math"
	"testing"
)

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func fromRows(rows [][]float64) *Matrix {
	m := New(len(rows), len(rows[0]))
	for i, row := range rows {
		for j, v := range row {
			m.Set(i, j, v)
		}
	}
	return m
}

func TestMul(t *testing.T) {
	a := fromRows([][]float64{{1, 2}, {3, 4}})
	b := fromRows([][]float64{{5, 6}, {7, 8}})
	c := New(2, 2)
	if err := c.Mul(a, b); err != nil {
		t.Fatalf("Mul: %v", err)
	}
	want := [][]float64{{19, 22}, {43, 50}}
	for i := range want {
		for j := range want[i] {
			if !approxEqual(c.At(i, j), want[i][j], 1e-9) {
				t.Fatalf("c[%d][%d] = %v, want %v", i, j, c.At(i, j), want[i][j])
			}
		}
	}
}

func TestMulDimMismatch(t *testing.T) {
	a := New(2, 3)
	b := New(2, 2)
	c := New(2, 2)
	if err := c.Mul(a, b); !errors.Is(err, ErrDimMismatch) {
		t.Fatalf("Mul: got %v, want ErrDimMismatch", err)
	}
}

func TestMulTransposeLeft(t *testing.T) {
	a := fromRows([][]float64{{1, 2}, {3, 4}, {5, 6}}) // 3x2
	b := fromRows([][]float64{{1, 0}, {0, 1}, {1, 1}}) // 3x2
	c := New(2, 2)
	if err := c.MulTransposeLeft(a, b); err != nil {
		t.Fatalf("MulTransposeLeft: %v", err)
	}
	// a' = [[1,3,5],[2,4,6]]; a'*b:
	// row0: [1,3,5]*cols -> col0: 1*1+3*0+5*1=6, col1: 1*0+3*1+5*1=8
	// row1: [2,4,6] -> col0: 2*1+4*0+6*1=8, col1: 2*0+4*1+6*1=10
	want := [][]float64{{6, 8}, {8, 10}}
	for i := range want {
		for j := range want[i] {
			if !approxEqual(c.At(i, j), want[i][j], 1e-9) {
				t.Fatalf("c[%d][%d] = %v, want %v", i, j, c.At(i, j), want[i][j])
			}
		}
	}
}

func TestInverse(t *testing.T) {
	a := fromRows([][]float64{{4, 7}, {2, 6}})
	inv := New(2, 2)
	if err := a.Inverse(inv); err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	// det = 4*6-7*2 = 10; inverse = 1/10 [[6,-7],[-2,4]]
	want := [][]float64{{0.6, -0.7}, {-0.2, 0.4}}
	for i := range want {
		for j := range want[i] {
			if !approxEqual(inv.At(i, j), want[i][j], 1e-9) {
				t.Fatalf("inv[%d][%d] = %v, want %v", i, j, inv.At(i, j), want[i][j])
			}
		}
	}
}

func TestInverseSingular(t *testing.T) {
	a := fromRows([][]float64{{1, 2}, {2, 4}})
	inv := New(2, 2)
	if err := a.Inverse(inv); !errors.Is(err, ErrSingular) {
		t.Fatalf("Inverse: got %v, want ErrSingular", err)
	}
}

func TestInverseIdentity(t *testing.T) {
	id := Identity(3)
	inv := New(3, 3)
	if err := id.Inverse(inv); err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if !approxEqual(inv.At(i, j), want, 1e-9) {
				t.Fatalf("inv[%d][%d] = %v, want %v", i, j, inv.At(i, j), want)
			}
		}
	}
}

func TestFrobenius(t *testing.T) {
	m := fromRows([][]float64{{3, 0}, {0, 4}})
	if got := m.Frobenius(); !approxEqual(got, 5, 1e-9) {
		t.Fatalf("Frobenius() = %v, want 5", got)
	}
}

func TestHadamardAddSub(t *testing.T) {
	a := fromRows([][]float64{{1, 2}, {3, 4}})
	b := fromRows([][]float64{{5, 6}, {7, 8}})

	had := a.Copy()
	if err := had.Hadamard(b); err != nil {
		t.Fatalf("Hadamard: %v", err)
	}
	want := [][]float64{{5, 12}, {21, 32}}
	for i := range want {
		for j := range want[i] {
			if !approxEqual(had.At(i, j), want[i][j], 1e-9) {
				t.Fatalf("had[%d][%d] = %v, want %v", i, j, had.At(i, j), want[i][j])
			}
		}
	}

	sum := a.Copy()
	if err := sum.Add(b); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !approxEqual(sum.At(0, 0), 6, 1e-9) {
		t.Fatalf("sum[0][0] = %v, want 6", sum.At(0, 0))
	}

	diff := b.Copy()
	if err := diff.Sub(a); err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if !approxEqual(diff.At(0, 0), 4, 1e-9) {
		t.Fatalf("diff[0][0] = %v, want 4", diff.At(0, 0))
	}
}

func TestScaleAndFillIdentity(t *testing.T) {
	m := New(2, 2)
	m.FillIdentity()
	m.Scale(3)
	if !approxEqual(m.At(0, 0), 3, 1e-9) || !approxEqual(m.At(0, 1), 0, 1e-9) {
		t.Fatalf("unexpected scaled identity: %v %v", m.At(0, 0), m.At(0, 1))
	}
}
