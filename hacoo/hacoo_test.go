package hacoo

import (
	"math/rand"
	"testing"
)

// TestS2SetGet mirrors spec.md scenario S2.
func TestS2SetGet(t *testing.T) {
	tn, err := New([]uint32{4, 4, 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	sets := []struct {
		coord []uint32
		value float64
	}{
		{[]uint32{0, 0, 0}, 1.0},
		{[]uint32{3, 3, 3}, 2.5},
		{[]uint32{1, 2, 3}, -1.0},
	}
	for _, s := range sets {
		if err := tn.Set(s.coord, s.value); err != nil {
			t.Fatalf("Set(%v): %v", s.coord, err)
		}
	}

	for _, s := range sets {
		got, err := tn.Get(s.coord)
		if err != nil {
			t.Fatalf("Get(%v): %v", s.coord, err)
		}
		if got != s.value {
			t.Fatalf("Get(%v) = %v, want %v", s.coord, got, s.value)
		}
	}

	got, err := tn.Get([]uint32{2, 2, 2})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != 0.0 {
		t.Fatalf("Get(2,2,2) = %v, want 0.0", got)
	}

	if tn.NNZ() != 3 {
		t.Fatalf("NNZ() = %d, want 3", tn.NNZ())
	}
}

// TestS3RehashTrigger mirrors spec.md scenario S3: inserting 90 distinct
// coords out of a (16,16,16) tensor with load=70 starting at 128 buckets
// should trigger exactly one doubling to 256 buckets, with every
// inserted coordinate still round-tripping afterward.
func TestS3RehashTrigger(t *testing.T) {
	tn, err := New([]uint32{16, 16, 16}, WithLoadPct(70), WithInitialBuckets(128))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := map[[3]uint32]float64{}
	rng := rand.New(rand.NewSource(1))
	for len(seen) < 90 {
		c := [3]uint32{uint32(rng.Intn(16)), uint32(rng.Intn(16)), uint32(rng.Intn(16))}
		if _, ok := seen[c]; ok {
			continue
		}
		v := rng.Float64()
		seen[c] = v
		if err := tn.Set(c[:], v); err != nil {
			t.Fatalf("Set(%v): %v", c, err)
		}
	}

	if tn.NumBuckets() != 256 {
		t.Fatalf("NumBuckets() = %d, want 256", tn.NumBuckets())
	}
	if tn.NNZ() != 90 {
		t.Fatalf("NNZ() = %d, want 90", tn.NNZ())
	}
	for c, v := range seen {
		got, err := tn.Get(c[:])
		if err != nil {
			t.Fatalf("Get(%v): %v", c, err)
		}
		if got != v {
			t.Fatalf("Get(%v) = %v, want %v", c, got, v)
		}
	}
}

// TestRehashPreservesMultiset exercises invariant 4 from spec.md §8.
func TestRehashPreservesMultiset(t *testing.T) {
	tn, err := New([]uint32{8, 8}, WithLoadPct(10), WithInitialBuckets(4))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	type kv struct {
		c [2]uint32
		v float64
	}
	var entries []kv
	for i := uint32(0); i < 8; i++ {
		for j := uint32(0); j < 8; j++ {
			v := float64(i*8 + j)
			entries = append(entries, kv{[2]uint32{i, j}, v})
			if err := tn.Set([]uint32{i, j}, v); err != nil {
				t.Fatalf("Set: %v", err)
			}
		}
	}

	if tn.NNZ() != len(entries) {
		t.Fatalf("NNZ() = %d, want %d", tn.NNZ(), len(entries))
	}
	for _, e := range entries {
		got, err := tn.Get(e.c[:])
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != e.v {
			t.Fatalf("Get(%v) = %v, want %v", e.c, got, e.v)
		}
	}
}

func TestSetOverwrite(t *testing.T) {
	tn, err := New([]uint32{4, 4})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := tn.Set([]uint32{1, 1}, 5); err != nil {
		t.Fatal(err)
	}
	if err := tn.Set([]uint32{1, 1}, 9); err != nil {
		t.Fatal(err)
	}
	if tn.NNZ() != 1 {
		t.Fatalf("NNZ() = %d, want 1", tn.NNZ())
	}
	got, _ := tn.Get([]uint32{1, 1})
	if got != 9 {
		t.Fatalf("Get = %v, want 9", got)
	}
}

func TestDimMismatch(t *testing.T) {
	tn, err := New([]uint32{4, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := tn.Set([]uint32{1, 1, 1}, 1); err == nil {
		t.Fatal("expected dim mismatch error")
	}
}

func TestIterateVisitsEveryEntry(t *testing.T) {
	tn, err := New([]uint32{4, 4, 4})
	if err != nil {
		t.Fatal(err)
	}
	want := map[uint64]float64{}
	for i := uint32(0); i < 4; i++ {
		for j := uint32(0); j < 4; j++ {
			for k := uint32(0); k < 4; k++ {
				v := float64(i + j + k)
				if err := tn.Set([]uint32{i, j, k}, v); err != nil {
					t.Fatal(err)
				}
			}
		}
	}
	count := 0
	tn.Iterate(func(packed uint64, v float64) bool {
		want[packed] = v
		count++
		return true
	})
	if count != tn.NNZ() {
		t.Fatalf("iterate visited %d entries, want %d", count, tn.NNZ())
	}
	if len(want) != 64 {
		t.Fatalf("iterate visited %d distinct entries, want 64", len(want))
	}
}

func TestRehashAllocFailureLeavesStateUntouched(t *testing.T) {
	tn, err := New([]uint32{16, 16}, WithLoadPct(1), WithInitialBuckets(4))
	if err != nil {
		t.Fatal(err)
	}
	tn.MaxBuckets = 4 // forbid any growth beyond the initial size

	before := tn.NumBuckets()
	err = tn.Set([]uint32{0, 0}, 1)
	if err == nil {
		t.Fatal("expected allocation-failure error when rehash is capped")
	}
	if tn.NumBuckets() != before {
		t.Fatalf("NumBuckets() changed after failed rehash: %d != %d", tn.NumBuckets(), before)
	}
}

func TestFrobenius(t *testing.T) {
	tn, err := New([]uint32{4, 4})
	if err != nil {
		t.Fatal(err)
	}
	if err := tn.Set([]uint32{0, 0}, 3); err != nil {
		t.Fatal(err)
	}
	if err := tn.Set([]uint32{1, 1}, 4); err != nil {
		t.Fatal(err)
	}
	if got := tn.Frobenius(); got != 5 {
		t.Fatalf("Frobenius() = %v, want 5", got)
	}
}
