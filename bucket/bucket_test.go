package bucket

import "testing"

func TestAppendAndLen(t *testing.T) {
	v := New[int]()
	if v.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", v.Len())
	}
	for i := 0; i < 10; i++ {
		v.Append(i)
	}
	if v.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", v.Len())
	}
	for i := 0; i < 10; i++ {
		if got := *v.At(i); got != i {
			t.Fatalf("At(%d) = %d, want %d", i, got, i)
		}
	}
}

func TestAtMutatesInPlace(t *testing.T) {
	type entry struct {
		packed uint64
		value  float64
	}
	v := New[entry]()
	v.Append(entry{packed: 1, value: 2})
	v.At(0).value = 9
	if v.At(0).value != 9 {
		t.Fatalf("mutation through At did not stick")
	}
}

func TestAllReflectsAppends(t *testing.T) {
	v := New[string]()
	v.Append("a")
	v.Append("b")
	all := v.All()
	if len(all) != 2 || all[0] != "a" || all[1] != "b" {
		t.Fatalf("All() = %v", all)
	}
}
