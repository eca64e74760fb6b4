package bitset

import "testing"

func TestSetGetClear(t *testing.T) {
	v := New(130) // spans 3 words
	for _, i := range []int{0, 1, 63, 64, 65, 129} {
		v.Set(i)
		if !v.Get(i) {
			t.Fatalf("bit %d should be set", i)
		}
		v.Clear(i)
		if v.Get(i) {
			t.Fatalf("bit %d should be cleared", i)
		}
	}
}

func TestPopCountAndAndFusion(t *testing.T) {
	a := New(8)
	b := New(8)
	for _, i := range []int{0, 1, 2, 3} {
		a.Set(i)
	}
	for _, i := range []int{2, 3, 4, 5} {
		b.Set(i)
	}

	dst := New(8)
	n := And(dst, a, b)
	if n != 2 {
		t.Fatalf("expected popcount 2, got %d", n)
	}
	if dst.PopCount() != n {
		t.Fatalf("And-returned popcount %d does not match dst.PopCount() %d", n, dst.PopCount())
	}
	if !dst.Get(2) || !dst.Get(3) || dst.Get(0) || dst.Get(4) {
		t.Fatalf("unexpected AND result bits")
	}
}

// popcount(a AND b) must never exceed min(popcount(a), popcount(b)).
func TestPopCountAndUpperBound(t *testing.T) {
	a := New(64)
	b := New(64)
	for i := 0; i < 64; i += 3 {
		a.Set(i)
	}
	for i := 0; i < 64; i += 5 {
		b.Set(i)
	}
	dst := New(64)
	n := And(dst, a, b)
	pa, pb := a.PopCount(), b.PopCount()
	min := pa
	if pb < min {
		min = pb
	}
	if n > min {
		t.Fatalf("popcount(a AND b)=%d exceeds min(popcount(a),popcount(b))=%d", n, min)
	}
}

func TestAndNotCascade(t *testing.T) {
	full := New(8)
	for i := 0; i < 8; i++ {
		full.Set(i)
	}
	prior := New(8)
	prior.Set(0)
	prior.Set(1)

	dst := New(8)
	n := AndNot(dst, full, prior)
	if n != 6 {
		t.Fatalf("expected 6 remaining bits, got %d", n)
	}
	if dst.Get(0) || dst.Get(1) {
		t.Fatalf("AndNot should have cleared prior bits")
	}
}

func TestCloneIndependence(t *testing.T) {
	a := New(64)
	a.Set(10)
	b := a.Clone()
	b.Set(20)
	if a.Get(20) {
		t.Fatalf("mutating clone must not affect original")
	}
	if !Equal(a, a.Clone()) {
		t.Fatalf("clone should be equal to original")
	}
}

func TestOrIntoPartition(t *testing.T) {
	// A disjoint partition, OR'd back together, must equal the full set.
	full := New(16)
	for i := 0; i < 16; i++ {
		full.Set(i)
	}
	part1 := New(16)
	for i := 0; i < 5; i++ {
		part1.Set(i)
	}
	part2 := New(16)
	for i := 5; i < 16; i++ {
		part2.Set(i)
	}
	union := New(16)
	OrInto(union, part1)
	OrInto(union, part2)
	if !Equal(union, full) {
		t.Fatalf("union of disjoint partition should equal full set")
	}
}
