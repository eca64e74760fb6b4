package rulelib

import (
	"testing"

	"github.com/fingoldin/sbrlmod/internal/bitset"
)

func vec(n int, bits ...int) *bitset.Vector {
	v := bitset.New(n)
	for _, b := range bits {
		v.Set(b)
	}
	return v
}

func toyLibrary(t *testing.T) *Library {
	t.Helper()
	// nsamples=4, labels[1]=0011 (samples 2,3), labels[0]=1100 (samples 0,1)
	label0 := vec(4, 0, 1)
	label1 := vec(4, 2, 3)

	r0 := Rule{ID: 0, Cardinality: 1, Truthtable: vec(4, 0, 2), Support: 2} // 1010
	r1 := Rule{ID: 1, Cardinality: 1, Truthtable: vec(4, 1, 3), Support: 2} // 0101
	def := Rule{ID: 2, Cardinality: 0, Truthtable: vec(4, 0, 1, 2, 3), Support: 4}

	lib, err := NewLibrary(4, []Rule{r0, r1, def}, [2]*bitset.Vector{label0, label1})
	if err != nil {
		t.Fatalf("NewLibrary failed: %v", err)
	}
	return lib
}

func TestNewLibraryToyPartition(t *testing.T) {
	lib := toyLibrary(t)
	if lib.NSamples() != 4 {
		t.Fatalf("expected 4 samples, got %d", lib.NSamples())
	}
	if lib.NRules() != 3 {
		t.Fatalf("expected 3 rules (incl. default), got %d", lib.NRules())
	}
	if lib.DefaultRuleID() != 2 {
		t.Fatalf("expected default rule id 2, got %d", lib.DefaultRuleID())
	}
	counts := lib.CardinalityCounts()
	if counts[0] != 1 || counts[1] != 2 {
		t.Fatalf("unexpected cardinality counts: %v", counts)
	}
}

func TestNewLibraryRejectsOverlappingLabels(t *testing.T) {
	label0 := vec(4, 0, 1, 2)
	label1 := vec(4, 2, 3) // overlaps at sample 2
	def := Rule{ID: 0, Cardinality: 0, Truthtable: vec(4, 0, 1, 2, 3), Support: 4}

	_, err := NewLibrary(4, []Rule{def, def}, [2]*bitset.Vector{label0, label1})
	if err == nil {
		t.Fatalf("expected error for overlapping labels")
	}
}

func TestNewLibraryRejectsIncompleteUnion(t *testing.T) {
	label0 := vec(4, 0)
	label1 := vec(4, 2)
	def := Rule{ID: 0, Cardinality: 0, Truthtable: vec(4, 0, 1, 2, 3), Support: 4}

	_, err := NewLibrary(4, []Rule{def, def}, [2]*bitset.Vector{label0, label1})
	if err == nil {
		t.Fatalf("expected error when labels don't cover all samples")
	}
}
