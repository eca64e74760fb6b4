// Package ruleset implements the ordered rule list: its invariants,
// its cascading capture-set bookkeeping, and the add/delete/swap
// mutations the proposal kernel drives.
package ruleset

import (
	"fmt"

	"github.com/fingoldin/sbrlmod/internal/bitset"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
)

// Entry is one position in an ordered rule list.
type Entry struct {
	RuleID    int
	Captures  *bitset.Vector
	NCaptured int
}

// RuleList is a mutable ordered sequence of rule positions, the last
// of which is always the library's default rule (invariant I1).
// Captures partition the sample set along positions (invariant I2):
// entries[i].Captures = truthtable(entries[i].RuleID) AND NOT (union
// of entries[0..i-1].Captures).
type RuleList struct {
	nsamples int
	entries  []Entry
}

var ErrInvalidParams = rulelib.ErrInvalidParams

// NRules returns the current list length, including the default
// position.
func (rs *RuleList) NRules() int { return len(rs.entries) }

// NSamples returns N.
func (rs *RuleList) NSamples() int { return rs.nsamples }

// Entry returns position i by value (the returned Captures pointer is
// shared, not cloned — callers must not mutate it).
func (rs *RuleList) Entry(i int) Entry { return rs.entries[i] }

// Entries returns the full position slice, in the same aliasing terms
// as Entry.
func (rs *RuleList) Entries() []Entry { return rs.entries }

// recomputeFrom rebuilds captures and ncaptured for positions
// [pos, len) from the rule ids currently stored there, cascading the
// AND-NOT-prefix-union rule of invariant I2. The prefix union up to
// pos is recomputed from the untouched entries below pos.
func (rs *RuleList) recomputeFrom(lib *rulelib.Library, pos int) {
	prefixUnion := bitset.New(rs.nsamples)
	for i := 0; i < pos; i++ {
		bitset.OrInto(prefixUnion, rs.entries[i].Captures)
	}
	for i := pos; i < len(rs.entries); i++ {
		rule := lib.Rule(rs.entries[i].RuleID)
		captures := rs.entries[i].Captures
		if captures == nil || captures.Len() != rs.nsamples {
			captures = bitset.New(rs.nsamples)
			rs.entries[i].Captures = captures
		}
		n := bitset.AndNot(captures, rule.Truthtable, prefixUnion)
		rs.entries[i].NCaptured = n
		bitset.OrInto(prefixUnion, captures)
	}
}

// CreateRandom builds a list of length initSize+1 (+1 for the default
// rule) from distinct non-default rule ids drawn uniformly without
// replacement, in a uniformly random order, per spec.md §4.2.
func CreateRandom(lib *rulelib.Library, initSize int, f *rng.Facade) (*RuleList, error) {
	nonDefault := lib.NRules() - 1
	if initSize < 1 || initSize > nonDefault {
		return nil, fmt.Errorf("%w: init_size must be in [1, %d], got %d", ErrInvalidParams, nonDefault, initSize)
	}

	ids := make([]int, nonDefault)
	for i := range ids {
		ids[i] = i
	}
	// Partial Fisher-Yates: the first initSize elements end up a
	// uniformly random ordered sample without replacement.
	for i := 0; i < initSize; i++ {
		j := i + f.DiscreteUniform(nonDefault-i)
		ids[i], ids[j] = ids[j], ids[i]
	}

	entries := make([]Entry, initSize+1)
	for i := 0; i < initSize; i++ {
		entries[i] = Entry{RuleID: ids[i]}
	}
	entries[initSize] = Entry{RuleID: lib.DefaultRuleID()}

	rs := &RuleList{nsamples: lib.NSamples(), entries: entries}
	rs.recomputeFrom(lib, 0)
	return rs, nil
}

// Copy deep-copies src: every Captures bitvector is cloned, so the two
// lists may be mutated independently.
func Copy(src *RuleList) *RuleList {
	entries := make([]Entry, len(src.entries))
	for i, e := range src.entries {
		var captures *bitset.Vector
		if e.Captures != nil {
			captures = e.Captures.Clone()
		}
		entries[i] = Entry{RuleID: e.RuleID, Captures: captures, NCaptured: e.NCaptured}
	}
	return &RuleList{nsamples: src.nsamples, entries: entries}
}

// Add inserts ruleID at position, shifting everything from position
// onward (including the default) one slot later. position must be in
// [0, rs.NRules()-1] — it may never land past the default's current
// index, so the default stays last (invariant I1).
func Add(lib *rulelib.Library, rs *RuleList, ruleID, position int) error {
	n := len(rs.entries)
	if position < 0 || position > n-1 {
		return fmt.Errorf("%w: add position %d out of [0,%d]", ErrInvalidParams, position, n-1)
	}
	if ruleID == lib.DefaultRuleID() {
		return fmt.Errorf("%w: cannot add the default rule", ErrInvalidParams)
	}
	for _, e := range rs.entries[:n-1] {
		if e.RuleID == ruleID {
			return fmt.Errorf("%w: rule %d already present (invariant I4)", ErrInvalidParams, ruleID)
		}
	}

	entries := make([]Entry, n+1)
	copy(entries, rs.entries[:position])
	entries[position] = Entry{RuleID: ruleID}
	copy(entries[position+1:], rs.entries[position:])
	rs.entries = entries
	rs.recomputeFrom(lib, position)
	return nil
}

// Delete removes the non-default position. position must be in
// [0, rs.NRules()-2].
func Delete(lib *rulelib.Library, rs *RuleList, position int) error {
	n := len(rs.entries)
	if position < 0 || position > n-2 {
		return fmt.Errorf("%w: delete position %d out of [0,%d]", ErrInvalidParams, position, n-2)
	}
	entries := make([]Entry, n-1)
	copy(entries, rs.entries[:position])
	copy(entries[position:], rs.entries[position+1:])
	rs.entries = entries
	rs.recomputeFrom(lib, position)
	return nil
}

// SwapAny exchanges the rule ids at two distinct non-default
// positions, both in [0, rs.NRules()-2].
func SwapAny(lib *rulelib.Library, rs *RuleList, i, j int) error {
	n := len(rs.entries)
	if i == j {
		return fmt.Errorf("%w: swap indices must differ", ErrInvalidParams)
	}
	if i < 0 || i > n-2 || j < 0 || j > n-2 {
		return fmt.Errorf("%w: swap indices %d,%d out of [0,%d]", ErrInvalidParams, i, j, n-2)
	}
	rs.entries[i].RuleID, rs.entries[j].RuleID = rs.entries[j].RuleID, rs.entries[i].RuleID
	min := i
	if j < min {
		min = j
	}
	rs.recomputeFrom(lib, min)
	return nil
}

// Backup returns the rule id sequence, length NRules(). Cheap to keep
// around as "best seen so far" without retaining the list's
// bitvectors.
func Backup(rs *RuleList) []int {
	ids := make([]int, len(rs.entries))
	for i, e := range rs.entries {
		ids[i] = e.RuleID
	}
	return ids
}

// Rebuild reconstructs a RuleList from a saved id sequence, recomputing
// every capture set from scratch.
func Rebuild(ids []int, lib *rulelib.Library) (*RuleList, error) {
	if len(ids) < 1 {
		return nil, fmt.Errorf("%w: id sequence must be non-empty", ErrInvalidParams)
	}
	entries := make([]Entry, len(ids))
	for i, id := range ids {
		if id < 0 || id >= lib.NRules() {
			return nil, fmt.Errorf("%w: rule id %d out of [0,%d)", ErrInvalidParams, id, lib.NRules())
		}
		entries[i] = Entry{RuleID: id}
	}
	rs := &RuleList{nsamples: lib.NSamples(), entries: entries}
	rs.recomputeFrom(lib, 0)
	return rs, nil
}
