package rulelib

import (
	"fmt"

	"github.com/fingoldin/sbrlmod/internal/bitset"
)

// Library is the immutable catalog a training run searches over: a
// mined rule set plus the two disjoint class-label bitvectors. By
// convention the last entry (index NRules()-1) is the distinguished
// default rule, whose truthtable covers every sample; it is never an
// operand of add/delete/swap (invariant I1).
type Library struct {
	nsamples int
	rules    []Rule
	labels   [2]*bitset.Vector
}

// NewLibrary validates and wraps a mined rule catalog. rules must
// already include the default rule as its last element, with
// Truthtable covering all nsamples bits and Cardinality 0. labels[0]
// and labels[1] must be disjoint and their union must be the full
// sample set (spec.md §3).
func NewLibrary(nsamples int, rules []Rule, labels [2]*bitset.Vector) (*Library, error) {
	if nsamples <= 0 {
		return nil, fmt.Errorf("%w: nsamples must be > 0, got %d", ErrInvalidParams, nsamples)
	}
	if len(rules) < 2 {
		return nil, fmt.Errorf("%w: library must contain at least 2 rules (including default), got %d", ErrInvalidParams, len(rules))
	}
	for i, r := range rules {
		if r.Cardinality < 0 || r.Cardinality > MaxCardinality {
			return nil, fmt.Errorf("%w: rule %d cardinality %d out of [0,%d]", ErrInvalidParams, i, r.Cardinality, MaxCardinality)
		}
		if r.Truthtable == nil || r.Truthtable.Len() != nsamples {
			return nil, fmt.Errorf("%w: rule %d truthtable width mismatch", ErrInvalidParams, i)
		}
	}
	if labels[0] == nil || labels[1] == nil || labels[0].Len() != nsamples || labels[1].Len() != nsamples {
		return nil, fmt.Errorf("%w: label vectors must both have width nsamples", ErrInvalidParams)
	}
	overlap := bitset.And(bitset.New(nsamples), labels[0], labels[1])
	if overlap != 0 {
		return nil, fmt.Errorf("%w: labels[0] and labels[1] must be disjoint", ErrInvalidParams)
	}
	union := bitset.New(nsamples)
	bitset.Or(union, labels[0], labels[1])
	if union.PopCount() != nsamples {
		return nil, fmt.Errorf("%w: union of labels[0] and labels[1] must cover all samples", ErrInvalidParams)
	}

	return &Library{nsamples: nsamples, rules: rules, labels: labels}, nil
}

// NSamples returns N, the fixed bitvector width for this run.
func (l *Library) NSamples() int { return l.nsamples }

// NRules returns the library size, including the default rule.
func (l *Library) NRules() int { return len(l.rules) }

// DefaultRuleID returns the id of the distinguished default rule.
func (l *Library) DefaultRuleID() int { return len(l.rules) - 1 }

// Rule returns the catalog entry for id.
func (l *Library) Rule(id int) Rule { return l.rules[id] }

// Labels returns the class-0 and class-1 bitvectors.
func (l *Library) Labels() (class0, class1 *bitset.Vector) {
	return l.labels[0], l.labels[1]
}

// CardinalityCounts returns, for every cardinality 0..MaxCardinality,
// the number of library rules with that cardinality. Used by the
// posterior evaluator to build its per-call depletion table (spec.md
// §4.3).
func (l *Library) CardinalityCounts() [MaxCardinality + 1]int {
	var counts [MaxCardinality + 1]int
	for _, r := range l.rules {
		counts[r.Cardinality]++
	}
	return counts
}
