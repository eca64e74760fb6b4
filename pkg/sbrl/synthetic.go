package sbrl

import (
	"context"

	"github.com/fingoldin/sbrlmod/internal/bitset"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
)

// SyntheticLoader is a demo DataLoader that fabricates a random rule
// library of the requested size, gated behind the caller's own
// decision to use it — the core engine has no opinion on where rules
// come from (spec.md §1's "mined by an external collaborator"
// framing). It exists so cmd/sbrl-train has something to train
// against without wiring a real frequent-itemset miner.
type SyntheticLoader struct {
	NSamples int
	NRules   int // non-default rule count; the library gets NRules+1 entries
	Seed     *int64
}

// Load implements DataLoader.
func (s SyntheticLoader) Load(_ context.Context) (*rulelib.Library, error) {
	seed := int64(1)
	if s.Seed != nil {
		seed = *s.Seed
	}
	f := rng.NewFacade(&seed)

	labels := [2]*bitset.Vector{bitset.New(s.NSamples), bitset.New(s.NSamples)}
	for i := 0; i < s.NSamples; i++ {
		if f.Uniform() < 0.5 {
			labels[0].Set(i)
		} else {
			labels[1].Set(i)
		}
	}

	rules := make([]rulelib.Rule, s.NRules+1)
	for id := 0; id < s.NRules; id++ {
		cardinality := 1 + f.DiscreteUniform(3)
		truthtable := bitset.New(s.NSamples)
		support := 0
		for i := 0; i < s.NSamples; i++ {
			if f.Uniform() < 0.3 {
				truthtable.Set(i)
				support++
			}
		}
		rules[id] = rulelib.Rule{ID: id, Cardinality: cardinality, Truthtable: truthtable, Support: support}
	}

	def := bitset.New(s.NSamples)
	for i := 0; i < s.NSamples; i++ {
		def.Set(i)
	}
	rules[s.NRules] = rulelib.Rule{ID: s.NRules, Cardinality: 0, Truthtable: def, Support: s.NSamples}

	return rulelib.NewLibrary(s.NSamples, rules, labels)
}
