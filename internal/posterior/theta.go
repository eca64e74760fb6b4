package posterior

import (
	"github.com/fingoldin/sbrlmod/internal/bitset"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
)

// Theta computes the per-position class-1 posterior mean for the
// final list of a chain (spec.md §4.6): for each position j,
// θ_j = (n1_j + α_1) / (n1_j + n0_j + α_0 + α_1).
func Theta(rs *ruleset.RuleList, lib *rulelib.Library, params rulelib.Params) []float64 {
	class0, _ := lib.Labels()
	scratch := bitset.New(rs.NSamples())
	theta := make([]float64, rs.NRules())

	for j := 0; j < rs.NRules(); j++ {
		entry := rs.Entry(j)
		n0 := bitset.And(scratch, entry.Captures, class0)
		n1 := entry.NCaptured - n0
		theta[j] = (float64(n1) + params.Alpha[1]) / (float64(n0+n1) + params.Alpha[0] + params.Alpha[1])
	}
	return theta
}
