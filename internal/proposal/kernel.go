// Package proposal implements the reversible move kernel over ordered
// rule lists: move selection, index sampling, and the asymmetric jump
// ratios the Metropolis-Hastings and simulated-annealing acceptance
// tests need.
package proposal

import (
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
)

// Move identifies which reversible jump a Proposal represents.
type Move byte

const (
	MoveAdd    Move = 'A'
	MoveDelete Move = 'D'
	MoveSwap   Move = 'S'
)

// Proposal is the kernel's output: a move and the indices it applies
// to, plus the reverse/forward jump ratio entering the acceptance test
// as log(JumpRatio).
type Proposal struct {
	Move      Move
	Ndx1      int
	Ndx2      int
	JumpRatio float64
}

// regime holds the move-probability and base-jump-ratio triples for
// one (n_rules, nrules) bucket, in {Swap, Add, Delete} order — the
// same layout as the source's MOVEPROBS/JUMPRATIOS tables (spec.md
// §4.4).
type regime struct {
	probs  [3]float64
	ratios [3]float64
}

var (
	regimeSingleton = regime{probs: [3]float64{0, 1, 0}, ratios: [3]float64{0, 0.5, 0}}
	regimePair      = regime{probs: [3]float64{0, 0.5, 0.5}, ratios: [3]float64{0, 2.0 / 3.0, 2}}
	regimeNearFull  = regime{probs: [3]float64{0.5, 0, 0.5}, ratios: [3]float64{1, 0, 2.0 / 3.0}}
	regimeOneSlack  = regime{probs: [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, ratios: [3]float64{1, 1.5, 1}}
	regimeGeneral   = regime{probs: [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, ratios: [3]float64{1, 1, 1}}
)

// selectRegime picks the move-probability bucket for the current list
// size, checked in the exact order spec.md §4.4 specifies. Preserves
// the source's unreachable-add-branch behavior at n_rules==nrules-1
// (spec.md §9 redesign-flag 3): regimeNearFull's add probability and
// ratio are both zero, so Add is never selected in that regime even
// though the table slot exists.
func selectRegime(nRules, nrules int) regime {
	switch {
	case nRules == 1:
		return regimeSingleton
	case nRules == 2:
		return regimePair
	case nRules == nrules-1:
		return regimeNearFull
	case nRules == nrules-2:
		return regimeOneSlack
	default:
		return regimeGeneral
	}
}

// Propose draws one move against rs under lib, never targeting the
// default position (spec.md §4.4's invariant on the kernel).
func Propose(rs *ruleset.RuleList, lib *rulelib.Library, f *rng.Facade) Proposal {
	nRules := rs.NRules()
	nrules := lib.NRules()
	re := selectRegime(nRules, nrules)

	u := f.Uniform()
	switch {
	case u < re.probs[0]:
		return proposeSwap(rs, re.ratios[0], f)
	case u < re.probs[0]+re.probs[1]:
		return proposeAdd(rs, lib, re.ratios[1], f)
	default:
		return proposeDelete(rs, lib, re.ratios[2], f)
	}
}

func proposeSwap(rs *ruleset.RuleList, baseRatio float64, f *rng.Facade) Proposal {
	nonDefault := rs.NRules() - 1
	i := f.DiscreteUniform(nonDefault)
	j := i
	for j == i {
		j = f.DiscreteUniform(nonDefault)
	}
	return Proposal{Move: MoveSwap, Ndx1: i, Ndx2: j, JumpRatio: baseRatio}
}

func proposeAdd(rs *ruleset.RuleList, lib *rulelib.Library, baseRatio float64, f *rng.Facade) Proposal {
	ruleID := pickRandomRule(rs, lib, f)
	position := f.DiscreteUniform(rs.NRules())
	nrules := lib.NRules()
	jumpRatio := baseRatio * float64(nrules-1-rs.NRules())
	return Proposal{Move: MoveAdd, Ndx1: ruleID, Ndx2: position, JumpRatio: jumpRatio}
}

func proposeDelete(rs *ruleset.RuleList, lib *rulelib.Library, baseRatio float64, f *rng.Facade) Proposal {
	position := f.DiscreteUniform(rs.NRules() - 1)
	jumpRatio := baseRatio * float64(lib.NRules()-rs.NRules())
	return Proposal{Move: MoveDelete, Ndx1: position, Ndx2: 0, JumpRatio: jumpRatio}
}

// pickRandomRule samples a non-default rule id not currently present
// in rs, uniformly over the complement. Rejection sampling is used for
// sparse lists; once more than half the non-default library is
// already in the list, it samples directly from the complement set to
// bound the expected number of draws (spec.md §9 design note).
func pickRandomRule(rs *ruleset.RuleList, lib *rulelib.Library, f *rng.Facade) int {
	nonDefault := lib.NRules() - 1
	inList := make(map[int]bool, rs.NRules())
	for i := 0; i < rs.NRules()-1; i++ {
		inList[rs.Entry(i).RuleID] = true
	}

	if len(inList) > nonDefault/2 {
		complement := make([]int, 0, nonDefault-len(inList))
		for id := 0; id < nonDefault; id++ {
			if !inList[id] {
				complement = append(complement, id)
			}
		}
		return complement[f.DiscreteUniform(len(complement))]
	}

	for {
		id := f.DiscreteUniform(nonDefault)
		if !inList[id] {
			return id
		}
	}
}
