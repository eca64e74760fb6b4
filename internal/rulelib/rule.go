// Package rulelib holds the immutable rule catalog and label vectors a
// training run searches over. Nothing in this package mutates after
// construction; RuleLibrary is safe to share read-only across
// sequential chains within one process.
package rulelib

import (
	"errors"
	"fmt"

	"github.com/fingoldin/sbrlmod/internal/bitset"
)

// MaxCardinality bounds the number of literals a mined rule's
// antecedent may contain.
const MaxCardinality = 10

// ErrInvalidParams is returned by constructors when caller-supplied
// arguments violate the documented preconditions.
var ErrInvalidParams = errors.New("sbrlmod: invalid parameters")

// ErrOutOfMemory is the allocation-failure error kind named in
// SPEC_FULL.md §7. No constructor in this module returns it: a failed
// make/append in Go panics rather than returning an error, so nothing
// here can produce it by the normal control-flow path documented for
// the other two error kinds. It is declared, not wired, to keep the
// three-error-kind surface SPEC_FULL.md specifies intact (see
// DESIGN.md's Open Question decisions).
var ErrOutOfMemory = errors.New("sbrl: allocation failure")

// Rule is an immutable catalog entry: a mined boolean antecedent and
// its capture set over the full training sample.
type Rule struct {
	ID          int
	Cardinality int
	Truthtable  *bitset.Vector
	Support     int
}

// Params bundles the hyperparameters and run-sizing knobs external
// collaborators supply to a training run.
type Params struct {
	Lambda    float64
	Eta       float64
	Alpha     [2]float64
	Iters     int
	InitSize  int
	NChain    int
	Threshold float64
}

// Validate checks Params against spec.md §7's InvalidParams conditions.
func (p Params) Validate(nrules int) error {
	if nrules < 2 {
		return fmt.Errorf("%w: nrules must be >= 2, got %d", ErrInvalidParams, nrules)
	}
	if p.InitSize < 1 || p.InitSize >= nrules {
		return fmt.Errorf("%w: init_size must be in [1, nrules), got %d (nrules=%d)", ErrInvalidParams, p.InitSize, nrules)
	}
	if p.Lambda <= 0 {
		return fmt.Errorf("%w: lambda must be positive, got %f", ErrInvalidParams, p.Lambda)
	}
	if p.Eta <= 0 {
		return fmt.Errorf("%w: eta must be positive, got %f", ErrInvalidParams, p.Eta)
	}
	if p.Alpha[0] <= 0 || p.Alpha[1] <= 0 {
		return fmt.Errorf("%w: alpha[0] and alpha[1] must be positive, got %v", ErrInvalidParams, p.Alpha)
	}
	if p.NChain < 1 {
		return fmt.Errorf("%w: nchain must be >= 1, got %d", ErrInvalidParams, p.NChain)
	}
	if p.Iters < 0 {
		return fmt.Errorf("%w: iters must be >= 0, got %d", ErrInvalidParams, p.Iters)
	}
	if p.Threshold < 0 || p.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be in [0,1], got %f", ErrInvalidParams, p.Threshold)
	}
	return nil
}
