// Package posterior computes the log posterior of a rule list under
// the hierarchical Poisson/Dirichlet-multinomial generative model, and
// the prefix upper bound the search driver uses to prune proposals.
package posterior

import (
	"errors"
	"math"

	"github.com/fingoldin/sbrlmod/internal/bitset"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
)

// ErrNumericFailure is returned when the running normalization
// constant goes non-positive, log_prior goes NaN, or a position's
// cardinality count is already exhausted, mid-computation (spec.md §7,
// resolving source bug §9.4). The caller — the search
// driver's propose() — treats this exactly like a prefix-bound
// failure: reject unconditionally, count the event, keep going.
var ErrNumericFailure = errors.New("sbrlmod: numeric failure in log-prior computation")

// Evaluate computes (log_posterior, prefix_bound) for rs under params,
// using the precomputed tables. length4bound is the position that was
// just modified by the proposal under evaluation, or -1 to disable the
// prefix bound (the evaluator still returns a value in that slot — the
// lambda prefix term alone — and callers that pass -1 ignore it).
func Evaluate(rs *ruleset.RuleList, lib *rulelib.Library, params rulelib.Params, tables *Tables, length4bound int) (logPosterior, prefixBound float64, err error) {
	m := rs.NRules() - 1 // non-default positions

	cardCount := lib.CardinalityCounts()
	normConstant := tables.etaNorm
	logPrior := tables.lambdaPMF(m)

	prefixPrior := 0.0
	if float64(m) > params.Lambda {
		prefixPrior += tables.lambdaPMF(m)
	} else {
		// Preserves source behavior (spec.md §9 redesign-flag 2): indexes
		// the lambda table by the floored hyperparameter itself, not by m.
		prefixPrior += tables.lambdaPMF(int(params.Lambda))
	}

	for i := 0; i < m; i++ {
		li := lib.Rule(rs.Entry(i).RuleID).Cardinality

		if normConstant <= 0 || math.IsNaN(logPrior) || cardCount[li] <= 0 {
			return 0, 0, ErrNumericFailure
		}

		term := tables.logEtaPMF[li] - math.Log(normConstant) - math.Log(float64(cardCount[li]))
		logPrior += term
		if math.IsNaN(logPrior) {
			return 0, 0, ErrNumericFailure
		}

		if i <= length4bound {
			prefixPrior += term
		}

		cardCount[li]--
		if cardCount[li] == 0 {
			normConstant -= math.Exp(tables.logEtaPMF[li])
		}
	}

	class0, class1 := lib.Labels()
	left0, left1 := class0.PopCount(), class1.PopCount()
	_ = class1 // n1 is derived from ncaptured-n0; class1 only anchors left1's initial value

	logLik := 0.0
	prefixLogLik := 0.0
	scratch := bitset.New(rs.NSamples())

	for j := 0; j < rs.NRules(); j++ {
		entry := rs.Entry(j)
		n0 := bitset.And(scratch, entry.Captures, class0)
		n1 := entry.NCaptured - n0

		logLik += rng.LnGamma(float64(n0)+params.Alpha[0]) +
			rng.LnGamma(float64(n1)+params.Alpha[1]) -
			rng.LnGamma(float64(n0+n1)+params.Alpha[0]+params.Alpha[1])

		left0 -= n0
		left1 -= n1

		if j <= length4bound {
			prefixLogLik += rng.LnGamma(float64(n0)+1) +
				rng.LnGamma(float64(n1)+1) -
				rng.LnGamma(float64(n0+n1)+2)

			if j == length4bound {
				prefixLogLik += rng.LnGamma(1) + rng.LnGamma(float64(left0)+1) - rng.LnGamma(float64(left0)+2) +
					rng.LnGamma(1) + rng.LnGamma(float64(left1)+1) - rng.LnGamma(float64(left1)+2)
			}
		}
	}

	return logPrior + logLik, prefixPrior + prefixLogLik, nil
}
