package posterior

import (
	"math"

	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
)

// Tables holds the Poisson PMF caches the evaluator needs on every
// call. Building one is a one-shot, idempotent computation; the
// result is immutable and safe to share by reference across every
// chain of a training run (spec.md §5 and §9 — no package-level
// mutable cache, unlike the C source's file-scope
// log_lambda_pmf/log_eta_pmf/eta_norm statics).
type Tables struct {
	logLambdaPMF []float64 // index 0..nrules-1
	logEtaPMF    [rulelib.MaxCardinality + 1]float64
	etaNorm      float64
}

// NewTables precomputes the lambda and eta Poisson log-PMF tables and
// the truncated eta normalization mass, for a library of the given
// size and hyperparameters.
func NewTables(nrules int, lambda, eta float64) *Tables {
	t := &Tables{logLambdaPMF: make([]float64, nrules)}
	for i := 0; i < nrules; i++ {
		t.logLambdaPMF[i] = rng.LogPoissonPMF(i, lambda)
	}
	for c := 0; c <= rulelib.MaxCardinality; c++ {
		t.logEtaPMF[c] = rng.LogPoissonPMF(c, eta)
	}
	// Truncated/zero-excluded Poisson mass: for simplicity, assume every
	// cardinality up to MaxCardinality appears in the mined rules
	// (spec.md §4.3).
	t.etaNorm = rng.PoissonCDF(rulelib.MaxCardinality, eta) - math.Exp(rng.LogPoissonPMF(0, eta))
	return t
}

// lambdaPMF returns log_lambda_pmf[k], clamping k into the table's
// bounds. The clamp only matters for the lambda-mode prefix term
// (spec.md §9 redesign-flag 2), which indexes by a floored double that
// the source never bounds against nrules; clamping avoids an
// out-of-bounds read while preserving the same value whenever the
// original index was in range.
func (t *Tables) lambdaPMF(k int) float64 {
	if k < 0 {
		k = 0
	}
	if k >= len(t.logLambdaPMF) {
		k = len(t.logLambdaPMF) - 1
	}
	return t.logLambdaPMF[k]
}
