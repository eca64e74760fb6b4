// Package sbrl is the public entry point for training a Scalable
// Bayesian Rule List: it wires a caller-supplied rule library loader
// to the posterior evaluator and search drivers, and reports the
// trained list plus its per-position class posterior mean.
package sbrl

import (
	"context"
	"fmt"

	"github.com/fingoldin/sbrlmod/internal/posterior"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
	"github.com/fingoldin/sbrlmod/internal/search"
)

// DataLoader is the seam an external collaborator implements to
// supply a mined rule catalog and its label vectors. The core engine
// never imports a CSV reader or frequent-itemset miner directly — it
// only depends on this interface (spec.md §6's external-interfaces
// framing, generalized into a named Go seam).
type DataLoader interface {
	Load(ctx context.Context) (*rulelib.Library, error)
}

// Method selects which search driver trains the list.
type Method string

const (
	MethodMCMC Method = "mcmc"
	MethodSA   Method = "sa"
)

// Result is the trained list and its posterior summary: the ordered
// rule id sequence (last id is always the library's default rule),
// the per-position class-1 posterior mean, and the best log posterior
// seen during search.
type Result struct {
	RuleIDs         []int
	Theta           []float64
	MaxLogPosterior float64
}

// Train loads a rule library via loader, validates params against it,
// and runs the requested search method, reporting progress through
// the optional callback. seed, if non-nil, makes the run's randomness
// reproducible (spec.md §8's reproducible-MCMC property).
func Train(ctx context.Context, loader DataLoader, params rulelib.Params, method Method, seed *int64, progress search.ProgressFunc) (*Result, error) {
	lib, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("sbrl: loading rule library: %w", err)
	}
	if err := params.Validate(lib.NRules()); err != nil {
		return nil, err
	}

	tables := posterior.NewTables(lib.NRules(), params.Lambda, params.Eta)
	f := rng.NewFacade(seed)

	var best *ruleset.RuleList
	var maxLogPost float64
	switch method {
	case MethodSA:
		best, maxLogPost, err = search.RunSimulatedAnnealing(lib, params, tables, f, progress)
	case MethodMCMC, "":
		best, maxLogPost, err = search.TrainMCMC(lib, params, tables, f, progress)
	default:
		return nil, fmt.Errorf("sbrl: unknown method %q", method)
	}
	if err != nil {
		return nil, fmt.Errorf("sbrl: training: %w", err)
	}

	return &Result{
		RuleIDs:         ruleset.Backup(best),
		Theta:           posterior.Theta(best, lib, params),
		MaxLogPosterior: maxLogPost,
	}, nil
}
