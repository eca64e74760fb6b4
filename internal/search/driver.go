// Package search implements the two chain drivers — Metropolis-Hastings
// MCMC and simulated annealing — built on the single propose routine
// spec.md §4.5 describes: copy, apply a kernel move, score, then accept
// or reject via a predicate parameterized over the move's context.
package search

import (
	"fmt"
	"math"

	"github.com/fingoldin/sbrlmod/internal/posterior"
	"github.com/fingoldin/sbrlmod/internal/proposal"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
)

// Event reports a new best-seen posterior to an optional progress
// callback — ambient wiring for internal/api's WebSocket hub, not part
// of the core search contract (SPEC_FULL.md §4.5).
type Event struct {
	Iteration       int
	MaxLogPosterior float64
	NAdd            int
	NDelete         int
	NSwap           int
	NReject         int
}

// ProgressFunc is invoked after every accepted improvement to the
// running best posterior.
type ProgressFunc func(Event)

// Counters tracks move and rejection tallies across a chain, mirroring
// the source's file-scope n_add/n_delete/n_swap/nsuccessful_rej
// counters without the shared mutable state.
type Counters struct {
	NAdd    int
	NDelete int
	NSwap   int
	NReject int
}

// acceptFunc mirrors the source's accept_func(new, old, prefix_bound,
// max_log_post, extra) signature. jumpRatio is always the kernel's
// jump ratio for the move under consideration; the MCMC predicate
// consumes it, the SA predicate ignores it in favor of a temperature
// closed over at construction — both are legitimate readings of the
// spec's generic "extra" parameter (spec.md §8 note).
type acceptFunc func(newLogPost, oldLogPost, prefixBound, maxLogPost, jumpRatio float64) bool

func mcmcAccept(f *rng.Facade) acceptFunc {
	return func(newLogPost, oldLogPost, prefixBound, maxLogPost, jumpRatio float64) bool {
		if prefixBound <= maxLogPost {
			return false
		}
		u := f.Uniform()
		return math.Log(u) < (newLogPost-oldLogPost)+math.Log(jumpRatio)
	}
}

func saAccept(f *rng.Facade, temperature float64) acceptFunc {
	return func(newLogPost, oldLogPost, prefixBound, maxLogPost, _ float64) bool {
		if prefixBound <= maxLogPost {
			return false
		}
		if newLogPost > oldLogPost {
			return true
		}
		u := f.Uniform()
		return math.Log(u) < (newLogPost-oldLogPost)/temperature
	}
}

// propose is the shared primitive: deep-copy rs, draw a kernel move,
// apply it, score the result, and accept or reject via accept. It
// returns the surviving list (new or old) and its log posterior.
//
// A kernel-applied move that ruleset rejects (which the kernel's
// invariants should make impossible) and a numeric failure from
// posterior.Evaluate are both treated as an unconditional rejection —
// the same branch-and-bound handling spec.md §7 mandates for
// ErrNumericFailure, generalized to cover both defensively.
func propose(rs *ruleset.RuleList, lib *rulelib.Library, params rulelib.Params, tables *posterior.Tables, logPost, maxLogPost float64, counters *Counters, accept acceptFunc, f *rng.Facade) (*ruleset.RuleList, float64) {
	rsNew := ruleset.Copy(rs)
	p := proposal.Propose(rsNew, lib, f)

	var changeNdx int
	var applyErr error
	switch p.Move {
	case proposal.MoveAdd:
		applyErr = ruleset.Add(lib, rsNew, p.Ndx1, p.Ndx2)
		changeNdx = p.Ndx2
		counters.NAdd++
	case proposal.MoveDelete:
		applyErr = ruleset.Delete(lib, rsNew, p.Ndx1)
		changeNdx = p.Ndx1
		counters.NDelete++
	case proposal.MoveSwap:
		applyErr = ruleset.SwapAny(lib, rsNew, p.Ndx1, p.Ndx2)
		changeNdx = p.Ndx1
		counters.NSwap++
	}
	if applyErr != nil {
		counters.NReject++
		return rs, logPost
	}

	newLogPost, prefixBound, err := posterior.Evaluate(rsNew, lib, params, tables, changeNdx)
	if err != nil {
		counters.NReject++
		return rs, logPost
	}

	if prefixBound < maxLogPost {
		counters.NReject++
		return rs, logPost
	}

	if accept(newLogPost, logPost, prefixBound, maxLogPost, p.JumpRatio) {
		return rsNew, newLogPost
	}
	return rs, logPost
}

// initialize repeatedly draws a random ruleset, scoring each with
// length4bound=0 exactly as the source's run_mcmc init loop does,
// until the prefix bound reaches vStar, the best posterior seen by any
// earlier chain (spec.md §4.5 step 1). Use math.Inf(-1) for the first
// chain — equivalent in effect to the source's -1e9 sentinel, since
// every real prefix bound clears it on the first draw, but without a
// magic number.
func initialize(lib *rulelib.Library, params rulelib.Params, tables *posterior.Tables, vStar float64, f *rng.Facade) (*ruleset.RuleList, float64, error) {
	for {
		rs, err := ruleset.CreateRandom(lib, params.InitSize, f)
		if err != nil {
			return nil, 0, err
		}
		logPost, prefixBound, err := posterior.Evaluate(rs, lib, params, tables, 0)
		if err != nil {
			continue
		}
		if prefixBound >= vStar {
			return rs, logPost, nil
		}
	}
}

// RunMCMC runs a single Metropolis-Hastings chain of params.Iters
// proposals, returning the best list seen (rebuilt from its backed-up
// id sequence) and its log posterior (spec.md §4.5's run_mcmc).
func RunMCMC(lib *rulelib.Library, params rulelib.Params, tables *posterior.Tables, vStar float64, f *rng.Facade, progress ProgressFunc) (*ruleset.RuleList, float64, error) {
	rs, logPost, err := initialize(lib, params, tables, vStar, f)
	if err != nil {
		return nil, 0, fmt.Errorf("run_mcmc: initializing chain: %w", err)
	}

	backup := ruleset.Backup(rs)
	maxLogPosterior := logPost
	counters := &Counters{}
	accept := mcmcAccept(f)

	for i := 0; i < params.Iters; i++ {
		rs, logPost = propose(rs, lib, params, tables, logPost, maxLogPosterior, counters, accept, f)
		if logPost > maxLogPosterior {
			backup = ruleset.Backup(rs)
			maxLogPosterior = logPost
			if progress != nil {
				progress(Event{
					Iteration:       i,
					MaxLogPosterior: maxLogPosterior,
					NAdd:            counters.NAdd,
					NDelete:         counters.NDelete,
					NSwap:           counters.NSwap,
					NReject:         counters.NReject,
				})
			}
		}
	}

	best, err := ruleset.Rebuild(backup, lib)
	if err != nil {
		return nil, 0, fmt.Errorf("run_mcmc: rebuilding best list: %w", err)
	}
	return best, maxLogPosterior, nil
}

// TrainMCMC runs params.NChain independent MCMC chains and keeps the
// best-scoring final list, passing the best posterior seen over all
// earlier chains as the next chain's v_star (spec.md §4.5's multi-chain
// training).
func TrainMCMC(lib *rulelib.Library, params rulelib.Params, tables *posterior.Tables, f *rng.Facade, progress ProgressFunc) (*ruleset.RuleList, float64, error) {
	best, bestLogPost, err := RunMCMC(lib, params, tables, math.Inf(-1), f, progress)
	if err != nil {
		return nil, 0, err
	}

	for chain := 1; chain < params.NChain; chain++ {
		rs, logPost, err := RunMCMC(lib, params, tables, bestLogPost, f, progress)
		if err != nil {
			return nil, 0, err
		}
		if logPost >= bestLogPost {
			best, bestLogPost = rs, logPost
		}
	}
	return best, bestLogPost, nil
}

const itersPerStep = 200

// coolingSchedule precomputes the temperature sequence of spec.md §4.5:
// tmp[0]=1, tmp[i]=tmp[i-1]+exp(0.25*(i+1)) for i=1..27, emitting
// 1/(i+1) for ⌊tmp[i-1]⌋..⌊tmp[i]⌋-1 timepoints. That gives 4951
// timepoints (≈10^6 proposals at itersPerStep each), starting at 1/2.
func coolingSchedule() []float64 {
	tmp := make([]float64, 28)
	tmp[0] = 1
	var schedule []float64
	for i := 1; i < 28; i++ {
		tmp[i] = tmp[i-1] + math.Exp(0.25*float64(i+1))
		for j := int(tmp[i-1]); j < int(tmp[i]); j++ {
			schedule = append(schedule, 1.0/float64(i+1))
		}
	}
	return schedule
}

// RunSimulatedAnnealing runs the SA variant of the chain driver over
// the precomputed cooling schedule, itersPerStep proposals per
// timepoint (spec.md §4.5's run_simulated_annealing).
func RunSimulatedAnnealing(lib *rulelib.Library, params rulelib.Params, tables *posterior.Tables, f *rng.Facade, progress ProgressFunc) (*ruleset.RuleList, float64, error) {
	rs, err := ruleset.CreateRandom(lib, params.InitSize, f)
	if err != nil {
		return nil, 0, fmt.Errorf("run_simulated_annealing: initializing chain: %w", err)
	}
	logPost, _, err := posterior.Evaluate(rs, lib, params, tables, -1)
	if err != nil {
		return nil, 0, fmt.Errorf("run_simulated_annealing: scoring initial list: %w", err)
	}

	backup := ruleset.Backup(rs)
	maxLogPosterior := logPost
	counters := &Counters{}
	schedule := coolingSchedule()

	iteration := 0
	for _, tk := range schedule {
		accept := saAccept(f, tk)
		for step := 0; step < itersPerStep; step++ {
			rs, logPost = propose(rs, lib, params, tables, logPost, maxLogPosterior, counters, accept, f)
			if logPost > maxLogPosterior {
				backup = ruleset.Backup(rs)
				maxLogPosterior = logPost
				if progress != nil {
					progress(Event{
						Iteration:       iteration,
						MaxLogPosterior: maxLogPosterior,
						NAdd:            counters.NAdd,
						NDelete:         counters.NDelete,
						NSwap:           counters.NSwap,
						NReject:         counters.NReject,
					})
				}
			}
			iteration++
		}
	}

	best, err := ruleset.Rebuild(backup, lib)
	if err != nil {
		return nil, 0, fmt.Errorf("run_simulated_annealing: rebuilding best list: %w", err)
	}
	return best, maxLogPosterior, nil
}
