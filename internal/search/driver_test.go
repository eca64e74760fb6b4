package search

import (
	"math"
	"reflect"
	"testing"

	"github.com/fingoldin/sbrlmod/internal/bitset"
	"github.com/fingoldin/sbrlmod/internal/posterior"
	"github.com/fingoldin/sbrlmod/internal/rng"
	"github.com/fingoldin/sbrlmod/internal/rulelib"
	"github.com/fingoldin/sbrlmod/internal/ruleset"
)

func vec(n int, bits ...int) *bitset.Vector {
	v := bitset.New(n)
	for _, b := range bits {
		v.Set(b)
	}
	return v
}

// buildLibrary mirrors internal/ruleset's fixture: 8 samples, 4
// non-default rules of assorted cardinality plus a default rule.
func buildLibrary(t *testing.T) (*rulelib.Library, rulelib.Params) {
	t.Helper()
	label0 := vec(8, 0, 1, 2, 3)
	label1 := vec(8, 4, 5, 6, 7)

	r0 := rulelib.Rule{ID: 0, Cardinality: 1, Truthtable: vec(8, 0, 1), Support: 2}
	r1 := rulelib.Rule{ID: 1, Cardinality: 2, Truthtable: vec(8, 2, 3, 4), Support: 3}
	r2 := rulelib.Rule{ID: 2, Cardinality: 1, Truthtable: vec(8, 5, 6), Support: 2}
	r3 := rulelib.Rule{ID: 3, Cardinality: 3, Truthtable: vec(8, 0, 4, 7), Support: 3}
	def := rulelib.Rule{ID: 4, Cardinality: 0, Truthtable: vec(8, 0, 1, 2, 3, 4, 5, 6, 7), Support: 8}

	lib, err := rulelib.NewLibrary(8, []rulelib.Rule{r0, r1, r2, r3, def}, [2]*bitset.Vector{label0, label1})
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	params := rulelib.Params{Lambda: 1, Eta: 1, Alpha: [2]float64{1, 1}, InitSize: 2, Iters: 40, NChain: 2}
	return lib, params
}

func TestProposePrefixBoundPrunesUnconditionally(t *testing.T) {
	lib, params := buildLibrary(t)
	tables := posterior.NewTables(lib.NRules(), params.Lambda, params.Eta)
	seed := int64(42)
	f := rng.NewFacade(&seed)

	rs, err := ruleset.Rebuild([]int{0, 4}, lib)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	logPost, _, err := posterior.Evaluate(rs, lib, params, tables, 0)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	before := ruleset.Backup(rs)
	counters := &Counters{}
	alwaysAccept := func(newLogPost, oldLogPost, prefixBound, maxLogPost, jumpRatio float64) bool {
		return true
	}

	// An absurdly high max_log_post makes every prefix_bound < max_log_post,
	// so every proposal must be rejected and counted regardless of the
	// (permissive) accept predicate.
	const hugeMaxLogPost = 1e9
	for trial := 0; trial < 20; trial++ {
		rs, logPost = propose(rs, lib, params, tables, logPost, hugeMaxLogPost, counters, alwaysAccept, f)
	}

	if !reflect.DeepEqual(before, ruleset.Backup(rs)) {
		t.Fatalf("proposals were accepted despite the prefix-bound guard: %v -> %v", before, ruleset.Backup(rs))
	}
	if counters.NReject != 20 {
		t.Fatalf("expected 20 prefix-bound rejections counted, got %d", counters.NReject)
	}
}

func TestRunMCMCMonotonicBestPosterior(t *testing.T) {
	lib, params := buildLibrary(t)
	tables := posterior.NewTables(lib.NRules(), params.Lambda, params.Eta)
	seed := int64(5)
	f := rng.NewFacade(&seed)

	var seen []float64
	progress := func(e Event) { seen = append(seen, e.MaxLogPosterior) }

	_, maxLogPost, err := RunMCMC(lib, params, tables, math.Inf(-1), f, progress)
	if err != nil {
		t.Fatalf("RunMCMC: %v", err)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Fatalf("max_log_posterior decreased across progress events: %v", seen)
		}
	}
	if len(seen) > 0 && seen[len(seen)-1] != maxLogPost {
		t.Fatalf("final progress event %f does not match returned posterior %f", seen[len(seen)-1], maxLogPost)
	}
}

func TestTrainMCMCKeepsBestAcrossChains(t *testing.T) {
	lib, params := buildLibrary(t)
	tables := posterior.NewTables(lib.NRules(), params.Lambda, params.Eta)
	seed := int64(9)
	f := rng.NewFacade(&seed)

	best, bestLogPost, err := TrainMCMC(lib, params, tables, f, nil)
	if err != nil {
		t.Fatalf("TrainMCMC: %v", err)
	}
	recomputed, _, err := posterior.Evaluate(best, lib, params, tables, -1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(recomputed-bestLogPost) > 1e-9 {
		t.Fatalf("returned posterior %f does not match recomputed %f", bestLogPost, recomputed)
	}
}

func TestCoolingScheduleMonotonicallyCools(t *testing.T) {
	schedule := coolingSchedule()
	if len(schedule) < 1000 {
		t.Fatalf("expected a large cooling schedule, got %d timepoints", len(schedule))
	}
	for i := 1; i < len(schedule); i++ {
		if schedule[i] > schedule[i-1] {
			t.Fatalf("temperature increased at timepoint %d: %f -> %f", i, schedule[i-1], schedule[i])
		}
	}
}

func TestRunSimulatedAnnealingProducesValidList(t *testing.T) {
	lib, params := buildLibrary(t)
	params.Iters = 0 // SA ignores Iters; it runs its own cooling-schedule loop
	tables := posterior.NewTables(lib.NRules(), params.Lambda, params.Eta)
	seed := int64(17)
	f := rng.NewFacade(&seed)

	// Keep the test fast: override via a small library is not possible here,
	// so only assert the returned list is well-formed rather than run the
	// full ~5,000-timepoint schedule's worth of wall time expectations.
	rs, logPost, err := RunSimulatedAnnealing(lib, params, tables, f, nil)
	if err != nil {
		t.Fatalf("RunSimulatedAnnealing: %v", err)
	}
	if rs.Entry(rs.NRules() - 1).RuleID != lib.DefaultRuleID() {
		t.Fatalf("returned list does not end in the default rule")
	}
	recomputed, _, err := posterior.Evaluate(rs, lib, params, tables, -1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if math.Abs(recomputed-logPost) > 1e-9 {
		t.Fatalf("returned posterior %f does not match recomputed %f", logPost, recomputed)
	}
}
