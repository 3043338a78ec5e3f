package search

import (
	"sort"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/resolve"
)

// Deepening wraps Expectimax in a wall-clock budget: depth 1, 2, 3, …
// until the limiter trips. Only fully completed depths are ever reported;
// an interrupted depth is discarded. If not even depth 1 completes, the
// fallback is deterministic: the first legal action under the fixed
// option ordering, valued by the bare evaluator.
type Deepening struct {
	Expectimax *Expectimax
	Limiter    *Limiter
}

func NewDeepening(r *resolve.Resolver, prune bool, limits *Limits) *Deepening {
	return &Deepening{
		Expectimax: NewExpectimax(r, prune),
		Limiter:    NewLimiter(limits),
	}
}

func (d *Deepening) Search(st *battle.State) Result {
	d.Limiter.Reset()
	eng := battle.NewEngine(st)
	defer eng.RevertAll()

	var best Result
	completed := false
	var order []battle.Choice

	depth := 1
	for d.Limiter.Ok(depth) {
		res, ok := d.Expectimax.root(eng, depth, d.Limiter, order)
		if !ok {
			break
		}
		res.Depth = depth
		best = res
		completed = true

		// Root actions are revisited best-first next depth, which tightens
		// the pruning bound early.
		order = reorderChoices(res.Alternatives)
		depth++
	}

	if !completed {
		best = Result{
			Choice:   st.Side(battle.SideOne).Options()[0],
			Value:    Evaluate(st),
			Fallback: true,
		}
	}
	d.Limiter.EvaluateStopReason(depth)
	best.Stop = d.Limiter.StopReason()
	return best
}

func reorderChoices(alts []Alternative) []battle.Choice {
	sorted := make([]Alternative, len(alts))
	copy(sorted, alts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	out := make([]battle.Choice, len(sorted))
	for i, a := range sorted {
		out[i] = a.Choice
	}
	return out
}
