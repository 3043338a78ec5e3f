package search

import (
	"fmt"
	"math"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/resolve"
)

// WinBonus is added per remaining ply when a line ends the battle, so
// faster wins (and slower losses) dominate the raw evaluation.
const WinBonus = 1000.0

// Alternative is one root action with its guaranteed (worst-case over the
// opponent's replies) expected value. Pruned rows keep the partial value
// computed before they were abandoned.
type Alternative struct {
	Choice battle.Choice
	Value  float64
}

// Result is the outcome of any strategy.
type Result struct {
	Choice       battle.Choice
	Value        float64
	Alternatives []Alternative
	Depth        int
	Stop         StopReason
	// Fallback marks the deterministic first-legal-action result returned
	// when a budget expired before any depth completed.
	Fallback   bool
	VisitStats []VisitStat
}

// Expectimax is the bounded-depth expectation search: every pair of legal
// actions expands through the resolver into weighted branches whose values
// are combined as a probability-weighted sum, and the pair matrix is
// collapsed by maximin from side one's point of view.
//
// With Prune set, a row is abandoned once its running minimum falls below
// the best guaranteed value so far. Chance nodes make per-branch bounds
// unsound, so pruning only ever skips whole remaining columns of a row,
// which cannot change the chosen action or its value.
type Expectimax struct {
	Resolver *resolve.Resolver
	Prune    bool
}

func NewExpectimax(r *resolve.Resolver, prune bool) *Expectimax {
	return &Expectimax{Resolver: r, Prune: prune}
}

// Search runs to the fixed depth and returns side one's best action, its
// value, and the worst-case values of every alternative.
func (e *Expectimax) Search(st *battle.State, depth int) Result {
	eng := battle.NewEngine(st)
	defer eng.RevertAll()
	res, _ := e.root(eng, depth, nil, nil)
	return res
}

// root computes the full action-pair matrix for the live state. A nil
// limiter means no deadline. Returns ok=false when interrupted; the undo
// stack is back at its entry depth either way.
func (e *Expectimax) root(eng *battle.Engine, depth int, lim *Limiter, order []battle.Choice) (Result, bool) {
	opts1 := eng.State().Side(battle.SideOne).Options()
	if order != nil {
		opts1 = order
	}
	opts2 := eng.State().Side(battle.SideTwo).Options()

	matrix, ok := e.matrix(eng, depth, lim, opts1, opts2)
	if !ok {
		return Result{}, false
	}

	res := Result{Depth: depth, Alternatives: make([]Alternative, len(opts1))}
	bestVal := math.Inf(-1)
	for i := range opts1 {
		rowMin := rowMinimum(matrix[i])
		res.Alternatives[i] = Alternative{Choice: opts1[i], Value: rowMin}
		if rowMin > bestVal {
			bestVal = rowMin
			res.Choice = opts1[i]
		}
	}
	res.Value = bestVal
	return res, true
}

// matrix fills expected values for every (side one action, side two
// action) pair. Pruned cells hold NaN; NaN never wins a comparison, so
// the maximin pick is unaffected.
func (e *Expectimax) matrix(eng *battle.Engine, depth int, lim *Limiter, opts1, opts2 []battle.Choice) ([][]float64, bool) {
	m := make([][]float64, len(opts1))
	alpha := math.Inf(-1)
	base := eng.Depth()

	for i, c1 := range opts1 {
		m[i] = make([]float64, len(opts2))
		rowMin := math.Inf(1)
		for j, c2 := range opts2 {
			if e.Prune && rowMin < alpha {
				m[i][j] = math.NaN()
				continue
			}
			if lim != nil && !lim.Ok(depth) {
				eng.RevertTo(base)
				return nil, false
			}

			branches, err := e.Resolver.Branches(eng.State(), c1, c2)
			if err != nil {
				// Options() only yields legal actions; anything else is a
				// precondition violation, not a recoverable state.
				panic(fmt.Sprintf("search: resolver rejected legal actions: %v", err))
			}
			var v float64
			ok := true
			for _, b := range branches {
				eng.Apply(b)
				var bv float64
				bv, ok = e.value(eng, depth-1, lim)
				if err := eng.Revert(); err != nil {
					panic(err)
				}
				if !ok {
					break
				}
				v += b.Weight * bv
			}
			if !ok {
				eng.RevertTo(base)
				return nil, false
			}
			m[i][j] = v
			if v < rowMin {
				rowMin = v
			}
		}
		if rowMin > alpha {
			alpha = rowMin
		}
	}
	return m, true
}

// value scores the live state: terminal states get the evaluation plus a
// depth-scaled win bonus, depth zero gets the raw evaluation, anything
// else recurses into another maximin matrix.
func (e *Expectimax) value(eng *battle.Engine, depth int, lim *Limiter) (float64, bool) {
	st := eng.State()
	if st.Over() {
		v := Evaluate(st)
		if winner, decided := st.Winner(); decided {
			bonus := WinBonus * float64(depth+1)
			if winner == battle.SideOne {
				v += bonus
			} else {
				v -= bonus
			}
		}
		return v, true
	}
	if depth <= 0 {
		return Evaluate(st), true
	}

	opts1 := st.Side(battle.SideOne).Options()
	opts2 := st.Side(battle.SideTwo).Options()
	m, ok := e.matrix(eng, depth, lim, opts1, opts2)
	if !ok {
		return 0, false
	}
	best := math.Inf(-1)
	for i := range m {
		if rm := rowMinimum(m[i]); rm > best {
			best = rm
		}
	}
	return best, true
}

// rowMinimum skips NaN cells: a pruned cell was only abandoned because the
// row already lost, so its absence cannot flip the result.
func rowMinimum(row []float64) float64 {
	rm := math.Inf(1)
	for _, v := range row {
		if v < rm {
			rm = v
		}
	}
	return rm
}
