package search

import (
	"math"
	"math/rand"
	"time"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/resolve"
)

// ExplorationParam is the UCB1 exploration constant. Theoretical value is
// sqrt(2); tuned lower here because branch weights already spread visits.
var ExplorationParam = 0.75

func SetExplorationParam(c float64) {
	ExplorationParam = math.Max(0.0, c)
}

type SeedGeneratorFnType func() int64

// SeedGeneratorFn seeds the per-search random source used for branch
// sampling; override it in tests for reproducible trees.
var SeedGeneratorFn SeedGeneratorFnType = func() int64 {
	return time.Now().UnixNano()
}

func SetSeedGeneratorFn(f SeedGeneratorFnType) {
	if f != nil {
		SeedGeneratorFn = f
	}
}

// VisitStat is the per-root-action statistic reported by MonteCarlo.
type VisitStat struct {
	Choice battle.Choice
	Visits int
	Mean   float64 // running mean value in [0, 1], side one's perspective
}

// MonteCarlo is the time-boxed sampling strategy. Both sides pick
// simultaneously, so selection is decoupled UCB1: each side keeps its own
// per-action statistics at a node (side two maximizing 1-value), the pair
// picks a weighted random branch through the resolver, and child nodes
// are keyed by (action pair, branch).
//
// Leaf evaluation policy: a direct evaluator call squashed through a
// sigmoid, not a random-play rollout. This keeps leaf variance at zero so
// differences between runs come only from branch sampling.
type MonteCarlo struct {
	Resolver *resolve.Resolver
	Limiter  *Limiter
	rng      *rand.Rand
}

func NewMonteCarlo(r *resolve.Resolver, limits *Limits) *MonteCarlo {
	return &MonteCarlo{
		Resolver: r,
		Limiter:  NewLimiter(limits),
		rng:      rand.New(rand.NewSource(SeedGeneratorFn())),
	}
}

type mcStat struct {
	visits int
	total  float64
}

func (s mcStat) mean() float64 {
	if s.visits == 0 {
		return 0
	}
	return s.total / float64(s.visits)
}

type mcPair struct{ a1, a2 int }

type mcChild struct {
	pair   mcPair
	branch int
}

type mcNode struct {
	opts1, opts2   []battle.Choice
	stats1, stats2 []mcStat
	visits         int
	children       map[mcChild]*mcNode
	branches       map[mcPair][]battle.Branch
}

func newMCNode(st *battle.State) *mcNode {
	n := &mcNode{
		opts1:    st.Side(battle.SideOne).Options(),
		opts2:    st.Side(battle.SideTwo).Options(),
		children: make(map[mcChild]*mcNode),
		branches: make(map[mcPair][]battle.Branch),
	}
	n.stats1 = make([]mcStat, len(n.opts1))
	n.stats2 = make([]mcStat, len(n.opts2))
	return n
}

// Search runs iterations until the budget trips, then picks the root
// action with the most visits; ties break by higher mean, then by the
// fixed action ordering.
func (m *MonteCarlo) Search(st *battle.State) Result {
	m.Limiter.Reset()
	eng := battle.NewEngine(st)
	defer eng.RevertAll()

	root := newMCNode(st)
	for m.Limiter.Ok(0) {
		m.iterate(eng, root)
	}
	m.Limiter.EvaluateStopReason(0)

	res := Result{Stop: m.Limiter.StopReason()}
	res.VisitStats = make([]VisitStat, len(root.opts1))
	for i, c := range root.opts1 {
		res.VisitStats[i] = VisitStat{Choice: c, Visits: root.stats1[i].visits, Mean: root.stats1[i].mean()}
	}

	if root.visits == 0 {
		res.Choice = root.opts1[0]
		res.Value = normalize(Evaluate(st))
		res.Fallback = true
		return res
	}

	best := 0
	for i := 1; i < len(root.stats1); i++ {
		a, b := root.stats1[i], root.stats1[best]
		if a.visits > b.visits || (a.visits == b.visits && a.mean() > b.mean()) {
			best = i
		}
	}
	res.Choice = root.opts1[best]
	res.Value = root.stats1[best].mean()
	return res
}

// iterate runs one selection/expansion/evaluation/backpropagation pass
// and returns the leaf value from side one's perspective.
func (m *MonteCarlo) iterate(eng *battle.Engine, node *mcNode) float64 {
	st := eng.State()
	if st.Over() {
		node.visits++
		return terminalValue(st)
	}

	a1 := selectUCB(node.stats1, node.visits)
	a2 := selectUCB(node.stats2, node.visits)

	pair := mcPair{a1, a2}
	branches, ok := node.branches[pair]
	if !ok {
		var err error
		branches, err = m.Resolver.Branches(st, node.opts1[a1], node.opts2[a2])
		if err != nil {
			panic(err)
		}
		node.branches[pair] = branches
	}
	idx := m.sampleBranch(branches)

	var v float64
	key := mcChild{pair: pair, branch: idx}
	eng.Apply(branches[idx])
	if child := node.children[key]; child != nil {
		v = m.iterate(eng, child)
	} else {
		// Expansion: one new node per iteration, scored directly.
		child = newMCNode(eng.State())
		node.children[key] = child
		child.visits++
		v = leafValue(eng.State())
	}
	if err := eng.Revert(); err != nil {
		panic(err)
	}

	node.visits++
	node.stats1[a1].visits++
	node.stats1[a1].total += v
	node.stats2[a2].visits++
	node.stats2[a2].total += 1 - v
	return v
}

// selectUCB picks the action with the best upper confidence bound. An
// unvisited action always wins; score ties go to the less visited action,
// then to the fixed ordering.
func selectUCB(stats []mcStat, parentVisits int) int {
	logN := math.Log(float64(max(parentVisits, 1)))
	best, bestUCB := 0, math.Inf(-1)
	for i, s := range stats {
		if s.visits == 0 {
			return i
		}
		ucb := s.mean() + ExplorationParam*math.Sqrt(logN/float64(s.visits))
		if ucb > bestUCB || (ucb == bestUCB && s.visits < stats[best].visits) {
			best, bestUCB = i, ucb
		}
	}
	return best
}

func (m *MonteCarlo) sampleBranch(branches []battle.Branch) int {
	if len(branches) == 1 {
		return 0
	}
	r := m.rng.Float64()
	acc := 0.0
	for i, b := range branches {
		acc += b.Weight
		if r < acc {
			return i
		}
	}
	return len(branches) - 1
}

func leafValue(st *battle.State) float64 {
	if st.Over() {
		return terminalValue(st)
	}
	return normalize(Evaluate(st))
}

func terminalValue(st *battle.State) float64 {
	winner, decided := st.Winner()
	if !decided {
		return 0.5
	}
	if winner == battle.SideOne {
		return 1
	}
	return 0
}

// normalize squashes the raw evaluation into [0, 1].
func normalize(v float64) float64 {
	return 1 / (1 + math.Exp(-v/200))
}
