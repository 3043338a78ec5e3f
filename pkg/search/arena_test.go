package search

import (
	"reflect"
	"testing"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/resolve"
)

// arenaPlayer picks side one's action for the state it is handed.
type arenaPlayer func(*battle.State) battle.Choice

// mirrored returns the state with the sides swapped, so one strategy
// implementation can play either seat.
func mirrored(st *battle.State) *battle.State {
	out := st.Clone()
	out.Sides[0], out.Sides[1] = out.Sides[1], out.Sides[0]
	return out
}

// playout pits two players against each other on a private clone each,
// resolving turns on a referee state until the battle ends or the turn
// cap is hit. Returns the winner, if any.
func playout(t *testing.T, r *resolve.Resolver, st *battle.State, p1, p2 arenaPlayer, maxTurns int) (battle.SideID, bool) {
	t.Helper()
	referee := st.Clone()
	eng := battle.NewEngine(referee)

	for turn := 0; turn < maxTurns && !referee.Over(); turn++ {
		c1 := p1(referee.Clone())
		// A choice is index-based, so side two's pick on the mirrored
		// state maps onto the referee unchanged.
		c2 := p2(mirrored(referee))

		if !referee.Side(battle.SideOne).Legal(c1) {
			t.Fatalf("turn %d: player one picked illegal action %s", turn, c1)
		}
		if !referee.Side(battle.SideTwo).Legal(c2) {
			t.Fatalf("turn %d: player two picked illegal action %s", turn, c2)
		}

		branches, err := r.Branches(referee, c1, c2)
		if err != nil {
			t.Fatal(err)
		}
		// Deterministic playout: always take the heaviest branch.
		best := 0
		for i := range branches {
			if branches[i].Weight > branches[best].Weight {
				best = i
			}
		}
		eng.Apply(branches[best])
	}
	return referee.Winner()
}

// TestArenaStrategiesFinishAGame runs a full match between iterative
// deepening and MCTS, each on independent clones, and checks the shared
// original state is never disturbed.
func TestArenaStrategiesFinishAGame(t *testing.T) {
	if testing.Short() {
		t.Skip("arena playout is slow")
	}
	g := gen9(t)
	st := richState(t, g)
	before := st.Clone()
	r := resolve.New(g)

	deepener := func(s *battle.State) battle.Choice {
		d := NewDeepening(resolve.New(g), true, DefaultLimits().SetMovetime(50))
		return d.Search(s).Choice
	}
	sampler := func(s *battle.State) battle.Choice {
		m := NewMonteCarlo(resolve.New(g), DefaultLimits().SetMovetime(50))
		return m.Search(s).Choice
	}

	winner, decided := playout(t, r, st, deepener, sampler, 200)
	if decided {
		t.Logf("arena: %s wins", winner)
	} else {
		t.Log("arena: no decision within the turn cap")
	}

	if !reflect.DeepEqual(st, before) {
		t.Fatal("arena playout disturbed the shared original state")
	}
}
