package search

import (
	"math"
	"os"
	"reflect"
	"testing"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/dex"
	"github.com/lunargale/pokesearch/pkg/resolve"
)

func TestMain(m *testing.M) {
	SetSeedGeneratorFn(func() int64 { return 42 })
	os.Exit(m.Run())
}

func gen9(t *testing.T) *dex.Generation {
	t.Helper()
	g, err := dex.Load("gen9")
	if err != nil {
		t.Fatalf("Load(gen9): %v", err)
	}
	return g
}

func mk(t *testing.T, g *dex.Generation, id string, typ battle.Type, hp, spe int, moves ...string) battle.Pokemon {
	t.Helper()
	p := battle.Pokemon{
		ID: id, Level: 100, Types: [2]battle.Type{typ, battle.Typeless},
		HP: hp, MaxHP: hp,
		Attack: 200, Defense: 200, SpecialAttack: 200, SpecialDefense: 200, Speed: spe,
	}
	for _, name := range moves {
		mv, ok := g.Move(name)
		if !ok {
			t.Fatalf("movedex has no %q", name)
		}
		p.Moves = append(p.Moves, mv)
	}
	return p
}

func newBattle(t *testing.T, s1, s2 []battle.Pokemon) *battle.State {
	t.Helper()
	st, err := battle.NewState(battle.Side{Pokemon: s1}, battle.Side{Pokemon: s2})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestEvaluateHealthDominates(t *testing.T) {
	g := gen9(t)
	s1 := []battle.Pokemon{mk(t, g, "alpha", battle.Normal, 300, 100, "tackle")}
	s2 := []battle.Pokemon{mk(t, g, "beta", battle.Normal, 300, 100, "tackle")}
	st := newBattle(t, s1, s2)

	if v := Evaluate(st); v != 0 {
		t.Errorf("symmetric state evaluates to %g, want 0", v)
	}

	prev := Evaluate(st)
	for _, hp := range []int{250, 150, 50, 1} {
		st.Sides[battle.SideTwo].Pokemon[0].HP = hp
		v := Evaluate(st)
		if v <= prev {
			t.Errorf("score %g at opponent hp %d not above %g: health differential must dominate", v, hp, prev)
		}
		prev = v
	}
}

func TestEvaluateSecondaryTerms(t *testing.T) {
	g := gen9(t)
	base := newBattle(t,
		[]battle.Pokemon{mk(t, g, "alpha", battle.Normal, 300, 100, "tackle")},
		[]battle.Pokemon{mk(t, g, "beta", battle.Normal, 300, 100, "tackle")},
	)
	v0 := Evaluate(base)

	burned := base.Clone()
	burned.Sides[battle.SideTwo].Pokemon[0].Status = battle.Burn
	if v := Evaluate(burned); v <= v0 {
		t.Errorf("opposing burn should raise the score: %g vs %g", v, v0)
	}

	boosted := base.Clone()
	boosted.Sides[battle.SideOne].Pokemon[0].Boosts[battle.Attack] = 2
	if v := Evaluate(boosted); v <= v0 {
		t.Errorf("own boost should raise the score: %g vs %g", v, v0)
	}

	hazards := base.Clone()
	hazards.Sides[battle.SideOne].Conditions[battle.StealthRock] = 1
	if v := Evaluate(hazards); v >= v0 {
		t.Errorf("own-side hazard should lower the score: %g vs %g", v, v0)
	}
}

// koState is the classic endgame: side one's only action guarantees the
// knockout of side two's sole remaining combatant.
func koState(t *testing.T, g *dex.Generation) *battle.State {
	slayer := mk(t, g, "slayer", battle.Normal, 300, 130, "tackle")
	frail := mk(t, g, "frail", battle.Normal, 1, 70, "tackle")
	return newBattle(t, []battle.Pokemon{slayer}, []battle.Pokemon{frail})
}

func TestExpectimaxFindsKO(t *testing.T) {
	g := gen9(t)
	st := koState(t, g)
	e := NewExpectimax(resolve.New(g), false)

	res := e.Search(st, 1)
	want := battle.Choice{Kind: battle.ChoiceMove, Index: 0}
	if res.Choice != want {
		t.Errorf("Choice = %s, want the knockout move", res.Choice)
	}
	if res.Value < WinBonus {
		t.Errorf("Value = %g, want at least the win bonus %g", res.Value, WinBonus)
	}
}

func richState(t *testing.T, g *dex.Generation) *battle.State {
	s1 := []battle.Pokemon{
		mk(t, g, "alpha", battle.Fire, 280, 120, "flamethrower", "willowisp", "swordsdance"),
		mk(t, g, "omega", battle.Water, 300, 80, "surf", "recover"),
	}
	s2 := []battle.Pokemon{
		mk(t, g, "beta", battle.Grass, 290, 100, "gigadrain", "spore"),
		mk(t, g, "gamma", battle.Electric, 260, 140, "thunderbolt", "calmmind"),
	}
	return newBattle(t, s1, s2)
}

func TestPrunedSearchMatchesUnpruned(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)
	r := resolve.New(g)

	for depth := 1; depth <= 2; depth++ {
		plain := NewExpectimax(r, false).Search(st, depth)
		pruned := NewExpectimax(r, true).Search(st, depth)
		if plain.Choice != pruned.Choice {
			t.Errorf("depth %d: pruned chose %s, unpruned chose %s", depth, pruned.Choice, plain.Choice)
		}
		if math.Abs(plain.Value-pruned.Value) > 1e-9 {
			t.Errorf("depth %d: pruned value %g, unpruned value %g", depth, pruned.Value, plain.Value)
		}
	}
}

func TestSearchLeavesStateUntouched(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)
	before := st.Clone()

	NewExpectimax(resolve.New(g), true).Search(st, 2)
	if !reflect.DeepEqual(st, before) {
		t.Fatal("expectation search mutated the state")
	}

	NewDeepening(resolve.New(g), true, DefaultLimits().SetMovetime(50)).Search(st)
	if !reflect.DeepEqual(st, before) {
		t.Fatal("iterative deepening mutated the state")
	}

	NewMonteCarlo(resolve.New(g), DefaultLimits().SetMovetime(50)).Search(st)
	if !reflect.DeepEqual(st, before) {
		t.Fatal("monte carlo search mutated the state")
	}
}

func TestDeepeningMatchesDirectDepth(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)
	r := resolve.New(g)

	const depth = 2
	direct := NewExpectimax(r, true).Search(st, depth)

	d := NewDeepening(r, true, DefaultLimits().SetDepth(depth).SetMovetime(60_000))
	res := d.Search(st)
	if res.Fallback {
		t.Fatal("deepening fell back despite a generous budget")
	}
	if res.Depth != depth {
		t.Fatalf("completed depth = %d, want %d", res.Depth, depth)
	}
	if res.Choice != direct.Choice {
		t.Errorf("deepening chose %s, direct depth-%d chose %s", res.Choice, depth, direct.Choice)
	}
	if math.Abs(res.Value-direct.Value) > 1e-9 {
		t.Errorf("deepening value %g, direct value %g", res.Value, direct.Value)
	}
}

func TestDeepeningFallback(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)

	d := NewDeepening(resolve.New(g), false, DefaultLimits().SetMovetime(0))
	res := d.Search(st)
	if !res.Fallback {
		t.Fatal("zero budget must produce the documented fallback")
	}
	first := st.Side(battle.SideOne).Options()[0]
	if res.Choice != first {
		t.Errorf("fallback choice = %s, want first legal action %s", res.Choice, first)
	}
	if res.Stop&StopMovetime == 0 {
		t.Errorf("StopReason = %s, want Movetime set", res.Stop)
	}
}

func TestMonteCarloFindsKO(t *testing.T) {
	g := gen9(t)
	st := koState(t, g)

	m := NewMonteCarlo(resolve.New(g), DefaultLimits().SetMovetime(100))
	res := m.Search(st)
	if res.Fallback {
		t.Fatal("100ms budget should allow iterations")
	}
	want := battle.Choice{Kind: battle.ChoiceMove, Index: 0}
	if res.Choice != want {
		t.Errorf("Choice = %s, want the knockout move", res.Choice)
	}

	total := 0
	for _, vs := range res.VisitStats {
		total += vs.Visits
	}
	if total == 0 {
		t.Fatal("no visits recorded")
	}
	t.Logf("mcts: %d visits, mean %.3f, stop %s", total, res.Value, res.Stop)
}

func TestMonteCarloFallback(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)

	m := NewMonteCarlo(resolve.New(g), DefaultLimits().SetMovetime(0))
	res := m.Search(st)
	if !res.Fallback {
		t.Fatal("budget too small for one iteration must fall back")
	}
	first := st.Side(battle.SideOne).Options()[0]
	if res.Choice != first {
		t.Errorf("fallback choice = %s, want %s", res.Choice, first)
	}
}

func TestStopReasonString(t *testing.T) {
	cases := []struct {
		sr   StopReason
		want string
	}{
		{StopNone, "None"},
		{StopMovetime, "Movetime"},
		{StopInterrupt | StopDepth, "Interrupt|Depth"},
	}
	for _, tc := range cases {
		if got := tc.sr.String(); got != tc.want {
			t.Errorf("StopReason(%d).String() = %q, want %q", tc.sr, got, tc.want)
		}
	}
}

func TestDeepRevertAllRestoresBitForBit(t *testing.T) {
	g := gen9(t)
	st := richState(t, g)
	before := st.Clone()
	r := resolve.New(g)
	eng := battle.NewEngine(st)

	// Walk a deep zig-zag line, then unwind everything, several times.
	for round := 0; round < 3; round++ {
		for ply := 0; ply < 6; ply++ {
			c1 := st.Side(battle.SideOne).Options()[0]
			c2 := st.Side(battle.SideTwo).Options()[0]
			bs, err := r.Branches(st, c1, c2)
			if err != nil {
				t.Fatal(err)
			}
			eng.Apply(bs[ply%len(bs)])
			if st.Over() {
				break
			}
		}
		eng.RevertAll()
		if !reflect.DeepEqual(st, before) {
			t.Fatalf("round %d: state differs after RevertAll", round)
		}
	}
}
