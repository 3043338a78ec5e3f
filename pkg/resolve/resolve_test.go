package resolve

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/dex"
)

const epsilon = 1e-9

func gen9(t *testing.T) *dex.Generation {
	t.Helper()
	g, err := dex.Load("gen9")
	if err != nil {
		t.Fatalf("Load(gen9): %v", err)
	}
	return g
}

func mk(t *testing.T, g *dex.Generation, id string, types [2]battle.Type, hp, spe int, moves ...string) battle.Pokemon {
	t.Helper()
	p := battle.Pokemon{
		ID: id, Level: 100, Types: types,
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

func move(i int) battle.Choice     { return battle.Choice{Kind: battle.ChoiceMove, Index: i} }
func switchTo(i int) battle.Choice { return battle.Choice{Kind: battle.ChoiceSwitch, Index: i} }

func totalWeight(bs []battle.Branch) float64 {
	var sum float64
	for _, b := range bs {
		sum += b.Weight
	}
	return sum
}

// checkBranches asserts the two core resolver invariants on a branch set:
// weights sum to 1 and every branch reverts exactly.
func checkBranches(t *testing.T, st *battle.State, bs []battle.Branch) {
	t.Helper()
	if len(bs) == 0 {
		t.Fatal("no branches")
	}
	if sum := totalWeight(bs); math.Abs(sum-1) > epsilon {
		t.Errorf("branch weights sum to %g, want 1", sum)
	}
	before := st.Clone()
	eng := battle.NewEngine(st)
	for i, b := range bs {
		eng.Apply(b)
		eng.RevertAll()
		if !reflect.DeepEqual(st, before) {
			t.Fatalf("branch %d does not revert exactly: %s", i, b)
		}
	}
}

func TestBranchesIllegalAction(t *testing.T) {
	g := gen9(t)
	st := newBattle(t,
		[]battle.Pokemon{mk(t, g, "alpha", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "tackle")},
		[]battle.Pokemon{mk(t, g, "beta", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 90, "tackle")},
	)
	r := New(g)
	if _, err := r.Branches(st, move(3), move(0)); !errors.Is(err, battle.ErrIllegalAction) {
		t.Errorf("Branches with bad move slot = %v, want ErrIllegalAction", err)
	}
	if _, err := r.Branches(st, move(0), switchTo(0)); !errors.Is(err, battle.ErrIllegalAction) {
		t.Errorf("Branches with switch to active slot = %v, want ErrIllegalAction", err)
	}
}

func TestBranchesSweep(t *testing.T) {
	g := gen9(t)
	s1 := []battle.Pokemon{
		mk(t, g, "alpha", [2]battle.Type{battle.Fire, battle.Typeless}, 280, 120,
			"flamethrower", "willowisp", "highjumpkick", "substitute"),
		mk(t, g, "omega", [2]battle.Type{battle.Water, battle.Typeless}, 300, 80, "surf", "recover"),
	}
	s2 := []battle.Pokemon{
		mk(t, g, "beta", [2]battle.Type{battle.Grass, battle.Poison}, 290, 100,
			"gigadrain", "spore", "leechseed", "stealthrock"),
		mk(t, g, "gamma", [2]battle.Type{battle.Electric, battle.Flying}, 260, 140, "thunderbolt", "ironhead"),
	}
	st := newBattle(t, s1, s2)
	st.Weather = battle.Sand
	st.WeatherTurns = 3
	st.Sides[battle.SideTwo].Conditions[battle.Spikes] = 1

	r := New(g)
	for _, c1 := range st.Side(battle.SideOne).Options() {
		for _, c2 := range st.Side(battle.SideTwo).Options() {
			bs, err := r.Branches(st, c1, c2)
			if err != nil {
				t.Fatalf("Branches(%s, %s): %v", c1, c2, err)
			}
			checkBranches(t, st, bs)
		}
	}
}

func TestActsFirst(t *testing.T) {
	g := gen9(t)
	fast := mk(t, g, "fast", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 130, "tackle", "quickattack")
	slow := mk(t, g, "slow", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 70, "tackle", "quickattack")
	bench := mk(t, g, "bench", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "tackle")

	st := newBattle(t, []battle.Pokemon{slow, bench}, []battle.Pokemon{fast, bench})
	r := New(g)

	if got := r.ActsFirst(st, move(0), move(0)); got != battle.SideTwo {
		t.Errorf("faster side should act first, got %s", got)
	}
	if got := r.ActsFirst(st, move(1), move(0)); got != battle.SideOne {
		t.Errorf("priority should beat speed, got %s", got)
	}
	if got := r.ActsFirst(st, switchTo(1), move(1)); got != battle.SideOne {
		t.Errorf("switch should resolve before any move, got %s", got)
	}

	st.TrickRoom = true
	if got := r.ActsFirst(st, move(0), move(0)); got != battle.SideOne {
		t.Errorf("trick room should invert the speed order, got %s", got)
	}
	if got := r.ActsFirst(st, move(0), move(1)); got != battle.SideTwo {
		t.Errorf("trick room must not invert priority, got %s", got)
	}
	st.TrickRoom = false

	// Exact speed tie goes to side one.
	st.Sides[battle.SideOne].Pokemon[0].Speed = 130
	if got := r.ActsFirst(st, move(0), move(0)); got != battle.SideOne {
		t.Errorf("speed tie should go to side one, got %s", got)
	}
}

func TestKOInterruptsSecondActor(t *testing.T) {
	g := gen9(t)
	fast := mk(t, g, "fast", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 130, "tackle")
	frail := mk(t, g, "frail", [2]battle.Type{battle.Normal, battle.Typeless}, 1, 70, "tackle")
	bench := mk(t, g, "bench", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "tackle")

	st := newBattle(t, []battle.Pokemon{fast}, []battle.Pokemon{frail, bench})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	for _, b := range bs {
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrDecrementPP && in.Side == battle.SideTwo {
				t.Fatalf("knocked-out side still acted: %s", b)
			}
		}
	}
}

func TestParalysisBranches(t *testing.T) {
	g := gen9(t)
	para := mk(t, g, "para", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "swordsdance")
	para.Status = battle.Paralyze
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 90, "calmmind")

	st := newBattle(t, []battle.Pokemon{para}, []battle.Pokemon{other})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	// Full paralysis (25%) wastes the turn, acting (75%) boosts.
	if len(bs) != 2 {
		t.Fatalf("got %d branches, want 2: %v", len(bs), bs)
	}
	var acted, wasted bool
	for _, b := range bs {
		boosted := false
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrBoost && in.Side == battle.SideOne {
				boosted = true
			}
		}
		if boosted {
			acted = true
			if math.Abs(b.Weight-0.75) > epsilon {
				t.Errorf("acting branch weight = %g, want 0.75", b.Weight)
			}
		} else {
			wasted = true
			if math.Abs(b.Weight-0.25) > epsilon {
				t.Errorf("full-paralysis branch weight = %g, want 0.25", b.Weight)
			}
		}
	}
	if !acted || !wasted {
		t.Errorf("expected one acting and one wasted branch, got %v", bs)
	}
}

func TestSleepAndWake(t *testing.T) {
	g := gen9(t)
	asleep := mk(t, g, "asleep", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "swordsdance")
	asleep.Status = battle.Sleep
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 90, "calmmind")

	st := newBattle(t, []battle.Pokemon{asleep}, []battle.Pokemon{other})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	wake := g.Mech.SleepWakeChance
	for _, b := range bs {
		woke := false
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrChangeStatus && in.Side == battle.SideOne &&
				battle.Status(in.Amount) == battle.StatusNone {
				woke = true
			}
		}
		want := 1 - wake
		if woke {
			want = wake
		}
		if math.Abs(b.Weight-want) > epsilon {
			t.Errorf("branch weight = %g, want %g (%s)", b.Weight, want, b)
		}
	}
}

func TestFlinchStopsSlowerSide(t *testing.T) {
	g := gen9(t)
	fast := mk(t, g, "fast", [2]battle.Type{battle.Steel, battle.Typeless}, 300, 130, "ironhead")
	slow := mk(t, g, "slow", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 70, "swordsdance")

	st := newBattle(t, []battle.Pokemon{fast}, []battle.Pokemon{slow})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	var flinchWeight float64
	for _, b := range bs {
		flinched := false
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrApplyVolatile && battle.Volatile(in.A) == battle.Flinch {
				flinched = true
			}
		}
		if !flinched {
			continue
		}
		flinchWeight += b.Weight
		removed, acted := false, false
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrRemoveVolatile && battle.Volatile(in.A) == battle.Flinch {
				removed = true
			}
			if in.Kind == battle.InstrBoost && in.Side == battle.SideTwo {
				acted = true
			}
		}
		if acted {
			t.Errorf("flinched side still acted: %s", b)
		}
		if !removed {
			t.Errorf("flinch not cleaned up at end of turn: %s", b)
		}
	}
	if math.Abs(flinchWeight-0.3) > epsilon {
		t.Errorf("total flinch probability = %g, want 0.3", flinchWeight)
	}
}

func TestSwitchTakesHazardDamage(t *testing.T) {
	g := gen9(t)
	active := mk(t, g, "active", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "tackle")
	incoming := mk(t, g, "incoming", [2]battle.Type{battle.Fire, battle.Typeless}, 320, 90, "tackle")
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{active, incoming}, []battle.Pokemon{other})
	st.Sides[battle.SideOne].Conditions[battle.StealthRock] = 1
	st.Sides[battle.SideOne].Conditions[battle.Spikes] = 2

	r := New(g)
	bs, err := r.Branches(st, switchTo(1), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	// Rocks hit the fire type for double: 320 * 0.125 * 2 = 80;
	// two spikes layers: 320 * 0.1667 = 53.
	var dmg []int
	for _, in := range bs[0].Instructions {
		if in.Kind == battle.InstrDamage && in.Side == battle.SideOne {
			dmg = append(dmg, in.Amount)
		}
	}
	if len(dmg) < 2 || dmg[0] != 80 || dmg[1] != 53 {
		t.Errorf("hazard damage = %v, want [80 53 ...]", dmg)
	}
}

func TestSwitchResetsOutgoing(t *testing.T) {
	g := gen9(t)
	active := mk(t, g, "active", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "tackle")
	active.Boosts[battle.Attack] = 3
	active.Volatiles.Add(battle.LeechSeed)
	bench := mk(t, g, "bench", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 90, "tackle")
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{active, bench}, []battle.Pokemon{other})
	r := New(g)
	bs, err := r.Branches(st, switchTo(1), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	eng := battle.NewEngine(st)
	eng.Apply(bs[0])
	if got := st.Sides[battle.SideOne].Pokemon[0].Boosts[battle.Attack]; got != 0 {
		t.Errorf("outgoing attack stage = %d after switch, want 0", got)
	}
	if st.Sides[battle.SideOne].Pokemon[0].Volatiles.Has(battle.LeechSeed) {
		t.Error("outgoing volatiles not cleared on switch")
	}
	eng.RevertAll()
}

func TestStatusImmunities(t *testing.T) {
	g := gen9(t)
	cases := []struct {
		name   string
		move   string
		target battle.Pokemon
	}{
		{"fire cannot be burned", "willowisp", mk(t, g, "tgt", [2]battle.Type{battle.Fire, battle.Typeless}, 300, 50, "tackle")},
		{"electric cannot be paralyzed", "thunderwave", mk(t, g, "tgt", [2]battle.Type{battle.Electric, battle.Typeless}, 300, 50, "tackle")},
		{"poison cannot be poisoned", "toxic", mk(t, g, "tgt", [2]battle.Type{battle.Poison, battle.Typeless}, 300, 50, "tackle")},
		{"grass blocks powder", "spore", mk(t, g, "tgt", [2]battle.Type{battle.Grass, battle.Typeless}, 300, 50, "tackle")},
		{"ground blocks thunderwave", "thunderwave", mk(t, g, "tgt", [2]battle.Type{battle.Ground, battle.Typeless}, 300, 50, "tackle")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := mk(t, g, "user", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, tc.move)
			st := newBattle(t, []battle.Pokemon{user}, []battle.Pokemon{tc.target})
			r := New(g)
			bs, err := r.Branches(st, move(0), move(0))
			if err != nil {
				t.Fatal(err)
			}
			checkBranches(t, st, bs)
			for _, b := range bs {
				for _, in := range b.Instructions {
					if in.Kind == battle.InstrChangeStatus && in.Side == battle.SideTwo {
						t.Fatalf("status applied through immunity: %s", b)
					}
				}
			}
		})
	}
}

func TestBoostClamping(t *testing.T) {
	g := gen9(t)
	user := mk(t, g, "user", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "swordsdance")
	user.Boosts[battle.Attack] = 5
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{user}, []battle.Pokemon{other})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	for _, b := range bs {
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrBoost && in.Side == battle.SideOne && in.Amount != 1 {
				t.Errorf("boost at +5 should clamp to +1 more, got %+d", in.Amount)
			}
		}
	}
}

func TestToxicSpikesLayerCap(t *testing.T) {
	g := gen9(t)
	user := mk(t, g, "user", [2]battle.Type{battle.Poison, battle.Typeless}, 300, 100, "toxicspikes")
	tgt := mk(t, g, "tgt", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{user}, []battle.Pokemon{tgt})
	r := New(g)

	layersAdded := func(bs []battle.Branch) int {
		n := 0
		for _, b := range bs {
			for _, in := range b.Instructions {
				if in.Kind == battle.InstrChangeSideCondition &&
					in.Side == battle.SideTwo && in.Cond == battle.ToxicSpikes {
					n += in.Amount
				}
			}
		}
		return n
	}

	// A second and a third layer stack, the fourth is refused.
	for _, layers := range []int{1, 2} {
		st.Sides[battle.SideTwo].Conditions[battle.ToxicSpikes] = layers
		bs, err := r.Branches(st, move(0), move(0))
		if err != nil {
			t.Fatal(err)
		}
		checkBranches(t, st, bs)
		if got := layersAdded(bs); got != 1 {
			t.Errorf("at %d layers: %d layers added, want 1", layers, got)
		}
	}
	st.Sides[battle.SideTwo].Conditions[battle.ToxicSpikes] = 3
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)
	if got := layersAdded(bs); got != 0 {
		t.Errorf("at the 3-layer cap: %d layers added, want 0", got)
	}
}

func TestToxicSpikesPoisonSeverity(t *testing.T) {
	g := gen9(t)
	active := mk(t, g, "active", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "tackle")
	bench := mk(t, g, "bench", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 90, "tackle")
	other := mk(t, g, "other", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "calmmind")

	cases := []struct {
		layers int
		want   battle.Status
	}{
		{1, battle.PoisonStatus},
		{2, battle.Toxic},
		{3, battle.Toxic},
	}
	for _, tc := range cases {
		st := newBattle(t, []battle.Pokemon{active, bench}, []battle.Pokemon{other})
		st.Sides[battle.SideOne].Conditions[battle.ToxicSpikes] = tc.layers
		r := New(g)
		bs, err := r.Branches(st, switchTo(1), move(0))
		if err != nil {
			t.Fatal(err)
		}
		checkBranches(t, st, bs)

		var got battle.Status
		for _, in := range bs[0].Instructions {
			if in.Kind == battle.InstrChangeStatus && in.Side == battle.SideOne {
				got = battle.Status(in.Amount)
			}
		}
		if got != tc.want {
			t.Errorf("switch into %d layers: status %s, want %s", tc.layers, got, tc.want)
		}
	}
}

func TestResidualOrderAndCaps(t *testing.T) {
	g := gen9(t)
	burned := mk(t, g, "burned", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "calmmind")
	burned.Status = battle.Burn
	burned.HP = 10
	other := mk(t, g, "other", [2]battle.Type{battle.Ice, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{burned}, []battle.Pokemon{other})
	st.Weather = battle.Hail
	st.WeatherTurns = 1

	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	// Hail (18) then burn capped to what is left; ice type takes no hail;
	// the last weather turn clears the hail.
	b := bs[0]
	var sideOneDmg []int
	weatherCleared := false
	for _, in := range b.Instructions {
		if in.Kind == battle.InstrDamage && in.Side == battle.SideOne {
			sideOneDmg = append(sideOneDmg, in.Amount)
		}
		if in.Kind == battle.InstrDamage && in.Side == battle.SideTwo {
			t.Errorf("ice type took hail damage: %s", b)
		}
		if in.Kind == battle.InstrChangeWeather && battle.Weather(in.B) == battle.ClearSkies {
			weatherCleared = true
		}
	}
	want := []int{10}
	if !reflect.DeepEqual(sideOneDmg, want) {
		t.Errorf("side one residual damage = %v, want %v (hail capped at remaining hp)", sideOneDmg, want)
	}
	if !weatherCleared {
		t.Error("expiring weather was not cleared")
	}
}

func TestSecondaryMergesWhenBlocked(t *testing.T) {
	g := gen9(t)
	// Thunderbolt's 10% paralysis cannot land on an electric type, so the
	// trigger and no-trigger lines collapse into one branch per roll.
	user := mk(t, g, "user", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "thunderbolt")
	tgt := mk(t, g, "tgt", [2]battle.Type{battle.Electric, battle.Typeless}, 300, 50, "calmmind")

	st := newBattle(t, []battle.Pokemon{user}, []battle.Pokemon{tgt})
	r := New(g)
	bs, err := r.Branches(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	checkBranches(t, st, bs)

	for _, b := range bs {
		for _, in := range b.Instructions {
			if in.Kind == battle.InstrChangeStatus && in.Side == battle.SideTwo {
				t.Fatalf("paralysis applied to electric type: %s", b)
			}
		}
	}
}

func TestDamageRolls(t *testing.T) {
	g := gen9(t)
	user := mk(t, g, "user", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 100, "tackle", "swordsdance")
	tgt := mk(t, g, "tgt", [2]battle.Type{battle.Normal, battle.Typeless}, 300, 50, "tackle")

	st := newBattle(t, []battle.Pokemon{user}, []battle.Pokemon{tgt})
	r := New(g)

	rolls, err := r.DamageRolls(st, move(0), move(0))
	if err != nil {
		t.Fatal(err)
	}
	// Two normal rolls then two crit rolls per side, reproducible.
	if len(rolls[0]) != 4 || len(rolls[1]) != 4 {
		t.Fatalf("rolls = %v, want 4 outcomes per side", rolls)
	}
	again, _ := r.DamageRolls(st, move(0), move(0))
	if !reflect.DeepEqual(rolls, again) {
		t.Errorf("DamageRolls is not reproducible: %v vs %v", rolls, again)
	}

	rolls, err = r.DamageRolls(st, move(1), move(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(rolls[0]) != 0 {
		t.Errorf("status move rolls = %v, want none", rolls[0])
	}
}
