package resolve

import (
	"github.com/lunargale/pokesearch/pkg/battle"
)

var timedConditions = []battle.SideCondition{
	battle.Reflect, battle.LightScreen, battle.AuroraVeil, battle.Safeguard, battle.Tailwind,
}

// residuals builds the end-of-turn instruction list against the state as
// it stands after both half-turns. Fixed order: per side (side one first)
// weather damage, status damage, leech seed; then flinch cleanup, timed
// condition countdowns and the field timers.
func (r *Resolver) residuals(st *battle.State) []battle.Instruction {
	var instrs []battle.Instruction

	// Damage caps must account for earlier residuals, so current health is
	// tracked here instead of re-read from the untouched state.
	var hp [2]int
	for i := range hp {
		hp[i] = st.Side(battle.SideID(i)).ActivePokemon().HP
	}
	damage := func(id battle.SideID, n int) {
		n = min(n, hp[id])
		if n > 0 {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrDamage, Side: id, Amount: n})
			hp[id] -= n
		}
	}
	heal := func(id battle.SideID, n int) {
		p := st.Side(id).ActivePokemon()
		n = min(n, p.MaxHP-hp[id])
		if n > 0 {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrHeal, Side: id, Amount: n})
			hp[id] += n
		}
	}

	for _, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		p := st.Side(id).ActivePokemon()
		if hp[id] <= 0 {
			continue
		}
		frac := func(f float64) int { return int(float64(p.MaxHP) * f) }

		switch st.Weather {
		case battle.Sand:
			if !p.HasType(battle.Rock) && !p.HasType(battle.Ground) && !p.HasType(battle.Steel) {
				damage(id, frac(r.Gen.Mech.WeatherFraction))
			}
		case battle.Hail:
			if !p.HasType(battle.Ice) {
				damage(id, frac(r.Gen.Mech.WeatherFraction))
			}
		}
		if hp[id] <= 0 {
			continue
		}

		switch p.Status {
		case battle.Burn:
			damage(id, frac(r.Gen.Mech.BurnFraction))
		case battle.PoisonStatus:
			damage(id, frac(r.Gen.Mech.PoisonFraction))
		case battle.Toxic:
			damage(id, frac(r.Gen.Mech.ToxicBaseFraction*2))
		}
		if hp[id] <= 0 {
			continue
		}

		if p.Volatiles.Has(battle.LeechSeed) {
			opp := id.Opponent()
			if hp[opp] > 0 {
				drained := min(frac(r.Gen.Mech.LeechSeedFraction), hp[id])
				damage(id, drained)
				heal(opp, drained)
			}
		}
	}

	for _, id := range []battle.SideID{battle.SideOne, battle.SideTwo} {
		s := st.Side(id)
		if s.ActivePokemon().Volatiles.Has(battle.Flinch) {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrRemoveVolatile, Side: id, A: int(battle.Flinch)})
		}
		for _, c := range timedConditions {
			if s.Condition(c) > 0 {
				instrs = append(instrs, battle.Instruction{Kind: battle.InstrChangeSideCondition, Side: id, Cond: c, Amount: -1})
			}
		}
	}

	switch {
	case st.WeatherTurns == 1:
		instrs = append(instrs, battle.Instruction{
			Kind: battle.InstrChangeWeather,
			A:    int(st.Weather), B: int(battle.ClearSkies), Amount: 1, Aux: 0,
		})
	case st.WeatherTurns > 1:
		instrs = append(instrs, battle.Instruction{Kind: battle.InstrDecrementWeatherTurns})
	}
	switch {
	case st.TerrainTurns == 1:
		instrs = append(instrs, battle.Instruction{
			Kind: battle.InstrChangeTerrain,
			A:    int(st.Terrain), B: int(battle.NoTerrain), Amount: 1, Aux: 0,
		})
	case st.TerrainTurns > 1:
		instrs = append(instrs, battle.Instruction{Kind: battle.InstrDecrementTerrainTurns})
	}
	return instrs
}
