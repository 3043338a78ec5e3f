package dex

import (
	"github.com/lunargale/pokesearch/pkg/battle"
)

// BaseDamage computes the maximum-roll damage of a move before the roll
// multiplier, against the current actives. Returns 0 when the move cannot
// deal damage (status move, zero power or immune defender).
//
// Stage boosts apply normally except on a critical hit, which ignores the
// attacker's negative offensive stages, the defender's positive defensive
// stages and the defender's screens.
func (g *Generation) BaseDamage(st *battle.State, attacker battle.SideID, mv *battle.Move, crit bool) int {
	if mv.Category == battle.StatusMove || mv.Power <= 0 {
		return 0
	}
	atkSide, defSide := st.BothSides(attacker)
	user := atkSide.ActivePokemon()
	tgt := defSide.ActivePokemon()

	effectiveness := g.Effectiveness(mv.Type, tgt)
	if effectiveness == 0 {
		return 0
	}

	offStat, defStat := battle.Attack, battle.Defense
	if mv.Category == battle.Special {
		offStat, defStat = battle.SpecialAttack, battle.SpecialDefense
	}
	off := boostedFor(user, offStat, crit, true)
	def := boostedFor(tgt, defStat, crit, false)

	base := (2*user.Level/5+2)*mv.Power*off/def/50 + 2

	mod := effectiveness
	if user.HasType(mv.Type) {
		mod *= g.Mech.Stab
	}
	if crit {
		mod *= g.Mech.CritMultiplier
	}
	if g.Mech.BurnHalvesPhysical && user.Status == battle.Burn && mv.Category == battle.Physical {
		mod *= 0.5
	}
	if !crit && screened(defSide, mv.Category) {
		mod *= g.Mech.ScreenMultiplier
	}
	if boosts, ok := g.weatherBoost[int(st.Weather)]; ok {
		mod *= boosts[mv.Type]
	}
	if boosts, ok := g.terrainBoost[int(st.Terrain)]; ok && user.Grounded() {
		mod *= boosts[mv.Type]
	}

	dmg := int(float64(base) * mod)
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// Rolls expands a base damage into the variant's discrete roll outcomes,
// in the order listed by the mechanics. Duplicate amounts are kept so
// each entry stays equally likely.
func (g *Generation) Rolls(base int) []int {
	if base == 0 {
		return []int{0}
	}
	out := make([]int, len(g.Mech.DamageRolls))
	for i, mult := range g.Mech.DamageRolls {
		d := int(float64(base) * mult)
		if d < 1 {
			d = 1
		}
		out[i] = d
	}
	return out
}

func boostedFor(p *battle.Pokemon, s battle.Stat, crit, offensive bool) int {
	stage := p.Boosts[s]
	if crit {
		if offensive && stage < 0 {
			stage = 0
		}
		if !offensive && stage > 0 {
			stage = 0
		}
	}
	raw := p.Stat(s)
	if stage >= 0 {
		return raw * (2 + stage) / 2
	}
	return raw * 2 / (2 - stage)
}

func screened(defSide *battle.Side, cat battle.MoveCategory) bool {
	if defSide.Condition(battle.AuroraVeil) > 0 {
		return true
	}
	switch cat {
	case battle.Physical:
		return defSide.Condition(battle.Reflect) > 0
	case battle.Special:
		return defSide.Condition(battle.LightScreen) > 0
	}
	return false
}
