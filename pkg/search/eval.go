// Package search scores battle states and picks actions with three
// interchangeable strategies sharing one evaluator: fixed-depth
// expectation search with optional pruning, time-boxed iterative
// deepening, and time-boxed Monte Carlo tree search.
package search

import (
	"github.com/lunargale/pokesearch/pkg/battle"
)

// Evaluation weights. The score is side one's total minus side two's, so
// positive favors side one. Health differential dominates: a full-health
// combatant is worth aliveScore + hpScore.
const (
	aliveScore = 75.0
	hpScore    = 100.0

	burnScore      = -25.0
	frozenScore    = -40.0
	sleepScore     = -25.0
	paralyzedScore = -25.0
	toxicScore     = -30.0
	poisonScore    = -10.0

	leechSeedScore  = -30.0
	substituteScore = 40.0
	confusionScore  = -20.0

	reflectScore     = 20.0
	lightScreenScore = 20.0
	auroraVeilScore  = 40.0
	safeguardScore   = 5.0
	tailwindScore    = 7.0

	stickyWebScore           = -25.0
	stealthRockScorePer      = -10.0
	spikesScorePerLayer      = -7.0
	toxicSpikesScorePerLayer = -7.0
)

var boostWeights = [battle.NumStats]float64{
	battle.Attack:         15,
	battle.Defense:        15,
	battle.SpecialAttack:  15,
	battle.SpecialDefense: 15,
	battle.Speed:          25,
}

// boostMultipliers[stage] for positive stages; negative stages mirror.
var boostMultipliers = [battle.MaxBoost + 1]float64{0, 1.0, 2.0, 2.5, 3.0, 3.15, 3.3}

var statusScores = [battle.NumStatuses]float64{
	battle.StatusNone:   0,
	battle.Burn:         burnScore,
	battle.Freeze:       frozenScore,
	battle.Paralyze:     paralyzedScore,
	battle.PoisonStatus: poisonScore,
	battle.Toxic:        toxicScore,
	battle.Sleep:        sleepScore,
}

// Evaluate is the shared heuristic: deterministic, side-effect-free, and
// identical for every strategy so their values stay comparable.
func Evaluate(st *battle.State) float64 {
	return scoreSide(st.Side(battle.SideOne)) - scoreSide(st.Side(battle.SideTwo))
}

func scoreSide(s *battle.Side) float64 {
	var score float64
	alive := 0
	for i := range s.Pokemon {
		p := &s.Pokemon[i]
		if p.Fainted() {
			continue
		}
		alive++
		score += aliveScore
		score += hpScore * float64(p.HP) / float64(p.MaxHP)
		score += statusScores[p.Status]

		if p.Volatiles.Has(battle.LeechSeed) {
			score += leechSeedScore
		}
		if p.Volatiles.Has(battle.Substitute) {
			score += substituteScore
		}
		if p.Volatiles.Has(battle.Confusion) {
			score += confusionScore
		}
	}

	active := s.ActivePokemon()
	if !active.Fainted() {
		for stat, stage := range active.Boosts {
			score += boostWeights[stat] * boostMultiplier(stage)
		}
	}

	if s.Condition(battle.Reflect) > 0 {
		score += reflectScore
	}
	if s.Condition(battle.LightScreen) > 0 {
		score += lightScreenScore
	}
	if s.Condition(battle.AuroraVeil) > 0 {
		score += auroraVeilScore
	}
	if s.Condition(battle.Safeguard) > 0 {
		score += safeguardScore
	}
	if s.Condition(battle.Tailwind) > 0 {
		score += tailwindScore
	}

	if s.Condition(battle.StickyWeb) > 0 {
		score += stickyWebScore
	}
	fa := float64(alive)
	score += float64(s.Condition(battle.StealthRock)) * stealthRockScorePer * fa
	score += float64(s.Condition(battle.Spikes)) * spikesScorePerLayer * fa
	score += float64(s.Condition(battle.ToxicSpikes)) * toxicSpikesScorePerLayer * fa
	return score
}

func boostMultiplier(stage int) float64 {
	if stage >= 0 {
		return boostMultipliers[min(stage, battle.MaxBoost)]
	}
	return -boostMultipliers[min(-stage, battle.MaxBoost)]
}
