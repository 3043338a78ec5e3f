package resolve

import (
	"github.com/lunargale/pokesearch/pkg/battle"
)

// ActsFirst decides execution order for a pair of chosen actions.
// Switches resolve before moves; among moves, higher priority first, then
// higher effective speed (inverted under trick room, which never affects
// priority brackets). An exact tie always goes to side one.
func (r *Resolver) ActsFirst(st *battle.State, c1, c2 battle.Choice) battle.SideID {
	sw1 := c1.Kind == battle.ChoiceSwitch
	sw2 := c2.Kind == battle.ChoiceSwitch
	if sw1 != sw2 {
		if sw1 {
			return battle.SideOne
		}
		return battle.SideTwo
	}

	if !sw1 {
		p1 := r.priority(st, battle.SideOne, c1)
		p2 := r.priority(st, battle.SideTwo, c2)
		if p1 != p2 {
			if p1 > p2 {
				return battle.SideOne
			}
			return battle.SideTwo
		}
	}

	div := r.Gen.Mech.ParalysisSpeedDivisor
	s1 := st.EffectiveSpeed(battle.SideOne, div)
	s2 := st.EffectiveSpeed(battle.SideTwo, div)
	if s1 == s2 {
		return battle.SideOne
	}
	faster := s1 > s2
	if st.TrickRoom {
		faster = !faster
	}
	if faster {
		return battle.SideOne
	}
	return battle.SideTwo
}

func (r *Resolver) priority(st *battle.State, id battle.SideID, c battle.Choice) int {
	if c.Kind != battle.ChoiceMove {
		return 0
	}
	return st.Side(id).ActivePokemon().Moves[c.Index].Priority
}
