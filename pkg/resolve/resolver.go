// Package resolve turns a pair of chosen actions into the complete set of
// weighted branches for one turn. Every probabilistic sub-event (status
// incapacitation, accuracy, critical hits, damage rolls, secondary
// triggers) is enumerated discretely; the cross product of outcomes forms
// the branch set, with identical instruction lists merged.
package resolve

import (
	"fmt"

	"github.com/lunargale/pokesearch/pkg/battle"
	"github.com/lunargale/pokesearch/pkg/dex"
)

type Resolver struct {
	Gen *dex.Generation
}

func New(gen *dex.Generation) *Resolver { return &Resolver{Gen: gen} }

// frame is a partial branch under construction: the weight accumulated so
// far and the instructions emitted so far.
type frame struct {
	weight float64
	instrs []battle.Instruction
}

func (f frame) extend(weight float64, instrs ...battle.Instruction) frame {
	out := frame{weight: f.weight * weight}
	out.instrs = append(out.instrs, f.instrs...)
	out.instrs = append(out.instrs, instrs...)
	return out
}

// Branches enumerates every probabilistically distinct outcome of the turn
// where side one picks c1 and side two picks c2. The returned weights sum
// to 1; the input state is left untouched.
func (r *Resolver) Branches(st *battle.State, c1, c2 battle.Choice) ([]battle.Branch, error) {
	if !st.Side(battle.SideOne).Legal(c1) {
		return nil, fmt.Errorf("%w: side-one %s", battle.ErrIllegalAction, c1)
	}
	if !st.Side(battle.SideTwo).Legal(c2) {
		return nil, fmt.Errorf("%w: side-two %s", battle.ErrIllegalAction, c2)
	}

	eng := battle.NewEngine(st)
	defer eng.RevertAll()

	choices := [2]battle.Choice{c1, c2}
	first := r.ActsFirst(st, c1, c2)
	second := first.Opponent()

	frames := []frame{{weight: 1}}
	frames = r.expand(eng, frames, func() []frame {
		return r.halfTurn(eng, first, choices[first])
	})
	frames = r.expand(eng, frames, func() []frame {
		return r.halfTurn(eng, second, choices[second])
	})
	frames = r.expand(eng, frames, func() []frame {
		return []frame{{weight: 1, instrs: r.residuals(eng.State())}}
	})
	return mergeFrames(frames), nil
}

// DamageRolls reports, for each side's chosen action, the uncapped damage
// amounts it can deal against the current actives: the normal rolls
// followed by the critical rolls. Switches, status moves and immune
// matchups yield an empty set for that side.
func (r *Resolver) DamageRolls(st *battle.State, c1, c2 battle.Choice) ([2][]int, error) {
	var out [2][]int
	if !st.Side(battle.SideOne).Legal(c1) {
		return out, fmt.Errorf("%w: side-one %s", battle.ErrIllegalAction, c1)
	}
	if !st.Side(battle.SideTwo).Legal(c2) {
		return out, fmt.Errorf("%w: side-two %s", battle.ErrIllegalAction, c2)
	}
	for i, c := range [2]battle.Choice{c1, c2} {
		if c.Kind != battle.ChoiceMove {
			continue
		}
		id := battle.SideID(i)
		mv := st.Side(id).ActivePokemon().Moves[c.Index]
		base := r.Gen.BaseDamage(st, id, &mv, false)
		if base == 0 {
			continue
		}
		out[i] = append(out[i], r.Gen.Rolls(base)...)
		out[i] = append(out[i], r.Gen.Rolls(r.Gen.BaseDamage(st, id, &mv, true))...)
	}
	return out, nil
}

// expand runs one stage for every pending frame. The frame's instructions
// are applied to the live state first so the stage sees the world exactly
// as it would be mid-turn, then reverted.
func (r *Resolver) expand(eng *battle.Engine, frames []frame, stage func() []frame) []frame {
	out := make([]frame, 0, len(frames))
	base := eng.Depth()
	for _, f := range frames {
		eng.Apply(battle.Branch{Instructions: f.instrs})
		for _, ct := range stage() {
			out = append(out, f.extend(ct.weight, ct.instrs...))
		}
		eng.RevertTo(base)
	}
	return out
}

func mergeFrames(frames []frame) []battle.Branch {
	var out []battle.Branch
	for _, f := range frames {
		if f.weight <= 0 {
			continue
		}
		b := battle.Branch{Weight: f.weight, Instructions: f.instrs}
		merged := false
		for i := range out {
			if out[i].SameInstructions(b) {
				out[i].Weight += b.Weight
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, b)
		}
	}
	return out
}
