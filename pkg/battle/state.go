package battle

import (
	"fmt"
)

const (
	MaxRosterSize = 6
	MaxMoveSlots  = 4
	MaxBoost      = 6
	MinBoost      = -6
)

// StatusEffect, BoostEffect, VolatileEffect, SideCondEffect and Secondary
// describe what a move does beyond raw damage. They are populated by the
// movedex, not by the battle package itself.

type StatusEffect struct {
	Target EffectTarget
	Status Status
}

type BoostEffect struct {
	Target EffectTarget
	Boosts [NumStats]int
}

type VolatileEffect struct {
	Target   EffectTarget
	Volatile Volatile
}

type SideCondEffect struct {
	Target    EffectTarget
	Condition SideCondition
	// Turns is the timer set for timed conditions; hazards add one layer.
	Turns int
}

// Secondary is an effect with its own trigger chance, attempted only when
// the move hit.
type Secondary struct {
	Chance   float64 // (0, 1]
	Status   *StatusEffect
	Volatile *VolatileEffect
	Boosts   *BoostEffect
}

// Move carries the full rule data for one move slot. Everything except PP
// and Disabled comes from the movedex at decode time.
type Move struct {
	ID       string
	Type     Type
	Category MoveCategory
	Power    int
	Accuracy int // percent, 100 means never misses
	Priority int
	PP       int
	MaxPP    int
	Disabled bool

	// Fractions of damage dealt (drain, recoil) or of the user's max HP
	// (crash, on a miss). Zero means not applicable.
	Drain  float64
	Recoil float64
	Crash  float64

	// Heal is the fraction of the target's max HP restored on hit.
	Heal       float64
	HealTarget EffectTarget

	Powder      bool // blocked by grass types
	HazardClear bool // removes hazards from the user's side

	Status    *StatusEffect
	Boosts    *BoostEffect
	Volatile  *VolatileEffect
	SideCond  *SideCondEffect
	Secondary *Secondary
}

// Usable reports whether the move can be selected at all.
func (m *Move) Usable() bool { return m.PP > 0 && !m.Disabled }

// Pokemon is one combatant. All numeric fields are integers so that
// instruction inverses are exact.
type Pokemon struct {
	ID    string
	Level int
	Types [2]Type

	HP    int
	MaxHP int

	Attack         int
	Defense        int
	SpecialAttack  int
	SpecialDefense int
	Speed          int

	Status    Status
	Boosts    [NumStats]int
	Volatiles VolatileSet

	Moves []Move
}

func (p *Pokemon) Fainted() bool { return p.HP <= 0 }

func (p *Pokemon) HasType(t Type) bool {
	return p.Types[0] == t || p.Types[1] == t
}

// Grounded reports whether terrain and ground-level hazards affect this
// combatant.
func (p *Pokemon) Grounded() bool { return !p.HasType(Flying) }

// Stat returns the raw (unboosted) value of a stat.
func (p *Pokemon) Stat(s Stat) int {
	switch s {
	case Attack:
		return p.Attack
	case Defense:
		return p.Defense
	case SpecialAttack:
		return p.SpecialAttack
	case SpecialDefense:
		return p.SpecialDefense
	default:
		return p.Speed
	}
}

// BoostedStat applies the stage multiplier to a stat.
func (p *Pokemon) BoostedStat(s Stat) int {
	return boostStat(p.Stat(s), p.Boosts[s])
}

func boostStat(value, stage int) int {
	if stage >= 0 {
		return value * (2 + stage) / 2
	}
	return value * 2 / (2 - stage)
}

func (p *Pokemon) validate() error {
	if p.ID == "" {
		return fmt.Errorf("combatant has no species id")
	}
	if p.MaxHP <= 0 {
		return fmt.Errorf("%s: max hp %d is not positive", p.ID, p.MaxHP)
	}
	if p.HP < 0 || p.HP > p.MaxHP {
		return fmt.Errorf("%s: hp %d outside [0, %d]", p.ID, p.HP, p.MaxHP)
	}
	if p.Level <= 0 || p.Level > 100 {
		return fmt.Errorf("%s: level %d outside [1, 100]", p.ID, p.Level)
	}
	for _, s := range []struct {
		name string
		v    int
	}{
		{"attack", p.Attack}, {"defense", p.Defense},
		{"special-attack", p.SpecialAttack}, {"special-defense", p.SpecialDefense},
		{"speed", p.Speed},
	} {
		if s.v <= 0 {
			return fmt.Errorf("%s: %s %d is not positive", p.ID, s.name, s.v)
		}
	}
	for i, b := range p.Boosts {
		if b < MinBoost || b > MaxBoost {
			return fmt.Errorf("%s: %s boost %d outside [%d, %d]", p.ID, Stat(i), b, MinBoost, MaxBoost)
		}
	}
	if len(p.Moves) == 0 || len(p.Moves) > MaxMoveSlots {
		return fmt.Errorf("%s: %d move slots outside [1, %d]", p.ID, len(p.Moves), MaxMoveSlots)
	}
	for _, m := range p.Moves {
		if m.PP < 0 || m.PP > m.MaxPP {
			return fmt.Errorf("%s: move %s pp %d outside [0, %d]", p.ID, m.ID, m.PP, m.MaxPP)
		}
	}
	return nil
}

// Side is one team: the roster, the active slot and team-scoped conditions.
// Hazard conditions hold layer counts, timed conditions hold remaining turns.
type Side struct {
	Active     int
	Pokemon    []Pokemon
	Conditions [NumSideConditions]int
}

func (s *Side) ActivePokemon() *Pokemon { return &s.Pokemon[s.Active] }

func (s *Side) Condition(c SideCondition) int { return s.Conditions[c] }

// Defeated reports whether no combatant on this side has positive health.
func (s *Side) Defeated() bool {
	for i := range s.Pokemon {
		if !s.Pokemon[i].Fainted() {
			return false
		}
	}
	return true
}

func (s *Side) validate(id SideID) error {
	if len(s.Pokemon) == 0 || len(s.Pokemon) > MaxRosterSize {
		return fmt.Errorf("%s: roster size %d outside [1, %d]", id, len(s.Pokemon), MaxRosterSize)
	}
	if s.Active < 0 || s.Active >= len(s.Pokemon) {
		return fmt.Errorf("%s: active index %d outside roster", id, s.Active)
	}
	for i := range s.Pokemon {
		if err := s.Pokemon[i].validate(); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
	}
	for i, n := range s.Conditions {
		if n < 0 {
			return fmt.Errorf("%s: %s count %d is negative", id, SideCondition(i), n)
		}
	}
	return nil
}

// State is the root battle object. It is constructed once, validated, and
// afterwards mutated only through an Engine.
type State struct {
	Sides [2]Side

	Weather      Weather
	WeatherTurns int // negative means indefinite
	Terrain      Terrain
	TerrainTurns int
	TrickRoom    bool
}

// NewState validates the assembled state. Out-of-range values are an
// error, never clamped.
func NewState(sideOne, sideTwo Side) (*State, error) {
	st := &State{Sides: [2]Side{sideOne, sideTwo}}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func (st *State) Validate() error {
	for i := range st.Sides {
		if err := st.Sides[i].validate(SideID(i)); err != nil {
			return err
		}
	}
	if st.Weather >= NumWeathers {
		return fmt.Errorf("unknown weather %d", st.Weather)
	}
	if st.Terrain >= NumTerrains {
		return fmt.Errorf("unknown terrain %d", st.Terrain)
	}
	return nil
}

// Clone returns an independent deep copy, for parallel workers that each
// need their own Engine.
func (st *State) Clone() *State {
	out := *st
	for i := range out.Sides {
		roster := make([]Pokemon, len(st.Sides[i].Pokemon))
		copy(roster, st.Sides[i].Pokemon)
		for j := range roster {
			moves := make([]Move, len(roster[j].Moves))
			copy(moves, roster[j].Moves)
			roster[j].Moves = moves
		}
		out.Sides[i].Pokemon = roster
	}
	return &out
}

func (st *State) Side(id SideID) *Side { return &st.Sides[id] }

// BothSides returns the given side first, its opponent second.
func (st *State) BothSides(id SideID) (*Side, *Side) {
	return &st.Sides[id], &st.Sides[id.Opponent()]
}

// Over reports whether either side has been defeated.
func (st *State) Over() bool {
	return st.Sides[SideOne].Defeated() || st.Sides[SideTwo].Defeated()
}

// Winner returns the side with combatants left; only meaningful when
// Over() is true and exactly one side is defeated.
func (st *State) Winner() (SideID, bool) {
	one := st.Sides[SideOne].Defeated()
	two := st.Sides[SideTwo].Defeated()
	switch {
	case one && !two:
		return SideTwo, true
	case two && !one:
		return SideOne, true
	}
	return SideOne, false
}

// EffectiveSpeed is the speed used for turn ordering: stage boosts,
// paralysis (divisor supplied by the rule variant) and tailwind applied.
func (st *State) EffectiveSpeed(id SideID, paralysisDivisor int) int {
	side := st.Side(id)
	p := side.ActivePokemon()
	speed := p.BoostedStat(Speed)
	if p.Status == Paralyze && paralysisDivisor > 1 {
		speed /= paralysisDivisor
	}
	if side.Condition(Tailwind) > 0 {
		speed *= 2
	}
	return speed
}
