package battle

import (
	"fmt"
	"strings"
)

// InstrKind tags one atomic state delta. Every kind has an exact inverse,
// so a branch can be unwound without drift.
type InstrKind uint8

const (
	InstrDamage InstrKind = iota
	InstrHeal
	InstrSwitch
	InstrChangeStatus
	InstrBoost
	InstrChangeSideCondition
	InstrApplyVolatile
	InstrRemoveVolatile
	InstrChangeWeather
	InstrChangeTerrain
	InstrDecrementWeatherTurns
	InstrDecrementTerrainTurns
	InstrDecrementPP
	InstrDisableMove
	InstrEnableMove
)

// Instruction is a plain comparable struct so duplicate branches can be
// merged by equality. Field meaning per kind:
//
//	Damage/Heal              Side target, Amount (positive, already capped)
//	Switch                   Side, A previous index, B next index
//	ChangeStatus             Side, A roster slot, B old status, Amount new status
//	Boost                    Side, Stat, Amount stage delta
//	ChangeSideCondition      Side, Cond, Amount delta (layers or turns)
//	Apply/RemoveVolatile     Side, A volatile
//	ChangeWeather            A old, B new weather, Amount old turns, Aux new turns
//	ChangeTerrain            A old, B new terrain, Amount old turns, Aux new turns
//	DecrementWeatherTurns    (none)
//	DecrementTerrainTurns    (none)
//	DecrementPP              Side, A move slot
//	Disable/EnableMove       Side, A move slot
type Instruction struct {
	Kind   InstrKind
	Side   SideID
	Stat   Stat
	Cond   SideCondition
	Amount int
	A, B   int
	Aux    int
}

func (in Instruction) apply(st *State) {
	side := st.Side(in.Side)
	switch in.Kind {
	case InstrDamage:
		side.ActivePokemon().HP -= in.Amount
	case InstrHeal:
		side.ActivePokemon().HP += in.Amount
	case InstrSwitch:
		side.Active = in.B
	case InstrChangeStatus:
		side.Pokemon[in.A].Status = Status(in.Amount)
	case InstrBoost:
		side.ActivePokemon().Boosts[in.Stat] += in.Amount
	case InstrChangeSideCondition:
		side.Conditions[in.Cond] += in.Amount
	case InstrApplyVolatile:
		side.ActivePokemon().Volatiles.Add(Volatile(in.A))
	case InstrRemoveVolatile:
		side.ActivePokemon().Volatiles.Remove(Volatile(in.A))
	case InstrChangeWeather:
		st.Weather = Weather(in.B)
		st.WeatherTurns = in.Aux
	case InstrChangeTerrain:
		st.Terrain = Terrain(in.B)
		st.TerrainTurns = in.Aux
	case InstrDecrementWeatherTurns:
		st.WeatherTurns--
	case InstrDecrementTerrainTurns:
		st.TerrainTurns--
	case InstrDecrementPP:
		side.ActivePokemon().Moves[in.A].PP--
	case InstrDisableMove:
		side.ActivePokemon().Moves[in.A].Disabled = true
	case InstrEnableMove:
		side.ActivePokemon().Moves[in.A].Disabled = false
	}
}

func (in Instruction) revert(st *State) {
	side := st.Side(in.Side)
	switch in.Kind {
	case InstrDamage:
		side.ActivePokemon().HP += in.Amount
	case InstrHeal:
		side.ActivePokemon().HP -= in.Amount
	case InstrSwitch:
		side.Active = in.A
	case InstrChangeStatus:
		side.Pokemon[in.A].Status = Status(in.B)
	case InstrBoost:
		side.ActivePokemon().Boosts[in.Stat] -= in.Amount
	case InstrChangeSideCondition:
		side.Conditions[in.Cond] -= in.Amount
	case InstrApplyVolatile:
		side.ActivePokemon().Volatiles.Remove(Volatile(in.A))
	case InstrRemoveVolatile:
		side.ActivePokemon().Volatiles.Add(Volatile(in.A))
	case InstrChangeWeather:
		st.Weather = Weather(in.A)
		st.WeatherTurns = in.Amount
	case InstrChangeTerrain:
		st.Terrain = Terrain(in.A)
		st.TerrainTurns = in.Amount
	case InstrDecrementWeatherTurns:
		st.WeatherTurns++
	case InstrDecrementTerrainTurns:
		st.TerrainTurns++
	case InstrDecrementPP:
		side.ActivePokemon().Moves[in.A].PP++
	case InstrDisableMove:
		side.ActivePokemon().Moves[in.A].Disabled = false
	case InstrEnableMove:
		side.ActivePokemon().Moves[in.A].Disabled = true
	}
}

func (in Instruction) String() string {
	switch in.Kind {
	case InstrDamage:
		return fmt.Sprintf("damage %s %d", in.Side, in.Amount)
	case InstrHeal:
		return fmt.Sprintf("heal %s %d", in.Side, in.Amount)
	case InstrSwitch:
		return fmt.Sprintf("switch %s %d->%d", in.Side, in.A, in.B)
	case InstrChangeStatus:
		return fmt.Sprintf("status %s slot=%d %s->%s", in.Side, in.A, Status(in.B), Status(in.Amount))
	case InstrBoost:
		return fmt.Sprintf("boost %s %s %+d", in.Side, in.Stat, in.Amount)
	case InstrChangeSideCondition:
		return fmt.Sprintf("sidecond %s %s %+d", in.Side, in.Cond, in.Amount)
	case InstrApplyVolatile:
		return fmt.Sprintf("volatile+ %s %s", in.Side, Volatile(in.A))
	case InstrRemoveVolatile:
		return fmt.Sprintf("volatile- %s %s", in.Side, Volatile(in.A))
	case InstrChangeWeather:
		return fmt.Sprintf("weather %s->%s", Weather(in.A), Weather(in.B))
	case InstrChangeTerrain:
		return fmt.Sprintf("terrain %s->%s", Terrain(in.A), Terrain(in.B))
	case InstrDecrementWeatherTurns:
		return "weather-turns -1"
	case InstrDecrementTerrainTurns:
		return "terrain-turns -1"
	case InstrDecrementPP:
		return fmt.Sprintf("pp %s slot=%d -1", in.Side, in.A)
	case InstrDisableMove:
		return fmt.Sprintf("disable %s slot=%d", in.Side, in.A)
	case InstrEnableMove:
		return fmt.Sprintf("enable %s slot=%d", in.Side, in.A)
	}
	return "?"
}

// Branch is one probabilistic continuation of a turn: an ordered
// instruction list with its likelihood. Sibling branches produced for an
// action pair partition the outcome space.
type Branch struct {
	Weight       float64
	Instructions []Instruction
}

func (b Branch) String() string {
	parts := make([]string, len(b.Instructions))
	for i, in := range b.Instructions {
		parts[i] = in.String()
	}
	return fmt.Sprintf("%.2f%%: [%s]", b.Weight*100, strings.Join(parts, ", "))
}

// SameInstructions reports instruction-list equality, used when merging
// duplicate branches.
func (b Branch) SameInstructions(other Branch) bool {
	if len(b.Instructions) != len(other.Instructions) {
		return false
	}
	for i := range b.Instructions {
		if b.Instructions[i] != other.Instructions[i] {
			return false
		}
	}
	return true
}
