package battle

// Enumerations shared by the whole engine. Values are stable because the
// textual state encoding refers to them by name.

type SideID uint8

const (
	SideOne SideID = iota
	SideTwo
)

func (s SideID) Opponent() SideID {
	if s == SideOne {
		return SideTwo
	}
	return SideOne
}

func (s SideID) String() string {
	if s == SideOne {
		return "side-one"
	}
	return "side-two"
}

type Type uint8

const (
	Typeless Type = iota
	Normal
	Fire
	Water
	Electric
	Grass
	Ice
	Fighting
	Poison
	Ground
	Flying
	Psychic
	Bug
	Rock
	Ghost
	Dragon
	Dark
	Steel
	Fairy
	NumTypes
)

var typeNames = [NumTypes]string{
	"typeless", "normal", "fire", "water", "electric", "grass", "ice",
	"fighting", "poison", "ground", "flying", "psychic", "bug", "rock",
	"ghost", "dragon", "dark", "steel", "fairy",
}

func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return "typeless"
}

// TypeFromName returns Typeless and false for unknown names.
func TypeFromName(name string) (Type, bool) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), true
		}
	}
	return Typeless, false
}

type Status uint8

const (
	StatusNone Status = iota
	Burn
	Freeze
	Paralyze
	PoisonStatus
	Toxic
	Sleep
	NumStatuses
)

var statusNames = [NumStatuses]string{
	"none", "burn", "freeze", "paralyze", "poison", "toxic", "sleep",
}

func (s Status) String() string {
	if s < NumStatuses {
		return statusNames[s]
	}
	return "none"
}

func StatusFromName(name string) (Status, bool) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), true
		}
	}
	return StatusNone, false
}

type Volatile uint8

const (
	Confusion Volatile = iota
	LeechSeed
	Substitute
	Taunt
	Flinch
	NumVolatiles
)

var volatileNames = [NumVolatiles]string{
	"confusion", "leechseed", "substitute", "taunt", "flinch",
}

func (v Volatile) String() string {
	if v < NumVolatiles {
		return volatileNames[v]
	}
	return "?"
}

func VolatileFromName(name string) (Volatile, bool) {
	for i, n := range volatileNames {
		if n == name {
			return Volatile(i), true
		}
	}
	return 0, false
}

// VolatileSet is a bitset so that copies and comparisons are exact.
type VolatileSet uint32

func (vs VolatileSet) Has(v Volatile) bool { return vs&(1<<v) != 0 }
func (vs *VolatileSet) Add(v Volatile)     { *vs |= 1 << v }
func (vs *VolatileSet) Remove(v Volatile)  { *vs &^= 1 << v }
func (vs VolatileSet) Empty() bool         { return vs == 0 }

type Stat uint8

const (
	Attack Stat = iota
	Defense
	SpecialAttack
	SpecialDefense
	Speed
	NumStats
)

var statNames = [NumStats]string{"atk", "def", "spa", "spd", "spe"}

func (s Stat) String() string {
	if s < NumStats {
		return statNames[s]
	}
	return "?"
}

type Weather uint8

const (
	ClearSkies Weather = iota
	Sun
	Rain
	Sand
	Hail
	NumWeathers
)

var weatherNames = [NumWeathers]string{"none", "sun", "rain", "sand", "hail"}

func (w Weather) String() string {
	if w < NumWeathers {
		return weatherNames[w]
	}
	return "none"
}

func WeatherFromName(name string) (Weather, bool) {
	for i, n := range weatherNames {
		if n == name {
			return Weather(i), true
		}
	}
	return ClearSkies, false
}

type Terrain uint8

const (
	NoTerrain Terrain = iota
	ElectricTerrain
	GrassyTerrain
	MistyTerrain
	PsychicTerrain
	NumTerrains
)

var terrainNames = [NumTerrains]string{"none", "electric", "grassy", "misty", "psychic"}

func (t Terrain) String() string {
	if t < NumTerrains {
		return terrainNames[t]
	}
	return "none"
}

func TerrainFromName(name string) (Terrain, bool) {
	for i, n := range terrainNames {
		if n == name {
			return Terrain(i), true
		}
	}
	return NoTerrain, false
}

type SideCondition uint8

const (
	Spikes SideCondition = iota
	ToxicSpikes
	StealthRock
	StickyWeb
	Reflect
	LightScreen
	AuroraVeil
	Safeguard
	Tailwind
	NumSideConditions
)

var sideConditionNames = [NumSideConditions]string{
	"spikes", "toxicspikes", "stealthrock", "stickyweb",
	"reflect", "lightscreen", "auroraveil", "safeguard", "tailwind",
}

func (c SideCondition) String() string {
	if c < NumSideConditions {
		return sideConditionNames[c]
	}
	return "?"
}

func SideConditionFromName(name string) (SideCondition, bool) {
	for i, n := range sideConditionNames {
		if n == name {
			return SideCondition(i), true
		}
	}
	return 0, false
}

// Hazard reports whether the condition is an entry hazard (affects the
// switching-in combatant) as opposed to a timed team effect.
func (c SideCondition) Hazard() bool {
	switch c {
	case Spikes, ToxicSpikes, StealthRock, StickyWeb:
		return true
	}
	return false
}

type MoveCategory uint8

const (
	Physical MoveCategory = iota
	Special
	StatusMove
)

var categoryNames = [3]string{"physical", "special", "status"}

func (c MoveCategory) String() string { return categoryNames[c] }

func CategoryFromName(name string) (MoveCategory, bool) {
	for i, n := range categoryNames {
		if n == name {
			return MoveCategory(i), true
		}
	}
	return StatusMove, false
}

// EffectTarget says which side a move effect lands on, relative to the user.
type EffectTarget uint8

const (
	TargetUser EffectTarget = iota
	TargetOpponent
)
