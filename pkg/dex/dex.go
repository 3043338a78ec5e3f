// Package dex loads rule variants: the type chart, the movedex and the
// mechanical constants that differ between rule generations. Variants are
// plain YAML, with two built-in generations embedded in the binary.
package dex

import (
	"embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lunargale/pokesearch/pkg/battle"
)

//go:embed data/*.yaml
var builtins embed.FS

// Mechanics holds the numeric knobs of a rule variant. Probabilities are
// in [0, 1]; fractions are of max HP unless noted.
type Mechanics struct {
	CritChance     float64 `yaml:"crit-chance"`
	CritMultiplier float64 `yaml:"crit-multiplier"`
	// DamageRolls are the discrete damage multipliers, equally likely.
	DamageRolls []float64 `yaml:"damage-rolls"`
	Stab        float64   `yaml:"stab"`

	ParalysisChance        float64 `yaml:"paralysis-chance"`
	ParalysisSpeedDivisor  int     `yaml:"paralysis-speed-divisor"`
	FreezeThawChance       float64 `yaml:"freeze-thaw-chance"`
	SleepWakeChance        float64 `yaml:"sleep-wake-chance"`
	ConfusionSelfHitChance float64 `yaml:"confusion-self-hit-chance"`

	BurnHalvesPhysical bool    `yaml:"burn-halves-physical"`
	BurnFraction       float64 `yaml:"burn-fraction"`
	PoisonFraction     float64 `yaml:"poison-fraction"`
	ToxicBaseFraction  float64 `yaml:"toxic-base-fraction"`
	WeatherFraction    float64 `yaml:"weather-fraction"`
	LeechSeedFraction  float64 `yaml:"leechseed-fraction"`

	ScreenMultiplier float64   `yaml:"screen-multiplier"`
	StealthRockBase  float64   `yaml:"stealthrock-base"`
	SpikesFractions  []float64 `yaml:"spikes-fractions"`

	WeatherBoost map[string]map[string]float64 `yaml:"weather-boost"`
	TerrainBoost map[string]map[string]float64 `yaml:"terrain-boost"`
}

// Generation is one compiled rule variant. It implements battle.Movedex.
type Generation struct {
	Name string
	Mech Mechanics

	chart [battle.NumTypes][battle.NumTypes]float64
	moves map[string]battle.Move

	weatherBoost map[int][battle.NumTypes]float64
	terrainBoost map[int][battle.NumTypes]float64
}

// Move implements battle.Movedex.
func (g *Generation) Move(id string) (battle.Move, bool) {
	m, ok := g.moves[id]
	return m, ok
}

// MoveIDs lists every known move identifier, sorted.
func (g *Generation) MoveIDs() []string {
	ids := make([]string, 0, len(g.moves))
	for id := range g.moves {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Effectiveness is the combined type multiplier of an attacking type
// against a defender's typing.
func (g *Generation) Effectiveness(attacking battle.Type, defender *battle.Pokemon) float64 {
	mult := g.chart[attacking][defender.Types[0]]
	if defender.Types[1] != battle.Typeless {
		mult *= g.chart[attacking][defender.Types[1]]
	}
	return mult
}

// Load returns a built-in generation by name ("gen4", "gen9").
func Load(name string) (*Generation, error) {
	raw, err := builtins.ReadFile("data/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("dex: unknown generation %q", name)
	}
	return parse(raw)
}

// LoadFile reads a custom rule variant from disk, same schema as the
// built-ins.
func LoadFile(path string) (*Generation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dex: read variant: %w", err)
	}
	return parse(raw)
}

type genFile struct {
	Name      string                        `yaml:"name"`
	Mechanics Mechanics                     `yaml:"mechanics"`
	Chart     map[string]map[string]float64 `yaml:"chart"`
	Moves     map[string]moveDef            `yaml:"moves"`
}

type effectDef struct {
	Target    string `yaml:"target"`
	Status    string `yaml:"status"`
	Volatile  string `yaml:"volatile"`
	Condition string `yaml:"condition"`
	Turns     int    `yaml:"turns"`

	Atk int `yaml:"atk"`
	Def int `yaml:"def"`
	Spa int `yaml:"spa"`
	Spd int `yaml:"spd"`
	Spe int `yaml:"spe"`
}

type secondaryDef struct {
	Chance   float64    `yaml:"chance"`
	Status   *effectDef `yaml:"status"`
	Volatile *effectDef `yaml:"volatile"`
	Boosts   *effectDef `yaml:"boosts"`
}

type moveDef struct {
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Power    int    `yaml:"power"`
	Accuracy int    `yaml:"accuracy"`
	Priority int    `yaml:"priority"`
	PP       int    `yaml:"pp"`

	Drain  float64 `yaml:"drain"`
	Recoil float64 `yaml:"recoil"`
	Crash  float64 `yaml:"crash"`

	Heal       float64 `yaml:"heal"`
	HealTarget string  `yaml:"heal-target"`

	Powder      bool `yaml:"powder"`
	HazardClear bool `yaml:"hazard-clear"`

	Status    *effectDef    `yaml:"status"`
	Boosts    *effectDef    `yaml:"boosts"`
	Volatile  *effectDef    `yaml:"volatile"`
	SideCond  *effectDef    `yaml:"side-condition"`
	Secondary *secondaryDef `yaml:"secondary"`
}

func parse(raw []byte) (*Generation, error) {
	var f genFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("dex: parse variant: %w", err)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("dex: variant has no name")
	}

	g := &Generation{
		Name:  f.Name,
		Mech:  f.Mechanics,
		moves: make(map[string]battle.Move, len(f.Moves)),
	}
	if len(g.Mech.DamageRolls) == 0 {
		return nil, fmt.Errorf("dex: %s: mechanics.damage-rolls is empty", f.Name)
	}

	// Neutral everywhere, then overlay the listed matchups.
	for a := range g.chart {
		for d := range g.chart[a] {
			g.chart[a][d] = 1
		}
	}
	for atkName, row := range f.Chart {
		atk, ok := battle.TypeFromName(atkName)
		if !ok {
			return nil, fmt.Errorf("dex: %s: chart: unknown type %q", f.Name, atkName)
		}
		for defName, mult := range row {
			def, ok := battle.TypeFromName(defName)
			if !ok {
				return nil, fmt.Errorf("dex: %s: chart[%s]: unknown type %q", f.Name, atkName, defName)
			}
			g.chart[atk][def] = mult
		}
	}

	var err error
	if g.weatherBoost, err = compileBoostTable(f.Name, g.Mech.WeatherBoost, weatherKey); err != nil {
		return nil, err
	}
	if g.terrainBoost, err = compileBoostTable(f.Name, g.Mech.TerrainBoost, terrainKey); err != nil {
		return nil, err
	}

	for id, def := range f.Moves {
		mv, err := compileMove(id, def)
		if err != nil {
			return nil, fmt.Errorf("dex: %s: move %s: %w", f.Name, id, err)
		}
		g.moves[battle.NormalizeName(id)] = mv
	}
	return g, nil
}

func weatherKey(name string) (int, bool) {
	w, ok := battle.WeatherFromName(name)
	return int(w), ok
}

func terrainKey(name string) (int, bool) {
	t, ok := battle.TerrainFromName(name)
	return int(t), ok
}

func compileBoostTable(gen string, src map[string]map[string]float64, key func(string) (int, bool)) (map[int][battle.NumTypes]float64, error) {
	out := make(map[int][battle.NumTypes]float64, len(src))
	for condName, row := range src {
		k, ok := key(condName)
		if !ok {
			return nil, fmt.Errorf("dex: %s: boost table: unknown condition %q", gen, condName)
		}
		var mults [battle.NumTypes]float64
		for i := range mults {
			mults[i] = 1
		}
		for typName, mult := range row {
			typ, ok := battle.TypeFromName(typName)
			if !ok {
				return nil, fmt.Errorf("dex: %s: boost table %q: unknown type %q", gen, condName, typName)
			}
			mults[typ] = mult
		}
		out[k] = mults
	}
	return out, nil
}

func compileMove(id string, def moveDef) (battle.Move, error) {
	typ, ok := battle.TypeFromName(def.Type)
	if !ok {
		return battle.Move{}, fmt.Errorf("unknown type %q", def.Type)
	}
	cat, ok := battle.CategoryFromName(def.Category)
	if !ok {
		return battle.Move{}, fmt.Errorf("unknown category %q", def.Category)
	}
	if def.Accuracy < 1 || def.Accuracy > 100 {
		return battle.Move{}, fmt.Errorf("accuracy %d outside [1, 100]", def.Accuracy)
	}
	if def.PP <= 0 {
		return battle.Move{}, fmt.Errorf("pp %d is not positive", def.PP)
	}

	mv := battle.Move{
		ID:       battle.NormalizeName(id),
		Type:     typ,
		Category: cat,
		Power:    def.Power,
		Accuracy: def.Accuracy,
		Priority: def.Priority,
		PP:       def.PP,
		MaxPP:    def.PP,

		Drain:  def.Drain,
		Recoil: def.Recoil,
		Crash:  def.Crash,

		Heal:        def.Heal,
		Powder:      def.Powder,
		HazardClear: def.HazardClear,
	}
	var err error
	if def.Heal != 0 {
		if mv.HealTarget, err = target(def.HealTarget); err != nil {
			return battle.Move{}, err
		}
	}

	if def.Status != nil {
		if mv.Status, err = compileStatus(def.Status); err != nil {
			return battle.Move{}, err
		}
	}
	if def.Boosts != nil {
		if mv.Boosts, err = compileBoosts(def.Boosts); err != nil {
			return battle.Move{}, err
		}
	}
	if def.Volatile != nil {
		if mv.Volatile, err = compileVolatile(def.Volatile); err != nil {
			return battle.Move{}, err
		}
	}
	if def.SideCond != nil {
		tgt, err := target(def.SideCond.Target)
		if err != nil {
			return battle.Move{}, err
		}
		cond, ok := battle.SideConditionFromName(def.SideCond.Condition)
		if !ok {
			return battle.Move{}, fmt.Errorf("unknown side condition %q", def.SideCond.Condition)
		}
		mv.SideCond = &battle.SideCondEffect{Target: tgt, Condition: cond, Turns: def.SideCond.Turns}
	}
	if def.Secondary != nil {
		sec := &battle.Secondary{Chance: def.Secondary.Chance}
		if sec.Chance <= 0 || sec.Chance > 1 {
			return battle.Move{}, fmt.Errorf("secondary chance %g outside (0, 1]", sec.Chance)
		}
		if def.Secondary.Status != nil {
			if sec.Status, err = compileStatus(def.Secondary.Status); err != nil {
				return battle.Move{}, err
			}
		}
		if def.Secondary.Volatile != nil {
			if sec.Volatile, err = compileVolatile(def.Secondary.Volatile); err != nil {
				return battle.Move{}, err
			}
		}
		if def.Secondary.Boosts != nil {
			if sec.Boosts, err = compileBoosts(def.Secondary.Boosts); err != nil {
				return battle.Move{}, err
			}
		}
		mv.Secondary = sec
	}
	return mv, nil
}

func compileStatus(def *effectDef) (*battle.StatusEffect, error) {
	tgt, err := target(def.Target)
	if err != nil {
		return nil, err
	}
	status, ok := battle.StatusFromName(def.Status)
	if !ok || status == battle.StatusNone {
		return nil, fmt.Errorf("unknown status %q", def.Status)
	}
	return &battle.StatusEffect{Target: tgt, Status: status}, nil
}

func compileVolatile(def *effectDef) (*battle.VolatileEffect, error) {
	tgt, err := target(def.Target)
	if err != nil {
		return nil, err
	}
	vol, ok := battle.VolatileFromName(def.Volatile)
	if !ok {
		return nil, fmt.Errorf("unknown volatile %q", def.Volatile)
	}
	return &battle.VolatileEffect{Target: tgt, Volatile: vol}, nil
}

func compileBoosts(def *effectDef) (*battle.BoostEffect, error) {
	tgt, err := target(def.Target)
	if err != nil {
		return nil, err
	}
	return &battle.BoostEffect{
		Target: tgt,
		Boosts: [battle.NumStats]int{
			battle.Attack:         def.Atk,
			battle.Defense:        def.Def,
			battle.SpecialAttack:  def.Spa,
			battle.SpecialDefense: def.Spd,
			battle.Speed:          def.Spe,
		},
	}, nil
}

func target(name string) (battle.EffectTarget, error) {
	switch name {
	case "user":
		return battle.TargetUser, nil
	case "opponent":
		return battle.TargetOpponent, nil
	}
	return battle.TargetUser, fmt.Errorf("unknown target %q", name)
}
