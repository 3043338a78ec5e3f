package resolve

import (
	"github.com/lunargale/pokesearch/pkg/battle"
)

// halfTurn enumerates the continuations of one side's action against the
// current live state. Relative frames: weight 1 split across outcomes.
func (r *Resolver) halfTurn(eng *battle.Engine, side battle.SideID, c battle.Choice) []frame {
	st := eng.State()
	user := st.Side(side).ActivePokemon()

	switch c.Kind {
	case battle.ChoiceNone:
		return []frame{{weight: 1}}
	case battle.ChoiceSwitch:
		return []frame{{weight: 1, instrs: r.switchIn(st, side, c.Index)}}
	}

	// A user knocked out earlier this turn never moves.
	if user.Fainted() {
		return []frame{{weight: 1}}
	}
	if user.Volatiles.Has(battle.Flinch) {
		return []frame{{weight: 1}}
	}
	mv := user.Moves[c.Index]
	if user.Volatiles.Has(battle.Taunt) && mv.Category == battle.StatusMove {
		return []frame{{weight: 1}}
	}

	proceed, halted := r.statusGate(st, side)
	proceed, h2 := r.confusionGate(st, side, proceed)
	halted = append(halted, h2...)

	out := halted
	base := eng.Depth()
	for _, f := range proceed {
		eng.Apply(battle.Branch{Instructions: f.instrs})
		for _, ex := range r.executeMove(eng.State(), side, c.Index) {
			out = append(out, f.extend(ex.weight, ex.instrs...))
		}
		eng.RevertTo(base)
	}
	return out
}

// statusGate branches on the user's primary status: sleep and freeze may
// end this turn, paralysis may waste it.
func (r *Resolver) statusGate(st *battle.State, side battle.SideID) (proceed, halted []frame) {
	s := st.Side(side)
	slot := s.Active
	cure := func(from battle.Status) battle.Instruction {
		return battle.Instruction{
			Kind: battle.InstrChangeStatus, Side: side,
			A: slot, B: int(from), Amount: int(battle.StatusNone),
		}
	}

	switch s.ActivePokemon().Status {
	case battle.Sleep:
		wake := r.Gen.Mech.SleepWakeChance
		proceed = []frame{{weight: wake, instrs: []battle.Instruction{cure(battle.Sleep)}}}
		halted = []frame{{weight: 1 - wake}}
	case battle.Freeze:
		thaw := r.Gen.Mech.FreezeThawChance
		proceed = []frame{{weight: thaw, instrs: []battle.Instruction{cure(battle.Freeze)}}}
		halted = []frame{{weight: 1 - thaw}}
	case battle.Paralyze:
		full := r.Gen.Mech.ParalysisChance
		proceed = []frame{{weight: 1 - full}}
		halted = []frame{{weight: full}}
	default:
		proceed = []frame{{weight: 1}}
	}
	return proceed, halted
}

// confusionGate splits each continuing frame into a self-hit line and an
// acting line when the user is confused.
func (r *Resolver) confusionGate(st *battle.State, side battle.SideID, in []frame) (proceed, halted []frame) {
	user := st.Side(side).ActivePokemon()
	if !user.Volatiles.Has(battle.Confusion) {
		return in, nil
	}
	chance := r.Gen.Mech.ConfusionSelfHitChance
	selfDmg := min(confusionDamage(user), user.HP)

	for _, f := range in {
		hit := f.extend(chance)
		if selfDmg > 0 {
			hit = f.extend(chance, battle.Instruction{Kind: battle.InstrDamage, Side: side, Amount: selfDmg})
		}
		halted = append(halted, hit)
		proceed = append(proceed, f.extend(1-chance))
	}
	return proceed, halted
}

// Confusion self-hit: a typeless 40-power physical hit against the user's
// own defense, maximum roll, never critical.
func confusionDamage(p *battle.Pokemon) int {
	atk := p.BoostedStat(battle.Attack)
	def := p.BoostedStat(battle.Defense)
	dmg := (2*p.Level/5+2)*40*atk/def/50 + 2
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// executeMove enumerates accuracy, crit, roll and secondary outcomes for a
// move that the user is definitely attempting.
func (r *Resolver) executeMove(st *battle.State, side battle.SideID, slot int) []frame {
	atkSide, defSide := st.BothSides(side)
	user := atkSide.ActivePokemon()
	tgt := defSide.ActivePokemon()
	mv := user.Moves[slot]

	pp := battle.Instruction{Kind: battle.InstrDecrementPP, Side: side, A: slot}

	// The attempt spends PP even when the move has nothing to do.
	if tgt.Fainted() {
		return []frame{{weight: 1, instrs: []battle.Instruction{pp}}}
	}
	if mv.Powder && tgt.HasType(battle.Grass) {
		return []frame{{weight: 1, instrs: []battle.Instruction{pp}}}
	}
	if mv.Category == battle.StatusMove && statusMoveTargetsOpponent(&mv) &&
		r.Gen.Effectiveness(mv.Type, tgt) == 0 {
		return []frame{{weight: 1, instrs: []battle.Instruction{pp}}}
	}

	hitW := float64(mv.Accuracy) / 100
	var out []frame
	if hitW < 1 {
		miss := frame{weight: 1 - hitW, instrs: []battle.Instruction{pp}}
		if mv.Crash > 0 {
			crash := min(int(float64(user.MaxHP)*mv.Crash), user.HP)
			if crash > 0 {
				miss.instrs = append(miss.instrs, battle.Instruction{Kind: battle.InstrDamage, Side: side, Amount: crash})
			}
		}
		out = append(out, miss)
	}

	type event struct {
		weight float64
		dmg    int
	}
	var events []event
	if base := r.Gen.BaseDamage(st, side, &mv, false); base > 0 {
		critW := r.Gen.Mech.CritChance
		normRolls := r.Gen.Rolls(base)
		critRolls := r.Gen.Rolls(r.Gen.BaseDamage(st, side, &mv, true))
		for _, roll := range normRolls {
			events = append(events, event{weight: hitW * (1 - critW) / float64(len(normRolls)), dmg: roll})
		}
		for _, roll := range critRolls {
			events = append(events, event{weight: hitW * critW / float64(len(critRolls)), dmg: roll})
		}
	} else {
		events = []event{{weight: hitW}}
	}

	for _, ev := range events {
		instrs := []battle.Instruction{pp}
		dealt := min(ev.dmg, tgt.HP)
		userHP := user.HP
		if dealt > 0 {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrDamage, Side: side.Opponent(), Amount: dealt})
			if mv.Drain > 0 {
				if heal := min(int(float64(dealt)*mv.Drain), user.MaxHP-userHP); heal > 0 {
					instrs = append(instrs, battle.Instruction{Kind: battle.InstrHeal, Side: side, Amount: heal})
					userHP += heal
				}
			}
			if mv.Recoil > 0 {
				if rec := min(int(float64(dealt)*mv.Recoil), userHP); rec > 0 {
					instrs = append(instrs, battle.Instruction{Kind: battle.InstrDamage, Side: side, Amount: rec})
					userHP -= rec
				}
			}
		}
		tgtAlive := tgt.HP-dealt > 0
		userAlive := userHP > 0

		if mv.HazardClear {
			for c := battle.SideCondition(0); c < battle.NumSideConditions; c++ {
				if c.Hazard() && atkSide.Condition(c) > 0 {
					instrs = append(instrs, battle.Instruction{
						Kind: battle.InstrChangeSideCondition, Side: side, Cond: c, Amount: -atkSide.Condition(c),
					})
				}
			}
		}
		instrs = append(instrs, r.primaryEffects(st, side, &mv, tgtAlive, userAlive, userHP)...)

		if sec := mv.Secondary; sec != nil {
			trigger := r.secondaryEffects(st, side, sec, tgtAlive)
			if len(trigger) == 0 || sec.Chance >= 1 {
				out = append(out, frame{weight: ev.weight, instrs: append(instrs, trigger...)})
				continue
			}
			withTrigger := make([]battle.Instruction, 0, len(instrs)+len(trigger))
			withTrigger = append(append(withTrigger, instrs...), trigger...)
			out = append(out,
				frame{weight: ev.weight * sec.Chance, instrs: withTrigger},
				frame{weight: ev.weight * (1 - sec.Chance), instrs: instrs},
			)
			continue
		}
		out = append(out, frame{weight: ev.weight, instrs: instrs})
	}
	return out
}

func statusMoveTargetsOpponent(mv *battle.Move) bool {
	if mv.Status != nil && mv.Status.Target == battle.TargetOpponent {
		return true
	}
	if mv.Boosts != nil && mv.Boosts.Target == battle.TargetOpponent {
		return true
	}
	if mv.Volatile != nil && mv.Volatile.Target == battle.TargetOpponent {
		return true
	}
	return false
}

func (r *Resolver) primaryEffects(st *battle.State, side battle.SideID, mv *battle.Move, tgtAlive, userAlive bool, userHP int) []battle.Instruction {
	var out []battle.Instruction
	if mv.Status != nil {
		out = append(out, r.applyStatus(st, side, mv.Status, tgtAlive)...)
	}
	if mv.Boosts != nil {
		out = append(out, r.applyBoosts(st, side, mv.Boosts, tgtAlive)...)
	}
	if mv.Volatile != nil {
		out = append(out, r.applyVolatile(st, side, mv.Volatile, tgtAlive, userHP)...)
	}
	if mv.SideCond != nil {
		out = append(out, r.applySideCond(st, side, mv.SideCond)...)
	}
	if mv.Heal > 0 {
		healSide, healID := st.Side(side), side
		if mv.HealTarget == battle.TargetOpponent {
			healSide, healID = st.Side(side.Opponent()), side.Opponent()
		}
		p := healSide.ActivePokemon()
		missing := p.MaxHP - p.HP
		if healID == side {
			missing = p.MaxHP - userHP
		}
		ok := tgtAlive
		if healID == side {
			ok = userAlive
		}
		if amount := min(int(float64(p.MaxHP)*mv.Heal), missing); ok && amount > 0 {
			out = append(out, battle.Instruction{Kind: battle.InstrHeal, Side: healID, Amount: amount})
		}
	}
	return out
}

func (r *Resolver) secondaryEffects(st *battle.State, side battle.SideID, sec *battle.Secondary, tgtAlive bool) []battle.Instruction {
	var out []battle.Instruction
	if sec.Status != nil {
		out = append(out, r.applyStatus(st, side, sec.Status, tgtAlive)...)
	}
	if sec.Boosts != nil {
		out = append(out, r.applyBoosts(st, side, sec.Boosts, tgtAlive)...)
	}
	if sec.Volatile != nil {
		out = append(out, r.applyVolatile(st, side, sec.Volatile, tgtAlive, st.Side(side).ActivePokemon().HP)...)
	}
	return out
}

func (r *Resolver) applyStatus(st *battle.State, side battle.SideID, eff *battle.StatusEffect, tgtAlive bool) []battle.Instruction {
	victimID := side
	if eff.Target == battle.TargetOpponent {
		victimID = side.Opponent()
		if !tgtAlive {
			return nil
		}
	}
	vs := st.Side(victimID)
	victim := vs.ActivePokemon()

	if victim.Status != battle.StatusNone {
		return nil
	}
	if eff.Target == battle.TargetOpponent {
		if victim.Volatiles.Has(battle.Substitute) || vs.Condition(battle.Safeguard) > 0 {
			return nil
		}
	}
	if st.Terrain == battle.MistyTerrain && victim.Grounded() {
		return nil
	}
	switch eff.Status {
	case battle.Burn:
		if victim.HasType(battle.Fire) {
			return nil
		}
	case battle.Freeze:
		if victim.HasType(battle.Ice) {
			return nil
		}
	case battle.Paralyze:
		if victim.HasType(battle.Electric) {
			return nil
		}
	case battle.PoisonStatus, battle.Toxic:
		if victim.HasType(battle.Poison) || victim.HasType(battle.Steel) {
			return nil
		}
	case battle.Sleep:
		if st.Terrain == battle.ElectricTerrain && victim.Grounded() {
			return nil
		}
	}
	return []battle.Instruction{{
		Kind: battle.InstrChangeStatus, Side: victimID,
		A: vs.Active, B: int(battle.StatusNone), Amount: int(eff.Status),
	}}
}

func (r *Resolver) applyBoosts(st *battle.State, side battle.SideID, eff *battle.BoostEffect, tgtAlive bool) []battle.Instruction {
	victimID := side
	if eff.Target == battle.TargetOpponent {
		victimID = side.Opponent()
		if !tgtAlive {
			return nil
		}
	}
	victim := st.Side(victimID).ActivePokemon()
	if eff.Target == battle.TargetOpponent && victim.Volatiles.Has(battle.Substitute) {
		return nil
	}

	var out []battle.Instruction
	for s := battle.Stat(0); s < battle.NumStats; s++ {
		delta := eff.Boosts[s]
		if delta == 0 {
			continue
		}
		next := clampBoost(victim.Boosts[s] + delta)
		if actual := next - victim.Boosts[s]; actual != 0 {
			out = append(out, battle.Instruction{Kind: battle.InstrBoost, Side: victimID, Stat: s, Amount: actual})
		}
	}
	return out
}

func (r *Resolver) applyVolatile(st *battle.State, side battle.SideID, eff *battle.VolatileEffect, tgtAlive bool, userHP int) []battle.Instruction {
	victimID := side
	if eff.Target == battle.TargetOpponent {
		victimID = side.Opponent()
		if !tgtAlive {
			return nil
		}
	}
	victim := st.Side(victimID).ActivePokemon()
	if victim.Volatiles.Has(eff.Volatile) {
		return nil
	}
	if eff.Target == battle.TargetOpponent && victim.Volatiles.Has(battle.Substitute) {
		return nil
	}
	if eff.Volatile == battle.LeechSeed && victim.HasType(battle.Grass) {
		return nil
	}
	if eff.Volatile == battle.Substitute {
		cost := victim.MaxHP / 4
		if userHP <= cost {
			return nil
		}
		return []battle.Instruction{
			{Kind: battle.InstrDamage, Side: victimID, Amount: cost},
			{Kind: battle.InstrApplyVolatile, Side: victimID, A: int(battle.Substitute)},
		}
	}
	return []battle.Instruction{{Kind: battle.InstrApplyVolatile, Side: victimID, A: int(eff.Volatile)}}
}

// Hazard layer caps. Two or more toxic spikes layers badly poison a
// grounded switch-in.
const (
	maxSpikesLayers      = 3
	maxToxicSpikesLayers = 3
	toxicSpikesBadLayers = 2
)

func (r *Resolver) applySideCond(st *battle.State, side battle.SideID, eff *battle.SideCondEffect) []battle.Instruction {
	targetID := side
	if eff.Target == battle.TargetOpponent {
		targetID = side.Opponent()
	}
	ts := st.Side(targetID)
	count := ts.Condition(eff.Condition)

	add := func(n int) []battle.Instruction {
		return []battle.Instruction{{
			Kind: battle.InstrChangeSideCondition, Side: targetID, Cond: eff.Condition, Amount: n,
		}}
	}

	switch eff.Condition {
	case battle.Spikes:
		if count < maxSpikesLayers {
			return add(1)
		}
	case battle.ToxicSpikes:
		if count < maxToxicSpikesLayers {
			return add(1)
		}
	case battle.StealthRock, battle.StickyWeb:
		if count == 0 {
			return add(1)
		}
	case battle.AuroraVeil:
		if count == 0 && st.Weather == battle.Hail {
			return add(eff.Turns)
		}
	default:
		if count == 0 {
			return add(eff.Turns)
		}
	}
	return nil
}

// switchIn builds the deterministic instruction list for a switch: the
// outgoing combatant's stages, volatiles and move locks are cleared, the
// active index changes, then entry hazards greet the newcomer in a fixed
// order (stealth rock, spikes, sticky web, toxic spikes).
func (r *Resolver) switchIn(st *battle.State, side battle.SideID, next int) []battle.Instruction {
	s := st.Side(side)
	out := s.ActivePokemon()

	var instrs []battle.Instruction
	for stat := battle.Stat(0); stat < battle.NumStats; stat++ {
		if b := out.Boosts[stat]; b != 0 {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrBoost, Side: side, Stat: stat, Amount: -b})
		}
	}
	for v := battle.Volatile(0); v < battle.NumVolatiles; v++ {
		if out.Volatiles.Has(v) {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrRemoveVolatile, Side: side, A: int(v)})
		}
	}
	for i := range out.Moves {
		if out.Moves[i].Disabled {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrEnableMove, Side: side, A: i})
		}
	}
	instrs = append(instrs, battle.Instruction{Kind: battle.InstrSwitch, Side: side, A: s.Active, B: next})

	in := &s.Pokemon[next]
	hp := in.HP

	damage := func(n int) {
		n = min(n, hp)
		if n > 0 {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrDamage, Side: side, Amount: n})
			hp -= n
		}
	}

	if s.Condition(battle.StealthRock) > 0 {
		frac := r.Gen.Mech.StealthRockBase * r.Gen.Effectiveness(battle.Rock, in)
		damage(int(float64(in.MaxHP) * frac))
	}
	if n := s.Condition(battle.Spikes); n > 0 && in.Grounded() && hp > 0 {
		fracs := r.Gen.Mech.SpikesFractions
		frac := fracs[min(n, len(fracs))-1]
		damage(int(float64(in.MaxHP) * frac))
	}
	if s.Condition(battle.StickyWeb) > 0 && in.Grounded() && hp > 0 {
		if in.Boosts[battle.Speed] > battle.MinBoost {
			instrs = append(instrs, battle.Instruction{Kind: battle.InstrBoost, Side: side, Stat: battle.Speed, Amount: -1})
		}
	}
	if n := s.Condition(battle.ToxicSpikes); n > 0 && in.Grounded() && hp > 0 {
		switch {
		case in.HasType(battle.Poison):
			// A grounded poison type soaks the spikes up on entry.
			instrs = append(instrs, battle.Instruction{
				Kind: battle.InstrChangeSideCondition, Side: side, Cond: battle.ToxicSpikes, Amount: -n,
			})
		case !in.HasType(battle.Steel) && in.Status == battle.StatusNone:
			status := battle.PoisonStatus
			if n >= toxicSpikesBadLayers {
				status = battle.Toxic
			}
			instrs = append(instrs, battle.Instruction{
				Kind: battle.InstrChangeStatus, Side: side,
				A: next, B: int(battle.StatusNone), Amount: int(status),
			})
		}
	}
	return instrs
}

func clampBoost(stage int) int {
	if stage > battle.MaxBoost {
		return battle.MaxBoost
	}
	if stage < battle.MinBoost {
		return battle.MinBoost
	}
	return stage
}
