package combat

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

// necrotic is the damage type of damage_per_turn statuses.
const necrotic = "necrotic"

// Source identifies where an applied effect came from.
type Source struct {
	ActorID string
	Name    string
	SpellID string
	// DC is used by save gates that carry no DC of their own.
	DC int
	// Origin is the point forced movement pushes away from or pulls toward.
	Origin grid.Position
}

// SetConditions installs the registry used to instantiate tile conditions.
func (e *Engine) SetConditions(reg *condition.Registry) { e.conditions = reg }

// adjustDamage applies immunity, resistance and vulnerability for damageType.
func adjustDamage(c Combatant, amount int, damageType string) int {
	if damageType == "" || amount <= 0 {
		return max(amount, 0)
	}
	if slices.Contains(c.Immunities, damageType) {
		return 0
	}
	if slices.Contains(c.Resistances, damageType) || condition.Resists(c.StatusEffects, damageType) {
		amount /= 2
	}
	if slices.Contains(c.Vulnerabilities, damageType) {
		amount *= 2
	}
	return amount
}

// ApplyDamage deals amount of damageType to c after resistances, clamping hit
// points at zero. Damage flags c as damaged this turn, forces a concentration
// save, and resolves on_damage repeat saves. Concentration ends on death.
//
// Postcondition: 0 <= result.CurrentHP <= c.CurrentHP.
func (e *Engine) ApplyDamage(c Combatant, amount int, source, damageType string) Combatant {
	dealt := adjustDamage(c, amount, damageType)
	wasAlive := c.Alive()
	c.CurrentHP = max(c.CurrentHP-dealt, 0)
	if dealt > 0 {
		c.DamagedThisTurn = true
	}
	died := wasAlive && !c.Alive()
	typeLabel := ""
	if damageType != "" {
		typeLabel = " " + damageType
	}
	e.Log(event.LogDamage,
		fmt.Sprintf("%s takes %d%s damage from %s (%d/%d HP)", c.Name, dealt, typeLabel, source, c.CurrentHP, c.MaxHP),
		c.ID, nil,
		map[string]any{"amount": dealt, "rolled": amount, "damageType": damageType, "source": source, "isDeath": died},
	)
	if died {
		e.Logf(event.LogSystem, c.ID, "%s falls!", c.Name)
		return e.DropConcentration(c, "defeated")
	}
	if dealt <= 0 || !c.Alive() {
		return c
	}
	if c.Concentration != nil {
		dc := max(10, dealt/2)
		var res saves.Result
		c, res = e.RollSave(c, stats.Constitution, dc, dice.Straight, "concentration")
		if !res.Success {
			c = e.DropConcentration(c, "failed concentration save")
		}
	}
	return e.ResolveRepeatSaves(c, condition.OnDamage, "")
}

// ApplyHealing restores amount hit points to c.
//
// Postcondition: c.CurrentHP <= result.CurrentHP <= c.MaxHP.
func (e *Engine) ApplyHealing(c Combatant, amount int, source string) Combatant {
	amount = max(amount, 0)
	before := c.CurrentHP
	c.CurrentHP = min(c.CurrentHP+amount, c.MaxHP)
	e.Log(event.LogHeal,
		fmt.Sprintf("%s heals %d from %s (%d/%d HP)", c.Name, c.CurrentHP-before, source, c.CurrentHP, c.MaxHP),
		c.ID, nil,
		map[string]any{"amount": c.CurrentHP - before, "source": source},
	)
	return c
}

// RollSave rolls c's saving throw with every active rider folded in, then
// consumes c's next_save riders.
//
// Postcondition: result has no next_save rider.
func (e *Engine) RollSave(c Combatant, ability stats.Ability, dc int, mode dice.Mode, source string) (Combatant, saves.Result) {
	mod, prof := c.SaveBonus(ability)
	res := saves.Roll(e.roller, saves.Request{
		Ability:     ability,
		AbilityMod:  mod,
		Proficiency: prof,
		DC:          dc,
		Modifiers:   saves.Modifiers(c.SaveRiders),
		Mode:        mode,
	})
	for _, skipped := range res.Skipped {
		e.logger.Warn("unparseable save modifier skipped", zap.String("combatant", c.ID), zap.String("dice", skipped))
	}
	kept, _ := saves.ConsumeNextSave(c.SaveRiders)
	c.SaveRiders = kept
	e.Log(event.LogStatus, fmt.Sprintf("%s (%s): %s", c.Name, source, res.Describe()), c.ID, nil,
		map[string]any{"ability": string(ability), "dc": dc, "total": res.Total, "natural": res.D20.Natural, "success": res.Success},
	)
	return c, res
}

// ResolveRepeatSaves rolls every repeat save of c due at timing; for OnAction
// only the effect with effectID is rolled. Effects whose save succeeds and is
// marked success-ends are removed.
func (e *Engine) ResolveRepeatSaves(c Combatant, timing condition.SaveTiming, effectID string) Combatant {
	for _, s := range condition.WithRepeatSave(c.StatusEffects, timing, effectID) {
		rs := s.RepeatSave
		dc := rs.DC
		if dc <= 0 {
			dc = e.casterDC(s.CasterID)
		}
		mode := dice.Combine(rs.Advantage(c.Size, c.DamagedThisTurn), rs.Disadvantage(c.Size))
		var res saves.Result
		c, res = e.RollSave(c, rs.Ability, dc, mode, s.Name)
		if res.Success && rs.SuccessEnds {
			c.StatusEffects = condition.Without(c.StatusEffects, s.ID)
			e.Logf(event.LogStatus, c.ID, "%s shakes off %s", c.Name, s.Name)
		}
	}
	return c
}

// casterDC returns the spell DC of casterID, or 10 when the caster is unknown.
func (e *Engine) casterDC(casterID string) int {
	if caster, ok := e.roster.Get(casterID); ok {
		return caster.SpellDC()
	}
	return 10
}

// ResolveTileEffects applies the environmental effect on c's tile: its
// per-turn damage, then its condition unless c already has one of that name.
func (e *Engine) ResolveTileEffects(c Combatant) Combatant {
	env := e.board.Tile(c.Position).Environment
	if env == nil || !c.Alive() {
		return c
	}
	if env.DamagePerTurn > 0 {
		damageType := env.DamageType
		if damageType == "" {
			damageType = env.Type
		}
		c = e.ApplyDamage(c, env.DamagePerTurn, env.Type, damageType)
	}
	if env.Condition != "" && c.Alive() && !condition.HasName(c.StatusEffects, e.conditionName(env.Condition)) {
		s := e.instantiateCondition(env.Condition, env.SourceID, env.CasterID)
		s.Duration = 1
		c.StatusEffects = condition.Add(c.StatusEffects, s)
		e.Logf(event.LogStatus, c.ID, "%s is %s by the %s", c.Name, s.Name, env.Type)
	}
	return c
}

func (e *Engine) conditionName(id string) string {
	if e.conditions != nil {
		if def, ok := e.conditions.Get(id); ok {
			return def.Name
		}
	}
	return id
}

func (e *Engine) instantiateCondition(id, sourceID, casterID string) condition.StatusEffect {
	if e.conditions != nil {
		if def, ok := e.conditions.Get(id); ok {
			return def.Instantiate(uuid.NewString(), sourceID, casterID)
		}
	}
	return condition.StatusEffect{
		ID:       uuid.NewString(),
		Name:     id,
		Category: condition.Debuff,
		Duration: 1,
		Tick:     condition.Inert,
		SourceID: sourceID,
		CasterID: casterID,
	}
}

// ApplyResults applies every effect of every trigger result to c in order,
// stopping once c is down.
func (e *Engine) ApplyResults(c Combatant, results []zone.Result) Combatant {
	for _, r := range results {
		src := Source{ActorID: r.CasterID, SpellID: r.SpellID, DC: r.DC, Name: e.abilityName(r.CasterID, r.SpellID)}
		for _, eff := range r.Effects {
			if !c.Alive() {
				return c
			}
			c = e.ApplyEffect(c, eff, src)
		}
	}
	return c
}

func (e *Engine) abilityName(casterID, abilityID string) string {
	if caster, ok := e.roster.Get(casterID); ok {
		if ab, ok := caster.Ability(abilityID); ok && ab.Name != "" {
			return ab.Name
		}
	}
	return abilityID
}

// rollAmount totals dice plus flat; unparseable dice count as zero and are logged.
func (e *Engine) rollAmount(expr string, flat int) int {
	total := flat
	if expr == "" {
		return total
	}
	res, err := e.roller.RollExpr(expr)
	if err != nil {
		e.logger.Warn("unparseable effect dice skipped", zap.String("dice", expr), zap.Error(err))
		return total
	}
	return total + res.Total()
}

func (e *Engine) gateDC(g *effect.SaveGate, src Source) int {
	switch {
	case g.DC > 0:
		return g.DC
	case src.DC > 0:
		return src.DC
	default:
		return e.casterDC(src.ActorID)
	}
}

// ApplyEffect resolves one effect against target and returns the new target.
// Terrain effects land on the target's position; summon and utility effects
// are narrated only.
func (e *Engine) ApplyEffect(target Combatant, eff effect.Effect, src Source) Combatant {
	switch eff := eff.(type) {
	case effect.Damage:
		amount := e.rollAmount(eff.Dice, eff.Flat)
		if eff.Save != nil {
			var res saves.Result
			target, res = e.RollSave(target, eff.Save.Ability, e.gateDC(eff.Save, src), dice.Straight, src.Name)
			amount = saves.ScaleDamage(amount, eff.Save.OnSuccess, res.Success)
		}
		return e.ApplyDamage(target, amount, src.Name, eff.DamageType)
	case effect.Heal:
		return e.ApplyHealing(target, e.rollAmount(eff.Dice, eff.Flat), src.Name)
	case effect.Status:
		if eff.Save != nil {
			var res saves.Result
			target, res = e.RollSave(target, eff.Save.Ability, e.gateDC(eff.Save, src), dice.Straight, src.Name)
			if res.Success {
				e.Logf(event.LogStatus, target.ID, "%s resists %s", target.Name, eff.Template.Name)
				return target
			}
		}
		return e.AddStatus(target, eff.Template, src)
	case effect.Defensive:
		duration := eff.Duration
		if duration <= 0 {
			duration = 1
		}
		name := src.Name
		if name == "" {
			name = "Defensive stance"
		}
		return e.AddStatus(target, condition.StatusEffect{
			Name:     name,
			Category: condition.Buff,
			Duration: duration,
			Tick:     condition.StatModifier,
			Stat:     "ac",
			Value:    eff.ACBonus,
			Resist:   eff.Resistances,
		}, src)
	case effect.Movement:
		return e.ForceMove(target, eff, src)
	case effect.Terrain:
		e.ApplyTerrain(target.Position, eff, src)
		return target
	case effect.Summon:
		e.Logf(event.LogAction, src.ActorID, "%s summons %d %s for %d rounds", e.actorName(src.ActorID), max(eff.Count, 1), eff.TemplateID, eff.Duration)
		return target
	case effect.Utility:
		e.Logf(event.LogAction, src.ActorID, "%s: %s", src.Name, eff.Description)
		return target
	default:
		panic(fmt.Sprintf("combat: unhandled effect type %T", eff))
	}
}

func (e *Engine) actorName(id string) string {
	if c, ok := e.roster.Get(id); ok {
		return c.Name
	}
	return id
}

// AddStatus attaches a copy of tmpl to c. Missing ids are generated, a
// non-permanent status without a duration lasts one turn, and the source
// defaults to src.
func (e *Engine) AddStatus(c Combatant, tmpl condition.StatusEffect, src Source) Combatant {
	if tmpl.ID == "" {
		tmpl.ID = uuid.NewString()
	}
	if !tmpl.Permanent && tmpl.Duration <= 0 {
		tmpl.Duration = 1
	}
	if tmpl.SourceID == "" {
		tmpl.SourceID = src.SpellID
	}
	if tmpl.CasterID == "" {
		tmpl.CasterID = src.ActorID
	}
	tmpl.Resist = slices.Clone(tmpl.Resist)
	c.StatusEffects = condition.Add(c.StatusEffects, tmpl)
	e.Log(event.LogStatus, fmt.Sprintf("%s is affected by %s", c.Name, tmpl.Name), c.ID, nil,
		map[string]any{"effectId": tmpl.ID, "duration": tmpl.Duration, "category": string(tmpl.Category)},
	)
	return c
}

// ApplyTerrain lays eff over the square of eff.Radius cells around center.
func (e *Engine) ApplyTerrain(center grid.Position, eff effect.Terrain, src Source) {
	duration := eff.Duration
	if duration <= 0 {
		duration = 1
	}
	board := e.board.WithEnvironment(center, eff.Radius, battlemap.EnvironmentalEffect{
		ID:            uuid.NewString(),
		Type:          eff.Environment,
		Duration:      duration,
		DamagePerTurn: eff.DamagePerTurn,
		DamageType:    eff.Environment,
		Condition:     eff.Condition,
		SourceID:      src.SpellID,
		CasterID:      src.ActorID,
	})
	if eff.MovementCost > 1 {
		for x := center.X - eff.Radius; x <= center.X+eff.Radius; x++ {
			for y := center.Y - eff.Radius; y <= center.Y+eff.Radius; y++ {
				p := grid.Position{X: x, Y: y}
				if !board.InBounds(p) {
					continue
				}
				t := board.Tile(p)
				t.MovementCost = eff.MovementCost
				board = board.WithTile(t)
			}
		}
	}
	e.Logf(event.LogSystem, src.ActorID, "%s covers the area around %s for %d rounds", eff.Environment, center, duration)
	e.SetBoard(board)
}

// ForceMove displaces c by eff. Push and pull move one cell at a time and stop
// at the map edge, a blocking tile or an occupied cell. Forced movement resolves
// tile and zone triggers but never provokes opportunity attacks.
func (e *Engine) ForceMove(c Combatant, eff effect.Movement, src Source) Combatant {
	if eff.Mode == effect.Teleport {
		e.Logf(event.LogAction, c.ID, "%s is teleported by %s", c.Name, src.Name)
		return c
	}
	from := c.Position
	pos := from
	for range grid.CellsFromFeet(eff.Distance, e.cfg.CellFeet) {
		var next grid.Position
		if eff.Mode == effect.Pull {
			next = grid.StepToward(pos, src.Origin)
		} else {
			next = grid.StepToward(pos, grid.Position{X: 2*pos.X - src.Origin.X, Y: 2*pos.Y - src.Origin.Y})
		}
		if next == pos || !e.board.Passable(next) || e.occupied(next, c.ID) {
			break
		}
		pos = next
	}
	if pos == from {
		return c
	}
	c.Position = pos
	e.bus.Publish(event.UnitMove{UnitID: c.ID, From: from, To: pos, Forced: true})
	e.Logf(event.LogAction, c.ID, "%s is moved from %s to %s", c.Name, from, pos)
	c = e.ResolveTileEffects(c)
	return e.ResolveZoneMovement(c, from)
}

// occupied reports whether a living combatant other than selfID stands at p.
func (e *Engine) occupied(p grid.Position, selfID string) bool {
	for _, o := range e.roster.Alive() {
		if o.ID != selfID && o.Position == p {
			return true
		}
	}
	return false
}

// Occupied reports whether a living combatant other than selfID stands at p.
func (e *Engine) Occupied(p grid.Position, selfID string) bool { return e.occupied(p, selfID) }

// ResolveZoneMovement evaluates zone triggers for c having moved from from to
// its current position and applies them.
func (e *Engine) ResolveZoneMovement(c Combatant, from grid.Position) Combatant {
	if !c.Alive() {
		return c
	}
	return e.ApplyResults(c, e.zones.HandleMovement(c.Subject(), c.Position, from, e.round))
}

// ResolveMovementDebuffs fires the movement debuffs armed on c.
func (e *Engine) ResolveMovementDebuffs(c Combatant) Combatant {
	var results []zone.Result
	e.debuffs, results = zone.TriggerMovementDebuffs(e.debuffs, c.ID, e.round)
	return e.ApplyResults(c, results)
}

// BeginTurn runs turn-start processing for c and commits it: the economy is
// reset, sustain tracking cleared, expired statuses purged, cooldowns ticked
// and turn_start repeat saves rolled.
func (e *Engine) BeginTurn(c Combatant) Combatant {
	c = ResetForTurn(c)
	if c.Concentration != nil {
		conc := *c.Concentration
		conc.SustainedThisTurn = false
		c.Concentration = &conc
	}
	var purged []condition.StatusEffect
	c.StatusEffects, purged = condition.Purge(c.StatusEffects)
	for _, s := range purged {
		e.Logf(event.LogStatus, c.ID, "%s's %s wears off", c.Name, s.Name)
	}
	c = tickCooldowns(c)
	e.Log(event.LogTurnStart, fmt.Sprintf("%s's turn", c.Name), c.ID, nil, map[string]any{"round": e.round, "turn": e.turn})
	c = e.ResolveRepeatSaves(c, condition.TurnStart, "")
	return e.Commit(c)
}

// ResolveEndOfTurn runs the end-of-turn pipeline for c in order: tile effects,
// zone end-turn effects, status damage and healing ticks, the concentration
// sustain check, turn_end repeat saves, then clears the damaged flag and ticks
// status durations. The result is committed.
func (e *Engine) ResolveEndOfTurn(c Combatant, round int) Combatant {
	c = e.ResolveTileEffects(c)
	if c.Alive() {
		c = e.ApplyResults(c, e.zones.ProcessEndTurn(c.Subject(), round))
	}
	ids := make([]string, len(c.StatusEffects))
	for i, s := range c.StatusEffects {
		ids[i] = s.ID
	}
	for _, id := range ids {
		if !c.Alive() {
			break
		}
		// A tick can break concentration and strip later statuses.
		s, ok := condition.Find(c.StatusEffects, id)
		if !ok {
			continue
		}
		switch s.Tick {
		case condition.DamagePerTurn:
			c = e.ApplyDamage(c, s.Value, s.Name, necrotic)
		case condition.HealPerTurn:
			c = e.ApplyHealing(c, s.Value, s.Name)
		}
	}
	if conc := c.Concentration; conc != nil && conc.Sustain != nil && !conc.Sustain.Optional && !conc.SustainedThisTurn {
		c = e.DropConcentration(c, "not sustained")
	}
	if c.Alive() {
		c = e.ResolveRepeatSaves(c, condition.TurnEnd, "")
	}
	c.DamagedThisTurn = false
	var expired []condition.StatusEffect
	c.StatusEffects, expired = condition.Tick(c.StatusEffects)
	for _, s := range expired {
		e.Logf(event.LogStatus, c.ID, "%s's %s wears off", c.Name, s.Name)
	}
	e.Log(event.LogTurnEnd, fmt.Sprintf("%s ends their turn", c.Name), c.ID, nil, map[string]any{"round": round})
	return e.Commit(c)
}
