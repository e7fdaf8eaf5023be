// Package action implements the single authoritative entry point that
// validates, pays for and resolves one combat action.
package action

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/turn"
)

// Executor validates and resolves actions against one encounter's engine and
// scheduler. It is not safe for concurrent use.
type Executor struct {
	eng      *combat.Engine
	sched    *turn.Scheduler
	resolver AbilityResolver
	logger   *zap.Logger
}

// NewExecutor wires an Executor.
//
// Precondition: eng and sched must be non-nil. A nil resolver is replaced by
// BasicResolver; a nil logger by a no-op logger.
func NewExecutor(eng *combat.Engine, sched *turn.Scheduler, resolver AbilityResolver, logger *zap.Logger) *Executor {
	if eng == nil || sched == nil {
		panic("action: NewExecutor called with nil engine or scheduler")
	}
	if resolver == nil {
		resolver = BasicResolver{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{eng: eng, sched: sched, resolver: resolver, logger: logger}
}

// Execute validates a and, if it is legal and affordable, pays its cost and
// resolves it. A rejected action changes no state and is narrated.
//
// Postcondition: returns false iff the action was rejected.
func (x *Executor) Execute(a combat.Action) bool {
	actor, ok := x.eng.Get(a.ActorID)
	if !ok {
		x.logger.Warn("action for unknown combatant", zap.String("actor", a.ActorID), zap.String("kind", string(a.Kind)))
		x.eng.Logf(event.LogSystem, a.ActorID, "Unknown combatant %q cannot act", a.ActorID)
		return false
	}
	if x.sched.CurrentID() != actor.ID {
		return x.reject(actor, a, fmt.Sprintf("it is not %s's turn", actor.Name))
	}
	if !actor.Alive() {
		return x.reject(actor, a, "defeated")
	}
	if a.Kind == combat.ActionEndTurn {
		x.sched.RecordAction(a)
		x.sched.EndTurn()
		return true
	}

	cost, reason := x.validate(actor, a)
	if reason != "" {
		return x.reject(actor, a, reason)
	}
	if !combat.CanAfford(actor, cost) {
		return x.reject(actor, a, "not enough resources or action already used")
	}
	a.Cost = cost
	actor = x.eng.Commit(combat.Consume(actor, cost))

	switch a.Kind {
	case combat.ActionMove:
		x.move(actor, *a.TargetPosition, cost.MovementCost)
	case combat.ActionAbility:
		x.ability(actor, a)
	case combat.ActionSustain:
		x.sustain(actor)
	case combat.ActionBreakFree:
		x.breakFree(actor, a.EffectID)
	}
	x.sched.RecordAction(a)
	x.logger.Debug("action executed",
		zap.String("actor", actor.ID),
		zap.String("kind", string(a.Kind)),
		zap.String("cost", string(cost.Type)),
	)
	return true
}

func (x *Executor) reject(actor combat.Combatant, a combat.Action, reason string) bool {
	x.logger.Warn("action rejected",
		zap.String("actor", actor.ID),
		zap.String("kind", string(a.Kind)),
		zap.String("reason", reason),
	)
	x.eng.Log(event.LogAction,
		fmt.Sprintf("%s cannot perform this action (%s)", actor.Name, reason),
		actor.ID, a.TargetIDs,
		map[string]any{"kind": string(a.Kind), "reason": reason, "rejected": true},
	)
	return false
}

// validate checks a against the current state and returns the cost to pay,
// or a non-empty rejection reason.
func (x *Executor) validate(actor combat.Combatant, a combat.Action) (economy.Cost, string) {
	cost := a.Cost
	switch a.Kind {
	case combat.ActionMove:
		if a.TargetPosition == nil {
			return cost, "no destination"
		}
		feet, reason := x.pathCost(actor, *a.TargetPosition)
		if reason != "" {
			return cost, reason
		}
		if cost.Type == "" {
			cost.Type = economy.CostMovementOnly
		}
		cost.MovementCost = feet
	case combat.ActionAbility:
		ab, ok := actor.Ability(a.AbilityID)
		if !ok {
			return cost, fmt.Sprintf("unknown ability %q", a.AbilityID)
		}
		if cd := actor.Cooldown(ab.ID); cd > 0 {
			return cost, fmt.Sprintf("%s is on cooldown for %d more turns", ab.Name, cd)
		}
		reach := max(ab.Range, 1)
		for _, id := range a.TargetIDs {
			t, ok := x.eng.Get(id)
			if !ok {
				return cost, fmt.Sprintf("unknown target %q", id)
			}
			if !t.Alive() {
				return cost, fmt.Sprintf("%s is already down", t.Name)
			}
			if grid.Chebyshev(actor.Position, t.Position) > reach {
				return cost, fmt.Sprintf("%s is out of range", t.Name)
			}
		}
		if p := a.TargetPosition; p != nil {
			if !x.eng.Board().InBounds(*p) {
				return cost, "target point is off the map"
			}
			if grid.Chebyshev(actor.Position, *p) > reach {
				return cost, "target point is out of range"
			}
		}
		if cost.Type == "" {
			cost = ab.Cost
		}
	case combat.ActionSustain:
		conc := actor.Concentration
		if conc == nil {
			return cost, "not concentrating on anything"
		}
		if conc.SustainedThisTurn {
			return cost, fmt.Sprintf("%s is already sustained this turn", conc.SpellName)
		}
		if cost.Type == "" {
			cost.Type = economy.CostFree
			if conc.Sustain != nil {
				cost.Type = conc.Sustain.ActionType
			}
		}
	case combat.ActionBreakFree:
		s, ok := condition.Find(actor.StatusEffects, a.EffectID)
		if !ok {
			return cost, fmt.Sprintf("no effect %q to break free from", a.EffectID)
		}
		if s.RepeatSave == nil || s.RepeatSave.Timing != condition.OnAction {
			return cost, fmt.Sprintf("%s cannot be broken by effort", s.Name)
		}
		if cost.Type == "" {
			cost.Type = economy.CostAction
		}
	default:
		return cost, fmt.Sprintf("unknown action kind %q", a.Kind)
	}
	if !cost.Type.Known() {
		return cost, fmt.Sprintf("unknown cost type %q", cost.Type)
	}
	return cost, ""
}

// pathCost walks king moves from actor to dest and totals each entered
// tile's cost in feet.
func (x *Executor) pathCost(actor combat.Combatant, dest grid.Position) (int, string) {
	board := x.eng.Board()
	if dest == actor.Position {
		return 0, "already there"
	}
	if !board.Passable(dest) {
		return 0, fmt.Sprintf("%s is not passable", dest)
	}
	if x.eng.Occupied(dest, actor.ID) {
		return 0, fmt.Sprintf("%s is occupied", dest)
	}
	feet := 0
	for pos := actor.Position; pos != dest; {
		pos = grid.StepToward(pos, dest)
		if !board.Passable(pos) {
			return 0, fmt.Sprintf("path blocked at %s", pos)
		}
		feet += board.MoveCost(pos, x.eng.CellFeet())
	}
	return feet, ""
}

// move relocates actor and resolves, in order: tile effects, opportunity
// attacks, movement debuffs, zone exit/entry/move-within triggers.
func (x *Executor) move(actor combat.Combatant, to grid.Position, feet int) {
	from := actor.Position
	actor.Position = to
	actor = x.eng.Commit(actor)
	x.eng.Bus().Publish(event.UnitMove{UnitID: actor.ID, From: from, To: to, Cost: feet})
	x.eng.Log(event.LogAction, fmt.Sprintf("%s moves from %s to %s", actor.Name, from, to), actor.ID, nil,
		map[string]any{"from": from.String(), "to": to.String(), "cost": feet})

	actor = x.eng.ResolveTileEffects(actor)
	actor = x.eng.OpportunityAttacks(actor, from, to)
	actor = x.eng.ResolveMovementDebuffs(actor)
	actor = x.eng.ResolveZoneMovement(actor, from)
	x.eng.Commit(actor)
}

// ability narrates the use, fires attack and cast telemetry with their
// reactive triggers, starts the cooldown and hands off to the resolver.
func (x *Executor) ability(actor combat.Combatant, a combat.Action) {
	ab, _ := actor.Ability(a.AbilityID)
	x.eng.Bus().Publish(event.UnitCast{CasterID: actor.ID, AbilityID: ab.ID, TargetIDs: a.TargetIDs, Target: a.TargetPosition})
	x.eng.Log(event.LogAction, fmt.Sprintf("%s uses %s", actor.Name, ab.Name), actor.ID, a.TargetIDs,
		map[string]any{"abilityId": ab.ID})

	if ab.Cooldown > 0 {
		x.eng.Commit(combat.WithCooldown(actor, ab.ID, ab.Cooldown))
	}
	if ab.Kind == combat.KindAttack || ab.AttackRoll {
		for _, id := range a.TargetIDs {
			x.eng.Bus().Publish(event.UnitAttack{AttackerID: actor.ID, TargetID: id, AbilityID: ab.ID})
			x.eng.FireReactive(combat.OnTargetAttack, id)
		}
	}
	x.eng.FireReactive(combat.OnTargetCast, actor.ID)

	if current, ok := x.eng.Get(actor.ID); !ok || !current.Alive() {
		return
	}
	x.resolver.Resolve(x.eng, actor.ID, ab, a)
}

func (x *Executor) sustain(actor combat.Combatant) {
	conc := *actor.Concentration
	conc.SustainedThisTurn = true
	actor.Concentration = &conc
	x.eng.Commit(actor)
	x.eng.Bus().Publish(event.UnitSustain{UnitID: actor.ID, SpellID: conc.SpellID})
	x.eng.Logf(event.LogAction, actor.ID, "%s sustains %s", actor.Name, conc.SpellName)
	x.eng.FireReactive(combat.OnCasterAction, actor.ID)
}

func (x *Executor) breakFree(actor combat.Combatant, effectID string) {
	s, _ := condition.Find(actor.StatusEffects, effectID)
	x.eng.Logf(event.LogAction, actor.ID, "%s struggles against %s", actor.Name, s.Name)
	x.eng.Commit(x.eng.ResolveRepeatSaves(actor, condition.OnAction, effectID))
}
