package ai

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// Built-in method preconditions evaluated against the WorldState without Lua.
const (
	PredHasEnemy     = "has_enemy"
	PredEnemyInReach = "enemy_in_reach"
	PredCanApproach  = "can_approach"
	PredAllyWounded  = "ally_wounded"
)

// woundedPercent is the HP percentage below which an ally counts as wounded.
const woundedPercent = 50

// ScriptCaller is the interface required by the Planner to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// PlannedAction is one primitive action produced by the planner.
type PlannedAction struct {
	Action string // "attack", "approach", "heal", "end_turn"
	Target string // resolved target UID; empty for end_turn
}

// Planner evaluates an HTN domain for a single combatant and produces an
// ordered action plan for the current decision.
//
// Invariant: domain must not be nil. A nil caller makes every Lua
// precondition false.
type Planner struct {
	domain *Domain
	caller ScriptCaller
	scope  string
	logger *zap.Logger
}

// NewPlanner constructs a Planner.
//
// Precondition: domain must not be nil.
func NewPlanner(domain *Domain, caller ScriptCaller, scope string) *Planner {
	if domain == nil {
		panic("ai.NewPlanner: domain must not be nil")
	}
	return &Planner{domain: domain, caller: caller, scope: scope, logger: zap.NewNop()}
}

// WithLogger returns p logging through logger.
func (p *Planner) WithLogger(logger *zap.Logger) *Planner {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// Domain returns the planner's domain.
func (p *Planner) Domain() *Domain { return p.domain }

// Plan evaluates the HTN domain against state and returns an ordered plan.
//
// Precondition: state and state.Actor must not be nil.
// Postcondition: returns non-nil slice (may be empty); never returns error for Lua failures
// (they are treated as precondition-false).
func (p *Planner) Plan(state *WorldState) ([]PlannedAction, error) {
	if state == nil || state.Actor == nil {
		return nil, fmt.Errorf("ai.Planner.Plan: state and state.Actor must not be nil")
	}

	taskQueue := []string{"behave"}
	var result []PlannedAction

	const maxDepth = 32 // guard against infinite loops
	steps := 0

	for len(taskQueue) > 0 && steps < maxDepth {
		steps++
		current := taskQueue[0]
		taskQueue = taskQueue[1:]

		if op, ok := p.domain.OperatorByID(current); ok {
			target := state.ResolveTarget(op.Target)
			result = append(result, PlannedAction{Action: op.Action, Target: target})
			continue
		}

		method := p.findApplicableMethod(current, state)
		if method == nil {
			continue
		}

		// Prepend subtasks (preserves ordered decomposition).
		taskQueue = append(append([]string(nil), method.Subtasks...), taskQueue...)
	}

	if result == nil {
		result = []PlannedAction{}
	}
	return result, nil
}

// findApplicableMethod returns the first Method for taskID whose precondition passes,
// or nil if none applies.
//
// Methods are tried in declaration order. An empty Precondition always passes.
func (p *Planner) findApplicableMethod(taskID string, state *WorldState) *Method {
	for _, m := range p.domain.MethodsForTask(taskID) {
		if m.Precondition == "" || p.holds(m.Precondition, state) {
			return m
		}
	}
	return nil
}

func (p *Planner) holds(pred string, ws *WorldState) bool {
	switch pred {
	case PredHasEnemy:
		return ws.HasLivingEnemies(ws.Actor.UID)
	case PredEnemyInReach:
		return len(enemiesInReach(ws)) > 0
	case PredCanApproach:
		if len(damageAbilities(ws.Actor.Usable)) == 0 || len(enemiesInReach(ws)) > 0 {
			return false
		}
		target := ws.NearestEnemy(ws.Actor.UID)
		if target == nil {
			return false
		}
		_, ok := approachDestination(ws, target.Position)
		return ok
	case PredAllyWounded:
		_, _, ok := healChoice(ws, "")
		return ok
	}
	if p.caller == nil {
		return false
	}
	val, err := p.caller.CallHook(p.scope, pred, lua.LString(ws.Actor.UID))
	if err != nil {
		p.logger.Warn("ai: precondition hook failed", zap.String("hook", pred), zap.Error(err))
		return false
	}
	return val == lua.LTrue
}

// Evaluate plans for actorID against the engine's current board and returns
// the first planned step that can be realized as a legal-looking action.
// It falls back to ending the turn.
func (p *Planner) Evaluate(eng *combat.Engine, actorID string) (combat.Action, error) {
	ws, ok := BuildWorldState(eng, actorID)
	if !ok {
		return combat.Action{}, fmt.Errorf("ai.Planner.Evaluate: unknown combatant %q", actorID)
	}
	plan, err := p.Plan(ws)
	if err != nil {
		return combat.Action{}, err
	}
	for _, step := range plan {
		if a, ok := Realize(ws, step); ok {
			p.logger.Debug("ai: planned action",
				zap.String("actor", actorID),
				zap.String("step", step.Action),
				zap.String("kind", string(a.Kind)),
			)
			return a, nil
		}
	}
	return endTurn(actorID), nil
}

// Realize turns one planned step into a concrete action for ws.Actor.
// It returns false when the step cannot be carried out on this board.
func Realize(ws *WorldState, step PlannedAction) (combat.Action, bool) {
	self := ws.Actor
	switch step.Action {
	case OpEndTurn:
		return endTurn(self.UID), true
	case OpAttack:
		in := enemiesInReach(ws)
		if len(in) == 0 {
			return combat.Action{}, false
		}
		target := weakest(in)
		for _, e := range in {
			if e.UID == step.Target {
				target = e
			}
		}
		ab, ok := bestDamageAbility(self.Usable, grid.Chebyshev(self.Position, target.Position))
		if !ok {
			return combat.Action{}, false
		}
		return abilityAction(self.UID, ab, target.UID), true
	case OpApproach:
		target := ws.find(step.Target)
		if target == nil || target.Dead {
			target = ws.NearestEnemy(self.UID)
		}
		if target == nil {
			return combat.Action{}, false
		}
		dest, ok := approachDestination(ws, target.Position)
		if !ok {
			return combat.Action{}, false
		}
		return combat.Action{
			ID:             uuid.NewString(),
			ActorID:        self.UID,
			Kind:           combat.ActionMove,
			Cost:           economy.Cost{Type: economy.CostMovementOnly},
			TargetPosition: &dest,
		}, true
	case OpHeal:
		ab, target, ok := healChoice(ws, step.Target)
		if !ok {
			return combat.Action{}, false
		}
		return abilityAction(self.UID, ab, target.UID), true
	}
	return combat.Action{}, false
}

func endTurn(actorID string) combat.Action {
	a := combat.EndTurn(actorID)
	a.ID = uuid.NewString()
	return a
}

func abilityAction(actorID string, ab combat.Ability, targetID string) combat.Action {
	return combat.Action{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Kind:      combat.ActionAbility,
		Cost:      ab.Cost,
		AbilityID: ab.ID,
		TargetIDs: []string{targetID},
	}
}

func reach(ab combat.Ability) int { return max(ab.Range, 1) }

// damageAbilities returns usable single-target abilities carrying a Damage effect.
func damageAbilities(abs []combat.Ability) []combat.Ability {
	var out []combat.Ability
	for _, ab := range abs {
		if ab.Zone != nil {
			continue
		}
		for _, e := range ab.Effects {
			if _, ok := e.(effect.Damage); ok {
				out = append(out, ab)
				break
			}
		}
	}
	return out
}

func healAbilities(abs []combat.Ability) []combat.Ability {
	var out []combat.Ability
	for _, ab := range abs {
		for _, e := range ab.Effects {
			if _, ok := e.(effect.Heal); ok {
				out = append(out, ab)
				break
			}
		}
	}
	return out
}

// bestDamageAbility picks the usable damage ability with the highest
// expected damage whose reach covers dist.
func bestDamageAbility(abs []combat.Ability, dist int) (combat.Ability, bool) {
	var best combat.Ability
	bestAvg, found := 0.0, false
	for _, ab := range damageAbilities(abs) {
		if reach(ab) < dist {
			continue
		}
		if avg := expectedDamage(ab); !found || avg > bestAvg {
			best, bestAvg, found = ab, avg, true
		}
	}
	return best, found
}

func expectedDamage(ab combat.Ability) float64 {
	total := 0.0
	for _, e := range ab.Effects {
		d, ok := e.(effect.Damage)
		if !ok {
			continue
		}
		total += float64(d.Flat)
		if d.Dice == "" {
			continue
		}
		if expr, err := dice.Parse(d.Dice); err == nil {
			total += expr.Average()
		}
	}
	return total
}

func maxReach(abs []combat.Ability) int {
	r := 0
	for _, ab := range abs {
		r = max(r, reach(ab))
	}
	return r
}

// enemiesInReach returns living enemies within reach of at least one usable
// damage ability.
func enemiesInReach(ws *WorldState) []*CombatantState {
	abs := damageAbilities(ws.Actor.Usable)
	if len(abs) == 0 {
		return nil
	}
	r := maxReach(abs)
	var out []*CombatantState
	for _, e := range ws.EnemiesOf(ws.Actor.UID) {
		if grid.Chebyshev(ws.Actor.Position, e.Position) <= r {
			out = append(out, e)
		}
	}
	return out
}

// healChoice picks a usable heal ability and the most wounded member of the
// actor's side in its reach, preferring preferredUID when it qualifies.
func healChoice(ws *WorldState, preferredUID string) (combat.Ability, *CombatantState, bool) {
	for _, ab := range healAbilities(ws.Actor.Usable) {
		var pick *CombatantState
		side := append([]*CombatantState{ws.find(ws.Actor.UID)}, ws.AlliesOf(ws.Actor.UID)...)
		for _, c := range side {
			if c == nil || c.Dead || c.HPPercent() >= woundedPercent {
				continue
			}
			if grid.Chebyshev(ws.Actor.Position, c.Position) > reach(ab) {
				continue
			}
			if c.UID == preferredUID {
				pick = c
				break
			}
			if pick == nil || c.HPPercent() < pick.HPPercent() {
				pick = c
			}
		}
		if pick != nil {
			return ab, pick, true
		}
	}
	return combat.Ability{}, nil, false
}

// approachDestination walks king moves from the actor toward goal until the
// actor's longest usable reach covers goal, the path is blocked, or
// movement runs out.
//
// Postcondition: ok is false when no step can be taken.
func approachDestination(ws *WorldState, goal grid.Position) (grid.Position, bool) {
	self := ws.Actor
	r := max(maxReach(damageAbilities(self.Usable)), 1)
	pos, spent := self.Position, 0
	for grid.Chebyshev(pos, goal) > r {
		next := grid.StepToward(pos, goal)
		if ws.Board == nil || !ws.Board.Passable(next) || ws.Occupied(next) {
			break
		}
		cost := ws.Board.MoveCost(next, ws.CellFeet)
		if spent+cost > self.MovementLeft {
			break
		}
		spent += cost
		pos = next
	}
	return pos, pos != self.Position
}
