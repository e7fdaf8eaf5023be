package ai

import (
	"fmt"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

// Evaluator is the decision function consulted by the Loop in the thinking
// state. It proposes the next action for actorID; an end_turn action ends
// the turn.
type Evaluator interface {
	Evaluate(eng *combat.Engine, actorID string) (combat.Action, error)
}

// EvaluatorFunc adapts a plain function to Evaluator.
type EvaluatorFunc func(eng *combat.Engine, actorID string) (combat.Action, error)

// Evaluate calls f.
func (f EvaluatorFunc) Evaluate(eng *combat.Engine, actorID string) (combat.Action, error) {
	return f(eng, actorID)
}

// EvaluateHook is the Lua global a ScriptEvaluator calls.
const EvaluateHook = "evaluate_turn"

// ScriptEvaluator delegates the whole decision to the Lua evaluate_turn hook.
// The hook receives the actor UID and returns a table:
//
//	{kind = "end_turn"}
//	{kind = "move", x = 3, y = 4}
//	{kind = "ability", ability = "sword", target = "uid"}
//	{kind = "ability", ability = "fireball", x = 3, y = 4}
//	{kind = "sustain"}
type ScriptEvaluator struct {
	caller ScriptCaller
	scope  string
}

// NewScriptEvaluator returns a ScriptEvaluator calling into scope.
//
// Precondition: caller must not be nil.
func NewScriptEvaluator(caller ScriptCaller, scope string) *ScriptEvaluator {
	if caller == nil {
		panic("ai.NewScriptEvaluator: caller must not be nil")
	}
	return &ScriptEvaluator{caller: caller, scope: scope}
}

// Evaluate implements Evaluator.
//
// Postcondition: a nil hook result or a table without a known kind is an error.
func (s *ScriptEvaluator) Evaluate(eng *combat.Engine, actorID string) (combat.Action, error) {
	ret, err := s.caller.CallHook(s.scope, EvaluateHook, lua.LString(actorID))
	if err != nil {
		return combat.Action{}, fmt.Errorf("ai.ScriptEvaluator: %w", err)
	}
	if ret == nil {
		ret = lua.LNil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return combat.Action{}, fmt.Errorf("ai.ScriptEvaluator: %s returned %s, want table", EvaluateHook, ret.Type())
	}
	a := combat.Action{ID: uuid.NewString(), ActorID: actorID}
	point := func() *grid.Position {
		x, xok := tbl.RawGetString("x").(lua.LNumber)
		y, yok := tbl.RawGetString("y").(lua.LNumber)
		if !xok || !yok {
			return nil
		}
		return &grid.Position{X: int(x), Y: int(y)}
	}
	switch kind := lua.LVAsString(tbl.RawGetString("kind")); kind {
	case string(combat.ActionEndTurn):
		return endTurn(actorID), nil
	case string(combat.ActionMove):
		a.Kind = combat.ActionMove
		a.Cost = economy.Cost{Type: economy.CostMovementOnly}
		a.TargetPosition = point()
		if a.TargetPosition == nil {
			return combat.Action{}, fmt.Errorf("ai.ScriptEvaluator: move without x/y")
		}
	case string(combat.ActionAbility):
		a.Kind = combat.ActionAbility
		a.AbilityID = lua.LVAsString(tbl.RawGetString("ability"))
		if target := lua.LVAsString(tbl.RawGetString("target")); target != "" {
			a.TargetIDs = []string{target}
		}
		a.TargetPosition = point()
		if c, ok := eng.Get(actorID); ok {
			if ab, ok := c.Ability(a.AbilityID); ok {
				a.Cost = ab.Cost
			}
		}
	case string(combat.ActionSustain):
		a.Kind = combat.ActionSustain
	default:
		return combat.Action{}, fmt.Errorf("ai.ScriptEvaluator: unknown action kind %q", kind)
	}
	return a, nil
}

// Bind points mgr's engine.* callbacks at eng's roster.
func Bind(mgr *scripting.Manager, eng *combat.Engine) {
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		c, ok := eng.Get(uid)
		if !ok {
			return nil
		}
		return CombatantInfo(c)
	}
	mgr.Combatants = func() []*scripting.CombatantInfo {
		all := eng.Roster().All()
		out := make([]*scripting.CombatantInfo, 0, len(all))
		for _, c := range all {
			out = append(out, CombatantInfo(c))
		}
		return out
	}
}

// CombatantInfo converts c to the snapshot exposed to Lua.
func CombatantInfo(c combat.Combatant) *scripting.CombatantInfo {
	info := &scripting.CombatantInfo{
		UID:          c.ID,
		Name:         c.Name,
		Team:         string(c.Team),
		HP:           c.CurrentHP,
		MaxHP:        c.MaxHP,
		AC:           c.EffectiveAC(),
		X:            c.Position.X,
		Y:            c.Position.Y,
		Speed:        c.Speed,
		ActionReady:  c.Economy.Action.Available(),
		MovementLeft: c.Economy.Movement.Remaining(),
	}
	for _, s := range c.StatusEffects {
		info.Conditions = append(info.Conditions, s.Name)
	}
	for _, ab := range usableAbilities(c) {
		info.Abilities = append(info.Abilities, ab.ID)
	}
	return info
}
