package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// ActionKind discriminates a combat action.
type ActionKind string

const (
	ActionMove      ActionKind = "move"
	ActionAbility   ActionKind = "ability"
	ActionSustain   ActionKind = "sustain"
	ActionBreakFree ActionKind = "break_free"
	ActionEndTurn   ActionKind = "end_turn"
)

// Action is one request submitted to the executor.
//
// Payload by kind: move uses TargetPosition; ability uses AbilityID,
// TargetIDs and optionally TargetPosition; break_free uses EffectID.
type Action struct {
	ID             string
	ActorID        string
	Kind           ActionKind
	Cost           economy.Cost
	TargetPosition *grid.Position
	AbilityID      string
	TargetIDs      []string
	EffectID       string
}

// EndTurn returns an end_turn action for actorID.
func EndTurn(actorID string) Action {
	return Action{ActorID: actorID, Kind: ActionEndTurn, Cost: economy.Cost{Type: economy.CostFree}}
}
