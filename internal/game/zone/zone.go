// Package zone tracks active spell zones on the battle map and decides which
// zone effects a creature triggers as it moves and ends turns, subject to each
// effect's frequency policy. It also holds one-shot movement-triggered debuffs.
package zone

import (
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Trigger is the event that fires a zone effect.
type Trigger string

const (
	OnEnter     Trigger = "on_enter_area"
	OnExit      Trigger = "on_exit_area"
	OnMoveIn    Trigger = "on_move_in_area"
	OnEndTurnIn Trigger = "on_end_turn_in_area"
	// OnTargetMove fires a movement debuff.
	OnTargetMove Trigger = "on_target_move"
)

// ParseTrigger normalises a trigger name, accepting "turn_end" for OnEndTurnIn.
func ParseTrigger(s string) (Trigger, bool) {
	switch Trigger(s) {
	case OnEnter, OnExit, OnMoveIn, OnEndTurnIn, OnTargetMove:
		return Trigger(s), true
	case "turn_end":
		return OnEndTurnIn, true
	default:
		return "", false
	}
}

// Frequency limits how often a zone effect may fire.
type Frequency string

const (
	EveryTime       Frequency = "every_time"
	FirstPerTurn    Frequency = "first_per_turn"
	Once            Frequency = "once"
	OncePerCreature Frequency = "once_per_creature"
)

// TargetFilter restricts an effect to matching creatures. Empty lists match everything.
type TargetFilter struct {
	CreatureTypes []string
	Sizes         []stats.Size
	Alignments    []string
}

// Matches reports whether s passes every non-empty restriction.
func (f *TargetFilter) Matches(s Subject) bool {
	if f == nil {
		return true
	}
	if len(f.CreatureTypes) > 0 && !slices.ContainsFunc(s.CreatureTypes, func(t string) bool {
		return slices.Contains(f.CreatureTypes, t)
	}) {
		return false
	}
	if len(f.Sizes) > 0 && !slices.Contains(f.Sizes, s.Size) {
		return false
	}
	if len(f.Alignments) > 0 && !slices.Contains(f.Alignments, s.Alignment) {
		return false
	}
	return true
}

// Effect is one effect of a zone with its trigger and frequency.
type Effect struct {
	Trigger   Trigger
	Frequency Frequency
	Filter    *TargetFilter
	Effect    effect.Effect
}

// Zone is an active spell zone.
//
// ExpiresAtRound 0 means the zone lasts until removed. DC is the caster's
// save DC used by save-gated effects that carry no DC of their own.
type Zone struct {
	ID             string
	SpellID        string
	CasterID       string
	Origin         grid.Position
	Area           Area
	Effects        []Effect
	ExpiresAtRound int
	DC             int
}

// Subject is the creature a trigger is evaluated for.
type Subject struct {
	ID            string
	Position      grid.Position
	Size          stats.Size
	CreatureTypes []string
	Alignment     string
}

// Result is one fired trigger with its materialised effects in declaration order.
type Result struct {
	ZoneID   string
	SpellID  string
	CasterID string
	Trigger  Trigger
	DC       int
	Effects  []effect.Effect
}
