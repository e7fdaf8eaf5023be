// Package condition models ongoing status effects: their per-turn mechanics,
// repeat-save descriptors, YAML definitions and the pure list operations the
// combat pipeline applies to a combatant's effect list.
package condition

import (
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Category marks an effect as helpful or harmful.
type Category string

const (
	Buff   Category = "buff"
	Debuff Category = "debuff"
)

// TickKind is the primary mechanical effect of a status.
type TickKind string

const (
	StatModifier  TickKind = "stat_modifier"
	DamagePerTurn TickKind = "damage_per_turn"
	HealPerTurn   TickKind = "heal_per_turn"
	SkipTurn      TickKind = "skip_turn"
	Inert         TickKind = "condition"
)

// SaveTiming is when a repeat save is rolled.
type SaveTiming string

const (
	TurnStart SaveTiming = "turn_start"
	TurnEnd   SaveTiming = "turn_end"
	OnDamage  SaveTiming = "on_damage"
	OnAction  SaveTiming = "on_action"
)

// RepeatSave describes a saving throw re-rolled on a schedule to shake off the effect.
type RepeatSave struct {
	Timing            SaveTiming    `yaml:"timing"`
	Ability           stats.Ability `yaml:"save"`
	DC                int           `yaml:"dc"`
	SuccessEnds       bool          `yaml:"success_ends"`
	AdvantageOnDamage bool          `yaml:"advantage_on_damage"`
	SizeAdvantage     []stats.Size  `yaml:"size_advantage"`
	SizeDisadvantage  []stats.Size  `yaml:"size_disadvantage"`
}

// Advantage reports whether the holder rolls with advantage.
func (r RepeatSave) Advantage(size stats.Size, damagedThisTurn bool) bool {
	return (r.AdvantageOnDamage && damagedThisTurn) || slices.Contains(r.SizeAdvantage, size)
}

// Disadvantage reports whether the holder rolls with disadvantage.
func (r RepeatSave) Disadvantage(size stats.Size) bool {
	return slices.Contains(r.SizeDisadvantage, size)
}

// StatusEffect is one ongoing effect on a combatant.
//
// Invariant: a non-permanent effect with Duration <= 0 is expired.
type StatusEffect struct {
	ID         string
	Name       string
	Category   Category
	Duration   int
	Permanent  bool
	Tick       TickKind
	Value      int
	Stat       string // stat_modifier target: "ac" or "attack"
	Resist     []string
	RepeatSave *RepeatSave
	SourceID   string // spell or ability that applied it
	CasterID   string
}

// Expired reports whether the effect should be removed.
func (s StatusEffect) Expired() bool {
	return !s.Permanent && s.Duration <= 0
}
