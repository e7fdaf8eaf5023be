// Package combat implements the damage and status pipeline of the rules
// engine, the combatant snapshot type it operates on, and the id-keyed
// Roster that stores those snapshots for one encounter.
//
// Combatant values are snapshots: engine methods take a Combatant and return
// a new one, and never write through slices or maps shared with their input.
package combat

import (
	"maps"
	"slices"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

// Team is a side in the fight.
type Team string

const (
	TeamPlayer Team = "player"
	TeamEnemy  Team = "enemy"
)

// AbilityKind classifies an ability.
type AbilityKind string

const (
	KindAttack  AbilityKind = "attack"
	KindSpell   AbilityKind = "spell"
	KindSkill   AbilityKind = "skill"
	KindUtility AbilityKind = "utility"
)

// UnarmedStrikeID is the ability id used for an unarmed strike.
const UnarmedStrikeID = "unarmed_strike"

// Weapon carries weapon properties: "finesse", "ranged", "reach".
type Weapon struct {
	Properties []string
}

// Has reports whether the weapon has property p.
func (w *Weapon) Has(p string) bool {
	return w != nil && slices.Contains(w.Properties, p)
}

// ZoneTemplate is the zone an ability creates at its target point.
type ZoneTemplate struct {
	Area     zone.Area
	Effects  []zone.Effect
	Duration int
}

// DebuffTemplate arms a movement debuff on each target.
type DebuffTemplate struct {
	Effects  []effect.Effect
	Duration int
}

// ReactiveTemplate binds a reactive trigger to each target.
type ReactiveTemplate struct {
	Kind     ReactiveKind
	Effect   effect.Effect
	Duration int
}

// RiderTemplate attaches a save-penalty rider to each target.
type RiderTemplate struct {
	Dice     string
	Flat     int
	Scope    saves.Scope
	Duration int
}

// SustainCost is the economy bucket a concentration spell must spend each
// turn to stay up. Optional costs never drop concentration.
type SustainCost struct {
	ActionType economy.CostType
	Optional   bool
}

// Ability is a resolved action a combatant can take.
type Ability struct {
	ID            string
	Name          string
	Kind          AbilityKind
	Cost          economy.Cost
	Range         int // cells
	Weapon        *Weapon
	Proficient    bool
	AttackRoll    bool
	Effects       []effect.Effect
	Cooldown      int
	Concentration bool
	Sustain       *SustainCost
	Zone          *ZoneTemplate
	Debuff        *DebuffTemplate
	Reactive      *ReactiveTemplate
	Rider         *RiderTemplate
}

// IsMeleeWeapon reports whether the ability is a weapon attack usable within reach 2.
func (a Ability) IsMeleeWeapon() bool {
	return a.Kind == KindAttack && a.Weapon != nil && !a.Weapon.Has("ranged") && a.Range <= 2
}

// Concentration records the spell a combatant is concentrating on.
type Concentration struct {
	SpellID           string
	SpellName         string
	SpellLevel        int
	StartedRound      int
	EffectIDs         []string
	Sustain           *SustainCost
	SustainedThisTurn bool
}

// Combatant is one participant's full combat state at a point in time.
type Combatant struct {
	ID                string
	Name              string
	Team              Team
	AIControlled      bool
	Position          grid.Position
	CurrentHP         int
	MaxHP             int
	AC                int
	Level             int
	Scores            stats.Scores
	SaveProficiencies []stats.Ability
	CastingAbility    stats.Ability
	BaseInitiative    int
	Speed             int
	Size              stats.Size
	CreatureTypes     []string
	Alignment         string
	Resistances       []string
	Vulnerabilities   []string
	Immunities        []string
	Abilities         []Ability
	Cooldowns         map[string]int
	Economy           economy.State
	StatusEffects     []condition.StatusEffect
	SaveRiders        []saves.Rider
	Concentration     *Concentration
	Initiative        int
	DamagedThisTurn   bool
}

// Alive reports whether the combatant has hit points left.
func (c Combatant) Alive() bool { return c.CurrentHP > 0 }

// Ability returns the ability with id.
func (c Combatant) Ability(id string) (Ability, bool) {
	for _, a := range c.Abilities {
		if a.ID == id {
			return a, true
		}
	}
	return Ability{}, false
}

// Cooldown returns the rounds left before ability id is usable again.
func (c Combatant) Cooldown(id string) int { return c.Cooldowns[id] }

// EffectiveAC is AC plus status modifiers; an unset AC counts as 10.
func (c Combatant) EffectiveAC() int {
	ac := c.AC
	if ac <= 0 {
		ac = 10
	}
	return ac + condition.ACBonus(c.StatusEffects)
}

// SaveBonus returns the ability modifier and proficiency bonus for a save.
func (c Combatant) SaveBonus(a stats.Ability) (mod, prof int) {
	mod = c.Scores.Mod(a)
	if slices.Contains(c.SaveProficiencies, a) {
		prof = stats.ProficiencyBonus(c.Level)
	}
	return mod, prof
}

// SpellDC returns the combatant's spell save DC.
func (c Combatant) SpellDC() int {
	ability := c.CastingAbility
	if ability == "" {
		ability = stats.Intelligence
	}
	return saves.SpellDC(c.Level, c.Scores.Score(ability))
}

// Subject is the combatant as seen by the zone tracker.
func (c Combatant) Subject() zone.Subject {
	return zone.Subject{
		ID:            c.ID,
		Position:      c.Position,
		Size:          c.Size,
		CreatureTypes: c.CreatureTypes,
		Alignment:     c.Alignment,
	}
}

// Clone returns a deep copy sharing no mutable state with c.
func (c Combatant) Clone() Combatant {
	out := c
	out.SaveProficiencies = slices.Clone(c.SaveProficiencies)
	out.CreatureTypes = slices.Clone(c.CreatureTypes)
	out.Resistances = slices.Clone(c.Resistances)
	out.Vulnerabilities = slices.Clone(c.Vulnerabilities)
	out.Immunities = slices.Clone(c.Immunities)
	out.Abilities = slices.Clone(c.Abilities)
	out.Cooldowns = maps.Clone(c.Cooldowns)
	out.StatusEffects = slices.Clone(c.StatusEffects)
	out.SaveRiders = slices.Clone(c.SaveRiders)
	if c.Economy.SpellSlots != nil {
		out.Economy.SpellSlots = maps.Clone(c.Economy.SpellSlots)
	}
	if c.Concentration != nil {
		cp := *c.Concentration
		cp.EffectIDs = slices.Clone(c.Concentration.EffectIDs)
		out.Concentration = &cp
	}
	return out
}

// CanAfford reports whether c's ledger can pay cost.
func CanAfford(c Combatant, cost economy.Cost) bool {
	return economy.CanAfford(c.Economy, cost)
}

// Consume returns c with cost paid out of its ledger.
func Consume(c Combatant, cost economy.Cost) Combatant {
	c.Economy = economy.Consume(c.Economy, cost)
	return c
}

// ResetForTurn returns c with a fresh per-turn ledger at its current speed.
func ResetForTurn(c Combatant) Combatant {
	c.Economy = economy.ResetForTurn(c.Economy, c.Speed)
	return c
}

// withCooldown returns c with ability id on cooldown for rounds.
func withCooldown(c Combatant, id string, rounds int) Combatant {
	cd := maps.Clone(c.Cooldowns)
	if cd == nil {
		cd = make(map[string]int)
	}
	cd[id] = rounds
	c.Cooldowns = cd
	return c
}

// WithCooldown returns c with ability id on cooldown for rounds.
func WithCooldown(c Combatant, id string, rounds int) Combatant {
	return withCooldown(c, id, rounds)
}

// tickCooldowns decrements every cooldown, dropping those that reach zero.
func tickCooldowns(c Combatant) Combatant {
	if len(c.Cooldowns) == 0 {
		return c
	}
	cd := make(map[string]int, len(c.Cooldowns))
	for id, n := range c.Cooldowns {
		if n > 1 {
			cd[id] = n - 1
		}
	}
	c.Cooldowns = cd
	return c
}
