// Package effect defines the closed set of resolved effect descriptors the
// rules engine applies. Each kind is its own struct carrying only its fields;
// Effect is sealed so a type switch over the eight kinds is exhaustive.
package effect

import (
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Kind tags an effect category.
type Kind string

const (
	KindDamage    Kind = "damage"
	KindHeal      Kind = "heal"
	KindStatus    Kind = "status"
	KindMovement  Kind = "movement"
	KindSummon    Kind = "summon"
	KindTerrain   Kind = "terrain"
	KindUtility   Kind = "utility"
	KindDefensive Kind = "defensive"
)

// Kinds lists every effect kind.
var Kinds = []Kind{KindDamage, KindHeal, KindStatus, KindMovement, KindSummon, KindTerrain, KindUtility, KindDefensive}

// Effect is one resolved effect. Only types in this package implement it.
type Effect interface {
	Kind() Kind
	sealed()
}

// SaveGate makes an effect conditional on the target's saving throw.
// DC 0 means "use the caster's spell DC".
type SaveGate struct {
	Ability   stats.Ability
	DC        int
	OnSuccess saves.Outcome
}

// Damage deals Dice + Flat of DamageType.
type Damage struct {
	Dice       string
	Flat       int
	DamageType string
	Save       *SaveGate
}

// Heal restores Dice + Flat hit points.
type Heal struct {
	Dice string
	Flat int
}

// Status applies a copy of Template. An empty Template.ID is filled in on application.
type Status struct {
	Template condition.StatusEffect
	Save     *SaveGate
}

// MoveMode is how forced movement displaces a target.
type MoveMode string

const (
	Push     MoveMode = "push"
	Pull     MoveMode = "pull"
	Teleport MoveMode = "teleport"
)

// Movement forcibly relocates the target by Distance feet.
type Movement struct {
	Mode     MoveMode
	Distance int
}

// Summon brings Count creatures of TemplateID into play for Duration rounds.
type Summon struct {
	TemplateID string
	Count      int
	Duration   int
}

// Terrain lays an environmental effect over a square of Radius cells.
type Terrain struct {
	Environment   string
	Duration      int
	Radius        int
	MovementCost  int
	DamagePerTurn int
	Condition     string
}

// Utility has no mechanical resolution in the engine; it is narrated.
type Utility struct {
	Description string
}

// Defensive grants an AC bonus and damage resistances for Duration rounds.
type Defensive struct {
	ACBonus     int
	Duration    int
	Resistances []string
}

func (Damage) Kind() Kind    { return KindDamage }
func (Heal) Kind() Kind      { return KindHeal }
func (Status) Kind() Kind    { return KindStatus }
func (Movement) Kind() Kind  { return KindMovement }
func (Summon) Kind() Kind    { return KindSummon }
func (Terrain) Kind() Kind   { return KindTerrain }
func (Utility) Kind() Kind   { return KindUtility }
func (Defensive) Kind() Kind { return KindDefensive }

func (Damage) sealed()    {}
func (Heal) sealed()      {}
func (Status) sealed()    {}
func (Movement) sealed()  {}
func (Summon) sealed()    {}
func (Terrain) sealed()   {}
func (Utility) sealed()   {}
func (Defensive) sealed() {}

// Materialized reports whether zone and trigger resolution applies e directly
// (damage, heal or status); other kinds are narrated and skipped there.
func Materialized(e Effect) bool {
	switch e.(type) {
	case Damage, Heal, Status:
		return true
	default:
		return false
	}
}
