package content

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

// yamlEncounterFile is the top-level YAML structure for encounter files.
type yamlEncounterFile struct {
	Encounter yamlEncounter `yaml:"encounter"`
}

type yamlEncounter struct {
	ID          string          `yaml:"id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Map         yamlMap         `yaml:"map"`
	Abilities   []yamlAbility   `yaml:"abilities"`
	Combatants  []yamlCombatant `yaml:"combatants"`
	Zones       []yamlZone      `yaml:"zones"`
}

type yamlMap struct {
	Width       int               `yaml:"width"`
	Height      int               `yaml:"height"`
	Tiles       []yamlTile        `yaml:"tiles"`
	Environment []yamlEnvironment `yaml:"environment"`
}

type yamlTile struct {
	X            int    `yaml:"x"`
	Y            int    `yaml:"y"`
	Terrain      string `yaml:"terrain"`
	MovementCost int    `yaml:"movement_cost"`
	Blocks       bool   `yaml:"blocks"`
}

type yamlEnvironment struct {
	X      int                           `yaml:"x"`
	Y      int                           `yaml:"y"`
	Radius int                           `yaml:"radius"`
	Effect battlemap.EnvironmentalEffect `yaml:",inline"`
}

type yamlWeapon struct {
	Properties []string `yaml:"properties"`
}

type yamlSustain struct {
	ActionType economy.CostType `yaml:"action_type"`
	Optional   bool             `yaml:"optional"`
}

type yamlFilter struct {
	CreatureTypes []string     `yaml:"creature_types"`
	Sizes         []stats.Size `yaml:"sizes"`
	Alignments    []string     `yaml:"alignments"`
}

type yamlZoneEffect struct {
	Trigger   string            `yaml:"trigger"`
	Frequency zone.Frequency    `yaml:"frequency"`
	Filter    *yamlFilter       `yaml:"filter"`
	Effect    effect.Descriptor `yaml:"effect"`
}

type yamlZoneTemplate struct {
	Area     zone.Area        `yaml:"area"`
	Duration int              `yaml:"duration"`
	Effects  []yamlZoneEffect `yaml:"effects"`
}

type yamlDebuff struct {
	Duration int                 `yaml:"duration"`
	Effects  []effect.Descriptor `yaml:"effects"`
}

type yamlReactive struct {
	Kind     combat.ReactiveKind `yaml:"kind"`
	Duration int                 `yaml:"duration"`
	Effect   effect.Descriptor   `yaml:"effect"`
}

type yamlRider struct {
	Dice     string      `yaml:"dice"`
	Flat     int         `yaml:"flat"`
	Scope    saves.Scope `yaml:"scope"`
	Duration int         `yaml:"duration"`
}

type yamlAbility struct {
	ID            string              `yaml:"id"`
	Name          string              `yaml:"name"`
	Kind          combat.AbilityKind  `yaml:"kind"`
	Cost          economy.Cost        `yaml:"cost"`
	Range         int                 `yaml:"range"`
	Weapon        *yamlWeapon         `yaml:"weapon"`
	Proficient    bool                `yaml:"proficient"`
	AttackRoll    bool                `yaml:"attack_roll"`
	Effects       []effect.Descriptor `yaml:"effects"`
	Cooldown      int                 `yaml:"cooldown"`
	Concentration bool                `yaml:"concentration"`
	Sustain       *yamlSustain        `yaml:"sustain"`
	Zone          *yamlZoneTemplate   `yaml:"zone"`
	Debuff        *yamlDebuff         `yaml:"debuff"`
	Reactive      *yamlReactive       `yaml:"reactive"`
	Rider         *yamlRider          `yaml:"rider"`
}

type yamlCombatant struct {
	ID                string                   `yaml:"id"`
	Name              string                   `yaml:"name"`
	Team              combat.Team              `yaml:"team"`
	AI                bool                     `yaml:"ai"`
	AIDomain          string                   `yaml:"ai_domain"`
	AIScript          bool                     `yaml:"ai_script"`
	Position          grid.Position            `yaml:"position"`
	HP                int                      `yaml:"hp"`
	MaxHP             int                      `yaml:"max_hp"`
	AC                int                      `yaml:"ac"`
	Level             int                      `yaml:"level"`
	Scores            stats.Scores             `yaml:"scores"`
	SaveProficiencies []stats.Ability          `yaml:"save_proficiencies"`
	CastingAbility    stats.Ability            `yaml:"casting_ability"`
	InitiativeBonus   int                      `yaml:"initiative_bonus"`
	Speed             int                      `yaml:"speed"`
	Size              stats.Size               `yaml:"size"`
	CreatureTypes     []string                 `yaml:"creature_types"`
	Alignment         string                   `yaml:"alignment"`
	Resistances       []string                 `yaml:"resistances"`
	Vulnerabilities   []string                 `yaml:"vulnerabilities"`
	Immunities        []string                 `yaml:"immunities"`
	SpellSlots        map[int]economy.SlotPool `yaml:"spell_slots"`
	Abilities         []string                 `yaml:"abilities"`
	Statuses          []string                 `yaml:"statuses"`
}

type yamlZone struct {
	Spell    string           `yaml:"spell"`
	Caster   string           `yaml:"caster"`
	Origin   grid.Position    `yaml:"origin"`
	Template yamlZoneTemplate `yaml:",inline"`
}
