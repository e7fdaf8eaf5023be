package effect

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// SaveDescriptor is the YAML form of a SaveGate.
type SaveDescriptor struct {
	Ability   stats.Ability `yaml:"ability"`
	DC        int           `yaml:"dc"`
	OnSuccess saves.Outcome `yaml:"on_success"`
}

// StatusDescriptor is the YAML form of a status template.
type StatusDescriptor struct {
	Name       string                `yaml:"name"`
	Category   condition.Category    `yaml:"category"`
	Duration   int                   `yaml:"duration"`
	Permanent  bool                  `yaml:"permanent"`
	Tick       condition.TickKind    `yaml:"tick"`
	Value      int                   `yaml:"value"`
	Stat       string                `yaml:"stat"`
	RepeatSave *condition.RepeatSave `yaml:"repeat_save"`
}

// Descriptor is the flat YAML form of any Effect, discriminated by Type.
type Descriptor struct {
	Type          Kind              `yaml:"type"`
	Dice          string            `yaml:"dice"`
	Flat          int               `yaml:"flat"`
	DamageType    string            `yaml:"damage_type"`
	Save          *SaveDescriptor   `yaml:"save"`
	Status        *StatusDescriptor `yaml:"status"`
	Mode          MoveMode          `yaml:"mode"`
	Distance      int               `yaml:"distance"`
	Template      string            `yaml:"template"`
	Count         int               `yaml:"count"`
	Duration      int               `yaml:"duration"`
	Environment   string            `yaml:"environment"`
	Radius        int               `yaml:"radius"`
	MovementCost  int               `yaml:"movement_cost"`
	DamagePerTurn int               `yaml:"damage_per_turn"`
	Condition     string            `yaml:"condition"`
	ACBonus       int               `yaml:"ac_bonus"`
	Resistances   []string          `yaml:"resistances"`
	Description   string            `yaml:"description"`
}

// Decode converts the descriptor into its typed Effect.
//
// Postcondition: returns an error for an unknown Type or a missing required field.
func (d Descriptor) Decode() (Effect, error) {
	gate := d.gate()
	switch d.Type {
	case KindDamage:
		if d.Dice == "" && d.Flat == 0 {
			return nil, fmt.Errorf("effect: damage needs dice or flat")
		}
		return Damage{Dice: d.Dice, Flat: d.Flat, DamageType: d.DamageType, Save: gate}, nil
	case KindHeal:
		if d.Dice == "" && d.Flat == 0 {
			return nil, fmt.Errorf("effect: heal needs dice or flat")
		}
		return Heal{Dice: d.Dice, Flat: d.Flat}, nil
	case KindStatus:
		if d.Status == nil || d.Status.Name == "" {
			return nil, fmt.Errorf("effect: status needs a named status block")
		}
		return Status{Template: d.Status.template(), Save: gate}, nil
	case KindMovement:
		mode := d.Mode
		if mode == "" {
			mode = Push
		}
		return Movement{Mode: mode, Distance: d.Distance}, nil
	case KindSummon:
		if d.Template == "" {
			return nil, fmt.Errorf("effect: summon needs a template")
		}
		return Summon{TemplateID: d.Template, Count: max(d.Count, 1), Duration: d.Duration}, nil
	case KindTerrain:
		if d.Environment == "" {
			return nil, fmt.Errorf("effect: terrain needs an environment")
		}
		return Terrain{
			Environment:   d.Environment,
			Duration:      d.Duration,
			Radius:        d.Radius,
			MovementCost:  d.MovementCost,
			DamagePerTurn: d.DamagePerTurn,
			Condition:     d.Condition,
		}, nil
	case KindUtility:
		return Utility{Description: d.Description}, nil
	case KindDefensive:
		return Defensive{ACBonus: d.ACBonus, Duration: d.Duration, Resistances: d.Resistances}, nil
	default:
		return nil, fmt.Errorf("effect: unknown type %q", d.Type)
	}
}

// DecodeAll decodes every descriptor, failing on the first bad one.
func DecodeAll(ds []Descriptor) ([]Effect, error) {
	out := make([]Effect, 0, len(ds))
	for i, d := range ds {
		e, err := d.Decode()
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (d Descriptor) gate() *SaveGate {
	if d.Save == nil {
		return nil
	}
	outcome := d.Save.OnSuccess
	if outcome == "" {
		outcome = saves.None
		if d.Type == KindDamage {
			outcome = saves.Half
		}
	}
	return &SaveGate{Ability: d.Save.Ability, DC: d.Save.DC, OnSuccess: outcome}
}

func (s StatusDescriptor) template() condition.StatusEffect {
	tick := s.Tick
	if tick == "" {
		tick = condition.Inert
	}
	category := s.Category
	if category == "" {
		category = condition.Debuff
	}
	var rs *condition.RepeatSave
	if s.RepeatSave != nil {
		cp := *s.RepeatSave
		rs = &cp
	}
	return condition.StatusEffect{
		Name:       s.Name,
		Category:   category,
		Duration:   s.Duration,
		Permanent:  s.Permanent,
		Tick:       tick,
		Value:      s.Value,
		Stat:       s.Stat,
		RepeatSave: rs,
	}
}
