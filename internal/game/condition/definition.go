package condition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the static template of a status effect, loaded from YAML.
type Definition struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Category    Category    `yaml:"category"`
	Duration    int         `yaml:"duration"`
	Permanent   bool        `yaml:"permanent"`
	Effect      EffectDef   `yaml:"effect"`
	RepeatSave  *RepeatSave `yaml:"repeat_save"`
}

// EffectDef is the mechanical payload of a Definition.
type EffectDef struct {
	Type  TickKind `yaml:"type"`
	Value int      `yaml:"value"`
	Stat  string   `yaml:"stat"`
}

// Validate checks required fields.
//
// Postcondition: nil return guarantees non-empty ID and Name, a known effect
// type, and a repeat save with a timing and ability when one is present.
func (d *Definition) Validate() error {
	if d.ID == "" || d.Name == "" {
		return fmt.Errorf("condition.Definition: id and name must not be empty (id=%q)", d.ID)
	}
	switch d.Effect.Type {
	case StatModifier, DamagePerTurn, HealPerTurn, SkipTurn, Inert, "":
	default:
		return fmt.Errorf("condition.Definition %q: unknown effect type %q", d.ID, d.Effect.Type)
	}
	if rs := d.RepeatSave; rs != nil {
		switch rs.Timing {
		case TurnStart, TurnEnd, OnDamage, OnAction:
		default:
			return fmt.Errorf("condition.Definition %q: unknown repeat save timing %q", d.ID, rs.Timing)
		}
		if rs.Ability == "" {
			return fmt.Errorf("condition.Definition %q: repeat save needs an ability", d.ID)
		}
	}
	return nil
}

// Instantiate creates a live StatusEffect from the definition.
//
// Postcondition: the result carries id and a private copy of the repeat save.
func (d *Definition) Instantiate(id, sourceID, casterID string) StatusEffect {
	tick := d.Effect.Type
	if tick == "" {
		tick = Inert
	}
	var rs *RepeatSave
	if d.RepeatSave != nil {
		cp := *d.RepeatSave
		rs = &cp
	}
	return StatusEffect{
		ID:         id,
		Name:       d.Name,
		Category:   d.Category,
		Duration:   d.Duration,
		Permanent:  d.Permanent,
		Tick:       tick,
		Value:      d.Effect.Value,
		Stat:       d.Effect.Stat,
		RepeatSave: rs,
		SourceID:   sourceID,
		CasterID:   casterID,
	}
}

// Registry holds all known Definitions keyed by ID.
type Registry struct {
	defs map[string]*Definition
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def to the registry, overwriting any existing entry with the same ID.
// Precondition: def must not be nil and def.ID must not be empty.
func (r *Registry) Register(def *Definition) {
	r.defs[def.ID] = def
}

// Get returns the Definition for id, or (nil, false) if not found.
func (r *Registry) Get(id string) (*Definition, bool) {
	d, ok := r.defs[id]
	return d, ok
}

// All returns a snapshot slice of all registered Definitions sorted by ID.
func (r *Registry) All() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadDirectory reads every *.yaml file in dir, parses each as a Definition,
// and returns a populated Registry.
// Precondition: dir must be a readable directory.
// Postcondition: Returns a non-nil Registry, or an error if any file fails to parse or validate.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading condition dir %q: %w", dir, err)
	}
	reg := NewRegistry()
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var def Definition
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("validating %q: %w", path, err)
		}
		reg.Register(&def)
	}
	return reg, nil
}
