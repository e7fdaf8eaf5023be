// Package content loads encounter definitions from YAML: the battle map, a
// shared ability library, the combatants that use it and any zones already
// on the field when combat starts.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

const (
	defaultSpeed = 30
	defaultScore = 10
)

// PlacedZone is a zone present at the start of the encounter.
type PlacedZone struct {
	SpellID  string
	CasterID string
	Origin   grid.Position
	Template combat.ZoneTemplate
}

// Controller selects how an AI-controlled combatant decides its turn.
type Controller struct {
	// Domain is the HTN domain ID; empty selects the default domain.
	Domain string
	// Script delegates the whole decision to the Lua evaluate_turn hook.
	Script bool
}

// Encounter is a fully resolved encounter ready to seed a match.
type Encounter struct {
	ID          string
	Name        string
	Description string
	Board       *battlemap.Map
	Combatants  []combat.Combatant
	Zones       []PlacedZone
	// Controllers holds an entry for every AI-controlled combatant.
	Controllers map[string]Controller
}

// Teams returns the distinct teams in combatant order.
func (e *Encounter) Teams() []combat.Team {
	var out []combat.Team
	seen := make(map[combat.Team]bool)
	for _, c := range e.Combatants {
		if !seen[c.Team] {
			seen[c.Team] = true
			out = append(out, c.Team)
		}
	}
	return out
}

// LoadEncounterFile reads and resolves a single encounter YAML file.
//
// Precondition: path must point to a readable encounter file.
// Postcondition: Returns a validated Encounter or a non-nil error.
func LoadEncounterFile(path string, conditions *condition.Registry) (*Encounter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading encounter file %s: %w", path, err)
	}
	enc, err := LoadEncounter(data, conditions)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return enc, nil
}

// LoadEncounter parses and resolves an encounter from YAML bytes. Unknown
// keys are rejected. conditions resolves combatant starting statuses and may
// be nil when no combatant lists any.
//
// Postcondition: Returns a validated Encounter or a non-nil error.
func LoadEncounter(data []byte, conditions *condition.Registry) (*Encounter, error) {
	var file yamlEncounterFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing encounter YAML: %w", err)
	}
	enc, err := convertEncounter(file.Encounter, conditions)
	if err != nil {
		return nil, err
	}
	if err := enc.Validate(); err != nil {
		return nil, fmt.Errorf("validating encounter %q: %w", enc.ID, err)
	}
	return enc, nil
}

// LoadEncountersFromDir loads every *.yaml file in dir keyed by encounter ID.
//
// Postcondition: Returns all encounters or the first error encountered.
func LoadEncountersFromDir(dir string, conditions *condition.Registry) (map[string]*Encounter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading encounter dir %q: %w", dir, err)
	}
	out := make(map[string]*Encounter)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		enc, err := LoadEncounterFile(filepath.Join(dir, e.Name()), conditions)
		if err != nil {
			return nil, err
		}
		if _, dup := out[enc.ID]; dup {
			return nil, fmt.Errorf("duplicate encounter id %q in %s", enc.ID, e.Name())
		}
		out[enc.ID] = enc
	}
	return out, nil
}

// Validate checks cross-references the YAML schema cannot express.
//
// Postcondition: nil return guarantees a non-empty ID, at least two teams,
// unique combatant IDs, and every combatant and zone on a passable in-bounds
// cell with no two combatants sharing one.
func (e *Encounter) Validate() error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(e.Teams()) < 2 {
		errs = append(errs, errors.New("at least two teams are required"))
	}
	ids := make(map[string]bool)
	cells := make(map[grid.Position]string)
	for _, c := range e.Combatants {
		if ids[c.ID] {
			errs = append(errs, fmt.Errorf("duplicate combatant id %q", c.ID))
		}
		ids[c.ID] = true
		if !e.Board.Passable(c.Position) {
			errs = append(errs, fmt.Errorf("combatant %q stands on blocked or off-map cell %s", c.ID, c.Position))
		}
		if other, taken := cells[c.Position]; taken {
			errs = append(errs, fmt.Errorf("combatants %q and %q share cell %s", other, c.ID, c.Position))
		}
		cells[c.Position] = c.ID
	}
	for i, z := range e.Zones {
		if !e.Board.InBounds(z.Origin) {
			errs = append(errs, fmt.Errorf("zone %d origin %s is off the map", i, z.Origin))
		}
		if z.CasterID != "" && !ids[z.CasterID] {
			errs = append(errs, fmt.Errorf("zone %d caster %q is not a combatant", i, z.CasterID))
		}
	}
	return errors.Join(errs...)
}

func convertEncounter(y yamlEncounter, conditions *condition.Registry) (*Encounter, error) {
	board, err := convertMap(y.Map)
	if err != nil {
		return nil, fmt.Errorf("map: %w", err)
	}
	library := make(map[string]combat.Ability, len(y.Abilities))
	for _, ya := range y.Abilities {
		ab, err := convertAbility(ya)
		if err != nil {
			return nil, fmt.Errorf("ability %q: %w", ya.ID, err)
		}
		if _, dup := library[ab.ID]; dup {
			return nil, fmt.Errorf("duplicate ability id %q", ab.ID)
		}
		library[ab.ID] = ab
	}
	enc := &Encounter{ID: y.ID, Name: y.Name, Description: y.Description, Board: board, Controllers: make(map[string]Controller)}
	if enc.Name == "" {
		enc.Name = y.ID
	}
	for _, yc := range y.Combatants {
		c, err := convertCombatant(yc, library, conditions)
		if err != nil {
			return nil, fmt.Errorf("combatant %q: %w", yc.ID, err)
		}
		enc.Combatants = append(enc.Combatants, c)
		if c.AIControlled {
			enc.Controllers[c.ID] = Controller{Domain: yc.AIDomain, Script: yc.AIScript}
		} else if yc.AIDomain != "" || yc.AIScript {
			return nil, fmt.Errorf("combatant %q: ai_domain and ai_script require ai: true", yc.ID)
		}
	}
	for i, yz := range y.Zones {
		tmpl, err := convertZoneTemplate(yz.Template)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		enc.Zones = append(enc.Zones, PlacedZone{SpellID: yz.Spell, CasterID: yz.Caster, Origin: yz.Origin, Template: tmpl})
	}
	return enc, nil
}

func convertMap(y yamlMap) (*battlemap.Map, error) {
	if y.Width <= 0 || y.Height <= 0 {
		return nil, fmt.Errorf("width and height must be positive, got %dx%d", y.Width, y.Height)
	}
	m := battlemap.New(y.Width, y.Height)
	for _, t := range y.Tiles {
		p := grid.Position{X: t.X, Y: t.Y}
		if !m.InBounds(p) {
			return nil, fmt.Errorf("tile %s is off the map", p)
		}
		terrain := t.Terrain
		if terrain == "" {
			terrain = "floor"
		}
		m = m.WithTile(battlemap.Tile{Position: p, Terrain: terrain, MovementCost: t.MovementCost, BlocksMovement: t.Blocks})
	}
	for _, env := range y.Environment {
		if env.Effect.Type == "" {
			return nil, fmt.Errorf("environment at (%d,%d) needs a type", env.X, env.Y)
		}
		fx := env.Effect
		if fx.ID == "" {
			fx.ID = uuid.NewString()
		}
		m = m.WithEnvironment(grid.Position{X: env.X, Y: env.Y}, env.Radius, fx)
	}
	return m, nil
}

func convertAbility(y yamlAbility) (combat.Ability, error) {
	if y.ID == "" {
		return combat.Ability{}, errors.New("id must not be empty")
	}
	kind := y.Kind
	switch kind {
	case combat.KindAttack, combat.KindSpell, combat.KindSkill, combat.KindUtility:
	case "":
		kind = combat.KindAttack
	default:
		return combat.Ability{}, fmt.Errorf("unknown kind %q", kind)
	}
	cost := y.Cost
	if cost.Type == "" {
		cost.Type = economy.CostAction
	}
	if !cost.Type.Known() {
		return combat.Ability{}, fmt.Errorf("unknown cost type %q", cost.Type)
	}
	effects, err := effect.DecodeAll(y.Effects)
	if err != nil {
		return combat.Ability{}, err
	}
	ab := combat.Ability{
		ID:            y.ID,
		Name:          y.Name,
		Kind:          kind,
		Cost:          cost,
		Range:         max(y.Range, 1),
		Proficient:    y.Proficient,
		AttackRoll:    y.AttackRoll,
		Effects:       effects,
		Cooldown:      y.Cooldown,
		Concentration: y.Concentration,
	}
	if ab.Name == "" {
		ab.Name = y.ID
	}
	if y.Weapon != nil {
		ab.Weapon = &combat.Weapon{Properties: y.Weapon.Properties}
	}
	if s := y.Sustain; s != nil {
		if !s.ActionType.Known() {
			return combat.Ability{}, fmt.Errorf("sustain: unknown action type %q", s.ActionType)
		}
		ab.Sustain = &combat.SustainCost{ActionType: s.ActionType, Optional: s.Optional}
	}
	if y.Zone != nil {
		tmpl, err := convertZoneTemplate(*y.Zone)
		if err != nil {
			return combat.Ability{}, fmt.Errorf("zone: %w", err)
		}
		ab.Zone = &tmpl
	}
	if d := y.Debuff; d != nil {
		fx, err := effect.DecodeAll(d.Effects)
		if err != nil {
			return combat.Ability{}, fmt.Errorf("debuff: %w", err)
		}
		ab.Debuff = &combat.DebuffTemplate{Effects: fx, Duration: d.Duration}
	}
	if r := y.Reactive; r != nil {
		switch r.Kind {
		case combat.OnTargetAttack, combat.OnTargetCast, combat.OnCasterAction:
		default:
			return combat.Ability{}, fmt.Errorf("reactive: unknown kind %q", r.Kind)
		}
		fx, err := r.Effect.Decode()
		if err != nil {
			return combat.Ability{}, fmt.Errorf("reactive: %w", err)
		}
		ab.Reactive = &combat.ReactiveTemplate{Kind: r.Kind, Effect: fx, Duration: r.Duration}
	}
	if r := y.Rider; r != nil {
		scope := r.Scope
		switch scope {
		case saves.NextSave, saves.AllSaves:
		case "":
			scope = saves.NextSave
		default:
			return combat.Ability{}, fmt.Errorf("rider: unknown scope %q", scope)
		}
		if r.Dice == "" && r.Flat == 0 {
			return combat.Ability{}, errors.New("rider: needs dice or flat")
		}
		ab.Rider = &combat.RiderTemplate{Dice: r.Dice, Flat: r.Flat, Scope: scope, Duration: r.Duration}
	}
	return ab, nil
}

func convertZoneTemplate(y yamlZoneTemplate) (combat.ZoneTemplate, error) {
	if y.Area.Size <= 0 {
		return combat.ZoneTemplate{}, fmt.Errorf("area size must be positive, got %d", y.Area.Size)
	}
	tmpl := combat.ZoneTemplate{Area: y.Area, Duration: y.Duration}
	for i, ye := range y.Effects {
		trig, ok := zone.ParseTrigger(ye.Trigger)
		if !ok || trig == zone.OnTargetMove {
			return combat.ZoneTemplate{}, fmt.Errorf("effect %d: unknown trigger %q", i, ye.Trigger)
		}
		freq := ye.Frequency
		switch freq {
		case zone.EveryTime, zone.FirstPerTurn, zone.Once, zone.OncePerCreature:
		case "":
			freq = zone.EveryTime
		default:
			return combat.ZoneTemplate{}, fmt.Errorf("effect %d: unknown frequency %q", i, freq)
		}
		fx, err := ye.Effect.Decode()
		if err != nil {
			return combat.ZoneTemplate{}, fmt.Errorf("effect %d: %w", i, err)
		}
		ze := zone.Effect{Trigger: trig, Frequency: freq, Effect: fx}
		if f := ye.Filter; f != nil {
			ze.Filter = &zone.TargetFilter{CreatureTypes: f.CreatureTypes, Sizes: f.Sizes, Alignments: f.Alignments}
		}
		tmpl.Effects = append(tmpl.Effects, ze)
	}
	return tmpl, nil
}

func convertCombatant(y yamlCombatant, library map[string]combat.Ability, conditions *condition.Registry) (combat.Combatant, error) {
	if y.ID == "" {
		return combat.Combatant{}, errors.New("id must not be empty")
	}
	switch y.Team {
	case combat.TeamPlayer, combat.TeamEnemy:
	default:
		return combat.Combatant{}, fmt.Errorf("team must be one of [player, enemy], got %q", y.Team)
	}
	if y.HP <= 0 {
		return combat.Combatant{}, fmt.Errorf("hp must be positive, got %d", y.HP)
	}
	maxHP := y.MaxHP
	if maxHP == 0 {
		maxHP = y.HP
	}
	if maxHP < y.HP {
		return combat.Combatant{}, fmt.Errorf("max_hp %d is below hp %d", maxHP, y.HP)
	}
	speed := y.Speed
	if speed == 0 {
		speed = defaultSpeed
	}
	size := y.Size
	if size == "" {
		size = stats.Medium
	}
	c := combat.Combatant{
		ID:                y.ID,
		Name:              y.Name,
		Team:              y.Team,
		AIControlled:      y.AI,
		Position:          y.Position,
		CurrentHP:         y.HP,
		MaxHP:             maxHP,
		AC:                y.AC,
		Level:             max(y.Level, 1),
		Scores:            defaultScores(y.Scores),
		SaveProficiencies: y.SaveProficiencies,
		CastingAbility:    y.CastingAbility,
		BaseInitiative:    y.InitiativeBonus,
		Speed:             speed,
		Size:              size,
		CreatureTypes:     y.CreatureTypes,
		Alignment:         y.Alignment,
		Resistances:       y.Resistances,
		Vulnerabilities:   y.Vulnerabilities,
		Immunities:        y.Immunities,
		Economy:           economy.Fresh(speed, y.SpellSlots),
	}
	if c.Name == "" {
		c.Name = y.ID
	}
	for _, id := range y.Abilities {
		ab, ok := library[id]
		if !ok {
			return combat.Combatant{}, fmt.Errorf("unknown ability %q", id)
		}
		c.Abilities = append(c.Abilities, ab)
	}
	for _, id := range y.Statuses {
		if conditions == nil {
			return combat.Combatant{}, fmt.Errorf("status %q listed but no condition registry loaded", id)
		}
		def, ok := conditions.Get(id)
		if !ok {
			return combat.Combatant{}, fmt.Errorf("unknown status %q", id)
		}
		c.StatusEffects = condition.Add(c.StatusEffects, def.Instantiate(uuid.NewString(), "encounter", ""))
	}
	return c, nil
}

// defaultScores replaces unset (zero) scores with 10.
func defaultScores(s stats.Scores) stats.Scores {
	for _, p := range []*int{&s.Strength, &s.Dexterity, &s.Constitution, &s.Intelligence, &s.Wisdom, &s.Charisma} {
		if *p == 0 {
			*p = defaultScore
		}
	}
	return s
}
