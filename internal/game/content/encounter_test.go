package content_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/content"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

const duel = `
encounter:
  id: duel
  map:
    width: 6
    height: 4
    tiles:
      - {x: 2, y: 2, blocks: true}
  abilities:
    - id: club
      range: 1
      weapon: {}
      attack_roll: true
      effects:
        - {type: damage, dice: 1d4, damage_type: bludgeoning}
  combatants:
    - id: a
      team: player
      position: {x: 0, y: 0}
      hp: 10
      abilities: [club]
    - id: b
      team: enemy
      ai: true
      position: {x: 5, y: 3}
      hp: 8
      max_hp: 12
      scores: {dex: 14}
`

func TestLoadEncounter_Minimal(t *testing.T) {
	enc, err := content.LoadEncounter([]byte(duel), nil)
	require.NoError(t, err)

	assert.Equal(t, "duel", enc.ID)
	assert.Equal(t, "duel", enc.Name)
	assert.Equal(t, 6, enc.Board.Width)
	assert.False(t, enc.Board.Passable(grid.Position{X: 2, Y: 2}))
	require.Len(t, enc.Combatants, 2)

	a := enc.Combatants[0]
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, 10, a.MaxHP)
	assert.Equal(t, 30, a.Speed)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, stats.Medium, a.Size)
	assert.Equal(t, 10, a.Scores.Strength)
	assert.Equal(t, 30, a.Economy.Movement.Total)
	require.Len(t, a.Abilities, 1)
	club := a.Abilities[0]
	assert.Equal(t, combat.KindAttack, club.Kind)
	assert.Equal(t, economy.CostAction, club.Cost.Type)
	assert.True(t, club.IsMeleeWeapon())
	assert.Equal(t, []effect.Effect{effect.Damage{Dice: "1d4", DamageType: "bludgeoning"}}, club.Effects)

	b := enc.Combatants[1]
	assert.Equal(t, 8, b.CurrentHP)
	assert.Equal(t, 12, b.MaxHP)
	assert.Equal(t, 14, b.Scores.Dexterity)
	assert.Equal(t, map[string]content.Controller{"b": {}}, enc.Controllers)
	assert.Equal(t, []combat.Team{combat.TeamPlayer, combat.TeamEnemy}, enc.Teams())
}

func TestLoadEncounter_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown field": `
encounter:
  id: x
  bogus: 1
`,
		"one team": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}}
    - {id: b, team: player, hp: 5, position: {x: 1, y: 0}}
`,
		"shared cell": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}}
    - {id: b, team: enemy, hp: 5, position: {x: 0, y: 0}}
`,
		"blocked cell": `
encounter:
  id: x
  map: {width: 3, height: 3, tiles: [{x: 1, y: 1, blocks: true}]}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 1, y: 1}}
    - {id: b, team: enemy, hp: 5, position: {x: 0, y: 0}}
`,
		"unknown ability": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}, abilities: [fireball]}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}}
`,
		"bad team": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: neutral, hp: 5, position: {x: 0, y: 0}}
`,
		"zero hp": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 0, position: {x: 0, y: 0}}
`,
		"bad trigger": `
encounter:
  id: x
  map: {width: 3, height: 3}
  abilities:
    - id: fog
      zone:
        area: {shape: cube, size: 10}
        effects: [{trigger: on_sneeze, effect: {type: utility}}]
`,
		"bad effect": `
encounter:
  id: x
  map: {width: 3, height: 3}
  abilities:
    - id: zap
      effects: [{type: lightning}]
`,
		"status without registry": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}, statuses: [poisoned]}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}}
`,
		"domain without ai": `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}, ai_domain: raider}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}}
`,
		"zero map": `
encounter:
  id: x
`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := content.LoadEncounter([]byte(doc), nil)
			assert.Error(t, err)
		})
	}
}

func TestLoadEncounter_AbilityTemplates(t *testing.T) {
	doc := `
encounter:
  id: spells
  map: {width: 5, height: 5}
  abilities:
    - id: web
      kind: spell
      cost: {type: action, spell_slot_level: 2}
      range: 12
      concentration: true
      sustain: {action_type: bonus}
      zone:
        area: {shape: cube, size: 20}
        duration: 10
        effects:
          - trigger: turn_end
            frequency: first_per_turn
            filter: {sizes: [medium, small]}
            effect:
              type: status
              save: {ability: dex, dc: 12}
              status: {name: Restrained, duration: 1}
    - id: bane
      kind: spell
      rider: {dice: 1d4, scope: all_saves, duration: 3}
    - id: snare
      kind: spell
      debuff:
        duration: 2
        effects: [{type: damage, dice: 1d6, damage_type: piercing}]
    - id: hex_ward
      kind: spell
      reactive:
        kind: on_target_attack
        effect: {type: damage, flat: 3, damage_type: psychic}
`
	lib := abilityLibrary(t, doc)
	web := lib["web"]
	require.NotNil(t, web.Zone)
	assert.Equal(t, zone.Area{Shape: zone.Cube, Size: 20}, web.Zone.Area)
	require.Len(t, web.Zone.Effects, 1)
	ze := web.Zone.Effects[0]
	assert.Equal(t, zone.OnEndTurnIn, ze.Trigger)
	assert.Equal(t, zone.FirstPerTurn, ze.Frequency)
	require.NotNil(t, ze.Filter)
	assert.Equal(t, []stats.Size{stats.Medium, stats.Small}, ze.Filter.Sizes)
	st, ok := ze.Effect.(effect.Status)
	require.True(t, ok)
	assert.Equal(t, "Restrained", st.Template.Name)
	require.NotNil(t, st.Save)
	assert.Equal(t, saves.None, st.Save.OnSuccess)
	require.NotNil(t, web.Sustain)
	assert.Equal(t, economy.CostBonus, web.Sustain.ActionType)

	require.NotNil(t, lib["bane"].Rider)
	assert.Equal(t, saves.AllSaves, lib["bane"].Rider.Scope)
	require.NotNil(t, lib["snare"].Debuff)
	assert.Equal(t, 2, lib["snare"].Debuff.Duration)
	require.NotNil(t, lib["hex_ward"].Reactive)
	assert.Equal(t, combat.OnTargetAttack, lib["hex_ward"].Reactive.Kind)
}

// abilityLibrary loads doc with a pair of placeholder combatants that carry
// every ability the document defines.
func abilityLibrary(t *testing.T, doc string) map[string]combat.Ability {
	t.Helper()
	full := doc + `
  combatants:
    - {id: p, team: player, hp: 5, position: {x: 0, y: 0}, abilities: [web, bane, snare, hex_ward]}
    - {id: e, team: enemy, hp: 5, position: {x: 4, y: 4}}
`
	enc, err := content.LoadEncounter([]byte(full), nil)
	require.NoError(t, err)
	out := make(map[string]combat.Ability)
	for _, ab := range enc.Combatants[0].Abilities {
		out[ab.ID] = ab
	}
	return out
}

func TestLoadEncounter_StatusesResolveFromRegistry(t *testing.T) {
	reg := condition.NewRegistry()
	reg.Register(&condition.Definition{ID: "poisoned", Name: "Poisoned", Duration: 2, Effect: condition.EffectDef{Type: condition.DamagePerTurn, Value: 1}})
	doc := `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}, statuses: [poisoned]}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}, statuses: [ghostly]}
`
	_, err := content.LoadEncounter([]byte(doc), reg)
	assert.ErrorContains(t, err, "ghostly")

	reg.Register(&condition.Definition{ID: "ghostly", Name: "Ghostly"})
	enc, err := content.LoadEncounter([]byte(doc), reg)
	require.NoError(t, err)
	require.Len(t, enc.Combatants[0].StatusEffects, 1)
	s := enc.Combatants[0].StatusEffects[0]
	assert.Equal(t, "Poisoned", s.Name)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, condition.DamagePerTurn, s.Tick)
}

func TestLoadEncounter_ZonesAndEnvironment(t *testing.T) {
	doc := `
encounter:
  id: x
  map:
    width: 6
    height: 6
    environment:
      - {x: 2, y: 2, radius: 1, type: difficult_terrain, duration: 2}
  zones:
    - spell: caltrops
      caster: a
      origin: {x: 3, y: 3}
      area: {shape: square, size: 10}
      duration: 4
      effects:
        - {trigger: on_enter_area, effect: {type: damage, dice: 1d4}}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}}
    - {id: b, team: enemy, hp: 5, position: {x: 5, y: 5}}
`
	enc, err := content.LoadEncounter([]byte(doc), nil)
	require.NoError(t, err)

	tile := enc.Board.Tile(grid.Position{X: 1, Y: 1})
	require.NotNil(t, tile.Environment)
	assert.Equal(t, "difficult_terrain", tile.Environment.Type)
	assert.NotEmpty(t, tile.Environment.ID)
	assert.Equal(t, 10, enc.Board.MoveCost(grid.Position{X: 1, Y: 1}, 5))

	require.Len(t, enc.Zones, 1)
	z := enc.Zones[0]
	assert.Equal(t, "caltrops", z.SpellID)
	assert.Equal(t, 4, z.Template.Duration)
	assert.Equal(t, zone.EveryTime, z.Template.Effects[0].Frequency)
}

func TestLoadEncounter_ZoneCasterMustExist(t *testing.T) {
	doc := `
encounter:
  id: x
  map: {width: 3, height: 3}
  zones:
    - {spell: s, caster: ghost, origin: {x: 0, y: 0}, area: {shape: cube, size: 5}}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}}
`
	_, err := content.LoadEncounter([]byte(doc), nil)
	assert.ErrorContains(t, err, "ghost")
}

func TestLoadEncounterFile_ShippedContent(t *testing.T) {
	reg, err := condition.LoadDirectory("../../../content/conditions")
	require.NoError(t, err)

	encs, err := content.LoadEncountersFromDir("../../../content/encounters", reg)
	require.NoError(t, err)
	enc, ok := encs["ambush"]
	require.True(t, ok)
	assert.Len(t, enc.Combatants, 4)
	assert.Equal(t, content.Controller{Domain: "medic"}, enc.Controllers["brother_ash"])
	assert.Equal(t, content.Controller{Script: true}, enc.Controllers["reed_archer"])
	assert.Len(t, enc.Zones, 1)
}

func TestLoadEncounterFile_Missing(t *testing.T) {
	_, err := content.LoadEncounterFile(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadEncountersFromDir_DuplicateID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte(duel), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yaml"), []byte(duel), 0o644))
	_, err := content.LoadEncountersFromDir(dir, nil)
	assert.ErrorContains(t, err, "duplicate")
}

func TestProperty_LoadEncounter_DefaultsFillUnsetScores(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		str := rapid.IntRange(1, 30).Draw(rt, "str")
		doc := `
encounter:
  id: x
  map: {width: 3, height: 3}
  combatants:
    - {id: a, team: player, hp: 5, position: {x: 0, y: 0}, scores: {str: ` + strconv.Itoa(str) + `}}
    - {id: b, team: enemy, hp: 5, position: {x: 1, y: 0}}
`
		enc, err := content.LoadEncounter([]byte(doc), nil)
		if err != nil {
			rt.Fatalf("load: %v", err)
		}
		s := enc.Combatants[0].Scores
		if s.Strength != str || s.Dexterity != 10 || s.Charisma != 10 {
			rt.Fatalf("unexpected scores %+v", s)
		}
	})
}

