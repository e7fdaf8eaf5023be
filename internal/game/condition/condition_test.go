package condition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

func TestTick_DecrementsAndDropsExpired(t *testing.T) {
	list := []condition.StatusEffect{
		{ID: "a", Name: "Burning", Duration: 1},
		{ID: "b", Name: "Blessed", Duration: 3},
		{ID: "c", Name: "Cursed", Permanent: true},
	}
	kept, expired := condition.Tick(list)
	require.Len(t, kept, 2)
	assert.Equal(t, "b", kept[0].ID)
	assert.Equal(t, 2, kept[0].Duration)
	assert.Equal(t, "c", kept[1].ID)
	require.Len(t, expired, 1)
	assert.Equal(t, "a", expired[0].ID)
	assert.Equal(t, 1, list[0].Duration, "input must not be mutated")
}

func TestPurge_OnlyDropsExpired(t *testing.T) {
	kept, expired := condition.Purge([]condition.StatusEffect{{ID: "a", Duration: 0}, {ID: "b", Duration: 2}})
	require.Len(t, kept, 1)
	assert.Equal(t, 2, kept[0].Duration)
	assert.Len(t, expired, 1)
}

func TestAddWithoutHasName(t *testing.T) {
	list := condition.Add(nil, condition.StatusEffect{ID: "x", Name: "Prone", Duration: 1})
	assert.True(t, condition.HasName(list, "Prone"))
	list = condition.Without(list, "x")
	assert.False(t, condition.HasName(list, "Prone"))
	assert.Empty(t, condition.Without(list, "missing"))
}

func TestWithRepeatSave_FiltersTimingAndActionID(t *testing.T) {
	list := []condition.StatusEffect{
		{ID: "web", RepeatSave: &condition.RepeatSave{Timing: condition.OnAction}},
		{ID: "grab", RepeatSave: &condition.RepeatSave{Timing: condition.OnAction}},
		{ID: "fear", RepeatSave: &condition.RepeatSave{Timing: condition.TurnEnd}},
		{ID: "plain"},
	}
	got := condition.WithRepeatSave(list, condition.OnAction, "grab")
	require.Len(t, got, 1)
	assert.Equal(t, "grab", got[0].ID)
	assert.Len(t, condition.WithRepeatSave(list, condition.TurnEnd, ""), 1)
}

func TestRepeatSave_AdvantageDerivation(t *testing.T) {
	rs := condition.RepeatSave{
		AdvantageOnDamage: true,
		SizeAdvantage:     []stats.Size{stats.Large},
		SizeDisadvantage:  []stats.Size{stats.Tiny},
	}
	assert.True(t, rs.Advantage(stats.Medium, true))
	assert.False(t, rs.Advantage(stats.Medium, false))
	assert.True(t, rs.Advantage(stats.Large, false))
	assert.True(t, rs.Disadvantage(stats.Tiny))
	assert.False(t, rs.Disadvantage(stats.Medium))
}

func TestModifiers(t *testing.T) {
	list := []condition.StatusEffect{
		{Tick: condition.StatModifier, Stat: "ac", Value: 2},
		{Tick: condition.StatModifier, Stat: "ac", Value: -1},
		{Tick: condition.StatModifier, Stat: "attack", Value: 1},
		{Tick: condition.DamagePerTurn, Value: 5},
	}
	assert.Equal(t, 1, condition.ACBonus(list))
	assert.Equal(t, 1, condition.AttackBonus(list))
	assert.False(t, condition.SkipsTurn(list))
	assert.True(t, condition.SkipsTurn([]condition.StatusEffect{{Tick: condition.SkipTurn}}))
}

func TestLoadDirectory_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	doc := `
id: frightened
name: Frightened
description: "Shaken to the core."
category: debuff
duration: 3
effect:
  type: condition
repeat_save:
  timing: turn_end
  save: WIS
  dc: 15
  success_ends: true
  advantage_on_damage: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frightened.yaml"), []byte(doc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	reg, err := condition.LoadDirectory(dir)
	require.NoError(t, err)
	def, ok := reg.Get("frightened")
	require.True(t, ok)
	assert.Equal(t, condition.Debuff, def.Category)
	require.NotNil(t, def.RepeatSave)
	assert.Equal(t, stats.Wisdom, def.RepeatSave.Ability)
	assert.Equal(t, 15, def.RepeatSave.DC)

	live := def.Instantiate("se-1", "spell-fear", "caster")
	assert.Equal(t, "Frightened", live.Name)
	assert.Equal(t, condition.Inert, live.Tick)
	live.RepeatSave.DC = 99
	assert.Equal(t, 15, def.RepeatSave.DC, "instances must not alias the definition")
}

func TestLoadDirectory_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: x\nname: X\nbogus: 1\n"), 0o644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestLoadDirectory_RejectsBadTiming(t *testing.T) {
	dir := t.TempDir()
	doc := "id: x\nname: X\nrepeat_save:\n  timing: whenever\n  save: str\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(doc), 0o644))
	_, err := condition.LoadDirectory(dir)
	assert.Error(t, err)
}

func TestRegistry_AllSorted(t *testing.T) {
	reg := condition.NewRegistry()
	reg.Register(&condition.Definition{ID: "b", Name: "B"})
	reg.Register(&condition.Definition{ID: "a", Name: "A"})
	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
}

func TestTick_NeverKeepsNonPositiveDurations(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		durations := rapid.SliceOfN(rapid.IntRange(-2, 5), 0, 8).Draw(rt, "durations")
		var list []condition.StatusEffect
		for _, d := range durations {
			list = append(list, condition.StatusEffect{Duration: d})
		}
		kept, expired := condition.Tick(list)
		assert.Equal(rt, len(list), len(kept)+len(expired))
		for _, s := range kept {
			assert.Greater(rt, s.Duration, 0)
		}
	})
}

func TestResists(t *testing.T) {
	list := []condition.StatusEffect{{Resist: []string{"fire", "cold"}}}
	assert.True(t, condition.Resists(list, "cold"))
	assert.False(t, condition.Resists(list, "acid"))
}
