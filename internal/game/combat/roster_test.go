package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

func TestRoster_SnapshotsAreIsolated(t *testing.T) {
	r := combat.NewRoster()
	c := testutil.Fighter("a", combat.TeamPlayer, grid.Position{})
	c.StatusEffects = []condition.StatusEffect{{ID: "s", Name: "Slowed", Duration: 2}}
	r.Put(c)

	c.StatusEffects[0].Duration = 99
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got.StatusEffects[0].Duration)

	got.StatusEffects[0].Duration = 42
	again, _ := r.Get("a")
	assert.Equal(t, 2, again.StatusEffects[0].Duration)
}

func TestRoster_OrderAndLiveness(t *testing.T) {
	r := combat.NewRoster()
	a := testutil.Fighter("a", combat.TeamPlayer, grid.Position{})
	b := testutil.Fighter("b", combat.TeamEnemy, grid.Position{X: 1})
	b.CurrentHP = 0
	r.Put(a)
	r.Put(b)
	r.Put(a)

	require.Equal(t, 2, r.Len())
	all := r.All()
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Len(t, r.Alive(), 1)
	assert.Equal(t, 1, r.TeamsStanding())
}

func TestRoster_PutEmptyIDPanics(t *testing.T) {
	assert.Panics(t, func() { combat.NewRoster().Put(combat.Combatant{}) })
}

func TestCombatant_Clone(t *testing.T) {
	c := testutil.Fighter("a", combat.TeamPlayer, grid.Position{})
	c.Cooldowns = map[string]int{"x": 1}
	c.Concentration = &combat.Concentration{SpellID: "s", EffectIDs: []string{"e"}}
	cp := c.Clone()
	cp.Cooldowns["x"] = 5
	cp.Concentration.SpellID = "other"
	assert.Equal(t, 1, c.Cooldowns["x"])
	assert.Equal(t, "s", c.Concentration.SpellID)
}
