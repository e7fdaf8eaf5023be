package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/content"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/session"
)

const contentRoot = "../../../content"

const botDuel = `
encounter:
  id: bot_duel
  map: {width: 6, height: 4}
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
      ai: true
      position: {x: 0, y: 0}
      hp: 10
      abilities: [club]
    - id: b
      team: enemy
      ai: true
      position: {x: 5, y: 3}
      hp: 6
`

const humanDuel = `
encounter:
  id: human_duel
  map: {width: 6, height: 4}
  combatants:
    - {id: a, team: player, position: {x: 0, y: 0}, hp: 10}
    - {id: b, team: enemy, position: {x: 5, y: 3}, hp: 10}
`

func encounter(t *testing.T, doc string) *content.Encounter {
	t.Helper()
	enc, err := content.LoadEncounter([]byte(doc), nil)
	require.NoError(t, err)
	return enc
}

func deps(t *testing.T) session.Deps {
	return session.Deps{
		Conditions: condition.NewRegistry(),
		NewSource:  func(string) dice.Source { return dice.NewSeededSource(7) },
		Clock:      &ai.SimClock{},
		Logger:     zaptest.NewLogger(t),
	}
}

func TestSpectator_Push(t *testing.T) {
	s := session.NewSpectator("test", 4)
	require.NoError(t, s.Push(event.LogEntry{ID: "1", Message: "hello"}))

	e := <-s.Entries()
	assert.Equal(t, "hello", e.Message)
}

func TestSpectator_PushClosed(t *testing.T) {
	s := session.NewSpectator("test", 4)
	require.NoError(t, s.Close())
	assert.True(t, s.IsClosed())
	assert.Error(t, s.Push(event.LogEntry{ID: "1"}))
}

func TestSpectator_PushFull(t *testing.T) {
	s := session.NewSpectator("test", 1)
	require.NoError(t, s.Push(event.LogEntry{ID: "1"}))
	err := s.Push(event.LogEntry{ID: "2"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "buffer full")
	assert.Equal(t, 1, s.Dropped())
}

func TestSpectator_CloseIdempotent(t *testing.T) {
	s := session.NewSpectator("test", 4)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, s.IsClosed())
}

func TestSpectator_PushNeverBlocks(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		size := rapid.IntRange(1, 8).Draw(rt, "size")
		pushes := rapid.IntRange(0, 20).Draw(rt, "pushes")
		s := session.NewSpectator("p", size)
		for i := 0; i < pushes; i++ {
			_ = s.Push(event.LogEntry{ID: fmt.Sprint(i)})
		}
		buffered := pushes
		if buffered > size {
			buffered = size
		}
		if len(s.Entries()) != buffered || s.Dropped() != pushes-buffered {
			rt.Fatalf("size %d pushes %d: buffered %d dropped %d", size, pushes, len(s.Entries()), s.Dropped())
		}
	})
}

func TestManager_Create(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, humanDuel))
	require.NoError(t, err)
	assert.Equal(t, "m1", match.ID())
	assert.Equal(t, 1, m.Count())

	st := match.State()
	assert.Equal(t, 1, st.Round)
	assert.Len(t, st.Order, 2)
	assert.Contains(t, match.Log()[0].Message, "Combat begins!")
}

func TestManager_CreateGeneratesID(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("", encounter(t, humanDuel))
	require.NoError(t, err)
	assert.NotEmpty(t, match.ID())
	_, ok := m.Get(match.ID())
	assert.True(t, ok)
}

func TestManager_CreateDuplicate(t *testing.T) {
	m := session.NewManager(deps(t))
	_, err := m.Create("m1", encounter(t, humanDuel))
	require.NoError(t, err)
	_, err = m.Create("m1", encounter(t, humanDuel))
	assert.ErrorIs(t, err, session.ErrMatchExists)
	assert.Equal(t, 1, m.Count())
}

func TestManager_Remove(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, humanDuel))
	require.NoError(t, err)
	s := match.Watch("viewer", 4)

	require.NoError(t, m.Remove("m1"))
	assert.Equal(t, 0, m.Count())
	assert.True(t, s.IsClosed())

	_, ok := m.Get("m1")
	assert.False(t, ok)
}

func TestManager_RemoveNotFound(t *testing.T) {
	m := session.NewManager(deps(t))
	assert.ErrorIs(t, m.Remove("unknown"), session.ErrMatchNotFound)
}

func TestManager_IDsSorted(t *testing.T) {
	m := session.NewManager(deps(t))
	for _, id := range []string{"c", "a", "b"} {
		_, err := m.Create(id, encounter(t, humanDuel))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.IDs())
	m.Close()
	assert.Equal(t, 0, m.Count())
}

func TestManager_ScriptControllerNeedsScripts(t *testing.T) {
	doc := `
encounter:
  id: scripted
  map: {width: 4, height: 4}
  combatants:
    - {id: a, team: player, position: {x: 0, y: 0}, hp: 5}
    - {id: b, team: enemy, ai: true, ai_script: true, position: {x: 3, y: 3}, hp: 5}
`
	m := session.NewManager(deps(t))
	_, err := m.Create("m1", encounter(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no AI scripts")
	assert.ErrorIs(t, err, ai.ErrNoScripts)
	assert.Equal(t, 0, m.Count())
}

func TestManager_UnknownDomain(t *testing.T) {
	doc := `
encounter:
  id: unknown_domain
  map: {width: 4, height: 4}
  combatants:
    - {id: a, team: player, position: {x: 0, y: 0}, hp: 5}
    - {id: b, team: enemy, ai: true, ai_domain: necromancer, position: {x: 3, y: 3}, hp: 5}
`
	m := session.NewManager(deps(t))
	_, err := m.Create("m1", encounter(t, doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "necromancer")
}

func TestManager_ConcurrentCreateRemove(t *testing.T) {
	m := session.NewManager(deps(t))
	enc := encounter(t, humanDuel)
	const n = 20
	var wg sync.WaitGroup

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, _ = m.Create(fmt.Sprintf("m%d", i), enc)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, n, m.Count())

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_ = m.Remove(fmt.Sprintf("m%d", i))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Count())
}

func TestMatch_ExecuteEndTurn(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, humanDuel))
	require.NoError(t, err)

	first, ok := match.Current()
	require.True(t, ok)
	assert.False(t, match.Execute(combat.EndTurn("nobody")))
	require.True(t, match.Execute(combat.EndTurn(first.ID)))

	next, ok := match.Current()
	require.True(t, ok)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestMatch_TakeAITurnRejectsHumanTurn(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, humanDuel))
	require.NoError(t, err)

	assert.ErrorIs(t, match.TakeAITurn(context.Background()), session.ErrNotAITurn)
	_, err = match.RunAI(context.Background(), 5)
	assert.ErrorIs(t, err, session.ErrNotAITurn)
}

func TestMatch_RunAIToCompletion(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, botDuel))
	require.NoError(t, err)
	viewer := match.Watch("viewer", 1024)

	o, err := match.RunAI(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, o.Over)
	assert.Equal(t, combat.TeamPlayer, o.Winner)
	assert.Equal(t, o, match.Outcome())

	assert.NotZero(t, len(viewer.Entries()))
	assert.Equal(t, []string{"viewer"}, match.Spectators())
	match.Unwatch("viewer")
	assert.True(t, viewer.IsClosed())
	assert.Empty(t, match.Spectators())
}

func TestMatch_RunAIStopsAtRoundLimit(t *testing.T) {
	doc := `
encounter:
  id: standoff
  map: {width: 4, height: 4}
  combatants:
    - {id: a, team: player, ai: true, position: {x: 0, y: 0}, hp: 5}
    - {id: b, team: enemy, ai: true, position: {x: 3, y: 3}, hp: 5}
`
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, doc))
	require.NoError(t, err)

	o, err := match.RunAI(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, o.Over)
	assert.Equal(t, 4, o.Round)
}

func TestMatch_CancelledContext(t *testing.T) {
	m := session.NewManager(deps(t))
	match, err := m.Create("m1", encounter(t, botDuel))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = match.RunAI(ctx, 10)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatch_ShippedAmbushRuns(t *testing.T) {
	conditions, err := condition.LoadDirectory(contentRoot + "/conditions")
	require.NoError(t, err)
	domains, err := ai.LoadDomains(contentRoot + "/ai")
	require.NoError(t, err)
	enc, err := content.LoadEncounterFile(contentRoot+"/encounters/ambush.yaml", conditions)
	require.NoError(t, err)

	d := deps(t)
	d.Conditions = conditions
	d.Domains = domains
	d.ScriptDir = contentRoot + "/scripts/ai"
	d.Settings = session.Settings{CellFeet: 5, Difficulty: ai.Hard, MaxActions: 3, InstructionLimit: 100000}
	m := session.NewManager(d)
	defer m.Close()

	match, err := m.Create("ambush", enc)
	require.NoError(t, err)
	assert.Len(t, match.Encounter().Zones, 1)

	o, err := match.RunAI(context.Background(), 20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, o.Round, 1)
	assert.NotEmpty(t, match.Log())
}
