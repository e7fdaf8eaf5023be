package ai_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/skirmish/internal/game/action"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/turn"
	"github.com/cory-johannsen/skirmish/internal/scripting"
	"github.com/cory-johannsen/skirmish/internal/testutil"
)

type loopHarness struct {
	*testutil.Fixture
	sched *turn.Scheduler
	exec  *action.Executor
	clock *ai.SimClock
}

// newLoopHarness starts combat with cs in input order (every initiative ties).
func newLoopHarness(t *testing.T, cs ...combat.Combatant) *loopHarness {
	t.Helper()
	f := testutil.NewFixture(t, testutil.FixedSource{Val: 9})
	f.Add(cs...)
	sched := turn.NewScheduler(f.Engine, zaptest.NewLogger(t))
	sched.Initialize(cs)
	return &loopHarness{
		Fixture: f,
		sched:   sched,
		exec:    action.NewExecutor(f.Engine, sched, nil, zaptest.NewLogger(t)),
		clock:   &ai.SimClock{},
	}
}

func (h *loopHarness) loop(t *testing.T, eval ai.Evaluator, diff ai.Difficulty) *ai.Loop {
	t.Helper()
	return ai.NewLoop(h.Engine, h.sched, h.exec, eval, h.clock, ai.LoopConfig{Difficulty: diff}, zaptest.NewLogger(t))
}

func bot(id string, team combat.Team, pos grid.Position, abs ...combat.Ability) combat.Combatant {
	c := testutil.Fighter(id, team, pos)
	c.AIControlled = true
	c.Abilities = abs
	return c
}

func TestLoop_HardDifficulty_NoAbilities_EndsAfterOneDelay(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 5}))
	l := h.loop(t, ai.NewPlanner(ai.DefaultDomain(), nil, ""), ai.Hard)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, []time.Duration{400 * time.Millisecond}, h.clock.Sleeps())
	assert.Equal(t, 400*time.Millisecond, h.clock.Elapsed())
	assert.Equal(t, "p1", h.sched.CurrentID())
	assert.Equal(t, 0, l.Actions())
	assert.Equal(t, ai.StateIdle, l.State())
}

func TestLoop_MoveThenAttack(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}, testutil.Sword()),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 4}))
	l := h.loop(t, ai.NewPlanner(ai.DefaultDomain(), nil, ""), ai.Normal)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, 2, l.Actions())
	assert.Equal(t, []time.Duration{800 * time.Millisecond, 800 * time.Millisecond, 800 * time.Millisecond}, h.clock.Sleeps())
	assert.Equal(t, grid.Position{X: 3}, h.MustGet(t, "n1").Position)
	assert.Less(t, h.MustGet(t, "p1").CurrentHP, 20)
	assert.Equal(t, "p1", h.sched.CurrentID())
}

func TestLoop_ActionCapForcesDone(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 10}))
	calls := 0
	eval := ai.EvaluatorFunc(func(eng *combat.Engine, id string) (combat.Action, error) {
		calls++
		c, _ := eng.Get(id)
		dest := grid.Position{X: 1 - c.Position.X}
		return combat.Action{ActorID: id, Kind: combat.ActionMove, TargetPosition: &dest}, nil
	})
	l := h.loop(t, eval, ai.Easy)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, ai.DefaultMaxActions, l.Actions())
	assert.Equal(t, ai.DefaultMaxActions, calls)
	assert.Len(t, h.clock.Sleeps(), ai.DefaultMaxActions)
	assert.Equal(t, 1200*time.Millisecond, h.clock.Sleeps()[0])
	assert.Equal(t, "p1", h.sched.CurrentID())
}

func TestLoop_RejectedActionEndsTurn(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 10}))
	eval := ai.EvaluatorFunc(func(_ *combat.Engine, id string) (combat.Action, error) {
		return combat.Action{ActorID: id, Kind: combat.ActionAbility, AbilityID: "nope"}, nil
	})
	l := h.loop(t, eval, ai.Normal)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, 0, l.Actions())
	assert.Equal(t, "p1", h.sched.CurrentID())
	assert.Equal(t, ai.StateIdle, l.State())
}

func TestLoop_EvaluatorErrorEndsTurn(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 10}))
	eval := ai.EvaluatorFunc(func(*combat.Engine, string) (combat.Action, error) {
		return combat.Action{}, errors.New("board unreadable")
	})
	l := h.loop(t, eval, ai.Normal)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, "p1", h.sched.CurrentID())
}

func TestLoop_NotAIControlled(t *testing.T) {
	h := newLoopHarness(t,
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{}),
		bot("n1", combat.TeamEnemy, grid.Position{X: 10}))
	l := h.loop(t, ai.NewPlanner(ai.DefaultDomain(), nil, ""), ai.Normal)

	assert.Error(t, l.TakeTurn(context.Background()))
	assert.Equal(t, "p1", h.sched.CurrentID())
	assert.Empty(t, h.clock.Sleeps())
}

func TestLoop_CancelledContextLeavesTurnOpen(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 10}))
	l := h.loop(t, ai.NewPlanner(ai.DefaultDomain(), nil, ""), ai.Normal)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.TakeTurn(ctx), context.Canceled)
	assert.Equal(t, "n1", h.sched.CurrentID())
	assert.Equal(t, ai.StateIdle, l.State())
}

func TestLoop_ScriptEvaluatorDrivesTurn(t *testing.T) {
	h := newLoopHarness(t,
		bot("n1", combat.TeamEnemy, grid.Position{}, testutil.Sword()),
		testutil.Fighter("p1", combat.TeamPlayer, grid.Position{X: 4}))
	logger := zaptest.NewLogger(t)
	mgr := scripting.NewManager(dice.NewLoggedRoller(testutil.FixedSource{Val: 0}, logger), logger)
	require.NoError(t, mgr.LoadGlobal(filepath.Join("..", "..", "..", "content", "scripts", "ai"), 0))
	ai.Bind(mgr, h.Engine)
	l := h.loop(t, ai.NewScriptEvaluator(mgr, "match"), ai.Hard)

	require.NoError(t, l.TakeTurn(context.Background()))
	assert.Equal(t, 2, l.Actions())
	assert.Equal(t, grid.Position{X: 3}, h.MustGet(t, "n1").Position)
	assert.Less(t, h.MustGet(t, "p1").CurrentHP, 20)
}

func TestScriptEvaluator_BadReturnIsError(t *testing.T) {
	h := newLoopHarness(t, bot("n1", combat.TeamEnemy, grid.Position{}))
	for _, ret := range []lua.LValue{lua.LNil, lua.LString("attack")} {
		ev := ai.NewScriptEvaluator(&mockScriptCaller{returnVal: ret}, "")
		_, err := ev.Evaluate(h.Engine, "n1")
		assert.Error(t, err)
	}
}

func TestScriptEvaluator_DecodesAbility(t *testing.T) {
	h := newLoopHarness(t, bot("n1", combat.TeamEnemy, grid.Position{}, testutil.Sword()))
	L := lua.NewState()
	defer L.Close()
	tbl := L.NewTable()
	tbl.RawSetString("kind", lua.LString("ability"))
	tbl.RawSetString("ability", lua.LString("sword"))
	tbl.RawSetString("target", lua.LString("p1"))

	a, err := ai.NewScriptEvaluator(&mockScriptCaller{returnVal: tbl}, "").Evaluate(h.Engine, "n1")
	require.NoError(t, err)
	assert.Equal(t, combat.ActionAbility, a.Kind)
	assert.Equal(t, "sword", a.AbilityID)
	assert.Equal(t, []string{"p1"}, a.TargetIDs)
	assert.Equal(t, testutil.Sword().Cost, a.Cost)
}

func TestRealClock_SleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ai.RealClock{}.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, ai.RealClock{}.Sleep(context.Background(), time.Millisecond))
}

func TestParseDifficulty(t *testing.T) {
	d, err := ai.ParseDifficulty(" HARD ")
	require.NoError(t, err)
	assert.Equal(t, ai.Hard, d)
	_, err = ai.ParseDifficulty("nightmare")
	assert.Error(t, err)
	assert.Equal(t, 800*time.Millisecond, ai.DefaultDelays().For("unknown"))
}
