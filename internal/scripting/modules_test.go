package scripting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	dir := writeTempLua(t, "test.lua", luaSrc)
	// Use a unique scope per test to avoid collisions
	scope := "modtest_" + t.Name()
	require.NoError(t, mgr.LoadScope(scope, dir, 0))
	ret, err := mgr.CallHook(scope, hook, args...)
	require.NoError(t, err)
	return ret
}

func TestEngineLog_WritesToLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	src := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(src, logger)
	mgr := scripting.NewManager(roller, logger)

	runScript(t, mgr, `
		function do_log()
			engine.log.info("hello from lua")
		end
	`, "do_log")

	found := false
	for _, e := range logs.All() {
		if e.Level == zap.InfoLevel {
			found = true
			break
		}
	}
	assert.True(t, found, "expected Info log entry")
}

func TestEngineLog_AllLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	src := dice.NewCryptoSource()
	roller := dice.NewLoggedRoller(src, logger)
	mgr := scripting.NewManager(roller, logger)

	runScript(t, mgr, `
		function do_all_logs()
			engine.log.debug("d")
			engine.log.info("i")
			engine.log.warn("w")
			engine.log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]bool{}
	for _, e := range logs.All() {
		levels[e.Level.String()] = true
	}
	assert.True(t, levels["debug"], "expected debug log")
	assert.True(t, levels["info"], "expected info log")
	assert.True(t, levels["warn"], "expected warn log")
	assert.True(t, levels["error"], "expected error log")
}

func TestEngineDice_Roll_ReturnsTable(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function do_roll()
			local r = engine.dice.roll("1d6")
			if type(r.dice) ~= "number" then error("dice field missing") end
			return r.total
		end
	`, "do_roll")
	n, ok := ret.(lua.LNumber)
	require.True(t, ok, "expected LNumber, got %T", ret)
	assert.GreaterOrEqual(t, int(n), 1)
	assert.LessOrEqual(t, int(n), 6)
}

func TestProperty_DiceRoll_TotalEqualsDicePlusModifier(t *testing.T) {
	mgr, _ := newTestManager(t)
	rapid.Check(t, func(rt *rapid.T) {
		expr := rapid.SampledFrom([]string{"1d6", "2d6", "1d4", "1d8"}).Draw(rt, "expr")
		ret := runScript(t, mgr, `
			function check_invariant(expr)
				local r = engine.dice.roll(expr)
				return r.total == r.dice + r.modifier
			end
		`, "check_invariant", lua.LString(expr))
		assert.Equal(t, lua.LTrue, ret, "total must equal dice + modifier for expr %s", expr)
	})
}

func TestEngineEntity_GetHP_NilCallback_ReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function get_it() return engine.entity.get_hp("uid1") end
	`, "get_it")
	assert.Equal(t, lua.LNil, ret)
}

func TestEngineEntity_GetHP_WithCallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		return &scripting.CombatantInfo{UID: uid, HP: 42, MaxHP: 100}
	}
	ret := runScript(t, mgr, `
		function get_it() return engine.entity.get_hp("uid1") end
	`, "get_it")
	assert.Equal(t, lua.LNumber(42), ret)
}

func TestEngineEntity_GetName_WithCallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		return &scripting.CombatantInfo{UID: uid, Name: "Alice"}
	}
	ret := runScript(t, mgr, `
		function get_it() return engine.entity.get_name("uid1") end
	`, "get_it")
	assert.Equal(t, lua.LString("Alice"), ret)
}

func TestEngineEntity_GetAC_WithCallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		return &scripting.CombatantInfo{UID: uid, AC: 15}
	}
	ret := runScript(t, mgr, `
		function get_it() return engine.entity.get_ac("uid1") end
	`, "get_it")
	assert.Equal(t, lua.LNumber(15), ret)
}

func TestEngineEntity_GetConditions_WithCallback(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		return &scripting.CombatantInfo{UID: uid, Conditions: []string{"prone", "stunned"}}
	}
	ret := runScript(t, mgr, `
		function get_it()
			local conds = engine.entity.get_conditions("uid1")
			return #conds .. ":" .. conds[1] .. ":" .. conds[2]
		end
	`, "get_it")
	assert.Equal(t, lua.LString("2:prone:stunned"), ret)
}

func TestEngineEntity_GetPosition_ReturnsTwoValues(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo {
		return &scripting.CombatantInfo{UID: uid, X: 3, Y: 7}
	}
	ret := runScript(t, mgr, `
		function get_it()
			local x, y = engine.entity.get_position("uid1")
			return x * 100 + y
		end
	`, "get_it")
	assert.Equal(t, lua.LNumber(307), ret)
}

func TestEngineEntity_UnknownUID_ReturnsNil(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetCombatant = func(uid string) *scripting.CombatantInfo { return nil }
	ret := runScript(t, mgr, `
		function get_it() return engine.entity.get_team("ghost") end
	`, "get_it")
	assert.Equal(t, lua.LNil, ret)
}

func TestEngineCombat_Combatants_NilCallback_EmptyTable(t *testing.T) {
	mgr, _ := newTestManager(t)
	ret := runScript(t, mgr, `
		function count() return #engine.combat.combatants() end
	`, "count")
	assert.Equal(t, lua.LNumber(0), ret)
}

func TestEngineCombat_Enemies_ExcludesAlliesAndDead(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Combatants = func() []*scripting.CombatantInfo {
		return []*scripting.CombatantInfo{
			{UID: "a", Team: "player", HP: 10},
			{UID: "b", Team: "player", HP: 10},
			{UID: "c", Team: "enemy", HP: 10},
			{UID: "d", Team: "enemy", HP: 0},
		}
	}
	ret := runScript(t, mgr, `
		function enemies_of(uid)
			local out = ""
			for _, e in ipairs(engine.combat.enemies(uid)) do out = out .. e.uid end
			return out
		end
	`, "enemies_of", lua.LString("a"))
	assert.Equal(t, lua.LString("c"), ret)
}

func TestEngineCombat_CombatantTableFields(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.Combatants = func() []*scripting.CombatantInfo {
		return []*scripting.CombatantInfo{{
			UID: "a", Name: "Ash", Team: "player", HP: 7, MaxHP: 12, AC: 14,
			X: 2, Y: 5, Speed: 30, Abilities: []string{"sword"},
			ActionReady: true, MovementLeft: 25,
		}}
	}
	ret := runScript(t, mgr, `
		function describe()
			local c = engine.combat.combatants()[1]
			return c.name .. ":" .. c.hp .. "/" .. c.max_hp .. ":" .. c.abilities[1] ..
				":" .. tostring(c.action_ready) .. ":" .. c.movement_left
		end
	`, "describe")
	assert.Equal(t, lua.LString("Ash:7/12:sword:true:25"), ret)
}

func TestProperty_Enemies_CountMatchesOpposingTeam(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mgr, _ := newTestManager(t)
		nEnemy := rapid.IntRange(1, 5).Draw(rt, "enemies")
		nPlayer := rapid.IntRange(0, 5).Draw(rt, "players")

		combatants := make([]*scripting.CombatantInfo, 0, nEnemy+nPlayer)
		for i := 0; i < nEnemy; i++ {
			combatants = append(combatants, &scripting.CombatantInfo{
				UID: fmt.Sprintf("e%d", i), Team: "enemy", HP: 10, MaxHP: 10,
			})
		}
		for i := 0; i < nPlayer; i++ {
			combatants = append(combatants, &scripting.CombatantInfo{
				UID: fmt.Sprintf("p%d", i), Team: "player", HP: 10, MaxHP: 10,
			})
		}
		mgr.Combatants = func() []*scripting.CombatantInfo { return combatants }

		ret := runScript(t, mgr, `
			function count(uid) return #engine.combat.enemies(uid) end
		`, "count", lua.LString("e0"))
		if ret != lua.LNumber(nPlayer) {
			rt.Fatalf("expected %d enemies, got %v", nPlayer, ret)
		}
	})
}
