package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// RegisterModules registers all engine.* Lua tables into L:
//
//	engine.log.{debug,info,warn,error}(msg)
//	engine.dice.roll(expr) -> {total, dice, modifier} or nil
//	engine.entity.{get_hp,get_name,get_ac,get_team,get_conditions,get_position}(uid)
//	engine.combat.combatants() -> array of combatant tables
//	engine.combat.enemies(uid) -> array of living combatants on other teams
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()
	L.SetField(engine, "log", m.logModule(L))
	L.SetField(engine, "dice", m.diceModule(L))
	L.SetField(engine, "entity", m.entityModule(L))
	L.SetField(engine, "combat", m.combatModule(L))
	L.SetGlobal("engine", engine)
}

func (m *Manager) logModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	levels := map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	}
	for name, fn := range levels {
		L.SetField(mod, name, L.NewFunction(func(L *lua.LState) int {
			fn("lua: " + L.CheckString(1))
			return 0
		}))
	}
	return mod
}

func (m *Manager) diceModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "roll", L.NewFunction(func(L *lua.LState) int {
		res, err := m.roller.RollExpr(L.CheckString(1))
		if err != nil {
			m.logger.Warn("lua: dice roll failed", zap.Error(err))
			L.Push(lua.LNil)
			return 1
		}
		t := L.NewTable()
		L.SetField(t, "total", lua.LNumber(res.Total()))
		L.SetField(t, "dice", lua.LNumber(res.DiceTotal()))
		L.SetField(t, "modifier", lua.LNumber(res.Modifier))
		L.Push(t)
		return 1
	}))
	return mod
}

func (m *Manager) entityModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	getter := func(fn func(*lua.LState, *CombatantInfo) int) *lua.LFunction {
		return L.NewFunction(func(L *lua.LState) int {
			uid := L.CheckString(1)
			if m.GetCombatant == nil {
				L.Push(lua.LNil)
				return 1
			}
			info := m.GetCombatant(uid)
			if info == nil {
				L.Push(lua.LNil)
				return 1
			}
			return fn(L, info)
		})
	}
	L.SetField(mod, "get_hp", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(lua.LNumber(c.HP))
		return 1
	}))
	L.SetField(mod, "get_name", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(lua.LString(c.Name))
		return 1
	}))
	L.SetField(mod, "get_ac", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(lua.LNumber(c.AC))
		return 1
	}))
	L.SetField(mod, "get_team", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(lua.LString(c.Team))
		return 1
	}))
	L.SetField(mod, "get_conditions", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(stringList(L, c.Conditions))
		return 1
	}))
	L.SetField(mod, "get_position", getter(func(L *lua.LState, c *CombatantInfo) int {
		L.Push(lua.LNumber(c.X))
		L.Push(lua.LNumber(c.Y))
		return 2
	}))
	return mod
}

func (m *Manager) combatModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "combatants", L.NewFunction(func(L *lua.LState) int {
		out := L.NewTable()
		if m.Combatants != nil {
			for _, c := range m.Combatants() {
				out.Append(combatantTable(L, c))
			}
		}
		L.Push(out)
		return 1
	}))
	L.SetField(mod, "enemies", L.NewFunction(func(L *lua.LState) int {
		uid := L.CheckString(1)
		out := L.NewTable()
		if m.Combatants == nil {
			L.Push(out)
			return 1
		}
		all := m.Combatants()
		team := ""
		for _, c := range all {
			if c.UID == uid {
				team = c.Team
			}
		}
		for _, c := range all {
			if c.UID != uid && c.Team != team && c.HP > 0 {
				out.Append(combatantTable(L, c))
			}
		}
		L.Push(out)
		return 1
	}))
	return mod
}

func combatantTable(L *lua.LState, c *CombatantInfo) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(c.UID))
	L.SetField(t, "name", lua.LString(c.Name))
	L.SetField(t, "team", lua.LString(c.Team))
	L.SetField(t, "hp", lua.LNumber(c.HP))
	L.SetField(t, "max_hp", lua.LNumber(c.MaxHP))
	L.SetField(t, "ac", lua.LNumber(c.AC))
	L.SetField(t, "x", lua.LNumber(c.X))
	L.SetField(t, "y", lua.LNumber(c.Y))
	L.SetField(t, "speed", lua.LNumber(c.Speed))
	L.SetField(t, "conditions", stringList(L, c.Conditions))
	L.SetField(t, "abilities", stringList(L, c.Abilities))
	L.SetField(t, "action_ready", lua.LBool(c.ActionReady))
	L.SetField(t, "movement_left", lua.LNumber(c.MovementLeft))
	return t
}

func stringList(L *lua.LState, vals []string) *lua.LTable {
	t := L.NewTable()
	for _, v := range vals {
		t.Append(lua.LString(v))
	}
	return t
}
