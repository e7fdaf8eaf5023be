package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
)

// GlobalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scoped VM is found.
const GlobalScope = "__global__"

// CombatantInfo is a snapshot of a combatant's state passed to Lua callbacks.
type CombatantInfo struct {
	UID        string
	Name       string
	Team       string
	HP         int
	MaxHP      int
	AC         int
	X, Y       int
	Speed      int
	Conditions []string
	Abilities  []string

	// ActionReady and MovementLeft describe the current turn's economy.
	ActionReady  bool
	MovementLeft int
}

// vm pairs a single-threaded LState with the lock that serializes its use.
type vm struct {
	mu    sync.Mutex
	L     *lua.LState
	limit int
}

// Manager owns one sandboxed LState per scope and exposes hook dispatch.
//
// Manager is safe for concurrent CallHook. Calls into the same scope are
// serialized; different scopes run concurrently. Every call receives a
// fresh instruction budget.
type Manager struct {
	mu     sync.RWMutex
	vms    map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil = no-op in engine.* modules.
	GetCombatant func(uid string) *CombatantInfo
	Combatants   func() []*CombatantInfo
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with an empty scope map.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting: NewManager requires a non-nil roller")
	}
	if logger == nil {
		panic("scripting: NewManager requires a non-nil logger")
	}
	return &Manager{
		vms:    make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadScope creates a sandboxed VM for scope, registers all engine.* modules,
// then executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: Scope VM is registered; returns error on Lua load failure.
func (m *Manager) LoadScope(scope, scriptDir string, instLimit int) error {
	return m.loadInto(scope, scriptDir, instLimit)
}

// LoadGlobal creates the "__global__" VM for shared scripts accessible
// as a CallHook fallback from any scope.
//
// Precondition: scriptDir must be a readable directory.
// Postcondition: Global VM is registered; returns error on Lua load failure.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.loadInto(GlobalScope, scriptDir, instLimit)
}

func (m *Manager) loadInto(key, scriptDir string, instLimit int) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", scriptDir, key, err)
	}

	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, path := range luaFiles {
		release := arm(L, instLimit)
		err := L.DoFile(path)
		release()
		if err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", path, key, err)
		}
	}

	m.mu.Lock()
	old := m.vms[key]
	m.vms[key] = &vm{L: L, limit: instLimit}
	m.mu.Unlock()
	if old != nil {
		old.mu.Lock()
		old.L.Close()
		old.mu.Unlock()
	}
	m.logger.Debug("scripting: scope loaded",
		zap.String("scope", key),
		zap.Int("files", len(luaFiles)),
	)
	return nil
}

// HasHook reports whether hook is defined as a function in scope's VM or the
// global fallback.
func (m *Manager) HasHook(scope, hook string) bool {
	v := m.lookup(scope)
	if v == nil {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

func (m *Manager) lookup(scope string) *vm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.vms[scope]; ok {
		return v
	}
	return m.vms[GlobalScope]
}

// CallHook calls the named Lua global function in scope's VM. If the scope
// has no VM, the __global__ VM is tried as a fallback. Returns (LNil, nil) if
// the hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	v := m.lookup(scope)
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	fn := v.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	release := arm(v.L, v.limit)
	defer release()
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, nil
}

// Close releases every VM. Subsequent CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	vms := m.vms
	m.vms = make(map[string]*vm)
	m.mu.Unlock()
	for _, v := range vms {
		v.mu.Lock()
		v.L.Close()
		v.mu.Unlock()
	}
}
