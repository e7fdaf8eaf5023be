package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/action"
	"github.com/cory-johannsen/skirmish/internal/game/ai"
	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/content"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/turn"
	"github.com/cory-johannsen/skirmish/internal/observability"
	"github.com/cory-johannsen/skirmish/internal/scripting"
)

var (
	// ErrNotStarted is returned when a match is driven before Start.
	ErrNotStarted = errors.New("session: match not started")
	// ErrNotAITurn is returned when the current combatant has no AI controller.
	ErrNotAITurn = errors.New("session: current combatant is not AI-controlled")
)

// Settings tunes the rules engine and the scripted opponents of a match.
type Settings struct {
	CellFeet         int
	Difficulty       ai.Difficulty
	Delays           ai.Delays
	MaxActions       int
	InstructionLimit int
}

// Deps are the shared resources every match is built from.
type Deps struct {
	// Conditions resolves status definitions. Must be non-nil.
	Conditions *condition.Registry
	// Domains are registered alongside ai.DefaultDomain.
	Domains []*ai.Domain
	// ScriptDir holds the global AI scripts. Empty disables scripting.
	ScriptDir string
	// NewSource returns the dice source for a new match. Nil uses crypto randomness.
	NewSource func(matchID string) dice.Source
	// Clock waits out AI thinking delays. Nil is ai.RealClock.
	Clock ai.Clock
	// Observer receives every match's updates in addition to the recorder.
	Observer combat.Observer
	Settings Settings
	Logger   *zap.Logger
}

// Outcome summarises where a match stands.
type Outcome struct {
	Over bool
	// Winner is the last team standing; empty on a mutual wipe or while running.
	Winner combat.Team
	Round  int
}

// Match is one encounter in play. Its engine, scheduler and executor are
// owned by the match; all methods are safe for concurrent use.
type Match struct {
	id        string
	encounter *content.Encounter

	mu       sync.Mutex
	started  bool
	engine   *combat.Engine
	sched    *turn.Scheduler
	exec     *action.Executor
	recorder *combat.Recorder
	scripts  *scripting.Manager
	loops    map[string]*ai.Loop
	untrace  func()
	logger   *zap.Logger

	specMu     sync.Mutex
	spectators map[string]*Spectator
}

// newMatch builds a match from enc. The returned match must be started.
func newMatch(id string, enc *content.Encounter, deps Deps) (*Match, error) {
	if enc == nil {
		return nil, errors.New("session: nil encounter")
	}
	if deps.Conditions == nil {
		return nil, errors.New("session: nil condition registry")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("match", id), zap.String("encounter", enc.ID))

	var src dice.Source
	if deps.NewSource != nil {
		src = deps.NewSource(id)
	}
	if src == nil {
		src = dice.NewCryptoSource()
	}
	roller := dice.NewLoggedRoller(src, logger)

	m := &Match{
		id:         id,
		encounter:  enc,
		recorder:   combat.NewRecorder(),
		loops:      make(map[string]*ai.Loop),
		spectators: make(map[string]*Spectator),
		logger:     logger,
	}

	bus := event.NewBus(logger)
	m.untrace = observability.TraceTelemetry(bus, logger)

	cellFeet := deps.Settings.CellFeet
	if cellFeet <= 0 {
		cellFeet = 5
	}
	m.engine = combat.NewEngine(combat.Config{CellFeet: cellFeet}, combat.NewRoster(), roller, bus, enc.Board, m.observer(deps.Observer), logger)
	m.engine.SetConditions(deps.Conditions)
	m.sched = turn.NewScheduler(m.engine, logger)
	m.exec = action.NewExecutor(m.engine, m.sched, nil, logger)

	// A nil *scripting.Manager must never reach ai.ScriptCaller as a typed nil.
	var caller ai.ScriptCaller
	if deps.ScriptDir != "" {
		m.scripts = scripting.NewManager(roller, logger)
		if err := m.scripts.LoadGlobal(deps.ScriptDir, deps.Settings.InstructionLimit); err != nil {
			m.release()
			return nil, fmt.Errorf("loading AI scripts: %w", err)
		}
		ai.Bind(m.scripts, m.engine)
		caller = m.scripts
	}

	if err := m.buildLoops(deps, caller); err != nil {
		m.release()
		return nil, err
	}
	return m, nil
}

func (m *Match) buildLoops(deps Deps, caller ai.ScriptCaller) error {
	reg := ai.NewRegistry(m.id, caller, m.logger)
	for _, d := range deps.Domains {
		if err := reg.Register(d); err != nil {
			return err
		}
	}

	cfg := ai.LoopConfig{
		Difficulty: deps.Settings.Difficulty,
		Delays:     deps.Settings.Delays,
		MaxActions: deps.Settings.MaxActions,
	}
	for id, ctl := range m.encounter.Controllers {
		eval, err := reg.EvaluatorFor(ctl.Script, ctl.Domain)
		if err != nil {
			return fmt.Errorf("combatant %q: %w", id, err)
		}
		m.loops[id] = ai.NewLoop(m.engine, m.sched, m.exec, eval, deps.Clock, cfg, m.logger.With(zap.String("actor", id)))
	}
	return nil
}

// observer fans engine updates out to the recorder, spectators and extra.
func (m *Match) observer(extra combat.Observer) combat.Observer {
	return combat.ObserverFuncs{
		OnCharacter: func(c combat.Combatant) {
			m.recorder.CharacterUpdated(c)
			if extra != nil {
				extra.CharacterUpdated(c)
			}
		},
		OnLog: func(e event.LogEntry) {
			m.recorder.LogEntry(e)
			if extra != nil {
				extra.LogEntry(e)
			}
			m.broadcast(e)
		},
		OnMap: func(b *battlemap.Map) {
			m.recorder.MapUpdated(b)
			if extra != nil {
				extra.MapUpdated(b)
			}
		},
	}
}

func (m *Match) broadcast(e event.LogEntry) {
	m.specMu.Lock()
	defer m.specMu.Unlock()
	for _, s := range m.spectators {
		if err := s.Push(e); err != nil {
			m.logger.Debug("spectator push failed", zap.String("spectator", s.ID()), zap.Error(err))
		}
	}
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// Encounter returns the encounter the match was built from.
func (m *Match) Encounter() *content.Encounter { return m.encounter }

// Start rolls initiative, places the encounter's pre-cast zones and begins
// round 1.
//
// Postcondition: returns an error if the match was already started.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return fmt.Errorf("session: match %s already started", m.id)
	}
	cs := make([]combat.Combatant, 0, len(m.encounter.Combatants))
	for _, c := range m.encounter.Combatants {
		cs = append(cs, c.Clone())
	}
	for _, z := range m.encounter.Zones {
		m.engine.AddZone(z.CasterID, z.SpellID, z.Origin, z.Template)
	}
	m.sched.Initialize(cs)
	m.started = true
	m.logger.Info("match started", zap.Int("combatants", len(cs)), zap.Int("zones", len(m.encounter.Zones)))
	return nil
}

// Execute submits a player action for the current combatant.
//
// Postcondition: returns false, with nothing mutated, when the match has not
// started or the executor rejects the action.
func (m *Match) Execute(a combat.Action) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return false
	}
	return m.exec.Execute(a)
}

// TakeAITurn plays the current combatant's turn through its decision loop.
//
// Precondition: the current combatant has an AI controller.
func (m *Match) TakeAITurn(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.takeAITurn(ctx)
}

func (m *Match) takeAITurn(ctx context.Context) error {
	if !m.started {
		return ErrNotStarted
	}
	id := m.sched.CurrentID()
	loop, ok := m.loops[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAITurn, id)
	}
	return loop.TakeTurn(ctx)
}

// RunAI plays AI turns until one team is left standing, maxRounds rounds have
// completed or an AI turn fails. A non-positive maxRounds means no limit.
//
// Precondition: every combatant that can take a turn has an AI controller.
func (m *Match) RunAI(ctx context.Context, maxRounds int) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return Outcome{}, ErrNotStarted
	}
	for {
		o := m.outcome()
		if o.Over {
			m.logger.Info("match over", zap.String("winner", string(o.Winner)), zap.Int("round", o.Round))
			return o, nil
		}
		if maxRounds > 0 && o.Round > maxRounds {
			m.logger.Info("round limit reached", zap.Int("max_rounds", maxRounds))
			return o, nil
		}
		if err := m.takeAITurn(ctx); err != nil {
			return m.outcome(), err
		}
	}
}

// Outcome reports whether a single team (or none) is left standing.
func (m *Match) Outcome() Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome()
}

func (m *Match) outcome() Outcome {
	o := Outcome{Round: m.sched.Round()}
	if !m.started {
		return o
	}
	alive := m.engine.Roster().Alive()
	teams := make(map[combat.Team]bool)
	for _, c := range alive {
		teams[c.Team] = true
	}
	switch len(teams) {
	case 0:
		o.Over = true
	case 1:
		o.Over = true
		o.Winner = alive[0].Team
	}
	return o
}

// Current returns the combatant whose turn it is.
func (m *Match) Current() (combat.Combatant, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched.Current()
}

// State returns a snapshot of the turn scheduler.
func (m *Match) State() turn.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sched.State()
}

// Combatants returns copies of every combatant in roster order.
func (m *Match) Combatants() []combat.Combatant {
	return m.engine.Roster().All()
}

// Log returns every narrated entry recorded so far.
func (m *Match) Log() []event.LogEntry {
	return m.recorder.Entries()
}

// Watch attaches a spectator that receives every subsequent log entry.
//
// Postcondition: an existing spectator with the same id is replaced and closed.
func (m *Match) Watch(id string, bufferSize int) *Spectator {
	s := NewSpectator(id, bufferSize)
	m.specMu.Lock()
	defer m.specMu.Unlock()
	if old, ok := m.spectators[id]; ok {
		_ = old.Close()
	}
	m.spectators[id] = s
	return s
}

// Unwatch detaches and closes the spectator with id, if any.
func (m *Match) Unwatch(id string) {
	m.specMu.Lock()
	defer m.specMu.Unlock()
	if s, ok := m.spectators[id]; ok {
		_ = s.Close()
		delete(m.spectators, id)
	}
}

// Spectators returns the attached spectator IDs in sorted order.
func (m *Match) Spectators() []string {
	m.specMu.Lock()
	defer m.specMu.Unlock()
	ids := make([]string, 0, len(m.spectators))
	for id := range m.spectators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close stops telemetry tracing, closes the Lua VMs and every spectator.
func (m *Match) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
}

func (m *Match) release() {
	if m.untrace != nil {
		m.untrace()
		m.untrace = nil
	}
	if m.scripts != nil {
		m.scripts.Close()
		m.scripts = nil
	}
	m.specMu.Lock()
	defer m.specMu.Unlock()
	for id, s := range m.spectators {
		_ = s.Close()
		delete(m.spectators, id)
	}
}
