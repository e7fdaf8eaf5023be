// Package turn implements the initiative-ordered turn scheduler: who acts
// now, when a round rolls over, and which round-scoped expirations run then.
package turn

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Phase is the scheduler's coarse state.
type Phase string

const (
	// Planning is the state before Initialize.
	Planning Phase = "planning"
	// Acting is the state once turns are running.
	Acting Phase = "action"
)

// Entry is one slot in the turn order.
type Entry struct {
	ID         string
	Initiative int
}

// State is a snapshot of the scheduler.
type State struct {
	Phase     Phase
	Round     int
	Turn      int
	Order     []Entry
	CurrentID string
	// Actions holds the actions executed during the current turn.
	Actions []combat.Action
}

// Scheduler owns the turn order of one encounter. It is not safe for
// concurrent use; one session drives it at a time.
type Scheduler struct {
	eng     *combat.Engine
	logger  *zap.Logger
	phase   Phase
	order   []Entry
	idx     int
	round   int
	turn    int
	actions []combat.Action
}

// NewScheduler creates a Scheduler in the planning phase.
//
// Precondition: eng must be non-nil. A nil logger is replaced with a no-op logger.
func NewScheduler(eng *combat.Engine, logger *zap.Logger) *Scheduler {
	if eng == nil {
		panic("turn: NewScheduler called with nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{eng: eng, logger: logger, phase: Planning}
}

// rollInitiative sets c.Initiative to d20 + Dexterity modifier + BaseInitiative.
func (s *Scheduler) rollInitiative(c combat.Combatant) combat.Combatant {
	d20 := s.eng.Roller().D20(dice.Straight)
	c.Initiative = d20.Natural + c.Scores.Mod(stats.Dexterity) + c.BaseInitiative
	return c
}

// Initialize rolls initiative for every combatant, orders them highest first
// (ties keep input order), gives each a fresh economy and starts round 1.
//
// Precondition: len(cs) > 0 and Initialize has not been called.
// Postcondition: Phase is Acting, Round is 1 and the first living combatant's turn has begun.
func (s *Scheduler) Initialize(cs []combat.Combatant) {
	if len(cs) == 0 {
		panic("turn: Initialize called with no combatants")
	}
	if s.phase != Planning {
		panic("turn: Initialize called twice")
	}
	order := make([]Entry, 0, len(cs))
	for _, c := range cs {
		c = s.rollInitiative(c)
		c.Economy = economy.Fresh(c.Speed, c.Economy.SpellSlots)
		s.eng.Commit(c)
		order = append(order, Entry{ID: c.ID, Initiative: c.Initiative})
	}
	sortByInitiativeDesc(order)
	s.order = order
	s.phase = Acting
	s.round, s.turn = 1, 1
	s.eng.SetTurn(s.round, s.turn)

	names := make([]string, 0, len(order))
	for _, e := range order {
		c, _ := s.eng.Get(e.ID)
		names = append(names, c.Name)
	}
	s.eng.Log(event.LogSystem, "Combat begins! Turn order: "+strings.Join(names, " → "), "", nil,
		map[string]any{"order": s.ids()})
	s.logger.Info("combat initialized", zap.Strings("order", s.ids()))

	s.idx = s.nextAlive(len(s.order) - 1)
	if s.idx < 0 {
		s.idx = 0
		return
	}
	s.begin()
	s.autoSkip()
}

// EndTurn ends the current actor's turn: its end-of-turn pipeline runs, riders
// anchored to it age, and the cursor advances to the next living combatant.
// Wrapping past the previous position starts a new round and sweeps
// round-scoped expirations. Turns of combatants held by a skip_turn status end
// automatically, at most once per order entry.
//
// Precondition: Initialize has been called.
func (s *Scheduler) EndTurn() {
	if s.phase != Acting {
		panic("turn: EndTurn called before Initialize")
	}
	if s.advance() {
		s.autoSkip()
	}
}

// autoSkip ends turns forfeited to skip_turn statuses, at most once per entry.
func (s *Scheduler) autoSkip() {
	for range len(s.order) {
		if !s.skipsTurn() || !s.advance() {
			return
		}
	}
}

func (s *Scheduler) skipsTurn() bool {
	c, ok := s.eng.Get(s.order[s.idx].ID)
	return ok && c.Alive() && condition.SkipsTurn(c.StatusEffects)
}

// advance closes the current turn and begins the next; false when nobody is left alive.
func (s *Scheduler) advance() bool {
	curID := s.order[s.idx].ID
	if c, ok := s.eng.Get(curID); ok && c.Alive() {
		s.eng.ResolveEndOfTurn(c, s.round)
	}
	s.eng.ExpireRiders(curID, s.turn)

	next := s.nextAlive(s.idx)
	if next < 0 {
		s.logger.Info("no living combatants remain")
		return false
	}
	// Riders anchored to a fallen combatant age each time its slot is passed over.
	for i := (s.idx + 1) % len(s.order); i != next; i = (i + 1) % len(s.order) {
		s.eng.ExpireRiders(s.order[i].ID, s.turn)
	}
	if next <= s.idx {
		s.round++
		s.eng.SetTurn(s.round, s.turn)
		s.eng.SweepRound(s.round)
		s.eng.Log(event.LogTurnStart, fmt.Sprintf("Round %d begins!", s.round), "", nil, map[string]any{"round": s.round})
		s.logger.Info("round started", zap.Int("round", s.round))
	}
	s.turn++
	s.idx = next
	s.eng.SetTurn(s.round, s.turn)
	s.begin()
	return true
}

// begin runs turn-start processing for the combatant at idx.
func (s *Scheduler) begin() {
	s.actions = nil
	c, ok := s.eng.Get(s.order[s.idx].ID)
	if !ok {
		s.logger.Warn("turn order references unknown combatant", zap.String("id", s.order[s.idx].ID))
		return
	}
	c = s.eng.BeginTurn(c)
	if condition.SkipsTurn(c.StatusEffects) {
		s.eng.Logf(event.LogStatus, c.ID, "%s is unable to act", c.Name)
	}
}

// nextAlive returns the index of the first living combatant after from,
// wrapping, or -1.
func (s *Scheduler) nextAlive(from int) int {
	n := len(s.order)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if c, ok := s.eng.Get(s.order[i].ID); ok && c.Alive() {
			return i
		}
	}
	return -1
}

// JoinCombat rolls initiative for c and inserts it behind every entry with
// equal or higher initiative. The current actor is unchanged.
//
// Precondition: Initialize has been called; c.ID is not already in the order.
func (s *Scheduler) JoinCombat(c combat.Combatant) {
	if s.phase != Acting {
		panic("turn: JoinCombat called before Initialize")
	}
	if slices.ContainsFunc(s.order, func(e Entry) bool { return e.ID == c.ID }) {
		panic(fmt.Sprintf("turn: JoinCombat called with duplicate id %q", c.ID))
	}
	c = s.rollInitiative(c)
	c.Economy = economy.Fresh(c.Speed, c.Economy.SpellSlots)
	s.eng.Commit(c)

	pos := len(s.order)
	for i, e := range s.order {
		if c.Initiative > e.Initiative {
			pos = i
			break
		}
	}
	s.order = slices.Insert(s.order, pos, Entry{ID: c.ID, Initiative: c.Initiative})
	if pos <= s.idx {
		s.idx++
	}
	s.eng.Log(event.LogSystem, fmt.Sprintf("%s joins the fight (initiative %d)", c.Name, c.Initiative), c.ID, nil,
		map[string]any{"initiative": c.Initiative})
}

// Current returns the combatant whose turn it is.
func (s *Scheduler) Current() (combat.Combatant, bool) {
	if s.phase != Acting || len(s.order) == 0 {
		return combat.Combatant{}, false
	}
	return s.eng.Get(s.order[s.idx].ID)
}

// CurrentID returns the current actor's id, or "" before Initialize.
func (s *Scheduler) CurrentID() string {
	if s.phase != Acting || len(s.order) == 0 {
		return ""
	}
	return s.order[s.idx].ID
}

// Round returns the current round number.
func (s *Scheduler) Round() int { return s.round }

// RecordAction appends a to the current turn's history.
func (s *Scheduler) RecordAction(a combat.Action) {
	s.actions = append(s.actions, a)
}

// State returns a snapshot of the scheduler.
func (s *Scheduler) State() State {
	return State{
		Phase:     s.phase,
		Round:     s.round,
		Turn:      s.turn,
		Order:     slices.Clone(s.order),
		CurrentID: s.CurrentID(),
		Actions:   slices.Clone(s.actions),
	}
}

func (s *Scheduler) ids() []string {
	out := make([]string, len(s.order))
	for i, e := range s.order {
		out[i] = e.ID
	}
	return out
}

// sortByInitiativeDesc sorts entries in place, highest initiative first,
// keeping ties in input order.
func sortByInitiativeDesc(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.Initiative, a.Initiative)
	})
}
