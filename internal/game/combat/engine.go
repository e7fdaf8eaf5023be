package combat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
	"github.com/cory-johannsen/skirmish/internal/game/saves"
	"github.com/cory-johannsen/skirmish/internal/game/zone"
)

// Config holds the engine's tunables.
type Config struct {
	// CellFeet is the real-world size of one grid cell.
	CellFeet int
}

// Engine owns the damage/status pipeline and the encounter-wide state that
// pipeline reads: active zones, movement debuffs, reactive triggers and the map.
// It is not safe for concurrent use; one session drives it at a time.
type Engine struct {
	cfg        Config
	roster     *Roster
	roller     *dice.Roller
	bus        *event.Bus
	zones      *zone.Tracker
	debuffs    []zone.MovementDebuff
	triggers   []ReactiveTrigger
	board      *battlemap.Map
	conditions *condition.Registry
	obs        Observer
	logger     *zap.Logger
	now        func() time.Time
	round      int
	turn       int
}

// NewEngine wires an Engine.
//
// Precondition: roster, roller, bus and board must be non-nil; cfg.CellFeet > 0.
// A nil observer discards notifications; a nil logger is replaced with a no-op logger.
func NewEngine(cfg Config, roster *Roster, roller *dice.Roller, bus *event.Bus, board *battlemap.Map, obs Observer, logger *zap.Logger) *Engine {
	if cfg.CellFeet <= 0 {
		panic("combat: NewEngine called with CellFeet <= 0")
	}
	if roster == nil || roller == nil || bus == nil || board == nil {
		panic("combat: NewEngine called with nil dependency")
	}
	if obs == nil {
		obs = ObserverFuncs{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		roster: roster,
		roller: roller,
		bus:    bus,
		zones:  zone.NewTracker(cfg.CellFeet, bus, logger),
		board:  board,
		obs:    obs,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the timestamp source for log entries.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) Roster() *Roster { return e.roster }

func (e *Engine) Roller() *dice.Roller { return e.roller }

func (e *Engine) Bus() *event.Bus { return e.bus }

func (e *Engine) Logger() *zap.Logger { return e.logger }

// CellFeet returns the real-world size of one grid cell.
func (e *Engine) CellFeet() int { return e.cfg.CellFeet }

// Board returns the current map.
func (e *Engine) Board() *battlemap.Map { return e.board }

// Zones returns the active zones in creation order.
func (e *Engine) Zones() []zone.Zone { return e.zones.Zones() }

// Round returns the current round number.
func (e *Engine) Round() int { return e.round }

// TurnCounter returns the global turn counter.
func (e *Engine) TurnCounter() int { return e.turn }

// Triggers returns the live reactive triggers.
func (e *Engine) Triggers() []ReactiveTrigger {
	out := make([]ReactiveTrigger, len(e.triggers))
	copy(out, e.triggers)
	return out
}

// Debuffs returns the armed movement debuffs.
func (e *Engine) Debuffs() []zone.MovementDebuff {
	out := make([]zone.MovementDebuff, len(e.debuffs))
	copy(out, e.debuffs)
	return out
}

// SetTurn records the scheduler's round and global turn counter.
func (e *Engine) SetTurn(round, turn int) {
	e.round = round
	e.turn = turn
}

// SetBoard replaces the map and notifies the observer.
func (e *Engine) SetBoard(m *battlemap.Map) {
	e.board = m
	e.obs.MapUpdated(m)
}

// Get returns the stored snapshot for id.
func (e *Engine) Get(id string) (Combatant, bool) { return e.roster.Get(id) }

// Commit stores c and fires CharacterUpdated.
func (e *Engine) Commit(c Combatant) Combatant {
	e.roster.Put(c)
	e.obs.CharacterUpdated(c.Clone())
	return c
}

// Log narrates one event to the observer.
func (e *Engine) Log(typ event.LogType, message, characterID string, targetIDs []string, data map[string]any) {
	e.obs.LogEntry(event.LogEntry{
		ID:          uuid.NewString(),
		Timestamp:   e.now(),
		Type:        typ,
		Message:     message,
		CharacterID: characterID,
		TargetIDs:   targetIDs,
		Data:        data,
	})
}

// Logf narrates a formatted message with no structured data.
func (e *Engine) Logf(typ event.LogType, characterID, format string, args ...any) {
	e.Log(typ, fmt.Sprintf(format, args...), characterID, nil, nil)
}

// AddZone creates a zone from tmpl at origin for casterID. The zone's DC is
// the caster's spell DC; a positive duration sets ExpiresAtRound to round+duration.
func (e *Engine) AddZone(casterID, spellID string, origin grid.Position, tmpl ZoneTemplate) zone.Zone {
	z := zone.Zone{
		SpellID:  spellID,
		CasterID: casterID,
		Origin:   origin,
		Area:     tmpl.Area,
		Effects:  tmpl.Effects,
	}
	if caster, ok := e.roster.Get(casterID); ok {
		z.DC = caster.SpellDC()
	}
	if tmpl.Duration > 0 {
		z.ExpiresAtRound = e.round + tmpl.Duration
	}
	return e.zones.Add(z)
}

// RemoveZone drops the zone with id.
func (e *Engine) RemoveZone(id string) { e.zones.Remove(id) }

// AddMovementDebuff arms tmpl on targetID.
func (e *Engine) AddMovementDebuff(casterID, spellID, targetID string, tmpl DebuffTemplate) zone.MovementDebuff {
	dc := 0
	if caster, ok := e.roster.Get(casterID); ok {
		dc = caster.SpellDC()
	}
	d := zone.NewMovementDebuff(spellID, casterID, targetID, tmpl.Effects, e.round, tmpl.Duration, dc)
	e.debuffs = append(e.debuffs[:len(e.debuffs):len(e.debuffs)], d)
	return d
}

// AddReactiveTrigger binds tmpl to targetID.
func (e *Engine) AddReactiveTrigger(casterID, spellID, targetID string, tmpl ReactiveTemplate) ReactiveTrigger {
	duration := tmpl.Duration
	if duration <= 0 {
		duration = 1
	}
	t := ReactiveTrigger{
		ID:             uuid.NewString(),
		SpellID:        spellID,
		CasterID:       casterID,
		TargetID:       targetID,
		Kind:           tmpl.Kind,
		Effect:         tmpl.Effect,
		CreatedRound:   e.round,
		ExpiresAtRound: e.round + duration,
	}
	if caster, ok := e.roster.Get(casterID); ok {
		t.DC = caster.SpellDC()
	}
	e.triggers = append(e.triggers[:len(e.triggers):len(e.triggers)], t)
	return t
}

// RegisterRider attaches a rider built from tmpl to target, anchored to
// casterID at the current global turn.
func (e *Engine) RegisterRider(target Combatant, casterID, spellID, sourceName string, tmpl RiderTemplate) Combatant {
	target.SaveRiders = saves.Register(target.SaveRiders, saves.Rider{
		ID:          uuid.NewString(),
		SpellID:     spellID,
		CasterID:    casterID,
		SourceName:  sourceName,
		Dice:        tmpl.Dice,
		Flat:        tmpl.Flat,
		Scope:       tmpl.Scope,
		Duration:    tmpl.Duration,
		AppliedTurn: e.turn,
	})
	return target
}

// ExpireRiders retires every all_saves rider anchored to endingID whose
// duration has run out, across all combatants.
func (e *Engine) ExpireRiders(endingID string, turn int) {
	for _, c := range e.roster.All() {
		if len(c.SaveRiders) == 0 {
			continue
		}
		kept, expired := saves.Expire(c.SaveRiders, endingID, turn)
		c.SaveRiders = kept
		if len(expired) == 0 {
			// Only elapsed counters moved; nothing to narrate.
			e.roster.Put(c)
			continue
		}
		for _, r := range expired {
			e.Logf(event.LogStatus, c.ID, "%s is no longer affected by %s", c.Name, r.SourceName)
		}
		e.Commit(c)
	}
}

// SweepRound runs the round-rollover expirations for round: first_per_turn
// membership is cleared; zones, movement debuffs and reactive triggers with
// ExpiresAtRound <= round are removed; environmental tiles tick down.
func (e *Engine) SweepRound(round int) {
	e.zones.ResetTurnTracking()
	for _, z := range e.zones.Sweep(round) {
		e.logger.Debug("zone expired", zap.String("zone", z.ID), zap.String("spell", z.SpellID))
	}
	e.debuffs = zone.SweepDebuffs(e.debuffs, round)
	kept := make([]ReactiveTrigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		if t.ExpiresAtRound > round {
			kept = append(kept, t)
		}
	}
	e.triggers = kept

	board, changes := e.board.TickEnvironment()
	if len(changes) == 0 {
		return
	}
	e.board = board
	for _, ch := range changes {
		if ch.Removed {
			e.Logf(event.LogSystem, "", "The %s at %s fades", ch.Effect.Type, ch.Position)
		}
	}
	e.obs.MapUpdated(board)
}

// DropConcentration ends c's concentration and removes everything its spell
// created: zones, riders and statuses on every combatant, debuffs and triggers.
func (e *Engine) DropConcentration(c Combatant, reason string) Combatant {
	if c.Concentration == nil {
		return c
	}
	spell := c.Concentration.SpellID
	name := c.Concentration.SpellName
	c.Concentration = nil
	e.zones.RemoveBySpell(spell)

	debuffs := make([]zone.MovementDebuff, 0, len(e.debuffs))
	for _, d := range e.debuffs {
		if !(d.SpellID == spell && d.CasterID == c.ID) {
			debuffs = append(debuffs, d)
		}
	}
	e.debuffs = debuffs
	triggers := make([]ReactiveTrigger, 0, len(e.triggers))
	for _, t := range e.triggers {
		if !(t.SpellID == spell && t.CasterID == c.ID) {
			triggers = append(triggers, t)
		}
	}
	e.triggers = triggers

	for _, other := range e.roster.All() {
		if other.ID == c.ID {
			continue
		}
		if stripped, changed := stripSpell(other, spell, c.ID); changed {
			e.Commit(stripped)
		}
	}
	c, _ = stripSpell(c, spell, c.ID)
	e.Log(event.LogStatus, fmt.Sprintf("%s loses concentration on %s (%s)", c.Name, name, reason), c.ID, nil,
		map[string]any{"spellId": spell, "reason": reason})
	return c
}

func stripSpell(c Combatant, spellID, casterID string) (Combatant, bool) {
	riders := saves.RemoveBySpell(c.SaveRiders, spellID)
	statuses := c.StatusEffects[:0:0]
	for _, s := range c.StatusEffects {
		if s.SourceID == spellID && s.CasterID == casterID {
			continue
		}
		statuses = append(statuses, s)
	}
	changed := len(riders) != len(c.SaveRiders) || len(statuses) != len(c.StatusEffects)
	c.SaveRiders = riders
	c.StatusEffects = statuses
	return c, changed
}
