package zone

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// globalKey is the membership key for zone-wide Once gating.
const globalKey = "zone-once"

type activeZone struct {
	zone     Zone
	thisTurn map[string]struct{}
	ever     map[string]struct{}
}

// Tracker owns the active zones of one encounter and their gating state.
// It is not safe for concurrent use; the caller must serialise access.
type Tracker struct {
	cellFeet int
	bus      *event.Bus
	logger   *zap.Logger
	zones    []*activeZone
}

// NewTracker creates an empty Tracker.
//
// Precondition: cellFeet > 0; bus must be non-nil. A nil logger is replaced with a no-op logger.
func NewTracker(cellFeet int, bus *event.Bus, logger *zap.Logger) *Tracker {
	if cellFeet <= 0 {
		panic("zone: NewTracker called with cellFeet <= 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{cellFeet: cellFeet, bus: bus, logger: logger}
}

// Add registers z, assigning an ID when it has none, and returns the stored zone.
func (t *Tracker) Add(z Zone) Zone {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	t.zones = append(t.zones, &activeZone{
		zone:     z,
		thisTurn: make(map[string]struct{}),
		ever:     make(map[string]struct{}),
	})
	t.logger.Debug("zone added",
		zap.String("zone", z.ID),
		zap.String("spell", z.SpellID),
		zap.Stringer("origin", z.Origin),
		zap.Int("expires_at_round", z.ExpiresAtRound),
	)
	return z
}

// Remove drops the zone with id; missing ids are a no-op.
func (t *Tracker) Remove(id string) {
	for i, az := range t.zones {
		if az.zone.ID == id {
			t.zones = append(t.zones[:i:i], t.zones[i+1:]...)
			return
		}
	}
}

// RemoveBySpell drops every zone created by spellID and returns how many were removed.
func (t *Tracker) RemoveBySpell(spellID string) int {
	kept := t.zones[:0:0]
	removed := 0
	for _, az := range t.zones {
		if az.zone.SpellID == spellID {
			removed++
			continue
		}
		kept = append(kept, az)
	}
	t.zones = kept
	return removed
}

// Zones returns the active zones in insertion order.
func (t *Tracker) Zones() []Zone {
	out := make([]Zone, 0, len(t.zones))
	for _, az := range t.zones {
		out = append(out, az.zone)
	}
	return out
}

// Contains reports whether p is inside z.
func (t *Tracker) Contains(z Zone, p grid.Position) bool {
	return Contains(z.Origin, z.Area, p, t.cellFeet)
}

// HandleMovement evaluates a move of s from oldPos to newPos. Exit triggers
// for every zone are evaluated first, then entry triggers, then move-within
// triggers. A move with no displacement triggers nothing. Every entry and exit
// publishes a bus event even when the zone has no matching effect.
//
// Postcondition: results are ordered exit, entry, move-within, zones in insertion order.
func (t *Tracker) HandleMovement(s Subject, newPos, oldPos grid.Position, round int) []Result {
	if newPos == oldPos {
		return nil
	}
	type crossing struct {
		az        *activeZone
		was, isIn bool
	}
	crossings := make([]crossing, 0, len(t.zones))
	for _, az := range t.zones {
		crossings = append(crossings, crossing{
			az:   az,
			was:  t.Contains(az.zone, oldPos),
			isIn: t.Contains(az.zone, newPos),
		})
	}

	var results []Result
	for _, c := range crossings {
		if c.was && !c.isIn {
			t.bus.Publish(event.UnitExitArea{UnitID: s.ID, ZoneID: c.az.zone.ID, SpellID: c.az.zone.SpellID, Position: newPos})
			results = t.fire(results, c.az, s, OnExit, round)
		}
	}
	for _, c := range crossings {
		if !c.was && c.isIn {
			t.bus.Publish(event.UnitEnterArea{UnitID: s.ID, ZoneID: c.az.zone.ID, SpellID: c.az.zone.SpellID, Position: newPos})
			results = t.fire(results, c.az, s, OnEnter, round)
		}
	}
	for _, c := range crossings {
		if c.was && c.isIn {
			results = t.fire(results, c.az, s, OnMoveIn, round)
		}
	}
	return results
}

// ProcessEndTurn evaluates on_end_turn_in_area effects of every zone that
// currently contains s.
func (t *Tracker) ProcessEndTurn(s Subject, round int) []Result {
	var results []Result
	for _, az := range t.zones {
		if t.Contains(az.zone, s.Position) {
			results = t.fire(results, az, s, OnEndTurnIn, round)
		}
	}
	return results
}

// ResetTurnTracking clears first_per_turn membership. Once and
// once_per_creature membership is never cleared.
func (t *Tracker) ResetTurnTracking() {
	for _, az := range t.zones {
		clear(az.thisTurn)
	}
}

// Sweep removes zones whose ExpiresAtRound is set and <= round, returning them.
func (t *Tracker) Sweep(round int) []Zone {
	var expired []Zone
	kept := t.zones[:0:0]
	for _, az := range t.zones {
		if az.zone.ExpiresAtRound > 0 && az.zone.ExpiresAtRound <= round {
			expired = append(expired, az.zone)
			continue
		}
		kept = append(kept, az)
	}
	t.zones = kept
	return expired
}

// fire appends the result of trigger on az for s, if any effect passes its
// filter and frequency gate. Gates are checked against the state before this
// trigger and marked afterwards, so sibling effects of one trigger fire together.
func (t *Tracker) fire(results []Result, az *activeZone, s Subject, trigger Trigger, round int) []Result {
	var fired []Effect
	for _, e := range az.zone.Effects {
		if e.Trigger != trigger || !e.Filter.Matches(s) {
			continue
		}
		if !az.allows(e.Frequency, s.ID) {
			continue
		}
		fired = append(fired, e)
	}
	if len(fired) == 0 {
		return results
	}

	res := Result{
		ZoneID:   az.zone.ID,
		SpellID:  az.zone.SpellID,
		CasterID: az.zone.CasterID,
		Trigger:  trigger,
		DC:       az.zone.DC,
	}
	for _, e := range fired {
		az.mark(e.Frequency, s.ID)
		if !effect.Materialized(e.Effect) {
			t.logger.Debug("zone effect kind not applied by triggers",
				zap.String("zone", az.zone.ID),
				zap.String("kind", string(e.Effect.Kind())),
			)
			continue
		}
		res.Effects = append(res.Effects, e.Effect)
	}
	t.logger.Debug("zone trigger",
		zap.String("zone", az.zone.ID),
		zap.String("creature", s.ID),
		zap.String("trigger", string(trigger)),
		zap.Int("round", round),
		zap.Int("effects", len(res.Effects)),
	)
	if len(res.Effects) == 0 {
		return results
	}
	return append(results, res)
}

func (az *activeZone) allows(f Frequency, creatureID string) bool {
	switch f {
	case FirstPerTurn:
		_, seen := az.thisTurn[creatureID]
		return !seen
	case OncePerCreature:
		_, seen := az.ever[creatureID]
		return !seen
	case Once:
		_, seen := az.ever[globalKey]
		return !seen
	default:
		return true
	}
}

func (az *activeZone) mark(f Frequency, creatureID string) {
	switch f {
	case FirstPerTurn:
		az.thisTurn[creatureID] = struct{}{}
	case OncePerCreature:
		az.ever[creatureID] = struct{}{}
	case Once:
		az.ever[globalKey] = struct{}{}
	}
}
