package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/battlemap"
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// CombatantState captures an entity's combat-relevant state at planning time.
type CombatantState struct {
	UID      string
	Name     string
	Team     combat.Team
	HP       int
	MaxHP    int
	AC       int
	Position grid.Position
	Dead     bool
}

// HPPercent returns current HP as a percentage of MaxHP; 0 if MaxHP == 0.
func (c *CombatantState) HPPercent() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP) * 100
}

// ActorState captures the planning combatant's own state, including the
// abilities it can still pay for this turn.
type ActorState struct {
	UID          string
	Name         string
	Team         combat.Team
	HP           int
	MaxHP        int
	Position     grid.Position
	MovementLeft int // feet
	Usable       []combat.Ability
}

// WorldState is the snapshot passed to the HTN planner for one combatant.
//
// Invariant: Actor must not be nil.
type WorldState struct {
	Actor      *ActorState
	Combatants []*CombatantState // all combatants in the encounter, self included
	Board      *battlemap.Map
	CellFeet   int
}

// EnemiesOf returns all living combatants on a different team from the actor.
//
// Postcondition: returned slice contains no dead combatants and no same-team combatants.
func (ws *WorldState) EnemiesOf(uid string) []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && c.UID != uid && c.Team != ws.Actor.Team {
			out = append(out, c)
		}
	}
	return out
}

// HasLivingEnemies returns true when at least one living enemy exists.
//
// Postcondition: equivalent to len(EnemiesOf(uid)) > 0.
func (ws *WorldState) HasLivingEnemies(uid string) bool {
	return len(ws.EnemiesOf(uid)) > 0
}

// NearestEnemy returns the living enemy closest to the actor by grid
// distance, or nil.
//
// Postcondition: nil if no living enemies exist; ties broken by order in Combatants.
func (ws *WorldState) NearestEnemy(uid string) *CombatantState {
	var best *CombatantState
	bestD := 0
	for _, e := range ws.EnemiesOf(uid) {
		d := grid.Chebyshev(ws.Actor.Position, e.Position)
		if best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// WeakestEnemy returns the living enemy with the lowest HP percentage, or nil.
//
// Postcondition: nil if no living enemies exist; ties broken by order in Combatants.
func (ws *WorldState) WeakestEnemy(uid string) *CombatantState {
	return weakest(ws.EnemiesOf(uid))
}

// AlliesOf returns all living combatants on the actor's team (excluding self).
func (ws *WorldState) AlliesOf(uid string) []*CombatantState {
	var out []*CombatantState
	for _, c := range ws.Combatants {
		if !c.Dead && c.UID != uid && c.Team == ws.Actor.Team {
			out = append(out, c)
		}
	}
	return out
}

// WeakestAlly returns the living member of the actor's side, self included,
// with the lowest HP percentage.
func (ws *WorldState) WeakestAlly(uid string) *CombatantState {
	side := ws.AlliesOf(uid)
	if self := ws.find(uid); self != nil && !self.Dead {
		side = append([]*CombatantState{self}, side...)
	}
	return weakest(side)
}

func (ws *WorldState) find(uid string) *CombatantState {
	for _, c := range ws.Combatants {
		if c.UID == uid {
			return c
		}
	}
	return nil
}

func weakest(cs []*CombatantState) *CombatantState {
	if len(cs) == 0 {
		return nil
	}
	w := cs[0]
	for _, c := range cs[1:] {
		if c.HPPercent() < w.HPPercent() {
			w = c
		}
	}
	return w
}

// Occupied reports whether a living combatant other than the actor stands on p.
func (ws *WorldState) Occupied(p grid.Position) bool {
	for _, c := range ws.Combatants {
		if !c.Dead && c.UID != ws.Actor.UID && c.Position == p {
			return true
		}
	}
	return false
}

// ResolveTarget maps a target token to a combatant UID.
//
// Precondition: ws.Actor must not be nil.
// Postcondition: tokens "nearest_enemy", "weakest_enemy", "weakest_ally" and
// "self" are resolved to UIDs; unknown tokens are returned as-is; empty
// string returned if the token resolves to nobody.
func (ws *WorldState) ResolveTarget(token string) string {
	var c *CombatantState
	switch token {
	case "nearest_enemy":
		c = ws.NearestEnemy(ws.Actor.UID)
	case "weakest_enemy":
		c = ws.WeakestEnemy(ws.Actor.UID)
	case "weakest_ally":
		c = ws.WeakestAlly(ws.Actor.UID)
	case "self":
		return ws.Actor.UID
	default:
		return token
	}
	if c == nil {
		return ""
	}
	return c.UID
}
