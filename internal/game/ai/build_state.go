package ai

import (
	"github.com/cory-johannsen/skirmish/internal/game/combat"
)

// BuildWorldState constructs a WorldState snapshot from the engine's roster
// for the combatant identified by actorID.
//
// Postcondition: returns false when actorID is unknown; otherwise
// ws.Actor.UID == actorID and all combatants are represented.
func BuildWorldState(eng *combat.Engine, actorID string) (*WorldState, bool) {
	self, ok := eng.Get(actorID)
	if !ok {
		return nil, false
	}
	ws := &WorldState{
		Actor: &ActorState{
			UID:          self.ID,
			Name:         self.Name,
			Team:         self.Team,
			HP:           self.CurrentHP,
			MaxHP:        self.MaxHP,
			Position:     self.Position,
			MovementLeft: self.Economy.Movement.Remaining(),
			Usable:       usableAbilities(self),
		},
		Board:    eng.Board(),
		CellFeet: eng.CellFeet(),
	}
	for _, c := range eng.Roster().All() {
		ws.Combatants = append(ws.Combatants, &CombatantState{
			UID:      c.ID,
			Name:     c.Name,
			Team:     c.Team,
			HP:       c.CurrentHP,
			MaxHP:    c.MaxHP,
			AC:       c.EffectiveAC(),
			Position: c.Position,
			Dead:     !c.Alive(),
		})
	}
	return ws, true
}

// usableAbilities returns c's abilities that are off cooldown and
// affordable with c's remaining economy.
func usableAbilities(c combat.Combatant) []combat.Ability {
	var out []combat.Ability
	for _, ab := range c.Abilities {
		if c.Cooldown(ab.ID) > 0 || !combat.CanAfford(c, ab.Cost) {
			continue
		}
		out = append(out, ab)
	}
	return out
}
