package combat

import (
	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/economy"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// UnarmedStrike is the strike used when a combatant has no melee weapon and no
// unarmed_strike ability: 1 bludgeoning damage plus Strength.
func UnarmedStrike() Ability {
	return Ability{
		ID:         UnarmedStrikeID,
		Name:       "Unarmed Strike",
		Kind:       KindAttack,
		Cost:       economy.Cost{Type: economy.CostAction},
		Range:      1,
		Weapon:     &Weapon{},
		Proficient: true,
		AttackRoll: true,
		Effects:    []effect.Effect{effect.Damage{Flat: 1, DamageType: "bludgeoning"}},
	}
}

// OpportunityWeapon returns the ability c attacks with when an enemy leaves its
// reach: its first melee or reach weapon, else its unarmed_strike ability,
// else UnarmedStrike.
func OpportunityWeapon(c Combatant) Ability {
	for _, ab := range c.Abilities {
		if ab.IsMeleeWeapon() {
			return ab
		}
	}
	if ab, ok := c.Ability(UnarmedStrikeID); ok {
		return ab
	}
	return UnarmedStrike()
}

// Reach returns how many cells c threatens: the longest melee weapon range, at least 1.
func Reach(c Combatant) int {
	reach := 1
	for _, ab := range c.Abilities {
		if ab.IsMeleeWeapon() {
			reach = max(reach, ab.Range)
		}
	}
	return reach
}

// OpportunityAttacks resolves an attack from every living enemy of mover that
// still has its reaction, is not forfeiting turns, and threatened from but not
// to. Each attacker spends its reaction. Returns the updated mover.
func (e *Engine) OpportunityAttacks(mover Combatant, from, to grid.Position) Combatant {
	for _, snap := range e.roster.Alive() {
		if !mover.Alive() {
			break
		}
		if snap.ID == mover.ID || snap.Team == mover.Team {
			continue
		}
		// An earlier attack may have ended the mover's concentration and
		// stripped its spell effects from this combatant.
		other, ok := e.roster.Get(snap.ID)
		if !ok || !other.Alive() {
			continue
		}
		if !other.Economy.Reaction.Available() || condition.SkipsTurn(other.StatusEffects) {
			continue
		}
		reach := Reach(other)
		if grid.Chebyshev(other.Position, from) > reach || grid.Chebyshev(other.Position, to) <= reach {
			continue
		}
		weapon := OpportunityWeapon(other)
		other.Economy = economy.UseReaction(other.Economy)
		e.Commit(other)
		e.bus.Publish(event.UnitAttack{AttackerID: other.ID, TargetID: mover.ID, AbilityID: weapon.ID, Reaction: true})
		e.Logf(event.LogAction, other.ID, "%s makes an opportunity attack against %s", other.Name, mover.Name)
		mover, _ = e.Attack(other, mover, weapon, dice.Straight)
	}
	return mover
}
