package combat

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/condition"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/event"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// AttackResult holds the outcome of a single attack roll.
type AttackResult struct {
	AttackerID string
	TargetID   string
	AbilityID  string
	// Natural is the kept d20.
	Natural  int
	Total    int
	TargetAC int
	Hit      bool
	Critical bool
	// Damage is the rolled damage before the target's resistances.
	Damage      int
	DamageType  string
	DamageRolls []int
}

// AttackAbilityMod returns the ability modifier an attack with ab uses:
// finesse weapons take the better of Strength and Dexterity, ranged weapons
// use Dexterity, spells use the casting ability, everything else Strength.
func AttackAbilityMod(c Combatant, ab Ability) int {
	switch {
	case ab.Weapon.Has("finesse"):
		return max(c.Scores.Mod(stats.Strength), c.Scores.Mod(stats.Dexterity))
	case ab.Weapon.Has("ranged"):
		return c.Scores.Mod(stats.Dexterity)
	case ab.Kind == KindSpell:
		casting := c.CastingAbility
		if casting == "" {
			casting = stats.Intelligence
		}
		return c.Scores.Mod(casting)
	default:
		return c.Scores.Mod(stats.Strength)
	}
}

// damageEffect returns the first damage effect of ab.
func damageEffect(ab Ability) (effect.Damage, bool) {
	for _, eff := range ab.Effects {
		if d, ok := eff.(effect.Damage); ok {
			return d, true
		}
	}
	return effect.Damage{}, false
}

// ResolveAttack rolls attacker's attack with ab against target without
// applying any damage.
//
// Attack roll: d20 + ability modifier + proficiency bonus (when proficient)
// + status attack modifiers, against the target's effective AC. A natural 20
// always hits and is critical; a natural 1 always misses. A critical hit
// doubles the damage. Weapon attacks add the ability modifier to damage.
//
// Postcondition: Damage >= 0; Damage == 0 when !Hit.
func (e *Engine) ResolveAttack(attacker, target Combatant, ab Ability, mode dice.Mode) AttackResult {
	mod := AttackAbilityMod(attacker, ab)
	bonus := mod + AttackBonusOf(attacker)
	if ab.Proficient {
		bonus += stats.ProficiencyBonus(attacker.Level)
	}
	d20 := e.roller.D20(mode)
	res := AttackResult{
		AttackerID: attacker.ID,
		TargetID:   target.ID,
		AbilityID:  ab.ID,
		Natural:    d20.Natural,
		Total:      d20.Natural + bonus,
		TargetAC:   target.EffectiveAC(),
	}
	switch {
	case d20.Natural == 20:
		res.Hit, res.Critical = true, true
	case d20.Natural == 1:
		res.Hit = false
	default:
		res.Hit = res.Total >= res.TargetAC
	}
	if !res.Hit {
		return res
	}
	dmg, ok := damageEffect(ab)
	if !ok {
		return res
	}
	res.DamageType = dmg.DamageType
	total := dmg.Flat
	if dmg.Dice != "" {
		rolled, err := e.roller.RollExpr(dmg.Dice)
		if err != nil {
			e.Logf(event.LogSystem, attacker.ID, "%s has unreadable damage dice %q", ab.Name, dmg.Dice)
		} else {
			res.DamageRolls = rolled.Dice
			total += rolled.Total()
		}
	}
	if ab.Weapon != nil {
		total += mod
	}
	if res.Critical {
		total *= 2
	}
	res.Damage = max(total, 0)
	return res
}

// AttackBonusOf returns c's net attack modifier from statuses.
func AttackBonusOf(c Combatant) int {
	return condition.AttackBonus(c.StatusEffects)
}

// Attack resolves and narrates attacker's attack with ab against target and
// applies the damage, returning the updated target.
func (e *Engine) Attack(attacker, target Combatant, ab Ability, mode dice.Mode) (Combatant, AttackResult) {
	res := e.ResolveAttack(attacker, target, ab, mode)
	data := map[string]any{
		"abilityId": ab.ID,
		"natural":   res.Natural,
		"total":     res.Total,
		"ac":        res.TargetAC,
		"hit":       res.Hit,
		"critical":  res.Critical,
	}
	if !res.Hit {
		e.Log(event.LogAction,
			fmt.Sprintf("%s attacks %s with %s and misses (%d vs AC %d)", attacker.Name, target.Name, ab.Name, res.Total, res.TargetAC),
			attacker.ID, []string{target.ID}, data)
		return target, res
	}
	verb := "hits"
	if res.Critical {
		verb = "critically hits"
	}
	e.Log(event.LogAction,
		fmt.Sprintf("%s %s %s with %s (%d vs AC %d)", attacker.Name, verb, target.Name, ab.Name, res.Total, res.TargetAC),
		attacker.ID, []string{target.ID}, data)
	if _, ok := damageEffect(ab); ok {
		target = e.ApplyDamage(target, res.Damage, ab.Name, res.DamageType)
	}
	return target, res
}
