// Package saves rolls saving throws and manages save-penalty riders.
//
// A save is d20 (twice under advantage or disadvantage, keeping the better or
// worse die) + ability modifier + proficiency + every signed modifier, compared
// against a DC. A natural 20 always succeeds and a natural 1 always fails.
package saves

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/stats"
)

// Modifier is a signed bonus or penalty folded into one save. Dice carries its
// own sign ("-1d4"); Flat is added as given.
type Modifier struct {
	Source string
	Dice   string
	Flat   int
}

// Request is everything needed to roll one save.
type Request struct {
	Ability     stats.Ability
	AbilityMod  int
	Proficiency int // 0 when not proficient
	DC          int
	Modifiers   []Modifier
	Mode        dice.Mode
}

// Result is the audited outcome of a save.
type Result struct {
	Ability       stats.Ability
	DC            int
	D20           dice.D20Result
	AbilityMod    int
	Proficiency   int
	ModifierTotal int
	ModifierRolls []dice.RollResult
	Skipped       []string // modifier dice that failed to parse
	Total         int
	Success       bool
}

// Natural20 reports an automatic success.
func (r Result) Natural20() bool { return r.D20.Natural == 20 }

// Natural1 reports an automatic failure.
func (r Result) Natural1() bool { return r.D20.Natural == 1 }

// Roll resolves req with roller.
//
// Precondition: roller must be non-nil.
// Postcondition: Total == D20.Natural + AbilityMod + Proficiency + ModifierTotal;
// Success is true on a natural 20, false on a natural 1, else Total >= DC.
func Roll(roller *dice.Roller, req Request) Result {
	res := Result{
		Ability:     req.Ability,
		DC:          req.DC,
		D20:         roller.D20(req.Mode),
		AbilityMod:  req.AbilityMod,
		Proficiency: req.Proficiency,
	}
	for _, m := range req.Modifiers {
		res.ModifierTotal += m.Flat
		if m.Dice == "" {
			continue
		}
		rolled, err := roller.RollExpr(m.Dice)
		if err != nil {
			res.Skipped = append(res.Skipped, m.Dice)
			continue
		}
		res.ModifierRolls = append(res.ModifierRolls, rolled)
		res.ModifierTotal += rolled.Total()
	}
	res.Total = res.D20.Natural + res.AbilityMod + res.Proficiency + res.ModifierTotal
	switch {
	case res.Natural20():
		res.Success = true
	case res.Natural1():
		res.Success = false
	default:
		res.Success = res.Total >= res.DC
	}
	return res
}

// Describe renders the roll for narration, e.g.
// "Wisdom save 14 (d20 12, +1, -3 riders) vs DC 15: failure".
func (r Result) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s save %d (d20 %d", r.Ability.Title(), r.Total, r.D20.Natural)
	if r.D20.Mode != dice.Straight {
		fmt.Fprintf(&b, " with %s %v", r.D20.Mode, r.D20.Rolls)
	}
	if mod := r.AbilityMod + r.Proficiency; mod != 0 {
		fmt.Fprintf(&b, ", %+d", mod)
	}
	if r.ModifierTotal != 0 {
		fmt.Fprintf(&b, ", %+d modifiers", r.ModifierTotal)
	}
	outcome := "failure"
	if r.Success {
		outcome = "success"
	}
	fmt.Fprintf(&b, ") vs DC %d: %s", r.DC, outcome)
	return b.String()
}

// SpellDC returns 8 + proficiency bonus + casting ability modifier.
func SpellDC(level, castingScore int) int {
	return 8 + stats.ProficiencyBonus(level) + stats.Modifier(castingScore)
}

// Outcome is what a successful save does to a save-gated effect.
type Outcome string

const (
	Half    Outcome = "half"
	Negates Outcome = "negates"
	None    Outcome = "none"
)

// ScaleDamage applies outcome to damage after a save.
//
// Postcondition: a failed save always returns damage unchanged; success
// returns floor(damage/2) for Half, 0 for Negates, damage otherwise.
func ScaleDamage(damage int, outcome Outcome, succeeded bool) int {
	if !succeeded {
		return damage
	}
	switch outcome {
	case Half:
		return damage / 2
	case Negates:
		return 0
	default:
		return damage
	}
}
