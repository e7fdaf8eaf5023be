// Package dice rolls the expressions behind attacks, damage, healing, saves
// and save riders, and the d20 tests that decide them.
package dice

import (
	"fmt"
	"strings"
)

// Source is the randomness provider every roll draws from. Engines take one
// per match so a seeded source replays a whole fight.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// RollResult is one evaluated expression, kept for narration and save audits.
//
// Dice holds the kept dice carrying the expression's sign, so a bane rider
// "-1d4" that shows 3 records [-3]. Dropped holds the dice a keep-highest
// expression discarded; they never count toward the total.
//
// Postcondition: Total() == DiceTotal() + Modifier.
type RollResult struct {
	Expression string
	Dice       []int
	Dropped    []int
	Modifier   int
}

// DiceTotal sums the kept dice without the modifier.
func (r RollResult) DiceTotal() int {
	sum := 0
	for _, d := range r.Dice {
		sum += d
	}
	return sum
}

// Total returns the kept dice plus the modifier.
func (r RollResult) Total() int {
	return r.DiceTotal() + r.Modifier
}

// String renders the roll for the combat log:
//
//	"2d6+3 → [4 5] +3 = 12"
//	"-1d4 → [-3] +0 = -3"
//	"4d6kh3 → [6 5 4] dropped [1] +0 = 15"
//
// Precondition: r.Expression is non-empty.
func (r RollResult) String() string {
	if r.Expression == "" {
		panic("dice: RollResult.String called without an expression")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s → %v", r.Expression, r.Dice)
	if len(r.Dropped) > 0 {
		fmt.Fprintf(&b, " dropped %v", r.Dropped)
	}
	fmt.Fprintf(&b, " %+d = %d", r.Modifier, r.Total())
	return b.String()
}
