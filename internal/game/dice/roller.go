package dice

import (
	"cmp"
	"fmt"
	"slices"
)

// sign is -1 for a negated expression, else 1.
func (e Expression) sign() int {
	if e.Negative {
		return -1
	}
	return 1
}

// Average returns the expected total of e, sign included. Keep-highest
// expressions are estimated as if only the kept dice were thrown.
func (e Expression) Average() float64 {
	n := e.Count
	if e.KeepHighest > 0 {
		n = e.KeepHighest
	}
	return float64(e.sign()*n)*float64(e.Sides+1)/2 + float64(e.Modifier)
}

// Roll throws expr against src. Keep-highest expressions sort the throw
// highest first and move the rest to Dropped; a negated expression flips the
// sign of every die it records.
//
// Precondition: src must be non-nil.
// Postcondition: len(result.Dice) is expr.KeepHighest when set, else expr.Count.
func Roll(expr Expression, src Source) (RollResult, error) {
	if expr.Count < 1 || expr.Sides < 2 {
		return RollResult{}, fmt.Errorf("dice: cannot roll %q: %d dice of %d sides", expr.Raw, expr.Count, expr.Sides)
	}
	if expr.KeepHighest < 0 || (expr.KeepHighest > 0 && expr.KeepHighest >= expr.Count) {
		return RollResult{}, fmt.Errorf("dice: cannot keep %d of %d dice in %q", expr.KeepHighest, expr.Count, expr.Raw)
	}

	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = expr.sign() * (src.Intn(expr.Sides) + 1)
	}
	res := RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
	if expr.KeepHighest > 0 {
		// Highest magnitude first, so a negated pool keeps its largest penalty.
		slices.SortFunc(rolled, func(a, b int) int { return cmp.Compare(abs(b), abs(a)) })
		res.Dice = rolled[:expr.KeepHighest:expr.KeepHighest]
		res.Dropped = rolled[expr.KeepHighest:]
	}
	return res, nil
}

// RollExpr parses expr and rolls it using src in a single call.
func RollExpr(expr string, src Source) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return Roll(e, src)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
