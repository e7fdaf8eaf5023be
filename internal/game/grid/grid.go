// Package grid provides integer battle-map coordinates and the distance
// metrics the combat rules measure with.
package grid

import (
	"fmt"
	"math"
)

// Position is a cell on the battle map.
type Position struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// String returns "(x,y)".
func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Delta returns (to.X-p.X, to.Y-p.Y).
func (p Position) Delta(to Position) (dx, dy int) {
	return to.X - p.X, to.Y - p.Y
}

// Chebyshev returns max(|dx|,|dy|), the number of king moves between a and b.
//
// Postcondition: Chebyshev(a,b) == Chebyshev(b,a) >= 0.
func Chebyshev(a, b Position) int {
	dx, dy := a.Delta(b)
	return max(abs(dx), abs(dy))
}

// Euclidean returns the straight-line distance between a and b in cells.
func Euclidean(a, b Position) float64 {
	dx, dy := a.Delta(b)
	return math.Sqrt(float64(dx*dx + dy*dy))
}

// StepToward returns the neighbouring cell of from that is one king move
// closer to to. If from == to, from is returned.
func StepToward(from, to Position) Position {
	dx, dy := from.Delta(to)
	return Position{X: from.X + sign(dx), Y: from.Y + sign(dy)}
}

// CellsFromFeet converts a linear distance to whole grid cells, rounding up.
//
// Precondition: cellFeet > 0.
func CellsFromFeet(feet, cellFeet int) int {
	if cellFeet <= 0 {
		panic("grid: CellsFromFeet called with cellFeet <= 0")
	}
	if feet <= 0 {
		return 0
	}
	return (feet + cellFeet - 1) / cellFeet
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
