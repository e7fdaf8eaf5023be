package zone

import "github.com/cory-johannsen/skirmish/internal/game/grid"

// Shape is an area-of-effect footprint.
type Shape string

const (
	Cube   Shape = "cube"
	Square Shape = "square"
	Sphere Shape = "sphere"
	Circle Shape = "circle"
	Line   Shape = "line"
	Cone   Shape = "cone"
)

// Direction orients a line or cone. Empty means symmetric along the x axis.
type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// Area is a shape and its linear size in feet.
type Area struct {
	Shape     Shape     `yaml:"shape"`
	Size      int       `yaml:"size"`
	Direction Direction `yaml:"direction"`
}

// Contains reports whether p lies inside area anchored at origin. The size is
// converted to cells by ceiling division by cellFeet.
//
//   - cube, square and unknown shapes: max(|dx|,|dy|) < cells
//   - sphere, circle: Euclidean distance <= cells
//   - line: 0 <= forward <= cells on the axis, no lateral offset
//   - cone: 0 <= forward <= cells and |lateral| <= forward
//
// Without a Direction, line and cone measure |dx| as forward and dy as lateral.
//
// Precondition: cellFeet > 0.
func Contains(origin grid.Position, area Area, p grid.Position, cellFeet int) bool {
	cells := grid.CellsFromFeet(area.Size, cellFeet)
	dx, dy := origin.Delta(p)
	switch area.Shape {
	case Sphere, Circle:
		return grid.Euclidean(origin, p) <= float64(cells)
	case Line:
		fwd, lat := orient(dx, dy, area.Direction)
		return fwd >= 0 && fwd <= cells && lat == 0
	case Cone:
		fwd, lat := orient(dx, dy, area.Direction)
		return fwd >= 0 && fwd <= cells && abs(lat) <= fwd
	default:
		return grid.Chebyshev(origin, p) < cells
	}
}

// orient maps a delta into (forward, lateral) for direction d.
func orient(dx, dy int, d Direction) (fwd, lat int) {
	switch d {
	case East:
		return dx, dy
	case West:
		return -dx, dy
	case North:
		return -dy, dx
	case South:
		return dy, dx
	default:
		return abs(dx), dy
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
