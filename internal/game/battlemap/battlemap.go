// Package battlemap holds the tile grid combat takes place on, including
// timed environmental effects laid over tiles.
//
// A Map is treated as immutable: every With* and Tick method returns a new Map
// and leaves the receiver untouched.
package battlemap

import (
	"maps"
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/grid"
)

// DifficultTerrain is the environment type that raises movement cost.
const DifficultTerrain = "difficult_terrain"

// EnvironmentalEffect is a timed hazard or terrain change on one tile.
type EnvironmentalEffect struct {
	ID            string `yaml:"id"`
	Type          string `yaml:"type"` // fire, poison, difficult_terrain, web, ...
	Duration      int    `yaml:"duration"`
	DamagePerTurn int    `yaml:"damage_per_turn"`
	DamageType    string `yaml:"damage_type"`
	Condition     string `yaml:"condition"`
	SourceID      string `yaml:"source"`
	CasterID      string `yaml:"caster"`
}

// Tile is one map cell.
type Tile struct {
	Position       grid.Position
	Terrain        string
	MovementCost   int
	BlocksMovement bool
	Environment    *EnvironmentalEffect
}

// Map is a Width x Height tile grid. Tiles not explicitly set are open ground
// with movement cost 1.
type Map struct {
	Width  int
	Height int
	tiles  map[grid.Position]Tile
}

// New returns an empty open map.
//
// Precondition: width > 0 and height > 0.
func New(width, height int) *Map {
	if width <= 0 || height <= 0 {
		panic("battlemap: New called with non-positive dimensions")
	}
	return &Map{Width: width, Height: height, tiles: make(map[grid.Position]Tile)}
}

// InBounds reports whether p lies on the map.
func (m *Map) InBounds(p grid.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < m.Width && p.Y < m.Height
}

// Tile returns the tile at p.
func (m *Map) Tile(p grid.Position) Tile {
	if t, ok := m.tiles[p]; ok {
		return t
	}
	return Tile{Position: p, Terrain: "floor", MovementCost: 1}
}

// Passable reports whether a creature may end movement on p.
func (m *Map) Passable(p grid.Position) bool {
	return m.InBounds(p) && !m.Tile(p).BlocksMovement
}

// MoveCost returns the feet of movement needed to enter p.
func (m *Map) MoveCost(p grid.Position, cellFeet int) int {
	return max(m.Tile(p).MovementCost, 1) * cellFeet
}

// WithTile returns a copy of m with t stored at t.Position.
func (m *Map) WithTile(t Tile) *Map {
	if t.MovementCost <= 0 {
		t.MovementCost = 1
	}
	out := m.clone()
	out.tiles[t.Position] = t
	return out
}

// WithEnvironment lays env over every in-bounds tile within radius (Chebyshev)
// of center. Difficult terrain also doubles the tiles' movement cost.
func (m *Map) WithEnvironment(center grid.Position, radius int, env EnvironmentalEffect) *Map {
	out := m.clone()
	for x := center.X - radius; x <= center.X+radius; x++ {
		for y := center.Y - radius; y <= center.Y+radius; y++ {
			p := grid.Position{X: x, Y: y}
			if !out.InBounds(p) {
				continue
			}
			t := out.Tile(p)
			e := env
			t.Environment = &e
			if env.Type == DifficultTerrain {
				t.MovementCost = 2
			}
			out.tiles[p] = t
		}
	}
	return out
}

// Change records one tile touched by TickEnvironment.
type Change struct {
	Position grid.Position
	Effect   EnvironmentalEffect
	Removed  bool
}

// TickEnvironment decrements every environmental duration by one and removes
// effects that reach zero. Removing difficult terrain resets movement cost to 1.
//
// Postcondition: changes is sorted by position; the receiver is unchanged.
func (m *Map) TickEnvironment() (*Map, []Change) {
	out := m.clone()
	var changes []Change
	for p, t := range out.tiles {
		if t.Environment == nil {
			continue
		}
		env := *t.Environment
		env.Duration--
		if env.Duration <= 0 {
			if env.Type == DifficultTerrain {
				t.MovementCost = 1
			}
			t.Environment = nil
			changes = append(changes, Change{Position: p, Effect: env, Removed: true})
		} else {
			t.Environment = &env
			changes = append(changes, Change{Position: p, Effect: env})
		}
		out.tiles[p] = t
	}
	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i].Position, changes[j].Position
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out, changes
}

func (m *Map) clone() *Map {
	return &Map{Width: m.Width, Height: m.Height, tiles: maps.Clone(m.tiles)}
}
