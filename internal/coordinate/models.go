package coordinate

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate identifies one cell of the galaxy grid.
type Coordinate struct {
	Galaxy   int `json:"galaxy" yaml:"galaxy"`
	System   int `json:"system" yaml:"system"`
	Position int `json:"position" yaml:"position"`
}

func New(galaxy, system, position int) Coordinate {
	return Coordinate{Galaxy: galaxy, System: system, Position: position}
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d:%d:%d", c.Galaxy, c.System, c.Position)
}

// Parse reads a coordinate in the "galaxy:system:position" form produced by String.
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("coordinate %q: expected galaxy:system:position", s)
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
		}
		values[i] = v
	}

	return New(values[0], values[1], values[2]), nil
}

// Bounds is the configured size of the grid. Every component of a valid
// coordinate lies in [1, max].
type Bounds struct {
	Galaxies  int `json:"galaxies"`
	Systems   int `json:"systems"`
	Positions int `json:"positions"`
}

func DefaultBounds() Bounds {
	return Bounds{Galaxies: 9, Systems: 499, Positions: 15}
}

func (b Bounds) Validate() error {
	if b.Galaxies < 1 {
		return fmt.Errorf("galaxy count must be positive, got %d", b.Galaxies)
	}
	if b.Systems < 1 {
		return fmt.Errorf("systems per galaxy must be positive, got %d", b.Systems)
	}
	if b.Positions < 1 {
		return fmt.Errorf("positions per system must be positive, got %d", b.Positions)
	}
	return nil
}

func (b Bounds) Contains(c Coordinate) bool {
	return inRange(c.Galaxy, b.Galaxies) &&
		inRange(c.System, b.Systems) &&
		inRange(c.Position, b.Positions)
}

// ContainsSystem reports whether the (galaxy, system) pair is on the grid.
func (b Bounds) ContainsSystem(galaxy, system int) bool {
	return inRange(galaxy, b.Galaxies) && inRange(system, b.Systems)
}

func inRange(v, max int) bool {
	return v >= 1 && v <= max
}
