// Package occupancy builds read-only snapshots of which grid coordinates are
// taken. A snapshot may be stale; the colony store stays authoritative.
package occupancy

import (
	"time"

	"colony-server/internal/colony"
	"colony-server/internal/coordinate"
)

// Entry describes the occupant of a coordinate.
type Entry struct {
	Owner    colony.Owner `json:"owner,omitempty"`
	Label    string       `json:"label"`
	Reserved bool         `json:"reserved,omitempty"`
}

// Slot is one position of a system as presented to clients.
type Slot struct {
	Position int    `json:"position"`
	Occupied bool   `json:"occupied"`
	Entry    *Entry `json:"occupant,omitempty"`
}

// Index maps coordinates to their occupants. The zero-loaded index returned
// with a snapshot error carries no information and must not be read as an
// empty grid.
type Index struct {
	bounds  coordinate.Bounds
	entries map[coordinate.Coordinate]Entry
	loaded  bool
	builtAt time.Time
}

// Unloaded returns an index that reports nothing and Loaded() == false.
func Unloaded(bounds coordinate.Bounds) *Index {
	return &Index{
		bounds:  bounds,
		entries: map[coordinate.Coordinate]Entry{},
	}
}

func (i *Index) Loaded() bool {
	return i != nil && i.loaded
}

func (i *Index) BuiltAt() time.Time {
	return i.builtAt
}

func (i *Index) Bounds() coordinate.Bounds {
	return i.bounds
}

func (i *Index) Len() int {
	return len(i.entries)
}

func (i *Index) Lookup(c coordinate.Coordinate) (Entry, bool) {
	if i == nil {
		return Entry{}, false
	}
	e, ok := i.entries[c]
	return e, ok
}

func (i *Index) Occupied(c coordinate.Coordinate) bool {
	_, ok := i.Lookup(c)
	return ok
}

func (i *Index) IsReserved(c coordinate.Coordinate) bool {
	e, ok := i.Lookup(c)
	return ok && e.Reserved
}

// System lists every position of (galaxy, system) in order. It returns nil
// when the pair is off the grid.
func (i *Index) System(galaxy, system int) []Slot {
	if !i.bounds.ContainsSystem(galaxy, system) {
		return nil
	}
	slots := make([]Slot, i.bounds.Positions)
	for p := 1; p <= i.bounds.Positions; p++ {
		slot := Slot{Position: p}
		if e, ok := i.entries[coordinate.New(galaxy, system, p)]; ok {
			e := e
			slot.Occupied = true
			slot.Entry = &e
		}
		slots[p-1] = slot
	}
	return slots
}

// FirstFree returns the lowest free position in (galaxy, system).
func (i *Index) FirstFree(galaxy, system int) (coordinate.Coordinate, bool) {
	if !i.bounds.ContainsSystem(galaxy, system) {
		return coordinate.Coordinate{}, false
	}
	for p := 1; p <= i.bounds.Positions; p++ {
		c := coordinate.New(galaxy, system, p)
		if !i.Occupied(c) {
			return c, true
		}
	}
	return coordinate.Coordinate{}, false
}

// Suggest finds a free coordinate starting at near's system and walking
// forward through the grid, wrapping once.
func (i *Index) Suggest(near coordinate.Coordinate) (coordinate.Coordinate, bool) {
	if !i.Loaded() {
		return coordinate.Coordinate{}, false
	}
	g, s := near.Galaxy, near.System
	if !i.bounds.ContainsSystem(g, s) {
		g, s = 1, 1
	}

	total := i.bounds.Galaxies * i.bounds.Systems
	for n := 0; n < total; n++ {
		if c, ok := i.FirstFree(g, s); ok {
			return c, true
		}
		s++
		if s > i.bounds.Systems {
			s = 1
			g++
			if g > i.bounds.Galaxies {
				g = 1
			}
		}
	}
	return coordinate.Coordinate{}, false
}

// With returns a copy of the index that also records claim. The receiver is
// left untouched.
func (i *Index) With(claim colony.Claim) *Index {
	next := &Index{
		bounds:  i.bounds,
		entries: make(map[coordinate.Coordinate]Entry, len(i.entries)+1),
		loaded:  i.loaded,
		builtAt: i.builtAt,
	}
	for c, e := range i.entries {
		next.entries[c] = e
	}
	if existing, ok := next.entries[claim.Coordinate]; ok && existing.Reserved {
		return next
	}
	next.entries[claim.Coordinate] = Entry{Owner: claim.Owner, Label: claim.Label}
	return next
}
