/*
Copyright © 2026 the mbmflex authors.
This file is part of mbmflex.

mbmflex is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

mbmflex is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with mbmflex.  If not, see <http://www.gnu.org/licenses/>.
*/

package multiroom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Side is one of the six directions an Aperture or building face can have.
// Only the four cardinal sides are valid transport-path endpoints (§3).
type Side int

const (
	Unknown Side = iota
	Front
	Back
	Left
	Right
	Upward
	Downward
)

func (s Side) String() string {
	switch s {
	case Front:
		return "Front"
	case Back:
		return "Back"
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Upward:
		return "Upward"
	case Downward:
		return "Downward"
	default:
		return "Unknown"
	}
}

// ParseSide parses a Side's configuration name, failing with
// ErrBadAperture on anything unrecognized.
func ParseSide(name string) (Side, error) {
	switch name {
	case "Front":
		return Front, nil
	case "Back":
		return Back, nil
	case "Left":
		return Left, nil
	case "Right":
		return Right, nil
	case "Upward":
		return Upward, nil
	case "Downward":
		return Downward, nil
	default:
		return Unknown, fmt.Errorf("%w: unrecognized side %q", ErrBadAperture, name)
	}
}

// IsCardinal reports whether s is one of the four horizontal sides that
// can act as a transport-path endpoint.
func (s Side) IsCardinal() bool {
	return s == Front || s == Back || s == Left || s == Right
}

// CardinalSides lists the four valid path endpoints, in a fixed order
// used to deduplicate unordered side pairs (§4.3).
var CardinalSides = []Side{Front, Back, Left, Right}

// Composition is a Room's surface-material makeup, as percentages that
// must sum to 100.
type Composition struct {
	Soft, Paint, Wood, Metal, Concrete, Paper, Lino, Plastic, Glass, Human, Other float64
}

// CompositionSumTolerance bounds how far a Composition's percentages may
// drift from summing to exactly 100 (§4.2).
const CompositionSumTolerance = 1e-6

func (c Composition) values() []float64 {
	return []float64{c.Soft, c.Paint, c.Wood, c.Metal, c.Concrete, c.Paper, c.Lino, c.Plastic, c.Glass, c.Human, c.Other}
}

// Sum returns the total of all material percentages.
func (c Composition) Sum() float64 {
	return floats.Sum(c.values())
}

// Validate checks that every percentage lies in [0, 100] and that they
// sum to 100 within CompositionSumTolerance.
func (c Composition) Validate() error {
	for _, v := range c.values() {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: percentage %g outside [0, 100]", ErrCompositionSum, v)
		}
	}
	if math.Abs(c.Sum()-100) > CompositionSumTolerance {
		return fmt.Errorf("%w: sum=%g", ErrCompositionSum, c.Sum())
	}
	return nil
}

// SurfaceAreaByMaterial distributes a room's total internal surface area
// across its composition, in square metres per material.
func (c Composition) SurfaceAreaByMaterial(totalM2 float64) map[string]float64 {
	return map[string]float64{
		"soft":     totalM2 * c.Soft / 100,
		"paint":    totalM2 * c.Paint / 100,
		"wood":     totalM2 * c.Wood / 100,
		"metal":    totalM2 * c.Metal / 100,
		"concrete": totalM2 * c.Concrete / 100,
		"paper":    totalM2 * c.Paper / 100,
		"lino":     totalM2 * c.Lino / 100,
		"plastic":  totalM2 * c.Plastic / 100,
		"glass":    totalM2 * c.Glass / 100,
		"human":    totalM2 * c.Human / 100,
		"other":    totalM2 * c.Other / 100,
	}
}

// Room is a single well-mixed reactor in the building. Its volume,
// surface area, composition, and tags are fixed for the run; its ambient
// series and emission schedule must cover the simulation horizon.
type Room struct {
	ID            string
	Index         int // the room's identity; set by NewGraph
	VolumeM3      float64
	SurfaceAreaM2 float64
	Composition   Composition
	LightType     string
	GlassType     string

	Temperature   *TimeSeries // K
	RelHumidity   *TimeSeries // %
	AirChangeRate *TimeSeries // s^-1, air-change-with-outdoor-leakage
	LightSwitch   *TimeSeries // step, 0/1
	AdultCount    *TimeSeries // step
	ChildCount    *TimeSeries // step

	Emissions map[string]*TimeBracketedValue // species -> bracketed emission schedule
}

// Validate checks the Room's static invariants: positive volume,
// non-negative area, and a valid composition.
func (r *Room) Validate() error {
	if r.VolumeM3 <= 0 {
		return fmt.Errorf("%w: room %q has non-positive volume %g", ErrBadRoom, r.ID, r.VolumeM3)
	}
	if r.SurfaceAreaM2 < 0 {
		return fmt.Errorf("%w: room %q has negative surface area %g", ErrBadRoom, r.ID, r.SurfaceAreaM2)
	}
	return r.Composition.Validate()
}

// Aperture is a directed opening from a Room to either another Room or an
// outside Side. Each physical opening is represented exactly once: an
// interior door between rooms A and B appears as (A->B) xor (B->A), never
// both (§3).
type Aperture struct {
	Index           int
	OriginRoomIndex int
	DestRoomIndex   int  // -1 if the destination is a Side
	DestSide        Side // Unknown if the destination is a Room
	AreaM2          float64
	SideOfRoom      Side // the side of the origin room the aperture sits on
}

// IsOutside reports whether the aperture's destination is an outside
// Side rather than another Room.
func (a *Aperture) IsOutside() bool { return a.DestRoomIndex < 0 }

// Graph is the immutable building description: fixed-order Rooms and
// Apertures, plus a precomputed incidence index. The graph exclusively
// owns Rooms and Apertures (§3); everything downstream borrows them.
type Graph struct {
	rooms     []*Room
	apertures []*Aperture
	incident  [][]int // per room index, the indices of apertures touching it (origin or destination)
}

// NewGraph validates and builds a Graph from fixed-order room and
// aperture lists. Room.Index is assigned from position in rooms.
func NewGraph(rooms []*Room, apertures []*Aperture) (*Graph, error) {
	for i, r := range rooms {
		r.Index = i
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	for i, a := range apertures {
		a.Index = i
		if a.OriginRoomIndex < 0 || a.OriginRoomIndex >= len(rooms) {
			return nil, fmt.Errorf("%w: aperture %d origin room index %d out of range", ErrBadAperture, i, a.OriginRoomIndex)
		}
		if a.AreaM2 < 0 {
			return nil, fmt.Errorf("%w: aperture %d has negative area %g", ErrBadAperture, i, a.AreaM2)
		}
		if !a.IsOutside() {
			if a.DestRoomIndex < 0 || a.DestRoomIndex >= len(rooms) {
				return nil, fmt.Errorf("%w: aperture %d destination room index %d out of range", ErrBadAperture, i, a.DestRoomIndex)
			}
		} else if a.DestSide == Unknown {
			return nil, fmt.Errorf("%w: aperture %d has no destination room or side", ErrBadAperture, i)
		}
	}
	incident := make([][]int, len(rooms))
	for i, a := range apertures {
		incident[a.OriginRoomIndex] = append(incident[a.OriginRoomIndex], i)
		if !a.IsOutside() {
			incident[a.DestRoomIndex] = append(incident[a.DestRoomIndex], i)
		}
	}
	return &Graph{rooms: rooms, apertures: apertures, incident: incident}, nil
}

// Rooms returns the graph's rooms in fixed index order. The caller must
// not mutate the returned slice.
func (g *Graph) Rooms() []*Room { return g.rooms }

// Apertures returns the graph's apertures in fixed index order. The
// caller must not mutate the returned slice.
func (g *Graph) Apertures() []*Aperture { return g.apertures }

// Room returns the room at index i.
func (g *Graph) Room(i int) *Room { return g.rooms[i] }

// Aperture returns the aperture at index i.
func (g *Graph) Aperture(i int) *Aperture { return g.apertures[i] }

// AperturesForRoom returns the indices of apertures incident on room i,
// whether i is the aperture's origin or destination.
func (g *Graph) AperturesForRoom(i int) []int { return g.incident[i] }

// NumRooms returns the number of rooms in the graph.
func (g *Graph) NumRooms() int { return len(g.rooms) }
