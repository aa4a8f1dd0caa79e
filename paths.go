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

import "fmt"

// PathStep is one aperture traversal along a TransportPath: the aperture
// traversed, and whether it was crossed against its own stored
// origin->destination direction.
type PathStep struct {
	ApertureIndex int
	Reversed      bool
}

// TransportPath is a simple route between two distinct cardinal Sides,
// passing through each interior Room at most once (§3). Paths hold only
// indices into the owning Graph.
type TransportPath struct {
	From, To Side
	Steps    []PathStep
}

// node identifies a DFS graph node: either one of the four cardinal
// Sides, or a Room (by index).
type node struct {
	side   Side // Unknown if this node is a Room
	room   int  // meaningful only if side == Unknown
	isSide bool
}

func sideNode(s Side) node  { return node{side: s, isSide: true} }
func roomNode(i int) node   { return node{room: i, isSide: false} }
func (n node) equal(o node) bool {
	if n.isSide != o.isSide {
		return false
	}
	if n.isSide {
		return n.side == o.side
	}
	return n.room == o.room
}

type undirectedEdge struct {
	to            node
	apertureIndex int
	// reversed is true if traversing this edge (in the direction stored
	// here, from this edge's owning node to `to`) goes against the
	// aperture's stored origin->destination direction.
	reversed bool
}

// EnumeratePaths finds every simple transport path between two distinct
// cardinal Sides through the aperture graph (§4.3). The result is
// deduplicated up to reversal: for each unordered pair {S,T} with S<T in
// CardinalSides order, only the S->T orientation is returned.
func EnumeratePaths(g *Graph) ([]*TransportPath, error) {
	adj := buildUndirectedGraph(g)

	var result []*TransportPath
	for i := 0; i < len(CardinalSides); i++ {
		for j := i + 1; j < len(CardinalSides); j++ {
			from, to := CardinalSides[i], CardinalSides[j]
			result = append(result, enumerateBetween(adj, from, to)...)
		}
	}
	return result, nil
}

func buildUndirectedGraph(g *Graph) map[node][]undirectedEdge {
	adj := make(map[node][]undirectedEdge)
	addEdge := func(from, to node, apIdx int, reversed bool) {
		adj[from] = append(adj[from], undirectedEdge{to: to, apertureIndex: apIdx, reversed: reversed})
	}
	for _, s := range CardinalSides {
		adj[sideNode(s)] = nil
	}
	for i := range g.rooms {
		adj[roomNode(i)] = nil
	}
	for i, a := range g.apertures {
		origin := roomNode(a.OriginRoomIndex)
		var dest node
		if a.IsOutside() {
			dest = sideNode(a.DestSide)
		} else {
			dest = roomNode(a.DestRoomIndex)
		}
		// Traversing origin->dest matches the aperture's stored
		// direction (not reversed); traversing dest->origin is reversed.
		addEdge(origin, dest, i, false)
		addEdge(dest, origin, i, true)
	}
	return adj
}

// enumerateBetween depth-first-searches every simple path from `from` to
// `to`, forbidding revisits of any Side node (the target may only be
// reached as the final node) and of Rooms already on the current path.
func enumerateBetween(adj map[node][]undirectedEdge, from, to Side) []*TransportPath {
	var result []*TransportPath
	start, target := sideNode(from), sideNode(to)

	visitedRooms := make(map[int]bool)
	var steps []PathStep

	var dfs func(current node)
	dfs = func(current node) {
		if current.equal(target) {
			pathCopy := make([]PathStep, len(steps))
			copy(pathCopy, steps)
			result = append(result, &TransportPath{From: from, To: to, Steps: pathCopy})
			return
		}
		for _, e := range adj[current] {
			if e.to.isSide {
				// Only the target Side may be entered; any other
				// outside Side is a dead end for this path (no path
				// passes through an outside Side except at its two
				// endpoints).
				if !e.to.equal(target) {
					continue
				}
			} else if visitedRooms[e.to.room] {
				continue
			}
			if !e.to.isSide {
				visitedRooms[e.to.room] = true
			}
			steps = append(steps, PathStep{ApertureIndex: e.apertureIndex, Reversed: e.reversed})

			dfs(e.to)

			steps = steps[:len(steps)-1]
			if !e.to.isSide {
				visitedRooms[e.to.room] = false
			}
		}
	}
	dfs(start)
	return result
}

// validatePathTable ensures both sides of a path are cardinal, returning
// ErrPathTableMiss otherwise (Upward/Downward have no defined angle
// offset; see flow.go).
func validatePathTable(from, to Side) error {
	if !from.IsCardinal() || !to.IsCardinal() {
		return fmt.Errorf("%w: %s -> %s", ErrPathTableMiss, from, to)
	}
	return nil
}
