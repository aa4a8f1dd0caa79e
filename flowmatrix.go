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
	"github.com/ctessum/sparse"
)

// FlowMatrix is a dense (N+1)x(N+1) matrix of non-negative volumetric
// flow rates (m3/s), where row/column 0 is "outside" and rows/columns
// 1..N are rooms in fixed index order (§3). It's backed by
// sparse.DenseArray, the same dense-grid storage the teacher uses for
// every CTM field (wrf2aim.go, geoschem.go).
type FlowMatrix struct {
	data *sparse.DenseArray
	n    int // number of rooms
}

// NewFlowMatrix allocates a zeroed (n+1)x(n+1) FlowMatrix for n rooms.
func NewFlowMatrix(n int) *FlowMatrix {
	return &FlowMatrix{data: sparse.ZerosDense(n+1, n+1), n: n}
}

// At returns the flow rate (m3/s) from index `from` to index `to`
// (0 = outside, k+1 = room k).
func (m *FlowMatrix) At(from, to int) float64 {
	return m.data.Get(from, to)
}

// add accumulates a flow contribution into entry (from, to).
func (m *FlowMatrix) add(from, to int, v float64) {
	m.data.Set(m.data.Get(from, to)+v, from, to)
}

// N returns the number of rooms represented (the matrix is (N+1)x(N+1)).
func (m *FlowMatrix) N() int { return m.n }

// AssembleFlowMatrix computes every aperture's Fluxes at time t under the
// given wind and sums them into a FlowMatrix (§4.5). For an
// indoor-outdoor aperture with origin room r, FromOriginToDest
// accumulates into (r+1, 0) and FromDestToOrigin into (0, r+1). For an
// indoor-indoor aperture, contributions accumulate into
// (origin+1, dest+1) and (dest+1, origin+1) respectively. Apertures that
// share an endpoint pair sum.
func AssembleFlowMatrix(g *Graph, calcs []*ApertureCalculation, wind *WindState, t float64) (*FlowMatrix, error) {
	speed, direction, err := wind.At(t)
	if err != nil {
		return nil, err
	}
	m := NewFlowMatrix(g.NumRooms())
	for _, ac := range calcs {
		fluxes, err := ac.Compute(speed, direction)
		if err != nil {
			return nil, err
		}
		a := ac.aperture
		originIdx := a.OriginRoomIndex + 1
		var destIdx int
		if a.IsOutside() {
			destIdx = 0
		} else {
			destIdx = a.DestRoomIndex + 1
		}
		m.add(originIdx, destIdx, fluxes.OriginToDestM3S())
		m.add(destIdx, originIdx, fluxes.DestToOriginM3S())
	}
	return m, nil
}
