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
	"github.com/sirupsen/logrus"
)

// ConcentrationState is one room's concentration vector, indexed the same
// way as the SpeciesClassifier it was built against (§3).
type ConcentrationState struct {
	Values []float64
}

// Clone returns a deep copy of the state.
func (c *ConcentrationState) Clone() *ConcentrationState {
	v := make([]float64, len(c.Values))
	copy(v, c.Values)
	return &ConcentrationState{Values: v}
}

// ApplyInteriorAperture applies the Room->Room transport operator (§4.7) to
// the endpoint states in place, over interval dt, for every INDOOR species
// in classifier. f.FromOriginToDest/FromDestToOrigin are m3/s; dt is
// seconds; volumeA/volumeB are the origin/dest room volumes (m3).
func ApplyInteriorAperture(f Fluxes, dt, volumeA, volumeB float64, stateA, stateB *ConcentrationState, classifier *SpeciesClassifier) {
	qAB := f.OriginToDestM3S() * dt
	qBA := f.DestToOriginM3S() * dt
	for _, s := range classifier.IndoorIndices() {
		cA, cB := stateA.Values[s], stateB.Values[s]
		deltaA := (qBA*cB - qAB*cA) / volumeA
		deltaB := (qAB*cA - qBA*cB) / volumeB
		stateA.Values[s] += deltaA
		stateB.Values[s] += deltaB
	}
}

// ApplyOutsideAperture applies the Room->Side transport operator (§4.7) to
// a room's state in place, over interval dt, for every INDOOR species in
// classifier. f.FromOriginToDest is the room-to-outside flow (m3/s),
// f.FromDestToOrigin is the outside-to-room flow. volume is the room's
// volume (m3). The outdoor boundary concentration for species s is read
// from the room's own paired OUTDOOR_SIDECAR slot (c[s OUT]), or treated
// as 0 if no sidecar is classified for s.
func ApplyOutsideAperture(f Fluxes, dt, volume float64, state *ConcentrationState, classifier *SpeciesClassifier) {
	qOut := f.OriginToDestM3S() * dt
	qIn := f.DestToOriginM3S() * dt

	sidecarOf := make(map[int]int, len(classifier.OutdoorSidecarIndices()))
	for _, si := range classifier.OutdoorSidecarIndices() {
		if indoorIdx := classifier.PairedIndoorIndex(si); indoorIdx >= 0 {
			sidecarOf[indoorIdx] = si
		}
	}

	for _, s := range classifier.IndoorIndices() {
		outbound := -qOut * state.Values[s] / volume
		var cOutdoor float64
		if si, ok := sidecarOf[s]; ok {
			cOutdoor = state.Values[si]
		}
		inbound := qIn * cOutdoor / volume
		state.Values[s] += outbound + inbound
	}
}

// ReconcileTransport runs Phase B of the scheduler (§5, §4.8 step 5): it
// applies the transport operator to every aperture, in deterministic
// (index) order, against the frozen at-solved_time states of every room,
// and warns (non-fatally, via log) about any INDOOR species that ends up
// negative. States are mutated in place.
func ReconcileTransport(g *Graph, calcs []*ApertureCalculation, wind *WindState, t, dt float64, states []*ConcentrationState, classifier *SpeciesClassifier, log logrus.FieldLogger) error {
	speed, direction, err := wind.At(t)
	if err != nil {
		return err
	}
	for _, ac := range calcs {
		fluxes, err := ac.Compute(speed, direction)
		if err != nil {
			return err
		}
		a := ac.aperture
		originState := states[a.OriginRoomIndex]
		originVolume := g.Room(a.OriginRoomIndex).VolumeM3
		if a.IsOutside() {
			ApplyOutsideAperture(fluxes, dt, originVolume, originState, classifier)
		} else {
			destState := states[a.DestRoomIndex]
			destVolume := g.Room(a.DestRoomIndex).VolumeM3
			ApplyInteriorAperture(fluxes, dt, originVolume, destVolume, originState, destState, classifier)
		}
	}
	warnNegativeConcentrations(g, states, classifier, log)
	return nil
}

// warnNegativeConcentrations logs a NegativeConcentrationWarning (§7) for
// every room with any INDOOR species below zero after reconciliation. This
// never mutates results; explicit-Euler transport can legitimately drive a
// species negative under a large τ (spec.md §9, open question).
func warnNegativeConcentrations(g *Graph, states []*ConcentrationState, classifier *SpeciesClassifier, log logrus.FieldLogger) {
	if log == nil {
		return
	}
	for i, state := range states {
		var negative []string
		for _, s := range classifier.IndoorIndices() {
			if state.Values[s] < 0 {
				negative = append(negative, classifier.Labels()[s])
			}
		}
		if len(negative) > 0 {
			log.WithFields(logrus.Fields{
				"room":    g.Room(i).ID,
				"species": negative,
			}).Warn("negative concentration after transport reconciliation")
		}
	}
}
