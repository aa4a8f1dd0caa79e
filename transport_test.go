
package multiroom

import (
	"math"
	"testing"
)

func flowPair(originToDest, destToOrigin float64) Fluxes {
	return Fluxes{FromOriginToDest: cubicMetersPerSecond(originToDest), FromDestToOrigin: cubicMetersPerSecond(destToOrigin)}
}

// TestS5EqualConcentrationGivesZeroDelta covers spec.md §8 scenario S5.
func TestS5EqualConcentrationGivesZeroDelta(t *testing.T) {
	classifier := NewSpeciesClassifier([]string{"CO", "NO3"})
	stateA := &ConcentrationState{Values: []float64{10, 20}}
	stateB := &ConcentrationState{Values: []float64{10, 20}}
	f := flowPair(0.2, 0.2)

	ApplyInteriorAperture(f, 1.0, 5, 5, stateA, stateB, classifier)

	for i, v := range stateA.Values {
		if math.Abs(v-stateB.Values[i]) > 1e-12 {
			t.Errorf("species %d: stateA=%g stateB=%g, want equal", i, v, stateB.Values[i])
		}
	}
	if stateA.Values[0] != 10 || stateA.Values[1] != 20 {
		t.Errorf("equal-concentration transport changed state: got %v, want unchanged {10, 20}", stateA.Values)
	}
}

// TestApplyInteriorApertureMassConservation covers the mass-flow
// conservation property from spec.md §8: the amount leaving one room
// exactly arrives in the other, weighted by volume.
func TestApplyInteriorApertureMassConservation(t *testing.T) {
	classifier := NewSpeciesClassifier([]string{"CO"})
	stateA := &ConcentrationState{Values: []float64{100}}
	stateB := &ConcentrationState{Values: []float64{0}}
	volumeA, volumeB := 10.0, 20.0
	f := flowPair(2, 0.5)
	dt := 1.0

	massBefore := stateA.Values[0]*volumeA + stateB.Values[0]*volumeB
	ApplyInteriorAperture(f, dt, volumeA, volumeB, stateA, stateB, classifier)
	massAfter := stateA.Values[0]*volumeA + stateB.Values[0]*volumeB

	if math.Abs(massBefore-massAfter) > 1e-9 {
		t.Errorf("mass not conserved: before=%g after=%g", massBefore, massAfter)
	}
}

func TestApplyOutsideApertureUsesSidecarBoundary(t *testing.T) {
	classifier := NewSpeciesClassifier([]string{"CO", "COOUT"})
	state := &ConcentrationState{Values: []float64{10, 5}}
	f := flowPair(1, 2)
	ApplyOutsideAperture(f, 1.0, 10, state, classifier)

	want := 10 + (-1*10)/10.0 + (2*5)/10.0
	if math.Abs(state.Values[0]-want) > 1e-9 {
		t.Errorf("CO after outside transport = %g, want %g", state.Values[0], want)
	}
	if state.Values[1] != 5 {
		t.Errorf("OUTDOOR_SIDECAR value must be left unchanged, got %g", state.Values[1])
	}
}

func TestApplyOutsideApertureNoSidecarTreatsBoundaryAsZero(t *testing.T) {
	classifier := NewSpeciesClassifier([]string{"CO"})
	state := &ConcentrationState{Values: []float64{10}}
	f := flowPair(0, 3)
	ApplyOutsideAperture(f, 1.0, 10, state, classifier)

	want := 10 + (3*0)/10.0
	if math.Abs(state.Values[0]-want) > 1e-9 {
		t.Errorf("CO with no paired sidecar = %g, want %g", state.Values[0], want)
	}
}

func TestConcentrationStateCloneIsIndependent(t *testing.T) {
	s := &ConcentrationState{Values: []float64{1, 2, 3}}
	c := s.Clone()
	c.Values[0] = 99
	if s.Values[0] != 1 {
		t.Errorf("Clone shares backing array: mutating clone changed original")
	}
}
