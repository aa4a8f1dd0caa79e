
package multiroom

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// stepEvolver is a RoomEvolver test double that reports one sample every
// dtChem seconds from t0 through t0+duration, inclusive, with a constant
// concentration. It never actually integrates chemistry; it exists to
// exercise the scheduler's interval bookkeeping in isolation (§8 S6).
type stepEvolver struct {
	dtChem float64
	labels []string
	value  float64
}

func (e *stepEvolver) Run(ctx context.Context, t0, duration float64, initial InitialCondition) (*ChemistryResult, error) {
	var times []float64
	var rows [][]float64
	for tt := t0; tt < t0+duration-e.dtChem/2; tt += e.dtChem {
		times = append(times, tt)
		rows = append(rows, []float64{e.value})
	}
	times = append(times, t0+duration)
	rows = append(rows, []float64{e.value})
	return &ChemistryResult{Times: times, Labels: e.labels, Rows: rows}, nil
}

func buildTwoRoomGraph(t *testing.T) *Graph {
	t.Helper()
	rooms := []*Room{newTestRoom("r1", 10), newTestRoom("r2", 10)}
	apertures := []*Aperture{
		{OriginRoomIndex: 0, DestRoomIndex: -1, DestSide: Front, AreaM2: 1},
		{OriginRoomIndex: 0, DestRoomIndex: 1, AreaM2: 1},
		{OriginRoomIndex: 1, DestRoomIndex: -1, DestSide: Back, AreaM2: 1},
	}
	g, err := NewGraph(rooms, apertures)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

// TestS6SchedulerTimeline covers spec.md §8 scenario S6.
func TestS6SchedulerTimeline(t *testing.T) {
	g := buildTwoRoomGraph(t)
	wind := &WindState{Speed: flatSeries(0), Direction: flatSeries(0)}
	settings := GlobalSettings{
		DtChem:  1,
		Physics: PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5},
	}
	classifier := NewSpeciesClassifier([]string{"CO"})
	evolvers := []RoomEvolver{
		&stepEvolver{dtChem: 1, labels: []string{"CO"}, value: 1},
		&stepEvolver{dtChem: 1, labels: []string{"CO"}, value: 1},
	}
	sched, err := NewScheduler(g, evolvers, wind, settings, classifier, nil)
	if err != nil {
		t.Fatal(err)
	}

	logs, err := sched.Run(context.Background(), map[string]string{"r1": "init", "r2": "init"}, 0, 25, 3)
	if err != nil {
		t.Fatal(err)
	}

	want := []float64{0, 1, 2, 3, 3, 4, 5, 6, 6, 7, 8, 9, 9, 10, 11, 12, 12, 13, 14, 15,
		15, 16, 17, 18, 18, 19, 20, 21, 21, 22, 23, 24, 24, 25}
	for _, roomID := range []string{"r1", "r2"} {
		got := logs[roomID].Times
		if !reflect.DeepEqual(got, want) {
			t.Errorf("room %s cumulative log times = %v, want %v", roomID, got, want)
		}
	}
}

// failingEvolver always reports a shorter integration than commanded,
// exercising the IncompleteChemistry abort path (§7).
type failingEvolver struct{}

func (failingEvolver) Run(ctx context.Context, t0, duration float64, initial InitialCondition) (*ChemistryResult, error) {
	return &ChemistryResult{Times: []float64{t0 + duration/2}, Labels: []string{"CO"}, Rows: [][]float64{{0}}}, nil
}

func TestSchedulerAbortsOnIncompleteChemistry(t *testing.T) {
	rooms := []*Room{newTestRoom("r1", 10)}
	apertures := []*Aperture{{OriginRoomIndex: 0, DestRoomIndex: -1, DestSide: Front, AreaM2: 1}}
	g, err := NewGraph(rooms, apertures)
	if err != nil {
		t.Fatal(err)
	}
	wind := &WindState{Speed: flatSeries(0), Direction: flatSeries(0)}
	settings := GlobalSettings{
		DtChem:  1,
		Physics: PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5},
	}
	classifier := NewSpeciesClassifier([]string{"CO"})
	sched, err := NewScheduler(g, []RoomEvolver{failingEvolver{}}, wind, settings, classifier, nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = sched.Run(context.Background(), map[string]string{"r1": "init"}, 0, 3, 3)
	var incomplete *IncompleteChemistryError
	if !errors.As(err, &incomplete) {
		t.Fatalf("want IncompleteChemistryError, got %v", err)
	}
}

func TestNewSchedulerRejectsMismatchedEvolverCount(t *testing.T) {
	g := buildTwoRoomGraph(t)
	wind := &WindState{Speed: flatSeries(0), Direction: flatSeries(0)}
	settings := GlobalSettings{Physics: PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5}}
	_, err := NewScheduler(g, []RoomEvolver{&stepEvolver{dtChem: 1, labels: []string{"CO"}}}, wind, settings, nil, nil)
	if err == nil {
		t.Error("want error for evolver/room count mismatch, got nil")
	}
}
