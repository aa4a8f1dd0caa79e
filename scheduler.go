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
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
)

// GlobalSettings are the run-wide, read-only settings threaded through the
// scheduler (§4.8, §9 "process-wide mutable configuration": none in the
// core; settings are constructed once and passed by borrow).
type GlobalSettings struct {
	DtChem             float64 // chemistry solver integration step
	Diurnal            bool
	City               string
	Date               string // DD-MM-YYYY
	Latitude           float64
	Physics            PhysicsConstants
	ExchangePolicy     ExchangePolicy
}

// RoomLog is one room's cumulative per-interval chemistry output, appended
// to only by the scheduler's main goroutine (§5, §8 Scheduler cadence).
type RoomLog struct {
	RoomID string
	Times  []float64
	Labels []string
	Rows   [][]float64
}

func (l *RoomLog) append(r *ChemistryResult) {
	if l.Labels == nil {
		l.Labels = r.Labels
	}
	l.Times = append(l.Times, r.Times...)
	l.Rows = append(l.Rows, r.Rows...)
}

// Scheduler drives the operator-splitting run described in §4.8: parallel
// per-room chemistry (Phase A) alternating with sequential transport
// reconciliation (Phase B), in lockstep across all rooms at a common
// solved_time.
type Scheduler struct {
	Graph      *Graph
	Evolvers   []RoomEvolver // one per room, same order as Graph.Rooms()
	Wind       *WindState
	Settings   GlobalSettings
	Classifier *SpeciesClassifier
	Log        logrus.FieldLogger

	calcs []*ApertureCalculation
}

// NewScheduler builds a Scheduler, enumerating transport paths once and
// precomputing each aperture's ApertureCalculation (§4.3, §4.4, §9: path
// enumeration and the species classifier are read-only after setup).
func NewScheduler(g *Graph, evolvers []RoomEvolver, wind *WindState, settings GlobalSettings, classifier *SpeciesClassifier, log logrus.FieldLogger) (*Scheduler, error) {
	if len(evolvers) != g.NumRooms() {
		return nil, fmt.Errorf("multiroom: %d evolvers for %d rooms", len(evolvers), g.NumRooms())
	}
	paths, err := EnumeratePaths(g)
	if err != nil {
		return nil, err
	}
	calcs := make([]*ApertureCalculation, len(g.Apertures()))
	for i, a := range g.Apertures() {
		ac, err := BuildApertureCalculation(g, a, paths, settings.Physics, settings.ExchangePolicy)
		if err != nil {
			return nil, err
		}
		calcs[i] = ac
	}
	return &Scheduler{
		Graph: g, Evolvers: evolvers, Wind: wind, Settings: settings,
		Classifier: classifier, Log: log, calcs: calcs,
	}, nil
}

// runChemistryPhase runs Phase A (§5): one chemistry task per room,
// concurrently, capped at runtime.GOMAXPROCS(0) in-flight tasks at once,
// grounded on run.go's Calculations() worker-striping pattern. Each task
// writes only to its own slot in results; no two tasks share memory.
func (s *Scheduler) runChemistryPhase(ctx context.Context, t0, duration float64, initials []InitialCondition) ([]*ChemistryResult, error) {
	n := len(s.Evolvers)
	results := make([]*ChemistryResult, n)
	errs := make([]error, n)

	nprocs := runtime.GOMAXPROCS(0)
	if nprocs > n {
		nprocs = n
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			defer wg.Done()
			for i := pp; i < n; i += nprocs {
				r, err := s.Evolvers[i].Run(ctx, t0, duration, initials[i])
				if err != nil {
					errs[i] = err
					continue
				}
				results[i] = r
			}
		}(pp)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("multiroom: chemistry failed for room %q: %w", s.Graph.Room(i).ID, err)
		}
	}
	return results, nil
}

// checkComplete verifies every room's chemistry result reached commandedEnd
// (§4.8 step 3, §7 IncompleteChemistry).
func (s *Scheduler) checkComplete(results []*ChemistryResult, commandedEnd float64) error {
	for i, r := range results {
		if r.LastTime() != commandedEnd {
			if s.Log != nil {
				s.Log.WithFields(logrus.Fields{
					"room": s.Graph.Room(i).ID, "last_time": r.LastTime(), "commanded_end": commandedEnd,
				}).Warn("room chemistry integration ended early")
			}
			return &IncompleteChemistryError{
				RoomIndex: i, RoomID: s.Graph.Room(i).ID,
				CommandedEnd: commandedEnd, ActualEnd: r.LastTime(),
			}
		}
	}
	return nil
}

// stateAt extracts a ConcentrationState from a room's chemistry result row
// at the given time (the frozen end-of-interval state transport operates
// against in Phase B).
func stateAt(r *ChemistryResult, t float64) *ConcentrationState {
	for i, rt := range r.Times {
		if rt == t {
			v := make([]float64, len(r.Rows[i]))
			copy(v, r.Rows[i])
			return &ConcentrationState{Values: v}
		}
	}
	return &ConcentrationState{Values: r.Rows[len(r.Rows)-1]}
}

// Run executes the full operator-splitting schedule from t0 for duration T
// with transport interval tau, against the given textual initial-condition
// handles, following §4.8's numbered procedure exactly.
func (s *Scheduler) Run(ctx context.Context, initialHandles map[string]string, t0, totalDuration, tau float64) (map[string]*RoomLog, error) {
	n := s.Graph.NumRooms()
	logs := make(map[string]*RoomLog, n)
	for _, r := range s.Graph.Rooms() {
		logs[r.ID] = &RoomLog{RoomID: r.ID}
	}

	// Step 2: first interval, launched from the textual handles.
	initials := make([]InitialCondition, n)
	for i, r := range s.Graph.Rooms() {
		initials[i] = InitialCondition{TextHandle: initialHandles[r.ID]}
	}

	stepEnd := t0 + tau
	results, err := s.runChemistryPhase(ctx, t0, tau, initials)
	if err != nil {
		return nil, err
	}
	if err := s.checkComplete(results, stepEnd); err != nil {
		return nil, err
	}
	for i, r := range results {
		logs[s.Graph.Room(i).ID].append(r)
	}

	solvedTime := stepEnd
	if s.Classifier == nil && len(results) > 0 {
		s.Classifier = NewSpeciesClassifier(results[0].Labels)
	}

	// Step 5: reconcile transport at solvedTime and build the next
	// interval's initial conditions.
	states := make([]*ConcentrationState, n)
	for i, r := range results {
		states[i] = stateAt(r, solvedTime)
	}
	if err := ReconcileTransport(s.Graph, s.calcs, s.Wind, solvedTime, tau, states, s.Classifier, s.Log); err != nil {
		return nil, err
	}
	for i := range initials {
		initials[i] = InitialCondition{Snapshot: states[i]}
	}

	// Step 6: full-length intervals until the remainder is shorter than tau.
	for solvedTime+tau <= t0+totalDuration {
		stepEnd = solvedTime + tau
		results, err = s.runChemistryPhase(ctx, solvedTime, tau, initials)
		if err != nil {
			return nil, err
		}
		if err := s.checkComplete(results, stepEnd); err != nil {
			return nil, err
		}
		for i, r := range results {
			logs[s.Graph.Room(i).ID].append(r)
		}
		solvedTime = stepEnd

		for i, r := range results {
			states[i] = stateAt(r, solvedTime)
		}
		if err := ReconcileTransport(s.Graph, s.calcs, s.Wind, solvedTime, tau, states, s.Classifier, s.Log); err != nil {
			return nil, err
		}
		for i := range initials {
			initials[i] = InitialCondition{Snapshot: states[i]}
		}
	}

	// Step 7: one short final step to land exactly on t0+totalDuration.
	if solvedTime < t0+totalDuration {
		remaining := t0 + totalDuration - solvedTime
		results, err = s.runChemistryPhase(ctx, solvedTime, remaining, initials)
		if err != nil {
			return nil, err
		}
		if err := s.checkComplete(results, t0+totalDuration); err != nil {
			return nil, err
		}
		for i, r := range results {
			logs[s.Graph.Room(i).ID].append(r)
		}
	}

	return logs, nil
}
