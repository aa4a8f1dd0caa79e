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
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
)

// Physical constants used to compute ambient number density (§4.9),
// carried over from the original implementation's room evolver rather
// than re-derived, since the specification gives only the final formula.
const (
	ambientPressureHPa = 1013.0
	gasConstant        = 8.3144626
	avogadroNumber     = 6.0221408e23

	o2Fraction = 0.2095
	n2Fraction = 0.7809
	h2Fraction = 550e-9

	// aerosolSurfaceArea is a fixed constant-species entry carried from
	// the original evolver (variable name "saero").
	aerosolSurfaceArea = 1.3e-2
)

// AmbientNumberDensity returns M, the ambient number density (molecules
// per cm3) at temperature T (Kelvin): M = (100*p/(R*T)) * (N_A/1e6) (§4.9).
func AmbientNumberDensity(temperatureK float64) float64 {
	return (100 * ambientPressureHPa / (gasConstant * temperatureK)) * (avogadroNumber / 1e6)
}

// ConstantSpecies returns the fixed constant-species map derived from M
// (§4.9): O2, N2, H2 scaled off M, plus the aerosol surface area.
func ConstantSpecies(m float64) map[string]float64 {
	return map[string]float64{
		"O2":    o2Fraction * m,
		"N2":    n2Fraction * m,
		"H2":    h2Fraction * m,
		"saero": aerosolSurfaceArea,
	}
}

// LightOnInterval is one [startHour, endHour) window during which a room's
// light is switched on, derived from a step LightSwitch series (§4.9).
type LightOnInterval struct {
	StartHour, EndHour float64
}

// DeriveLightOnIntervals scans a step-kind 0/1 LightSwitch TimeSeries and
// returns the [start, end) hour pairs during which the light is on,
// grounded on the original evolver's interpret_light_on_times: a rising
// edge (0->1) opens an interval, a falling edge (1->0) or the series end
// closes it.
func DeriveLightOnIntervals(lightSwitch *TimeSeries) []LightOnInterval {
	times, values := lightSwitch.Times(), lightSwitch.Values()
	var intervals []LightOnInterval
	var openStart float64
	open := false
	for i, v := range values {
		on := v != 0
		switch {
		case on && !open:
			openStart = times[i]
			open = true
		case !on && open:
			intervals = append(intervals, LightOnInterval{StartHour: openStart, EndHour: times[i]})
			open = false
		}
	}
	if open {
		intervals = append(intervals, LightOnInterval{StartHour: openStart, EndHour: times[len(times)-1]})
	}
	return intervals
}

// ChemistryResult is one room's chemistry solver output for an interval
// (§4.9, §6): a time-indexed table of every species label.
type ChemistryResult struct {
	Times  []float64
	Labels []string
	Rows   [][]float64 // Rows[i] holds every label's value at Times[i]
}

// LastTime returns the result's final integration time, or negInf
// (-1e308) if empty.
func (r *ChemistryResult) LastTime() float64 {
	if len(r.Times) == 0 {
		return negInf
	}
	return r.Times[len(r.Times)-1]
}

const negInf = -1e308

// InitialCondition is either an opaque textual handle (the run's first
// call into a room's evolver) or a concentration snapshot from the end of
// the previous interval (§4.9, §6).
type InitialCondition struct {
	TextHandle string
	Snapshot   *ConcentrationState
}

// RoomEvolver is the external chemistry-solver contract (§6, §9): a
// black-box collaborator the scheduler drives per room, per interval. It
// must be safe to call concurrently across distinct Rooms; the scheduler
// never calls it concurrently for the same Room.
type RoomEvolver interface {
	Run(ctx context.Context, t0, duration float64, initial InitialCondition) (*ChemistryResult, error)
}

// ChemistrySolver is the pluggable external collaborator a
// RoomEvolverAdapter delegates to once it has assembled every input the
// solver contract requires (§6). Implementations wrap whatever
// mechanism-interpreting chemistry package is configured; this package
// never interprets mechanisms itself (§1, Non-goals).
type ChemistrySolver interface {
	Solve(ctx context.Context, params ChemistryParams) (*ChemistryResult, error)
}

// ChemistryParams bundles every input the external chemistry solver
// contract requires (§6), assembled fresh by RoomEvolverAdapter.Run on
// every call. Solver-internal state (jacobian, mechanism) is not part of
// it; any such state is the solver's own.
type ChemistryParams struct {
	Room               *Room
	T0, Duration       float64
	Temperatures       []float64 // K, interpolation kind "linear"
	RelHumidity        float64
	AdultCount         float64
	ChildCount         float64
	NumberDensity      float64 // M
	ConstantSpecies    map[string]float64
	LightOnIntervals   []LightOnInterval
	AirChangeRate      *TimeSeries
	Emissions          map[string]*TimeBracketedValue
	Initial            InitialCondition
	SurfaceAreaByMatl  map[string]float64
}

// RoomEvolverAdapter implements RoomEvolver for one Room, delegating the
// actual integration to a ChemistrySolver (§4.9). It keeps a one-entry
// requestcache keyed by the room ID (see jacobianBuildFunc), and retries
// solver failures with exponential backoff, grounded on sr.go's
// backoff.RetryNotify usage.
type RoomEvolverAdapter struct {
	room        *Room
	solver      ChemistrySolver
	log         logrus.FieldLogger
	jacobianFor *requestcache.Cache
}

// jacobianBuildFunc is the adapter cache's process function. It checks
// that the request payload is a *Room and returns that room; it makes no
// call into the solver, so no solver state (jacobian or otherwise) is
// built or stored here. The solver argument is not used.
func jacobianBuildFunc(solver ChemistrySolver) requestcache.ProcessFunc {
	return func(ctx context.Context, request interface{}) (interface{}, error) {
		room, ok := request.(*Room)
		if !ok {
			return nil, fmt.Errorf("multiroom: jacobian cache request for non-room payload %T", request)
		}
		return room, nil
	}
}

// NewRoomEvolverAdapter builds an adapter for one room. log may be nil (no
// warnings emitted).
func NewRoomEvolverAdapter(room *Room, solver ChemistrySolver, log logrus.FieldLogger) *RoomEvolverAdapter {
	return &RoomEvolverAdapter{
		room:   room,
		solver: solver,
		log:    log,
		jacobianFor: requestcache.NewCache(jacobianBuildFunc(solver), 1,
			requestcache.Deduplicate(), requestcache.Memory(1)),
	}
}

// Run passes the room through the adapter's cache, resolves the room's
// time-series at t0, assembles ChemistryParams, and delegates to the
// solver, retrying any solver error with exponential backoff (§4.9).
func (a *RoomEvolverAdapter) Run(ctx context.Context, t0, duration float64, initial InitialCondition) (*ChemistryResult, error) {
	if _, err := a.jacobianFor.NewRequest(ctx, a.room, a.room.ID).Result(); err != nil {
		return nil, fmt.Errorf("multiroom: warming jacobian cache for room %q: %w", a.room.ID, err)
	}

	temperature, err := a.room.Temperature.ValueAt(t0)
	if err != nil {
		return nil, err
	}
	relHumidity, err := a.room.RelHumidity.ValueAt(t0)
	if err != nil {
		return nil, err
	}
	adults, err := a.room.AdultCount.ValueAt(t0)
	if err != nil {
		return nil, err
	}
	children, err := a.room.ChildCount.ValueAt(t0)
	if err != nil {
		return nil, err
	}

	m := AmbientNumberDensity(temperature)
	params := ChemistryParams{
		Room:              a.room,
		T0:                t0,
		Duration:          duration,
		Temperatures:      []float64{temperature},
		RelHumidity:       relHumidity,
		AdultCount:        adults,
		ChildCount:        children,
		NumberDensity:     m,
		ConstantSpecies:   ConstantSpecies(m),
		LightOnIntervals:  DeriveLightOnIntervals(a.room.LightSwitch),
		AirChangeRate:     a.room.AirChangeRate,
		Emissions:         a.room.Emissions,
		Initial:           initial,
		SurfaceAreaByMatl: a.room.Composition.SurfaceAreaByMaterial(a.room.SurfaceAreaM2),
	}

	var result *ChemistryResult
	op := func() error {
		r, err := a.solver.Solve(ctx, params)
		if err != nil {
			return err
		}
		result = r
		return nil
	}
	notify := func(err error, d time.Duration) {
		if a.log != nil {
			a.log.WithFields(logrus.Fields{"room": a.room.ID, "retry_in": d}).Warn(err)
		}
	}
	if err := backoff.RetryNotify(op, backoff.NewExponentialBackOff(), notify); err != nil {
		return nil, fmt.Errorf("multiroom: chemistry solve failed for room %q: %w", a.room.ID, err)
	}
	return result, nil
}
