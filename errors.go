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

// Error kinds returned by this package, per the error-handling design in
// the specification (§7). Construction/parsing failures are returned
// immediately; runtime failures surface through the Scheduler.
var (
	// ErrMalformedSeries is returned when a TimeSeries is built from an
	// empty sample list or one whose times are not strictly increasing.
	ErrMalformedSeries = fmt.Errorf("multiroom: malformed time series")

	// ErrOutOfRange is returned when ValueAt is queried outside a time
	// series's domain.
	ErrOutOfRange = fmt.Errorf("multiroom: time outside series domain")

	// ErrCompositionSum is returned when a Room's surface-material
	// percentages don't sum to 100 within tolerance, or any individual
	// percentage falls outside [0, 100].
	ErrCompositionSum = fmt.Errorf("multiroom: room composition does not sum to 100")

	// ErrBadAperture is returned when an Aperture refers to an unknown
	// room or an unrecognized side name.
	ErrBadAperture = fmt.Errorf("multiroom: invalid aperture endpoint")

	// ErrBadRoom is returned when a Room's static geometry is invalid:
	// non-positive volume or negative surface area.
	ErrBadRoom = fmt.Errorf("multiroom: invalid room geometry")

	// ErrGraphConfig is returned when the configured pressure
	// coefficients violate upwind >= downwind.
	ErrGraphConfig = fmt.Errorf("multiroom: upwind pressure coefficient must be >= downwind")

	// ErrPathTableMiss is returned when a transport-path angle is
	// requested for a side pair the offset table doesn't define (only the
	// four cardinal sides are defined; Upward/Downward are rejected).
	ErrPathTableMiss = fmt.Errorf("multiroom: no angle offset defined for this side pair")

	// ErrIncompleteChemistry is returned when a room's chemistry
	// integration reports a final time earlier than the commanded end.
	ErrIncompleteChemistry = fmt.Errorf("multiroom: room chemistry integration ended early")
)

// IncompleteChemistryError identifies which room and at what time a
// chemistry step under-integrated, halting the scheduler.
type IncompleteChemistryError struct {
	RoomIndex     int
	RoomID        string
	CommandedEnd  float64
	ActualEnd     float64
}

func (e *IncompleteChemistryError) Error() string {
	return fmt.Sprintf("multiroom: room %q (index %d) integrated only to t=%g, commanded t=%g",
		e.RoomID, e.RoomIndex, e.ActualEnd, e.CommandedEnd)
}

func (e *IncompleteChemistryError) Unwrap() error { return ErrIncompleteChemistry }
