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

	"github.com/Knetic/govaluate"
	"github.com/ctessum/unit"
)

// VolumeFlowDim is the physical dimension of a volumetric flow rate,
// cubic metres per second.
var VolumeFlowDim = unit.Dimensions{
	unit.LengthDim: 3,
	unit.TimeDim:   -1,
}

// cubicMetersPerSecond wraps a plain float64 m3/s value as a dimensioned
// quantity, the way the teacher wraps physical quantities in `unit.Unit`
// (see io.go / emissions/slca/greet/calc.go in the reference corpus).
func cubicMetersPerSecond(v float64) *unit.Unit { return unit.New(v, VolumeFlowDim) }

// ZeroAdvectionTolerance is the magnitude below which a summed advective
// flow is treated as exactly zero (§4.4).
const ZeroAdvectionTolerance = 1e-5

// WindState is the building's wind forcing: time-indexed speed and
// direction, plus the building's fixed compass orientation.
type WindState struct {
	Speed               *TimeSeries // m/s
	Direction            *TimeSeries // radians, normalized
	BuildingOrientation float64     // radians; compass angle of the Front side
}

// At returns the wind speed (m/s) and direction (radians) at time t.
func (w *WindState) At(t float64) (speed, direction float64, err error) {
	speed, err = w.Speed.ValueAt(t)
	if err != nil {
		return 0, 0, err
	}
	direction, err = w.Direction.ValueAt(t)
	if err != nil {
		return 0, 0, err
	}
	return speed, direction, nil
}

// pathAngleOffsets is the fixed table mapping each ordered pair of
// distinct cardinal sides to an angular offset from the building's Front
// axis. Carried verbatim from the original implementation's
// transport_path_angle_in_radians table (see SPEC_FULL.md §4) rather than
// re-derived geometrically, since the anchor values given in the
// specification (Back->Front=0, Front->Back=pi, ±pi/4, ±3pi/4, Left<->Right
// at ±pi/2) are consistent with it but don't by themselves pin down the
// other eight entries.
var pathAngleOffsets = map[[2]Side]float64{
	{Front, Back}:  math.Pi,
	{Front, Left}:  -3.0 * math.Pi / 4,
	{Front, Right}: 3.0 * math.Pi / 4,

	{Back, Front}: 0,
	{Back, Left}:  -math.Pi / 4,
	{Back, Right}: math.Pi / 4,

	{Left, Front}: math.Pi / 4,
	{Left, Back}:  3 * math.Pi / 4,
	{Left, Right}: math.Pi / 2,

	{Right, Front}: -math.Pi / 4,
	{Right, Back}:  -3 * math.Pi / 4,
	{Right, Left}:  -math.Pi / 2,
}

// PathAngle returns the absolute compass angle (radians) of a transport
// path from `from` to `to`, given the building's orientation. Fails with
// ErrPathTableMiss if either side isn't cardinal or the pair isn't in the
// fixed offset table.
func PathAngle(from, to Side, buildingOrientation float64) (float64, error) {
	if err := validatePathTable(from, to); err != nil {
		return 0, err
	}
	offset, ok := pathAngleOffsets[[2]Side{from, to}]
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s", ErrPathTableMiss, from, to)
	}
	return buildingOrientation + offset, nil
}

// PathWindSpeed returns the signed component of the wind along a
// transport path's axis: positive when the wind blows from `From`
// towards `To`.
func PathWindSpeed(p *TransportPath, windSpeed, windDirection, buildingOrientation float64) (float64, error) {
	angle, err := PathAngle(p.From, p.To, buildingOrientation)
	if err != nil {
		return 0, err
	}
	return windSpeed * math.Cos(windDirection-angle), nil
}

// DischargeCoefficient returns the orifice discharge coefficient for a
// contribution at the given effective position (0 to 1) down a path
// (§4.4).
func DischargeCoefficient(position float64) float64 {
	return 0.7 / (1 + position)
}

// FlowAdvection computes the orifice-flow advective flow magnitude
// through an aperture of area `areaM2` given the wind component through
// it, the discharge coefficient, the upwind/downwind pressure
// coefficients, and the air density (§4.4).
func FlowAdvection(windComponent, areaM2, dischargeCoeff, cpUp, cpDown, airDensity float64) float64 {
	pUpwind := 0.5 * airDensity * windComponent * windComponent * cpUp
	pDownwind := 0.5 * airDensity * windComponent * windComponent * cpDown
	deltaP := pUpwind - pDownwind
	flowCoeff := dischargeCoeff * areaM2
	return flowCoeff * math.Sqrt(2/airDensity) * math.Sqrt(deltaP)
}

// ExchangeCategory is the priority-ordered classification used to pick an
// exchange-flow policy value when no path gives nonzero advective flow
// through an aperture (§4.4).
type ExchangeCategory int

const (
	// CategoryCrossVentilated: either endpoint room lies on some path
	// with nonzero path wind speed.
	CategoryCrossVentilated ExchangeCategory = 1
	// CategoryOutdoor: the aperture itself opens to the outside.
	CategoryOutdoor ExchangeCategory = 2
	// CategoryCoastal: neither of the above, but some endpoint room has
	// any outside-opening aperture.
	CategoryCoastal ExchangeCategory = 3
	// CategoryLandlocked: none of the above.
	CategoryLandlocked ExchangeCategory = 4
)

// Fluxes is the pair of volumetric flow magnitudes through one aperture:
// from its origin to its destination, and vice versa. Exactly one of
// advection-only (one slot nonzero) or exchange-only (both slots equal)
// holds at any time (§8, Advective exclusivity).
type Fluxes struct {
	FromOriginToDest *unit.Unit // m3/s
	FromDestToOrigin *unit.Unit // m3/s
}

// OriginToDestM3S returns the origin->destination flow in plain m3/s.
func (f Fluxes) OriginToDestM3S() float64 { return f.FromOriginToDest.Value() }

// DestToOriginM3S returns the destination->origin flow in plain m3/s.
func (f Fluxes) DestToOriginM3S() float64 { return f.FromDestToOrigin.Value() }

// ExchangePolicy supplies the exchange-flow value for a given category
// (§4.4). The default policy returns zero for every category, leaving the
// buoyancy/stack/leakage closure as future work (Open Question in
// spec.md §9).
type ExchangePolicy interface {
	ExchangeFlow(category ExchangeCategory) float64
}

// ZeroExchangePolicy is the default ExchangePolicy: no exchange flow in
// any category.
type ZeroExchangePolicy struct{}

// ExchangeFlow always returns 0.
func (ZeroExchangePolicy) ExchangeFlow(ExchangeCategory) float64 { return 0 }

// ExpressionExchangePolicy supplies a per-category exchange-flow value by
// evaluating a govaluate expression over the category number, letting a
// caller plug in a buoyancy/leakage closure from configuration without
// recompiling. Falls back to 0 if no expression is registered for a
// category.
type ExpressionExchangePolicy struct {
	expressions map[ExchangeCategory]*govaluate.EvaluableExpression
}

// NewExpressionExchangePolicy compiles one govaluate expression per
// exchange category. Each expression may reference the variable
// `category` (its own numeric category, 1-4).
func NewExpressionExchangePolicy(exprByCategory map[ExchangeCategory]string) (*ExpressionExchangePolicy, error) {
	compiled := make(map[ExchangeCategory]*govaluate.EvaluableExpression, len(exprByCategory))
	for cat, src := range exprByCategory {
		expr, err := govaluate.NewEvaluableExpression(src)
		if err != nil {
			return nil, fmt.Errorf("multiroom: exchange policy expression for category %d: %w", cat, err)
		}
		compiled[cat] = expr
	}
	return &ExpressionExchangePolicy{expressions: compiled}, nil
}

// ExchangeFlow evaluates the compiled expression for the given category,
// or returns 0 if none was registered.
func (p *ExpressionExchangePolicy) ExchangeFlow(category ExchangeCategory) float64 {
	expr, ok := p.expressions[category]
	if !ok {
		return 0
	}
	result, err := expr.Evaluate(map[string]interface{}{"category": float64(category)})
	if err != nil {
		return 0
	}
	v, ok := result.(float64)
	if !ok {
		return 0
	}
	return v
}

// PhysicsConstants are the per-run physical parameters used by the
// aperture flow model: air density, upwind/downwind pressure coefficients,
// and the building's compass orientation.
type PhysicsConstants struct {
	AirDensity          float64 // kg/m3
	UpwindPressureCoeff float64
	DownwindPressureCoeff float64
	BuildingOrientation float64 // radians
}

// Validate checks GraphConfig invariants: upwind >= downwind (§7).
func (c PhysicsConstants) Validate() error {
	if c.UpwindPressureCoeff < c.DownwindPressureCoeff {
		return ErrGraphConfig
	}
	return nil
}

// contribution records how one transport path contributes to an
// aperture's flow calculation (§4.4).
type contribution struct {
	path             *TransportPath
	reversed         bool
	positionDownPath float64
}

// ApertureCalculation caches, once per aperture, the data needed to
// compute its Fluxes at any wind state: which paths it sits on (and
// where), whether it's outdoor-facing, and whether either endpoint room
// has any outdoor aperture. This is the "cached ApertureCalculation"
// consulted in Phase B of the scheduler (§5).
type ApertureCalculation struct {
	aperture              *Aperture
	contributions         []contribution
	isOutdoorAperture     bool
	originHasOutdoorAp    bool
	destHasOutdoorAp      bool
	originCrossVentPaths  []*TransportPath
	destCrossVentPaths    []*TransportPath
	physics               PhysicsConstants
	policy                ExchangePolicy
}

// roomHasOutdoorAperture reports whether any aperture in apertures
// originates at room roomIdx and opens to the outside.
func roomHasOutdoorAperture(g *Graph, roomIdx int) bool {
	for _, apIdx := range g.AperturesForRoom(roomIdx) {
		a := g.Aperture(apIdx)
		if a.OriginRoomIndex == roomIdx && a.IsOutside() {
			return true
		}
	}
	return false
}

// roomOnPath reports whether a room participates in a transport path (as
// an endpoint of one of its apertures).
func roomOnPath(g *Graph, roomIdx int, p *TransportPath) bool {
	for _, step := range p.Steps {
		a := g.Aperture(step.ApertureIndex)
		if a.OriginRoomIndex == roomIdx || (!a.IsOutside() && a.DestRoomIndex == roomIdx) {
			return true
		}
	}
	return false
}

// BuildApertureCalculation precomputes an ApertureCalculation for one
// aperture given the full set of enumerated transport paths.
func BuildApertureCalculation(g *Graph, a *Aperture, allPaths []*TransportPath, physics PhysicsConstants, policy ExchangePolicy) (*ApertureCalculation, error) {
	if err := physics.Validate(); err != nil {
		return nil, err
	}
	if policy == nil {
		policy = ZeroExchangePolicy{}
	}
	ac := &ApertureCalculation{
		aperture:          a,
		isOutdoorAperture: a.IsOutside(),
		physics:           physics,
		policy:            policy,
	}
	ac.originHasOutdoorAp = roomHasOutdoorAperture(g, a.OriginRoomIndex)
	if !a.IsOutside() {
		ac.destHasOutdoorAp = roomHasOutdoorAperture(g, a.DestRoomIndex)
	}
	for _, p := range allPaths {
		for i, step := range p.Steps {
			if step.ApertureIndex != a.Index {
				continue
			}
			ac.contributions = append(ac.contributions, contribution{
				path:             p,
				reversed:         step.Reversed,
				positionDownPath: float64(i) / float64(len(p.Steps)-1),
			})
		}
		if roomOnPath(g, a.OriginRoomIndex, p) {
			ac.originCrossVentPaths = append(ac.originCrossVentPaths, p)
		}
		if !a.IsOutside() && roomOnPath(g, a.DestRoomIndex, p) {
			ac.destCrossVentPaths = append(ac.destCrossVentPaths, p)
		}
	}
	return ac, nil
}

// isCrossVentilated reports whether any of the given paths has a path
// wind speed exceeding the zero-advection tolerance under the given wind.
func isCrossVentilated(paths []*TransportPath, windSpeed, windDirection, buildingOrientation float64) bool {
	for _, p := range paths {
		v, err := PathWindSpeed(p, windSpeed, windDirection, buildingOrientation)
		if err != nil {
			continue
		}
		if math.Abs(v) > ZeroAdvectionTolerance {
			return true
		}
	}
	return false
}

// AdvectionFlowRate returns the signed sum of advective flow through the
// aperture (positive: origin->destination), summing each path's
// contribution (§4.4).
func (ac *ApertureCalculation) AdvectionFlowRate(windSpeed, windDirection float64) (float64, error) {
	var sum float64
	for _, c := range ac.contributions {
		pathWindSpeed, err := PathWindSpeed(c.path, windSpeed, windDirection, ac.physics.BuildingOrientation)
		if err != nil {
			return 0, err
		}
		position := c.positionDownPath
		if pathWindSpeed <= 0 {
			position = 1 - c.positionDownPath
		}
		pathWindSign := 1.0
		if pathWindSpeed < 0 {
			pathWindSign = -1
		}
		reversedSign := 1.0
		if c.reversed {
			reversedSign = -1
		}
		sign := pathWindSign * reversedSign

		dischargeCoeff := DischargeCoefficient(position)
		magnitude := FlowAdvection(pathWindSpeed, ac.aperture.AreaM2, dischargeCoeff,
			ac.physics.UpwindPressureCoeff, ac.physics.DownwindPressureCoeff, ac.physics.AirDensity)
		sum += sign * magnitude
	}
	return sum, nil
}

// ExchangeCategoryFor returns the aperture's exchange category under the
// given wind conditions (§4.4).
func (ac *ApertureCalculation) ExchangeCategoryFor(windSpeed, windDirection float64) ExchangeCategory {
	if isCrossVentilated(ac.originCrossVentPaths, windSpeed, windDirection, ac.physics.BuildingOrientation) {
		return CategoryCrossVentilated
	}
	if !ac.isOutdoorAperture && isCrossVentilated(ac.destCrossVentPaths, windSpeed, windDirection, ac.physics.BuildingOrientation) {
		return CategoryCrossVentilated
	}
	if ac.isOutdoorAperture {
		return CategoryOutdoor
	}
	if ac.originHasOutdoorAp || ac.destHasOutdoorAp {
		return CategoryCoastal
	}
	return CategoryLandlocked
}

// Compute returns the aperture's Fluxes at the given wind conditions:
// advection-only if the summed signed advective flow is above tolerance,
// otherwise exchange-only (§4.4, §8 Advective exclusivity).
func (ac *ApertureCalculation) Compute(windSpeed, windDirection float64) (Fluxes, error) {
	advection, err := ac.AdvectionFlowRate(windSpeed, windDirection)
	if err != nil {
		return Fluxes{}, err
	}
	switch {
	case advection > ZeroAdvectionTolerance:
		return Fluxes{FromOriginToDest: cubicMetersPerSecond(advection), FromDestToOrigin: cubicMetersPerSecond(0)}, nil
	case advection < -ZeroAdvectionTolerance:
		return Fluxes{FromOriginToDest: cubicMetersPerSecond(0), FromDestToOrigin: cubicMetersPerSecond(-advection)}, nil
	default:
		category := ac.ExchangeCategoryFor(windSpeed, windDirection)
		exchange := ac.policy.ExchangeFlow(category)
		return Fluxes{FromOriginToDest: cubicMetersPerSecond(exchange), FromDestToOrigin: cubicMetersPerSecond(exchange)}, nil
	}
}
