package multiroom

import (
	"errors"
	"math"
	"testing"
)

func TestDischargeCoefficient(t *testing.T) {
	cases := []struct{ position, want float64 }{
		{0, 0.7}, {1, 0.35},
	}
	for _, c := range cases {
		if got := DischargeCoefficient(c.position); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("DischargeCoefficient(%g) = %g, want %g", c.position, got, c.want)
		}
	}
}

func TestPhysicsConstantsValidate(t *testing.T) {
	good := PhysicsConstants{UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5}
	if err := good.Validate(); err != nil {
		t.Errorf("upwind >= downwind: want nil, got %v", err)
	}
	bad := PhysicsConstants{UpwindPressureCoeff: -0.5, DownwindPressureCoeff: 0.5}
	if err := bad.Validate(); err != ErrGraphConfig {
		t.Errorf("upwind < downwind: want ErrGraphConfig, got %v", err)
	}
}

func TestPathAngleRejectsNonCardinal(t *testing.T) {
	if _, err := PathAngle(Front, Upward, 0); !errors.Is(err, ErrPathTableMiss) {
		t.Errorf("Front->Upward: want ErrPathTableMiss, got %v", err)
	}
}

func TestPathAngleAnchors(t *testing.T) {
	cases := []struct {
		from, to Side
		want     float64
	}{
		{Back, Front, 0},
		{Front, Back, math.Pi},
		{Left, Right, math.Pi / 2},
		{Right, Left, -math.Pi / 2},
	}
	for _, c := range cases {
		got, err := PathAngle(c.from, c.to, 0)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-c.want) > 1e-12 {
			t.Errorf("PathAngle(%s,%s) = %g, want %g", c.from, c.to, got, c.want)
		}
	}
}

// buildOneRoomTwoOutsideApertures constructs scenario S1/S2 from spec.md
// §8: a single 10 m3 room with Front and Back apertures, each 10 m2.
func buildOneRoomTwoOutsideApertures(t *testing.T) (*Graph, []*TransportPath) {
	t.Helper()
	room := newTestRoom("r1", 10)
	apertures := []*Aperture{
		{OriginRoomIndex: 0, DestRoomIndex: -1, DestSide: Front, AreaM2: 10},
		{OriginRoomIndex: 0, DestRoomIndex: -1, DestSide: Back, AreaM2: 10},
	}
	g, err := NewGraph([]*Room{room}, apertures)
	if err != nil {
		t.Fatal(err)
	}
	paths, err := EnumeratePaths(g)
	if err != nil {
		t.Fatal(err)
	}
	return g, paths
}

// TestS1ZeroWindZeroExchangeGivesZeroMatrix covers spec.md §8 scenario S1.
func TestS1ZeroWindZeroExchangeGivesZeroMatrix(t *testing.T) {
	g, paths := buildOneRoomTwoOutsideApertures(t)
	physics := PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5, BuildingOrientation: math.Pi}
	wind := &WindState{Speed: flatSeries(0), Direction: flatSeries(0), BuildingOrientation: math.Pi}

	var calcs []*ApertureCalculation
	for _, a := range g.Apertures() {
		ac, err := BuildApertureCalculation(g, a, paths, physics, nil)
		if err != nil {
			t.Fatal(err)
		}
		calcs = append(calcs, ac)
	}
	m, err := AssembleFlowMatrix(g, calcs, wind, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i <= m.N(); i++ {
		for j := 0; j <= m.N(); j++ {
			if m.At(i, j) != 0 {
				t.Errorf("At(%d,%d) = %g, want 0 (zero wind, default zero-exchange policy)", i, j, m.At(i, j))
			}
		}
	}
}

// TestS2WindFromFrontGivesPositiveFluxesBothWays covers spec.md §8
// scenario S2: at building_orientation = pi (Front faces South) and wind
// 1 m/s from the Front axis, both trans_matrix[0,1] (outside->room via
// the Front aperture, position 0) and trans_matrix[1,0] (room->outside
// via the Back aperture, position 1) are strictly positive.
func TestS2WindFromFrontGivesPositiveFluxesBothWays(t *testing.T) {
	g, paths := buildOneRoomTwoOutsideApertures(t)
	physics := PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5, BuildingOrientation: math.Pi}
	wind := &WindState{Speed: flatSeries(1), Direction: flatSeries(0), BuildingOrientation: math.Pi}

	var calcs []*ApertureCalculation
	for _, a := range g.Apertures() {
		ac, err := BuildApertureCalculation(g, a, paths, physics, nil)
		if err != nil {
			t.Fatal(err)
		}
		calcs = append(calcs, ac)
	}
	m, err := AssembleFlowMatrix(g, calcs, wind, 0)
	if err != nil {
		t.Fatal(err)
	}
	if m.At(0, 1) <= 0 {
		t.Errorf("trans_matrix[0,1] = %g, want strictly positive", m.At(0, 1))
	}
	if m.At(1, 0) <= 0 {
		t.Errorf("trans_matrix[1,0] = %g, want strictly positive", m.At(1, 0))
	}
	wantFront := FlowAdvection(1, 10, DischargeCoefficient(0), physics.UpwindPressureCoeff, physics.DownwindPressureCoeff, physics.AirDensity)
	wantBack := FlowAdvection(1, 10, DischargeCoefficient(1), physics.UpwindPressureCoeff, physics.DownwindPressureCoeff, physics.AirDensity)
	if math.Abs(m.At(0, 1)-wantFront) > 1e-9 {
		t.Errorf("trans_matrix[0,1] = %g, want %g", m.At(0, 1), wantFront)
	}
	if math.Abs(m.At(1, 0)-wantBack) > 1e-9 {
		t.Errorf("trans_matrix[1,0] = %g, want %g", m.At(1, 0), wantBack)
	}
}

// TestAdvectiveExclusivity covers the universal property from spec.md §8:
// Fluxes is either advection-only or exchange-only, never both.
func TestAdvectiveExclusivity(t *testing.T) {
	g, paths := buildOneRoomTwoOutsideApertures(t)
	physics := PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5}
	ac, err := BuildApertureCalculation(g, g.Aperture(0), paths, physics, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, windSpeed := range []float64{0, 0.5, 1, 3} {
		f, err := ac.Compute(windSpeed, 0)
		if err != nil {
			t.Fatal(err)
		}
		o2d, d2o := f.OriginToDestM3S(), f.DestToOriginM3S()
		advectionOnly := (o2d > ZeroAdvectionTolerance && d2o == 0) || (d2o > ZeroAdvectionTolerance && o2d == 0)
		exchangeOnly := o2d == d2o
		if !advectionOnly && !exchangeOnly {
			t.Errorf("windSpeed=%g: fluxes (%g,%g) are neither advection-only nor exchange-only", windSpeed, o2d, d2o)
		}
	}
}

// TestSignConsistency covers the universal property from spec.md §8:
// reversing wind direction by pi flips the advective slot assignment and
// preserves the magnitude.
func TestSignConsistency(t *testing.T) {
	g, paths := buildOneRoomTwoOutsideApertures(t)
	physics := PhysicsConstants{AirDensity: 1.2, UpwindPressureCoeff: 0.5, DownwindPressureCoeff: -0.5}
	ac, err := BuildApertureCalculation(g, g.Aperture(0), paths, physics, nil)
	if err != nil {
		t.Fatal(err)
	}
	f1, err := ac.Compute(1, 0)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := ac.Compute(1, math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	if f1.OriginToDestM3S() > 0 && f2.DestToOriginM3S() <= 0 {
		t.Errorf("reversing wind by pi should flip the nonzero slot: f1=(%g,%g) f2=(%g,%g)",
			f1.OriginToDestM3S(), f1.DestToOriginM3S(), f2.OriginToDestM3S(), f2.DestToOriginM3S())
	}
	mag1 := math.Max(f1.OriginToDestM3S(), f1.DestToOriginM3S())
	mag2 := math.Max(f2.OriginToDestM3S(), f2.DestToOriginM3S())
	if math.Abs(mag1-mag2) > 1e-9 {
		t.Errorf("magnitude should be preserved across a pi wind-direction flip: %g vs %g", mag1, mag2)
	}
}
