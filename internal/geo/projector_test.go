package geo

import (
	"math"
	"testing"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-6

func assertVec(t *testing.T, want, got core.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestProjector_NoFixSkipsProjection(t *testing.T) {
	p := NewProjector(1)

	assert.False(t, p.EstablishOrigin(nil, core.Vec3{}, core.Forward, core.HeadingPtr(0)))
	assert.False(t, p.Latched())
	assert.False(t, p.RefineHeading(45))

	_, ok := p.Project(core.Coordinate{Lat: 1, Lon: 1})
	assert.False(t, ok)
	_, ok = p.Unproject(core.Vec3{X: 1})
	assert.False(t, ok)
}

func TestProjector_OriginLatchesOnce(t *testing.T) {
	p := NewProjector(1)
	first := core.CoordPtr(55.7558, 37.6173)
	require.True(t, p.EstablishOrigin(first, core.Vec3{X: 1, Y: 2, Z: 3}, core.Forward, core.HeadingPtr(0)))

	assert.False(t, p.EstablishOrigin(core.CoordPtr(10, 10), core.Vec3{X: 9}, core.AxisX, core.HeadingPtr(90)))

	o, ok := p.Origin()
	require.True(t, ok)
	assert.Equal(t, *first, o.Coordinate)
	assert.Equal(t, core.Vec3{X: 1, Y: 2, Z: 3}, o.Position)
	assertVec(t, core.Forward, o.Forward, tol)
	require.NotNil(t, o.Heading)
	assert.Equal(t, 0.0, *o.Heading)
}

func TestProjector_HeadingBackfill(t *testing.T) {
	p := NewProjector(1)
	origin := core.Coordinate{Lat: 40, Lon: 20}
	pos := core.Vec3{X: 0.5, Z: -0.5}
	require.True(t, p.EstablishOrigin(&origin, pos, core.Forward, nil))

	target := core.Coordinate{Lat: 40.0001, Lon: 20}
	before, ok := p.Project(target)
	require.True(t, ok)

	// Without heading, north is the forward direction.
	northM := radians(0.0001) * EarthRadius
	assertVec(t, pos.Add(core.Forward.Scale(northM)), before, tol)

	// Device faced east when the origin latched: north is to its left.
	require.True(t, p.EstablishOrigin(core.CoordPtr(0, 0), core.Vec3{}, core.AxisX, core.HeadingPtr(90)))
	assert.False(t, p.RefineHeading(180), "heading is only back-filled once")

	after, ok := p.Project(target)
	require.True(t, ok)
	assertVec(t, pos.Add(core.Vec3{X: -northM}), after, tol)

	o, _ := p.Origin()
	assert.Equal(t, pos, o.Position)
}

func TestProjector_OffsetMeters(t *testing.T) {
	lat0, lon0 := 48.8566, 2.3522
	delta := 0.0005

	p := NewProjector(1)
	require.True(t, p.EstablishOrigin(core.CoordPtr(lat0, lon0), core.Vec3{}, core.Forward, core.HeadingPtr(0)))

	east, north, ok := p.OffsetMeters(core.Coordinate{Lat: lat0 + delta, Lon: lon0})
	require.True(t, ok)
	assert.InDelta(t, radians(delta)*6378137, north, 1e-9)
	assert.InDelta(t, 0, east, 1e-9)

	east, north, ok = p.OffsetMeters(core.Coordinate{Lat: lat0, Lon: lon0 + delta})
	require.True(t, ok)
	assert.InDelta(t, radians(delta)*6378137*math.Cos(radians(lat0)), east, 1e-9)
	assert.InDelta(t, 0, north, 1e-9)
}

func TestProjector_HeadingRotatesBasis(t *testing.T) {
	cases := []struct {
		name    string
		heading float64
		north   core.Vec3
		east    core.Vec3
	}{
		{"facing north", 0, core.Vec3{Z: -1}, core.Vec3{X: 1}},
		{"facing east", 90, core.Vec3{X: -1}, core.Vec3{Z: -1}},
		{"facing south", 180, core.Vec3{Z: 1}, core.Vec3{X: -1}},
		{"facing west", 270, core.Vec3{X: 1}, core.Vec3{Z: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewProjector(1)
			require.True(t, p.EstablishOrigin(core.CoordPtr(0, 0), core.Vec3{}, core.Forward, core.HeadingPtr(tc.heading)))
			east, north, ok := p.Basis()
			require.True(t, ok)
			assertVec(t, tc.north, north, 1e-9)
			assertVec(t, tc.east, east, 1e-9)
		})
	}
}

func TestProjector_DegenerateForwardFallsBack(t *testing.T) {
	p := NewProjector(1)
	require.True(t, p.EstablishOrigin(core.CoordPtr(0, 0), core.Vec3{}, core.Vec3{Y: 1}, nil))

	o, _ := p.Origin()
	assertVec(t, core.Forward, o.Forward, 0)
}

func TestProjector_UnprojectInvertsProject(t *testing.T) {
	p := NewProjector(2)
	require.True(t, p.EstablishOrigin(core.CoordPtr(55.7558, 37.6173), core.Vec3{X: 3, Z: 1}, core.Vec3{X: 1, Z: -1}, core.HeadingPtr(33)))

	target := core.Coordinate{Lat: 55.7571, Lon: 37.6150}
	world, ok := p.Project(target)
	require.True(t, ok)

	back, ok := p.Unproject(world)
	require.True(t, ok)
	assert.InDelta(t, target.Lat, back.Lat, 1e-9)
	assert.InDelta(t, target.Lon, back.Lon, 1e-9)
}

func TestProjector_MoscowNorthTarget(t *testing.T) {
	p := NewProjector(1)
	require.True(t, p.EstablishOrigin(core.CoordPtr(55.7558, 37.6173), core.Vec3{}, core.Forward, core.HeadingPtr(0)))

	east, north, ok := p.OffsetMeters(core.Coordinate{Lat: 55.7568, Lon: 37.6173})
	require.True(t, ok)
	assert.InDelta(t, 111.3, north, 0.15)
	assert.InDelta(t, radians(55.7568-55.7558)*EarthRadius, north, 1e-9)
	assert.InDelta(t, 0, east, 1e-9)

	world, ok := p.Project(core.Coordinate{Lat: 55.7568, Lon: 37.6173})
	require.True(t, ok)
	assertVec(t, core.Vec3{Z: -north}, world, 1e-9)
}
