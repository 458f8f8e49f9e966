package geo

import (
	"math"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// Origin is the session's world anchor: where the player stood, which way the
// device looked and, once known, the compass heading of that look direction.
type Origin struct {
	Coordinate core.Coordinate
	Position   core.Vec3
	Forward    core.Vec3 // horizontal unit vector
	Heading    *float64
}

// Projector maps geographic coordinates into scene space relative to a latched Origin.
// It is not safe for concurrent use; the hunt engine owns it on the tick goroutine.
type Projector struct {
	unitsPerMeter float64
	origin        *Origin
}

// NewProjector creates a projector. unitsPerMeter converts meters to scene units.
func NewProjector(unitsPerMeter float64) *Projector {
	if unitsPerMeter <= 0 {
		unitsPerMeter = 1
	}
	return &Projector{unitsPerMeter: unitsPerMeter}
}

// EstablishOrigin latches the origin on the first call that carries a coordinate.
// Once latched, position and forward never change; a heading is only back-filled.
// Returns true when the call latched the origin or filled in its heading.
func (p *Projector) EstablishOrigin(user *core.Coordinate, position, forward core.Vec3, heading *float64) bool {
	if p.origin != nil {
		if heading != nil {
			return p.RefineHeading(*heading)
		}
		return false
	}
	if user == nil {
		return false
	}

	o := &Origin{
		Coordinate: *user,
		Position:   position,
		Forward:    forward.Horizontal().Normalized(core.Forward),
	}
	if heading != nil {
		h := WrapDegrees(*heading)
		o.Heading = &h
	}
	p.origin = o
	return true
}

// RefineHeading sets the heading if the origin is latched and has none yet.
func (p *Projector) RefineHeading(deg float64) bool {
	if p.origin == nil || p.origin.Heading != nil {
		return false
	}
	h := WrapDegrees(deg)
	p.origin.Heading = &h
	return true
}

// Origin returns a copy of the latched origin.
func (p *Projector) Origin() (Origin, bool) {
	if p.origin == nil {
		return Origin{}, false
	}
	o := *p.origin
	if o.Heading != nil {
		h := *o.Heading
		o.Heading = &h
	}
	return o, true
}

// Latched reports whether an origin has been established.
func (p *Projector) Latched() bool {
	return p.origin != nil
}

// Basis returns the scene-space directions of geographic east and north.
// North is the origin forward turned back through the compass heading around +Y;
// without a heading the forward vector stands in for north.
func (p *Projector) Basis() (east, north core.Vec3, ok bool) {
	if p.origin == nil {
		return core.Vec3{}, core.Vec3{}, false
	}
	north = p.origin.Forward
	if p.origin.Heading != nil {
		north = core.Yaw(radians(*p.origin.Heading)).Rotate(north).Horizontal().Normalized(core.Forward)
	}
	east = north.Cross(core.Up).Normalized(core.AxisX)
	return east, north, true
}

// OffsetMeters is the equirectangular east/north displacement from the origin to target.
func (p *Projector) OffsetMeters(target core.Coordinate) (east, north float64, ok bool) {
	if p.origin == nil {
		return 0, 0, false
	}
	lat0 := radians(p.origin.Coordinate.Lat)
	north = radians(target.Lat-p.origin.Coordinate.Lat) * EarthRadius
	east = radians(target.Lon-p.origin.Coordinate.Lon) * EarthRadius * math.Cos(lat0)
	return east, north, true
}

// Project places target in scene space. ok is false until the origin is latched.
func (p *Projector) Project(target core.Coordinate) (core.Vec3, bool) {
	eastM, northM, ok := p.OffsetMeters(target)
	if !ok {
		return core.Vec3{}, false
	}
	east, north, _ := p.Basis()
	offset := east.Scale(eastM).Add(north.Scale(northM)).Scale(p.unitsPerMeter)
	return p.origin.Position.Add(offset), true
}

// Unproject maps a scene position back to a coordinate. Height is ignored.
func (p *Projector) Unproject(world core.Vec3) (core.Coordinate, bool) {
	if p.origin == nil {
		return core.Coordinate{}, false
	}
	east, north, _ := p.Basis()
	d := world.Sub(p.origin.Position).Scale(1 / p.unitsPerMeter)
	eastM := d.Dot(east)
	northM := d.Dot(north)

	lat0 := radians(p.origin.Coordinate.Lat)
	c := core.Coordinate{
		Lat: p.origin.Coordinate.Lat + degrees(northM/EarthRadius),
		Lon: p.origin.Coordinate.Lon,
	}
	if cos := math.Cos(lat0); math.Abs(cos) > 1e-12 {
		c.Lon += degrees(eastM / (EarthRadius * cos))
	}
	return c, true
}
