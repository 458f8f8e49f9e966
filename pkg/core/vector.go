package core

import "github.com/golang/geo/r3"

// MinDirectionLength is the shortest vector that is still trusted as a direction.
// Anything shorter is replaced by a fallback axis instead of being normalized.
const MinDirectionLength = 1e-4

// Scene axes. The scene is right-handed with +Y up and the camera looking down -Z.
var (
	AxisX   = Vec3{X: 1}
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: -1}
)

// Vec3 is a position, offset or direction in scene space (meters unless noted).
// It shares r3.Vector's layout; the arithmetic is r3's.
type Vec3 r3.Vector

func (v Vec3) r3() r3.Vector { return r3.Vector(v) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3(v.r3().Add(o.r3()))
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3(v.r3().Sub(o.r3()))
}

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3(v.r3().Mul(s))
}

// Mul multiplies component-wise.
func (v Vec3) Mul(o Vec3) Vec3 {
	return Vec3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

func (v Vec3) Dot(o Vec3) float64 {
	return v.r3().Dot(o.r3())
}

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3(v.r3().Cross(o.r3()))
}

// LenSq is the squared length, for comparisons.
func (v Vec3) LenSq() float64 {
	return v.r3().Norm2()
}

func (v Vec3) Len() float64 {
	return v.r3().Norm()
}

// Dist is the euclidean distance between two points.
func (v Vec3) Dist(o Vec3) float64 {
	return v.r3().Distance(o.r3())
}

// Lerp interpolates from v to o by t (unclamped).
func (v Vec3) Lerp(o Vec3, t float64) Vec3 {
	return v.Add(o.Sub(v).Scale(t))
}

// Horizontal drops the vertical component.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// Normalized returns the unit vector along v, or fallback when v is shorter
// than MinDirectionLength. The fallback is normalized too.
func (v Vec3) Normalized(fallback Vec3) Vec3 {
	if v.Len() < MinDirectionLength {
		if fallback.Len() < MinDirectionLength {
			return Forward
		}
		return Vec3(fallback.r3().Normalize())
	}
	return Vec3(v.r3().Normalize())
}

// Orthogonal returns some unit vector perpendicular to v.
// Crossing with Up is preferred so horizontal directions yield a horizontal result.
func (v Vec3) Orthogonal() Vec3 {
	c := v.Cross(Up)
	if c.Len() < MinDirectionLength {
		c = v.Cross(AxisX)
	}
	return c.Normalized(AxisX)
}

// AngleTo is the unsigned angle in radians between two directions.
func (v Vec3) AngleTo(o Vec3) float64 {
	a := v.Normalized(Forward).r3()
	b := o.Normalized(Forward).r3()
	return float64(a.Angle(b))
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Uniform is a scale vector with equal components.
func Uniform(s float64) Vec3 {
	return Vec3{X: s, Y: s, Z: s}
}
