// pkg/core/pose.go
package core

import "math"

// Quat is a unit rotation quaternion.
type Quat struct {
	W, X, Y, Z float64
}

// QuatIdentity is the no-op rotation.
var QuatIdentity = Quat{W: 1}

// AxisAngle builds a rotation of angle radians around axis (right-handed).
func AxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalized(Up)
	s, c := math.Sincos(angle / 2)
	return Quat{W: c, X: a.X * s, Y: a.Y * s, Z: a.Z * s}
}

// Yaw rotates around the vertical axis.
func Yaw(angle float64) Quat {
	return AxisAngle(Up, angle)
}

// FromTo is the shortest rotation taking direction from onto direction to.
func FromTo(from, to Vec3) Quat {
	a := from.Normalized(Up)
	b := to.Normalized(Up)
	d := a.Dot(b)
	if d > 1-1e-9 {
		return QuatIdentity
	}
	if d < -1+1e-9 {
		return AxisAngle(a.Orthogonal(), math.Pi)
	}
	c := a.Cross(b)
	return Quat{W: 1 + d, X: c.X, Y: c.Y, Z: c.Z}.Normalized()
}

// Mul composes rotations: q.Mul(r) applies r first, then q.
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	u := Vec3{X: q.X, Y: q.Y, Z: q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}

func (q Quat) Normalized() Quat {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n < 1e-12 {
		return QuatIdentity
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Pose is a full transform of a scene object.
type Pose struct {
	Position    Vec3
	Orientation Quat
	Scale       Vec3
}

// NewPose returns a pose at p with identity rotation and uniform scale s.
func NewPose(p Vec3, s float64) Pose {
	return Pose{Position: p, Orientation: QuatIdentity, Scale: Uniform(s)}
}

// Forward is the direction the pose looks along.
func (p Pose) Forward() Vec3 {
	return p.Orientation.Rotate(Forward).Normalized(Forward)
}
