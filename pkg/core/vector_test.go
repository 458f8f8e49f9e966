package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: -2, Y: 0.5, Z: 4}

	assert.Equal(t, Vec3{X: -1, Y: 2.5, Z: 7}, a.Add(b))
	assert.Equal(t, Vec3{X: 3, Y: 1.5, Z: -1}, a.Sub(b))
	assert.Equal(t, Vec3{X: 2, Y: 4, Z: 6}, a.Scale(2))
	assert.Equal(t, Vec3{X: -2, Y: 1, Z: 12}, a.Mul(b))
	assert.InDelta(t, 11, a.Dot(b), 1e-12)
	assert.InDelta(t, 14, a.LenSq(), 1e-12)
	assert.InDelta(t, math.Sqrt(14), a.Len(), 1e-12)
	assert.InDelta(t, b.Sub(a).Len(), a.Dist(b), 1e-12)
	assert.Equal(t, Vec3{X: -0.5, Y: 1.25, Z: 3.5}, a.Lerp(b, 0.5))
}

func TestVec3_CrossFollowsSceneAxes(t *testing.T) {
	// forward x up points east in a right-handed +Y-up scene
	assert.Equal(t, AxisX, Forward.Cross(Up))
	assert.Zero(t, Up.Dot(Forward.Cross(Up)))
}

func TestVec3_NormalizedFallsBack(t *testing.T) {
	n := Vec3{X: 3, Z: -4}.Normalized(Forward)
	assert.InDelta(t, 1, n.Len(), 1e-12)
	assert.InDelta(t, 0.6, n.X, 1e-12)

	assert.Equal(t, AxisX, Vec3{X: 1e-6}.Normalized(Vec3{X: 5}))
	assert.Equal(t, Forward, Vec3{}.Normalized(Vec3{}))
}

func TestVec3_AngleTo(t *testing.T) {
	assert.InDelta(t, math.Pi/2, AxisX.AngleTo(Up), 1e-12)
	assert.InDelta(t, math.Pi, Forward.AngleTo(Forward.Scale(-3)), 1e-12)
	assert.InDelta(t, 0, Vec3{Z: -2}.AngleTo(Vec3{}), 1e-12, "zero length stands in for forward")
}

func TestVec3_Orthogonal(t *testing.T) {
	for _, v := range []Vec3{Forward, Up, {X: 1, Y: 1, Z: 1}} {
		o := v.Orthogonal()
		assert.InDelta(t, 1, o.Len(), 1e-12)
		assert.InDelta(t, 0, o.Dot(v), 1e-12)
	}
}
