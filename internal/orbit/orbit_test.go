package orbit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPose_StartsAtAnchorHeight(t *testing.T) {
	c := New(DefaultParams())

	pos, rot := c.Pose(0)
	assert.InDelta(t, 0, pos.X, 1e-12)
	assert.InDelta(t, 0.35, pos.Y, 1e-12)
	assert.InDelta(t, 0, pos.Z, 1e-12)
	assert.InDelta(t, 1, rot.W, 1e-12)
}

func TestPose_HorizontalPathIsPeriodic(t *testing.T) {
	c := New(DefaultParams())
	period := c.Period()
	assert.InDelta(t, 2*math.Pi/(0.75*1.3), period, 1e-12)

	for _, elapsed := range []float64{0, 0.37, 1.5, 4.2, 17.9} {
		a, _ := c.Pose(elapsed)
		b, _ := c.Pose(elapsed + period)
		assert.InDelta(t, a.X, b.X, 1e-9, "x at %v", elapsed)
		assert.InDelta(t, a.Z, b.Z, 1e-9, "z at %v", elapsed)
	}
}

func TestPose_BobAndYawDoNotFollowPeriod(t *testing.T) {
	c := New(DefaultParams())
	period := c.Period()

	a, ra := c.Pose(0.37)
	b, rb := c.Pose(0.37 + period)
	assert.Greater(t, math.Abs(a.Y-b.Y), 0.05)
	assert.Greater(t, math.Abs(ra.W-rb.W), 0.1)
}

func TestPose_FigureEightCrossesAnchor(t *testing.T) {
	c := New(DefaultParams())
	half := c.Period() / 2

	pos, _ := c.Pose(half)
	assert.InDelta(t, 0, pos.X, 1e-9)
	assert.InDelta(t, 0, pos.Z, 1e-9)

	// Quarter period is the outermost lobe point.
	pos, _ = c.Pose(c.Period() / 4)
	assert.InDelta(t, 0.9, pos.X, 1e-9)
}

func TestPose_StaysWithinBounds(t *testing.T) {
	p := DefaultParams()
	c := New(p)

	for i := 0; i < 2000; i++ {
		pos, rot := c.Pose(float64(i) * 0.013)
		assert.LessOrEqual(t, math.Abs(pos.X), p.Radius+1e-12)
		assert.LessOrEqual(t, math.Abs(pos.Z), p.Radius/2+1e-12)
		assert.LessOrEqual(t, math.Abs(pos.Y-p.Height), p.BobAmplitude+1e-12)
		assert.InDelta(t, 1, rot.W*rot.W+rot.Y*rot.Y, 1e-9)
	}
}

func TestPose_Stateless(t *testing.T) {
	c := New(DefaultParams())
	a, ra := c.Pose(3.3)
	c.Pose(100)
	b, rb := c.Pose(3.3)
	assert.Equal(t, a, b)
	assert.Equal(t, ra, rb)
}

func TestPeriod_ZeroSpeed(t *testing.T) {
	c := New(Params{Radius: 1})
	assert.True(t, math.IsInf(c.Period(), 1))
}
