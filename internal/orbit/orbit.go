// Package orbit computes the roaming path of an unfrozen ghost.
//
// The path is a figure-eight (lemniscate of Gerono) in the horizontal plane around the
// ghost's anchor, with an independent vertical bob and a slow continuous yaw. Everything is
// a pure function of elapsed time, so the path can be sampled or restarted at any time.
// Pose(t+Period) matches Pose(t) only in x and z: the bob and yaw run at their own rates
// and do not repeat with the figure-eight, so callers must not expect height or
// orientation to come back after one Period.
package orbit

import (
	"math"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// path frequency multipliers
const (
	pathRate = 1.3
	bobRate  = 1.6
	yawRate  = 0.4
)

// Params shape the figure-eight. Distances are in scene units.
type Params struct {
	Radius       float64 `json:"radius" mapstructure:"radius"`
	Speed        float64 `json:"speed" mapstructure:"speed"`
	Height       float64 `json:"height" mapstructure:"height"`
	BobAmplitude float64 `json:"bobAmplitude" mapstructure:"bobAmplitude"`
}

// DefaultParams returns the stock roaming shape.
func DefaultParams() Params {
	return Params{
		Radius:       0.9,
		Speed:        0.75,
		Height:       0.35,
		BobAmplitude: 0.08,
	}
}

// Choreographer samples the roaming path.
type Choreographer struct {
	params Params
}

func New(p Params) Choreographer {
	return Choreographer{params: p}
}

func (c Choreographer) Params() Params {
	return c.params
}

// Pose returns the ghost's offset from its anchor and its orientation at elapsed seconds.
func (c Choreographer) Pose(elapsed float64) (core.Vec3, core.Quat) {
	t := elapsed * c.params.Speed * pathRate
	sin, cos := math.Sincos(t)

	pos := core.Vec3{
		X: sin * c.params.Radius,
		Y: c.params.Height + math.Sin(elapsed*bobRate)*c.params.BobAmplitude,
		Z: sin * cos * c.params.Radius,
	}
	return pos, core.Yaw(elapsed * yawRate)
}

// Period is the time for one full figure-eight in the horizontal plane.
// Bob and yaw run on their own clocks and only line up with it by coincidence.
// A zero speed never completes a loop and returns +Inf.
func (c Choreographer) Period() float64 {
	rate := c.params.Speed * pathRate
	if rate == 0 {
		return math.Inf(1)
	}
	return 2 * math.Pi / math.Abs(rate)
}
