// Package projectile simulates the energy bolts fired at a ghost: flight integration,
// bounded homing, hit detection against a single target and budget-based expiry.
package projectile

import (
	"math"
	"math/rand/v2"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// ID identifies a projectile within one Simulator. IDs are issued sequentially from 1.
type ID uint64

// visual constants
const (
	weaveAmplitude = 0.08 // meters
	weaveFrequency = 6.0  // Hz
	weaveRamp      = 0.2  // seconds until the weave reaches full amplitude
	spinRate       = 5.0  // rad/s
	pulseFrequency = 3.0  // Hz
	fadeOut        = 0.4  // seconds before lifetime end
)

// Palette is the set of hues a bolt can be drawn with.
var Palette = []float64{0.0, 0.08, 0.55, 0.83}

// Style holds the random visual parameters drawn once at spawn.
type Style struct {
	RollSign   float64 // +1 or -1
	Hue        float64 // 0..1
	PulsePhase float64 // radians
}

// DefaultStyle is used when no randomness is wanted.
func DefaultStyle() Style {
	return Style{RollSign: 1}
}

// RandomStyle draws a style from rng.
func RandomStyle(rng *rand.Rand) Style {
	s := Style{
		RollSign:   1,
		Hue:        Palette[rng.IntN(len(Palette))],
		PulsePhase: rng.Float64() * 2 * math.Pi,
	}
	if rng.IntN(2) == 0 {
		s.RollSign = -1
	}
	return s
}

// Projectile is one bolt in flight.
type Projectile struct {
	ID       ID
	Origin   core.Vec3
	Position core.Vec3
	Velocity core.Vec3
	Speed    float64

	Age      float64
	Traveled float64

	HomingAfter float64
	Lifetime    float64
	MaxTravel   float64

	Style Style
}

// Direction is the unit flight direction.
func (p *Projectile) Direction() core.Vec3 {
	return p.Velocity.Normalized(core.Forward)
}

// Visual describes how a projectile should be drawn at its current age.
type Visual struct {
	Position    core.Vec3 // flight position plus lateral weave
	Orientation core.Quat // long axis along flight direction, rolled
	Alpha       float64
	Hue         float64
}

// Visual derives the draw parameters. It depends only on age, direction and style,
// so it never feeds back into the simulation.
func (p *Projectile) Visual() Visual {
	dir := p.Direction()
	lateral := dir.Cross(core.Up)
	if lateral.Len() < core.MinDirectionLength {
		lateral = dir.Cross(core.AxisX)
	}
	lateral = lateral.Normalized(core.AxisX)

	ramp := core.Clamp(p.Age/weaveRamp, 0, 1)
	weave := math.Sin(p.Age*2*math.Pi*weaveFrequency) * weaveAmplitude * ramp

	base := core.FromTo(core.Up, dir)
	roll := core.AxisAngle(dir, p.Age*spinRate*p.Style.RollSign)

	alpha := 0.8 + 0.2*math.Sin(p.Age*2*math.Pi*pulseFrequency+p.Style.PulsePhase)
	if p.Lifetime > 0 {
		alpha *= core.Clamp((p.Lifetime-p.Age)/fadeOut, 0, 1)
	}

	return Visual{
		Position:    p.Position.Add(lateral.Scale(weave)),
		Orientation: roll.Mul(base),
		Alpha:       alpha,
		Hue:         p.Style.Hue,
	}
}

func (p *Projectile) expired(maxRange float64) bool {
	if p.Lifetime > 0 && p.Age >= p.Lifetime {
		return true
	}
	if p.MaxTravel > 0 && p.Traveled >= p.MaxTravel {
		return true
	}
	return maxRange > 0 && p.Position.Dist(p.Origin) > maxRange
}
