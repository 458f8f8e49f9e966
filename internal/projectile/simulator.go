package projectile

import (
	"math"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// MaxSteerCap bounds the per-tick homing blend. At 0.5 a bolt flying directly away from the
// target would blend to a zero vector, so the cap stays strictly below it.
const MaxSteerCap = 0.45

// Config holds the flight parameters shared by every projectile of a simulator.
// A non-positive Lifetime, MaxTravel or Range disables that budget.
type Config struct {
	Speed         float64 `json:"speed" mapstructure:"speed"`
	SpawnOffset   float64 `json:"spawnOffset" mapstructure:"spawnOffset"`
	HitRadius     float64 `json:"hitRadius" mapstructure:"hitRadius"`
	Range         float64 `json:"range" mapstructure:"range"`
	MaxTravel     float64 `json:"maxTravel" mapstructure:"maxTravel"`
	Lifetime      float64 `json:"lifetime" mapstructure:"lifetime"`
	HomingDelay   float64 `json:"homingDelay" mapstructure:"homingDelay"`
	SteerStrength float64 `json:"steerStrength" mapstructure:"steerStrength"`
	SteerCap      float64 `json:"steerCap" mapstructure:"steerCap"`
}

// DefaultConfig returns the stock bolt tuning.
func DefaultConfig() Config {
	return Config{
		Speed:         10,
		SpawnOffset:   0.25,
		HitRadius:     0.14,
		Range:         20,
		MaxTravel:     30,
		Lifetime:      3,
		HomingDelay:   0.08,
		SteerStrength: 6,
		SteerCap:      0.35,
	}
}

// MaxTurn is the largest angle in radians a single tick of homing can rotate a velocity
// when the blend factor is k.
func MaxTurn(k float64) float64 {
	k = core.Clamp(k, 0, MaxSteerCap)
	return math.Asin(k / (1 - k))
}

// Result lists what happened to projectiles during one Advance call.
type Result struct {
	Hits    []ID
	Expired []ID
}

// Hit reports whether any projectile struck the target.
func (r Result) Hit() bool {
	return len(r.Hits) > 0
}

// Simulator owns the live projectiles. It is not safe for concurrent use.
type Simulator struct {
	cfg  Config
	next ID
	live []*Projectile
}

func NewSimulator(cfg Config) *Simulator {
	cfg.SteerCap = core.Clamp(cfg.SteerCap, 0, MaxSteerCap)
	return &Simulator{cfg: cfg}
}

func (s *Simulator) Config() Config {
	return s.cfg
}

// Spawn launches a projectile from origin along direction. The direction is normalized
// here; a degenerate one falls back to the scene forward axis.
func (s *Simulator) Spawn(origin, direction core.Vec3, speed float64, style Style) ID {
	s.next++
	dir := direction.Normalized(core.Forward)
	p := &Projectile{
		ID:          s.next,
		Origin:      origin,
		Position:    origin,
		Velocity:    dir.Scale(speed),
		Speed:       speed,
		HomingAfter: s.cfg.HomingDelay,
		Lifetime:    s.cfg.Lifetime,
		MaxTravel:   s.cfg.MaxTravel,
		Style:       style,
	}
	if p.Style.RollSign == 0 {
		p.Style.RollSign = 1
	}
	s.live = append(s.live, p)
	return p.ID
}

// Advance moves every projectile by dt seconds toward target.
//
// Per projectile, in spawn order: integrate position, steer toward the target once past the
// homing delay, test for a hit, then test the expiry budgets. Hits only count while the
// target is not frozen, and the first hit of a call freezes it for the rest of the call.
func (s *Simulator) Advance(dt float64, target core.Vec3, targetFrozen bool) Result {
	var res Result
	if dt < 0 {
		dt = 0
	}
	frozen := targetFrozen
	k := core.Clamp(s.cfg.SteerStrength*dt, 0, s.cfg.SteerCap)

	alive := s.live[:0]
	for _, p := range s.live {
		p.Age += dt
		step := p.Velocity.Scale(dt)
		p.Position = p.Position.Add(step)
		p.Traveled += step.Len()

		if !frozen && p.Age > p.HomingAfter && k > 0 {
			steer(p, target, k)
		}

		if !frozen && p.Position.Dist(target) <= s.cfg.HitRadius {
			res.Hits = append(res.Hits, p.ID)
			frozen = true
			continue
		}

		if p.expired(s.cfg.Range) {
			res.Expired = append(res.Expired, p.ID)
			continue
		}
		alive = append(alive, p)
	}
	for i := len(alive); i < len(s.live); i++ {
		s.live[i] = nil
	}
	s.live = alive
	return res
}

// steer blends the flight direction toward the target by factor k, keeping speed.
func steer(p *Projectile, target core.Vec3, k float64) {
	dir := p.Direction()
	desired := target.Sub(p.Position).Normalized(dir)
	blended := dir.Add(desired.Sub(dir).Scale(k)).Normalized(dir)
	p.Velocity = blended.Scale(p.Speed)
}

// Remove drops a projectile without reporting it. Returns false if it was not live.
func (s *Simulator) Remove(id ID) bool {
	for i, p := range s.live {
		if p.ID == id {
			copy(s.live[i:], s.live[i+1:])
			s.live[len(s.live)-1] = nil
			s.live = s.live[:len(s.live)-1]
			return true
		}
	}
	return false
}

// Get returns a copy of a live projectile.
func (s *Simulator) Get(id ID) (Projectile, bool) {
	for _, p := range s.live {
		if p.ID == id {
			return *p, true
		}
	}
	return Projectile{}, false
}

// Live returns copies of all live projectiles in spawn order.
func (s *Simulator) Live() []Projectile {
	out := make([]Projectile, len(s.live))
	for i, p := range s.live {
		out[i] = *p
	}
	return out
}

func (s *Simulator) Len() int {
	return len(s.live)
}

// Clear removes every projectile and returns their ids.
func (s *Simulator) Clear() []ID {
	ids := make([]ID, len(s.live))
	for i, p := range s.live {
		ids[i] = p.ID
		s.live[i] = nil
	}
	s.live = s.live[:0]
	return ids
}
