// Package radar turns the player's position and heading into the scanner view of a ghost:
// distance, direction and the zone gates that unlock the AR fight.
package radar

import (
	"math"

	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

const (
	DefaultRangeMeters = 100.0
	DefaultWaveSeconds = 3.0

	// The blip is pinned just inside the rim, the wave starts just outside it.
	blipEdge = 0.96
	waveEdge = 1.1
)

type Config struct {
	RangeMeters float64 `json:"rangeMeters" mapstructure:"rangeMeters"`
	WaveSeconds float64 `json:"waveSeconds" mapstructure:"waveSeconds"`
}

func DefaultConfig() Config {
	return Config{RangeMeters: DefaultRangeMeters, WaveSeconds: DefaultWaveSeconds}
}

// Offset is a radar-plane vector in meters. +DX is right and +DY is down, so "up" is
// the look direction when a heading is known and north otherwise.
type Offset struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func (o Offset) Len() float64 {
	return math.Hypot(o.DX, o.DY)
}

func (o Offset) scaled(k float64) Offset {
	return Offset{DX: o.DX * k, DY: o.DY * k}
}

// Reading is one scan of a ghost.
type Reading struct {
	Distance   float64  `json:"distance"`
	Bearing    float64  `json:"bearing"`
	Relative   *float64 `json:"relative,omitempty"` // bearing minus heading
	HeadingUp  bool     `json:"headingUp"`
	Offset     Offset   `json:"offset"`
	Blip       Offset   `json:"blip"`       // Offset pinned inside the radar rim
	WaveOrigin Offset   `json:"waveOrigin"` // Offset, pushed outside the rim when out of range
	InRange    bool     `json:"inRange"`
	InMainZone bool     `json:"inMainZone"`
	CanFight   bool     `json:"canFight"`
}

// Pulse is the state of the expanding scanner wave.
type Pulse struct {
	Phase   float64 `json:"phase"`  // in [0, 1)
	Radius  float64 `json:"radius"` // fraction of the radar radius, reaches 2 at the end of the wave
	Opacity float64 `json:"opacity"`
}

type Scanner struct {
	cfg Config
}

// NewScanner fills unset config fields with defaults.
func NewScanner(cfg Config) *Scanner {
	if cfg.RangeMeters <= 0 {
		cfg.RangeMeters = DefaultRangeMeters
	}
	if cfg.WaveSeconds <= 0 {
		cfg.WaveSeconds = DefaultWaveSeconds
	}
	return &Scanner{cfg: cfg}
}

func (s *Scanner) Config() Config {
	return s.cfg
}

// Scan locates ghost relative to user. With a heading the radar is rotated so the look
// direction is up; without one it falls back to north-up web-mercator deltas.
func (s *Scanner) Scan(user core.Coordinate, heading *float64, ghost core.Ghost) Reading {
	d := geo.Distance(user, ghost.Current)
	r := Reading{
		Distance:   d,
		Bearing:    geo.Bearing(user, ghost.Current),
		InRange:    d <= s.cfg.RangeMeters,
		InMainZone: d <= ghost.MainZoneRadius,
		CanFight:   d <= ghost.FightRadius,
	}

	if heading != nil && !math.IsNaN(*heading) {
		rel := geo.WrapDegrees(r.Bearing - *heading)
		r.Relative = &rel
		r.HeadingUp = true
		rad := rel * math.Pi / 180
		r.Offset = Offset{DX: math.Sin(rad) * d, DY: -math.Cos(rad) * d}
	} else {
		r.Offset = northUp(user, ghost.Current)
	}

	r.Blip = clamp(r.Offset, s.cfg.RangeMeters*blipEdge)
	r.WaveOrigin = r.Offset
	if l := r.Offset.Len(); l > s.cfg.RangeMeters {
		r.WaveOrigin = r.Offset.scaled(s.cfg.RangeMeters * waveEdge / l)
	}
	return r
}

// Pulse returns the wave state elapsed seconds into the scan.
func (s *Scanner) Pulse(elapsed float64) Pulse {
	p := math.Mod(elapsed, s.cfg.WaveSeconds) / s.cfg.WaveSeconds
	if p < 0 {
		p++
	}
	return Pulse{Phase: p, Radius: 2 * p, Opacity: 0.5 * (1 - 0.8*p)}
}

// northUp scales EPSG:3857 deltas back to ground meters at the user's latitude.
func northUp(user, target core.Coordinate) Offset {
	ux, uy := geo.ToMercator(user)
	tx, ty := geo.ToMercator(target)
	k := math.Cos(user.Lat * math.Pi / 180)
	return Offset{DX: (tx - ux) * k, DY: -(ty - uy) * k}
}

func clamp(o Offset, maxLen float64) Offset {
	l := o.Len()
	if l <= maxLen || l == 0 {
		return o
	}
	return o.scaled(maxLen / l)
}
