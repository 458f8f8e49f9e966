package hunt

import (
	"github.com/GhostbusterQuest/huntcore/internal/orbit"
	"github.com/GhostbusterQuest/huntcore/internal/projectile"
)

// FirePolicy selects how held fire input turns into shots.
type FirePolicy string

const (
	// FireInterval fires on a fixed grid while held, catching up missed slots.
	FireInterval FirePolicy = "interval"
	// FireBurst fires while held with a random gap between BurstMin and BurstMax.
	FireBurst FirePolicy = "burst"
	// FireSingle fires once per press.
	FireSingle FirePolicy = "single"
)

type FireConfig struct {
	Policy     FirePolicy `json:"policy" mapstructure:"policy"`
	Interval   float64    `json:"interval" mapstructure:"interval"`
	BurstMin   float64    `json:"burstMin" mapstructure:"burstMin"`
	BurstMax   float64    `json:"burstMax" mapstructure:"burstMax"`
	MaxPerTick int        `json:"maxPerTick" mapstructure:"maxPerTick"`
}

// AimConfig enables the immediate hit when the camera looks straight at the ghost.
type AimConfig struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	Threshold float64 `json:"threshold" mapstructure:"threshold"` // minimum cosine
}

// FrozenConfig shapes the struggling jitter of a frozen ghost.
type FrozenConfig struct {
	Amplitude float64 `json:"amplitude" mapstructure:"amplitude"`
	Frequency float64 `json:"frequency" mapstructure:"frequency"`
	Scale     float64 `json:"scale" mapstructure:"scale"`
}

// CatchConfig times the capture animation.
type CatchConfig struct {
	ScaleUp         float64 `json:"scaleUp" mapstructure:"scaleUp"`
	ScaleUpDuration float64 `json:"scaleUpDuration" mapstructure:"scaleUpDuration"`
	FlyDuration     float64 `json:"flyDuration" mapstructure:"flyDuration"`
	FinalScale      float64 `json:"finalScale" mapstructure:"finalScale"`
}

// Config is the complete engine tuning. Times are seconds, distances meters.
type Config struct {
	FrameRate     int               `json:"frameRate" mapstructure:"frameRate"`
	UnitsPerMeter float64           `json:"unitsPerMeter" mapstructure:"unitsPerMeter"`
	TargetRadius  float64           `json:"targetRadius" mapstructure:"targetRadius"`
	BoltRadius    float64           `json:"boltRadius" mapstructure:"boltRadius"`
	Seed          uint64            `json:"seed" mapstructure:"seed"`
	Orbit         orbit.Params      `json:"orbit" mapstructure:"orbit"`
	Projectile    projectile.Config `json:"projectile" mapstructure:"projectile"`
	Fire          FireConfig        `json:"fire" mapstructure:"fire"`
	Aim           AimConfig         `json:"aim" mapstructure:"aim"`
	Frozen        FrozenConfig      `json:"frozen" mapstructure:"frozen"`
	Catch         CatchConfig       `json:"catch" mapstructure:"catch"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		FrameRate:     60,
		UnitsPerMeter: 1,
		TargetRadius:  0.1,
		BoltRadius:    0.012,
		Seed:          1,
		Orbit:         orbit.DefaultParams(),
		Projectile:    projectile.DefaultConfig(),
		Fire: FireConfig{
			Policy:     FireInterval,
			Interval:   0.08,
			BurstMin:   0.12,
			BurstMax:   0.22,
			MaxPerTick: 3,
		},
		Aim: AimConfig{
			Enabled:   true,
			Threshold: 0.995,
		},
		Frozen: FrozenConfig{
			Amplitude: 0.02,
			Frequency: 28,
			Scale:     1.12,
		},
		Catch: CatchConfig{
			ScaleUp:         1.6,
			ScaleUpDuration: 0.22,
			FlyDuration:     0.35,
			FinalScale:      0.05,
		},
	}
}
