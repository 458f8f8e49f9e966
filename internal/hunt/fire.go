package hunt

import (
	"math"
	"math/rand/v2"
)

// FireControl turns fire input into shot counts per tick.
//
// For the interval policy the next slot time only ever advances by whole intervals, so a
// frame hitch neither loses the fire rate nor lets it drift. At most maxPerTick slots are
// consumed per tick; slots beyond that are skipped along the same grid.
type FireControl struct {
	cfg    FireConfig
	rng    *rand.Rand
	firing bool
	next   float64
	armed  bool // single policy: press not yet consumed
}

func NewFireControl(cfg FireConfig, rng *rand.Rand) *FireControl {
	if cfg.MaxPerTick <= 0 {
		cfg.MaxPerTick = 1
	}
	if cfg.Policy == "" {
		cfg.Policy = FireInterval
	}
	return &FireControl{cfg: cfg, rng: rng}
}

// Start begins a press at time now. Repeated starts during one press are ignored.
func (f *FireControl) Start(now float64) {
	if f.firing {
		return
	}
	f.firing = true
	f.next = now
	f.armed = f.cfg.Policy == FireSingle
}

// Stop ends the press; no further slots are handed out until the next Start.
func (f *FireControl) Stop() {
	f.firing = false
	f.armed = false
}

func (f *FireControl) Firing() bool {
	return f.firing
}

// NextAt is the time of the next fire slot.
func (f *FireControl) NextAt() float64 {
	return f.next
}

// Due consumes the fire slots that have come up by now and returns how many shots to fire.
func (f *FireControl) Due(now float64) int {
	if f.cfg.Policy == FireSingle {
		if f.armed {
			f.armed = false
			return 1
		}
		return 0
	}
	if !f.firing {
		return 0
	}

	n := 0
	for n < f.cfg.MaxPerTick && f.next <= now {
		n++
		f.next += f.gap()
	}
	if f.next <= now {
		if f.cfg.Policy == FireInterval && f.cfg.Interval > 0 {
			skipped := math.Floor((now-f.next)/f.cfg.Interval) + 1
			f.next += skipped * f.cfg.Interval
		} else {
			f.next = now + f.gap()
		}
	}
	return n
}

func (f *FireControl) gap() float64 {
	if f.cfg.Policy == FireBurst {
		lo, hi := f.cfg.BurstMin, f.cfg.BurstMax
		if hi < lo {
			lo, hi = hi, lo
		}
		return lo + f.rng.Float64()*(hi-lo)
	}
	if f.cfg.Interval <= 0 {
		return math.Inf(1)
	}
	return f.cfg.Interval
}
