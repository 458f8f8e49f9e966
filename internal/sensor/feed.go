// Package sensor keeps the latest device location and compass heading. Samples arrive on
// their own clock; the session reads the most recent values at tick time.
package sensor

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/channel"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// Reading is the latest known sensor state. Coordinate and Heading are tracked
// independently and either may still be unknown.
type Reading struct {
	Coordinate *core.Coordinate
	Heading    *float64
	UpdatedAt  time.Time
}

// Feed holds the latest sensor reading
type Feed struct {
	mu       sync.RWMutex
	coord    *core.Coordinate
	heading  *float64
	updated  time.Time
	accepted int
	rejected int
	log      *slog.Logger
}

// NewFeed creates an empty Feed
func NewFeed(log *slog.Logger) *Feed {
	if log == nil {
		log = slog.Default()
	}
	return &Feed{log: log}
}

// Apply merges s into the feed. A missing field keeps the previous value; an invalid one
// is discarded.
func (f *Feed) Apply(s core.SensorSample) {
	f.mu.Lock()
	defer f.mu.Unlock()

	changed := false
	if s.Coordinate != nil {
		if geo.Valid(*s.Coordinate) {
			c := *s.Coordinate
			f.coord = &c
			changed = true
		} else {
			f.rejected++
			f.log.Debug("discarding invalid coordinate", "lat", s.Coordinate.Lat, "lon", s.Coordinate.Lon)
		}
	}
	if s.Heading != nil {
		if !math.IsNaN(*s.Heading) && !math.IsInf(*s.Heading, 0) {
			h := geo.WrapDegrees(*s.Heading)
			f.heading = &h
			changed = true
		} else {
			f.rejected++
		}
	}
	if !changed {
		return
	}
	f.accepted++
	f.updated = s.Time
	if f.updated.IsZero() {
		f.updated = time.Now()
	}
}

// Latest returns a copy of the current reading
func (f *Feed) Latest() Reading {
	f.mu.RLock()
	defer f.mu.RUnlock()
	r := Reading{UpdatedAt: f.updated}
	if f.coord != nil {
		c := *f.coord
		r.Coordinate = &c
	}
	if f.heading != nil {
		h := *f.heading
		r.Heading = &h
	}
	return r
}

// Counts returns how many samples were accepted and how many fields were rejected.
func (f *Feed) Counts() (accepted, rejected int) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.accepted, f.rejected
}

// Run applies samples from rx until ctx is done or rx is closed.
func (f *Feed) Run(ctx context.Context, rx channel.Receiver[core.SensorSample]) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-rx.Receive():
			if !ok {
				f.log.Debug("sensor channel closed")
				return nil
			}
			f.Apply(s)
		}
	}
}
