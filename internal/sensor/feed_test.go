package sensor

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/channel"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_Empty(t *testing.T) {
	f := NewFeed(nil)
	r := f.Latest()
	assert.Nil(t, r.Coordinate)
	assert.Nil(t, r.Heading)
	assert.True(t, r.UpdatedAt.IsZero())
}

func TestFeed_FieldsUpdateIndependently(t *testing.T) {
	f := NewFeed(nil)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	f.Apply(core.SensorSample{Heading: core.HeadingPtr(370), Time: t0})
	r := f.Latest()
	assert.Nil(t, r.Coordinate)
	require.NotNil(t, r.Heading)
	assert.InDelta(t, 10, *r.Heading, 1e-9)

	f.Apply(core.SensorSample{Coordinate: core.CoordPtr(55.7558, 37.6173), Time: t0.Add(time.Second)})
	r = f.Latest()
	require.NotNil(t, r.Coordinate)
	assert.Equal(t, core.Coordinate{Lat: 55.7558, Lon: 37.6173}, *r.Coordinate)
	require.NotNil(t, r.Heading, "heading survives a location-only sample")
	assert.Equal(t, t0.Add(time.Second), r.UpdatedAt)
}

func TestFeed_RejectsInvalidFields(t *testing.T) {
	f := NewFeed(nil)
	f.Apply(core.SensorSample{Coordinate: core.CoordPtr(10, 20)})
	f.Apply(core.SensorSample{Coordinate: core.CoordPtr(91, 0), Heading: core.HeadingPtr(math.NaN())})

	r := f.Latest()
	assert.Equal(t, core.Coordinate{Lat: 10, Lon: 20}, *r.Coordinate)
	assert.Nil(t, r.Heading)

	accepted, rejected := f.Counts()
	assert.Equal(t, 1, accepted)
	assert.Equal(t, 2, rejected)
}

func TestFeed_LatestIsACopy(t *testing.T) {
	f := NewFeed(nil)
	f.Apply(core.SensorSample{Coordinate: core.CoordPtr(1, 2), Heading: core.HeadingPtr(45)})

	r := f.Latest()
	r.Coordinate.Lat = 50
	*r.Heading = 90

	again := f.Latest()
	assert.Equal(t, 1.0, again.Coordinate.Lat)
	assert.Equal(t, 45.0, *again.Heading)
}

func TestFeed_RunConsumesUntilClosed(t *testing.T) {
	f := NewFeed(nil)
	ch := channel.NewBuffered[core.SensorSample](4)
	ch.Send(core.SensorSample{Coordinate: core.CoordPtr(1, 1)})
	ch.Send(core.SensorSample{Heading: core.HeadingPtr(180)})
	ch.Close()

	require.NoError(t, f.Run(context.Background(), ch))

	r := f.Latest()
	require.NotNil(t, r.Coordinate)
	require.NotNil(t, r.Heading)
	assert.Equal(t, 180.0, *r.Heading)
}

func TestFeed_RunStopsOnCancel(t *testing.T) {
	f := NewFeed(nil)
	ch := channel.NewBuffered[core.SensorSample](1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, ch) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
