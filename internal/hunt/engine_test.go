package hunt

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/orbit"
	"github.com/GhostbusterQuest/huntcore/internal/scene"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	dt              = 1.0 / 60
	metersPerDegree = geo.EarthRadius * math.Pi / 180
)

// testConfig keeps the ghost sitting on its anchor and fires one shot per press.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Orbit = orbit.Params{Speed: 0.75}
	cfg.Fire.Policy = FireSingle
	return cfg
}

func newEngine(t *testing.T, cfg Config, opts ...Option) (*Engine, *scene.Headless) {
	t.Helper()
	sc := scene.NewHeadless()
	quiet := WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	e, err := New(sc, cfg, append([]Option{quiet}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e, sc
}

// placeNorth puts the ghost dist meters north of a player at (0,0) facing north.
func placeNorth(e *Engine, dist float64) {
	e.UpdatePlacement(core.Coordinate{Lat: dist / metersPerDegree}, core.CoordPtr(0, 0), core.HeadingPtr(0))
}

func freezeByAim(t *testing.T, e *Engine) {
	t.Helper()
	placeNorth(e, 5)
	e.StartFiring()
	e.Step(dt)
	e.StopFiring()
	require.Equal(t, Frozen, e.Phase())
}

func assertVec(t *testing.T, want, got core.Vec3, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
	assert.InDelta(t, want.Z, got.Z, delta, "z")
}

func TestEngine_RoamsAlongOrbit(t *testing.T) {
	cfg := DefaultConfig()
	e, sc := newEngine(t, cfg)

	e.Step(0.25)
	e.Step(0.25)

	want, _ := orbit.New(cfg.Orbit).Pose(0.5)
	assertVec(t, want, e.TargetWorld(), 1e-12)

	target, ok := e.Target()
	require.True(t, ok)
	n, ok := sc.Node(target)
	require.True(t, ok)
	assertVec(t, want, n.World.Position, 1e-12)
	assert.Equal(t, core.Uniform(core.DefaultGhostModelScale), n.Pose.Scale)
	assert.Equal(t, Roaming, e.Phase())
	assert.False(t, e.CanCatch())
}

func TestEngine_PlacementFollowsHeadingBackfill(t *testing.T) {
	e, _ := newEngine(t, testConfig())
	target := core.Coordinate{Lat: 10 / metersPerDegree}

	assert.False(t, e.State().Placed)
	e.UpdatePlacement(target, nil, core.HeadingPtr(0))
	assert.False(t, e.State().Placed, "no fix yet")

	e.UpdatePlacement(target, core.CoordPtr(0, 0), nil)
	assertVec(t, core.Vec3{Z: -10}, e.TargetWorld(), 1e-9)

	e.UpdatePlacement(target, nil, core.HeadingPtr(90))
	assertVec(t, core.Vec3{X: -10}, e.TargetWorld(), 1e-9)

	e.UpdatePlacement(target, core.CoordPtr(1, 1), core.HeadingPtr(180))
	o, ok := e.Projector().Origin()
	require.True(t, ok)
	assert.Equal(t, core.Coordinate{}, o.Coordinate)
	assert.Equal(t, 90.0, *o.Heading)
	assertVec(t, core.Vec3{X: -10}, e.TargetWorld(), 1e-9)
}

func TestEngine_AimHitFreezesImmediately(t *testing.T) {
	var phases []Phase
	e, sc := newEngine(t, testConfig(), WithPhaseHandler(func(p Phase) { phases = append(phases, p) }))

	freezeByAim(t, e)

	assert.True(t, e.CanCatch())
	assert.True(t, e.Stats().FreezeByAim)
	assert.Equal(t, 1, e.Stats().ShotsFired)
	assert.Equal(t, []Phase{Frozen}, phases)

	target, _ := e.Target()
	n, _ := sc.Node(target)
	assert.Equal(t, scene.MaterialFrozen, n.Material)
}

func TestEngine_AimMissDoesNotFreeze(t *testing.T) {
	e, sc := newEngine(t, testConfig())
	placeNorth(e, 5)
	sc.SetCamera(core.Pose{Orientation: core.Yaw(-math.Pi / 2), Scale: core.Uniform(1)})

	e.StartFiring()
	e.Step(dt)
	assert.Equal(t, Roaming, e.Phase())
	assert.Equal(t, 1, e.Stats().ShotsFired)
}

func TestEngine_EndToEndNorthTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Aim.Enabled = false
	cfg.Projectile.HitRadius = 0.2
	cfg.Projectile.Lifetime = 0
	cfg.Projectile.Range = 0
	cfg.Projectile.MaxTravel = 0
	cfg.Projectile.SteerStrength = 0
	e, sc := newEngine(t, cfg)

	user := core.Coordinate{Lat: 55.7558, Lon: 37.6173}
	ghost := core.Coordinate{Lat: 55.7568, Lon: 37.6173}
	e.UpdatePlacement(ghost, &user, core.HeadingPtr(0))

	east, north, ok := e.Projector().OffsetMeters(ghost)
	require.True(t, ok)
	assert.InDelta(t, 111.3, north, 0.15)
	assert.InDelta(t, 0, east, 1e-9)
	assertVec(t, core.Vec3{Z: -north}, e.TargetWorld(), 1e-9)

	e.StartFiring()
	tick := 0
	for tick < 2000 && e.Phase() == Roaming {
		tick++
		e.Step(dt)
	}
	require.Equal(t, Frozen, e.Phase())
	assert.InDelta(t, north/10/dt, float64(tick), 5)
	assert.False(t, e.Stats().FreezeByAim)

	for i := 0; i < 120; i++ {
		e.Step(dt)
		require.True(t, e.CanCatch())
	}

	var outcomes []CatchOutcome
	e.PerformCatch(func(o CatchOutcome) { outcomes = append(outcomes, o) })
	assert.Empty(t, outcomes)
	assert.True(t, e.CanCatch(), "stays catchable until the capture completes")

	for i := 0; i < 60 && len(outcomes) == 0; i++ {
		e.Step(dt)
	}
	assert.Equal(t, []CatchOutcome{CatchCompleted}, outcomes)
	assert.False(t, e.CanCatch())
	assert.Equal(t, Captured, e.Phase())
	assert.Zero(t, sc.Count(scene.KindTarget))
	require.NotNil(t, e.Stats().CapturedAt)
}

func TestEngine_FrozenTargetIgnoresFurtherHits(t *testing.T) {
	cfg := testConfig()
	cfg.Aim.Enabled = false
	cfg.Fire = FireConfig{Policy: FireInterval, Interval: 0.05, MaxPerTick: 3}
	var phases []Phase
	e, _ := newEngine(t, cfg, WithPhaseHandler(func(p Phase) { phases = append(phases, p) }))
	placeNorth(e, 2)

	e.StartFiring()
	for i := 0; i < 120; i++ {
		e.Step(dt)
	}

	assert.Equal(t, Frozen, e.Phase())
	assert.Greater(t, e.Stats().ShotsFired, 20)
	assert.Equal(t, 1, e.Stats().Hits)
	assert.Equal(t, []Phase{Frozen}, phases)
}

func TestEngine_ContactsAreFunneledOntoTick(t *testing.T) {
	cfg := testConfig()
	cfg.Aim.Enabled = false
	cfg.Projectile.SteerStrength = 0
	e, sc := newEngine(t, cfg)
	placeNorth(e, 5)
	sc.SetCamera(core.Pose{Orientation: core.Yaw(-math.Pi / 2), Scale: core.Uniform(1)})

	e.StartFiring()
	e.Step(dt)
	require.Equal(t, 1, sc.Count(scene.KindProjectile))

	var bolt scene.Handle
	for _, h := range sc.Roots() {
		if n, _ := sc.Node(h); n.Kind == scene.KindProjectile {
			bolt = h
		}
	}
	target, _ := e.Target()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.ReportContact(scene.Contact{A: 900, B: 901})
	}()
	go func() {
		defer wg.Done()
		e.ReportContact(scene.Contact{A: target, B: bolt})
	}()
	wg.Wait()
	assert.Equal(t, Roaming, e.Phase(), "contacts wait for the next tick")

	e.Step(dt)
	assert.Equal(t, Frozen, e.Phase())
	assert.Equal(t, 1, e.Stats().Hits)
	_, ok := sc.Node(bolt)
	assert.False(t, ok)
}

func TestEngine_FrozenJitter(t *testing.T) {
	cfg := testConfig()
	e, sc := newEngine(t, cfg)
	freezeByAim(t, e)

	anchor := core.Vec3{Z: -5}
	target, _ := e.Target()
	for i := 0; i < 100; i++ {
		e.Step(dt)
		d := e.TargetWorld().Sub(anchor)
		assert.LessOrEqual(t, math.Abs(d.X), cfg.Frozen.Amplitude+1e-12)
		assert.LessOrEqual(t, math.Abs(d.Y), cfg.Frozen.Amplitude/2+1e-12)
		assert.LessOrEqual(t, math.Abs(d.Z), cfg.Frozen.Amplitude+1e-12)
	}
	n, _ := sc.Node(target)
	assert.InDelta(t, core.DefaultGhostModelScale*1.12, n.Pose.Scale.X, 1e-12)
}

func TestEngine_StallFiresAtMostThreePerTick(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aim.Enabled = false
	e, _ := newEngine(t, cfg)

	e.StartFiring()
	e.Step(1.0)
	assert.Equal(t, 3, e.Stats().ShotsFired)

	e.StopFiring()
	e.Step(1.0)
	assert.Equal(t, 3, e.Stats().ShotsFired)
}

func TestEngine_CatchIsIdempotent(t *testing.T) {
	e, sc := newEngine(t, testConfig())
	freezeByAim(t, e)

	var first, second, third []CatchOutcome
	e.PerformCatch(func(o CatchOutcome) { first = append(first, o) })
	e.PerformCatch(func(o CatchOutcome) { second = append(second, o) })

	assert.Empty(t, first)
	assert.Equal(t, []CatchOutcome{CatchAlreadyCaptured}, second)
	assert.True(t, e.CatchPending())

	target, _ := e.Target()
	peak := 0.0
	for i := 0; i < 100 && len(first) == 0; i++ {
		e.Step(0.01)
		if n, ok := sc.Node(target); ok {
			peak = math.Max(peak, n.Pose.Scale.X)
		}
	}
	assert.Equal(t, []CatchOutcome{CatchCompleted}, first)
	assert.Len(t, second, 1)
	assert.InDelta(t, core.DefaultGhostModelScale*1.12*1.6, peak, 0.002)
	assert.False(t, e.CatchPending())

	e.PerformCatch(func(o CatchOutcome) { third = append(third, o) })
	assert.Equal(t, []CatchOutcome{CatchAlreadyCaptured}, third)
	assert.Len(t, first, 1, "capture sequence ran once")

	_, ok := e.Target()
	assert.False(t, ok)
	assert.NotPanics(t, func() { e.Step(dt) })
}

func TestEngine_CatchFliesToCamera(t *testing.T) {
	e, sc := newEngine(t, testConfig())
	freezeByAim(t, e)
	sc.SetCamera(core.NewPose(core.Vec3{X: 1, Y: 1.5}, 1))

	done := false
	e.PerformCatch(func(CatchOutcome) { done = true })

	var last core.Vec3
	for i := 0; i < 100 && !done; i++ {
		e.Step(0.01)
		if !done {
			last = e.TargetWorld()
		}
	}
	require.True(t, done)
	assert.Less(t, last.Dist(core.Vec3{X: 1, Y: 1.5}), 0.5)
}

func TestEngine_CatchRejectedWhileRoaming(t *testing.T) {
	e, _ := newEngine(t, testConfig())

	var got []CatchOutcome
	e.PerformCatch(func(o CatchOutcome) { got = append(got, o) })
	assert.Equal(t, []CatchOutcome{CatchRejected}, got)
	assert.Equal(t, Roaming, e.Phase())
	assert.NotPanics(t, func() { e.PerformCatch(nil) })
}

func TestEngine_Release(t *testing.T) {
	e, _ := newEngine(t, testConfig())
	assert.False(t, e.Release())

	freezeByAim(t, e)
	assert.True(t, e.Release())
	assert.Equal(t, Roaming, e.Phase())
	assert.False(t, e.CanCatch())
	assert.False(t, e.Release())
}

func TestEngine_CloseAbortsPendingCatch(t *testing.T) {
	e, sc := newEngine(t, testConfig())
	freezeByAim(t, e)

	var got []CatchOutcome
	e.PerformCatch(func(o CatchOutcome) { got = append(got, o) })
	e.Step(0.1)

	e.Close()
	assert.Equal(t, []CatchOutcome{CatchAborted}, got)
	assert.Zero(t, sc.Len())
	assert.False(t, e.CanCatch())

	assert.NotPanics(t, func() {
		e.Step(1)
		e.StartFiring()
		e.UpdatePlacement(core.Coordinate{}, core.CoordPtr(0, 0), nil)
		e.Close()
	})
	assert.Len(t, got, 1)

	var late []CatchOutcome
	e.PerformCatch(func(o CatchOutcome) { late = append(late, o) })
	assert.Equal(t, []CatchOutcome{CatchAborted}, late)
}
