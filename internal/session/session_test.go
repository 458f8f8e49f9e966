package session

import (
	"context"
	"io"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/catalog"
	"github.com/GhostbusterQuest/huntcore/internal/channel"
	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/control"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/hunt"
	"github.com/GhostbusterQuest/huntcore/internal/orbit"
	"github.com/GhostbusterQuest/huntcore/internal/radar"
	"github.com/GhostbusterQuest/huntcore/internal/storage/memory"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60

var metersPerDegree = geo.EarthRadius * math.Pi / 180

// recorder collects telemetry.
type recorder struct {
	mu       sync.Mutex
	sessions []core.SessionSummary
}

func (r *recorder) WriteSession(s core.SessionSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

func (r *recorder) all() []core.SessionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.SessionSummary(nil), r.sessions...)
}

type fixture struct {
	session   *Session
	store     *memory.Backend
	catalog   *catalog.Catalog
	telemetry *recorder
	game      core.Game
}

// testConfig keeps the ghost still on its anchor so aim checks are exact.
func testConfig() hunt.Config {
	cfg := hunt.DefaultConfig()
	cfg.Orbit = orbit.Params{Speed: 0.75}
	cfg.Fire.Policy = hunt.FireSingle
	return cfg
}

// north returns a coordinate dist meters north of (0,0).
func north(dist float64) core.Coordinate {
	return core.Coordinate{Lat: dist / metersPerDegree}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New(config.MemoryConfig{}, afero.NewMemMapFs(), log)
	require.NoError(t, store.Init())

	cat := catalog.New(store, log)
	game := core.NewGame("Park")
	game.IsActive = true
	game.Ghosts = []core.Ghost{core.NewGhost("Wisp", "", north(5))}
	require.NoError(t, cat.AddGame(game))

	tel := &recorder{}
	s, err := New(testConfig(), game.ID, game.Ghosts[0], Dependencies{
		Store:     store,
		Catalog:   cat,
		Telemetry: tel,
		Logger:    log,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = s.Finish() })

	return &fixture{session: s, store: store, catalog: cat, telemetry: tel, game: game}
}

func facingNorth() core.SensorSample {
	return core.SensorSample{Coordinate: core.CoordPtr(0, 0), Heading: core.HeadingPtr(0)}
}

func TestSession_AimFreezeThenCatchRecords(t *testing.T) {
	f := newFixture(t)
	s := f.session

	s.Apply(facingNorth())
	_, err := s.Dispatch(control.CmdFireStart)
	require.NoError(t, err)
	s.Step(dt)

	require.Equal(t, hunt.Frozen, s.Engine().Phase())
	assert.True(t, s.Engine().CanCatch())
	target := s.Engine().TargetWorld()
	assert.InDelta(t, -5, target.Z, 0.05)

	_, err = s.Dispatch(control.CmdCatch)
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		s.Step(dt)
	}

	select {
	case <-s.Done():
	default:
		t.Fatal("session not done after the catch sequence")
	}
	outcome, ok := s.CatchOutcome()
	require.True(t, ok)
	assert.Equal(t, hunt.CatchCompleted, outcome)

	summary, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCaptured, summary.Outcome)
	assert.True(t, summary.FreezeByAim)
	assert.Equal(t, 1, summary.ShotsFired)
	assert.Equal(t, 61, summary.Ticks)

	captures, err := f.store.Captures()
	require.NoError(t, err)
	require.Len(t, captures, 1)
	assert.Equal(t, f.game.Ghosts[0].ID, captures[0].GhostID)
	assert.Equal(t, s.ID, captures[0].SessionID)
	assert.True(t, captures[0].FreezeByAim)

	n, err := f.catalog.CapturedCount(f.game.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.Len(t, f.telemetry.all(), 1)
	assert.Equal(t, s.ID, f.telemetry.all()[0].SessionID)
}

func TestSession_CatchRejectedWhileRoaming(t *testing.T) {
	f := newFixture(t)
	s := f.session

	_, err := s.Dispatch(control.CmdCatch)
	require.NoError(t, err)
	s.Step(dt)

	outcome, ok := s.CatchOutcome()
	require.True(t, ok)
	assert.Equal(t, hunt.CatchRejected, outcome)

	summary, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAbandoned, summary.Outcome)
	captures, _ := f.store.Captures()
	assert.Empty(t, captures)
}

func TestSession_CommandsWaitForTick(t *testing.T) {
	f := newFixture(t)
	s := f.session
	s.Apply(facingNorth())

	_, err := s.Dispatch(control.CmdFireStart)
	require.NoError(t, err)
	assert.Equal(t, hunt.Roaming, s.Engine().Phase())
	assert.False(t, s.Engine().State().Firing)

	s.Step(dt)
	assert.Equal(t, hunt.Frozen, s.Engine().Phase())
}

func TestSession_PlacementCommand(t *testing.T) {
	f := newFixture(t)
	s := f.session
	s.Apply(facingNorth())
	s.Step(dt)
	assert.InDelta(t, -5, s.Engine().TargetWorld().Z, 1e-6)

	east := core.Coordinate{Lon: 10 / metersPerDegree}
	_, err := s.Dispatch(control.CmdPlacement, "0,"+strconv.FormatFloat(east.Lon, 'f', -1, 64))
	require.NoError(t, err)
	_, err = s.Dispatch(control.CmdPlacement, "not a coordinate")
	require.NoError(t, err, "argument errors surface when the command runs")
	s.Step(dt)

	target := s.Engine().TargetWorld()
	assert.InDelta(t, 10, target.X, 1e-3)
	assert.InDelta(t, 0, target.Z, 1e-3)

	reading, ok := s.Scan(radar.NewScanner(radar.DefaultConfig()))
	require.True(t, ok)
	assert.InDelta(t, 10, reading.Distance, 0.01)
	assert.InDelta(t, 90, reading.Bearing, 0.01)
}

func TestSession_ModelCommandSavesSettings(t *testing.T) {
	f := newFixture(t)
	s := f.session

	_, err := s.Dispatch(control.CmdModel, "Banshee.usdc", "0.3")
	require.NoError(t, err)
	_, err = s.Dispatch(control.CmdModel, "Wisp.usdz", "-1")
	require.NoError(t, err)
	s.Step(dt)

	settings, err := f.store.LoadModelSettings()
	require.NoError(t, err)
	assert.Equal(t, core.GhostModelSettings{ModelID: "Banshee.usdc", Scale: 0.3}, settings)
}

func TestSession_ScanWithoutFix(t *testing.T) {
	f := newFixture(t)
	_, ok := f.session.Scan(radar.NewScanner(radar.DefaultConfig()))
	assert.False(t, ok)
}

func TestSession_LogAttrs(t *testing.T) {
	f := newFixture(t)
	s := f.session

	attrs := s.LogAttrs()
	require.Len(t, attrs, 2)
	assert.Equal(t, s.ID.String(), attrs[0].Value.String())
	assert.Equal(t, "roaming", attrs[1].Value.String())

	s.Apply(facingNorth())
	_, _ = s.Dispatch(control.CmdFireStart)
	s.Step(dt)
	assert.Equal(t, "frozen", s.LogAttrs()[1].Value.String())
}

func TestSession_FinishIsIdempotent(t *testing.T) {
	f := newFixture(t)
	s := f.session
	s.Step(dt)

	first, err := s.Finish()
	require.NoError(t, err)
	second, err := s.Finish()
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, f.telemetry.all(), 1)

	_, err = s.Dispatch(control.CmdRecordCapture)
	assert.ErrorIs(t, err, control.ErrClosed)
}

func TestSession_CommandsRefusedAfterFinish(t *testing.T) {
	f := newFixture(t)
	s := f.session
	s.Step(dt)
	_, err := s.Finish()
	require.NoError(t, err)

	for _, cmd := range []string{control.CmdFireStart, control.CmdCatch} {
		res, err := s.Dispatch(cmd)
		assert.ErrorIs(t, err, control.ErrClosed, cmd)
		assert.Nil(t, res, cmd)
	}
	assert.Zero(t, s.control.Pending())
}

func TestSession_RunUntilCaptured(t *testing.T) {
	f := newFixture(t)
	s := f.session

	sensors := channel.NewBuffered[core.SensorSample](4)
	s.Apply(facingNorth())
	sensors.Send(facingNorth())
	_, err := s.Dispatch(control.CmdFireStart)
	require.NoError(t, err)

	go func() {
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			if s.Phase() == hunt.Frozen {
				_, _ = s.Dispatch(control.CmdCatch)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	summary, err := s.Run(ctx, sensors)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCaptured, summary.Outcome)
	assert.NoError(t, ctx.Err(), "run ends on capture, not on timeout")

	captures, err := f.store.Captures()
	require.NoError(t, err)
	assert.Len(t, captures, 1)
}

func TestSession_RunCancelled(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	summary, err := f.session.Run(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, core.OutcomeAbandoned, summary.Outcome)
	assert.Positive(t, summary.Ticks)
	assert.Len(t, f.telemetry.all(), 1)
}
