// Package session runs one hunt: it owns the engine and its scene, feeds sensor readings
// and control commands into it on the tick goroutine, and records the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/internal/catalog"
	"github.com/GhostbusterQuest/huntcore/internal/channel"
	"github.com/GhostbusterQuest/huntcore/internal/control"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/hunt"
	"github.com/GhostbusterQuest/huntcore/internal/radar"
	"github.com/GhostbusterQuest/huntcore/internal/scene"
	"github.com/GhostbusterQuest/huntcore/internal/sensor"
	"github.com/GhostbusterQuest/huntcore/internal/storage"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// deferredLimit bounds the commands waiting for the next tick.
const deferredLimit = 256

// recordBuffer is the queue size of the capture recorder.
const recordBuffer = 16

// Telemetry receives the summary of every finished session.
type Telemetry interface {
	WriteSession(s core.SessionSummary) error
}

// Dependencies are the collaborators of a session. All are optional.
type Dependencies struct {
	Scene         *scene.Headless
	Loader        assets.Loader
	Store         storage.Backend
	Catalog       *catalog.Catalog
	Telemetry     Telemetry
	Logger        *slog.Logger
	ControlLogger control.Logger
	Now           func() time.Time
}

// Session is one hunt for one ghost.
type Session struct {
	ID     uuid.UUID
	GameID uuid.UUID

	deps    Dependencies
	log     *slog.Logger
	scene   *scene.Headless
	engine  *hunt.Engine
	feed    *sensor.Feed
	control *control.Dispatcher
	cfg     hunt.Config

	ghost       core.Ghost
	feedVersion int
	ticks       int
	started     time.Time
	phase       atomic.Int32
	catchResult atomic.Int32

	done     chan struct{}
	doneOnce sync.Once

	finishOnce sync.Once
	summary    core.SessionSummary
	finishErr  error
}

// New prepares a session hunting ghost from gameID. The ghost's model overrides the saved
// model selection; the saved scale still applies.
func New(cfg hunt.Config, gameID uuid.UUID, ghost core.Ghost, deps Dependencies) (*Session, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Scene == nil {
		deps.Scene = scene.NewHeadless()
	}

	s := &Session{
		ID:      uuid.New(),
		GameID:  gameID,
		deps:    deps,
		scene:   deps.Scene,
		feed:    sensor.NewFeed(deps.Logger),
		cfg:     cfg,
		ghost:   ghost,
		started: deps.Now(),
		done:    make(chan struct{}),
	}
	s.log = deps.Logger.With("session", s.ID.String(), "ghost", ghost.Name)
	s.catchResult.Store(-1)

	opts := []hunt.Option{
		hunt.WithLogger(s.log),
		hunt.WithPhaseHandler(func(p hunt.Phase) { s.phase.Store(int32(p)) }),
		hunt.WithAssetErrorHandler(func(modelID string, err error) {
			s.log.Warn("ghost model unavailable, keeping placeholder", "model", modelID, "error", err)
		}),
	}
	if deps.Loader != nil {
		opts = append(opts, hunt.WithLoader(deps.Loader))
	}
	engine, err := hunt.New(s.scene, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	s.engine = engine

	ctrlLog := deps.ControlLogger
	if ctrlLog == nil {
		ctrlLog = slogControlLogger{s.log}
	}
	s.control, err = control.New(ctrlLog, deferredLimit)
	if err != nil {
		engine.Close()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	s.registerHandlers()

	if err := s.applyModelSettings(); err != nil {
		s.log.Warn("could not load model settings", "error", err)
	}
	return s, nil
}

func (s *Session) applyModelSettings() error {
	settings := core.DefaultGhostModelSettings()
	var err error
	if s.deps.Store != nil {
		settings, err = s.deps.Store.LoadModelSettings()
		if err != nil {
			settings = core.DefaultGhostModelSettings()
		}
	}
	if s.ghost.ModelID != "" {
		settings.ModelID = s.ghost.ModelID
	}
	s.engine.UpdateModelSettings(settings.ModelID, settings.Scale)
	return err
}

func (s *Session) registerHandlers() {
	s.control.Register(control.CmdFireStart, func(control.Event) (any, error) {
		s.engine.StartFiring()
		return nil, nil
	}, control.Deferred())

	s.control.Register(control.CmdFireStop, func(control.Event) (any, error) {
		s.engine.StopFiring()
		return nil, nil
	}, control.Deferred())

	s.control.Register(control.CmdCatch, func(control.Event) (any, error) {
		s.engine.PerformCatch(s.onCatch)
		return nil, nil
	}, control.Deferred(), control.Logged())

	s.control.Register(control.CmdPlacement, s.handlePlacement, control.Deferred(), control.Logged())
	s.control.Register(control.CmdModel, s.handleModel, control.Deferred(), control.Logged())
	s.control.Register(control.CmdRecordCapture, s.handleRecord, control.Buffered(recordBuffer), control.Blocking())
}

// handlePlacement moves the ghost to Args[0], "lat,lon".
func (s *Session) handlePlacement(e control.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("placement needs a coordinate")
	}
	c, err := geo.ParseCoordinate(e.Args[0])
	if err != nil {
		return nil, err
	}
	s.ghost.Current = c
	r := s.feed.Latest()
	s.engine.UpdatePlacement(c, r.Coordinate, r.Heading)
	return c, nil
}

// handleModel switches the ghost model: Args[0] is the model id, Args[1] an optional scale.
// The selection is saved for later sessions.
func (s *Session) handleModel(e control.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("model command needs a model id")
	}
	settings := core.GhostModelSettings{ModelID: e.Args[0], Scale: s.savedScale()}
	if len(e.Args) > 1 {
		scale, err := strconv.ParseFloat(e.Args[1], 64)
		if err != nil || scale <= 0 {
			return nil, fmt.Errorf("invalid scale %q", e.Args[1])
		}
		settings.Scale = scale
	}
	s.engine.UpdateModelSettings(settings.ModelID, settings.Scale)
	if s.deps.Store != nil {
		if err := s.deps.Store.SaveModelSettings(settings); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func (s *Session) savedScale() float64 {
	if s.deps.Store != nil {
		if saved, err := s.deps.Store.LoadModelSettings(); err == nil {
			return saved.Scale
		}
	}
	return core.DefaultGhostModelScale
}

// handleRecord runs on the recorder goroutine.
func (s *Session) handleRecord(e control.Event) (any, error) {
	c, ok := e.Payload.(core.Capture)
	if !ok {
		return nil, fmt.Errorf("record payload is %T", e.Payload)
	}
	var errs error
	if s.deps.Store != nil {
		errs = errors.Join(errs, s.deps.Store.RecordCapture(&c))
	}
	if s.deps.Catalog != nil {
		errs = errors.Join(errs, s.deps.Catalog.MarkCaptured(c.GhostID))
	}
	if errs == nil {
		s.log.Info("capture recorded", "shots", c.ShotsFired, "huntDuration", c.HuntDuration)
	}
	return c.ID, errs
}

// onCatch runs on the tick goroutine.
func (s *Session) onCatch(o hunt.CatchOutcome) {
	s.catchResult.Store(int32(o))
	switch o {
	case hunt.CatchCompleted:
		c := s.snapshot(s.deps.Now()).Capture()
		if _, err := s.control.Dispatch(control.Event{Command: control.CmdRecordCapture, Payload: c}); err != nil {
			s.log.Error("capture not recorded", "error", err)
		}
		s.doneOnce.Do(func() { close(s.done) })
	case hunt.CatchRejected:
		s.log.Debug("catch rejected", "phase", s.engine.Phase())
	}
}

// Dispatch sends a control command. Safe from any goroutine.
func (s *Session) Dispatch(command string, args ...string) (any, error) {
	return s.control.Dispatch(control.Event{Command: command, Args: args})
}

// Apply feeds one sensor sample. Safe from any goroutine.
func (s *Session) Apply(sample core.SensorSample) {
	s.feed.Apply(sample)
}

// Step runs one tick: queued commands, new sensor data, the engine, then contacts.
// Call from a single goroutine.
func (s *Session) Step(dt float64) {
	s.control.Flush()

	if accepted, _ := s.feed.Counts(); accepted != s.feedVersion {
		s.feedVersion = accepted
		r := s.feed.Latest()
		s.engine.UpdatePlacement(s.ghost.Current, r.Coordinate, r.Heading)
	}

	s.engine.Step(dt)
	for _, c := range s.scene.DetectContacts() {
		s.engine.ReportContact(c)
	}
	s.ticks++
}

// Run ticks at the configured frame rate until the ghost is captured or ctx ends,
// applying samples from rx (which may be nil) meanwhile, and then finishes the session.
func (s *Session) Run(ctx context.Context, rx channel.Receiver[core.SensorSample]) (core.SessionSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if rx != nil {
		g.Go(func() error {
			return s.feed.Run(gctx, rx)
		})
	}
	g.Go(func() error {
		defer cancel()
		fps := s.cfg.FrameRate
		if fps <= 0 {
			fps = hunt.DefaultConfig().FrameRate
		}
		ticker := time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-s.done:
				return nil
			case now := <-ticker.C:
				s.Step(now.Sub(last).Seconds())
				last = now
			}
		}
	})

	runErr := g.Wait()
	summary, err := s.Finish()
	return summary, errors.Join(runErr, err)
}

// Done is closed once the ghost has been captured.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finish stops the session, waits for pending records and reports the summary to telemetry.
// Later calls return the same result.
func (s *Session) Finish() (core.SessionSummary, error) {
	s.finishOnce.Do(func() {
		s.summary = s.snapshot(s.deps.Now())
		s.control.Close()
		s.engine.Close()

		if s.deps.Telemetry != nil {
			if err := s.deps.Telemetry.WriteSession(s.summary); err != nil {
				s.finishErr = fmt.Errorf("writing session telemetry: %w", err)
			}
		}
		s.log.Info("session finished",
			"outcome", s.summary.Outcome,
			"ticks", s.summary.Ticks,
			"shots", s.summary.ShotsFired,
			"duration", s.summary.Duration())
	})
	return s.summary, s.finishErr
}

func (s *Session) snapshot(now time.Time) core.SessionSummary {
	st := s.engine.Stats()
	sum := core.SessionSummary{
		SessionID:   s.ID,
		GameID:      s.GameID,
		GhostID:     s.ghost.ID,
		Started:     s.started,
		Ended:       now,
		Outcome:     core.OutcomeAbandoned,
		Ticks:       s.ticks,
		ShotsFired:  st.ShotsFired,
		Hits:        st.Hits,
		FreezeByAim: st.FreezeByAim,
		ModelID:     s.engine.State().ModelID,
	}
	if st.FrozenAt != nil {
		sum.Outcome = core.OutcomeFrozen
		sum.TimeToFreeze = seconds(*st.FrozenAt)
	}
	if st.CapturedAt != nil {
		sum.Outcome = core.OutcomeCaptured
	}
	return sum
}

// Scan is the radar reading for the latest sensor fix, or false without one.
// Call from the tick goroutine.
func (s *Session) Scan(sc *radar.Scanner) (radar.Reading, bool) {
	r := s.feed.Latest()
	if r.Coordinate == nil {
		return radar.Reading{}, false
	}
	return sc.Scan(*r.Coordinate, r.Heading, s.ghost), true
}

// Phase is the engine phase as of the last tick. Safe from any goroutine.
func (s *Session) Phase() hunt.Phase {
	return hunt.Phase(s.phase.Load())
}

// LogAttrs are added to every log record while the session runs. Safe from any goroutine.
func (s *Session) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("session_id", s.ID.String()),
		slog.String("phase", s.Phase().String()),
	}
}

func (s *Session) Engine() *hunt.Engine {
	return s.engine
}

func (s *Session) Scene() *scene.Headless {
	return s.scene
}

func (s *Session) Feed() *sensor.Feed {
	return s.feed
}

func (s *Session) Ticks() int {
	return s.ticks
}

// CatchOutcome is the last catch result, or false if no catch has been attempted.
func (s *Session) CatchOutcome() (hunt.CatchOutcome, bool) {
	v := s.catchResult.Load()
	if v < 0 {
		return 0, false
	}
	return hunt.CatchOutcome(v), true
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// slogControlLogger adapts slog to control.Logger when no dispatcher logger is given.
type slogControlLogger struct {
	log *slog.Logger
}

func (l slogControlLogger) Debug(msg string, kv ...any) { l.log.Debug(msg, kv...) }
func (l slogControlLogger) Info(msg string, kv ...any)  { l.log.Info(msg, kv...) }
func (l slogControlLogger) Error(msg string, kv ...any) { l.log.Error(msg, kv...) }
