// Package hunt runs the AR engagement with a single ghost: roaming, firing, freezing and
// the capture sequence. All engine state is owned by the goroutine that calls Step; only
// ReportContact may be called from elsewhere.
package hunt

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/orbit"
	"github.com/GhostbusterQuest/huntcore/internal/projectile"
	"github.com/GhostbusterQuest/huntcore/internal/queue"
	"github.com/GhostbusterQuest/huntcore/internal/scene"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// Phase is the ghost's lifecycle state.
type Phase int

const (
	Roaming Phase = iota
	Frozen
	Captured
)

func (p Phase) String() string {
	switch p {
	case Roaming:
		return "roaming"
	case Frozen:
		return "frozen"
	case Captured:
		return "captured"
	default:
		return "unknown"
	}
}

// CatchOutcome is passed to every PerformCatch callback exactly once.
type CatchOutcome int

const (
	// CatchCompleted: this call ran the capture sequence to the end.
	CatchCompleted CatchOutcome = iota
	// CatchAlreadyCaptured: an earlier call owns the capture; nothing was done.
	CatchAlreadyCaptured
	// CatchRejected: the ghost was not frozen.
	CatchRejected
	// CatchAborted: the engine closed before the sequence finished.
	CatchAborted
)

func (o CatchOutcome) String() string {
	switch o {
	case CatchCompleted:
		return "completed"
	case CatchAlreadyCaptured:
		return "already-captured"
	case CatchRejected:
		return "rejected"
	case CatchAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

const inboxLimit = 1024

// Stats summarize the engagement so far. Times are engine elapsed seconds.
type Stats struct {
	ShotsFired  int
	Hits        int
	FreezeByAim bool
	FrozenAt    *float64
	CapturedAt  *float64
}

// State is a read-only snapshot for presentation.
type State struct {
	Phase       Phase
	CanCatch    bool
	Firing      bool
	Placed      bool
	Elapsed     float64
	Target      core.Pose // world space
	Projectiles int
	ModelID     string
}

type eventKind int

const (
	eventContact eventKind = iota
	eventModelLoaded
)

type event struct {
	kind    eventKind
	contact scene.Contact
	gen     uint64
	model   assets.Model
	modelID string
	err     error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// WithLoader enables model loading through l.
func WithLoader(l assets.Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithAssetErrorHandler is called on the tick goroutine when a model fails to load.
func WithAssetErrorHandler(fn func(modelID string, err error)) Option {
	return func(e *Engine) {
		e.onAssetError = fn
	}
}

// WithPhaseHandler is called on the tick goroutine after every phase change.
func WithPhaseHandler(fn func(Phase)) Option {
	return func(e *Engine) {
		e.onPhase = fn
	}
}

// Engine is the hunt state machine.
type Engine struct {
	cfg     Config
	scene   scene.Scene
	loader  assets.Loader
	log     *slog.Logger
	metrics *metrics

	projector *geo.Projector
	orbit     orbit.Choreographer
	sim       *projectile.Simulator
	fire      *FireControl
	rng       *rand.Rand
	timeline  timeline

	elapsed float64
	phase   Phase

	anchor      scene.Handle
	anchorPos   core.Vec3
	placed      bool
	targetCoord *core.Coordinate

	target       scene.Handle
	targetPose   core.Pose // relative to anchor
	baseScale    float64
	freezeAnchor core.Vec3
	canCatch     bool
	isCaptured   bool
	tween        *tween
	completions  []func(CatchOutcome)

	bolts    map[projectile.ID]scene.Handle
	byHandle map[scene.Handle]projectile.ID

	inbox       *queue.Queue[event]
	ctx         context.Context
	cancel      context.CancelFunc
	loadCancel  context.CancelFunc
	loadGen     uint64
	model       core.GhostModelSettings
	loadedModel string
	loads       sync.WaitGroup

	stats        Stats
	closed       atomic.Bool
	onAssetError func(string, error)
	onPhase      func(Phase)
}

// New builds an engine and creates its anchor and placeholder ghost in sc.
func New(sc scene.Scene, cfg Config, opts ...Option) (*Engine, error) {
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	e := &Engine{
		cfg:       cfg,
		scene:     sc,
		log:       slog.Default(),
		metrics:   m,
		projector: geo.NewProjector(cfg.UnitsPerMeter),
		orbit:     orbit.New(cfg.Orbit),
		sim:       projectile.NewSimulator(cfg.Projectile),
		fire:      NewFireControl(cfg.Fire, rng),
		rng:       rng,
		bolts:     make(map[projectile.ID]scene.Handle),
		byHandle:  make(map[scene.Handle]projectile.ID),
		inbox:     queue.NewBounded[event](inboxLimit),
		ctx:       ctx,
		cancel:    cancel,
		model:     core.DefaultGhostModelSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.baseScale = e.model.Scale

	e.anchor = sc.Spawn(scene.KindAnchor, scene.Root, core.NewPose(core.Vec3{}, 1))
	pos, rot := e.orbit.Pose(0)
	e.targetPose = core.Pose{Position: pos, Orientation: rot, Scale: core.Uniform(e.baseScale)}
	e.target = sc.Spawn(scene.KindTarget, e.anchor, e.targetPose)
	sc.SetMaterial(e.target, scene.MaterialDefault)
	sc.AttachCollider(e.target, scene.Collider{
		Radius: cfg.TargetRadius,
		Group:  scene.GroupTarget,
		Mask:   scene.GroupProjectile,
	})
	return e, nil
}

// Phase returns the current lifecycle phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// CanCatch is true from the moment the ghost freezes until its capture completes.
func (e *Engine) CanCatch() bool {
	return e.canCatch
}

func (e *Engine) Elapsed() float64 {
	return e.elapsed
}

func (e *Engine) Stats() Stats {
	return e.stats
}

// Projector exposes the geo origin for inspection.
func (e *Engine) Projector() *geo.Projector {
	return e.projector
}

// Target is the scene handle of the ghost, or false once it has been removed.
func (e *Engine) Target() (scene.Handle, bool) {
	return e.target, e.target != 0
}

// TargetWorld is the ghost's world-space position.
func (e *Engine) TargetWorld() core.Vec3 {
	return e.anchorPos.Add(e.targetPose.Position)
}

// State returns a snapshot for presentation.
func (e *Engine) State() State {
	pose := e.targetPose
	pose.Position = e.TargetWorld()
	return State{
		Phase:       e.phase,
		CanCatch:    e.canCatch,
		Firing:      e.fire.Firing(),
		Placed:      e.placed,
		Elapsed:     e.elapsed,
		Target:      pose,
		Projectiles: e.sim.Len(),
		ModelID:     e.loadedModel,
	}
}

// StartFiring begins continuous fire (or one shot, for the single policy).
func (e *Engine) StartFiring() {
	if e.closed.Load() || e.isCaptured {
		return
	}
	e.fire.Start(e.elapsed)
}

// StopFiring halts new shots. Projectiles already in flight keep resolving.
func (e *Engine) StopFiring() {
	e.fire.Stop()
}

// UpdatePlacement places the ghost's anchor at target relative to the player.
// The geo origin latches on the first call that carries a user coordinate; later headings
// only back-fill it. Without an origin the anchor stays where it is.
func (e *Engine) UpdatePlacement(target core.Coordinate, user *core.Coordinate, heading *float64) {
	if e.closed.Load() {
		return
	}
	t := target
	e.targetCoord = &t

	if user != nil {
		cam := e.scene.CameraPose()
		if e.projector.EstablishOrigin(user, cam.Position, cam.Forward(), heading) {
			e.log.Debug("geo origin updated", "lat", user.Lat, "lon", user.Lon, "headingKnown", heading != nil)
		}
	} else if heading != nil {
		e.projector.RefineHeading(*heading)
	}
	e.reproject()
}

func (e *Engine) reproject() {
	if e.targetCoord == nil {
		return
	}
	pos, ok := e.projector.Project(*e.targetCoord)
	if !ok {
		return
	}
	e.anchorPos = pos
	e.placed = true
	e.scene.SetPose(e.anchor, core.NewPose(pos, 1))
}

// UpdateModelSettings changes the ghost model and scale. The scale applies immediately;
// the model loads in the background and replaces the current one on a later tick. A newer
// request cancels an older one still in flight.
func (e *Engine) UpdateModelSettings(modelID string, scale float64) {
	if e.closed.Load() {
		return
	}
	if scale > 0 {
		e.baseScale = scale
		e.model.Scale = scale
	}
	if modelID == "" {
		return
	}
	e.model.ModelID = modelID

	if e.loadCancel != nil {
		e.loadCancel()
		e.loadCancel = nil
	}
	e.loadGen++
	if e.loader == nil || modelID == e.loadedModel {
		return
	}
	gen := e.loadGen
	ctx, cancel := context.WithCancel(e.ctx)
	e.loadCancel = cancel

	e.loads.Add(1)
	go func() {
		defer e.loads.Done()
		m, err := e.loader.Load(ctx, modelID)
		e.inbox.Push(event{kind: eventModelLoaded, gen: gen, model: m, modelID: modelID, err: err})
	}()
}

// ReportContact queues a collision-begin notification from the scene. Safe from any goroutine.
func (e *Engine) ReportContact(c scene.Contact) {
	if e.closed.Load() {
		return
	}
	if e.inbox.Push(event{kind: eventContact, contact: c}) == 0 {
		e.log.Warn("hunt inbox full, contact dropped", "a", c.A, "b", c.B)
	}
}

// Step advances the simulation by dt seconds: clock, queued events, fire slots,
// projectiles and hits, scheduled catch stages, then the ghost pose.
func (e *Engine) Step(dt float64) {
	if e.closed.Load() || dt < 0 || math.IsNaN(dt) {
		return
	}
	e.elapsed += dt

	e.drainInbox()

	cam := e.scene.CameraPose()
	for n := e.fire.Due(e.elapsed); n > 0; n-- {
		e.shoot(cam)
	}

	e.advanceProjectiles(dt)
	e.timeline.advance(e.elapsed)
	e.applyTargetPose()
}

func (e *Engine) drainInbox() {
	for _, ev := range e.inbox.Drain(0) {
		switch ev.kind {
		case eventContact:
			e.handleContact(ev.contact)
		case eventModelLoaded:
			e.handleModelLoaded(ev)
		}
	}
}

func (e *Engine) handleContact(c scene.Contact) {
	other, ok := c.Other(e.target)
	if !ok || e.target == 0 {
		return
	}
	id, ok := e.byHandle[other]
	if !ok || e.phase != Roaming {
		return
	}
	e.sim.Remove(id)
	e.removeBolt(id)
	e.freeze(false)
}

func (e *Engine) handleModelLoaded(ev event) {
	if ev.gen != e.loadGen {
		e.log.Debug("stale model load dropped", "model", ev.modelID)
		return
	}
	e.loadCancel = nil
	if ev.err != nil {
		if errors.Is(ev.err, context.Canceled) {
			return
		}
		e.log.Warn("ghost model load failed, keeping current model", "model", ev.modelID, "error", ev.err)
		e.metrics.assetFailed(ev.modelID)
		if e.onAssetError != nil {
			e.onAssetError(ev.modelID, ev.err)
		}
		return
	}
	if e.target == 0 {
		return
	}
	e.scene.SetModel(e.target, ev.model)
	e.loadedModel = ev.modelID
	if e.phase == Frozen {
		e.scene.SetMaterial(e.target, scene.MaterialFrozen)
	}
	e.log.Info("ghost model installed", "model", ev.modelID, "path", ev.model.Path)
}

func (e *Engine) shoot(cam core.Pose) {
	forward := cam.Forward()
	origin := cam.Position.Add(forward.Scale(e.cfg.Projectile.SpawnOffset))

	id := e.sim.Spawn(origin, forward, e.cfg.Projectile.Speed, projectile.RandomStyle(e.rng))
	h := e.scene.Spawn(scene.KindProjectile, scene.Root, core.Pose{
		Position:    origin,
		Orientation: core.FromTo(core.Up, forward),
		Scale:       core.Uniform(1),
	})
	e.scene.SetMaterial(h, scene.MaterialBolt)
	e.scene.AttachCollider(h, scene.Collider{
		Radius: e.cfg.BoltRadius,
		Group:  scene.GroupProjectile,
		Mask:   scene.GroupTarget,
	})
	e.bolts[id] = h
	e.byHandle[h] = id

	e.stats.ShotsFired++
	e.metrics.shot()

	if e.cfg.Aim.Enabled && e.phase == Roaming && e.target != 0 {
		toTarget := e.TargetWorld().Sub(cam.Position)
		if toTarget.Len() >= core.MinDirectionLength && forward.Dot(toTarget.Normalized(forward)) >= e.cfg.Aim.Threshold {
			e.freeze(true)
		}
	}
}

func (e *Engine) advanceProjectiles(dt float64) {
	res := e.sim.Advance(dt, e.TargetWorld(), e.phase != Roaming)
	for _, id := range res.Hits {
		e.removeBolt(id)
		e.freeze(false)
	}
	for _, id := range res.Expired {
		e.removeBolt(id)
	}
	for _, p := range e.sim.Live() {
		h, ok := e.bolts[p.ID]
		if !ok {
			continue
		}
		v := p.Visual()
		e.scene.SetPose(h, core.Pose{Position: v.Position, Orientation: v.Orientation, Scale: core.Uniform(1)})
	}
}

func (e *Engine) removeBolt(id projectile.ID) {
	h, ok := e.bolts[id]
	if !ok {
		return
	}
	delete(e.bolts, id)
	delete(e.byHandle, h)
	e.scene.Remove(h)
}

// freeze enters Frozen from Roaming. Any other phase ignores it.
func (e *Engine) freeze(byAim bool) {
	if e.phase != Roaming || e.isCaptured || e.target == 0 {
		return
	}
	e.phase = Frozen
	e.freezeAnchor = e.targetPose.Position
	e.canCatch = true

	at := e.elapsed
	e.stats.FrozenAt = &at
	e.stats.Hits++
	e.stats.FreezeByAim = byAim
	e.metrics.hit(byAim)

	e.scene.SetMaterial(e.target, scene.MaterialFrozen)
	e.log.Info("ghost frozen", "elapsed", at, "byAim", byAim, "shots", e.stats.ShotsFired)
	e.notifyPhase()
}

// Release returns a frozen ghost to roaming. The shipped flow never calls it.
func (e *Engine) Release() bool {
	if e.phase != Frozen || e.isCaptured {
		return false
	}
	e.phase = Roaming
	e.canCatch = false
	e.stats.FrozenAt = nil
	e.scene.SetMaterial(e.target, scene.MaterialDefault)
	e.notifyPhase()
	return true
}

func (e *Engine) applyTargetPose() {
	if e.target == 0 {
		return
	}
	switch e.phase {
	case Roaming:
		pos, rot := e.orbit.Pose(e.elapsed)
		e.targetPose = core.Pose{Position: pos, Orientation: rot, Scale: core.Uniform(e.baseScale)}
	case Frozen:
		e.targetPose.Position = e.freezeAnchor.Add(e.jitter(e.elapsed))
		e.targetPose.Scale = core.Uniform(e.baseScale * e.cfg.Frozen.Scale)
	case Captured:
		if e.tween != nil {
			e.targetPose = e.tween.at(e.elapsed)
		}
	}
	e.scene.SetPose(e.target, e.targetPose)
}

// jitter is the struggling shake of a frozen ghost.
func (e *Engine) jitter(t float64) core.Vec3 {
	amp := e.cfg.Frozen.Amplitude
	f := e.cfg.Frozen.Frequency
	return core.Vec3{
		X: math.Sin(t*f) * amp,
		Y: math.Cos(t*f*0.85) * amp * 0.5,
		Z: math.Cos(t*f*1.07) * amp,
	}
}

func (e *Engine) notifyPhase() {
	if e.onPhase != nil {
		e.onPhase(e.phase)
	}
}

// Close tears the engagement down: pending loads are cancelled, scheduled catch stages are
// dropped and their callbacks receive CatchAborted, and every node the engine created is
// removed. Later calls to any method are no-ops.
func (e *Engine) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.cancel()
	e.loads.Wait()
	e.inbox.Clear()
	e.timeline.cancel()
	e.fire.Stop()

	pending := e.completions
	e.completions = nil
	for _, cb := range pending {
		cb(CatchAborted)
	}

	for _, id := range e.sim.Clear() {
		e.removeBolt(id)
	}
	if e.anchor != 0 {
		e.scene.Remove(e.anchor)
	}
	e.target = 0
	e.anchor = 0
	e.canCatch = false
}
