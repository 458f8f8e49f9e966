package hunt

import (
	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

type easing func(float64) float64

func easeInOut(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - 2*(1-t)*(1-t)
}

func easeIn(t float64) float64 {
	return t * t
}

// tween interpolates position and scale between two poses; orientation is held.
type tween struct {
	from, to core.Pose
	start    float64
	duration float64
	ease     easing
}

func (tw *tween) at(now float64) core.Pose {
	t := 1.0
	if tw.duration > 0 {
		t = core.Clamp((now-tw.start)/tw.duration, 0, 1)
	}
	k := tw.ease(t)
	return core.Pose{
		Position:    tw.from.Position.Lerp(tw.to.Position, k),
		Orientation: tw.from.Orientation,
		Scale:       tw.from.Scale.Lerp(tw.to.Scale, k),
	}
}

// PerformCatch captures a frozen ghost. onComplete is called exactly once:
// with CatchCompleted after the last stage of the sequence, or right away with
// CatchAlreadyCaptured or CatchRejected, or with CatchAborted if the engine closes first.
//
// The sequence scales the ghost up in place, then flies it into the camera while shrinking
// it, then removes it. It cannot be interrupted once started.
func (e *Engine) PerformCatch(onComplete func(CatchOutcome)) {
	if onComplete == nil {
		onComplete = func(CatchOutcome) {}
	}
	switch {
	case e.closed.Load():
		onComplete(CatchAborted)
		return
	case e.isCaptured:
		onComplete(CatchAlreadyCaptured)
		return
	case e.phase != Frozen || e.target == 0:
		onComplete(CatchRejected)
		return
	}

	e.isCaptured = true
	e.fire.Stop()
	e.phase = Captured
	e.completions = append(e.completions, onComplete)

	start := e.elapsed
	from := e.targetPose
	up := from
	up.Scale = from.Scale.Scale(e.cfg.Catch.ScaleUp)
	e.tween = &tween{from: from, to: up, start: start, duration: e.cfg.Catch.ScaleUpDuration, ease: easeInOut}
	e.timeline.schedule(start+e.cfg.Catch.ScaleUpDuration, e.catchFly)

	e.log.Info("capture started", "elapsed", start)
	e.notifyPhase()
}

// catchFly is the second stage: move to the camera and shrink.
func (e *Engine) catchFly(at float64) {
	if e.target == 0 {
		return
	}
	from := e.tween.at(at)
	to := from
	to.Position = e.scene.CameraPose().Position.Sub(e.anchorPos)
	to.Scale = core.Uniform(e.cfg.Catch.FinalScale)
	e.tween = &tween{from: from, to: to, start: at, duration: e.cfg.Catch.FlyDuration, ease: easeIn}
	e.timeline.schedule(at+e.cfg.Catch.FlyDuration, e.catchFinish)
}

// catchFinish removes the ghost and completes every waiting caller.
func (e *Engine) catchFinish(at float64) {
	if e.target != 0 {
		e.scene.Remove(e.target)
		e.target = 0
	}
	e.tween = nil
	e.canCatch = false

	captured := at
	e.stats.CapturedAt = &captured
	e.metrics.captured()
	e.log.Info("ghost captured", "elapsed", at, "shots", e.stats.ShotsFired)

	pending := e.completions
	e.completions = nil
	for _, cb := range pending {
		cb(CatchCompleted)
	}
}

// CatchPending reports whether the capture sequence is running.
func (e *Engine) CatchPending() bool {
	return e.timeline.pending() > 0
}
