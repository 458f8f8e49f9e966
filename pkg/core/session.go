package core

import (
	"time"

	"github.com/google/uuid"
)

// SessionOutcome is how a hunt session ended.
type SessionOutcome string

const (
	OutcomeCaptured  SessionOutcome = "captured"
	OutcomeFrozen    SessionOutcome = "frozen"
	OutcomeAbandoned SessionOutcome = "abandoned"
)

// SessionSummary describes one finished hunt session.
type SessionSummary struct {
	SessionID    uuid.UUID      `json:"sessionId"`
	GameID       uuid.UUID      `json:"gameId"`
	GhostID      uuid.UUID      `json:"ghostId"`
	Started      time.Time      `json:"started"`
	Ended        time.Time      `json:"ended"`
	Outcome      SessionOutcome `json:"outcome"`
	Ticks        int            `json:"ticks"`
	ShotsFired   int            `json:"shotsFired"`
	Hits         int            `json:"hits"`
	FreezeByAim  bool           `json:"freezeByAim"`
	TimeToFreeze time.Duration  `json:"timeToFreeze"` // zero if the ghost never froze
	ModelID      string         `json:"modelId,omitempty"`
}

// Duration is the wall time the session ran.
func (s SessionSummary) Duration() time.Duration {
	return s.Ended.Sub(s.Started)
}

// Capture builds the capture record for a captured session.
func (s SessionSummary) Capture() Capture {
	return Capture{
		SessionID:    s.SessionID,
		GameID:       s.GameID,
		GhostID:      s.GhostID,
		CapturedAt:   s.Ended,
		ShotsFired:   s.ShotsFired,
		TimeToFreeze: s.TimeToFreeze,
		HuntDuration: s.Duration(),
		FreezeByAim:  s.FreezeByAim,
	}
}
