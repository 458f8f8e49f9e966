package core

import (
	"time"

	"github.com/google/uuid"
)

// GhostState is the scenario-level status of a ghost.
type GhostState string

const (
	GhostIdle       GhostState = "idle"
	GhostActive     GhostState = "active"
	GhostARSearch   GhostState = "arSearch"
	GhostFight      GhostState = "fight"
	GhostTrapWindow GhostState = "trapWindow"
	GhostEscaped    GhostState = "escaped"
	GhostCaptured   GhostState = "captured"
)

// Ghost defaults used when a scenario does not override them.
const (
	DefaultMainZoneRadius  = 150.0
	DefaultFightRadius     = 20.0
	DefaultTrapWindow      = 7 * time.Second
	DefaultEscapeDistance  = 40.0
	DefaultZoneRadius      = 100.0
	DefaultGhostModelID    = "Quaternius.usdc"
	DefaultGhostModelScale = 0.12
	DefaultGameName        = "New game"
)

// CircleZone is a circular play area on the map.
type CircleZone struct {
	ID           uuid.UUID  `json:"id"`
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
}

// NewCircleZone creates a zone with a fresh id.
func NewCircleZone(center Coordinate, radius float64) CircleZone {
	if radius <= 0 {
		radius = DefaultZoneRadius
	}
	return CircleZone{ID: uuid.New(), Center: center, RadiusMeters: radius}
}

// Ghost is a huntable target placed at a geographic location.
type Ghost struct {
	ID                   uuid.UUID     `json:"id"`
	Name                 string        `json:"name"`
	ModelID              string        `json:"modelID"`
	Base                 Coordinate    `json:"base"`
	Current              Coordinate    `json:"current"`
	MainZoneRadius       float64       `json:"mainZoneRadius"`
	FightRadius          float64       `json:"fightRadius"`
	TrapWindowDuration   time.Duration `json:"trapWindowDuration"`
	EscapeDistanceMeters float64       `json:"escapeDistanceMeters"`
	State                GhostState    `json:"state"`
	LastEscape           *time.Time    `json:"lastEscape,omitempty"`
}

// NewGhost creates an idle ghost at base with the default radii.
func NewGhost(name, modelID string, base Coordinate) Ghost {
	return Ghost{
		ID:                   uuid.New(),
		Name:                 name,
		ModelID:              modelID,
		Base:                 base,
		Current:              base,
		MainZoneRadius:       DefaultMainZoneRadius,
		FightRadius:          DefaultFightRadius,
		TrapWindowDuration:   DefaultTrapWindow,
		EscapeDistanceMeters: DefaultEscapeDistance,
		State:                GhostIdle,
	}
}

// Game is a hunt scenario: play zones plus the ghosts hidden in them.
type Game struct {
	ID       uuid.UUID    `json:"id"`
	Name     string       `json:"name"`
	Zones    []CircleZone `json:"locationLayout"`
	Ghosts   []Ghost      `json:"ghosts"`
	IsActive bool         `json:"isActive"`
}

// NewGame creates an empty inactive game.
func NewGame(name string) Game {
	if name == "" {
		name = DefaultGameName
	}
	return Game{ID: uuid.New(), Name: name}
}

// CapturedCount is the number of ghosts already caught.
func (g Game) CapturedCount() int {
	n := 0
	for _, gh := range g.Ghosts {
		if gh.State == GhostCaptured {
			n++
		}
	}
	return n
}

// GhostModelSettings selects the 3D model and scale used for the target.
type GhostModelSettings struct {
	ModelID string  `json:"modelID"`
	Scale   float64 `json:"scale"`
}

// DefaultGhostModelSettings is used when nothing has been saved yet.
func DefaultGhostModelSettings() GhostModelSettings {
	return GhostModelSettings{ModelID: DefaultGhostModelID, Scale: DefaultGhostModelScale}
}

// Capture records one finished hunt.
type Capture struct {
	ID           uint
	SessionID    uuid.UUID
	GameID       uuid.UUID
	GhostID      uuid.UUID
	CapturedAt   time.Time
	ShotsFired   int
	TimeToFreeze time.Duration
	HuntDuration time.Duration
	FreezeByAim  bool
}
