package model

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Game{},
	&Ghost{},
	&ModelSettings{},
	&Capture{},
}

// SettingsRowID is the primary key of the single ModelSettings row.
const SettingsRowID = 1

// Game is a hunt scenario. Zones are kept as a JSON document.
type Game struct {
	ID             uuid.UUID      `json:"id" gorm:"size:36;primaryKey"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	Position       int            `json:"position" gorm:"index:idx_game_position"`
	Name           string         `json:"name" gorm:"size:127"`
	IsActive       bool           `json:"isActive"`
	LocationLayout datatypes.JSON `json:"locationLayout"`
	Ghosts         []Ghost        `json:"ghosts" gorm:"foreignKey:GameID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (*Game) TableName() string {
	return "games"
}

// Ghost is a huntable target. Base and Location are EPSG:3857 WKB points.
type Ghost struct {
	ID                   uuid.UUID    `json:"id" gorm:"size:36;primaryKey"`
	GameID               uuid.UUID    `json:"gameId" gorm:"size:36;index:idx_ghost_game_id"`
	Position             int          `json:"position"`
	Name                 string       `json:"name" gorm:"size:127"`
	ModelID              string       `json:"modelId" gorm:"size:127"`
	Base                 []byte       `json:"base"`
	Location             []byte       `json:"location"`
	MainZoneRadius       float64      `json:"mainZoneRadius"`
	FightRadius          float64      `json:"fightRadius"`
	TrapWindowMs         int64        `json:"trapWindowMs"`
	EscapeDistanceMeters float64      `json:"escapeDistanceMeters"`
	State                string       `json:"state" gorm:"size:16"`
	LastEscape           sql.NullTime `json:"lastEscape"`
}

func (*Ghost) TableName() string {
	return "ghosts"
}

// ModelSettings holds the selected ghost model. There is only ever one row.
type ModelSettings struct {
	ID      uint    `json:"id" gorm:"primaryKey"`
	ModelID string  `json:"modelId" gorm:"size:127"`
	Scale   float64 `json:"scale"`
}

func (*ModelSettings) TableName() string {
	return "model_settings"
}

// Capture is one finished hunt.
type Capture struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SessionID      uuid.UUID `json:"sessionId" gorm:"size:36;index:idx_capture_session_id"`
	GameID         uuid.UUID `json:"gameId" gorm:"size:36"`
	GhostID        uuid.UUID `json:"ghostId" gorm:"size:36;index:idx_capture_ghost_id"`
	CapturedAt     time.Time `json:"capturedAt" gorm:"index:idx_captured_at"`
	ShotsFired     int       `json:"shotsFired"`
	TimeToFreezeMs int64     `json:"timeToFreezeMs"`
	HuntDurationMs int64     `json:"huntDurationMs"`
	FreezeByAim    bool      `json:"freezeByAim"`
}

func (*Capture) TableName() string {
	return "captures"
}
