// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/model"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// zonesToJSON converts zones to datatypes.JSON for DB storage.
func zonesToJSON(zones []core.CircleZone) (datatypes.JSON, error) {
	if len(zones) == 0 {
		return datatypes.JSON("[]"), nil
	}
	data, err := json.Marshal(zones)
	if err != nil {
		return nil, fmt.Errorf("encoding zones: %w", err)
	}
	return datatypes.JSON(data), nil
}

// CoreToGame converts a core.Game and its ghosts to GORM models.
// position is the game's index in the catalog.
func CoreToGame(g core.Game, position int) (model.Game, error) {
	layout, err := zonesToJSON(g.Zones)
	if err != nil {
		return model.Game{}, err
	}

	ghosts := make([]model.Ghost, len(g.Ghosts))
	for i, gh := range g.Ghosts {
		if ghosts[i], err = CoreToGhost(gh, g.ID, i); err != nil {
			return model.Game{}, fmt.Errorf("ghost %q of game %s: %w", gh.Name, g.ID, err)
		}
	}

	return model.Game{
		ID:             g.ID,
		Position:       position,
		Name:           g.Name,
		IsActive:       g.IsActive,
		LocationLayout: layout,
		Ghosts:         ghosts,
	}, nil
}

// CoreToGhost converts a core.Ghost to a GORM model.Ghost.
func CoreToGhost(g core.Ghost, gameID uuid.UUID, position int) (model.Ghost, error) {
	base, err := geo.EncodeLocation(g.Base)
	if err != nil {
		return model.Ghost{}, fmt.Errorf("base: %w", err)
	}
	location, err := geo.EncodeLocation(g.Current)
	if err != nil {
		return model.Ghost{}, fmt.Errorf("location: %w", err)
	}
	var lastEscape sql.NullTime
	if g.LastEscape != nil {
		lastEscape = sql.NullTime{Time: *g.LastEscape, Valid: true}
	}
	return model.Ghost{
		ID:                   g.ID,
		GameID:               gameID,
		Position:             position,
		Name:                 g.Name,
		ModelID:              g.ModelID,
		Base:                 base,
		Location:             location,
		MainZoneRadius:       g.MainZoneRadius,
		FightRadius:          g.FightRadius,
		TrapWindowMs:         g.TrapWindowDuration.Milliseconds(),
		EscapeDistanceMeters: g.EscapeDistanceMeters,
		State:                string(g.State),
		LastEscape:           lastEscape,
	}, nil
}

// CoreToModelSettings converts model settings to the single settings row.
func CoreToModelSettings(s core.GhostModelSettings) model.ModelSettings {
	return model.ModelSettings{
		ID:      model.SettingsRowID,
		ModelID: s.ModelID,
		Scale:   s.Scale,
	}
}

// CoreToCapture converts a core.Capture to a GORM model.Capture.
func CoreToCapture(c core.Capture) model.Capture {
	return model.Capture{
		ID:             c.ID,
		SessionID:      c.SessionID,
		GameID:         c.GameID,
		GhostID:        c.GhostID,
		CapturedAt:     c.CapturedAt,
		ShotsFired:     c.ShotsFired,
		TimeToFreezeMs: c.TimeToFreeze.Milliseconds(),
		HuntDurationMs: c.HuntDuration.Milliseconds(),
		FreezeByAim:    c.FreezeByAim,
	}
}

// GameToCore converts a GORM Game, with its ghosts preloaded, to a core.Game.
func GameToCore(g model.Game) (core.Game, error) {
	var zones []core.CircleZone
	if len(g.LocationLayout) > 0 {
		if err := json.Unmarshal(g.LocationLayout, &zones); err != nil {
			return core.Game{}, fmt.Errorf("decoding zones of game %s: %w", g.ID, err)
		}
	}

	ghosts := make([]core.Ghost, len(g.Ghosts))
	for i, gh := range g.Ghosts {
		c, err := GhostToCore(gh)
		if err != nil {
			return core.Game{}, err
		}
		ghosts[i] = c
	}

	return core.Game{
		ID:       g.ID,
		Name:     g.Name,
		Zones:    zones,
		Ghosts:   ghosts,
		IsActive: g.IsActive,
	}, nil
}

// GhostToCore converts a GORM Ghost to a core.Ghost.
func GhostToCore(g model.Ghost) (core.Ghost, error) {
	base, err := geo.DecodeLocation(g.Base)
	if err != nil {
		return core.Ghost{}, fmt.Errorf("ghost %s base: %w", g.ID, err)
	}
	current, err := geo.DecodeLocation(g.Location)
	if err != nil {
		return core.Ghost{}, fmt.Errorf("ghost %s location: %w", g.ID, err)
	}

	var lastEscape *time.Time
	if g.LastEscape.Valid {
		t := g.LastEscape.Time
		lastEscape = &t
	}

	return core.Ghost{
		ID:                   g.ID,
		Name:                 g.Name,
		ModelID:              g.ModelID,
		Base:                 base,
		Current:              current,
		MainZoneRadius:       g.MainZoneRadius,
		FightRadius:          g.FightRadius,
		TrapWindowDuration:   time.Duration(g.TrapWindowMs) * time.Millisecond,
		EscapeDistanceMeters: g.EscapeDistanceMeters,
		State:                core.GhostState(g.State),
		LastEscape:           lastEscape,
	}, nil
}

// ModelSettingsToCore converts the settings row to core settings.
func ModelSettingsToCore(s model.ModelSettings) core.GhostModelSettings {
	return core.GhostModelSettings{ModelID: s.ModelID, Scale: s.Scale}
}

// CaptureToCore converts a GORM Capture to a core.Capture.
func CaptureToCore(c model.Capture) core.Capture {
	return core.Capture{
		ID:           c.ID,
		SessionID:    c.SessionID,
		GameID:       c.GameID,
		GhostID:      c.GhostID,
		CapturedAt:   c.CapturedAt,
		ShotsFired:   c.ShotsFired,
		TimeToFreeze: time.Duration(c.TimeToFreezeMs) * time.Millisecond,
		HuntDuration: time.Duration(c.HuntDurationMs) * time.Millisecond,
		FreezeByAim:  c.FreezeByAim,
	}
}
