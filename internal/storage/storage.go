// internal/storage/storage.go
package storage

import (
	"errors"

	"github.com/GhostbusterQuest/huntcore/pkg/core"
)

// ErrUnknownBackend is returned by NewBackend for an unsupported storage type.
var ErrUnknownBackend = errors.New("unknown storage type")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Catalog. SaveGames replaces the whole list, keeping its order.
	LoadGames() ([]core.Game, error)
	SaveGames(games []core.Game) error

	// Ghost model selection. Load returns the defaults if nothing was saved.
	LoadModelSettings() (core.GhostModelSettings, error)
	SaveModelSettings(s core.GhostModelSettings) error

	// Capture history (assigns ID to the passed pointer once stored)
	RecordCapture(c *core.Capture) error
	Captures() ([]core.Capture, error)
}
