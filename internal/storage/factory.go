// internal/storage/factory.go
package storage

import (
	"fmt"
	"log/slog"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/storage/memory"
	"github.com/GhostbusterQuest/huntcore/internal/storage/postgres"
	sqlitestorage "github.com/GhostbusterQuest/huntcore/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// NewBackend creates a storage backend based on configuration. An empty type selects memory.
// The returned backend still needs Init.
func NewBackend(cfg config.StorageConfig, log *slog.Logger, dbLog zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(cfg.DB, cfg.SQLite.DumpPath, log, dbLog), nil
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: cfg.SQLite.DumpInterval,
			DumpPath:     cfg.SQLite.DumpPath,
		}, log)
	case "memory", "":
		return memory.New(cfg.Memory, afero.NewOsFs(), log), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Type)
	}
}
