// Package postgres implements the storage.Backend interface using GORM/PostgreSQL.
// When Postgres cannot be reached the connection falls back to in-memory SQLite,
// which is dumped to disk on Close.
package postgres

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/database"
	gormstorage "github.com/GhostbusterQuest/huntcore/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend on a database.Manager connection.
// Init must succeed before any other method is called.
type Backend struct {
	*gormstorage.Backend
	cfg      config.DBConfig
	dumpPath string
	manager  *database.Manager
	log      *slog.Logger
}

// New creates a new Postgres storage backend. dumpPath is used only by the SQLite fallback.
func New(cfg config.DBConfig, dumpPath string, log *slog.Logger, dbLog zerolog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		cfg:      cfg,
		dumpPath: dumpPath,
		manager:  database.NewManager(dbLog),
		log:      log,
	}
}

// Init connects, migrates the schema and starts the capture writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.cfg, b.dumpPath); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:     b.manager.DB,
		Logger: b.log,
	})
	return b.Backend.Init()
}

// Fallback reports whether the backend is running on the local SQLite fallback.
func (b *Backend) Fallback() bool {
	return b.manager.Fallback()
}

// Close flushes pending captures, dumps the fallback database if in use and disconnects.
func (b *Backend) Close() error {
	var err error
	if b.Backend != nil {
		err = b.Backend.Close()
	}
	return errors.Join(err, b.manager.DumpFallback(), b.manager.Close())
}
