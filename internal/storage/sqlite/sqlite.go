// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific parts are creating the in-memory DB,
// restoring the last dump on Init and the periodic disk dump.
package sqlitestorage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/database"
	"github.com/GhostbusterQuest/huntcore/internal/model"
	gormstorage "github.com/GhostbusterQuest/huntcore/internal/storage/gorm"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, log *slog.Logger) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.OpenSqlite("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:       db,
		cfg:      cfg,
		log:      log.With("component", "storage.sqlite"),
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the in-memory schema, restores the previous dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if err := b.restore(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, flushes the embedded GORM backend and writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()

	err := b.Backend.Close()
	if b.cfg.DumpPath != "" {
		err = errors.Join(err, database.Dump(b.db, b.cfg.DumpPath))
	}

	sqlDB, dbErr := b.db.DB()
	if dbErr == nil {
		err = errors.Join(err, sqlDB.Close())
	}
	return err
}

// Dump writes the current state to DumpPath now.
func (b *Backend) Dump() error {
	return database.Dump(b.db, b.cfg.DumpPath)
}

// restore copies the rows of an existing dump into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	src, err := database.OpenSqlite(b.cfg.DumpPath)
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	if sqlDB, err := src.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := src.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate dump: %w", err)
	}

	var games []model.Game
	if err := src.Preload("Ghosts").Find(&games).Error; err != nil {
		return fmt.Errorf("failed to read games from dump: %w", err)
	}
	var settings []model.ModelSettings
	if err := src.Find(&settings).Error; err != nil {
		return fmt.Errorf("failed to read model settings from dump: %w", err)
	}
	var captures []model.Capture
	if err := src.Find(&captures).Error; err != nil {
		return fmt.Errorf("failed to read captures from dump: %w", err)
	}

	err = b.db.Transaction(func(tx *gorm.DB) error {
		if len(games) > 0 {
			if err := tx.Create(&games).Error; err != nil {
				return err
			}
		}
		if len(settings) > 0 {
			if err := tx.Create(&settings).Error; err != nil {
				return err
			}
		}
		if len(captures) > 0 {
			if err := tx.Create(&captures).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to restore dump: %w", err)
	}

	b.log.Info("Restored dump", "path", b.cfg.DumpPath, "games", len(games), "captures", len(captures))
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.Dump(b.db, b.cfg.DumpPath); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			} else {
				b.log.Debug("Dumped to disk", "duration", time.Since(start))
			}
		}
	}
}
