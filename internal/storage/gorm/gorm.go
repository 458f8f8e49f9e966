// Package gormstorage implements the storage.Backend interface on any GORM database.
// Catalog reads and writes are synchronous; captures go through a queue that a
// background writer drains in batches.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/model"
	"github.com/GhostbusterQuest/huntcore/internal/model/convert"
	"github.com/GhostbusterQuest/huntcore/internal/queue"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"gorm.io/gorm"
)

// DefaultWriteInterval is how often queued captures are written.
const DefaultWriteInterval = time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	WriteInterval time.Duration
}

// Backend implements storage.Backend using GORM with a queued capture writer.
type Backend struct {
	deps     Dependencies
	log      *slog.Logger
	captures *queue.Queue[model.Capture]

	// writeMu serializes queue drains so Captures sees everything recorded before it.
	writeMu  sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = DefaultWriteInterval
	}
	return &Backend{
		deps:     deps,
		log:      deps.Logger.With("component", "storage.gorm"),
		captures: queue.New[model.Capture](),
	}
}

// DB is the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the capture writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return errors.New("gorm backend has no database")
	}

	b.log.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	if b.deps.DB == nil {
		return nil
	}
	return b.flush()
}

// LoadGames returns all games in catalog order with their ghosts.
func (b *Backend) LoadGames() ([]core.Game, error) {
	var rows []model.Game
	err := b.deps.DB.
		Preload("Ghosts", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Order("position").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load games: %w", err)
	}

	games := make([]core.Game, 0, len(rows))
	for _, row := range rows {
		g, err := convert.GameToCore(row)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

// SaveGames replaces the stored catalog in one transaction.
func (b *Backend) SaveGames(games []core.Game) error {
	rows := make([]model.Game, len(games))
	for i, g := range games {
		row, err := convert.CoreToGame(g, i)
		if err != nil {
			return err
		}
		rows[i] = row
	}

	return b.deps.DB.Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&model.Ghost{}).Error; err != nil {
			return fmt.Errorf("failed to clear ghosts: %w", err)
		}
		if err := all.Delete(&model.Game{}).Error; err != nil {
			return fmt.Errorf("failed to clear games: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert games: %w", err)
		}
		return nil
	})
}

func (b *Backend) LoadModelSettings() (core.GhostModelSettings, error) {
	var row model.ModelSettings
	err := b.deps.DB.First(&row, model.SettingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return core.DefaultGhostModelSettings(), nil
	}
	if err != nil {
		return core.GhostModelSettings{}, fmt.Errorf("failed to load model settings: %w", err)
	}
	return convert.ModelSettingsToCore(row), nil
}

func (b *Backend) SaveModelSettings(s core.GhostModelSettings) error {
	row := convert.CoreToModelSettings(s)
	if err := b.deps.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save model settings: %w", err)
	}
	return nil
}

// RecordCapture queues the capture. Its ID is assigned when the writer stores it,
// so the caller's struct is not updated.
func (b *Backend) RecordCapture(c *core.Capture) error {
	b.captures.Push(convert.CoreToCapture(*c))
	return nil
}

// Captures flushes pending writes and returns the history oldest first.
func (b *Backend) Captures() ([]core.Capture, error) {
	if err := b.flush(); err != nil {
		return nil, err
	}
	var rows []model.Capture
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load captures: %w", err)
	}
	out := make([]core.Capture, len(rows))
	for i, row := range rows {
		out[i] = convert.CaptureToCore(row)
	}
	return out, nil
}

// Pending is the number of captures waiting for the writer.
func (b *Backend) Pending() int {
	return b.captures.Len()
}

func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return writeQueue(b.deps.DB, b.captures, "captures", b.log)
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Push(items...)
		return fmt.Errorf("failed to write %d %s: %w", len(items), name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Push(items...)
		return fmt.Errorf("failed to commit %s: %w", name, err)
	}
	log.Debug("Wrote "+name, "count", len(items))
	return nil
}

// writeLoop periodically drains the capture queue into the DB.
func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.flush(); err != nil {
				b.log.Error("Capture write failed, retrying next tick", "error", err, "pending", b.Pending())
			}
		}
	}
}
