// internal/storage/memory/memory.go
package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/spf13/afero"
)

// File names inside the output directory.
const (
	GamesFile    = "games.json"
	SettingsFile = "modelSettings.json"
	CapturesFile = "captures.json"
)

// Backend keeps the catalog in memory and mirrors every change to JSON files.
// An empty OutputDir keeps everything in memory only.
type Backend struct {
	cfg config.MemoryConfig
	fs  afero.Fs
	log *slog.Logger

	games    []core.Game
	settings *core.GhostModelSettings
	captures []core.Capture

	idCounter uint
	mu        sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig, fs afero.Fs, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		cfg: cfg,
		fs:  fs,
		log: log.With("component", "storage.memory"),
	}
}

// Init loads whatever a previous run left in the output directory.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.OutputDir == "" {
		return nil
	}
	if err := b.fs.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	if _, err := b.readJSON(GamesFile, &b.games); err != nil {
		return err
	}
	var settings core.GhostModelSettings
	found, err := b.readJSON(SettingsFile, &settings)
	if err != nil {
		return err
	}
	if found {
		b.settings = &settings
	}
	if _, err := b.readJSON(CapturesFile, &b.captures); err != nil {
		return err
	}
	for _, c := range b.captures {
		if c.ID > b.idCounter {
			b.idCounter = c.ID
		}
	}

	b.log.Debug("Loaded catalog", "games", len(b.games), "captures", len(b.captures))
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

func (b *Backend) LoadGames() ([]core.Game, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return copyGames(b.games), nil
}

func (b *Backend) SaveGames(games []core.Game) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.games = copyGames(games)
	return b.writeJSON(GamesFile, b.games)
}

func (b *Backend) LoadModelSettings() (core.GhostModelSettings, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.settings == nil {
		return core.DefaultGhostModelSettings(), nil
	}
	return *b.settings, nil
}

func (b *Backend) SaveModelSettings(s core.GhostModelSettings) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = &s
	return b.writeJSON(SettingsFile, s)
}

// RecordCapture assigns the next id and appends to the history.
func (b *Backend) RecordCapture(c *core.Capture) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	c.ID = b.idCounter
	b.captures = append(b.captures, *c)
	return b.writeJSON(CapturesFile, b.captures)
}

func (b *Backend) Captures() ([]core.Capture, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Capture(nil), b.captures...), nil
}

// readJSON decodes name into v. A missing file leaves v untouched and reports false.
func (b *Backend) readJSON(name string, v any) (bool, error) {
	data, err := afero.ReadFile(b.fs, filepath.Join(b.cfg.OutputDir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

// writeJSON writes v as indented JSON with sorted keys. Caller holds mu.
func (b *Backend) writeJSON(name string, v any) error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	// round trip through generic values so object keys come out sorted
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	data, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	path := filepath.Join(b.cfg.OutputDir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(b.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := b.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func copyGames(games []core.Game) []core.Game {
	if games == nil {
		return nil
	}
	out := make([]core.Game, len(games))
	for i, g := range games {
		g.Zones = append([]core.CircleZone(nil), g.Zones...)
		g.Ghosts = append([]core.Ghost(nil), g.Ghosts...)
		out[i] = g
	}
	return out
}
