// Package catalog holds the hunt scenarios and their ghosts on top of a storage backend.
// Every mutation is written through to the backend.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/GhostbusterQuest/huntcore/internal/storage"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/google/uuid"
)

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGhostNotFound = errors.New("ghost not found")
)

// SampleLocation is the centre of the sample scenario.
var SampleLocation = core.Coordinate{Lat: 55.7558, Lon: 37.6173}

// Catalog is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	store storage.Backend
	games []core.Game
	log   *slog.Logger
}

func New(store storage.Backend, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{store: store, log: log.With("component", "catalog")}
}

// Load replaces the in-memory games with the stored ones.
func (c *Catalog) Load() error {
	games, err := c.store.LoadGames()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	c.mu.Lock()
	c.games = games
	c.mu.Unlock()
	c.log.Debug("Catalog loaded", "games", len(games))
	return nil
}

// Save writes the current games to the store.
func (c *Catalog) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saveLocked()
}

func (c *Catalog) saveLocked() error {
	if err := c.store.SaveGames(c.games); err != nil {
		return fmt.Errorf("saving catalog: %w", err)
	}
	return nil
}

// Games returns a copy of all games in order.
func (c *Catalog) Games() []core.Game {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Game, len(c.games))
	for i, g := range c.games {
		out[i] = cloneGame(g)
	}
	return out
}

func (c *Catalog) Game(id uuid.UUID) (core.Game, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return core.Game{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return cloneGame(c.games[i]), nil
}

// ActiveGame is the first game marked active.
func (c *Catalog) ActiveGame() (core.Game, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, g := range c.games {
		if g.IsActive {
			return cloneGame(g), true
		}
	}
	return core.Game{}, false
}

// TargetGhost picks the ghost to hunt in the active game: the first active one,
// otherwise the first ghost.
func (c *Catalog) TargetGhost() (core.Ghost, bool) {
	g, ok := c.ActiveGame()
	if !ok || len(g.Ghosts) == 0 {
		return core.Ghost{}, false
	}
	for _, gh := range g.Ghosts {
		if gh.State == core.GhostActive {
			return gh, true
		}
	}
	return g.Ghosts[0], true
}

// AddGame appends g and saves.
func (c *Catalog) AddGame(g core.Game) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.Name == "" {
		g.Name = core.DefaultGameName
	}
	c.games = append(c.games, cloneGame(g))
	return c.saveLocked()
}

// Delete removes a game.
func (c *Catalog) Delete(id uuid.UUID) error {
	return c.mutate(id, func(i int) {
		c.games = append(c.games[:i], c.games[i+1:]...)
	})
}

// DeleteGhost removes a ghost from whichever game holds it.
func (c *Catalog) DeleteGhost(ghostID uuid.UUID) error {
	return c.mutateGhost(ghostID, func(gi, hi int) {
		g := &c.games[gi]
		g.Ghosts = append(g.Ghosts[:hi], g.Ghosts[hi+1:]...)
	})
}

// SetActive makes id the only active game.
func (c *Catalog) SetActive(id uuid.UUID) error {
	return c.mutate(id, func(int) {
		for i := range c.games {
			c.games[i].IsActive = c.games[i].ID == id
		}
	})
}

// ClearActive deactivates every game.
func (c *Catalog) ClearActive() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.games {
		c.games[i].IsActive = false
	}
	return c.saveLocked()
}

// MarkCaptured sets the ghost's state to captured in whichever game holds it.
func (c *Catalog) MarkCaptured(ghostID uuid.UUID) error {
	return c.mutateGhost(ghostID, func(gi, hi int) {
		c.games[gi].Ghosts[hi].State = core.GhostCaptured
	})
}

// ResetProgress returns every ghost of a game to idle at its base location.
func (c *Catalog) ResetProgress(id uuid.UUID) error {
	return c.mutate(id, func(i int) {
		for j := range c.games[i].Ghosts {
			gh := &c.games[i].Ghosts[j]
			gh.State = core.GhostIdle
			gh.Current = gh.Base
		}
	})
}

// CapturedCount is the number of caught ghosts in a game.
func (c *Catalog) CapturedCount(id uuid.UUID) (int, error) {
	g, err := c.Game(id)
	if err != nil {
		return 0, err
	}
	return g.CapturedCount(), nil
}

// SeedSample adds the sample scenario if the catalog is empty and reports whether it did.
func (c *Catalog) SeedSample() (bool, error) {
	c.mu.RLock()
	empty := len(c.games) == 0
	c.mu.RUnlock()
	if !empty {
		return false, nil
	}

	g := core.NewGame("Patriarch Ponds")
	g.IsActive = true
	g.Zones = []core.CircleZone{core.NewCircleZone(SampleLocation, 120)}
	g.Ghosts = []core.Ghost{core.NewGhost("Poltergeist", core.DefaultGhostModelID, SampleLocation)}
	return true, c.AddGame(g)
}

func (c *Catalog) mutate(id uuid.UUID, fn func(i int)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	fn(i)
	return c.saveLocked()
}

func (c *Catalog) mutateGhost(ghostID uuid.UUID, fn func(gi, hi int)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for gi, g := range c.games {
		for hi, gh := range g.Ghosts {
			if gh.ID == ghostID {
				fn(gi, hi)
				return c.saveLocked()
			}
		}
	}
	return fmt.Errorf("%w: %s", ErrGhostNotFound, ghostID)
}

func (c *Catalog) indexOf(id uuid.UUID) int {
	for i, g := range c.games {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func cloneGame(g core.Game) core.Game {
	g.Zones = append([]core.CircleZone(nil), g.Zones...)
	g.Ghosts = append([]core.Ghost(nil), g.Ghosts...)
	return g
}
