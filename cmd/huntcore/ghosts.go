package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/GhostbusterQuest/huntcore/internal/catalog"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errNoActiveGame = errors.New("no active game; run `huntcore ghosts seed` or `huntcore ghosts activate <game-id>`")

func newGhostsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ghosts",
		Short: "Inspect and manage hunt scenarios",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List games and their ghosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				return printGames(cmd.OutOrStdout(), a.Catalog.Games())
			})
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Add the sample scenario to an empty catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				added, err := a.Catalog.SeedSample()
				if err != nil {
					return err
				}
				if !added {
					fmt.Fprintln(cmd.OutOrStdout(), "catalog not empty, nothing seeded")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "sample scenario added")
				return nil
			})
		},
	}

	activate := &cobra.Command{
		Use:   "activate <game-id>",
		Short: "Make a game the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid game id %q: %w", args[0], err)
			}
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				return a.Catalog.SetActive(id)
			})
		},
	}

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate every game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				return a.Catalog.ClearActive()
			})
		},
	}

	reset := &cobra.Command{
		Use:   "reset <game-id>",
		Short: "Return every ghost of a game to idle at its base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid game id %q: %w", args[0], err)
			}
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				return a.Catalog.ResetProgress(id)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <game-id>",
		Short: "Delete a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid game id %q: %w", args[0], err)
			}
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				return a.Catalog.Delete(id)
			})
		},
	}

	captures := &cobra.Command{
		Use:   "captures",
		Short: "List recorded captures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				cs, err := a.Store.Captures()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cs)
			})
		},
	}

	cmd.AddCommand(list, seed, activate, deactivate, reset, remove, captures)
	return cmd
}

// resolveTarget picks the game to hunt in, by ID or the active one, and its target ghost.
func resolveTarget(a *app, gameID string) (core.Game, core.Ghost, error) {
	var game core.Game
	if gameID == "" {
		g, ok := a.Catalog.ActiveGame()
		if !ok {
			return core.Game{}, core.Ghost{}, errNoActiveGame
		}
		game = g
	} else {
		id, err := uuid.Parse(gameID)
		if err != nil {
			return core.Game{}, core.Ghost{}, fmt.Errorf("invalid game id %q: %w", gameID, err)
		}
		if game, err = a.Catalog.Game(id); err != nil {
			return core.Game{}, core.Ghost{}, err
		}
	}
	ghost, ok := targetOf(game)
	if !ok {
		return core.Game{}, core.Ghost{}, fmt.Errorf("%w: game %q has no ghosts", catalog.ErrGhostNotFound, game.Name)
	}
	return game, ghost, nil
}

// targetOf is the first ghost still at large, else the first ghost.
func targetOf(g core.Game) (core.Ghost, bool) {
	if len(g.Ghosts) == 0 {
		return core.Ghost{}, false
	}
	for _, gh := range g.Ghosts {
		if gh.State != core.GhostCaptured {
			return gh, true
		}
	}
	return g.Ghosts[0], true
}

func printGames(w io.Writer, games []core.Game) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tNAME\tACTIVE\tGHOST\tSTATE\tLOCATION\tCAUGHT")
	for _, g := range games {
		caught := fmt.Sprintf("%d/%d", g.CapturedCount(), len(g.Ghosts))
		if len(g.Ghosts) == 0 {
			fmt.Fprintf(tw, "%s\t%s\t%t\t-\t-\t-\t%s\n", g.ID, g.Name, g.IsActive, caught)
			continue
		}
		for _, gh := range g.Ghosts {
			fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%.6f,%.6f\t%s\n",
				g.ID, g.Name, g.IsActive, gh.Name, gh.State, gh.Current.Lat, gh.Current.Lon, caught)
		}
	}
	return tw.Flush()
}
