package main

import (
	"context"
	"fmt"

	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/radar"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/spf13/cobra"
)

type radarOptions struct {
	game    string
	at      string
	heading float64
}

// radarOutput is one radar reading as printed by the radar command.
type radarOutput struct {
	Game  string          `json:"game"`
	Ghost string          `json:"ghost"`
	State string          `json:"state"`
	User  core.Coordinate `json:"user"`
	Pulse radar.Pulse     `json:"pulse"`
	radar.Reading
}

func newRadarCmd(root *rootOptions) *cobra.Command {
	opts := &radarOptions{}
	cmd := &cobra.Command{
		Use:   "radar",
		Short: "Scan for the target ghost from a position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := geo.ParseCoordinate(opts.at)
			if err != nil {
				return fmt.Errorf("--at %q: %w", opts.at, err)
			}
			var heading *float64
			if cmd.Flags().Changed("heading") {
				heading = core.HeadingPtr(opts.heading)
			}
			return withApp(cmd, root, func(_ context.Context, a *app) error {
				game, ghost, err := resolveTarget(a, opts.game)
				if err != nil {
					return err
				}
				sc := radar.NewScanner(config.GetRadarConfig())
				return writeJSON(cmd.OutOrStdout(), radarOutput{
					Game:    game.Name,
					Ghost:   ghost.Name,
					State:   string(ghost.State),
					User:    user,
					Pulse:   sc.Pulse(0),
					Reading: sc.Scan(user, heading, ghost),
				})
			})
		},
	}
	cmd.Flags().StringVarP(&opts.game, "game", "g", "", "Game ID (default: the active game)")
	cmd.Flags().StringVar(&opts.at, "at", "", `Player position as "lat,lon"`)
	cmd.Flags().Float64Var(&opts.heading, "heading", 0, "Compass heading in degrees; omit for a north-up scan")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
