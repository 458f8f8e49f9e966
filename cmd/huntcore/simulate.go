package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/GhostbusterQuest/huntcore/internal/assets"
	"github.com/GhostbusterQuest/huntcore/internal/channel"
	"github.com/GhostbusterQuest/huntcore/internal/config"
	"github.com/GhostbusterQuest/huntcore/internal/control"
	"github.com/GhostbusterQuest/huntcore/internal/geo"
	"github.com/GhostbusterQuest/huntcore/internal/hunt"
	"github.com/GhostbusterQuest/huntcore/internal/logging"
	"github.com/GhostbusterQuest/huntcore/internal/session"
	"github.com/GhostbusterQuest/huntcore/pkg/core"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type simulateOptions struct {
	game     string
	distance float64
	timeout  time.Duration
	realtime bool
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scripted hunt against the target ghost and record the result",
		Long: "Stands the player south of the target ghost facing north, fires until the ghost " +
			"freezes and then catches it. The capture goes to storage and the session summary " +
			"to InfluxDB when enabled.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, root, func(ctx context.Context, a *app) error {
				return runSimulate(ctx, a, opts, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().StringVarP(&opts.game, "game", "g", "", "Game ID (default: the active game)")
	cmd.Flags().Float64VarP(&opts.distance, "distance", "d", 5, "Player distance from the ghost in meters")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Give up after this much hunt time")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "Tick on the wall clock instead of as fast as possible")
	return cmd
}

func runSimulate(ctx context.Context, a *app, opts *simulateOptions, out io.Writer) error {
	game, ghost, err := resolveTarget(a, opts.game)
	if err != nil {
		return err
	}
	if opts.distance <= 0 {
		return fmt.Errorf("distance must be positive, got %v", opts.distance)
	}
	cfg, err := config.GetHuntConfig()
	if err != nil {
		return err
	}

	s, err := session.New(cfg, game.ID, ghost, session.Dependencies{
		Loader:        assets.NewFSLoader(afero.NewOsFs(), config.GetAssetsConfig()),
		Store:         a.Store,
		Catalog:       a.Catalog,
		Telemetry:     a.Telemetry(),
		Logger:        a.Logger,
		ControlLogger: logging.NewDispatcherLogger(a.ZLog.With().Str("component", "control").Logger()),
	})
	if err != nil {
		return err
	}
	a.Track(s)
	defer a.Track(nil)

	user := standoff(ghost.Current, opts.distance)
	a.Logger.Info("simulating hunt", "game", game.Name, "ghost", ghost.Name,
		"distance", opts.distance, "realtime", opts.realtime)

	var summary core.SessionSummary
	if opts.realtime {
		summary, err = huntRealtime(ctx, s, user, opts.timeout)
	} else {
		summary, err = huntScripted(s, user, cfg.FrameRate, opts.timeout)
	}
	if err != nil {
		return err
	}

	if counters, cerr := a.OTel.Counters(ctx); cerr == nil && len(counters) > 0 {
		a.Logger.Info("hunt metrics", "counters", counters)
	}
	return writeJSON(out, summary)
}

// standoff is the point meters due south of target.
func standoff(target core.Coordinate, meters float64) core.Coordinate {
	return core.Coordinate{
		Lat: target.Lat - meters/(geo.EarthRadius*math.Pi/180),
		Lon: target.Lon,
	}
}

func facingNorth(at core.Coordinate) core.SensorSample {
	return core.SensorSample{Coordinate: &at, Heading: core.HeadingPtr(0)}
}

// huntScripted steps the session at a fixed rate without sleeping: fire until the ghost
// freezes, then catch it.
func huntScripted(s *session.Session, user core.Coordinate, fps int, limit time.Duration) (core.SessionSummary, error) {
	if fps <= 0 {
		fps = hunt.DefaultConfig().FrameRate
	}
	dt := 1 / float64(fps)
	maxTicks := int(limit.Seconds() * float64(fps))

	s.Apply(facingNorth(user))
	if _, err := s.Dispatch(control.CmdFireStart); err != nil {
		return core.SessionSummary{}, err
	}

	tick := 0
	for ; tick < maxTicks && s.Phase() == hunt.Roaming; tick++ {
		s.Step(dt)
	}
	if s.Phase() == hunt.Frozen {
		if _, err := s.Dispatch(control.CmdFireStop); err != nil {
			return core.SessionSummary{}, err
		}
		if _, err := s.Dispatch(control.CmdCatch); err != nil {
			return core.SessionSummary{}, err
		}
	}
	for ; tick < maxTicks; tick++ {
		select {
		case <-s.Done():
			return s.Finish()
		default:
		}
		s.Step(dt)
	}
	return s.Finish()
}

// huntRealtime runs the session on its own ticker while a script goroutine plays the player.
func huntRealtime(ctx context.Context, s *session.Session, user core.Coordinate, limit time.Duration) (core.SessionSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	sensors := channel.New[core.SensorSample](8)
	defer sensors.Close()

	var summary core.SessionSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.Run(gctx, sensors)
		return err
	})
	g.Go(func() error {
		if sample := facingNorth(user); !sensors.TrySend(sample) {
			s.Apply(sample)
		}
		if _, err := s.Dispatch(control.CmdFireStart); err != nil {
			return err
		}
		poll := time.NewTicker(50 * time.Millisecond)
		defer poll.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-s.Done():
				return nil
			case <-poll.C:
			}
			if s.Phase() != hunt.Frozen {
				continue
			}
			if _, err := s.Dispatch(control.CmdFireStop); err != nil {
				return err
			}
			_, err := s.Dispatch(control.CmdCatch)
			return err
		}
	})
	err := g.Wait()
	return summary, err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
