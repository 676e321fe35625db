package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/taskpilot/taskpilot/internal/api"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/events"
	"github.com/taskpilot/taskpilot/internal/store"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the task API server (with periodic scheduling when TASKPILOT_CRON is set)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.NewSQLite(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			server := api.NewServer(st, log.Logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return server.Run(gctx, cfg.HTTPAddr)
			})

			if cfg.CronSpec != "" {
				bus := events.NewBus()
				defer bus.Close()
				go consumeEvents(bus.SubscribeAll(64), log.Logger)

				coord := buildCoordinator(cfg, st, bus)
				g.Go(func() error {
					return runOnSchedule(gctx, cfg.CronSpec, coord)
				})
			}

			return g.Wait()
		},
	}
}

// runOnSchedule fires one scheduling run per cron tick until ctx is
// cancelled. Ticks arriving while a run is in flight are skipped: at
// most one run is active at a time.
func runOnSchedule(ctx context.Context, spec string, coord runner) error {
	ticks := make(chan struct{}, 1)

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		select {
		case ticks <- struct{}{}:
		default:
		}
	}); err != nil {
		return err
	}

	c.Start()
	defer c.Stop()
	log.Info().Str("cron", spec).Msg("periodic scheduling enabled")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			if _, err := coord.RunOnce(ctx); err != nil {
				log.Error().Err(err).Msg("scheduling run failed")
			}
		}
	}
}
