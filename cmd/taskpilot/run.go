package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskpilot/taskpilot/internal/client"
	"github.com/taskpilot/taskpilot/internal/config"
	"github.com/taskpilot/taskpilot/internal/domain"
	"github.com/taskpilot/taskpilot/internal/events"
	"github.com/taskpilot/taskpilot/internal/scheduler"
	"github.com/taskpilot/taskpilot/internal/scoring"
	"github.com/taskpilot/taskpilot/internal/store"
)

// runner is the slice of the coordinator the commands drive.
type runner interface {
	RunOnce(ctx context.Context) (domain.RunMetrics, error)
}

func runCmd() *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one scheduling cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var st store.Store
			if local {
				sqlite, err := store.NewSQLite(ctx, cfg.DBPath)
				if err != nil {
					return err
				}
				defer sqlite.Close()
				st = sqlite
			} else {
				st = client.New(cfg.APIURL)
			}

			bus := events.NewBus()
			progress := bus.SubscribeAll(64)
			consumed := make(chan struct{})
			go func() {
				defer close(consumed)
				consumeEvents(progress, log.Logger)
			}()

			coord := buildCoordinator(cfg, st, bus)
			metrics, err := coord.RunOnce(ctx)
			bus.Close()
			<-consumed
			if err != nil {
				return err
			}

			log.Info().
				Str("run_id", metrics.RunID).
				Int("processed", metrics.TasksProcessed).
				Int("errors", metrics.Errors).
				Msg("run complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "use the local database instead of the task API")
	return cmd
}

// consumeEvents logs a progress line for every scheduler event until
// the channel closes.
func consumeEvents(ch <-chan events.Event, logger zerolog.Logger) {
	for e := range ch {
		switch ev := e.(type) {
		case events.RunStartedEvent:
			logger.Info().Str("run_id", ev.RunID).Int("pending", ev.Pending).
				Msg("run started")
		case events.TaskStartedEvent:
			logger.Info().Int64("task_id", ev.TaskID).Str("title", ev.Title).
				Msg("task started")
		case events.TaskCompletedEvent:
			logger.Info().Int64("task_id", ev.TaskID).Dur("duration", ev.Duration).
				Msg("task completed")
		case events.TaskFailedEvent:
			logger.Error().Int64("task_id", ev.TaskID).Err(ev.Err).
				Msg("task failed")
		case events.TaskSkippedEvent:
			logger.Warn().Int64("task_id", ev.TaskID).Str("title", ev.Title).
				Msg("task skipped, prerequisites incomplete")
		}
	}
}

func buildCoordinator(cfg *config.Config, st store.Store, bus *events.Bus) *scheduler.Coordinator {
	var scorer scoring.Scorer
	if cfg.ScoringURL != "" {
		scorer = scoring.NewBreaker(scoring.NewClient(cfg.ScoringURL))
	}

	executor := scheduler.NewExecutor(scheduler.ExecutorConfig{
		Store:  st,
		Worker: scheduler.FixedWorker{Duration: cfg.WorkDuration},
		Scorer: scorer,
		Retry:  scheduler.RetryPolicy{MaxRetries: uint64(cfg.RetryCount), Delay: cfg.RetryDelay},
		Logger: log.Logger,
	})

	return scheduler.NewCoordinator(scheduler.CoordinatorConfig{
		Store:    st,
		Executor: executor,
		Bus:      bus,
		FlowName: cfg.FlowName,
		Logger:   log.Logger,
	})
}
