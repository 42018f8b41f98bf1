package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/petrijr/connect"
	"github.com/petrijr/connect/pkg/logging"
	"github.com/petrijr/connect/pkg/worker"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Process pending requests on a schedule until interrupted",
		Flags: append(approvalFlags(),
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron schedule of processing passes (e.g. '@every 1m', '*/5 * * * *')",
				Sources: cli.EnvVars("CONNECT_SCHEDULE"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			flow, err := newFlow(os.Stdout, command.String("approve-template"), command.String("approve-tile"))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			if command.IsSet("schedule") {
				cfg.Schedule = command.String("schedule")
			}

			env, err := connect.NewEnv(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeEnv(env, os.Stderr)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			processor := env.NewProcessor().Flow(flow.Definition())
			query := env.PendingRequestsQuery()
			logger := logging.WithModule(env.Logger, "serve")

			w, err := worker.New(func(ctx context.Context) error {
				_, err := processor.ProcessAssetRequests(ctx, query)
				return err
			}, cfg.Schedule, logger)
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}

			logger.InfoContext(ctx, "Waiting for requests", "schedule", cfg.Schedule)
			<-ctx.Done()
			w.Stop()

			snap := env.Metrics.Snapshot()
			logger.Info("Shutting down",
				"passes", w.Passes(),
				"failed_passes", w.FailedPasses(),
				"runs_completed", snap.RunsCompleted,
				"runs_failed", snap.RunsFailed,
			)
			return nil
		},
	}
}
