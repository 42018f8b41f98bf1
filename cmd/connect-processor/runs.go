package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/petrijr/connect"
)

func newRunsCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "runs",
		Aliases: []string{"ls"},
		Usage:   "List recorded runs, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "flow", Usage: "Only runs of this flow"},
			&cli.StringFlag{Name: "request", Usage: "Only runs of this request id"},
			&cli.StringFlag{Name: "status", Usage: "Only runs with this status (running, completed, failed, skipped)"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: 50},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			store, closer, err := connect.OpenStore(ctx, cfg.Store)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = closer.Close() }()

			runs, err := store.ListRuns(ctx, connect.RunFilter{
				FlowName:  command.String("flow"),
				RequestID: command.String("request"),
				Status:    connect.RunStatus(command.String("status")),
				Limit:     int(command.Int("limit")),
			})
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			return printRuns(out, runs)
		},
	}
}

func printRuns(out io.Writer, runs []*connect.Run) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREQUEST\tFLOW\tSTATUS\tSTEPS\tSTARTED\tDETAIL")
	for _, run := range runs {
		detail := run.Reason
		if run.Err != nil {
			detail = run.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID, run.RequestID, run.FlowName, run.Status, len(run.Steps),
			run.StartedAt.Local().Format(time.DateTime), detail)
	}
	return tw.Flush()
}
