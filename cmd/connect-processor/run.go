package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/petrijr/connect"
)

const flowName = "Basic Flow"

// newFlow builds the processing flow: collect the request fields, trace
// them, and approve when a template or a tile is given.
func newFlow(out io.Writer, template, tile string) (*connect.FlowBuilder, error) {
	if template != "" && tile != "" {
		return nil, errors.New("--approve-template and --approve-tile are mutually exclusive")
	}

	flow := connect.NewFlow(flowName, nil).
		Step("Add request data", connect.CollectRequestData()).
		Step("Trace request data", connect.TraceRequestData(out))

	switch {
	case template != "":
		flow.Step("Approve request", connect.ApproveByTemplateStep(template))
	case tile != "":
		flow.Step("Approve request", connect.ApproveByTileStep(tile))
	}
	return flow, nil
}

func approvalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "approve-template",
			Usage:   "Approve processed requests with this activation template id",
			Sources: cli.EnvVars("CONNECT_APPROVE_TEMPLATE"),
		},
		&cli.StringFlag{
			Name:    "approve-tile",
			Usage:   "Approve processed requests with this activation tile text",
			Sources: cli.EnvVars("CONNECT_APPROVE_TILE"),
		},
	}
}

func newRunCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Process pending requests once",
		Flags: approvalFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			flow, err := newFlow(out, command.String("approve-template"), command.String("approve-tile"))
			if err != nil {
				return err
			}

			cfg, err := loadConfig(command)
			if err != nil {
				return err
			}
			env, err := connect.NewEnv(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeEnv(env, os.Stderr)

			res, err := env.NewProcessor().
				Flow(flow.Definition()).
				ProcessAssetRequests(ctx, env.PendingRequestsQuery())
			if res != nil {
				fmt.Fprintf(out, "processed=%d completed=%d failed=%d skipped=%d\n",
					res.Processed, res.Completed, res.Failed, res.Skipped)
			}
			return err
		},
	}
}
