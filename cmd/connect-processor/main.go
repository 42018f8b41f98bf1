package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/petrijr/connect/pkg/config"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "connect-processor:", err)
		os.Exit(1)
	}
}

// closeEnv closes env and reports a failure to errOut. The env logger
// writes to the log file being closed, so it cannot be used here.
func closeEnv(env io.Closer, errOut io.Writer) {
	if err := env.Close(); err != nil {
		fmt.Fprintln(errOut, "connect-processor: close environment:", err)
	}
}

func newApp(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:                  "connect-processor",
		EnableShellCompletion: true,
		Usage:                 "Process pending asset requests",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				Sources: cli.EnvVars("CONNECT_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the remote API",
				Sources: cli.EnvVars("CONNECT_API_URL"),
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent as 'ApiKey <key>'",
				Sources: cli.EnvVars("CONNECT_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "products",
				Usage:   "Comma separated product ids to process",
				Sources: cli.EnvVars("CONNECT_PRODUCTS"),
			},
			&cli.StringFlag{
				Name:    "log-path",
				Usage:   "Log file (stderr when empty)",
				Sources: cli.EnvVars("CONNECT_LOG_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("CONNECT_LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Run history store (memory, sqlite:<path>, postgres://, redis://, mongodb://)",
				Sources: cli.EnvVars("CONNECT_STORE"),
			},
			&cli.StringFlag{
				Name:    "fixtures",
				Usage:   "Serve requests from a JSON file instead of the remote API",
				Sources: cli.EnvVars("CONNECT_FIXTURES"),
			},
		},
		Commands: []*cli.Command{
			newRunCommand(out),
			newServeCommand(),
			newRunsCommand(out),
		},
	}
}

// loadConfig merges the config file, the environment and the global flags,
// in that order of precedence from lowest to highest.
func loadConfig(command *cli.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if path := command.String("config"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	overrides := map[string]*string{
		"api-url":   &cfg.APIURL,
		"api-key":   &cfg.APIKey,
		"log-path":  &cfg.Log.Path,
		"log-level": &cfg.Log.Level,
		"store":     &cfg.Store,
		"fixtures":  &cfg.Fixtures,
	}
	for name, target := range overrides {
		if command.IsSet(name) {
			*target = command.String(name)
		}
	}
	if command.IsSet("products") {
		cfg.Products = config.SplitList(command.String("products"))
	}
	return cfg, nil
}
