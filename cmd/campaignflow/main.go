package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/outreachflow/campaignflow/internal/platform/log"
)

func main() {
	command := &cli.Command{
		Name:                  "campaignflow",
		Usage:                 "Operate campaigns in the campaign workflow engine",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewStartCommand(),
			NewPauseCommand(),
			NewResumeCommand(),
			NewStatusCommand(),
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
