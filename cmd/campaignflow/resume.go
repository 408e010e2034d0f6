package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func NewResumeCommand() *cli.Command {
	return &cli.Command{
		Name:  "resume",
		Usage: "Resume a PAUSED campaign back to IN_PROGRESS",
		Flags: []cli.Flag{
			databaseURLFlag,
			&cli.StringFlag{
				Name:     "campaign-id",
				Usage:    "Campaign to resume",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			orch, db, err := bootstrapOrchestrator(ctx, command)
			if err != nil {
				return err
			}
			defer db.Close()

			campaignID := command.String("campaign-id")

			if err := orch.ResumeCampaign(ctx, campaignID); err != nil {
				return fmt.Errorf("resume campaign %s: %w", campaignID, err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "campaign %s is now IN_PROGRESS\n", campaignID)

			return nil
		},
	}
}
