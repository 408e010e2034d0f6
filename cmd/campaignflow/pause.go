package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func NewPauseCommand() *cli.Command {
	return &cli.Command{
		Name:  "pause",
		Usage: "Pause an IN_PROGRESS campaign",
		Flags: []cli.Flag{
			databaseURLFlag,
			&cli.StringFlag{
				Name:     "campaign-id",
				Usage:    "Campaign to pause",
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

			if err := orch.PauseCampaign(ctx, campaignID); err != nil {
				return fmt.Errorf("pause campaign %s: %w", campaignID, err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "campaign %s is now PAUSED\n", campaignID)

			return nil
		},
	}
}
