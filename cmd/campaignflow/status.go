package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Report a campaign's current lifecycle status",
		Flags: []cli.Flag{
			databaseURLFlag,
			&cli.StringFlag{
				Name:     "campaign-id",
				Usage:    "Campaign to inspect",
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

			status, err := orch.GetCampaignStatus(ctx, campaignID)
			if err != nil {
				return fmt.Errorf("get status for campaign %s: %w", campaignID, err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "campaign_id=%s status=%s running=%t paused=%t\n",
				campaignID, status.CampaignStatus, status.IsRunning, status.IsPaused)

			return nil
		},
	}
}
