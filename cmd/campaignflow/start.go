package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/outreachflow/campaignflow/internal/orchestrator"
)

func NewStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Load a campaign's prospect list and transition it to IN_PROGRESS",
		Flags: []cli.Flag{
			databaseURLFlag,
			&cli.StringFlag{
				Name:     "campaign-id",
				Usage:    "Campaign to start",
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

			if err := orch.StartCampaign(ctx, campaignID); err != nil {
				if orchestrator.IsValidationError(err) {
					_, _ = fmt.Fprintf(os.Stdout, "cannot start campaign %s: %v\n", campaignID, err)

					return err
				}

				return fmt.Errorf("start campaign %s: %w", campaignID, err)
			}

			_, _ = fmt.Fprintf(os.Stdout, "campaign %s is now IN_PROGRESS\n", campaignID)

			return nil
		},
	}
}
