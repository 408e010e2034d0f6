package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	cli "github.com/urfave/cli/v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidRecords reports how many of a campaign's persisted records
// failed struct validation.
var ErrInvalidRecords = errors.New("invalid records found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a campaign, its sender account, and its leads against their struct tags",
		Flags: []cli.Flag{
			databaseURLFlag,
			&cli.StringFlag{
				Name:     "campaign-id",
				Usage:    "Campaign to validate",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			_, stores, db, err := bootstrapStores(ctx, command)
			if err != nil {
				return err
			}
			defer db.Close()

			campaignID := command.String("campaign-id")

			campaign, err := stores.Campaigns.ByID(ctx, campaignID)
			if err != nil {
				return fmt.Errorf("load campaign %s: %w", campaignID, err)
			}

			invalid := 0

			_, _ = fmt.Fprintf(os.Stdout, "Campaign: %s\n", campaign.ID)
			invalid += report("campaign", campaign)

			sender, err := stores.Accounts.ByID(ctx, campaign.SenderID)
			if err != nil {
				_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID: could not load sender account %s: %v\n", campaign.SenderID, err)

				invalid++
			} else {
				invalid += report("sender account", sender)
			}

			leads, err := stores.Leads.ByCampaign(ctx, campaign.ID)
			if err != nil {
				return fmt.Errorf("load leads for campaign %s: %w", campaignID, err)
			}

			for _, lead := range leads {
				invalid += report(fmt.Sprintf("lead %s", lead.ID), lead)
			}

			_, _ = fmt.Fprintf(os.Stdout, "\nValidation summary: %d record(s), %d invalid\n", 2+len(leads), invalid)

			if invalid > 0 {
				return fmt.Errorf("%w: %d", ErrInvalidRecords, invalid)
			}

			_, _ = fmt.Fprintln(os.Stdout, "All records are valid. ✅")

			return nil
		},
	}
}

func report(label string, record any) int {
	if err := validate.Struct(record); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID %s: %v\n", label, validationErrors)
		} else {
			_, _ = fmt.Fprintf(os.Stdout, "  ❌ INVALID %s: %v\n", label, err)
		}

		return 1
	}

	_, _ = fmt.Fprintf(os.Stdout, "  ✅ VALID %s\n", label)

	return 0
}
