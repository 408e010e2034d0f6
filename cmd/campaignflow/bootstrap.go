package main

import (
	"context"
	"database/sql"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/executor"
	"github.com/outreachflow/campaignflow/internal/graph"
	"github.com/outreachflow/campaignflow/internal/orchestrator"
	"github.com/outreachflow/campaignflow/internal/otelhelper"
	"github.com/outreachflow/campaignflow/internal/prospect"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
	"github.com/outreachflow/campaignflow/internal/store/postgres"
)

// databaseURLFlag is shared by every subcommand that needs its own
// connection, mirroring the teacher's per-subcommand --database-url flag.
var databaseURLFlag = &cli.StringFlag{
	Name:     "database-url",
	Usage:    "Database connection URL for persistence",
	Required: true,
	Sources:  cli.EnvVars("DATABASE_URL"),
}

// bootstrapOrchestrator opens a fresh connection and wires an
// Orchestrator over it. The caller owns closing the returned *sql.DB.
func bootstrapOrchestrator(ctx context.Context, command *cli.Command) (*orchestrator.Orchestrator, *sql.DB, error) {
	orch, _, db, err := bootstrapStores(ctx, command)

	return orch, db, err
}

// bootstrapStores is bootstrapOrchestrator plus the raw store bundle,
// for subcommands (validate) that need direct record access.
func bootstrapStores(ctx context.Context, command *cli.Command) (*orchestrator.Orchestrator, *postgres.Stores, *sql.DB, error) {
	db, err := postgres.Open(command.String("database-url"))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	stores := postgres.NewStores(db)

	// One-shot CLI invocation: sample every span rather than add a flag
	// no one would tune for a command that runs for a few seconds.
	tracer, err := otelhelper.NewTracer(ctx, "campaignflow", 1.0)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize tracer: %w", err)
	}

	exec := executor.New(executor.Deps{
		Steps:       stores.Steps,
		Leads:       stores.Leads,
		Campaigns:   stores.Campaigns,
		Accounts:    stores.Accounts,
		Workflows:   graph.FileLoader{},
		Provider:    provider.NewFake(),
		Composer:    compose.NewStaticComposer(),
		RateLimiter: ratelimit.NewController(60, 200, nil),
		Clock:       clock.Real{},
		Tracer:      tracer,
	})

	orch := orchestrator.New(orchestrator.Deps{
		Campaigns: stores.Campaigns,
		Leads:     stores.Leads,
		Accounts:  stores.Accounts,
		Steps:     stores.Steps,
		Workflows: graph.FileLoader{},
		Prospects: prospect.FileLoader{},
		Executor:  exec,
		Clock:     clock.Real{},
	})

	return orch, stores, db, nil
}
