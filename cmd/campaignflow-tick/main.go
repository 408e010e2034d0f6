package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/eventbus"
	"github.com/outreachflow/campaignflow/internal/executor"
	"github.com/outreachflow/campaignflow/internal/graph"
	"github.com/outreachflow/campaignflow/internal/metrics"
	"github.com/outreachflow/campaignflow/internal/orchestrator"
	"github.com/outreachflow/campaignflow/internal/otelhelper"
	"github.com/outreachflow/campaignflow/internal/platform/log"
	"github.com/outreachflow/campaignflow/internal/prospect"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
	"github.com/outreachflow/campaignflow/internal/store/postgres"
	"github.com/outreachflow/campaignflow/internal/tick"
)

func main() {
	command := &cli.Command{
		Name:                  "campaignflow-tick",
		Usage:                 "Run the campaign workflow engine's tick driver",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "tick-id",
				Aliases: []string{"id"},
				Usage:   "Custom process ID (auto-generated if not provided)",
				Sources: cli.EnvVars("TICK_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.IntFlag{
				Name:    "daily-limit",
				Usage:   "Per-campaign daily send_connection_request cap",
				Value:   60,
				Sources: cli.EnvVars("DAILY_LIMIT"),
			},
			&cli.IntFlag{
				Name:    "weekly-limit",
				Usage:   "Per-campaign weekly send_connection_request cap",
				Value:   200,
				Sources: cli.EnvVars("WEEKLY_LIMIT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Domain event transport: memory or kafka",
				Value:   "memory",
				Sources: cli.EnvVars("EVENT_BUS"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses (event-bus=kafka only)",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.FloatFlag{
				Name:    "trace-sample-ratio",
				Usage:   "Fraction of traces to sample (1.0 = sample every span)",
				Value:   1.0,
				Sources: cli.EnvVars("TRACE_SAMPLE_RATIO"),
			},
		},
		Action: run,
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	tickID := command.String("tick-id")
	if tickID == "" {
		tickID = "tick-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("campaignflow-tick").With("tick_id", tickID)
	logger.InfoContext(ctx, "initializing campaignflow tick driver")

	metrics.SetGlobal(metrics.New())

	tracer, err := otelhelper.NewTracer(ctx, "campaignflow-tick", command.Float("trace-sample-ratio"))
	if err != nil {
		return fmt.Errorf("initialize tracer: %w", err)
	}

	db, err := postgres.Open(command.String("database-url"))
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	stores := postgres.NewStores(db)

	bus, err := buildEventBus(command, logger)
	if err != nil {
		return fmt.Errorf("build event bus: %w", err)
	}

	exec := executor.New(executor.Deps{
		Steps:       stores.Steps,
		Leads:       stores.Leads,
		Campaigns:   stores.Campaigns,
		Accounts:    stores.Accounts,
		Workflows:   graph.FileLoader{},
		Provider:    provider.NewFake(),
		Composer:    compose.NewStaticComposer(),
		RateLimiter: ratelimit.NewController(command.Int("daily-limit"), command.Int("weekly-limit"), time.Local),
		Bus:         bus,
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
		Bus:       bus,
	})

	driver, err := tick.New(tick.Deps{
		Orchestrator: orch,
		Executor:     exec,
		Campaigns:    stores.Campaigns,
		Steps:        stores.Steps,
		Clock:        clock.Real{},
		Tracer:       tracer,
	})
	if err != nil {
		return fmt.Errorf("build tick driver: %w", err)
	}

	driver.Start()
	logger.InfoContext(ctx, "tick driver started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.InfoContext(ctx, "shutting down tick driver")

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	driver.Stop(stopCtx)

	return nil
}

func buildEventBus(command *cli.Command, logger *slog.Logger) (*eventbus.Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch command.String("event-bus") {
	case "kafka":
		brokers := strings.Split(command.String("kafka-brokers"), ",")

		pub, sub, err := eventbus.NewKafkaTransport(wmLogger, brokers, "campaignflow-tick")
		if err != nil {
			return nil, fmt.Errorf("create kafka transport: %w", err)
		}

		return eventbus.New(pub, sub), nil
	default:
		pub, sub := eventbus.NewInMemoryTransport(wmLogger)

		return eventbus.New(pub, sub), nil
	}
}
