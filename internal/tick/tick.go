// Package tick hosts the campaign workflow engine's four periodic
// tasks behind a single robfig/cron/v3 scheduler, grounded on the
// teacher's pkg/triggers/schedule cron wiring (cron.SkipIfStillRunning
// + cron.Recover chain) so that a slow tick never overlaps itself and
// a panicking task never takes the process down.
package tick

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/executor"
	"github.com/outreachflow/campaignflow/internal/metrics"
	"github.com/outreachflow/campaignflow/internal/orchestrator"
	"github.com/outreachflow/campaignflow/internal/otelhelper"
	"github.com/outreachflow/campaignflow/internal/store"
)

// Task names, used as metrics labels and log fields.
const (
	TaskCheckScheduledCampaigns = "check-scheduled-campaigns"
	TaskStartDailyLeads         = "start-daily-leads"
	TaskProcessDailyLeads       = "process-daily-leads"
	TaskRetryFailedSteps        = "retry-failed-steps"
)

// Driver owns the cron scheduler and fans each task out across
// campaigns or due steps (spec §4.1).
type Driver struct {
	cron         *cron.Cron
	orchestrator *orchestrator.Orchestrator
	executor     *executor.Executor
	campaigns    store.CampaignStore
	steps        store.StepStore
	clock        clock.Clock
	tracer       trace.Tracer
	logger       *slog.Logger

	processBatchSize int
}

// Deps bundles the Driver's collaborators.
type Deps struct {
	Orchestrator     *orchestrator.Orchestrator
	Executor         *executor.Executor
	Campaigns        store.CampaignStore
	Steps            store.StepStore
	Clock            clock.Clock
	Tracer           trace.Tracer
	ProcessBatchSize int
}

// New builds a Driver with its four tasks registered but not started.
func New(deps Deps) (*Driver, error) {
	batchSize := deps.ProcessBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}

	d := &Driver{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		)),
		orchestrator:     deps.Orchestrator,
		executor:         deps.Executor,
		campaigns:        deps.Campaigns,
		steps:            deps.Steps,
		clock:            deps.Clock,
		tracer:           deps.Tracer,
		logger:           slog.With("module", "tick"),
		processBatchSize: batchSize,
	}

	schedule := []struct {
		name string
		cron string
		run  func(context.Context) error
	}{
		{TaskCheckScheduledCampaigns, "0 * * * *", d.checkScheduledCampaigns},
		{TaskStartDailyLeads, "0 0 * * *", d.startDailyLeads},
		{TaskProcessDailyLeads, "* * * * *", d.processDailyLeads},
		{TaskRetryFailedSteps, "0 * * * *", d.retryFailedSteps},
	}

	for _, task := range schedule {
		task := task

		if _, err := d.cron.AddFunc(task.cron, func() { d.runTask(task.name, task.run) }); err != nil {
			return nil, fmt.Errorf("register task %s: %w", task.name, err)
		}
	}

	return d, nil
}

// Start starts the cron scheduler. Non-blocking; returns immediately.
func (d *Driver) Start() {
	d.logger.Info("starting tick driver")
	d.cron.Start()
}

// Stop gracefully stops the scheduler, waiting for in-flight tasks up
// to ctx's deadline (spec §5's "stop the cron driver, wait ≤10s" shutdown).
func (d *Driver) Stop(ctx context.Context) {
	done := d.cron.Stop().Done()

	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("tick driver stop timed out, forcing exit")
	}
}

func (d *Driver) runTask(name string, run func(context.Context) error) {
	ctx := context.Background()

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "tick."+name, attribute.String(otelhelper.TickTaskKey, name))
	defer span.End()

	start := time.Now()

	if err := run(ctx); err != nil {
		d.logger.ErrorContext(ctx, "tick task failed", "task", name, "error", err)
	}

	metrics.ObserveTick(name, time.Since(start).Seconds())
}

// checkScheduledCampaigns starts every DRAFT/SCHEDULED campaign whose
// start_date has arrived (spec §4.1).
func (d *Driver) checkScheduledCampaigns(ctx context.Context) error {
	now := d.clock.Now()

	campaigns, err := d.campaigns.DueForStart(ctx, now)
	if err != nil {
		return fmt.Errorf("load due campaigns: %w", err)
	}

	for _, c := range campaigns {
		if err := d.orchestrator.StartCampaign(ctx, c.ID); err != nil {
			d.logger.ErrorContext(ctx, "failed to start scheduled campaign", "campaign_id", c.ID, "error", err)
		}
	}

	return nil
}

// startDailyLeads admits unstarted leads for every IN_PROGRESS
// campaign (spec §4.1, §4.3).
func (d *Driver) startDailyLeads(ctx context.Context) error {
	campaigns, err := d.campaigns.InProgress(ctx)
	if err != nil {
		return fmt.Errorf("load in-progress campaigns: %w", err)
	}

	for _, c := range campaigns {
		if err := d.orchestrator.StartDailyLeads(ctx, c); err != nil {
			d.logger.ErrorContext(ctx, "failed to admit daily leads", "campaign_id", c.ID, "error", err)
		}
	}

	return nil
}

// processDailyLeads executes every PENDING step whose execute_after
// has arrived, strictly one at a time in store order (spec §4.1, §5).
func (d *Driver) processDailyLeads(ctx context.Context) error {
	now := d.clock.Now()

	due, err := d.steps.DuePending(ctx, now, d.processBatchSize)
	if err != nil {
		return fmt.Errorf("load due steps: %w", err)
	}

	if len(due) == 0 {
		metrics.ObserveTickSkipped(TaskProcessDailyLeads)

		return nil
	}

	for _, step := range due {
		if err := d.executor.ExecuteStep(ctx, step); err != nil {
			d.logger.ErrorContext(ctx, "failed to execute step", "step_id", step.ID, "error", err)
		}
	}

	return nil
}

// retryFailedSteps re-arms and re-executes FAILED steps for every
// IN_PROGRESS campaign (spec §4.1, §4.7).
func (d *Driver) retryFailedSteps(ctx context.Context) error {
	campaigns, err := d.campaigns.InProgress(ctx)
	if err != nil {
		return fmt.Errorf("load in-progress campaigns: %w", err)
	}

	for _, c := range campaigns {
		if err := d.orchestrator.RetryFailedSteps(ctx, c); err != nil {
			d.logger.ErrorContext(ctx, "failed to retry failed steps", "campaign_id", c.ID, "error", err)
		}
	}

	return nil
}
