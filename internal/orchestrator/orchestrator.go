// Package orchestrator implements the campaign workflow engine's
// public campaign-level operations: starting, pausing, resuming, and
// reporting the status of a campaign. It owns the campaign-level
// invariants; per-step execution lives in internal/executor.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/google/uuid"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/errs"
	"github.com/outreachflow/campaignflow/internal/eventbus"
	"github.com/outreachflow/campaignflow/internal/executor"
	"github.com/outreachflow/campaignflow/internal/graph"
	"github.com/outreachflow/campaignflow/internal/prospect"
	"github.com/outreachflow/campaignflow/internal/store"
)

// Business-logic errors callers of startCampaign/pauseCampaign/
// resumeCampaign are expected to check against with errors.Is, mirroring
// the teacher's pkg/services/errors.go sentinel + predicate pattern.
var (
	ErrSenderMissing   = errors.New("sender account missing or disconnected")
	ErrProspectMissing = errors.New("prospect list missing or empty")
	ErrAlreadyRunning  = errors.New("campaign already in progress")
	ErrAlreadyDone     = errors.New("campaign already completed")
	ErrNotPaused       = errors.New("campaign is not paused")
	ErrNotRunning      = errors.New("campaign is not in progress")
)

// IsValidationError reports whether err is one of the Validation-kind
// failures of StartCampaign, PauseCampaign or ResumeCampaign.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSenderMissing) ||
		errors.Is(err, ErrProspectMissing) ||
		errors.Is(err, ErrAlreadyRunning) ||
		errors.Is(err, ErrAlreadyDone) ||
		errors.Is(err, ErrNotPaused) ||
		errors.Is(err, ErrNotRunning)
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Campaigns store.CampaignStore
	Leads     store.LeadStore
	Accounts  store.AccountStore
	Steps     store.StepStore
	Workflows graph.Loader
	Prospects prospect.Loader
	Executor  *executor.Executor
	Clock     clock.Clock
	Bus       *eventbus.Bus
}

// Orchestrator is a plainly constructed service over its store
// dependencies — no package-level singleton, mirroring the teacher's
// services.Workflow/services.Publishing shape.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
}

// New builds an Orchestrator over the given collaborators.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps, logger: slog.With("module", "orchestrator")}
}

// StartCampaign loads the prospect list, bulk-creates lead rows
// (chunks of 5, parallel within chunk, sequential across chunks), and
// transitions the campaign to IN_PROGRESS. Restarting a PAUSED or
// FAILED campaign is allowed (spec §4.2).
func (o *Orchestrator) StartCampaign(ctx context.Context, campaignID string) error {
	campaign, err := o.deps.Campaigns.ByID(ctx, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status == domain.CampaignStatusInProgress {
		return errs.Validation("StartCampaign", ErrAlreadyRunning)
	}

	if campaign.Status == domain.CampaignStatusCompleted {
		return errs.Validation("StartCampaign", ErrAlreadyDone)
	}

	sender, err := o.deps.Accounts.ByID(ctx, campaign.SenderID)
	if err != nil || sender.Status != domain.AccountStatusActive {
		return errs.Validation("StartCampaign", ErrSenderMissing)
	}

	records, err := o.deps.Prospects.Load(ctx, campaign.ProspectListID)
	if err != nil || len(records) == 0 {
		return errs.Validation("StartCampaign", ErrProspectMissing)
	}

	if err := o.createLeadsChunked(ctx, campaign, records); err != nil {
		return fmt.Errorf("bulk-create leads: %w", err)
	}

	if err := o.deps.Campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusInProgress); err != nil {
		return fmt.Errorf("transition campaign to in_progress: %w", err)
	}

	if o.deps.Bus != nil {
		_ = o.deps.Bus.Publish(ctx, eventbus.NewCampaignStarted(campaign.ID, campaign.SenderID, campaign.ProspectListID, len(records)))
	}

	return nil
}

// createLeadsChunked bulk-creates one Lead per prospect record, in
// chunks of 5 processed sequentially, each chunk's 5 creates running
// in parallel (spec §4.2, §5).
func (o *Orchestrator) createLeadsChunked(ctx context.Context, campaign *domain.Campaign, records []prospect.Record) error {
	const chunkSize = 5

	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		chunk := records[start:end]

		g, gctx := errgroup.WithContext(ctx)

		for _, rec := range chunk {
			rec := rec

			g.Go(func() error {
				lead := &domain.Lead{
					ID:               uuid.NewString(),
					OrganizationID:   campaign.OrganizationID,
					CampaignID:       campaign.ID,
					LinkedInURL:      rec.LinkedInURL,
					PublicIdentifier: rec.PublicIdentifier,
				}

				return o.deps.Leads.Create(gctx, lead)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

// PauseCampaign transitions an IN_PROGRESS campaign to PAUSED.
// Idempotent when already PAUSED.
func (o *Orchestrator) PauseCampaign(ctx context.Context, campaignID string) error {
	campaign, err := o.deps.Campaigns.ByID(ctx, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status == domain.CampaignStatusPaused {
		return nil
	}

	if campaign.Status != domain.CampaignStatusInProgress {
		return errs.Validation("PauseCampaign", ErrNotRunning)
	}

	return o.deps.Campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusPaused)
}

// ResumeCampaign transitions a PAUSED campaign back to IN_PROGRESS.
func (o *Orchestrator) ResumeCampaign(ctx context.Context, campaignID string) error {
	campaign, err := o.deps.Campaigns.ByID(ctx, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status != domain.CampaignStatusPaused {
		return errs.Validation("ResumeCampaign", ErrNotPaused)
	}

	return o.deps.Campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusInProgress)
}

// Status is the public shape getCampaignStatus returns.
type Status struct {
	CampaignStatus domain.CampaignStatus
	IsRunning      bool
	IsPaused       bool
}

// GetCampaignStatus reports a campaign's current lifecycle state.
func (o *Orchestrator) GetCampaignStatus(ctx context.Context, campaignID string) (Status, error) {
	campaign, err := o.deps.Campaigns.ByID(ctx, campaignID)
	if err != nil {
		return Status{}, err
	}

	return Status{
		CampaignStatus: campaign.Status,
		IsRunning:      campaign.Status == domain.CampaignStatusInProgress,
		IsPaused:       campaign.Status == domain.CampaignStatusPaused,
	}, nil
}

// StartDailyLeads admits up to campaign.EffectiveLeadsPerDay unstarted
// leads onto the workflow, creating each one's entry-node PENDING step
// (spec §4.3). Completes the campaign once no unstarted leads remain.
func (o *Orchestrator) StartDailyLeads(ctx context.Context, campaign *domain.Campaign) error {
	leads, err := o.deps.Leads.ByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("load leads for campaign %s: %w", campaign.ID, err)
	}

	if len(leads) == 0 {
		return o.completeCampaign(ctx, campaign)
	}

	leadIDs := make([]string, len(leads))
	for i, l := range leads {
		leadIDs[i] = l.ID
	}

	started, err := o.deps.Steps.LeadsWithAnyStep(ctx, leadIDs)
	if err != nil {
		return fmt.Errorf("load started leads for campaign %s: %w", campaign.ID, err)
	}

	unstarted := make([]*domain.Lead, 0, len(leads))

	for _, l := range leads {
		if !started[l.ID] {
			unstarted = append(unstarted, l)
		}
	}

	if len(unstarted) == 0 {
		return o.completeCampaign(ctx, campaign)
	}

	rand.Shuffle(len(unstarted), func(i, j int) { unstarted[i], unstarted[j] = unstarted[j], unstarted[i] })

	admitCount := min(campaign.EffectiveLeadsPerDay(), len(unstarted))

	wf, err := o.deps.Workflows.Load(campaign.WorkflowLocation)
	if err != nil {
		return fmt.Errorf("load workflow for campaign %s: %w", campaign.ID, err)
	}

	entry, ok := graph.EntryNode(wf)
	if !ok {
		return fmt.Errorf("campaign %s workflow has no usable entry node", campaign.ID)
	}

	now := o.deps.Clock.Now()

	for _, lead := range unstarted[:admitCount] {
		step := &domain.WorkflowStep{
			ID:             uuid.NewString(),
			OrganizationID: lead.OrganizationID,
			LeadID:         lead.ID,
			CampaignID:     campaign.ID,
			IDInWorkflow:   entry.ID,
			StepIndex:      0,
			StepType:       entry.Data.Type,
			Status:         domain.StepStatusPending,
			ExecuteAfter:   now,
		}

		if err := o.deps.Steps.Create(ctx, step); err != nil {
			o.logger.ErrorContext(ctx, "failed to admit lead", "lead_id", lead.ID, "error", err)

			continue
		}
	}

	return nil
}

// completeCampaign transitions campaign to COMPLETED and publishes
// CampaignCompleted, used by both of StartDailyLeads' exhaustion paths
// (no leads at all, or no unstarted leads left).
func (o *Orchestrator) completeCampaign(ctx context.Context, campaign *domain.Campaign) error {
	if err := o.deps.Campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusCompleted); err != nil {
		return err
	}

	if o.deps.Bus != nil {
		_ = o.deps.Bus.Publish(ctx, eventbus.NewCampaignCompleted(campaign.ID))
	}

	return nil
}

// RetryFailedSteps re-arms every FAILED step of campaign's leads to
// PENDING and re-executes it immediately. Failures during retry are
// logged and do not cancel other retries (spec §4.7).
func (o *Orchestrator) RetryFailedSteps(ctx context.Context, campaign *domain.Campaign) error {
	failed, err := o.deps.Steps.FailedByCampaign(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("load failed steps for campaign %s: %w", campaign.ID, err)
	}

	now := o.deps.Clock.Now()

	for _, step := range failed {
		if err := o.deps.Steps.Rearm(ctx, step.ID, now); err != nil {
			o.logger.ErrorContext(ctx, "failed to rearm step", "step_id", step.ID, "error", err)

			continue
		}

		step.Status = domain.StepStatusPending
		step.ExecuteAfter = now

		if err := o.deps.Executor.ExecuteStep(ctx, step); err != nil {
			o.logger.ErrorContext(ctx, "failed to retry step", "step_id", step.ID, "error", err)
		}
	}

	return nil
}
