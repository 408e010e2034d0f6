// Package executor implements the campaign workflow engine's step
// executor: dispatching one pending WorkflowStep by kind, updating its
// state, and invoking the successor planner.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/outreachflow/campaignflow/internal/clock"
	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/eventbus"
	"github.com/outreachflow/campaignflow/internal/graph"
	"github.com/outreachflow/campaignflow/internal/metrics"
	"github.com/outreachflow/campaignflow/internal/otelhelper"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
	"github.com/outreachflow/campaignflow/internal/store"
)

// Deps bundles every collaborator the step executor dispatches
// through. Bus and Tracer may be nil (no events are published and no
// step spans are opened); every other field is required.
type Deps struct {
	Steps       store.StepStore
	Leads       store.LeadStore
	Campaigns   store.CampaignStore
	Accounts    store.AccountStore
	Workflows   graph.Loader
	Provider    provider.Client
	Composer    compose.Composer
	RateLimiter *ratelimit.Controller
	Bus         *eventbus.Bus
	Clock       clock.Clock
	Tracer      trace.Tracer
}

// Executor dispatches pending WorkflowStep rows to their per-kind
// handler and plans successor steps on completion.
type Executor struct {
	deps   Deps
	logger *slog.Logger
}

// New builds an Executor over the given collaborators.
func New(deps Deps) *Executor {
	return &Executor{deps: deps, logger: slog.With("module", "executor")}
}

// execResult is what a per-kind handler produces on success.
type execResult struct {
	rawResponse map[string]any
	shouldPoll  bool
	pollType    domain.WorkflowNodeType
}

// errDeferred signals that a gate (sender cooldown, rate limit) held
// the step back: it stays PENDING with an updated execute_after, no
// success/failure transition and no successor planning.
var errDeferred = errors.New("step deferred")

type handlerCtx struct {
	ctx      context.Context
	lead     *domain.Lead
	campaign *domain.Campaign
	sender   *domain.ConnectedAccount
	node     *domain.WorkflowNode
	step     *domain.WorkflowStep
	now      time.Time
}

type handlerFunc func(e *Executor, hc *handlerCtx) (execResult, error)

var handlers = map[domain.WorkflowNodeType]handlerFunc{
	domain.NodeTypeProfileVisit:          (*Executor).handleProfileVisit,
	domain.NodeTypeSendConnectionRequest: (*Executor).handleSendConnectionRequest,
	domain.NodeTypeLikePost:              (*Executor).handleLikePost,
	domain.NodeTypeCommentPost:           (*Executor).handleCommentPost,
	domain.NodeTypeSendFollowup:          (*Executor).handleSendFollowup,
	domain.NodeTypeWithdrawRequest:       (*Executor).handleWithdrawRequest,
	domain.NodeTypeWebhook:               (*Executor).handleNoOpSuccess,
	domain.NodeTypeSendInmail:            (*Executor).handleNoOpSuccess,
	domain.NodeTypeCheckConnectionStatus: (*Executor).handleCheckConnectionStatus,
	domain.NodeTypeCheckMessageReply:     (*Executor).handleCheckMessageReply,
}

// ExecuteStep dispatches a single pending step. Any error returned is
// an infrastructure failure (store/provider unreachable); domain-level
// step failure is handled internally via markStepFailed and never
// surfaces as a returned error.
func (e *Executor) ExecuteStep(ctx context.Context, step *domain.WorkflowStep) error {
	start := time.Now()

	if e.deps.Tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.deps.Tracer, "executor.ExecuteStep",
			attribute.String(otelhelper.CampaignIDKey, step.CampaignID),
			attribute.String(otelhelper.LeadIDKey, step.LeadID),
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.StepTypeKey, string(step.StepType)),
		)
		defer span.End()
	}

	lead, err := e.deps.Leads.ByID(ctx, step.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", step.LeadID, err)
	}

	campaign, err := e.deps.Campaigns.ByID(ctx, step.CampaignID)
	if err != nil {
		return fmt.Errorf("load campaign %s: %w", step.CampaignID, err)
	}

	if campaign.Status == domain.CampaignStatusPaused {
		return nil
	}

	sender, err := e.deps.Accounts.ByID(ctx, campaign.SenderID)
	if err != nil {
		return fmt.Errorf("load sender %s: %w", campaign.SenderID, err)
	}

	wf, err := e.deps.Workflows.Load(campaign.WorkflowLocation)
	if err != nil {
		return fmt.Errorf("load workflow for campaign %s: %w", campaign.ID, err)
	}

	now := e.deps.Clock.Now()

	node, ok := graph.NodeByID(wf, step.IDInWorkflow)
	if !ok {
		e.markStepFailed(ctx, step, "Node not found in workflow")

		return nil
	}

	hc := &handlerCtx{ctx: ctx, lead: lead, campaign: campaign, sender: sender, node: node, step: step, now: now}

	handler, ok := handlers[step.StepType]
	if !ok {
		e.markStepFailed(ctx, step, fmt.Sprintf("unsupported step type %q", step.StepType))

		return nil
	}

	result, err := handler(e, hc)

	if errors.Is(err, errDeferred) {
		metrics.ObserveStep(string(step.StepType), "deferred", time.Since(start).Seconds())

		return nil
	}

	if err != nil {
		e.handleExecutionFailure(ctx, hc, err)
		metrics.ObserveStep(string(step.StepType), "failed", time.Since(start).Seconds())

		return nil
	}

	if err := e.deps.Steps.MarkComplete(ctx, step.ID, result.rawResponse); err != nil {
		return fmt.Errorf("mark step %s complete: %w", step.ID, err)
	}

	step.Status = domain.StepStatusCompleted
	step.RawResponse = result.rawResponse

	if err := e.planSuccessors(ctx, wf, hc, result); err != nil {
		return fmt.Errorf("plan successors for step %s: %w", step.ID, err)
	}

	metrics.ObserveStep(string(step.StepType), "completed", time.Since(start).Seconds())

	return nil
}

func (e *Executor) handleExecutionFailure(ctx context.Context, hc *handlerCtx, err error) {
	message := err.Error()

	e.markStepFailed(ctx, hc.step, message)

	if hc.step.StepType == domain.NodeTypeSendConnectionRequest && errors.Is(err, provider.ErrCannotResendYet) {
		e.applySenderCooldown(ctx, hc)
	}

	if e.deps.Bus != nil {
		_ = e.deps.Bus.Publish(ctx, eventbus.NewStepFailed(
			hc.campaign.ID, hc.step.ID, hc.lead.ID, string(hc.step.StepType), message,
		))
	}
}

func (e *Executor) markStepFailed(ctx context.Context, step *domain.WorkflowStep, message string) {
	if err := e.deps.Steps.MarkFailed(ctx, step.ID, message); err != nil {
		e.logger.ErrorContext(ctx, "failed to record step failure", "step_id", step.ID, "error", err)
	}
}

// applySenderCooldown implements the sender-wide connection-request
// cooldown triggered by a cannot_resend_yet provider error (spec §4.6).
func (e *Executor) applySenderCooldown(ctx context.Context, hc *handlerCtx) {
	until := hc.now.Add(24 * time.Hour)

	if err := e.deps.Accounts.SetConnectionRequestBlockedUntil(ctx, hc.sender.ID, until); err != nil {
		e.logger.ErrorContext(ctx, "failed to apply sender cooldown", "sender_id", hc.sender.ID, "error", err)

		return
	}

	deferred, err := e.deps.Steps.DeferPendingConnectionRequestsForSender(ctx, hc.sender.ID, until)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to defer pending connection requests", "sender_id", hc.sender.ID, "error", err)

		return
	}

	metrics.IncCooldownApplied()

	if e.deps.Bus != nil {
		_ = e.deps.Bus.Publish(ctx, eventbus.NewCooldownApplied(hc.campaign.ID, hc.sender.ID, until, deferred))
	}
}

func (e *Executor) handleNoOpSuccess(hc *handlerCtx) (execResult, error) {
	return execResult{rawResponse: map[string]any{"status": "ok"}}, nil
}
