package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
	"github.com/outreachflow/campaignflow/internal/store/memory"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

// fakeLoader always resolves a campaign's workflow_location to a fixed
// in-memory document, regardless of the location string.
type fakeLoader struct{ wf *domain.Workflow }

func (f fakeLoader) Load(_ string) (*domain.Workflow, error) { return f.wf, nil }

// connectionRequestWorkflow builds a three-node document: an entry
// send_connection_request node branching to an accepted "thanks" node
// (webhook, used here as a cheap no-op terminal) and a not_accepted
// "withdraw" node.
func connectionRequestWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Nodes: []domain.WorkflowNode{
			{ID: "invite", Type: domain.ActionSendConnectionRequest, Data: domain.WorkflowNodeData{Type: domain.NodeTypeSendConnectionRequest}},
			{ID: "thanks", Type: domain.ActionWebhook, Data: domain.WorkflowNodeData{Type: domain.NodeTypeWebhook}},
			{ID: "withdraw", Type: domain.ActionWithdrawRequest, Data: domain.WorkflowNodeData{Type: domain.NodeTypeWithdrawRequest}},
		},
		Edges: []domain.WorkflowEdge{
			{
				ID: "invite-accepted", Source: "invite", Target: "thanks",
				Data: domain.WorkflowEdgeData{
					IsConditionalPath: true, IsPositive: true,
					DelayData: &domain.DelayData{Delay: "1", Unit: domain.DelayUnitHours},
				},
			},
			{
				ID: "invite-not-accepted", Source: "invite", Target: "withdraw",
				Data: domain.WorkflowEdgeData{
					IsConditionalPath: true, IsPositive: false,
					DelayData: &domain.DelayData{Delay: "0", Unit: domain.DelayUnitSeconds},
				},
			},
		},
	}
}

type fixture struct {
	exec     *Executor
	store    *memory.Store
	fake     *provider.Fake
	campaign *domain.Campaign
	lead     *domain.Lead
	sender   *domain.ConnectedAccount
	now      time.Time
}

func newFixture(t *testing.T, wf *domain.Workflow, dailyLimit, weeklyLimit int) *fixture {
	t.Helper()

	ctx := context.Background()
	st := memory.New()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	sender := &domain.ConnectedAccount{ID: "sender-1", OrganizationID: "org-1", Provider: "linkedin", ProviderAccountID: "acc-1", Status: domain.AccountStatusActive}
	st.SeedAccount(sender)

	campaign := &domain.Campaign{
		ID: "campaign-1", OrganizationID: "org-1", SenderID: sender.ID,
		ProspectListID: "list-1", WorkflowLocation: "workflow-1",
		Status: domain.CampaignStatusInProgress,
	}
	require.NoError(t, st.Campaigns().Create(ctx, campaign))

	lead := &domain.Lead{ID: "lead-1", OrganizationID: "org-1", CampaignID: campaign.ID, LinkedInURL: "https://linkedin.com/in/lead-1", PublicIdentifier: "lead-1"}
	require.NoError(t, st.Leads().Create(ctx, lead))

	fake := provider.NewFake()

	exec := New(Deps{
		Steps:       st.Steps(),
		Leads:       st.Leads(),
		Campaigns:   st.Campaigns(),
		Accounts:    st.Accounts(),
		Workflows:   fakeLoader{wf: wf},
		Provider:    fake,
		Composer:    compose.NewStaticComposer(),
		RateLimiter: ratelimit.NewController(dailyLimit, weeklyLimit, time.UTC),
		Clock:       fixedClock{now: now},
	})

	return &fixture{exec: exec, store: st, fake: fake, campaign: campaign, lead: lead, sender: sender, now: now}
}

func (f *fixture) createStep(t *testing.T, step *domain.WorkflowStep) {
	t.Helper()
	require.NoError(t, f.store.Steps().Create(context.Background(), step))
}

// TestExecuteStep_SimpleConnectionPath covers the accepted branch: a
// send_connection_request completes, starts a polling step, and the
// poll resolving as connected fans out to the accepted successor.
func TestExecuteStep_SimpleConnectionPath(t *testing.T) {
	ctx := context.Background()
	wf := connectionRequestWorkflow()
	f := newFixture(t, wf, 100, 1000)

	inviteStep := &domain.WorkflowStep{
		ID: "step-invite", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeSendConnectionRequest, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
	}
	f.createStep(t, inviteStep)

	require.NoError(t, f.exec.ExecuteStep(ctx, inviteStep))
	assert.Contains(t, f.fake.Calls, "SendInvitation:lead-1")

	polling, err := f.store.Steps().DuePending(ctx, f.now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, polling, 1)
	assert.Equal(t, domain.NodeTypeCheckConnectionStatus, polling[0].StepType)

	f.fake.Connected["lead-1"] = true

	require.NoError(t, f.exec.ExecuteStep(ctx, polling[0]))

	thanksSteps, err := f.store.Steps().ByLeadAndKind(ctx, []string{f.lead.ID}, domain.NodeTypeWebhook)
	require.NoError(t, err)
	require.Len(t, thanksSteps, 1)
	assert.Equal(t, domain.StepStatusPending, thanksSteps[0].Status)
}

// TestExecuteStep_TimeoutTakesWithdraw covers the not_accepted branch:
// a connection-status poll that times out without ever connecting
// routes to the withdraw_request successor.
func TestExecuteStep_TimeoutTakesWithdraw(t *testing.T) {
	ctx := context.Background()
	wf := connectionRequestWorkflow()
	f := newFixture(t, wf, 100, 1000)

	pollStep := &domain.WorkflowStep{
		ID: "step-poll", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeCheckConnectionStatus, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
		RawResponse: map[string]any{
			"providerId":       "lead-1",
			"pollingStartedAt": f.now.Add(-2 * time.Hour),
			"nextSteps": []nextStepInfo{
				{NodeID: "thanks", EdgeID: "invite-accepted", ConditionalType: domain.ConditionalAccepted, DelayMs: time.Hour.Milliseconds()},
				{NodeID: "withdraw", EdgeID: "invite-not-accepted", ConditionalType: domain.ConditionalNotAccepted, DelayMs: 0},
			},
		},
	}
	f.createStep(t, pollStep)

	require.NoError(t, f.exec.ExecuteStep(ctx, pollStep))

	withdrawSteps, err := f.store.Steps().ByLeadAndKind(ctx, []string{f.lead.ID}, domain.NodeTypeWithdrawRequest)
	require.NoError(t, err)
	require.Len(t, withdrawSteps, 1)
}

// TestExecuteStep_DailyLimitDeferral covers the rate-limit gate:
// exceeding the daily cap rearms the step instead of failing it.
func TestExecuteStep_DailyLimitDeferral(t *testing.T) {
	ctx := context.Background()
	wf := connectionRequestWorkflow()
	f := newFixture(t, wf, 1, 1000)

	f.campaign.RequestsSentThisDay = 1
	f.campaign.LastDailyRequestsReset = f.now
	require.NoError(t, f.store.Campaigns().Create(ctx, f.campaign))

	step := &domain.WorkflowStep{
		ID: "step-limited", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeSendConnectionRequest, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
	}
	f.createStep(t, step)

	require.NoError(t, f.exec.ExecuteStep(ctx, step))
	assert.NotContains(t, f.fake.Calls, "SendInvitation:lead-1")

	reloaded, err := f.store.Steps().ByLeadAndKind(ctx, []string{f.lead.ID}, domain.NodeTypeSendConnectionRequest)
	require.NoError(t, err)
	require.Len(t, reloaded, 1)
	assert.Equal(t, domain.StepStatusPending, reloaded[0].Status)
	assert.True(t, reloaded[0].ExecuteAfter.After(f.now))
}

// TestExecuteStep_CannotResendYetAppliesCooldown covers the sender-wide
// cooldown: a cannot_resend_yet provider error blocks the sender and
// bulk-defers every other pending connection-request step for it.
func TestExecuteStep_CannotResendYetAppliesCooldown(t *testing.T) {
	ctx := context.Background()
	wf := connectionRequestWorkflow()
	f := newFixture(t, wf, 100, 1000)
	f.fake.SendInviteErr = provider.NewCannotResendYet("daily invite cap reached")

	otherLead := &domain.Lead{ID: "lead-2", OrganizationID: "org-1", CampaignID: f.campaign.ID, LinkedInURL: "https://linkedin.com/in/lead-2", PublicIdentifier: "lead-2"}
	require.NoError(t, f.store.Leads().Create(ctx, otherLead))

	failingStep := &domain.WorkflowStep{
		ID: "step-fail", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeSendConnectionRequest, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
	}
	f.createStep(t, failingStep)

	otherStep := &domain.WorkflowStep{
		ID: "step-other", OrganizationID: "org-1", LeadID: otherLead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeSendConnectionRequest, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
	}
	f.createStep(t, otherStep)

	require.NoError(t, f.exec.ExecuteStep(ctx, failingStep))

	sender, err := f.store.Accounts().ByID(ctx, f.sender.ID)
	require.NoError(t, err)
	require.NotNil(t, sender.ConnectionRequestBlockedUntil)
	assert.True(t, sender.ConnectionRequestBlockedUntil.After(f.now))

	reloadedOther, err := f.store.Steps().ByLeadAndKind(ctx, []string{otherLead.ID}, domain.NodeTypeSendConnectionRequest)
	require.NoError(t, err)
	require.Len(t, reloadedOther, 1)
	assert.Equal(t, domain.StepStatusPending, reloadedOther[0].Status)
	assert.True(t, reloadedOther[0].ExecuteAfter.After(f.now))
}

// TestExecuteStep_ReplyStopsFollowupChain covers the message-reply
// poll: once a reply has been recorded, the chain stops without
// creating a not_accepted/timeout successor.
func TestExecuteStep_ReplyStopsFollowupChain(t *testing.T) {
	ctx := context.Background()
	wf := &domain.Workflow{
		Nodes: []domain.WorkflowNode{
			{ID: "followup", Type: domain.ActionSendFollowup, Data: domain.WorkflowNodeData{Type: domain.NodeTypeSendFollowup}},
			{ID: "nudge", Type: domain.ActionSendFollowup, Data: domain.WorkflowNodeData{Type: domain.NodeTypeSendFollowup}},
		},
		Edges: []domain.WorkflowEdge{
			{
				ID: "followup-not-accepted", Source: "followup", Target: "nudge",
				Data: domain.WorkflowEdgeData{IsConditionalPath: true, IsPositive: false},
			},
		},
	}
	f := newFixture(t, wf, 100, 1000)

	step := &domain.WorkflowStep{
		ID: "step-reply", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "followup", StepType: domain.NodeTypeCheckMessageReply, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
		RawResponse: map[string]any{
			"hasReplied":       true,
			"pollingStartedAt": f.now.Add(-time.Minute),
			"nextSteps": []nextStepInfo{
				{NodeID: "nudge", EdgeID: "followup-not-accepted", ConditionalType: domain.ConditionalNotAccepted, DelayMs: 0},
			},
		},
	}
	f.createStep(t, step)

	require.NoError(t, f.exec.ExecuteStep(ctx, step))

	nudgeSteps, err := f.store.Steps().ByLeadAndKind(ctx, []string{f.lead.ID}, domain.NodeTypeSendFollowup)
	require.NoError(t, err)
	assert.Empty(t, nudgeSteps)
}

// TestExecuteStep_PausedCampaignSkipped ensures a paused campaign's
// step is simply left alone rather than executed or failed.
func TestExecuteStep_PausedCampaignSkipped(t *testing.T) {
	ctx := context.Background()
	wf := connectionRequestWorkflow()
	f := newFixture(t, wf, 100, 1000)

	f.campaign.Status = domain.CampaignStatusPaused
	require.NoError(t, f.store.Campaigns().Create(ctx, f.campaign))

	step := &domain.WorkflowStep{
		ID: "step-paused", OrganizationID: "org-1", LeadID: f.lead.ID, CampaignID: f.campaign.ID,
		IDInWorkflow: "invite", StepType: domain.NodeTypeSendConnectionRequest, Status: domain.StepStatusPending,
		ExecuteAfter: f.now,
	}
	f.createStep(t, step)

	require.NoError(t, f.exec.ExecuteStep(ctx, step))
	assert.Empty(t, f.fake.Calls)
}
