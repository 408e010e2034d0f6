package tick

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/outreachflow/campaignflow/internal/compose"
	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/executor"
	"github.com/outreachflow/campaignflow/internal/orchestrator"
	"github.com/outreachflow/campaignflow/internal/prospect"
	"github.com/outreachflow/campaignflow/internal/provider"
	"github.com/outreachflow/campaignflow/internal/ratelimit"
	"github.com/outreachflow/campaignflow/internal/store/memory"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type fakeWorkflowLoader struct{ wf *domain.Workflow }

func (f fakeWorkflowLoader) Load(_ string) (*domain.Workflow, error) { return f.wf, nil }

type fakeProspectLoader struct{ records []prospect.Record }

func (f fakeProspectLoader) Load(_ context.Context, _ string) ([]prospect.Record, error) {
	return f.records, nil
}

func singleNodeWorkflow() *domain.Workflow {
	return &domain.Workflow{
		Nodes: []domain.WorkflowNode{
			{ID: "visit", Type: domain.ActionProfileVisit, Data: domain.WorkflowNodeData{Type: domain.NodeTypeProfileVisit}},
		},
	}
}

func newDriver(t *testing.T, st *memory.Store, now time.Time) *Driver {
	t.Helper()

	exec := executor.New(executor.Deps{
		Steps:       st.Steps(),
		Leads:       st.Leads(),
		Campaigns:   st.Campaigns(),
		Accounts:    st.Accounts(),
		Workflows:   fakeWorkflowLoader{wf: singleNodeWorkflow()},
		Provider:    provider.NewFake(),
		Composer:    compose.NewStaticComposer(),
		RateLimiter: ratelimit.NewController(60, 200, time.UTC),
		Clock:       fixedClock{now: now},
	})

	orch := orchestrator.New(orchestrator.Deps{
		Campaigns: st.Campaigns(),
		Leads:     st.Leads(),
		Accounts:  st.Accounts(),
		Steps:     st.Steps(),
		Workflows: fakeWorkflowLoader{wf: singleNodeWorkflow()},
		Prospects: fakeProspectLoader{},
		Executor:  exec,
		Clock:     fixedClock{now: now},
	})

	d, err := New(Deps{
		Orchestrator: orch,
		Executor:     exec,
		Campaigns:    st.Campaigns(),
		Steps:        st.Steps(),
		Clock:        fixedClock{now: now},
		Tracer:       noop.NewTracerProvider().Tracer("tick-test"),
	})
	require.NoError(t, err)

	return d
}

func seedActiveSender(t *testing.T, st *memory.Store) *domain.ConnectedAccount {
	t.Helper()

	sender := &domain.ConnectedAccount{ID: "sender-1", OrganizationID: "org-1", Provider: "linkedin", ProviderAccountID: "acc-1", Status: domain.AccountStatusActive}
	st.SeedAccount(sender)

	return sender
}

// TestCheckScheduledCampaigns_StartsDueCampaigns covers the hourly
// scheduling task: a DRAFT campaign whose start_date has arrived is
// started and transitions to IN_PROGRESS.
func TestCheckScheduledCampaigns_StartsDueCampaigns(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	sender := seedActiveSender(t, st)
	startDate := now.Add(-time.Hour)
	campaign := &domain.Campaign{
		ID: "campaign-1", OrganizationID: "org-1", SenderID: sender.ID,
		ProspectListID: "list-1", WorkflowLocation: "workflow-1",
		Status: domain.CampaignStatusScheduled, StartDate: &startDate,
	}
	require.NoError(t, st.Campaigns().Create(ctx, campaign))

	d := newDriver(t, st, now)
	d.executor = executor.New(executor.Deps{
		Steps: st.Steps(), Leads: st.Leads(), Campaigns: st.Campaigns(), Accounts: st.Accounts(),
		Workflows: fakeWorkflowLoader{wf: singleNodeWorkflow()}, Provider: provider.NewFake(),
		Composer: compose.NewStaticComposer(), RateLimiter: ratelimit.NewController(60, 200, time.UTC), Clock: fixedClock{now: now},
	})
	d.orchestrator = orchestrator.New(orchestrator.Deps{
		Campaigns: st.Campaigns(), Leads: st.Leads(), Accounts: st.Accounts(), Steps: st.Steps(),
		Workflows: fakeWorkflowLoader{wf: singleNodeWorkflow()},
		Prospects: fakeProspectLoader{records: []prospect.Record{{LinkedInURL: "https://linkedin.com/in/x"}}},
		Executor:  d.executor, Clock: fixedClock{now: now},
	})

	require.NoError(t, d.checkScheduledCampaigns(ctx))

	reloaded, err := st.Campaigns().ByID(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusInProgress, reloaded.Status)
}

// TestStartDailyLeads_AdmitsAcrossInProgressCampaigns covers the daily
// admission task fanning out over every IN_PROGRESS campaign.
func TestStartDailyLeads_AdmitsAcrossInProgressCampaigns(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)

	sender := seedActiveSender(t, st)
	campaign := &domain.Campaign{
		ID: "campaign-1", OrganizationID: "org-1", SenderID: sender.ID,
		ProspectListID: "list-1", WorkflowLocation: "workflow-1", Status: domain.CampaignStatusInProgress,
	}
	require.NoError(t, st.Campaigns().Create(ctx, campaign))

	lead := &domain.Lead{ID: "lead-1", OrganizationID: "org-1", CampaignID: campaign.ID, LinkedInURL: "https://linkedin.com/in/x"}
	require.NoError(t, st.Leads().Create(ctx, lead))

	d := newDriver(t, st, now)

	require.NoError(t, d.startDailyLeads(ctx))

	started, err := st.Steps().LeadsWithAnyStep(ctx, []string{lead.ID})
	require.NoError(t, err)
	assert.True(t, started[lead.ID])
}

// TestProcessDailyLeads_ExecutesDueStepsOneAtATime covers the minutely
// execution task.
func TestProcessDailyLeads_ExecutesDueStepsOneAtATime(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	sender := seedActiveSender(t, st)
	campaign := &domain.Campaign{
		ID: "campaign-1", OrganizationID: "org-1", SenderID: sender.ID,
		ProspectListID: "list-1", WorkflowLocation: "workflow-1", Status: domain.CampaignStatusInProgress,
	}
	require.NoError(t, st.Campaigns().Create(ctx, campaign))

	lead := &domain.Lead{ID: "lead-1", OrganizationID: "org-1", CampaignID: campaign.ID, LinkedInURL: "https://linkedin.com/in/x"}
	require.NoError(t, st.Leads().Create(ctx, lead))

	step := &domain.WorkflowStep{
		ID: "step-1", OrganizationID: "org-1", LeadID: lead.ID, CampaignID: campaign.ID,
		IDInWorkflow: "visit", StepType: domain.NodeTypeProfileVisit, Status: domain.StepStatusPending,
		ExecuteAfter: now.Add(-time.Minute),
	}
	require.NoError(t, st.Steps().Create(ctx, step))

	d := newDriver(t, st, now)

	require.NoError(t, d.processDailyLeads(ctx))

	due, err := st.Steps().DuePending(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

// TestRetryFailedSteps_FansOutAcrossInProgressCampaigns covers the
// hourly retry task.
func TestRetryFailedSteps_FansOutAcrossInProgressCampaigns(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	sender := seedActiveSender(t, st)
	campaign := &domain.Campaign{
		ID: "campaign-1", OrganizationID: "org-1", SenderID: sender.ID,
		ProspectListID: "list-1", WorkflowLocation: "workflow-1", Status: domain.CampaignStatusInProgress,
	}
	require.NoError(t, st.Campaigns().Create(ctx, campaign))

	lead := &domain.Lead{ID: "lead-1", OrganizationID: "org-1", CampaignID: campaign.ID, LinkedInURL: "https://linkedin.com/in/x"}
	require.NoError(t, st.Leads().Create(ctx, lead))

	step := &domain.WorkflowStep{
		ID: "step-1", OrganizationID: "org-1", LeadID: lead.ID, CampaignID: campaign.ID,
		IDInWorkflow: "visit", StepType: domain.NodeTypeProfileVisit, Status: domain.StepStatusFailed,
	}
	require.NoError(t, st.Steps().Create(ctx, step))

	d := newDriver(t, st, now)

	require.NoError(t, d.retryFailedSteps(ctx))

	failed, err := st.Steps().FailedByCampaign(ctx, campaign.ID)
	require.NoError(t, err)
	assert.Empty(t, failed)
}
