// Package memory implements the campaign workflow engine's store
// interfaces in process memory, protected by a mutex so tests exercise
// real concurrency semantics without a database — the in-test
// equivalent of a file-backed persistence layer.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/errs"
)

// Store bundles all four in-memory repositories behind a single mutex,
// mirroring the teacher's single-root file persistence.
type Store struct {
	mu        sync.Mutex
	campaigns map[string]*domain.Campaign
	leads     map[string]*domain.Lead
	accounts  map[string]*domain.ConnectedAccount
	steps     map[string]*domain.WorkflowStep
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		campaigns: make(map[string]*domain.Campaign),
		leads:     make(map[string]*domain.Lead),
		accounts:  make(map[string]*domain.ConnectedAccount),
		steps:     make(map[string]*domain.WorkflowStep),
	}
}

// SeedAccount inserts a ConnectedAccount directly, for test setup.
func (s *Store) SeedAccount(a *domain.ConnectedAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *a
	s.accounts[a.ID] = &copied
}

// Campaigns returns the CampaignStore view of this Store.
func (s *Store) Campaigns() *CampaignRepo { return &CampaignRepo{s} }

// Leads returns the LeadStore view of this Store.
func (s *Store) Leads() *LeadRepo { return &LeadRepo{s} }

// Accounts returns the AccountStore view of this Store.
func (s *Store) Accounts() *AccountRepo { return &AccountRepo{s} }

// Steps returns the StepStore view of this Store.
func (s *Store) Steps() *StepRepo { return &StepRepo{s} }

// CampaignRepo implements store.CampaignStore.
type CampaignRepo struct{ s *Store }

func (r *CampaignRepo) Create(_ context.Context, c *domain.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	copied := *c
	r.s.campaigns[c.ID] = &copied

	return nil
}

func (r *CampaignRepo) ByID(_ context.Context, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, errs.NotFound("CampaignRepo.ByID", id)
	}

	copied := *c

	return &copied, nil
}

func (r *CampaignRepo) DueForStart(_ context.Context, now time.Time) ([]*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Campaign

	for _, c := range r.s.campaigns {
		if c.IsDeleted {
			continue
		}

		if c.Status != domain.CampaignStatusDraft && c.Status != domain.CampaignStatusScheduled {
			continue
		}

		if c.StartDate != nil && !c.StartDate.After(now) {
			copied := *c
			out = append(out, &copied)
		}
	}

	sortCampaignsByID(out)

	return out, nil
}

func (r *CampaignRepo) InProgress(_ context.Context) ([]*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Campaign

	for _, c := range r.s.campaigns {
		if c.IsDeleted {
			continue
		}

		if c.Status == domain.CampaignStatusInProgress {
			copied := *c
			out = append(out, &copied)
		}
	}

	sortCampaignsByID(out)

	return out, nil
}

func (r *CampaignRepo) UpdateStatus(_ context.Context, id string, status domain.CampaignStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[id]
	if !ok {
		return errs.NotFound("CampaignRepo.UpdateStatus", id)
	}

	c.Status = status
	c.UpdatedAt = time.Now()

	return nil
}

func (r *CampaignRepo) ApplyCounterUpdate(_ context.Context, id string, update domain.CounterUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.campaigns[id]
	if !ok {
		return errs.NotFound("CampaignRepo.ApplyCounterUpdate", id)
	}

	if update.RequestsSentThisDay != nil {
		c.RequestsSentThisDay = *update.RequestsSentThisDay
	}

	if update.RequestsSentThisWeek != nil {
		c.RequestsSentThisWeek = *update.RequestsSentThisWeek
	}

	if update.LastDailyRequestsReset != nil {
		c.LastDailyRequestsReset = *update.LastDailyRequestsReset
	}

	if update.LastWeeklyRequestsReset != nil {
		c.LastWeeklyRequestsReset = *update.LastWeeklyRequestsReset
	}

	c.UpdatedAt = time.Now()

	return nil
}

func sortCampaignsByID(cs []*domain.Campaign) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
}

// LeadRepo implements store.LeadStore.
type LeadRepo struct{ s *Store }

func (r *LeadRepo) Create(_ context.Context, l *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	copied := *l
	r.s.leads[l.ID] = &copied

	return nil
}

func (r *LeadRepo) CreateMany(ctx context.Context, leads []*domain.Lead) error {
	for _, l := range leads {
		if err := r.Create(ctx, l); err != nil {
			return err
		}
	}

	return nil
}

func (r *LeadRepo) ByCampaign(_ context.Context, campaignID string) ([]*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.Lead

	for _, l := range r.s.leads {
		if l.CampaignID == campaignID {
			copied := *l
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (r *LeadRepo) ByID(_ context.Context, id string) (*domain.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.leads[id]
	if !ok {
		return nil, errs.NotFound("LeadRepo.ByID", id)
	}

	copied := *l

	return &copied, nil
}

func (r *LeadRepo) Update(_ context.Context, l *domain.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.leads[l.ID]; !ok {
		return errs.NotFound("LeadRepo.Update", l.ID)
	}

	copied := *l
	copied.UpdatedAt = time.Now()
	r.s.leads[l.ID] = &copied

	return nil
}

// AccountRepo implements store.AccountStore.
type AccountRepo struct{ s *Store }

func (r *AccountRepo) ByID(_ context.Context, id string) (*domain.ConnectedAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return nil, errs.NotFound("AccountRepo.ByID", id)
	}

	copied := *a

	return &copied, nil
}

func (r *AccountRepo) SetConnectionRequestBlockedUntil(_ context.Context, id string, until time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.accounts[id]
	if !ok {
		return errs.NotFound("AccountRepo.SetConnectionRequestBlockedUntil", id)
	}

	a.ConnectionRequestBlockedUntil = &until
	a.UpdatedAt = time.Now()

	return nil
}

// StepRepo implements store.StepStore.
type StepRepo struct{ s *Store }

func (r *StepRepo) Create(_ context.Context, step *domain.WorkflowStep) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	copied := *step
	r.s.steps[step.ID] = &copied

	return nil
}

func (r *StepRepo) DuePending(_ context.Context, now time.Time, limit int) ([]*domain.WorkflowStep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.WorkflowStep

	for _, st := range r.s.steps {
		if st.IsDue(now) {
			copied := *st
			out = append(out, &copied)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LeadID != out[j].LeadID {
			return out[i].LeadID < out[j].LeadID
		}

		return out[i].StepIndex < out[j].StepIndex
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *StepRepo) ByLeadAndKind(_ context.Context, leadIDs []string, kind domain.StepType) ([]*domain.WorkflowStep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[string]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = true
	}

	var out []*domain.WorkflowStep

	for _, st := range r.s.steps {
		if wanted[st.LeadID] && st.StepType == kind {
			copied := *st
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *StepRepo) LeadsWithAnyStep(_ context.Context, leadIDs []string) (map[string]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[string]bool, len(leadIDs))
	for _, id := range leadIDs {
		wanted[id] = true
	}

	out := make(map[string]bool)

	for _, st := range r.s.steps {
		if wanted[st.LeadID] {
			out[st.LeadID] = true
		}
	}

	return out, nil
}

func (r *StepRepo) MarkComplete(_ context.Context, id string, rawResponse map[string]any) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.steps[id]
	if !ok {
		return errs.NotFound("StepRepo.MarkComplete", id)
	}

	st.Status = domain.StepStatusCompleted
	st.RawResponse = rawResponse
	st.UpdatedAt = time.Now()

	return nil
}

func (r *StepRepo) MarkFailed(_ context.Context, id string, message string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.steps[id]
	if !ok {
		return errs.NotFound("StepRepo.MarkFailed", id)
	}

	now := time.Now()
	st.Retries++
	st.LastTriedAt = &now
	st.Status = domain.StepStatusFailed
	st.LastError = message
	st.RawResponse = map[string]any{"error": message}
	st.UpdatedAt = now

	return nil
}

func (r *StepRepo) Rearm(_ context.Context, id string, executeAfter time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	st, ok := r.s.steps[id]
	if !ok {
		return errs.NotFound("StepRepo.Rearm", id)
	}

	st.Status = domain.StepStatusPending
	st.ExecuteAfter = executeAfter
	st.UpdatedAt = time.Now()

	return nil
}

func (r *StepRepo) FailedByCampaign(_ context.Context, campaignID string) ([]*domain.WorkflowStep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*domain.WorkflowStep

	for _, st := range r.s.steps {
		if st.CampaignID == campaignID && st.Status == domain.StepStatusFailed {
			copied := *st
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *StepRepo) DeferPendingConnectionRequestsForSender(_ context.Context, senderID string, executeAfter time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64

	for _, st := range r.s.steps {
		if st.Status != domain.StepStatusPending || st.StepType != domain.NodeTypeSendConnectionRequest {
			continue
		}

		campaign, ok := r.s.campaigns[st.CampaignID]
		if !ok || campaign.SenderID != senderID {
			continue
		}

		st.ExecuteAfter = executeAfter
		st.UpdatedAt = time.Now()
		n++
	}

	return n, nil
}

func (r *StepRepo) MarkReplyReceived(_ context.Context, leadID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64

	for _, st := range r.s.steps {
		if st.LeadID != leadID || st.Status != domain.StepStatusPending || st.StepType != domain.NodeTypeCheckMessageReply {
			continue
		}

		if st.RawResponse == nil {
			st.RawResponse = make(map[string]any)
		}

		st.RawResponse["hasReplied"] = true
		st.UpdatedAt = time.Now()
		n++
	}

	return n, nil
}
