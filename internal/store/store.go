// Package store defines the narrow, semantic repository interfaces the
// campaign workflow engine persists through. Each interface exposes
// exactly the queries its callers need — not a generic SQL DSL.
package store

import (
	"context"
	"time"

	"github.com/outreachflow/campaignflow/internal/domain"
)

// CampaignStore persists Campaign rows and their rate-limit counters.
type CampaignStore interface {
	Create(ctx context.Context, c *domain.Campaign) error
	ByID(ctx context.Context, id string) (*domain.Campaign, error)
	DueForStart(ctx context.Context, now time.Time) ([]*domain.Campaign, error)
	InProgress(ctx context.Context) ([]*domain.Campaign, error)
	UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error
	ApplyCounterUpdate(ctx context.Context, id string, update domain.CounterUpdate) error
}

// LeadStore persists Lead rows.
type LeadStore interface {
	Create(ctx context.Context, l *domain.Lead) error
	CreateMany(ctx context.Context, leads []*domain.Lead) error
	ByCampaign(ctx context.Context, campaignID string) ([]*domain.Lead, error)
	ByID(ctx context.Context, id string) (*domain.Lead, error)
	Update(ctx context.Context, l *domain.Lead) error
}

// AccountStore persists ConnectedAccount rows.
type AccountStore interface {
	ByID(ctx context.Context, id string) (*domain.ConnectedAccount, error)
	SetConnectionRequestBlockedUntil(ctx context.Context, id string, until time.Time) error
}

// StepStore persists WorkflowStep rows, the engine's durable ledger.
type StepStore interface {
	Create(ctx context.Context, step *domain.WorkflowStep) error
	DuePending(ctx context.Context, now time.Time, limit int) ([]*domain.WorkflowStep, error)
	ByLeadAndKind(ctx context.Context, leadIDs []string, kind domain.StepType) ([]*domain.WorkflowStep, error)
	LeadsWithAnyStep(ctx context.Context, leadIDs []string) (map[string]bool, error)
	MarkComplete(ctx context.Context, id string, rawResponse map[string]any) error
	MarkFailed(ctx context.Context, id string, message string) error
	Rearm(ctx context.Context, id string, executeAfter time.Time) error
	FailedByCampaign(ctx context.Context, campaignID string) ([]*domain.WorkflowStep, error)
	DeferPendingConnectionRequestsForSender(ctx context.Context, senderID string, executeAfter time.Time) (int64, error)
	MarkReplyReceived(ctx context.Context, leadID string) (int64, error)
}
