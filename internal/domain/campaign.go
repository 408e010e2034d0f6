// Package domain defines the core persisted entities of the campaign
// workflow engine: campaigns, leads, sender accounts, and workflow steps.
package domain

import "time"

// CampaignStatus represents the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft       CampaignStatus = "DRAFT"
	CampaignStatusScheduled   CampaignStatus = "SCHEDULED"
	CampaignStatusInProgress  CampaignStatus = "IN_PROGRESS"
	CampaignStatusPaused      CampaignStatus = "PAUSED"
	CampaignStatusCompleted   CampaignStatus = "COMPLETED"
	CampaignStatusFailed      CampaignStatus = "FAILED"
)

// DefaultLeadsPerDay is used when a campaign does not specify its own cap.
const DefaultLeadsPerDay = 10

// Campaign is a persistent outreach workflow owned by an organization,
// tied to a sender account, a prospect list, and an immutable workflow
// document.
type Campaign struct {
	ID             string         `json:"id"               validate:"required"`
	OrganizationID string         `json:"organization_id"  validate:"required"`
	SenderID       string         `json:"sender_id"        validate:"required"`
	ProspectListID string         `json:"prospect_list_id" validate:"required"`
	WorkflowLocation string       `json:"workflow_location" validate:"required"`
	Status         CampaignStatus `json:"status"           validate:"required,oneof=DRAFT SCHEDULED IN_PROGRESS PAUSED COMPLETED FAILED"`
	StartDate      *time.Time     `json:"start_date,omitempty"`
	LeadsPerDay    int            `json:"leads_per_day"    validate:"gte=0"`

	RequestsSentThisDay  int `json:"requests_sent_this_day"  validate:"gte=0"`
	RequestsSentThisWeek int `json:"requests_sent_this_week" validate:"gte=0"`

	LastDailyRequestsReset  time.Time `json:"last_daily_requests_reset"`
	LastWeeklyRequestsReset time.Time `json:"last_weekly_requests_reset"`

	IsDeleted bool `json:"is_deleted"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveLeadsPerDay returns the configured admission cap, defaulting
// to DefaultLeadsPerDay when unset.
func (c *Campaign) EffectiveLeadsPerDay() int {
	if c.LeadsPerDay <= 0 {
		return DefaultLeadsPerDay
	}

	return c.LeadsPerDay
}

// CounterUpdate is a patch to a campaign's rate-limit counters and their
// reset timestamps. It is always applied atomically with any concurrent
// increment so that a detected reset is never lost (spec §4.6, §5).
type CounterUpdate struct {
	RequestsSentThisDay     *int
	RequestsSentThisWeek    *int
	LastDailyRequestsReset  *time.Time
	LastWeeklyRequestsReset *time.Time
}

// Merge combines two counter updates, with `other` taking precedence for
// any field it sets. Used to fold a rate-limit reset patch together with
// a same-call increment into one persisted write (spec §4.6, §9).
func (c CounterUpdate) Merge(other CounterUpdate) CounterUpdate {
	merged := c

	if other.RequestsSentThisDay != nil {
		merged.RequestsSentThisDay = other.RequestsSentThisDay
	}

	if other.RequestsSentThisWeek != nil {
		merged.RequestsSentThisWeek = other.RequestsSentThisWeek
	}

	if other.LastDailyRequestsReset != nil {
		merged.LastDailyRequestsReset = other.LastDailyRequestsReset
	}

	if other.LastWeeklyRequestsReset != nil {
		merged.LastWeeklyRequestsReset = other.LastWeeklyRequestsReset
	}

	return merged
}

// IsEmpty reports whether the update carries no changes at all.
func (c CounterUpdate) IsEmpty() bool {
	return c.RequestsSentThisDay == nil &&
		c.RequestsSentThisWeek == nil &&
		c.LastDailyRequestsReset == nil &&
		c.LastWeeklyRequestsReset == nil
}
