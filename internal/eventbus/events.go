// Package eventbus defines the campaign workflow engine's domain
// events and a Watermill-backed bus publishing them, so an out-of-scope
// alert sink can subscribe to step and campaign failures without the
// engine depending on a concrete alerting transport.
package eventbus

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a domain event's shape.
type EventType string

const (
	CampaignStartedEvent   EventType = "campaign.started"
	StepFailedEvent        EventType = "step.failed"
	CooldownAppliedEvent   EventType = "sender.cooldown_applied"
	CampaignCompletedEvent EventType = "campaign.completed"
)

// Topic is the single Watermill topic every event is published to;
// subscribers filter by EventTypeMetadataKey.
const Topic = "campaignflow.events"

const EventTypeMetadataKey = "event_type"

// BaseEvent is embedded by every concrete event.
type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	CampaignID string    `json:"campaign_id"`
}

// Event is implemented by every concrete event type.
type Event interface {
	GetType() EventType
}

func newBase(t EventType, campaignID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       t,
		Timestamp:  time.Now().UTC(),
		CampaignID: campaignID,
	}
}

// CampaignStarted is published when the orchestrator transitions a
// campaign to IN_PROGRESS via StartCampaign (from any status other than
// IN_PROGRESS or COMPLETED).
type CampaignStarted struct {
	BaseEvent

	SenderID       string `json:"sender_id"`
	ProspectListID string `json:"prospect_list_id"`
	LeadCount      int    `json:"lead_count"`
}

func NewCampaignStarted(campaignID, senderID, prospectListID string, leadCount int) CampaignStarted {
	return CampaignStarted{
		BaseEvent:      newBase(CampaignStartedEvent, campaignID),
		SenderID:       senderID,
		ProspectListID: prospectListID,
		LeadCount:      leadCount,
	}
}

func (CampaignStarted) GetType() EventType { return CampaignStartedEvent }

// StepFailed is published every time the executor marks a step FAILED
// after its handler returns an error.
type StepFailed struct {
	BaseEvent

	StepID   string `json:"step_id"`
	LeadID   string `json:"lead_id"`
	StepType string `json:"step_type"`
	Error    string `json:"error"`
}

func NewStepFailed(campaignID, stepID, leadID, stepType, errMsg string) StepFailed {
	return StepFailed{
		BaseEvent: newBase(StepFailedEvent, campaignID),
		StepID:    stepID,
		LeadID:    leadID,
		StepType:  stepType,
		Error:     errMsg,
	}
}

func (StepFailed) GetType() EventType { return StepFailedEvent }

// CooldownApplied is published when a sender-wide connection-request
// cooldown is applied following a cannot_resend_yet provider error.
type CooldownApplied struct {
	BaseEvent

	SenderID      string    `json:"sender_id"`
	BlockedUntil  time.Time `json:"blocked_until"`
	DeferredSteps int64     `json:"deferred_steps"`
}

func NewCooldownApplied(campaignID, senderID string, blockedUntil time.Time, deferred int64) CooldownApplied {
	return CooldownApplied{
		BaseEvent:     newBase(CooldownAppliedEvent, campaignID),
		SenderID:      senderID,
		BlockedUntil:  blockedUntil,
		DeferredSteps: deferred,
	}
}

func (CooldownApplied) GetType() EventType { return CooldownAppliedEvent }

// CampaignCompleted is published when start-daily-leads finds no
// unstarted leads left and marks the campaign COMPLETED.
type CampaignCompleted struct {
	BaseEvent
}

func NewCampaignCompleted(campaignID string) CampaignCompleted {
	return CampaignCompleted{BaseEvent: newBase(CampaignCompletedEvent, campaignID)}
}

func (CampaignCompleted) GetType() EventType { return CampaignCompletedEvent }
