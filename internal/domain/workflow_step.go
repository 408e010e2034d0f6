package domain

import "time"

// StepType is the execution-time kind of a workflow step. It extends
// WorkflowNodeType with the two polling kinds whose steps are created as
// successors of a completed send_connection_request or send_followup step.
type StepType = WorkflowNodeType

// StepStatus is the lifecycle state of one lead's instance of one
// workflow node.
type StepStatus string

const (
	StepStatusPending    StepStatus = "PENDING"
	StepStatusProcessing StepStatus = "PROCESSING"
	StepStatusCompleted  StepStatus = "COMPLETED"
	StepStatusFailed     StepStatus = "FAILED"
	StepStatusSkipped    StepStatus = "SKIPPED"
)

// WorkflowStep is the durable, crash-safe ledger row tracking one lead's
// progress through one node of its campaign's workflow graph (spec §3,
// §4.8). Completing or polling a step produces zero or more successor
// rows via the graph navigator; it never mutates the row in place beyond
// status/retry bookkeeping.
type WorkflowStep struct {
	ID             string `json:"id"              validate:"required"`
	OrganizationID string `json:"organization_id" validate:"required"`
	LeadID         string `json:"lead_id"         validate:"required"`
	CampaignID     string `json:"campaign_id"     validate:"required"`

	// IDInWorkflow is the WorkflowNode.ID this row instantiates.
	IDInWorkflow string `json:"id_in_workflow" validate:"required"`
	StepIndex    int    `json:"step_index"`

	StepType StepType   `json:"step_type" validate:"required"`
	Status   StepStatus `json:"status"    validate:"required,oneof=PENDING PROCESSING COMPLETED FAILED SKIPPED"`

	Retries      int        `json:"retries"`
	ExecuteAfter time.Time  `json:"execute_after"`
	LastTriedAt  *time.Time `json:"last_tried_at,omitempty"`

	RawResponse map[string]any `json:"raw_response,omitempty"`
	LastError   string         `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsDue reports whether the step is eligible to run now.
func (s *WorkflowStep) IsDue(now time.Time) bool {
	return s.Status == StepStatusPending && !s.ExecuteAfter.After(now)
}

// IsPolling reports whether this step row represents a polling wait
// (check_connection_status / check_message_reply) rather than a
// provider-facing action.
func (s *WorkflowStep) IsPolling() bool {
	return s.StepType == NodeTypeCheckConnectionStatus || s.StepType == NodeTypeCheckMessageReply
}
