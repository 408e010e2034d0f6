package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/errs"
)

// StepRepository persists WorkflowStep rows, the engine's durable
// crash-safe ledger (spec §4.8).
type StepRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const stepColumns = `
	id, organization_id, lead_id, campaign_id, id_in_workflow, step_index,
	step_type, status, retries, execute_after, last_tried_at, raw_response,
	last_error, created_at, updated_at
`

func scanStep(s interface{ Scan(...any) error }) (*domain.WorkflowStep, error) {
	step := &domain.WorkflowStep{}

	var rawJSON []byte

	err := s.Scan(
		&step.ID, &step.OrganizationID, &step.LeadID, &step.CampaignID,
		&step.IDInWorkflow, &step.StepIndex, &step.StepType, &step.Status,
		&step.Retries, &step.ExecuteAfter, &step.LastTriedAt, &rawJSON,
		&step.LastError, &step.CreatedAt, &step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(rawJSON) > 0 {
		if err := json.Unmarshal(rawJSON, &step.RawResponse); err != nil {
			return nil, fmt.Errorf("unmarshal raw_response: %w", err)
		}
	}

	return step, nil
}

func (r *StepRepository) Create(ctx context.Context, step *domain.WorkflowStep) error {
	now := time.Now().UTC()
	step.CreatedAt, step.UpdatedAt = now, now

	rawJSON, err := json.Marshal(step.RawResponse)
	if err != nil {
		return fmt.Errorf("marshal raw_response: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO workflow_steps (`+stepColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		step.ID, step.OrganizationID, step.LeadID, step.CampaignID,
		step.IDInWorkflow, step.StepIndex, step.StepType, step.Status,
		step.Retries, step.ExecuteAfter, step.LastTriedAt, rawJSON,
		step.LastError, step.CreatedAt, step.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}

	return nil
}

func (r *StepRepository) DuePending(ctx context.Context, now time.Time, limit int) ([]*domain.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+` FROM workflow_steps
		WHERE status = 'PENDING' AND execute_after <= $1
		ORDER BY execute_after ASC
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("query due steps: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *StepRepository) ByLeadAndKind(ctx context.Context, leadIDs []string, kind domain.StepType) ([]*domain.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+` FROM workflow_steps
		WHERE lead_id = ANY($1) AND step_type = $2
	`, pq.Array(leadIDs), kind)
	if err != nil {
		return nil, fmt.Errorf("query steps by lead and kind: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *StepRepository) LeadsWithAnyStep(ctx context.Context, leadIDs []string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT lead_id FROM workflow_steps WHERE lead_id = ANY($1)
	`, pq.Array(leadIDs))
	if err != nil {
		return nil, fmt.Errorf("query started leads: %w", err)
	}
	defer rows.Close()

	started := make(map[string]bool)

	for rows.Next() {
		var leadID string
		if err := rows.Scan(&leadID); err != nil {
			return nil, fmt.Errorf("scan lead id: %w", err)
		}

		started[leadID] = true
	}

	return started, rows.Err()
}

func (r *StepRepository) MarkComplete(ctx context.Context, id string, rawResponse map[string]any) error {
	rawJSON, err := json.Marshal(rawResponse)
	if err != nil {
		return fmt.Errorf("marshal raw_response: %w", err)
	}

	return r.update(ctx, "MarkComplete", id, `
		UPDATE workflow_steps SET status = 'COMPLETED', raw_response = $1, updated_at = NOW(), last_tried_at = NOW()
		WHERE id = $2
	`, rawJSON, id)
}

func (r *StepRepository) MarkFailed(ctx context.Context, id string, message string) error {
	rawJSON, err := json.Marshal(map[string]any{"error": message})
	if err != nil {
		return fmt.Errorf("marshal raw_response: %w", err)
	}

	return r.update(ctx, "MarkFailed", id, `
		UPDATE workflow_steps SET status = 'FAILED', last_error = $1, raw_response = $2,
			retries = retries + 1, updated_at = NOW(), last_tried_at = NOW()
		WHERE id = $3
	`, message, rawJSON, id)
}

func (r *StepRepository) Rearm(ctx context.Context, id string, executeAfter time.Time) error {
	return r.update(ctx, "Rearm", id, `
		UPDATE workflow_steps SET status = 'PENDING', execute_after = $1, updated_at = NOW()
		WHERE id = $2
	`, executeAfter, id)
}

func (r *StepRepository) FailedByCampaign(ctx context.Context, campaignID string) ([]*domain.WorkflowStep, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+stepColumns+` FROM workflow_steps WHERE campaign_id = $1 AND status = 'FAILED'
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query failed steps: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

// DeferPendingConnectionRequestsForSender bulk-defers every PENDING
// send_connection_request step belonging to any lead of any campaign
// whose sender is senderID, applying the sender-wide cooldown
// (spec §4.6's cannot_resend_yet handling).
func (r *StepRepository) DeferPendingConnectionRequestsForSender(ctx context.Context, senderID string, executeAfter time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE workflow_steps SET execute_after = $1, updated_at = NOW()
		WHERE status = 'PENDING'
		  AND step_type = 'send_connection_request'
		  AND campaign_id IN (SELECT id FROM campaigns WHERE sender_id = $2)
	`, executeAfter, senderID)
	if err != nil {
		return 0, fmt.Errorf("defer pending connection requests: %w", err)
	}

	return res.RowsAffected()
}

// MarkReplyReceived flips hasReplied=true onto leadID's open
// check_message_reply polling step, so the next tick resolves it
// without asking the provider (spec §4.4, §4.5).
func (r *StepRepository) MarkReplyReceived(ctx context.Context, leadID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE workflow_steps
		SET raw_response = jsonb_set(COALESCE(raw_response, '{}'::jsonb), '{hasReplied}', 'true', true),
		    updated_at = NOW()
		WHERE lead_id = $1 AND status = 'PENDING' AND step_type = 'check_message_reply'
	`, leadID)
	if err != nil {
		return 0, fmt.Errorf("mark reply received: %w", err)
	}

	return res.RowsAffected()
}

func (r *StepRepository) collect(rows *sql.Rows) ([]*domain.WorkflowStep, error) {
	steps := make([]*domain.WorkflowStep, 0)

	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}

		steps = append(steps, step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}

	return steps, nil
}

func (r *StepRepository) update(ctx context.Context, op, id, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}

	if n == 0 {
		return errs.NotFound("StepRepository."+op, id)
	}

	return nil
}
