package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/errs"
)

// CampaignRepository persists Campaign rows and their rate-limit
// counters, grounded on the teacher's WorkflowRepository query shape.
type CampaignRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const campaignColumns = `
	id, organization_id, sender_id, prospect_list_id, workflow_location,
	status, start_date, leads_per_day, requests_sent_this_day,
	requests_sent_this_week, last_daily_requests_reset,
	last_weekly_requests_reset, is_deleted, created_at, updated_at
`

func (r *CampaignRepository) scan(row *sql.Row) (*domain.Campaign, error) {
	c := &domain.Campaign{}

	err := row.Scan(
		&c.ID, &c.OrganizationID, &c.SenderID, &c.ProspectListID, &c.WorkflowLocation,
		&c.Status, &c.StartDate, &c.LeadsPerDay, &c.RequestsSentThisDay,
		&c.RequestsSentThisWeek, &c.LastDailyRequestsReset,
		&c.LastWeeklyRequestsReset, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (r *CampaignRepository) scanRows(rows *sql.Rows) (*domain.Campaign, error) {
	c := &domain.Campaign{}

	err := rows.Scan(
		&c.ID, &c.OrganizationID, &c.SenderID, &c.ProspectListID, &c.WorkflowLocation,
		&c.Status, &c.StartDate, &c.LeadsPerDay, &c.RequestsSentThisDay,
		&c.RequestsSentThisWeek, &c.LastDailyRequestsReset,
		&c.LastWeeklyRequestsReset, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	if c.LastDailyRequestsReset.IsZero() {
		c.LastDailyRequestsReset = now
	}

	if c.LastWeeklyRequestsReset.IsZero() {
		c.LastWeeklyRequestsReset = now
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (`+campaignColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		c.ID, c.OrganizationID, c.SenderID, c.ProspectListID, c.WorkflowLocation,
		c.Status, c.StartDate, c.LeadsPerDay, c.RequestsSentThisDay,
		c.RequestsSentThisWeek, c.LastDailyRequestsReset,
		c.LastWeeklyRequestsReset, c.IsDeleted, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

func (r *CampaignRepository) ByID(ctx context.Context, id string) (*domain.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1 AND is_deleted = FALSE`, id)

	c, err := r.scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("CampaignRepository.ByID", id)
		}

		return nil, fmt.Errorf("scan campaign: %w", err)
	}

	return c, nil
}

func (r *CampaignRepository) DueForStart(ctx context.Context, now time.Time) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns
		WHERE is_deleted = FALSE
		  AND status IN ('DRAFT', 'SCHEDULED')
		  AND start_date IS NOT NULL AND start_date <= $1
	`, now)
	if err != nil {
		return nil, fmt.Errorf("query due campaigns: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *CampaignRepository) InProgress(ctx context.Context) ([]*domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+` FROM campaigns WHERE is_deleted = FALSE AND status = 'IN_PROGRESS'
	`)
	if err != nil {
		return nil, fmt.Errorf("query in-progress campaigns: %w", err)
	}
	defer rows.Close()

	return r.collect(rows)
}

func (r *CampaignRepository) collect(rows *sql.Rows) ([]*domain.Campaign, error) {
	campaigns := make([]*domain.Campaign, 0)

	for rows.Next() {
		c, err := r.scanRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}

		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaigns: %w", err)
	}

	return campaigns, nil
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $1, updated_at = NOW() WHERE id = $2 AND is_deleted = FALSE
	`, status, id)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}

	return r.checkAffected(res, "UpdateStatus", id)
}

// ApplyCounterUpdate applies a rate-limit counter patch. Only fields the
// caller actually set are written (spec §4.6's atomic merge requirement).
func (r *CampaignRepository) ApplyCounterUpdate(ctx context.Context, id string, update domain.CounterUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	sets := make([]string, 0, 4)
	args := make([]any, 0, 5)
	argN := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argN))
		args = append(args, value)
		argN++
	}

	if update.RequestsSentThisDay != nil {
		add("requests_sent_this_day", *update.RequestsSentThisDay)
	}

	if update.RequestsSentThisWeek != nil {
		add("requests_sent_this_week", *update.RequestsSentThisWeek)
	}

	if update.LastDailyRequestsReset != nil {
		add("last_daily_requests_reset", *update.LastDailyRequestsReset)
	}

	if update.LastWeeklyRequestsReset != nil {
		add("last_weekly_requests_reset", *update.LastWeeklyRequestsReset)
	}

	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE campaigns SET %s WHERE id = $%d AND is_deleted = FALSE", joinSets(sets), argN)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("apply counter update: %w", err)
	}

	return r.checkAffected(res, "ApplyCounterUpdate", id)
}

func (r *CampaignRepository) checkAffected(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}

	if n == 0 {
		return errs.NotFound("CampaignRepository."+op, id)
	}

	return nil
}

func joinSets(sets []string) string {
	out := sets[0]
	for _, s := range sets[1:] {
		out += ", " + s
	}

	return out
}
