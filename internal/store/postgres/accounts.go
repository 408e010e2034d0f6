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

// AccountRepository persists ConnectedAccount rows, including the
// sender-wide connection-request cooldown (spec §4.6).
type AccountRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const accountColumns = `
	id, organization_id, provider, provider_account_id, status,
	connection_request_blocked_until, daily_usage, usage_reset_at,
	created_at, updated_at
`

func (r *AccountRepository) ByID(ctx context.Context, id string) (*domain.ConnectedAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	a := &domain.ConnectedAccount{}

	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.Provider, &a.ProviderAccountID, &a.Status,
		&a.ConnectionRequestBlockedUntil, &a.DailyUsage, &a.UsageResetAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("AccountRepository.ByID", id)
		}

		return nil, fmt.Errorf("scan account: %w", err)
	}

	return a, nil
}

func (r *AccountRepository) SetConnectionRequestBlockedUntil(ctx context.Context, id string, until time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET connection_request_blocked_until = $1, updated_at = NOW() WHERE id = $2
	`, until, id)
	if err != nil {
		return fmt.Errorf("set connection request cooldown: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}

	if n == 0 {
		return errs.NotFound("AccountRepository.SetConnectionRequestBlockedUntil", id)
	}

	return nil
}
