package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/outreachflow/campaignflow/internal/domain"
	"github.com/outreachflow/campaignflow/internal/errs"
)

// LeadRepository persists Lead rows.
type LeadRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const leadColumns = `
	id, organization_id, campaign_id, linkedin_url, public_identifier,
	first_name, last_name, title, company, email, phone, location,
	linkedin_id, created_at, updated_at
`

func scanLead(s interface{ Scan(...any) error }) (*domain.Lead, error) {
	l := &domain.Lead{}

	err := s.Scan(
		&l.ID, &l.OrganizationID, &l.CampaignID, &l.LinkedInURL, &l.PublicIdentifier,
		&l.FirstName, &l.LastName, &l.Title, &l.Company, &l.Email, &l.Phone, &l.Location,
		&l.LinkedInID, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return l, nil
}

func (r *LeadRepository) Create(ctx context.Context, l *domain.Lead) error {
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leads (`+leadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		l.ID, l.OrganizationID, l.CampaignID, l.LinkedInURL, l.PublicIdentifier,
		l.FirstName, l.LastName, l.Title, l.Company, l.Email, l.Phone, l.Location,
		l.LinkedInID, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}

	return nil
}

// CreateMany inserts leads in chunks of 5, parallel within each chunk
// and sequential across chunks, mirroring the orchestrator's own
// bulk-admission fan-out (spec §4.2, §5).
func (r *LeadRepository) CreateMany(ctx context.Context, leads []*domain.Lead) error {
	const chunkSize = 5

	for start := 0; start < len(leads); start += chunkSize {
		end := min(start+chunkSize, len(leads))
		chunk := leads[start:end]

		g, gctx := errgroup.WithContext(ctx)

		for _, l := range chunk {
			l := l

			g.Go(func() error {
				return r.Create(gctx, l)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
	}

	return nil
}

func (r *LeadRepository) ByCampaign(ctx context.Context, campaignID string) ([]*domain.Lead, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer rows.Close()

	leads := make([]*domain.Lead, 0)

	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}

		leads = append(leads, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}

	return leads, nil
}

func (r *LeadRepository) ByID(ctx context.Context, id string) (*domain.Lead, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)

	l, err := scanLead(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("LeadRepository.ByID", id)
		}

		return nil, fmt.Errorf("scan lead: %w", err)
	}

	return l, nil
}

func (r *LeadRepository) Update(ctx context.Context, l *domain.Lead) error {
	l.UpdatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
		UPDATE leads SET
			first_name = $1, last_name = $2, title = $3, company = $4,
			email = $5, phone = $6, location = $7, linkedin_id = $8,
			public_identifier = $9, updated_at = $10
		WHERE id = $11
	`,
		l.FirstName, l.LastName, l.Title, l.Company, l.Email, l.Phone,
		l.Location, l.LinkedInID, l.PublicIdentifier, l.UpdatedAt, l.ID,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}

	if n == 0 {
		return errs.NotFound("LeadRepository.Update", l.ID)
	}

	return nil
}
