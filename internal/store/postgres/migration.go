package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const currentSchemaVersion = 1

// migrationManager applies the campaign workflow engine's schema,
// adapted from the teacher's pkg/persistence/sqlbase migration runner.
// Unlike the teacher's createMigrationsTable, this one only returns an
// error when the statement actually fails.
type migrationManager struct {
	db     *sql.DB
	logger *slog.Logger
}

func newMigrationManager(db *sql.DB, logger *slog.Logger) *migrationManager {
	return &migrationManager{db: db, logger: logger}
}

func (m *migrationManager) run(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return fmt.Errorf("read current schema version: %w", err)
	}

	m.logger.InfoContext(ctx, "current schema version", "version", current)

	if current >= currentSchemaVersion {
		return nil
	}

	for version := current + 1; version <= currentSchemaVersion; version++ {
		stmt, ok := migrations[version]
		if !ok {
			continue
		}

		if err := m.apply(ctx, version, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
	}

	return nil
}

func (m *migrationManager) createMigrationsTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`)

	return err
}

func (m *migrationManager) currentVersion(ctx context.Context) (int, error) {
	var version int

	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)

	return version, err
}

func (m *migrationManager) apply(ctx context.Context, version int, stmt string) error {
	m.logger.InfoContext(ctx, "applying migration", "version", version)

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("execute: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("record migration: %w", err)
	}

	return tx.Commit()
}

var migrations = map[int]string{
	1: `
		CREATE TABLE accounts (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL,
			provider VARCHAR(50) NOT NULL,
			provider_account_id VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status IN ('ACTIVE', 'DISCONNECTED')),
			connection_request_blocked_until TIMESTAMP WITH TIME ZONE,
			daily_usage INTEGER NOT NULL DEFAULT 0,
			usage_reset_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE TABLE campaigns (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL,
			sender_id UUID NOT NULL REFERENCES accounts(id),
			prospect_list_id VARCHAR(255) NOT NULL,
			workflow_location VARCHAR(255) NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status IN ('DRAFT', 'SCHEDULED', 'IN_PROGRESS', 'PAUSED', 'COMPLETED', 'FAILED')),
			start_date TIMESTAMP WITH TIME ZONE,
			leads_per_day INTEGER NOT NULL DEFAULT 0,
			requests_sent_this_day INTEGER NOT NULL DEFAULT 0,
			requests_sent_this_week INTEGER NOT NULL DEFAULT 0,
			last_daily_requests_reset TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			last_weekly_requests_reset TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX idx_campaigns_status ON campaigns(status);
		CREATE INDEX idx_campaigns_sender_id ON campaigns(sender_id);

		CREATE TABLE leads (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL,
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			linkedin_url VARCHAR(512) NOT NULL,
			public_identifier VARCHAR(255),
			first_name VARCHAR(255),
			last_name VARCHAR(255),
			title VARCHAR(255),
			company VARCHAR(255),
			email VARCHAR(255),
			phone VARCHAR(50),
			location VARCHAR(255),
			linkedin_id VARCHAR(255),
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX idx_leads_campaign_id ON leads(campaign_id);

		CREATE TABLE workflow_steps (
			id UUID PRIMARY KEY,
			organization_id UUID NOT NULL,
			lead_id UUID NOT NULL REFERENCES leads(id),
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			id_in_workflow VARCHAR(255) NOT NULL,
			step_index INTEGER NOT NULL DEFAULT 0,
			step_type VARCHAR(50) NOT NULL,
			status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'PROCESSING', 'COMPLETED', 'FAILED', 'SKIPPED')),
			retries INTEGER NOT NULL DEFAULT 0,
			execute_after TIMESTAMP WITH TIME ZONE NOT NULL,
			last_tried_at TIMESTAMP WITH TIME ZONE,
			raw_response JSONB,
			last_error TEXT,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		CREATE INDEX idx_workflow_steps_due ON workflow_steps(status, execute_after);
		CREATE INDEX idx_workflow_steps_lead_id ON workflow_steps(lead_id);
		CREATE INDEX idx_workflow_steps_campaign_id ON workflow_steps(campaign_id);
	`,
}
