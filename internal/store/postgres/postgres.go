// Package postgres implements the campaign workflow engine's store
// interfaces over database/sql and github.com/lib/pq, adapted from the
// teacher's pkg/persistence/postgresql repositories.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"github.com/outreachflow/campaignflow/internal/store"
)

// Open connects to databaseURL and verifies the connection is live.
func Open(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate applies the schema to db, creating it if absent.
func Migrate(ctx context.Context, db *sql.DB) error {
	manager := newMigrationManager(db, slog.With("module", "postgres.migration"))

	return manager.run(ctx)
}

// Stores bundles the four concrete repositories over a single
// connection pool, implementing store.CampaignStore, store.LeadStore,
// store.AccountStore, and store.StepStore respectively.
type Stores struct {
	Campaigns store.CampaignStore
	Leads     store.LeadStore
	Accounts  store.AccountStore
	Steps     store.StepStore
}

// NewStores builds the Stores bundle over db.
func NewStores(db *sql.DB) *Stores {
	return &Stores{
		Campaigns: &CampaignRepository{db: db, logger: slog.With("module", "postgres.campaigns")},
		Leads:     &LeadRepository{db: db, logger: slog.With("module", "postgres.leads")},
		Accounts:  &AccountRepository{db: db, logger: slog.With("module", "postgres.accounts")},
		Steps:     &StepRepository{db: db, logger: slog.With("module", "postgres.steps")},
	}
}
