// Package bootstrap wires configuration, storage and services into a runnable process.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"outreach_tracker/internal/app"
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/events"
	domainTelegram "outreach_tracker/internal/domain/telegram"
	"outreach_tracker/internal/infra/config"
	"outreach_tracker/internal/infra/database"
	"outreach_tracker/internal/infra/memory"

	"github.com/sirupsen/logrus"
)

// Runtime is an opened store plus the services built on it.
type Runtime struct {
	Services *app.Services
	Clock    clock.Clock
	Migrate  func(ctx context.Context) error
	Close    func() error
}

// Options are the process-specific collaborators. Nil values are allowed.
type Options struct {
	Publisher events.Publisher
	Telegram  domainTelegram.Client
	Clock     clock.Clock
}

func (o Options) clock(cfg *config.AppConfig) clock.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return clock.NewSystem(cfg.Location)
}

// OpenSQL connects to the configured database and builds the services on it.
func OpenSQL(ctx context.Context, cfg *config.AppConfig, opts Options, logger *logrus.Entry) (*Runtime, error) {
	db, dialect, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", dialect).Info("Database connection established")

	clk := opts.clock(cfg)
	svc := app.NewServices(app.Dependencies{
		Tenants:        database.NewTenantRepository(db, dialect),
		Outreach:       database.NewOutreachRepository(db, dialect),
		Subscriptions:  database.NewSubscriptionRepository(db, dialect),
		Usage:          database.NewSubscriptionRepository(db, dialect),
		Directory:      database.NewDirectoryRepository(db, dialect),
		Quotas:         cfg.Quotas,
		GraceDays:      cfg.GracePeriodDays,
		DefaultOffsets: cfg.DefaultCadence,
		Publisher:      opts.Publisher,
		Telegram:       opts.Telegram,
		Clock:          clk,
		Logger:         logger,
	})
	return &Runtime{
		Services: svc,
		Clock:    clk,
		Migrate: func(ctx context.Context) error {
			return migrate(ctx, db, dialect, logger)
		},
		Close: db.Close,
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect database.Dialect, logger *logrus.Entry) error {
	if err := database.Migrate(ctx, db, dialect); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.WithField("driver", dialect).Info("Schema migrated")
	return nil
}

// OpenMemory builds the services on an in-process store. Nothing survives the process.
func OpenMemory(cfg *config.AppConfig, opts Options, logger *logrus.Entry) *Runtime {
	store := memory.NewStore()
	clk := opts.clock(cfg)
	svc := app.NewServices(app.Dependencies{
		Tenants:        store,
		Outreach:       store,
		Subscriptions:  store,
		Usage:          store,
		Directory:      store,
		Quotas:         cfg.Quotas,
		GraceDays:      cfg.GracePeriodDays,
		DefaultOffsets: cfg.DefaultCadence,
		Publisher:      opts.Publisher,
		Telegram:       opts.Telegram,
		Clock:          clk,
		Logger:         logger,
	})
	return &Runtime{
		Services: svc,
		Clock:    clk,
		Migrate:  func(context.Context) error { return nil },
		Close:    func() error { return nil },
	}
}
