package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outreach_tracker/internal/domain/subscription"

	"github.com/google/uuid"
)

type SubscriptionRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSubscriptionRepository(db *sql.DB, dialect Dialect) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, dialect: dialect}
}

var (
	_ subscription.Repository   = (*SubscriptionRepository)(nil)
	_ subscription.UsageCounter = (*SubscriptionRepository)(nil)
)

// resourceTables maps each counted kind to the tenant-scoped table holding it.
var resourceTables = map[subscription.ResourceKind]string{
	subscription.ResourceOutreachRecords: "outreach_records",
	subscription.ResourceContacts:        "contacts",
	subscription.ResourceCompanies:       "companies",
}

func (r *SubscriptionRepository) GetState(ctx context.Context, tenantID uuid.UUID) (*subscription.State, error) {
	query := r.dialect.Rebind(`SELECT tenant_id, tier, status, started_at, expires_at, last_payment_id, updated_at
               FROM subscriptions WHERE tenant_id = ?`)
	s := &subscription.State{}
	err := r.db.QueryRowContext(ctx, query, tenantID).
		Scan(&s.TenantID, &s.Tier, &s.Status, &s.StartedAt, &s.ExpiresAt, &s.LastPaymentID, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrStateNotFound
		}
		return nil, fmt.Errorf("error getting subscription state: %w", err)
	}
	return s, nil
}

func (r *SubscriptionRepository) SaveState(ctx context.Context, s *subscription.State) error {
	return r.saveState(ctx, r.db, s)
}

func (r *SubscriptionRepository) saveState(ctx context.Context, q execer, s *subscription.State) error {
	query := r.dialect.Rebind(`INSERT INTO subscriptions (tenant_id, tier, status, started_at, expires_at, last_payment_id, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)
               ON CONFLICT (tenant_id) DO UPDATE SET
                   tier = excluded.tier,
                   status = excluded.status,
                   started_at = excluded.started_at,
                   expires_at = excluded.expires_at,
                   last_payment_id = excluded.last_payment_id,
                   updated_at = excluded.updated_at`)
	_, err := q.ExecContext(ctx, query, s.TenantID, s.Tier, s.Status, s.StartedAt, s.ExpiresAt, s.LastPaymentID, s.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("subscription for unknown tenant %s: %w", s.TenantID, err)
		}
		return fmt.Errorf("error saving subscription state: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) ApplyPayment(ctx context.Context, s *subscription.State, paymentID string) (bool, error) {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for payment %s: %w", paymentID, err)
	}
	defer txn.Rollback()

	query := r.dialect.Rebind(`INSERT INTO applied_payments (tenant_id, payment_id, applied_at)
               VALUES (?, ?, ?)
               ON CONFLICT (tenant_id, payment_id) DO NOTHING`)
	res, err := txn.ExecContext(ctx, query, s.TenantID, paymentID, s.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("error recording payment %s: %w", paymentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error recording payment %s: %w", paymentID, err)
	}
	if n == 0 {
		return false, nil
	}
	if err := r.saveState(ctx, txn, s); err != nil {
		return false, err
	}
	if err := txn.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment %s: %w", paymentID, err)
	}
	return true, nil
}

// CountResources returns 0 for kinds that have no backing table.
func (r *SubscriptionRepository) CountResources(ctx context.Context, tenantID uuid.UUID, kind subscription.ResourceKind) (int, error) {
	table, ok := resourceTables[kind]
	if !ok {
		return 0, nil
	}
	var n int
	query := r.dialect.Rebind(`SELECT COUNT(*) FROM ` + table + ` WHERE tenant_id = ?`)
	if err := r.db.QueryRowContext(ctx, query, tenantID).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting %s: %w", table, err)
	}
	return n, nil
}
