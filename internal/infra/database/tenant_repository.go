package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
)

type TenantRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewTenantRepository(db *sql.DB, dialect Dialect) *TenantRepository {
	return &TenantRepository{db: db, dialect: dialect}
}

var _ tenant.Repository = (*TenantRepository)(nil)

const tenantColumns = `id, name, telegram_chat_id, created_at, updated_at`

func scanTenant(row scanner) (*tenant.Tenant, error) {
	t := &tenant.Tenant{}
	if err := row.Scan(&t.ID, &t.Name, &t.TelegramChatID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	query := r.dialect.Rebind(`INSERT INTO tenants (id, name, telegram_chat_id, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, t.ID, t.Name, t.TelegramChatID, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrDuplicateTelegramChat
		}
		return fmt.Errorf("error creating tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	query := r.dialect.Rebind(`SELECT ` + tenantColumns + ` FROM tenants WHERE id = ?`)
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("error getting tenant by ID: %w", err)
	}
	return t, nil
}

func (r *TenantRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*tenant.Tenant, error) {
	query := r.dialect.Rebind(`SELECT ` + tenantColumns + ` FROM tenants WHERE telegram_chat_id = ?`)
	t, err := scanTenant(r.db.QueryRowContext(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("error getting tenant by Telegram chat: %w", err)
	}
	return t, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	query := r.dialect.Rebind(`UPDATE tenants
               SET name = ?, telegram_chat_id = ?, updated_at = ?
               WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, t.Name, t.TelegramChatID, t.UpdatedAt, t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrDuplicateTelegramChat
		}
		return fmt.Errorf("error updating tenant: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

func (r *TenantRepository) list(ctx context.Context, where string) ([]*tenant.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants ` + where + ` ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*tenant.Tenant, 0)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}

func (r *TenantRepository) ListAll(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.list(ctx, "")
}

func (r *TenantRepository) ListWithTelegram(ctx context.Context) ([]*tenant.Tenant, error) {
	return r.list(ctx, "WHERE telegram_chat_id IS NOT NULL")
}
