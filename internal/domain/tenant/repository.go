package tenant

import (
	"context"

	"outreach_tracker/internal/apperrors"

	"github.com/google/uuid"
)

var (
	ErrTenantNotFound        = apperrors.NotFound("tenant not found")
	ErrDuplicateTelegramChat = apperrors.Validation("telegram chat is already linked to another tenant")
)

// Repository defines the operations for persisting and retrieving Tenant entities.
type Repository interface {
	Create(ctx context.Context, t *Tenant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*Tenant, error)
	Update(ctx context.Context, t *Tenant) error
	ListAll(ctx context.Context) ([]*Tenant, error)
	// ListWithTelegram returns tenants that have a digest chat configured.
	ListWithTelegram(ctx context.Context) ([]*Tenant, error)
}
