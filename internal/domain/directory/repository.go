// internal/domain/directory/repository.go
package directory

import (
	"context"

	"outreach_tracker/internal/apperrors"

	"github.com/google/uuid"
)

var (
	ErrContactNotFound = apperrors.NotFound("contact not found")
	ErrCompanyNotFound = apperrors.NotFound("company not found")
)

type Repository interface {
	CreateCompany(ctx context.Context, c *Company) error
	GetCompany(ctx context.Context, tenantID, id uuid.UUID) (*Company, error)
	ListCompanies(ctx context.Context, tenantID uuid.UUID) ([]*Company, error)

	CreateContact(ctx context.Context, c *Contact) error
	GetContact(ctx context.Context, tenantID, id uuid.UUID) (*Contact, error)
	ListContacts(ctx context.Context, tenantID uuid.UUID) ([]*Contact, error)
}
