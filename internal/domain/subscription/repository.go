// internal/domain/subscription/repository.go
package subscription

import (
	"context"

	"outreach_tracker/internal/apperrors"

	"github.com/google/uuid"
)

var ErrStateNotFound = apperrors.NotFound("subscription state not found")

// Repository persists the tenant subscription singleton. Writes are last-write-wins.
type Repository interface {
	GetState(ctx context.Context, tenantID uuid.UUID) (*State, error)
	SaveState(ctx context.Context, s *State) error
	// ApplyPayment saves s and records paymentID for the tenant in one transaction. It reports
	// false and writes nothing when paymentID was applied before.
	ApplyPayment(ctx context.Context, s *State, paymentID string) (bool, error)
}
