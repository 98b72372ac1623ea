// internal/domain/subscription/state.go
package subscription

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tier is a tenant's entitlement level.
type Tier string

const (
	TierFree    Tier = "FREE"
	TierPremium Tier = "PREMIUM"
)

func ParseTier(raw string) (Tier, error) {
	switch t := Tier(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TierFree, TierPremium:
		return t, nil
	}
	return "", fmt.Errorf("unknown tier %q", raw)
}

// Status is the billing status flag of a subscription.
type Status string

const (
	StatusActive Status = "ACTIVE"
	// StatusCanceled keeps premium until ExpiresAt; it will not renew.
	StatusCanceled Status = "CANCELED"
	// StatusRevoked ends premium immediately, e.g. after a chargeback.
	StatusRevoked Status = "REVOKED"
)

// State is the tenant-level subscription row, written by billing and read by the quota policy.
// Corresponds to the 'subscriptions' table.
type State struct {
	TenantID  uuid.UUID
	Tier      Tier
	Status    Status
	StartedAt sql.NullTime
	ExpiresAt sql.NullTime
	// LastPaymentID is the most recent billing event applied. Every applied ID is kept by ApplyPayment.
	LastPaymentID sql.NullString
	UpdatedAt     time.Time
}

// NewFreeState is the state every tenant starts with.
func NewFreeState(tenantID uuid.UUID, now time.Time) *State {
	return &State{TenantID: tenantID, Tier: TierFree, Status: StatusActive, UpdatedAt: now}
}

// IsEntitled reports whether premium limits apply at now.
func (s *State) IsEntitled(now time.Time) bool {
	if s == nil || s.Tier != TierPremium || s.Status == StatusRevoked {
		return false
	}
	if !s.ExpiresAt.Valid {
		return true
	}
	return now.Before(s.ExpiresAt.Time)
}
