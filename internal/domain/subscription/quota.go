// internal/domain/subscription/quota.go
package subscription

import (
	"context"
	"fmt"
	"strings"

	"outreach_tracker/internal/apperrors"

	"github.com/google/uuid"
)

// ResourceKind names a quota-bound resource. The set is open; tables may add kinds.
type ResourceKind string

const (
	ResourceOutreachRecords ResourceKind = "OUTREACH_RECORDS"
	ResourceContacts        ResourceKind = "CONTACTS"
	ResourceCompanies       ResourceKind = "COMPANIES"
)

func ParseResourceKind(raw string) ResourceKind {
	return ResourceKind(strings.ToUpper(strings.TrimSpace(raw)))
}

// QuotaTable maps tier to per-kind ceilings. A kind missing for a tier is unlimited.
type QuotaTable map[Tier]map[ResourceKind]int

// DefaultQuotaTable is used when no quota file is configured.
func DefaultQuotaTable() QuotaTable {
	return QuotaTable{
		TierFree: {
			ResourceOutreachRecords: 25,
			ResourceContacts:        50,
			ResourceCompanies:       25,
		},
		TierPremium: {
			ResourceOutreachRecords: 1000,
			ResourceContacts:        2500,
			ResourceCompanies:       1000,
		},
	}
}

// Ceiling returns the limit for kind on tier; ok is false when the kind is unlimited.
func (q QuotaTable) Ceiling(tier Tier, kind ResourceKind) (int, bool) {
	limits, found := q[tier]
	if !found {
		return 0, false
	}
	c, ok := limits[kind]
	return c, ok
}

func (q QuotaTable) Validate() error {
	if _, ok := q[TierFree]; !ok {
		return fmt.Errorf("quota table has no %s tier", TierFree)
	}
	for tier, limits := range q {
		if _, err := ParseTier(string(tier)); err != nil {
			return err
		}
		for kind, c := range limits {
			if c < 0 {
				return fmt.Errorf("quota for %s/%s is negative: %d", tier, kind, c)
			}
		}
	}
	return nil
}

// Check rejects a create when count has already reached the ceiling.
func (q QuotaTable) Check(tier Tier, kind ResourceKind, count int) error {
	ceiling, ok := q.Ceiling(tier, kind)
	if !ok || count < ceiling {
		return nil
	}
	return &apperrors.QuotaExceededError{
		Resource: string(kind),
		Tier:     string(tier),
		Ceiling:  ceiling,
		Count:    count,
	}
}

// UsageCounter counts a tenant's existing resources of one kind.
type UsageCounter interface {
	CountResources(ctx context.Context, tenantID uuid.UUID, kind ResourceKind) (int, error)
}
