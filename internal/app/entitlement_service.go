// internal/app/entitlement_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/subscription"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EntitlementService decides which limits apply to a tenant and gates creates against them.
type EntitlementService struct {
	subRepo   subscription.Repository
	counter   subscription.UsageCounter
	quotas    subscription.QuotaTable
	graceDays int
	clock     clock.Clock
	logger    *logrus.Entry
}

func NewEntitlementService(
	sr subscription.Repository,
	counter subscription.UsageCounter,
	quotas subscription.QuotaTable,
	graceDays int,
	clk clock.Clock,
	logger *logrus.Entry,
) *EntitlementService {
	return &EntitlementService{
		subRepo:   sr,
		counter:   counter,
		quotas:    quotas,
		graceDays: graceDays,
		clock:     clk,
		logger:    logger,
	}
}

// state loads the subscription row; a tenant without one is on the free tier.
func (s *EntitlementService) state(ctx context.Context, tenantID uuid.UUID) (*subscription.State, error) {
	st, err := s.subRepo.GetState(ctx, tenantID)
	if err != nil {
		if errors.Is(err, subscription.ErrStateNotFound) {
			return subscription.NewFreeState(tenantID, s.clock.Now()), nil
		}
		return nil, fmt.Errorf("failed to load subscription for tenant %s: %w", tenantID, err)
	}
	return st, nil
}

// Evaluate returns the effective tier and grace state for the tenant right now.
func (s *EntitlementService) Evaluate(ctx context.Context, tenantID uuid.UUID) (subscription.Evaluation, error) {
	st, err := s.state(ctx, tenantID)
	if err != nil {
		return subscription.Evaluation{}, err
	}
	return subscription.Evaluate(st, s.clock.Now(), s.graceDays), nil
}

// CheckCreate must be called before writing a new resource of kind. It fails with a
// QuotaExceededError when the tenant's current count has reached the ceiling.
func (s *EntitlementService) CheckCreate(ctx context.Context, tenantID uuid.UUID, kind subscription.ResourceKind) error {
	ev, err := s.Evaluate(ctx, tenantID)
	if err != nil {
		return err
	}
	count, err := s.counter.CountResources(ctx, tenantID, kind)
	if err != nil {
		return fmt.Errorf("failed to count %s for tenant %s: %w", kind, tenantID, err)
	}
	if err := s.quotas.Check(ev.EffectiveTier, kind, count); err != nil {
		s.logger.WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"kind":      kind,
			"tier":      ev.EffectiveTier,
			"count":     count,
		}).Info("Create rejected by quota")
		return err
	}
	return nil
}

// Usage is the count and ceiling of one resource kind.
type Usage struct {
	Kind      subscription.ResourceKind `json:"kind"`
	Count     int                       `json:"count"`
	Ceiling   int                       `json:"ceiling,omitempty"`
	Unlimited bool                      `json:"unlimited"`
	OverQuota bool                      `json:"over_quota"`
}

// Summary is what a UI needs to render plan limits and grace warnings.
type Summary struct {
	TenantID      uuid.UUID           `json:"tenant_id"`
	StoredTier    subscription.Tier   `json:"stored_tier"`
	EffectiveTier subscription.Tier   `json:"effective_tier"`
	Status        subscription.Status `json:"status"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty"`
	InGracePeriod bool                `json:"in_grace_period"`
	GraceDaysLeft int                 `json:"grace_days_remaining,omitempty"`
	GraceEndsAt   *time.Time          `json:"grace_ends_at,omitempty"`
	Usage         []Usage             `json:"usage"`
}

// SummaryKinds is the order usage is reported in.
var SummaryKinds = []subscription.ResourceKind{
	subscription.ResourceOutreachRecords,
	subscription.ResourceContacts,
	subscription.ResourceCompanies,
}

func (s *EntitlementService) Summary(ctx context.Context, tenantID uuid.UUID) (*Summary, error) {
	st, err := s.state(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	ev := subscription.Evaluate(st, s.clock.Now(), s.graceDays)

	sum := &Summary{
		TenantID:      tenantID,
		StoredTier:    ev.StoredTier,
		EffectiveTier: ev.EffectiveTier,
		Status:        st.Status,
		InGracePeriod: ev.Grace.InGracePeriod,
		GraceDaysLeft: ev.Grace.DaysRemaining,
		Usage:         make([]Usage, 0, len(SummaryKinds)),
	}
	if st.ExpiresAt.Valid {
		exp := st.ExpiresAt.Time
		sum.ExpiresAt = &exp
	}
	if ev.Grace.InGracePeriod {
		ends := ev.Grace.EndsAt
		sum.GraceEndsAt = &ends
	}

	for _, kind := range SummaryKinds {
		count, err := s.counter.CountResources(ctx, tenantID, kind)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s for tenant %s: %w", kind, tenantID, err)
		}
		u := Usage{Kind: kind, Count: count}
		if ceiling, ok := s.quotas.Ceiling(ev.EffectiveTier, kind); ok {
			u.Ceiling = ceiling
			u.OverQuota = count > ceiling
		} else {
			u.Unlimited = true
		}
		sum.Usage = append(sum.Usage, u)
	}
	return sum, nil
}
