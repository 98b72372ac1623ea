package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BillingEventType names a message on the billing queue.
type BillingEventType string

const (
	BillingPaymentSucceeded BillingEventType = "payment_succeeded"
	BillingCanceled         BillingEventType = "subscription_canceled"
	BillingRevoked          BillingEventType = "subscription_revoked"
)

// BillingEvent is the payload the payment provider bridge publishes.
type BillingEvent struct {
	ID         string           `json:"id"`
	Type       BillingEventType `json:"type"`
	TenantID   uuid.UUID        `json:"tenant_id"`
	Tier       string           `json:"tier,omitempty"`
	PaidAt     time.Time        `json:"paid_at,omitempty"`
	PeriodDays int              `json:"period_days,omitempty"`
}

// BillingService is the only writer of subscription state.
type BillingService struct {
	subRepo    subscription.Repository
	tenantRepo tenant.Repository
	clock      clock.Clock
	logger     *logrus.Entry
}

func NewBillingService(sr subscription.Repository, tr tenant.Repository, clk clock.Clock, logger *logrus.Entry) *BillingService {
	return &BillingService{subRepo: sr, tenantRepo: tr, clock: clk, logger: logger}
}

func (s *BillingService) load(ctx context.Context, tenantID uuid.UUID) (*subscription.State, error) {
	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	st, err := s.subRepo.GetState(ctx, tenantID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return subscription.NewFreeState(tenantID, s.clock.Now()), nil
		}
		return nil, fmt.Errorf("failed to load subscription for tenant %s: %w", tenantID, err)
	}
	return st, nil
}

// Apply dispatches a billing event by type.
func (s *BillingService) Apply(ctx context.Context, e BillingEvent) (*subscription.State, error) {
	switch e.Type {
	case BillingPaymentSucceeded:
		return s.ApplyPaymentSucceeded(ctx, e)
	case BillingCanceled:
		return s.setStatus(ctx, e, subscription.StatusCanceled)
	case BillingRevoked:
		return s.setStatus(ctx, e, subscription.StatusRevoked)
	}
	return nil, apperrors.Validation("unknown billing event type %q", e.Type)
}

// ApplyPaymentSucceeded extends premium by PeriodDays from the later of now and the current
// expiry. An event whose ID was applied before is ignored, whatever arrived in between.
func (s *BillingService) ApplyPaymentSucceeded(ctx context.Context, e BillingEvent) (*subscription.State, error) {
	if e.PeriodDays <= 0 {
		return nil, apperrors.Validation("period_days must be positive, got %d", e.PeriodDays)
	}
	tier := subscription.TierPremium
	if e.Tier != "" {
		t, err := subscription.ParseTier(e.Tier)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindValidation, err, "invalid tier in billing event %s", e.ID)
		}
		tier = t
	}
	if tier != subscription.TierPremium {
		return nil, apperrors.Validation("payment for tier %s is not supported", tier)
	}

	st, err := s.load(ctx, e.TenantID)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{"tenant_id": e.TenantID, "payment_id": e.ID})

	now := s.clock.Now()
	base := now
	if st.IsEntitled(now) && st.ExpiresAt.Valid && st.ExpiresAt.Time.After(base) {
		base = st.ExpiresAt.Time
	}
	if !st.IsEntitled(now) {
		started := e.PaidAt
		if started.IsZero() {
			started = now
		}
		st.StartedAt = sql.NullTime{Time: started, Valid: true}
	}
	st.Tier = tier
	st.Status = subscription.StatusActive
	st.ExpiresAt = sql.NullTime{Time: base.AddDate(0, 0, e.PeriodDays), Valid: true}
	if e.ID != "" {
		st.LastPaymentID = sql.NullString{String: e.ID, Valid: true}
	}
	st.UpdatedAt = now

	if e.ID == "" {
		if err := s.subRepo.SaveState(ctx, st); err != nil {
			return nil, fmt.Errorf("failed to save subscription for tenant %s: %w", e.TenantID, err)
		}
	} else {
		applied, err := s.subRepo.ApplyPayment(ctx, st, e.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to save subscription for tenant %s: %w", e.TenantID, err)
		}
		if !applied {
			log.Info("Payment already applied, skipping")
			return s.load(ctx, e.TenantID)
		}
	}
	log.WithField("expires_at", st.ExpiresAt.Time).Info("Premium extended")
	return st, nil
}

func (s *BillingService) setStatus(ctx context.Context, e BillingEvent, status subscription.Status) (*subscription.State, error) {
	st, err := s.load(ctx, e.TenantID)
	if err != nil {
		return nil, err
	}
	if st.Status == status {
		return st, nil
	}
	st.Status = status
	st.UpdatedAt = s.clock.Now()
	if err := s.subRepo.SaveState(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save subscription for tenant %s: %w", e.TenantID, err)
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": e.TenantID, "status": status}).Info("Subscription status changed")
	return st, nil
}
