package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrTelegramAlreadyLinked = apperrors.InvalidState("telegram chat is already linked to this tenant")

// SettingsService manages tenants and their per-tenant configuration.
type SettingsService struct {
	tenantRepo     tenant.Repository
	outreachRepo   outreach.Repository
	subRepo        subscription.Repository
	defaultOffsets []int
	clock          clock.Clock
	logger         *logrus.Entry
}

func NewSettingsService(
	tr tenant.Repository,
	or outreach.Repository,
	sr subscription.Repository,
	defaultOffsets []int,
	clk clock.Clock,
	logger *logrus.Entry,
) *SettingsService {
	if len(defaultOffsets) == 0 {
		defaultOffsets = outreach.DefaultOffsets
	}
	return &SettingsService{
		tenantRepo:     tr,
		outreachRepo:   or,
		subRepo:        sr,
		defaultOffsets: defaultOffsets,
		clock:          clk,
		logger:         logger,
	}
}

// CreateTenant registers a tenant with the default cadence and a free subscription.
func (s *SettingsService) CreateTenant(ctx context.Context, name string, telegramChatID *int64) (*tenant.Tenant, error) {
	name = cleanText(name)
	if name == "" {
		return nil, apperrors.Validation("tenant name is required")
	}

	now := s.clock.Now()
	t := &tenant.Tenant{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if telegramChatID != nil {
		t.TelegramChatID = sql.NullInt64{Int64: *telegramChatID, Valid: true}
	}
	if err := s.tenantRepo.Create(ctx, t); err != nil {
		if errors.Is(err, tenant.ErrDuplicateTelegramChat) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	cadence := &outreach.Cadence{TenantID: t.ID, Offsets: append([]int(nil), s.defaultOffsets...), UpdatedAt: now}
	if err := s.outreachRepo.SaveCadence(ctx, cadence); err != nil {
		return nil, fmt.Errorf("failed to save default cadence for tenant %s: %w", t.ID, err)
	}
	if err := s.subRepo.SaveState(ctx, subscription.NewFreeState(t.ID, now)); err != nil {
		return nil, fmt.Errorf("failed to save subscription for tenant %s: %w", t.ID, err)
	}

	s.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "name": t.Name}).Info("Tenant created")
	return t, nil
}

func (s *SettingsService) GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, error) {
	return s.tenantRepo.GetByID(ctx, tenantID)
}

func (s *SettingsService) ListTenants(ctx context.Context) ([]*tenant.Tenant, error) {
	return s.tenantRepo.ListAll(ctx)
}

// TenantForChat resolves the tenant linked to a Telegram chat.
func (s *SettingsService) TenantForChat(ctx context.Context, chatID int64) (*tenant.Tenant, error) {
	return s.tenantRepo.GetByTelegramChatID(ctx, chatID)
}

// LinkTelegram sets the chat that receives the tenant's daily digest.
func (s *SettingsService) LinkTelegram(ctx context.Context, tenantID uuid.UUID, chatID int64) (*tenant.Tenant, error) {
	t, err := s.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t.TelegramChatID.Valid && t.TelegramChatID.Int64 == chatID {
		return t, ErrTelegramAlreadyLinked
	}
	t.TelegramChatID = sql.NullInt64{Int64: chatID, Valid: true}
	t.UpdatedAt = s.clock.Now()
	if err := s.tenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": t.ID, "chat_id": chatID}).Info("Telegram chat linked")
	return t, nil
}

// Cadence returns the tenant cadence, or the default when none was saved.
func (s *SettingsService) Cadence(ctx context.Context, tenantID uuid.UUID) (*outreach.Cadence, error) {
	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	c, err := s.outreachRepo.GetCadence(ctx, tenantID)
	if err != nil {
		if errors.Is(err, outreach.ErrCadenceNotFound) {
			return &outreach.Cadence{TenantID: tenantID, Offsets: append([]int(nil), s.defaultOffsets...)}, nil
		}
		return nil, fmt.Errorf("failed to load cadence for tenant %s: %w", tenantID, err)
	}
	return c, nil
}

// UpdateCadence replaces the tenant default. Existing schedules are not touched; only records
// created or regenerated afterwards use the new offsets.
func (s *SettingsService) UpdateCadence(ctx context.Context, tenantID uuid.UUID, offsets []int) (*outreach.Cadence, error) {
	if err := outreach.ValidateOffsets(offsets); err != nil {
		return nil, err
	}
	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	c := &outreach.Cadence{TenantID: tenantID, Offsets: append([]int(nil), offsets...), UpdatedAt: s.clock.Now()}
	if err := s.outreachRepo.SaveCadence(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save cadence for tenant %s: %w", tenantID, err)
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "offsets": joinInts(offsets)}).Info("Cadence updated")
	return c, nil
}
