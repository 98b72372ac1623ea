package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DirectoryService manages companies and contacts, both quota-bound.
type DirectoryService struct {
	repo         directory.Repository
	tenants      tenant.Repository
	entitlements *EntitlementService
	clock        clock.Clock
	logger       *logrus.Entry
}

func NewDirectoryService(
	repo directory.Repository,
	tenants tenant.Repository,
	entitlements *EntitlementService,
	clk clock.Clock,
	logger *logrus.Entry,
) *DirectoryService {
	return &DirectoryService{repo: repo, tenants: tenants, entitlements: entitlements, clock: clk, logger: logger}
}

func nullString(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}

func (s *DirectoryService) CreateCompany(ctx context.Context, tenantID uuid.UUID, name, website string) (*directory.Company, error) {
	name = cleanText(name)
	if name == "" {
		return nil, apperrors.Validation("company name is required")
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	if err := s.entitlements.CheckCreate(ctx, tenantID, subscription.ResourceCompanies); err != nil {
		return nil, err
	}
	c := &directory.Company{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Website:   nullString(website),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateCompany(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "company_id": c.ID}).Info("Company created")
	return c, nil
}

func (s *DirectoryService) ListCompanies(ctx context.Context, tenantID uuid.UUID) ([]*directory.Company, error) {
	return s.repo.ListCompanies(ctx, tenantID)
}

// CreateContactInput describes a new contact. CompanyID is optional.
type CreateContactInput struct {
	Name      string
	Email     string
	CompanyID *uuid.UUID
}

func (s *DirectoryService) CreateContact(ctx context.Context, tenantID uuid.UUID, in CreateContactInput) (*directory.Contact, error) {
	name := cleanText(in.Name)
	if name == "" {
		return nil, apperrors.Validation("contact name is required")
	}
	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	var companyID uuid.NullUUID
	if in.CompanyID != nil {
		if _, err := s.repo.GetCompany(ctx, tenantID, *in.CompanyID); err != nil {
			return nil, err
		}
		companyID = uuid.NullUUID{UUID: *in.CompanyID, Valid: true}
	}
	if err := s.entitlements.CheckCreate(ctx, tenantID, subscription.ResourceContacts); err != nil {
		return nil, err
	}
	c := &directory.Contact{
		ID:        uuid.New(),
		TenantID:  tenantID,
		CompanyID: companyID,
		Name:      name,
		Email:     nullString(in.Email),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "contact_id": c.ID}).Info("Contact created")
	return c, nil
}

func (s *DirectoryService) ListContacts(ctx context.Context, tenantID uuid.UUID) ([]*directory.Contact, error) {
	return s.repo.ListContacts(ctx, tenantID)
}
