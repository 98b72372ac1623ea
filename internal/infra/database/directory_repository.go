package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"outreach_tracker/internal/domain/directory"

	"github.com/google/uuid"
)

type DirectoryRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewDirectoryRepository(db *sql.DB, dialect Dialect) *DirectoryRepository {
	return &DirectoryRepository{db: db, dialect: dialect}
}

var _ directory.Repository = (*DirectoryRepository)(nil)

func (r *DirectoryRepository) CreateCompany(ctx context.Context, c *directory.Company) error {
	query := r.dialect.Rebind(`INSERT INTO companies (id, tenant_id, name, website, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.TenantID, c.Name, c.Website, c.CreatedAt); err != nil {
		return fmt.Errorf("error creating company: %w", err)
	}
	return nil
}

func scanCompany(row scanner) (*directory.Company, error) {
	c := &directory.Company{}
	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Website, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *DirectoryRepository) GetCompany(ctx context.Context, tenantID, id uuid.UUID) (*directory.Company, error) {
	query := r.dialect.Rebind(`SELECT id, tenant_id, name, website, created_at FROM companies WHERE id = ? AND tenant_id = ?`)
	c, err := scanCompany(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrCompanyNotFound
		}
		return nil, fmt.Errorf("error getting company: %w", err)
	}
	return c, nil
}

func (r *DirectoryRepository) ListCompanies(ctx context.Context, tenantID uuid.UUID) ([]*directory.Company, error) {
	query := r.dialect.Rebind(`SELECT id, tenant_id, name, website, created_at FROM companies
               WHERE tenant_id = ? ORDER BY name, id`)
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error listing companies: %w", err)
	}
	defer rows.Close()

	companies := make([]*directory.Company, 0)
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}

func (r *DirectoryRepository) CreateContact(ctx context.Context, c *directory.Contact) error {
	query := r.dialect.Rebind(`INSERT INTO contacts (id, tenant_id, company_id, name, email, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.TenantID, c.CompanyID, c.Name, c.Email, c.CreatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return directory.ErrCompanyNotFound
		}
		return fmt.Errorf("error creating contact: %w", err)
	}
	return nil
}

func scanContact(row scanner) (*directory.Contact, error) {
	c := &directory.Contact{}
	if err := row.Scan(&c.ID, &c.TenantID, &c.CompanyID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *DirectoryRepository) GetContact(ctx context.Context, tenantID, id uuid.UUID) (*directory.Contact, error) {
	query := r.dialect.Rebind(`SELECT id, tenant_id, company_id, name, email, created_at FROM contacts WHERE id = ? AND tenant_id = ?`)
	c, err := scanContact(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, directory.ErrContactNotFound
		}
		return nil, fmt.Errorf("error getting contact: %w", err)
	}
	return c, nil
}

func (r *DirectoryRepository) ListContacts(ctx context.Context, tenantID uuid.UUID) ([]*directory.Contact, error) {
	query := r.dialect.Rebind(`SELECT id, tenant_id, company_id, name, email, created_at FROM contacts
               WHERE tenant_id = ? ORDER BY name, id`)
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error listing contacts: %w", err)
	}
	defer rows.Close()

	contacts := make([]*directory.Contact, 0)
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}
	return contacts, nil
}
