// internal/domain/directory/directory.go
package directory

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Company is an organisation a tenant reaches out to.
type Company struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Website   sql.NullString
	CreatedAt time.Time
}

// Contact is a person at a company. Contacts link to outreach records through a separate
// relation; a record never embeds them.
type Contact struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CompanyID uuid.NullUUID
	Name      string
	Email     sql.NullString
	CreatedAt time.Time
}
