package tenant

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Tenant is an account owning outreach records, a cadence and a subscription.
type Tenant struct {
	ID             uuid.UUID
	Name           string
	TelegramChatID sql.NullInt64 // digest recipient, optional
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
