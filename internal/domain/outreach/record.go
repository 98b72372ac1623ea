// internal/domain/outreach/record.go
package outreach

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Record is one tracked opportunity (job application, sales lead, networking attempt).
// Corresponds to the 'outreach_records' table.
type Record struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CounterpartName string // cached display name, maintained by the store
	Title           string
	AnchorDate      time.Time // date-only, first contact
	Status          Status
	Tags            []string
	IsFavorite      bool
	FavoritedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
