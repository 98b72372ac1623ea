// internal/domain/outreach/repository.go
package outreach

import (
	"context"

	"outreach_tracker/internal/apperrors"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound   = apperrors.NotFound("outreach record not found")
	ErrFollowUpNotFound = apperrors.NotFound("follow-up not found")
	ErrCadenceNotFound  = apperrors.NotFound("cadence config not found")
	// ErrFollowUpConflict is returned when a follow-up no longer has the status the caller read.
	ErrFollowUpConflict = apperrors.InvalidState("follow-up was modified concurrently")
)

// Repository defines persistence for outreach records, their follow-up schedules and the
// tenant cadence.
type Repository interface {
	// CreateRecord inserts the record and its whole schedule in one transaction.
	CreateRecord(ctx context.Context, rec *Record, schedule []*FollowUp) error
	GetRecord(ctx context.Context, tenantID, id uuid.UUID) (*Record, error)
	// UpdateRecord writes the editable fields. Status is written through SetStatus only.
	UpdateRecord(ctx context.Context, rec *Record) error
	// UpdateRecordSchedule writes the editable fields and replaces the whole schedule
	// atomically. Nothing is written when either part fails.
	UpdateRecordSchedule(ctx context.Context, rec *Record, schedule []*FollowUp) error
	// SetStatus writes next only if the stored status still equals expected.
	// It reports whether a row was changed.
	SetStatus(ctx context.Context, id uuid.UUID, expected, next Status) (bool, error)
	DeleteRecord(ctx context.Context, tenantID, id uuid.UUID) error
	ListRecords(ctx context.Context, tenantID uuid.UUID) ([]*Record, error)

	// ReplaceSchedule deletes all follow-ups of the record and inserts schedule, atomically.
	ReplaceSchedule(ctx context.Context, recordID uuid.UUID, schedule []*FollowUp) error
	ListFollowUps(ctx context.Context, recordID uuid.UUID) ([]*FollowUp, error)
	ListFollowUpsForRecords(ctx context.Context, recordIDs []uuid.UUID) (map[uuid.UUID][]*FollowUp, error)
	GetFollowUp(ctx context.Context, id uuid.UUID) (*FollowUp, error)
	// UpdateFollowUp is a compare-and-set on expected; ErrFollowUpConflict when it lost.
	UpdateFollowUp(ctx context.Context, f *FollowUp, expected FollowUpStatus) error

	// LinkContact associates a contact and refreshes the cached counterpart name when empty.
	LinkContact(ctx context.Context, recordID, contactID uuid.UUID) error
	ListRecordContacts(ctx context.Context, recordID uuid.UUID) ([]uuid.UUID, error)

	GetCadence(ctx context.Context, tenantID uuid.UUID) (*Cadence, error)
	SaveCadence(ctx context.Context, c *Cadence) error
}
