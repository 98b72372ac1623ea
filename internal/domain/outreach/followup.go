// internal/domain/outreach/followup.go
package outreach

import (
	"database/sql"
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"

	"github.com/google/uuid"
)

// FollowUpStatus is the completion state of a single follow-up.
type FollowUpStatus string

const (
	FollowUpPending FollowUpStatus = "PENDING"
	FollowUpSent    FollowUpStatus = "SENT"
	FollowUpSkipped FollowUpStatus = "SKIPPED"
)

func (s FollowUpStatus) Valid() bool {
	return s == FollowUpPending || s == FollowUpSent || s == FollowUpSkipped
}

// FollowUp is one scheduled or completed touch-point of a Record.
// Corresponds to the 'follow_ups' table; rows are deleted with their record.
type FollowUp struct {
	ID       uuid.UUID
	RecordID uuid.UUID
	Sequence int // 1-based creation order within the schedule
	// ScheduledDate equals OriginalDueDate while pending and the completion date once sent.
	ScheduledDate time.Time
	// OriginalDueDate is written once at creation. A zero value means the row is corrupt.
	OriginalDueDate time.Time
	Status          FollowUpStatus
	Subject         sql.NullString
	Body            sql.NullString
	CompletedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MarkSent records completion on today's date.
func (f *FollowUp) MarkSent(today, now time.Time) error {
	if f.Status != FollowUpPending {
		return apperrors.InvalidState("follow-up %s is %s, expected %s", f.ID, f.Status, FollowUpPending)
	}
	f.Status = FollowUpSent
	f.ScheduledDate = clock.DateOnly(today)
	f.CompletedAt = sql.NullTime{Time: now, Valid: true}
	return nil
}

// Revert undoes MarkSent by restoring the original due date exactly.
func (f *FollowUp) Revert() error {
	if f.Status != FollowUpSent {
		return apperrors.InvalidState("follow-up %s is %s, expected %s", f.ID, f.Status, FollowUpSent)
	}
	if f.OriginalDueDate.IsZero() {
		return apperrors.CorruptState("follow-up %s has no original due date", f.ID)
	}
	f.Status = FollowUpPending
	f.ScheduledDate = clock.DateOnly(f.OriginalDueDate)
	f.CompletedAt = sql.NullTime{}
	return nil
}

func (f *FollowUp) Skip() error {
	if f.Status != FollowUpPending {
		return apperrors.InvalidState("follow-up %s is %s, expected %s", f.ID, f.Status, FollowUpPending)
	}
	f.Status = FollowUpSkipped
	return nil
}

func (f *FollowUp) Unskip() error {
	if f.Status != FollowUpSkipped {
		return apperrors.InvalidState("follow-up %s is %s, expected %s", f.ID, f.Status, FollowUpSkipped)
	}
	if f.OriginalDueDate.IsZero() {
		return apperrors.CorruptState("follow-up %s has no original due date", f.ID)
	}
	f.Status = FollowUpPending
	f.ScheduledDate = clock.DateOnly(f.OriginalDueDate)
	return nil
}
