// internal/domain/outreach/cadence.go
package outreach

import (
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"

	"github.com/google/uuid"
)

const (
	MinOffsetDays = 1
	MaxOffsetDays = 90
)

// DefaultOffsets is the cadence given to new tenants.
var DefaultOffsets = []int{7, 14, 21}

// Cadence is the tenant-level default list of follow-up day offsets.
// Corresponds to the 'cadence_configs' table.
type Cadence struct {
	TenantID  uuid.UUID
	Offsets   []int
	UpdatedAt time.Time
}

// ValidateOffsets checks that offsets are non-empty, strictly increasing and within range.
func ValidateOffsets(offsets []int) error {
	if len(offsets) == 0 {
		return apperrors.Validation("cadence must contain at least one offset")
	}
	prev := 0
	for i, d := range offsets {
		if d < MinOffsetDays || d > MaxOffsetDays {
			return apperrors.Validation("cadence offset %d is %d days, must be between %d and %d", i+1, d, MinOffsetDays, MaxOffsetDays)
		}
		if i > 0 && d <= prev {
			return apperrors.Validation("cadence offsets must be strictly increasing, got %d after %d", d, prev)
		}
		prev = d
	}
	return nil
}

// BuildSchedule returns anchor+offset for each offset, truncated to the date.
// It never looks at the wall clock.
func BuildSchedule(anchor time.Time, offsets []int) []time.Time {
	day := clock.DateOnly(anchor)
	dates := make([]time.Time, len(offsets))
	for i, d := range offsets {
		dates[i] = day.AddDate(0, 0, d)
	}
	return dates
}

// NewSchedule creates the pending follow-ups for a record. Callers persist the whole
// slice as one unit.
func NewSchedule(recordID uuid.UUID, anchor time.Time, offsets []int, now time.Time) []*FollowUp {
	dates := BuildSchedule(anchor, offsets)
	followUps := make([]*FollowUp, len(dates))
	for i, due := range dates {
		followUps[i] = &FollowUp{
			ID:              uuid.New(),
			RecordID:        recordID,
			Sequence:        i + 1,
			ScheduledDate:   due,
			OriginalDueDate: due,
			Status:          FollowUpPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	return followUps
}
