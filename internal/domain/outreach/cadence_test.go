package outreach

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outreach_tracker/internal/apperrors"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildSchedule_Deterministic(t *testing.T) {
	anchor := date(2024, time.January, 1)
	offsets := []int{7, 14, 21}

	want := []time.Time{date(2024, 1, 8), date(2024, 1, 15), date(2024, 1, 22)}
	for i := 0; i < 3; i++ {
		assert.Equal(t, want, BuildSchedule(anchor, offsets))
	}
}

func TestBuildSchedule_DropsTimeOfDay(t *testing.T) {
	anchor := time.Date(2024, time.February, 27, 23, 30, 0, 0, time.UTC)

	got := BuildSchedule(anchor, []int{1, 2})
	assert.Equal(t, []time.Time{date(2024, 2, 28), date(2024, 2, 29)}, got)
}

func TestValidateOffsets(t *testing.T) {
	tests := []struct {
		name    string
		offsets []int
		wantErr bool
	}{
		{"default", []int{7, 14, 21}, false},
		{"single", []int{1}, false},
		{"bounds", []int{1, 90}, false},
		{"empty", nil, true},
		{"zero", []int{0, 7}, true},
		{"negative", []int{-3}, true},
		{"too large", []int{7, 91}, true},
		{"not increasing", []int{7, 7, 14}, true},
		{"decreasing", []int{14, 7}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOffsets(tt.offsets)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewSchedule(t *testing.T) {
	recordID := uuid.New()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	schedule := NewSchedule(recordID, date(2024, 1, 1), []int{7, 14, 21}, now)

	require.Len(t, schedule, 3)
	for i, f := range schedule {
		assert.Equal(t, recordID, f.RecordID)
		assert.Equal(t, i+1, f.Sequence)
		assert.Equal(t, FollowUpPending, f.Status)
		assert.Equal(t, f.OriginalDueDate, f.ScheduledDate)
		assert.NotEqual(t, uuid.Nil, f.ID)
	}
	assert.Equal(t, date(2024, 1, 22), schedule[2].OriginalDueDate)
}
