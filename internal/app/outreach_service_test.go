package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRecord(t *testing.T, h *harness, tenantID uuid.UUID, title string, anchor time.Time) *outreach.Entry {
	t.Helper()
	e, err := h.outreach.CreateRecord(context.Background(), tenantID, CreateRecordInput{
		Title:      title,
		AnchorDate: anchor,
	})
	require.NoError(t, err)
	return e
}

func scheduledDates(followUps []*outreach.FollowUp) []time.Time {
	out := make([]time.Time, len(followUps))
	for i, f := range followUps {
		out[i] = f.ScheduledDate
	}
	return out
}

func TestOutreachService_CreateRecord_GeneratesSchedule(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")

	entry, err := h.outreach.CreateRecord(ctx, tn.ID, CreateRecordInput{
		Title:           "  Backend Engineer ",
		CounterpartName: "Globex",
		AnchorDate:      time.Date(2024, 1, 1, 18, 45, 0, 0, time.UTC),
		Tags:            []string{"remote", " remote", "", "go"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Backend Engineer", entry.Record.Title)
	assert.Equal(t, day(2024, 1, 1), entry.Record.AnchorDate)
	assert.Equal(t, outreach.StatusFirstContact, entry.Record.Status)
	assert.Equal(t, []string{"remote", "go"}, entry.Record.Tags)
	assert.Equal(t, []time.Time{day(2024, 1, 8), day(2024, 1, 15), day(2024, 1, 22)}, scheduledDates(entry.FollowUps))
	for _, f := range entry.FollowUps {
		assert.Equal(t, outreach.FollowUpPending, f.Status)
		assert.Equal(t, f.ScheduledDate, f.OriginalDueDate)
	}
	require.NotNil(t, entry.Next)
	assert.Equal(t, 1, entry.Next.Sequence)

	stored, err := h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	assert.Len(t, stored.FollowUps, 3)
	assert.Equal(t, []events.Type{events.TypeOutreachCreated}, h.publisher.types())
}

func TestOutreachService_CreateRecord_UsesTenantCadence(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	_, err := h.settings.UpdateCadence(ctx, tn.ID, []int{3, 10})
	require.NoError(t, err)

	entry := createRecord(t, h, tn.ID, "Sales lead", day(2024, 1, 1))
	assert.Equal(t, []time.Time{day(2024, 1, 4), day(2024, 1, 11)}, scheduledDates(entry.FollowUps))

	custom, err := h.outreach.CreateRecord(ctx, tn.ID, CreateRecordInput{
		Title:      "Intro",
		AnchorDate: day(2024, 1, 1),
		Offsets:    []int{1},
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 2)}, scheduledDates(custom.FollowUps))
}

func TestOutreachService_CreateRecord_Validation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")

	tests := []struct {
		name string
		in   CreateRecordInput
	}{
		{"missing title", CreateRecordInput{AnchorDate: day(2024, 1, 1)}},
		{"missing anchor", CreateRecordInput{Title: "x"}},
		{"future anchor", CreateRecordInput{Title: "x", AnchorDate: day(2024, 1, 2)}},
		{"unknown status", CreateRecordInput{Title: "x", AnchorDate: day(2024, 1, 1), Status: "GHOSTED"}},
		{"bad offsets", CreateRecordInput{Title: "x", AnchorDate: day(2024, 1, 1), Offsets: []int{14, 7}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.outreach.CreateRecord(ctx, tn.ID, tt.in)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err), err.Error())
		})
	}

	_, err := h.outreach.CreateRecord(ctx, uuid.New(), CreateRecordInput{Title: "x", AnchorDate: day(2024, 1, 1)})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestOutreachService_CreateRecord_QuotaGate(t *testing.T) {
	ctx := context.Background()
	quotas := subscription.QuotaTable{
		subscription.TierFree:    {subscription.ResourceOutreachRecords: 2},
		subscription.TierPremium: {subscription.ResourceOutreachRecords: 3},
	}
	h := newHarness(t, quotas)
	tn := h.tenant(t, "Acme")

	createRecord(t, h, tn.ID, "one", day(2024, 1, 1))
	createRecord(t, h, tn.ID, "two", day(2024, 1, 1))

	_, err := h.outreach.CreateRecord(ctx, tn.ID, CreateRecordInput{Title: "three", AnchorDate: day(2024, 1, 1)})
	require.Error(t, err)
	var qe *apperrors.QuotaExceededError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, 2, qe.Ceiling)
	assert.Equal(t, 2, qe.Count)
	assert.Equal(t, string(subscription.TierFree), qe.Tier)

	n, err := h.store.CountResources(ctx, tn.ID, subscription.ResourceOutreachRecords)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "rejected create must not write")

	// Premium raises the ceiling.
	h.premium(t, tn.ID, h.clock.Now().Add(30*24*time.Hour))
	createRecord(t, h, tn.ID, "three", day(2024, 1, 1))
}

func TestOutreachService_LogAndUnlog(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	first := entry.FollowUps[0]

	h.clock.Set(time.Date(2024, 1, 10, 15, 30, 0, 0, time.UTC))

	logged, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.FollowUpSent, logged.FollowUp.Status)
	assert.Equal(t, day(2024, 1, 10), logged.FollowUp.ScheduledDate)
	assert.Equal(t, day(2024, 1, 8), logged.FollowUp.OriginalDueDate)
	assert.True(t, logged.FollowUp.CompletedAt.Valid)
	assert.Equal(t, outreach.StatusFirstContact, logged.PreviousStatus)
	assert.Equal(t, outreach.StatusReminder1, logged.Record.Status)
	assert.True(t, logged.StatusChanged)

	unlogged, err := h.outreach.UnlogFollowUp(ctx, tn.ID, entry.Record.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.FollowUpPending, unlogged.FollowUp.Status)
	assert.Equal(t, day(2024, 1, 8), unlogged.FollowUp.ScheduledDate)
	assert.False(t, unlogged.FollowUp.CompletedAt.Valid)
	assert.Equal(t, outreach.StatusFirstContact, unlogged.Record.Status)

	// Log followed by unlog leaves the schedule exactly as before.
	after, err := h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	for i, f := range after.FollowUps {
		before := entry.FollowUps[i]
		assert.Equal(t, before.Status, f.Status)
		assert.Equal(t, before.ScheduledDate, f.ScheduledDate)
		assert.Equal(t, before.OriginalDueDate, f.OriginalDueDate)
		assert.Equal(t, before.CompletedAt, f.CompletedAt)
	}
	assert.Equal(t, outreach.StatusFirstContact, after.Record.Status)

	assert.Equal(t, []events.Type{
		events.TypeOutreachCreated,
		events.TypeFollowUpLogged,
		events.TypeStatusChanged,
		events.TypeFollowUpUnlogged,
		events.TypeStatusChanged,
	}, h.publisher.types())
}

func TestOutreachService_LogFollowUp_InvalidTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	f := entry.FollowUps[0]

	_, err := h.outreach.UnlogFollowUp(ctx, tn.ID, entry.Record.ID, f.ID)
	assert.True(t, apperrors.IsInvalidState(err), "unlog of pending")

	_, err = h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, f.ID)
	require.NoError(t, err)
	_, err = h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, f.ID)
	assert.True(t, apperrors.IsInvalidState(err), "double log")

	_, err = h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, uuid.New())
	assert.True(t, apperrors.IsNotFound(err))

	other := createRecord(t, h, tn.ID, "Other", day(2024, 1, 1))
	_, err = h.outreach.LogFollowUp(ctx, tn.ID, other.Record.ID, entry.FollowUps[1].ID)
	assert.True(t, apperrors.IsNotFound(err), "follow-up of another record")

	intruder := h.tenant(t, "Intruder")
	_, err = h.outreach.LogFollowUp(ctx, intruder.ID, entry.Record.ID, entry.FollowUps[1].ID)
	assert.True(t, apperrors.IsNotFound(err), "record of another tenant")
}

func TestOutreachService_StatusChainCapsAtReminder3(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry, err := h.outreach.CreateRecord(ctx, tn.ID, CreateRecordInput{
		Title:      "Long chase",
		AnchorDate: day(2024, 1, 1),
		Offsets:    []int{1, 2, 3, 4, 5},
	})
	require.NoError(t, err)

	want := []outreach.Status{
		outreach.StatusReminder1,
		outreach.StatusReminder2,
		outreach.StatusReminder3,
		outreach.StatusReminder3,
		outreach.StatusReminder3,
	}
	for i, f := range entry.FollowUps {
		res, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, f.ID)
		require.NoError(t, err)
		assert.Equal(t, want[i], res.Record.Status, "after %d sent", i+1)
	}
}

func TestOutreachService_ManualStatusIsNeverOverridden(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))

	_, err := h.outreach.SetStatus(ctx, tn.ID, entry.Record.ID, outreach.StatusInterviewing)
	require.NoError(t, err)

	res, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusInterviewing, res.Record.Status)
	assert.False(t, res.StatusChanged)

	// Moving back into the chain resumes derivation on the next completion change.
	_, err = h.outreach.SetStatus(ctx, tn.ID, entry.Record.ID, outreach.StatusFirstContact)
	require.NoError(t, err)
	rec, err := h.outreach.RecomputeStatus(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.StatusReminder1, rec.Status)

	_, err = h.outreach.SetStatus(ctx, tn.ID, entry.Record.ID, "GHOSTED")
	assert.True(t, apperrors.IsValidation(err))
}

func TestOutreachService_SkipIsNotACompletion(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))

	res, err := h.outreach.SkipFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.FollowUpSkipped, res.FollowUp.Status)
	assert.Equal(t, outreach.StatusFirstContact, res.Record.Status)

	got, err := h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Next)
	assert.Equal(t, 2, got.Next.Sequence)

	_, err = h.outreach.UnskipFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	require.NoError(t, err)
	got, err = h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Next.Sequence)
	assert.Equal(t, day(2024, 1, 8), got.Next.ScheduledDate)
}

func TestOutreachService_UpdateRecord_AnchorChangeRegenerates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	h.clock.Set(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	_, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	require.NoError(t, err)

	title := "Staff Engineer"
	updated, err := h.outreach.UpdateRecord(ctx, tn.ID, entry.Record.ID, UpdateRecordInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", updated.Record.Title)
	assert.Equal(t, outreach.FollowUpSent, updated.FollowUps[0].Status, "edits without anchor change keep history")

	anchor := day(2024, 1, 3)
	updated, err = h.outreach.UpdateRecord(ctx, tn.ID, entry.Record.ID, UpdateRecordInput{AnchorDate: &anchor})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 10), day(2024, 1, 17), day(2024, 1, 24)}, scheduledDates(updated.FollowUps))
	for _, f := range updated.FollowUps {
		assert.Equal(t, outreach.FollowUpPending, f.Status)
	}
	assert.Equal(t, outreach.StatusFirstContact, updated.Record.Status)

	future := day(2024, 2, 1)
	_, err = h.outreach.UpdateRecord(ctx, tn.ID, entry.Record.ID, UpdateRecordInput{AnchorDate: &future})
	assert.True(t, apperrors.IsValidation(err))
}

func TestOutreachService_RegenerateSchedule_FailureKeepsOldSchedule(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	_, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	require.NoError(t, err)

	h.store.FailReplaceSchedule = errors.New("connection reset")
	_, err = h.outreach.RegenerateSchedule(ctx, tn.ID, entry.Record.ID, []int{2, 4})
	require.Error(t, err)

	got, err := h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	require.Len(t, got.FollowUps, 3)
	assert.Equal(t, outreach.FollowUpSent, got.FollowUps[0].Status)
	assert.Equal(t, outreach.StatusReminder1, got.Record.Status)

	regenerated, err := h.outreach.RegenerateSchedule(ctx, tn.ID, entry.Record.ID, []int{2, 4})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(2024, 1, 3), day(2024, 1, 5)}, scheduledDates(regenerated.FollowUps))
	assert.Equal(t, outreach.StatusFirstContact, regenerated.Record.Status)
}

func TestOutreachService_UpdateRecord_FailedAnchorMoveCanBeResent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	h.clock.Set(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	anchor := day(2024, 1, 3)
	h.store.FailReplaceSchedule = errors.New("connection reset")
	_, err := h.outreach.UpdateRecord(ctx, tn.ID, entry.Record.ID, UpdateRecordInput{AnchorDate: &anchor})
	require.Error(t, err)

	got, err := h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), got.Record.AnchorDate, "anchor is not moved without its schedule")
	assert.Equal(t, []time.Time{day(2024, 1, 8), day(2024, 1, 15), day(2024, 1, 22)}, scheduledDates(got.FollowUps))

	updated, err := h.outreach.UpdateRecord(ctx, tn.ID, entry.Record.ID, UpdateRecordInput{AnchorDate: &anchor})
	require.NoError(t, err)
	assert.Equal(t, anchor, updated.Record.AnchorDate)
	assert.Equal(t, []time.Time{day(2024, 1, 10), day(2024, 1, 17), day(2024, 1, 24)}, scheduledDates(updated.FollowUps))
	assert.Equal(t, events.TypeScheduleRegenerated, h.publisher.types()[len(h.publisher.types())-1])
}

func TestOutreachService_PublishFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	h.publisher.err = errors.New("broker down")

	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	_, err := h.outreach.LogFollowUp(ctx, tn.ID, entry.Record.ID, entry.FollowUps[0].ID)
	assert.NoError(t, err)
}

func TestOutreachService_Board(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	old := createRecord(t, h, tn.ID, "old", day(2024, 1, 1))
	createRecord(t, h, tn.ID, "recent", day(2024, 1, 1))

	h.clock.Set(time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC))
	fresh := createRecord(t, h, tn.ID, "fresh", day(2024, 1, 11))
	_, err := h.outreach.LogFollowUp(ctx, tn.ID, old.Record.ID, old.FollowUps[0].ID)
	require.NoError(t, err)

	board, err := h.outreach.Board(ctx, tn.ID, outreach.SortNextFollowUp)
	require.NoError(t, err)

	var action, upcoming []string
	for _, e := range board.ActionRequired {
		action = append(action, e.Record.Title)
	}
	for _, e := range board.Upcoming {
		upcoming = append(upcoming, e.Record.Title)
	}
	assert.Equal(t, []string{"recent"}, action)
	assert.Equal(t, []string{"old", "fresh"}, upcoming)

	newest, err := h.outreach.Board(ctx, tn.ID, outreach.SortAnchorDesc)
	require.NoError(t, err)
	assert.Equal(t, fresh.Record.ID, newest.Items[0].Record.ID)
	assert.Nil(t, newest.ActionRequired)
}

func TestOutreachService_FavoriteAndDelete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))

	rec, err := h.outreach.SetFavorite(ctx, tn.ID, entry.Record.ID, true)
	require.NoError(t, err)
	assert.True(t, rec.IsFavorite)
	assert.True(t, rec.FavoritedAt.Valid)

	rec, err = h.outreach.SetFavorite(ctx, tn.ID, entry.Record.ID, false)
	require.NoError(t, err)
	assert.False(t, rec.FavoritedAt.Valid)

	require.NoError(t, h.outreach.DeleteRecord(ctx, tn.ID, entry.Record.ID))
	_, err = h.outreach.GetRecord(ctx, tn.ID, entry.Record.ID)
	assert.True(t, apperrors.IsNotFound(err))
	_, err = h.store.GetFollowUp(ctx, entry.FollowUps[0].ID)
	assert.True(t, apperrors.IsNotFound(err), "follow-ups are deleted with their record")
}

func TestOutreachService_LinkContact(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	tn := h.tenant(t, "Acme")
	entry := createRecord(t, h, tn.ID, "Backend Engineer", day(2024, 1, 1))
	contact, err := h.directory.CreateContact(ctx, tn.ID, CreateContactInput{Name: "Jane Doe"})
	require.NoError(t, err)

	rec, err := h.outreach.LinkContact(ctx, tn.ID, entry.Record.ID, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.CounterpartName)

	ids, err := h.outreach.RecordContacts(ctx, tn.ID, entry.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{contact.ID}, ids)

	other := h.tenant(t, "Other")
	foreign, err := h.directory.CreateContact(ctx, other.ID, CreateContactInput{Name: "Mallory"})
	require.NoError(t, err)
	_, err = h.outreach.LinkContact(ctx, tn.ID, entry.Record.ID, foreign.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
