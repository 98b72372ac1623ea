// internal/app/outreach_service.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/clock"
	"outreach_tracker/internal/domain/events"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"
)

// statusCASAttempts bounds how often a derived status write is retried after losing a race.
const statusCASAttempts = 3

// OutreachService owns the record lifecycle: schedule generation, follow-up logging and the
// automatic status chain.
type OutreachService struct {
	repo           outreach.Repository
	tenants        tenant.Repository
	entitlements   *EntitlementService
	publisher      events.Publisher
	defaultOffsets []int
	clock          clock.Clock
	logger         *logrus.Entry
}

func NewOutreachService(
	repo outreach.Repository,
	tenants tenant.Repository,
	entitlements *EntitlementService,
	publisher events.Publisher,
	defaultOffsets []int,
	clk clock.Clock,
	logger *logrus.Entry,
) *OutreachService {
	if len(defaultOffsets) == 0 {
		defaultOffsets = outreach.DefaultOffsets
	}
	return &OutreachService{
		repo:           repo,
		tenants:        tenants,
		entitlements:   entitlements,
		publisher:      publisher,
		defaultOffsets: defaultOffsets,
		clock:          clk,
		logger:         logger,
	}
}

// CreateRecordInput carries the fields a user supplies for a new record.
type CreateRecordInput struct {
	CounterpartName string
	Title           string
	AnchorDate      time.Time
	Tags            []string
	// Status defaults to FIRST_CONTACT.
	Status outreach.Status
	// Offsets overrides the tenant cadence for this record only.
	Offsets []int
}

// UpdateRecordInput holds optional edits; nil fields are left unchanged.
type UpdateRecordInput struct {
	CounterpartName *string
	Title           *string
	Tags            *[]string
	AnchorDate      *time.Time
}

// FollowUpResult is returned by the follow-up mutations.
type FollowUpResult struct {
	Record         *outreach.Record
	FollowUp       *outreach.FollowUp
	PreviousStatus outreach.Status
	StatusChanged  bool
}

func (s *OutreachService) validateAnchor(anchor time.Time) (time.Time, error) {
	if anchor.IsZero() {
		return time.Time{}, apperrors.Validation("anchor date is required")
	}
	day := clock.DateOnly(anchor)
	if day.After(s.clock.Today()) {
		return time.Time{}, apperrors.Validation("anchor date %s is in the future", day.Format(time.DateOnly))
	}
	return day, nil
}

// cadenceFor returns the tenant cadence, falling back to the configured default.
func (s *OutreachService) cadenceFor(ctx context.Context, tenantID uuid.UUID) ([]int, error) {
	c, err := s.repo.GetCadence(ctx, tenantID)
	if err != nil {
		if errors.Is(err, outreach.ErrCadenceNotFound) {
			return append([]int(nil), s.defaultOffsets...), nil
		}
		return nil, fmt.Errorf("failed to load cadence for tenant %s: %w", tenantID, err)
	}
	return c.Offsets, nil
}

// cleanText trims and NFC-normalizes user input so equal-looking strings compare equal.
func cleanText(v string) string {
	return norm.NFC.String(strings.TrimSpace(v))
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = cleanText(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CreateRecord checks the quota, then persists the record with its full pending schedule.
func (s *OutreachService) CreateRecord(ctx context.Context, tenantID uuid.UUID, in CreateRecordInput) (*outreach.Entry, error) {
	log := s.logger.WithField("tenant_id", tenantID)

	if _, err := s.tenants.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}
	title := cleanText(in.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}
	anchor, err := s.validateAnchor(in.AnchorDate)
	if err != nil {
		return nil, err
	}
	status := in.Status
	if status == "" {
		status = outreach.StatusFirstContact
	}
	if !status.Valid() {
		return nil, apperrors.Validation("unknown status %q", status)
	}

	offsets := in.Offsets
	if offsets == nil {
		if offsets, err = s.cadenceFor(ctx, tenantID); err != nil {
			return nil, err
		}
	}
	if err := outreach.ValidateOffsets(offsets); err != nil {
		return nil, err
	}

	if err := s.entitlements.CheckCreate(ctx, tenantID, subscription.ResourceOutreachRecords); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	rec := &outreach.Record{
		ID:              uuid.New(),
		TenantID:        tenantID,
		CounterpartName: cleanText(in.CounterpartName),
		Title:           title,
		AnchorDate:      anchor,
		Status:          status,
		Tags:            normalizeTags(in.Tags),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	schedule := outreach.NewSchedule(rec.ID, anchor, offsets, now)
	if err := s.repo.CreateRecord(ctx, rec, schedule); err != nil {
		log.WithError(err).Error("Failed to create outreach record")
		return nil, fmt.Errorf("failed to create outreach record: %w", err)
	}
	log.WithFields(logrus.Fields{"record_id": rec.ID, "follow_ups": len(schedule)}).Info("Outreach record created")

	s.publish(ctx, events.TypeOutreachCreated, rec, nil, map[string]string{
		"anchor_date": anchor.Format(time.DateOnly),
		"status":      string(rec.Status),
	})
	entry := outreach.NewEntry(rec, schedule)
	return &entry, nil
}

func (s *OutreachService) GetRecord(ctx context.Context, tenantID, recordID uuid.UUID) (*outreach.Entry, error) {
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	followUps, err := s.repo.ListFollowUps(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list follow-ups for record %s: %w", rec.ID, err)
	}
	entry := outreach.NewEntry(rec, followUps)
	return &entry, nil
}

// UpdateRecord applies edits. Changing the anchor date regenerates the whole schedule from the
// tenant cadence, discarding logged history. The edit and the new schedule are written
// together, so a failed edit leaves the record as it was and can simply be sent again.
func (s *OutreachService) UpdateRecord(ctx context.Context, tenantID, recordID uuid.UUID, in UpdateRecordInput) (*outreach.Entry, error) {
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := cleanText(*in.Title)
		if title == "" {
			return nil, apperrors.Validation("title is required")
		}
		rec.Title = title
	}
	if in.CounterpartName != nil {
		rec.CounterpartName = cleanText(*in.CounterpartName)
	}
	if in.Tags != nil {
		rec.Tags = normalizeTags(*in.Tags)
	}
	anchorChanged := false
	if in.AnchorDate != nil {
		anchor, err := s.validateAnchor(*in.AnchorDate)
		if err != nil {
			return nil, err
		}
		anchorChanged = !anchor.Equal(clock.DateOnly(rec.AnchorDate))
		rec.AnchorDate = anchor
	}

	rec.UpdatedAt = s.clock.Now()
	if !anchorChanged {
		if err := s.repo.UpdateRecord(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to update record %s: %w", rec.ID, err)
		}
		return s.GetRecord(ctx, tenantID, recordID)
	}

	log := s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "record_id": recordID})
	offsets, err := s.cadenceFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	schedule := outreach.NewSchedule(rec.ID, rec.AnchorDate, offsets, rec.UpdatedAt)
	if err := s.repo.UpdateRecordSchedule(ctx, rec, schedule); err != nil {
		log.WithError(err).Error("Failed to move anchor date")
		return nil, fmt.Errorf("failed to update record %s: %w", rec.ID, err)
	}
	log.WithFields(logrus.Fields{
		"anchor_date": rec.AnchorDate.Format(time.DateOnly),
		"follow_ups":  len(schedule),
	}).Info("Anchor date moved, schedule regenerated")

	if _, _, err := s.recompute(ctx, rec); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeScheduleRegenerated, rec, nil, map[string]string{
		"offsets": joinInts(offsets),
		"reason":  "anchor_changed",
	})
	return s.GetRecord(ctx, tenantID, recordID)
}

// RegenerateSchedule discards every follow-up of the record, sent ones included, and writes a
// fresh pending schedule. A nil offsets uses the tenant cadence. On failure the old schedule
// is left intact.
func (s *OutreachService) RegenerateSchedule(ctx context.Context, tenantID, recordID uuid.UUID, offsets []int) (*outreach.Entry, error) {
	log := s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "record_id": recordID})

	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if offsets == nil {
		if offsets, err = s.cadenceFor(ctx, tenantID); err != nil {
			return nil, err
		}
	}
	if err := outreach.ValidateOffsets(offsets); err != nil {
		return nil, err
	}

	schedule := outreach.NewSchedule(rec.ID, rec.AnchorDate, offsets, s.clock.Now())
	if err := s.repo.ReplaceSchedule(ctx, rec.ID, schedule); err != nil {
		log.WithError(err).Error("Failed to replace follow-up schedule")
		return nil, fmt.Errorf("failed to regenerate schedule for record %s: %w", rec.ID, err)
	}
	log.WithField("follow_ups", len(schedule)).Info("Follow-up schedule regenerated")

	if _, _, err := s.recompute(ctx, rec); err != nil {
		return nil, err
	}
	s.publish(ctx, events.TypeScheduleRegenerated, rec, nil, map[string]string{
		"offsets": joinInts(offsets),
	})
	return s.GetRecord(ctx, tenantID, recordID)
}

// SetStatus is the manual status edit. Leaving the automatic chain freezes it until the user
// moves the record back into the chain.
func (s *OutreachService) SetStatus(ctx context.Context, tenantID, recordID uuid.UUID, status outreach.Status) (*outreach.Record, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("unknown status %q", status)
	}
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.Status == status {
		return rec, nil
	}
	prev := rec.Status
	ok, err := s.repo.SetStatus(ctx, rec.ID, prev, status)
	if err != nil {
		return nil, fmt.Errorf("failed to set status of record %s: %w", rec.ID, err)
	}
	if !ok {
		return nil, apperrors.InvalidState("record %s was modified concurrently", rec.ID)
	}
	rec.Status = status
	s.publish(ctx, events.TypeStatusChanged, rec, nil, map[string]string{
		"from":   string(prev),
		"to":     string(status),
		"source": "manual",
	})
	return rec, nil
}

// SetFavorite pins or unpins a record.
func (s *OutreachService) SetFavorite(ctx context.Context, tenantID, recordID uuid.UUID, favorite bool) (*outreach.Record, error) {
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.IsFavorite == favorite {
		return rec, nil
	}
	now := s.clock.Now()
	rec.IsFavorite = favorite
	rec.FavoritedAt = sql.NullTime{}
	if favorite {
		rec.FavoritedAt = sql.NullTime{Time: now, Valid: true}
	}
	rec.UpdatedAt = now
	if err := s.repo.UpdateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to update favorite on record %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *OutreachService) DeleteRecord(ctx context.Context, tenantID, recordID uuid.UUID) error {
	if err := s.repo.DeleteRecord(ctx, tenantID, recordID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"tenant_id": tenantID, "record_id": recordID}).Info("Outreach record deleted")
	return nil
}

// loadFollowUp resolves a follow-up and checks that it belongs to the tenant's record.
func (s *OutreachService) loadFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID) (*outreach.Record, *outreach.FollowUp, error) {
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, nil, err
	}
	f, err := s.repo.GetFollowUp(ctx, followUpID)
	if err != nil {
		return nil, nil, err
	}
	if f.RecordID != rec.ID {
		return nil, nil, outreach.ErrFollowUpNotFound
	}
	return rec, f, nil
}

// FollowUpRecordID resolves the record a follow-up belongs to, scoped to the tenant.
func (s *OutreachService) FollowUpRecordID(ctx context.Context, tenantID, followUpID uuid.UUID) (uuid.UUID, error) {
	f, err := s.repo.GetFollowUp(ctx, followUpID)
	if err != nil {
		return uuid.Nil, err
	}
	if _, err := s.repo.GetRecord(ctx, tenantID, f.RecordID); err != nil {
		if errors.Is(err, outreach.ErrRecordNotFound) {
			return uuid.Nil, outreach.ErrFollowUpNotFound
		}
		return uuid.Nil, err
	}
	return f.RecordID, nil
}

type followUpMutation struct {
	expected  outreach.FollowUpStatus
	apply     func(f *outreach.FollowUp) error
	eventType events.Type
	message   string
}

func (s *OutreachService) mutateFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID, m followUpMutation) (*FollowUpResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"tenant_id":   tenantID,
		"record_id":   recordID,
		"followup_id": followUpID,
	})

	rec, f, err := s.loadFollowUp(ctx, tenantID, recordID, followUpID)
	if err != nil {
		return nil, err
	}
	if err := m.apply(f); err != nil {
		if apperrors.IsCorruptState(err) {
			log.WithError(err).Error("Follow-up row is corrupt")
		}
		return nil, err
	}
	f.UpdatedAt = s.clock.Now()
	if err := s.repo.UpdateFollowUp(ctx, f, m.expected); err != nil {
		if errors.Is(err, outreach.ErrFollowUpConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update follow-up %s: %w", f.ID, err)
	}
	log.WithField("scheduled_date", f.ScheduledDate.Format(time.DateOnly)).Info(m.message)

	fid := f.ID
	s.publish(ctx, m.eventType, rec, &fid, map[string]string{
		"sequence":       fmt.Sprint(f.Sequence),
		"scheduled_date": f.ScheduledDate.Format(time.DateOnly),
	})

	prev := rec.Status
	next, changed, err := s.recompute(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.Status = next
	return &FollowUpResult{Record: rec, FollowUp: f, PreviousStatus: prev, StatusChanged: changed}, nil
}

// LogFollowUp marks a pending follow-up as sent today and advances the automatic status.
func (s *OutreachService) LogFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID) (*FollowUpResult, error) {
	today, now := s.clock.Today(), s.clock.Now()
	return s.mutateFollowUp(ctx, tenantID, recordID, followUpID, followUpMutation{
		expected:  outreach.FollowUpPending,
		apply:     func(f *outreach.FollowUp) error { return f.MarkSent(today, now) },
		eventType: events.TypeFollowUpLogged,
		message:   "Follow-up logged",
	})
}

// UnlogFollowUp is the exact inverse of LogFollowUp: the original due date is restored and the
// automatic status steps back.
func (s *OutreachService) UnlogFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID) (*FollowUpResult, error) {
	return s.mutateFollowUp(ctx, tenantID, recordID, followUpID, followUpMutation{
		expected:  outreach.FollowUpSent,
		apply:     (*outreach.FollowUp).Revert,
		eventType: events.TypeFollowUpUnlogged,
		message:   "Follow-up unlogged",
	})
}

func (s *OutreachService) SkipFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID) (*FollowUpResult, error) {
	return s.mutateFollowUp(ctx, tenantID, recordID, followUpID, followUpMutation{
		expected:  outreach.FollowUpPending,
		apply:     (*outreach.FollowUp).Skip,
		eventType: events.TypeFollowUpSkipped,
		message:   "Follow-up skipped",
	})
}

func (s *OutreachService) UnskipFollowUp(ctx context.Context, tenantID, recordID, followUpID uuid.UUID) (*FollowUpResult, error) {
	return s.mutateFollowUp(ctx, tenantID, recordID, followUpID, followUpMutation{
		expected:  outreach.FollowUpSkipped,
		apply:     (*outreach.FollowUp).Unskip,
		eventType: events.TypeFollowUpUnskipped,
		message:   "Follow-up restored",
	})
}

// RecomputeStatus re-derives the automatic status from the stored follow-ups.
func (s *OutreachService) RecomputeStatus(ctx context.Context, tenantID, recordID uuid.UUID) (*outreach.Record, error) {
	rec, err := s.repo.GetRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	next, _, err := s.recompute(ctx, rec)
	if err != nil {
		return nil, err
	}
	rec.Status = next
	return rec, nil
}

// recompute derives the status from the sent count and writes it with a compare-and-set.
// A lost race re-reads the record and derives again, so a manual edit made in between wins.
func (s *OutreachService) recompute(ctx context.Context, rec *outreach.Record) (outreach.Status, bool, error) {
	current := rec.Status
	for attempt := 0; attempt < statusCASAttempts; attempt++ {
		followUps, err := s.repo.ListFollowUps(ctx, rec.ID)
		if err != nil {
			return current, false, fmt.Errorf("failed to list follow-ups for record %s: %w", rec.ID, err)
		}
		next, changed := outreach.DeriveStatus(current, outreach.CountSent(followUps))
		if !changed {
			return current, false, nil
		}
		ok, err := s.repo.SetStatus(ctx, rec.ID, current, next)
		if err != nil {
			return current, false, fmt.Errorf("failed to write status of record %s: %w", rec.ID, err)
		}
		if ok {
			s.publish(ctx, events.TypeStatusChanged, rec, nil, map[string]string{
				"from":   string(current),
				"to":     string(next),
				"source": "automatic",
			})
			return next, true, nil
		}

		s.logger.WithField("record_id", rec.ID).Warn("Status changed concurrently, re-deriving")
		fresh, err := s.repo.GetRecord(ctx, rec.TenantID, rec.ID)
		if err != nil {
			return current, false, err
		}
		current = fresh.Status
	}
	return current, false, apperrors.InvalidState("record %s status kept changing while being derived", rec.ID)
}

// Board returns the tenant's records arranged for display.
func (s *OutreachService) Board(ctx context.Context, tenantID uuid.UUID, mode outreach.SortMode) (outreach.Board, error) {
	records, err := s.repo.ListRecords(ctx, tenantID)
	if err != nil {
		return outreach.Board{}, fmt.Errorf("failed to list records for tenant %s: %w", tenantID, err)
	}
	ids := make([]uuid.UUID, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	byRecord, err := s.repo.ListFollowUpsForRecords(ctx, ids)
	if err != nil {
		return outreach.Board{}, fmt.Errorf("failed to list follow-ups for tenant %s: %w", tenantID, err)
	}
	entries := make([]outreach.Entry, len(records))
	for i, r := range records {
		entries[i] = outreach.NewEntry(r, byRecord[r.ID])
	}
	return outreach.BuildBoard(entries, mode, s.clock.Today()), nil
}

// LinkContact attaches a directory contact to a record of the same tenant.
func (s *OutreachService) LinkContact(ctx context.Context, tenantID, recordID, contactID uuid.UUID) (*outreach.Record, error) {
	if _, err := s.repo.GetRecord(ctx, tenantID, recordID); err != nil {
		return nil, err
	}
	if err := s.repo.LinkContact(ctx, recordID, contactID); err != nil {
		return nil, err
	}
	return s.repo.GetRecord(ctx, tenantID, recordID)
}

func (s *OutreachService) RecordContacts(ctx context.Context, tenantID, recordID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.repo.GetRecord(ctx, tenantID, recordID); err != nil {
		return nil, err
	}
	return s.repo.ListRecordContacts(ctx, recordID)
}

// publish emits an event after the write has been committed. Failures are logged only.
func (s *OutreachService) publish(ctx context.Context, t events.Type, rec *outreach.Record, followUpID *uuid.UUID, attrs map[string]string) {
	if s.publisher == nil {
		return
	}
	e := events.Event{
		ID:         uuid.New(),
		Type:       t,
		TenantID:   rec.TenantID,
		RecordID:   rec.ID,
		FollowUpID: followUpID,
		OccurredAt: s.clock.Now(),
		Attributes: attrs,
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": t,
			"record_id":  rec.ID,
		}).Warn("Failed to publish event")
	}
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, ",")
}
