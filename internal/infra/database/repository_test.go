package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"outreach_tracker/internal/apperrors"
	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/outreach"
	"outreach_tracker/internal/domain/subscription"
	"outreach_tracker/internal/domain/tenant"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) (*sql.DB, Dialect) {
	t.Helper()
	db, dialect, err := Open("sqlite3", filepath.Join(t.TempDir(), "outreach.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db, dialect))
	return db, dialect
}

func createTestTenant(t *testing.T, repo *TenantRepository, chatID *int64) *tenant.Tenant {
	t.Helper()
	tn := &tenant.Tenant{ID: uuid.New(), Name: "Acme", CreatedAt: testNow, UpdatedAt: testNow}
	if chatID != nil {
		tn.TelegramChatID = sql.NullInt64{Int64: *chatID, Valid: true}
	}
	require.NoError(t, repo.Create(context.Background(), tn))
	return tn
}

func TestDialect_Rebind(t *testing.T) {
	q := `SELECT * FROM t WHERE a = ? AND b IN (?, ?)`
	assert.Equal(t, `SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)`, DialectPostgres.Rebind(q))
	assert.Equal(t, q, DialectSQLite.Rebind(q))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)

	d, err = ParseDialect("sqlite")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)

	_, err = ParseDialect("mysql")
	assert.Error(t, err)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db, dialect := openTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, dialect))
}

func TestTenantRepository(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	repo := NewTenantRepository(db, dialect)

	chat := int64(42)
	linked := createTestTenant(t, repo, &chat)
	createTestTenant(t, repo, nil)

	got, err := repo.GetByTelegramChatID(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, linked.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(testNow))

	dup := &tenant.Tenant{ID: uuid.New(), Name: "Dup", TelegramChatID: sql.NullInt64{Int64: chat, Valid: true}, CreatedAt: testNow, UpdatedAt: testNow}
	assert.ErrorIs(t, repo.Create(ctx, dup), tenant.ErrDuplicateTelegramChat)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	withChat, err := repo.ListWithTelegram(ctx)
	require.NoError(t, err)
	require.Len(t, withChat, 1)
	assert.Equal(t, linked.ID, withChat[0].ID)

	assert.ErrorIs(t, repo.Update(ctx, &tenant.Tenant{ID: uuid.New(), Name: "Ghost"}), tenant.ErrTenantNotFound)
}

func TestOutreachRepository_RecordLifecycle(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewOutreachRepository(db, dialect)

	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec := &outreach.Record{
		ID: uuid.New(), TenantID: tn.ID, Title: "Backend Engineer", AnchorDate: anchor,
		Status: outreach.StatusFirstContact, Tags: []string{"remote", "go"}, CreatedAt: testNow, UpdatedAt: testNow,
	}
	schedule := outreach.NewSchedule(rec.ID, anchor, []int{3, 7, 14}, testNow)
	require.NoError(t, repo.CreateRecord(ctx, rec, schedule))

	got, err := repo.GetRecord(ctx, tn.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"remote", "go"}, got.Tags)
	assert.True(t, got.AnchorDate.Equal(anchor))
	assert.Equal(t, outreach.StatusFirstContact, got.Status)

	_, err = repo.GetRecord(ctx, uuid.New(), rec.ID)
	assert.ErrorIs(t, err, outreach.ErrRecordNotFound, "records are tenant scoped")

	followUps, err := repo.ListFollowUps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, followUps, 3)
	assert.Equal(t, 1, followUps[0].Sequence)
	assert.True(t, followUps[1].ScheduledDate.Equal(time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)))

	changed, err := repo.SetStatus(ctx, rec.ID, outreach.StatusFirstContact, outreach.StatusReminder1)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetStatus(ctx, rec.ID, outreach.StatusFirstContact, outreach.StatusReminder2)
	require.NoError(t, err)
	assert.False(t, changed, "stale expected status")

	_, err = repo.SetStatus(ctx, uuid.New(), outreach.StatusFirstContact, outreach.StatusReminder1)
	assert.ErrorIs(t, err, outreach.ErrRecordNotFound)

	got.Title = "Staff Engineer"
	got.Status = outreach.StatusClosed
	require.NoError(t, repo.UpdateRecord(ctx, got))
	got, err = repo.GetRecord(ctx, tn.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Staff Engineer", got.Title)
	assert.Equal(t, outreach.StatusReminder1, got.Status, "UpdateRecord never writes status")

	require.NoError(t, repo.DeleteRecord(ctx, tn.ID, rec.ID))
	assert.ErrorIs(t, repo.DeleteRecord(ctx, tn.ID, rec.ID), outreach.ErrRecordNotFound)
	followUps, err = repo.ListFollowUps(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, followUps)
}

func TestOutreachRepository_UpdateRecordScheduleIsAtomic(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewOutreachRepository(db, dialect)

	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec := &outreach.Record{
		ID: uuid.New(), TenantID: tn.ID, Title: "Backend Engineer", AnchorDate: anchor,
		Status: outreach.StatusFirstContact, CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, repo.CreateRecord(ctx, rec, outreach.NewSchedule(rec.ID, anchor, []int{7, 14, 21}, testNow)))

	moved := *rec
	moved.AnchorDate = time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	broken := outreach.NewSchedule(rec.ID, moved.AnchorDate, []int{7, 14}, testNow)
	broken[1].ID = broken[0].ID
	require.Error(t, repo.UpdateRecordSchedule(ctx, &moved, broken))

	got, err := repo.GetRecord(ctx, tn.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.AnchorDate.Equal(anchor), "record edit rolled back with the schedule")
	followUps, err := repo.ListFollowUps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, followUps, 3)
	assert.True(t, followUps[0].ScheduledDate.Equal(time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, repo.UpdateRecordSchedule(ctx, &moved, outreach.NewSchedule(rec.ID, moved.AnchorDate, []int{7, 14}, testNow)))
	got, err = repo.GetRecord(ctx, tn.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, got.AnchorDate.Equal(moved.AnchorDate))
	followUps, err = repo.ListFollowUps(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, followUps, 2)
	assert.True(t, followUps[0].ScheduledDate.Equal(time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)))

	other := moved
	other.TenantID = uuid.New()
	assert.ErrorIs(t, repo.UpdateRecordSchedule(ctx, &other, nil), outreach.ErrRecordNotFound)
}

func TestOutreachRepository_FollowUpCompareAndSet(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewOutreachRepository(db, dialect)

	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec := &outreach.Record{ID: uuid.New(), TenantID: tn.ID, Title: "Designer", AnchorDate: anchor,
		Status: outreach.StatusFirstContact, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, repo.CreateRecord(ctx, rec, outreach.NewSchedule(rec.ID, anchor, []int{3, 7}, testNow)))

	followUps, err := repo.ListFollowUps(ctx, rec.ID)
	require.NoError(t, err)
	first := followUps[0]

	today := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, first.MarkSent(today, testNow))
	require.NoError(t, repo.UpdateFollowUp(ctx, first, outreach.FollowUpPending))

	stored, err := repo.GetFollowUp(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, outreach.FollowUpSent, stored.Status)
	assert.True(t, stored.ScheduledDate.Equal(today))
	assert.True(t, stored.OriginalDueDate.Equal(time.Date(2024, time.January, 4, 0, 0, 0, 0, time.UTC)))
	assert.True(t, stored.CompletedAt.Valid)

	err = repo.UpdateFollowUp(ctx, first, outreach.FollowUpPending)
	assert.ErrorIs(t, err, outreach.ErrFollowUpConflict)
	assert.True(t, apperrors.IsInvalidState(err))

	ghost := &outreach.FollowUp{ID: uuid.New(), Status: outreach.FollowUpSent}
	assert.ErrorIs(t, repo.UpdateFollowUp(ctx, ghost, outreach.FollowUpPending), outreach.ErrFollowUpNotFound)

	require.NoError(t, repo.ReplaceSchedule(ctx, rec.ID, outreach.NewSchedule(rec.ID, anchor, []int{5}, testNow)))
	byRecord, err := repo.ListFollowUpsForRecords(ctx, []uuid.UUID{rec.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, byRecord[rec.ID], 1)
	assert.Equal(t, outreach.FollowUpPending, byRecord[rec.ID][0].Status)

	assert.ErrorIs(t, repo.ReplaceSchedule(ctx, uuid.New(), nil), outreach.ErrRecordNotFound)

	empty, err := repo.ListFollowUpsForRecords(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOutreachRepository_ContactsAndCadence(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewOutreachRepository(db, dialect)
	dir := NewDirectoryRepository(db, dialect)

	anchor := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	rec := &outreach.Record{ID: uuid.New(), TenantID: tn.ID, Title: "Designer", AnchorDate: anchor,
		Status: outreach.StatusFirstContact, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, repo.CreateRecord(ctx, rec, nil))

	contact := &directory.Contact{ID: uuid.New(), TenantID: tn.ID, Name: "Jane Doe", CreatedAt: testNow}
	require.NoError(t, dir.CreateContact(ctx, contact))

	require.NoError(t, repo.LinkContact(ctx, rec.ID, contact.ID))
	require.NoError(t, repo.LinkContact(ctx, rec.ID, contact.ID), "linking twice is a no-op")
	assert.ErrorIs(t, repo.LinkContact(ctx, rec.ID, uuid.New()), directory.ErrContactNotFound)

	ids, err := repo.ListRecordContacts(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{contact.ID}, ids)

	got, err := repo.GetRecord(ctx, tn.ID, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.CounterpartName)

	_, err = repo.GetCadence(ctx, tn.ID)
	assert.ErrorIs(t, err, outreach.ErrCadenceNotFound)

	require.NoError(t, repo.SaveCadence(ctx, &outreach.Cadence{TenantID: tn.ID, Offsets: []int{3, 7}, UpdatedAt: testNow}))
	require.NoError(t, repo.SaveCadence(ctx, &outreach.Cadence{TenantID: tn.ID, Offsets: []int{2, 5, 9}, UpdatedAt: testNow}))
	cadence, err := repo.GetCadence(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 9}, cadence.Offsets)
}

func TestSubscriptionRepository(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewSubscriptionRepository(db, dialect)
	dir := NewDirectoryRepository(db, dialect)

	_, err := repo.GetState(ctx, tn.ID)
	assert.ErrorIs(t, err, subscription.ErrStateNotFound)

	st := subscription.NewFreeState(tn.ID, testNow)
	require.NoError(t, repo.SaveState(ctx, st))

	expires := testNow.AddDate(0, 1, 0)
	st.Tier = subscription.TierPremium
	st.ExpiresAt = sql.NullTime{Time: expires, Valid: true}
	st.LastPaymentID = sql.NullString{String: "pay_1", Valid: true}
	require.NoError(t, repo.SaveState(ctx, st))

	got, err := repo.GetState(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, subscription.TierPremium, got.Tier)
	assert.True(t, got.ExpiresAt.Time.Equal(expires))
	assert.Equal(t, "pay_1", got.LastPaymentID.String)
	assert.False(t, got.StartedAt.Valid)

	renewed := *got
	renewed.ExpiresAt = sql.NullTime{Time: expires.AddDate(0, 1, 0), Valid: true}
	applied, err := repo.ApplyPayment(ctx, &renewed, "pay_2")
	require.NoError(t, err)
	assert.True(t, applied)

	replay := renewed
	replay.ExpiresAt = sql.NullTime{Time: expires.AddDate(0, 6, 0), Valid: true}
	applied, err = repo.ApplyPayment(ctx, &replay, "pay_2")
	require.NoError(t, err)
	assert.False(t, applied, "a payment id is applied once per tenant")

	got, err = repo.GetState(ctx, tn.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.Time.Equal(expires.AddDate(0, 1, 0)))

	for i := 0; i < 2; i++ {
		require.NoError(t, dir.CreateCompany(ctx, &directory.Company{ID: uuid.New(), TenantID: tn.ID, Name: "Co", CreatedAt: testNow}))
	}
	n, err := repo.CountResources(ctx, tn.ID, subscription.ResourceCompanies)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.CountResources(ctx, tn.ID, subscription.ResourceKind("INVOICES"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDirectoryRepository(t *testing.T) {
	ctx := context.Background()
	db, dialect := openTestDB(t)
	tn := createTestTenant(t, NewTenantRepository(db, dialect), nil)
	repo := NewDirectoryRepository(db, dialect)

	company := &directory.Company{ID: uuid.New(), TenantID: tn.ID, Name: "Globex",
		Website: sql.NullString{String: "https://globex.example", Valid: true}, CreatedAt: testNow}
	require.NoError(t, repo.CreateCompany(ctx, company))

	got, err := repo.GetCompany(ctx, tn.ID, company.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://globex.example", got.Website.String)

	_, err = repo.GetCompany(ctx, uuid.New(), company.ID)
	assert.ErrorIs(t, err, directory.ErrCompanyNotFound)

	contact := &directory.Contact{ID: uuid.New(), TenantID: tn.ID, Name: "Jane",
		CompanyID: uuid.NullUUID{UUID: company.ID, Valid: true}, CreatedAt: testNow}
	require.NoError(t, repo.CreateContact(ctx, contact))

	orphan := &directory.Contact{ID: uuid.New(), TenantID: tn.ID, Name: "Bob",
		CompanyID: uuid.NullUUID{UUID: uuid.New(), Valid: true}, CreatedAt: testNow}
	assert.ErrorIs(t, repo.CreateContact(ctx, orphan), directory.ErrCompanyNotFound)

	contacts, err := repo.ListContacts(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, company.ID, contacts[0].CompanyID.UUID)
	assert.False(t, contacts[0].Email.Valid)
}
