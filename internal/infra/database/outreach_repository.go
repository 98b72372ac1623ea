package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"outreach_tracker/internal/domain/directory"
	"outreach_tracker/internal/domain/outreach"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type OutreachRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewOutreachRepository(db *sql.DB, dialect Dialect) *OutreachRepository {
	return &OutreachRepository{db: db, dialect: dialect}
}

var _ outreach.Repository = (*OutreachRepository)(nil)

const recordColumns = `id, tenant_id, counterpart_name, title, anchor_date, status, tags, is_favorite, favorited_at, created_at, updated_at`

const followUpColumns = `id, record_id, sequence, scheduled_date, original_due_date, status, subject, body, completed_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*outreach.Record, error) {
	rec := &outreach.Record{}
	var tags []byte
	err := row.Scan(&rec.ID, &rec.TenantID, &rec.CounterpartName, &rec.Title, date(&rec.AnchorDate), &rec.Status,
		&tags, &rec.IsFavorite, &rec.FavoritedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &rec.Tags); err != nil {
			return nil, fmt.Errorf("invalid tags on record %s: %w", rec.ID, err)
		}
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec, nil
}

func scanFollowUp(row scanner) (*outreach.FollowUp, error) {
	f := &outreach.FollowUp{}
	err := row.Scan(&f.ID, &f.RecordID, &f.Sequence, date(&f.ScheduledDate), date(&f.OriginalDueDate), &f.Status,
		&f.Subject, &f.Body, &f.CompletedAt, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- Records ---

func (r *OutreachRepository) CreateRecord(ctx context.Context, rec *outreach.Record, schedule []*outreach.FollowUp) error {
	tags, err := marshalTags(rec.Tags)
	if err != nil {
		return fmt.Errorf("error encoding tags: %w", err)
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for record create: %w", err)
	}
	defer txn.Rollback()

	query := r.dialect.Rebind(`INSERT INTO outreach_records (` + recordColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = txn.ExecContext(ctx, query, rec.ID, rec.TenantID, rec.CounterpartName, rec.Title, date(&rec.AnchorDate),
		rec.Status, tags, rec.IsFavorite, rec.FavoritedAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating outreach record: %w", err)
	}
	if err := r.insertFollowUps(ctx, txn, schedule); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *OutreachRepository) insertFollowUps(ctx context.Context, txn *sql.Tx, schedule []*outreach.FollowUp) error {
	if len(schedule) == 0 {
		return nil
	}
	stmt, err := txn.PrepareContext(ctx, r.dialect.Rebind(`INSERT INTO follow_ups (`+followUpColumns+`)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare statement for follow-up insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range schedule {
		_, err := stmt.ExecContext(ctx, f.ID, f.RecordID, f.Sequence, date(&f.ScheduledDate), date(&f.OriginalDueDate),
			f.Status, f.Subject, f.Body, f.CompletedAt, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error inserting follow-up %d of record %s: %w", f.Sequence, f.RecordID, err)
		}
	}
	return nil
}

func (r *OutreachRepository) GetRecord(ctx context.Context, tenantID, id uuid.UUID) (*outreach.Record, error) {
	query := r.dialect.Rebind(`SELECT ` + recordColumns + ` FROM outreach_records WHERE id = ? AND tenant_id = ?`)
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outreach.ErrRecordNotFound
		}
		return nil, fmt.Errorf("error getting outreach record: %w", err)
	}
	return rec, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *OutreachRepository) UpdateRecord(ctx context.Context, rec *outreach.Record) error {
	return r.updateRecord(ctx, r.db, rec)
}

func (r *OutreachRepository) updateRecord(ctx context.Context, q execer, rec *outreach.Record) error {
	tags, err := marshalTags(rec.Tags)
	if err != nil {
		return fmt.Errorf("error encoding tags: %w", err)
	}
	query := r.dialect.Rebind(`UPDATE outreach_records
               SET counterpart_name = ?, title = ?, anchor_date = ?, tags = ?, is_favorite = ?, favorited_at = ?, updated_at = ?
               WHERE id = ? AND tenant_id = ?`)
	res, err := q.ExecContext(ctx, query, rec.CounterpartName, rec.Title, date(&rec.AnchorDate), tags,
		rec.IsFavorite, rec.FavoritedAt, rec.UpdatedAt, rec.ID, rec.TenantID)
	if err != nil {
		return fmt.Errorf("error updating outreach record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return outreach.ErrRecordNotFound
	}
	return nil
}

// UpdateRecordSchedule writes the record edits and replaces its follow-ups in one transaction.
func (r *OutreachRepository) UpdateRecordSchedule(ctx context.Context, rec *outreach.Record, schedule []*outreach.FollowUp) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for record update: %w", err)
	}
	defer txn.Rollback()

	if err := r.updateRecord(ctx, txn, rec); err != nil {
		return err
	}
	if _, err := txn.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM follow_ups WHERE record_id = ?`), rec.ID); err != nil {
		return fmt.Errorf("error deleting follow-ups of record %s: %w", rec.ID, err)
	}
	if err := r.insertFollowUps(ctx, txn, schedule); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *OutreachRepository) recordExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id uuid.UUID) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM outreach_records WHERE id = ?`), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error checking outreach record: %w", err)
	}
	return true, nil
}

func (r *OutreachRepository) SetStatus(ctx context.Context, id uuid.UUID, expected, next outreach.Status) (bool, error) {
	query := r.dialect.Rebind(`UPDATE outreach_records SET status = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, next, id, expected)
	if err != nil {
		return false, fmt.Errorf("error setting record status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	if n > 0 {
		return true, nil
	}
	exists, err := r.recordExists(ctx, r.db, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, outreach.ErrRecordNotFound
	}
	return false, nil
}

func (r *OutreachRepository) DeleteRecord(ctx context.Context, tenantID, id uuid.UUID) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for record delete: %w", err)
	}
	defer txn.Rollback()

	res, err := txn.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM outreach_records WHERE id = ? AND tenant_id = ?`), id, tenantID)
	if err != nil {
		return fmt.Errorf("error deleting outreach record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return outreach.ErrRecordNotFound
	}
	// Cascades are declared in the schema; the explicit deletes cover SQLite connections
	// opened without foreign key enforcement.
	for _, q := range []string{
		`DELETE FROM follow_ups WHERE record_id = ?`,
		`DELETE FROM record_contacts WHERE record_id = ?`,
	} {
		if _, err := txn.ExecContext(ctx, r.dialect.Rebind(q), id); err != nil {
			return fmt.Errorf("error deleting dependents of record %s: %w", id, err)
		}
	}
	return txn.Commit()
}

func (r *OutreachRepository) ListRecords(ctx context.Context, tenantID uuid.UUID) ([]*outreach.Record, error) {
	query := r.dialect.Rebind(`SELECT ` + recordColumns + ` FROM outreach_records WHERE tenant_id = ? ORDER BY created_at, id`)
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("error listing outreach records: %w", err)
	}
	defer rows.Close()

	records := make([]*outreach.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning outreach record: %w", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outreach records: %w", err)
	}
	return records, nil
}

// --- Follow-ups ---

func (r *OutreachRepository) ReplaceSchedule(ctx context.Context, recordID uuid.UUID, schedule []*outreach.FollowUp) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for schedule replace: %w", err)
	}
	defer txn.Rollback()

	exists, err := r.recordExists(ctx, txn, recordID)
	if err != nil {
		return err
	}
	if !exists {
		return outreach.ErrRecordNotFound
	}
	if _, err := txn.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM follow_ups WHERE record_id = ?`), recordID); err != nil {
		return fmt.Errorf("error deleting follow-ups of record %s: %w", recordID, err)
	}
	if err := r.insertFollowUps(ctx, txn, schedule); err != nil {
		return err
	}
	return txn.Commit()
}

func (r *OutreachRepository) queryFollowUps(ctx context.Context, query string, args ...any) ([]*outreach.FollowUp, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing follow-ups: %w", err)
	}
	defer rows.Close()

	followUps := make([]*outreach.FollowUp, 0)
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning follow-up: %w", err)
		}
		followUps = append(followUps, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow-ups: %w", err)
	}
	return followUps, nil
}

func (r *OutreachRepository) ListFollowUps(ctx context.Context, recordID uuid.UUID) ([]*outreach.FollowUp, error) {
	query := r.dialect.Rebind(`SELECT ` + followUpColumns + ` FROM follow_ups WHERE record_id = ? ORDER BY sequence`)
	return r.queryFollowUps(ctx, query, recordID)
}

func (r *OutreachRepository) ListFollowUpsForRecords(ctx context.Context, recordIDs []uuid.UUID) (map[uuid.UUID][]*outreach.FollowUp, error) {
	out := make(map[uuid.UUID][]*outreach.FollowUp, len(recordIDs))
	if len(recordIDs) == 0 {
		return out, nil
	}

	var (
		followUps []*outreach.FollowUp
		err       error
	)
	if r.dialect == DialectPostgres {
		ids := make([]string, len(recordIDs))
		for i, id := range recordIDs {
			ids[i] = id.String()
		}
		query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE record_id = ANY($1::uuid[]) ORDER BY record_id, sequence`
		followUps, err = r.queryFollowUps(ctx, query, pq.Array(ids))
	} else {
		args := make([]any, len(recordIDs))
		for i, id := range recordIDs {
			args[i] = id
		}
		query := `SELECT ` + followUpColumns + ` FROM follow_ups WHERE record_id IN (` + placeholders(len(recordIDs)) + `) ORDER BY record_id, sequence`
		followUps, err = r.queryFollowUps(ctx, query, args...)
	}
	if err != nil {
		return nil, err
	}
	for _, f := range followUps {
		out[f.RecordID] = append(out[f.RecordID], f)
	}
	return out, nil
}

func (r *OutreachRepository) GetFollowUp(ctx context.Context, id uuid.UUID) (*outreach.FollowUp, error) {
	query := r.dialect.Rebind(`SELECT ` + followUpColumns + ` FROM follow_ups WHERE id = ?`)
	f, err := scanFollowUp(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outreach.ErrFollowUpNotFound
		}
		return nil, fmt.Errorf("error getting follow-up: %w", err)
	}
	return f, nil
}

// UpdateFollowUp never writes record_id, sequence or original_due_date.
func (r *OutreachRepository) UpdateFollowUp(ctx context.Context, f *outreach.FollowUp, expected outreach.FollowUpStatus) error {
	query := r.dialect.Rebind(`UPDATE follow_ups
               SET scheduled_date = ?, status = ?, subject = ?, body = ?, completed_at = ?, updated_at = ?
               WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, date(&f.ScheduledDate), f.Status, f.Subject, f.Body, f.CompletedAt, f.UpdatedAt, f.ID, expected)
	if err != nil {
		return fmt.Errorf("error updating follow-up: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := r.GetFollowUp(ctx, f.ID); err != nil {
		return err
	}
	return outreach.ErrFollowUpConflict
}

// --- Contacts on records ---

func (r *OutreachRepository) LinkContact(ctx context.Context, recordID, contactID uuid.UUID) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for contact link: %w", err)
	}
	defer txn.Rollback()

	var tenantID uuid.UUID
	var counterpart string
	err = txn.QueryRowContext(ctx, r.dialect.Rebind(`SELECT tenant_id, counterpart_name FROM outreach_records WHERE id = ?`), recordID).
		Scan(&tenantID, &counterpart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return outreach.ErrRecordNotFound
		}
		return fmt.Errorf("error loading record for contact link: %w", err)
	}

	var contactName string
	err = txn.QueryRowContext(ctx, r.dialect.Rebind(`SELECT name FROM contacts WHERE id = ? AND tenant_id = ?`), contactID, tenantID).
		Scan(&contactName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return directory.ErrContactNotFound
		}
		return fmt.Errorf("error loading contact for link: %w", err)
	}

	_, err = txn.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO record_contacts (record_id, contact_id) VALUES (?, ?)
               ON CONFLICT DO NOTHING`), recordID, contactID)
	if err != nil {
		return fmt.Errorf("error linking contact: %w", err)
	}
	if counterpart == "" {
		_, err = txn.ExecContext(ctx, r.dialect.Rebind(`UPDATE outreach_records SET counterpart_name = ? WHERE id = ?`), contactName, recordID)
		if err != nil {
			return fmt.Errorf("error caching counterpart name: %w", err)
		}
	}
	return txn.Commit()
}

func (r *OutreachRepository) ListRecordContacts(ctx context.Context, recordID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(`SELECT rc.contact_id FROM record_contacts rc
               JOIN contacts c ON c.id = rc.contact_id
               WHERE rc.record_id = ? ORDER BY c.created_at, c.id`), recordID)
	if err != nil {
		return nil, fmt.Errorf("error listing record contacts: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning record contact: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Cadence ---

func (r *OutreachRepository) GetCadence(ctx context.Context, tenantID uuid.UUID) (*outreach.Cadence, error) {
	c := &outreach.Cadence{TenantID: tenantID}
	var offsets []byte
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT offsets, updated_at FROM cadence_configs WHERE tenant_id = ?`), tenantID).
		Scan(&offsets, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outreach.ErrCadenceNotFound
		}
		return nil, fmt.Errorf("error getting cadence: %w", err)
	}
	if err := json.Unmarshal(offsets, &c.Offsets); err != nil {
		return nil, fmt.Errorf("invalid cadence offsets for tenant %s: %w", tenantID, err)
	}
	return c, nil
}

func (r *OutreachRepository) SaveCadence(ctx context.Context, c *outreach.Cadence) error {
	offsets, err := json.Marshal(c.Offsets)
	if err != nil {
		return fmt.Errorf("error encoding cadence offsets: %w", err)
	}
	query := r.dialect.Rebind(`INSERT INTO cadence_configs (tenant_id, offsets, updated_at) VALUES (?, ?, ?)
               ON CONFLICT (tenant_id) DO UPDATE SET offsets = excluded.offsets, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, c.TenantID, string(offsets), c.UpdatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("cadence for unknown tenant %s: %w", c.TenantID, err)
		}
		return fmt.Errorf("error saving cadence: %w", err)
	}
	return nil
}
