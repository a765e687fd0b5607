package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type objectRepo struct {
	pool *pgxpool.Pool
}

const objectSelect = `SELECT id, calendar_id, uid, etag, ical_data, component_type, dtstart, dtend, summary, created_at, updated_at
	FROM calendar_objects`

func scanObject(row pgx.Row) (*CalendarObject, error) {
	var o CalendarObject
	if err := row.Scan(&o.ID, &o.CalendarID, &o.UID, &o.ETag, &o.IcalData, &o.ComponentType,
		&o.DTStart, &o.DTEnd, &o.Summary, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get object: %w", err)
	}
	return &o, nil
}

func scanObjects(rows pgx.Rows) ([]*CalendarObject, error) {
	var out []*CalendarObject
	for rows.Next() {
		var o CalendarObject
		if err := rows.Scan(&o.ID, &o.CalendarID, &o.UID, &o.ETag, &o.IcalData, &o.ComponentType,
			&o.DTStart, &o.DTEnd, &o.Summary, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan object: %w", err)
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

// UpsertObject inserts or replaces a CalendarObject by (calendar_id,
// uid), always assigning a fresh ETag, and — inside the same
// transaction — rotates the owning Calendar's ctag/sync_token and
// appends a SyncChange row, per the Store contract's atomic mutation
// unit.
func (r *objectRepo) UpsertObject(ctx context.Context, calendarID, uid, icalData string, fields ExtractedFields) (*CalendarObject, bool, error) {
	defer observeDB("objects.upsert")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("store: upsert object: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Confirm the calendar exists, per "Fails with NotFound if the
	// calendar does not exist."
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM calendars WHERE id = $1)`, calendarID).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("store: upsert object: check calendar: %w", err)
	}
	if !exists {
		return nil, false, ErrNotFound
	}

	existingRow := tx.QueryRow(ctx, `SELECT id FROM calendar_objects WHERE calendar_id = $1 AND uid = $2`, calendarID, uid)
	var existingID string
	isNew := false
	if err := existingRow.Scan(&existingID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, false, fmt.Errorf("store: upsert object: check existing: %w", err)
		}
		isNew = true
	}

	now := time.Now().UTC()
	etag := newETag()

	var obj *CalendarObject
	if isNew {
		obj = &CalendarObject{
			ID:            newID(),
			CalendarID:    calendarID,
			UID:           uid,
			ETag:          etag,
			IcalData:      icalData,
			ComponentType: fields.ComponentType,
			DTStart:       fields.DTStart,
			DTEnd:         fields.DTEnd,
			Summary:       fields.Summary,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		const ins = `INSERT INTO calendar_objects
			(id, calendar_id, uid, etag, ical_data, component_type, dtstart, dtend, summary, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
		if _, err := tx.Exec(ctx, ins, obj.ID, obj.CalendarID, obj.UID, obj.ETag, obj.IcalData,
			obj.ComponentType, obj.DTStart, obj.DTEnd, obj.Summary, obj.CreatedAt, obj.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("store: insert object: %w", err)
		}
	} else {
		obj = &CalendarObject{
			ID:            existingID,
			CalendarID:    calendarID,
			UID:           uid,
			ETag:          etag,
			IcalData:      icalData,
			ComponentType: fields.ComponentType,
			DTStart:       fields.DTStart,
			DTEnd:         fields.DTEnd,
			Summary:       fields.Summary,
			UpdatedAt:     now,
		}
		const upd = `UPDATE calendar_objects SET etag=$2, ical_data=$3, component_type=$4,
			dtstart=$5, dtend=$6, summary=$7, updated_at=$8 WHERE id=$1`
		if _, err := tx.Exec(ctx, upd, obj.ID, obj.ETag, obj.IcalData, obj.ComponentType,
			obj.DTStart, obj.DTEnd, obj.Summary, obj.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("store: update object: %w", err)
		}
	}

	changeType := ChangeModified
	if isNew {
		changeType = ChangeCreated
	}
	if err := rotateCalendarAndLogChange(ctx, tx, calendarID, uid, changeType); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("store: upsert object: commit: %w", err)
	}
	return obj, isNew, nil
}

func (r *objectRepo) GetByUID(ctx context.Context, calendarID, uid string) (*CalendarObject, error) {
	defer observeDB("objects.get_by_uid")()
	row := r.pool.QueryRow(ctx, objectSelect+` WHERE calendar_id = $1 AND uid = $2`, calendarID, uid)
	return scanObject(row)
}

// DeleteObject logs the deleted SyncChange before removing the row, per
// the Store contract's explicit ordering — "logs a deleted SyncChange
// with the object's UID before the row is removed so sync clients can
// observe the tombstone."
func (r *objectRepo) DeleteObject(ctx context.Context, calendarID, uid string) error {
	defer observeDB("objects.delete")()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: delete object: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM calendar_objects WHERE calendar_id=$1 AND uid=$2)`,
		calendarID, uid).Scan(&exists); err != nil {
		return fmt.Errorf("store: delete object: check existing: %w", err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := rotateCalendarAndLogChange(ctx, tx, calendarID, uid, ChangeDeleted); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM calendar_objects WHERE calendar_id=$1 AND uid=$2`, calendarID, uid); err != nil {
		return fmt.Errorf("store: delete object: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: delete object: commit: %w", err)
	}
	return nil
}

func (r *objectRepo) ListObjects(ctx context.Context, calendarID string) ([]*CalendarObject, error) {
	defer observeDB("objects.list")()
	rows, err := r.pool.Query(ctx, objectSelect+` WHERE calendar_id = $1 ORDER BY uid`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("store: list objects: %w", err)
	}
	defer rows.Close()
	return scanObjects(rows)
}

// ListObjectsInRange applies the overlap filter dtstart < end AND
// (dtend|due) > start, per the Store contract. dtstart/dtend are
// stored as indexed text copies of the raw property values; the
// comparison is performed against their parsed timestamp form.
func (r *objectRepo) ListObjectsInRange(ctx context.Context, calendarID string, start, end time.Time) ([]*CalendarObject, error) {
	defer observeDB("objects.list_in_range")()

	objs, err := r.ListObjects(ctx, calendarID)
	if err != nil {
		return nil, err
	}

	var out []*CalendarObject
	for _, o := range objs {
		dtstart, ok1 := parseIndexedTime(o.DTStart)
		dtend, ok2 := parseIndexedTime(o.DTEnd)
		if !ok1 || !ok2 {
			continue
		}
		if dtstart.Before(end) && dtend.After(start) {
			out = append(out, o)
		}
	}
	return out, nil
}

func parseIndexedTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse("20060102T150405Z", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("20060102T150405", s); err == nil {
		return t, true
	}
	if t, err := time.Parse("20060102", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

func (r *objectRepo) GetObjectsByUIDs(ctx context.Context, calendarID string, uids []string) ([]*CalendarObject, error) {
	defer observeDB("objects.get_by_uids")()
	if len(uids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, objectSelect+` WHERE calendar_id = $1 AND uid = ANY($2)`, calendarID, uids)
	if err != nil {
		return nil, fmt.Errorf("store: get objects by uids: %w", err)
	}
	defer rows.Close()
	return scanObjects(rows)
}

// rotateCalendarAndLogChange performs the three-step atomic unit
// required alongside every object mutation: rotate ctag/sync_token,
// insert a SyncChange row tagged with the new token, and bump
// updated_at. Must run inside the caller's transaction.
func rotateCalendarAndLogChange(ctx context.Context, tx pgx.Tx, calendarID, objectUID string, changeType ChangeType) error {
	newToken := newSyncToken()
	newCTag := newID()
	now := time.Now().UTC()

	tag, err := tx.Exec(ctx, `UPDATE calendars SET ctag=$2, sync_token=$3, updated_at=$4 WHERE id=$1`,
		calendarID, newCTag, newToken, now)
	if err != nil {
		return fmt.Errorf("store: rotate calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	const ins = `INSERT INTO sync_changes (calendar_id, object_uid, change_type, sync_token, created_at)
		VALUES ($1,$2,$3,$4,$5)`
	if _, err := tx.Exec(ctx, ins, calendarID, objectUID, string(changeType), newToken, now); err != nil {
		return fmt.Errorf("store: log sync change: %w", err)
	}
	return nil
}
