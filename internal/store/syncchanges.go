package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type syncChangeRepo struct {
	pool *pgxpool.Pool
}

// GetSince returns SyncChange rows for calendarID whose id is strictly
// greater than the row that first assigned token to the calendar,
// ordered by id ascending. Returns ErrUnknownSyncToken if token does
// not match any row — the REPORT handler is responsible for treating
// that as a request for a full initial sync, per the Store contract.
func (r *syncChangeRepo) GetSince(ctx context.Context, calendarID, token string) ([]*SyncChange, error) {
	defer observeDB("sync_changes.get_since")()

	var anchorID int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM sync_changes WHERE calendar_id = $1 AND sync_token = $2 ORDER BY id ASC LIMIT 1`,
		calendarID, token,
	).Scan(&anchorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnknownSyncToken
		}
		return nil, fmt.Errorf("store: locate sync token: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, calendar_id, object_uid, change_type, sync_token, created_at
			FROM sync_changes WHERE calendar_id = $1 AND id > $2 ORDER BY id ASC`,
		calendarID, anchorID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: get sync changes: %w", err)
	}
	defer rows.Close()

	var out []*SyncChange
	for rows.Next() {
		var c SyncChange
		var changeType string
		if err := rows.Scan(&c.ID, &c.CalendarID, &c.ObjectUID, &changeType, &c.SyncToken, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan sync change: %w", err)
		}
		c.ChangeType = ChangeType(changeType)
		out = append(out, &c)
	}
	return out, rows.Err()
}
