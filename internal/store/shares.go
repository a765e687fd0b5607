package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type shareRepo struct {
	pool *pgxpool.Pool
}

const shareSelect = `SELECT id, calendar_id, user_id, permission, created_at FROM calendar_shares`

func scanShare(row pgx.Row) (*CalendarShare, error) {
	var s CalendarShare
	var perm string
	if err := row.Scan(&s.ID, &s.CalendarID, &s.UserID, &perm, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get share: %w", err)
	}
	s.Permission = Permission(perm)
	return &s, nil
}

// Create upserts a share on (calendar_id, user_id), per the Store
// contract's "re-sharing updates permission in place."
func (r *shareRepo) Create(ctx context.Context, calendarID, userID string, permission Permission) (*CalendarShare, error) {
	defer observeDB("shares.create")()

	const q = `INSERT INTO calendar_shares (id, calendar_id, user_id, permission, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (calendar_id, user_id) DO UPDATE SET permission = EXCLUDED.permission
		RETURNING id, calendar_id, user_id, permission, created_at`
	row := r.pool.QueryRow(ctx, q, newID(), calendarID, userID, string(permission), time.Now().UTC())
	return scanShare(row)
}

func (r *shareRepo) Delete(ctx context.Context, calendarID, userID string) error {
	defer observeDB("shares.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM calendar_shares WHERE calendar_id=$1 AND user_id=$2`, calendarID, userID)
	if err != nil {
		return fmt.Errorf("store: delete share: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *shareRepo) Get(ctx context.Context, calendarID, userID string) (*CalendarShare, error) {
	defer observeDB("shares.get")()
	row := r.pool.QueryRow(ctx, shareSelect+` WHERE calendar_id=$1 AND user_id=$2`, calendarID, userID)
	return scanShare(row)
}

func (r *shareRepo) ListReceivedBy(ctx context.Context, userID string) ([]*CalendarShare, error) {
	defer observeDB("shares.list_received")()
	rows, err := r.pool.Query(ctx, shareSelect+` WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list shares: %w", err)
	}
	defer rows.Close()

	var out []*CalendarShare
	for rows.Next() {
		var s CalendarShare
		var perm string
		if err := rows.Scan(&s.ID, &s.CalendarID, &s.UserID, &perm, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan share: %w", err)
		}
		s.Permission = Permission(perm)
		out = append(out, &s)
	}
	return out, rows.Err()
}
