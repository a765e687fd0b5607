package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type calendarRepo struct {
	pool *pgxpool.Pool
}

func (r *calendarRepo) Create(ctx context.Context, ownerID, name, description, color, timezone string) (*Calendar, error) {
	return r.CreateWithID(ctx, newID(), ownerID, name, description, color, timezone)
}

func (r *calendarRepo) CreateWithID(ctx context.Context, id, ownerID, name, description, color, timezone string) (*Calendar, error) {
	defer observeDB("calendars.create")()

	if color == "" {
		color = DefaultCalendarColor
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}

	now := time.Now().UTC()
	c := &Calendar{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Color:       color,
		Timezone:    timezone,
		CTag:        newID(),
		SyncToken:   newSyncToken(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	const q = `INSERT INTO calendars
		(id, owner_id, name, description, color, timezone, ctag, sync_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := r.pool.Exec(ctx, q, c.ID, c.OwnerID, c.Name, c.Description, c.Color, c.Timezone,
		c.CTag, c.SyncToken, c.CreatedAt, c.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("store: create calendar: %w: %v", ErrAlreadyExists, err)
		}
		return nil, fmt.Errorf("store: create calendar: %w", err)
	}
	return c, nil
}

func (r *calendarRepo) GetByID(ctx context.Context, id string) (*Calendar, error) {
	defer observeDB("calendars.get_by_id")()
	row := r.pool.QueryRow(ctx, calendarSelect+` WHERE id = $1`, id)
	return scanCalendar(row)
}

const calendarSelect = `SELECT id, owner_id, name, description, color, timezone, ctag, sync_token, created_at, updated_at FROM calendars`

func scanCalendar(row pgx.Row) (*Calendar, error) {
	var c Calendar
	if err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &c.Timezone,
		&c.CTag, &c.SyncToken, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get calendar: %w", err)
	}
	return &c, nil
}

func (r *calendarRepo) UpdateProperties(ctx context.Context, id string, name, description, color *string) (*Calendar, error) {
	defer observeDB("calendars.update_properties")()

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		existing.Name = *name
	}
	if description != nil {
		existing.Description = *description
	}
	if color != nil {
		existing.Color = *color
	}
	existing.CTag = newID()
	existing.SyncToken = newSyncToken()
	existing.UpdatedAt = time.Now().UTC()

	const q = `UPDATE calendars SET name=$2, description=$3, color=$4, ctag=$5, sync_token=$6, updated_at=$7 WHERE id=$1`
	if _, err := r.pool.Exec(ctx, q, existing.ID, existing.Name, existing.Description, existing.Color,
		existing.CTag, existing.SyncToken, existing.UpdatedAt); err != nil {
		return nil, fmt.Errorf("store: update calendar: %w", err)
	}
	return existing, nil
}

func (r *calendarRepo) Delete(ctx context.Context, id string) error {
	defer observeDB("calendars.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *calendarRepo) ListOwnedBy(ctx context.Context, ownerID string) ([]*Calendar, error) {
	defer observeDB("calendars.list_owned")()
	rows, err := r.pool.Query(ctx, calendarSelect+` WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list owned calendars: %w", err)
	}
	defer rows.Close()
	return scanCalendars(rows)
}

// ListVisibleTo returns the union of owned and shared-to-user
// calendars, deduplicated, per the Store contract.
func (r *calendarRepo) ListVisibleTo(ctx context.Context, userID string) ([]*Calendar, error) {
	defer observeDB("calendars.list_visible")()

	const q = calendarSelect + `
		WHERE owner_id = $1
		UNION
		` + calendarSelectNoPrefix + `
		JOIN calendar_shares ON calendar_shares.calendar_id = calendars.id
		WHERE calendar_shares.user_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list visible calendars: %w", err)
	}
	defer rows.Close()
	return scanCalendars(rows)
}

const calendarSelectNoPrefix = `SELECT calendars.id, calendars.owner_id, calendars.name, calendars.description,
	calendars.color, calendars.timezone, calendars.ctag, calendars.sync_token, calendars.created_at, calendars.updated_at
	FROM calendars`

func scanCalendars(rows pgx.Rows) ([]*Calendar, error) {
	var out []*Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &c.Timezone,
			&c.CTag, &c.SyncToken, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan calendar: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
