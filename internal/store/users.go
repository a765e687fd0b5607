package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type userRepo struct {
	pool *pgxpool.Pool
}

func (r *userRepo) Create(ctx context.Context, username string, email *string, passwordHash string) (*User, error) {
	defer observeDB("users.create")()

	u := &User{
		ID:           newID(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	const q = `INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt); err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*User, error) {
	defer observeDB("users.get_by_id")()
	return r.scanOne(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	defer observeDB("users.get_by_username")()
	return r.scanOne(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	defer observeDB("users.get_by_email")()
	return r.scanOne(ctx, `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *userRepo) scanOne(ctx context.Context, q string, arg string) (*User, error) {
	row := r.pool.QueryRow(ctx, q, arg)
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context) ([]*User, error) {
	defer observeDB("users.list")()
	rows, err := r.pool.Query(ctx, `SELECT id, username, email, password_hash, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer rows.Close()

	var out []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	defer observeDB("users.update_password")()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("store: update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	defer observeDB("users.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
