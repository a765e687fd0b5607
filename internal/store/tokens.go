package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type tokenRepo struct {
	pool *pgxpool.Pool
}

const tokenSelect = `SELECT id, user_id, token_hash, name, created_at, expires_at FROM mcp_tokens`

func scanToken(row pgx.Row) (*McpToken, error) {
	var t McpToken
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Name, &t.CreatedAt, &t.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get token: %w", err)
	}
	return &t, nil
}

func scanTokens(rows pgx.Rows) ([]*McpToken, error) {
	var out []*McpToken
	for rows.Next() {
		var t McpToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Name, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, fmt.Errorf("store: scan token: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (r *tokenRepo) Create(ctx context.Context, userID, tokenHash, name string, expiresAt *time.Time) (*McpToken, error) {
	defer observeDB("tokens.create")()

	t := &McpToken{
		ID:        newID(),
		UserID:    userID,
		TokenHash: tokenHash,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
	const q = `INSERT INTO mcp_tokens (id, user_id, token_hash, name, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6)`
	if _, err := r.pool.Exec(ctx, q, t.ID, t.UserID, t.TokenHash, t.Name, t.CreatedAt, t.ExpiresAt); err != nil {
		return nil, fmt.Errorf("store: create token: %w", err)
	}
	return t, nil
}

func (r *tokenRepo) ListByUser(ctx context.Context, userID string) ([]*McpToken, error) {
	defer observeDB("tokens.list_by_user")()
	rows, err := r.pool.Query(ctx, tokenSelect+` WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list tokens: %w", err)
	}
	defer rows.Close()
	return scanTokens(rows)
}

// ListAll is used by the Bearer auth strategy, which must iterate every
// token to find a hash match since Argon2id digests are not indexable.
func (r *tokenRepo) ListAll(ctx context.Context) ([]*McpToken, error) {
	defer observeDB("tokens.list_all")()
	rows, err := r.pool.Query(ctx, tokenSelect)
	if err != nil {
		return nil, fmt.Errorf("store: list all tokens: %w", err)
	}
	defer rows.Close()
	return scanTokens(rows)
}

func (r *tokenRepo) Delete(ctx context.Context, id string) error {
	defer observeDB("tokens.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM mcp_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: delete token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
