// Package store implements durable storage for users, calendars,
// calendar objects, shares, the sync change log, and MCP tokens, plus
// the atomic mutation primitives that keep ETag/ctag/sync-token
// invariants intact. Backed by PostgreSQL via pgx.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jw6ventures/calcard/internal/metrics"
)

// Store aggregates the narrow per-entity repositories behind one
// connection pool shared by both listeners, per the process
// supervisor's "open store once" startup ordering.
type Store struct {
	pool *pgxpool.Pool

	Users       UserRepository
	Calendars   CalendarRepository
	Objects     ObjectRepository
	Shares      ShareRepository
	SyncChanges SyncChangeRepository
	Tokens      TokenRepository
}

// New wires concrete pgx-backed repositories against pool.
func New(pool *pgxpool.Pool) *Store {
	s := &Store{pool: pool}
	s.Users = &userRepo{pool: pool}
	s.Calendars = &calendarRepo{pool: pool}
	s.Objects = &objectRepo{pool: pool}
	s.Shares = &shareRepo{pool: pool}
	s.SyncChanges = &syncChangeRepo{pool: pool}
	s.Tokens = &tokenRepo{pool: pool}
	return s
}

// Pool exposes the underlying pool for the migration runner, which
// needs direct Exec/QueryRow/BeginTx access before any repository is
// useful.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// HealthCheck pings the connection pool. The /readyz endpoints do not
// call it: they answer 200 without checking the database.
func (s *Store) HealthCheck(ctx context.Context) error {
	defer observeDB("health_check")()
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() { s.pool.Close() }

func observeDB(operation string) func() {
	start := time.Now()
	return func() {
		metrics.ObserveDBLatency(operation, time.Since(start))
	}
}
