package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rentalhub/rentalhub-be/internal/storage"
)

// Ensure Store satisfies the storage interfaces at compile time.
var (
	_ storage.ActorStore    = (*Store)(nil)
	_ storage.PropertyStore = (*Store)(nil)
	_ storage.BookingStore  = (*Store)(nil)
	_ storage.PaymentStore  = (*Store)(nil)
)

// Store provides Postgres-backed persistence for the rental marketplace.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store and runs migrations.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// Close releases database resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			hired_broker BIGINT,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS owners (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS brokers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS admins (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			phone TEXT NOT NULL DEFAULT '',
			location TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS account_emails (
			email TEXT PRIMARY KEY,
			role TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS broker_clients (
			broker_id BIGINT NOT NULL REFERENCES brokers(id),
			tenant_id BIGINT NOT NULL REFERENCES tenants(id),
			PRIMARY KEY (broker_id, tenant_id)
		);`,
		`CREATE TABLE IF NOT EXISTS properties (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			lister_id BIGINT NOT NULL,
			lister_kind TEXT NOT NULL,
			deposit BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGSERIAL PRIMARY KEY,
			property_id BIGINT NOT NULL REFERENCES properties(id),
			tenant_id BIGINT NOT NULL REFERENCES tenants(id),
			broker_id BIGINT,
			status TEXT NOT NULL DEFAULT 'pending',
			visit_date TIMESTAMPTZ NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			deposit_status TEXT NOT NULL DEFAULT 'pending',
			deposit_amount BIGINT NOT NULL DEFAULT 0,
			cancelled_by BIGINT,
			cancelled_by_role TEXT,
			cancellation_reason TEXT NOT NULL DEFAULT '',
			cancelled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS bookings_tenant_idx ON bookings (tenant_id);`,
		`CREATE INDEX IF NOT EXISTS bookings_property_idx ON bookings (property_id);`,
		`CREATE TABLE IF NOT EXISTS deposit_payments (
			id BIGSERIAL PRIMARY KEY,
			booking_id BIGINT NOT NULL REFERENCES bookings(id),
			tenant_id BIGINT NOT NULL REFERENCES tenants(id),
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL DEFAULT 'INR',
			method TEXT NOT NULL DEFAULT 'card',
			transaction_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS deposit_payments_txn_success_idx
			ON deposit_payments (transaction_id) WHERE status = 'success';`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
