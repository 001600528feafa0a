package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over a pgx connection pool. Its methods
// are split across bills.go, methods.go, transactions.go and users.go.
type PostgresStore struct {
	Db *pgxpool.Pool
}

// ConnectDB initializes the connection pool and applies the schema.
func ConnectDB(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}

	// Tuned for serverless Postgres: connections are cheap to create, so
	// keep the idle footprint small.
	cfg.MaxConns = 10
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	store := &PostgresStore{Db: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to apply schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() {
	s.Db.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.Db.Exec(ctx, schema)
	return err
}

// isForeignKeyViolation reports a 23503 from Postgres. A delete losing the
// race against a new transaction row hits the FK constraint instead of the
// pre-check; callers map it to domain.ErrConflict.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	phone         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	password_salt TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS auth_tokens (
	token_hash TEXT PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bills (
	id             UUID PRIMARY KEY,
	user_id        UUID NOT NULL REFERENCES users(id),
	biller_name    TEXT NOT NULL,
	account_number TEXT NOT NULL,
	amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	due_date       TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	category       TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS payment_methods (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL REFERENCES users(id),
	kind       TEXT NOT NULL,
	last4      TEXT NOT NULL DEFAULT '',
	brand      TEXT NOT NULL DEFAULT '',
	bank_name  TEXT NOT NULL DEFAULT '',
	wallet_ref TEXT NOT NULL DEFAULT '',
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS transactions (
	id                UUID PRIMARY KEY,
	user_id           UUID NOT NULL REFERENCES users(id),
	bill_id           UUID NOT NULL REFERENCES bills(id),
	payment_method_id UUID NOT NULL REFERENCES payment_methods(id),
	amount            NUMERIC(12,2) NOT NULL,
	status            TEXT NOT NULL DEFAULT 'processing',
	confirmation_code TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS idempotency_keys (
	key_id          TEXT PRIMARY KEY,
	response_status INT NOT NULL,
	response_body   BYTEA NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_bills_user ON bills(user_id);
CREATE INDEX IF NOT EXISTS idx_methods_user ON payment_methods(user_id);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_transactions_bill ON transactions(bill_id);
`
