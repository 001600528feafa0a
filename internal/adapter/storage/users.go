package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

const userColumns = `id, email, name, phone, password_hash, password_salt, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PasswordHash, &u.PasswordSalt, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user domain.User) error {
	_, err := s.Db.Exec(ctx, `
		INSERT INTO users (id, email, name, phone, password_hash, password_salt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Email, user.Name, user.Phone, user.PasswordHash, user.PasswordSalt, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "users_email_key") {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.Db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *PostgresStore) UserByID(ctx context.Context, userID uuid.UUID) (domain.User, error) {
	row := s.Db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (s *PostgresStore) SaveToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	_, err := s.Db.Exec(ctx,
		`INSERT INTO auth_tokens (token_hash, user_id) VALUES ($1, $2)`, tokenHash, userID)
	return err
}

func (s *PostgresStore) UserIDByToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.Db.QueryRow(ctx,
		`SELECT user_id FROM auth_tokens WHERE token_hash = $1`, tokenHash).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, err
}

func (s *PostgresStore) DeleteToken(ctx context.Context, tokenHash string) error {
	_, err := s.Db.Exec(ctx, `DELETE FROM auth_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *PostgresStore) CachedResponse(ctx context.Context, key string) (int, []byte, bool, error) {
	var status int
	var body []byte
	err := s.Db.QueryRow(ctx,
		`SELECT response_status, response_body FROM idempotency_keys WHERE key_id = $1`, key).Scan(&status, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	return status, body, true, nil
}

func (s *PostgresStore) SaveResponse(ctx context.Context, key string, status int, body []byte) error {
	_, err := s.Db.Exec(ctx, `
		INSERT INTO idempotency_keys (key_id, response_status, response_body)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, key, status, body)
	return err
}
