package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

const methodColumns = `id, user_id, kind, last4, brand, bank_name, wallet_ref, is_default, created_at`

func scanMethod(row pgx.Row) (domain.PaymentMethod, error) {
	var m domain.PaymentMethod
	err := row.Scan(&m.ID, &m.UserID, &m.Kind, &m.Last4, &m.Brand,
		&m.BankName, &m.WalletRef, &m.IsDefault, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	return m, nil
}

func (s *PostgresStore) ListMethods(ctx context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT `+methodColumns+` FROM payment_methods WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []domain.PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

func (s *PostgresStore) GetMethod(ctx context.Context, userID, methodID uuid.UUID) (domain.PaymentMethod, error) {
	row := s.Db.QueryRow(ctx,
		`SELECT `+methodColumns+` FROM payment_methods WHERE id = $1 AND user_id = $2`, methodID, userID)
	return scanMethod(row)
}

// DefaultMethod prefers the flagged default and falls back to the oldest
// method so that a user who never flagged one can still pay.
func (s *PostgresStore) DefaultMethod(ctx context.Context, userID uuid.UUID) (domain.PaymentMethod, error) {
	row := s.Db.QueryRow(ctx, `
		SELECT `+methodColumns+` FROM payment_methods WHERE user_id = $1
		ORDER BY is_default DESC, created_at ASC LIMIT 1`, userID)
	m, err := scanMethod(row)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.PaymentMethod{}, domain.ErrNoPaymentMethod
	}
	return m, err
}

func (s *PostgresStore) CreateMethod(ctx context.Context, method domain.PaymentMethod) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Setting a new default clears the previous one in the same transaction,
	// so at most one default per user is ever observable.
	if method.IsDefault {
		_, err = tx.Exec(ctx,
			`UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1 AND is_default`, method.UserID)
		if err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO payment_methods (id, user_id, kind, last4, brand, bank_name, wallet_ref, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		method.ID, method.UserID, method.Kind, method.Last4, method.Brand,
		method.BankName, method.WalletRef, method.IsDefault, method.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create payment method: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) DeleteMethod(ctx context.Context, userID, methodID uuid.UUID) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var referenced bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE payment_method_id = $1)`, methodID).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrConflict
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM payment_methods WHERE id = $1 AND user_id = $2`, methodID, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}
