package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

const txColumns = `id, user_id, bill_id, payment_method_id, amount::text, status, confirmation_code, created_at`

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var t domain.Transaction
	var amount string
	err := row.Scan(&t.ID, &t.UserID, &t.BillID, &t.PaymentMethodID, &amount,
		&t.Status, &t.ConfirmationCode, &t.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("bad amount in transactions row %s: %w", t.ID, err)
	}
	return t, nil
}

func (s *PostgresStore) RecordTransaction(ctx context.Context, tx domain.Transaction) error {
	_, err := s.Db.Exec(ctx, `
		INSERT INTO transactions (id, user_id, bill_id, payment_method_id, amount, status, confirmation_code, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)`,
		tx.ID, tx.UserID, tx.BillID, tx.PaymentMethodID, tx.Amount.String(),
		tx.Status, tx.ConfirmationCode, tx.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FailTransaction(ctx context.Context, txID uuid.UUID) error {
	tag, err := s.Db.Exec(ctx,
		`UPDATE transactions SET status = 'failed' WHERE id = $1 AND status = 'processing'`, txID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

// CompletePayment finalizes the success path in one database transaction:
// the bill flips to paid only while still pending, and the payment
// transaction flips to completed only while still processing. If either
// conditional write misses, the whole thing rolls back with
// ErrInvalidState and the caller lost the race.
func (s *PostgresStore) CompletePayment(ctx context.Context, billID, txID uuid.UUID, confirmationCode string) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE bills SET status = 'paid' WHERE id = $1 AND status = 'pending'`, billID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	tag, err = tx.Exec(ctx, `
		UPDATE transactions SET status = 'completed', confirmation_code = $2
		WHERE id = $1 AND status = 'processing'`, txID, confirmationCode)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (s *PostgresStore) HasProcessingTransaction(ctx context.Context, billID uuid.UUID) (bool, error) {
	var exists bool
	err := s.Db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE bill_id = $1 AND status = 'processing')`, billID).Scan(&exists)
	return exists, err
}
