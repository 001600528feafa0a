package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

const billColumns = `id, user_id, biller_name, account_number, amount::text, due_date, status, category, description, created_at`

func scanBill(row pgx.Row) (domain.Bill, error) {
	var b domain.Bill
	var amount string
	err := row.Scan(&b.ID, &b.UserID, &b.BillerName, &b.AccountNumber, &amount,
		&b.DueDate, &b.Status, &b.Category, &b.Description, &b.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Bill{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Bill{}, err
	}
	b.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.Bill{}, fmt.Errorf("bad amount in bills row %s: %w", b.ID, err)
	}
	return b, nil
}

func (s *PostgresStore) ListBills(ctx context.Context, userID uuid.UUID) ([]domain.Bill, error) {
	rows, err := s.Db.Query(ctx,
		`SELECT `+billColumns+` FROM bills WHERE user_id = $1 ORDER BY due_date ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bills []domain.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		bills = append(bills, b)
	}
	return bills, rows.Err()
}

func (s *PostgresStore) GetBill(ctx context.Context, userID, billID uuid.UUID) (domain.Bill, error) {
	row := s.Db.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2`, billID, userID)
	return scanBill(row)
}

func (s *PostgresStore) CreateBill(ctx context.Context, bill domain.Bill) error {
	_, err := s.Db.Exec(ctx, `
		INSERT INTO bills (id, user_id, biller_name, account_number, amount, due_date, status, category, description, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`,
		bill.ID, bill.UserID, bill.BillerName, bill.AccountNumber, bill.Amount.String(),
		bill.DueDate, bill.Status, bill.Category, bill.Description, bill.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bill: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateBill(ctx context.Context, userID, billID uuid.UUID, patch domain.BillPatch) (domain.Bill, error) {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return domain.Bill{}, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+billColumns+` FROM bills WHERE id = $1 AND user_id = $2 FOR UPDATE`, billID, userID)
	b, err := scanBill(row)
	if err != nil {
		return domain.Bill{}, err
	}
	if b.Status == domain.BillPaid {
		return domain.Bill{}, domain.ErrInvalidState
	}

	b = patch.Apply(b)
	_, err = tx.Exec(ctx, `
		UPDATE bills SET biller_name = $1, amount = $2::numeric, due_date = $3, category = $4, description = $5
		WHERE id = $6`,
		b.BillerName, b.Amount.String(), b.DueDate, b.Category, b.Description, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	return b, tx.Commit(ctx)
}

func (s *PostgresStore) DeleteBill(ctx context.Context, userID, billID uuid.UUID) error {
	tx, err := s.Db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var referenced bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE bill_id = $1)`, billID).Scan(&referenced)
	if err != nil {
		return err
	}
	if referenced {
		return domain.ErrConflict
	}

	tag, err := tx.Exec(ctx, `DELETE FROM bills WHERE id = $1 AND user_id = $2`, billID, userID)
	if err != nil {
		// A transaction row landed between the check and the delete.
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

func (s *PostgresStore) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	tag, err := s.Db.Exec(ctx,
		`UPDATE bills SET status = 'overdue' WHERE status = 'pending' AND due_date < $1`, asOf)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
