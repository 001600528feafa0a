package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

// Store is the persistence boundary shared by the handlers, the payment
// orchestrator and the metrics aggregator. Two implementations exist: the
// Postgres store used in production and the in-memory store used by unit
// tests and when DATABASE_URL is unset.
type Store interface {
	// Bills.
	ListBills(ctx context.Context, userID uuid.UUID) ([]domain.Bill, error)
	GetBill(ctx context.Context, userID, billID uuid.UUID) (domain.Bill, error)
	CreateBill(ctx context.Context, bill domain.Bill) error
	// UpdateBill applies the patch to a pending bill. Paid bills are part of
	// the payment history and reject patches with ErrInvalidState.
	UpdateBill(ctx context.Context, userID, billID uuid.UUID, patch domain.BillPatch) (domain.Bill, error)
	// DeleteBill fails with ErrConflict while any transaction references the bill.
	DeleteBill(ctx context.Context, userID, billID uuid.UUID) error
	// MarkOverdue transitions pending bills whose due date has passed to
	// overdue and reports how many it touched.
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)

	// Payment methods.
	ListMethods(ctx context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error)
	GetMethod(ctx context.Context, userID, methodID uuid.UUID) (domain.PaymentMethod, error)
	// DefaultMethod returns the user's default method, or ErrNoPaymentMethod
	// when the user has none.
	DefaultMethod(ctx context.Context, userID uuid.UUID) (domain.PaymentMethod, error)
	// CreateMethod stores the method; when it is flagged default, the previous
	// default is cleared in the same write.
	CreateMethod(ctx context.Context, method domain.PaymentMethod) error
	// DeleteMethod fails with ErrConflict while any transaction references the method.
	DeleteMethod(ctx context.Context, userID, methodID uuid.UUID) error

	// Transactions.
	RecordTransaction(ctx context.Context, tx domain.Transaction) error
	// FailTransaction moves a processing transaction to failed.
	FailTransaction(ctx context.Context, txID uuid.UUID) error
	// CompletePayment atomically sets the bill to paid and the transaction to
	// completed with the confirmation code. It fails with ErrInvalidState
	// unless the bill is pending and the transaction is processing; a reader
	// never observes one write without the other.
	CompletePayment(ctx context.Context, billID, txID uuid.UUID, confirmationCode string) error
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error)
	HasProcessingTransaction(ctx context.Context, billID uuid.UUID) (bool, error)

	// Users and bearer tokens.
	CreateUser(ctx context.Context, user domain.User) error
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, userID uuid.UUID) (domain.User, error)
	SaveToken(ctx context.Context, userID uuid.UUID, tokenHash string) error
	UserIDByToken(ctx context.Context, tokenHash string) (uuid.UUID, error)
	DeleteToken(ctx context.Context, tokenHash string) error

	// Idempotency cache for replayed POSTs.
	CachedResponse(ctx context.Context, key string) (status int, body []byte, ok bool, err error)
	SaveResponse(ctx context.Context, key string, status int, body []byte) error
}
