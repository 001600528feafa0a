package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxProcessing TransactionStatus = "processing"
	TxCompleted  TransactionStatus = "completed"
	TxFailed     TransactionStatus = "failed"
)

// Transaction is an immutable record of one payment attempt against a bill.
// It is created in processing before the settlement network is called and
// finalized exactly once to completed or failed. The amount is copied from
// the bill at creation time. ConfirmationCode is set iff completed.
type Transaction struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"user_id"`
	BillID           uuid.UUID         `json:"bill_id"`
	PaymentMethodID  uuid.UUID         `json:"payment_method_id"`
	Amount           decimal.Decimal   `json:"amount"`
	Status           TransactionStatus `json:"status"`
	ConfirmationCode string            `json:"confirmation_code,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}
