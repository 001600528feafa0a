package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillOverdue BillStatus = "overdue"
)

// Bill categories mirror the biller types we onboard.
var BillCategories = map[string]bool{
	"utility":    true,
	"telecom":    true,
	"insurance":  true,
	"government": true,
}

// Bill is an amount owed to a biller by a user. Only the payment
// orchestrator moves a bill from pending to paid; only the overdue sweep
// moves it from pending to overdue. Paid is terminal.
type Bill struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	BillerName    string          `json:"biller_name"`
	AccountNumber string          `json:"account_number"` // masked for display
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"due_date"`
	Status        BillStatus      `json:"status"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BillPatch carries the fields a client may update on a pending bill.
// Nil pointers leave the field unchanged.
type BillPatch struct {
	BillerName  *string          `json:"biller_name"`
	Amount      *decimal.Decimal `json:"amount"`
	DueDate     *time.Time       `json:"due_date"`
	Category    *string          `json:"category"`
	Description *string          `json:"description"`
}

// Apply returns a copy of b with the patch fields applied.
func (p BillPatch) Apply(b Bill) Bill {
	if p.BillerName != nil {
		b.BillerName = *p.BillerName
	}
	if p.Amount != nil {
		b.Amount = *p.Amount
	}
	if p.DueDate != nil {
		b.DueDate = *p.DueDate
	}
	if p.Category != nil {
		b.Category = *p.Category
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	return b
}
