// Package metrics derives the dashboard figures from the bill ledger and
// the transaction record. It holds no state of its own; every call reads
// the stores as of now.
package metrics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

const recentTransactionLimit = 5

// Dashboard is the read-side summary shown on the home screen.
type Dashboard struct {
	TotalDue           decimal.Decimal      `json:"total_due"`
	NextDueDate        *time.Time           `json:"next_due_date,omitempty"`
	MonthlyTotal       decimal.Decimal      `json:"monthly_total"`
	MethodCount        int                  `json:"method_count"`
	RecentTransactions []domain.Transaction `json:"recent_transactions"`
}

type Aggregator struct {
	Store storage.Store
}

func NewAggregator(store storage.Store) *Aggregator {
	return &Aggregator{Store: store}
}

// ComputeMetrics builds the dashboard for a user as of now:
// TotalDue sums pending bills, NextDueDate is the earliest pending due
// date, MonthlyTotal sums completed transactions inside now's calendar
// month (UTC), MethodCount counts stored payment methods.
func (a *Aggregator) ComputeMetrics(ctx context.Context, userID uuid.UUID, now time.Time) (Dashboard, error) {
	bills, err := a.Store.ListBills(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		TotalDue:           decimal.Zero,
		MonthlyTotal:       decimal.Zero,
		RecentTransactions: []domain.Transaction{},
	}

	for _, b := range bills {
		if b.Status != domain.BillPending {
			continue
		}
		d.TotalDue = d.TotalDue.Add(b.Amount)
		if d.NextDueDate == nil || b.DueDate.Before(*d.NextDueDate) {
			due := b.DueDate
			d.NextDueDate = &due
		}
	}

	txs, err := a.Store.ListTransactions(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	for _, tx := range txs {
		if tx.Status != domain.TxCompleted {
			continue
		}
		if ts := tx.Timestamp.UTC(); !ts.Before(monthStart) && ts.Before(monthEnd) {
			d.MonthlyTotal = d.MonthlyTotal.Add(tx.Amount)
		}
	}
	if len(txs) > recentTransactionLimit {
		txs = txs[:recentTransactionLimit]
	}
	d.RecentTransactions = txs

	methods, err := a.Store.ListMethods(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	d.MethodCount = len(methods)

	return d, nil
}
