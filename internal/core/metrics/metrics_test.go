package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
	"github.com/ibrahimkeyboad/billpay/internal/core/payments"
	"github.com/ibrahimkeyboad/billpay/internal/core/settlement"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var now = time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)

func addBill(t *testing.T, store *storage.MemoryStore, userID uuid.UUID, amount string, due time.Time, status domain.BillStatus) domain.Bill {
	t.Helper()
	bill := domain.Bill{
		ID:         uuid.New(),
		UserID:     userID,
		BillerName: "Acme Utilities",
		Amount:     dec(amount),
		DueDate:    due,
		Status:     status,
		Category:   "utility",
		CreatedAt:  now,
	}
	require.NoError(t, store.CreateBill(context.Background(), bill))
	return bill
}

func addTx(t *testing.T, store *storage.MemoryStore, userID uuid.UUID, amount string, ts time.Time, status domain.TransactionStatus) {
	t.Helper()
	require.NoError(t, store.RecordTransaction(context.Background(), domain.Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		BillID:    uuid.New(),
		Amount:    dec(amount),
		Status:    status,
		Timestamp: ts,
	}))
}

func TestComputeMetrics_Empty(t *testing.T) {
	store := storage.NewMemoryStore()
	agg := NewAggregator(store)

	d, err := agg.ComputeMetrics(context.Background(), uuid.New(), now)
	require.NoError(t, err)

	assert.True(t, d.TotalDue.IsZero())
	assert.Nil(t, d.NextDueDate, "no pending bills means no next due date")
	assert.True(t, d.MonthlyTotal.IsZero())
	assert.Zero(t, d.MethodCount)
	assert.Empty(t, d.RecentTransactions)
}

func TestComputeMetrics_TotalDueAndNextDue(t *testing.T) {
	store := storage.NewMemoryStore()
	userID := uuid.New()

	addBill(t, store, userID, "127.45", now.Add(72*time.Hour), domain.BillPending)
	addBill(t, store, userID, "50.00", now.Add(24*time.Hour), domain.BillPending)
	addBill(t, store, userID, "999.99", now.Add(48*time.Hour), domain.BillPaid)    // paid: excluded
	addBill(t, store, userID, "10.00", now.Add(-24*time.Hour), domain.BillOverdue) // overdue: excluded
	addBill(t, store, uuid.New(), "333.33", now, domain.BillPending)               // other user

	d, err := NewAggregator(store).ComputeMetrics(context.Background(), userID, now)
	require.NoError(t, err)

	assert.True(t, d.TotalDue.Equal(dec("177.45")), "got %s", d.TotalDue)
	require.NotNil(t, d.NextDueDate)
	assert.True(t, d.NextDueDate.Equal(now.Add(24*time.Hour)))
}

func TestComputeMetrics_MonthlyTotal(t *testing.T) {
	store := storage.NewMemoryStore()
	userID := uuid.New()

	addTx(t, store, userID, "40.00", now, domain.TxCompleted)
	addTx(t, store, userID, "60.00", now.AddDate(0, 0, -10), domain.TxCompleted)
	addTx(t, store, userID, "100.00", now.AddDate(0, -1, 0), domain.TxCompleted) // last month
	addTx(t, store, userID, "75.00", now, domain.TxFailed)                       // failed: excluded
	addTx(t, store, userID, "25.00", now, domain.TxProcessing)                   // in flight: excluded

	d, err := NewAggregator(store).ComputeMetrics(context.Background(), userID, now)
	require.NoError(t, err)
	assert.True(t, d.MonthlyTotal.Equal(dec("100.00")), "got %s", d.MonthlyTotal)
}

func TestComputeMetrics_MethodCountAndRecent(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	for i := 0; i < 2; i++ {
		require.NoError(t, store.CreateMethod(ctx, domain.PaymentMethod{
			ID: uuid.New(), UserID: userID, Kind: domain.KindCard, CreatedAt: now,
		}))
	}
	for i := 0; i < 7; i++ {
		addTx(t, store, userID, "5.00", now.Add(time.Duration(i)*time.Minute), domain.TxCompleted)
	}

	d, err := NewAggregator(store).ComputeMetrics(ctx, userID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, d.MethodCount)
	require.Len(t, d.RecentTransactions, 5)
	// Newest first.
	for i := 1; i < len(d.RecentTransactions); i++ {
		assert.True(t, d.RecentTransactions[i].Timestamp.Before(d.RecentTransactions[i-1].Timestamp))
	}
}

// After a successful payment the total due drops by exactly the paid
// bill's amount.
func TestComputeMetrics_AfterPayment(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	bill := addBill(t, store, userID, "127.45", now.Add(48*time.Hour), domain.BillPending)
	addBill(t, store, userID, "60.00", now.Add(96*time.Hour), domain.BillPending)
	require.NoError(t, store.CreateMethod(ctx, domain.PaymentMethod{
		ID: uuid.New(), UserID: userID, Kind: domain.KindCard, IsDefault: true, CreatedAt: now,
	}))

	agg := NewAggregator(store)
	before, err := agg.ComputeMetrics(ctx, userID, now)
	require.NoError(t, err)

	orch := payments.NewOrchestrator(store, settlement.NewNetworkGateway(0), time.Second)
	_, err = orch.SubmitPayment(ctx, userID, bill.ID, uuid.Nil, dec("127.45"))
	require.NoError(t, err)

	after, err := agg.ComputeMetrics(ctx, userID, now)
	require.NoError(t, err)
	assert.True(t, before.TotalDue.Sub(after.TotalDue).Equal(dec("127.45")))
}
