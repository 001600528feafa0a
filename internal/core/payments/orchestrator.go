// Package payments holds the payment orchestrator: the stateless
// coordinator that turns a payment request into a consistent state change
// across the bill ledger and the transaction record, delegating the actual
// funds movement to the settlement gateway.
package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/billpay/internal/adapter/storage"
	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
	"github.com/ibrahimkeyboad/billpay/internal/core/security"
	"github.com/ibrahimkeyboad/billpay/internal/core/settlement"
)

type Orchestrator struct {
	Store   storage.Store
	Gateway settlement.Gateway

	// SettlementTimeout bounds the external authorize call. A timeout is
	// treated exactly like a decline: transaction failed, bill untouched.
	SettlementTimeout time.Duration

	locks *billLocks
}

func NewOrchestrator(store storage.Store, gateway settlement.Gateway, settlementTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		Store:             store,
		Gateway:           gateway,
		SettlementTimeout: settlementTimeout,
		locks:             newBillLocks(),
	}
}

// SubmitPayment pays a pending bill. Pass uuid.Nil as methodID to use the
// caller's default payment method.
//
// Validation failures (ErrNotFound, ErrInvalidState, ErrAmountMismatch,
// ErrNoPaymentMethod, ErrAlreadyInProgress) happen before any write and
// leave no trace. Once validation passes, exactly one transaction row is
// created: completed together with the bill flipping to paid, or failed
// with the bill still pending. The call never returns with a transaction
// stuck in processing.
func (o *Orchestrator) SubmitPayment(ctx context.Context, userID, billID, methodID uuid.UUID, amount decimal.Decimal) (domain.Transaction, error) {
	// Serialize attempts against the same bill. The conditional writes in
	// the store would catch the race anyway; the lock just makes the loser
	// fail validation instead of burning a settlement call.
	o.locks.lock(billID)
	defer o.locks.unlock(billID)

	bill, err := o.Store.GetBill(ctx, userID, billID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if bill.Status != domain.BillPending {
		return domain.Transaction{}, fmt.Errorf("bill %s is %s: %w", billID, bill.Status, domain.ErrInvalidState)
	}
	if !amount.Equal(bill.Amount) {
		return domain.Transaction{}, fmt.Errorf("submitted %s, bill is %s: %w", amount, bill.Amount, domain.ErrAmountMismatch)
	}

	method, err := o.resolveMethod(ctx, userID, methodID)
	if err != nil {
		return domain.Transaction{}, err
	}

	inFlight, err := o.Store.HasProcessingTransaction(ctx, billID)
	if err != nil {
		return domain.Transaction{}, err
	}
	if inFlight {
		return domain.Transaction{}, domain.ErrAlreadyInProgress
	}

	// The processing row exists before the external call so a crash
	// mid-flight leaves an auditable record rather than silence.
	tx := domain.Transaction{
		ID:              uuid.New(),
		UserID:          userID,
		BillID:          billID,
		PaymentMethodID: method.ID,
		Amount:          bill.Amount,
		Status:          domain.TxProcessing,
		Timestamp:       time.Now().UTC(),
	}
	if err := o.Store.RecordTransaction(ctx, tx); err != nil {
		return domain.Transaction{}, err
	}

	authCtx, cancel := context.WithTimeout(ctx, o.SettlementTimeout)
	defer cancel()

	auth, authErr := o.Gateway.Authorize(authCtx, settlement.AuthRequest{
		UserID: userID,
		BillID: billID,
		Amount: bill.Amount,
		Method: method,
	})
	if authErr != nil {
		return o.failAttempt(ctx, tx, authErr)
	}

	code, err := security.ConfirmationCode()
	if err != nil {
		return o.failAttempt(ctx, tx, err)
	}

	if err := o.Store.CompletePayment(context.WithoutCancel(ctx), billID, tx.ID, code); err != nil {
		// Bill changed under us despite the lock (external writer). Finalize
		// the attempt as failed so nothing stays in processing.
		return o.failAttempt(ctx, tx, err)
	}

	tx.Status = domain.TxCompleted
	tx.ConfirmationCode = code
	slog.Info("payment completed",
		"bill_id", billID, "transaction_id", tx.ID,
		"amount", bill.Amount.String(), "confirmation", code, "gateway_ref", auth.Reference)
	return tx, nil
}

// failAttempt finalizes the transaction to failed and hands the cause back
// to the caller. A failure is never returned while the row is still
// processing. The write runs detached from the request context: a caller
// hanging up must not leave the row stuck.
func (o *Orchestrator) failAttempt(ctx context.Context, tx domain.Transaction, cause error) (domain.Transaction, error) {
	if normalized := normalizeSettlementErr(cause); normalized != nil {
		cause = normalized
	}
	if err := o.Store.FailTransaction(context.WithoutCancel(ctx), tx.ID); err != nil {
		slog.Error("could not finalize failed payment attempt", "transaction_id", tx.ID, "error", err)
	}
	tx.Status = domain.TxFailed
	slog.Warn("payment failed", "bill_id", tx.BillID, "transaction_id", tx.ID, "reason", cause)
	return tx, cause
}

func (o *Orchestrator) resolveMethod(ctx context.Context, userID, methodID uuid.UUID) (domain.PaymentMethod, error) {
	if methodID == uuid.Nil {
		return o.Store.DefaultMethod(ctx, userID)
	}
	return o.Store.GetMethod(ctx, userID, methodID)
}

func normalizeSettlementErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrSettlementTimeout
	case errors.Is(err, domain.ErrSettlementDeclined),
		errors.Is(err, domain.ErrSettlementTimeout),
		errors.Is(err, domain.ErrInvalidState):
		return err
	}
	return nil
}
