// Package wizard models the multi-step payment flow (pick biller, enter
// details, confirm, submit) as an explicit finite-state machine with
// guarded transitions, instead of the ad hoc boolean flags a UI tends to
// grow.
package wizard

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type State string

const (
	StateSelectBiller State = "select_biller"
	StateEnterDetails State = "enter_details"
	StateConfirm      State = "confirm"
	StateSubmitting   State = "submitting"
	StateResult       State = "result"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
)

// Wizard is one user's walk through the payment flow. The zero value is
// not usable; start with New.
type Wizard struct {
	state State

	BillerName string
	BillID     uuid.UUID
	MethodID   uuid.UUID
	Amount     decimal.Decimal

	Outcome Outcome
}

func New() *Wizard {
	return &Wizard{state: StateSelectBiller}
}

func (w *Wizard) State() State { return w.state }

func (w *Wizard) transitionErr(to State) error {
	return fmt.Errorf("cannot move from %s to %s", w.state, to)
}

// SelectBiller records the chosen biller and bill.
func (w *Wizard) SelectBiller(billerName string, billID uuid.UUID) error {
	if w.state != StateSelectBiller {
		return w.transitionErr(StateEnterDetails)
	}
	if billerName == "" || billID == uuid.Nil {
		return fmt.Errorf("a biller must be selected")
	}
	w.BillerName = billerName
	w.BillID = billID
	w.state = StateEnterDetails
	return nil
}

// EnterDetails records the amount and payment method. methodID may be Nil
// to use the default method.
func (w *Wizard) EnterDetails(amount decimal.Decimal, methodID uuid.UUID) error {
	if w.state != StateEnterDetails {
		return w.transitionErr(StateConfirm)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	w.Amount = amount
	w.MethodID = methodID
	w.state = StateConfirm
	return nil
}

// Confirm locks the entries in; the next step is submission. The guard
// re-checks the selections so a wizard cannot be driven here with a zero
// amount or no biller.
func (w *Wizard) Confirm() error {
	if w.state != StateConfirm {
		return w.transitionErr(StateSubmitting)
	}
	if w.BillID == uuid.Nil || !w.Amount.IsPositive() {
		return fmt.Errorf("confirmation requires a selected biller and a valid amount")
	}
	w.state = StateSubmitting
	return nil
}

// Finish records the payment outcome. Result is terminal.
func (w *Wizard) Finish(outcome Outcome) error {
	if w.state != StateSubmitting {
		return w.transitionErr(StateResult)
	}
	w.Outcome = outcome
	w.state = StateResult
	return nil
}

// Back returns to the previous editable step. Submission cannot be backed
// out of once dispatched.
func (w *Wizard) Back() error {
	switch w.state {
	case StateEnterDetails:
		w.state = StateSelectBiller
	case StateConfirm:
		w.state = StateEnterDetails
	default:
		return fmt.Errorf("cannot go back from %s", w.state)
	}
	return nil
}
