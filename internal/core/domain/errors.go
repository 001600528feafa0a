package domain

import "errors"

// Error taxonomy shared by the stores, the orchestrator and the HTTP layer.
// Handlers map these to status codes with errors.Is, so wrap them with
// fmt.Errorf("...: %w", err) rather than replacing them.
var (
	// ErrNotFound means the entity does not exist or is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the entity is not in the lifecycle state the
	// operation requires (including the loser of a concurrent payment race).
	ErrInvalidState = errors.New("invalid state")

	// ErrAmountMismatch means the submitted amount diverges from the bill's
	// current amount. Partial payments are not supported.
	ErrAmountMismatch = errors.New("amount mismatch")

	// ErrNoPaymentMethod means no method was selected and no default exists.
	ErrNoPaymentMethod = errors.New("no payment method")

	// ErrAlreadyInProgress means a processing transaction already references
	// the bill.
	ErrAlreadyInProgress = errors.New("payment already in progress")

	// ErrSettlementDeclined means the settlement network rejected the payment.
	ErrSettlementDeclined = errors.New("settlement declined")

	// ErrSettlementTimeout means the settlement network did not answer in time.
	ErrSettlementTimeout = errors.New("settlement timeout")

	// ErrConflict means a delete was blocked by a referencing record.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized means the bearer credential is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicateEmail means a user with that email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
)
