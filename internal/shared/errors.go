package shared

import "errors"

// Failure taxonomy for the order-to-cash core. Services wrap these with
// fmt.Errorf("%w: ...") to add context; callers match with errors.Is.
var (
	// ErrInvalidAmount indicates a malformed or out-of-range numeric input.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidState indicates an operation not permitted in the current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidTransition indicates a status change outside the transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotFound indicates the referenced entity is absent or inactive.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a business-key uniqueness violation.
	ErrConflict = errors.New("conflict")
	// ErrCreditExceeded indicates the customer credit gate rejected the exposure.
	ErrCreditExceeded = errors.New("credit limit exceeded")
	// ErrInsufficientStock indicates an outbound movement would drive stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrOverpayment indicates a payment exceeding the invoice balance due.
	ErrOverpayment = errors.New("payment exceeds balance due")
	// ErrForbidden indicates the authorization gate denied the operation.
	ErrForbidden = errors.New("forbidden")
)
