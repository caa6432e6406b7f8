// Package invoices owns the invoice aggregate: creation against an
// eligible order, the invoice status state machine, and payment
// allocation against the balance due.
package invoices

import "time"

// Status is the invoice lifecycle state.
type Status string

const (
	StatusDraft         Status = "DRAFT"
	StatusSent          Status = "SENT"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusOverdue       Status = "OVERDUE"
	StatusCancelled     Status = "CANCELLED"
	StatusVoid          Status = "VOID"
)

// transitions is the allowed edge set of the invoice state machine.
// VOID is the only terminal state; PARTIALLY_PAID loops on itself as
// further partial payments arrive.
var transitions = map[Status][]Status{
	StatusDraft:         {StatusSent, StatusCancelled, StatusVoid},
	StatusSent:          {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled, StatusVoid},
	StatusPartiallyPaid: {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled, StatusVoid},
	StatusPaid:          {StatusVoid},
	StatusOverdue:       {StatusPartiallyPaid, StatusPaid, StatusCancelled, StatusVoid},
	StatusCancelled:     {StatusVoid},
	StatusVoid:          nil,
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// PaymentStatus of a recorded payment. Only completed payments exist;
// pending and failed attempts never reach the ledger.
type PaymentStatus string

const PaymentCompleted PaymentStatus = "COMPLETED"

// Payment methods accepted against an invoice.
const (
	MethodBankTransfer = "BANK_TRANSFER"
	MethodCard         = "CARD"
	MethodCash         = "CASH"
	MethodCheck        = "CHECK"
)

// Invoice is the receivable raised against exactly one order.
// BalanceDue always equals TotalAmount-PaidAmount, except after a VOID
// transition which forces it to zero.
type Invoice struct {
	ID                 int64      `json:"id" db:"id"`
	InvoiceNumber      string     `json:"invoice_number" db:"invoice_number"`
	OrderID            int64      `json:"order_id" db:"order_id"`
	CustomerID         int64      `json:"customer_id" db:"customer_id"`
	Status             Status     `json:"status" db:"status"`
	Subtotal           float64    `json:"subtotal" db:"subtotal"`
	TaxAmount          float64    `json:"tax_amount" db:"tax_amount"`
	TotalAmount        float64    `json:"total_amount" db:"total_amount"`
	PaidAmount         float64    `json:"paid_amount" db:"paid_amount"`
	BalanceDue         float64    `json:"balance_due" db:"balance_due"`
	DueDate            time.Time  `json:"due_date" db:"due_date"`
	Notes              *string    `json:"notes,omitempty" db:"notes"`
	CancellationReason *string    `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	SentAt             *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	PaidAt             *time.Time `json:"paid_at,omitempty" db:"paid_at"`
	OverdueAt          *time.Time `json:"overdue_at,omitempty" db:"overdue_at"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	VoidedAt           *time.Time `json:"voided_at,omitempty" db:"voided_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`

	Payments []Payment `json:"payments,omitempty" db:"-"`
}

// DaysOverdue returns how many whole days past due the invoice is at
// the given instant, zero when not yet due.
func (inv *Invoice) DaysOverdue(now time.Time) int {
	if !now.After(inv.DueDate) {
		return 0
	}
	return int(now.Sub(inv.DueDate).Hours() / 24)
}

// Payment is one immutable completed payment against an invoice.
type Payment struct {
	ID          int64         `json:"id" db:"id"`
	InvoiceID   int64         `json:"invoice_id" db:"invoice_id"`
	Amount      float64       `json:"amount" db:"amount"`
	Method      string        `json:"method" db:"method"`
	PaymentDate time.Time     `json:"payment_date" db:"payment_date"`
	Reference   *string       `json:"reference,omitempty" db:"reference"`
	Notes       *string       `json:"notes,omitempty" db:"notes"`
	Status      PaymentStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
}
