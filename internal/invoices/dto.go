package invoices

import "time"

type CreateInvoiceRequest struct {
	OrderID    int64      `json:"order_id" validate:"required,gt=0"`
	CustomerID int64      `json:"customer_id" validate:"required,gt=0"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Notes      *string    `json:"notes,omitempty"`

	// Optional overrides; when nil the amounts are copied from the order.
	Subtotal    *float64 `json:"subtotal,omitempty" validate:"omitempty,gte=0"`
	TaxAmount   *float64 `json:"tax_amount,omitempty" validate:"omitempty,gte=0"`
	TotalAmount *float64 `json:"total_amount,omitempty" validate:"omitempty,gt=0"`
}

type AddPaymentRequest struct {
	Amount      float64    `json:"amount" validate:"required,gt=0"`
	Method      string     `json:"method" validate:"required,oneof=BANK_TRANSFER CARD CASH CHECK"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Reference   *string    `json:"reference,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// TransitionContext carries the optional inputs of a status change.
type TransitionContext struct {
	Notes              *string `json:"notes,omitempty"`
	CancellationReason *string `json:"cancellation_reason,omitempty"`
}

type ListInvoicesRequest struct {
	CustomerID *int64     `json:"customer_id,omitempty"`
	Status     *Status    `json:"status,omitempty"`
	DueFrom    *time.Time `json:"due_from,omitempty"`
	DueTo      *time.Time `json:"due_to,omitempty"`
	Page       int        `json:"page" validate:"gte=0"`
	PerPage    int        `json:"per_page" validate:"gte=0,lte=200"`
}
