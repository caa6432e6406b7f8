package orders

import (
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// Status enumerates order lifecycle states.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the full order state machine. Adding a status or an edge
// means touching this table and nothing else.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: nil,
	StatusCancelled: nil,
}

// CanTransition reports whether from→to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID                 int64       `json:"id" db:"id"`
	OrderNumber        string      `json:"order_number" db:"order_number"`
	CustomerID         int64       `json:"customer_id" db:"customer_id"`
	Currency           string      `json:"currency" db:"currency"`
	Status             Status      `json:"status" db:"status"`
	Items              []OrderItem `json:"items,omitempty" db:"-"`
	Subtotal           float64     `json:"subtotal" db:"subtotal"`
	TaxRate            float64     `json:"tax_rate" db:"tax_rate"`
	TaxAmount          float64     `json:"tax_amount" db:"tax_amount"`
	ShippingCost       float64     `json:"shipping_cost" db:"shipping_cost"`
	TotalAmount        float64     `json:"total_amount" db:"total_amount"`
	Notes              *string     `json:"notes,omitempty" db:"notes"`
	IsActive           bool        `json:"is_active" db:"is_active"`
	TrackingReference  *string     `json:"tracking_reference,omitempty" db:"tracking_reference"`
	CancellationReason *string     `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	ConfirmedAt        *time.Time  `json:"confirmed_at,omitempty" db:"confirmed_at"`
	ShippedAt          *time.Time  `json:"shipped_at,omitempty" db:"shipped_at"`
	DeliveredAt        *time.Time  `json:"delivered_at,omitempty" db:"delivered_at"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt          time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at" db:"updated_at"`
}

// OrderItem exists only by composition under its order and is mutable
// only while the order is DRAFT.
type OrderItem struct {
	ID        int64   `json:"id" db:"id"`
	OrderID   int64   `json:"order_id" db:"order_id"`
	ProductID int64   `json:"product_id" db:"product_id"`
	Quantity  int     `json:"quantity" db:"quantity"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
	Discount  float64 `json:"discount" db:"discount"`
	LineTotal float64 `json:"line_total" db:"line_total"`
}

// Validate returns all advisory structural violations without failing.
// It backs dry-run checks; the throwing paths guard creation itself.
func (o *Order) Validate() []string {
	var violations []string
	if o.CustomerID == 0 {
		violations = append(violations, "order has no customer")
	}
	if len(o.Items) == 0 {
		violations = append(violations, "order has no items")
	}
	for i, item := range o.Items {
		expected := float64(item.Quantity)*item.UnitPrice - item.Discount
		if !ledger.AmountsEqual(item.LineTotal, expected) {
			violations = append(violations, "item "+strconv.Itoa(i)+" line total does not match quantity*price-discount")
		}
	}
	if o.TotalAmount <= 0 {
		violations = append(violations, "order total must be positive")
	}
	expectedTotal := o.Subtotal + o.TaxAmount + o.ShippingCost
	if !ledger.AmountsEqual(o.TotalAmount, expectedTotal) {
		violations = append(violations, "order total does not match subtotal+tax+shipping")
	}
	return violations
}
