// Package ledger holds the numeric primitives shared by the order and
// invoice workflows: line totals, subtotals, tax, and tolerant amount
// comparison at currency-minor-unit precision.
package ledger

import (
	"fmt"
	"math"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AmountTolerance is the absolute tolerance for monetary comparisons.
const AmountTolerance = 0.01

// LineInput is the pricing portion of an order item.
type LineInput struct {
	Quantity  int
	UnitPrice float64
	Discount  float64
}

// LineTotal computes quantity*unitPrice - discount.
func LineTotal(quantity int, unitPrice, discount float64) (float64, error) {
	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be positive, got %d", shared.ErrInvalidAmount, quantity)
	}
	if unitPrice < 0 {
		return 0, fmt.Errorf("%w: unit price must not be negative", shared.ErrInvalidAmount)
	}
	if discount < 0 {
		return 0, fmt.Errorf("%w: discount must not be negative", shared.ErrInvalidAmount)
	}
	total := float64(quantity)*unitPrice - discount
	if total < 0 {
		return 0, fmt.Errorf("%w: discount exceeds line amount", shared.ErrInvalidAmount)
	}
	return total, nil
}

// Subtotal sums line totals over all items.
func Subtotal(items []LineInput) (float64, error) {
	var subtotal float64
	for i, item := range items {
		lineTotal, err := LineTotal(item.Quantity, item.UnitPrice, item.Discount)
		if err != nil {
			return 0, fmt.Errorf("item %d: %w", i, err)
		}
		subtotal += lineTotal
	}
	return subtotal, nil
}

// TaxAmount computes subtotal*rate. A zero rate is valid and yields zero.
func TaxAmount(subtotal, rate float64) float64 {
	if rate == 0 {
		return 0
	}
	return subtotal * rate
}

// AmountsEqual compares two amounts within AmountTolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) < AmountTolerance
}

// Round2 rounds to two decimal places for presentation and persistence.
func Round2(amount float64) float64 {
	return math.Round(amount*100) / 100
}
