// Package inventory keeps the append-only stock movement ledger. Current
// stock for a product is the signed sum of its movements; outbound
// movements that would drive the sum negative are rejected before commit.
package inventory

import "time"

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementIn represents an inbound movement.
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement.
	MovementOut MovementType = "OUT"
	// MovementAdjustment indicates a manual correction, signed either way.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Movement is one immutable ledger row. QuantityDelta carries the sign:
// IN and positive adjustments are positive, OUT and negative adjustments
// are negative.
type Movement struct {
	ID            int64        `json:"id" db:"id"`
	ProductID     int64        `json:"product_id" db:"product_id"`
	Type          MovementType `json:"type" db:"type"`
	QuantityDelta int          `json:"quantity_delta" db:"quantity_delta"`
	Reason        string       `json:"reason" db:"reason"`
	Reference     string       `json:"reference" db:"reference"`
	At            time.Time    `json:"at" db:"occurred_at"`
}

// MovementInput describes a requested movement. Quantity is the positive
// magnitude for IN/OUT and the signed delta for ADJUSTMENT. Reference
// names the order or operation that caused the movement so no row is
// orphaned.
type MovementInput struct {
	ProductID int64
	Type      MovementType
	Quantity  int
	Reason    string
	Reference string
}

// FoldStock computes current stock as a pure fold over a movement slice.
// Replay of the ledger through this function must equal the stored sum.
func FoldStock(movements []Movement) int {
	var stock int
	for _, m := range movements {
		stock += m.QuantityDelta
	}
	return stock
}
