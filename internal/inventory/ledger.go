package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// TxLedger is the transactional surface the movement rules run against.
// The inventory repository implements it for standalone adjustments; the
// order repository implements it so order mutations write their stock
// side effects inside the same transaction as the order itself.
type TxLedger interface {
	LockProduct(ctx context.Context, productID int64) error
	SumMovements(ctx context.Context, productID int64) (int, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

// Apply validates and appends one movement through tx. For OUT and
// negative adjustments it first locks the product row and checks the
// running sum, so concurrent outbound movements serialize and stock is
// never observed negative after commit.
func Apply(ctx context.Context, tx TxLedger, input MovementInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, fmt.Errorf("%w: product required", shared.ErrInvalidAmount)
	}
	if input.Reference == "" {
		return Movement{}, fmt.Errorf("%w: movement reference required", shared.ErrInvalidAmount)
	}

	var delta int
	switch input.Type {
	case MovementIn:
		if input.Quantity <= 0 {
			return Movement{}, fmt.Errorf("%w: inbound quantity must be positive", shared.ErrInvalidAmount)
		}
		delta = input.Quantity
	case MovementOut:
		if input.Quantity <= 0 {
			return Movement{}, fmt.Errorf("%w: outbound quantity must be positive", shared.ErrInvalidAmount)
		}
		delta = -input.Quantity
	case MovementAdjustment:
		if input.Quantity == 0 {
			return Movement{}, fmt.Errorf("%w: adjustment must be non zero", shared.ErrInvalidAmount)
		}
		delta = input.Quantity
	default:
		return Movement{}, fmt.Errorf("%w: unknown movement type %q", shared.ErrInvalidAmount, input.Type)
	}

	if err := tx.LockProduct(ctx, input.ProductID); err != nil {
		return Movement{}, err
	}

	if delta < 0 {
		current, err := tx.SumMovements(ctx, input.ProductID)
		if err != nil {
			return Movement{}, err
		}
		if current+delta < 0 {
			return Movement{}, fmt.Errorf("%w: product %d has %d on hand, requested %d",
				shared.ErrInsufficientStock, input.ProductID, current, -delta)
		}
	}

	movement := Movement{
		ProductID:     input.ProductID,
		Type:          input.Type,
		QuantityDelta: delta,
		Reason:        input.Reason,
		Reference:     input.Reference,
		At:            time.Now().UTC(),
	}
	id, err := tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, fmt.Errorf("insert movement: %w", err)
	}
	movement.ID = id
	return movement, nil
}
