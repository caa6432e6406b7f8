package inventory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/audit"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, Unit) error) error
	CurrentStock(ctx context.Context, productID int64) (int, error)
	ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error)
}

// Service coordinates standalone inventory operations: manual receipts,
// adjustments, and stock queries. Order-driven movements run through the
// order workflow's own transactions instead.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
	failDB   audit.Execer
}

// NewService builds Service. failDB is the out-of-transaction channel for
// failure events; success events join the movement's transaction.
func NewService(repo RepositoryPort, recorder *audit.Recorder, failDB audit.Execer) *Service {
	return &Service{repo: repo, recorder: recorder, failDB: failDB}
}

// RecordMovement appends one movement and its audit event atomically.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (Movement, error) {
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, unit Unit) error {
		applied, err := Apply(ctx, unit.Ledger, input)
		if err != nil {
			return err
		}
		movement = applied

		s.recorder.Record(ctx, unit.Audit, audit.Event{
			EventType:    audit.EventTypeCreate,
			ResourceType: "inventory_movement",
			ResourceID:   strconv.FormatInt(movement.ID, 10),
			Action:       fmt.Sprintf("movement_%s", movement.Type),
			NewValues: map[string]any{
				"product_id":     movement.ProductID,
				"quantity_delta": movement.QuantityDelta,
				"reason":         movement.Reason,
				"reference":      movement.Reference,
			},
			Severity: audit.SeverityLow,
		})
		return nil
	})
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "inventory_movement",
			strconv.FormatInt(input.ProductID, 10), "record_movement", err)
		return Movement{}, err
	}
	return movement, nil
}

// CurrentStock returns the running sum for a product.
func (s *Service) CurrentStock(ctx context.Context, productID int64) (int, error) {
	return s.repo.CurrentStock(ctx, productID)
}

// History returns a product's movement rows, newest first.
func (s *Service) History(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	return s.repo.ListMovements(ctx, productID, limit)
}
