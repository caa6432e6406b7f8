package orders

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/currency"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/customers"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const reservationReason = "order reservation"

// CreditGate validates a proposed exposure against the customer limit.
type CreditGate interface {
	CheckCredit(customer *customers.Customer, amount float64) bool
}

// Service owns the order aggregate: creation, item mutation while DRAFT,
// and the status state machine with its inventory side effects. Every
// mutating operation is one transaction covering the order row, the
// movement ledger, and the audit event.
type Service struct {
	repo         Repository
	customerRepo customers.Repository
	productRepo  products.Repository
	creditGate   CreditGate
	recorder     *audit.Recorder
	failDB       audit.Execer
}

// NewService builds Service.
func NewService(
	repo Repository,
	customerRepo customers.Repository,
	productRepo products.Repository,
	creditGate CreditGate,
	recorder *audit.Recorder,
	failDB audit.Execer,
) *Service {
	return &Service{
		repo:         repo,
		customerRepo: customerRepo,
		productRepo:  productRepo,
		creditGate:   creditGate,
		recorder:     recorder,
		failDB:       failDB,
	}
}

// Create persists a new DRAFT order with its items, reserves stock with
// one OUT movement per item, and appends the CREATE audit event. Nothing
// commits if any step fails.
func (s *Service) Create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	order, err := s.create(ctx, req)
	if err != nil {
		// No order row exists yet, so the resource id stays empty and
		// the requesting customer goes into the payload instead.
		s.recorder.Record(ctx, s.failDB, audit.Event{
			EventType:    audit.EventTypeOperationFailed,
			ResourceType: "order",
			Action:       "create",
			NewValues:    map[string]any{"error": err.Error(), "customer_id": req.CustomerID},
			Severity:     audit.SeverityMedium,
		})
		return nil, err
	}
	return order, nil
}

func (s *Service) create(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if _, err := currency.ParseISO(req.Currency); err != nil {
		return nil, fmt.Errorf("%w: unknown currency %q", shared.ErrInvalidAmount, req.Currency)
	}
	if req.TaxRate < 0 || req.ShippingCost < 0 {
		return nil, fmt.Errorf("%w: tax rate and shipping cost must not be negative", shared.ErrInvalidAmount)
	}

	customer, err := s.customerRepo.Get(ctx, req.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("verify customer: %w", err)
	}
	if !customer.IsActive() {
		return nil, fmt.Errorf("%w: customer %s is not active", shared.ErrNotFound, customer.Code)
	}

	productIDs := make([]int64, 0, len(req.Items))
	for _, item := range req.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	known, err := s.productRepo.GetMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("verify products: %w", err)
	}
	for _, item := range req.Items {
		p, ok := known[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, item.ProductID)
		}
		if !p.IsActive {
			return nil, fmt.Errorf("%w: product %s is not active", shared.ErrNotFound, p.SKU)
		}
	}

	items := make([]OrderItem, 0, len(req.Items))
	var subtotal float64
	for i, itemReq := range req.Items {
		lineTotal, err := ledger.LineTotal(itemReq.Quantity, itemReq.UnitPrice, itemReq.Discount)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		subtotal += lineTotal
		items = append(items, OrderItem{
			ProductID: itemReq.ProductID,
			Quantity:  itemReq.Quantity,
			UnitPrice: itemReq.UnitPrice,
			Discount:  itemReq.Discount,
			LineTotal: lineTotal,
		})
	}
	taxAmount := ledger.TaxAmount(subtotal, req.TaxRate)
	totalAmount := subtotal + taxAmount + req.ShippingCost

	if !s.creditGate.CheckCredit(customer, totalAmount) {
		return nil, fmt.Errorf("%w: order total %.2f against limit %.2f",
			shared.ErrCreditExceeded, totalAmount, customer.CreditLimit)
	}

	order := Order{
		CustomerID:   req.CustomerID,
		Currency:     req.Currency,
		Status:       StatusDraft,
		Subtotal:     subtotal,
		TaxRate:      req.TaxRate,
		TaxAmount:    taxAmount,
		ShippingCost: req.ShippingCost,
		TotalAmount:  totalAmount,
		Notes:        req.Notes,
		IsActive:     true,
	}

	var orderID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextDocNumber(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		orderID, err = tx.CreateOrder(ctx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = orderID
			itemID, err := tx.InsertItem(ctx, items[i])
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			items[i].ID = itemID

			_, err = inventory.Apply(ctx, tx.Ledger(), inventory.MovementInput{
				ProductID: items[i].ProductID,
				Type:      inventory.MovementOut,
				Quantity:  items[i].Quantity,
				Reason:    reservationReason,
				Reference: number,
			})
			if err != nil {
				return err
			}
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeCreate,
			ResourceType: "order",
			ResourceID:   number,
			Action:       "create",
			NewValues: map[string]any{
				"customer_id":  req.CustomerID,
				"currency":     req.Currency,
				"subtotal":     subtotal,
				"tax_amount":   taxAmount,
				"total_amount": totalAmount,
				"item_count":   len(items),
			},
			Severity: audit.SeverityMedium,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, orderID)
}

// AddItem appends an item to a DRAFT order, reserves its stock, and
// recalculates the order totals in the same transaction.
func (s *Service) AddItem(ctx context.Context, orderID int64, req CreateOrderItemReq) (*Order, error) {
	order, err := s.addItem(ctx, orderID, req)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "order", strconv.FormatInt(orderID, 10), "add_item", err)
		return nil, err
	}
	return order, nil
}

func (s *Service) addItem(ctx context.Context, orderID int64, req CreateOrderItemReq) (*Order, error) {
	lineTotal, err := ledger.LineTotal(req.Quantity, req.UnitPrice, req.Discount)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.Get(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("verify product: %w", err)
	}
	if !product.IsActive {
		return nil, fmt.Errorf("%w: product %s is not active", shared.ErrNotFound, product.SKU)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("%w: items can only change while the order is DRAFT", shared.ErrInvalidState)
		}

		item := OrderItem{
			OrderID:   orderID,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			Discount:  req.Discount,
			LineTotal: lineTotal,
		}
		if _, err := tx.InsertItem(ctx, item); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}

		if _, err := inventory.Apply(ctx, tx.Ledger(), inventory.MovementInput{
			ProductID: req.ProductID,
			Type:      inventory.MovementOut,
			Quantity:  req.Quantity,
			Reason:    reservationReason,
			Reference: order.OrderNumber,
		}); err != nil {
			return err
		}

		subtotal := order.Subtotal + lineTotal
		if err := s.applyTotals(ctx, tx, order, subtotal); err != nil {
			return err
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeUpdate,
			ResourceType: "order",
			ResourceID:   order.OrderNumber,
			Action:       "add_item",
			NewValues: map[string]any{
				"product_id": req.ProductID,
				"quantity":   req.Quantity,
				"line_total": lineTotal,
			},
			Severity: audit.SeverityLow,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orderID)
}

// UpdateItem changes quantity, price, or discount of a DRAFT order item,
// recording the matching inventory delta.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID int64, req UpdateItemRequest) (*Order, error) {
	order, err := s.updateItem(ctx, orderID, itemID, req)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "order", strconv.FormatInt(orderID, 10), "update_item", err)
		return nil, err
	}
	return order, nil
}

func (s *Service) updateItem(ctx context.Context, orderID, itemID int64, req UpdateItemRequest) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("%w: items can only change while the order is DRAFT", shared.ErrInvalidState)
		}

		var existing *OrderItem
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				existing = &order.Items[i]
				break
			}
		}
		if existing == nil {
			return fmt.Errorf("%w: order item %d", shared.ErrNotFound, itemID)
		}

		updated := *existing
		if req.Quantity != nil {
			updated.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			updated.UnitPrice = *req.UnitPrice
		}
		if req.Discount != nil {
			updated.Discount = *req.Discount
		}
		lineTotal, err := ledger.LineTotal(updated.Quantity, updated.UnitPrice, updated.Discount)
		if err != nil {
			return err
		}
		updated.LineTotal = lineTotal

		if err := tx.UpdateItem(ctx, updated); err != nil {
			return fmt.Errorf("update order item: %w", err)
		}

		// A quantity increase reserves more stock, a decrease releases it.
		if delta := updated.Quantity - existing.Quantity; delta != 0 {
			movType := inventory.MovementOut
			qty := delta
			if delta < 0 {
				movType = inventory.MovementIn
				qty = -delta
			}
			if _, err := inventory.Apply(ctx, tx.Ledger(), inventory.MovementInput{
				ProductID: existing.ProductID,
				Type:      movType,
				Quantity:  qty,
				Reason:    reservationReason,
				Reference: order.OrderNumber,
			}); err != nil {
				return err
			}
		}

		subtotal := order.Subtotal - existing.LineTotal + lineTotal
		if err := s.applyTotals(ctx, tx, order, subtotal); err != nil {
			return err
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeUpdate,
			ResourceType: "order",
			ResourceID:   order.OrderNumber,
			Action:       "update_item",
			OldValues: map[string]any{
				"quantity":   existing.Quantity,
				"unit_price": existing.UnitPrice,
				"discount":   existing.Discount,
			},
			NewValues: map[string]any{
				"quantity":   updated.Quantity,
				"unit_price": updated.UnitPrice,
				"discount":   updated.Discount,
			},
			Severity: audit.SeverityLow,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orderID)
}

// RemoveItem deletes a DRAFT order item and releases its reserved stock.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID int64) (*Order, error) {
	order, err := s.removeItem(ctx, orderID, itemID)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "order", strconv.FormatInt(orderID, 10), "remove_item", err)
		return nil, err
	}
	return order, nil
}

func (s *Service) removeItem(ctx context.Context, orderID, itemID int64) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != StatusDraft {
			return fmt.Errorf("%w: items can only change while the order is DRAFT", shared.ErrInvalidState)
		}

		var existing *OrderItem
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				existing = &order.Items[i]
				break
			}
		}
		if existing == nil {
			return fmt.Errorf("%w: order item %d", shared.ErrNotFound, itemID)
		}

		if err := tx.DeleteItem(ctx, orderID, itemID); err != nil {
			return fmt.Errorf("delete order item: %w", err)
		}

		if _, err := inventory.Apply(ctx, tx.Ledger(), inventory.MovementInput{
			ProductID: existing.ProductID,
			Type:      inventory.MovementIn,
			Quantity:  existing.Quantity,
			Reason:    "order item removed",
			Reference: order.OrderNumber,
		}); err != nil {
			return err
		}

		subtotal := order.Subtotal - existing.LineTotal
		if err := s.applyTotals(ctx, tx, order, subtotal); err != nil {
			return err
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeUpdate,
			ResourceType: "order",
			ResourceID:   order.OrderNumber,
			Action:       "remove_item",
			OldValues: map[string]any{
				"product_id": existing.ProductID,
				"quantity":   existing.Quantity,
				"line_total": existing.LineTotal,
			},
			Severity: audit.SeverityLow,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orderID)
}

// UpdateStatus moves the order along the state machine, stamping the
// matching timestamp and, on cancellation, releasing all reserved stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID int64, target Status, tc TransitionContext) (*Order, error) {
	order, err := s.updateStatus(ctx, orderID, target, tc)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "order", strconv.FormatInt(orderID, 10), "update_status", err)
		return nil, err
	}
	return order, nil
}

func (s *Service) updateStatus(ctx context.Context, orderID int64, target Status, tc TransitionContext) (*Order, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.Status, target) {
			return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, order.Status, target)
		}

		now := time.Now().UTC()
		update := StatusUpdate{Status: target}
		severity := audit.SeverityMedium

		switch target {
		case StatusConfirmed:
			update.ConfirmedAt = &now
		case StatusShipped:
			update.ShippedAt = &now
			update.TrackingReference = tc.TrackingReference
		case StatusDelivered:
			update.DeliveredAt = &now
		case StatusCancelled:
			update.CancelledAt = &now
			update.CancellationReason = tc.CancellationReason
			inactive := false
			update.IsActive = &inactive
			severity = audit.SeverityHigh

			// Mirror the original OUT reservations so stock after cancel
			// equals stock before the order existed.
			for _, item := range order.Items {
				if _, err := inventory.Apply(ctx, tx.Ledger(), inventory.MovementInput{
					ProductID: item.ProductID,
					Type:      inventory.MovementIn,
					Quantity:  item.Quantity,
					Reason:    "order cancelled",
					Reference: order.OrderNumber,
				}); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateStatus(ctx, orderID, update); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeStatusChange,
			ResourceType: "order",
			ResourceID:   order.OrderNumber,
			Action:       "update_status",
			OldValues:    map[string]any{"status": order.Status},
			NewValues:    map[string]any{"status": target},
			Severity:     severity,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, orderID)
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns an order by its business key.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns orders matching the filter.
func (s *Service) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) applyTotals(ctx context.Context, tx TxRepository, order *Order, subtotal float64) error {
	taxAmount := ledger.TaxAmount(subtotal, order.TaxRate)
	totalAmount := subtotal + taxAmount + order.ShippingCost
	if err := tx.UpdateTotals(ctx, order.ID, subtotal, taxAmount, totalAmount); err != nil {
		return fmt.Errorf("update order totals: %w", err)
	}
	return nil
}
