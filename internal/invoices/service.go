package invoices

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/orders"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// DefaultPaymentTerm is applied when a due date is not supplied.
const DefaultPaymentTerm = 30 * 24 * time.Hour

// Service owns the invoice aggregate: creation against an eligible
// order, the status state machine, and payment allocation. Every
// mutating operation is one transaction covering the invoice row, the
// payment rows, and the audit event.
type Service struct {
	repo      Repository
	orderRepo orders.Repository
	recorder  *audit.Recorder
	failDB    audit.Execer
}

// NewService builds Service.
func NewService(repo Repository, orderRepo orders.Repository, recorder *audit.Recorder, failDB audit.Execer) *Service {
	return &Service{
		repo:      repo,
		orderRepo: orderRepo,
		recorder:  recorder,
		failDB:    failDB,
	}
}

// Create raises a DRAFT invoice against an order. Amounts are copied
// from the order unless explicitly overridden; balance due starts at
// the full total. Each order carries at most one invoice.
func (s *Service) Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	invoice, err := s.create(ctx, req)
	if err != nil {
		// No invoice row exists yet; the id recorded here would be the
		// order's, so it goes into the payload instead.
		s.recorder.Record(ctx, s.failDB, audit.Event{
			EventType:    audit.EventTypeOperationFailed,
			ResourceType: "invoice",
			Action:       "create",
			NewValues:    map[string]any{"error": err.Error(), "order_id": req.OrderID},
			Severity:     audit.SeverityMedium,
		})
		return nil, err
	}
	return invoice, nil
}

func (s *Service) create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	order, err := s.orderRepo.Get(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("verify order: %w", err)
	}
	if order.CustomerID != req.CustomerID {
		return nil, fmt.Errorf("%w: order %s does not belong to customer %d",
			shared.ErrNotFound, order.OrderNumber, req.CustomerID)
	}
	if !order.IsActive || order.Status == orders.StatusCancelled {
		return nil, fmt.Errorf("%w: order %s is not invoiceable", shared.ErrNotFound, order.OrderNumber)
	}

	subtotal := order.Subtotal
	taxAmount := order.TaxAmount
	totalAmount := order.TotalAmount
	if req.Subtotal != nil {
		subtotal = ledger.Round2(*req.Subtotal)
	}
	if req.TaxAmount != nil {
		taxAmount = ledger.Round2(*req.TaxAmount)
	}
	if req.TotalAmount != nil {
		totalAmount = ledger.Round2(*req.TotalAmount)
	}
	if subtotal < 0 || taxAmount < 0 || totalAmount <= 0 {
		return nil, fmt.Errorf("%w: invoice amounts must be positive", shared.ErrInvalidAmount)
	}

	now := time.Now().UTC()
	dueDate := now.Add(DefaultPaymentTerm)
	if req.DueDate != nil {
		dueDate = req.DueDate.UTC()
	}

	invoice := Invoice{
		OrderID:     req.OrderID,
		CustomerID:  req.CustomerID,
		Status:      StatusDraft,
		Subtotal:    subtotal,
		TaxAmount:   taxAmount,
		TotalAmount: totalAmount,
		PaidAmount:  0,
		BalanceDue:  totalAmount,
		DueDate:     dueDate,
		Notes:       req.Notes,
	}

	var invoiceID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextDocNumber(ctx, now)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number

		invoiceID, err = tx.CreateInvoice(ctx, invoice)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeCreate,
			ResourceType: "invoice",
			ResourceID:   number,
			Action:       "create",
			NewValues: map[string]any{
				"order_number": order.OrderNumber,
				"customer_id":  req.CustomerID,
				"total_amount": totalAmount,
				"due_date":     dueDate,
			},
			Severity: audit.SeverityMedium,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, invoiceID)
}

// UpdateStatus moves the invoice along the state machine. VOID forces
// the balance due to zero regardless of prior value.
func (s *Service) UpdateStatus(ctx context.Context, invoiceID int64, target Status, tc TransitionContext) (*Invoice, error) {
	invoice, err := s.updateStatus(ctx, invoiceID, target, tc)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "invoice", strconv.FormatInt(invoiceID, 10), "update_status", err)
		return nil, err
	}
	return invoice, nil
}

func (s *Service) updateStatus(ctx context.Context, invoiceID int64, target Status, tc TransitionContext) (*Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if !CanTransition(invoice.Status, target) {
			return fmt.Errorf("%w: %s -> %s", shared.ErrInvalidTransition, invoice.Status, target)
		}

		now := time.Now().UTC()
		update := StatusUpdate{
			Status: target,
			Notes:  tc.Notes,
		}
		severity := audit.SeverityMedium

		switch target {
		case StatusSent:
			update.SentAt = &now
		case StatusPaid:
			update.PaidAt = &now
		case StatusOverdue:
			update.OverdueAt = &now
			severity = audit.SeverityHigh
		case StatusCancelled:
			update.CancelledAt = &now
			update.CancellationReason = tc.CancellationReason
			severity = audit.SeverityHigh
		case StatusVoid:
			update.VoidedAt = &now
			zero := 0.0
			update.BalanceDue = &zero
			severity = audit.SeverityHigh
		}

		if err := tx.UpdateStatus(ctx, invoiceID, update); err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypeStatusChange,
			ResourceType: "invoice",
			ResourceID:   invoice.InvoiceNumber,
			Action:       "update_status",
			OldValues:    map[string]any{"status": invoice.Status},
			NewValues:    map[string]any{"status": target},
			Severity:     severity,
		})

		if target == StatusOverdue {
			s.recorder.Record(ctx, tx.Audit(), audit.Event{
				EventType:    audit.EventTypeInvoiceOverdue,
				ResourceType: "invoice",
				ResourceID:   invoice.InvoiceNumber,
				Action:       "overdue",
				NewValues: map[string]any{
					"days_overdue": invoice.DaysOverdue(now),
					"balance_due":  invoice.BalanceDue,
				},
				Severity: audit.SeverityHigh,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, invoiceID)
}

// AddPayment records a completed payment and reconciles the balance.
// The invoice advances to PAID when the balance reaches zero, otherwise
// to PARTIALLY_PAID.
func (s *Service) AddPayment(ctx context.Context, invoiceID int64, req AddPaymentRequest) (*Invoice, error) {
	invoice, err := s.addPayment(ctx, invoiceID, req)
	if err != nil {
		s.recorder.Failure(ctx, s.failDB, "invoice", strconv.FormatInt(invoiceID, 10), "add_payment", err)
		return nil, err
	}
	return invoice, nil
}

func (s *Service) addPayment(ctx context.Context, invoiceID int64, req AddPaymentRequest) (*Invoice, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", shared.ErrInvalidAmount)
	}
	amount := ledger.Round2(req.Amount)

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		switch invoice.Status {
		case StatusSent, StatusPartiallyPaid, StatusOverdue:
		default:
			return fmt.Errorf("%w: payments are not accepted while the invoice is %s",
				shared.ErrInvalidState, invoice.Status)
		}
		// Both sides are rounded to cents, so a strict compare leaves no
		// gap where a payment could push the balance below zero.
		if amount > invoice.BalanceDue {
			return fmt.Errorf("%w: payment %.2f exceeds balance due %.2f",
				shared.ErrOverpayment, amount, invoice.BalanceDue)
		}

		now := time.Now().UTC()
		paymentDate := now
		if req.PaymentDate != nil {
			paymentDate = req.PaymentDate.UTC()
		}
		payment := Payment{
			InvoiceID:   invoiceID,
			Amount:      amount,
			Method:      req.Method,
			PaymentDate: paymentDate,
			Reference:   req.Reference,
			Notes:       req.Notes,
			Status:      PaymentCompleted,
		}
		if _, err := tx.InsertPayment(ctx, payment); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}

		paidAmount := ledger.Round2(invoice.PaidAmount + amount)
		balanceDue := ledger.Round2(invoice.TotalAmount - paidAmount)
		status := StatusPartiallyPaid
		var paidAt *time.Time
		if ledger.AmountsEqual(balanceDue, 0) {
			balanceDue = 0
			status = StatusPaid
			paidAt = &now
		}
		if err := tx.UpdateAmounts(ctx, invoiceID, paidAmount, balanceDue, status, paidAt); err != nil {
			return fmt.Errorf("update invoice amounts: %w", err)
		}

		s.recorder.Record(ctx, tx.Audit(), audit.Event{
			EventType:    audit.EventTypePaymentReceived,
			ResourceType: "invoice",
			ResourceID:   invoice.InvoiceNumber,
			Action:       "add_payment",
			NewValues: map[string]any{
				"amount":      amount,
				"method":      req.Method,
				"paid_amount": paidAmount,
				"balance_due": balanceDue,
			},
			Severity: audit.SeverityMedium,
		})
		if status == StatusPaid {
			s.recorder.Record(ctx, tx.Audit(), audit.Event{
				EventType:    audit.EventTypeInvoiceFullyPaid,
				ResourceType: "invoice",
				ResourceID:   invoice.InvoiceNumber,
				Action:       "fully_paid",
				NewValues: map[string]any{
					"total_amount": invoice.TotalAmount,
					"paid_amount":  paidAmount,
				},
				Severity: audit.SeverityMedium,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, invoiceID)
}

// ScanOverdue transitions every past-due SENT or PARTIALLY_PAID invoice
// to OVERDUE. It returns the number of invoices moved; per-invoice
// failures are recorded and do not stop the scan.
func (s *Service) ScanOverdue(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := s.repo.OverdueCandidates(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list overdue candidates: %w", err)
	}
	var moved int
	for _, id := range ids {
		if _, err := s.UpdateStatus(ctx, id, StatusOverdue, TransitionContext{}); err != nil {
			continue
		}
		moved++
	}
	return moved, nil
}

// Get returns an invoice with its payments.
func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns an invoice by its business key.
func (s *Service) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return s.repo.GetByNumber(ctx, number)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}
