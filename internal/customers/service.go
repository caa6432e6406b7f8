package customers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Service owns customer records and the credit gate consulted by the
// order workflow.
type Service struct {
	repo     Repository
	auditDB  audit.Execer
	recorder *audit.Recorder
}

// NewService builds Service.
func NewService(repo Repository, auditDB audit.Execer, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, auditDB: auditDB, recorder: recorder}
}

// Create registers a new customer. Code and email are business keys.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	if !CodePattern.MatchString(req.Code) {
		return nil, fmt.Errorf("%w: customer code must match [A-Z0-9-]{3,10}", shared.ErrInvalidAmount)
	}
	if req.CreditLimit <= 0 {
		return nil, fmt.Errorf("%w: credit limit must be positive", shared.ErrInvalidAmount)
	}

	customer := Customer{
		Code:        req.Code,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		CreditLimit: req.CreditLimit,
		Status:      StatusActive,
		Country:     req.Country,
		State:       req.State,
		Notes:       req.Notes,
	}
	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	s.recorder.Record(ctx, s.auditDB, audit.Event{
		EventType:    audit.EventTypeCreate,
		ResourceType: "customer",
		ResourceID:   req.Code,
		Action:       "create",
		NewValues:    map[string]any{"code": req.Code, "credit_limit": req.CreditLimit},
		Severity:     audit.SeverityLow,
	})

	return s.repo.Get(ctx, id)
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.repo.Get(ctx, id)
}

// List returns customers with pagination.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

// CheckCredit is the point-in-time credit gate: it compares the single
// proposed exposure against the static credit limit. Exposure equal to
// the limit passes. Cumulative outstanding exposure across other open
// orders is intentionally not consulted.
func (s *Service) CheckCredit(customer *Customer, amount float64) bool {
	if customer == nil || !customer.IsActive() {
		return false
	}
	if amount < 0 {
		return false
	}
	return amount <= customer.CreditLimit
}

// UpdateCreditLimit replaces the customer's credit limit.
func (s *Service) UpdateCreditLimit(ctx context.Context, id int64, newLimit float64) (*Customer, error) {
	if newLimit < 0 {
		return nil, fmt.Errorf("%w: credit limit must not be negative", shared.ErrInvalidAmount)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateCreditLimit(ctx, id, newLimit); err != nil {
		return nil, fmt.Errorf("update credit limit: %w", err)
	}

	s.recorder.Record(ctx, s.auditDB, audit.Event{
		EventType:    audit.EventTypeUpdate,
		ResourceType: "customer",
		ResourceID:   strconv.FormatInt(id, 10),
		Action:       "update_credit_limit",
		OldValues:    map[string]any{"credit_limit": existing.CreditLimit},
		NewValues:    map[string]any{"credit_limit": newLimit},
		Severity:     audit.SeverityMedium,
	})

	return s.repo.Get(ctx, id)
}

// UpdateStatus moves the customer between ACTIVE/INACTIVE/SUSPENDED.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status Status) (*Customer, error) {
	switch status {
	case StatusActive, StatusInactive, StatusSuspended:
	default:
		return nil, fmt.Errorf("%w: unknown customer status %q", shared.ErrInvalidState, status)
	}
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("update customer status: %w", err)
	}

	s.recorder.Record(ctx, s.auditDB, audit.Event{
		EventType:    audit.EventTypeStatusChange,
		ResourceType: "customer",
		ResourceID:   strconv.FormatInt(id, 10),
		Action:       "update_status",
		OldValues:    map[string]any{"status": existing.Status},
		NewValues:    map[string]any{"status": status},
		Severity:     audit.SeverityMedium,
	})

	return s.repo.Get(ctx, id)
}
