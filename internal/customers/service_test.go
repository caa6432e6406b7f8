package customers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	customers map[int64]*Customer
	byCode    map[string]*Customer
	nextID    int64

	createError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		customers: make(map[int64]*Customer),
		byCode:    make(map[string]*Customer),
		nextID:    1,
	}
}

func (m *mockRepository) Create(ctx context.Context, c Customer) (int64, error) {
	if m.createError != nil {
		return 0, m.createError
	}
	if _, exists := m.byCode[c.Code]; exists {
		return 0, shared.ErrConflict
	}
	c.ID = m.nextID
	m.nextID++
	stored := c
	m.customers[c.ID] = &stored
	m.byCode[c.Code] = &stored
	return c.ID, nil
}

func (m *mockRepository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockRepository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	var result []Customer
	for _, c := range m.customers {
		if req.Status != nil && c.Status != *req.Status {
			continue
		}
		result = append(result, *c)
	}
	return result, len(result), nil
}

func (m *mockRepository) UpdateCreditLimit(ctx context.Context, id int64, limit float64) error {
	c, ok := m.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.CreditLimit = limit
	return nil
}

func (m *mockRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	c, ok := m.customers[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Status = status
	return nil
}

type nopExecer struct{}

func (nopExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, nopExecer{}, audit.NewRecorder(slog.New(slog.DiscardHandler)))
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateValidatesCode(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ab", Name: "Too Short", CreditLimit: 100, Country: "US",
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = svc.Create(context.Background(), CreateCustomerRequest{
		Code: "acme-01", Name: "Lowercase", CreditLimit: 100, Country: "US",
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	c, err := svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ACME-01", Name: "Acme", CreditLimit: 100, Country: "US",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, c.Status)
	assert.True(t, c.IsActive())
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ACME", Name: "Acme", CreditLimit: 100, Country: "US",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ACME", Name: "Acme Again", CreditLimit: 100, Country: "US",
	})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCheckCreditPointInTime(t *testing.T) {
	svc := newTestService(newMockRepository())
	customer := &Customer{ID: 1, Status: StatusActive, CreditLimit: 5000}

	assert.True(t, svc.CheckCredit(customer, 4999.99))
	// Exposure equal to the limit is sufficient.
	assert.True(t, svc.CheckCredit(customer, 5000))
	assert.False(t, svc.CheckCredit(customer, 5000.01))
	assert.False(t, svc.CheckCredit(customer, -1))

	// The gate looks only at the single proposed amount. A customer with
	// any number of other open orders still passes as long as this amount
	// fits the static limit; cumulative exposure is not tracked.
	assert.True(t, svc.CheckCredit(customer, 5000))

	suspended := &Customer{ID: 2, Status: StatusSuspended, CreditLimit: 5000}
	assert.False(t, svc.CheckCredit(suspended, 10))
	assert.False(t, svc.CheckCredit(nil, 10))
}

func TestUpdateCreditLimit(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	c, err := svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ACME", Name: "Acme", CreditLimit: 100, Country: "US",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateCreditLimit(context.Background(), c.ID, 2500)
	require.NoError(t, err)
	assert.Equal(t, 2500.0, updated.CreditLimit)

	_, err = svc.UpdateCreditLimit(context.Background(), c.ID, -1)
	require.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = svc.UpdateCreditLimit(context.Background(), 999, 100)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateStatusDerivesIsActive(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)
	c, err := svc.Create(context.Background(), CreateCustomerRequest{
		Code: "ACME", Name: "Acme", CreditLimit: 100, Country: "US",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), c.ID, StatusSuspended)
	require.NoError(t, err)
	assert.False(t, updated.IsActive())

	_, err = svc.UpdateStatus(context.Background(), c.ID, Status("FROZEN"))
	require.ErrorIs(t, err, shared.ErrInvalidState)
}
