package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/customers"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/masterdata/products"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ============================================================================
// MOCK STORE
// ============================================================================

type mockStore struct {
	mu sync.Mutex

	orders    map[int64]*Order
	items     map[int64][]OrderItem
	movements []inventory.Movement
	products  map[int64]*products.Product

	seq         int64
	nextOrderID int64
	nextItemID  int64
	nextMoveID  int64

	txError error
}

func newMockStore() *mockStore {
	return &mockStore{
		orders:      make(map[int64]*Order),
		items:       make(map[int64][]OrderItem),
		products:    make(map[int64]*products.Product),
		nextOrderID: 1,
		nextItemID:  1,
		nextMoveID:  1,
	}
}

func (m *mockStore) addProduct(id int64, active bool) {
	m.products[id] = &products.Product{ID: id, SKU: fmt.Sprintf("SKU-%d", id), IsActive: active}
}

func (m *mockStore) seedStock(productID int64, qty int) {
	m.movements = append(m.movements, inventory.Movement{
		ID: m.nextMoveID, ProductID: productID, Type: inventory.MovementIn,
		QuantityDelta: qty, Reason: "seed", Reference: "SEED",
	})
	m.nextMoveID++
}

func (m *mockStore) stock(productID int64) int {
	var sum int
	for _, mv := range m.movements {
		if mv.ProductID == productID {
			sum += mv.QuantityDelta
		}
	}
	return sum
}

func (m *mockStore) snapshot() *mockStore {
	snap := newMockStore()
	for id, o := range m.orders {
		copied := *o
		snap.orders[id] = &copied
	}
	for id, items := range m.items {
		snap.items[id] = append([]OrderItem(nil), items...)
	}
	snap.movements = append([]inventory.Movement(nil), m.movements...)
	snap.seq = m.seq
	snap.nextOrderID = m.nextOrderID
	snap.nextItemID = m.nextItemID
	snap.nextMoveID = m.nextMoveID
	return snap
}

func (m *mockStore) restore(snap *mockStore) {
	m.orders = snap.orders
	m.items = snap.items
	m.movements = snap.movements
	m.seq = snap.seq
	m.nextOrderID = snap.nextOrderID
	m.nextItemID = snap.nextItemID
	m.nextMoveID = snap.nextMoveID
}

// WithTx serializes units on a mutex, standing in for the row lock taken
// by GetOrderForUpdate, and restores a snapshot on failure like a rollback.
func (m *mockStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, &mockTx{store: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *mockStore) Get(ctx context.Context, id int64) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id)
}

func (m *mockStore) get(id int64) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
	}
	copied := *o
	copied.Items = append([]OrderItem(nil), m.items[id]...)
	return &copied, nil
}

func (m *mockStore) GetByNumber(ctx context.Context, number string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, o := range m.orders {
		if o.OrderNumber == number {
			return m.get(id)
		}
	}
	return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, number)
}

func (m *mockStore) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Order
	for _, o := range m.orders {
		if req.Status != nil && o.Status != *req.Status {
			continue
		}
		result = append(result, *o)
	}
	return result, len(result), nil
}

type mockTx struct {
	store *mockStore
}

func (t *mockTx) NextDocNumber(ctx context.Context, date time.Time) (string, error) {
	t.store.seq++
	return shared.FormatDocNumber("ORD", date.Year(), t.store.seq, 3), nil
}

func (t *mockTx) CreateOrder(ctx context.Context, o Order) (int64, error) {
	o.ID = t.store.nextOrderID
	t.store.nextOrderID++
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	t.store.orders[o.ID] = &o
	return o.ID, nil
}

func (t *mockTx) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	item.ID = t.store.nextItemID
	t.store.nextItemID++
	t.store.items[item.OrderID] = append(t.store.items[item.OrderID], item)
	return item.ID, nil
}

func (t *mockTx) UpdateItem(ctx context.Context, item OrderItem) error {
	items := t.store.items[item.OrderID]
	for i := range items {
		if items[i].ID == item.ID {
			items[i] = item
			return nil
		}
	}
	return fmt.Errorf("%w: order item %d", shared.ErrNotFound, item.ID)
}

func (t *mockTx) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	items := t.store.items[orderID]
	for i := range items {
		if items[i].ID == itemID {
			t.store.items[orderID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: order item %d", shared.ErrNotFound, itemID)
}

func (t *mockTx) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	return t.store.get(id)
}

func (t *mockTx) UpdateTotals(ctx context.Context, id int64, subtotal, taxAmount, totalAmount float64) error {
	o, ok := t.store.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
	}
	o.Subtotal = subtotal
	o.TaxAmount = taxAmount
	o.TotalAmount = totalAmount
	return nil
}

func (t *mockTx) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	o, ok := t.store.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
	}
	o.Status = update.Status
	if update.ConfirmedAt != nil {
		o.ConfirmedAt = update.ConfirmedAt
	}
	if update.ShippedAt != nil {
		o.ShippedAt = update.ShippedAt
	}
	if update.DeliveredAt != nil {
		o.DeliveredAt = update.DeliveredAt
	}
	if update.CancelledAt != nil {
		o.CancelledAt = update.CancelledAt
	}
	if update.TrackingReference != nil {
		o.TrackingReference = update.TrackingReference
	}
	if update.CancellationReason != nil {
		o.CancellationReason = update.CancellationReason
	}
	if update.IsActive != nil {
		o.IsActive = *update.IsActive
	}
	return nil
}

func (t *mockTx) Ledger() inventory.TxLedger {
	return &mockLedger{store: t.store}
}

func (t *mockTx) Audit() audit.Execer {
	return nopExecer{}
}

type mockLedger struct {
	store *mockStore
}

func (l *mockLedger) LockProduct(ctx context.Context, productID int64) error {
	if _, ok := l.store.products[productID]; !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return nil
}

func (l *mockLedger) SumMovements(ctx context.Context, productID int64) (int, error) {
	return l.store.stock(productID), nil
}

func (l *mockLedger) InsertMovement(ctx context.Context, mv inventory.Movement) (int64, error) {
	mv.ID = l.store.nextMoveID
	l.store.nextMoveID++
	l.store.movements = append(l.store.movements, mv)
	return mv.ID, nil
}

type mockCustomerRepo struct {
	customers map[int64]*customers.Customer
}

func (m *mockCustomerRepo) Create(ctx context.Context, c customers.Customer) (int64, error) {
	return 0, nil
}

func (m *mockCustomerRepo) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	copied := *c
	return &copied, nil
}

func (m *mockCustomerRepo) GetByCode(ctx context.Context, code string) (*customers.Customer, error) {
	return nil, shared.ErrNotFound
}

func (m *mockCustomerRepo) List(ctx context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (m *mockCustomerRepo) UpdateCreditLimit(ctx context.Context, id int64, limit float64) error {
	return nil
}

func (m *mockCustomerRepo) UpdateStatus(ctx context.Context, id int64, status customers.Status) error {
	return nil
}

type mockProductRepo struct {
	store *mockStore
}

func (m *mockProductRepo) Get(ctx context.Context, id int64) (*products.Product, error) {
	p, ok := m.store.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepo) GetMany(ctx context.Context, ids []int64) (map[int64]*products.Product, error) {
	result := make(map[int64]*products.Product)
	for _, id := range ids {
		if p, ok := m.store.products[id]; ok {
			copied := *p
			result[id] = &copied
		}
	}
	return result, nil
}

type nopExecer struct{}

func (nopExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

// captureExecer keeps the arguments of every audit insert.
type captureExecer struct {
	mu   sync.Mutex
	rows [][]any
}

func (c *captureExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, args)
	return pgconn.CommandTag{}, nil
}

// ============================================================================
// FIXTURE
// ============================================================================

type fixture struct {
	store *mockStore
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMockStore()
	custRepo := &mockCustomerRepo{customers: map[int64]*customers.Customer{
		1: {ID: 1, Code: "ACME-01", Status: customers.StatusActive, CreditLimit: 5000},
		2: {ID: 2, Code: "HALT-01", Status: customers.StatusSuspended, CreditLimit: 5000},
	}}
	gate := customers.NewService(nil, nopExecer{}, audit.NewRecorder(slog.New(slog.DiscardHandler)))
	svc := NewService(store, custRepo, &mockProductRepo{store: store}, gate,
		audit.NewRecorder(slog.New(slog.DiscardHandler)), nopExecer{})
	return &fixture{store: store, svc: svc}
}

func (f *fixture) createStandardOrder(t *testing.T) *Order {
	t.Helper()
	f.store.addProduct(10, true)
	f.store.addProduct(11, true)
	f.store.seedStock(10, 20)
	f.store.seedStock(11, 20)

	order, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1,
		Currency:   "USD",
		TaxRate:    0.10,
		Items: []CreateOrderItemReq{
			{ProductID: 10, Quantity: 2, UnitPrice: 100},
			{ProductID: 11, Quantity: 1, UnitPrice: 250},
		},
	})
	require.NoError(t, err)
	return order
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateOrderComputesTotals(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)

	assert.InDelta(t, 450.00, order.Subtotal, ledger.AmountTolerance)
	assert.InDelta(t, 45.00, order.TaxAmount, ledger.AmountTolerance)
	assert.InDelta(t, 495.00, order.TotalAmount, ledger.AmountTolerance)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Len(t, order.Items, 2)
	assert.Regexp(t, `^ORD-\d{4}-\d{3}$`, order.OrderNumber)

	// Stock is reserved with one OUT movement per item.
	assert.Equal(t, 18, f.store.stock(10))
	assert.Equal(t, 19, f.store.stock(11))
	for _, mv := range f.store.movements {
		if mv.Type == inventory.MovementOut {
			assert.Equal(t, order.OrderNumber, mv.Reference)
		}
	}
}

func TestCreateOrderRequiresActiveCustomer(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct(10, true)
	f.store.seedStock(10, 5)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 2, Currency: "USD",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 99, Currency: "USD",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFailedCreateAuditsWithoutResourceID(t *testing.T) {
	store := newMockStore()
	custRepo := &mockCustomerRepo{customers: map[int64]*customers.Customer{}}
	gate := customers.NewService(nil, nopExecer{}, audit.NewRecorder(slog.New(slog.DiscardHandler)))
	failures := &captureExecer{}
	svc := NewService(store, custRepo, &mockProductRepo{store: store}, gate,
		audit.NewRecorder(slog.New(slog.DiscardHandler)), failures)

	_, err := svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 42, Currency: "USD",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)

	// No order exists, so the failure event must not claim an id; the
	// requesting customer lands in the payload.
	require.Len(t, failures.rows, 1)
	args := failures.rows[0]
	assert.Equal(t, audit.EventTypeOperationFailed, args[0])
	assert.Equal(t, "order", args[1])
	assert.Equal(t, "", args[2])
	newJSON, ok := args[6].([]byte)
	require.True(t, ok)
	assert.Contains(t, string(newJSON), `"customer_id":42`)
}

func TestCreateOrderRequiresActiveProducts(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct(10, true)
	f.store.addProduct(12, false)
	f.store.seedStock(10, 5)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1, Currency: "USD",
		Items: []CreateOrderItemReq{
			{ProductID: 10, Quantity: 1, UnitPrice: 10},
			{ProductID: 12, Quantity: 1, UnitPrice: 10},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, f.store.orders)
}

func TestCreateOrderCreditGate(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct(10, true)
	f.store.seedStock(10, 100)

	// Total above the limit fails.
	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1, Currency: "USD",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 5000.01}},
	})
	require.ErrorIs(t, err, shared.ErrCreditExceeded)

	// Total equal to the limit is sufficient.
	order, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1, Currency: "USD",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 5000}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 5000.00, order.TotalAmount, ledger.AmountTolerance)
}

func TestCreateOrderRejectsUnknownCurrency(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct(10, true)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1, Currency: "ZZZ",
		Items: []CreateOrderItemReq{{ProductID: 10, Quantity: 1, UnitPrice: 10}},
	})
	require.ErrorIs(t, err, shared.ErrInvalidAmount)
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	f.store.addProduct(10, true)
	f.store.addProduct(11, true)
	f.store.seedStock(10, 20)
	f.store.seedStock(11, 0)

	_, err := f.svc.Create(context.Background(), CreateOrderRequest{
		CustomerID: 1, Currency: "USD",
		Items: []CreateOrderItemReq{
			{ProductID: 10, Quantity: 2, UnitPrice: 100},
			{ProductID: 11, Quantity: 1, UnitPrice: 250},
		},
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// No partial order, no partial stock change.
	assert.Empty(t, f.store.orders)
	assert.Equal(t, 20, f.store.stock(10))
	assert.Equal(t, 0, f.store.stock(11))
}

func TestLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	ctx := context.Background()

	// Shipping before confirmation is not an edge of the machine.
	_, err := f.svc.UpdateStatus(ctx, order.ID, StatusShipped, TransitionContext{})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
	unchanged, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, unchanged.Status)

	confirmed, err := f.svc.UpdateStatus(ctx, order.ID, StatusConfirmed, TransitionContext{})
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.ConfirmedAt)

	tracking := "1Z999AA10123456784"
	shipped, err := f.svc.UpdateStatus(ctx, order.ID, StatusShipped, TransitionContext{TrackingReference: &tracking})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	assert.NotNil(t, shipped.ShippedAt)
	require.NotNil(t, shipped.TrackingReference)
	assert.Equal(t, tracking, *shipped.TrackingReference)

	delivered, err := f.svc.UpdateStatus(ctx, order.ID, StatusDelivered, TransitionContext{})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	// DELIVERED is terminal.
	_, err = f.svc.UpdateStatus(ctx, order.ID, StatusCancelled, TransitionContext{})
	require.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestCancelRestoresReservedStock(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, order.ID, StatusConfirmed, TransitionContext{})
	require.NoError(t, err)

	reason := "customer request"
	cancelled, err := f.svc.UpdateStatus(ctx, order.ID, StatusCancelled, TransitionContext{CancellationReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.False(t, cancelled.IsActive)
	assert.NotNil(t, cancelled.CancelledAt)
	require.NotNil(t, cancelled.CancellationReason)
	assert.Equal(t, reason, *cancelled.CancellationReason)

	// Stock after cancel equals stock before the order existed.
	assert.Equal(t, 20, f.store.stock(10))
	assert.Equal(t, 20, f.store.stock(11))
}

func TestAddItemRecalculatesTotals(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	f.store.addProduct(12, true)
	f.store.seedStock(12, 5)

	updated, err := f.svc.AddItem(context.Background(), order.ID, CreateOrderItemReq{
		ProductID: 12, Quantity: 1, UnitPrice: 50,
	})
	require.NoError(t, err)
	assert.Len(t, updated.Items, 3)
	assert.InDelta(t, 500.00, updated.Subtotal, ledger.AmountTolerance)
	assert.InDelta(t, 50.00, updated.TaxAmount, ledger.AmountTolerance)
	assert.InDelta(t, 550.00, updated.TotalAmount, ledger.AmountTolerance)
	assert.Equal(t, 4, f.store.stock(12))
}

func TestItemMutationOnlyWhileDraft(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, order.ID, StatusConfirmed, TransitionContext{})
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, order.ID, CreateOrderItemReq{ProductID: 10, Quantity: 1, UnitPrice: 5})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	itemID := order.Items[0].ID
	qty := 5
	_, err = f.svc.UpdateItem(ctx, order.ID, itemID, UpdateItemRequest{Quantity: &qty})
	require.ErrorIs(t, err, shared.ErrInvalidState)

	_, err = f.svc.RemoveItem(ctx, order.ID, itemID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestUpdateItemMovesStockByDelta(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	ctx := context.Background()
	itemID := order.Items[0].ID // product 10, qty 2

	qty := 5
	updated, err := f.svc.UpdateItem(ctx, order.ID, itemID, UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 15, f.store.stock(10), "increase reserves three more")
	assert.InDelta(t, 750.00, updated.Subtotal, ledger.AmountTolerance)

	qty = 1
	updated, err = f.svc.UpdateItem(ctx, order.ID, itemID, UpdateItemRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 19, f.store.stock(10), "decrease releases four")
	assert.InDelta(t, 350.00, updated.Subtotal, ledger.AmountTolerance)
	assert.InDelta(t, 385.00, updated.TotalAmount, ledger.AmountTolerance)
}

func TestRemoveItemReleasesStock(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)

	updated, err := f.svc.RemoveItem(context.Background(), order.ID, order.Items[1].ID)
	require.NoError(t, err)
	assert.Len(t, updated.Items, 1)
	assert.InDelta(t, 200.00, updated.Subtotal, ledger.AmountTolerance)
	assert.InDelta(t, 220.00, updated.TotalAmount, ledger.AmountTolerance)
	assert.Equal(t, 20, f.store.stock(11))
}

func TestConcurrentAddItemsNoLostUpdate(t *testing.T) {
	f := newFixture(t)
	order := f.createStandardOrder(t)
	f.store.addProduct(12, true)
	f.store.addProduct(13, true)
	f.store.seedStock(12, 5)
	f.store.seedStock(13, 5)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := f.svc.AddItem(context.Background(), order.ID, CreateOrderItemReq{ProductID: 12, Quantity: 1, UnitPrice: 30})
		assert.NoError(t, err)
	}()
	go func() {
		defer wg.Done()
		_, err := f.svc.AddItem(context.Background(), order.ID, CreateOrderItemReq{ProductID: 13, Quantity: 1, UnitPrice: 70})
		assert.NoError(t, err)
	}()
	wg.Wait()

	final, err := f.svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, final.Items, 4)
	assert.InDelta(t, 550.00, final.Subtotal, ledger.AmountTolerance)
	assert.InDelta(t, 605.00, final.TotalAmount, ledger.AmountTolerance)
}

func TestValidateReportsAllViolations(t *testing.T) {
	order := &Order{
		Subtotal:    100,
		TaxAmount:   10,
		TotalAmount: 50, // does not match subtotal+tax+shipping
		Items: []OrderItem{
			{Quantity: 2, UnitPrice: 10, Discount: 0, LineTotal: 99},
		},
	}
	violations := order.Validate()
	assert.Contains(t, violations, "order has no customer")
	assert.NotEmpty(t, violations)

	f := newFixture(t)
	valid := f.createStandardOrder(t)
	assert.Empty(t, valid.Validate())
}

func TestTransitionTable(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:     {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusDelivered},
	}
	all := []Status{StatusDraft, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
