package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository is the persistence surface of the order workflow.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error)
}

// StatusUpdate carries the fields written by one status transition.
type StatusUpdate struct {
	Status             Status
	ConfirmedAt        *time.Time
	ShippedAt          *time.Time
	DeliveredAt        *time.Time
	CancelledAt        *time.Time
	TrackingReference  *string
	CancellationReason *string
	IsActive           *bool
}

// TxRepository exposes the transactional operations of one atomic unit.
// GetOrderForUpdate locks the aggregate row so concurrent mutations of
// the same order serialize; Ledger and Audit share the transaction.
type TxRepository interface {
	NextDocNumber(ctx context.Context, date time.Time) (string, error)
	CreateOrder(ctx context.Context, o Order) (int64, error)
	InsertItem(ctx context.Context, item OrderItem) (int64, error)
	UpdateItem(ctx context.Context, item OrderItem) error
	DeleteItem(ctx context.Context, orderID, itemID int64) error
	GetOrderForUpdate(ctx context.Context, id int64) (*Order, error)
	UpdateTotals(ctx context.Context, id int64, subtotal, taxAmount, totalAmount float64) error
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error
	Ledger() inventory.TxLedger
	Audit() audit.Execer
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const orderColumns = `id, order_number, customer_id, currency, status, subtotal, tax_rate, tax_amount,
shipping_cost, total_amount, notes, is_active, tracking_reference, cancellation_reason,
confirmed_at, shipped_at, delivered_at, cancelled_at, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Currency, &o.Status,
		&o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.ShippingCost, &o.TotalAmount,
		&o.Notes, &o.IsActive, &o.TrackingReference, &o.CancellationReason,
		&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func loadItems(ctx context.Context, q inventory.Querier, orderID int64) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, quantity, unit_price, discount, line_total
FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.Discount, &item.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	order.Items, err = loadItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Order, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %s", shared.ErrNotFound, number)
		}
		return nil, err
	}
	order.Items, err = loadItems(ctx, r.pool, order.ID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]Order, int, error) {
	page := shared.NewPagination(req.Page, req.PerPage, 0)

	where := ` WHERE 1=1`
	args := []any{}
	if req.CustomerID != nil {
		args = append(args, *req.CustomerID)
		where += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if req.Status != nil {
		args = append(args, *req.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if req.DateFrom != nil {
		args = append(args, *req.DateFrom)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if req.DateTo != nil {
		args = append(args, *req.DateTo)
		where += fmt.Sprintf(` AND created_at <= $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders`+where+
		fmt.Sprintf(` ORDER BY order_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.Currency, &o.Status,
			&o.Subtotal, &o.TaxRate, &o.TaxAmount, &o.ShippingCost, &o.TotalAmount,
			&o.Notes, &o.IsActive, &o.TrackingReference, &o.CancellationReason,
			&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt, &o.CancelledAt,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, o)
	}
	return result, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextDocNumber(ctx context.Context, date time.Time) (string, error) {
	// Order numbers are ORD-YYYY-NNN with 3-digit padding.
	return shared.NextDocNumber(ctx, r.tx, "ORD", date, 3)
}

func (r *txRepository) CreateOrder(ctx context.Context, o Order) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := r.tx.QueryRow(ctx, `INSERT INTO orders
(order_number, customer_id, currency, status, subtotal, tax_rate, tax_amount, shipping_cost,
 total_amount, notes, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		o.OrderNumber, o.CustomerID, o.Currency, o.Status, o.Subtotal, o.TaxRate,
		o.TaxAmount, o.ShippingCost, o.TotalAmount, o.Notes, o.IsActive, now).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: order number %s already exists", shared.ErrConflict, o.OrderNumber)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) InsertItem(ctx context.Context, item OrderItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_items
(order_id, product_id, quantity, unit_price, discount, line_total)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Discount, item.LineTotal).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateItem(ctx context.Context, item OrderItem) error {
	tag, err := r.tx.Exec(ctx, `UPDATE order_items
SET quantity = $1, unit_price = $2, discount = $3, line_total = $4
WHERE id = $5 AND order_id = $6`,
		item.Quantity, item.UnitPrice, item.Discount, item.LineTotal, item.ID, item.OrderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order item %d", shared.ErrNotFound, item.ID)
	}
	return nil
}

func (r *txRepository) DeleteItem(ctx context.Context, orderID, itemID int64) error {
	tag, err := r.tx.Exec(ctx,
		`DELETE FROM order_items WHERE id = $1 AND order_id = $2`, itemID, orderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order item %d", shared.ErrNotFound, itemID)
	}
	return nil
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (*Order, error) {
	order, err := scanOrder(r.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: order %d", shared.ErrNotFound, id)
		}
		return nil, err
	}
	order.Items, err = loadItems(ctx, r.tx, id)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *txRepository) UpdateTotals(ctx context.Context, id int64, subtotal, taxAmount, totalAmount float64) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders
SET subtotal = $1, tax_amount = $2, total_amount = $3, updated_at = now()
WHERE id = $4`, subtotal, taxAmount, totalAmount, id)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET
status = $1,
confirmed_at = COALESCE($2, confirmed_at),
shipped_at = COALESCE($3, shipped_at),
delivered_at = COALESCE($4, delivered_at),
cancelled_at = COALESCE($5, cancelled_at),
tracking_reference = COALESCE($6, tracking_reference),
cancellation_reason = COALESCE($7, cancellation_reason),
is_active = COALESCE($8, is_active),
updated_at = now()
WHERE id = $9`,
		update.Status, update.ConfirmedAt, update.ShippedAt, update.DeliveredAt,
		update.CancelledAt, update.TrackingReference, update.CancellationReason,
		update.IsActive, id)
	return err
}

func (r *txRepository) Ledger() inventory.TxLedger {
	return inventory.NewTxLedger(r.tx)
}

func (r *txRepository) Audit() audit.Execer {
	return r.tx
}
