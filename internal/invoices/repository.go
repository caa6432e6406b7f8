package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository is the persistence surface of the invoice workflow.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	// OverdueCandidates returns ids of SENT and PARTIALLY_PAID invoices
	// whose due date has passed.
	OverdueCandidates(ctx context.Context, asOf time.Time) ([]int64, error)
}

// StatusUpdate carries the fields written by one status transition.
type StatusUpdate struct {
	Status             Status
	BalanceDue         *float64
	Notes              *string
	CancellationReason *string
	SentAt             *time.Time
	PaidAt             *time.Time
	OverdueAt          *time.Time
	CancelledAt        *time.Time
	VoidedAt           *time.Time
}

// TxRepository exposes the transactional operations of one atomic unit.
// GetInvoiceForUpdate locks the aggregate row so concurrent payments on
// the same invoice serialize; Audit shares the transaction.
type TxRepository interface {
	NextDocNumber(ctx context.Context, date time.Time) (string, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error)
	InsertPayment(ctx context.Context, p Payment) (int64, error)
	UpdateAmounts(ctx context.Context, id int64, paidAmount, balanceDue float64, status Status, paidAt *time.Time) error
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error
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

const invoiceColumns = `id, invoice_number, order_id, customer_id, status, subtotal, tax_amount,
total_amount, paid_amount, balance_due, due_date, notes, cancellation_reason,
sent_at, paid_at, overdue_at, cancelled_at, voided_at, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.CustomerID, &inv.Status,
		&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.BalanceDue,
		&inv.DueDate, &inv.Notes, &inv.CancellationReason,
		&inv.SentAt, &inv.PaidAt, &inv.OverdueAt, &inv.CancelledAt, &inv.VoidedAt,
		&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadPayments(ctx context.Context, q querier, invoiceID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `SELECT id, invoice_id, amount, method, payment_date, reference, notes, status, created_at
FROM payments WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Amount, &p.Method, &p.PaymentDate,
			&p.Reference, &p.Notes, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func getInvoice(ctx context.Context, q querier, query string, arg any) (*Invoice, error) {
	inv, err := scanInvoice(q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: invoice %v", shared.ErrNotFound, arg)
		}
		return nil, err
	}
	inv.Payments, err = loadPayments(ctx, q, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	return getInvoice(ctx, r.pool, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return getInvoice(ctx, r.pool, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_number = $1`, number)
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
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
	if req.DueFrom != nil {
		args = append(args, *req.DueFrom)
		where += fmt.Sprintf(` AND due_date >= $%d`, len(args))
	}
	if req.DueTo != nil {
		args = append(args, *req.DueTo)
		where += fmt.Sprintf(` AND due_date <= $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices`+where+
		fmt.Sprintf(` ORDER BY invoice_number DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.OrderID, &inv.CustomerID, &inv.Status,
			&inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.BalanceDue,
			&inv.DueDate, &inv.Notes, &inv.CancellationReason,
			&inv.SentAt, &inv.PaidAt, &inv.OverdueAt, &inv.CancelledAt, &inv.VoidedAt,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, inv)
	}
	return result, total, rows.Err()
}

func (r *repository) OverdueCandidates(ctx context.Context, asOf time.Time) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM invoices
WHERE status IN ($1, $2) AND due_date < $3 ORDER BY id`,
		StatusSent, StatusPartiallyPaid, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextDocNumber(ctx context.Context, date time.Time) (string, error) {
	// Invoice numbers are INV-YYYY-NNNN with 4-digit padding.
	return shared.NextDocNumber(ctx, r.tx, "INV", date, 4)
}

func (r *txRepository) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	now := time.Now().UTC()
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices
(invoice_number, order_id, customer_id, status, subtotal, tax_amount, total_amount,
 paid_amount, balance_due, due_date, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12) RETURNING id`,
		inv.InvoiceNumber, inv.OrderID, inv.CustomerID, inv.Status, inv.Subtotal,
		inv.TaxAmount, inv.TotalAmount, inv.PaidAmount, inv.BalanceDue,
		inv.DueDate, inv.Notes, now).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, fmt.Errorf("%w: order %d is already invoiced", shared.ErrConflict, inv.OrderID)
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, id int64) (*Invoice, error) {
	return getInvoice(ctx, r.tx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id)
}

func (r *txRepository) InsertPayment(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments
(invoice_id, amount, method, payment_date, reference, notes, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, now()) RETURNING id`,
		p.InvoiceID, p.Amount, p.Method, p.PaymentDate, p.Reference, p.Notes, p.Status).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateAmounts(ctx context.Context, id int64, paidAmount, balanceDue float64, status Status, paidAt *time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET
paid_amount = $1,
balance_due = $2,
status = $3,
paid_at = COALESCE($4, paid_at),
updated_at = now()
WHERE id = $5`, paidAmount, balanceDue, status, paidAt, id)
	return err
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET
status = $1,
balance_due = COALESCE($2, balance_due),
notes = COALESCE($3, notes),
cancellation_reason = COALESCE($4, cancellation_reason),
sent_at = COALESCE($5, sent_at),
paid_at = COALESCE($6, paid_at),
overdue_at = COALESCE($7, overdue_at),
cancelled_at = COALESCE($8, cancelled_at),
voided_at = COALESCE($9, voided_at),
updated_at = now()
WHERE id = $10`,
		update.Status, update.BalanceDue, update.Notes, update.CancellationReason,
		update.SentAt, update.PaidAt, update.OverdueAt, update.CancelledAt,
		update.VoidedAt, id)
	return err
}

func (r *txRepository) Audit() audit.Execer {
	return r.tx
}
