package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Querier is the pgx surface shared by pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Unit groups the transaction-scoped surfaces of one atomic movement:
// the ledger itself and the audit write channel sharing its transaction.
type Unit struct {
	Ledger TxLedger
	Audit  audit.Execer
}

// WithTx executes the callback against a transaction-scoped unit.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, Unit) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, Unit{Ledger: NewTxLedger(tx), Audit: tx})
	})
}

// CurrentStock returns the signed sum of a product's movements.
func (r *Repository) CurrentStock(ctx context.Context, productID int64) (int, error) {
	return NewTxLedger(r.pool).SumMovements(ctx, productID)
}

// ListMovements returns a product's movement history, newest first.
func (r *Repository) ListMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, type, quantity_delta, reason, reference, occurred_at
FROM inventory_movements WHERE product_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.QuantityDelta, &m.Reason, &m.Reference, &m.At); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// NewTxLedger binds the ledger SQL to q, typically a pgx.Tx.
func NewTxLedger(q Querier) TxLedger {
	return &txLedger{q: q}
}

type txLedger struct {
	q Querier
}

func (l *txLedger) LockProduct(ctx context.Context, productID int64) error {
	var id int64
	err := l.q.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
		}
		return err
	}
	return nil
}

func (l *txLedger) SumMovements(ctx context.Context, productID int64) (int, error) {
	var sum int
	err := l.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity_delta), 0) FROM inventory_movements WHERE product_id = $1`,
		productID).Scan(&sum)
	return sum, err
}

func (l *txLedger) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := l.q.QueryRow(ctx, `INSERT INTO inventory_movements
(product_id, type, quantity_delta, reason, reference, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		m.ProductID, m.Type, m.QuantityDelta, m.Reason, m.Reference, m.At).Scan(&id)
	return id, err
}
