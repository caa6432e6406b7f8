package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// NextDocNumber issues the next year-scoped document number for prefix,
// e.g. ORD-2026-001 or INV-2026-0001. The increment is a single atomic
// upsert on doc_sequences so concurrent issuers never observe the same
// value; callers run it inside the transaction that persists the document.
func NextDocNumber(ctx context.Context, q rowQuerier, prefix string, date time.Time, width int) (string, error) {
	year := date.Year()
	var seq int64
	err := q.QueryRow(ctx, `INSERT INTO doc_sequences (prefix, year, last_value)
VALUES ($1, $2, 1)
ON CONFLICT (prefix, year) DO UPDATE SET last_value = doc_sequences.last_value + 1
RETURNING last_value`, prefix, year).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next doc number %s-%d: %w", prefix, year, err)
	}
	return FormatDocNumber(prefix, year, seq, width), nil
}

// FormatDocNumber renders PREFIX-YEAR-NNN with the given zero padding.
func FormatDocNumber(prefix string, year int, seq int64, width int) string {
	return fmt.Sprintf("%s-%04d-%0*d", prefix, year, width, seq)
}
