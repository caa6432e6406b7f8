package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// Retention deletes aged low- and medium-severity audit rows. HIGH and
// CRITICAL events are kept indefinitely; this sweep is the only deletion
// ever applied to the audit trail.
type Retention struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	window time.Duration
}

// NewRetention constructs the retention sweep.
func NewRetention(pool *pgxpool.Pool, logger *slog.Logger, window time.Duration) *Retention {
	if window <= 0 {
		window = 90 * 24 * time.Hour
	}
	return &Retention{pool: pool, logger: logger, window: window}
}

// Sweep removes LOW and MEDIUM events older than the retention window and
// returns the number of rows deleted.
func (r *Retention) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-r.window)

	var deleted atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for _, severity := range []Severity{SeverityLow, SeverityMedium} {
		g.Go(func() error {
			tag, err := r.pool.Exec(ctx,
				`DELETE FROM audit_events WHERE severity = $1 AND occurred_at < $2`,
				severity, cutoff)
			if err != nil {
				return fmt.Errorf("sweep %s events: %w", severity, err)
			}
			deleted.Add(tag.RowsAffected())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return deleted.Load(), err
	}

	if r.logger != nil {
		r.logger.InfoContext(ctx, "audit retention sweep finished",
			"deleted", deleted.Load(), "cutoff", cutoff)
	}
	return deleted.Load(), nil
}
