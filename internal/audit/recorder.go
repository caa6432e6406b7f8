package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Execer is the write surface shared by pgxpool.Pool and pgx.Tx, so a
// recorder call can join the caller's transaction or run standalone.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Recorder appends audit events. Failures are logged through the
// diagnostic channel and swallowed: audit must never turn a committed
// business mutation into a failure.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder constructs a Recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	return &Recorder{logger: logger}
}

// Record appends event using q, which is the transaction of the mutating
// unit for success events, or the pool for failure events recorded after
// a rollback. Sensitive fields are redacted before storage.
func (r *Recorder) Record(ctx context.Context, q Execer, event Event) {
	if r == nil || q == nil {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	if event.Severity == "" {
		event.Severity = SeverityLow
	}
	if event.ActorID == 0 {
		event.ActorID = shared.ActorFromContext(ctx)
	}
	if event.CorrelationID == "" {
		event.CorrelationID = shared.CorrelationIDFromContext(ctx)
	}

	oldJSON, err := marshalValues(Redact(event.OldValues))
	if err != nil {
		r.warn(ctx, event, err)
		return
	}
	newJSON, err := marshalValues(Redact(event.NewValues))
	if err != nil {
		r.warn(ctx, event, err)
		return
	}

	err = r.exec(ctx, q, `INSERT INTO audit_events
(event_type, resource_type, resource_id, action, actor_id, old_values, new_values, severity, correlation_id, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		event.EventType, event.ResourceType, event.ResourceID, event.Action,
		event.ActorID, oldJSON, newJSON, event.Severity, event.CorrelationID, event.At)
	if err != nil {
		r.warn(ctx, event, err)
	}
}

// exec runs the insert. Inside a transaction it goes through a
// savepoint: on postgres a failed statement aborts the surrounding
// transaction, and without the savepoint a dropped audit row would take
// the business mutation down with it.
func (r *Recorder) exec(ctx context.Context, q Execer, sql string, args ...any) error {
	tx, ok := q.(pgx.Tx)
	if !ok {
		_, err := q.Exec(ctx, sql, args...)
		return err
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if _, err := sp.Exec(ctx, sql, args...); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}

// Failure records the single failure event for a mutating operation that
// did not commit. It always runs outside the rolled-back transaction.
func (r *Recorder) Failure(ctx context.Context, q Execer, resourceType, resourceID, action string, cause error) {
	r.Record(ctx, q, Event{
		EventType:    EventTypeOperationFailed,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		NewValues:    map[string]any{"error": cause.Error()},
		Severity:     SeverityMedium,
	})
}

func (r *Recorder) warn(ctx context.Context, event Event, err error) {
	if r.logger == nil {
		return
	}
	r.logger.WarnContext(ctx, "audit record dropped",
		"event_type", event.EventType,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"error", err,
	)
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}
