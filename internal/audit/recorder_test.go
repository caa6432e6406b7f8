package audit

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExecer struct {
	calls [][]any
	err   error
}

func (s *stubExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, args)
	return pgconn.CommandTag{}, s.err
}

func TestRecordRedactsAndDefaults(t *testing.T) {
	execer := &stubExecer{}
	rec := NewRecorder(slog.New(slog.DiscardHandler))

	rec.Record(context.Background(), execer, Event{
		EventType:    EventTypeCreate,
		ResourceType: "order",
		ResourceID:   "ORD-2026-001",
		Action:       "create",
		NewValues:    map[string]any{"total": 495.0, "password": "x"},
	})

	require.Len(t, execer.calls, 1)
	args := execer.calls[0]
	assert.Equal(t, EventTypeCreate, args[0])
	assert.Equal(t, "order", args[1])
	assert.Equal(t, SeverityLow, args[7])
	assert.NotEmpty(t, args[8], "correlation id defaulted")

	newJSON, ok := args[6].([]byte)
	require.True(t, ok)
	assert.Contains(t, string(newJSON), "[REDACTED]")
	assert.NotContains(t, string(newJSON), `"x"`)
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	execer := &stubExecer{err: errors.New("connection reset")}
	rec := NewRecorder(slog.New(slog.DiscardHandler))

	// Must not panic or surface the failure in any way.
	rec.Record(context.Background(), execer, Event{
		EventType:    EventTypeStatusChange,
		ResourceType: "invoice",
		ResourceID:   "INV-2026-0001",
		Action:       "send",
	})
	require.Len(t, execer.calls, 1)
}

// stubTx covers only the methods the recorder touches; embedding the
// interface keeps the rest unimplemented.
type stubTx struct {
	pgx.Tx
	sp        *stubSavepoint
	execCount int
}

func (s *stubTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.sp, nil
}

func (s *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execCount++
	return pgconn.CommandTag{}, nil
}

type stubSavepoint struct {
	pgx.Tx
	execErr    error
	execCount  int
	committed  bool
	rolledBack bool
}

func (s *stubSavepoint) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execCount++
	return pgconn.CommandTag{}, s.execErr
}

func (s *stubSavepoint) Commit(ctx context.Context) error {
	s.committed = true
	return nil
}

func (s *stubSavepoint) Rollback(ctx context.Context) error {
	s.rolledBack = true
	return nil
}

func TestRecordInsideTransactionUsesSavepoint(t *testing.T) {
	sp := &stubSavepoint{}
	tx := &stubTx{sp: sp}
	rec := NewRecorder(slog.New(slog.DiscardHandler))

	rec.Record(context.Background(), tx, Event{
		EventType:    EventTypeCreate,
		ResourceType: "order",
		ResourceID:   "ORD-2026-001",
		Action:       "create",
	})

	assert.Equal(t, 1, sp.execCount)
	assert.True(t, sp.committed)
	assert.Zero(t, tx.execCount, "insert must run on the savepoint, not the outer transaction")
}

func TestRecordFailureRollsBackSavepointOnly(t *testing.T) {
	sp := &stubSavepoint{execErr: errors.New("value too long for column")}
	tx := &stubTx{sp: sp}
	rec := NewRecorder(slog.New(slog.DiscardHandler))

	// A failed statement aborts a postgres transaction; running it on a
	// savepoint and rolling only that back keeps the outer unit committable.
	rec.Record(context.Background(), tx, Event{
		EventType:    EventTypeStatusChange,
		ResourceType: "invoice",
		ResourceID:   "INV-2026-0001",
		Action:       "send",
	})

	assert.True(t, sp.rolledBack)
	assert.False(t, sp.committed)
	assert.Zero(t, tx.execCount)
}

func TestFailureEventShape(t *testing.T) {
	execer := &stubExecer{}
	rec := NewRecorder(slog.New(slog.DiscardHandler))

	rec.Failure(context.Background(), execer, "order", "42", "add_item", errors.New("insufficient stock"))

	require.Len(t, execer.calls, 1)
	args := execer.calls[0]
	assert.Equal(t, EventTypeOperationFailed, args[0])
	assert.Equal(t, SeverityMedium, args[7])
}
