package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/invoices"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// overdueScanLockKey guards the scan across worker replicas.
const overdueScanLockKey = "invoices:overdue_scan:lock"

// OverdueScanJob flags past-due invoices.
type OverdueScanJob struct {
	Service *invoices.Service
	Locker  *shared.AggregateLocker
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(service *invoices.Service, locker *shared.AggregateLocker, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{
		Service: service,
		Locker:  locker,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the overdue scan. Only one replica runs the scan at a
// time; a concurrently held lock skips the run rather than retrying.
func (j *OverdueScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("overdue scan: handler not configured")
	}
	var payload OverdueScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.GraceDays < 0 {
		payload.GraceDays = 0
	}

	release, err := j.Locker.Acquire(ctx, overdueScanLockKey)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			j.logger().Info("overdue scan already running, skipping")
			return nil
		}
		return err
	}
	defer func() {
		if err := release(ctx); err != nil {
			j.logger().Warn("release scan lock", slog.Any("error", err))
		}
	}()

	start := j.clock()
	asOf := start.AddDate(0, 0, -payload.GraceDays)
	moved, err := j.Service.ScanOverdue(ctx, asOf)
	if err != nil {
		j.logger().Error("overdue scan failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("overdue scan completed",
		slog.Int("moved", moved),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *OverdueScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
