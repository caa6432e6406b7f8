package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/audit"
)

// AuditRetentionJob runs the periodic audit retention sweep.
type AuditRetentionJob struct {
	Retention *audit.Retention
	Logger    *slog.Logger
}

// NewAuditRetentionJob initialises the retention sweep handler.
func NewAuditRetentionJob(retention *audit.Retention, logger *slog.Logger) *AuditRetentionJob {
	return &AuditRetentionJob{Retention: retention, Logger: logger}
}

// Handle executes the sweep.
func (j *AuditRetentionJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Retention == nil {
		return errors.New("audit retention: handler not configured")
	}
	var payload AuditRetentionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.DryRun {
		j.logger().Info("audit retention dry run, skipping sweep")
		return nil
	}

	start := time.Now()
	deleted, err := j.Retention.Sweep(ctx)
	if err != nil {
		j.logger().Error("audit retention sweep failed", slog.Any("error", err))
		return err
	}
	j.logger().Info("audit retention sweep completed",
		slog.Int64("deleted", deleted),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *AuditRetentionJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
