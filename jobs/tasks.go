// Package jobs hosts the background workloads: the periodic audit
// retention sweep and the overdue invoice scan.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention sweeps aged low-severity audit events.
	TaskAuditRetention = "audit:retention"
	// TaskInvoiceOverdueScan moves past-due invoices to OVERDUE.
	TaskInvoiceOverdueScan = "invoices:overdue_scan"
)

// AuditRetentionPayload configures one retention sweep run.
type AuditRetentionPayload struct {
	DryRun bool `json:"dry_run"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// OverdueScanPayload configures one overdue invoice scan run.
type OverdueScanPayload struct {
	// GraceDays shifts the cutoff so invoices get a short grace period
	// past their due date before being flagged.
	GraceDays int `json:"grace_days"`
}

// NewOverdueScanTask constructs an Asynq task.
func NewOverdueScanTask(payload OverdueScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoiceOverdueScan, data), nil
}
