// Package audit records append-only audit events for every mutating
// operation in the order-to-cash core. Events are written inside the same
// transaction as the mutation they describe, but a failing write never
// rolls back or blocks the business operation.
package audit

import "time"

// Severity classifies audit events for retention and alerting.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Event types emitted by the workflows.
const (
	EventTypeCreate           = "CREATE"
	EventTypeUpdate           = "UPDATE"
	EventTypeStatusChange     = "STATUS_CHANGE"
	EventTypePaymentReceived  = "PAYMENT_RECEIVED"
	EventTypeInvoiceFullyPaid = "INVOICE_FULLY_PAID"
	EventTypeInvoiceOverdue   = "INVOICE_OVERDUE"
	EventTypeOperationFailed  = "OPERATION_FAILED"
)

// Event is one immutable audit record.
type Event struct {
	ID            int64
	EventType     string
	ResourceType  string
	ResourceID    string
	Action        string
	ActorID       int64
	OldValues     map[string]any
	NewValues     map[string]any
	Severity      Severity
	CorrelationID string
	At            time.Time
}
