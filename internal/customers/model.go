package customers

import (
	"regexp"
	"time"
)

// Status enumerates customer lifecycle states.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

// CodePattern is the business-key format for customer codes.
var CodePattern = regexp.MustCompile(`^[A-Z0-9-]{3,10}$`)

type Customer struct {
	ID          int64     `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Name        string    `json:"name" db:"name"`
	Email       *string   `json:"email,omitempty" db:"email"`
	Phone       *string   `json:"phone,omitempty" db:"phone"`
	CreditLimit float64   `json:"credit_limit" db:"credit_limit"`
	Status      Status    `json:"status" db:"status"`
	Country     string    `json:"country" db:"country"`
	State       *string   `json:"state,omitempty" db:"state"`
	Notes       *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive is derived: true iff the customer status is ACTIVE.
func (c *Customer) IsActive() bool {
	return c != nil && c.Status == StatusActive
}
