package payments

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the payment does not exist.
	ErrNotFound = errors.New("payments: not found")
	// ErrAlreadyApproved indicates the payment was approved before.
	ErrAlreadyApproved = errors.New("payments: already approved")
	// ErrVoided indicates the payment was voided and cannot change state.
	ErrVoided = errors.New("payments: voided")
)

// Payment statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusVoided   = "voided"
)

// Payment methods.
const (
	MethodCash     = "cash"
	MethodTransfer = "transfer"
	MethodCard     = "card"
)

// Payment records a rent payment. Amounts are integer cents.
type Payment struct {
	ID         int64      `json:"id"`
	TenantID   int64      `json:"tenant_id"`
	PropertyID int64      `json:"property_id"`
	Amount     int64      `json:"amount"`
	Method     string     `json:"method"`
	Reference  string     `json:"reference"`
	Period     string     `json:"period"`
	Status     string     `json:"status"`
	PaidAt     time.Time  `json:"paid_at"`
	RecordedBy string     `json:"recorded_by"`
	ApprovedBy string     `json:"approved_by,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
