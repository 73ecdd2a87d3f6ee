package maintenance

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the request does not exist.
	ErrNotFound = errors.New("maintenance: not found")
	// ErrClosed indicates the request is resolved or cancelled.
	ErrClosed = errors.New("maintenance: request closed")
)

// Request statuses.
const (
	StatusOpen      = "open"
	StatusAssigned  = "assigned"
	StatusResolved  = "resolved"
	StatusCancelled = "cancelled"
)

// Request priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Request is a maintenance request against a property.
type Request struct {
	ID          int64      `json:"id"`
	PropertyID  int64      `json:"property_id"`
	TenantID    *int64     `json:"tenant_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	AssignedTo  string     `json:"assigned_to,omitempty"`
	Resolution  string     `json:"resolution,omitempty"`
	ReportedBy  string     `json:"reported_by"`
	ReportedAt  time.Time  `json:"reported_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Open reports whether the request can still be worked on.
func (r Request) Open() bool {
	return r.Status == StatusOpen || r.Status == StatusAssigned
}
