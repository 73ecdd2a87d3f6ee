package inspections

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the inspection does not exist.
	ErrNotFound = errors.New("inspections: not found")
	// ErrClosed indicates the inspection was completed or cancelled.
	ErrClosed = errors.New("inspections: inspection closed")
)

// Inspection statuses.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Inspection is a scheduled walkthrough of a property.
type Inspection struct {
	ID          int64      `json:"id"`
	PropertyID  int64      `json:"property_id"`
	Inspector   string     `json:"inspector"`
	ScheduledAt time.Time  `json:"scheduled_at"`
	Status      string     `json:"status"`
	Findings    string     `json:"findings,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
