package tenants

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the tenant does not exist.
	ErrNotFound = errors.New("tenants: not found")
	// ErrLeaseEnded indicates the lease has already been closed out.
	ErrLeaseEnded = errors.New("tenants: lease already ended")
)

// Tenant represents a renting tenant and their lease terms. Monetary amounts
// are integer cents.
type Tenant struct {
	ID          int64      `json:"id"`
	PropertyID  int64      `json:"property_id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	MoveInDate  time.Time  `json:"move_in_date"`
	MoveOutDate *time.Time `json:"move_out_date,omitempty"`
	MonthlyRent int64      `json:"monthly_rent"`
	Deposit     int64      `json:"deposit"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
