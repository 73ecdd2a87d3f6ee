package properties

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the property does not exist.
	ErrNotFound = errors.New("properties: not found")
	// ErrInvalidStatus indicates an unrecognized property status.
	ErrInvalidStatus = errors.New("properties: invalid status")
)

// Property lifecycle statuses.
const (
	StatusAvailable   = "available"
	StatusOccupied    = "occupied"
	StatusMaintenance = "maintenance"
	StatusInactive    = "inactive"
)

// Property represents a managed property.
type Property struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	BranchID  int64     `json:"branch_id"`
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	UnitCount int       `json:"unit_count"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidStatus reports whether status is one of the recognized values.
func ValidStatus(status string) bool {
	switch status {
	case StatusAvailable, StatusOccupied, StatusMaintenance, StatusInactive:
		return true
	}
	return false
}
