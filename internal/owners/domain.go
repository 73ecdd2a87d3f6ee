package owners

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the owner does not exist.
	ErrNotFound = errors.New("owners: not found")
	// ErrOwnerInUse indicates the owner still has properties linked.
	ErrOwnerInUse = errors.New("owners: properties still linked")
)

// Owner represents a property owner the company manages properties for.
type Owner struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
