package tenants

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Service handles tenant business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Tenant, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Tenant, error) {
	if id <= 0 {
		return Tenant{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, t Tenant) (Tenant, error) {
	if err := validate(t); err != nil {
		return Tenant{}, err
	}
	t.IsActive = true
	t.MoveOutDate = nil
	return s.repo.Create(ctx, t)
}

func (s *Service) Update(ctx context.Context, t Tenant) error {
	if t.ID <= 0 {
		return ErrNotFound
	}
	if err := validate(t); err != nil {
		return err
	}
	return s.repo.Update(ctx, t)
}

// EndLease closes the lease: records the move-out date and deactivates the
// tenant while keeping payment history attached.
func (s *Service) EndLease(ctx context.Context, id int64, moveOut time.Time) error {
	tenant, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if tenant.MoveOutDate != nil {
		return ErrLeaseEnded
	}
	if moveOut.IsZero() {
		moveOut = s.now()
	}
	if moveOut.Before(tenant.MoveInDate) {
		return errors.New("tenants: move-out before move-in")
	}
	return s.repo.EndLease(ctx, id, moveOut)
}

func validate(t Tenant) error {
	if t.PropertyID <= 0 {
		return errors.New("tenants: property required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("tenants: name required")
	}
	if t.MoveInDate.IsZero() {
		return errors.New("tenants: move-in date required")
	}
	if t.MonthlyRent <= 0 {
		return errors.New("tenants: monthly rent must be positive")
	}
	if t.Deposit < 0 {
		return errors.New("tenants: deposit cannot be negative")
	}
	return nil
}
