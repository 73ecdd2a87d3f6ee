package properties

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Service handles property business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Property, int, error) {
	if filters.Status != "" && !ValidStatus(filters.Status) {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidStatus, filters.Status)
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Property, error) {
	if id <= 0 {
		return Property{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, p Property) (Property, error) {
	if err := validate(p); err != nil {
		return Property{}, err
	}
	if p.Status == "" {
		p.Status = StatusAvailable
	}
	if !ValidStatus(p.Status) {
		return Property{}, fmt.Errorf("%w: %s", ErrInvalidStatus, p.Status)
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Update(ctx context.Context, p Property) error {
	if p.ID <= 0 {
		return ErrNotFound
	}
	if err := validate(p); err != nil {
		return err
	}
	if !ValidStatus(p.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, p.Status)
	}
	return s.repo.Update(ctx, p)
}

// SetStatus transitions the property to a new lifecycle status. Retiring a
// property means marking it inactive; rows are never removed so payment and
// maintenance history stays intact.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) error {
	if id <= 0 {
		return ErrNotFound
	}
	if !ValidStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.SetStatus(ctx, id, status)
}

func validate(p Property) error {
	if p.CompanyID <= 0 {
		return errors.New("properties: company required")
	}
	if p.BranchID <= 0 {
		return errors.New("properties: branch required")
	}
	if p.OwnerID <= 0 {
		return errors.New("properties: owner required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("properties: name required")
	}
	if p.UnitCount < 1 {
		return errors.New("properties: unit count must be at least 1")
	}
	return nil
}
