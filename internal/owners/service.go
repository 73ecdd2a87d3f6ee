package owners

import (
	"context"
	"errors"
	"strings"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Service handles owner business logic.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Owner, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Owner, error) {
	if id <= 0 {
		return Owner{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, o Owner) (Owner, error) {
	if err := validate(o); err != nil {
		return Owner{}, err
	}
	o.IsActive = true
	return s.repo.Create(ctx, o)
}

func (s *Service) Update(ctx context.Context, o Owner) error {
	if o.ID <= 0 {
		return ErrNotFound
	}
	if err := validate(o); err != nil {
		return err
	}
	return s.repo.Update(ctx, o)
}

// Deactivate retires an owner. Owners with properties still under management
// cannot be deactivated until those properties are reassigned.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	linked, err := s.repo.CountProperties(ctx, id)
	if err != nil {
		return err
	}
	if linked > 0 {
		return ErrOwnerInUse
	}
	return s.repo.SetActive(ctx, id, false)
}

func validate(o Owner) error {
	if o.CompanyID <= 0 {
		return errors.New("owners: company required")
	}
	if strings.TrimSpace(o.Name) == "" {
		return errors.New("owners: name required")
	}
	return nil
}
