package inspections

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Service handles inspection business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Inspection, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Inspection, error) {
	if id <= 0 {
		return Inspection{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// Schedule books a new inspection for a property.
func (s *Service) Schedule(ctx context.Context, propertyID int64, inspector string, at time.Time) (Inspection, error) {
	if propertyID <= 0 {
		return Inspection{}, errors.New("inspections: property required")
	}
	if strings.TrimSpace(inspector) == "" {
		return Inspection{}, errors.New("inspections: inspector required")
	}
	if at.IsZero() {
		return Inspection{}, errors.New("inspections: schedule time required")
	}
	if at.Before(s.now()) {
		return Inspection{}, errors.New("inspections: schedule time in the past")
	}
	return s.repo.Create(ctx, Inspection{
		PropertyID:  propertyID,
		Inspector:   inspector,
		ScheduledAt: at,
		Status:      StatusScheduled,
	})
}

// Reschedule moves a pending inspection to a new time.
func (s *Service) Reschedule(ctx context.Context, id int64, at time.Time) error {
	insp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if insp.Status != StatusScheduled {
		return ErrClosed
	}
	if at.IsZero() || at.Before(s.now()) {
		return errors.New("inspections: invalid schedule time")
	}
	insp.ScheduledAt = at
	return s.repo.Update(ctx, insp)
}

// Complete records the findings and closes the inspection.
func (s *Service) Complete(ctx context.Context, id int64, findings string) error {
	insp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if insp.Status != StatusScheduled {
		return ErrClosed
	}
	now := s.now()
	insp.Status = StatusCompleted
	insp.Findings = strings.TrimSpace(findings)
	insp.CompletedAt = &now
	return s.repo.Update(ctx, insp)
}

// Cancel withdraws a pending inspection.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	insp, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if insp.Status != StatusScheduled {
		return ErrClosed
	}
	insp.Status = StatusCancelled
	return s.repo.Update(ctx, insp)
}
