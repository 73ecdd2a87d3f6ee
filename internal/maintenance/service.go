package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/estateops/estateops/internal/masterdata/shared"
	"github.com/estateops/estateops/jobs"
)

// Notifier enqueues maintenance notifications for the operations team.
type Notifier interface {
	EnqueueMaintenanceNotify(ctx context.Context, payload jobs.MaintenanceNotifyPayload) (*asynq.TaskInfo, error)
}

// Service handles maintenance business logic.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service instance. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Request, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Request, error) {
	if id <= 0 {
		return Request{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// CreateInput collects the fields needed to open a request.
type CreateInput struct {
	PropertyID  int64
	TenantID    *int64
	Title       string
	Description string
	Priority    string
	ReportedBy  string
}

// Create opens a request and notifies the operations inbox.
func (s *Service) Create(ctx context.Context, input CreateInput) (Request, error) {
	if input.PropertyID <= 0 {
		return Request{}, errors.New("maintenance: property required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Request{}, errors.New("maintenance: title required")
	}
	priority := input.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	if !ValidPriority(priority) {
		return Request{}, fmt.Errorf("maintenance: unknown priority %q", priority)
	}

	req := Request{
		PropertyID:  input.PropertyID,
		TenantID:    input.TenantID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      StatusOpen,
		ReportedBy:  input.ReportedBy,
		ReportedAt:  s.now(),
	}
	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return Request{}, err
	}

	if s.notifier != nil {
		payload := jobs.MaintenanceNotifyPayload{
			RequestID:  created.ID,
			PropertyID: created.PropertyID,
			Title:      created.Title,
			Priority:   created.Priority,
			ReportedAt: created.ReportedAt,
		}
		if _, err := s.notifier.EnqueueMaintenanceNotify(ctx, payload); err != nil {
			s.logger.Warn("enqueue maintenance notify", slog.Int64("request_id", created.ID), slog.Any("error", err))
		}
	}
	return created, nil
}

// Assign hands an open request to a worker.
func (s *Service) Assign(ctx context.Context, id int64, assignee string) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !req.Open() {
		return ErrClosed
	}
	if strings.TrimSpace(assignee) == "" {
		return errors.New("maintenance: assignee required")
	}
	req.Status = StatusAssigned
	req.AssignedTo = assignee
	return s.repo.Update(ctx, req)
}

// Resolve closes a request with a resolution note.
func (s *Service) Resolve(ctx context.Context, id int64, resolution string) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !req.Open() {
		return ErrClosed
	}
	now := s.now()
	req.Status = StatusResolved
	req.Resolution = strings.TrimSpace(resolution)
	req.ResolvedAt = &now
	return s.repo.Update(ctx, req)
}

// Cancel withdraws a request without resolving it.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !req.Open() {
		return ErrClosed
	}
	req.Status = StatusCancelled
	return s.repo.Update(ctx, req)
}
