package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/estateops/estateops/internal/masterdata/shared"
	sharedpkg "github.com/estateops/estateops/internal/shared"
	"github.com/estateops/estateops/internal/tenants"
	"github.com/estateops/estateops/jobs"
)

// ErrDuplicateRequest indicates a replayed idempotency key.
var ErrDuplicateRequest = errors.New("payments: duplicate request")

// ReceiptSender enqueues receipt emails.
type ReceiptSender interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// TenantDirectory resolves tenant contact details for receipts.
type TenantDirectory interface {
	Get(ctx context.Context, id int64) (tenants.Tenant, error)
}

// IdempotencyGuard deduplicates payment submissions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditRecorder keeps a trail of payment state changes.
type AuditRecorder interface {
	Record(ctx context.Context, log sharedpkg.AuditLog) error
}

// Service handles payment business logic.
type Service struct {
	repo        Repository
	tenantDir   TenantDirectory
	sender      ReceiptSender
	idempotency IdempotencyGuard
	audit       AuditRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service instance. sender, idempotency, and audit may be
// nil.
func NewService(repo Repository, tenantDir TenantDirectory, sender ReceiptSender, idempotency IdempotencyGuard, audit AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		tenantDir:   tenantDir,
		sender:      sender,
		idempotency: idempotency,
		audit:       audit,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, paymentID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, sharedpkg.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "payment",
		EntityID: strconv.FormatInt(paymentID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

// RecordInput collects the fields needed to record a payment.
type RecordInput struct {
	TenantID       int64
	Amount         int64
	Method         string
	Reference      string
	Period         string
	PaidAt         time.Time
	RecordedBy     string
	IdempotencyKey string
}

// Record stores a pending payment and queues a receipt email to the tenant.
func (s *Service) Record(ctx context.Context, input RecordInput) (Payment, error) {
	if err := validateRecord(input); err != nil {
		return Payment{}, err
	}
	tenant, err := s.tenantDir.Get(ctx, input.TenantID)
	if err != nil {
		if errors.Is(err, tenants.ErrNotFound) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}

	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "payments"); err != nil {
			if errors.Is(err, sharedpkg.ErrIdempotencyConflict) {
				return Payment{}, ErrDuplicateRequest
			}
			return Payment{}, err
		}
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	payment := Payment{
		TenantID:   tenant.ID,
		PropertyID: tenant.PropertyID,
		Amount:     input.Amount,
		Method:     input.Method,
		Reference:  strings.TrimSpace(input.Reference),
		Period:     input.Period,
		Status:     StatusPending,
		PaidAt:     paidAt,
		RecordedBy: input.RecordedBy,
	}
	created, err := s.repo.Create(ctx, payment)
	if err != nil {
		if s.idempotency != nil && input.IdempotencyKey != "" {
			if delErr := s.idempotency.Delete(ctx, input.IdempotencyKey); delErr != nil {
				s.logger.Warn("idempotency rollback failed", slog.String("key", input.IdempotencyKey), slog.Any("error", delErr))
			}
		}
		return Payment{}, err
	}

	s.sendReceipt(ctx, created, tenant)
	s.recordAudit(ctx, input.RecordedBy, "payment.recorded", created.ID, map[string]any{
		"tenant_id": created.TenantID,
		"amount":    created.Amount,
		"period":    created.Period,
	})
	return created, nil
}

func (s *Service) sendReceipt(ctx context.Context, p Payment, tenant tenants.Tenant) {
	if s.sender == nil || tenant.Email == "" {
		return
	}
	payload := jobs.SendEmailPayload{
		To:      tenant.Email,
		Subject: fmt.Sprintf("Payment received for period %s", p.Period),
		Body: fmt.Sprintf("Hi %s,\n\nWe received your payment of %d (ref %s) on %s. It is pending approval.\n",
			tenant.Name, p.Amount, p.Reference, p.PaidAt.Format("2006-01-02")),
	}
	if _, err := s.sender.EnqueueSendEmail(ctx, payload); err != nil {
		// Receipt delivery is best effort, the payment itself is committed.
		s.logger.Warn("enqueue receipt email", slog.Int64("payment_id", p.ID), slog.Any("error", err))
	}
}

// Approve marks a pending payment as approved.
func (s *Service) Approve(ctx context.Context, id int64, actor string) error {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch payment.Status {
	case StatusApproved:
		return ErrAlreadyApproved
	case StatusVoided:
		return ErrVoided
	}
	if err := s.repo.SetStatus(ctx, id, StatusApproved, actor, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "payment.approved", id, nil)
	return nil
}

// Void cancels a payment that was recorded in error. Approved payments can
// still be voided to correct mistakes, the row is never deleted.
func (s *Service) Void(ctx context.Context, id int64, actor string) error {
	payment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if payment.Status == StatusVoided {
		return ErrVoided
	}
	if err := s.repo.SetStatus(ctx, id, StatusVoided, actor, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "payment.voided", id, nil)
	return nil
}

// List returns payments matching the filters plus the unpaged total.
func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Payment, int, error) {
	return s.repo.List(ctx, filters)
}

// Get fetches a single payment by ID.
func (s *Service) Get(ctx context.Context, id int64) (Payment, error) {
	if id <= 0 {
		return Payment{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

func validateRecord(input RecordInput) error {
	if input.TenantID <= 0 {
		return errors.New("payments: tenant required")
	}
	if input.Amount <= 0 {
		return errors.New("payments: amount must be positive")
	}
	switch input.Method {
	case MethodCash, MethodTransfer, MethodCard:
	default:
		return fmt.Errorf("payments: unknown method %q", input.Method)
	}
	if strings.TrimSpace(input.Period) == "" {
		return errors.New("payments: period required")
	}
	if _, err := time.Parse("2006-01", input.Period); err != nil {
		return fmt.Errorf("payments: period must be YYYY-MM: %w", err)
	}
	return nil
}
