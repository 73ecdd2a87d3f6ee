package payments

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/estateops/estateops/internal/masterdata/shared"
	sharedpkg "github.com/estateops/estateops/internal/shared"
	"github.com/estateops/estateops/internal/tenants"
	"github.com/estateops/estateops/jobs"
)

type fakeRepo struct {
	mu       sync.Mutex
	nextID   int64
	payments map[int64]Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, payments: make(map[int64]Payment)}
}

func (f *fakeRepo) List(_ context.Context, _ shared.ListFilters) ([]Payment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Payment, 0, len(f.payments))
	for _, p := range f.payments {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeRepo) Create(_ context.Context, p Payment) (Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = f.nextID
	f.nextID++
	p.CreatedAt = time.Now()
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakeRepo) SetStatus(_ context.Context, id int64, status, actor string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	p.ApprovedBy = actor
	p.ApprovedAt = &at
	f.payments[id] = p
	return nil
}

type fakeTenants struct {
	tenants map[int64]tenants.Tenant
}

func (f *fakeTenants) Get(_ context.Context, id int64) (tenants.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return tenants.Tenant{}, tenants.ErrNotFound
	}
	return t, nil
}

type fakeSender struct {
	sent []jobs.SendEmailPayload
}

func (f *fakeSender) EnqueueSendEmail(_ context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error) {
	f.sent = append(f.sent, payload)
	return &asynq.TaskInfo{}, nil
}

type fakeGuard struct {
	seen map[string]bool
}

func (f *fakeGuard) CheckAndInsert(_ context.Context, key, _ string) error {
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return sharedpkg.ErrIdempotencyConflict
	}
	f.seen[key] = true
	return nil
}

func (f *fakeGuard) Delete(_ context.Context, key string) error {
	delete(f.seen, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *fakeSender, *fakeGuard) {
	t.Helper()
	repo := newFakeRepo()
	sender := &fakeSender{}
	guard := &fakeGuard{}
	dir := &fakeTenants{tenants: map[int64]tenants.Tenant{
		7: {ID: 7, PropertyID: 42, Name: "Dana Kim", Email: "dana@example.com", IsActive: true},
		8: {ID: 8, PropertyID: 43, Name: "No Mail", IsActive: true},
	}}
	return NewService(repo, dir, sender, guard, nil, testLogger()), repo, sender, guard
}

func validInput() RecordInput {
	return RecordInput{
		TenantID:   7,
		Amount:     125000,
		Method:     MethodTransfer,
		Reference:  "TRX-881",
		Period:     "2026-08",
		RecordedBy: "user-1",
	}
}

func TestRecordPaymentQueuesReceipt(t *testing.T) {
	svc, repo, sender, _ := newTestService(t)

	payment, err := svc.Record(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, StatusPending, payment.Status)
	require.Equal(t, int64(42), payment.PropertyID)
	require.False(t, payment.PaidAt.IsZero())

	stored, err := repo.Get(context.Background(), payment.ID)
	require.NoError(t, err)
	require.Equal(t, "user-1", stored.RecordedBy)

	require.Len(t, sender.sent, 1)
	require.Equal(t, "dana@example.com", sender.sent[0].To)
	require.Contains(t, sender.sent[0].Subject, "2026-08")
}

func TestRecordPaymentSkipsReceiptWithoutEmail(t *testing.T) {
	svc, _, sender, _ := newTestService(t)

	input := validInput()
	input.TenantID = 8
	_, err := svc.Record(context.Background(), input)
	require.NoError(t, err)
	require.Empty(t, sender.sent)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	input := validInput()
	input.Amount = 0
	_, err := svc.Record(ctx, input)
	require.Error(t, err)

	input = validInput()
	input.Method = "barter"
	_, err = svc.Record(ctx, input)
	require.Error(t, err)

	input = validInput()
	input.Period = "August 2026"
	_, err = svc.Record(ctx, input)
	require.Error(t, err)
}

func TestRecordPaymentUnknownTenant(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	input := validInput()
	input.TenantID = 99
	_, err := svc.Record(context.Background(), input)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPaymentRejectsReplayedKey(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	input := validInput()
	input.IdempotencyKey = "abc-123"
	_, err := svc.Record(ctx, input)
	require.NoError(t, err)

	_, err = svc.Record(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateRequest)

	_, total, err := repo.List(ctx, shared.ListFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestApprovePaymentOnlyOnce(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	payment, err := svc.Record(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Approve(ctx, payment.ID, "manager-1"))

	stored, err := repo.Get(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status)
	require.Equal(t, "manager-1", stored.ApprovedBy)

	require.ErrorIs(t, svc.Approve(ctx, payment.ID, "manager-1"), ErrAlreadyApproved)
}

func TestVoidedPaymentCannotBeApproved(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	payment, err := svc.Record(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Void(ctx, payment.ID, "manager-1"))
	require.ErrorIs(t, svc.Approve(ctx, payment.ID, "manager-1"), ErrVoided)
	require.ErrorIs(t, svc.Void(ctx, payment.ID, "manager-1"), ErrVoided)
}
