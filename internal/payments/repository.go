package payments

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for payments.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Payment, int, error)
	Get(ctx context.Context, id int64) (Payment, error)
	Create(ctx context.Context, p Payment) (Payment, error)
	SetStatus(ctx context.Context, id int64, status, actor string, at time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed payment repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const paymentColumns = `id, tenant_id, property_id, amount, method, reference, period, status, paid_at, recorded_by, COALESCE(approved_by, ''), approved_at, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Payment, int, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM payments WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	appendFilter := func(clause string, value any) {
		argCount++
		query += ` AND ` + clause + ` $` + strconv.Itoa(argCount)
		countQuery += ` AND ` + clause + ` $` + strconv.Itoa(len(countArgs)+1)
		args = append(args, value)
		countArgs = append(countArgs, value)
	}

	if filters.PropertyID != nil {
		appendFilter(`property_id =`, *filters.PropertyID)
	}
	if filters.TenantID != nil {
		appendFilter(`tenant_id =`, *filters.TenantID)
	}
	if filters.Search != "" {
		appendFilter(`reference ILIKE`, "%"+filters.Search+"%")
	}
	if filters.Status != "" {
		appendFilter(`status =`, filters.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY paid_at DESC`

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.TenantID, &p.PropertyID, &p.Amount, &p.Method, &p.Reference, &p.Period, &p.Status, &p.PaidAt, &p.RecordedBy, &p.ApprovedBy, &p.ApprovedAt, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		payments = append(payments, p)
	}
	return payments, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Payment, error) {
	var p Payment
	err := r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id).
		Scan(&p.ID, &p.TenantID, &p.PropertyID, &p.Amount, &p.Method, &p.Reference, &p.Period, &p.Status, &p.PaidAt, &p.RecordedBy, &p.ApprovedBy, &p.ApprovedAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Payment{}, ErrNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, p Payment) (Payment, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (tenant_id, property_id, amount, method, reference, period, status, paid_at, recorded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.TenantID, p.PropertyID, p.Amount, p.Method, p.Reference, p.Period, p.Status, p.PaidAt, p.RecordedBy, now,
	).Scan(&p.ID)
	if err != nil {
		return Payment{}, err
	}
	p.CreatedAt = now
	return p, nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status, actor string, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE payments SET status = $1, approved_by = $2, approved_at = $3 WHERE id = $4`,
		status, actor, at, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
