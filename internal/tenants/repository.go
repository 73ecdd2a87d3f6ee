package tenants

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for tenants.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Tenant, int, error)
	Get(ctx context.Context, id int64) (Tenant, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Update(ctx context.Context, t Tenant) error
	EndLease(ctx context.Context, id int64, moveOut time.Time) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed tenant repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const tenantColumns = `id, property_id, name, email, phone, move_in_date, move_out_date, monthly_rent, deposit, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Tenant, int, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM tenants WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		placeholder := strconv.Itoa(argCount)
		query += ` AND (name ILIKE $` + placeholder + ` OR email ILIKE $` + placeholder + `)`
		countQuery += ` AND (name ILIKE $` + strconv.Itoa(len(countArgs)+1) + ` OR email ILIKE $` + strconv.Itoa(len(countArgs)+1) + `)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}
	if filters.PropertyID != nil {
		argCount++
		query += ` AND property_id = $` + strconv.Itoa(argCount)
		countQuery += ` AND property_id = $` + strconv.Itoa(len(countArgs)+1)
		args = append(args, *filters.PropertyID)
		countArgs = append(countArgs, *filters.PropertyID)
	}
	if filters.IsActive != nil {
		argCount++
		query += ` AND is_active = $` + strconv.Itoa(argCount)
		countQuery += ` AND is_active = $` + strconv.Itoa(len(countArgs)+1)
		args = append(args, *filters.IsActive)
		countArgs = append(countArgs, *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY name`
	if filters.SortDir == shared.SortDesc {
		query += ` DESC`
	}

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

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.PropertyID, &t.Name, &t.Email, &t.Phone, &t.MoveInDate, &t.MoveOutDate, &t.MonthlyRent, &t.Deposit, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	return tenants, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Tenant, error) {
	var t Tenant
	err := r.pool.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id).
		Scan(&t.ID, &t.PropertyID, &t.Name, &t.Email, &t.Phone, &t.MoveInDate, &t.MoveOutDate, &t.MonthlyRent, &t.Deposit, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}

func (r *repository) Create(ctx context.Context, t Tenant) (Tenant, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tenants (property_id, name, email, phone, move_in_date, move_out_date, monthly_rent, deposit, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING id`,
		t.PropertyID, t.Name, t.Email, t.Phone, t.MoveInDate, t.MoveOutDate, t.MonthlyRent, t.Deposit, t.IsActive, now,
	).Scan(&t.ID)
	if err != nil {
		return Tenant{}, err
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	return t, nil
}

func (r *repository) Update(ctx context.Context, t Tenant) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants SET property_id = $1, name = $2, email = $3, phone = $4, move_in_date = $5, move_out_date = $6, monthly_rent = $7, deposit = $8, is_active = $9, updated_at = $10 WHERE id = $11`,
		t.PropertyID, t.Name, t.Email, t.Phone, t.MoveInDate, t.MoveOutDate, t.MonthlyRent, t.Deposit, t.IsActive, time.Now(), t.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) EndLease(ctx context.Context, id int64, moveOut time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tenants SET move_out_date = $1, is_active = FALSE, updated_at = $2 WHERE id = $3`,
		moveOut, time.Now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
