package owners

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for owners.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Owner, int, error)
	Get(ctx context.Context, id int64) (Owner, error)
	Create(ctx context.Context, o Owner) (Owner, error)
	Update(ctx context.Context, o Owner) error
	SetActive(ctx context.Context, id int64, active bool) error
	CountProperties(ctx context.Context, ownerID int64) (int, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed owner repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const ownerColumns = `id, company_id, name, email, phone, address, notes, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Owner, int, error) {
	query := `SELECT ` + ownerColumns + ` FROM owners WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM owners WHERE 1=1`
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
	if filters.CompanyID != nil {
		argCount++
		query += ` AND company_id = $` + strconv.Itoa(argCount)
		countQuery += ` AND company_id = $` + strconv.Itoa(len(countArgs)+1)
		args = append(args, *filters.CompanyID)
		countArgs = append(countArgs, *filters.CompanyID)
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

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.CompanyID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.Notes, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, 0, err
		}
		owners = append(owners, o)
	}
	return owners, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Owner, error) {
	var o Owner
	err := r.pool.QueryRow(ctx, `SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id).
		Scan(&o.ID, &o.CompanyID, &o.Name, &o.Email, &o.Phone, &o.Address, &o.Notes, &o.IsActive, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Owner{}, ErrNotFound
		}
		return Owner{}, err
	}
	return o, nil
}

func (r *repository) Create(ctx context.Context, o Owner) (Owner, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO owners (company_id, name, email, phone, address, notes, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id`,
		o.CompanyID, o.Name, o.Email, o.Phone, o.Address, o.Notes, o.IsActive, now,
	).Scan(&o.ID)
	if err != nil {
		return Owner{}, err
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	return o, nil
}

func (r *repository) Update(ctx context.Context, o Owner) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE owners SET company_id = $1, name = $2, email = $3, phone = $4, address = $5, notes = $6, is_active = $7, updated_at = $8 WHERE id = $9`,
		o.CompanyID, o.Name, o.Email, o.Phone, o.Address, o.Notes, o.IsActive, time.Now(), o.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE owners SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountProperties(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties WHERE owner_id = $1`, ownerID).Scan(&count)
	return count, err
}
