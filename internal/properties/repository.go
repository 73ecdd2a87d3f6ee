package properties

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for properties.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Property, int, error)
	Get(ctx context.Context, id int64) (Property, error)
	Create(ctx context.Context, p Property) (Property, error)
	Update(ctx context.Context, p Property) error
	SetStatus(ctx context.Context, id int64, status string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed property repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const propertyColumns = `id, company_id, branch_id, owner_id, name, address, city, unit_count, status, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Property, int, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM properties WHERE 1=1`
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

	if filters.Search != "" {
		argCount++
		placeholder := strconv.Itoa(argCount)
		query += ` AND (name ILIKE $` + placeholder + ` OR address ILIKE $` + placeholder + `)`
		countQuery += ` AND (name ILIKE $` + strconv.Itoa(len(countArgs)+1) + ` OR address ILIKE $` + strconv.Itoa(len(countArgs)+1) + `)`
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}
	if filters.CompanyID != nil {
		appendFilter(`company_id =`, *filters.CompanyID)
	}
	if filters.BranchID != nil {
		appendFilter(`branch_id =`, *filters.BranchID)
	}
	if filters.OwnerID != nil {
		appendFilter(`owner_id =`, *filters.OwnerID)
	}
	if filters.Status != "" {
		appendFilter(`status =`, filters.Status)
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

	var properties []Property
	for rows.Next() {
		var p Property
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.BranchID, &p.OwnerID, &p.Name, &p.Address, &p.City, &p.UnitCount, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		properties = append(properties, p)
	}
	return properties, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Property, error) {
	var p Property
	err := r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id = $1`, id).
		Scan(&p.ID, &p.CompanyID, &p.BranchID, &p.OwnerID, &p.Name, &p.Address, &p.City, &p.UnitCount, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Property{}, ErrNotFound
		}
		return Property{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, p Property) (Property, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO properties (company_id, branch_id, owner_id, name, address, city, unit_count, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		 RETURNING id`,
		p.CompanyID, p.BranchID, p.OwnerID, p.Name, p.Address, p.City, p.UnitCount, p.Status, now,
	).Scan(&p.ID)
	if err != nil {
		return Property{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) Update(ctx context.Context, p Property) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE properties SET company_id = $1, branch_id = $2, owner_id = $3, name = $4, address = $5, city = $6, unit_count = $7, status = $8, updated_at = $9 WHERE id = $10`,
		p.CompanyID, p.BranchID, p.OwnerID, p.Name, p.Address, p.City, p.UnitCount, p.Status, time.Now(), p.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE properties SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
