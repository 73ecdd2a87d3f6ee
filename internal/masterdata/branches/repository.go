package branches

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Branch, int, error)
	Get(ctx context.Context, id int64) (Branch, error)
	Create(ctx context.Context, branch Branch) (Branch, error)
	Update(ctx context.Context, id int64, branch Branch) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Branch, int, error) {
	query := `SELECT id, company_id, code, name, address, phone, is_active, created_at, updated_at FROM branches WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM branches WHERE 1=1`
	args := []any{}
	countArgs := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		placeholder := strconv.Itoa(argCount)
		query += ` AND (name ILIKE $` + placeholder + ` OR code ILIKE $` + placeholder + `)`
		countQuery += ` AND (name ILIKE $` + strconv.Itoa(len(countArgs)+1) + ` OR code ILIKE $` + strconv.Itoa(len(countArgs)+1) + `)`
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

	query += " ORDER BY " + sortOrder(filters.SortBy, filters.SortDir)

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

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.CompanyID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		branches = append(branches, b)
	}
	return branches, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Branch, error) {
	var b Branch
	err := r.pool.QueryRow(ctx,
		`SELECT id, company_id, code, name, address, phone, is_active, created_at, updated_at FROM branches WHERE id = $1`, id,
	).Scan(&b.ID, &b.CompanyID, &b.Code, &b.Name, &b.Address, &b.Phone, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Branch{}, translateError(err)
	}
	return b, nil
}

func (r *repository) Create(ctx context.Context, branch Branch) (Branch, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO branches (company_id, code, name, address, phone, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 RETURNING id`,
		branch.CompanyID, branch.Code, branch.Name, branch.Address, branch.Phone, branch.IsActive, now,
	).Scan(&branch.ID)
	if err != nil {
		return Branch{}, translateError(err)
	}
	branch.CreatedAt = now
	branch.UpdatedAt = now
	return branch, nil
}

func (r *repository) Update(ctx context.Context, id int64, branch Branch) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE branches SET company_id = $1, code = $2, name = $3, address = $4, phone = $5, is_active = $6, updated_at = $7 WHERE id = $8`,
		branch.CompanyID, branch.Code, branch.Name, branch.Address, branch.Phone, branch.IsActive, time.Now(), id,
	)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func translateError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "name":
		return "name " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
