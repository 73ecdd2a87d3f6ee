package files

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for file metadata.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]File, int, error)
	Get(ctx context.Context, id int64) (File, error)
	Create(ctx context.Context, f File) (File, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed file metadata repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const fileColumns = `id, company_id, property_id, category, key, name, content_type, size, uploaded_by, created_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]File, int, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM files WHERE 1=1`
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

	if filters.CompanyID != nil {
		appendFilter(`company_id =`, *filters.CompanyID)
	}
	if filters.PropertyID != nil {
		appendFilter(`property_id =`, *filters.PropertyID)
	}
	if filters.Search != "" {
		appendFilter(`name ILIKE`, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY created_at DESC`

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

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.ID, &f.CompanyID, &f.PropertyID, &f.Category, &f.Key, &f.Name, &f.ContentType, &f.Size, &f.UploadedBy, &f.CreatedAt); err != nil {
			return nil, 0, err
		}
		files = append(files, f)
	}
	return files, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (File, error) {
	var f File
	err := r.pool.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id).
		Scan(&f.ID, &f.CompanyID, &f.PropertyID, &f.Category, &f.Key, &f.Name, &f.ContentType, &f.Size, &f.UploadedBy, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return File{}, ErrNotFound
		}
		return File{}, err
	}
	return f, nil
}

func (r *repository) Create(ctx context.Context, f File) (File, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO files (company_id, property_id, category, key, name, content_type, size, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		f.CompanyID, f.PropertyID, f.Category, f.Key, f.Name, f.ContentType, f.Size, f.UploadedBy, now,
	).Scan(&f.ID)
	if err != nil {
		return File{}, err
	}
	f.CreatedAt = now
	return f, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
