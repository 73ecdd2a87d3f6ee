package maintenance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for maintenance requests.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Request, int, error)
	Get(ctx context.Context, id int64) (Request, error)
	Create(ctx context.Context, req Request) (Request, error)
	Update(ctx context.Context, req Request) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed maintenance repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const requestColumns = `id, property_id, tenant_id, title, description, priority, status, COALESCE(assigned_to, ''), COALESCE(resolution, ''), reported_by, reported_at, resolved_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Request, int, error) {
	query := `SELECT ` + requestColumns + ` FROM maintenance_requests WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM maintenance_requests WHERE 1=1`
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
	if filters.Status != "" {
		appendFilter(`status =`, filters.Status)
	}
	if filters.Search != "" {
		appendFilter(`title ILIKE`, "%"+filters.Search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY reported_at DESC`

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

	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, req)
	}
	return requests, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Request, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM maintenance_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, err
	}
	return req, nil
}

func (r *repository) Create(ctx context.Context, req Request) (Request, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO maintenance_requests (property_id, tenant_id, title, description, priority, status, reported_by, reported_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		req.PropertyID, req.TenantID, req.Title, req.Description, req.Priority, req.Status, req.ReportedBy, req.ReportedAt, now, now,
	).Scan(&req.ID)
	if err != nil {
		return Request{}, err
	}
	req.CreatedAt = now
	req.UpdatedAt = now
	return req, nil
}

func (r *repository) Update(ctx context.Context, req Request) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE maintenance_requests
		 SET title = $1, description = $2, priority = $3, status = $4, assigned_to = NULLIF($5, ''), resolution = NULLIF($6, ''), resolved_at = $7, updated_at = $8
		 WHERE id = $9`,
		req.Title, req.Description, req.Priority, req.Status, req.AssignedTo, req.Resolution, req.ResolvedAt, time.Now(), req.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (Request, error) {
	var req Request
	err := row.Scan(&req.ID, &req.PropertyID, &req.TenantID, &req.Title, &req.Description, &req.Priority, &req.Status,
		&req.AssignedTo, &req.Resolution, &req.ReportedBy, &req.ReportedAt, &req.ResolvedAt, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return Request{}, err
	}
	return req, nil
}
