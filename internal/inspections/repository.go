package inspections

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estateops/estateops/internal/masterdata/shared"
)

// Repository defines data access for inspections.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Inspection, int, error)
	Get(ctx context.Context, id int64) (Inspection, error)
	Create(ctx context.Context, insp Inspection) (Inspection, error)
	Update(ctx context.Context, insp Inspection) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed inspections repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const inspectionColumns = `id, property_id, inspector, scheduled_at, status, COALESCE(findings, ''), completed_at, created_at, updated_at`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Inspection, int, error) {
	query := `SELECT ` + inspectionColumns + ` FROM inspections WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM inspections WHERE 1=1`
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

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY scheduled_at DESC`

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

	var inspections []Inspection
	for rows.Next() {
		var insp Inspection
		if err := rows.Scan(&insp.ID, &insp.PropertyID, &insp.Inspector, &insp.ScheduledAt, &insp.Status, &insp.Findings, &insp.CompletedAt, &insp.CreatedAt, &insp.UpdatedAt); err != nil {
			return nil, 0, err
		}
		inspections = append(inspections, insp)
	}
	return inspections, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Inspection, error) {
	var insp Inspection
	err := r.pool.QueryRow(ctx, `SELECT `+inspectionColumns+` FROM inspections WHERE id = $1`, id).
		Scan(&insp.ID, &insp.PropertyID, &insp.Inspector, &insp.ScheduledAt, &insp.Status, &insp.Findings, &insp.CompletedAt, &insp.CreatedAt, &insp.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Inspection{}, ErrNotFound
		}
		return Inspection{}, err
	}
	return insp, nil
}

func (r *repository) Create(ctx context.Context, insp Inspection) (Inspection, error) {
	now := time.Now()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO inspections (property_id, inspector, scheduled_at, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		insp.PropertyID, insp.Inspector, insp.ScheduledAt, insp.Status, now, now,
	).Scan(&insp.ID)
	if err != nil {
		return Inspection{}, err
	}
	insp.CreatedAt = now
	insp.UpdatedAt = now
	return insp, nil
}

func (r *repository) Update(ctx context.Context, insp Inspection) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inspections
		 SET inspector = $1, scheduled_at = $2, status = $3, findings = NULLIF($4, ''), completed_at = $5, updated_at = $6
		 WHERE id = $7`,
		insp.Inspector, insp.ScheduledAt, insp.Status, insp.Findings, insp.CompletedAt, time.Now(), insp.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
