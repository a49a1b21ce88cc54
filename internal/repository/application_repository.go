package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/intake-service/internal/domain"
)

// ApplicationRepository encapsulates application persistence.
type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	ListPage(ctx context.Context, limit, offset int) ([]domain.Application, error)
	Count(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
}

type applicationRepository struct {
	pool *pgxpool.Pool
}

// NewApplicationRepository instantiates repository.
func NewApplicationRepository(pool *pgxpool.Pool) ApplicationRepository {
	return &applicationRepository{pool: pool}
}

func (r *applicationRepository) Create(ctx context.Context, app *domain.Application) error {
	const query = `
        INSERT INTO applications (full_name, email, phone, program, details, document_url, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, status, created_at, updated_at`

	if app.Status == "" {
		app.Status = domain.StatusPending
	}
	details := app.Details
	if details == nil {
		details = map[string]string{}
	}
	return r.pool.QueryRow(ctx, query,
		app.FullName,
		app.Email,
		app.Phone,
		app.Program,
		details,
		app.DocumentURL,
		app.Status,
	).Scan(&app.ID, &app.Status, &app.CreatedAt, &app.UpdatedAt)
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	const query = `
        SELECT id, full_name, email, phone, program, details, document_url, status, created_at, updated_at
        FROM applications WHERE id=$1`

	var app domain.Application
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Program,
		&app.Details,
		&app.DocumentURL,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *applicationRepository) ListPage(ctx context.Context, limit, offset int) ([]domain.Application, error) {
	const query = `
        SELECT id, full_name, email, phone, program, details, document_url, status, created_at, updated_at
        FROM applications
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanApplications(rows)
}

func (r *applicationRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM applications`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *applicationRepository) UpdateStatus(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	const query = `
        UPDATE applications SET status=$1, updated_at=NOW()
        WHERE id=$2
        RETURNING id, full_name, email, phone, program, details, document_url, status, created_at, updated_at`

	var app domain.Application
	if err := r.pool.QueryRow(ctx, query, status, id).Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Program,
		&app.Details,
		&app.DocumentURL,
		&app.Status,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &app, nil
}

func scanApplications(rows pgx.Rows) ([]domain.Application, error) {
	result := []domain.Application{}
	for rows.Next() {
		var app domain.Application
		if err := rows.Scan(
			&app.ID,
			&app.FullName,
			&app.Email,
			&app.Phone,
			&app.Program,
			&app.Details,
			&app.DocumentURL,
			&app.Status,
			&app.CreatedAt,
			&app.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}
