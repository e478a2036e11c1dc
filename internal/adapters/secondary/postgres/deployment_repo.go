package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
)

const defaultListLimit = 50

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type deploymentRepo struct {
	db DB
}

// NewDeploymentRepository creates a new DeploymentRepository
func NewDeploymentRepository(db DB) output.DeploymentRepository {
	return &deploymentRepo{db: db}
}

const deploymentColumns = `
	id, created_at, updated_at, request_id, endpoint_name, model_name,
	endpoint_config_name, artifact_uri, artifact_last_modified,
	trigger_source, status, failed_step, last_error`

func (r *deploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	query := `
		INSERT INTO deployment (` + deploymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.Exec(ctx, query,
		d.ID, d.CreatedAt, d.UpdatedAt, d.RequestID, d.EndpointName, d.ModelName,
		d.EndpointConfigName, d.ArtifactURI, d.ArtifactLastModified,
		string(d.TriggerSource), string(d.Status), d.FailedStep, d.LastError,
	)
	if err != nil {
		return mapWriteError("create deployment", err)
	}
	return nil
}

func (r *deploymentRepo) Update(ctx context.Context, d *domain.Deployment) error {
	query := `
		UPDATE deployment
		SET status = $1, failed_step = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.Exec(ctx, query,
		string(d.Status), d.FailedStep, d.LastError, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return mapWriteError("update deployment", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDeploymentNotFound
	}
	return nil
}

func (r *deploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployment WHERE id = $1`

	d, err := scanDeployment(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("get deployment by id: %w", err)
	}
	return d, nil
}

func (r *deploymentRepo) List(ctx context.Context, filter output.DeploymentFilter) ([]*domain.Deployment, int, error) {
	where, args := listConditions(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM deployment` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deployments: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := fmt.Sprintf(`
		SELECT %s FROM deployment%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, deploymentColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list deployments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan deployment row: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate deployment rows: %w", err)
	}
	return out, total, nil
}

func listConditions(filter output.DeploymentFilter) (string, []any) {
	var conditions []string
	var args []any
	if filter.EndpointName != "" {
		args = append(args, filter.EndpointName)
		conditions = append(conditions, fmt.Sprintf("endpoint_name = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func scanDeployment(row pgx.Row) (*domain.Deployment, error) {
	d := &domain.Deployment{}
	var source, status string
	err := row.Scan(
		&d.ID, &d.CreatedAt, &d.UpdatedAt, &d.RequestID, &d.EndpointName, &d.ModelName,
		&d.EndpointConfigName, &d.ArtifactURI, &d.ArtifactLastModified,
		&source, &status, &d.FailedStep, &d.LastError,
	)
	if err != nil {
		return nil, err
	}
	d.TriggerSource = domain.EventSource(source)
	d.Status = domain.DeploymentStatus(status)
	return d, nil
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return domain.ErrDeploymentConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
