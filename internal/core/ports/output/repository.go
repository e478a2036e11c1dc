package ports

import (
	"context"

	"github.com/google/uuid"

	"caption-service/internal/core/domain"
)

type DeploymentFilter struct {
	EndpointName string
	Status       string
	Limit        int
	Offset       int
}

// DeploymentRepository stores the history of deploy attempts.
type DeploymentRepository interface {
	Create(ctx context.Context, d *domain.Deployment) error
	Update(ctx context.Context, d *domain.Deployment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error)
	List(ctx context.Context, filter DeploymentFilter) ([]*domain.Deployment, int, error)
}
