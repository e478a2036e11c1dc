package ports

import (
	"context"

	"caption-service/internal/core/domain"
)

// ServingPlatform manages hosted inference endpoints.
type ServingPlatform interface {
	// CreateModel registers a model from a bundle URI and serving image.
	CreateModel(ctx context.Context, spec *domain.ModelSpec) error

	// CreateEndpointConfig creates a single-variant endpoint configuration.
	CreateEndpointConfig(ctx context.Context, spec *domain.EndpointConfigSpec) error

	// UpdateEndpoint points an existing endpoint at a new configuration.
	UpdateEndpoint(ctx context.Context, spec *domain.EndpointUpdateSpec) error
}

// PipelineRunner starts executions of a named training pipeline.
type PipelineRunner interface {
	// StartExecution returns the identifier of the started execution.
	StartExecution(ctx context.Context, pipelineName string) (string, error)
}
