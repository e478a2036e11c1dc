package ports

import (
	"context"

	"caption-service/internal/core/domain"
)

// ArtifactStore lists the objects that may hold model bundles.
type ArtifactStore interface {
	// List returns every object under prefix, across all result pages.
	List(ctx context.Context, prefix string) ([]domain.ArtifactObject, error)
}
