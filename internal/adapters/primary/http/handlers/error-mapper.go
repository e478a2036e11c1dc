package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"caption-service/internal/adapters/primary/http/dto"
	"caption-service/internal/core/domain"
)

func mapDomainError(c *gin.Context, err error) {
	var stepErr *domain.StepError
	var tooLarge *http.MaxBytesError

	switch {
	// Not found errors
	case errors.Is(err, domain.ErrNoArtifact),
		errors.Is(err, domain.ErrDeploymentNotFound),
		errors.Is(err, domain.ErrPipelineNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	// Conflict errors
	case errors.Is(err, domain.ErrDeploymentConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	// Bad request / validation errors
	case errors.Is(err, domain.ErrInvalidImage),
		errors.Is(err, domain.ErrInvalidDeploymentID),
		errors.Is(err, domain.ErrInvalidArtifactURI):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrUnsupportedContentType):
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})

	// Upstream platform rejected a registration step
	case errors.As(err, &stepErr):
		c.JSON(http.StatusBadGateway, dto.DeploymentFailureResponse{
			Error: err.Error(),
			Step:  stepErr.Step.String(),
		})

	// Service unavailable errors
	case errors.Is(err, domain.ErrModelNotLoaded),
		errors.Is(err, domain.ErrMissingConfiguration):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
