package dto

import (
	"time"

	"caption-service/internal/core/domain"
)

// ============================================================================
// Response DTOs
// ============================================================================

// DeploymentResponse represents a ledger entry in API responses
type DeploymentResponse struct {
	ID                   string    `json:"id"`
	RequestID            string    `json:"request_id"`
	EndpointName         string    `json:"endpoint_name"`
	ModelName            string    `json:"model_name"`
	EndpointConfigName   string    `json:"endpoint_config_name"`
	ArtifactURI          string    `json:"artifact_uri"`
	ArtifactLastModified time.Time `json:"artifact_last_modified"`
	TriggerSource        string    `json:"trigger_source"`
	Status               string    `json:"status"`
	FailedStep           string    `json:"failed_step,omitempty"`
	LastError            string    `json:"last_error,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ListDeploymentsResponse represents a page of ledger entries
type ListDeploymentsResponse struct {
	Items      []DeploymentResponse `json:"items"`
	Total      int                  `json:"total"`
	PageSize   int                  `json:"page_size"`
	NextOffset int                  `json:"next_offset"`
}

// DeploymentFailureResponse is returned when a registration step fails
type DeploymentFailureResponse struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
}

// ============================================================================
// Mappers
// ============================================================================

func ToDeploymentResponse(d *domain.Deployment) DeploymentResponse {
	return DeploymentResponse{
		ID:                   d.ID.String(),
		RequestID:            d.RequestID,
		EndpointName:         d.EndpointName,
		ModelName:            d.ModelName,
		EndpointConfigName:   d.EndpointConfigName,
		ArtifactURI:          d.ArtifactURI,
		ArtifactLastModified: d.ArtifactLastModified,
		TriggerSource:        string(d.TriggerSource),
		Status:               string(d.Status),
		FailedStep:           d.FailedStep,
		LastError:            d.LastError,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}
}

func ToListDeploymentsResponse(items []*domain.Deployment, total, limit, offset int) ListDeploymentsResponse {
	resp := ListDeploymentsResponse{
		Items:      make([]DeploymentResponse, 0, len(items)),
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	}
	for _, d := range items {
		resp.Items = append(resp.Items, ToDeploymentResponse(d))
	}
	return resp
}
