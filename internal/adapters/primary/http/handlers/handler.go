package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"caption-service/internal/core/services"
)

// Handler serves the inference container contract and the control API.
// Services that a binary does not run may be nil; their routes are then
// not registered.
type Handler struct {
	inferenceSvc *services.InferenceService
	model        *services.ModelHandle
	deploySvc    *services.DeployService
	pipelineSvc  *services.PipelineService
}

func New(
	inferenceSvc *services.InferenceService,
	model *services.ModelHandle,
	deploySvc *services.DeployService,
	pipelineSvc *services.PipelineService,
) *Handler {
	return &Handler{
		inferenceSvc: inferenceSvc,
		model:        model,
		deploySvc:    deploySvc,
		pipelineSvc:  pipelineSvc,
	}
}

// RegisterServingRoutes mounts the container contract at the root.
func (h *Handler) RegisterServingRoutes(r gin.IRoutes) {
	r.GET("/ping", h.Ping)
	r.POST("/invocations", h.Invocations)
}

// RegisterRoutes mounts the control API.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Deployments
	if h.deploySvc != nil {
		r.POST("/deployments", h.TriggerDeployment)
		r.GET("/deployments", h.ListDeployments)
		r.GET("/deployments/:id", h.GetDeployment)
	}

	// Pipeline
	if h.pipelineSvc != nil {
		r.POST("/pipeline/executions", h.StartPipelineExecution)
	}
}

func RegisterMetrics(r gin.IRoutes) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
