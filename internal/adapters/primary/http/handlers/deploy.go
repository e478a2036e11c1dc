package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/adapters/primary/http/dto"
	"caption-service/internal/adapters/primary/http/middleware"
	output "caption-service/internal/core/ports/output"
	"caption-service/internal/core/services"
)

// TriggerDeployment runs the deployment trigger with the request body as the
// event payload. An empty body is a bare trigger.
func (h *Handler) TriggerDeployment(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.deploySvc.Deploy(c.Request.Context(), services.DeployRequest{
		RequestID: middleware.GetRequestID(c),
		Payload:   payload,
	})
	if err != nil {
		log.WithError(err).Error("deploy model failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListDeployments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.DeploymentFilter{
		EndpointName: c.Query("endpoint"),
		Status:       c.Query("status"),
		Limit:        limit,
		Offset:       offset,
	}

	items, total, err := h.deploySvc.History(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list deployments failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListDeploymentsResponse(items, total, limit, offset))
}

func (h *Handler) GetDeployment(c *gin.Context) {
	d, err := h.deploySvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDeploymentResponse(d))
}
