package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// StartPipelineExecution forwards the body to the pipeline trigger. The body
// is logged but never interpreted.
func (h *Handler) StartPipelineExecution(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		body = []byte("{}")
	}

	result, err := h.pipelineSvc.Trigger(c.Request.Context(), json.RawMessage(body))
	if err != nil {
		log.WithError(err).Error("start pipeline execution failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, result)
}
