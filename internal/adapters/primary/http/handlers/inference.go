package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/core/domain"
	"caption-service/internal/metrics"
)

// MaxInvocationBytes caps the /invocations request body, matching the
// real-time endpoint payload limit.
const MaxInvocationBytes = 6 << 20

// Ping reports healthy once a model graph has been loaded.
func (h *Handler) Ping(c *gin.Context) {
	if h.model == nil || !h.model.Ready() {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handler) Invocations(c *gin.Context) {
	start := time.Now()
	status := metrics.StatusOK
	defer func() {
		metrics.InferenceTotal.WithLabelValues(status).Inc()
		metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	}()

	fail := func(err error) {
		status = metrics.StatusError
		log.WithError(err).Warn("invocation failed")
		mapDomainError(c, err)
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxInvocationBytes)
	body, err := c.GetRawData()
	if err != nil {
		fail(err)
		return
	}

	input, err := h.inferenceSvc.DecodeInput(body, c.GetHeader("Content-Type"))
	if err != nil {
		fail(err)
		return
	}

	graph := h.model.Graph()
	if graph == nil {
		fail(domain.ErrModelNotLoaded)
		return
	}

	pred, err := h.inferenceSvc.Predict(input, graph)
	if err != nil {
		fail(err)
		return
	}

	out, contentType, err := h.inferenceSvc.EncodeOutput(pred, c.GetHeader("Accept"))
	if err != nil {
		fail(err)
		return
	}
	c.Data(http.StatusOK, contentType, out)
}
