package services

import (
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"caption-service/internal/metrics"
	"caption-service/internal/nn"
)

// ModelHandle is the currently served graph. Reloads swap the pointer so
// in-flight requests finish on the graph they started with.
type ModelHandle struct {
	svc   *InferenceService
	dir   string
	graph atomic.Pointer[nn.Graph]
}

func NewModelHandle(svc *InferenceService, dir string) *ModelHandle {
	return &ModelHandle{svc: svc, dir: dir}
}

// Load reads the graph from the model dir and makes it current. On failure
// the previous graph stays in place.
func (h *ModelHandle) Load() error {
	g, err := h.svc.LoadModel(h.dir)
	if err != nil {
		metrics.ModelReloadsTotal.WithLabelValues(metrics.StatusError).Inc()
		return err
	}
	h.graph.Store(g)
	metrics.ModelReloadsTotal.WithLabelValues(metrics.StatusOK).Inc()
	log.WithFields(log.Fields{
		"dir":     h.dir,
		"classes": g.Classes(),
	}).Info("model loaded")
	return nil
}

// Graph returns the current graph or nil before the first successful Load.
func (h *ModelHandle) Graph() *nn.Graph {
	return h.graph.Load()
}

func (h *ModelHandle) Ready() bool {
	return h.graph.Load() != nil
}

func (h *ModelHandle) Dir() string {
	return h.dir
}
