// Package metrics holds the Prometheus collectors shared by the serving
// runtime and the deployment trigger.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caption",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "caption",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	InferenceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caption",
			Subsystem: "inference",
			Name:      "requests_total",
			Help:      "Inference requests by outcome",
		},
		[]string{"status"},
	)

	InferenceDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "caption",
			Subsystem: "inference",
			Name:      "duration_seconds",
			Help:      "Time spent decoding and classifying one image",
			Buckets:   prometheus.DefBuckets,
		},
	)

	DeploymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caption",
			Subsystem: "deploy",
			Name:      "deployments_total",
			Help:      "Deployment attempts by outcome and failed step",
		},
		[]string{"status", "step"},
	)

	ModelReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "caption",
			Subsystem: "serve",
			Name:      "model_reloads_total",
			Help:      "Model graph reloads by outcome",
		},
		[]string{"status"},
	)
)

// Outcome label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		InferenceTotal,
		InferenceDuration,
		DeploymentsTotal,
		ModelReloadsTotal,
	)
}
