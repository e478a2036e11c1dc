package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegistered(t *testing.T) {
	DeploymentsTotal.WithLabelValues("deployed", "").Inc()
	InferenceTotal.WithLabelValues(StatusOK).Inc()
	InferenceDuration.Observe(0.01)

	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, name := range []string{
		"caption_deploy_deployments_total",
		"caption_inference_requests_total",
		"caption_inference_duration_seconds",
	} {
		assert.Contains(t, body, name)
	}
}

func TestModelReloadsTotal(t *testing.T) {
	counter := ModelReloadsTotal.WithLabelValues(StatusError)
	before := testutil.ToFloat64(counter)

	counter.Inc()

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
