package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"caption-service/internal/adapters/primary/http/dto"
	"caption-service/internal/adapters/primary/http/middleware"
	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
	"caption-service/internal/core/services"
	"caption-service/internal/nn"
	"caption-service/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testClasses = 5

// writeGraph saves a graph whose prediction is always class `winner`.
func writeGraph(t *testing.T, dir string, winner int) {
	t.Helper()
	c := nn.NewClassifier(testClasses)
	bias := nn.New(testClasses)
	bias.Data[winner] = 10
	require.NoError(t, c.LoadStateDict(map[string]*nn.Tensor{
		nn.ParamWeight: nn.New(testClasses, nn.FeatureCount),
		nn.ParamBias:   bias,
	}))
	require.NoError(t, nn.SaveGraph(filepath.Join(dir, domain.GraphFileName), nn.Trace(c)))
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func thinPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 4000))))
	return buf.Bytes()
}

func servingRouter(t *testing.T, loaded bool) *gin.Engine {
	t.Helper()
	dir := t.TempDir()
	svc := services.NewInferenceService(nil)
	handle := services.NewModelHandle(svc, dir)
	if loaded {
		writeGraph(t, dir, 3)
		require.NoError(t, handle.Load())
	}

	r := gin.New()
	h := New(svc, handle, nil, nil)
	h.RegisterServingRoutes(r)
	RegisterMetrics(r)
	return r
}

func controlRouter(deploySvc *services.DeployService, pipelineSvc *services.PipelineService) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	New(nil, nil, deploySvc, pipelineSvc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func deployConfig() services.DeployConfig {
	return services.DeployConfig{
		EndpointName:         "caption-endpoint",
		ExecutionRoleARN:     "arn:role",
		InferenceImage:       "image:latest",
		Bucket:               "assets",
		OutputPrefix:         "output/",
		ModelNamePrefix:      "CaptionModel",
		VariantName:          "AllTraffic",
		InstanceType:         "ml.m5.xlarge",
		InitialInstanceCount: 1,
	}
}

// ============================================================================
// Serving Tests
// ============================================================================

func TestPing(t *testing.T) {
	tests := []struct {
		name   string
		loaded bool
		want   int
	}{
		{name: "model loaded", loaded: true, want: http.StatusOK},
		{name: "no model", loaded: false, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			servingRouter(t, tt.loaded).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestInvocations_Predicts(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader(pngBytes(t)))
	req.Header.Set("Content-Type", "application/x-image")
	w := httptest.NewRecorder()

	servingRouter(t, true).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"predicted_class":3}`, w.Body.String())
}

func TestInvocations_Errors(t *testing.T) {
	tests := []struct {
		name        string
		loaded      bool
		contentType string
		body        []byte
		want        int
	}{
		{name: "unsupported content type", loaded: true, contentType: "application/json", body: []byte(`{}`), want: http.StatusUnsupportedMediaType},
		{name: "undecodable image", loaded: true, contentType: "application/x-image", body: []byte("not an image"), want: http.StatusBadRequest},
		{name: "model not loaded", loaded: false, contentType: "application/x-image", body: nil, want: http.StatusServiceUnavailable},
		{name: "body too large", loaded: true, contentType: "application/x-image", body: make([]byte, MaxInvocationBytes+1), want: http.StatusRequestEntityTooLarge},
		{name: "thin image", loaded: true, contentType: "application/x-image", body: thinPNG(t), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := tt.body
			if body == nil {
				body = pngBytes(t)
			}
			req := httptest.NewRequest(http.MethodPost, "/invocations", bytes.NewReader(body))
			req.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()

			servingRouter(t, tt.loaded).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	w := httptest.NewRecorder()
	servingRouter(t, false).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "caption_serve_model_reloads_total")
}

// ============================================================================
// Deployment Tests
// ============================================================================

func TestTriggerDeployment(t *testing.T) {
	store := new(testutil.MockArtifactStore)
	platform := new(testutil.MockServingPlatform)
	svc := services.NewDeployService(store, platform, nil, deployConfig())

	store.On("List", mock.Anything, "output/").Return([]domain.ArtifactObject{
		{Key: "output/model.tar.gz", URI: "s3://assets/output/model.tar.gz", LastModified: time.Now()},
	}, nil)
	platform.On("CreateModel", mock.Anything, mock.Anything).Return(nil)
	platform.On("CreateEndpointConfig", mock.Anything, mock.Anything).Return(nil)
	platform.On("UpdateEndpoint", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deployments", bytes.NewBufferString(`{}`))
	req.Header.Set(middleware.HeaderRequestID, "1a2b3c4d-0000")
	w := httptest.NewRecorder()
	controlRouter(svc, nil).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var result services.DeployResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "deployed", result.Status)
	assert.Equal(t, "CaptionModel-1a2b3c4d", result.Model)
	assert.Equal(t, "CaptionModel-1a2b3c4d-cfg", result.EndpointConfig)
}

func TestTriggerDeployment_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*testutil.MockArtifactStore, *testutil.MockServingPlatform)
		want     int
		wantStep string
	}{
		{
			name: "no artifact",
			setup: func(s *testutil.MockArtifactStore, _ *testutil.MockServingPlatform) {
				s.On("List", mock.Anything, "output/").Return([]domain.ArtifactObject{}, nil)
			},
			want: http.StatusNotFound,
		},
		{
			name: "step failure",
			setup: func(s *testutil.MockArtifactStore, p *testutil.MockServingPlatform) {
				s.On("List", mock.Anything, "output/").Return([]domain.ArtifactObject{
					{Key: "output/model.tar.gz", LastModified: time.Now()},
				}, nil)
				p.On("CreateModel", mock.Anything, mock.Anything).Return(nil)
				p.On("CreateEndpointConfig", mock.Anything, mock.Anything).Return(nil)
				p.On("UpdateEndpoint", mock.Anything, mock.Anything).Return(errors.New("ValidationException"))
			},
			want:     http.StatusBadGateway,
			wantStep: "update_endpoint",
		},
		{
			name: "listing failure",
			setup: func(s *testutil.MockArtifactStore, _ *testutil.MockServingPlatform) {
				s.On("List", mock.Anything, "output/").Return(nil, errors.New("AccessDenied"))
			},
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(testutil.MockArtifactStore)
			platform := new(testutil.MockServingPlatform)
			tt.setup(store, platform)
			svc := services.NewDeployService(store, platform, nil, deployConfig())

			w := httptest.NewRecorder()
			controlRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/deployments", nil))

			require.Equal(t, tt.want, w.Code)
			if tt.wantStep != "" {
				var resp dto.DeploymentFailureResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantStep, resp.Step)
			}
		})
	}
}

func TestListDeployments(t *testing.T) {
	ledger := new(testutil.MockDeploymentRepo)
	svc := services.NewDeployService(nil, nil, ledger, deployConfig())

	ledger.On("List", mock.Anything, output.DeploymentFilter{Status: "DEPLOYED", Limit: 1, Offset: 2}).
		Return([]*domain.Deployment{{ID: uuid.New(), Status: domain.DeploymentStatusDeployed}}, 3, nil)

	w := httptest.NewRecorder()
	controlRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/deployments?limit=1&offset=2&status=DEPLOYED", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.ListDeploymentsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 3, resp.NextOffset)
	ledger.AssertExpectations(t)
}

func TestListDeployments_NoLedger(t *testing.T) {
	svc := services.NewDeployService(nil, nil, nil, deployConfig())

	w := httptest.NewRecorder()
	controlRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/deployments", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetDeployment(t *testing.T) {
	ledger := new(testutil.MockDeploymentRepo)
	svc := services.NewDeployService(nil, nil, ledger, deployConfig())
	id := uuid.New()
	missing := uuid.New()

	ledger.On("GetByID", mock.Anything, id).Return(&domain.Deployment{ID: id, Status: domain.DeploymentStatusPending}, nil)
	ledger.On("GetByID", mock.Anything, missing).Return(nil, domain.ErrDeploymentNotFound)

	tests := []struct {
		name string
		path string
		want int
	}{
		{name: "found", path: "/api/v1/deployments/" + id.String(), want: http.StatusOK},
		{name: "not found", path: "/api/v1/deployments/" + missing.String(), want: http.StatusNotFound},
		{name: "invalid id", path: "/api/v1/deployments/abc", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			controlRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// ============================================================================
// Pipeline Tests
// ============================================================================

func TestStartPipelineExecution(t *testing.T) {
	runner := new(testutil.MockPipelineRunner)
	runner.On("StartExecution", mock.Anything, "caption-pipeline").Return("arn:exec/1", nil).Once()
	svc := services.NewPipelineService(runner, "caption-pipeline")

	w := httptest.NewRecorder()
	controlRouter(nil, svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/executions", bytes.NewBufferString(`{"source":"schedule"}`)))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"ExecutionArn":"arn:exec/1"}`, w.Body.String())
	runner.AssertExpectations(t)
}

func TestStartPipelineExecution_NotFound(t *testing.T) {
	runner := new(testutil.MockPipelineRunner)
	runner.On("StartExecution", mock.Anything, "missing").Return("", domain.ErrPipelineNotFound)
	svc := services.NewPipelineService(runner, "missing")

	w := httptest.NewRecorder()
	controlRouter(nil, svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/pipeline/executions", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterRoutes_SkipsNilServices(t *testing.T) {
	w := httptest.NewRecorder()
	controlRouter(nil, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/deployments", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
