package testutil

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"caption-service/internal/core/domain"
	ports "caption-service/internal/core/ports/output"
)

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) List(ctx context.Context, prefix string) ([]domain.ArtifactObject, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ArtifactObject), args.Error(1)
}

// MockServingPlatform is a mock of ServingPlatform.
type MockServingPlatform struct {
	mock.Mock
}

func (m *MockServingPlatform) CreateModel(ctx context.Context, spec *domain.ModelSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

func (m *MockServingPlatform) CreateEndpointConfig(ctx context.Context, spec *domain.EndpointConfigSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

func (m *MockServingPlatform) UpdateEndpoint(ctx context.Context, spec *domain.EndpointUpdateSpec) error {
	args := m.Called(ctx, spec)
	return args.Error(0)
}

// MockPipelineRunner is a mock of PipelineRunner.
type MockPipelineRunner struct {
	mock.Mock
}

func (m *MockPipelineRunner) StartExecution(ctx context.Context, pipelineName string) (string, error) {
	args := m.Called(ctx, pipelineName)
	return args.String(0), args.Error(1)
}

// MockDeploymentRepo is a mock of DeploymentRepository.
type MockDeploymentRepo struct {
	mock.Mock
}

func (m *MockDeploymentRepo) Create(ctx context.Context, d *domain.Deployment) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeploymentRepo) Update(ctx context.Context, d *domain.Deployment) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeploymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Deployment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deployment), args.Error(1)
}

func (m *MockDeploymentRepo) List(ctx context.Context, filter ports.DeploymentFilter) ([]*domain.Deployment, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.Deployment), args.Int(1), args.Error(2)
}

var (
	_ ports.ArtifactStore        = (*MockArtifactStore)(nil)
	_ ports.ServingPlatform      = (*MockServingPlatform)(nil)
	_ ports.PipelineRunner       = (*MockPipelineRunner)(nil)
	_ ports.DeploymentRepository = (*MockDeploymentRepo)(nil)
)
