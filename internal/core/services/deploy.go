package services

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
	"caption-service/internal/metrics"
)

// DeployConfig is the fixed part of every deployment: where bundles live,
// which endpoint to repoint and how the serving container is sized.
type DeployConfig struct {
	EndpointName         string
	ExecutionRoleARN     string
	InferenceImage       string
	Bucket               string
	OutputPrefix         string
	ModelNamePrefix      string
	VariantName          string
	InstanceType         string
	InitialInstanceCount int32
	VPC                  *domain.VPCConfig
	DataCapture          *domain.DataCaptureSpec
}

// Validate reports the first required setting that is empty.
func (c DeployConfig) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"ENDPOINT_NAME", c.EndpointName},
		{"SM_ROLE_ARN", c.ExecutionRoleARN},
		{"INFERENCE_IMAGE", c.InferenceImage},
		{"ASSET_BUCKET", c.Bucket},
		{"MODEL_NAME_PREFIX", c.ModelNamePrefix},
		{"VARIANT_NAME", c.VariantName},
		{"INSTANCE_TYPE", c.InstanceType},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%w: %s", domain.ErrMissingConfiguration, r.name)
		}
	}
	if c.InitialInstanceCount < 1 {
		return fmt.Errorf("%w: INITIAL_INSTANCE_COUNT must be at least 1", domain.ErrMissingConfiguration)
	}
	return nil
}

type DeployService struct {
	store    output.ArtifactStore
	platform output.ServingPlatform
	ledger   output.DeploymentRepository
	cfg      DeployConfig
}

// NewDeployService wires the deployment trigger. ledger may be nil.
func NewDeployService(
	store output.ArtifactStore,
	platform output.ServingPlatform,
	ledger output.DeploymentRepository,
	cfg DeployConfig,
) *DeployService {
	return &DeployService{
		store:    store,
		platform: platform,
		ledger:   ledger,
		cfg:      cfg,
	}
}

type DeployRequest struct {
	RequestID string
	Payload   []byte
}

type DeployResult struct {
	Status         string `json:"status"`
	Model          string `json:"model"`
	Endpoint       string `json:"endpoint"`
	EndpointConfig string `json:"endpoint_config"`
	Artifact       string `json:"artifact"`
	DeploymentID   string `json:"deployment_id,omitempty"`
}

// Deploy selects the newest bundle and runs the registration sequence
// against it. A failed step returns *domain.StepError; earlier steps are
// not undone.
func (s *DeployService) Deploy(ctx context.Context, req DeployRequest) (*DeployResult, error) {
	event := domain.ParseDeployEvent(req.Payload)
	logger := log.WithFields(log.Fields{
		"request_id": req.RequestID,
		"source":     event.Source,
	})
	if event.ArtifactURI != "" {
		logger = logger.WithField("event_artifact", event.ArtifactURI)
	}
	if event.ExecutionARN != "" {
		logger = logger.WithField("execution_arn", event.ExecutionARN)
	}
	logger.Info("deployment triggered")

	plan, err := s.Plan(ctx, req.RequestID)
	if err != nil {
		metrics.DeploymentsTotal.WithLabelValues("failed", "select").Inc()
		return nil, err
	}
	logger = logger.WithFields(log.Fields{
		"artifact": plan.Artifact.URI,
		"model":    plan.Model.Name,
	})

	record := domain.NewDeployment(plan, event.Source)
	s.recordCreate(ctx, record)

	if err := s.Execute(ctx, plan); err != nil {
		var stepErr *domain.StepError
		step := domain.DeployStep(0)
		if errors.As(err, &stepErr) {
			step = stepErr.Step
		}
		record.MarkFailed(step, err)
		s.recordUpdate(ctx, record)
		metrics.DeploymentsTotal.WithLabelValues("failed", step.String()).Inc()
		logger.WithError(err).Error("deployment failed")
		return nil, err
	}

	record.MarkDeployed()
	s.recordUpdate(ctx, record)
	metrics.DeploymentsTotal.WithLabelValues("deployed", "").Inc()
	logger.Info("deployment complete")

	result := &DeployResult{
		Status:         "deployed",
		Model:          plan.Model.Name,
		Endpoint:       plan.Endpoint.EndpointName,
		EndpointConfig: plan.EndpointConfig.Name,
		Artifact:       plan.Artifact.URI,
	}
	if s.ledger != nil {
		result.DeploymentID = record.ID.String()
	}
	return result, nil
}

// Plan lists storage, picks the newest bundle and fixes every name and spec
// the registration sequence will use. It makes no changes anywhere.
func (s *DeployService) Plan(ctx context.Context, requestID string) (*domain.DeploymentPlan, error) {
	objects, err := s.store.List(ctx, s.cfg.OutputPrefix)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	artifact, err := domain.SelectNewest(objects)
	if err != nil {
		return nil, fmt.Errorf("select artifact under %s: %w", domain.S3URI(s.cfg.Bucket, s.cfg.OutputPrefix), err)
	}

	names := domain.NewDeploymentNames(s.cfg.ModelNamePrefix, requestID)
	return &domain.DeploymentPlan{
		Artifact: artifact,
		Names:    names,
		Model: domain.ModelSpec{
			Name:             names.Model,
			ExecutionRoleARN: s.cfg.ExecutionRoleARN,
			Image:            s.cfg.InferenceImage,
			ModelDataURL:     artifact.URI,
			VPC:              s.cfg.VPC,
		},
		EndpointConfig: domain.EndpointConfigSpec{
			Name:                 names.EndpointConfig,
			ModelName:            names.Model,
			VariantName:          s.cfg.VariantName,
			InstanceType:         s.cfg.InstanceType,
			InitialInstanceCount: s.cfg.InitialInstanceCount,
			DataCapture:          s.cfg.DataCapture,
		},
		Endpoint: domain.EndpointUpdateSpec{
			EndpointName:       s.cfg.EndpointName,
			EndpointConfigName: names.EndpointConfig,
		},
	}, nil
}

// Execute runs the plan's steps strictly in order and stops at the first
// failure.
func (s *DeployService) Execute(ctx context.Context, plan *domain.DeploymentPlan) error {
	for _, step := range plan.Steps() {
		var err error
		switch step {
		case domain.StepRegisterModel:
			err = s.platform.CreateModel(ctx, &plan.Model)
		case domain.StepCreateEndpointConfig:
			err = s.platform.CreateEndpointConfig(ctx, &plan.EndpointConfig)
		case domain.StepUpdateEndpoint:
			err = s.platform.UpdateEndpoint(ctx, &plan.Endpoint)
		default:
			err = fmt.Errorf("unknown step %d", int(step))
		}
		if err != nil {
			return &domain.StepError{Step: step, Err: err}
		}
		log.WithFields(log.Fields{
			"step":  step.String(),
			"model": plan.Model.Name,
		}).Debug("deployment step done")
	}
	return nil
}

// History lists recorded deployments, newest first.
func (s *DeployService) History(ctx context.Context, filter output.DeploymentFilter) ([]*domain.Deployment, int, error) {
	if s.ledger == nil {
		return nil, 0, fmt.Errorf("%w: DATABASE_URL", domain.ErrMissingConfiguration)
	}
	return s.ledger.List(ctx, filter)
}

// Get returns one recorded deployment.
func (s *DeployService) Get(ctx context.Context, id string) (*domain.Deployment, error) {
	if s.ledger == nil {
		return nil, fmt.Errorf("%w: DATABASE_URL", domain.ErrMissingConfiguration)
	}
	uid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.ledger.GetByID(ctx, uid)
}

func (s *DeployService) recordCreate(ctx context.Context, d *domain.Deployment) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Create(ctx, d); err != nil {
		log.WithError(err).WithField("deployment_id", d.ID).Warn("failed to record deployment")
	}
}

func (s *DeployService) recordUpdate(ctx context.Context, d *domain.Deployment) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Update(ctx, d); err != nil {
		log.WithError(err).WithField("deployment_id", d.ID).Warn("failed to update deployment record")
	}
}
