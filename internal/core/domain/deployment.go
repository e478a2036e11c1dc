package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Value Objects
// ============================================================================

// DeployStep is one external call of the registration sequence.
type DeployStep int

const (
	StepRegisterModel DeployStep = iota + 1
	StepCreateEndpointConfig
	StepUpdateEndpoint
)

// String returns the step name used in logs and the ledger.
func (s DeployStep) String() string {
	switch s {
	case StepRegisterModel:
		return "register_model"
	case StepCreateEndpointConfig:
		return "create_endpoint_config"
	case StepUpdateEndpoint:
		return "update_endpoint"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ParseDeployStep is the inverse of DeployStep.String. Unknown names map to 0.
func ParseDeployStep(s string) DeployStep {
	for _, step := range deploymentSequence {
		if step.String() == s {
			return step
		}
	}
	return 0
}

// deploymentSequence is the only order the steps may run in.
var deploymentSequence = [...]DeployStep{
	StepRegisterModel,
	StepCreateEndpointConfig,
	StepUpdateEndpoint,
}

// DeploymentStatus is the outcome recorded for a deployment attempt.
type DeploymentStatus string

const (
	DeploymentStatusPending  DeploymentStatus = "PENDING"
	DeploymentStatusDeployed DeploymentStatus = "DEPLOYED"
	DeploymentStatusFailed   DeploymentStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s DeploymentStatus) IsValid() bool {
	return s == DeploymentStatusPending || s == DeploymentStatusDeployed || s == DeploymentStatusFailed
}

// DeploymentNames are the per-invocation names derived from a request id.
type DeploymentNames struct {
	RequestID      string
	Model          string
	EndpointConfig string
}

// NewDeploymentNames derives model and endpoint config names from the first
// '-' separated segment of requestID. An empty requestID gets a fresh uuid.
func NewDeploymentNames(prefix, requestID string) DeploymentNames {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	segment, _, _ := strings.Cut(requestID, "-")
	model := fmt.Sprintf("%s-%s", prefix, segment)
	return DeploymentNames{
		RequestID:      requestID,
		Model:          model,
		EndpointConfig: model + "-cfg",
	}
}

// VPCConfig is the network placement of the serving container.
type VPCConfig struct {
	Subnets          []string `json:"Subnets"`
	SecurityGroupIDs []string `json:"SecurityGroupIds"`
}

// ParseVPCConfig decodes the VPC_CONFIG JSON document. Blank input means no
// VPC placement and yields nil.
func ParseVPCConfig(raw string) (*VPCConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var cfg VPCConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVPCConfig, err)
	}
	if len(cfg.Subnets) == 0 || len(cfg.SecurityGroupIDs) == 0 {
		return nil, fmt.Errorf("%w: subnets and security groups are required", ErrInvalidVPCConfig)
	}
	return &cfg, nil
}

// ModelSpec registers an artifact as a deployable model.
type ModelSpec struct {
	Name             string
	ExecutionRoleARN string
	Image            string
	ModelDataURL     string
	VPC              *VPCConfig
}

// DataCaptureSpec enables request/response capture on an endpoint config.
type DataCaptureSpec struct {
	DestinationURI     string
	SamplingPercentage int32
	CaptureInput       bool
	CaptureOutput      bool
}

// EndpointConfigSpec is an immutable binding of a model to instance sizing.
type EndpointConfigSpec struct {
	Name                 string
	ModelName            string
	VariantName          string
	InstanceType         string
	InitialInstanceCount int32
	DataCapture          *DataCaptureSpec
}

// EndpointUpdateSpec repoints a named endpoint at an endpoint config.
type EndpointUpdateSpec struct {
	EndpointName       string
	EndpointConfigName string
}

// ============================================================================
// Deployment Plan
// ============================================================================

// DeploymentPlan holds everything the registration sequence needs, fixed
// before the first external call is made.
type DeploymentPlan struct {
	Artifact       ArtifactObject
	Names          DeploymentNames
	Model          ModelSpec
	EndpointConfig EndpointConfigSpec
	Endpoint       EndpointUpdateSpec
}

// Steps returns the steps in execution order.
func (p *DeploymentPlan) Steps() []DeployStep {
	return deploymentSequence[:]
}

// StepError reports the step at which a deployment stopped. Steps before it
// completed and were left in place.
type StepError struct {
	Step DeployStep
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ============================================================================
// Entities
// ============================================================================

// Deployment records one invocation of the deployment trigger.
type Deployment struct {
	ID                   uuid.UUID        `json:"id"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
	RequestID            string           `json:"request_id"`
	EndpointName         string           `json:"endpoint_name"`
	ModelName            string           `json:"model_name"`
	EndpointConfigName   string           `json:"endpoint_config_name"`
	ArtifactURI          string           `json:"artifact_uri"`
	ArtifactLastModified time.Time        `json:"artifact_last_modified"`
	TriggerSource        EventSource      `json:"trigger_source"`
	Status               DeploymentStatus `json:"status"`
	FailedStep           string           `json:"failed_step,omitempty"`
	LastError            string           `json:"last_error,omitempty"`
}

// NewDeployment creates a PENDING record for plan.
func NewDeployment(plan *DeploymentPlan, source EventSource) *Deployment {
	now := time.Now()
	return &Deployment{
		ID:                   uuid.New(),
		CreatedAt:            now,
		UpdatedAt:            now,
		RequestID:            plan.Names.RequestID,
		EndpointName:         plan.Endpoint.EndpointName,
		ModelName:            plan.Model.Name,
		EndpointConfigName:   plan.EndpointConfig.Name,
		ArtifactURI:          plan.Artifact.URI,
		ArtifactLastModified: plan.Artifact.LastModified,
		TriggerSource:        source,
		Status:               DeploymentStatusPending,
	}
}

// MarkDeployed records a completed sequence.
func (d *Deployment) MarkDeployed() {
	d.Status = DeploymentStatusDeployed
	d.FailedStep = ""
	d.LastError = ""
	d.UpdatedAt = time.Now()
}

// MarkFailed records the step that failed and its error.
func (d *Deployment) MarkFailed(step DeployStep, err error) {
	d.Status = DeploymentStatusFailed
	if step != 0 {
		d.FailedStep = step.String()
	}
	if err != nil {
		d.LastError = err.Error()
	}
	d.UpdatedAt = time.Now()
}
