package sagemaker

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	smtypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
)

// API is the subset of the SageMaker client used here.
type API interface {
	CreateModel(ctx context.Context, in *sm.CreateModelInput, opts ...func(*sm.Options)) (*sm.CreateModelOutput, error)
	CreateEndpointConfig(ctx context.Context, in *sm.CreateEndpointConfigInput, opts ...func(*sm.Options)) (*sm.CreateEndpointConfigOutput, error)
	UpdateEndpoint(ctx context.Context, in *sm.UpdateEndpointInput, opts ...func(*sm.Options)) (*sm.UpdateEndpointOutput, error)
	StartPipelineExecution(ctx context.Context, in *sm.StartPipelineExecutionInput, opts ...func(*sm.Options)) (*sm.StartPipelineExecutionOutput, error)
}

// Client implements both the serving platform and the pipeline runner.
type Client struct {
	api API
}

var (
	_ output.ServingPlatform = (*Client)(nil)
	_ output.PipelineRunner  = (*Client)(nil)
)

func NewClient(api API) *Client {
	return &Client{api: api}
}

func (c *Client) CreateModel(ctx context.Context, spec *domain.ModelSpec) error {
	in := &sm.CreateModelInput{
		ModelName:        aws.String(spec.Name),
		ExecutionRoleArn: aws.String(spec.ExecutionRoleARN),
		PrimaryContainer: &smtypes.ContainerDefinition{
			Image:        aws.String(spec.Image),
			ModelDataUrl: aws.String(spec.ModelDataURL),
		},
	}
	if spec.VPC != nil {
		in.VpcConfig = &smtypes.VpcConfig{
			Subnets:          spec.VPC.Subnets,
			SecurityGroupIds: spec.VPC.SecurityGroupIDs,
		}
	}

	if _, err := c.api.CreateModel(ctx, in); err != nil {
		return fmt.Errorf("create model %s: %w", spec.Name, err)
	}
	return nil
}

func (c *Client) CreateEndpointConfig(ctx context.Context, spec *domain.EndpointConfigSpec) error {
	in := &sm.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(spec.Name),
		ProductionVariants: []smtypes.ProductionVariant{
			{
				VariantName:          aws.String(spec.VariantName),
				ModelName:            aws.String(spec.ModelName),
				InstanceType:         smtypes.ProductionVariantInstanceType(spec.InstanceType),
				InitialInstanceCount: aws.Int32(spec.InitialInstanceCount),
			},
		},
	}
	if dc := spec.DataCapture; dc != nil {
		in.DataCaptureConfig = dataCaptureConfig(dc)
	}

	if _, err := c.api.CreateEndpointConfig(ctx, in); err != nil {
		return fmt.Errorf("create endpoint config %s: %w", spec.Name, err)
	}
	return nil
}

func (c *Client) UpdateEndpoint(ctx context.Context, spec *domain.EndpointUpdateSpec) error {
	_, err := c.api.UpdateEndpoint(ctx, &sm.UpdateEndpointInput{
		EndpointName:       aws.String(spec.EndpointName),
		EndpointConfigName: aws.String(spec.EndpointConfigName),
	})
	if err != nil {
		return fmt.Errorf("update endpoint %s: %w", spec.EndpointName, err)
	}
	return nil
}

// StartExecution returns the pipeline execution ARN.
func (c *Client) StartExecution(ctx context.Context, pipelineName string) (string, error) {
	out, err := c.api.StartPipelineExecution(ctx, &sm.StartPipelineExecutionInput{
		PipelineName: aws.String(pipelineName),
	})
	if err != nil {
		var notFound *smtypes.ResourceNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", domain.ErrPipelineNotFound, pipelineName)
		}
		return "", fmt.Errorf("start pipeline execution: %w", err)
	}
	return aws.ToString(out.PipelineExecutionArn), nil
}

func dataCaptureConfig(dc *domain.DataCaptureSpec) *smtypes.DataCaptureConfig {
	var options []smtypes.CaptureOption
	if dc.CaptureInput {
		options = append(options, smtypes.CaptureOption{CaptureMode: smtypes.CaptureModeInput})
	}
	if dc.CaptureOutput {
		options = append(options, smtypes.CaptureOption{CaptureMode: smtypes.CaptureModeOutput})
	}
	return &smtypes.DataCaptureConfig{
		EnableCapture:             aws.Bool(true),
		DestinationS3Uri:          aws.String(dc.DestinationURI),
		InitialSamplingPercentage: aws.Int32(dc.SamplingPercentage),
		CaptureOptions:            options,
	}
}
