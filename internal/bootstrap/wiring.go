package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssm "github.com/aws/aws-sdk-go-v2/service/sagemaker"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/adapters/secondary/kubernetes"
	"caption-service/internal/adapters/secondary/postgres"
	"caption-service/internal/adapters/secondary/s3"
	"caption-service/internal/adapters/secondary/sagemaker"
	"caption-service/internal/config"
	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
	"caption-service/internal/core/services"
)

func TrainConfig(cfg *config.Config) services.TrainConfig {
	t := cfg.Training
	return services.TrainConfig{
		TrainDir:      t.TrainDir,
		ModelInputDir: t.ModelInputDir,
		ModelDir:      t.ModelDir,
		Epochs:        t.Epochs,
		BatchSize:     t.BatchSize,
		Workers:       t.Workers,
		LearningRate:  float32(t.LearningRate),
		Momentum:      float32(t.Momentum),
		Seed:          t.Seed,
	}
}

// DeployConfig resolves the deployment settings, including the optional VPC
// placement and data capture destination.
func DeployConfig(cfg *config.Config) (services.DeployConfig, error) {
	d := cfg.Deploy
	vpc, err := domain.ParseVPCConfig(d.VPCConfig)
	if err != nil {
		return services.DeployConfig{}, err
	}

	dc := services.DeployConfig{
		EndpointName:         d.EndpointName,
		ExecutionRoleARN:     d.RoleARN,
		InferenceImage:       d.InferenceImage,
		Bucket:               cfg.Storage.Bucket,
		OutputPrefix:         cfg.Storage.OutputPrefix,
		ModelNamePrefix:      d.ModelNamePrefix,
		VariantName:          d.VariantName,
		InstanceType:         d.InstanceType,
		InitialInstanceCount: int32(d.InitialInstanceCount),
		VPC:                  vpc,
	}
	if d.DataCaptureEnabled {
		dc.DataCapture = &domain.DataCaptureSpec{
			DestinationURI:     domain.S3URI(cfg.Storage.Bucket, d.DataCapturePrefix),
			SamplingPercentage: int32(d.DataCaptureSampling),
			CaptureInput:       true,
			CaptureOutput:      true,
		}
	}
	return dc, dc.Validate()
}

func AWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Ledger connects the deployment ledger. It returns a nil repository and a
// no-op close when DATABASE_URL is unset.
func Ledger(ctx context.Context, cfg config.DatabaseConfig) (output.DeploymentRepository, func(), error) {
	if !cfg.Enabled() {
		log.Info("deployment ledger disabled")
		return nil, func() {}, nil
	}

	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	log.Info("database connection established")
	return postgres.NewDeploymentRepository(pool), pool.Close, nil
}

// DeployService wires storage listing, the serving platform and the ledger.
func DeployService(ctx context.Context, cfg *config.Config) (*services.DeployService, func(), error) {
	deployCfg, err := DeployConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	awsCfg, err := AWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	ledger, closeLedger, err := Ledger(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}

	store := s3.NewArtifactStore(awss3.NewFromConfig(awsCfg), deployCfg.Bucket)
	platform := sagemaker.NewClient(awssm.NewFromConfig(awsCfg))
	return services.NewDeployService(store, platform, ledger, deployCfg), closeLedger, nil
}

// PipelineRunner selects the runner named by PIPELINE_RUNNER.
func PipelineRunner(ctx context.Context, cfg *config.Config) (output.PipelineRunner, error) {
	switch cfg.Pipeline.Runner {
	case config.RunnerSageMaker, "":
		awsCfg, err := AWSConfig(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sagemaker.NewClient(awssm.NewFromConfig(awsCfg)), nil
	case config.RunnerKubernetes:
		clientset, err := kubernetes.NewClientset(&cfg.Kubernetes)
		if err != nil {
			return nil, err
		}
		return kubernetes.NewPipelineRunner(clientset, cfg.Kubernetes.Namespace), nil
	default:
		return nil, fmt.Errorf("%w: unknown PIPELINE_RUNNER %q", domain.ErrMissingConfiguration, cfg.Pipeline.Runner)
	}
}

func PipelineService(ctx context.Context, cfg *config.Config) (*services.PipelineService, error) {
	if cfg.Pipeline.Name == "" {
		return nil, fmt.Errorf("%w: PIPELINE_NAME", domain.ErrMissingConfiguration)
	}
	runner, err := PipelineRunner(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return services.NewPipelineService(runner, cfg.Pipeline.Name), nil
}
