package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Training   TrainingConfig
	Deploy     DeployConfig
	Pipeline   PipelineConfig
	Storage    StorageConfig
	Serve      ServeConfig
	Database   DatabaseConfig
	Kubernetes KubernetesConfig
	AWS        AWSConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level  string
	Format string
}

// TrainingConfig follows the training container contract: channel dirs and
// the model output dir come from SM_* variables.
type TrainingConfig struct {
	TrainDir      string
	ModelInputDir string
	ModelDir      string
	Epochs        int
	BatchSize     int
	Workers       int
	LearningRate  float64
	Momentum      float64
	Seed          uint64
}

type DeployConfig struct {
	EndpointName         string
	RoleARN              string
	InferenceImage       string
	ModelNamePrefix      string
	VariantName          string
	InstanceType         string
	InitialInstanceCount int
	VPCConfig            string
	DataCaptureEnabled   bool
	DataCapturePrefix    string
	DataCaptureSampling  int
}

type PipelineConfig struct {
	Name   string
	Runner string
}

type StorageConfig struct {
	Bucket       string
	OutputPrefix string
}

type ServeConfig struct {
	ModelDir   string
	LabelsPath string
	Watch      bool
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
}

// Enabled reports whether the deployment ledger should be used.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

type KubernetesConfig struct {
	InCluster      bool
	KubeConfigPath string
	Namespace      string
}

type AWSConfig struct {
	Region string
}

// Pipeline runners.
const (
	RunnerSageMaker  = "sagemaker"
	RunnerKubernetes = "kubernetes"
)

func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("LOGGER_LEVEL", "info")
	v.SetDefault("LOGGER_FORMAT", "json")

	v.SetDefault("SM_CHANNEL_TRAIN", "/opt/ml/input/data/train")
	v.SetDefault("SM_CHANNEL_MODEL", "/opt/ml/input/data/model")
	v.SetDefault("SM_MODEL_DIR", "/opt/ml/model")
	v.SetDefault("TRAIN_EPOCHS", 1)
	v.SetDefault("TRAIN_BATCH_SIZE", 1)
	v.SetDefault("TRAIN_WORKERS", 1)
	v.SetDefault("TRAIN_LR", 1e-4)
	v.SetDefault("TRAIN_MOMENTUM", 0.9)
	v.SetDefault("TRAIN_SEED", 0)

	v.SetDefault("MODEL_NAME_PREFIX", "CaptionModel")
	v.SetDefault("VARIANT_NAME", "AllTraffic")
	v.SetDefault("INSTANCE_TYPE", "ml.m5.xlarge")
	v.SetDefault("INITIAL_INSTANCE_COUNT", 1)
	v.SetDefault("DATA_CAPTURE_ENABLED", false)
	v.SetDefault("DATA_CAPTURE_PREFIX", "datacapture/")
	v.SetDefault("DATA_CAPTURE_SAMPLING", 100)

	v.SetDefault("PIPELINE_RUNNER", RunnerSageMaker)
	v.SetDefault("OUTPUT_PREFIX", "output/")

	v.SetDefault("SERVE_MODEL_DIR", "/opt/ml/model")
	v.SetDefault("LABELS_PATH", "imagenet_classes.txt")
	v.SetDefault("SERVE_WATCH", false)

	v.SetDefault("DATABASE_MAX_CONNS", 4)
	v.SetDefault("DATABASE_MIN_CONNS", 0)
	v.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")

	v.SetDefault("KUBERNETES_IN_CLUSTER", false)
	v.SetDefault("KUBERNETES_NAMESPACE", "default")

	// Env
	v.AutomaticEnv()

	shutdown, err := time.ParseDuration(v.GetString("SERVER_SHUTDOWN_TIMEOUT"))
	if err != nil {
		shutdown = 10 * time.Second
	}
	lifetime, err := time.ParseDuration(v.GetString("DATABASE_CONN_MAX_LIFETIME"))
	if err != nil {
		lifetime = 30 * time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ShutdownTimeout: shutdown,
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOGGER_LEVEL"),
			Format: v.GetString("LOGGER_FORMAT"),
		},
		Training: TrainingConfig{
			TrainDir:      v.GetString("SM_CHANNEL_TRAIN"),
			ModelInputDir: v.GetString("SM_CHANNEL_MODEL"),
			ModelDir:      v.GetString("SM_MODEL_DIR"),
			Epochs:        v.GetInt("TRAIN_EPOCHS"),
			BatchSize:     v.GetInt("TRAIN_BATCH_SIZE"),
			Workers:       v.GetInt("TRAIN_WORKERS"),
			LearningRate:  v.GetFloat64("TRAIN_LR"),
			Momentum:      v.GetFloat64("TRAIN_MOMENTUM"),
			Seed:          v.GetUint64("TRAIN_SEED"),
		},
		Deploy: DeployConfig{
			EndpointName:         v.GetString("ENDPOINT_NAME"),
			RoleARN:              v.GetString("SM_ROLE_ARN"),
			InferenceImage:       v.GetString("INFERENCE_IMAGE"),
			ModelNamePrefix:      v.GetString("MODEL_NAME_PREFIX"),
			VariantName:          v.GetString("VARIANT_NAME"),
			InstanceType:         v.GetString("INSTANCE_TYPE"),
			InitialInstanceCount: v.GetInt("INITIAL_INSTANCE_COUNT"),
			VPCConfig:            v.GetString("VPC_CONFIG"),
			DataCaptureEnabled:   v.GetBool("DATA_CAPTURE_ENABLED"),
			DataCapturePrefix:    v.GetString("DATA_CAPTURE_PREFIX"),
			DataCaptureSampling:  v.GetInt("DATA_CAPTURE_SAMPLING"),
		},
		Pipeline: PipelineConfig{
			Name:   v.GetString("PIPELINE_NAME"),
			Runner: v.GetString("PIPELINE_RUNNER"),
		},
		Storage: StorageConfig{
			Bucket:       v.GetString("ASSET_BUCKET"),
			OutputPrefix: v.GetString("OUTPUT_PREFIX"),
		},
		Serve: ServeConfig{
			ModelDir:   v.GetString("SERVE_MODEL_DIR"),
			LabelsPath: v.GetString("LABELS_PATH"),
			Watch:      v.GetBool("SERVE_WATCH"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			MaxConns:        v.GetInt("DATABASE_MAX_CONNS"),
			MinConns:        v.GetInt("DATABASE_MIN_CONNS"),
			ConnMaxLifetime: lifetime,
		},
		Kubernetes: KubernetesConfig{
			InCluster:      v.GetBool("KUBERNETES_IN_CLUSTER"),
			KubeConfigPath: v.GetString("KUBECONFIG_PATH"),
			Namespace:      v.GetString("KUBERNETES_NAMESPACE"),
		},
		AWS: AWSConfig{
			Region: v.GetString("AWS_REGION"),
		},
	}

	return cfg, nil
}
