package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"caption-service/internal/core/domain"
	output "caption-service/internal/core/ports/output"
)

type PipelineService struct {
	runner       output.PipelineRunner
	pipelineName string
}

func NewPipelineService(runner output.PipelineRunner, pipelineName string) *PipelineService {
	return &PipelineService{runner: runner, pipelineName: pipelineName}
}

type TriggerResult struct {
	ExecutionARN string `json:"ExecutionArn"`
}

// Trigger logs the incoming event and starts exactly one execution of the
// configured pipeline. The event content does not influence the execution.
func (s *PipelineService) Trigger(ctx context.Context, event json.RawMessage) (*TriggerResult, error) {
	if s.pipelineName == "" {
		return nil, fmt.Errorf("%w: PIPELINE_NAME", domain.ErrMissingConfiguration)
	}
	log.WithFields(log.Fields{
		"pipeline": s.pipelineName,
		"event":    string(event),
	}).Info("pipeline trigger received")

	id, err := s.runner.StartExecution(ctx, s.pipelineName)
	if err != nil {
		return nil, fmt.Errorf("start pipeline %s: %w", s.pipelineName, err)
	}

	log.WithFields(log.Fields{
		"pipeline":  s.pipelineName,
		"execution": id,
	}).Info("pipeline execution started")
	return &TriggerResult{ExecutionARN: id}, nil
}

func parseID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrInvalidDeploymentID, id)
	}
	return uid, nil
}
